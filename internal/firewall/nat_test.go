// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package firewall

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNATTableSetMasqueradeReplaces(t *testing.T) {
	nat := NewNATTable(ProtoIPv4)
	nat.SetMasquerade("eth0")
	require.Equal(t, []MasqueradeRule{{OutInterface: "eth0"}}, nat.Rules)

	nat.SetMasquerade("ppp0")
	require.Equal(t, []MasqueradeRule{{OutInterface: "ppp0"}}, nat.Rules)
}

func TestNATTableFlush(t *testing.T) {
	nat := NewNATTable(ProtoIPv4)
	nat.SetMasquerade("eth0")
	nat.Flush()
	require.Empty(t, nat.Rules)
}
