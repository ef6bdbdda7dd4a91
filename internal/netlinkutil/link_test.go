// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package netlinkutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"grimm.is/connd/internal/testutil"
)

func TestLinkStateString(t *testing.T) {
	s := LinkState{Name: "eth0", Index: 2, AdminUp: true, OperUp: false, MTU: 1500}
	require.Equal(t, "eth0(idx=2 admin=true oper=false mtu=1500)", s.String())
}

func TestLinkByNameMissing(t *testing.T) {
	testutil.RequireVM(t)
	_, err := LinkByName("connd-does-not-exist0")
	require.Error(t, err)
}

func TestListLinks(t *testing.T) {
	testutil.RequireVM(t)
	links, err := ListLinks()
	require.NoError(t, err)
	require.NotEmpty(t, links)
}
