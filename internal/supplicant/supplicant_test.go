// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package supplicant

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStateConstants(t *testing.T) {
	require.Equal(t, State("disconnected"), StateDisconnected)
	require.Equal(t, State("completed"), StateCompleted)
	require.Equal(t, State("4way_handshake"), State4WayHandshake)
}
