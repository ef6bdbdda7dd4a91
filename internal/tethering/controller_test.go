// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package tethering

import (
	"testing"

	"github.com/stretchr/testify/require"

	"grimm.is/connd/internal/firewall"
	"grimm.is/connd/internal/testutil"
)

func TestControllerStartsDisabled(t *testing.T) {
	c := New()
	require.False(t, c.Enabled())
}

func TestControllerDisableWhenNeverEnabledIsNoop(t *testing.T) {
	c := New()
	require.NoError(t, c.Disable())
}

func TestReleaseUnknownPrivateNetworkErrors(t *testing.T) {
	c := New()
	err := c.ReleasePrivateNetwork("tun-priv99")
	require.Error(t, err)
}

func TestUpdateInterfaceWhileDisabledJustRecordsName(t *testing.T) {
	c := New()
	require.NoError(t, c.UpdateInterface("eth1"))
	require.Equal(t, "eth1", c.upstream)
}

func TestTetheringFullCycleOnVM(t *testing.T) {
	testutil.RequireVM(t)

	c := New()
	require.NoError(t, c.Enable("eth0", nil))
	require.True(t, c.Enabled())
	require.Equal(t, []firewall.MasqueradeRule{{OutInterface: "eth0"}}, c.nat.Rules)

	require.NoError(t, c.UpdateInterface("ppp0"))
	require.Equal(t, []firewall.MasqueradeRule{{OutInterface: "ppp0"}}, c.nat.Rules)

	device, subnet, server, peer, err := c.RequestPrivateNetwork()
	require.NoError(t, err)
	require.NotEmpty(t, device)
	require.NotNil(t, subnet)
	require.NotNil(t, server)
	require.NotNil(t, peer)
	require.NoError(t, c.ReleasePrivateNetwork(device))

	require.NoError(t, c.Disable())
	require.False(t, c.Enabled())
}
