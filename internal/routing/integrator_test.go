// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package routing

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"grimm.is/connd/internal/ipconfig"
	"grimm.is/connd/internal/netlinkutil"
	"grimm.is/connd/internal/testutil"
)

func TestPreferNameserversConfiguredWins(t *testing.T) {
	configured := []net.IP{net.ParseIP("10.0.0.1")}
	discovered := []net.IP{net.ParseIP("8.8.8.8")}
	require.Equal(t, configured, preferNameservers(configured, discovered))
}

func TestPreferNameserversFallsBackToDiscovered(t *testing.T) {
	discovered := []net.IP{net.ParseIP("8.8.8.8")}
	require.Equal(t, discovered, preferNameservers(nil, discovered))
}

func TestIntegratorReadyElectsFirstDefault(t *testing.T) {
	testutil.RequireVM(t)
	withTempResolvConf(t)

	link, err := netlinkutil.LinkByName("lo")
	require.NoError(t, err)

	in := NewIntegrator(NewResolver())
	iface := Interface{Name: "lo", LinkIndex: link.Index, Subnet: nil}

	addr := ipconfig.Address{Local: net.ParseIP("127.0.0.1"), PrefixLen: 8}
	require.NoError(t, in.Ready(iface, addr, false, nil))
	require.Equal(t, "lo", in.DefaultInterface())
	require.Equal(t, 1, in.ConnectedCount())

	require.NoError(t, in.Disconnect("lo", nil, nil))
	require.Equal(t, "", in.DefaultInterface())
	require.Equal(t, 0, in.ConnectedCount())
}
