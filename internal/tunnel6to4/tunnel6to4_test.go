// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package tunnel6to4

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"grimm.is/connd/internal/testutil"
)

func TestIsGloballyRoutableV4(t *testing.T) {
	require.True(t, isGloballyRoutableV4(net.ParseIP("203.0.113.5")))
	require.False(t, isGloballyRoutableV4(net.ParseIP("10.1.2.3")))
	require.False(t, isGloballyRoutableV4(net.ParseIP("192.168.1.1")))
	require.False(t, isGloballyRoutableV4(net.ParseIP("172.20.0.1")))
	require.False(t, isGloballyRoutableV4(net.ParseIP("2001:db8::1")))
}

func TestSixToFourAddress(t *testing.T) {
	addr, err := sixToFourAddress(net.ParseIP("203.0.113.1"))
	require.NoError(t, err)
	require.Equal(t, "2002:cb00:7101::1/64", addr)
}

func TestSixToFourAddressRejectsV6(t *testing.T) {
	_, err := sixToFourAddress(net.ParseIP("2001:db8::1"))
	require.Error(t, err)
}

func TestEnableRejectsPrivateAddress(t *testing.T) {
	c := New()
	err := c.Enable(net.ParseIP("10.0.0.5"))
	require.Error(t, err)
	require.False(t, c.Up())
}

func TestDisableWhenNeverUpIsNoop(t *testing.T) {
	c := New()
	require.NoError(t, c.Disable())
}

func TestProbeRequiresUp(t *testing.T) {
	c := New()
	err := c.Probe(t.Context())
	require.Error(t, err)
}

func TestEnableAndProbeOnVM(t *testing.T) {
	testutil.RequireVM(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	old := ReachabilityURL
	ReachabilityURL = srv.URL
	defer func() { ReachabilityURL = old }()

	c := New()
	require.NoError(t, c.Enable(net.ParseIP("203.0.113.1")))
	require.True(t, c.Up())

	require.NoError(t, c.Probe(t.Context()))
	require.True(t, c.Up())

	require.NoError(t, c.Disable())
	require.False(t, c.Up())
}
