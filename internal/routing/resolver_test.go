// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package routing

import (
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func withTempResolvConf(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "resolv.conf")
	old := ResolvConfPath
	ResolvConfPath = path
	t.Cleanup(func() { ResolvConfPath = old })
	return path
}

func TestResolverInstallWritesNameservers(t *testing.T) {
	path := withTempResolvConf(t)
	r := NewResolver()

	require.NoError(t, r.Install("eth0", []net.IP{net.ParseIP("8.8.8.8")}, []string{"example.com"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "nameserver 8.8.8.8")
	require.Contains(t, string(data), "search example.com")
}

func TestResolverMergesMultipleInterfaces(t *testing.T) {
	withTempResolvConf(t)
	r := NewResolver()

	require.NoError(t, r.Install("eth0", []net.IP{net.ParseIP("1.1.1.1")}, nil))
	require.NoError(t, r.Install("wlan0", []net.IP{net.ParseIP("8.8.8.8")}, nil))

	data, err := os.ReadFile(ResolvConfPath)
	require.NoError(t, err)
	require.Contains(t, string(data), "1.1.1.1")
	require.Contains(t, string(data), "8.8.8.8")
}

func TestResolverWithdrawRemovesInterface(t *testing.T) {
	withTempResolvConf(t)
	r := NewResolver()

	require.NoError(t, r.Install("eth0", []net.IP{net.ParseIP("1.1.1.1")}, nil))
	require.NoError(t, r.Install("wlan0", []net.IP{net.ParseIP("8.8.8.8")}, nil))
	require.NoError(t, r.Withdraw("eth0"))

	data, err := os.ReadFile(ResolvConfPath)
	require.NoError(t, err)
	require.NotContains(t, string(data), "1.1.1.1")
	require.Contains(t, string(data), "8.8.8.8")
}

func TestResolverWithdrawUnknownIsNoop(t *testing.T) {
	withTempResolvConf(t)
	r := NewResolver()
	require.NoError(t, r.Withdraw("never-installed"))
}
