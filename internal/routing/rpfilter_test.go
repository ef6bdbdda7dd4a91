// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package routing

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func withScratchSysctl(t *testing.T, ifaces ...string) {
	t.Helper()
	dir := t.TempDir()
	for _, name := range ifaces {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, name), 0755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, name, "rp_filter"), []byte("1"), 0644))
	}
	old := rpFilterPathPrefix
	rpFilterPathPrefix = dir
	t.Cleanup(func() { rpFilterPathPrefix = old })
}

func TestConnectionCounterLoosensAboveOne(t *testing.T) {
	withScratchSysctl(t, "eth0", "wlan0")
	c := newConnectionCounter()

	c.Connected("eth0")
	require.Equal(t, 1, c.Count())
	require.False(t, c.loosened)

	c.Connected("wlan0")
	require.Equal(t, 2, c.Count())
	require.True(t, c.loosened)

	v, err := readSysctl(rpFilterPath("eth0"))
	require.NoError(t, err)
	require.Equal(t, rpFilterLoose, v)
}

func TestConnectionCounterRestoresAtOne(t *testing.T) {
	withScratchSysctl(t, "eth0", "wlan0")
	c := newConnectionCounter()

	c.Connected("eth0")
	c.Connected("wlan0")
	require.True(t, c.loosened)

	c.Disconnected("wlan0")
	require.Equal(t, 1, c.Count())
	require.False(t, c.loosened)

	v, err := readSysctl(rpFilterPath("eth0"))
	require.NoError(t, err)
	require.Equal(t, "1", v)
}

func TestConnectionCounterIgnoresDuplicateConnect(t *testing.T) {
	withScratchSysctl(t, "eth0")
	c := newConnectionCounter()
	c.Connected("eth0")
	c.Connected("eth0")
	require.Equal(t, 1, c.Count())
}
