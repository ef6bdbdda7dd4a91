// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package tethering

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLeaseStoreAllocatesFirstFree(t *testing.T) {
	s := NewLeaseStore(net.ParseIP("192.168.218.100"), net.ParseIP("192.168.218.102"), time.Hour)

	ip1, err := s.Allocate("aa:bb:cc:dd:ee:01")
	require.NoError(t, err)
	require.Equal(t, "192.168.218.100", ip1.String())

	ip2, err := s.Allocate("aa:bb:cc:dd:ee:02")
	require.NoError(t, err)
	require.Equal(t, "192.168.218.101", ip2.String())
}

func TestLeaseStoreReusesExistingLease(t *testing.T) {
	s := NewLeaseStore(net.ParseIP("192.168.218.100"), net.ParseIP("192.168.218.102"), time.Hour)

	first, err := s.Allocate("aa:bb:cc:dd:ee:01")
	require.NoError(t, err)

	second, err := s.Allocate("aa:bb:cc:dd:ee:01")
	require.NoError(t, err)
	require.True(t, first.Equal(second))
}

func TestLeaseStoreExhaustion(t *testing.T) {
	s := NewLeaseStore(net.ParseIP("192.168.218.100"), net.ParseIP("192.168.218.101"), time.Hour)

	_, err := s.Allocate("aa:bb:cc:dd:ee:01")
	require.NoError(t, err)
	_, err = s.Allocate("aa:bb:cc:dd:ee:02")
	require.NoError(t, err)

	_, err = s.Allocate("aa:bb:cc:dd:ee:03")
	require.Error(t, err)
}

func TestLeaseStoreReleaseFreesAddress(t *testing.T) {
	s := NewLeaseStore(net.ParseIP("192.168.218.100"), net.ParseIP("192.168.218.100"), time.Hour)

	ip, err := s.Allocate("aa:bb:cc:dd:ee:01")
	require.NoError(t, err)
	require.Equal(t, "192.168.218.100", ip.String())

	s.Release("aa:bb:cc:dd:ee:01")

	ip2, err := s.Allocate("aa:bb:cc:dd:ee:02")
	require.NoError(t, err)
	require.Equal(t, "192.168.218.100", ip2.String())
}

func TestLeaseStoreString(t *testing.T) {
	s := NewLeaseStore(net.ParseIP("192.168.218.100"), net.ParseIP("192.168.218.200"), time.Hour)
	require.Contains(t, s.String(), "192.168.218.100")
	require.Contains(t, s.String(), "192.168.218.200")
}
