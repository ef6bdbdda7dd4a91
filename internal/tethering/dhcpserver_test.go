// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package tethering

import (
	"net"
	"testing"
	"time"

	"github.com/insomniacslk/dhcp/dhcpv4"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *dhcpServer {
	t.Helper()
	leases := NewLeaseStore(net.ParseIP("192.168.218.100"), net.ParseIP("192.168.218.102"), time.Hour)
	return &dhcpServer{
		router:  net.ParseIP("192.168.218.1"),
		netmask: net.CIDRMask(24, 32),
		dns:     []net.IP{net.ParseIP("1.1.1.1")},
		leases:  leases,
	}
}

func discoverPacket(t *testing.T, mac net.HardwareAddr) *dhcpv4.DHCPv4 {
	t.Helper()
	m, err := dhcpv4.NewDiscovery(mac)
	require.NoError(t, err)
	return m
}

func TestDHCPServerOfferAllocatesFromPool(t *testing.T) {
	s := newTestServer(t)
	mac, _ := net.ParseMAC("aa:bb:cc:dd:ee:01")
	reply, err := s.offer(discoverPacket(t, mac))
	require.NoError(t, err)
	require.Equal(t, dhcpv4.MessageTypeOffer, reply.MessageType())
	require.Equal(t, "192.168.218.100", reply.YourIPAddr.String())
}

func TestDHCPServerAckMatchesAllocation(t *testing.T) {
	s := newTestServer(t)
	mac, _ := net.ParseMAC("aa:bb:cc:dd:ee:02")

	offerMsg := discoverPacket(t, mac)
	_, err := s.offer(offerMsg)
	require.NoError(t, err)

	req, err := dhcpv4.NewRequestFromOffer(mustOffer(t, s, mac))
	require.NoError(t, err)

	reply, err := s.ack(req)
	require.NoError(t, err)
	require.Equal(t, dhcpv4.MessageTypeAck, reply.MessageType())
}

func TestDHCPServerAckNaksMismatchedRequest(t *testing.T) {
	s := newTestServer(t)
	mac, _ := net.ParseMAC("aa:bb:cc:dd:ee:03")

	offer := mustOffer(t, s, mac)
	req, err := dhcpv4.NewRequestFromOffer(offer,
		dhcpv4.WithOption(dhcpv4.OptGeneric(dhcpv4.OptionRequestedIPAddress, net.ParseIP("10.0.0.50").To4())))
	require.NoError(t, err)

	reply, err := s.ack(req)
	require.NoError(t, err)
	require.Equal(t, dhcpv4.MessageTypeNak, reply.MessageType())
}

func mustOffer(t *testing.T, s *dhcpServer, mac net.HardwareAddr) *dhcpv4.DHCPv4 {
	t.Helper()
	offer, err := s.offer(discoverPacket(t, mac))
	require.NoError(t, err)
	return offer
}
