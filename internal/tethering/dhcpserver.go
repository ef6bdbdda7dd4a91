// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package tethering

import (
	"net"
	"time"

	"github.com/insomniacslk/dhcp/dhcpv4"
	"github.com/insomniacslk/dhcp/dhcpv4/server4"

	"grimm.is/connd/internal/errors"
	"grimm.is/connd/internal/logging"
)

// dhcpServer is a single-scope DHCPv4 server bound to the bridge interface,
// spec.md §4.J's embedded pool server. It is a narrowed form of the
// multi-scope, relay-capable teacher service: one scope, one pool, no
// persistence across restarts (tethering leases are meant to be ephemeral).
type dhcpServer struct {
	conn     net.PacketConn
	iface    string
	router   net.IP
	netmask  net.IPMask
	dns      []net.IP
	leases   *LeaseStore
	stopping chan struct{}
}

// newDHCPServer binds a UDP listener on iface:67 and prepares to serve the
// given pool.
func newDHCPServer(iface string, router net.IP, netmask net.IPMask, dns []net.IP, leases *LeaseStore) (*dhcpServer, error) {
	addr := &net.UDPAddr{IP: net.IPv4zero, Port: 67}
	conn, err := server4.NewIPv4UDPConn(iface, addr)
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindIO, "tethering: bind dhcp socket on %s failed", iface)
	}
	return &dhcpServer{
		conn:     conn,
		iface:    iface,
		router:   router,
		netmask:  netmask,
		dns:      dns,
		leases:   leases,
		stopping: make(chan struct{}),
	}, nil
}

// Serve runs the read loop until Stop is called.
func (d *dhcpServer) Serve() {
	logger := logging.WithComponent("tethering")
	buf := make([]byte, 4096)
	for {
		select {
		case <-d.stopping:
			return
		default:
		}
		d.conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
		n, peer, err := d.conn.ReadFrom(buf)
		if err != nil {
			if nerr, ok := err.(net.Error); ok && nerr.Timeout() {
				continue
			}
			select {
			case <-d.stopping:
			default:
				logger.WithError(err).Error("dhcp read error")
			}
			return
		}

		pkt, err := dhcpv4.FromBytes(buf[:n])
		if err != nil {
			continue
		}
		d.handle(pkt, peer)
	}
}

// Stop closes the socket and ends the read loop.
func (d *dhcpServer) Stop() {
	close(d.stopping)
	d.conn.Close()
}

func (d *dhcpServer) handle(m *dhcpv4.DHCPv4, peer net.Addr) {
	logger := logging.WithComponent("tethering")

	dest := peer
	if udpAddr, ok := peer.(*net.UDPAddr); ok && udpAddr.IP.IsUnspecified() {
		dest = &net.UDPAddr{IP: net.IPv4bcast, Port: 68}
	}

	var reply *dhcpv4.DHCPv4
	var err error
	switch m.MessageType() {
	case dhcpv4.MessageTypeDiscover:
		reply, err = d.offer(m)
	case dhcpv4.MessageTypeRequest:
		reply, err = d.ack(m)
	default:
		return
	}
	if err != nil {
		logger.WithError(err).Error("dhcp handler error")
		return
	}
	if reply == nil {
		return
	}
	if _, err := d.conn.WriteTo(reply.ToBytes(), dest); err != nil {
		logger.WithError(err).Error("dhcp reply write error", "dest", dest)
	}
}

func (d *dhcpServer) offer(m *dhcpv4.DHCPv4) (*dhcpv4.DHCPv4, error) {
	mac := m.ClientHWAddr.String()
	ip, err := d.leases.Allocate(mac)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "tethering: offer allocation failed")
	}
	return dhcpv4.NewReplyFromRequest(m,
		dhcpv4.WithMessageType(dhcpv4.MessageTypeOffer),
		dhcpv4.WithYourIP(ip),
		dhcpv4.WithServerIP(d.router),
		dhcpv4.WithRouter(d.router),
		dhcpv4.WithNetmask(d.netmask),
		dhcpv4.WithDNS(d.dns...),
		dhcpv4.WithLeaseTime(uint32(d.leases.leaseTime.Seconds())),
	)
}

func (d *dhcpServer) ack(m *dhcpv4.DHCPv4) (*dhcpv4.DHCPv4, error) {
	mac := m.ClientHWAddr.String()
	requested := m.RequestedIPAddress()
	if requested == nil {
		requested = m.ClientIPAddr
	}

	allocated, err := d.leases.Allocate(mac)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "tethering: request allocation failed")
	}
	if requested != nil && !requested.IsUnspecified() && !allocated.Equal(requested) {
		return dhcpv4.NewReplyFromRequest(m,
			dhcpv4.WithMessageType(dhcpv4.MessageTypeNak),
			dhcpv4.WithServerIP(d.router),
		)
	}

	return dhcpv4.NewReplyFromRequest(m,
		dhcpv4.WithMessageType(dhcpv4.MessageTypeAck),
		dhcpv4.WithYourIP(allocated),
		dhcpv4.WithServerIP(d.router),
		dhcpv4.WithRouter(d.router),
		dhcpv4.WithNetmask(d.netmask),
		dhcpv4.WithDNS(d.dns...),
		dhcpv4.WithLeaseTime(uint32(d.leases.leaseTime.Seconds())),
	)
}
