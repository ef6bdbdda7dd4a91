// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package tethering

import (
	"fmt"
	"net"
	"sync"
	"time"

	"grimm.is/connd/internal/errors"
	"grimm.is/connd/internal/firewall"
	"grimm.is/connd/internal/logging"
	"grimm.is/connd/internal/netlinkutil"
)

// LeaseDuration is the tethering pool's fixed lease time, spec.md §4.J step 2.
const LeaseDuration = 24 * time.Hour

var (
	poolLow  = net.ParseIP("192.168.218.100")
	poolHigh = net.ParseIP("192.168.218.200")
)

// fallbackDNS is used when the on-box DNS proxy doesn't accept a listener
// on the bridge address, spec.md §4.J step 2 "public fallback".
var fallbackDNS = []net.IP{net.ParseIP("1.1.1.1"), net.ParseIP("9.9.9.9")}

// Controller drives the tethering lifecycle: bridge, embedded DHCP server,
// NAT masquerade, and on-demand private networks.
type Controller struct {
	mu        sync.Mutex
	enabled   bool
	dhcp      *dhcpServer
	nat       *firewall.NATTable
	upstream  string
	leases    *LeaseStore
	privNets  map[string]*privateNetwork
	nextIndex int
}

// privateNetwork tracks one allocated TUN-backed /24 private network.
type privateNetwork struct {
	device string
	subnet *net.IPNet
	server net.IP
	peer   net.IP
}

// New creates a disabled controller.
func New() *Controller {
	return &Controller{
		nat:      firewall.NewNATTable(firewall.ProtoIPv4),
		privNets: make(map[string]*privateNetwork),
	}
}

// Enabled reports whether tethering is currently active.
func (c *Controller) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// Enable brings the bridge, DHCP server and NAT masquerade up, spec.md
// §4.J enable(). dnsListener, if non-nil, is the bridge-bound DNS proxy
// address to hand out instead of fallbackDNS.
func (c *Controller) Enable(upstreamIface string, dnsListener net.IP) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.enabled {
		return nil
	}

	if err := createBridge(); err != nil {
		return err
	}

	dns := fallbackDNS
	if dnsListener != nil {
		dns = []net.IP{dnsListener}
	}

	c.leases = NewLeaseStore(poolLow, poolHigh, LeaseDuration)
	router, subnet, err := bridgeSubnet()
	if err != nil {
		destroyBridge()
		return err
	}
	netmask := subnet.Mask

	srv, err := newDHCPServer(BridgeName, router, netmask, dns, c.leases)
	if err != nil {
		destroyBridge()
		return err
	}
	c.dhcp = srv
	go srv.Serve()

	if err := enableIPv4Forwarding(); err != nil {
		srv.Stop()
		destroyBridge()
		return err
	}

	c.nat.Flush()
	c.nat.SetMasquerade(upstreamIface)
	if err := c.nat.Commit(); err != nil {
		srv.Stop()
		destroyBridge()
		return err
	}
	c.upstream = upstreamIface
	c.enabled = true

	logging.WithComponent("tethering").Info("tethering enabled", "upstream", upstreamIface)
	return nil
}

// Disable reverses Enable: stop DHCP, tear down the bridge, flush NAT.
func (c *Controller) Disable() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return nil
	}

	if c.dhcp != nil {
		c.dhcp.Stop()
		c.dhcp = nil
	}
	for id, pn := range c.privNets {
		c.teardownPrivateNetwork(id, pn)
	}
	c.nat.Flush()
	if err := c.nat.Commit(); err != nil {
		logging.WithComponent("tethering").WithError(err).Error("nat flush on disable failed")
	}
	if err := destroyBridge(); err != nil {
		return err
	}
	c.enabled = false
	c.upstream = ""
	logging.WithComponent("tethering").Info("tethering disabled")
	return nil
}

// UpdateInterface re-targets the masquerade rule when the upstream default
// interface changes, spec.md §4.J update_interface().
func (c *Controller) UpdateInterface(upstreamIface string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled || c.upstream == upstreamIface {
		c.upstream = upstreamIface
		return nil
	}
	c.nat.SetMasquerade(upstreamIface)
	if err := c.nat.Commit(); err != nil {
		return err
	}
	c.upstream = upstreamIface
	return nil
}

// RequestPrivateNetwork allocates a TUN device and a fresh /24 for a single
// requester, spec.md §4.J "Private-network request". The caller is
// responsible for handing the returned device name to the bus reply and for
// calling ReleasePrivateNetwork when the requester disconnects.
func (c *Controller) RequestPrivateNetwork() (device string, subnet *net.IPNet, server, peer net.IP, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextIndex++
	name := fmt.Sprintf("tun-priv%d", c.nextIndex)
	if err := netlinkutil.CreateTun(name); err != nil {
		return "", nil, nil, nil, err
	}
	if err := netlinkutil.SetLinkUp(name); err != nil {
		netlinkutil.DeleteLink(name)
		return "", nil, nil, nil, err
	}

	third := 224 + (c.nextIndex % 16)
	cidr := fmt.Sprintf("192.168.%d.1/24", third)
	if err := netlinkutil.AddAddr(name, cidr); err != nil {
		netlinkutil.DeleteLink(name)
		return "", nil, nil, nil, err
	}
	srv, sub, err := net.ParseCIDR(cidr)
	if err != nil {
		netlinkutil.DeleteLink(name)
		return "", nil, nil, nil, errors.Wrap(err, errors.KindInternal, "tethering: bad private-network cidr")
	}
	peerIP := cloneIP(srv.To4())
	peerIP[3] = 2

	c.privNets[name] = &privateNetwork{device: name, subnet: sub, server: srv, peer: peerIP}

	if c.enabled {
		c.nat.SetMasquerade(c.upstream)
		if err := c.nat.Commit(); err != nil {
			logging.WithComponent("tethering").WithError(err).Error("nat commit for private network failed")
		}
	}

	return name, sub, srv, peerIP, nil
}

// ReleasePrivateNetwork tears down a previously allocated TUN device.
func (c *Controller) ReleasePrivateNetwork(device string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	pn, ok := c.privNets[device]
	if !ok {
		return errors.Errorf(errors.KindNotFound, "tethering: unknown private network %s", device)
	}
	c.teardownPrivateNetwork(device, pn)
	return nil
}

func (c *Controller) teardownPrivateNetwork(device string, pn *privateNetwork) {
	delete(c.privNets, device)
	if err := netlinkutil.DeleteLink(device); err != nil {
		logging.WithComponent("tethering").WithError(err).Error("private network teardown failed", "device", device)
	}
}
