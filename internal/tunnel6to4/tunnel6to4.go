// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package tunnel6to4 implements component I, spec.md §4.I: the 6-to-4
// tunnel controller invoked when a service's IPv4 becomes ready and its
// IPv6 method is "auto" but no native IPv6 was obtained.
package tunnel6to4

import (
	"context"
	"encoding/hex"
	"fmt"
	"net"
	"time"

	probing "github.com/prometheus-community/pro-bing"

	"grimm.is/connd/internal/errors"
	"grimm.is/connd/internal/httpclient"
	"grimm.is/connd/internal/netlinkutil"
)

// TunnelName is the fixed interface name spec.md §4.I names.
const TunnelName = "tun6to4"

// relayAnycast is 192.88.99.1, the 6to4 relay anycast address the spec's
// default IPv6 route points at.
var relayAnycast = net.ParseIP("192.88.99.1")

// ReachabilityURL is the HTTP endpoint the controller probes over the
// freshly built tunnel to decide whether to keep it, spec.md §4.I step 5.
// A var so tests can redirect it to a local server.
var ReachabilityURL = "http://ipv6.connman.net/online/status.html"

// Controller owns the lifecycle of the single tun6to4 interface.
type Controller struct {
	up   bool
	addr net.IP
}

// New creates an idle Controller.
func New() *Controller { return &Controller{} }

// Up reports whether the tunnel is currently established.
func (c *Controller) Up() bool { return c.up }

// isGloballyRoutableV4 rejects RFC1918 space, spec.md §4.I step 1.
func isGloballyRoutableV4(ip net.IP) bool {
	v4 := ip.To4()
	if v4 == nil {
		return false
	}
	private := []*net.IPNet{
		{IP: net.IPv4(10, 0, 0, 0), Mask: net.CIDRMask(8, 32)},
		{IP: net.IPv4(192, 168, 0, 0), Mask: net.CIDRMask(16, 32)},
		{IP: net.IPv4(172, 16, 0, 0), Mask: net.CIDRMask(12, 32)},
	}
	for _, n := range private {
		if n.Contains(v4) {
			return false
		}
	}
	return true
}

// sixToFourAddress builds 2002:AABB:CCDD::1/64 from a global IPv4 address,
// spec.md §4.I step 3.
func sixToFourAddress(v4 net.IP) (string, error) {
	b := v4.To4()
	if b == nil {
		return "", errors.Errorf(errors.KindValidation, "tunnel6to4: %s is not an IPv4 address", v4)
	}
	return fmt.Sprintf("2002:%s:%s::1/64", hex.EncodeToString(b[0:2]), hex.EncodeToString(b[2:4])), nil
}

// Enable brings the tunnel up for localV4, spec.md §4.I steps 1-4. It does
// not itself perform the reachability probe; call Probe once the tunnel's
// interface is expected to be routable.
func (c *Controller) Enable(localV4 net.IP) error {
	if c.up {
		return nil
	}
	if !isGloballyRoutableV4(localV4) {
		return errors.Errorf(errors.KindValidation, "tunnel6to4: %s is not globally routable", localV4)
	}

	// remote is the wildcard 0.0.0.0: a 6to4 tunnel is multipoint, decapsulating
	// from any relay that sends it IPv6-in-IPv4 traffic for 2002::/16.
	if err := netlinkutil.CreateSitTunnel(TunnelName, localV4.String(), "0.0.0.0"); err != nil {
		return errors.Wrap(err, errors.KindIO, "tunnel6to4: create tunnel failed")
	}
	if err := netlinkutil.SetLinkUp(TunnelName); err != nil {
		return errors.Wrap(err, errors.KindIO, "tunnel6to4: link up failed")
	}

	addr, err := sixToFourAddress(localV4)
	if err != nil {
		return err
	}
	if err := netlinkutil.AddAddr(TunnelName, addr); err != nil {
		return errors.Wrap(err, errors.KindIO, "tunnel6to4: address assign failed")
	}

	link, err := netlinkutil.LinkByName(TunnelName)
	if err != nil {
		return errors.Wrap(err, errors.KindIO, "tunnel6to4: link lookup failed")
	}
	dst := &net.IPNet{IP: net.IPv6zero, Mask: net.CIDRMask(0, 128)}
	route := netlinkutil.Route{LinkIndex: link.Index, Dst: dst, Gateway: relayAnycast, Priority: 1}
	if err := netlinkutil.ReplaceRoute(route); err != nil {
		return errors.Wrap(err, errors.KindIO, "tunnel6to4: default route install failed")
	}

	c.up = true
	c.addr = localV4
	return nil
}

// Probe performs the HTTP GET reachability check of spec.md §4.I step 5,
// bound to the tunnel interface, and tears the tunnel down on a 4xx
// response. 2xx/3xx/5xx all keep the tunnel, matching the spec exactly
// (a 5xx means the remote is reachable but unhappy, not that the tunnel
// itself is broken).
func (c *Controller) Probe(ctx context.Context) error {
	if !c.up {
		return errors.Errorf(errors.KindInvalidState, "tunnel6to4: not up")
	}

	cfg := httpclient.Config{Interface: TunnelName, Timeout: 10 * time.Second}
	resp, err := httpclient.Get(ctx, cfg, ReachabilityURL)
	if err != nil {
		return errors.Wrap(err, errors.KindTransport, "tunnel6to4: reachability probe failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return c.Disable()
	}
	return nil
}

// PingSupplement issues an ICMPv6 echo to the relay over the tunnel as an
// additional signal alongside the mandated HTTP probe, using
// prometheus-community/pro-bing. Its result is advisory only; callers
// should not fail the tunnel over a ping timeout on its own, since
// several 6to4 relays rate-limit or drop ICMP entirely.
func (c *Controller) PingSupplement(target string, count int) (sent, recv int, err error) {
	pinger, err := probing.NewPinger(target)
	if err != nil {
		return 0, 0, errors.Wrap(err, errors.KindIO, "tunnel6to4: pinger setup failed")
	}
	pinger.Count = count
	pinger.Timeout = 5 * time.Second
	if err := pinger.Run(); err != nil {
		return 0, 0, errors.Wrap(err, errors.KindTransport, "tunnel6to4: ping run failed")
	}
	stats := pinger.Statistics()
	return stats.PacketsSent, stats.PacketsRecv, nil
}

// Disable tears the tunnel down, reversing Enable's steps 4 through 2,
// spec.md §4.I "Tear-down reverses steps 4->2".
func (c *Controller) Disable() error {
	if !c.up {
		return nil
	}
	if err := netlinkutil.DeleteLink(TunnelName); err != nil {
		return errors.Wrap(err, errors.KindIO, "tunnel6to4: delete tunnel failed")
	}
	c.up = false
	c.addr = nil
	return nil
}
