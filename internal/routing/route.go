// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package routing

import (
	"net"

	"grimm.is/connd/internal/errors"
	"grimm.is/connd/internal/netlinkutil"
)

// hostRouteSubnet builds the /32 (or /128) destination for a host route to
// an off-subnet nameserver, spec.md §4.H "add host routes to nameservers
// outside the interface subnet".
func hostRouteSubnet(ip net.IP) *net.IPNet {
	if v4 := ip.To4(); v4 != nil {
		return &net.IPNet{IP: v4, Mask: net.CIDRMask(32, 32)}
	}
	return &net.IPNet{IP: ip.To16(), Mask: net.CIDRMask(128, 128)}
}

// installNameserverRoutes adds a host route via gateway for every
// nameserver in nameservers that does not already fall inside ifaceSubnet.
func installNameserverRoutes(linkIndex int, ifaceSubnet *net.IPNet, gateway net.IP, nameservers []net.IP) error {
	for _, ns := range nameservers {
		if ifaceSubnet != nil && ifaceSubnet.Contains(ns) {
			continue
		}
		r := netlinkutil.Route{LinkIndex: linkIndex, Dst: hostRouteSubnet(ns), Gateway: gateway}
		if err := netlinkutil.ReplaceRoute(r); err != nil {
			return errors.Wrapf(err, errors.KindIO, "routing: host route to %s failed", ns)
		}
	}
	return nil
}

// withdrawNameserverRoutes removes the host routes installed above.
func withdrawNameserverRoutes(linkIndex int, nameservers []net.IP) {
	for _, ns := range nameservers {
		r := netlinkutil.Route{LinkIndex: linkIndex, Dst: hostRouteSubnet(ns)}
		_ = netlinkutil.DeleteRoute(r)
	}
}

// defaultRouteDst is the unspecified destination (`0.0.0.0/0` or `::/0`)
// identifying a default route.
func defaultRouteDst(v6 bool) *net.IPNet {
	if v6 {
		return &net.IPNet{IP: net.IPv6zero, Mask: net.CIDRMask(0, 128)}
	}
	return &net.IPNet{IP: net.IPv4zero.To4(), Mask: net.CIDRMask(0, 32)}
}

// switchDefaultRoute implements spec.md §4.H "On default change: switch
// default routes atomically by removing the old then installing the new"
// — atomic here means no window where two default routes with different
// priorities race the kernel's own selection, not a single syscall; the
// old route's removal and the new one's install happen back to back with
// no intervening network-facing work.
func switchDefaultRoute(v6 bool, oldLinkIndex int, newLinkIndex int, newGateway net.IP) error {
	dst := defaultRouteDst(v6)
	if oldLinkIndex != 0 {
		_ = netlinkutil.DeleteRoute(netlinkutil.Route{LinkIndex: oldLinkIndex, Dst: dst})
	}
	if newLinkIndex == 0 {
		return nil
	}
	r := netlinkutil.Route{LinkIndex: newLinkIndex, Dst: dst, Gateway: newGateway, Priority: 1}
	if err := netlinkutil.ReplaceRoute(r); err != nil {
		return errors.Wrap(err, errors.KindIO, "routing: default route install failed")
	}
	return nil
}
