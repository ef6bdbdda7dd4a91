// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package netlinkutil

import (
	"net"

	"github.com/vishvananda/netlink"

	"grimm.is/connd/internal/errors"
)

// Route is the subset of route attributes internal/routing needs to elect
// and install a default route per spec.md §4.H.
type Route struct {
	LinkIndex int
	Dst       *net.IPNet // nil means default (0.0.0.0/0 or ::/0)
	Gateway   net.IP
	Priority  int // lower wins; mirrors ConnMan's per-service route metric
}

// ReplaceRoute installs r, replacing any existing route to the same
// destination on the same link (idempotent re-application on every
// ip-bound event).
func ReplaceRoute(r Route) error {
	nr := &netlink.Route{
		LinkIndex: r.LinkIndex,
		Dst:       r.Dst,
		Gw:        r.Gateway,
		Priority:  r.Priority,
	}
	if err := netlink.RouteReplace(nr); err != nil {
		return errors.Wrap(err, errors.KindIO, "netlinkutil: route replace failed")
	}
	return nil
}

// DeleteRoute removes r if present; absence is not an error.
func DeleteRoute(r Route) error {
	nr := &netlink.Route{
		LinkIndex: r.LinkIndex,
		Dst:       r.Dst,
		Gw:        r.Gateway,
		Priority:  r.Priority,
	}
	if err := netlink.RouteDel(nr); err != nil {
		if isNotExist(err) {
			return nil
		}
		return errors.Wrap(err, errors.KindIO, "netlinkutil: route delete failed")
	}
	return nil
}

// DefaultRoutes returns every default route (0.0.0.0/0 for v4, ::/0 for v6)
// currently installed, including ones installed out of band. internal/routing
// does not call it.
func DefaultRoutes(family Family) ([]Route, error) {
	routes, err := netlink.RouteList(nil, int(family))
	if err != nil {
		return nil, errors.Wrap(err, errors.KindIO, "netlinkutil: route list failed")
	}
	var out []Route
	for _, r := range routes {
		if r.Dst != nil {
			ones, _ := r.Dst.Mask.Size()
			if ones != 0 {
				continue
			}
		}
		out = append(out, Route{LinkIndex: r.LinkIndex, Dst: r.Dst, Gateway: r.Gw, Priority: r.Priority})
	}
	return out, nil
}
