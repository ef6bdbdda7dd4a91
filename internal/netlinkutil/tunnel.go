// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package netlinkutil

import (
	"net"

	"github.com/vishvananda/netlink"

	"grimm.is/connd/internal/errors"
)

// CreateSitTunnel creates an IPv6-in-IPv4 "sit" tunnel device, the transport
// internal/tunnel6to4 needs for its 6to4 relay (spec.md §4.I). netlink's
// typed Sittun link type covers this directly; no raw SIOCADDTUNNEL ioctl is
// needed since vishvananda/netlink already exposes RTM_NEWLINK for sit
// devices the same way it does for bridges and veths.
func CreateSitTunnel(name string, localV4 string, remoteV4 string) error {
	local, err := parseV4(localV4)
	if err != nil {
		return errors.Wrapf(err, errors.KindValidation, "netlinkutil: invalid local address %q", localV4)
	}
	remote, err := parseV4(remoteV4)
	if err != nil {
		return errors.Wrapf(err, errors.KindValidation, "netlinkutil: invalid remote address %q", remoteV4)
	}

	link := &netlink.Sittun{
		LinkAttrs: netlink.LinkAttrs{Name: name},
		Local:     local,
		Remote:    remote,
	}

	if err := netlink.LinkAdd(link); err != nil {
		if isExists(err) {
			return nil
		}
		return errors.Wrapf(err, errors.KindIO, "netlinkutil: failed to create tunnel %s", name)
	}
	return nil
}

func parseV4(s string) (net.IP, error) {
	ip := net.ParseIP(s).To4()
	if ip == nil {
		return nil, errors.Errorf(errors.KindValidation, "not an IPv4 address: %s", s)
	}
	return ip, nil
}

// CreateBridge creates a bridge device, used by internal/tethering to host
// the shared-connection LAN (spec.md §4.J).
func CreateBridge(name string) error {
	link := &netlink.Bridge{LinkAttrs: netlink.LinkAttrs{Name: name}}
	if err := netlink.LinkAdd(link); err != nil {
		if isExists(err) {
			return nil
		}
		return errors.Wrapf(err, errors.KindIO, "netlinkutil: failed to create bridge %s", name)
	}
	return nil
}

// CreateTun creates a persistent, non-queued TUN device, used by
// internal/tethering to back a private-network request (spec.md §4.J) with
// its own point-to-point interface rather than a bridge port.
func CreateTun(name string) error {
	link := &netlink.Tuntap{
		LinkAttrs: netlink.LinkAttrs{Name: name},
		Mode:      netlink.TUNTAP_MODE_TUN,
	}
	if err := netlink.LinkAdd(link); err != nil {
		if isExists(err) {
			return nil
		}
		return errors.Wrapf(err, errors.KindIO, "netlinkutil: failed to create tun %s", name)
	}
	return nil
}

// AddBridgeMember enslaves ifaceName to the bridge bridgeName.
func AddBridgeMember(bridgeName, ifaceName string) error {
	bridge, err := netlink.LinkByName(bridgeName)
	if err != nil {
		return errors.Wrapf(err, errors.KindNotFound, "netlinkutil: bridge %s not found", bridgeName)
	}
	member, err := netlink.LinkByName(ifaceName)
	if err != nil {
		return errors.Wrapf(err, errors.KindNotFound, "netlinkutil: interface %s not found", ifaceName)
	}
	if err := netlink.LinkSetMaster(member, bridge); err != nil {
		return errors.Wrapf(err, errors.KindIO, "netlinkutil: failed to enslave %s to %s", ifaceName, bridgeName)
	}
	return nil
}
