// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package tethering

import (
	"net"
	"strings"

	"github.com/vishvananda/netlink"

	"grimm.is/connd/internal/errors"
	"grimm.is/connd/internal/netlinkutil"
	"grimm.is/connd/internal/netutil"
)

// BridgeName is the fixed interface name spec.md §4.J names.
const BridgeName = "tether"

// BridgeAddress is the bridge's own address, spec.md §4.J step 1.
const BridgeAddress = "192.168.218.1/24"

// createBridge builds the tether bridge with forward-delay 0 and brings it
// up at BridgeAddress, spec.md §4.J enable() step 1. It constructs the
// netlink.Bridge directly, rather than through netlinkutil.CreateBridge,
// since forward-delay must be set at creation time.
func createBridge() error {
	zero := 0
	br := &netlink.Bridge{
		LinkAttrs: netlink.LinkAttrs{
			Name:         BridgeName,
			HardwareAddr: net.HardwareAddr(netutil.GenerateVirtualMAC(BridgeName)),
		},
		ForwardDelay: &zero,
	}
	if err := netlink.LinkAdd(br); err != nil && !isLinkExists(err) {
		return errors.Wrapf(err, errors.KindIO, "tethering: create bridge %s failed", BridgeName)
	}
	if err := netlinkutil.SetLinkUp(BridgeName); err != nil {
		return err
	}
	if err := netlinkutil.AddAddr(BridgeName, BridgeAddress); err != nil {
		return err
	}
	return nil
}

func isLinkExists(err error) bool {
	return err != nil && strings.Contains(err.Error(), "file exists")
}

// destroyBridge removes the tether bridge entirely, spec.md §4.J disable().
func destroyBridge() error {
	return netlinkutil.DeleteLink(BridgeName)
}

// bridgeSubnet is the parsed form of BridgeAddress, used by the DHCP pool
// and NAT configuration.
func bridgeSubnet() (net.IP, *net.IPNet, error) {
	ip, ipnet, err := net.ParseCIDR(BridgeAddress)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.KindInternal, "tethering: invalid bridge address")
	}
	return ip, ipnet, nil
}
