// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package netlinkutil

import (
	"net"

	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"

	"grimm.is/connd/internal/errors"
)

// Family selects IPv4 or IPv6 address/route operations, mirroring the
// per-family split of spec.md §4.F's ip configuration state machine.
type Family int

const (
	FamilyV4 Family = unix.AF_INET
	FamilyV6 Family = unix.AF_INET6
)

// AddAddr assigns addr (CIDR notation, e.g. "192.168.1.10/24") to an
// interface. Already-present addresses are not an error, matching ConnMan's
// idempotent reconfiguration on every ip-bound event.
func AddAddr(ifaceName, cidr string) error {
	link, err := netlink.LinkByName(ifaceName)
	if err != nil {
		return errors.Wrapf(err, errors.KindNotFound, "netlinkutil: interface %s not found", ifaceName)
	}
	addr, err := netlink.ParseAddr(cidr)
	if err != nil {
		return errors.Wrapf(err, errors.KindValidation, "netlinkutil: invalid address %q", cidr)
	}
	if err := netlink.AddrAdd(link, addr); err != nil {
		if isExists(err) {
			return nil
		}
		return errors.Wrapf(err, errors.KindIO, "netlinkutil: failed to add %s to %s", cidr, ifaceName)
	}
	return nil
}

// DelAddr removes addr from an interface. Already-absent addresses are not
// an error.
func DelAddr(ifaceName, cidr string) error {
	link, err := netlink.LinkByName(ifaceName)
	if err != nil {
		return errors.Wrapf(err, errors.KindNotFound, "netlinkutil: interface %s not found", ifaceName)
	}
	addr, err := netlink.ParseAddr(cidr)
	if err != nil {
		return errors.Wrapf(err, errors.KindValidation, "netlinkutil: invalid address %q", cidr)
	}
	if err := netlink.AddrDel(link, addr); err != nil {
		if isNotExist(err) || err == unix.EADDRNOTAVAIL {
			return nil
		}
		return errors.Wrapf(err, errors.KindIO, "netlinkutil: failed to remove %s from %s", cidr, ifaceName)
	}
	return nil
}

// ListAddrs returns every address of the given family assigned to ifaceName.
func ListAddrs(ifaceName string, family Family) ([]net.IPNet, error) {
	link, err := netlink.LinkByName(ifaceName)
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindNotFound, "netlinkutil: interface %s not found", ifaceName)
	}
	addrs, err := netlink.AddrList(link, int(family))
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindIO, "netlinkutil: failed to list addresses on %s", ifaceName)
	}
	out := make([]net.IPNet, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, *a.IPNet)
	}
	return out, nil
}

// FlushAddrs removes every address of the given family from ifaceName,
// ahead of applying a fresh static or DHCP-assigned configuration.
func FlushAddrs(ifaceName string, family Family) error {
	link, err := netlink.LinkByName(ifaceName)
	if err != nil {
		return errors.Wrapf(err, errors.KindNotFound, "netlinkutil: interface %s not found", ifaceName)
	}
	addrs, err := netlink.AddrList(link, int(family))
	if err != nil {
		return errors.Wrapf(err, errors.KindIO, "netlinkutil: failed to list addresses on %s", ifaceName)
	}
	for _, a := range addrs {
		if err := netlink.AddrDel(link, &a); err != nil && !isNotExist(err) {
			return errors.Wrapf(err, errors.KindIO, "netlinkutil: failed to flush address on %s", ifaceName)
		}
	}
	return nil
}

func isExists(err error) bool {
	return err != nil && err.Error() == "file exists"
}

func isNotExist(err error) bool {
	return err != nil && err.Error() == "no such process"
}
