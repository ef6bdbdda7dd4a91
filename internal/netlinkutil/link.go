// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package netlinkutil wraps github.com/vishvananda/netlink for the handful
// of operations connd's components (ipconfig, routing, tunnel6to4,
// tethering) need: link lookup and up/down control, address and route CRUD,
// and bridge, sit-tunnel and TUN creation through netlink's typed link
// requests (spec.md §2.B). It replaces the teacher's
// internal/network package, whose manager_linux.go referenced types that
// were never part of the retrieved source (see DESIGN.md).
package netlinkutil

import (
	"fmt"
	"net"

	"github.com/vishvananda/netlink"

	"grimm.is/connd/internal/errors"
)

// LinkState reports the administrative and operational status of an
// interface, the raw material for ipconfig's up/down/lower-up/lower-down
// observer callbacks.
type LinkState struct {
	Index   int
	Name    string
	AdminUp bool
	// OperUp mirrors IFF_LOWER_UP: the physical carrier is present. This is
	// "lower-up" in spec.md §4.F's observer vocabulary.
	OperUp       bool
	HardwareAddr net.HardwareAddr
	MTU          int
}

// LinkByName resolves an interface by name and reports its current state.
func LinkByName(name string) (LinkState, error) {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return LinkState{}, errors.Wrapf(err, errors.KindNotFound, "netlinkutil: interface %s not found", name)
	}
	return stateOf(link), nil
}

func stateOf(link netlink.Link) LinkState {
	attrs := link.Attrs()
	return LinkState{
		Index:        attrs.Index,
		Name:         attrs.Name,
		AdminUp:      attrs.Flags&net.FlagUp != 0,
		OperUp:       attrs.OperState == netlink.OperUp,
		HardwareAddr: attrs.HardwareAddr,
		MTU:          attrs.MTU,
	}
}

// ListLinks returns every interface visible in the current namespace.
func ListLinks() ([]LinkState, error) {
	links, err := netlink.LinkList()
	if err != nil {
		return nil, errors.Wrap(err, errors.KindIO, "netlinkutil: link list failed")
	}
	out := make([]LinkState, 0, len(links))
	for _, l := range links {
		out = append(out, stateOf(l))
	}
	return out, nil
}

// SetLinkUp brings an interface administratively up.
func SetLinkUp(name string) error {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return errors.Wrapf(err, errors.KindNotFound, "netlinkutil: interface %s not found", name)
	}
	if err := netlink.LinkSetUp(link); err != nil {
		return errors.Wrapf(err, errors.KindIO, "netlinkutil: failed to bring %s up", name)
	}
	return nil
}

// SetLinkDown brings an interface administratively down.
func SetLinkDown(name string) error {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return errors.Wrapf(err, errors.KindNotFound, "netlinkutil: interface %s not found", name)
	}
	if err := netlink.LinkSetDown(link); err != nil {
		return errors.Wrapf(err, errors.KindIO, "netlinkutil: failed to bring %s down", name)
	}
	return nil
}

// SetLinkMTU sets an interface's MTU.
func SetLinkMTU(name string, mtu int) error {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return errors.Wrapf(err, errors.KindNotFound, "netlinkutil: interface %s not found", name)
	}
	if err := netlink.LinkSetMTU(link, mtu); err != nil {
		return errors.Wrapf(err, errors.KindIO, "netlinkutil: failed to set MTU on %s", name)
	}
	return nil
}

// SetLinkMAC sets an interface's hardware address, used by tethering to
// assign its bridge a stable locally-administered MAC.
func SetLinkMAC(name string, mac net.HardwareAddr) error {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return errors.Wrapf(err, errors.KindNotFound, "netlinkutil: interface %s not found", name)
	}
	if err := netlink.LinkSetHardwareAddr(link, mac); err != nil {
		return errors.Wrapf(err, errors.KindIO, "netlinkutil: failed to set MAC on %s", name)
	}
	return nil
}

// DeleteLink removes an interface (tunnels, bridges) entirely.
func DeleteLink(name string) error {
	link, err := netlink.LinkByName(name)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return errors.Wrapf(err, errors.KindNotFound, "netlinkutil: interface %s not found", name)
	}
	if err := netlink.LinkDel(link); err != nil {
		return errors.Wrapf(err, errors.KindIO, "netlinkutil: failed to delete %s", name)
	}
	return nil
}

func isNotFound(err error) bool {
	return err != nil && err.Error() == "Link not found"
}

// String renders a LinkState for logging.
func (s LinkState) String() string {
	return fmt.Sprintf("%s(idx=%d admin=%v oper=%v mtu=%d)", s.Name, s.Index, s.AdminUp, s.OperUp, s.MTU)
}
