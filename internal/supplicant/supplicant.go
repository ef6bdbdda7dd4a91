// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package supplicant is a typed helper over wpa_supplicant's D-Bus API
// (fi.w1.wpa_supplicant1), component D of spec.md §2: connd's wifi
// association goes through this RPC surface rather than talking to the
// kernel directly, the same separation ConnMan keeps between itself and
// wpa_supplicant.
package supplicant

import (
	"context"
	"time"

	"github.com/godbus/dbus/v5"

	"grimm.is/connd/internal/bus"
	"grimm.is/connd/internal/errors"
)

const (
	service        = "fi.w1.wpa_supplicant1"
	rootPath       = dbus.ObjectPath("/fi/w1/wpa_supplicant1")
	ifaceInterface = "fi.w1.wpa_supplicant1.Interface"
	ifaceRoot      = "fi.w1.wpa_supplicant1"

	callTimeout = 5 * time.Second
)

// Client talks to wpa_supplicant over the shared bus connection.
type Client struct {
	conn *bus.Conn
}

// New wraps conn for wpa_supplicant calls.
func New(conn *bus.Conn) *Client {
	return &Client{conn: conn}
}

// Interface identifies one wpa_supplicant-managed network interface by its
// object path, e.g. returned from GetInterface.
type Interface struct {
	Path dbus.ObjectPath
}

// GetInterface resolves the object path for ifaceName, asking
// wpa_supplicant to create the interface object if it doesn't manage it
// yet.
func (c *Client) GetInterface(ctx context.Context, ifaceName string) (Interface, error) {
	obj := c.conn.Raw().Object(service, rootPath)
	call := obj.CallWithContext(ctx, ifaceRoot+".GetInterface", 0, ifaceName)
	if call.Err == nil {
		var path dbus.ObjectPath
		if err := call.Store(&path); err != nil {
			return Interface{}, errors.Wrap(err, errors.KindProtocol, "supplicant: malformed GetInterface reply")
		}
		return Interface{Path: path}, nil
	}

	call = obj.CallWithContext(ctx, ifaceRoot+".CreateInterface", 0, map[string]any{"Ifname": ifaceName})
	if call.Err != nil {
		return Interface{}, errors.Wrapf(call.Err, errors.KindTransport, "supplicant: create interface %s failed", ifaceName)
	}
	var path dbus.ObjectPath
	if err := call.Store(&path); err != nil {
		return Interface{}, errors.Wrap(err, errors.KindProtocol, "supplicant: malformed CreateInterface reply")
	}
	return Interface{Path: path}, nil
}

// PropertyGetAll fetches every property of an interface object in one round
// trip, the supplicant-side equivalent of org.freedesktop.DBus.Properties.
// GetAll.
func (c *Client) PropertyGetAll(ctx context.Context, iface Interface) (map[string]dbus.Variant, error) {
	obj := c.conn.Raw().Object(service, iface.Path)
	call := obj.CallWithContext(ctx, "org.freedesktop.DBus.Properties.GetAll", 0, ifaceInterface)
	if call.Err != nil {
		return nil, errors.Wrap(call.Err, errors.KindTransport, "supplicant: property_get_all failed")
	}
	var props map[string]dbus.Variant
	if err := call.Store(&props); err != nil {
		return nil, errors.Wrap(err, errors.KindProtocol, "supplicant: malformed property reply")
	}
	return props, nil
}

// PropertyGet fetches a single named property.
func (c *Client) PropertyGet(ctx context.Context, iface Interface, name string) (dbus.Variant, error) {
	obj := c.conn.Raw().Object(service, iface.Path)
	call := obj.CallWithContext(ctx, "org.freedesktop.DBus.Properties.Get", 0, ifaceInterface, name)
	if call.Err != nil {
		return dbus.Variant{}, errors.Wrapf(call.Err, errors.KindTransport, "supplicant: property_get %s failed", name)
	}
	var v dbus.Variant
	if err := call.Store(&v); err != nil {
		return dbus.Variant{}, errors.Wrap(err, errors.KindProtocol, "supplicant: malformed property reply")
	}
	return v, nil
}

// PropertySet sets a single named property.
func (c *Client) PropertySet(ctx context.Context, iface Interface, name string, value any) error {
	obj := c.conn.Raw().Object(service, iface.Path)
	call := obj.CallWithContext(ctx, "org.freedesktop.DBus.Properties.Set", 0, ifaceInterface, name, dbus.MakeVariant(value))
	if call.Err != nil {
		return errors.Wrapf(call.Err, errors.KindTransport, "supplicant: property_set %s failed", name)
	}
	return nil
}

// AddNetwork registers a network configuration (SSID, PSK, key management)
// and returns its object path, ready for SelectNetwork.
func (c *Client) AddNetwork(ctx context.Context, iface Interface, args map[string]any) (dbus.ObjectPath, error) {
	obj := c.conn.Raw().Object(service, iface.Path)
	call := obj.CallWithContext(ctx, ifaceInterface+".AddNetwork", 0, args)
	if call.Err != nil {
		return "", errors.Wrap(call.Err, errors.KindTransport, "supplicant: add_network failed")
	}
	var path dbus.ObjectPath
	if err := call.Store(&path); err != nil {
		return "", errors.Wrap(err, errors.KindProtocol, "supplicant: malformed add_network reply")
	}
	return path, nil
}

// SelectNetwork starts association with a network previously registered via
// AddNetwork.
func (c *Client) SelectNetwork(ctx context.Context, iface Interface, network dbus.ObjectPath) error {
	obj := c.conn.Raw().Object(service, iface.Path)
	call := obj.CallWithContext(ctx, ifaceInterface+".SelectNetwork", 0, network)
	if call.Err != nil {
		return errors.Wrap(call.Err, errors.KindTransport, "supplicant: select_network failed")
	}
	return nil
}

// RemoveNetwork tears down association and forgets the network entry.
func (c *Client) RemoveNetwork(ctx context.Context, iface Interface, network dbus.ObjectPath) error {
	obj := c.conn.Raw().Object(service, iface.Path)
	call := obj.CallWithContext(ctx, ifaceInterface+".RemoveNetwork", 0, network)
	if call.Err != nil {
		return errors.Wrap(call.Err, errors.KindTransport, "supplicant: remove_network failed")
	}
	return nil
}

// Disconnect tells wpa_supplicant to drop any current association.
func (c *Client) Disconnect(ctx context.Context, iface Interface) error {
	obj := c.conn.Raw().Object(service, iface.Path)
	call := obj.CallWithContext(ctx, ifaceInterface+".Disconnect", 0)
	if call.Err != nil {
		return errors.Wrap(call.Err, errors.KindTransport, "supplicant: disconnect failed")
	}
	return nil
}

// State is wpa_supplicant's reported association state for an interface,
// polled by Driver to decide when to report link-up or failure.
type State string

const (
	StateDisconnected  State = "disconnected"
	StateAssociating   State = "associating"
	StateAssociated    State = "associated"
	StateCompleted     State = "completed"
	State4WayHandshake State = "4way_handshake"
)

// CurrentState reads the interface's "State" property.
func (c *Client) CurrentState(ctx context.Context, iface Interface) (State, error) {
	v, err := c.PropertyGet(ctx, iface, "State")
	if err != nil {
		return "", err
	}
	s, ok := v.Value().(string)
	if !ok {
		return "", errors.Errorf(errors.KindProtocol, "supplicant: State property has unexpected type")
	}
	return State(s), nil
}
