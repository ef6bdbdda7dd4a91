// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package bus owns the single system-bus connection connd shares across the
// manager facade (component M), the supplicant RPC helper (component D) and
// the agent collaborator: one connection, exported and imported objects
// multiplexed over it, matching spec.md §7's "single D-Bus connection,
// exposed as a set of objects under one well-known name" model.
package bus

import (
	"sync"

	"github.com/godbus/dbus/v5"

	"grimm.is/connd/internal/brand"
	"grimm.is/connd/internal/errors"
)

// Conn wraps a *dbus.Conn with the well-known name connd claims on the
// system bus (spec.md §7: "net.connman"-equivalent, here brand.BusName()).
type Conn struct {
	mu   sync.Mutex
	raw  *dbus.Conn
	name string
}

var (
	shared   *Conn
	sharedMu sync.Mutex
)

// Shared returns the process-wide bus connection, dialing and claiming the
// well-known name on first use. Every component that needs the bus calls
// this rather than dialing its own connection, so there is exactly one
// socket to the bus daemon for the whole process.
func Shared(sessionMode bool) (*Conn, error) {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	if shared != nil {
		return shared, nil
	}

	var raw *dbus.Conn
	var err error
	if sessionMode {
		raw, err = dbus.ConnectSessionBus()
	} else {
		raw, err = dbus.ConnectSystemBus()
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.KindTransport, "bus: connect failed")
	}

	name := brand.BusName()
	reply, err := raw.RequestName(name, dbus.NameFlagDoNotQueue)
	if err != nil {
		raw.Close()
		return nil, errors.Wrapf(err, errors.KindTransport, "bus: request name %s failed", name)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		raw.Close()
		return nil, errors.Errorf(errors.KindUnavailable, "bus: name %s already owned", name)
	}

	shared = &Conn{raw: raw, name: name}
	return shared, nil
}

// Raw exposes the underlying *dbus.Conn for object export/signal
// subscription calls this package doesn't wrap directly.
func (c *Conn) Raw() *dbus.Conn { return c.raw }

// Name is the well-known bus name connd owns.
func (c *Conn) Name() string { return c.name }

// Export publishes v's exported methods at path under interfaceName.
func (c *Conn) Export(v any, path dbus.ObjectPath, interfaceName string) error {
	if err := c.raw.Export(v, path, interfaceName); err != nil {
		return errors.Wrapf(err, errors.KindTransport, "bus: export %s at %s failed", interfaceName, path)
	}
	return nil
}

// Emit broadcasts a signal from path under interfaceName.member.
func (c *Conn) Emit(path dbus.ObjectPath, interfaceName, member string, args ...any) error {
	full := interfaceName + "." + member
	if err := c.raw.Emit(path, full, args...); err != nil {
		return errors.Wrapf(err, errors.KindTransport, "bus: emit %s failed", full)
	}
	return nil
}

// Close releases the shared connection; only the owning main() should call
// this, at shutdown.
func (c *Conn) Close() error {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	shared = nil
	return c.raw.Close()
}
