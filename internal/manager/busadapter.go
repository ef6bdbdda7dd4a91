// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package manager

import (
	"context"

	"github.com/godbus/dbus/v5"

	"grimm.is/connd/internal/bus"
	"grimm.is/connd/internal/errors"
)

// BusAdapter exports a Manager's operations on the shared bus connection
// under brand.BusName(), translating godbus's (args..., *dbus.Error)
// method convention into plain Go calls against Manager. Manager itself
// stays bus-agnostic so it can be constructed and exercised in tests
// without a running bus daemon.
type BusAdapter struct {
	mgr  *Manager
	conn *bus.Conn
}

// NewBusAdapter wraps mgr for export at path under the manager interface.
func NewBusAdapter(mgr *Manager, conn *bus.Conn) *BusAdapter {
	return &BusAdapter{mgr: mgr, conn: conn}
}

func asDBusError(err error) *dbus.Error {
	if err == nil {
		return nil
	}
	return dbus.MakeFailedError(err)
}

// GetProperties implements the Manager interface's GetProperties method,
// spec.md §4.M, returning the property bag as a variant map the way
// ConnMan's own Manager.GetProperties does.
func (a *BusAdapter) GetProperties() (map[string]dbus.Variant, *dbus.Error) {
	p := a.mgr.GetProperties()
	out := map[string]dbus.Variant{
		"State":                 dbus.MakeVariant(p.State),
		"OfflineMode":           dbus.MakeVariant(p.OfflineMode),
		"SessionMode":           dbus.MakeVariant(p.SessionMode),
		"AvailableTechnologies": dbus.MakeVariant(p.AvailableTechnologies),
		"EnabledTechnologies":   dbus.MakeVariant(p.EnabledTechnologies),
		"DefaultTechnology":     dbus.MakeVariant(p.DefaultTechnology),
		"AvailableDebugTags":    dbus.MakeVariant(p.AvailableDebugTags),
		"EnabledDebugTags":      dbus.MakeVariant(p.EnabledDebugTags),
	}
	return out, nil
}

// SetProperty implements the OfflineMode/SessionMode half of spec.md
// §4.M's SetProperty; other property names are rejected.
func (a *BusAdapter) SetProperty(name string, value dbus.Variant) *dbus.Error {
	switch name {
	case "OfflineMode":
		on, ok := value.Value().(bool)
		if !ok {
			return dbus.MakeFailedError(errors.Errorf(errors.KindValidation, "manager: %s must be a bool", name))
		}
		a.mgr.SetOfflineMode(on)
		return nil
	case "SessionMode":
		on, ok := value.Value().(bool)
		if !ok {
			return dbus.MakeFailedError(errors.Errorf(errors.KindValidation, "manager: %s must be a bool", name))
		}
		a.mgr.SetSessionMode(on)
		return nil
	default:
		return dbus.MakeFailedError(errors.Errorf(errors.KindNotFound, "manager: unknown property %s", name))
	}
}

// GetServices implements spec.md §4.M GetServices, returning each
// service's identifier and flattened property bag.
func (a *BusAdapter) GetServices() ([]ServiceInfo, *dbus.Error) {
	return a.mgr.GetServices(), nil
}

// ConnectService implements spec.md §4.M ConnectService.
func (a *BusAdapter) ConnectService(identifier string) *dbus.Error {
	return asDBusError(a.mgr.ConnectService(context.Background(), identifier, nil))
}

// DisconnectService implements spec.md §4.M DisconnectService.
func (a *BusAdapter) DisconnectService(identifier string) *dbus.Error {
	return asDBusError(a.mgr.DisconnectService(identifier))
}

// ConnectProvider implements spec.md §4.M ConnectProvider.
func (a *BusAdapter) ConnectProvider(providerIdentifier string) *dbus.Error {
	return asDBusError(a.mgr.ConnectProvider(context.Background(), providerIdentifier))
}

// GetState implements the standalone GetState method ConnMan's manager.c
// exposes alongside GetProperties.
func (a *BusAdapter) GetState() (string, *dbus.Error) {
	return a.mgr.GetState(), nil
}

// RemoveProvider implements manager.c's RemoveProvider: dropping a VPN
// provider object path that no longer identifies a live provider.
func (a *BusAdapter) RemoveProvider(providerIdentifier string) *dbus.Error {
	return asDBusError(a.mgr.RemoveProvider(providerIdentifier))
}

// RegisterAgent implements spec.md §4.M RegisterAgent, using the caller's
// unique bus name (sender) and the conn this adapter was built with.
func (a *BusAdapter) RegisterAgent(sender dbus.Sender, path dbus.ObjectPath) *dbus.Error {
	return asDBusError(a.mgr.RegisterAgent(a.conn.Raw(), string(sender), path))
}

// UnregisterAgent implements spec.md §4.M UnregisterAgent.
func (a *BusAdapter) UnregisterAgent(sender dbus.Sender) *dbus.Error {
	return asDBusError(a.mgr.UnregisterAgent(string(sender)))
}

// CreateSession implements spec.md §4.M CreateSession.
func (a *BusAdapter) CreateSession(sender dbus.Sender) (string, *dbus.Error) {
	s := a.mgr.CreateSession(string(sender))
	return s.id, nil
}

// DestroySession implements spec.md §4.M DestroySession.
func (a *BusAdapter) DestroySession(id string) *dbus.Error {
	return asDBusError(a.mgr.DestroySession(id))
}

// RegisterCounter implements spec.md §4.M RegisterCounter.
func (a *BusAdapter) RegisterCounter(sender dbus.Sender, path dbus.ObjectPath) *dbus.Error {
	return asDBusError(a.mgr.RegisterCounter(a.conn.Raw(), string(sender), path))
}

// UnregisterCounter implements spec.md §4.M UnregisterCounter.
func (a *BusAdapter) UnregisterCounter(sender dbus.Sender) *dbus.Error {
	return asDBusError(a.mgr.UnregisterCounter(string(sender)))
}
