// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package manager

import (
	"context"

	"grimm.is/connd/internal/errors"
	"grimm.is/connd/internal/service"
)

// ServiceInfo is the structured per-service record spec.md §4.M's
// GetServices returns.
type ServiceInfo struct {
	Identifier  string
	Name        string
	Type        string
	State       string
	Favorite    bool
	AutoConnect bool
	Roaming     bool
	Strength    uint8
}

// GetServices returns every known service in the collection's current
// total order (spec.md §4.G), front-to-back.
func (m *Manager) GetServices() []ServiceInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	svcs := m.services.Services()
	out := make([]ServiceInfo, 0, len(svcs))
	for _, s := range svcs {
		out = append(out, ServiceInfo{
			Identifier:  s.Identifier,
			Name:        s.Name,
			Type:        s.Type.String(),
			State:       s.State().String(),
			Favorite:    s.Favorite,
			AutoConnect: s.AutoConnect,
			Roaming:     s.Roaming,
			Strength:    s.Strength,
		})
	}
	return out
}

// LookupService resolves identifier to its Service, spec.md §4.M
// LookupService.
func (m *Manager) LookupService(identifier string) (*service.Service, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.services.Lookup(identifier)
	if !ok {
		return nil, errors.Errorf(errors.KindNotFound, "manager: no such service %s", identifier)
	}
	return s, nil
}

// ConnectService performs a user-initiated connect on identifier, spec.md
// §4.M "ConnectService (equivalent to a user connect on a created-or-
// located service)". Session mode disables it (spec.md §4.M "Session mode
// disables direct user-initiated connects").
func (m *Manager) ConnectService(ctx context.Context, identifier string, reply func(error)) error {
	m.mu.RLock()
	sessionMode := m.sessionMode
	s, ok := m.services.Lookup(identifier)
	pa := agentPassphraseAdapter{registry: m.agents}
	m.mu.RUnlock()

	if sessionMode {
		return errors.Errorf(errors.KindPermission, "manager: session mode disables user-initiated connect")
	}
	if !ok {
		return errors.Errorf(errors.KindNotFound, "manager: no such service %s", identifier)
	}
	return service.UserConnect(s, pa, reply)
}

// DisconnectService disconnects identifier if present.
func (m *Manager) DisconnectService(identifier string) error {
	m.mu.RLock()
	s, ok := m.services.Lookup(identifier)
	m.mu.RUnlock()
	if !ok {
		return errors.Errorf(errors.KindNotFound, "manager: no such service %s", identifier)
	}
	s.Disconnect()
	return nil
}

// ConnectProvider connects a VPN-backed service, spec.md §4.M
// ConnectProvider: the provider supplies the tunnel, the service model
// supplies state/ordering exactly as it does for a physical network.
func (m *Manager) ConnectProvider(ctx context.Context, providerIdentifier string) error {
	m.mu.RLock()
	p, ok := m.vpns.Lookup(providerIdentifier)
	m.mu.RUnlock()
	if !ok {
		return errors.Errorf(errors.KindNotFound, "manager: no such vpn provider %s", providerIdentifier)
	}
	return p.Connect(ctx)
}

// RemoveProvider unregisters a VPN provider by identifier, the daemon
// side of a plugin tearing itself down (manager.c's RemoveProvider:
// "the object path no longer identifies a live provider").
func (m *Manager) RemoveProvider(identifier string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.vpns.Lookup(identifier); !ok {
		return errors.Errorf(errors.KindNotFound, "manager: no such vpn provider %s", identifier)
	}
	m.vpns.Unregister(identifier)
	return nil
}
