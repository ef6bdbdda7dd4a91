// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package manager

import (
	"grimm.is/connd/internal/errors"
	"grimm.is/connd/internal/service"
)

// EnableTechnology marks a technology enabled, spec.md §4.M
// EnableTechnology. It connects and disconnects nothing; service.AutoConnect
// does not consult the enabled set.
func (m *Manager) EnableTechnology(t service.Type) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.availableTechnologies[t] {
		return errors.Errorf(errors.KindNotFound, "manager: technology %s not available", t)
	}
	m.enabledTechnologies[t] = true
	return nil
}

// DisableTechnology disconnects every service of type t and marks the
// technology disabled, spec.md §4.M DisableTechnology.
func (m *Manager) DisableTechnology(t service.Type) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.availableTechnologies[t] {
		return errors.Errorf(errors.KindNotFound, "manager: technology %s not available", t)
	}
	m.enabledTechnologies[t] = false
	for _, s := range m.services.Services() {
		if s.Type == t {
			s.Disconnect()
		}
	}
	return nil
}

// TechnologyEnabled reports whether t is currently enabled.
func (m *Manager) TechnologyEnabled(t service.Type) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.enabledTechnologies[t]
}

// Scanner is implemented by each technology driver capable of an
// on-demand scan (wifi, in practice); connd's manager facade only
// dispatches to it.
type Scanner interface {
	Scan() error
}

// RegisterScanner lets a technology driver offer itself for RequestScan.
func (m *Manager) RegisterScanner(t service.Type, s Scanner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.scanners == nil {
		m.scanners = make(map[service.Type]Scanner)
	}
	m.scanners[t] = s
}

// RequestScan implements spec.md §4.M RequestScan by dispatching to
// whichever technology driver registered itself as a Scanner.
func (m *Manager) RequestScan(t service.Type) error {
	m.mu.RLock()
	enabled := m.enabledTechnologies[t]
	scanner, ok := m.scanners[t]
	m.mu.RUnlock()
	if !enabled {
		return errors.Errorf(errors.KindInvalidState, "manager: technology %s not enabled", t)
	}
	if !ok {
		return errors.Errorf(errors.KindUnavailable, "manager: %s does not support scanning", t)
	}
	return scanner.Scan()
}
