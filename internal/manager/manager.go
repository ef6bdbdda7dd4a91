// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package manager implements component M, spec.md §4.M: the bus-facing
// facade that aggregates the service collection, agent registry, tethering
// controller and default-route integrator behind the single root object
// every external caller talks to.
package manager

import (
	"sync"

	"grimm.is/connd/internal/agent"
	"grimm.is/connd/internal/routing"
	"grimm.is/connd/internal/service"
	"grimm.is/connd/internal/tethering"
	"grimm.is/connd/internal/tunnel6to4"
	"grimm.is/connd/internal/vpn"
)

// Manager is the root facade object, exported on the bus under
// brand.BusName()'s root path.
type Manager struct {
	mu sync.RWMutex

	services   *service.Collection
	agents     *agent.Registry
	counters   *CounterRegistry
	vpns       *vpn.Registry
	tether     *tethering.Controller
	integrator *routing.Integrator
	tunnel     *tunnel6to4.Controller

	offlineMode bool
	sessionMode bool

	availableTechnologies map[service.Type]bool
	enabledTechnologies   map[service.Type]bool
	debugTags             map[string]bool
	scanners              map[service.Type]Scanner

	sessions map[string]*Session
}

// New wires the facade over already-constructed collaborators; Manager
// owns none of their lifetimes beyond the references it holds.
func New(services *service.Collection, agents *agent.Registry, tether *tethering.Controller, integrator *routing.Integrator) *Manager {
	return &Manager{
		services:              services,
		agents:                agents,
		counters:              NewCounterRegistry(),
		vpns:                  vpn.NewRegistry(),
		tether:                tether,
		integrator:            integrator,
		availableTechnologies: make(map[service.Type]bool),
		enabledTechnologies:   make(map[service.Type]bool),
		debugTags:             make(map[string]bool),
		sessions:              make(map[string]*Session),
	}
}

// Properties is the aggregated object spec.md §4.M's GetProperties returns.
type Properties struct {
	State                 string
	OfflineMode           bool
	SessionMode           bool
	AvailableTechnologies []string
	EnabledTechnologies   []string
	DefaultTechnology     string
	AvailableDebugTags    []string
	EnabledDebugTags      []string
}

// GetProperties aggregates overall daemon state the way spec.md §4.M
// describes: services, technologies, overall state, offline/session mode,
// available/enabled technologies, default technology, debug tags.
func (m *Manager) GetProperties() Properties {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p := Properties{
		State:       m.overallStateLocked(),
		OfflineMode: m.offlineMode,
		SessionMode: m.sessionMode,
	}
	for t, ok := range m.availableTechnologies {
		if ok {
			p.AvailableTechnologies = append(p.AvailableTechnologies, t.String())
		}
	}
	for t, ok := range m.enabledTechnologies {
		if ok {
			p.EnabledTechnologies = append(p.EnabledTechnologies, t.String())
		}
	}
	for tag, ok := range m.debugTags {
		p.AvailableDebugTags = append(p.AvailableDebugTags, tag)
		if ok {
			p.EnabledDebugTags = append(p.EnabledDebugTags, tag)
		}
	}
	if def, ok := m.services.Default(); ok {
		p.DefaultTechnology = def.Type.String()
	}
	return p
}

// overallStateLocked derives the daemon-wide state from the default
// service: "online" if it is online, "ready" if it is ready, "idle"
// otherwise. With no default service it is "offline" in offline mode and
// "idle" out of it.
func (m *Manager) overallStateLocked() string {
	def, ok := m.services.Default()
	if !ok {
		if m.offlineMode {
			return "offline"
		}
		return "idle"
	}
	switch def.State() {
	case service.StateOnline:
		return "online"
	case service.StateReady:
		return "ready"
	default:
		return "idle"
	}
}

// SetOfflineMode implements the OfflineMode half of spec.md §4.M's
// SetProperty; enabling it disconnects every service. Beyond that the flag
// only changes the reported State; service.AutoConnect does not read it.
func (m *Manager) SetOfflineMode(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offlineMode = on
	if on {
		for _, s := range m.services.Services() {
			s.Disconnect()
		}
	}
}

// OfflineMode reports the current offline-mode flag.
func (m *Manager) OfflineMode() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.offlineMode
}

// SetAvailableTechnologies records which technologies exist, called once at
// startup per discovered interface family.
func (m *Manager) SetAvailableTechnologies(types ...service.Type) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range types {
		m.availableTechnologies[t] = true
	}
}

// GetState reports just the overall daemon state string GetProperties
// also carries under its State field, mirroring manager.c's standalone
// GetState method (kept separate from GetProperties there since it
// predates the combined properties call).
func (m *Manager) GetState() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.overallStateLocked()
}

// SetTunnelController wires the 6to4 tunnel controller AddService's
// ready-path hook drives whenever a service's IPv4 goes ready while its
// IPv6 is configured for auto but hasn't connected, spec.md §4.I. A nil
// controller (the default) leaves that edge a no-op.
func (m *Manager) SetTunnelController(c *tunnel6to4.Controller) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tunnel = c
}

// SetDebugTags records the set of debug tags the daemon recognizes,
// independent of which are currently enabled.
func (m *Manager) SetDebugTags(tags ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tag := range tags {
		if _, exists := m.debugTags[tag]; !exists {
			m.debugTags[tag] = false
		}
	}
}
