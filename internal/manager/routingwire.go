// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package manager

import (
	"grimm.is/connd/internal/ipconfig"
	"grimm.is/connd/internal/logging"
	"grimm.is/connd/internal/routing"
	"grimm.is/connd/internal/service"
)

// routingBinding tracks, per service, which families currently hold an
// installed route/resolver entry so a repeated State() transition (e.g.
// online -> online after a MarkOnline on the other family) doesn't
// re-install or double-withdraw, plus whichever portal probe is currently
// in flight for that family so it can be cancelled if the family drops.
type routingBinding struct {
	iface              routing.Interface
	v4, v6             bool // installed with the integrator right now
	v4Portal, v6Portal *portalProbe
}

// familyEdge reports which way, if any, a family's connectedness just
// changed.
type familyEdge int

const (
	edgeNone familyEdge = iota
	edgeUp
	edgeDown
)

// AddService registers s with the collection and, if integrator is
// configured, wires s.OnStateChanged so the service's own ready/online
// and disconnect/failure transitions drive routing.Integrator.Ready/
// Disconnect the way spec.md §4.H describes, instead of requiring a
// separate poller. iface carries the link identity (name, netlink index,
// subnet) the interface-bringup path already resolved before the
// service could reach configuration.
func (m *Manager) AddService(s *service.Service, iface routing.Interface) {
	m.mu.Lock()
	m.services.Add(s)
	integrator := m.integrator
	m.mu.Unlock()

	if integrator == nil {
		return
	}

	binding := &routingBinding{iface: iface}
	log := logging.Default().WithComponent("manager")

	s.OnStateChanged(func(s *service.Service) {
		m.reconcileRouting(integrator, binding, s, log)
	})
}

// reconcileRouting installs or withdraws each family against integrator
// based on whether it just became connected (ready/online) or just
// stopped being connected, keyed off binding's own record of what is
// currently installed rather than s.State()'s combined value, since the
// two families can change independently. Newly-ready edges also drive the
// captive-portal probe (spec.md §4.K) and the 6to4 tunnel (§4.I) off the
// same transition, rather than requiring a separate poller for either.
func (m *Manager) reconcileRouting(integrator *routing.Integrator, binding *routingBinding, s *service.Service, log *logging.Logger) {
	v4 := s.IPv4Config()
	switch reconcileFamily(integrator, binding, v4, false, &binding.v4, log) {
	case edgeUp:
		binding.v4Portal = m.startCaptivePortal(s, binding.iface.Name, ipconfig.FamilyV4)
		m.maybeEnable6to4(s, v4.Current().Local)
	case edgeDown:
		cancelPortal(&binding.v4Portal)
	}

	switch reconcileFamily(integrator, binding, s.IPv6Config(), true, &binding.v6, log) {
	case edgeUp:
		binding.v6Portal = m.startCaptivePortal(s, binding.iface.Name, ipconfig.FamilyV6)
	case edgeDown:
		cancelPortal(&binding.v6Portal)
	}
}

func cancelPortal(e **portalProbe) {
	if *e != nil {
		(*e).Cancel()
		*e = nil
	}
}

// reconcileFamily installs or withdraws cfg's family against integrator
// and reports which way, if any, connectedness just changed. The caller
// fires one-shot side effects (portal probe, 6to4, portal cancellation)
// only on that edge.
func reconcileFamily(integrator *routing.Integrator, binding *routingBinding, cfg *ipconfig.Config, v6 bool, installed *bool, log *logging.Logger) familyEdge {
	if cfg == nil {
		return edgeNone
	}
	connected := cfg.State() == ipconfig.StateReady || cfg.State() == ipconfig.StateOnline
	switch {
	case connected && !*installed:
		if err := integrator.Ready(binding.iface, cfg.Current(), v6, nil); err != nil {
			log.Error("route install failed", "error", err, "interface", binding.iface.Name)
			return edgeNone
		}
		*installed = true
		return edgeUp
	case !connected && *installed:
		if err := integrator.Disconnect(binding.iface.Name, nil, nil); err != nil {
			log.Error("route withdraw failed", "error", err, "interface", binding.iface.Name)
			return edgeNone
		}
		*installed = false
		return edgeDown
	}
	return edgeNone
}
