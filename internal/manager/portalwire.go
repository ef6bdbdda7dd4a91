// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package manager

import (
	"context"
	"net"

	"grimm.is/connd/internal/agent"
	"grimm.is/connd/internal/captiveportal"
	"grimm.is/connd/internal/errors"
	"grimm.is/connd/internal/ipconfig"
	"grimm.is/connd/internal/logging"
	"grimm.is/connd/internal/service"
)

// agentWISPrAdapter satisfies captiveportal.CredentialRequester over
// whichever external agent is currently registered, the same translation
// agentPassphraseAdapter does for service.PassphraseAgent.
type agentWISPrAdapter struct {
	registry *agent.Registry
}

// RequestWISPrCredentials asks the active agent for serviceIdentifier's
// portal login fields, failing with KindNoKey if no agent is registered.
func (a agentWISPrAdapter) RequestWISPrCredentials(ctx context.Context, serviceIdentifier string) (string, string, error) {
	active, ok := a.registry.Current()
	if !ok {
		return "", "", errors.Errorf(errors.KindNoKey, "manager: %s needs WISPr credentials but no agent is registered", serviceIdentifier)
	}
	resp, err := active.RequestInput(ctx, agent.Request{
		ServiceIdentifier: serviceIdentifier,
		Fields:            []string{"Username", "Password"},
	})
	if err != nil {
		return "", "", err
	}
	return resp.Values["Username"], resp.Values["Password"], nil
}

// portalProbe is reconcileRouting's handle on an in-flight captive-portal
// probe. Engine.Start runs on its own goroutine (it blocks on HTTP I/O),
// while Cancel is called from the loop goroutine when the family drops, so
// the two sides need their own synchronized cancellation rather than
// reaching into Engine's internal, single-goroutine-assuming cancel field.
type portalProbe struct {
	cancel context.CancelFunc
}

// Cancel aborts the probe, spec.md §5 "captive-portal probes are cancelled
// when the service leaves READY".
func (p *portalProbe) Cancel() { p.cancel() }

// startCaptivePortal launches a WISPr probe for s's family off the event
// loop, since Engine.Start blocks on HTTP I/O, and promotes s to online on
// success by rejoining the loop via Post, the same discipline
// internal/supplicant's Driver keeps around wpa_supplicant calls.
func (m *Manager) startCaptivePortal(s *service.Service, ifaceName string, family ipconfig.Family) *portalProbe {
	engine := &captiveportal.Engine{
		ServiceIdentifier: s.Identifier,
		Interface:         ifaceName,
		Family:            family,
		Agent:             agentWISPrAdapter{registry: m.agents},
	}
	ctx, cancel := context.WithCancel(context.Background())
	loop := s.Loop()
	log := logging.Default().WithComponent("manager")

	go func() {
		outcome := engine.Start(ctx)
		if outcome != captiveportal.OutcomeOnline && outcome != captiveportal.OutcomeLoginSucceeded {
			log.Warn("captive portal probe did not clear", "service", s.Identifier, "outcome", outcome.String())
			return
		}
		loop.Post(func() { s.MarkOnline(family) })
	}()
	return &portalProbe{cancel: cancel}
}

// maybeEnable6to4 brings the 6to4 tunnel up once, the first time a
// service's IPv4 goes ready while its IPv6 is configured for auto but
// hasn't itself connected, spec.md §4.I's IPv4-ready/IPv6-auto edge.
func (m *Manager) maybeEnable6to4(s *service.Service, localV4 net.IP) {
	if m.tunnel == nil || m.tunnel.Up() {
		return
	}
	v6 := s.IPv6Config()
	if v6 == nil || v6.Method != ipconfig.MethodDHCP {
		return
	}
	if st := v6.State(); st == ipconfig.StateReady || st == ipconfig.StateOnline {
		return
	}

	log := logging.Default().WithComponent("manager")
	if err := m.tunnel.Enable(localV4); err != nil {
		log.Error("6to4 tunnel enable failed", "error", err, "local_v4", localV4)
		return
	}
	go func() {
		if err := m.tunnel.Probe(context.Background()); err != nil {
			log.Error("6to4 reachability probe failed", "error", err)
		}
	}()
}
