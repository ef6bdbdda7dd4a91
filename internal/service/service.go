// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package service implements component G, spec.md §4.G: the Service model
// and its ranking/auto-connect engine. A Service wraps one candidate
// network (wifi AP, cellular bearer, VPN provider, ...), owns an ipconfig
// Config per family, and drives the externally visible state machine
// {idle, association, configuration, ready, online, disconnect, failure}.
package service

import (
	"time"

	"grimm.is/connd/internal/errors"
	"grimm.is/connd/internal/eventloop"
	"grimm.is/connd/internal/ipconfig"
)

// Type is the technology a Service represents, used by the per-type
// preference tier of the total order (spec.md §4.G point 5) and reported
// as DefaultTechnology by the manager facade.
type Type int

const (
	TypeUnknown Type = iota
	TypeEthernet
	TypeWifi
	TypeBluetooth
	TypeCellular
	TypeWimax
	TypeVPN
)

func (t Type) String() string {
	switch t {
	case TypeEthernet:
		return "ethernet"
	case TypeWifi:
		return "wifi"
	case TypeBluetooth:
		return "bluetooth"
	case TypeCellular:
		return "cellular"
	case TypeWimax:
		return "wimax"
	case TypeVPN:
		return "vpn"
	default:
		return "unknown"
	}
}

// State is the per-service externally visible state, spec.md §4.G.
type State int

const (
	StateIdle State = iota
	StateAssociation
	StateConfiguration
	StateReady
	StateOnline
	StateDisconnect
	StateFailure
)

func (s State) String() string {
	switch s {
	case StateAssociation:
		return "association"
	case StateConfiguration:
		return "configuration"
	case StateReady:
		return "ready"
	case StateOnline:
		return "online"
	case StateDisconnect:
		return "disconnect"
	case StateFailure:
		return "failure"
	default:
		return "idle"
	}
}

// connected reports whether s counts toward the collection's "connected
// before not-connected" ranking tier and toward DefaultService election.
func (s State) connected() bool { return s == StateReady || s == StateOnline }

// connecting reports whether s is mid-handshake, spec.md §4.G's "at most
// one service per type connecting at a time" invariant and the ranking
// tier above it.
func (s State) connecting() bool { return s == StateAssociation || s == StateConfiguration }

// combine implements spec.md §4.G's combined-state table: a==b returns a;
// otherwise the non-unknown operand; if both non-idle and distinct, the
// first match in the listed priority order, else failure. Unlike
// ipconfig.State, service.State has no separate "unknown"; idle plays
// that role here since a family that is OFF contributes idle, not
// failure (spec.md §3 point 6).
func combine(a, b State) State {
	if a == b {
		return a
	}
	if a == StateIdle {
		return b
	}
	if b == StateIdle {
		return a
	}
	priority := []State{StateOnline, StateReady, StateConfiguration, StateAssociation, StateDisconnect}
	for _, s := range priority {
		if a == s || b == s {
			return s
		}
	}
	return StateFailure
}

// DefaultConnectTimeout is the duration after which a connect attempt that
// has not reached ready fails, spec.md §4.G.
const DefaultConnectTimeout = 120 * time.Second

// PassphraseAgent is the subset of internal/agent's Agent used to prompt
// for a missing passphrase during a user connect.
type PassphraseAgent interface {
	RequestPassphrase(identifier string) (string, error)
}

// Driver is the external collaborator that actually brings the underlying
// network up or down: associates with an AP, dials a modem, negotiates a
// VPN tunnel. The service's own state machine only tracks lifecycle; the
// driver supplies the link-up signal that advances association ->
// configuration.
type Driver interface {
	// Connect begins association. linkUp is called once the underlying
	// link/bearer is established (wifi association complete, modem
	// attached, tunnel negotiated); failed is called if it cannot be.
	Connect(linkUp func(), failed func(error)) error
	Disconnect()
	// RequiresPassphrase reports whether Connect needs a credential that
	// is not currently set.
	RequiresPassphrase() bool
	SetPassphrase(string)
}

// Service is one candidate network and its lifecycle.
type Service struct {
	Identifier string
	Name       string
	Type       Type

	Favorite    bool
	AutoConnect bool
	Roaming     bool
	Ignored     bool
	// Order is the explicit order attribute; higher ranks first (spec.md
	// §4.G total order point 3, "VPN favorites dominate").
	Order int
	// Strength is signal quality 0-100, descending in the total order.
	Strength uint8

	Passphrase string

	state State

	driver Driver
	loop   *eventloop.Loop
	ipv4   *ipconfig.Config
	ipv6   *ipconfig.Config

	userConnect  bool
	pendingReply func(error)
	timeoutArmed bool

	position int // maintained by Collection; read-only outside it

	onStateChanged func(*Service)
}

// New creates a Service in StateIdle. ipv4/ipv6 may be nil if the family is
// not applicable to this technology.
func New(identifier, name string, typ Type, loop *eventloop.Loop, driver Driver, ipv4, ipv6 *ipconfig.Config) *Service {
	return &Service{
		Identifier: identifier,
		Name:       name,
		Type:       typ,
		loop:       loop,
		driver:     driver,
		ipv4:       ipv4,
		ipv6:       ipv6,
	}
}

// State reports the service's combined externally visible state.
func (s *Service) State() State { return s.state }

// familyState folds one family's ipconfig state into this service's
// state vocabulary: an off/idle family contributes idle.
func familyState(c *ipconfig.Config) State {
	if c == nil {
		return StateIdle
	}
	switch c.State() {
	case ipconfig.StateReady:
		return StateReady
	case ipconfig.StateOnline:
		return StateOnline
	case ipconfig.StateConfiguration:
		return StateConfiguration
	default:
		return StateIdle
	}
}

// recomputeState folds the two family states together with the
// association/disconnect/failure bits tracked directly on s, and notifies
// the collection if the result changed.
func (s *Service) recomputeState() {
	// association/disconnect/failure are not visible on ipconfig.Config,
	// they only ever show up via the association path below; once a
	// family reaches configuration or beyond, fold those in.
	next := combine(familyState(s.ipv4), familyState(s.ipv6))
	if s.state == StateAssociation || s.state == StateDisconnect || s.state == StateFailure {
		// Those states only change on explicit transition calls below;
		// don't let a stale idle family state stomp them.
		if next == StateIdle {
			return
		}
	}
	if next != s.state {
		s.state = next
		s.notify()
	}
}

func (s *Service) notify() {
	if s.onStateChanged != nil {
		s.onStateChanged(s)
	}
}

// OnStateChanged registers fn to be called every time s.State() changes,
// the hook a caller uses to drive internal/routing's Integrator (or any
// other per-transition side effect) off a service's real lifecycle
// instead of polling. At most one hook is held; a later call replaces
// the previous one.
func (s *Service) OnStateChanged(fn func(*Service)) { s.onStateChanged = fn }

// IPv4Config returns the service's IPv4 ipconfig.Config, nil if the
// technology has none.
func (s *Service) IPv4Config() *ipconfig.Config { return s.ipv4 }

// IPv6Config returns the service's IPv6 ipconfig.Config, nil if the
// technology has none.
func (s *Service) IPv6Config() *ipconfig.Config { return s.ipv6 }

// Loop returns the event loop s was constructed with, the rendezvous point
// any goroutine driving work on s's behalf (a captive-portal probe, a
// tunnel probe) must Post back through rather than touching s directly.
func (s *Service) Loop() *eventloop.Loop { return s.loop }

// Connect initiates idle -> association. userconnect distinguishes an
// explicit user request (spec.md §4.G "User connect") from an autoconnect
// walk; reply, if non-nil, is called exactly once when the attempt
// resolves (ready or failure).
func (s *Service) Connect(userconnect bool, reply func(error)) error {
	if s.state != StateIdle && s.state != StateFailure {
		return errors.Errorf(errors.KindInProgress, "service: %s already connecting or connected", s.Identifier)
	}
	if s.driver.RequiresPassphrase() && s.Passphrase == "" {
		return errors.Errorf(errors.KindNoKey, "service: %s requires a passphrase", s.Identifier)
	}

	s.userConnect = userconnect
	s.pendingReply = reply
	s.state = StateAssociation
	s.armTimeout()
	s.notify()

	return s.driver.Connect(s.onLinkUp, s.onConnectFailed)
}

// armTimeout schedules the 120-second connect timeout, spec.md §4.G.
func (s *Service) armTimeout() {
	s.timeoutArmed = true
	s.loop.AddTimer(DefaultConnectTimeout, func() eventloop.Result {
		if !s.timeoutArmed || !s.state.connecting() {
			return eventloop.Remove
		}
		s.fail(errors.Errorf(errors.KindTimeout, "service: %s connect timed out", s.Identifier))
		return eventloop.Remove
	})
}

func (s *Service) onLinkUp() {
	if s.state != StateAssociation {
		return
	}
	s.state = StateConfiguration
	s.notify()
	if s.ipv4 != nil {
		_ = s.ipv4.Enable()
	}
	if s.ipv6 != nil {
		_ = s.ipv6.Enable()
	}
}

func (s *Service) onConnectFailed(err error) {
	s.fail(err)
}

// fail drives any connecting/connected state to failure, disarms the
// timeout, and resolves the pending reply.
func (s *Service) fail(err error) {
	s.timeoutArmed = false
	s.state = StateFailure
	s.teardownFamilies()
	s.resolvePending(err)
	s.notify()
}

// IPBound is wired as both families' ipconfig Observer.IPBound; the first
// bound family transitions configuration -> ready.
func (s *Service) IPBound(ipconfig.Family, ipconfig.Address) {
	if s.state == StateConfiguration {
		s.state = StateReady
		s.timeoutArmed = false
		s.resolvePending(nil)
		s.notify()
	}
}

// IPReleased is wired as both families' Observer.IPReleased.
func (s *Service) IPReleased(ipconfig.Family) {
	s.recomputeState()
}

// MarkOnline promotes a ready service to online once the captive-portal
// probe clears a family, spec.md §4.G's ready -> online transition.
func (s *Service) MarkOnline(f ipconfig.Family) {
	c := s.ipv4
	if f == ipconfig.FamilyV6 {
		c = s.ipv6
	}
	if c == nil {
		return
	}
	c.MarkOnline()
	if s.state == StateReady {
		s.state = StateOnline
		s.notify()
	}
}

// Disconnect drives any connected/connecting service to disconnect then
// idle, spec.md §4.G.
func (s *Service) Disconnect() {
	if !s.state.connected() && !s.state.connecting() {
		return
	}
	s.timeoutArmed = false
	s.driver.Disconnect()
	s.teardownFamilies()
	s.state = StateDisconnect
	s.notify()
	s.state = StateIdle
	s.resolvePending(nil)
	s.notify()
}

// OnLinkDown is wired to the link watcher; loss of link drives any
// connected/connecting service to disconnect, spec.md §4.G.
func (s *Service) OnLinkDown() {
	if s.state.connected() || s.state.connecting() {
		s.Disconnect()
	}
}

// ClearError resets a failed service to idle, spec.md §4.G.
func (s *Service) ClearError() {
	if s.state == StateFailure {
		s.state = StateIdle
		s.notify()
	}
}

func (s *Service) teardownFamilies() {
	if s.ipv4 != nil {
		s.ipv4.Disable()
	}
	if s.ipv6 != nil {
		s.ipv6.Disable()
	}
}

func (s *Service) resolvePending(err error) {
	if s.pendingReply != nil {
		reply := s.pendingReply
		s.pendingReply = nil
		reply(err)
	}
}
