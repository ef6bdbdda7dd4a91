// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package ipconfig implements component F, spec.md §4.F: a per-family (v4
// or v6) IP configuration state machine owned by a service. It has no
// threads of its own; DHCP/autoconf runs on a background goroutine owned by
// the configured method and rejoins the eventloop via Post.
package ipconfig

import (
	"net"

	"grimm.is/connd/internal/errors"
)

// Family distinguishes the IPv4 and IPv6 halves of a service's
// configuration; each has its own Config and state machine.
type Family int

const (
	FamilyV4 Family = 4
	FamilyV6 Family = 6
)

// Method selects how addresses are obtained, spec.md §4.F's method
// attribute.
type Method int

const (
	MethodUnknown Method = iota
	MethodOff
	MethodFixed
	MethodManual
	MethodDHCP // DHCP for v4, SLAAC autoconf for v6
)

func (m Method) String() string {
	switch m {
	case MethodOff:
		return "off"
	case MethodFixed:
		return "fixed"
	case MethodManual:
		return "manual"
	case MethodDHCP:
		return "dhcp"
	default:
		return "unknown"
	}
}

// State is the config's own lifecycle state, spec.md §4.F's diagram:
// OFF -> (method) -> {DHCP/AUTO: CONFIGURATION -> READY -> ONLINE;
// MANUAL/FIXED: READY -> ONLINE}; disable from any state returns to IDLE.
type State int

const (
	StateIdle State = iota
	StateConfiguration
	StateReady
	StateOnline
)

func (s State) String() string {
	switch s {
	case StateConfiguration:
		return "configuration"
	case StateReady:
		return "ready"
	case StateOnline:
		return "online"
	default:
		return "idle"
	}
}

// Observer receives the callbacks spec.md §4.F lists: up, down, lower-up,
// lower-down, ip-bound, ip-released. The owning service implements this to
// drive its own combined-state machine and to tell internal/routing when to
// (re)install or withdraw routes and nameservers.
type Observer interface {
	Up(f Family)
	Down(f Family)
	LowerUp(f Family)
	LowerDown(f Family)
	IPBound(f Family, addr Address)
	IPReleased(f Family)
}

// Address is the acquired configuration, however it was obtained.
type Address struct {
	Local     net.IP
	PrefixLen int
	Gateway   net.IP
	Broadcast net.IP // v4 only
	// Nameservers/Domains/ProxyAutoConfigURL are carried alongside the
	// address since DHCP and RA/DHCPv6 option sets deliver them in the same
	// exchange; internal/routing reads them straight off this struct.
	Nameservers        []net.IP
	Domains            []string
	ProxyAutoConfigURL string
}

// Provider is the external collaborator a Config invokes on entering
// CONFIGURATION: a DHCP client for MethodDHCP, nothing for MethodManual/
// MethodFixed (those apply immediately).
type Provider interface {
	// Start begins acquisition on ifaceName, calling bound with the result
	// once available, or failed with an error if acquisition could not
	// complete. Both callbacks must be invoked via eventloop.Post by the
	// caller's wiring, not directly from Provider's own goroutine.
	Start(ifaceName string, bound func(Address), failed func(error)) error
	Stop()
}

// Config is one family's state machine for one service's interface.
type Config struct {
	Family    Family
	Interface string
	Method    Method

	// Static carries the address to apply immediately for MethodManual/
	// MethodFixed; ignored otherwise.
	Static Address

	state    State
	observer Observer
	provider Provider
	current  Address
}

// New creates a Config in StateIdle. provider is nil for MethodManual/
// MethodFixed.
func New(family Family, ifaceName string, method Method, observer Observer, provider Provider) *Config {
	return &Config{
		Family:    family,
		Interface: ifaceName,
		Method:    method,
		observer:  observer,
		provider:  provider,
	}
}

// State reports the config's current lifecycle state.
func (c *Config) State() State { return c.state }

// Current returns the last address bound, zero-value if none.
func (c *Config) Current() Address { return c.current }

// Enable transitions OFF -> (method). For MethodOff it stays idle. For
// MethodManual/MethodFixed it applies Static immediately and enters READY.
// For MethodDHCP it enters CONFIGURATION and starts the provider.
func (c *Config) Enable() error {
	switch c.Method {
	case MethodOff, MethodUnknown:
		return nil
	case MethodManual, MethodFixed:
		c.state = StateReady
		c.current = c.Static
		c.observer.IPBound(c.Family, c.Static)
		return nil
	case MethodDHCP:
		if c.provider == nil {
			return errors.Errorf(errors.KindInvalidState, "ipconfig: dhcp method with no provider")
		}
		c.state = StateConfiguration
		return c.provider.Start(c.Interface, c.onBound, c.onFailed)
	default:
		return errors.Errorf(errors.KindInvalidState, "ipconfig: unknown method")
	}
}

// Disable tears the config down from any state back to IDLE, withdrawing
// the bound address.
func (c *Config) Disable() {
	if c.state == StateIdle {
		return
	}
	if c.provider != nil {
		c.provider.Stop()
	}
	had := c.state != StateIdle
	c.state = StateIdle
	c.current = Address{}
	if had {
		c.observer.IPReleased(c.Family)
	}
}

// LowerUp/LowerDown forward carrier transitions from internal/netlinkutil's
// link watcher to the observer, unconditionally of the config's own state —
// the containing service's combined-state machine decides what a lower-down
// mid-configuration means (association -> disconnect, per spec.md §4.G).
func (c *Config) LowerUp()   { c.observer.LowerUp(c.Family) }
func (c *Config) LowerDown() { c.observer.LowerDown(c.Family) }

func (c *Config) onBound(addr Address) {
	c.current = addr
	c.state = StateReady
	c.observer.IPBound(c.Family, addr)
}

func (c *Config) onFailed(err error) {
	c.state = StateIdle
	c.current = Address{}
	c.observer.Down(c.Family)
}

// MarkOnline records that the WISPr probe (internal/captiveportal) cleared
// this family for direct internet access, the ready -> online transition
// of spec.md §4.G driven through this config's own state.
func (c *Config) MarkOnline() {
	if c.state == StateReady {
		c.state = StateOnline
		c.observer.Up(c.Family)
	}
}
