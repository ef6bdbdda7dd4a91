// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package routing

import (
	"net"
	"sync"

	"grimm.is/connd/internal/ipconfig"
)

// Interface carries the link identity an Integrator needs to install
// routes: the name (for resolver bookkeeping), the netlink link index
// (for route CRUD) and the interface's own subnet (to skip host routes
// for in-subnet nameservers).
type Interface struct {
	Name      string
	LinkIndex int
	Subnet    *net.IPNet
}

type installed struct {
	Interface
	gateway     net.IP
	nameservers []net.IP
	v6          bool
}

// Integrator is component H: it reacts to a service's ready/online,
// disconnect/failure and default-service-changed events by installing or
// withdrawing resolver entries, host routes and the default route, and
// drives the rp_filter connection counter.
type Integrator struct {
	resolver *Resolver
	counter  *connectionCounter

	mu      sync.Mutex
	current map[string]installed // by interface name
	dflt    string               // interface name currently holding the default route
}

// NewIntegrator creates an Integrator writing through resolver.
func NewIntegrator(resolver *Resolver) *Integrator {
	return &Integrator{
		resolver: resolver,
		counter:  newConnectionCounter(),
		current:  make(map[string]installed),
	}
}

// preferNameservers implements spec.md §4.H's source precedence: configured
// nameservers first, then ones discovered via DHCP/RA, then nothing
// ("auto" with no discovery yet). configured is the user's IPv4.DNS/
// IPv6.DNS override (may be empty); discovered is whatever the ipconfig
// Address carried back from the provider.
func preferNameservers(configured, discovered []net.IP) []net.IP {
	if len(configured) > 0 {
		return configured
	}
	return discovered
}

// Ready installs resolver entries, off-subnet host routes and (if no
// default is currently elected) the default route for iface, spec.md
// §4.H "On ready/online". configuredNameservers may be nil.
func (in *Integrator) Ready(iface Interface, addr ipconfig.Address, v6 bool, configuredNameservers []net.IP) error {
	nameservers := preferNameservers(configuredNameservers, addr.Nameservers)

	if err := in.resolver.Install(iface.Name, nameservers, addr.Domains); err != nil {
		return err
	}
	if err := installNameserverRoutes(iface.LinkIndex, iface.Subnet, addr.Gateway, nameservers); err != nil {
		return err
	}

	in.mu.Lock()
	defer in.mu.Unlock()
	in.current[iface.Name] = installed{Interface: iface, gateway: addr.Gateway, nameservers: nameservers, v6: v6}
	in.counter.Connected(iface.Name)

	if in.dflt == "" {
		in.dflt = iface.Name
		return switchDefaultRoute(v6, 0, iface.LinkIndex, addr.Gateway)
	}
	return nil
}

// Disconnect withdraws everything Ready installed for iface, spec.md §4.H
// "On disconnect/failure: remove all of the above for that interface",
// and re-elects the default route from newDefault (the manager's next
// choice per the service collection's ranking) if iface held it.
func (in *Integrator) Disconnect(ifaceName string, newDefault *Interface, newGateway net.IP) error {
	in.mu.Lock()
	entry, ok := in.current[ifaceName]
	if !ok {
		in.mu.Unlock()
		return nil
	}
	delete(in.current, ifaceName)
	in.counter.Disconnected(ifaceName)
	wasDefault := in.dflt == ifaceName
	if wasDefault {
		in.dflt = ""
	}
	in.mu.Unlock()

	withdrawNameserverRoutes(entry.LinkIndex, entry.nameservers)
	if err := in.resolver.Withdraw(ifaceName); err != nil {
		return err
	}

	if !wasDefault {
		return nil
	}
	if newDefault == nil {
		return switchDefaultRoute(entry.v6, entry.LinkIndex, 0, nil)
	}
	in.mu.Lock()
	in.dflt = newDefault.Name
	in.mu.Unlock()
	return switchDefaultRoute(entry.v6, entry.LinkIndex, newDefault.LinkIndex, newGateway)
}

// ConnectedCount reports the connectionCounter's current value, exposed
// for tests and for GetProperties-style introspection.
func (in *Integrator) ConnectedCount() int { return in.counter.Count() }

// DefaultInterface reports the name of the interface currently holding
// the default route, or "" if none.
func (in *Integrator) DefaultInterface() string {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.dflt
}
