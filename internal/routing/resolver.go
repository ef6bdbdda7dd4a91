// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package routing implements component H, spec.md §4.H: the default-route
// and nameserver integrator. It observes service state transitions and
// ip-bound callbacks and reacts by installing or withdrawing resolver
// entries, host routes to off-subnet nameservers, and the default route.
package routing

import (
	"bufio"
	"fmt"
	"net"
	"sort"
	"strings"
	"sync"

	"github.com/miekg/dns"

	"grimm.is/connd/internal/config"
	"grimm.is/connd/internal/errors"
)

// ResolvConfPath is the file the resolver writes its merged view to. A var
// rather than a const so tests can redirect it.
var ResolvConfPath = "/etc/resolv.conf"

// perInterfaceNameservers holds the entries one interface contributed,
// keyed by interface name so a later withdrawal only removes that
// interface's own contribution.
type perInterfaceNameservers struct {
	Nameservers []net.IP
	Domains     []string
}

// Resolver merges every connected interface's resolver entries into one
// file, spec.md §4.H "install interface nameservers ... append domain
// search list ... flush resolver cache". There is no systemd-resolved or
// dnsmasq in this retrieved dependency pack, so "flush" is the act of
// atomically rewriting the file: any long-lived reader (glibc's resolver,
// which re-reads resolv.conf on every lookup) sees the new set on its next
// query with no separate cache to invalidate.
type Resolver struct {
	mu      sync.Mutex
	byIface map[string]perInterfaceNameservers
	// order tracks the sequence interfaces were installed in, so ties
	// (two interfaces both supplying nameservers) keep a stable ordering
	// across rewrites instead of depending on map iteration.
	order []string
}

// NewResolver creates an empty Resolver.
func NewResolver() *Resolver {
	return &Resolver{byIface: make(map[string]perInterfaceNameservers)}
}

// Install records ifaceName's nameservers/domains and rewrites the merged
// file. Preferred source order (spec.md §4.H: "_config, then discovered,
// then auto") is the caller's responsibility: callers pass whichever set
// won that precedence already resolved.
func (r *Resolver) Install(ifaceName string, nameservers []net.IP, domains []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byIface[ifaceName]; !exists {
		r.order = append(r.order, ifaceName)
	}
	r.byIface[ifaceName] = perInterfaceNameservers{Nameservers: nameservers, Domains: domains}
	return r.flush()
}

// Withdraw removes ifaceName's contribution and rewrites the merged file,
// spec.md §4.H "on disconnect/failure: remove all of the above".
func (r *Resolver) Withdraw(ifaceName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byIface[ifaceName]; !exists {
		return nil
	}
	delete(r.byIface, ifaceName)
	for i, name := range r.order {
		if name == ifaceName {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return r.flush()
}

// flush serializes the merged nameserver/search set using miekg/dns's
// ClientConfig shape (the same struct the library uses to parse an
// existing resolv.conf, here used symmetrically to describe the one this
// writes) and writes it atomically.
func (r *Resolver) flush() error {
	cc := &dns.ClientConfig{Ndots: 1, Timeout: 5, Attempts: 2}
	seen := make(map[string]bool)
	var domains []string
	domainSeen := make(map[string]bool)

	for _, name := range r.order {
		entry := r.byIface[name]
		for _, ns := range entry.Nameservers {
			s := ns.String()
			if !seen[s] {
				seen[s] = true
				cc.Servers = append(cc.Servers, s)
			}
		}
		for _, d := range entry.Domains {
			if !domainSeen[d] {
				domainSeen[d] = true
				domains = append(domains, d)
			}
		}
	}
	cc.Search = domains

	var b strings.Builder
	w := bufio.NewWriter(&b)
	for _, s := range cc.Servers {
		fmt.Fprintf(w, "nameserver %s\n", s)
	}
	if len(cc.Search) > 0 {
		fmt.Fprintf(w, "search %s\n", strings.Join(cc.Search, " "))
	}
	fmt.Fprintf(w, "options ndots:%d timeout:%d attempts:%d\n", cc.Ndots, cc.Timeout, cc.Attempts)
	if err := w.Flush(); err != nil {
		return errors.Wrap(err, errors.KindInternal, "routing: resolv.conf buffer failed")
	}

	if err := config.SecureWriteFile(ResolvConfPath, []byte(b.String())); err != nil {
		return errors.Wrapf(err, errors.KindIO, "routing: writing %s failed", ResolvConfPath)
	}
	return nil
}

// currentServers is a read-only helper returning one interface's installed
// nameservers, sorted. installNameserverRoutes does not use it; it is
// handed the nameserver list directly.
func (r *Resolver) currentServers(ifaceName string) []net.IP {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry := r.byIface[ifaceName]
	out := make([]net.IP, len(entry.Nameservers))
	copy(out, entry.Nameservers)
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
