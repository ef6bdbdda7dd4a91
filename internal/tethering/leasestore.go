// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package tethering implements component J, spec.md §4.J: the tethering
// controller that turns this host into a shared-connection access point —
// a bridge, an embedded DHCPv4 server and a NAT masquerade rule.
package tethering

import (
	"fmt"
	"net"
	"sync"
	"time"

	"grimm.is/connd/internal/errors"
)

// LeaseStore allocates addresses from the tethering pool, spec.md §4.J
// "address pool 192.168.218.100-200". Adapted from the allocation
// strategy of the teacher's internal/services/dhcp LeaseStore (existing-
// lease reuse, then first-available linear scan) with the static-
// reservation tier and persistent backing store dropped: tethering leases
// are pool-only and don't survive a restart.
type LeaseStore struct {
	mu        sync.Mutex
	rangeLow  net.IP
	rangeHigh net.IP
	leaseTime time.Duration
	leases    map[string]net.IP // MAC -> IP
	taken     map[string]string // IP.String() -> MAC
	expiry    map[string]time.Time
}

// NewLeaseStore creates a store over [low, high] with lease duration d.
func NewLeaseStore(low, high net.IP, d time.Duration) *LeaseStore {
	return &LeaseStore{
		rangeLow:  low.To4(),
		rangeHigh: high.To4(),
		leaseTime: d,
		leases:    make(map[string]net.IP),
		taken:     make(map[string]string),
		expiry:    make(map[string]time.Time),
	}
}

// Allocate returns mac's lease, reusing an existing one still in range, or
// scanning for the first free address otherwise.
func (s *LeaseStore) Allocate(mac string) (net.IP, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ip, ok := s.leases[mac]; ok {
		s.expiry[mac] = time.Now().Add(s.leaseTime)
		return ip, nil
	}

	for ip := cloneIP(s.rangeLow); !ip.Equal(s.rangeHigh); ip = incIP(ip) {
		if _, busy := s.taken[ip.String()]; busy {
			continue
		}
		return s.commit(mac, ip), nil
	}
	if _, busy := s.taken[s.rangeHigh.String()]; !busy {
		return s.commit(mac, cloneIP(s.rangeHigh)), nil
	}
	return nil, errors.Errorf(errors.KindUnavailable, "tethering: address pool exhausted")
}

func (s *LeaseStore) commit(mac string, ip net.IP) net.IP {
	s.leases[mac] = ip
	s.taken[ip.String()] = mac
	s.expiry[mac] = time.Now().Add(s.leaseTime)
	return ip
}

// Release frees mac's lease, if any.
func (s *LeaseStore) Release(mac string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ip, ok := s.leases[mac]; ok {
		delete(s.taken, ip.String())
		delete(s.leases, mac)
		delete(s.expiry, mac)
	}
}

func cloneIP(ip net.IP) net.IP {
	out := make(net.IP, len(ip))
	copy(out, ip)
	return out
}

func incIP(ip net.IP) net.IP {
	out := cloneIP(ip)
	for i := len(out) - 1; i >= 0; i-- {
		out[i]++
		if out[i] > 0 {
			break
		}
	}
	return out
}

func (s *LeaseStore) String() string {
	return fmt.Sprintf("pool %s-%s", s.rangeLow, s.rangeHigh)
}
