// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package manager

import (
	"context"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/prometheus/client_golang/prometheus"

	"grimm.is/connd/internal/errors"
)

// Usage is one service's traffic counters, spec.md §4.M's Counter
// collaborator ("subscribes to per-service traffic statistics").
type Usage struct {
	ServiceIdentifier string
	BytesIn           uint64
	BytesOut          uint64
	PacketsIn         uint64
	PacketsOut        uint64
}

// counterPeer is one registered external bus subscriber.
type counterPeer struct {
	conn *dbus.Conn
	dest string
	path dbus.ObjectPath
}

func (c *counterPeer) notify(u Usage) error {
	obj := c.conn.Object(c.dest, c.path)
	call := obj.CallWithContext(context.Background(), "net.connd.Counter.Usage", 0, u.ServiceIdentifier, u.BytesIn, u.BytesOut, u.PacketsIn, u.PacketsOut)
	if call.Err != nil {
		return errors.Wrap(call.Err, errors.KindTransport, "manager: counter notify failed")
	}
	return nil
}

// CounterRegistry tracks registered bus-side traffic counters and mirrors
// the same totals into a pair of Prometheus counters for local scraping.
type CounterRegistry struct {
	mu    sync.Mutex
	peers map[string]*counterPeer

	prom     *prometheus.Registry
	bytesIn  *prometheus.CounterVec
	bytesOut *prometheus.CounterVec
}

// NewCounterRegistry creates an empty registry over its own Prometheus
// registry (rather than the global default one, so multiple Managers in
// the same process — or test — never collide on metric names), following
// the teacher's NewCounterVec construction style.
func NewCounterRegistry() *CounterRegistry {
	r := &CounterRegistry{
		peers: make(map[string]*counterPeer),
		prom:  prometheus.NewRegistry(),
		bytesIn: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "connd_service_bytes_in_total",
			Help: "Total bytes received per service.",
		}, []string{"service"}),
		bytesOut: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "connd_service_bytes_out_total",
			Help: "Total bytes sent per service.",
		}, []string{"service"}),
	}
	r.prom.MustRegister(r.bytesIn, r.bytesOut)
	return r
}

// Gatherer exposes the underlying Prometheus registry for a /metrics
// handler, scoped to connd's own registry instead of the global one.
// cmd/connd does not serve one.
func (r *CounterRegistry) Gatherer() prometheus.Gatherer { return r.prom }

// Register adds caller as a subscriber, spec.md §4.M RegisterCounter.
func (r *CounterRegistry) Register(conn *dbus.Conn, caller string, path dbus.ObjectPath) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.peers[caller]; exists {
		return errors.Errorf(errors.KindConflict, "manager: counter already registered for %s", caller)
	}
	r.peers[caller] = &counterPeer{conn: conn, dest: caller, path: path}
	return nil
}

// Unregister removes caller's subscription, spec.md §4.M UnregisterCounter.
func (r *CounterRegistry) Unregister(caller string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.peers[caller]; !exists {
		return errors.Errorf(errors.KindNotFound, "manager: no counter registered for %s", caller)
	}
	delete(r.peers, caller)
	return nil
}

// Report pushes one usage sample to every registered peer and updates the
// local Prometheus counters. Peer call failures are ignored; a peer whose
// call fails stays registered until Unregister removes it.
func (r *CounterRegistry) Report(u Usage) {
	r.bytesIn.WithLabelValues(u.ServiceIdentifier).Add(float64(u.BytesIn))
	r.bytesOut.WithLabelValues(u.ServiceIdentifier).Add(float64(u.BytesOut))

	r.mu.Lock()
	peers := make([]*counterPeer, 0, len(r.peers))
	for _, p := range r.peers {
		peers = append(peers, p)
	}
	r.mu.Unlock()

	for _, p := range peers {
		_ = p.notify(u)
	}
}

// RegisterCounter implements spec.md §4.M RegisterCounter on the facade.
func (m *Manager) RegisterCounter(conn *dbus.Conn, caller string, path dbus.ObjectPath) error {
	return m.counters.Register(conn, caller, path)
}

// UnregisterCounter implements spec.md §4.M UnregisterCounter.
func (m *Manager) UnregisterCounter(caller string) error {
	return m.counters.Unregister(caller)
}

// ReportUsage feeds one traffic sample through the counter registry.
func (m *Manager) ReportUsage(u Usage) {
	m.counters.Report(u)
}
