// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package agent models the bus-side credential-prompt collaborator spec.md
// §4.G and §4.K call out: when a service needs a passphrase, or a captive
// portal needs the user to complete a login, connd asks whichever external
// process has registered itself as "the agent" rather than prompting
// directly. RegisterAgent/UnregisterAgent on the manager facade
// (internal/manager) are the only entry points that populate this registry.
package agent

import (
	"context"
	"sync"

	"github.com/godbus/dbus/v5"

	"grimm.is/connd/internal/errors"
)

// Request describes what connd is asking the agent to obtain from the user.
type Request struct {
	ServiceIdentifier string
	Fields            []string // e.g. "Passphrase", "Identity", "WISPrUsername"
}

// Response carries back whatever the agent's UI collected.
type Response struct {
	Values map[string]string
}

// Agent is the bus proxy for one registered external agent process.
type Agent struct {
	conn *dbus.Conn
	dest string
	path dbus.ObjectPath
}

// RequestInput asks the agent to fill in req's fields, blocking until the
// agent replies, the user cancels, or ctx is done.
func (a *Agent) RequestInput(ctx context.Context, req Request) (Response, error) {
	obj := a.conn.Object(a.dest, a.path)
	args := map[string]any{"ServiceIdentifier": req.ServiceIdentifier, "Fields": req.Fields}
	call := obj.CallWithContext(ctx, "net.connd.Agent.RequestInput", 0, args)
	if call.Err != nil {
		return Response{}, errors.Wrap(call.Err, errors.KindTransport, "agent: request_input failed")
	}
	var values map[string]string
	if err := call.Store(&values); err != nil {
		return Response{}, errors.Wrap(err, errors.KindProtocol, "agent: malformed request_input reply")
	}
	return Response{Values: values}, nil
}

// ReportError notifies the agent a connection attempt failed, mirroring
// ConnMan's Agent.ReportError so a UI can surface why before retrying.
func (a *Agent) ReportError(ctx context.Context, serviceIdentifier, message string) error {
	obj := a.conn.Object(a.dest, a.path)
	call := obj.CallWithContext(ctx, "net.connd.Agent.ReportError", 0, serviceIdentifier, message)
	if call.Err != nil {
		return errors.Wrap(call.Err, errors.KindTransport, "agent: report_error failed")
	}
	return nil
}

// Cancel tells the agent to dismiss any outstanding prompt for
// serviceIdentifier, used when a connection attempt is aborted for reasons
// unrelated to the prompt itself (user disconnected a different way, the
// service vanished).
func (a *Agent) Cancel(ctx context.Context, serviceIdentifier string) error {
	obj := a.conn.Object(a.dest, a.path)
	call := obj.CallWithContext(ctx, "net.connd.Agent.Cancel", 0, serviceIdentifier)
	if call.Err != nil {
		return errors.Wrap(call.Err, errors.KindTransport, "agent: cancel failed")
	}
	return nil
}

// Registry tracks the single currently-registered agent. Only one agent may
// be registered at a time (spec.md §4.G); a second RegisterAgent call made
// while one is registered is refused with KindInProgress.
type Registry struct {
	mu      sync.Mutex
	current *Agent
	owner   string
}

// NewRegistry creates an empty agent registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register installs path (owned by the bus unique name caller) as the
// active agent.
func (r *Registry) Register(conn *dbus.Conn, caller string, path dbus.ObjectPath) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != nil {
		return errors.Errorf(errors.KindInProgress, "agent: an agent is already registered")
	}
	r.current = &Agent{conn: conn, dest: caller, path: path}
	r.owner = caller
	return nil
}

// Unregister removes the active agent if caller owns it.
func (r *Registry) Unregister(caller string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil || r.owner != caller {
		return errors.Errorf(errors.KindNotFound, "agent: no such agent")
	}
	r.current = nil
	r.owner = ""
	return nil
}

// Current returns the active agent, if any.
func (r *Registry) Current() (*Agent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current, r.current != nil
}

// ReleaseOwner drops the registration if caller disconnected from the bus
// without explicitly unregistering, the same cleanup ConnMan performs on a
// NameOwnerChanged signal for the agent's unique name.
func (r *Registry) ReleaseOwner(caller string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != nil && r.owner == caller {
		r.current = nil
		r.owner = ""
	}
}
