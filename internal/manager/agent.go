// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package manager

import (
	"context"

	"github.com/godbus/dbus/v5"

	"grimm.is/connd/internal/agent"
	"grimm.is/connd/internal/errors"
)

// RegisterAgent implements spec.md §4.M RegisterAgent: caller becomes the
// one active credential-prompt collaborator for the process.
func (m *Manager) RegisterAgent(conn *dbus.Conn, caller string, path dbus.ObjectPath) error {
	return m.agents.Register(conn, caller, path)
}

// UnregisterAgent implements spec.md §4.M UnregisterAgent.
func (m *Manager) UnregisterAgent(caller string) error {
	return m.agents.Unregister(caller)
}

// agentPassphraseAdapter satisfies service.PassphraseAgent over whichever
// external agent is currently registered, translating its generic
// Request/Response shape into the single "Passphrase" field the service
// package's connect flow asks for.
type agentPassphraseAdapter struct {
	registry *agent.Registry
}

// RequestPassphrase asks the active agent for identifier's passphrase,
// failing with KindNoKey (mirrored from service.errNoAgent's own kind) if
// no agent is registered.
func (a agentPassphraseAdapter) RequestPassphrase(identifier string) (string, error) {
	active, ok := a.registry.Current()
	if !ok {
		return "", errors.Errorf(errors.KindNoKey, "manager: %s needs a passphrase but no agent is registered", identifier)
	}
	resp, err := active.RequestInput(context.Background(), agent.Request{
		ServiceIdentifier: identifier,
		Fields:            []string{"Passphrase"},
	})
	if err != nil {
		return "", err
	}
	return resp.Values["Passphrase"], nil
}
