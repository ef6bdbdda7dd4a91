// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package service

import "grimm.is/connd/internal/errors"

func errNoAgent(identifier string) error {
	return errors.Errorf(errors.KindNoKey, "service: %s needs a passphrase but no agent is registered", identifier)
}

// AutoConnect walks the ordered collection and initiates a connect on the
// first eligible service, spec.md §4.G "Auto-connect": idle, favorite,
// autoconnect, not roaming, not ignored, not failed. sessionMode disables
// the walk entirely. If any service is already connecting, no work is
// done.
func AutoConnect(c *Collection, sessionMode bool) {
	if sessionMode {
		return
	}
	for _, s := range c.Services() {
		if s.state.connecting() {
			return
		}
	}
	for _, s := range c.Services() {
		if s.state != StateIdle {
			continue
		}
		if !s.Favorite || !s.AutoConnect || s.Roaming || s.Ignored {
			continue
		}
		_ = s.Connect(false, nil)
		return
	}
}

// UserConnect implements spec.md §4.G "User connect": sets userconnect,
// stores the pending reply, clears any failure disposition, and attempts
// connect. If the service needs a passphrase it does not have, agent is
// consulted; a declined or failed prompt fails the service.
func UserConnect(s *Service, agent PassphraseAgent, reply func(error)) error {
	s.ClearError()

	if s.driver.RequiresPassphrase() && s.Passphrase == "" {
		if agent == nil {
			s.fail(errNoAgent(s.Identifier))
			if reply != nil {
				reply(errNoAgent(s.Identifier))
			}
			return errNoAgent(s.Identifier)
		}
		pass, err := agent.RequestPassphrase(s.Identifier)
		if err != nil {
			s.fail(err)
			if reply != nil {
				reply(err)
			}
			return err
		}
		s.Passphrase = pass
		s.driver.SetPassphrase(pass)
	}

	return s.Connect(true, reply)
}
