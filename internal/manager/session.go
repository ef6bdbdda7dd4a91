// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package manager

import (
	"github.com/google/uuid"

	"grimm.is/connd/internal/errors"
)

// Session is one caller's registered session, spec.md §4.M
// CreateSession/DestroySession: an opaque identifier and the bus name of
// the caller that owns it. A Session holds no reference on any service and
// does not keep one from being released.
type Session struct {
	id       string
	bearerID string
}

// CreateSession registers a new session for bearerID (the bus caller that
// owns it) and returns its opaque identifier.
func (m *Manager) CreateSession(bearerID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &Session{id: uuid.New().String(), bearerID: bearerID}
	m.sessions[s.id] = s
	return s
}

// DestroySession releases a previously created session.
func (m *Manager) DestroySession(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return errors.Errorf(errors.KindNotFound, "manager: no such session %s", id)
	}
	delete(m.sessions, id)
	return nil
}

// SetSessionMode implements spec.md §4.M SetSessionMode by setting the
// session-mode flag and returning at once. Neither it nor
// BusAdapter.SetProperty waits for services to reach idle before the bus
// call is answered.
func (m *Manager) SetSessionMode(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionMode = on
}

// SessionMode reports the current session-mode flag.
func (m *Manager) SessionMode() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessionMode
}
