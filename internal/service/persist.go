// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package service

import "grimm.is/connd/internal/keyfile"

// Save serializes the favorite/autoconnect/passphrase/nameserver/domain/
// proxy/ipconfig attributes a change to any of which spec.md §4.G
// "Persistence" requires re-saving on. Nameserver/domain/proxy/ipconfig
// keys are owned by the ipconfig/routing layers and threaded in by the
// caller rather than read directly off Service, since Service itself only
// tracks the ipconfig.Config references, not their resolved addresses.
func (s *Service) Save(store *keyfile.Store, extra keyfile.Record) error {
	rec := extra
	rec.Name = s.Name
	rec.Favorite = s.Favorite
	rec.AutoConnect = s.AutoConnect
	rec.Failure = s.state == StateFailure
	rec.Passphrase = s.Passphrase
	return store.Save(s.Identifier, &rec)
}

// Load restores the persisted attributes onto s. A service with no
// persisted record is left at its zero-value defaults (not a favorite,
// autoconnect off), matching keyfile.Store.Load's "missing file is not an
// error" behavior.
func (s *Service) Load(store *keyfile.Store) (*keyfile.Record, error) {
	rec, err := store.Load(s.Identifier)
	if err != nil {
		return nil, err
	}
	s.Favorite = rec.Favorite
	s.AutoConnect = rec.AutoConnect
	s.Passphrase = rec.Passphrase
	if rec.Failure {
		s.state = StateFailure
	}
	return rec, nil
}
