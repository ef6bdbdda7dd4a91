// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package keyfile persists one service's state to disk under the key set
// spec.md §6 documents, one file per service identifier. It is grounded on
// the teacher's internal/config secure-storage helpers (atomic 0600 writes)
// and on gopkg.in/yaml.v3 for the on-disk structure, rather than a literal
// INI-group format: the spec's "group name equals the identifier" maps
// naturally onto "one YAML file named after the identifier".
package keyfile

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"grimm.is/connd/internal/config"
	"grimm.is/connd/internal/errors"
)

// IPConfigKeys mirrors the IPv4.*/IPv6.* prefixed keys of spec.md §6.
type IPConfigKeys struct {
	Method  string `yaml:"method,omitempty"`
	Address string `yaml:"address,omitempty"`
	Netmask string `yaml:"netmask,omitempty"`
	Gateway string `yaml:"gateway,omitempty"`
}

// Record is the on-disk representation of one service, keyed by identifier.
type Record struct {
	Name        string `yaml:"Name,omitempty"`
	SSID        string `yaml:"SSID,omitempty"` // hex-encoded
	Frequency   int    `yaml:"Frequency,omitempty"`
	Favorite    bool   `yaml:"Favorite,omitempty"`
	AutoConnect bool   `yaml:"AutoConnect,omitempty"`
	Failure     bool   `yaml:"Failure,omitempty"`
	Modified    string `yaml:"Modified,omitempty"` // ISO-8601
	Passphrase  string `yaml:"Passphrase,omitempty"`

	Nameservers []string `yaml:"Nameservers,omitempty"`
	Domains     []string `yaml:"Domains,omitempty"`

	ProxyMethod   string   `yaml:"Proxy.Method,omitempty"`
	ProxyServers  []string `yaml:"Proxy.Servers,omitempty"`
	ProxyExcludes []string `yaml:"Proxy.Excludes,omitempty"`
	ProxyURL      string   `yaml:"Proxy.URL,omitempty"`

	IPv4 IPConfigKeys `yaml:"IPv4,omitempty"`
	IPv6 IPConfigKeys `yaml:"IPv6,omitempty"`
}

// Store reads and writes Records under a state directory, one file per
// service identifier.
type Store struct {
	dir string
}

// NewStore creates a Store rooted at dir (created on first Save if absent).
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) path(identifier string) string {
	return filepath.Join(s.dir, identifier+".yaml")
}

// Save atomically persists rec under identifier, bumping Modified to now.
func (s *Store) Save(identifier string, rec *Record) error {
	rec.Modified = time.Now().UTC().Format(time.RFC3339)
	data, err := yaml.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "keyfile: marshal failed")
	}
	if err := config.SecureWriteFile(s.path(identifier), data); err != nil {
		return errors.Wrap(err, errors.KindIO, "keyfile: write failed")
	}
	return nil
}

// Load reads the Record for identifier. A missing file is not an error; it
// returns a zero-value Record so first-seen services start from defaults.
func (s *Store) Load(identifier string) (*Record, error) {
	data, err := os.ReadFile(s.path(identifier))
	if os.IsNotExist(err) {
		return &Record{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.KindIO, "keyfile: read failed")
	}

	var rec Record
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return nil, errors.Wrap(err, errors.KindProtocol, "keyfile: corrupt record")
	}
	return &rec, nil
}

// Remove deletes the persisted record for identifier, if any.
func (s *Store) Remove(identifier string) error {
	err := os.Remove(s.path(identifier))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, errors.KindIO, "keyfile: remove failed")
	}
	return nil
}

// List returns the identifiers of every persisted service.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.KindIO, "keyfile: list failed")
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		const ext = ".yaml"
		if len(name) > len(ext) && name[len(name)-len(ext):] == ext {
			ids = append(ids, name[:len(name)-len(ext)])
		}
	}
	return ids, nil
}
