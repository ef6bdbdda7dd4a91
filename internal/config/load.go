// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package config

import (
	"os"

	"github.com/hashicorp/hcl/v2/hclsimple"

	"grimm.is/connd/internal/errors"
)

// Load reads and decodes the daemon's HCL configuration file, filling in
// DefaultConfig() for anything the file leaves unset.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if err := hclsimple.DecodeFile(path, nil, cfg); err != nil {
		return nil, errors.Wrapf(err, errors.KindValidation, "config: failed to decode %s", path)
	}

	if cfg.SchemaVersion == "" {
		cfg.SchemaVersion = CurrentSchemaVersion
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = DefaultConfig().ConnectTimeout
	}
	if cfg.Tethering == nil {
		t := DefaultTetheringConfig()
		cfg.Tethering = &t
	}
	return cfg, nil
}
