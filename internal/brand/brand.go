// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package brand centralizes the product identity connd's path and bus
// defaults are derived from, loaded from brand.json at compile time.
package brand

import (
	_ "embed"
	"encoding/json"
)

//go:embed brand.json
var brandJSON []byte

// Brand holds the product identity the rest of the daemon is parameterized on.
type Brand struct {
	Name             string `json:"name"`
	LowerName        string `json:"lowerName"`
	Vendor           string `json:"vendor"`
	Website          string `json:"website"`
	Repository       string `json:"repository"`
	Description      string `json:"description"`
	Tagline          string `json:"tagline"`
	ConfigEnvPrefix  string `json:"configEnvPrefix"`
	DefaultConfigDir string `json:"defaultConfigDir"`
	DefaultStateDir  string `json:"defaultStateDir"`
	DefaultLogDir    string `json:"defaultLogDir"`
	DefaultCacheDir  string `json:"defaultCacheDir"`
	DefaultRunDir    string `json:"defaultRunDir"`
	DefaultShareDir  string `json:"defaultShareDir"`
	SocketName       string `json:"socketName"`
	BinaryName       string `json:"binaryName"`
	ServiceName      string `json:"serviceName"`
	ConfigFileName   string `json:"configFileName"`
	Copyright        string `json:"copyright"`
	License          string `json:"license"`
}

var b Brand

func init() {
	if err := json.Unmarshal(brandJSON, &b); err != nil {
		panic("brand: failed to parse brand.json: " + err.Error())
	}

	Name = b.Name
	LowerName = b.LowerName
	ConfigEnvPrefix = b.ConfigEnvPrefix
	SocketName = b.SocketName
	BinaryName = b.BinaryName
	ServiceName = b.ServiceName
	ConfigFileName = b.ConfigFileName
}

// Exported for convenience at call sites that don't want to hold a Brand value.
var (
	Name            string
	LowerName       string
	ConfigEnvPrefix string
	SocketName      string
	BinaryName      string
	ServiceName     string
	ConfigFileName  string

	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Get returns the full Brand struct.
func Get() Brand { return b }

// UserAgent returns a "<Name>/<version>" User-Agent string, with "dev"
// standing in for an empty version.
func UserAgent(version string) string {
	if version == "" {
		version = "dev"
	}
	return Name + "/" + version
}

// BusName returns the well-known system-bus name the manager facade
// registers under, e.g. "net.connd".
func BusName() string {
	return "net." + LowerName
}
