// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package config

import "time"

// CurrentSchemaVersion defines the current schema version of the configuration.
const CurrentSchemaVersion = "1.0"

// Config is the top-level daemon configuration, loaded from connd.hcl.
type Config struct {
	// Schema version for backward compatibility.
	// @default: "1.0"
	SchemaVersion string `hcl:"schema_version,optional" json:"schema_version,omitempty"`

	// State directory setting. cmd/connd does not read this field.
	StateDir string `hcl:"state_dir,optional" json:"state_dir,omitempty"`

	// Bus name setting. cmd/connd does not read this field; bus.Shared
	// always registers under brand.BusName().
	BusName string `hcl:"bus_name,optional" json:"bus_name,omitempty"`

	// SessionMode disables direct user-initiated connects (spec.md §4.M).
	SessionMode bool `hcl:"session_mode,optional" json:"session_mode,omitempty"`

	// OfflineMode is applied at startup through Manager.SetOfflineMode,
	// which disconnects every service.
	OfflineMode bool `hcl:"offline_mode,optional" json:"offline_mode,omitempty"`

	// ConnectTimeout is the configured connect deadline (spec.md §4.G
	// default 120s). internal/service uses its own DefaultConnectTimeout
	// and does not read this field.
	ConnectTimeout time.Duration `hcl:"connect_timeout,optional" json:"connect_timeout,omitempty"`

	SixToFour *SixToFourConfig `hcl:"six_to_four,block" json:"six_to_four,omitempty"`
	Tethering *TetheringConfig `hcl:"tethering,block" json:"tethering,omitempty"`
	NTP       *NTPConfig       `hcl:"ntp,block" json:"ntp,omitempty"`
	Syslog    *SyslogConfig    `hcl:"syslog,block" json:"syslog,omitempty"`
	WISPr     *WISPrConfig     `hcl:"wispr,block" json:"wispr,omitempty"`
}

// TetheringConfig configures the bridge/DHCP/NAT tethering controller (spec.md §4.J).
type TetheringConfig struct {
	Enabled     bool          `hcl:"enabled,optional" json:"enabled,omitempty"`
	BridgeName  string        `hcl:"bridge_name,optional" json:"bridge_name,omitempty"`
	BridgeCIDR  string        `hcl:"bridge_cidr,optional" json:"bridge_cidr,omitempty"`
	PoolStart   string        `hcl:"pool_start,optional" json:"pool_start,omitempty"`
	PoolEnd     string        `hcl:"pool_end,optional" json:"pool_end,omitempty"`
	LeaseTime   time.Duration `hcl:"lease_time,optional" json:"lease_time,omitempty"`
	FallbackDNS string        `hcl:"fallback_dns,optional" json:"fallback_dns,omitempty"`
}

// DefaultTetheringConfig mirrors spec.md §4.J's literal defaults.
func DefaultTetheringConfig() TetheringConfig {
	return TetheringConfig{
		BridgeName:  "tether",
		BridgeCIDR:  "192.168.218.1/24",
		PoolStart:   "192.168.218.100",
		PoolEnd:     "192.168.218.200",
		LeaseTime:   24 * time.Hour,
		FallbackDNS: "8.8.8.8",
	}
}

// NTPConfig configures the SNTP client driving the clock module (spec.md §4.L).
type NTPConfig struct {
	Enabled bool     `hcl:"enabled,optional" json:"enabled,omitempty"`
	Servers []string `hcl:"servers,optional" json:"servers,omitempty"`
}

// SyslogConfig mirrors logging.SyslogConfig at the HCL boundary.
type SyslogConfig struct {
	Enabled  bool   `hcl:"enabled,optional" json:"enabled,omitempty"`
	Host     string `hcl:"host,optional" json:"host,omitempty"`
	Port     int    `hcl:"port,optional" json:"port,omitempty"`
	Protocol string `hcl:"protocol,optional" json:"protocol,omitempty"`
	Tag      string `hcl:"tag,optional" json:"tag,omitempty"`
}

// WISPrConfig configures the captive-portal probe URLs (spec.md §4.K).
type WISPrConfig struct {
	StatusURLIPv4 string `hcl:"status_url_ipv4,optional" json:"status_url_ipv4,omitempty"`
	StatusURLIPv6 string `hcl:"status_url_ipv6,optional" json:"status_url_ipv6,omitempty"`
}

// DefaultConfig returns connd's baseline daemon configuration.
func DefaultConfig() *Config {
	tether := DefaultTetheringConfig()
	return &Config{
		SchemaVersion:  CurrentSchemaVersion,
		ConnectTimeout: 120 * time.Second,
		SixToFour: &SixToFourConfig{
			Enabled: false,
		},
		Tethering: &tether,
		NTP: &NTPConfig{
			Enabled: true,
			Servers: []string{"pool.ntp.org"},
		},
		WISPr: &WISPrConfig{
			StatusURLIPv4: "http://ipv4.connman.net/online/status.html",
			StatusURLIPv6: "http://ipv6.connman.net/online/status.html",
		},
	}
}
