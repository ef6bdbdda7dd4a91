// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package logging

import (
	"fmt"
	"log/syslog"
)

// SyslogConfig configures forwarding of log lines to a remote syslog
// collector. Disabled by default; the daemon's config package exposes a
// matching "syslog" block.
type SyslogConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Protocol string // "udp" or "tcp"
	Tag      string
	Facility syslog.Priority
}

// DefaultSyslogConfig returns syslog forwarding disabled, addressed at the
// conventional syslog UDP port under the daemon's own tag.
func DefaultSyslogConfig() SyslogConfig {
	return SyslogConfig{
		Enabled:  false,
		Port:     514,
		Protocol: "udp",
		Tag:      "connd",
		Facility: syslog.LOG_DAEMON,
	}
}

// NewSyslogWriter dials a remote syslog collector described by cfg,
// defaulting Port/Protocol/Tag/Facility when left zero.
func NewSyslogWriter(cfg SyslogConfig) (*syslog.Writer, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("logging: syslog host is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 514
	}
	if cfg.Protocol == "" {
		cfg.Protocol = "udp"
	}
	if cfg.Tag == "" {
		cfg.Tag = "connd"
	}
	if cfg.Facility == 0 {
		cfg.Facility = syslog.LOG_DAEMON
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	return syslog.Dial(cfg.Protocol, addr, cfg.Facility|syslog.LOG_INFO, cfg.Tag)
}
