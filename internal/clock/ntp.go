// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package clock implements component L, spec.md §4.L: an SNTP client that
// queries a configured server list in order and applies the first
// successful offset to the system clock via setSystemTime.
package clock

import (
	"time"

	"github.com/beevik/ntp"

	"grimm.is/connd/internal/errors"
	"grimm.is/connd/internal/logging"
)

// DefaultServers mirrors the common public NTP pool fallback list.
var DefaultServers = []string{
	"0.pool.ntp.org",
	"1.pool.ntp.org",
	"2.pool.ntp.org",
}

// QueryTimeout bounds a single server query.
const QueryTimeout = 5 * time.Second

// Querier abstracts the SNTP round trip so tests can substitute a fake
// without reaching the network.
type Querier interface {
	Query(server string) (offset time.Duration, err error)
}

// ntpQuerier is the production Querier, backed by beevik/ntp.
type ntpQuerier struct{}

func (ntpQuerier) Query(server string) (time.Duration, error) {
	resp, err := ntp.QueryWithOptions(server, ntp.QueryOptions{Timeout: QueryTimeout})
	if err != nil {
		return 0, errors.Wrapf(err, errors.KindTransport, "clock: ntp query to %s failed", server)
	}
	if err := resp.Validate(); err != nil {
		return 0, errors.Wrapf(err, errors.KindProtocol, "clock: ntp response from %s invalid", server)
	}
	return resp.ClockOffset, nil
}

// DefaultQuerier returns the production beevik/ntp-backed Querier.
func DefaultQuerier() Querier { return ntpQuerier{} }

// setSystemTimeFunc indirects to the platform-specific setSystemTime so
// tests can substitute a no-op without requiring CAP_SYS_TIME.
var setSystemTimeFunc = setSystemTime

// Sync queries servers in order, applying the first valid offset to the
// system clock and returning which server won. An empty servers list uses
// DefaultServers.
func Sync(q Querier, servers []string) (string, error) {
	if len(servers) == 0 {
		servers = DefaultServers
	}
	logger := logging.WithComponent("clock")

	var lastErr error
	for _, server := range servers {
		offset, err := q.Query(server)
		if err != nil {
			logger.WithError(err).Warn("ntp query failed", "server", server)
			lastErr = err
			continue
		}
		if err := setSystemTimeFunc(time.Now().Add(offset)); err != nil {
			return "", errors.Wrapf(err, errors.KindPermission, "clock: set system time failed")
		}
		logger.Info("system clock synchronized", "server", server, "offset", offset.String())
		return server, nil
	}
	if lastErr == nil {
		lastErr = errors.Errorf(errors.KindUnavailable, "clock: no ntp servers configured")
	}
	return "", errors.Wrap(lastErr, errors.KindUnavailable, "clock: all ntp servers failed")
}
