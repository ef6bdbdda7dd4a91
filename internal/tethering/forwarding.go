// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package tethering

import (
	"os"
	"strings"

	"grimm.is/connd/internal/errors"
)

const ipv4ForwardPath = "/proc/sys/net/ipv4/ip_forward"

// enableIPv4Forwarding flips the global forwarding sysctl on, spec.md §4.J
// enable() step 3. Adapted from internal/routing's direct-file sysctl
// helpers rather than shelling out to sysctl(8).
func enableIPv4Forwarding() error {
	cur, err := os.ReadFile(ipv4ForwardPath)
	if err == nil && strings.TrimSpace(string(cur)) == "1" {
		return nil
	}
	if err := os.WriteFile(ipv4ForwardPath, []byte("1\n"), 0644); err != nil {
		return errors.Wrap(err, errors.KindIO, "tethering: enable ipv4 forwarding failed")
	}
	return nil
}
