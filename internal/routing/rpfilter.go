// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package routing

import (
	"fmt"
	"sync"
)

const rpFilterLoose = "2"

// rpFilterPathPrefix is the /proc/sys mount point rp_filter paths are
// built under. A var rather than a const so tests can redirect it to a
// scratch directory instead of touching the real sysctl tree.
var rpFilterPathPrefix = "/proc/sys/net/ipv4/conf"

// rpFilterPath returns the per-interface rp_filter sysctl path.
func rpFilterPath(ifaceName string) string {
	return fmt.Sprintf("%s/%s/rp_filter", rpFilterPathPrefix, ifaceName)
}

// connectionCounter tracks the number of simultaneously connected
// networks and toggles IPv4 reverse-path-filtering to loose mode while
// more than one is up, spec.md §4.H: "when it rises above 1, set the
// IPv4 rp_filter mode to loose (and restore the prior value when it
// drops back to 1)". rp_filter is set per already-up interface at the
// moment the count crosses the threshold, not retroactively per-route.
type connectionCounter struct {
	mu       sync.Mutex
	count    int
	ifaces   map[string]bool
	saved    map[string]string
	loosened bool
}

func newConnectionCounter() *connectionCounter {
	return &connectionCounter{
		ifaces: make(map[string]bool),
		saved:  make(map[string]string),
	}
}

// Connected records ifaceName as connected and applies loose rp_filter to
// every tracked interface if the count just rose above 1.
func (c *connectionCounter) Connected(ifaceName string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ifaces[ifaceName] {
		return
	}
	c.ifaces[ifaceName] = true
	c.count++
	if c.count > 1 && !c.loosened {
		c.applyLoose()
	}
}

// Disconnected records ifaceName as no longer connected and restores the
// saved prior rp_filter value on every loosened interface once the count
// drops back to 1 or 0.
func (c *connectionCounter) Disconnected(ifaceName string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.ifaces[ifaceName] {
		return
	}
	delete(c.ifaces, ifaceName)
	c.count--
	if c.count <= 1 && c.loosened {
		c.restore()
	}
}

func (c *connectionCounter) applyLoose() {
	for name := range c.ifaces {
		if _, ok := c.saved[name]; ok {
			continue
		}
		prev, err := readSysctl(rpFilterPath(name))
		if err != nil {
			continue
		}
		c.saved[name] = prev
		_ = writeSysctl(rpFilterPath(name), rpFilterLoose)
	}
	c.loosened = true
}

func (c *connectionCounter) restore() {
	for name, prev := range c.saved {
		_ = writeSysctl(rpFilterPath(name), prev)
	}
	c.saved = make(map[string]string)
	c.loosened = false
}

// Count reports the current connected-network count.
func (c *connectionCounter) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}
