// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package manager

import (
	"net"

	"grimm.is/connd/internal/errors"
)

// PrivateNetwork is the reply shape spec.md §4.J / §4.M's
// RequestPrivateNetwork hands back over the bus alongside the TUN fd: the
// device name, its /24, and the server/peer addresses within it.
type PrivateNetwork struct {
	Device string
	Subnet *net.IPNet
	Server net.IP
	Peer   net.IP
}

// RequestPrivateNetwork implements spec.md §4.M RequestPrivateNetwork,
// delegating to the tethering controller's TUN allocation.
func (m *Manager) RequestPrivateNetwork() (PrivateNetwork, error) {
	if m.tether == nil {
		return PrivateNetwork{}, errors.Errorf(errors.KindUnavailable, "manager: tethering not configured")
	}
	device, subnet, server, peer, err := m.tether.RequestPrivateNetwork()
	if err != nil {
		return PrivateNetwork{}, err
	}
	return PrivateNetwork{Device: device, Subnet: subnet, Server: server, Peer: peer}, nil
}

// ReleasePrivateNetwork implements spec.md §4.M ReleasePrivateNetwork,
// called when the requester disconnects from the bus.
func (m *Manager) ReleasePrivateNetwork(device string) error {
	if m.tether == nil {
		return errors.Errorf(errors.KindUnavailable, "manager: tethering not configured")
	}
	return m.tether.ReleasePrivateNetwork(device)
}

// EnableTethering brings tethering up over upstreamIface, spec.md §4.J
// enable() invoked via the manager facade.
func (m *Manager) EnableTethering(upstreamIface string) error {
	if m.tether == nil {
		return errors.Errorf(errors.KindUnavailable, "manager: tethering not configured")
	}
	return m.tether.Enable(upstreamIface, nil)
}

// DisableTethering reverses EnableTethering.
func (m *Manager) DisableTethering() error {
	if m.tether == nil {
		return errors.Errorf(errors.KindUnavailable, "manager: tethering not configured")
	}
	return m.tether.Disable()
}
