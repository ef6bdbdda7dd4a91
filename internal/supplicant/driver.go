// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package supplicant

import (
	"context"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"

	"grimm.is/connd/internal/errors"
	"grimm.is/connd/internal/eventloop"
)

// pollInterval is how often Driver polls wpa_supplicant's State property
// while association is in progress. internal/service's own 120-second
// connect timeout bounds how long this can run before the service gives
// up regardless of what Driver reports.
const pollInterval = 500 * time.Millisecond

// RPC is the subset of Client's method set Driver needs, so tests can
// supply a fake without a bus connection.
type RPC interface {
	GetInterface(ctx context.Context, ifaceName string) (Interface, error)
	AddNetwork(ctx context.Context, iface Interface, args map[string]any) (dbus.ObjectPath, error)
	SelectNetwork(ctx context.Context, iface Interface, network dbus.ObjectPath) error
	RemoveNetwork(ctx context.Context, iface Interface, network dbus.ObjectPath) error
	Disconnect(ctx context.Context, iface Interface) error
	CurrentState(ctx context.Context, iface Interface) (State, error)
}

// Driver is internal/service's Driver implementation for a wifi-backed
// Service: association goes through wpa_supplicant via RPC rather than
// talking to nl80211 directly, the same boundary ConnMan keeps between a
// service and the supplicant.
type Driver struct {
	Client    RPC
	Interface string // kernel interface name, e.g. wlan0
	SSID      string
	KeyMgmt   string // "NONE" or "WPA-PSK", wpa_supplicant's AddNetwork key_mgmt value
	Loop      *eventloop.Loop

	mu         sync.Mutex
	passphrase string
	cancel     context.CancelFunc
	iface      Interface
	network    dbus.ObjectPath
}

// RequiresPassphrase reports whether KeyMgmt needs a credential that is
// not currently set.
func (d *Driver) RequiresPassphrase() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.KeyMgmt == "WPA-PSK" && d.passphrase == ""
}

// SetPassphrase records the credential to present on the next Connect.
func (d *Driver) SetPassphrase(p string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.passphrase = p
}

// Connect registers and selects the network with wpa_supplicant, then
// polls CurrentState in the background until it reaches "completed"
// (linkUp), fails terminally, or Disconnect cancels it (failed is not
// called in that case — the service already knows).
func (d *Driver) Connect(linkUp func(), failed func(error)) error {
	d.mu.Lock()
	ssid, keyMgmt, passphrase := d.SSID, d.KeyMgmt, d.passphrase
	d.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	d.mu.Lock()
	d.cancel = cancel
	d.mu.Unlock()

	setupCtx, setupCancel := context.WithTimeout(ctx, callTimeout)
	defer setupCancel()

	iface, err := d.Client.GetInterface(setupCtx, d.Interface)
	if err != nil {
		cancel()
		return errors.Wrap(err, errors.KindTransport, "supplicant: resolve interface failed")
	}

	args := map[string]any{"ssid": ssid, "key_mgmt": keyMgmt}
	if keyMgmt == "WPA-PSK" {
		args["psk"] = passphrase
	}
	network, err := d.Client.AddNetwork(setupCtx, iface, args)
	if err != nil {
		cancel()
		return errors.Wrap(err, errors.KindTransport, "supplicant: add_network failed")
	}
	if err := d.Client.SelectNetwork(setupCtx, iface, network); err != nil {
		cancel()
		return errors.Wrap(err, errors.KindTransport, "supplicant: select_network failed")
	}

	d.mu.Lock()
	d.iface = iface
	d.network = network
	d.mu.Unlock()

	go d.pollUntilAssociated(ctx, iface, linkUp, failed)
	return nil
}

// pollUntilAssociated runs on its own goroutine, never on the loop, since
// CurrentState is a blocking D-Bus round trip; it rejoins the loop via
// Post the same way internal/ipconfig's Provider contract requires.
func (d *Driver) pollUntilAssociated(ctx context.Context, iface Interface, linkUp func(), failed func(error)) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		state, err := d.Client.CurrentState(ctx, iface)
		if err != nil {
			d.Loop.Post(func() { failed(err) })
			return
		}
		switch state {
		case StateCompleted:
			d.Loop.Post(linkUp)
			return
		case StateDisconnected:
			d.Loop.Post(func() {
				failed(errors.Errorf(errors.KindTransport, "supplicant: association dropped before completion"))
			})
			return
		}
	}
}

// Disconnect tells wpa_supplicant to drop association and stops the
// background poll; internal/service has already moved on, so errors here
// are not reported anywhere but the log.
func (d *Driver) Disconnect() {
	d.mu.Lock()
	cancel := d.cancel
	iface, network := d.iface, d.network
	d.cancel = nil
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if iface.Path == "" {
		return
	}
	ctx, done := context.WithTimeout(context.Background(), callTimeout)
	defer done()
	_ = d.Client.Disconnect(ctx, iface)
	if network != "" {
		_ = d.Client.RemoveNetwork(ctx, iface, network)
	}
}
