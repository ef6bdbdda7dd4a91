// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package supplicant

import (
	"context"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/require"

	"grimm.is/connd/internal/eventloop"
)

type fakeRPC struct {
	state State
}

func (f *fakeRPC) GetInterface(ctx context.Context, ifaceName string) (Interface, error) {
	return Interface{Path: dbus.ObjectPath("/fi/w1/wpa_supplicant1/Interfaces/1")}, nil
}

func (f *fakeRPC) AddNetwork(ctx context.Context, iface Interface, args map[string]any) (dbus.ObjectPath, error) {
	return dbus.ObjectPath("/fi/w1/wpa_supplicant1/Interfaces/1/Networks/1"), nil
}

func (f *fakeRPC) SelectNetwork(ctx context.Context, iface Interface, network dbus.ObjectPath) error {
	return nil
}

func (f *fakeRPC) RemoveNetwork(ctx context.Context, iface Interface, network dbus.ObjectPath) error {
	return nil
}

func (f *fakeRPC) Disconnect(ctx context.Context, iface Interface) error { return nil }

func (f *fakeRPC) CurrentState(ctx context.Context, iface Interface) (State, error) {
	return f.state, nil
}

func newTestLoop() *eventloop.Loop {
	return eventloop.New(func(fds map[int]eventloop.Interest, timeout time.Duration) map[int]eventloop.Interest {
		return nil
	})
}

func TestDriverConnectCallsLinkUpOnCompleted(t *testing.T) {
	loop := newTestLoop()
	go loop.Run()
	defer loop.Stop()

	rpc := &fakeRPC{state: StateCompleted}
	d := &Driver{Client: rpc, Interface: "wlan0", SSID: "home", KeyMgmt: "NONE", Loop: loop}

	done := make(chan struct{})
	require.NoError(t, d.Connect(func() { close(done) }, func(error) { close(done) }))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("linkUp never called")
	}
}

func TestDriverRequiresPassphraseForPSK(t *testing.T) {
	d := &Driver{KeyMgmt: "WPA-PSK"}
	require.True(t, d.RequiresPassphrase())
	d.SetPassphrase("hunter2")
	require.False(t, d.RequiresPassphrase())
}

func TestDriverDisconnectCancelsPoll(t *testing.T) {
	loop := newTestLoop()
	go loop.Run()
	defer loop.Stop()

	rpc := &fakeRPC{state: StateAssociating}
	d := &Driver{Client: rpc, Interface: "wlan0", SSID: "home", KeyMgmt: "NONE", Loop: loop}

	require.NoError(t, d.Connect(func() {}, func(error) {}))
	d.Disconnect()
}
