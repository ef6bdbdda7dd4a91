// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package manager

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"grimm.is/connd/internal/agent"
	"grimm.is/connd/internal/eventloop"
	"grimm.is/connd/internal/ipconfig"
	"grimm.is/connd/internal/service"
)

type fakeDriver struct {
	connectErr error
	linkUp     func()
}

func (d *fakeDriver) Connect(linkUp func(), failed func(error)) error {
	d.linkUp = linkUp
	return d.connectErr
}
func (d *fakeDriver) Disconnect()              {}
func (d *fakeDriver) RequiresPassphrase() bool { return false }
func (d *fakeDriver) SetPassphrase(string)     {}

func newTestLoop() *eventloop.Loop {
	return eventloop.New(func(fds map[int]eventloop.Interest, timeout time.Duration) map[int]eventloop.Interest {
		return nil
	})
}

func newTestManager(t *testing.T) (*Manager, *service.Collection) {
	t.Helper()
	svcs := service.NewCollection()
	mgr := New(svcs, agent.NewRegistry(), nil, nil)
	return mgr, svcs
}

func TestGetPropertiesReflectsDefaultService(t *testing.T) {
	mgr, svcs := newTestManager(t)
	loop := newTestLoop()
	d := &fakeDriver{}
	cfg := ipconfig.New(ipconfig.FamilyV4, "wlan0", ipconfig.MethodManual, discardObserver{}, nil)
	s := service.New("wifi_home", "home", service.TypeWifi, loop, d, cfg, nil)
	svcs.Add(s)
	svcs.Resort()

	props := mgr.GetProperties()
	require.Equal(t, "idle", props.State)
	require.False(t, props.OfflineMode)

	require.NoError(t, s.Connect(true, nil))
	d.linkUp()
	s.IPBound(ipconfig.FamilyV4, ipconfig.Address{})
	s.MarkOnline(ipconfig.FamilyV4)
	svcs.Resort()

	props = mgr.GetProperties()
	require.Equal(t, "online", props.State)
}

func TestSetOfflineModeDisconnectsServices(t *testing.T) {
	mgr, svcs := newTestManager(t)
	loop := newTestLoop()
	d := &fakeDriver{}
	s := service.New("wifi_home", "home", service.TypeWifi, loop, d, nil, nil)
	svcs.Add(s)
	require.NoError(t, s.Connect(true, nil))
	d.linkUp()

	mgr.SetOfflineMode(true)
	require.True(t, mgr.OfflineMode())
	require.Equal(t, service.StateIdle, s.State())
}

func TestGetServicesReturnsCollectionOrder(t *testing.T) {
	mgr, svcs := newTestManager(t)
	loop := newTestLoop()
	svcs.Add(service.New("wifi_a", "a", service.TypeWifi, loop, &fakeDriver{}, nil, nil))
	svcs.Add(service.New("wifi_b", "b", service.TypeWifi, loop, &fakeDriver{}, nil, nil))
	svcs.Resort()

	infos := mgr.GetServices()
	require.Len(t, infos, 2)
}

func TestLookupServiceMissingErrors(t *testing.T) {
	mgr, _ := newTestManager(t)
	_, err := mgr.LookupService("nope")
	require.Error(t, err)
}

func TestConnectServiceRejectedInSessionMode(t *testing.T) {
	mgr, svcs := newTestManager(t)
	loop := newTestLoop()
	svcs.Add(service.New("wifi_a", "a", service.TypeWifi, loop, &fakeDriver{}, nil, nil))
	mgr.SetSessionMode(true)

	err := mgr.ConnectService(t.Context(), "wifi_a", nil)
	require.Error(t, err)
}

func TestEnableDisableTechnologyRequiresAvailability(t *testing.T) {
	mgr, _ := newTestManager(t)
	err := mgr.EnableTechnology(service.TypeWifi)
	require.Error(t, err)

	mgr.SetAvailableTechnologies(service.TypeWifi)
	require.NoError(t, mgr.EnableTechnology(service.TypeWifi))
	require.True(t, mgr.TechnologyEnabled(service.TypeWifi))
}

func TestDisableTechnologyDisconnectsMatchingServices(t *testing.T) {
	mgr, svcs := newTestManager(t)
	loop := newTestLoop()
	d := &fakeDriver{}
	s := service.New("wifi_a", "a", service.TypeWifi, loop, d, nil, nil)
	svcs.Add(s)
	mgr.SetAvailableTechnologies(service.TypeWifi)
	require.NoError(t, mgr.EnableTechnology(service.TypeWifi))
	require.NoError(t, s.Connect(true, nil))
	d.linkUp()

	require.NoError(t, mgr.DisableTechnology(service.TypeWifi))
	require.Equal(t, service.StateIdle, s.State())
	require.False(t, mgr.TechnologyEnabled(service.TypeWifi))
}

func TestRequestScanRequiresRegisteredScanner(t *testing.T) {
	mgr, _ := newTestManager(t)
	mgr.SetAvailableTechnologies(service.TypeWifi)
	require.NoError(t, mgr.EnableTechnology(service.TypeWifi))

	err := mgr.RequestScan(service.TypeWifi)
	require.Error(t, err)

	mgr.RegisterScanner(service.TypeWifi, scanFunc(func() error { return nil }))
	require.NoError(t, mgr.RequestScan(service.TypeWifi))
}

func TestSessionCreateDestroy(t *testing.T) {
	mgr, _ := newTestManager(t)
	s := mgr.CreateSession("caller.1")
	require.NotEmpty(t, s.id)
	require.NoError(t, mgr.DestroySession(s.id))
	require.Error(t, mgr.DestroySession(s.id))
}

func TestRequestPrivateNetworkWithoutTetheringErrors(t *testing.T) {
	mgr, _ := newTestManager(t)
	_, err := mgr.RequestPrivateNetwork()
	require.Error(t, err)
}

func TestGetStateMatchesProperties(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.Equal(t, mgr.GetProperties().State, mgr.GetState())

	mgr.SetOfflineMode(true)
	require.Equal(t, "offline", mgr.GetState())
}

func TestRemoveProviderUnregisters(t *testing.T) {
	mgr, _ := newTestManager(t)
	mgr.vpns.Register(fakeProvider{id: "vpn_1"})

	_, ok := mgr.vpns.Lookup("vpn_1")
	require.True(t, ok)

	require.NoError(t, mgr.RemoveProvider("vpn_1"))
	_, ok = mgr.vpns.Lookup("vpn_1")
	require.False(t, ok)

	require.Error(t, mgr.RemoveProvider("vpn_1"))
}

type fakeProvider struct{ id string }

func (f fakeProvider) Identifier() string                   { return f.id }
func (f fakeProvider) Interface() string                    { return "vpn0" }
func (f fakeProvider) Connect(ctx context.Context) error    { return nil }
func (f fakeProvider) Disconnect(ctx context.Context) error { return nil }
func (f fakeProvider) Connected() bool                      { return false }

type scanFunc func() error

func (f scanFunc) Scan() error { return f() }

type discardObserver struct{}

func (discardObserver) Up(ipconfig.Family)                        {}
func (discardObserver) Down(ipconfig.Family)                      {}
func (discardObserver) LowerUp(ipconfig.Family)                   {}
func (discardObserver) LowerDown(ipconfig.Family)                 {}
func (discardObserver) IPBound(ipconfig.Family, ipconfig.Address) {}
func (discardObserver) IPReleased(ipconfig.Family)                {}
