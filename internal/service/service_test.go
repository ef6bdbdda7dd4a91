// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"grimm.is/connd/internal/eventloop"
	"grimm.is/connd/internal/ipconfig"
)

var errConnectTest = errors.New("service: test connect failure")

type fakeDriver struct {
	needsPass   bool
	pass        string
	connectErr  error
	linkUp      func()
	failed      func(error)
	disconnects int
}

func (d *fakeDriver) Connect(linkUp func(), failed func(error)) error {
	d.linkUp = linkUp
	d.failed = failed
	return d.connectErr
}
func (d *fakeDriver) Disconnect()              { d.disconnects++ }
func (d *fakeDriver) RequiresPassphrase() bool { return d.needsPass && d.pass == "" }
func (d *fakeDriver) SetPassphrase(p string)   { d.pass = p }

func newTestLoop() *eventloop.Loop {
	return eventloop.New(func(fds map[int]eventloop.Interest, timeout time.Duration) map[int]eventloop.Interest {
		return nil
	})
}

func TestServiceIdleToReadyOnIPBound(t *testing.T) {
	loop := newTestLoop()
	d := &fakeDriver{}
	svc := New("wifi_1", "home", TypeWifi, loop, d, nil, nil)

	var changes []State
	svc.onStateChanged = func(s *Service) { changes = append(changes, s.state) }

	require.NoError(t, svc.Connect(true, nil))
	require.Equal(t, StateAssociation, svc.State())

	d.linkUp()
	require.Equal(t, StateConfiguration, svc.State())

	svc.IPBound(ipconfig.FamilyV4, ipconfig.Address{})
	require.Equal(t, StateReady, svc.State())

	require.Equal(t, []State{StateAssociation, StateConfiguration, StateReady}, changes)
}

func TestServiceConnectFailurePropagates(t *testing.T) {
	loop := newTestLoop()
	d := &fakeDriver{}
	svc := New("wifi_2", "office", TypeWifi, loop, d, nil, nil)

	var replyErr error
	require.NoError(t, svc.Connect(true, func(err error) { replyErr = err }))
	d.linkUp()

	d.failed(errConnectTest)
	require.Equal(t, StateFailure, svc.State())
	require.Equal(t, errConnectTest, replyErr)
}

func TestServiceClearError(t *testing.T) {
	loop := newTestLoop()
	d := &fakeDriver{}
	svc := New("wifi_3", "cafe", TypeWifi, loop, d, nil, nil)
	require.NoError(t, svc.Connect(true, nil))
	d.linkUp()
	d.failed(errConnectTest)
	require.Equal(t, StateFailure, svc.State())

	svc.ClearError()
	require.Equal(t, StateIdle, svc.State())
}

func TestServiceDisconnectFromReady(t *testing.T) {
	loop := newTestLoop()
	d := &fakeDriver{}
	svc := New("wifi_4", "park", TypeWifi, loop, d, nil, nil)
	require.NoError(t, svc.Connect(true, nil))
	d.linkUp()
	svc.IPBound(ipconfig.FamilyV4, ipconfig.Address{})
	require.Equal(t, StateReady, svc.State())

	svc.Disconnect()
	require.Equal(t, StateIdle, svc.State())
	require.Equal(t, 1, d.disconnects)
}

func TestServiceMarkOnline(t *testing.T) {
	loop := newTestLoop()
	d := &fakeDriver{}
	obsCfg := ipconfig.New(ipconfig.FamilyV4, "wlan0", ipconfig.MethodManual, discardObserver{}, nil)
	svc := New("wifi_5", "lobby", TypeWifi, loop, d, obsCfg, nil)
	require.NoError(t, svc.Connect(true, nil))
	d.linkUp()
	svc.IPBound(ipconfig.FamilyV4, ipconfig.Address{})
	require.Equal(t, StateReady, svc.State())

	svc.MarkOnline(ipconfig.FamilyV4)
	require.Equal(t, StateOnline, svc.State())
}

func TestConnectRequiresPassphrase(t *testing.T) {
	loop := newTestLoop()
	d := &fakeDriver{needsPass: true}
	svc := New("wifi_6", "secure", TypeWifi, loop, d, nil, nil)

	err := svc.Connect(true, nil)
	require.Error(t, err)
	require.Equal(t, StateIdle, svc.State())
}

func TestCombineState(t *testing.T) {
	require.Equal(t, StateOnline, combine(StateIdle, StateOnline))
	require.Equal(t, StateOnline, combine(StateOnline, StateReady))
	require.Equal(t, StateIdle, combine(StateIdle, StateIdle))
	require.Equal(t, StateDisconnect, combine(StateFailure, StateDisconnect))
}

type discardObserver struct{}

func (discardObserver) Up(ipconfig.Family)                        {}
func (discardObserver) Down(ipconfig.Family)                      {}
func (discardObserver) LowerUp(ipconfig.Family)                   {}
func (discardObserver) LowerDown(ipconfig.Family)                 {}
func (discardObserver) IPBound(ipconfig.Family, ipconfig.Address) {}
func (discardObserver) IPReleased(ipconfig.Family)                {}
