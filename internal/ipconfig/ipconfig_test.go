// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ipconfig

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	ups, downs, lowerUps, lowerDowns int
	bound                            []Address
	released                         int
}

func (o *recordingObserver) Up(Family)                   { o.ups++ }
func (o *recordingObserver) Down(Family)                 { o.downs++ }
func (o *recordingObserver) LowerUp(Family)              { o.lowerUps++ }
func (o *recordingObserver) LowerDown(Family)            { o.lowerDowns++ }
func (o *recordingObserver) IPBound(f Family, a Address) { o.bound = append(o.bound, a) }
func (o *recordingObserver) IPReleased(Family)           { o.released++ }

func TestManualEnableEntersReady(t *testing.T) {
	obs := &recordingObserver{}
	cfg := New(FamilyV4, "eth0", MethodManual, obs, nil)
	cfg.Static = Address{Local: net.ParseIP("192.168.1.10"), PrefixLen: 24}

	require.NoError(t, cfg.Enable())
	require.Equal(t, StateReady, cfg.State())
	require.Len(t, obs.bound, 1)
	require.Equal(t, "192.168.1.10", cfg.Current().Local.String())
}

func TestDisableReleasesFromReady(t *testing.T) {
	obs := &recordingObserver{}
	cfg := New(FamilyV4, "eth0", MethodFixed, obs, nil)
	cfg.Static = Address{Local: net.ParseIP("10.0.0.5"), PrefixLen: 24}
	require.NoError(t, cfg.Enable())

	cfg.Disable()
	require.Equal(t, StateIdle, cfg.State())
	require.Equal(t, 1, obs.released)
}

func TestDisableIsIdempotent(t *testing.T) {
	obs := &recordingObserver{}
	cfg := New(FamilyV4, "eth0", MethodOff, obs, nil)
	cfg.Disable()
	require.Equal(t, 0, obs.released)
}

func TestMarkOnlineFromReady(t *testing.T) {
	obs := &recordingObserver{}
	cfg := New(FamilyV4, "eth0", MethodManual, obs, nil)
	cfg.Static = Address{Local: net.ParseIP("192.168.1.10"), PrefixLen: 24}
	require.NoError(t, cfg.Enable())

	cfg.MarkOnline()
	require.Equal(t, StateOnline, cfg.State())
	require.Equal(t, 1, obs.ups)
}

func TestDHCPMethodRequiresProvider(t *testing.T) {
	obs := &recordingObserver{}
	cfg := New(FamilyV4, "eth0", MethodDHCP, obs, nil)
	require.Error(t, cfg.Enable())
}

func TestEui64Address(t *testing.T) {
	mac, err := net.ParseMAC("02:11:22:33:44:55")
	require.NoError(t, err)
	prefix := net.ParseIP("2001:db8::")

	addr := eui64Address(prefix, mac)
	require.Equal(t, "2001:db8::11:22ff:fe33:4455", addr.String())
}
