// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package manager

import (
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/require"
)

func TestBusAdapterGetProperties(t *testing.T) {
	mgr, _ := newTestManager(t)
	mgr.SetOfflineMode(true)
	a := NewBusAdapter(mgr, nil)

	props, dberr := a.GetProperties()
	require.Nil(t, dberr)
	require.Equal(t, "offline", props["State"].Value())
	require.Equal(t, true, props["OfflineMode"].Value())
}

func TestBusAdapterSetPropertyRejectsUnknownName(t *testing.T) {
	mgr, _ := newTestManager(t)
	a := NewBusAdapter(mgr, nil)

	dberr := a.SetProperty("Nonsense", dbus.MakeVariant("x"))
	require.NotNil(t, dberr)
}

func TestBusAdapterSetPropertyTogglesOfflineMode(t *testing.T) {
	mgr, _ := newTestManager(t)
	a := NewBusAdapter(mgr, nil)

	require.Nil(t, a.SetProperty("OfflineMode", dbus.MakeVariant(true)))
	require.True(t, mgr.OfflineMode())
}

func TestBusAdapterConnectServiceMissingErrors(t *testing.T) {
	mgr, _ := newTestManager(t)
	a := NewBusAdapter(mgr, nil)

	dberr := a.ConnectService("nope")
	require.NotNil(t, dberr)
}

func TestBusAdapterSessionLifecycle(t *testing.T) {
	mgr, _ := newTestManager(t)
	a := NewBusAdapter(mgr, nil)

	id, dberr := a.CreateSession(dbus.Sender("caller.1"))
	require.Nil(t, dberr)
	require.NotEmpty(t, id)
	require.Nil(t, a.DestroySession(id))
	require.NotNil(t, a.DestroySession(id))
}

func TestBusAdapterGetState(t *testing.T) {
	mgr, _ := newTestManager(t)
	a := NewBusAdapter(mgr, nil)

	state, dberr := a.GetState()
	require.Nil(t, dberr)
	require.Equal(t, "idle", state)
}

func TestBusAdapterRemoveProviderMissingErrors(t *testing.T) {
	mgr, _ := newTestManager(t)
	a := NewBusAdapter(mgr, nil)

	require.NotNil(t, a.RemoveProvider("nope"))
}
