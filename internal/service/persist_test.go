// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"grimm.is/connd/internal/keyfile"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	store := keyfile.NewStore(t.TempDir())
	loop := newTestLoop()
	svc := New("wifi_roundtrip", "home", TypeWifi, loop, &fakeDriver{}, nil, nil)
	svc.Favorite = true
	svc.AutoConnect = true
	svc.Passphrase = "s3cr3t"

	require.NoError(t, svc.Save(store, keyfile.Record{}))

	other := New("wifi_roundtrip", "home", TypeWifi, loop, &fakeDriver{}, nil, nil)
	_, err := other.Load(store)
	require.NoError(t, err)
	require.True(t, other.Favorite)
	require.True(t, other.AutoConnect)
	require.Equal(t, "s3cr3t", other.Passphrase)
}

func TestLoadMissingRecordLeavesDefaults(t *testing.T) {
	store := keyfile.NewStore(t.TempDir())
	loop := newTestLoop()
	svc := New("never_saved", "x", TypeWifi, loop, &fakeDriver{}, nil, nil)

	_, err := svc.Load(store)
	require.NoError(t, err)
	require.False(t, svc.Favorite)
	require.False(t, svc.AutoConnect)
}
