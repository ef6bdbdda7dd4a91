// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package service

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func plainService(id string, typ Type) *Service {
	return &Service{Identifier: id, Type: typ, driver: &fakeDriver{}}
}

func TestCollectionOrdersConnectedFirst(t *testing.T) {
	c := NewCollection()
	idle := plainService("idle", TypeWifi)
	ready := plainService("ready", TypeWifi)
	ready.state = StateReady

	c.Add(idle)
	c.Add(ready)

	svcs := c.Services()
	require.Equal(t, "ready", svcs[0].Identifier)
	require.Equal(t, "idle", svcs[1].Identifier)
}

func TestCollectionOnlineBeforeReady(t *testing.T) {
	c := NewCollection()
	ready := plainService("ready", TypeWifi)
	ready.state = StateReady
	online := plainService("online", TypeWifi)
	online.state = StateOnline

	c.Add(ready)
	c.Add(online)

	svcs := c.Services()
	require.Equal(t, "online", svcs[0].Identifier)
}

func TestCollectionOrderAttributeDescending(t *testing.T) {
	c := NewCollection()
	low := plainService("low", TypeVPN)
	low.Order = 1
	high := plainService("high", TypeVPN)
	high.Order = 10

	c.Add(low)
	c.Add(high)

	svcs := c.Services()
	require.Equal(t, "high", svcs[0].Identifier)
}

func TestCollectionFavoriteBeforeNonFavorite(t *testing.T) {
	c := NewCollection()
	plain := plainService("plain", TypeWifi)
	fav := plainService("fav", TypeWifi)
	fav.Favorite = true

	c.Add(plain)
	c.Add(fav)

	svcs := c.Services()
	require.Equal(t, "fav", svcs[0].Identifier)
}

func TestCollectionWifiRanksBelowCellular(t *testing.T) {
	c := NewCollection()
	wifi := plainService("wifi", TypeWifi)
	cellular := plainService("cellular", TypeCellular)

	c.Add(wifi)
	c.Add(cellular)

	svcs := c.Services()
	require.Equal(t, "cellular", svcs[0].Identifier)
}

func TestCollectionStrengthDescending(t *testing.T) {
	c := NewCollection()
	weak := plainService("weak", TypeWifi)
	weak.Strength = 20
	strong := plainService("strong", TypeWifi)
	strong.Strength = 90

	c.Add(weak)
	c.Add(strong)

	svcs := c.Services()
	require.Equal(t, "strong", svcs[0].Identifier)
}

func TestCollectionDefaultIsFirstConnected(t *testing.T) {
	c := NewCollection()
	idle := plainService("idle", TypeWifi)
	ready := plainService("ready", TypeEthernet)
	ready.state = StateReady

	c.Add(idle)
	c.Add(ready)

	def, ok := c.Default()
	require.True(t, ok)
	require.Equal(t, "ready", def.Identifier)
}

func TestCollectionRemove(t *testing.T) {
	c := NewCollection()
	c.Add(plainService("a", TypeWifi))
	c.Add(plainService("b", TypeWifi))

	c.Remove("a")
	_, ok := c.Lookup("a")
	require.False(t, ok)
	require.Len(t, c.Services(), 1)
}
