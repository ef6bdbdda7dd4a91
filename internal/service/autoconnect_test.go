// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package service

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAutoConnectSkipsSessionMode(t *testing.T) {
	c := NewCollection()
	loop := newTestLoop()
	svc := New("s1", "one", TypeWifi, loop, &fakeDriver{}, nil, nil)
	svc.Favorite, svc.AutoConnect = true, true
	c.Add(svc)

	AutoConnect(c, true)
	require.Equal(t, StateIdle, svc.State())
}

func TestAutoConnectPicksFirstEligible(t *testing.T) {
	c := NewCollection()
	loop := newTestLoop()

	ineligible := New("s1", "no-autoconnect", TypeWifi, loop, &fakeDriver{}, nil, nil)
	ineligible.Favorite = true

	eligible := New("s2", "yes", TypeWifi, loop, &fakeDriver{}, nil, nil)
	eligible.Favorite, eligible.AutoConnect = true, true

	c.Add(ineligible)
	c.Add(eligible)

	AutoConnect(c, false)
	require.Equal(t, StateAssociation, eligible.State())
	require.Equal(t, StateIdle, ineligible.State())
}

func TestAutoConnectNoopWhenAlreadyConnecting(t *testing.T) {
	c := NewCollection()
	loop := newTestLoop()

	connecting := New("s1", "busy", TypeWifi, loop, &fakeDriver{}, nil, nil)
	connecting.state = StateAssociation

	eligible := New("s2", "yes", TypeWifi, loop, &fakeDriver{}, nil, nil)
	eligible.Favorite, eligible.AutoConnect = true, true

	c.Add(connecting)
	c.Add(eligible)

	AutoConnect(c, false)
	require.Equal(t, StateIdle, eligible.State())
}

func TestUserConnectPromptsAgentForPassphrase(t *testing.T) {
	loop := newTestLoop()
	d := &fakeDriver{needsPass: true}
	svc := New("s1", "secure", TypeWifi, loop, d, nil, nil)

	agent := &fakeAgent{pass: "hunter2"}
	require.NoError(t, UserConnect(svc, agent, nil))
	require.Equal(t, "hunter2", d.pass)
	require.Equal(t, StateAssociation, svc.State())
}

func TestUserConnectFailsWithoutAgent(t *testing.T) {
	loop := newTestLoop()
	d := &fakeDriver{needsPass: true}
	svc := New("s1", "secure", TypeWifi, loop, d, nil, nil)

	err := UserConnect(svc, nil, nil)
	require.Error(t, err)
	require.Equal(t, StateFailure, svc.State())
}

type fakeAgent struct{ pass string }

func (a *fakeAgent) RequestPassphrase(identifier string) (string, error) { return a.pass, nil }
