// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package clock

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errUnreachable = errors.New("clock: test server unreachable")

func stubSetSystemTime(t *testing.T, fn func(time.Time) error) func() {
	t.Helper()
	original := setSystemTimeFunc
	setSystemTimeFunc = fn
	return func() { setSystemTimeFunc = original }
}

type fakeQuerier struct {
	offsets map[string]time.Duration
	errs    map[string]error
}

func (f fakeQuerier) Query(server string) (time.Duration, error) {
	if err, ok := f.errs[server]; ok {
		return 0, err
	}
	return f.offsets[server], nil
}

func TestSyncUsesFirstSuccessfulServer(t *testing.T) {
	var set time.Time
	restore := stubSetSystemTime(t, func(tt time.Time) error {
		set = tt
		return nil
	})
	defer restore()

	q := fakeQuerier{
		errs:    map[string]error{"bad.example": errUnreachable},
		offsets: map[string]time.Duration{"good.example": 2 * time.Second},
	}
	winner, err := Sync(q, []string{"bad.example", "good.example"})
	require.NoError(t, err)
	require.Equal(t, "good.example", winner)
	require.False(t, set.IsZero())
}

func TestSyncFailsWhenAllServersFail(t *testing.T) {
	restore := stubSetSystemTime(t, func(time.Time) error { return nil })
	defer restore()

	q := fakeQuerier{errs: map[string]error{"a": errUnreachable, "b": errUnreachable}}
	_, err := Sync(q, []string{"a", "b"})
	require.Error(t, err)
}

func TestSyncUsesDefaultServersWhenNoneGiven(t *testing.T) {
	restore := stubSetSystemTime(t, func(time.Time) error { return nil })
	defer restore()

	q := fakeQuerier{offsets: map[string]time.Duration{DefaultServers[0]: time.Second}}
	winner, err := Sync(q, nil)
	require.NoError(t, err)
	require.Equal(t, DefaultServers[0], winner)
}
