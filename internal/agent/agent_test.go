// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package agent

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryRegisterUnregister(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Current()
	require.False(t, ok)

	require.NoError(t, r.Register(nil, ":1.1", "/net/connd/Agent"))
	_, ok = r.Current()
	require.True(t, ok)

	err := r.Register(nil, ":1.2", "/net/connd/Agent")
	require.Error(t, err)

	require.Error(t, r.Unregister(":1.2"))
	require.NoError(t, r.Unregister(":1.1"))
	_, ok = r.Current()
	require.False(t, ok)
}

func TestRegistryReleaseOwner(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(nil, ":1.1", "/net/connd/Agent"))

	r.ReleaseOwner(":1.2")
	_, ok := r.Current()
	require.True(t, ok, "releasing a different owner must not clear the registration")

	r.ReleaseOwner(":1.1")
	_, ok = r.Current()
	require.False(t, ok)
}
