// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package firewall

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewTableHasBuiltins(t *testing.T) {
	tbl := NewTable(ProtoIPv4)
	require.Len(t, tbl.Entries, 3)
	require.Equal(t, 0, tbl.Entries[0].Offset)
	for i := 1; i < len(tbl.Entries); i++ {
		require.Equal(t, tbl.Entries[i-1].Offset+tbl.Entries[i-1].NextOffset, tbl.Entries[i].Offset)
	}
}

// TestAppendDeleteRoundTrip mirrors spec.md's example #3: append a rule to
// INPUT, then delete it, and expect the table to return to its original
// shape (same entries, same offsets).
func TestAppendDeleteRoundTrip(t *testing.T) {
	tbl := NewTable(ProtoIPv4)
	before := snapshotOffsets(tbl)

	rule := &Entry{Source: "10.0.0.1/32", Target: Target{Verdict: VerdictDrop}}
	require.NoError(t, tbl.AppendRule("INPUT", rule))
	require.Len(t, tbl.Entries, 4)

	// FORWARD and OUTPUT heads must have shifted by the inserted rule's size.
	require.Equal(t, before[1]+rule.NextOffset, tbl.Entries[2].Offset)
	require.Equal(t, before[2]+rule.NextOffset, tbl.Entries[3].Offset)

	require.NoError(t, tbl.DeleteRule("INPUT", &Entry{
		Source:       "10.0.0.1/32",
		TargetOffset: rule.TargetOffset,
		NextOffset:   rule.NextOffset,
		Target:       Target{Verdict: VerdictDrop},
	}))

	after := snapshotOffsets(tbl)
	require.Equal(t, before, after)
	require.Len(t, tbl.Entries, 3)
}

func TestInsertPutsRuleFirst(t *testing.T) {
	tbl := NewTable(ProtoIPv4)
	first := &Entry{Source: "10.0.0.1/32", Target: Target{Verdict: VerdictDrop}}
	second := &Entry{Source: "10.0.0.2/32", Target: Target{Verdict: VerdictDrop}}

	require.NoError(t, tbl.InsertRule("INPUT", first))
	require.NoError(t, tbl.InsertRule("INPUT", second))

	require.Equal(t, "10.0.0.2/32", tbl.Entries[1].Source)
	require.Equal(t, "10.0.0.1/32", tbl.Entries[2].Source)
}

func TestAddDeleteChain(t *testing.T) {
	tbl := NewTable(ProtoIPv4)
	require.NoError(t, tbl.AddChain("connd-input"))
	require.Contains(t, tbl.Chains(), "connd-input")

	rule := &Entry{Target: Target{Verdict: VerdictAccept}}
	require.NoError(t, tbl.AppendRule("connd-input", rule))

	require.Error(t, tbl.DeleteChain("connd-input"), "non-empty chain must not be deletable")

	require.NoError(t, tbl.FlushChain("connd-input"))
	require.NoError(t, tbl.DeleteChain("connd-input"))
	require.NotContains(t, tbl.Chains(), "connd-input")
}

func TestDeleteChainRejectsBuiltin(t *testing.T) {
	tbl := NewTable(ProtoIPv4)
	require.Error(t, tbl.DeleteChain("INPUT"))
}

func TestChangePolicy(t *testing.T) {
	tbl := NewTable(ProtoIPv4)
	require.NoError(t, tbl.ChangePolicy(HookForward, VerdictDrop))
	require.Equal(t, VerdictDrop, tbl.Entries[1].Target.Verdict)
}

func TestFirstRuleInheritsBuiltinFlag(t *testing.T) {
	tbl := NewTable(ProtoIPv4)
	rule := &Entry{Target: Target{Verdict: VerdictAccept}}
	require.NoError(t, tbl.AppendRule("INPUT", rule))
	require.True(t, rule.Builtin >= 0)

	second := &Entry{Target: Target{Verdict: VerdictDrop}}
	require.NoError(t, tbl.AppendRule("INPUT", second))
	require.True(t, second.Builtin < 0)
}

func snapshotOffsets(tbl *Table) []int {
	offsets := make([]int, len(tbl.Entries))
	for i, e := range tbl.Entries {
		offsets[i] = e.Offset
	}
	return offsets
}
