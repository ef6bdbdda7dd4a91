// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package firewall

// RuleSnapshot is a read-only view of one Entry, returned by Dump for
// diagnostics and tests.
type RuleSnapshot struct {
	Chain        string
	Offset       int
	TargetOffset int
	NextOffset   int
	Builtin      bool
	Source, Dest string
	Target       string
}

// Dump returns every entry in on-wire order, for introspection (the bus
// GetProperties path eventually surfaces a summarized version of this per
// spec.md §7).
func (t *Table) Dump() []RuleSnapshot {
	out := make([]RuleSnapshot, 0, len(t.Entries))
	for _, e := range t.Entries {
		target := e.Target.Name
		if target == "" {
			target = verdictName(e.Target.Verdict)
		}
		chain := e.Chain
		if e.IsErrorTarget {
			chain = e.Target.Name
		}
		out = append(out, RuleSnapshot{
			Chain:        chain,
			Offset:       e.Offset,
			TargetOffset: e.TargetOffset,
			NextOffset:   e.NextOffset,
			Builtin:      e.Builtin >= 0,
			Source:       e.Source,
			Dest:         e.Dest,
			Target:       target,
		})
	}
	return out
}

func verdictName(v Verdict) string {
	switch v {
	case VerdictDrop:
		return "DROP"
	case VerdictAccept:
		return "ACCEPT"
	case VerdictReturn:
		return "RETURN"
	case VerdictQueue:
		return "QUEUE"
	case VerdictStop:
		return "STOP"
	case VerdictStolen:
		return "STOLEN"
	default:
		return "JUMP"
	}
}
