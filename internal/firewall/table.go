// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package firewall is connd's in-memory mirror of the kernel packet-filter
// table (component E, spec.md §2/§3/§4.E): chain CRUD, rule add/insert/
// append/delete, jump-offset maintenance, and atomic commit. The mirror
// follows the classic iptables-legacy blob layout (entries at monotonically
// increasing byte offsets, builtin hook_entry/underflow cursors, jump
// targets expressed as verdict offsets); the actual kernel-facing commit
// step uses google/nftables' atomic transaction instead of a raw
// setsockopt(IPT_SO_SET_REPLACE) call, since no iptables-legacy Go binding
// exists among the retrieved dependencies (see DESIGN.md).
package firewall

import "sort"

// Hook indexes a builtin chain within a Table's valid_hooks bitmap, mirroring
// NF_IP_PRE_ROUTING .. NF_IP_POST_ROUTING ordering. connd's filter table
// only ever populates the three filter-family hooks.
type Hook int

const (
	HookInput Hook = iota
	HookForward
	HookOutput
	hookCount
)

func (h Hook) String() string {
	switch h {
	case HookInput:
		return "INPUT"
	case HookForward:
		return "FORWARD"
	case HookOutput:
		return "OUTPUT"
	default:
		return "UNKNOWN"
	}
}

// Verdict is a standard target's outcome. Special verdicts never shift
// under offset maintenance; any other non-negative value is itself a byte
// offset elsewhere in the table (a jump).
type Verdict int32

const (
	VerdictDrop   Verdict = -1
	VerdictAccept Verdict = -2
	VerdictStolen Verdict = -3
	VerdictQueue  Verdict = -4
	VerdictReturn Verdict = -5
	VerdictStop   Verdict = -6
)

func (v Verdict) isSpecial() bool { return v < 0 }

// Match is a simplified stand-in for a kernel match structure: a name (e.g.
// "tcp", "udp", "iprange") plus opaque comparison data. Equality for delete
// compares match entries by Name and raw Data.
type Match struct {
	Name string
	Data string
}

// Target is either a standard verdict (jump/accept/drop/...) or a jump to a
// user-defined chain by name, resolved to a byte offset at commit time.
type Target struct {
	Name string // "" for a standard verdict, "ERROR" for a chain head, else chain name for a user jump
	// Verdict holds the outcome for a standard target. For a jump to a
	// user chain, Verdict holds the jump's resolved offset once computed by
	// updateOffsets; it is meaningless until then.
	Verdict Verdict
}

// Entry is one rule (or chain head/error-target marker) in the table's
// linked order. TargetOffset and NextOffset are byte lengths within the
// kernel blob layout: TargetOffset is the length of the match headers
// preceding the target, NextOffset is TargetOffset plus the target's own
// length, i.e. the size of this whole entry.
type Entry struct {
	// Offset is this entry's byte position, recomputed by updateOffsets as
	// the running sum of every prior entry's NextOffset.
	Offset       int
	TargetOffset int
	NextOffset   int

	// Builtin is the hook index this entry is the head of, or -1 for a
	// plain rule or a non-builtin chain's error-target head.
	Builtin int

	// Chain is the user-defined chain this entry logically belongs to (""
	// for builtin chains), used by chain head/tail lookup.
	Chain string
	// IsErrorTarget marks an entry as a user chain's head marker (the
	// "ERROR" target whose Target.Name carries the chain's name), the
	// iptables-legacy mechanism for naming a chain that isn't built in.
	IsErrorTarget bool

	Source, Dest string // CIDR, "" matches anything
	Matches      []Match
	Target       Target
}

func (e *Entry) size() int { return e.NextOffset }

// equalForDelete implements spec.md §4.E's rule-equality rule used by
// Delete: bitwise comparison of the ip fields plus TargetOffset/NextOffset,
// with match and target structures compared by length and name (and
// verdict for standard targets).
func (e *Entry) equalForDelete(other *Entry) bool {
	if e.Source != other.Source || e.Dest != other.Dest {
		return false
	}
	if e.TargetOffset != other.TargetOffset || e.NextOffset != other.NextOffset {
		return false
	}
	if len(e.Matches) != len(other.Matches) {
		return false
	}
	for i := range e.Matches {
		if e.Matches[i].Name != other.Matches[i].Name || len(e.Matches[i].Data) != len(other.Matches[i].Data) {
			return false
		}
	}
	if e.Target.Name != other.Target.Name {
		return false
	}
	if e.Target.Name == "" && e.Target.Verdict != other.Target.Verdict {
		return false
	}
	return true
}

// Table is the in-memory mirror of one protocol family's filter table
// (ProtoIPv4 or ProtoIPv6, see constants.go).
type Table struct {
	Name      string
	Proto     int
	Entries   []*Entry // ordered, index 0..n-1 is the on-wire order
	HookEntry map[Hook]int
	Underflow map[Hook]int
}

// NewTable builds an empty filter table with the three standard builtin
// chains and an ACCEPT policy, the same starting point
// `iptables -t filter -L` shows on a freshly booted kernel.
func NewTable(proto int) *Table {
	t := &Table{
		Name:      "filter",
		Proto:     proto,
		HookEntry: map[Hook]int{},
		Underflow: map[Hook]int{},
	}
	for _, h := range []Hook{HookInput, HookForward, HookOutput} {
		policy := &Entry{Builtin: int(h), Target: Target{Verdict: VerdictAccept}}
		policy.TargetOffset = baseEntrySize
		policy.NextOffset = baseEntrySize
		t.Entries = append(t.Entries, policy)
	}
	t.updateOffsets(0, 0)
	for _, e := range t.Entries {
		t.HookEntry[Hook(e.Builtin)] = e.Offset
		t.Underflow[Hook(e.Builtin)] = e.Offset
	}
	return t
}

// baseEntrySize approximates struct ipt_entry's fixed header size; real
// byte-exactness against the kernel ABI is not required since connd never
// parses a blob it didn't produce itself, only maintains internal
// consistency of offsets.
const baseEntrySize = 112

// chainHeadIndex implements spec.md §4.E's "chain head lookup": a linear
// scan for the first built-in head whose hook names the chain, or for an
// error-target entry whose data equals the chain name.
func (t *Table) chainHeadIndex(chain string) (int, bool) {
	if h, ok := builtinHookByName(chain); ok {
		for i, e := range t.Entries {
			if e.Builtin == int(h) {
				return i, true
			}
		}
		return 0, false
	}
	for i, e := range t.Entries {
		if e.IsErrorTarget && e.Target.Name == chain {
			return i, true
		}
	}
	return 0, false
}

// chainTailIndex implements spec.md §4.E's "chain tail lookup": starting
// after the head, the first entry that is itself a chain head (builtin or
// error-target), else the position just past the last entry. A rule that
// inherited its chain's builtin flag carries a Chain name and is not a head.
func (t *Table) chainTailIndex(headIdx int) int {
	for i := headIdx + 1; i < len(t.Entries); i++ {
		e := t.Entries[i]
		if (e.Builtin >= 0 && e.Chain == "") || e.IsErrorTarget {
			return i
		}
	}
	return len(t.Entries)
}

func builtinHookByName(name string) (Hook, bool) {
	switch name {
	case "INPUT":
		return HookInput, true
	case "FORWARD":
		return HookForward, true
	case "OUTPUT":
		return HookOutput, true
	}
	return 0, false
}

// Chains returns every user-defined chain name currently in the table.
func (t *Table) Chains() []string {
	var names []string
	for _, e := range t.Entries {
		if e.IsErrorTarget {
			names = append(names, e.Target.Name)
		}
	}
	sort.Strings(names)
	return names
}
