// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package firewall

import "grimm.is/connd/internal/errors"

// targetSize approximates struct ipt_entry_target's fixed-size "standard
// target" variant; connd's mirror only ever emits standard or jump targets,
// never a matchable-length extension target, so this stays constant.
const targetSize = 32

func computeEntrySize(e *Entry) {
	size := baseEntrySize
	for _, m := range e.Matches {
		size += len(m.Data)
	}
	e.TargetOffset = size
	e.NextOffset = size + targetSize
}

// updateOffsets implements spec.md §4.E's offset-maintenance algorithm:
// rewalk the entry list recomputing every Offset as the running sum of
// NextOffset, shift every builtin hook's HookEntry/Underflow cursor at or
// after changeOffset by delta, and rewrite any standard-target jump verdict
// (a non-special verdict used as a byte offset) that crosses the
// inserted/removed region by the same delta.
func (t *Table) updateOffsets(changeOffset, delta int) {
	off := 0
	for _, e := range t.Entries {
		e.Offset = off
		off += e.NextOffset
	}

	for h, o := range t.HookEntry {
		if o >= changeOffset {
			t.HookEntry[h] = o + delta
		}
	}
	for h, o := range t.Underflow {
		if o >= changeOffset {
			t.Underflow[h] = o + delta
		}
	}

	for _, e := range t.Entries {
		if e.Target.Name != "" {
			continue // jump-by-name targets resolve at commit time, not here
		}
		v := e.Target.Verdict
		if v.isSpecial() {
			continue
		}
		if int(v) >= changeOffset {
			e.Target.Verdict = v + Verdict(delta)
		}
	}
}

// AppendRule adds e to the end of chain's rule span (immediately before the
// chain's tail marker).
func (t *Table) AppendRule(chain string, e *Entry) error {
	headIdx, ok := t.chainHeadIndex(chain)
	if !ok {
		return errors.Errorf(errors.KindNotFound, "firewall: no such chain %q", chain)
	}
	tailIdx := t.chainTailIndex(headIdx)
	return t.spliceRule(chain, e, headIdx, tailIdx)
}

// InsertRule adds e immediately after chain's head, making it the first
// rule evaluated in that chain.
func (t *Table) InsertRule(chain string, e *Entry) error {
	headIdx, ok := t.chainHeadIndex(chain)
	if !ok {
		return errors.Errorf(errors.KindNotFound, "firewall: no such chain %q", chain)
	}
	return t.spliceRule(chain, e, headIdx, headIdx+1)
}

func (t *Table) spliceRule(chain string, e *Entry, headIdx, spliceAt int) error {
	computeEntrySize(e)
	e.Chain = chain

	head := t.Entries[headIdx]
	if head.Builtin >= 0 && t.chainTailIndex(headIdx) == headIdx+1 {
		// Builtin chain currently has no rules; the first inserted rule
		// inherits the builtin flag per spec.md §4.E, otherwise it's plain.
		e.Builtin = head.Builtin
	} else {
		e.Builtin = -1
	}

	changeOffset := t.Entries[spliceAt-1].Offset + t.Entries[spliceAt-1].NextOffset
	if spliceAt < len(t.Entries) {
		changeOffset = t.Entries[spliceAt].Offset
	}

	t.Entries = append(t.Entries, nil)
	copy(t.Entries[spliceAt+1:], t.Entries[spliceAt:])
	t.Entries[spliceAt] = e

	t.updateOffsets(changeOffset, e.NextOffset)
	return nil
}

// DeleteRule removes the first rule in chain whose fields satisfy
// spec.md §4.E's equality rule.
func (t *Table) DeleteRule(chain string, pattern *Entry) error {
	headIdx, ok := t.chainHeadIndex(chain)
	if !ok {
		return errors.Errorf(errors.KindNotFound, "firewall: no such chain %q", chain)
	}
	tailIdx := t.chainTailIndex(headIdx)

	for i := headIdx + 1; i < tailIdx; i++ {
		if t.Entries[i].equalForDelete(pattern) {
			removed := t.Entries[i]
			t.Entries = append(t.Entries[:i], t.Entries[i+1:]...)
			t.updateOffsets(removed.Offset, -removed.NextOffset)
			return nil
		}
	}
	return errors.Errorf(errors.KindNotFound, "firewall: no matching rule in chain %q", chain)
}

// FlushChain removes every rule in chain, leaving its head (and, for a
// builtin, its policy) intact.
func (t *Table) FlushChain(chain string) error {
	headIdx, ok := t.chainHeadIndex(chain)
	if !ok {
		return errors.Errorf(errors.KindNotFound, "firewall: no such chain %q", chain)
	}
	tailIdx := t.chainTailIndex(headIdx)
	if tailIdx == headIdx+1 {
		return nil
	}

	changeOffset := t.Entries[headIdx+1].Offset
	removedSize := 0
	for i := headIdx + 1; i < tailIdx; i++ {
		removedSize += t.Entries[i].NextOffset
	}

	t.Entries = append(t.Entries[:headIdx+1], t.Entries[tailIdx:]...)
	t.updateOffsets(changeOffset, -removedSize)
	return nil
}

// AddChain creates an empty user-defined chain, appended at the end of the
// table (the fallback case of spec.md §4.E's chain-tail lookup: "falls back
// to the last entry in the table").
func (t *Table) AddChain(name string) error {
	if _, ok := t.chainHeadIndex(name); ok {
		return errors.Errorf(errors.KindInvalidState, "firewall: chain %q already exists", name)
	}
	head := &Entry{Builtin: -1, IsErrorTarget: true, Target: Target{Name: name}}
	computeEntrySize(head)

	changeOffset := 0
	if len(t.Entries) > 0 {
		last := t.Entries[len(t.Entries)-1]
		changeOffset = last.Offset + last.NextOffset
	}
	head.Offset = changeOffset

	t.Entries = append(t.Entries, head)
	t.updateOffsets(changeOffset, head.NextOffset)
	return nil
}

// DeleteChain removes an empty user-defined chain. A non-empty chain, or a
// builtin chain, cannot be deleted.
func (t *Table) DeleteChain(name string) error {
	headIdx, ok := t.chainHeadIndex(name)
	if !ok {
		return errors.Errorf(errors.KindNotFound, "firewall: no such chain %q", name)
	}
	head := t.Entries[headIdx]
	if head.Builtin >= 0 {
		return errors.Errorf(errors.KindInvalidState, "firewall: cannot delete builtin chain %q", name)
	}
	if t.chainTailIndex(headIdx) != headIdx+1 {
		return errors.Errorf(errors.KindInvalidState, "firewall: chain %q is not empty", name)
	}

	t.Entries = append(t.Entries[:headIdx], t.Entries[headIdx+1:]...)
	t.updateOffsets(head.Offset, -head.NextOffset)
	return nil
}

// ChangePolicy sets a builtin chain's default verdict. Size is unchanged
// (both policies are standard targets of the same encoded length), so no
// offset maintenance is required.
func (t *Table) ChangePolicy(hook Hook, verdict Verdict) error {
	for _, e := range t.Entries {
		if e.Builtin == int(hook) && e.Chain == "" {
			e.Target = Target{Verdict: verdict}
			return nil
		}
	}
	return errors.Errorf(errors.KindNotFound, "firewall: no such builtin chain %s", hook)
}
