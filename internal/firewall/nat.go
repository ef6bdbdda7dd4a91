// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package firewall

// NATTable is a minimal nat-table counterpart to Table, scoped to the one
// thing spec.md §4.J's tethering controller needs: a POSTROUTING
// masquerade rule keyed by egress interface. The byte-offset mirror Table
// implements is iptables-legacy's filter-table blob layout specifically;
// the nat table is a structurally distinct kernel table (its own
// setsockopt target, its own builtin chains) that spec.md never describes
// in the same byte-level detail filter gets, so this does not reuse
// Table's Entry/offset machinery — it is its own small append-only list
// committed the same way, through nftables' transaction.
type NATTable struct {
	Name  string
	Proto int
	Rules []MasqueradeRule
}

// MasqueradeRule masquerades traffic leaving OutInterface.
type MasqueradeRule struct {
	OutInterface string
}

// NewNATTable creates an empty nat table for the given protocol family.
func NewNATTable(proto int) *NATTable {
	return &NATTable{Name: "connd-nat", Proto: proto}
}

// SetMasquerade replaces any existing masquerade rules with a single one
// for iface, spec.md §4.J "flush NAT POSTROUTING; append masquerade rule
// on the default upstream interface".
func (t *NATTable) SetMasquerade(iface string) {
	t.Rules = []MasqueradeRule{{OutInterface: iface}}
}

// Flush removes every masquerade rule, spec.md §4.J tethering disable.
func (t *NATTable) Flush() {
	t.Rules = nil
}
