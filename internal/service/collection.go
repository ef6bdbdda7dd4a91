// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package service

import "sort"

// Collection is an ordered container of services plus a side index from
// identifier to position, spec.md §4.G "Collection". Re-sort is triggered
// explicitly by callers via Resort whenever a ranking input changes
// (state, order, favorite, strength); this mirrors the teacher's own
// dirty-then-flush pattern rather than re-sorting eagerly on every field
// write.
type Collection struct {
	items []*Service
	index map[string]int
}

// NewCollection creates an empty Collection.
func NewCollection() *Collection {
	return &Collection{index: make(map[string]int)}
}

// Add inserts s and re-sorts.
func (c *Collection) Add(s *Service) {
	c.items = append(c.items, s)
	c.Resort()
}

// Remove deletes the service with the given identifier, if present.
func (c *Collection) Remove(identifier string) {
	i, ok := c.index[identifier]
	if !ok {
		return
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	delete(c.index, identifier)
	c.Resort()
}

// Lookup returns the service with the given identifier.
func (c *Collection) Lookup(identifier string) (*Service, bool) {
	i, ok := c.index[identifier]
	if !ok {
		return nil, false
	}
	return c.items[i], true
}

// Services returns the collection in ranked order. The returned slice is
// owned by the caller.
func (c *Collection) Services() []*Service {
	out := make([]*Service, len(c.items))
	copy(out, c.items)
	return out
}

// Default returns the first connected service, spec.md §4.G "Default
// service", and true if one exists.
func (c *Collection) Default() (*Service, bool) {
	for _, s := range c.items {
		if s.state.connected() {
			return s, true
		}
	}
	return nil, false
}

// Resort re-establishes ranked order and rebuilds the identifier index.
// Stable sort preserves insertion order among entries the comparator
// treats as equal, matching spec.md §9's note that the total order is not
// required to be antisymmetric for differing non-connecting states.
func (c *Collection) Resort() {
	sort.SliceStable(c.items, func(i, j int) bool {
		return less(c.items[i], c.items[j])
	})
	for i, s := range c.items {
		s.position = i
		c.index[s.Identifier] = i
	}
}

// typeRank implements spec.md §4.G point 5: wifi ranks lower than
// wimax/bluetooth/cellular for otherwise-equal entries; everything else
// (including ethernet and vpn, which rank via order/favorite instead) is
// treated as equal-preference.
func typeRank(t Type) int {
	switch t {
	case TypeWifi:
		return 0
	case TypeWimax, TypeBluetooth, TypeCellular:
		return 1
	default:
		return 1
	}
}

// less implements the total order of spec.md §4.G, primary to secondary:
// connected, connecting, explicit order (descending), favorite, per-type
// preference, strength (descending).
func less(a, b *Service) bool {
	if a.state.connected() != b.state.connected() {
		return a.state.connected()
	}
	if a.state.connected() && b.state.connected() {
		aOnline, bOnline := a.state == StateOnline, b.state == StateOnline
		if aOnline != bOnline {
			return aOnline
		}
	}
	if a.state.connecting() != b.state.connecting() {
		return a.state.connecting()
	}
	if a.Order != b.Order {
		return a.Order > b.Order
	}
	if a.Favorite != b.Favorite {
		return a.Favorite
	}
	if tr := typeRank(a.Type) - typeRank(b.Type); tr != 0 {
		return tr > 0
	}
	if a.Strength != b.Strength {
		return a.Strength > b.Strength
	}
	return false
}
