package furni

// Item is the per-instance projection of a Furni. The index cache owns every
// Item and updates it in place, so pointer identity is stable for the item's
// lifetime in the room.
type Item struct {
	furni   Furni
	name    string
	hasName bool
}

// NewItem projects f, resolving its name through names.
//
// Precondition: names must be non-nil.
func NewItem(f Furni, names NameResolver) *Item {
	it := &Item{}
	it.Update(f, names)
	return it
}

// Update replaces the mirrored snapshot and re-resolves the name.
//
// Postcondition: Key() is unchanged if f has the same key as before.
func (it *Item) Update(f Furni, names NameResolver) {
	it.furni = f
	it.name, it.hasName = names.FurniName(f.Descriptor())
}

// SetHidden updates only the hidden flag.
func (it *Item) SetHidden(hidden bool) {
	it.furni.Hidden = hidden
}

// Key returns the item's identity.
func (it *Item) Key() Key { return it.furni.Key() }

// Descriptor returns the stack the item belongs to.
func (it *Item) Descriptor() Descriptor { return it.furni.Descriptor() }

// Furni returns a copy of the underlying entity snapshot.
func (it *Item) Furni() Furni { return it.furni }

// Name returns the resolved name, or "" when unresolved.
func (it *Item) Name() string { return it.name }

// HasName reports whether the name was resolved.
func (it *Item) HasName() bool { return it.hasName }

// DisplayName returns the resolved name or a fallback.
func (it *Item) DisplayName() string {
	if it.hasName {
		return it.name
	}
	return FallbackName(it.furni.Descriptor())
}

// IsHidden reports whether the item is hidden client-side.
func (it *Item) IsHidden() bool { return it.furni.Hidden }

// OwnerID returns the owner's user ID.
func (it *Item) OwnerID() int64 { return it.furni.OwnerID }

// Stack aggregates all live items sharing a Descriptor.
type Stack struct {
	desc    Descriptor
	name    string
	hasName bool
	count   int
}

// NewStack creates a stack for d with count 1.
func NewStack(d Descriptor, names NameResolver) *Stack {
	s := &Stack{desc: d, count: 1}
	s.name, s.hasName = names.FurniName(d)
	return s
}

// Descriptor returns the grouping key.
func (s *Stack) Descriptor() Descriptor { return s.desc }

// Name returns the resolved name, or "" when unresolved.
func (s *Stack) Name() string { return s.name }

// HasName reports whether the name was resolved.
func (s *Stack) HasName() bool { return s.hasName }

// DisplayName returns the resolved name or a fallback.
func (s *Stack) DisplayName() string {
	if s.hasName {
		return s.name
	}
	return FallbackName(s.desc)
}

// Count returns the number of live items in the stack.
func (s *Stack) Count() int { return s.count }

// Increment adds one item to the stack.
func (s *Stack) Increment() { s.count++ }

// Decrement removes one item and returns the new count.
func (s *Stack) Decrement() int {
	s.count--
	return s.count
}
