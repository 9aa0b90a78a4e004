// Package furniview maintains the live, filtered and sorted views of the furni in
// the current room. Room events are marshaled onto a single uictx.Context and
// applied to a dual index (by item key and by stack descriptor); ordered views,
// status signals and selection commands recompute from the resulting changes.
//
// Nothing in this package is safe for concurrent use: every method must run on
// the context the RoomFurni was created with.
package furniview

import (
	"fmt"
	"slices"

	"github.com/cory-johannsen/roomfurni/internal/game/furni"
)

// ChangeKind classifies an index mutation.
type ChangeKind int

const (
	Added ChangeKind = iota
	Updated
	Removed
)

func (k ChangeKind) String() string {
	switch k {
	case Added:
		return "added"
	case Updated:
		return "updated"
	case Removed:
		return "removed"
	default:
		return fmt.Sprintf("changekind(%d)", int(k))
	}
}

// ItemChange is one item index mutation.
type ItemChange struct {
	Kind ChangeKind
	Item *furni.Item
}

// StackChange is one stack index mutation.
type StackChange struct {
	Kind  ChangeKind
	Stack *furni.Stack
}

// Changes is the batch published for a single cache operation.
// When Reset is set both indexes were replaced wholesale and Items/Stacks are empty.
type Changes struct {
	Reset  bool
	Items  []ItemChange
	Stacks []StackChange
}

// Empty reports whether the batch carries nothing.
func (c Changes) Empty() bool {
	return !c.Reset && len(c.Items) == 0 && len(c.Stacks) == 0
}

// CacheListener receives change batches in subscription order.
type CacheListener func(Changes)

// InvariantError reports a broken index invariant. It is raised with panic and
// indicates a programming error, never a recoverable condition.
type InvariantError struct {
	Msg string
}

func (e InvariantError) Error() string {
	return "furniview: invariant violated: " + e.Msg
}

// Cache is the dual index over the furni of the room: one entry per live item
// keyed by furni.Key, and one aggregate per furni.Descriptor whose count is the
// number of live items with that descriptor.
type Cache struct {
	names     furni.NameResolver
	items     map[furni.Key]*furni.Item
	stacks    map[furni.Descriptor]*furni.Stack
	listeners []CacheListener
}

// NewCache creates an empty Cache.
//
// Precondition: names must be non-nil.
func NewCache(names furni.NameResolver) *Cache {
	return &Cache{
		names:  names,
		items:  make(map[furni.Key]*furni.Item),
		stacks: make(map[furni.Descriptor]*furni.Stack),
	}
}

// Subscribe appends l to the listener list. Listeners run in subscription order.
func (c *Cache) Subscribe(l CacheListener) {
	c.listeners = append(c.listeners, l)
}

func (c *Cache) notify(ch Changes) {
	if ch.Empty() {
		return
	}
	for _, l := range c.listeners {
		l(ch)
	}
}

// UpsertItem adds f or updates the existing item with the same key in place.
func (c *Cache) UpsertItem(f furni.Furni) {
	var ch Changes
	c.upsert(f, &ch)
	c.notify(ch)
}

// UpsertItems applies UpsertItem to every entry and publishes a single batch.
func (c *Cache) UpsertItems(batch []furni.Furni) {
	var ch Changes
	for _, f := range batch {
		c.upsert(f, &ch)
	}
	c.notify(ch)
}

func (c *Cache) upsert(f furni.Furni, ch *Changes) {
	key := f.Key()
	if it, ok := c.items[key]; ok {
		oldDesc := it.Descriptor()
		it.Update(f, c.names)
		if newDesc := it.Descriptor(); newDesc != oldDesc {
			c.releaseStack(oldDesc, ch)
			c.retainStack(newDesc, ch)
		}
		ch.Items = append(ch.Items, ItemChange{Kind: Updated, Item: it})
		return
	}

	it := furni.NewItem(f, c.names)
	c.items[key] = it
	ch.Items = append(ch.Items, ItemChange{Kind: Added, Item: it})
	c.retainStack(it.Descriptor(), ch)
}

func (c *Cache) retainStack(d furni.Descriptor, ch *Changes) {
	if s, ok := c.stacks[d]; ok {
		s.Increment()
		ch.Stacks = append(ch.Stacks, StackChange{Kind: Updated, Stack: s})
		return
	}
	s := furni.NewStack(d, c.names)
	c.stacks[d] = s
	ch.Stacks = append(ch.Stacks, StackChange{Kind: Added, Stack: s})
}

func (c *Cache) releaseStack(d furni.Descriptor, ch *Changes) {
	s, ok := c.stacks[d]
	if !ok {
		panic(InvariantError{Msg: fmt.Sprintf("live item has no stack for %s", d)})
	}
	n := s.Decrement()
	switch {
	case n < 0:
		panic(InvariantError{Msg: fmt.Sprintf("stack %s count went negative", d)})
	case n == 0:
		delete(c.stacks, d)
		ch.Stacks = append(ch.Stacks, StackChange{Kind: Removed, Stack: s})
	default:
		ch.Stacks = append(ch.Stacks, StackChange{Kind: Updated, Stack: s})
	}
}

// RemoveItem deletes the item with the given key and releases its stack.
//
// Postcondition: Returns false, publishing nothing, if the key is not present.
func (c *Cache) RemoveItem(key furni.Key) bool {
	it, ok := c.items[key]
	if !ok {
		return false
	}
	var ch Changes
	delete(c.items, key)
	ch.Items = append(ch.Items, ItemChange{Kind: Removed, Item: it})
	c.releaseStack(it.Descriptor(), &ch)
	c.notify(ch)
	return true
}

// SetHidden updates the hidden flag of the item in place.
//
// Postcondition: Returns false if the key is not present. An unchanged flag
// publishes nothing.
func (c *Cache) SetHidden(key furni.Key, hidden bool) bool {
	it, ok := c.items[key]
	if !ok {
		return false
	}
	if it.IsHidden() == hidden {
		return true
	}
	it.SetHidden(hidden)
	c.notify(Changes{Items: []ItemChange{{Kind: Updated, Item: it}}})
	return true
}

// Clear empties both indexes and publishes one reset batch.
func (c *Cache) Clear() {
	if len(c.items) == 0 && len(c.stacks) == 0 {
		return
	}
	c.items = make(map[furni.Key]*furni.Item)
	c.stacks = make(map[furni.Descriptor]*furni.Stack)
	c.notify(Changes{Reset: true})
}

// Item returns the live item with the given key.
func (c *Cache) Item(key furni.Key) (*furni.Item, bool) {
	it, ok := c.items[key]
	return it, ok
}

// Stack returns the live stack for the given descriptor.
func (c *Cache) Stack(d furni.Descriptor) (*furni.Stack, bool) {
	s, ok := c.stacks[d]
	return s, ok
}

// ItemCount returns the unfiltered number of items.
func (c *Cache) ItemCount() int { return len(c.items) }

// StackCount returns the number of distinct stacks.
func (c *Cache) StackCount() int { return len(c.stacks) }

// Items returns every live item ordered by key.
func (c *Cache) Items() []*furni.Item {
	out := make([]*furni.Item, 0, len(c.items))
	for _, it := range c.items {
		out = append(out, it)
	}
	slices.SortFunc(out, compareItemKeys)
	return out
}

// Stacks returns every live stack ordered by descriptor.
func (c *Cache) Stacks() []*furni.Stack {
	out := make([]*furni.Stack, 0, len(c.stacks))
	for _, s := range c.stacks {
		out = append(out, s)
	}
	slices.SortFunc(out, compareStackDescriptors)
	return out
}

func compareItemKeys(a, b *furni.Item) int {
	return furni.CompareKeys(a.Key(), b.Key())
}

func compareStackDescriptors(a, b *furni.Stack) int {
	return furni.CompareDescriptors(a.Descriptor(), b.Descriptor())
}
