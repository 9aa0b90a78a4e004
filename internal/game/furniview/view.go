package furniview

import (
	"fmt"
	"slices"

	"github.com/cory-johannsen/roomfurni/internal/game/furni"
)

// Entry is a cache-owned value that can be listed in an OrderedView.
// *furni.Item and *furni.Stack satisfy it.
type Entry interface {
	comparable
	Name() string
	HasName() bool
	DisplayName() string
}

// ViewChangeKind classifies a change to an OrderedView.
type ViewChangeKind int

const (
	ViewInsert ViewChangeKind = iota
	ViewRemove
	ViewUpdate
	ViewReset
)

func (k ViewChangeKind) String() string {
	switch k {
	case ViewInsert:
		return "insert"
	case ViewRemove:
		return "remove"
	case ViewUpdate:
		return "update"
	case ViewReset:
		return "reset"
	default:
		return fmt.Sprintf("viewchangekind(%d)", int(k))
	}
}

// ViewChange describes a single positional change. Index is -1 for ViewReset.
type ViewChange struct {
	Kind  ViewChangeKind
	Index int
}

type viewEntry[T Entry] struct {
	value T
	// sortName is the display name the entry was positioned with.
	sortName string
}

// OrderedView is the filtered, sorted projection of one cache index. Entries
// are ordered by display name (case-insensitive) with ties broken by tie.
// Single-entry changes are applied with a binary search and one slice shift;
// only a filter change or a reset rebuilds the whole view.
type OrderedView[T Entry] struct {
	source    func() []T
	tie       func(a, b T) int
	filter    string
	entries   []viewEntry[T]
	present   map[T]string
	listeners []func(ViewChange)
}

// NewOrderedView creates a view over the values returned by source.
//
// Precondition: source and tie must be non-nil; tie must be a total order over distinct values.
// Postcondition: The view holds every source value matching the empty filter.
func NewOrderedView[T Entry](source func() []T, tie func(a, b T) int) *OrderedView[T] {
	v := &OrderedView[T]{
		source:  source,
		tie:     tie,
		present: make(map[T]string),
	}
	v.rebuild()
	return v
}

// OnChange appends fn to the change listeners.
func (v *OrderedView[T]) OnChange(fn func(ViewChange)) {
	v.listeners = append(v.listeners, fn)
}

func (v *OrderedView[T]) emit(kind ViewChangeKind, idx int) {
	for _, fn := range v.listeners {
		fn(ViewChange{Kind: kind, Index: idx})
	}
}

// Filter returns the current filter text.
func (v *OrderedView[T]) Filter() string { return v.filter }

// SetFilter replaces the filter text and rebuilds the view.
//
// Postcondition: Returns false, leaving the view untouched, if text equals the current filter.
func (v *OrderedView[T]) SetFilter(text string) bool {
	if text == v.filter {
		return false
	}
	v.filter = text
	v.Rebuild()
	return true
}

// Rebuild re-filters and re-sorts every source value.
func (v *OrderedView[T]) Rebuild() {
	v.rebuild()
	v.emit(ViewReset, -1)
}

func (v *OrderedView[T]) rebuild() {
	values := v.source()
	v.entries = v.entries[:0]
	clear(v.present)
	for _, val := range values {
		if !v.matches(val) {
			continue
		}
		name := val.DisplayName()
		v.entries = append(v.entries, viewEntry[T]{value: val, sortName: name})
		v.present[val] = name
	}
	slices.SortFunc(v.entries, v.compare)
}

func (v *OrderedView[T]) matches(val T) bool {
	return furni.MatchesFilter(val.Name(), val.HasName(), v.filter)
}

func (v *OrderedView[T]) compare(a, b viewEntry[T]) int {
	if c := furni.CompareNames(a.sortName, b.sortName); c != 0 {
		return c
	}
	return v.tie(a.value, b.value)
}

// Apply incorporates a single cache change for val.
func (v *OrderedView[T]) Apply(kind ChangeKind, val T) {
	storedName, present := v.present[val]
	if kind == Removed {
		if present {
			v.remove(val, storedName)
		}
		return
	}

	matches := v.matches(val)
	switch {
	case present && matches && storedName == val.DisplayName():
		v.emit(ViewUpdate, v.indexOf(val, storedName))
	case present:
		v.remove(val, storedName)
		if matches {
			v.insert(val)
		}
	case matches:
		v.insert(val)
	}
}

func (v *OrderedView[T]) indexOf(val T, storedName string) int {
	idx, found := slices.BinarySearchFunc(v.entries, viewEntry[T]{value: val, sortName: storedName}, v.compare)
	if !found || v.entries[idx].value != val {
		panic(InvariantError{Msg: "view entry not at its sorted position"})
	}
	return idx
}

func (v *OrderedView[T]) insert(val T) {
	e := viewEntry[T]{value: val, sortName: val.DisplayName()}
	idx, _ := slices.BinarySearchFunc(v.entries, e, v.compare)
	v.entries = slices.Insert(v.entries, idx, e)
	v.present[val] = e.sortName
	v.emit(ViewInsert, idx)
}

func (v *OrderedView[T]) remove(val T, storedName string) {
	idx := v.indexOf(val, storedName)
	v.entries = slices.Delete(v.entries, idx, idx+1)
	delete(v.present, val)
	v.emit(ViewRemove, idx)
}

// Len returns the number of entries passing the filter.
func (v *OrderedView[T]) Len() int { return len(v.entries) }

// At returns the entry at position i.
//
// Precondition: 0 <= i < Len().
func (v *OrderedView[T]) At(i int) T { return v.entries[i].value }

// Contains reports whether val is currently listed.
func (v *OrderedView[T]) Contains(val T) bool {
	_, ok := v.present[val]
	return ok
}

// Slice returns a copy of the ordered entries.
//
// Postcondition: Returns a non-nil slice; may be empty.
func (v *OrderedView[T]) Slice() []T {
	out := make([]T, len(v.entries))
	for i, e := range v.entries {
		out[i] = e.value
	}
	return out
}
