// Package furni defines the furniture entity snapshot mirrored from the game room
// and the two projections derived from it: the per-item view and the stack aggregate.
package furni

import (
	"cmp"
	"fmt"
	"strings"
)

// ItemType is the placement category of a furni.
type ItemType int

// Placement categories tracked by the room manager.
const (
	Floor ItemType = iota
	Wall
)

// String returns the lowercase name of the item type.
func (t ItemType) String() string {
	switch t {
	case Floor:
		return "floor"
	case Wall:
		return "wall"
	default:
		return fmt.Sprintf("itemtype(%d)", int(t))
	}
}

// ParseItemType converts "floor"/"wall" (case-insensitive, "f"/"w" accepted) to an ItemType.
//
// Postcondition: Returns the ItemType or an error for unknown input.
func ParseItemType(s string) (ItemType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "floor", "f":
		return Floor, nil
	case "wall", "w":
		return Wall, nil
	default:
		return 0, fmt.Errorf("unknown item type %q", s)
	}
}

// Key identifies a single furni instance within a room.
type Key struct {
	Type ItemType
	ID   int64
}

// String renders the key as "floor:123".
func (k Key) String() string {
	return fmt.Sprintf("%s:%d", k.Type, k.ID)
}

// CompareKeys orders keys floor-first, then by ascending ID.
func CompareKeys(a, b Key) int {
	if c := cmp.Compare(a.Type, b.Type); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// Descriptor is the stack grouping key: the type identity of a furni without
// its instance ID. Items sharing a Descriptor collapse into one Stack.
type Descriptor struct {
	Type    ItemType
	ClassID int
	// Variant distinguishes class-shared wall items such as posters. Empty for most furni.
	Variant string
}

// String renders the descriptor as "floor/13" or "wall/4001/12".
func (d Descriptor) String() string {
	if d.Variant == "" {
		return fmt.Sprintf("%s/%d", d.Type, d.ClassID)
	}
	return fmt.Sprintf("%s/%d/%s", d.Type, d.ClassID, d.Variant)
}

// CompareDescriptors orders descriptors by type, class and variant.
func CompareDescriptors(a, b Descriptor) int {
	if c := cmp.Compare(a.Type, b.Type); c != 0 {
		return c
	}
	if c := cmp.Compare(a.ClassID, b.ClassID); c != 0 {
		return c
	}
	return strings.Compare(a.Variant, b.Variant)
}

// Furni is a read-only snapshot of a furniture entity owned by the room manager.
// The room manager hands out copies; holders never observe later mutations.
type Furni struct {
	Type      ItemType
	ID        int64
	ClassID   int
	Variant   string
	OwnerID   int64
	OwnerName string
	Hidden    bool
	// Placement is the opaque location string (floor coordinates or wall location).
	Placement string
}

// Key returns the instance identity of the furni.
func (f Furni) Key() Key {
	return Key{Type: f.Type, ID: f.ID}
}

// Descriptor returns the stack grouping key of the furni.
func (f Furni) Descriptor() Descriptor {
	return Descriptor{Type: f.Type, ClassID: f.ClassID, Variant: f.Variant}
}

// NameResolver resolves the display name of a furni type.
// A missing name is reported with ok == false and is never an error.
type NameResolver interface {
	FurniName(d Descriptor) (name string, ok bool)
}

// NameResolverFunc adapts a function to the NameResolver interface.
type NameResolverFunc func(d Descriptor) (string, bool)

// FurniName calls f(d).
func (f NameResolverFunc) FurniName(d Descriptor) (string, bool) { return f(d) }

// NoNames resolves nothing; every furni is nameless.
var NoNames NameResolver = NameResolverFunc(func(Descriptor) (string, bool) { return "", false })

// FallbackName is the display text for a furni type with no resolvable name.
func FallbackName(d Descriptor) string {
	return fmt.Sprintf("unknown %s furni #%d", d.Type, d.ClassID)
}

// MatchesFilter reports whether a name passes the free-text filter.
// An empty filter matches everything, including nameless entries. A non-empty
// filter is a case-insensitive substring test and never matches a nameless entry.
func MatchesFilter(name string, hasName bool, filter string) bool {
	if filter == "" {
		return true
	}
	if !hasName {
		return false
	}
	return strings.Contains(strings.ToLower(name), strings.ToLower(filter))
}

// CompareNames orders display names case-insensitively, falling back to an exact
// comparison so that the order is total.
func CompareNames(a, b string) int {
	if c := strings.Compare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}
