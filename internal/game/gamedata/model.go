// Package gamedata loads furni type metadata and resolves furni display names.
package gamedata

import (
	"errors"
	"fmt"

	"github.com/cory-johannsen/roomfurni/internal/game/furni"
)

// FurniInfo describes one furni type.
type FurniInfo struct {
	Type       furni.ItemType
	ClassID    int
	Identifier string
	// Name is the class-level display name. Empty means the type is nameless.
	Name string
	// Variants maps a variant (e.g. a poster number) to its own display name.
	Variants map[string]string
}

// Validate checks that the entry is well formed.
//
// Postcondition: Returns nil if valid, or an error describing the first violation.
func (fi *FurniInfo) Validate() error {
	if fi.ClassID <= 0 {
		return fmt.Errorf("furni %q: class_id must be positive, got %d", fi.Identifier, fi.ClassID)
	}
	if fi.Identifier == "" {
		return fmt.Errorf("furni %s/%d: identifier must not be empty", fi.Type, fi.ClassID)
	}
	for variant := range fi.Variants {
		if variant == "" {
			return fmt.Errorf("furni %q: variant keys must not be empty", fi.Identifier)
		}
	}
	return nil
}

// NameFor returns the display name for variant, falling back to the class name.
func (fi *FurniInfo) NameFor(variant string) (string, bool) {
	if variant != "" {
		if name, ok := fi.Variants[variant]; ok && name != "" {
			return name, true
		}
	}
	return fi.Name, fi.Name != ""
}

// ErrDuplicateClass is returned when two entries share a type and class ID.
var ErrDuplicateClass = errors.New("duplicate furni class")
