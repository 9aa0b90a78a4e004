package gamedata

import (
	"fmt"
	"sort"

	"github.com/cory-johannsen/roomfurni/internal/game/furni"
)

type classKey struct {
	t       furni.ItemType
	classID int
}

// Manager is a read-only index of furni types. It is safe for concurrent use
// once constructed.
type Manager struct {
	byClass      map[classKey]*FurniInfo
	byIdentifier map[string]*FurniInfo
}

// NewManager indexes infos by (type, class ID) and identifier.
//
// Precondition: Each info must already be valid.
// Postcondition: Returns a Manager, or an error wrapping ErrDuplicateClass.
func NewManager(infos []*FurniInfo) (*Manager, error) {
	m := &Manager{
		byClass:      make(map[classKey]*FurniInfo, len(infos)),
		byIdentifier: make(map[string]*FurniInfo, len(infos)),
	}
	for _, fi := range infos {
		k := classKey{fi.Type, fi.ClassID}
		if prev, ok := m.byClass[k]; ok {
			return nil, fmt.Errorf("%w: %s/%d (%q and %q)", ErrDuplicateClass, fi.Type, fi.ClassID, prev.Identifier, fi.Identifier)
		}
		m.byClass[k] = fi
		m.byIdentifier[fi.Identifier] = fi
	}
	return m, nil
}

// FurniName resolves the display name of d: the variant name when one exists,
// otherwise the class name.
func (m *Manager) FurniName(d furni.Descriptor) (string, bool) {
	fi, ok := m.byClass[classKey{d.Type, d.ClassID}]
	if !ok {
		return "", false
	}
	return fi.NameFor(d.Variant)
}

// Info returns the type entry for d.
func (m *Manager) Info(d furni.Descriptor) (*FurniInfo, bool) {
	fi, ok := m.byClass[classKey{d.Type, d.ClassID}]
	return fi, ok
}

// ByIdentifier returns the type entry with the given identifier.
func (m *Manager) ByIdentifier(identifier string) (*FurniInfo, bool) {
	fi, ok := m.byIdentifier[identifier]
	return fi, ok
}

// Len returns the number of furni types.
func (m *Manager) Len() int {
	return len(m.byClass)
}

// Identifiers returns all type identifiers, sorted.
func (m *Manager) Identifiers() []string {
	out := make([]string, 0, len(m.byIdentifier))
	for id := range m.byIdentifier {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
