// Package room mirrors the state of the game room the client is in and
// publishes furni lifecycle events to subscribers.
package room

import "github.com/cory-johannsen/roomfurni/internal/game/furni"

// Event is a room lifecycle notification. Concrete types are ItemsLoaded,
// ItemAdded, ItemRemoved, VisibilityToggled, Entered and Left.
type Event interface {
	eventName() string
}

// ItemsLoaded carries the initial floor or wall item batch of a room.
type ItemsLoaded struct {
	Type  furni.ItemType
	Items []furni.Furni
}

// ItemAdded reports a furni placed in the room.
type ItemAdded struct {
	Item furni.Furni
}

// ItemRemoved reports a furni removed from the room.
type ItemRemoved struct {
	Item furni.Furni
}

// VisibilityToggled reports a client-side hide or show. Item carries the new Hidden flag.
type VisibilityToggled struct {
	Item furni.Furni
}

// Entered reports that the client entered a room.
type Entered struct {
	RoomID string
}

// Left reports that the client left the room.
type Left struct {
	RoomID string
}

func (ItemsLoaded) eventName() string       { return "items_loaded" }
func (ItemAdded) eventName() string         { return "item_added" }
func (ItemRemoved) eventName() string       { return "item_removed" }
func (VisibilityToggled) eventName() string { return "visibility_toggled" }
func (Entered) eventName() string           { return "entered" }
func (Left) eventName() string              { return "left" }

// EventName returns the metric/log label of e.
func EventName(e Event) string {
	return e.eventName()
}

// Source publishes room events and exposes the in-room state signal.
type Source interface {
	// Subscribe registers fn for all subsequent events and returns a function that removes it.
	Subscribe(fn func(Event)) (unsubscribe func())
	// IsInRoom reports whether the client is currently in a room.
	IsInRoom() bool
	// Furni returns a snapshot of the furni currently in the room.
	Furni() []furni.Furni
}
