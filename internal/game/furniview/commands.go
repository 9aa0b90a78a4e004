package furniview

import "github.com/cory-johannsen/roomfurni/internal/game/furni"

// VisibilityActions is the room-side action used by the selection commands.
// The resulting visibility change comes back as a room event; the commands
// never touch the index themselves.
type VisibilityActions interface {
	SetFurniVisible(f furni.Furni, visible bool)
}

// Command is an action with an observable enabled state.
type Command struct {
	enabled Property[bool]
	run     func()
}

// Enabled reports whether Execute will run.
func (c *Command) Enabled() bool { return c.enabled.Get() }

// OnEnabledChanged subscribes fn to enabled-state changes.
func (c *Command) OnEnabledChanged(fn func(bool)) { c.enabled.Subscribe(fn) }

// Execute runs the command if it is enabled.
//
// Postcondition: Returns whether the command ran.
func (c *Command) Execute() bool {
	if !c.enabled.Get() {
		return false
	}
	c.run()
	return true
}

// selection holds the consumer-owned selection and the two commands gated on
// it. Selected items that have left the index are ignored but kept.
type selection struct {
	items   []*furni.Item
	live    func(*furni.Item) bool
	actions VisibilityActions
	hide    Command
	show    Command
}

func newSelection(actions VisibilityActions, live func(*furni.Item) bool) *selection {
	s := &selection{actions: actions, live: live}
	s.hide.run = func() { s.setVisible(false) }
	s.show.run = func() { s.setVisible(true) }
	return s
}

func (s *selection) set(items []*furni.Item) {
	s.items = items
	s.recompute()
}

func (s *selection) recompute() {
	var anyVisible, anyHidden bool
	for _, it := range s.items {
		if !s.live(it) {
			continue
		}
		if it.IsHidden() {
			anyHidden = true
		} else {
			anyVisible = true
		}
	}
	s.hide.enabled.set(anyVisible)
	s.show.enabled.set(anyHidden)
}

func (s *selection) setVisible(visible bool) {
	// Snapshot first: the action may loop back synchronously and update items.
	var targets []furni.Furni
	for _, it := range s.items {
		if s.live(it) {
			targets = append(targets, it.Furni())
		}
	}
	for _, f := range targets {
		s.actions.SetFurniVisible(f, visible)
	}
}
