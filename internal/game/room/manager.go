package room

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/roomfurni/internal/game/furni"
)

var (
	// ErrNotInRoom is returned by operations that require an active room.
	ErrNotInRoom = errors.New("not in a room")
	// ErrUnknownItem is returned when a furni key is not present in the room.
	ErrUnknownItem = errors.New("unknown furni")
)

// Sender transmits furni actions to the game server.
type Sender interface {
	// SendPickup requests that the server remove the furni from the room.
	SendPickup(key furni.Key) error
}

type subscriber struct {
	id int
	fn func(Event)
}

// Manager tracks the furni of the current room. All methods are safe for
// concurrent use.
//
// Events are queued while the state lock is held and delivered in the order
// the state changed, outside the lock. The mutating goroutine delivers them
// unless another goroutine is already delivering, in which case that one
// delivers them and the mutation returns without waiting.
type Manager struct {
	mu     sync.RWMutex
	roomID string
	inRoom bool
	owner  bool
	items  map[furni.Key]furni.Furni

	subMu  sync.Mutex
	subs   []subscriber
	nextID int

	queueMu  sync.Mutex
	queue    []Event
	draining bool

	sender Sender
	logger *zap.Logger
}

// NewManager creates a Manager that is not in any room.
//
// Precondition: logger must be non-nil. sender may be nil, in which case
// pickups are applied locally as if the server confirmed them.
func NewManager(sender Sender, logger *zap.Logger) *Manager {
	return &Manager{
		items:  make(map[furni.Key]furni.Furni),
		sender: sender,
		logger: logger,
	}
}

// Subscribe registers fn for every subsequent event.
//
// Postcondition: The returned function removes the subscription; calling it twice is safe.
func (m *Manager) Subscribe(fn func(Event)) func() {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	id := m.nextID
	m.nextID++
	m.subs = append(m.subs, subscriber{id: id, fn: fn})
	return func() {
		m.subMu.Lock()
		defer m.subMu.Unlock()
		m.subs = slices.DeleteFunc(m.subs, func(s subscriber) bool { return s.id == id })
	}
}

// enqueueLocked appends e to the delivery queue.
//
// Precondition: m.mu is held for writing.
func (m *Manager) enqueueLocked(e Event) {
	m.queueMu.Lock()
	m.queue = append(m.queue, e)
	m.queueMu.Unlock()
}

// flush delivers queued events in FIFO order unless another goroutine is
// already delivering them.
func (m *Manager) flush() {
	m.queueMu.Lock()
	if m.draining {
		m.queueMu.Unlock()
		return
	}
	m.draining = true
	finished := false
	defer func() {
		// A panicking subscriber must not leave the queue stuck.
		if !finished {
			m.queueMu.Lock()
			m.draining = false
			m.queueMu.Unlock()
		}
	}()
	for len(m.queue) > 0 {
		e := m.queue[0]
		m.queue[0] = nil
		m.queue = m.queue[1:]
		m.queueMu.Unlock()
		m.deliver(e)
		m.queueMu.Lock()
	}
	m.queue = nil
	m.draining = false
	finished = true
	m.queueMu.Unlock()
}

func (m *Manager) deliver(e Event) {
	m.subMu.Lock()
	subs := slices.Clone(m.subs)
	m.subMu.Unlock()
	for _, s := range subs {
		s.fn(e)
	}
}

// Enter moves the client into roomID, leaving the current room first.
//
// Precondition: roomID must be non-empty.
func (m *Manager) Enter(roomID string) {
	if m.IsInRoom() {
		m.Leave()
	}
	m.mu.Lock()
	m.roomID = roomID
	m.inRoom = true
	m.owner = false
	m.items = make(map[furni.Key]furni.Furni)
	m.enqueueLocked(Entered{RoomID: roomID})
	m.mu.Unlock()

	m.logger.Debug("entered room", zap.String("room", roomID))
	m.flush()
}

// Leave clears the room state. It is a no-op when not in a room.
func (m *Manager) Leave() {
	m.mu.Lock()
	if !m.inRoom {
		m.mu.Unlock()
		return
	}
	roomID := m.roomID
	m.roomID = ""
	m.inRoom = false
	m.owner = false
	m.items = make(map[furni.Key]furni.Furni)
	m.enqueueLocked(Left{RoomID: roomID})
	m.mu.Unlock()

	m.logger.Debug("left room", zap.String("room", roomID))
	m.flush()
}

// IsInRoom reports whether the client is in a room.
func (m *Manager) IsInRoom() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.inRoom
}

// RoomID returns the current room ID, or "" when not in a room.
func (m *Manager) RoomID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.roomID
}

// SetOwner records whether the user owns the current room. It is reset on
// every room change.
func (m *Manager) SetOwner(owner bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.owner = owner && m.inRoom
}

// IsOwner reports whether the user owns the current room.
func (m *Manager) IsOwner() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.owner
}

// LoadFloorItems adds the initial floor batch of the room.
//
// Precondition: every item must have Type == furni.Floor.
// Postcondition: Returns ErrNotInRoom when not in a room.
func (m *Manager) LoadFloorItems(items []furni.Furni) error {
	return m.load(furni.Floor, items)
}

// LoadWallItems adds the initial wall batch of the room.
//
// Precondition: every item must have Type == furni.Wall.
// Postcondition: Returns ErrNotInRoom when not in a room.
func (m *Manager) LoadWallItems(items []furni.Furni) error {
	return m.load(furni.Wall, items)
}

func (m *Manager) load(typ furni.ItemType, items []furni.Furni) error {
	for _, it := range items {
		if it.Type != typ {
			return fmt.Errorf("loading %s items: %s has type %s", typ, it.Key(), it.Type)
		}
	}
	m.mu.Lock()
	if !m.inRoom {
		m.mu.Unlock()
		return ErrNotInRoom
	}
	for _, it := range items {
		m.items[it.Key()] = it
	}
	m.enqueueLocked(ItemsLoaded{Type: typ, Items: slices.Clone(items)})
	m.mu.Unlock()

	m.flush()
	return nil
}

// AddItem places a furni in the room. Adding an existing key replaces it.
//
// Postcondition: Returns ErrNotInRoom when not in a room.
func (m *Manager) AddItem(it furni.Furni) error {
	m.mu.Lock()
	if !m.inRoom {
		m.mu.Unlock()
		return ErrNotInRoom
	}
	m.items[it.Key()] = it
	m.enqueueLocked(ItemAdded{Item: it})
	m.mu.Unlock()

	m.flush()
	return nil
}

// RemoveItem removes the furni with the given key.
//
// Postcondition: Returns ErrUnknownItem if the key is not in the room.
func (m *Manager) RemoveItem(key furni.Key) error {
	m.mu.Lock()
	it, ok := m.items[key]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("removing %s: %w", key, ErrUnknownItem)
	}
	delete(m.items, key)
	m.enqueueLocked(ItemRemoved{Item: it})
	m.mu.Unlock()

	m.flush()
	return nil
}

// HideFurni hides f client-side.
func (m *Manager) HideFurni(f furni.Furni) { m.SetFurniVisible(f, false) }

// ShowFurni reveals f client-side.
func (m *Manager) ShowFurni(f furni.Furni) { m.SetFurniVisible(f, true) }

// SetFurniVisible changes the client-side visibility of f. Unknown furni and
// no-op changes publish nothing.
func (m *Manager) SetFurniVisible(f furni.Furni, visible bool) {
	m.mu.Lock()
	it, ok := m.items[f.Key()]
	if !ok || it.Hidden == !visible {
		m.mu.Unlock()
		return
	}
	it.Hidden = !visible
	m.items[f.Key()] = it
	m.enqueueLocked(VisibilityToggled{Item: it})
	m.mu.Unlock()

	m.flush()
}

// Pickup requests removal of the furni through the Sender. Without a Sender
// the removal is applied locally.
//
// Postcondition: Returns ErrNotInRoom or ErrUnknownItem when the request cannot be made.
func (m *Manager) Pickup(key furni.Key) error {
	m.mu.RLock()
	inRoom := m.inRoom
	_, ok := m.items[key]
	m.mu.RUnlock()
	if !inRoom {
		return ErrNotInRoom
	}
	if !ok {
		return fmt.Errorf("picking up %s: %w", key, ErrUnknownItem)
	}
	if m.sender == nil {
		return m.RemoveItem(key)
	}
	if err := m.sender.SendPickup(key); err != nil {
		return fmt.Errorf("sending pickup for %s: %w", key, err)
	}
	return nil
}

// Lookup returns a snapshot of the furni with the given key.
//
// Postcondition: Returns (furni, true) if found, or (zero, false) otherwise.
func (m *Manager) Lookup(key furni.Key) (furni.Furni, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	it, ok := m.items[key]
	return it, ok
}

// Furni returns a snapshot of every furni in the room ordered by key.
//
// Postcondition: Returns a non-nil slice; may be empty.
func (m *Manager) Furni() []furni.Furni {
	m.mu.RLock()
	out := make([]furni.Furni, 0, len(m.items))
	for _, it := range m.items {
		out = append(out, it)
	}
	m.mu.RUnlock()
	slices.SortFunc(out, func(a, b furni.Furni) int { return furni.CompareKeys(a.Key(), b.Key()) })
	return out
}

// FurniCount returns the number of furni in the room.
func (m *Manager) FurniCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}
