package room_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/roomfurni/internal/game/furni"
	"github.com/cory-johannsen/roomfurni/internal/game/room"
)

type recorder struct {
	events []room.Event
}

func (r *recorder) handle(e room.Event) { r.events = append(r.events, e) }

func (r *recorder) names() []string {
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = room.EventName(e)
	}
	return out
}

func chair(id int64) furni.Furni {
	return furni.Furni{Type: furni.Floor, ID: id, ClassID: 13, OwnerID: 1}
}

func TestManager_EnterLoadLeave(t *testing.T) {
	m := room.NewManager(nil, zap.NewNop())
	rec := &recorder{}
	m.Subscribe(rec.handle)

	assert.False(t, m.IsInRoom())
	m.Enter("r1")
	assert.True(t, m.IsInRoom())
	assert.Equal(t, "r1", m.RoomID())

	require.NoError(t, m.LoadFloorItems([]furni.Furni{chair(1), chair(2)}))
	require.NoError(t, m.LoadWallItems([]furni.Furni{{Type: furni.Wall, ID: 1, ClassID: 4001}}))
	assert.Equal(t, 3, m.FurniCount())

	m.Leave()
	assert.False(t, m.IsInRoom())
	assert.Equal(t, 0, m.FurniCount())

	assert.Equal(t, []string{"entered", "items_loaded", "items_loaded", "left"}, rec.names())
}

func TestManager_LoadRejectsWrongType(t *testing.T) {
	m := room.NewManager(nil, zap.NewNop())
	m.Enter("r1")
	err := m.LoadWallItems([]furni.Furni{chair(1)})
	assert.Error(t, err)
}

func TestManager_NotInRoom(t *testing.T) {
	m := room.NewManager(nil, zap.NewNop())
	assert.ErrorIs(t, m.AddItem(chair(1)), room.ErrNotInRoom)
	assert.ErrorIs(t, m.LoadFloorItems(nil), room.ErrNotInRoom)
	assert.ErrorIs(t, m.Pickup(chair(1).Key()), room.ErrNotInRoom)
}

func TestManager_EnterWhileInRoomLeavesFirst(t *testing.T) {
	m := room.NewManager(nil, zap.NewNop())
	rec := &recorder{}
	m.Subscribe(rec.handle)

	m.Enter("r1")
	require.NoError(t, m.AddItem(chair(1)))
	m.Enter("r2")

	assert.Equal(t, []string{"entered", "item_added", "left", "entered"}, rec.names())
	assert.Equal(t, 0, m.FurniCount())
}

func TestManager_VisibilityToggle(t *testing.T) {
	m := room.NewManager(nil, zap.NewNop())
	m.Enter("r1")
	require.NoError(t, m.AddItem(chair(1)))

	rec := &recorder{}
	m.Subscribe(rec.handle)

	m.HideFurni(chair(1))
	m.HideFurni(chair(1)) // already hidden: no event
	m.ShowFurni(chair(1))
	m.HideFurni(chair(99)) // unknown: no event

	require.Len(t, rec.events, 2)
	first := rec.events[0].(room.VisibilityToggled)
	assert.True(t, first.Item.Hidden)
	second := rec.events[1].(room.VisibilityToggled)
	assert.False(t, second.Item.Hidden)
}

func TestManager_RemoveUnknown(t *testing.T) {
	m := room.NewManager(nil, zap.NewNop())
	m.Enter("r1")
	err := m.RemoveItem(chair(5).Key())
	assert.ErrorIs(t, err, room.ErrUnknownItem)
}

func TestManager_Unsubscribe(t *testing.T) {
	m := room.NewManager(nil, zap.NewNop())
	rec := &recorder{}
	unsub := m.Subscribe(rec.handle)
	m.Enter("r1")
	unsub()
	unsub()
	m.Leave()
	assert.Equal(t, []string{"entered"}, rec.names())
}

type fakeSender struct {
	sent []furni.Key
	err  error
}

func (s *fakeSender) SendPickup(key furni.Key) error {
	s.sent = append(s.sent, key)
	return s.err
}

func TestManager_PickupWithoutSenderRemovesLocally(t *testing.T) {
	m := room.NewManager(nil, zap.NewNop())
	m.Enter("r1")
	require.NoError(t, m.AddItem(chair(1)))
	require.NoError(t, m.Pickup(chair(1).Key()))
	_, ok := m.Lookup(chair(1).Key())
	assert.False(t, ok)
}

func TestManager_PickupUsesSender(t *testing.T) {
	s := &fakeSender{}
	m := room.NewManager(s, zap.NewNop())
	m.Enter("r1")
	require.NoError(t, m.AddItem(chair(1)))
	require.NoError(t, m.Pickup(chair(1).Key()))
	assert.Equal(t, []furni.Key{chair(1).Key()}, s.sent)

	// The server confirms removal separately; the item is still present.
	_, ok := m.Lookup(chair(1).Key())
	assert.True(t, ok)

	s.err = errors.New("disconnected")
	assert.Error(t, m.Pickup(chair(1).Key()))
	assert.ErrorIs(t, m.Pickup(chair(7).Key()), room.ErrUnknownItem)
}

func TestManager_FurniSortedByKey(t *testing.T) {
	m := room.NewManager(nil, zap.NewNop())
	m.Enter("r1")
	require.NoError(t, m.AddItem(furni.Furni{Type: furni.Wall, ID: 1}))
	require.NoError(t, m.AddItem(chair(9)))
	require.NoError(t, m.AddItem(chair(3)))

	got := m.Furni()
	require.Len(t, got, 3)
	assert.Equal(t, int64(3), got[0].ID)
	assert.Equal(t, int64(9), got[1].ID)
	assert.Equal(t, furni.Wall, got[2].Type)
}

func TestManager_OwnerResetOnRoomChange(t *testing.T) {
	m := room.NewManager(nil, zap.NewNop())
	m.SetOwner(true)
	assert.False(t, m.IsOwner(), "ownership requires a room")

	m.Enter("r1")
	m.SetOwner(true)
	assert.True(t, m.IsOwner())

	m.Enter("r2")
	assert.False(t, m.IsOwner())

	m.SetOwner(true)
	m.Leave()
	assert.False(t, m.IsOwner())
}

func TestManager_ConcurrentMutationsDeliverInChangeOrder(t *testing.T) {
	m := room.NewManager(nil, zap.NewNop())
	m.Enter("r1")

	// The first subscriber stalls on the add so the removal happens while
	// the add is still being delivered.
	stalled := make(chan struct{})
	resume := make(chan struct{})
	m.Subscribe(func(e room.Event) {
		if _, ok := e.(room.ItemAdded); ok {
			close(stalled)
			<-resume
		}
	})
	var mu sync.Mutex
	var got []string
	m.Subscribe(func(e room.Event) {
		mu.Lock()
		got = append(got, room.EventName(e))
		mu.Unlock()
	})

	added := make(chan error, 1)
	go func() { added <- m.AddItem(chair(1)) }()
	<-stalled

	require.NoError(t, m.RemoveItem(chair(1).Key()))
	assert.Equal(t, 0, m.FurniCount())
	close(resume)
	require.NoError(t, <-added)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"item_added", "item_removed"}, got)
}

func TestManager_ReentrantMutationIsDeliveredAfterCurrentEvent(t *testing.T) {
	m := room.NewManager(nil, zap.NewNop())
	m.Enter("r1")

	m.Subscribe(func(e room.Event) {
		if ev, ok := e.(room.ItemAdded); ok {
			m.HideFurni(ev.Item)
		}
	})
	rec := &recorder{}
	m.Subscribe(rec.handle)

	require.NoError(t, m.AddItem(chair(1)))
	assert.Equal(t, []string{"item_added", "visibility_toggled"}, rec.names())
	it, ok := m.Lookup(chair(1).Key())
	require.True(t, ok)
	assert.True(t, it.Hidden)
}

func TestManager_PanickingSubscriberDoesNotStallDelivery(t *testing.T) {
	m := room.NewManager(nil, zap.NewNop())
	boom := true
	m.Subscribe(func(room.Event) {
		if boom {
			boom = false
			panic("subscriber failure")
		}
	})
	rec := &recorder{}
	m.Subscribe(rec.handle)

	assert.Panics(t, func() { m.Enter("r1") })
	require.NoError(t, m.AddItem(chair(1)))
	assert.Equal(t, []string{"item_added"}, rec.names())
}
