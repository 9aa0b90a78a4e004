package furniview

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/roomfurni/internal/game/room"
)

// Attach subscribes to src and seeds the cache with the furni already in the
// room. Events are posted onto the RoomFurni's context from whichever
// goroutine delivers them. Attaching again replaces the previous source.
//
// Precondition: Must be called on the RoomFurni's context.
func (vm *RoomFurni) Attach(src room.Source) {
	vm.Detach()
	vm.detach = src.Subscribe(vm.HandleEvent)
	// The snapshot is read on the context so that every mutation it misses is
	// queued behind it.
	vm.ctx.Post(func() {
		inRoom := src.IsInRoom()
		vm.cache.Clear()
		if inRoom {
			vm.cache.UpsertItems(src.Furni())
		}
		vm.setInRoom(inRoom)
	})
}

// Detach stops receiving events from the attached source.
func (vm *RoomFurni) Detach() {
	if vm.detach != nil {
		vm.detach()
		vm.detach = nil
	}
}

// HandleEvent marshals e onto the context and applies it there. It is safe to
// call from any goroutine.
func (vm *RoomFurni) HandleEvent(e room.Event) {
	vm.ctx.Post(func() { vm.apply(e) })
}

func (vm *RoomFurni) apply(e room.Event) {
	vm.recorder.EventHandled(room.EventName(e))
	switch ev := e.(type) {
	case room.ItemsLoaded:
		vm.cache.UpsertItems(ev.Items)
		vm.logger.Debug("furni loaded",
			zap.Stringer("type", ev.Type),
			zap.Int("count", len(ev.Items)),
		)
	case room.ItemAdded:
		vm.cache.UpsertItem(ev.Item)
	case room.ItemRemoved:
		if !vm.cache.RemoveItem(ev.Item.Key()) {
			vm.logger.Debug("ignoring removal of unknown furni", zap.Stringer("key", ev.Item.Key()))
		}
	case room.VisibilityToggled:
		if !vm.cache.SetHidden(ev.Item.Key(), ev.Item.Hidden) {
			vm.logger.Debug("ignoring visibility of unknown furni", zap.Stringer("key", ev.Item.Key()))
		}
	case room.Entered:
		vm.setInRoom(true)
	case room.Left:
		vm.cache.Clear()
		vm.setInRoom(false)
	default:
		vm.logger.Warn("unhandled room event", zap.String("event", room.EventName(e)))
	}
}

func (vm *RoomFurni) setInRoom(inRoom bool) {
	if vm.inRoom == inRoom {
		return
	}
	vm.inRoom = inRoom
	vm.recomputeStatus()
}
