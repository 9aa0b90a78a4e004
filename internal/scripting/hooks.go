package scripting

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/roomfurni/internal/game/furni"
	"github.com/cory-johannsen/roomfurni/internal/game/room"
	"github.com/cory-johannsen/roomfurni/internal/uictx"
)

// Room is the room state the furni.* Lua functions act on.
type Room interface {
	Lookup(key furni.Key) (furni.Furni, bool)
	SetFurniVisible(f furni.Furni, visible bool)
	FurniCount() int
}

// Bind backs the furni.* Lua functions of mgr with r.
//
// Precondition: mgr and r must be non-nil.
func Bind(mgr *Manager, r Room) {
	mgr.SetVisible = func(itemType string, id int64, visible bool) bool {
		t, err := furni.ParseItemType(itemType)
		if err != nil {
			return false
		}
		f, ok := r.Lookup(furni.Key{Type: t, ID: id})
		if !ok {
			return false
		}
		r.SetFurniVisible(f, visible)
		return true
	}
	mgr.CountFurni = r.FurniCount
}

// Hooks feeds room events to the automation scripts. Hook calls run on the
// Hooks' context, never on the goroutine that mutated the room.
type Hooks struct {
	mgr    *Manager
	ctx    uictx.Context
	names  furni.NameResolver
	logger *zap.Logger
	detach func()
}

// NewHooks creates Hooks calling into mgr.
//
// Precondition: All arguments must be non-nil.
func NewHooks(mgr *Manager, ctx uictx.Context, names furni.NameResolver, logger *zap.Logger) *Hooks {
	return &Hooks{mgr: mgr, ctx: ctx, names: names, logger: logger}
}

// Attach subscribes to src, replacing any previous source.
func (h *Hooks) Attach(src room.Source) {
	h.Detach()
	h.detach = src.Subscribe(func(e room.Event) {
		h.ctx.Post(func() { h.handle(e) })
	})
}

// Detach stops receiving events.
func (h *Hooks) Detach() {
	if h.detach != nil {
		h.detach()
		h.detach = nil
	}
}

// Info converts f to the snapshot passed to Lua.
func (h *Hooks) Info(f furni.Furni) FurniInfo {
	name, ok := h.names.FurniName(f.Descriptor())
	if !ok {
		name = ""
	}
	return FurniInfo{
		Type:      f.Type.String(),
		ID:        f.ID,
		ClassID:   f.ClassID,
		Variant:   f.Variant,
		Name:      name,
		OwnerID:   f.OwnerID,
		OwnerName: f.OwnerName,
		Hidden:    f.Hidden,
	}
}

func (h *Hooks) handle(e room.Event) {
	switch ev := e.(type) {
	case room.ItemsLoaded:
		for _, f := range ev.Items {
			h.call(HookFurniAdded, f)
		}
	case room.ItemAdded:
		h.call(HookFurniAdded, ev.Item)
	case room.ItemRemoved:
		h.call(HookFurniRemoved, ev.Item)
	case room.Left:
		if _, err := h.mgr.CallHook(HookRoomLeft); err != nil {
			h.logger.Warn("scripting: hook failed", zap.String("hook", HookRoomLeft), zap.Error(err))
		}
	}
}

func (h *Hooks) call(hook string, f furni.Furni) {
	if _, err := h.mgr.CallFurniHook(hook, h.Info(f)); err != nil {
		h.logger.Warn("scripting: hook failed", zap.String("hook", hook), zap.Error(err))
	}
}
