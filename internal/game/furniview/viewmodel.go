package furniview

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/roomfurni/internal/game/furni"
	"github.com/cory-johannsen/roomfurni/internal/uictx"
)

// View names used when recording rebuilds.
const (
	ItemsView  = "items"
	StacksView = "stacks"
)

// Recorder receives engine activity for metrics.
type Recorder interface {
	EventHandled(event string)
	ViewRebuilt(view string)
	Counts(items, stacks int)
}

type nopRecorder struct{}

func (nopRecorder) EventHandled(string) {}
func (nopRecorder) ViewRebuilt(string)  {}
func (nopRecorder) Counts(int, int)     {}

// Option configures a RoomFurni.
type Option func(*RoomFurni)

// WithRecorder routes engine activity to r.
func WithRecorder(r Recorder) Option {
	return func(vm *RoomFurni) { vm.recorder = r }
}

// WithFilterText sets the initial filter text.
func WithFilterText(text string) Option {
	return func(vm *RoomFurni) { vm.initialFilter = text }
}

// WithShowGrid sets the initial grid-mode flag.
func WithShowGrid(show bool) Option {
	return func(vm *RoomFurni) { vm.ShowGrid.set(show) }
}

// RoomFurni is the furni list state of the current room: the per-item and
// per-stack ordered views, the shared filter, the empty-state signals and the
// selection commands.
type RoomFurni struct {
	ctx      uictx.Context
	logger   *zap.Logger
	recorder Recorder

	cache  *Cache
	items  *OrderedView[*furni.Item]
	stacks *OrderedView[*furni.Stack]
	status Status
	sel    *selection

	inRoom        bool
	initialFilter string
	detach        func()

	// ShowGrid is the consumer's list/grid display preference.
	ShowGrid Property[bool]
	// HideCmd hides every selected item; enabled iff a selected item is visible.
	HideCmd *Command
	// ShowCmd reveals every selected item; enabled iff a selected item is hidden.
	ShowCmd *Command
}

// NewRoomFurni creates an empty RoomFurni bound to ctx.
//
// Precondition: ctx, names, actions and logger must be non-nil.
// Postcondition: The views are empty, IsEmpty is false and EmptyStatus is StatusNoFurni.
func NewRoomFurni(ctx uictx.Context, names furni.NameResolver, actions VisibilityActions, logger *zap.Logger, opts ...Option) *RoomFurni {
	vm := &RoomFurni{
		ctx:      ctx,
		logger:   logger,
		recorder: nopRecorder{},
		cache:    NewCache(names),
	}
	vm.sel = newSelection(actions, vm.isLive)
	for _, opt := range opts {
		opt(vm)
	}
	vm.HideCmd = &vm.sel.hide
	vm.ShowCmd = &vm.sel.show

	vm.items = NewOrderedView(vm.cache.Items, compareItemKeys)
	vm.stacks = NewOrderedView(vm.cache.Stacks, compareStackDescriptors)
	vm.items.SetFilter(vm.initialFilter)
	vm.stacks.SetFilter(vm.initialFilter)

	// Listener order is the recompute order: views first, then derived state.
	vm.cache.Subscribe(vm.applyToViews)
	vm.cache.Subscribe(vm.afterChange)

	vm.recomputeStatus()
	return vm
}

func (vm *RoomFurni) applyToViews(ch Changes) {
	if ch.Reset {
		vm.items.Rebuild()
		vm.stacks.Rebuild()
		vm.recorder.ViewRebuilt(ItemsView)
		vm.recorder.ViewRebuilt(StacksView)
		return
	}
	for _, c := range ch.Items {
		vm.items.Apply(c.Kind, c.Item)
	}
	for _, c := range ch.Stacks {
		vm.stacks.Apply(c.Kind, c.Stack)
	}
}

func (vm *RoomFurni) afterChange(ch Changes) {
	vm.recomputeStatus()
	if ch.Reset || len(ch.Items) > 0 {
		vm.sel.recompute()
	}
	vm.recorder.Counts(vm.cache.ItemCount(), vm.cache.StackCount())
}

// isLive reports whether it is the projection currently indexed under its key.
func (vm *RoomFurni) isLive(it *furni.Item) bool {
	cur, ok := vm.cache.Item(it.Key())
	return ok && cur == it
}

func (vm *RoomFurni) recomputeStatus() {
	vm.status.Recompute(vm.inRoom, vm.cache.ItemCount(), vm.items.Len())
}

// Cache exposes the underlying dual index for read-only inspection.
func (vm *RoomFurni) Cache() *Cache { return vm.cache }

// Items returns the filtered, sorted item view.
func (vm *RoomFurni) Items() *OrderedView[*furni.Item] { return vm.items }

// Stacks returns the filtered, sorted stack view.
func (vm *RoomFurni) Stacks() *OrderedView[*furni.Stack] { return vm.stacks }

// FilterText returns the shared filter text.
func (vm *RoomFurni) FilterText() string { return vm.items.Filter() }

// SetFilterText re-filters both views with text.
func (vm *RoomFurni) SetFilterText(text string) {
	if !vm.items.SetFilter(text) {
		return
	}
	vm.stacks.SetFilter(text)
	vm.recorder.ViewRebuilt(ItemsView)
	vm.recorder.ViewRebuilt(StacksView)
	vm.recomputeStatus()
}

// IsInRoom reports the last observed room-membership state.
func (vm *RoomFurni) IsInRoom() bool { return vm.inRoom }

// IsEmpty is true while in a room with no furni.
func (vm *RoomFurni) IsEmpty() *Property[bool] { return &vm.status.IsEmpty }

// EmptyStatus is the empty-list explanation, or "".
func (vm *RoomFurni) EmptyStatus() *Property[string] { return &vm.status.EmptyStatus }

// SetSelection replaces the consumer's selection. The slice is read, never modified.
func (vm *RoomFurni) SetSelection(items []*furni.Item) {
	vm.sel.set(items)
}

// Selection returns the current selection as set by the consumer.
func (vm *RoomFurni) Selection() []*furni.Item { return vm.sel.items }

// SetShowGrid updates the grid-mode flag.
func (vm *RoomFurni) SetShowGrid(show bool) { vm.ShowGrid.set(show) }
