package scenario

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/roomfurni/internal/game/furni"
	"github.com/cory-johannsen/roomfurni/internal/game/furniview"
	"github.com/cory-johannsen/roomfurni/internal/game/room"
	"github.com/cory-johannsen/roomfurni/internal/uictx"
)

// CommandRunner executes a chat command line.
type CommandRunner interface {
	Execute(ctx context.Context, line string) error
}

// OperationWaiter blocks until background operations have finished.
type OperationWaiter interface {
	Wait()
}

// Report is a snapshot of the view model taken by a report step.
type Report struct {
	Step        int
	InRoom      bool
	Filter      string
	Items       []string
	Stacks      []string
	IsEmpty     bool
	EmptyStatus string
	HideEnabled bool
	ShowEnabled bool
}

// Runner replays scenarios. Room steps run on the caller's goroutine, as the
// protocol layer would; view model steps are marshaled onto the view model's
// context.
type Runner struct {
	room     *room.Manager
	vm       *furniview.RoomFurni
	ui       uictx.Context
	commands CommandRunner
	ops      OperationWaiter
	report   func(Report)
	logger   *zap.Logger
}

// NewRunner creates a Runner. commands and ops may be nil, in which case
// command and await_operations steps fail. report receives every report step.
//
// Precondition: r, vm, ui, report and logger must be non-nil.
func NewRunner(r *room.Manager, vm *furniview.RoomFurni, ui uictx.Context, commands CommandRunner, ops OperationWaiter, report func(Report), logger *zap.Logger) *Runner {
	return &Runner{
		room:     r,
		vm:       vm,
		ui:       ui,
		commands: commands,
		ops:      ops,
		report:   report,
		logger:   logger,
	}
}

// Run executes the steps of sc in order.
//
// Postcondition: Returns nil after the last step, ctx's error if cancelled,
// or the first failing step's error.
func (r *Runner) Run(ctx context.Context, sc *Scenario) error {
	start := time.Now()
	r.logger.Info("replaying scenario",
		zap.String("scenario", sc.Name),
		zap.Int("steps", len(sc.Steps)),
	)
	for i, step := range sc.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.step(ctx, i, step); err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, step.Kind, err)
		}
	}
	r.logger.Info("scenario finished",
		zap.String("scenario", sc.Name),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func (r *Runner) step(ctx context.Context, i int, s Step) error {
	r.logger.Debug("scenario step", zap.Int("step", i+1), zap.String("kind", string(s.Kind)))
	switch s.Kind {
	case KindEnter:
		r.room.Enter(s.Room)
		r.room.SetOwner(s.Owner)
	case KindLeave:
		r.room.Leave()
	case KindOwner:
		r.room.SetOwner(s.Owner)
	case KindLoad:
		if s.ItemType == furni.Wall {
			return r.room.LoadWallItems(s.Items)
		}
		return r.room.LoadFloorItems(s.Items)
	case KindAdd:
		return r.room.AddItem(s.Items[0])
	case KindRemove:
		return r.room.RemoveItem(s.Keys[0])
	case KindHide, KindShow:
		f, ok := r.room.Lookup(s.Keys[0])
		if !ok {
			return fmt.Errorf("%s: %w", s.Keys[0], room.ErrUnknownItem)
		}
		r.room.SetFurniVisible(f, s.Kind == KindShow)
	case KindFilter:
		return r.ui.Invoke(ctx, func() { r.vm.SetFilterText(s.Text) })
	case KindSelect:
		return r.ui.Invoke(ctx, func() {
			items := make([]*furni.Item, 0, len(s.Keys))
			for _, k := range s.Keys {
				if it, ok := r.vm.Cache().Item(k); ok {
					items = append(items, it)
				} else {
					r.logger.Warn("selected furni not in the list", zap.Stringer("key", k))
				}
			}
			r.vm.SetSelection(items)
		})
	case KindExecute:
		var ran bool
		err := r.ui.Invoke(ctx, func() {
			if s.Text == ExecuteHide {
				ran = r.vm.HideCmd.Execute()
			} else {
				ran = r.vm.ShowCmd.Execute()
			}
		})
		if err == nil && !ran {
			r.logger.Info("selection command disabled", zap.String("command", s.Text))
		}
		return err
	case KindCommand:
		if r.commands == nil {
			return fmt.Errorf("commands are not available")
		}
		return r.commands.Execute(ctx, s.Text)
	case KindWait:
		timer := time.NewTimer(s.Duration)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	case KindAwait:
		if r.ops == nil {
			return fmt.Errorf("operations are not available")
		}
		r.ops.Wait()
	case KindReport:
		rep, err := r.Snapshot(ctx)
		if err != nil {
			return err
		}
		rep.Step = i + 1
		r.report(rep)
	default:
		return fmt.Errorf("unknown step kind %q", s.Kind)
	}
	return nil
}

// Snapshot captures the current view model state on its context.
func (r *Runner) Snapshot(ctx context.Context) (Report, error) {
	var rep Report
	err := r.ui.Invoke(ctx, func() {
		rep = Report{
			InRoom:      r.vm.IsInRoom(),
			Filter:      r.vm.FilterText(),
			IsEmpty:     r.vm.IsEmpty().Get(),
			EmptyStatus: r.vm.EmptyStatus().Get(),
			HideEnabled: r.vm.HideCmd.Enabled(),
			ShowEnabled: r.vm.ShowCmd.Enabled(),
		}
		for _, it := range r.vm.Items().Slice() {
			name := it.DisplayName()
			if it.IsHidden() {
				name += " (hidden)"
			}
			rep.Items = append(rep.Items, name)
		}
		for _, st := range r.vm.Stacks().Slice() {
			rep.Stacks = append(rep.Stacks, fmt.Sprintf("%s x%d", st.DisplayName(), st.Count()))
		}
	})
	return rep, err
}
