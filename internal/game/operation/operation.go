// Package operation runs long furni operations (bulk pickups, ejects) one at a
// time and lets them be cancelled by ID or all at once.
package operation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrBusy is returned when an operation is started while another is running.
var ErrBusy = errors.New("an operation is already in progress")

// Outcomes passed to Recorder.OperationFinished.
const (
	OutcomeCompleted = "completed"
	OutcomeCanceled  = "canceled"
	OutcomeFailed    = "failed"
)

// Recorder receives finished operations for metrics.
type Recorder interface {
	OperationFinished(kind, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) OperationFinished(string, string) {}

// Func is the body of an operation. It must return promptly once ctx is done.
type Func func(ctx context.Context) error

// Info describes a running operation.
type Info struct {
	ID      string
	Kind    string
	Started time.Time
}

type running struct {
	info   Info
	cancel context.CancelFunc
}

// Manager tracks running operations.
type Manager struct {
	mu       sync.Mutex
	ops      map[string]*running
	wg       sync.WaitGroup
	logger   *zap.Logger
	recorder Recorder
}

// NewManager creates a Manager. A nil recorder disables metrics.
//
// Precondition: logger must be non-nil.
func NewManager(logger *zap.Logger, recorder Recorder) *Manager {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Manager{
		ops:      make(map[string]*running),
		logger:   logger,
		recorder: recorder,
	}
}

func (m *Manager) register(parent context.Context, kind string) (*running, context.Context, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.ops) > 0 {
		return nil, nil, ErrBusy
	}
	ctx, cancel := context.WithCancel(parent)
	op := &running{
		info:   Info{ID: uuid.New().String(), Kind: kind, Started: time.Now()},
		cancel: cancel,
	}
	m.ops[op.info.ID] = op
	m.wg.Add(1)
	return op, ctx, nil
}

func (m *Manager) execute(ctx context.Context, op *running, fn Func) error {
	defer m.wg.Done()
	defer func() {
		m.mu.Lock()
		delete(m.ops, op.info.ID)
		m.mu.Unlock()
		op.cancel()
	}()

	m.logger.Info("operation started", zap.String("id", op.info.ID), zap.String("kind", op.info.Kind))
	err := fn(ctx)

	outcome := OutcomeCompleted
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		outcome = OutcomeCanceled
	default:
		outcome = OutcomeFailed
	}
	m.recorder.OperationFinished(op.info.Kind, outcome)
	m.logger.Info("operation finished",
		zap.String("id", op.info.ID),
		zap.String("kind", op.info.Kind),
		zap.String("outcome", outcome),
		zap.Duration("elapsed", time.Since(op.info.Started)),
		zap.Error(err),
	)
	if err != nil {
		return fmt.Errorf("%s operation: %w", op.info.Kind, err)
	}
	return nil
}

// Run executes fn on the calling goroutine and returns its ID and result.
//
// Postcondition: Returns ErrBusy without calling fn if another operation is running.
func (m *Manager) Run(ctx context.Context, kind string, fn Func) (string, error) {
	op, opCtx, err := m.register(ctx, kind)
	if err != nil {
		return "", err
	}
	return op.info.ID, m.execute(opCtx, op, fn)
}

// Start executes fn on a new goroutine. done, if non-nil, receives the result.
//
// Postcondition: Returns the operation ID, or ErrBusy if another operation is running.
func (m *Manager) Start(ctx context.Context, kind string, fn Func, done func(error)) (string, error) {
	op, opCtx, err := m.register(ctx, kind)
	if err != nil {
		return "", err
	}
	go func() {
		err := m.execute(opCtx, op, fn)
		if done != nil {
			done(err)
		}
	}()
	return op.info.ID, nil
}

// Cancel cancels the operation with the given ID.
//
// Postcondition: Returns false if no such operation is running.
func (m *Manager) Cancel(id string) bool {
	m.mu.Lock()
	op, ok := m.ops[id]
	m.mu.Unlock()
	if !ok {
		return false
	}
	op.cancel()
	return true
}

// CancelAll cancels every running operation and returns how many there were.
func (m *Manager) CancelAll() int {
	m.mu.Lock()
	ops := make([]*running, 0, len(m.ops))
	for _, op := range m.ops {
		ops = append(ops, op)
	}
	m.mu.Unlock()
	for _, op := range ops {
		op.cancel()
	}
	return len(ops)
}

// Running returns the running operations ordered by start time.
func (m *Manager) Running() []Info {
	m.mu.Lock()
	out := make([]Info, 0, len(m.ops))
	for _, op := range m.ops {
		out = append(out, op.info)
	}
	m.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Started.Before(out[j].Started) })
	return out
}

// Busy reports whether an operation is running.
func (m *Manager) Busy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ops) > 0
}

// Wait blocks until every started operation has returned.
func (m *Manager) Wait() {
	m.wg.Wait()
}
