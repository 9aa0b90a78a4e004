// Package scripting provides a sandboxed GopherLua execution environment for
// furni automation scripts. The Lua VM knows nothing about the room; furni
// actions are injected via Manager callback fields and room events are fed in
// by Hooks.
package scripting

import (
	"context"
	"errors"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"
)

// DefaultInstructionLimit is the opcode budget of one script load or hook call
// when no override is configured.
const DefaultInstructionLimit = 100_000

// ErrBudgetExceeded is reported when a script runs out of opcodes.
var ErrBudgetExceeded = errors.New("scripting: instruction budget exceeded")

// unsafeGlobals are cleared from every sandboxed state. print is dropped in
// favour of the log.* module.
var unsafeGlobals = []string{"dofile", "loadfile", "load", "loadstring", "collectgarbage", "require", "print"}

// opBudget is installed as the LState context. GopherLua polls Done once per
// opcode, so every poll spends one unit.
type opBudget struct {
	context.Context
	cancel context.CancelFunc
	left   atomic.Int64
}

func (b *opBudget) Done() <-chan struct{} {
	if b.left.Add(-1) < 0 {
		b.cancel()
	}
	return b.Context.Done()
}

// exhausted reports whether the budget ran out.
func (b *opBudget) exhausted() bool {
	return b.left.Load() < 0
}

func effectiveLimit(instLimit int) int {
	if instLimit <= 0 {
		return DefaultInstructionLimit
	}
	return instLimit
}

// withBudget installs a fresh budget of limit opcodes on L.
//
// Postcondition: The caller must call release once the Lua call returns.
func withBudget(L *lua.LState, limit int) (b *opBudget, release context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	b = &opBudget{Context: ctx, cancel: cancel}
	b.left.Store(int64(limit))
	L.SetContext(b)
	return b, cancel
}

// budgetErr maps a Lua error raised by an exhausted budget to ErrBudgetExceeded.
func budgetErr(b *opBudget, err error) error {
	if err != nil && b.exhausted() {
		return errors.Join(ErrBudgetExceeded, err)
	}
	return err
}

// NewSandboxedState creates a GopherLua state that opens only the base,
// table, string and math libraries, clears unsafeGlobals and starts with a
// budget of instLimit opcodes.
//
// Precondition: instLimit >= 0; 0 uses DefaultInstructionLimit.
// Postcondition: The caller owns the state and must Close it.
func NewSandboxedState(instLimit int) *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, open := range []lua.LGFunction{lua.OpenBase, lua.OpenTable, lua.OpenString, lua.OpenMath} {
		open(L)
	}
	for _, name := range unsafeGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	withBudget(L, effectiveLimit(instLimit)) //nolint:govet // released with the state
	return L
}
