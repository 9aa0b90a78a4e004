package scripting

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Hook names called by Hooks.
const (
	HookFurniAdded   = "on_furni_added"
	HookFurniRemoved = "on_furni_removed"
	HookRoomLeft     = "on_room_left"
)

// FurniInfo is a snapshot of a furni passed to Lua callbacks.
type FurniInfo struct {
	Type      string
	ID        int64
	ClassID   int
	Variant   string
	Name      string
	OwnerID   int64
	OwnerName string
	Hidden    bool
}

// Manager owns one sandboxed LState holding every automation script and
// exposes hook dispatch. Calls are serialized; the VM is single-threaded.
type Manager struct {
	mu     sync.Mutex
	L      *lua.LState
	limit  int
	logger *zap.Logger

	// Injected after construction. nil = no-op in furni.* functions.
	SetVisible func(itemType string, id int64, visible bool) bool
	CountFurni func() int
}

// NewManager creates a Manager with no scripts loaded.
//
// Precondition: logger must be non-nil.
// Postcondition: Returns a non-nil Manager.
func NewManager(logger *zap.Logger) *Manager {
	if logger == nil {
		panic("scripting.NewManager: logger must not be nil")
	}
	return &Manager{logger: logger}
}

// Load creates a sandboxed VM, registers the furni.* and log.* modules, then
// executes every *.lua file in scriptDir in lexicographic order. Each file
// gets its own instruction budget. A previously loaded VM is replaced.
//
// Precondition: scriptDir must be a readable directory.
// Postcondition: The VM is registered; returns error on Lua load failure.
func (m *Manager) Load(scriptDir string, instLimit int) error {
	limit := effectiveLimit(instLimit)
	L := NewSandboxedState(limit)
	m.RegisterModules(L)

	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		L.Close()
		return fmt.Errorf("scripting: reading script dir %q: %w", scriptDir, err)
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	for _, path := range luaFiles {
		budget, release := withBudget(L, limit)
		err := budgetErr(budget, L.DoFile(path))
		release()
		if err != nil {
			L.Close()
			return fmt.Errorf("scripting: loading %q: %w", path, err)
		}
	}

	m.mu.Lock()
	if m.L != nil {
		m.L.Close()
	}
	m.L = L
	m.limit = limit
	m.mu.Unlock()

	m.logger.Info("scripts loaded", zap.String("dir", scriptDir), zap.Int("files", len(luaFiles)))
	return nil
}

// Loaded reports whether a VM is registered.
func (m *Manager) Loaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.L != nil
}

// CallHook calls the named Lua global function with a fresh instruction
// budget. Returns (LNil, nil) if the hook is not defined or no VM exists.
// Lua runtime errors are logged at Warn level and never propagated.
//
// Precondition: args must be valid lua.LValue instances. Must not be called
// from within a Lua callback.
// Postcondition: Returns the first return value of the hook, or LNil.
func (m *Manager) CallHook(hook string, args ...lua.LValue) (lua.LValue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callLocked(hook, func(*lua.LState) []lua.LValue { return args })
}

// CallFurniHook calls hook with a table built from f.
func (m *Manager) CallFurniHook(hook string, f FurniInfo) (lua.LValue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callLocked(hook, func(L *lua.LState) []lua.LValue {
		return []lua.LValue{furniToTable(L, f)}
	})
}

func (m *Manager) callLocked(hook string, args func(*lua.LState) []lua.LValue) (lua.LValue, error) {
	L := m.L
	if L == nil {
		m.logger.Debug("scripting: no VM loaded", zap.String("hook", hook))
		return lua.LNil, nil
	}

	fn := L.GetGlobal(hook)
	if fn == lua.LNil {
		return lua.LNil, nil
	}

	budget, release := withBudget(L, m.limit)
	defer release()
	err := L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, args(L)...)
	if err = budgetErr(budget, err); err != nil {
		msg := "scripting: Lua runtime error"
		if errors.Is(err, ErrBudgetExceeded) {
			msg = "scripting: hook ran out of instructions"
		}
		m.logger.Warn(msg, zap.String("hook", hook), zap.Error(err))
		return lua.LNil, nil
	}

	ret := L.Get(-1)
	L.Pop(1)
	return ret, nil
}

// Close releases the VM. Subsequent hook calls are no-ops.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.L != nil {
		m.L.Close()
		m.L = nil
	}
}
