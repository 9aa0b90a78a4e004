package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RegisterModules registers the furni and log Lua tables into L.
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: furni and log globals are defined in L.
func (m *Manager) RegisterModules(L *lua.LState) {
	furniMod := L.NewTable()
	L.SetField(furniMod, "hide", L.NewFunction(m.luaSetVisible(false)))
	L.SetField(furniMod, "show", L.NewFunction(m.luaSetVisible(true)))
	L.SetField(furniMod, "count", L.NewFunction(m.luaCount))
	L.SetGlobal("furni", furniMod)

	logMod := L.NewTable()
	L.SetField(logMod, "debug", L.NewFunction(m.luaLog(zap.DebugLevel)))
	L.SetField(logMod, "info", L.NewFunction(m.luaLog(zap.InfoLevel)))
	L.SetField(logMod, "warn", L.NewFunction(m.luaLog(zap.WarnLevel)))
	L.SetGlobal("log", logMod)
}

// luaSetVisible implements furni.hide(type, id) and furni.show(type, id).
// Returns true if the furni exists.
func (m *Manager) luaSetVisible(visible bool) lua.LGFunction {
	return func(L *lua.LState) int {
		itemType := L.CheckString(1)
		id := int64(L.CheckNumber(2))
		if m.SetVisible == nil {
			L.Push(lua.LFalse)
			return 1
		}
		L.Push(lua.LBool(m.SetVisible(itemType, id, visible)))
		return 1
	}
}

// luaCount implements furni.count().
func (m *Manager) luaCount(L *lua.LState) int {
	if m.CountFurni == nil {
		L.Push(lua.LNumber(0))
		return 1
	}
	L.Push(lua.LNumber(m.CountFurni()))
	return 1
}

// luaLog implements log.debug/info/warn(msg).
func (m *Manager) luaLog(level zapcore.Level) lua.LGFunction {
	return func(L *lua.LState) int {
		msg := L.CheckString(1)
		if ce := m.logger.Check(level, msg); ce != nil {
			ce.Write(zap.String("source", "lua"))
		}
		return 0
	}
}

// furniToTable converts a FurniInfo to a Lua table.
func furniToTable(L *lua.LState, f FurniInfo) *lua.LTable {
	t := L.NewTable()
	L.SetField(t, "type", lua.LString(f.Type))
	L.SetField(t, "id", lua.LNumber(f.ID))
	L.SetField(t, "class_id", lua.LNumber(f.ClassID))
	L.SetField(t, "variant", lua.LString(f.Variant))
	L.SetField(t, "name", lua.LString(f.Name))
	L.SetField(t, "owner_id", lua.LNumber(f.OwnerID))
	L.SetField(t, "owner", lua.LString(f.OwnerName))
	L.SetField(t, "hidden", lua.LBool(f.Hidden))
	return t
}
