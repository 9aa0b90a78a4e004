package scripting_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/roomfurni/internal/game/furni"
	"github.com/cory-johannsen/roomfurni/internal/game/room"
	"github.com/cory-johannsen/roomfurni/internal/scripting"
	"github.com/cory-johannsen/roomfurni/internal/uictx"
)

var hookNames = furni.NameResolverFunc(func(d furni.Descriptor) (string, bool) {
	if d.ClassID == 13 {
		return "Rubber Duck", true
	}
	return "", false
})

const autoHide = `
added = 0
removed = 0
left = 0
function on_furni_added(f)
	added = added + 1
	if f.name == "Rubber Duck" then
		furni.hide(f.type, f.id)
	end
end
function on_furni_removed(f)
	removed = removed + 1
end
function on_room_left()
	left = left + 1
end
function counts()
	return added * 100 + removed * 10 + left
end
`

func setupHooks(t *testing.T) (*room.Manager, *scripting.Manager) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	r := room.NewManager(nil, logger)
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.Load(writeTempLua(t, "auto.lua", autoHide), 0))
	scripting.Bind(mgr, r)

	h := scripting.NewHooks(mgr, uictx.Inline{}, hookNames, logger)
	h.Attach(r)
	t.Cleanup(h.Detach)
	return r, mgr
}

func counts(t *testing.T, mgr *scripting.Manager) lua.LValue {
	t.Helper()
	ret, err := mgr.CallHook("counts")
	require.NoError(t, err)
	return ret
}

func TestHooks_AutoHideOnAdd(t *testing.T) {
	r, mgr := setupHooks(t)
	r.Enter("r1")
	require.NoError(t, r.AddItem(furni.Furni{Type: furni.Floor, ID: 1, ClassID: 13}))
	require.NoError(t, r.AddItem(furni.Furni{Type: furni.Floor, ID: 2, ClassID: 14}))

	duck, _ := r.Lookup(furni.Key{Type: furni.Floor, ID: 1})
	other, _ := r.Lookup(furni.Key{Type: furni.Floor, ID: 2})
	assert.True(t, duck.Hidden)
	assert.False(t, other.Hidden)
	assert.Equal(t, lua.LNumber(200), counts(t, mgr))
}

func TestHooks_LoadedBatchCallsAddedPerItem(t *testing.T) {
	r, mgr := setupHooks(t)
	r.Enter("r1")
	require.NoError(t, r.LoadWallItems([]furni.Furni{
		{Type: furni.Wall, ID: 1, ClassID: 13},
		{Type: furni.Wall, ID: 2, ClassID: 13},
	}))
	assert.Equal(t, lua.LNumber(200), counts(t, mgr))
	for _, f := range r.Furni() {
		assert.True(t, f.Hidden)
	}
}

func TestHooks_RemovedAndLeft(t *testing.T) {
	r, mgr := setupHooks(t)
	r.Enter("r1")
	require.NoError(t, r.AddItem(furni.Furni{Type: furni.Floor, ID: 1, ClassID: 14}))
	require.NoError(t, r.RemoveItem(furni.Key{Type: furni.Floor, ID: 1}))
	r.Leave()
	assert.Equal(t, lua.LNumber(111), counts(t, mgr))
}

func TestBind_UnknownTypeOrItem(t *testing.T) {
	r := room.NewManager(nil, zaptest.NewLogger(t))
	mgr, _ := newTestManager(t)
	scripting.Bind(mgr, r)
	r.Enter("r1")
	require.NoError(t, r.AddItem(furni.Furni{Type: furni.Floor, ID: 1, ClassID: 14}))

	assert.False(t, mgr.SetVisible("ceiling", 1, false))
	assert.False(t, mgr.SetVisible("wall", 1, false))
	assert.True(t, mgr.SetVisible("f", 1, false))
	assert.Equal(t, 1, mgr.CountFurni())
}
