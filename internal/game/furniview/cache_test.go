package furniview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/roomfurni/internal/game/furni"
)

func floorItem(id int64, class int) furni.Furni {
	return furni.Furni{Type: furni.Floor, ID: id, ClassID: class}
}

func TestCache_UpsertCreatesItemAndStack(t *testing.T) {
	c := NewCache(furni.NoNames)
	var got []Changes
	c.Subscribe(func(ch Changes) { got = append(got, ch) })

	c.UpsertItem(floorItem(1, 13))

	require.Len(t, got, 1)
	require.Len(t, got[0].Items, 1)
	assert.Equal(t, Added, got[0].Items[0].Kind)
	require.Len(t, got[0].Stacks, 1)
	assert.Equal(t, Added, got[0].Stacks[0].Kind)

	s, ok := c.Stack(furni.Descriptor{Type: furni.Floor, ClassID: 13})
	require.True(t, ok)
	assert.Equal(t, 1, s.Count())
}

func TestCache_DuplicateAddIsUpdate(t *testing.T) {
	c := NewCache(furni.NoNames)
	c.UpsertItem(floorItem(1, 13))
	before, _ := c.Item(furni.Key{Type: furni.Floor, ID: 1})

	var got []Changes
	c.Subscribe(func(ch Changes) { got = append(got, ch) })
	updated := floorItem(1, 13)
	updated.OwnerID = 7
	c.UpsertItem(updated)

	after, _ := c.Item(furni.Key{Type: furni.Floor, ID: 1})
	assert.Same(t, before, after, "update must preserve identity")
	assert.Equal(t, int64(7), after.OwnerID())
	assert.Equal(t, 1, c.ItemCount())

	s, _ := c.Stack(furni.Descriptor{Type: furni.Floor, ClassID: 13})
	assert.Equal(t, 1, s.Count(), "re-adding must not double count")

	require.Len(t, got, 1)
	assert.Equal(t, Updated, got[0].Items[0].Kind)
	assert.Empty(t, got[0].Stacks)
}

func TestCache_DescriptorChangeMovesStack(t *testing.T) {
	c := NewCache(furni.NoNames)
	c.UpsertItem(floorItem(1, 13))
	c.UpsertItem(floorItem(1, 14))

	_, ok := c.Stack(furni.Descriptor{Type: furni.Floor, ClassID: 13})
	assert.False(t, ok)
	s, ok := c.Stack(furni.Descriptor{Type: furni.Floor, ClassID: 14})
	require.True(t, ok)
	assert.Equal(t, 1, s.Count())
}

func TestCache_RemoveLastDeletesStack(t *testing.T) {
	c := NewCache(furni.NoNames)
	c.UpsertItems([]furni.Furni{floorItem(1, 13), floorItem(2, 13)})
	d := furni.Descriptor{Type: furni.Floor, ClassID: 13}

	require.True(t, c.RemoveItem(furni.Key{Type: furni.Floor, ID: 1}))
	s, ok := c.Stack(d)
	require.True(t, ok)
	assert.Equal(t, 1, s.Count())

	require.True(t, c.RemoveItem(furni.Key{Type: furni.Floor, ID: 2}))
	_, ok = c.Stack(d)
	assert.False(t, ok)
	assert.Equal(t, 0, c.StackCount())
}

func TestCache_StaleRemovalIsNoop(t *testing.T) {
	c := NewCache(furni.NoNames)
	calls := 0
	c.Subscribe(func(Changes) { calls++ })

	assert.False(t, c.RemoveItem(furni.Key{Type: furni.Wall, ID: 9}))
	assert.False(t, c.SetHidden(furni.Key{Type: furni.Wall, ID: 9}, true))
	assert.Zero(t, calls)
}

func TestCache_SetHiddenInPlace(t *testing.T) {
	c := NewCache(furni.NoNames)
	c.UpsertItem(floorItem(1, 13))
	var got []Changes
	c.Subscribe(func(ch Changes) { got = append(got, ch) })

	key := furni.Key{Type: furni.Floor, ID: 1}
	require.True(t, c.SetHidden(key, true))
	require.True(t, c.SetHidden(key, true))

	it, _ := c.Item(key)
	assert.True(t, it.IsHidden())
	require.Len(t, got, 1, "unchanged flag publishes nothing")
	assert.Empty(t, got[0].Stacks)
}

func TestCache_ClearPublishesOneReset(t *testing.T) {
	c := NewCache(furni.NoNames)
	c.UpsertItems([]furni.Furni{floorItem(1, 13), {Type: furni.Wall, ID: 1, ClassID: 4001}})
	var got []Changes
	c.Subscribe(func(ch Changes) { got = append(got, ch) })

	c.Clear()
	c.Clear()

	require.Len(t, got, 1)
	assert.True(t, got[0].Reset)
	assert.Zero(t, c.ItemCount())
	assert.Zero(t, c.StackCount())
	assert.Empty(t, c.Items())
	assert.Empty(t, c.Stacks())
}

func TestCache_BatchPublishesOnce(t *testing.T) {
	c := NewCache(furni.NoNames)
	calls := 0
	c.Subscribe(func(Changes) { calls++ })
	c.UpsertItems([]furni.Furni{floorItem(1, 13), floorItem(2, 13), floorItem(3, 14)})
	assert.Equal(t, 1, calls)
	assert.Equal(t, 2, c.StackCount())
}

func TestInvariantError_Message(t *testing.T) {
	err := InvariantError{Msg: "x"}
	assert.Contains(t, err.Error(), "invariant violated: x")
}

// checkStackInvariant verifies that every stack count equals the number of
// live items with its descriptor and that no empty stack survives.
func checkStackInvariant(t interface{ Fatalf(string, ...any) }, c *Cache) {
	want := make(map[furni.Descriptor]int)
	for _, it := range c.Items() {
		want[it.Descriptor()]++
	}
	if len(want) != c.StackCount() {
		t.Fatalf("expected %d stacks, got %d", len(want), c.StackCount())
	}
	for d, n := range want {
		s, ok := c.Stack(d)
		if !ok {
			t.Fatalf("missing stack %s", d)
		}
		if s.Count() != n {
			t.Fatalf("stack %s: expected count %d, got %d", d, n, s.Count())
		}
	}
}

func TestProperty_Cache_StackCountMatchesLiveItems(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		c := NewCache(furni.NoNames)
		model := make(map[furni.Key]furni.Furni)

		steps := rapid.IntRange(1, 60).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			f := furni.Furni{
				Type:    furni.ItemType(rapid.IntRange(0, 1).Draw(t, "type")),
				ID:      int64(rapid.IntRange(1, 12).Draw(t, "id")),
				ClassID: rapid.IntRange(1, 4).Draw(t, "class"),
			}
			switch rapid.IntRange(0, 4).Draw(t, "op") {
			case 0, 1:
				c.UpsertItem(f)
				model[f.Key()] = f
			case 2:
				c.RemoveItem(f.Key())
				delete(model, f.Key())
			case 3:
				c.SetHidden(f.Key(), rapid.Bool().Draw(t, "hidden"))
			case 4:
				if rapid.IntRange(0, 9).Draw(t, "clear") == 0 {
					c.Clear()
					clear(model)
				}
			}

			if c.ItemCount() != len(model) {
				t.Fatalf("expected %d items, got %d", len(model), c.ItemCount())
			}
			checkStackInvariant(t, c)
		}
	})
}
