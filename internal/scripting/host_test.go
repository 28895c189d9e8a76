package scripting

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/peterm94/gloam-engine-archive/internal/core/ecs"
	"github.com/peterm94/gloam-engine-archive/internal/engine"
	"github.com/peterm94/gloam-engine-archive/internal/render"
)

const moverClass = `
Mover = { type = "Mover" }
Mover.__index = Mover

function Mover:new(props)
  local o = setmetatable(props or {}, self)
  o.x = o.x or 0
  o.y = o.y or 0
  o.ticks = 0
  return o
end

function Mover:init()
  self.ready = true
end

function Mover:update(dt)
  self.ticks = self.ticks + 1
  self.x = self.x + (self.vx or 0)
end
`

func newHost(t *testing.T) (*Host, *ecs.World) {
	t.Helper()
	w := ecs.NewWorld()
	h := NewHost(w, zap.NewNop())
	t.Cleanup(h.Close)
	return h, w
}

func global(t *testing.T, h *Host, name string) lua.LValue {
	t.Helper()
	return h.vm.GetGlobal(name)
}

func TestHost_AddFromLuaRunsHooksOnTick(t *testing.T) {
	h, w := newHost(t)
	e := engine.New(w, nil)
	require.NoError(t, h.DoString(moverClass+`
hero = Mover:new({ vx = 2 })
hero_id = gloam.add(hero)
`))
	heroID := ecs.ObjectID(lua.LVAsNumber(global(t, h, "hero_id")))
	assert.Equal(t, ecs.ObjectID(1), heroID)
	assert.False(t, w.Live(heroID), "staged until the next tick")

	require.NoError(t, e.Tick(0.016))
	require.NoError(t, e.Tick(0.016))

	hero := global(t, h, "hero").(*lua.LTable)
	assert.Equal(t, lua.LTrue, hero.RawGetString("ready"))
	assert.Equal(t, lua.LNumber(2), hero.RawGetString("ticks"))
	assert.Equal(t, lua.LNumber(4), hero.RawGetString("x"))

	label, ok := w.Label(heroID)
	require.True(t, ok)
	assert.Equal(t, "Mover", label)
}

func TestHost_LabelDerivation(t *testing.T) {
	h, w := newHost(t)
	require.NoError(t, h.DoString(`
a = gloam.add({ type = "Typed" })
b = gloam.add(setmetatable({}, { __name = "Named" }))
c = gloam.add({})
d = gloam.add({ type = "Ignored" }, "Explicit")
`))
	_, err := w.Promote()
	require.NoError(t, err)
	assert.Equal(t, []string{"Explicit", "Named", "Typed", "table"}, w.Labels())
}

func TestHost_QueriesFromLua(t *testing.T) {
	h, w := newHost(t)
	require.NoError(t, h.DoString(moverClass+`
gloam.add(Mover:new({ name = "a" }))
gloam.add({ type = "Rock" })
gloam.add(Mover:new({ name = "b" }))
`))
	_, err := w.Promote()
	require.NoError(t, err)

	require.NoError(t, h.DoString(`
names = {}
gloam.with_type("Mover", function(id, obj)
  names[#names + 1] = id .. ":" .. obj.name
end)
ids = gloam.objects_of_type("Mover")
unknown = #gloam.objects_of_type("Nope")
movers = gloam.count("Mover")
total = gloam.count()
gloam.with_object(2, function(obj) rock = obj.type end)
gloam.with_object(99, function(obj) missing = true end)
`))

	names := global(t, h, "names").(*lua.LTable)
	assert.Equal(t, 2, names.Len())
	assert.Equal(t, "1:a", names.RawGetInt(1).String())
	assert.Equal(t, "3:b", names.RawGetInt(2).String())
	assert.Equal(t, lua.LNumber(0), global(t, h, "unknown"))
	assert.Equal(t, lua.LNumber(2), global(t, h, "movers"))
	assert.Equal(t, lua.LNumber(3), global(t, h, "total"))
	assert.Equal(t, lua.LString("Rock"), global(t, h, "rock"))
	assert.Equal(t, lua.LNil, global(t, h, "missing"))
}

func TestHost_RemoveFromUpdate(t *testing.T) {
	h, w := newHost(t)
	e := engine.New(w, nil)
	require.NoError(t, h.DoString(`
Bomb = { type = "Bomb" }
Bomb.__index = Bomb
function Bomb:update(dt)
  self.fuse = self.fuse - 1
  if self.fuse <= 0 then gloam.remove(self.id) end
end
local b = setmetatable({ fuse = 2 }, Bomb)
b.id = gloam.add(b)
`))

	require.NoError(t, e.Tick(0))
	assert.Equal(t, 1, w.Len())
	require.NoError(t, e.Tick(0))
	assert.Equal(t, 1, w.Len(), "removal is deferred to the next drain")
	require.NoError(t, e.Tick(0))
	assert.Equal(t, 0, w.Len())
}

func TestHost_LuaErrorBecomesHookError(t *testing.T) {
	h, w := newHost(t)
	e := engine.New(w, nil)
	require.NoError(t, h.DoString(`
gloam.add({ type = "Broken", update = function(self, dt) error("kaboom") end })
`))

	err := e.Tick(0)
	require.Error(t, err)
	var hookErr *ecs.HookError
	require.ErrorAs(t, err, &hookErr)
	assert.Equal(t, ecs.HookUpdate, hookErr.Hook)
	assert.Equal(t, "Broken", hookErr.Label)
	assert.Contains(t, err.Error(), "kaboom")
}

func TestHost_RaisingIndexFailsTickInsteadOfPanicking(t *testing.T) {
	h, w := newHost(t)
	rec := &render.Recorder{}
	e := engine.New(w, rec)
	require.NoError(t, h.DoString(`
gloam.add(setmetatable({ type = "Bad" }, {
  __index = function(t, k)
    if k == "sprite" then error("boom") end
  end,
}))
`))

	var err error
	require.NotPanics(t, func() { err = e.Tick(0) })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Contains(t, err.Error(), "collect frame 1")
	assert.Empty(t, rec.Frames)
	assert.Equal(t, 1, w.Len(), "the object stays live")

	require.NoError(t, h.DoString(`after = gloam.count()`), "the VM is still usable")
	assert.Equal(t, lua.LNumber(1), global(t, h, "after"))
}

func TestHost_SpawnWithRaisingIndex(t *testing.T) {
	h, w := newHost(t)
	require.NoError(t, h.DoString(`
Trap = {}
function Trap:new(props)
  return setmetatable(props, { __index = function() error("no fields here") end })
end
`))

	var err error
	require.NotPanics(t, func() { _, err = h.Spawn("Trap", nil) })
	assert.ErrorContains(t, err, "no fields here")
	assert.Zero(t, w.PendingAdditions())

	assert.ErrorContains(t, h.DoString(`gloam.spawn("Trap", {})`), "no fields here")
}

func TestHost_SpawnWithConstructor(t *testing.T) {
	h, w := newHost(t)
	require.NoError(t, h.DoString(moverClass))

	id, err := h.Spawn("Mover", map[string]any{"x": 3, "vx": 1.5, "sprite": "hero"})
	require.NoError(t, err)
	_, err = w.Promote()
	require.NoError(t, err)

	obj, ok := w.Get(id)
	require.True(t, ok)
	sprite, visible, err := obj.(render.Drawable).Sprite()
	require.NoError(t, err)
	require.True(t, visible)
	assert.Equal(t, render.Sprite{Texture: "hero", X: 3}, sprite)
}

func TestHost_SpawnWithoutConstructorCopiesProps(t *testing.T) {
	h, w := newHost(t)
	require.NoError(t, h.DoString(`
Wall = { __name = "Wall", sprite = "wall", z = -1 }
function Wall:init() self.built = true end
`))

	id, err := h.SpawnLabeled("", "Wall", map[string]any{"x": 4, "y": 5, "tags": []any{"solid"}})
	require.NoError(t, err)
	_, err = w.Promote()
	require.NoError(t, err)

	label, _ := w.Label(id)
	assert.Equal(t, "Wall", label)
	obj, _ := w.Get(id)
	sprite, ok, err := obj.(render.Drawable).Sprite()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, render.Sprite{Texture: "wall", X: 4, Y: 5, Z: -1}, sprite)

	tbl := obj.(*scriptObject).tbl
	assert.Equal(t, lua.LTrue, tbl.RawGetString("built"))
	assert.Equal(t, lua.LString("solid"), tbl.RawGetString("tags").(*lua.LTable).RawGetInt(1))
}

func TestHost_SpawnUnknownClass(t *testing.T) {
	h, w := newHost(t)
	_, err := h.Spawn("Ghost", nil)
	assert.ErrorContains(t, err, `"Ghost"`)
	assert.Zero(t, w.PendingAdditions())

	assert.Error(t, h.DoString(`gloam.spawn("Ghost", {})`))
}

func TestHost_ObjectWithoutSpriteIsHidden(t *testing.T) {
	h, w := newHost(t)
	rec := &render.Recorder{}
	e := engine.New(w, rec)
	require.NoError(t, h.DoString(`
gloam.add({ type = "Invisible" })
gloam.add({ type = "Visible", sprite = "v", x = 1, y = 2 })
`))
	require.NoError(t, e.Tick(0))
	last, ok := rec.Last()
	require.True(t, ok)
	require.Len(t, last.Sprites, 1)
	assert.Equal(t, "v", last.Sprites[0].Texture)
	assert.Equal(t, ecs.ObjectID(2), last.Sprites[0].ID)
}

func TestHost_LoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "01_class.lua"), []byte(moverClass), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "02_use.lua"), []byte(`first = gloam.spawn("Mover", { x = 1 })`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte(`not lua`), 0o644))

	h, w := newHost(t)
	require.NoError(t, h.LoadDir(dir))
	assert.Equal(t, lua.LNumber(1), global(t, h, "first"))
	assert.Equal(t, 1, w.PendingAdditions())

	require.NoError(t, h.LoadDir(filepath.Join(dir, "missing")))
}

func TestHost_LoadDirReportsSyntaxError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.lua"), []byte(`function (`), 0o644))
	h, _ := newHost(t)
	assert.ErrorContains(t, h.LoadDir(dir), "bad.lua")
}
