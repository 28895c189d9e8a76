package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/peterm94/gloam-engine-archive/internal/core/ecs"
)

// Host wraps a single gopher-lua VM bound to one World.
// Single-goroutine access only (game loop).
type Host struct {
	vm     *lua.LState
	world  *ecs.World
	log    *zap.Logger
	getter *lua.LFunction
}

// NewHost creates a Lua VM and installs the gloam API table.
func NewHost(world *ecs.World, log *zap.Logger) *Host {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	h := &Host{vm: vm, world: world, log: log}
	h.getter = vm.NewFunction(luaGetField)
	api := vm.SetFuncs(vm.NewTable(), map[string]lua.LGFunction{
		"add":             h.luaAdd,
		"remove":          h.luaRemove,
		"with_object":     h.luaWithObject,
		"with_type":       h.luaWithType,
		"objects_of_type": h.luaObjectsOfType,
		"count":           h.luaCount,
		"spawn":           h.luaSpawn,
		"log":             h.luaLog,
	})
	vm.SetGlobal("gloam", api)
	return h
}

// LoadDir runs every .lua file in dir in name order. A missing directory is
// not an error.
func (h *Host) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := h.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		h.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// DoString runs a chunk of Lua source.
func (h *Host) DoString(src string) error {
	return h.vm.DoString(src)
}

// Spawn instantiates the global class table named class with props and
// stages the result. See SpawnLabeled.
func (h *Host) Spawn(class string, props map[string]any) (ecs.ObjectID, error) {
	return h.SpawnLabeled("", class, props)
}

// SpawnLabeled instantiates class and stages it under label (derived from
// the instance when empty). If the class defines new, the instance is
// class:new(props); otherwise props are copied onto a fresh table whose
// metatable indexes the class.
func (h *Host) SpawnLabeled(label, class string, props map[string]any) (ecs.ObjectID, error) {
	tbl, err := h.instantiate(class, toLTable(h.vm, props))
	if err != nil {
		return ecs.NoObject, err
	}
	obj, err := h.wrap(tbl, label)
	if err != nil {
		return ecs.NoObject, fmt.Errorf("spawn %q: %w", class, err)
	}
	return h.world.AddLabeled(label, obj), nil
}

// Close shuts down the Lua VM.
func (h *Host) Close() {
	h.vm.Close()
}

func (h *Host) instantiate(class string, props *lua.LTable) (*lua.LTable, error) {
	cls, ok := h.vm.GetGlobal(class).(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("spawn %q: no such class", class)
	}
	ctor, err := h.field(cls, "new")
	if err != nil {
		return nil, fmt.Errorf("spawn %q: %w", class, err)
	}
	if fn, ok := ctor.(*lua.LFunction); ok {
		if err := h.vm.CallByParam(lua.P{
			Fn:      fn,
			NRet:    1,
			Protect: true,
		}, cls, props); err != nil {
			return nil, fmt.Errorf("spawn %q: %w", class, err)
		}
		ret := h.vm.Get(-1)
		h.vm.Pop(1)
		tbl, ok := ret.(*lua.LTable)
		if !ok {
			return nil, fmt.Errorf("spawn %q: new returned %s, want table", class, ret.Type())
		}
		return tbl, nil
	}
	mt := h.vm.NewTable()
	mt.RawSetString("__index", cls)
	if name, ok := cls.RawGetString("__name").(lua.LString); ok {
		mt.RawSetString("__name", name)
	}
	h.vm.SetMetatable(props, mt)
	return props, nil
}

func (h *Host) wrap(tbl *lua.LTable, label string) (*scriptObject, error) {
	if label == "" {
		var err error
		if label, err = h.labelOf(tbl); err != nil {
			return nil, err
		}
	}
	return &scriptObject{host: h, tbl: tbl, label: label}, nil
}

// labelOf derives a label from the type field, then the metatable __name.
func (h *Host) labelOf(tbl *lua.LTable) (string, error) {
	v, err := h.field(tbl, "type")
	if err != nil {
		return "", err
	}
	if s, ok := v.(lua.LString); ok && s != "" {
		return string(s), nil
	}
	if mt, ok := h.vm.GetMetatable(tbl).(*lua.LTable); ok {
		if s, ok := mt.RawGetString("__name").(lua.LString); ok && s != "" {
			return string(s), nil
		}
	}
	return "table", nil
}

// field reads tbl[key]. Lookups that reach an __index metamethod run under a
// protected call, so a raising metamethod comes back as an error instead of
// unwinding the Go stack.
func (h *Host) field(tbl *lua.LTable, key string) (lua.LValue, error) {
	if v := tbl.RawGetString(key); v != lua.LNil {
		return v, nil
	}
	if h.vm.GetMetatable(tbl) == lua.LNil {
		return lua.LNil, nil
	}
	if err := h.vm.CallByParam(lua.P{
		Fn:      h.getter,
		NRet:    1,
		Protect: true,
	}, tbl, lua.LString(key)); err != nil {
		return lua.LNil, fmt.Errorf("read field %q: %w", key, err)
	}
	v := h.vm.Get(-1)
	h.vm.Pop(1)
	return v, nil
}

func luaGetField(L *lua.LState) int {
	L.Push(L.GetField(L.CheckTable(1), L.CheckString(2)))
	return 1
}

// callMethod calls tbl:name(args...). A missing method is a no-op.
func (h *Host) callMethod(tbl *lua.LTable, name string, args ...lua.LValue) error {
	v, err := h.field(tbl, name)
	if err != nil {
		return err
	}
	fn, ok := v.(*lua.LFunction)
	if !ok {
		return nil
	}
	return h.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, append([]lua.LValue{tbl}, args...)...)
}

// valueOf converts a registry object into what Lua callbacks receive: the
// original table for script objects, userdata for anything else.
func (h *Host) valueOf(obj ecs.GameObject) lua.LValue {
	if so, ok := obj.(*scriptObject); ok {
		return so.tbl
	}
	ud := h.vm.NewUserData()
	ud.Value = obj
	return ud
}

// --- gloam.* bindings ---

func (h *Host) luaAdd(L *lua.LState) int {
	tbl := L.CheckTable(1)
	label := L.OptString(2, "")
	obj, err := h.wrap(tbl, label)
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}
	id := h.world.AddLabeled(label, obj)
	L.Push(lua.LNumber(id))
	return 1
}

func (h *Host) luaRemove(L *lua.LState) int {
	if id, ok := checkID(L, 1); ok {
		h.world.Remove(id)
	}
	return 0
}

func (h *Host) luaWithObject(L *lua.LState) int {
	fn := L.CheckFunction(2)
	id, ok := checkID(L, 1)
	if !ok {
		return 0
	}
	h.world.WithObject(id, func(obj ecs.GameObject) {
		L.Push(fn)
		L.Push(h.valueOf(obj))
		L.Call(1, 0)
	})
	return 0
}

func (h *Host) luaWithType(L *lua.LState) int {
	label := L.CheckString(1)
	fn := L.CheckFunction(2)
	h.world.WithType(label, func(id ecs.ObjectID, obj ecs.GameObject) {
		L.Push(fn)
		L.Push(lua.LNumber(id))
		L.Push(h.valueOf(obj))
		L.Call(2, 0)
	})
	return 0
}

func (h *Host) luaObjectsOfType(L *lua.LState) int {
	label := L.CheckString(1)
	out := L.NewTable()
	for _, id := range h.world.ObjectsOfType(label) {
		out.Append(lua.LNumber(id))
	}
	L.Push(out)
	return 1
}

func (h *Host) luaCount(L *lua.LState) int {
	if L.GetTop() == 0 {
		L.Push(lua.LNumber(h.world.Len()))
		return 1
	}
	L.Push(lua.LNumber(h.world.CountOfType(L.CheckString(1))))
	return 1
}

func (h *Host) luaSpawn(L *lua.LState) int {
	class := L.CheckString(1)
	props, ok := L.Get(2).(*lua.LTable)
	if !ok {
		props = L.NewTable()
	}
	tbl, err := h.instantiate(class, props)
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}
	obj, err := h.wrap(tbl, "")
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}
	id := h.world.AddLabeled("", obj)
	L.Push(lua.LNumber(id))
	return 1
}

func (h *Host) luaLog(L *lua.LState) int {
	h.log.Info("lua", zap.String("msg", L.CheckString(1)))
	return 0
}

// checkID reads a positive integral object id argument.
func checkID(L *lua.LState, n int) (ecs.ObjectID, bool) {
	v := float64(L.CheckNumber(n))
	if v < 1 || v != float64(uint64(v)) {
		return ecs.NoObject, false
	}
	return ecs.ObjectID(uint64(v)), true
}

// --- Lua helpers ---

// toLTable converts decoded YAML/Go values into a Lua table.
func toLTable(L *lua.LState, m map[string]any) *lua.LTable {
	t := L.NewTable()
	for k, v := range m {
		t.RawSetString(k, toLValue(L, v))
	}
	return t
}

func toLValue(L *lua.LState, v any) lua.LValue {
	switch x := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(x)
	case int:
		return lua.LNumber(x)
	case int64:
		return lua.LNumber(x)
	case uint64:
		return lua.LNumber(x)
	case float64:
		return lua.LNumber(x)
	case string:
		return lua.LString(x)
	case []any:
		t := L.NewTable()
		for _, e := range x {
			t.Append(toLValue(L, e))
		}
		return t
	case map[string]any:
		return toLTable(L, x)
	default:
		return lua.LString(fmt.Sprint(x))
	}
}
