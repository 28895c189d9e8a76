package scripting

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/peterm94/gloam-engine-archive/internal/render"
)

// scriptObject adapts a Lua table to ecs.GameObject. Lua errors raised by
// init or update come back as *lua.ApiError and are wrapped into a HookError
// by the World.
type scriptObject struct {
	host  *Host
	tbl   *lua.LTable
	label string
}

func (o *scriptObject) Init() error {
	return o.host.callMethod(o.tbl, "init")
}

func (o *scriptObject) Update(dt float64) error {
	return o.host.callMethod(o.tbl, "update", lua.LNumber(dt))
}

func (o *scriptObject) TypeLabel() string { return o.label }

// Sprite reads the sprite, x, y and z fields. No sprite field, no draw.
func (o *scriptObject) Sprite() (render.Sprite, bool, error) {
	v, err := o.host.field(o.tbl, "sprite")
	if err != nil {
		return render.Sprite{}, false, err
	}
	tex, ok := v.(lua.LString)
	if !ok || tex == "" {
		return render.Sprite{}, false, nil
	}
	s := render.Sprite{Texture: string(tex)}
	for _, f := range []struct {
		key string
		dst *int
	}{{"x", &s.X}, {"y", &s.Y}, {"z", &s.Z}} {
		if *f.dst, err = o.host.intField(o.tbl, f.key); err != nil {
			return render.Sprite{}, false, err
		}
	}
	return s, true, nil
}

// intField reads an integer field, following __index. Non-numbers read as 0.
func (h *Host) intField(t *lua.LTable, key string) (int, error) {
	v, err := h.field(t, key)
	if err != nil {
		return 0, err
	}
	return int(lua.LVAsNumber(v)), nil
}
