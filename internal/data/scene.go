package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/peterm94/gloam-engine-archive/internal/core/ecs"
)

// SceneObject is one object instance in a scene manifest. Class names a
// global Lua class table; Label overrides the derived type label.
type SceneObject struct {
	Class  string         `yaml:"class"`
	Label  string         `yaml:"label"`
	X      int            `yaml:"x"`
	Y      int            `yaml:"y"`
	Z      int            `yaml:"z"`
	Sprite string         `yaml:"sprite"`
	Props  map[string]any `yaml:"props"`
}

// InstanceProps returns Props with the placement fields merged in. Explicit
// props win over placement fields.
func (o *SceneObject) InstanceProps() map[string]any {
	out := make(map[string]any, len(o.Props)+4)
	out["x"] = o.X
	out["y"] = o.Y
	if o.Z != 0 {
		out["z"] = o.Z
	}
	if o.Sprite != "" {
		out["sprite"] = o.Sprite
	}
	for k, v := range o.Props {
		out[k] = v
	}
	return out
}

// Scene is the initial object set plus presentation tables for the render
// backends.
type Scene struct {
	Objects []SceneObject     `yaml:"objects"`
	Glyphs  map[string]string `yaml:"glyphs"` // texture → terminal glyph
	Colors  map[string]string `yaml:"colors"` // texture → "#rrggbb"
}

// Spawner instantiates a class and stages it. *scripting.Host implements it.
type Spawner interface {
	SpawnLabeled(label, class string, props map[string]any) (ecs.ObjectID, error)
}

// Stage stages every scene object through sp in manifest order. Nothing is
// live until the next tick.
func (s *Scene) Stage(sp Spawner) ([]ecs.ObjectID, error) {
	ids := make([]ecs.ObjectID, 0, len(s.Objects))
	for i := range s.Objects {
		o := &s.Objects[i]
		id, err := sp.SpawnLabeled(o.Label, o.Class, o.InstanceProps())
		if err != nil {
			return ids, fmt.Errorf("scene: object %d: %w", i, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// --- YAML loading ---

// LoadScene loads a scene manifest from YAML.
func LoadScene(path string) (*Scene, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scene: read %s: %w", path, err)
	}

	var s Scene
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("scene: parse %s: %w", path, err)
	}
	for i, o := range s.Objects {
		if o.Class == "" {
			return nil, fmt.Errorf("scene: %s: object %d has no class", path, i)
		}
	}
	return &s, nil
}
