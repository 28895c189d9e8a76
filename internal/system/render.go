package system

import (
	"fmt"

	"github.com/peterm94/gloam-engine-archive/internal/core/ecs"
	"github.com/peterm94/gloam-engine-archive/internal/core/event"
	coresys "github.com/peterm94/gloam-engine-archive/internal/core/system"
	"github.com/peterm94/gloam-engine-archive/internal/render"
)

// RenderSystem hands the current resource set to the bridge once the update
// pass is complete. Phase 4 (Render).
type RenderSystem struct {
	world  *ecs.World
	bridge render.Bridge
	bus    *event.Bus
	clock  func() uint64
}

// NewRenderSystem numbers frames with clock, normally the runner's current
// tick, so frame numbers match the journal.
func NewRenderSystem(world *ecs.World, bridge render.Bridge, bus *event.Bus, clock func() uint64) *RenderSystem {
	return &RenderSystem{world: world, bridge: bridge, bus: bus, clock: clock}
}

func (s *RenderSystem) Phase() coresys.Phase { return coresys.PhaseRender }

func (s *RenderSystem) Update(_ float64) error {
	f, err := render.Collect(s.world, s.clock())
	if err != nil {
		return fmt.Errorf("collect frame %d: %w", f.Number, err)
	}
	if err = s.bridge.Draw(f); err != nil {
		return fmt.Errorf("draw frame %d: %w", f.Number, err)
	}
	event.Emit(s.bus, event.FrameRendered{Frame: f.Number, Sprites: len(f.Sprites)})
	return nil
}
