package system

import (
	"go.uber.org/zap"

	"github.com/peterm94/gloam-engine-archive/internal/core/ecs"
	"github.com/peterm94/gloam-engine-archive/internal/core/event"
	coresys "github.com/peterm94/gloam-engine-archive/internal/core/system"
)

// DrainSystem applies removals staged since the last tick. Removals win over
// same-frame additions. Phase 1 (Drain).
type DrainSystem struct {
	world *ecs.World
	bus   *event.Bus
	log   *zap.Logger
}

func NewDrainSystem(world *ecs.World, bus *event.Bus, log *zap.Logger) *DrainSystem {
	return &DrainSystem{world: world, bus: bus, log: log}
}

func (s *DrainSystem) Phase() coresys.Phase { return coresys.PhaseDrain }

func (s *DrainSystem) Update(_ float64) error {
	rep, err := s.world.FlushRemovals()
	if err != nil {
		return err
	}
	for _, r := range rep.Removed {
		event.Emit(s.bus, event.ObjectRemoved{ID: r.ID, Label: r.Label})
		s.log.Debug("object removed", zap.Uint64("id", uint64(r.ID)), zap.String("label", r.Label))
	}
	for _, r := range rep.Cancelled {
		event.Emit(s.bus, event.AdditionCancelled{ID: r.ID, Label: r.Label})
		s.log.Debug("pending addition cancelled", zap.Uint64("id", uint64(r.ID)), zap.String("label", r.Label))
	}
	return nil
}
