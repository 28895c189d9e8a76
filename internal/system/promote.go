package system

import (
	"go.uber.org/zap"

	"github.com/peterm94/gloam-engine-archive/internal/core/ecs"
	"github.com/peterm94/gloam-engine-archive/internal/core/event"
	coresys "github.com/peterm94/gloam-engine-archive/internal/core/system"
)

// PromoteSystem initializes staged objects and makes them live.
// Phase 2 (Promote).
type PromoteSystem struct {
	world *ecs.World
	bus   *event.Bus
	log   *zap.Logger
}

func NewPromoteSystem(world *ecs.World, bus *event.Bus, log *zap.Logger) *PromoteSystem {
	return &PromoteSystem{world: world, bus: bus, log: log}
}

func (s *PromoteSystem) Phase() coresys.Phase { return coresys.PhasePromote }

func (s *PromoteSystem) Update(_ float64) error {
	promoted, err := s.world.Promote()
	// Objects promoted before a failure are live; report them either way.
	for _, r := range promoted {
		event.Emit(s.bus, event.ObjectPromoted{ID: r.ID, Label: r.Label})
		s.log.Debug("object promoted", zap.Uint64("id", uint64(r.ID)), zap.String("label", r.Label))
	}
	return err
}
