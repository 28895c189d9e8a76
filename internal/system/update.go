package system

import (
	"github.com/peterm94/gloam-engine-archive/internal/core/ecs"
	coresys "github.com/peterm94/gloam-engine-archive/internal/core/system"
)

// UpdateSystem runs every live object's Update. Phase 3 (Update).
type UpdateSystem struct {
	world   *ecs.World
	updated int
}

func NewUpdateSystem(world *ecs.World) *UpdateSystem {
	return &UpdateSystem{world: world}
}

func (s *UpdateSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *UpdateSystem) Update(dt float64) error {
	n, err := s.world.UpdateAll(dt)
	s.updated = n
	return err
}

// LastUpdated returns how many objects the last pass updated.
func (s *UpdateSystem) LastUpdated() int { return s.updated }
