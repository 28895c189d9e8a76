package system

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	// ErrTickInProgress is returned when Tick is entered while another tick
	// is still running, e.g. from inside an object's Update.
	ErrTickInProgress = errors.New("tick already in progress")
	// ErrInvalidDelta is returned for negative or non-finite deltas.
	ErrInvalidDelta = errors.New("invalid delta time")
)

// Runner executes systems in phase order each tick. Systems sharing a phase
// run in registration order.
type Runner struct {
	systems []System
	sorted  bool
	state   State
	current uint64
	frames  uint64
	failed  uint64
}

func NewRunner() *Runner {
	return &Runner{
		systems: make([]System, 0, 16),
	}
}

func (r *Runner) Register(s System) {
	r.systems = append(r.systems, s)
	r.sorted = false
}

// Tick runs one frame. The first system error aborts the remainder of the
// tick; the runner returns to Idle either way.
func (r *Runner) Tick(dt float64) error {
	if r.state != StateIdle {
		return ErrTickInProgress
	}
	if dt < 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidDelta, dt)
	}
	r.ensureSorted()
	r.current++
	defer func() { r.state = StateIdle }()

	for _, s := range r.systems {
		r.state = s.Phase().State()
		if err := s.Update(dt); err != nil {
			r.failed++
			return fmt.Errorf("frame %d %s phase: %w", r.current, s.Phase(), err)
		}
	}
	r.frames++
	return nil
}

// State returns the current scheduler state. Outside a tick it is Idle.
func (r *Runner) State() State { return r.state }

// Current returns the number of the tick in progress, or of the last tick
// started when idle. Rejected ticks do not count; aborted ones do.
func (r *Runner) Current() uint64 { return r.current }

// Frames returns the number of ticks that completed without error.
func (r *Runner) Frames() uint64 { return r.frames }

// Failed returns the number of aborted ticks.
func (r *Runner) Failed() uint64 { return r.failed }

func (r *Runner) ensureSorted() {
	if !r.sorted {
		sort.SliceStable(r.systems, func(i, j int) bool {
			return r.systems[i].Phase() < r.systems[j].Phase()
		})
		r.sorted = true
	}
}
