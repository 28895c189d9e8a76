package system

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stepSystem struct {
	name    string
	phase   Phase
	trace   *[]string
	states  *[]State
	runner  *Runner
	err     error
	nested  error
	reenter bool
}

func (s *stepSystem) Phase() Phase { return s.phase }

func (s *stepSystem) Update(dt float64) error {
	*s.trace = append(*s.trace, s.name)
	if s.states != nil {
		*s.states = append(*s.states, s.runner.State())
	}
	if s.reenter {
		s.nested = s.runner.Tick(dt)
	}
	return s.err
}

func TestRunner_PhaseOrderAndStates(t *testing.T) {
	r := NewRunner()
	var trace []string
	var states []State
	add := func(name string, p Phase) {
		r.Register(&stepSystem{name: name, phase: p, trace: &trace, states: &states, runner: r})
	}
	add("render", PhaseRender)
	add("update", PhaseUpdate)
	add("drain", PhaseDrain)
	add("promote", PhasePromote)
	add("input", PhaseInput)
	add("render2", PhaseRender)

	require.NoError(t, r.Tick(0.016))
	assert.Equal(t, []string{"input", "drain", "promote", "update", "render", "render2"}, trace)
	assert.Equal(t, []State{
		StateDraining, StateDraining, StatePromoting, StateUpdating, StateRendering, StateRendering,
	}, states)
	assert.Equal(t, StateIdle, r.State())
	assert.Equal(t, uint64(1), r.Frames())
}

func TestRunner_ErrorAbortsTick(t *testing.T) {
	r := NewRunner()
	var trace []string
	boom := errors.New("boom")
	r.Register(&stepSystem{name: "promote", phase: PhasePromote, trace: &trace, err: boom})
	r.Register(&stepSystem{name: "update", phase: PhaseUpdate, trace: &trace})

	err := r.Tick(0.016)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "promote phase")
	assert.Equal(t, []string{"promote"}, trace)
	assert.Equal(t, StateIdle, r.State())
	assert.Equal(t, uint64(0), r.Frames())
	assert.Equal(t, uint64(1), r.Failed())
	assert.Equal(t, uint64(1), r.Current(), "aborted ticks keep their number")
}

func TestRunner_RejectsNestedTick(t *testing.T) {
	r := NewRunner()
	var trace []string
	s := &stepSystem{name: "update", phase: PhaseUpdate, trace: &trace, runner: r, reenter: true}
	r.Register(s)

	require.NoError(t, r.Tick(0.016))
	assert.ErrorIs(t, s.nested, ErrTickInProgress)
	assert.Equal(t, []string{"update"}, trace)
}

func TestRunner_RejectsInvalidDelta(t *testing.T) {
	r := NewRunner()
	var trace []string
	r.Register(&stepSystem{name: "update", phase: PhaseUpdate, trace: &trace})

	for _, dt := range []float64{-1, math.NaN(), math.Inf(1)} {
		assert.ErrorIs(t, r.Tick(dt), ErrInvalidDelta)
	}
	assert.Empty(t, trace)
	assert.Zero(t, r.Current(), "rejected ticks are not numbered")
	assert.NoError(t, r.Tick(0))
	assert.Equal(t, uint64(1), r.Current())
}

func TestPhase_State(t *testing.T) {
	assert.Equal(t, StateDraining, PhaseInput.State())
	assert.Equal(t, StateRendering, PhasePersist.State())
	assert.Equal(t, "Updating", PhaseUpdate.State().String())
}
