package system

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput   Phase = iota // 0: queued cross-goroutine commands, last tick's events
	PhaseDrain                // 1: apply staged removals
	PhasePromote              // 2: init + insert staged additions
	PhaseUpdate               // 3: update every live object
	PhaseRender               // 4: hand the frame to the render bridge
	PhasePersist              // 5: journal flush
)

func (p Phase) String() string {
	switch p {
	case PhaseInput:
		return "input"
	case PhaseDrain:
		return "drain"
	case PhasePromote:
		return "promote"
	case PhaseUpdate:
		return "update"
	case PhaseRender:
		return "render"
	case PhasePersist:
		return "persist"
	default:
		return "unknown"
	}
}

// State returns the scheduler state a phase runs in.
func (p Phase) State() State {
	switch p {
	case PhaseInput, PhaseDrain:
		return StateDraining
	case PhasePromote:
		return StatePromoting
	case PhaseUpdate:
		return StateUpdating
	default:
		return StateRendering
	}
}

// State is the frame scheduler's position inside a tick.
type State int

const (
	StateIdle State = iota
	StateDraining
	StatePromoting
	StateUpdating
	StateRendering
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateDraining:
		return "Draining"
	case StatePromoting:
		return "Promoting"
	case StateUpdating:
		return "Updating"
	case StateRendering:
		return "Rendering"
	default:
		return "Unknown"
	}
}

// System is one step of the frame pipeline. dt is the elapsed time in
// seconds supplied by the host loop.
type System interface {
	Phase() Phase
	Update(dt float64) error
}
