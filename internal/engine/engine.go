// Package engine assembles the frame scheduler: a phase-ordered runner of
// systems driving one ecs.World and one render bridge.
//
// Each Tick drains staged removals, promotes staged additions (running their
// Init), updates every live object, and renders. Ticks never overlap, and
// anything an object asks for while a tick runs is staged for the next one.
package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/peterm94/gloam-engine-archive/internal/core/ecs"
	"github.com/peterm94/gloam-engine-archive/internal/core/event"
	coresys "github.com/peterm94/gloam-engine-archive/internal/core/system"
	"github.com/peterm94/gloam-engine-archive/internal/render"
	"github.com/peterm94/gloam-engine-archive/internal/system"
)

type Option func(*Engine)

// WithLogger sets the engine logger. Defaults to a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithInbox lets other goroutines queue commands; at most maxPerTick run per
// tick (0 = all).
func WithInbox(inbox *system.Inbox, maxPerTick int) Option {
	return func(e *Engine) {
		e.inbox = inbox
		e.maxCmds = maxPerTick
	}
}

// WithJournal records object lifecycle rows into sink.
func WithJournal(sink system.JournalSink, intervalTicks, batchSize int) Option {
	return func(e *Engine) {
		e.journalSink = sink
		e.journalInterval = intervalTicks
		e.journalBatch = batchSize
	}
}

// WithSystem registers an extra system alongside the standard pipeline.
func WithSystem(s coresys.System) Option {
	return func(e *Engine) {
		e.extra = append(e.extra, s)
	}
}

// Engine is the frame scheduler.
type Engine struct {
	world   *ecs.World
	bridge  render.Bridge
	bus     *event.Bus
	runner  *coresys.Runner
	inbox   *system.Inbox
	maxCmds int
	update  *system.UpdateSystem
	journal *system.JournalSystem
	extra   []coresys.System
	log     *zap.Logger

	journalSink     system.JournalSink
	journalInterval int
	journalBatch    int
}

func New(world *ecs.World, bridge render.Bridge, opts ...Option) *Engine {
	if bridge == nil {
		bridge = render.Nop{}
	}
	e := &Engine{
		world:  world,
		bridge: bridge,
		bus:    event.NewBus(),
		runner: coresys.NewRunner(),
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.runner.Register(system.NewEventSystem(e.bus))
	if e.inbox != nil {
		e.runner.Register(system.NewInputSystem(world, e.inbox, e.maxCmds, e.log))
	}
	e.runner.Register(system.NewDrainSystem(world, e.bus, e.log))
	e.runner.Register(system.NewPromoteSystem(world, e.bus, e.log))
	e.update = system.NewUpdateSystem(world)
	e.runner.Register(e.update)
	clock := e.runner.Current
	e.runner.Register(system.NewRenderSystem(world, bridge, e.bus, clock))
	if e.journalSink != nil {
		e.journal = system.NewJournalSystem(world, e.bus, clock, e.journalSink, e.journalInterval, e.journalBatch, e.log)
		e.runner.Register(e.journal.Marker())
		e.runner.Register(e.journal)
	}
	for _, s := range e.extra {
		e.runner.Register(s)
	}
	return e
}

// Tick runs one frame with dt seconds elapsed. A failure in any object's
// Init or Update aborts the rest of the frame and is returned as-is
// (wrapped); the next Tick starts from a consistent World.
func (e *Engine) Tick(dt float64) error {
	if err := e.runner.Tick(dt); err != nil {
		e.log.Error("tick aborted", zap.Uint64("frame", e.runner.Current()), zap.Error(err))
		return err
	}
	return nil
}

// World returns the registry driven by this engine.
func (e *Engine) World() *ecs.World { return e.world }

// Bus returns the lifecycle event bus.
func (e *Engine) Bus() *event.Bus { return e.bus }

// Inbox returns the command inbox, or nil if none was configured.
func (e *Engine) Inbox() *system.Inbox { return e.inbox }

// Journal returns the journal system, or nil if journaling is off.
func (e *Engine) Journal() *system.JournalSystem { return e.journal }

// State returns the scheduler state; Idle between ticks.
func (e *Engine) State() coresys.State { return e.runner.State() }

// Current returns the number of the tick in progress, or of the last tick
// started.
func (e *Engine) Current() uint64 { return e.runner.Current() }

// Frames returns the number of completed ticks.
func (e *Engine) Frames() uint64 { return e.runner.Frames() }

// LastUpdated returns how many objects the last update pass reached.
func (e *Engine) LastUpdated() int { return e.update.LastUpdated() }

// Close stops accepting queued commands, delivers the events of the last
// tick and flushes the journal. Call it from the goroutine that ticks, after
// the last Tick.
func (e *Engine) Close(ctx context.Context) error {
	if e.inbox != nil {
		e.inbox.Close()
	}
	e.bus.SwapBuffers()
	e.bus.DispatchAll()
	if e.journal != nil {
		return e.journal.Flush(ctx)
	}
	return nil
}
