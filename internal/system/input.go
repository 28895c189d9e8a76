package system

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/peterm94/gloam-engine-archive/internal/core/ecs"
	coresys "github.com/peterm94/gloam-engine-archive/internal/core/system"
)

// ErrInboxClosed is returned by Post after the inbox has been closed.
var ErrInboxClosed = errors.New("inbox closed")

// Command is a registry operation marshalled onto the tick goroutine.
type Command func(w *ecs.World)

// Inbox carries commands from other goroutines (console sessions, host
// threads) to the game loop. The World itself is never touched off-loop.
type Inbox struct {
	ch        chan Command
	done      chan struct{}
	closeOnce sync.Once
}

func NewInbox(size int) *Inbox {
	return &Inbox{
		ch:   make(chan Command, size),
		done: make(chan struct{}),
	}
}

// Post queues cmd for the next Input phase. It blocks while the inbox is
// full, until ctx ends or the inbox is closed.
func (in *Inbox) Post(ctx context.Context, cmd Command) error {
	select {
	case <-in.done:
		return ErrInboxClosed
	default:
	}
	select {
	case in.ch <- cmd:
		return nil
	case <-in.done:
		return ErrInboxClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close rejects further posts. Commands already queued are still drained.
func (in *Inbox) Close() {
	in.closeOnce.Do(func() { close(in.done) })
}

// Len returns the number of queued commands.
func (in *Inbox) Len() int { return len(in.ch) }

// Call runs fn on the game loop and waits for its result.
func Call[T any](ctx context.Context, in *Inbox, fn func(w *ecs.World) T) (T, error) {
	var zero T
	reply := make(chan T, 1)
	if err := in.Post(ctx, func(w *ecs.World) { reply <- fn(w) }); err != nil {
		return zero, err
	}
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// InputSystem executes queued commands against the World. Phase 0 (Input).
type InputSystem struct {
	world      *ecs.World
	inbox      *Inbox
	maxPerTick int
	log        *zap.Logger
}

func NewInputSystem(world *ecs.World, inbox *Inbox, maxPerTick int, log *zap.Logger) *InputSystem {
	return &InputSystem{
		world:      world,
		inbox:      inbox,
		maxPerTick: maxPerTick,
		log:        log,
	}
}

func (s *InputSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *InputSystem) Update(_ float64) error {
	for n := 0; s.maxPerTick <= 0 || n < s.maxPerTick; n++ {
		select {
		case cmd := <-s.inbox.ch:
			s.run(cmd)
		default:
			return nil
		}
	}
	return nil
}

func (s *InputSystem) run(cmd Command) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("queued command panicked", zap.String("panic", fmt.Sprint(r)))
		}
	}()
	cmd(s.world)
}
