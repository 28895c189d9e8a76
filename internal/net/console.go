package net

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/peterm94/gloam-engine-archive/internal/core/ecs"
	"github.com/peterm94/gloam-engine-archive/internal/render"
	"github.com/peterm94/gloam-engine-archive/internal/system"
)

// ErrQuit is returned by Execute for the quit command.
var ErrQuit = errors.New("quit")

// Evaluator runs script source on the game loop. *scripting.Host implements
// it.
type Evaluator interface {
	DoString(src string) error
}

// Console parses command lines and runs them against the World through the
// inbox, so the World is only ever touched by the tick goroutine.
type Console struct {
	inbox *system.Inbox
	eval  Evaluator
}

func NewConsole(inbox *system.Inbox, eval Evaluator) *Console {
	return &Console{inbox: inbox, eval: eval}
}

type command struct {
	usage string
	help  string
	run   func(c *Console, ctx context.Context, args []string) (string, error)
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"count":  {"count [label]", "number of live objects, optionally of one type", (*Console).count},
		"ls":     {"ls [label]", "list live objects in promotion order", (*Console).list},
		"get":    {"get <id>", "show one object", (*Console).get},
		"rm":     {"rm <id>", "stage an object for removal", (*Console).remove},
		"labels": {"labels", "live type labels with counts", (*Console).labels},
		"stats":  {"stats", "live and staged totals", (*Console).stats},
		"lua":    {"lua <source>", "run a Lua chunk on the game loop", (*Console).lua},
		"help":   {"help", "this text", (*Console).help},
		"quit":   {"quit", "close the session", func(*Console, context.Context, []string) (string, error) { return "", ErrQuit }},
	}
}

// Execute runs one command line and returns its reply text.
func (c *Console) Execute(ctx context.Context, line string) (string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}
	cmd, ok := commands[fields[0]]
	if !ok {
		return "", fmt.Errorf("unknown command %q (try help)", fields[0])
	}
	return cmd.run(c, ctx, fields[1:])
}

func (c *Console) count(ctx context.Context, args []string) (string, error) {
	n, err := system.Call(ctx, c.inbox, func(w *ecs.World) int {
		if len(args) > 0 {
			return w.CountOfType(args[0])
		}
		return w.Len()
	})
	if err != nil {
		return "", err
	}
	return strconv.Itoa(n), nil
}

func (c *Console) list(ctx context.Context, args []string) (string, error) {
	return system.Call(ctx, c.inbox, func(w *ecs.World) string {
		var b strings.Builder
		emit := func(id ecs.ObjectID, _ ecs.GameObject) {
			label, _ := w.Label(id)
			fmt.Fprintf(&b, "%d %s\n", id, label)
		}
		if len(args) > 0 {
			w.WithType(args[0], emit)
		} else {
			w.Each(emit)
		}
		return strings.TrimSuffix(b.String(), "\n")
	})
}

func (c *Console) get(ctx context.Context, args []string) (string, error) {
	id, err := parseID(args)
	if err != nil {
		return "", err
	}
	return system.Call(ctx, c.inbox, func(w *ecs.World) string {
		switch {
		case w.Live(id):
			label, _ := w.Label(id)
			out := fmt.Sprintf("%d %s live", id, label)
			obj, _ := w.Get(id)
			if d, ok := obj.(render.Drawable); ok {
				if s, visible, err := d.Sprite(); err != nil {
					out += " sprite error: " + err.Error()
				} else if visible {
					out += fmt.Sprintf(" sprite=%s x=%d y=%d z=%d", s.Texture, s.X, s.Y, s.Z)
				}
			}
			return out
		case w.Staged(id):
			return fmt.Sprintf("%d staged", id)
		default:
			return fmt.Sprintf("%d not found", id)
		}
	})
}

func (c *Console) remove(ctx context.Context, args []string) (string, error) {
	id, err := parseID(args)
	if err != nil {
		return "", err
	}
	if _, err = system.Call(ctx, c.inbox, func(w *ecs.World) struct{} {
		w.Remove(id)
		return struct{}{}
	}); err != nil {
		return "", err
	}
	return fmt.Sprintf("%d removal staged", id), nil
}

func (c *Console) labels(ctx context.Context, _ []string) (string, error) {
	return system.Call(ctx, c.inbox, func(w *ecs.World) string {
		var b strings.Builder
		for _, label := range w.Labels() {
			fmt.Fprintf(&b, "%s %d\n", label, w.CountOfType(label))
		}
		return strings.TrimSuffix(b.String(), "\n")
	})
}

func (c *Console) stats(ctx context.Context, _ []string) (string, error) {
	return system.Call(ctx, c.inbox, func(w *ecs.World) string {
		return fmt.Sprintf("live=%d pending_add=%d pending_remove=%d last_id=%d",
			w.Len(), w.PendingAdditions(), w.PendingRemovals(), w.LastID())
	})
}

func (c *Console) lua(ctx context.Context, args []string) (string, error) {
	if c.eval == nil {
		return "", errors.New("scripting is not enabled")
	}
	if len(args) == 0 {
		return "", errors.New("usage: lua <source>")
	}
	src := strings.Join(args, " ")
	evalErr, err := system.Call(ctx, c.inbox, func(*ecs.World) error {
		return c.eval.DoString(src)
	})
	if err != nil {
		return "", err
	}
	return "", evalErr
}

func (c *Console) help(context.Context, []string) (string, error) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	slices.Sort(names)
	var b strings.Builder
	for _, name := range names {
		cmd := commands[name]
		fmt.Fprintf(&b, "%-14s %s\n", cmd.usage, cmd.help)
	}
	return strings.TrimSuffix(b.String(), "\n"), nil
}

func parseID(args []string) (ecs.ObjectID, error) {
	if len(args) != 1 {
		return ecs.NoObject, errors.New("expected one object id")
	}
	n, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil || n == 0 {
		return ecs.NoObject, fmt.Errorf("bad object id %q", args[0])
	}
	return ecs.ObjectID(n), nil
}
