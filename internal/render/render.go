// Package render defines the boundary between the frame scheduler and
// whatever actually draws: a terminal, a window, or a test recorder.
package render

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/peterm94/gloam-engine-archive/internal/core/ecs"
)

// Sprite is one visual resource placed at integer coordinates. Texture is an
// opaque handle the bridge resolves (image name, glyph key, ...).
type Sprite struct {
	ID      ecs.ObjectID
	Texture string
	X, Y    int
	Z       int // draw order; lower first
}

// Frame is the resource set handed to a bridge once per tick.
type Frame struct {
	Number  uint64
	Sprites []Sprite
}

// Drawable is implemented by objects that contribute a sprite. ok=false
// hides the object for the frame; an error aborts the frame.
type Drawable interface {
	Sprite() (s Sprite, ok bool, err error)
}

// Bridge draws a frame. It is called once per tick after the update pass,
// including ticks with nothing to draw.
type Bridge interface {
	Draw(f Frame) error
}

// Collect builds the frame for w: every visible Drawable in promotion order,
// stably sorted by Z. The first failing Drawable stops collection.
func Collect(w *ecs.World, number uint64) (Frame, error) {
	f := Frame{Number: number, Sprites: make([]Sprite, 0, w.Len())}
	var err error
	w.Each(func(id ecs.ObjectID, obj ecs.GameObject) {
		if err != nil {
			return
		}
		d, ok := obj.(Drawable)
		if !ok {
			return
		}
		s, visible, serr := d.Sprite()
		if serr != nil {
			err = fmt.Errorf("sprite of object %d: %w", id, serr)
			return
		}
		if !visible {
			return
		}
		s.ID = id
		f.Sprites = append(f.Sprites, s)
	})
	if err != nil {
		return Frame{Number: number}, err
	}
	slices.SortStableFunc(f.Sprites, func(a, b Sprite) int { return cmp.Compare(a.Z, b.Z) })
	return f, nil
}

// Nop discards every frame.
type Nop struct{}

func (Nop) Draw(Frame) error { return nil }

// Recorder keeps every frame it is given. Used headless and in tests.
type Recorder struct {
	Frames []Frame
	Limit  int // keep at most Limit frames (0 = unbounded)
}

func (r *Recorder) Draw(f Frame) error {
	f.Sprites = slices.Clone(f.Sprites)
	r.Frames = append(r.Frames, f)
	if r.Limit > 0 && len(r.Frames) > r.Limit {
		r.Frames = slices.Delete(r.Frames, 0, len(r.Frames)-r.Limit)
	}
	return nil
}

// Last returns the most recent frame.
func (r *Recorder) Last() (Frame, bool) {
	if len(r.Frames) == 0 {
		return Frame{}, false
	}
	return r.Frames[len(r.Frames)-1], true
}
