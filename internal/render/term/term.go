// Package term renders frames as glyphs on a terminal through tcell.
package term

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"

	"github.com/peterm94/gloam-engine-archive/internal/render"
)

// Bridge draws each sprite as a single cell. Textures resolve through the
// glyph table; unknown textures use their first rune.
type Bridge struct {
	screen    tcell.Screen
	glyphs    map[string]rune
	style     tcell.Style
	hudStyle  tcell.Style
	statusBar bool
	log       *zap.Logger
}

// Open initializes the process terminal.
func Open(glyphs map[string]string, log *zap.Logger) (*Bridge, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("new screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("init screen: %w", err)
	}
	return New(screen, glyphs, log), nil
}

// New wraps an already initialized screen.
func New(screen tcell.Screen, glyphs map[string]string, log *zap.Logger) *Bridge {
	b := &Bridge{
		screen:    screen,
		glyphs:    make(map[string]rune, len(glyphs)),
		style:     tcell.StyleDefault.Foreground(tcell.ColorWhite),
		hudStyle:  tcell.StyleDefault.Foreground(tcell.ColorGray),
		statusBar: true,
		log:       log,
	}
	for texture, g := range glyphs {
		if r, _ := utf8.DecodeRuneInString(g); r != utf8.RuneError {
			b.glyphs[texture] = r
		}
	}
	return b
}

// SetStatusBar toggles the frame counter on the bottom row.
func (b *Bridge) SetStatusBar(on bool) { b.statusBar = on }

func (b *Bridge) Draw(f render.Frame) error {
	b.screen.Clear()
	w, h := b.screen.Size()
	rows := h
	if b.statusBar && h > 0 {
		rows = h - 1
	}
	for _, s := range f.Sprites {
		if s.X < 0 || s.Y < 0 || s.X >= w || s.Y >= rows {
			continue
		}
		b.screen.SetContent(s.X, s.Y, b.glyph(s.Texture), nil, b.style)
	}
	if b.statusBar && h > 0 {
		b.putString(0, h-1, fmt.Sprintf("frame %d  sprites %d", f.Number, len(f.Sprites)))
	}
	b.screen.Show()
	return nil
}

func (b *Bridge) glyph(texture string) rune {
	if r, ok := b.glyphs[texture]; ok {
		return r
	}
	if r, _ := utf8.DecodeRuneInString(texture); r != utf8.RuneError {
		return r
	}
	return '?'
}

func (b *Bridge) putString(x, y int, s string) {
	w, _ := b.screen.Size()
	for _, r := range s {
		if x >= w {
			return
		}
		b.screen.SetContent(x, y, r, nil, b.hudStyle)
		x++
	}
}

// WaitQuit blocks until the user presses Esc, Ctrl-C or q, or ctx ends.
// Resize events are forwarded to the screen.
func (b *Bridge) WaitQuit(ctx context.Context) error {
	events := make(chan tcell.Event, 16)
	quit := make(chan struct{})
	go b.screen.ChannelEvents(events, quit)
	defer close(quit)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC ||
					(ev.Key() == tcell.KeyRune && ev.Rune() == 'q') {
					b.log.Info("quit requested from terminal")
					return nil
				}
			case *tcell.EventResize:
				b.screen.Sync()
			}
		}
	}
}

// Close restores the terminal.
func (b *Bridge) Close() {
	b.screen.Fini()
}
