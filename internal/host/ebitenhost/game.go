// Package ebitenhost runs the engine inside an ebiten window. Game is both
// the ebiten.Game driving ticks and the render.Bridge receiving frames.
package ebitenhost

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"

	"github.com/peterm94/gloam-engine-archive/internal/host"
	"github.com/peterm94/gloam-engine-archive/internal/render"
)

var colorBG = color.RGBA{26, 26, 46, 255}

// Game implements ebiten.Game and render.Bridge.
type Game struct {
	ticker  host.Ticker
	screenW int
	screenH int
	scale   int
	images  map[string]*ebiten.Image
	palette map[string]color.RGBA
	frame   render.Frame
	quit    atomic.Bool
}

// New creates a game with a logical screen of w×h pixels; each sprite
// occupies a scale×scale cell. colors maps texture names to "#rrggbb".
func New(w, h, scale int, colors map[string]string) (*Game, error) {
	if scale <= 0 {
		scale = 1
	}
	g := &Game{
		screenW: w,
		screenH: h,
		scale:   scale,
		images:  make(map[string]*ebiten.Image),
		palette: make(map[string]color.RGBA, len(colors)),
	}
	for texture, hex := range colors {
		c, err := parseHex(hex)
		if err != nil {
			return nil, fmt.Errorf("color for %q: %w", texture, err)
		}
		g.palette[texture] = c
	}
	return g, nil
}

// Bind sets the ticker driven by Update. Ticking starts once bound.
func (g *Game) Bind(t host.Ticker) { g.ticker = t }

// SetImage registers an image for a texture, drawn instead of a filled cell.
func (g *Game) SetImage(texture string, img *ebiten.Image) { g.images[texture] = img }

// Quit makes the next Update end the game. Safe from any goroutine.
func (g *Game) Quit() { g.quit.Store(true) }

// Update ticks the engine once with a delta of one ebiten tick.
// Implements ebiten.Game interface.
func (g *Game) Update() error {
	if g.quit.Load() || ebiten.IsKeyPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if g.ticker == nil {
		return nil
	}
	return g.ticker.Tick(1 / float64(ebiten.TPS()))
}

// Draw paints the last frame handed over by the engine.
// Implements ebiten.Game interface.
func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(colorBG)
	s := float64(g.scale)
	for _, sp := range g.frame.Sprites {
		x, y := float64(sp.X)*s, float64(sp.Y)*s
		if img, ok := g.images[sp.Texture]; ok {
			op := &ebiten.DrawImageOptions{}
			op.GeoM.Translate(x, y)
			screen.DrawImage(img, op)
			continue
		}
		ebitenutil.DrawRect(screen, x, y, s, s, g.colorOf(sp.Texture))
	}
}

// Layout returns the game's logical screen dimensions.
// Implements ebiten.Game interface.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.screenW, g.screenH
}

// DrawFrame stores f until ebiten asks for the next paint.
func (g *Game) DrawFrame(f render.Frame) error {
	g.frame = render.Frame{Number: f.Number, Sprites: append(g.frame.Sprites[:0], f.Sprites...)}
	return nil
}

// Bridge adapts Game to render.Bridge.
func (g *Game) Bridge() render.Bridge { return bridge{g} }

// Frame returns the last frame received.
func (g *Game) Frame() render.Frame { return g.frame }

type bridge struct{ g *Game }

func (b bridge) Draw(f render.Frame) error { return b.g.DrawFrame(f) }

// colorOf resolves a texture's palette color; unknown textures get a stable
// color derived from their name.
func (g *Game) colorOf(texture string) color.RGBA {
	if c, ok := g.palette[texture]; ok {
		return c
	}
	h := xxhash.Sum64String(texture)
	return color.RGBA{R: 64 + uint8(h)%192, G: 64 + uint8(h>>8)%192, B: 64 + uint8(h>>16)%192, A: 255}
}

func parseHex(s string) (color.RGBA, error) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return color.RGBA{}, fmt.Errorf("want #rrggbb, got %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("want #rrggbb: %w", err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}
