package ebitenhost

import (
	"errors"
	"image/color"
	"testing"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peterm94/gloam-engine-archive/internal/core/ecs"
	"github.com/peterm94/gloam-engine-archive/internal/engine"
	"github.com/peterm94/gloam-engine-archive/internal/render"
)

type mockTicker struct {
	dts []float64
	err error
}

func (m *mockTicker) Tick(dt float64) error {
	m.dts = append(m.dts, dt)
	return m.err
}

func TestGame_ImplementsInterfaces(t *testing.T) {
	var _ ebiten.Game = (*Game)(nil)
	var _ render.Bridge = (&Game{}).Bridge()
}

func TestGame_Layout(t *testing.T) {
	g, err := New(320, 240, 8, nil)
	require.NoError(t, err)

	w, h := g.Layout(640, 480)
	assert.Equal(t, 320, w)
	assert.Equal(t, 240, h)
}

func TestGame_Update_TicksWithOneTPSStep(t *testing.T) {
	g, err := New(320, 240, 8, nil)
	require.NoError(t, err)
	assert.NoError(t, g.Update(), "unbound game does nothing")

	m := &mockTicker{}
	g.Bind(m)
	require.NoError(t, g.Update())
	require.NoError(t, g.Update())
	require.Len(t, m.dts, 2)
	assert.InDelta(t, 1/float64(ebiten.TPS()), m.dts[0], 1e-12)
}

func TestGame_Update_PropagatesTickError(t *testing.T) {
	g, err := New(320, 240, 8, nil)
	require.NoError(t, err)
	boom := errors.New("boom")
	g.Bind(&mockTicker{err: boom})
	assert.ErrorIs(t, g.Update(), boom)
}

func TestGame_Quit(t *testing.T) {
	g, err := New(320, 240, 8, nil)
	require.NoError(t, err)
	m := &mockTicker{}
	g.Bind(m)
	g.Quit()
	assert.ErrorIs(t, g.Update(), ebiten.Termination)
	assert.Empty(t, m.dts)
}

func TestGame_ReceivesFramesFromEngine(t *testing.T) {
	g, err := New(320, 240, 8, nil)
	require.NoError(t, err)
	w := ecs.NewWorld()
	e := engine.New(w, g.Bridge())
	g.Bind(e)

	w.Add(&block{x: 2, y: 3})
	require.NoError(t, g.Update())

	f := g.Frame()
	assert.Equal(t, uint64(1), f.Number)
	require.Len(t, f.Sprites, 1)
	assert.Equal(t, render.Sprite{ID: 1, Texture: "block", X: 2, Y: 3}, f.Sprites[0])

	img := ebiten.NewImage(320, 240)
	g.Draw(img)
}

func TestNew_Palette(t *testing.T) {
	g, err := New(10, 10, 1, map[string]string{"hero": "#ffcc00"})
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{255, 204, 0, 255}, g.colorOf("hero"))
	assert.Equal(t, g.colorOf("stranger"), g.colorOf("stranger"))
	assert.Equal(t, uint8(255), g.colorOf("stranger").A)

	_, err = New(10, 10, 1, map[string]string{"bad": "#12"})
	assert.Error(t, err)
	_, err = New(10, 10, 1, map[string]string{"bad": "zzzzzz"})
	assert.Error(t, err)
}

type block struct{ x, y int }

func (b *block) Init() error          { return nil }
func (b *block) Update(float64) error { return nil }
func (b *block) Sprite() (render.Sprite, bool, error) {
	return render.Sprite{Texture: "block", X: b.x, Y: b.y}, true, nil
}
