package term

import (
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/peterm94/gloam-engine-archive/internal/render"
)

func newScreen(t *testing.T, w, h int) tcell.SimulationScreen {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, screen.Init())
	screen.SetSize(w, h)
	t.Cleanup(screen.Fini)
	return screen
}

func cell(screen tcell.Screen, x, y int) rune {
	r, _, _, _ := screen.GetContent(x, y)
	return r
}

func TestBridge_DrawsGlyphs(t *testing.T) {
	screen := newScreen(t, 20, 5)
	b := New(screen, map[string]string{"player": "@", "enemy": "E"}, zap.NewNop())
	b.SetStatusBar(false)

	err := b.Draw(render.Frame{Number: 1, Sprites: []render.Sprite{
		{ID: 1, Texture: "player", X: 2, Y: 1},
		{ID: 2, Texture: "enemy", X: 5, Y: 3},
		{ID: 3, Texture: "wall", X: 0, Y: 0},
		{ID: 4, Texture: "player", X: 40, Y: 1},
	}})
	require.NoError(t, err)

	assert.Equal(t, '@', cell(screen, 2, 1))
	assert.Equal(t, 'E', cell(screen, 5, 3))
	assert.Equal(t, 'w', cell(screen, 0, 0), "unknown textures fall back to their first rune")
}

func TestBridge_ClearsBetweenFrames(t *testing.T) {
	screen := newScreen(t, 10, 4)
	b := New(screen, nil, zap.NewNop())

	require.NoError(t, b.Draw(render.Frame{Number: 1, Sprites: []render.Sprite{{Texture: "x", X: 1, Y: 1}}}))
	assert.Equal(t, 'x', cell(screen, 1, 1))

	require.NoError(t, b.Draw(render.Frame{Number: 2}))
	assert.NotEqual(t, 'x', cell(screen, 1, 1))
	assert.Equal(t, 'f', cell(screen, 0, 3), "status bar on the last row")
}

func TestBridge_StatusRowNotOverdrawn(t *testing.T) {
	screen := newScreen(t, 10, 3)
	b := New(screen, map[string]string{"p": "@"}, zap.NewNop())
	require.NoError(t, b.Draw(render.Frame{Number: 9, Sprites: []render.Sprite{{Texture: "p", X: 0, Y: 2}}}))
	assert.Equal(t, 'f', cell(screen, 0, 2))
}
