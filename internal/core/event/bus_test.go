package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBus_DeliversNextTickInEmissionOrder(t *testing.T) {
	b := NewBus()
	var got []string
	Subscribe(b, func(e ObjectPromoted) { got = append(got, "promoted:"+e.Label) })
	Subscribe(b, func(e ObjectRemoved) { got = append(got, "removed:"+e.Label) })

	Emit(b, ObjectPromoted{ID: 1, Label: "A"})
	Emit(b, ObjectRemoved{ID: 2, Label: "B"})
	Emit(b, ObjectPromoted{ID: 3, Label: "C"})
	assert.Equal(t, 0, b.DispatchAll(), "nothing is visible before the swap")
	assert.Equal(t, 3, b.Pending())

	b.SwapBuffers()
	assert.Equal(t, 3, b.DispatchAll())
	assert.Equal(t, []string{"promoted:A", "removed:B", "promoted:C"}, got)

	b.SwapBuffers()
	assert.Equal(t, 0, b.DispatchAll())
}

func TestBus_UnsubscribedEventsAreDropped(t *testing.T) {
	b := NewBus()
	Emit(b, FrameRendered{Frame: 1})
	b.SwapBuffers()
	assert.Equal(t, 0, b.DispatchAll())
}

func TestBus_EmitDuringDispatchWaitsForNextSwap(t *testing.T) {
	b := NewBus()
	calls := 0
	Subscribe(b, func(e ObjectRemoved) {
		calls++
		Emit(b, ObjectRemoved{ID: e.ID + 1})
	})
	Emit(b, ObjectRemoved{ID: 1})
	b.SwapBuffers()
	b.DispatchAll()
	assert.Equal(t, 1, calls)
	b.SwapBuffers()
	b.DispatchAll()
	assert.Equal(t, 2, calls)
}
