package event

import (
	"reflect"
	"sync"
)

// Bus is a double-buffered event bus. Events emitted in tick N are delivered
// in tick N+1, in emission order, when the dispatch system calls
// SwapBuffers and DispatchAll at the start of the tick.
type Bus struct {
	mu       sync.Mutex // only protects handler registration
	front    []any
	back     []any
	handlers map[reflect.Type][]any
}

func NewBus() *Bus {
	return &Bus{
		front:    make([]any, 0, 64),
		back:     make([]any, 0, 64),
		handlers: make(map[reflect.Type][]any),
	}
}

// Emit queues an event into the back buffer (delivered next tick).
func Emit[T any](b *Bus, event T) {
	b.back = append(b.back, event)
}

// Subscribe registers a typed handler for events of type T.
func Subscribe[T any](b *Bus, fn func(T)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := reflect.TypeOf((*T)(nil)).Elem()
	b.handlers[t] = append(b.handlers[t], fn)
}

// SwapBuffers rotates back→front and clears the new back buffer.
func (b *Bus) SwapBuffers() {
	b.front, b.back = b.back, b.front[:0]
}

// DispatchAll delivers all front-buffer events to their subscribed handlers
// and returns the number of events delivered.
func (b *Bus) DispatchAll() int {
	n := 0
	for _, ev := range b.front {
		handlers := b.handlers[reflect.TypeOf(ev)]
		if len(handlers) == 0 {
			continue
		}
		for _, h := range handlers {
			callHandler(h, ev)
		}
		n++
	}
	return n
}

// Pending returns the number of events waiting for the next swap.
func (b *Bus) Pending() int {
	return len(b.back)
}

func callHandler(handler any, event any) {
	reflect.ValueOf(handler).Call([]reflect.Value{reflect.ValueOf(event)})
}
