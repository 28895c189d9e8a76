package ecs

import "errors"

// ErrReentrantPass is returned when a frame pass is started from inside
// another one, e.g. an object's Update calling World.Promote.
var ErrReentrantPass = errors.New("ecs: frame pass invoked re-entrantly")

// Ref names an object by id and the label it was staged under.
type Ref struct {
	ID    ObjectID
	Label string
}

// RemovalReport lists what a removal drain did.
type RemovalReport struct {
	Removed   []Ref // erased from the live set
	Cancelled []Ref // staged additions that will never be promoted
}

// World is the object registry. It owns the id allocator, the pending queue,
// the object store and the type index. Mutations requested by callers and by
// objects themselves only touch the pending queue; the live set changes only
// in FlushRemovals and Promote, which the frame scheduler calls once per tick.
//
// A World is confined to a single goroutine.
type World struct {
	ids     IDAllocator
	pending *PendingQueue
	store   *ObjectStore
	index   *TypeIndex
	inPass  bool
}

func NewWorld() *World {
	return &World{
		pending: NewPendingQueue(),
		store:   NewObjectStore(),
		index:   NewTypeIndex(),
	}
}

// Add stages obj for promotion at the next tick and returns its id. The type
// label is derived from obj (see LabelOf).
func (w *World) Add(obj GameObject) ObjectID {
	if obj == nil {
		panic("ecs: Add called with nil GameObject")
	}
	return w.AddLabeled(LabelOf(obj), obj)
}

// AddLabeled stages obj under an explicit type label. An empty label falls
// back to the derived one.
func (w *World) AddLabeled(label string, obj GameObject) ObjectID {
	if obj == nil {
		panic("ecs: AddLabeled called with nil GameObject")
	}
	if label == "" {
		label = LabelOf(obj)
	}
	id := w.ids.Allocate()
	w.pending.StageAdd(id, label, obj)
	return id
}

// Remove stages id for removal at the next tick. Ids that were never issued
// are ignored so that a later allocation can't be cancelled by accident.
func (w *World) Remove(id ObjectID) {
	if !w.ids.Issued(id) {
		return
	}
	w.pending.StageRemove(id)
}

// FlushRemovals applies every staged removal. Live objects are erased from
// the store and the index; staged additions are cancelled.
func (w *World) FlushRemovals() (RemovalReport, error) {
	var rep RemovalReport
	if w.inPass {
		return rep, ErrReentrantPass
	}
	for _, id := range w.pending.takeRemovals() {
		if label, ok := w.store.Label(id); ok {
			w.store.Remove(id)
			w.index.Remove(id)
			rep.Removed = append(rep.Removed, Ref{ID: id, Label: label})
			continue
		}
		if label, ok := w.pending.cancel(id); ok {
			rep.Cancelled = append(rep.Cancelled, Ref{ID: id, Label: label})
		}
	}
	return rep, nil
}

// Promote moves the staged additions into the live set in staging order.
// Each object's Init runs before it is inserted, so a failing Init leaves
// nothing half-registered. Additions staged while promoting wait for the next
// tick. On failure the failed object is dropped, the objects not yet
// initialized go back to the head of the queue, and a *HookError is returned.
func (w *World) Promote() ([]Ref, error) {
	if w.inPass {
		return nil, ErrReentrantPass
	}
	w.inPass = true
	defer func() { w.inPass = false }()

	batch := w.pending.takeAdditions()
	promoted := make([]Ref, 0, len(batch))
	for i, a := range batch {
		if err := callHook(a.obj.Init); err != nil {
			w.pending.requeue(batch[i+1:])
			return promoted, &HookError{ID: a.id, Label: a.label, Hook: HookInit, Err: err}
		}
		w.store.Insert(a.id, a.label, a.obj)
		w.index.Register(a.label, a.id)
		promoted = append(promoted, Ref{ID: a.id, Label: a.label})
	}
	return promoted, nil
}

// UpdateAll calls Update on every live object over a snapshot of membership
// taken before the pass starts. The first failure aborts the pass.
func (w *World) UpdateAll(dt float64) (int, error) {
	if w.inPass {
		return 0, ErrReentrantPass
	}
	w.inPass = true
	defer func() { w.inPass = false }()

	n := 0
	for _, id := range w.store.Snapshot() {
		obj, ok := w.store.Get(id)
		if !ok {
			continue
		}
		if err := callHook(func() error { return obj.Update(dt) }); err != nil {
			label, _ := w.store.Label(id)
			return n, &HookError{ID: id, Label: label, Hook: HookUpdate, Err: err}
		}
		n++
	}
	return n, nil
}

// Len returns the number of live objects.
func (w *World) Len() int { return w.store.Len() }

// PendingAdditions returns the number of additions waiting for promotion.
func (w *World) PendingAdditions() int { return w.pending.Additions() }

// PendingRemovals returns the number of staged removals.
func (w *World) PendingRemovals() int { return w.pending.Removals() }

// Live reports whether id is currently promoted.
func (w *World) Live(id ObjectID) bool { return w.store.Has(id) }

// Staged reports whether id is waiting for promotion.
func (w *World) Staged(id ObjectID) bool { return w.pending.Has(id) }

// LastID returns the most recently allocated id.
func (w *World) LastID() ObjectID { return w.ids.Last() }
