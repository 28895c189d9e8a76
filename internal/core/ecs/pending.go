package ecs

// pendingAdd is an object staged for promotion. Its ID is already reserved.
type pendingAdd struct {
	id        ObjectID
	label     string
	obj       GameObject
	cancelled bool
}

// PendingQueue stages additions and removals between promotion boundaries.
// Nothing staged here is visible to queries or receives lifecycle calls.
type PendingQueue struct {
	adds    []pendingAdd
	pos     map[ObjectID]int // id -> index in adds
	removes []ObjectID
}

func NewPendingQueue() *PendingQueue {
	return &PendingQueue{
		adds:    make([]pendingAdd, 0, 64),
		pos:     make(map[ObjectID]int, 64),
		removes: make([]ObjectID, 0, 64),
	}
}

// StageAdd queues obj under an already allocated id.
func (q *PendingQueue) StageAdd(id ObjectID, label string, obj GameObject) {
	q.pos[id] = len(q.adds)
	q.adds = append(q.adds, pendingAdd{id: id, label: label, obj: obj})
}

// StageRemove queues id for removal at the next drain.
func (q *PendingQueue) StageRemove(id ObjectID) {
	q.removes = append(q.removes, id)
}

// Has reports whether id is staged for addition and not cancelled.
func (q *PendingQueue) Has(id ObjectID) bool {
	i, ok := q.pos[id]
	return ok && !q.adds[i].cancelled
}

// cancel marks a staged addition so it is never promoted.
// Returns the cancelled entry's label and false if id was not staged.
func (q *PendingQueue) cancel(id ObjectID) (string, bool) {
	i, ok := q.pos[id]
	if !ok || q.adds[i].cancelled {
		return "", false
	}
	q.adds[i].cancelled = true
	q.adds[i].obj = nil
	return q.adds[i].label, true
}

// takeRemovals hands over the staged removals and resets the sequence.
func (q *PendingQueue) takeRemovals() []ObjectID {
	out := q.removes
	q.removes = make([]ObjectID, 0, cap(out))
	return out
}

// takeAdditions moves every non-cancelled staged addition out of the queue.
// Additions staged afterwards land in a fresh sequence for the next frame.
func (q *PendingQueue) takeAdditions() []pendingAdd {
	out := make([]pendingAdd, 0, len(q.adds))
	for _, a := range q.adds {
		if !a.cancelled {
			out = append(out, a)
		}
	}
	q.adds = q.adds[:0]
	clear(q.pos)
	return out
}

// requeue puts additions back at the head of the queue, ahead of anything
// staged since they were taken. Used when a promotion pass is aborted.
func (q *PendingQueue) requeue(batch []pendingAdd) {
	if len(batch) == 0 {
		return
	}
	merged := make([]pendingAdd, 0, len(batch)+len(q.adds))
	merged = append(merged, batch...)
	merged = append(merged, q.adds...)
	q.adds = merged
	clear(q.pos)
	for i, a := range q.adds {
		q.pos[a.id] = i
	}
}

// Additions returns the number of live staged additions.
func (q *PendingQueue) Additions() int {
	n := 0
	for _, a := range q.adds {
		if !a.cancelled {
			n++
		}
	}
	return n
}

// Removals returns the number of staged removals.
func (q *PendingQueue) Removals() int {
	return len(q.removes)
}
