package ecs

// WithObject calls fn with the live object id, if there is one. Missing ids
// are silently ignored: an id may still be pending or already removed.
func (w *World) WithObject(id ObjectID, fn func(GameObject)) {
	if obj, ok := w.store.Get(id); ok {
		fn(obj)
	}
}

// Get returns the live object for id.
func (w *World) Get(id ObjectID) (GameObject, bool) {
	return w.store.Get(id)
}

// Label returns the type label of a live object.
func (w *World) Label(id ObjectID) (string, bool) {
	return w.store.Label(id)
}

// WithType calls fn once for every live object labeled label, in promotion
// order. Membership is captured when the call starts.
func (w *World) WithType(label string, fn func(ObjectID, GameObject)) {
	for _, id := range w.index.ByType(label) {
		if obj, ok := w.store.Get(id); ok {
			fn(id, obj)
		}
	}
}

// ObjectsOfType returns the ids of live objects labeled label, in promotion
// order. Unknown labels yield an empty slice.
func (w *World) ObjectsOfType(label string) []ObjectID {
	return w.index.ByType(label)
}

// CountOfType returns how many live objects carry label.
func (w *World) CountOfType(label string) int {
	return w.index.Count(label)
}

// Labels returns every label that currently has live objects, sorted.
func (w *World) Labels() []string {
	return w.index.Labels()
}

// Each visits every live object in promotion order over a membership
// snapshot.
func (w *World) Each(fn func(ObjectID, GameObject)) {
	for _, id := range w.store.Snapshot() {
		if obj, ok := w.store.Get(id); ok {
			fn(id, obj)
		}
	}
}
