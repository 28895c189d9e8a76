package ecs

import "slices"

type storeEntry struct {
	obj   GameObject
	label string
}

// ObjectStore owns every live object. Iteration follows promotion order so
// that update and render passes are deterministic.
type ObjectStore struct {
	data  map[ObjectID]storeEntry
	order []ObjectID
}

func NewObjectStore() *ObjectStore {
	return &ObjectStore{
		data:  make(map[ObjectID]storeEntry, 256),
		order: make([]ObjectID, 0, 256),
	}
}

// Insert adds a promoted object. Inserting an id twice is an invariant
// violation: the allocator never hands out the same id again.
func (s *ObjectStore) Insert(id ObjectID, label string, obj GameObject) {
	if _, dup := s.data[id]; dup {
		panic("ecs: duplicate object id " + id.String())
	}
	s.data[id] = storeEntry{obj: obj, label: label}
	s.order = append(s.order, id)
}

func (s *ObjectStore) Get(id ObjectID) (GameObject, bool) {
	e, ok := s.data[id]
	return e.obj, ok
}

// Label returns the type label the object was promoted under.
func (s *ObjectStore) Label(id ObjectID) (string, bool) {
	e, ok := s.data[id]
	return e.label, ok
}

// Remove erases id and reports whether it was present.
func (s *ObjectStore) Remove(id ObjectID) bool {
	if _, ok := s.data[id]; !ok {
		return false
	}
	delete(s.data, id)
	if i := slices.Index(s.order, id); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
	}
	return true
}

func (s *ObjectStore) Has(id ObjectID) bool {
	_, ok := s.data[id]
	return ok
}

func (s *ObjectStore) Len() int {
	return len(s.data)
}

// Snapshot returns a copy of the live ids in promotion order.
func (s *ObjectStore) Snapshot() []ObjectID {
	return slices.Clone(s.order)
}

// Each visits live objects in promotion order. fn must not mutate the store.
func (s *ObjectStore) Each(fn func(ObjectID, GameObject)) {
	for _, id := range s.order {
		fn(id, s.data[id].obj)
	}
}
