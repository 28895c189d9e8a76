package ecs

import "slices"

// TypeIndex buckets live object ids by type label. It holds ids only; the
// ObjectStore remains the owner of the objects themselves.
type TypeIndex struct {
	buckets map[string][]ObjectID
	labels  map[ObjectID]string
}

func NewTypeIndex() *TypeIndex {
	return &TypeIndex{
		buckets: make(map[string][]ObjectID, 16),
		labels:  make(map[ObjectID]string, 256),
	}
}

// Register appends id to label's bucket. Labels are fixed at staging, so an
// id is only ever registered once.
func (x *TypeIndex) Register(label string, id ObjectID) {
	x.buckets[label] = append(x.buckets[label], id)
	x.labels[id] = label
}

// ByType returns a copy of label's bucket in insertion order. Unknown labels
// yield an empty slice.
func (x *TypeIndex) ByType(label string) []ObjectID {
	b := x.buckets[label]
	if len(b) == 0 {
		return []ObjectID{}
	}
	return slices.Clone(b)
}

// Remove erases id from whichever bucket holds it.
func (x *TypeIndex) Remove(id ObjectID) {
	label, ok := x.labels[id]
	if !ok {
		return
	}
	delete(x.labels, id)
	b := x.buckets[label]
	if i := slices.Index(b, id); i >= 0 {
		b = slices.Delete(b, i, i+1)
	}
	if len(b) == 0 {
		delete(x.buckets, label)
		return
	}
	x.buckets[label] = b
}

// Count returns the number of ids under label.
func (x *TypeIndex) Count(label string) int {
	return len(x.buckets[label])
}

// Labels returns every label with at least one live object, sorted.
func (x *TypeIndex) Labels() []string {
	out := make([]string, 0, len(x.buckets))
	for label := range x.buckets {
		out = append(out, label)
	}
	slices.Sort(out)
	return out
}
