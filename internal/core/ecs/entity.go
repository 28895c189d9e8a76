package ecs

import (
	"math"
	"strconv"
)

// ObjectID identifies an object for the lifetime of its World. IDs are never
// reused; 0 is reserved as the "no object" sentinel.
type ObjectID uint64

// NoObject is the zero ObjectID. The allocator never issues it.
const NoObject ObjectID = 0

func (id ObjectID) IsZero() bool   { return id == NoObject }
func (id ObjectID) String() string { return strconv.FormatUint(uint64(id), 10) }

// IDAllocator issues strictly increasing object IDs starting at 1.
// Not safe for concurrent use; a World is confined to one goroutine.
type IDAllocator struct {
	last ObjectID
}

// Allocate returns an ID greater than every ID previously returned.
func (a *IDAllocator) Allocate() ObjectID {
	if a.last == math.MaxUint64 {
		panic("ecs: object id space exhausted")
	}
	a.last++
	return a.last
}

// Last returns the most recently issued ID, or NoObject if none was issued.
func (a *IDAllocator) Last() ObjectID {
	return a.last
}

// Issued reports whether id has been handed out by this allocator.
func (a *IDAllocator) Issued(id ObjectID) bool {
	return !id.IsZero() && id <= a.last
}
