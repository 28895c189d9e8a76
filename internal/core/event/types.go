package event

import "github.com/peterm94/gloam-engine-archive/internal/core/ecs"

// Object lifecycle events, emitted by the frame systems.

type ObjectPromoted struct {
	ID    ecs.ObjectID
	Label string
}

type ObjectRemoved struct {
	ID    ecs.ObjectID
	Label string
}

// AdditionCancelled reports an object added and removed before it was ever
// promoted. It never received Init.
type AdditionCancelled struct {
	ID    ecs.ObjectID
	Label string
}

type FrameRendered struct {
	Frame   uint64
	Sprites int
}
