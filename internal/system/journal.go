package system

import (
	"context"
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/peterm94/gloam-engine-archive/internal/core/ecs"
	"github.com/peterm94/gloam-engine-archive/internal/core/event"
	coresys "github.com/peterm94/gloam-engine-archive/internal/core/system"
	"github.com/peterm94/gloam-engine-archive/internal/persist"
)

// JournalSink stores journal rows. *persist.JournalRepo implements it.
type JournalSink interface {
	WriteJournal(ctx context.Context, rows []persist.JournalRow) error
}

// JournalSystem records object lifecycle events and periodic membership
// digests. Rows are written in batches; a failing sink is logged and never
// aborts the tick. Phase 5 (Persist).
type JournalSystem struct {
	world     *ecs.World
	clock     func() uint64
	sink      JournalSink
	session   uuid.UUID
	log       *zap.Logger
	rows      []persist.JournalRow
	frame     uint64
	tickCount int
	interval  int // flush every N ticks
	batchSize int // flush early at this many buffered rows
	maxRows   int // drop oldest rows beyond this while the sink is failing
}

// NewJournalSystem stamps rows with clock, normally the runner's current
// tick. Register Marker as well so rows from aborted ticks keep their frame.
func NewJournalSystem(world *ecs.World, bus *event.Bus, clock func() uint64, sink JournalSink, intervalTicks, batchSize int, log *zap.Logger) *JournalSystem {
	if intervalTicks <= 0 {
		intervalTicks = 1
	}
	if batchSize <= 0 {
		batchSize = 256
	}
	s := &JournalSystem{
		world:     world,
		clock:     clock,
		sink:      sink,
		session:   uuid.New(),
		log:       log,
		rows:      make([]persist.JournalRow, 0, batchSize),
		interval:  intervalTicks,
		batchSize: batchSize,
		maxRows:   batchSize * 16,
	}
	event.Subscribe(bus, func(e event.ObjectPromoted) { s.record(persist.KindPromoted, e.ID, e.Label) })
	event.Subscribe(bus, func(e event.ObjectRemoved) { s.record(persist.KindRemoved, e.ID, e.Label) })
	event.Subscribe(bus, func(e event.AdditionCancelled) { s.record(persist.KindCancelled, e.ID, e.Label) })
	return s
}

func (s *JournalSystem) Phase() coresys.Phase { return coresys.PhasePersist }

// Session identifies this run in the journal.
func (s *JournalSystem) Session() uuid.UUID { return s.session }

// Buffered returns the number of rows waiting to be written.
func (s *JournalSystem) Buffered() int { return len(s.rows) }

// Events are delivered at the start of the next tick (or by Engine.Close),
// before Marker advances s.frame, so s.frame still names the emitting tick.
func (s *JournalSystem) record(kind string, id ecs.ObjectID, label string) {
	s.rows = append(s.rows, persist.JournalRow{
		SessionID: s.session,
		Frame:     s.frame,
		Kind:      kind,
		ObjectID:  uint64(id),
		Label:     label,
	})
}

// Marker returns the Input-phase companion that moves the journal onto the
// current tick once the previous tick's events are delivered. It runs even
// when a later phase aborts the tick.
func (s *JournalSystem) Marker() coresys.System { return journalMarker{s} }

type journalMarker struct{ j *JournalSystem }

func (journalMarker) Phase() coresys.Phase { return coresys.PhaseInput }

func (m journalMarker) Update(_ float64) error {
	m.j.frame = m.j.clock()
	return nil
}

func (s *JournalSystem) Update(_ float64) error {
	s.frame = s.clock()
	s.tickCount++
	if s.tickCount < s.interval && len(s.rows) < s.batchSize {
		return nil
	}
	s.tickCount = 0
	s.appendFrameRow()

	ctx, cancel := context.WithTimeout(context.Background(), persist.JournalWriteTimeout)
	defer cancel()
	s.flush(ctx)
	return nil
}

// Flush writes everything buffered, plus a final frame row. Called on
// shutdown.
func (s *JournalSystem) Flush(ctx context.Context) error {
	s.appendFrameRow()
	return s.flush(ctx)
}

func (s *JournalSystem) appendFrameRow() {
	s.rows = append(s.rows, persist.JournalRow{
		SessionID: s.session,
		Frame:     s.frame,
		Kind:      persist.KindFrame,
		LiveCount: s.world.Len(),
		Digest:    Digest(s.world),
	})
}

func (s *JournalSystem) flush(ctx context.Context) error {
	if len(s.rows) == 0 {
		return nil
	}
	if err := s.sink.WriteJournal(ctx, s.rows); err != nil {
		s.log.Error("journal flush failed", zap.Int("rows", len(s.rows)), zap.Error(err))
		if over := len(s.rows) - s.maxRows; over > 0 {
			s.rows = append(s.rows[:0], s.rows[over:]...)
			s.log.Warn("journal backlog trimmed", zap.Int("dropped", over))
		}
		return err
	}
	s.log.Debug("journal flushed", zap.Int("rows", len(s.rows)), zap.Uint64("frame", s.frame))
	s.rows = s.rows[:0]
	return nil
}

// Digest hashes live membership (ids and labels, in promotion order). Two
// runs that promoted and removed the same objects in the same order share a
// digest.
func Digest(w *ecs.World) uint64 {
	h := xxhash.New()
	var buf [8]byte
	w.Each(func(id ecs.ObjectID, _ ecs.GameObject) {
		label, _ := w.Label(id)
		binary.LittleEndian.PutUint64(buf[:], uint64(id))
		h.Write(buf[:])
		h.WriteString(label)
		h.Write([]byte{0})
	})
	return h.Sum64()
}
