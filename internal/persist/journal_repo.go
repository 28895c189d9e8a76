package persist

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Journal row kinds.
const (
	KindPromoted  = "promoted"
	KindRemoved   = "removed"
	KindCancelled = "cancelled"
	KindFrame     = "frame"
)

// JournalRow is one object lifecycle record. Frame rows carry the live
// object count and a digest of live membership instead of an object.
type JournalRow struct {
	SessionID uuid.UUID
	Frame     uint64
	Kind      string
	ObjectID  uint64
	Label     string
	LiveCount int
	Digest    uint64
}

type JournalRepo struct {
	db *DB
}

func NewJournalRepo(db *DB) *JournalRepo {
	return &JournalRepo{db: db}
}

// WriteJournal writes a batch of rows in a single transaction.
func (r *JournalRepo) WriteJournal(ctx context.Context, rows []JournalRow) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("journal begin: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(
			`INSERT INTO object_journal (session_id, frame, kind, object_id, label, live_count, digest)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			row.SessionID, int64(row.Frame), row.Kind, int64(row.ObjectID), row.Label, row.LiveCount, int64(row.Digest),
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("journal insert: %w", err)
	}

	return tx.Commit(ctx)
}

// SessionSummary describes where an earlier run's journal stops.
type SessionSummary struct {
	SessionID uuid.UUID
	Frame     uint64
	LiveCount int
	Digest    uint64
}

// LastSession returns the closing frame row of the most recently written
// session. ok is false for an empty journal.
func (r *JournalRepo) LastSession(ctx context.Context) (s SessionSummary, ok bool, err error) {
	var frame, digest int64
	err = r.db.Pool.QueryRow(ctx,
		`SELECT session_id, frame, live_count, digest FROM object_journal
		 WHERE kind = $1
		 ORDER BY id DESC
		 LIMIT 1`,
		KindFrame,
	).Scan(&s.SessionID, &frame, &s.LiveCount, &digest)
	if errors.Is(err, pgx.ErrNoRows) {
		return SessionSummary{}, false, nil
	}
	if err != nil {
		return SessionSummary{}, false, fmt.Errorf("journal last session: %w", err)
	}
	s.Frame, s.Digest = uint64(frame), uint64(digest)
	return s, true, nil
}
