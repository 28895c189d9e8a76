package persist

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/peterm94/gloam-engine-archive/internal/config"
)

// JournalWriteTimeout bounds one journal batch, server side as well as in the
// flushing system.
const JournalWriteTimeout = 5 * time.Second

// DB wraps a pgx connection pool.
type DB struct {
	Pool *pgxpool.Pool
	log  *zap.Logger
}

func NewDB(ctx context.Context, cfg config.JournalConfig, log *zap.Logger) (*DB, error) {
	poolCfg, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to db: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	log.Info("journal database connected",
		zap.Int32("max_conns", poolCfg.MaxConns),
		zap.Int("batch_size", cfg.BatchSize),
	)
	return &DB{Pool: pool, log: log}, nil
}

// poolConfig sizes the pool for the journal. Batches are written one at a
// time from the tick goroutine, so beyond one writer connection the pool only
// needs room for startup queries.
func poolConfig(cfg config.JournalConfig) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	maxConns := min(max(cfg.MaxOpenConns, 1), 2)
	poolCfg.MaxConns = int32(maxConns)
	poolCfg.MinConns = int32(min(max(cfg.MaxIdleConns, 0), maxConns))
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime

	params := poolCfg.ConnConfig.RuntimeParams
	if _, ok := params["application_name"]; !ok {
		params["application_name"] = "gloam-journal"
	}
	params["statement_timeout"] = strconv.FormatInt(JournalWriteTimeout.Milliseconds(), 10)
	return poolCfg, nil
}

func (db *DB) Close() {
	db.Pool.Close()
}
