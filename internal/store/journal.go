package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const insertInvocation = `INSERT INTO scripthost_invocations (id, script, transport, status, duration_ms, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`

// Entry describes one completed invocation.
type Entry struct {
	ID        uuid.UUID
	Script    string
	Transport string
	Status    int
	Duration  time.Duration
	CreatedAt time.Time
}

// Journal records completed invocations.
type Journal interface {
	Record(ctx context.Context, entry Entry) error
}

type nopJournal struct{}

func (nopJournal) Record(context.Context, Entry) error { return nil }

// PoolJournal writes entries into the invocations table.
type PoolJournal struct {
	pool Pool
	log  *zap.Logger
}

func NewPoolJournal(pool Pool, log *zap.Logger) *PoolJournal {
	return &PoolJournal{
		pool: pool,
		log:  log.Named("journal"),
	}
}

func (j *PoolJournal) Record(ctx context.Context, e Entry) error {
	conn, err := j.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, insertInvocation,
		e.ID.String(),
		e.Script,
		e.Transport,
		e.Status,
		e.Duration.Milliseconds(),
		e.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("error recording invocation: %w", err)
	}

	j.log.Debug("recorded invocation", zap.Stringer("invocation_id", e.ID))

	return nil
}

type JournalParams struct {
	fx.In

	Config Config
	Pool   Pool
	Log    *zap.Logger
}

// NewJournal returns a pool-backed journal if enabled, and a no-op
// journal otherwise.
func NewJournal(params JournalParams) Journal {
	if !params.Config.Journal {
		return nopJournal{}
	}
	return NewPoolJournal(params.Pool, params.Log)
}
