package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionPruner deletes session audit rows past their retention window.
type SessionPruner struct {
	pool      *pgxpool.Pool
	retention time.Duration
	logger    *slog.Logger
}

// NewSessionPruner constructs a pruner. A zero retention defaults to 30 days.
func NewSessionPruner(pool *pgxpool.Pool, retention time.Duration, logger *slog.Logger) *SessionPruner {
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	return &SessionPruner{pool: pool, retention: retention, logger: logger}
}

// Handle processes TaskTypeSessionPrune tasks.
func (p *SessionPruner) Handle(ctx context.Context, _ *asynq.Task) error {
	cutoff := time.Now().UTC().Add(-p.retention)
	tag, err := p.pool.Exec(ctx, `DELETE FROM session_records WHERE expires_at < $1`, cutoff)
	if err != nil {
		return err
	}
	p.logger.Info("session prune",
		slog.Int64("deleted", tag.RowsAffected()),
		slog.Time("cutoff", cutoff))
	return nil
}
