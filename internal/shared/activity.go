package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Activity types recorded by the admin application.
const (
	ActivityLogin             = "USER_LOGIN"
	ActivityLogout            = "USER_LOGOUT"
	ActivityUserCreated       = "USER_CREATED"
	ActivityUserUpdated       = "USER_UPDATED"
	ActivityUserDeleted       = "USER_DELETED"
	ActivityUserActivated     = "USER_ACTIVATED"
	ActivityUserDeactivated   = "USER_DEACTIVATED"
	ActivityPermissionUpdated = "PERMISSION_UPDATED"
)

// ActivityEntry represents a record stored in activity_logs.
type ActivityEntry struct {
	ActorID     string
	Type        string
	Description string
	Meta        map[string]any
	At          time.Time
}

// ActivityLogger writes records into activity_logs.
type ActivityLogger struct {
	pool *pgxpool.Pool
}

// NewActivityLogger returns a new ActivityLogger.
func NewActivityLogger(pool *pgxpool.Pool) *ActivityLogger {
	return &ActivityLogger{pool: pool}
}

// Record persists the activity entry.
func (l *ActivityLogger) Record(ctx context.Context, entry ActivityEntry) error {
	if l == nil {
		return errors.New("activity logger not initialised")
	}
	if entry.ActorID == "" || entry.Type == "" {
		return errors.New("activity log requires actor_id/type")
	}
	metaJSON, err := json.Marshal(entry.Meta)
	if err != nil {
		return err
	}
	_, err = l.pool.Exec(ctx, `INSERT INTO activity_logs (actor_id, type, description, meta, occurred_at) VALUES ($1, $2, $3, $4, COALESCE(NULLIF($5, '0001-01-01T00:00:00Z'::timestamptz), NOW()))`, entry.ActorID, entry.Type, entry.Description, metaJSON, entry.At)
	return err
}
