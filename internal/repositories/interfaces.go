package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/prudhvinik1/sessionpulse/internal/models"
)

var ErrNotFound = errors.New("not found")

// SessionRepository is implemented by every session store backend.
type SessionRepository interface {
	// Upsert inserts the session or updates user agent, device type and
	// updated_at of the existing one. CreatedAt is only written on insert and
	// equals UpdatedAt in that case. The stored timestamps are copied back into
	// session. created reports whether a new record was inserted.
	Upsert(ctx context.Context, session *models.Session) (created bool, err error)
	GetByID(ctx context.Context, sessionID string) (*models.Session, error)
	// DeleteStale removes every session whose updated_at is before cutoff.
	DeleteStale(ctx context.Context, cutoff time.Time) (int64, error)
	Ping(ctx context.Context) error
}
