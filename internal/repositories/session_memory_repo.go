package repositories

import (
	"context"
	"sync"
	"time"

	"github.com/prudhvinik1/sessionpulse/internal/models"
)

// MemorySessionRepository keeps sessions in a process local map. It is safe
// for concurrent use and meant for tests and single-instance development.
// Stored values are copied in and out so callers never share state with it.
type MemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]models.Session
}

func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{sessions: make(map[string]models.Session)}
}

func (r *MemorySessionRepository) Upsert(ctx context.Context, session *models.Session) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.sessions[session.SessionID]
	if !exists {
		stored = models.Session{
			SessionID: session.SessionID,
			CreatedAt: session.UpdatedAt,
		}
	}
	stored.UserAgent = session.UserAgent
	stored.DeviceType = session.DeviceType
	stored.UpdatedAt = session.UpdatedAt
	r.sessions[session.SessionID] = stored

	session.CreatedAt = stored.CreatedAt
	return !exists, nil
}

func (r *MemorySessionRepository) GetByID(ctx context.Context, sessionID string) (*models.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return &session, nil
}

func (r *MemorySessionRepository) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for id, session := range r.sessions {
		if session.UpdatedAt.Before(cutoff) {
			delete(r.sessions, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *MemorySessionRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Count returns the number of stored sessions.
func (r *MemorySessionRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
