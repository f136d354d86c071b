package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prudhvinik1/sessionpulse/internal/models"
)

type PostgresSessionRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresSessionRepository(pool *pgxpool.Pool) *PostgresSessionRepository {
	return &PostgresSessionRepository{pool: pool}
}

// Upsert relies on ON CONFLICT for per-key atomicity. xmax is zero only for
// a freshly inserted row, which tells inserts and updates apart.
func (r *PostgresSessionRepository) Upsert(ctx context.Context, session *models.Session) (bool, error) {
	query := `INSERT INTO sessions (session_id, user_agent, device_type, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $4)
	          ON CONFLICT (session_id) DO UPDATE
	          SET user_agent = EXCLUDED.user_agent,
	              device_type = EXCLUDED.device_type,
	              updated_at = EXCLUDED.updated_at
	          RETURNING created_at, updated_at, (xmax = 0) AS inserted`

	var created bool
	err := r.pool.QueryRow(ctx, query,
		session.SessionID,
		session.UserAgent,
		session.DeviceType,
		session.UpdatedAt.UTC(),
	).Scan(&session.CreatedAt, &session.UpdatedAt, &created)
	if err != nil {
		return false, fmt.Errorf("failed to upsert session: %w", err)
	}

	session.CreatedAt = session.CreatedAt.UTC()
	session.UpdatedAt = session.UpdatedAt.UTC()
	return created, nil
}

func (r *PostgresSessionRepository) GetByID(ctx context.Context, sessionID string) (*models.Session, error) {
	query := `SELECT session_id, user_agent, device_type, created_at, updated_at
	          FROM sessions
	          WHERE session_id = $1`

	var session models.Session
	err := r.pool.QueryRow(ctx, query, sessionID).Scan(
		&session.SessionID,
		&session.UserAgent,
		&session.DeviceType,
		&session.CreatedAt,
		&session.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	session.CreatedAt = session.CreatedAt.UTC()
	session.UpdatedAt = session.UpdatedAt.UTC()
	return &session, nil
}

func (r *PostgresSessionRepository) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM sessions WHERE updated_at < $1`

	result, err := r.pool.Exec(ctx, query, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale sessions: %w", err)
	}
	return result.RowsAffected(), nil
}

func (r *PostgresSessionRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
