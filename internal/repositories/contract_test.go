package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prudhvinik1/sessionpulse/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runSessionRepositoryContract exercises the behaviour every backend must share.
// newRepo must return an empty repository.
func runSessionRepositoryContract(t *testing.T, newRepo func(t *testing.T) SessionRepository) {
	t.Run("UpsertCreates", func(t *testing.T) { testUpsertCreates(t, newRepo(t)) })
	t.Run("UpsertUpdatesKeepsCreatedAt", func(t *testing.T) { testUpsertUpdates(t, newRepo(t)) })
	t.Run("UpsertIsIdempotent", func(t *testing.T) { testUpsertIdempotent(t, newRepo(t)) })
	t.Run("GetByIDNotFound", func(t *testing.T) { testGetByIDNotFound(t, newRepo(t)) })
	t.Run("DeleteStale", func(t *testing.T) { testDeleteStale(t, newRepo(t)) })
	t.Run("DeleteStaleKeepsRetouched", func(t *testing.T) { testDeleteStaleKeepsRetouched(t, newRepo(t)) })
	t.Run("Ping", func(t *testing.T) { require.NoError(t, newRepo(t).Ping(context.Background())) })
}

func newTestSession(updatedAt time.Time) *models.Session {
	return &models.Session{
		SessionID:  "test-" + uuid.New().String(),
		UserAgent:  models.Unknown,
		DeviceType: models.Unknown,
		UpdatedAt:  updatedAt,
	}
}

// testNow is millisecond precision, like every stored timestamp
func testNow() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func testUpsertCreates(t *testing.T, repo SessionRepository) {
	ctx := context.Background()
	now := testNow()

	// ACT: Upsert a session that doesn't exist yet
	session := newTestSession(now)
	created, err := repo.Upsert(ctx, session)

	// ASSERT: Inserted with created_at == updated_at
	require.NoError(t, err)
	assert.True(t, created, "first upsert should insert")
	assert.True(t, session.CreatedAt.Equal(now), "CreatedAt should be set from UpdatedAt")
	assert.True(t, session.CreatedAt.Equal(session.UpdatedAt))

	stored, err := repo.GetByID(ctx, session.SessionID)
	require.NoError(t, err)
	assert.Equal(t, session.SessionID, stored.SessionID)
	assert.Equal(t, models.Unknown, stored.UserAgent)
	assert.Equal(t, models.Unknown, stored.DeviceType)
	assert.True(t, stored.CreatedAt.Equal(now))
	assert.True(t, stored.UpdatedAt.Equal(now))
}

func testUpsertUpdates(t *testing.T, repo SessionRepository) {
	ctx := context.Background()
	first := testNow().Add(-time.Hour)

	session := newTestSession(first)
	_, err := repo.Upsert(ctx, session)
	require.NoError(t, err)

	// ACT: Ping again later with new metadata
	second := first.Add(30 * time.Minute)
	update := &models.Session{
		SessionID:  session.SessionID,
		UserAgent:  "Mozilla/5.0",
		DeviceType: "mobile",
		UpdatedAt:  second,
	}
	created, err := repo.Upsert(ctx, update)

	// ASSERT: Same record, created_at untouched, updated_at advanced
	require.NoError(t, err)
	assert.False(t, created, "second upsert should update")
	assert.True(t, update.CreatedAt.Equal(first), "CreatedAt must not change")
	assert.True(t, update.UpdatedAt.Equal(second))

	stored, err := repo.GetByID(ctx, session.SessionID)
	require.NoError(t, err)
	assert.True(t, stored.CreatedAt.Equal(first))
	assert.True(t, stored.UpdatedAt.Equal(second))
	assert.Equal(t, "Mozilla/5.0", stored.UserAgent)
	assert.Equal(t, "mobile", stored.DeviceType)
}

func testUpsertIdempotent(t *testing.T, repo SessionRepository) {
	ctx := context.Background()
	now := testNow()
	session := newTestSession(now)

	for i := 0; i < 3; i++ {
		payload := *session
		_, err := repo.Upsert(ctx, &payload)
		require.NoError(t, err)
	}

	// Only the record for this id exists, and it was never recreated
	stored, err := repo.GetByID(ctx, session.SessionID)
	require.NoError(t, err)
	assert.True(t, stored.CreatedAt.Equal(now))

	deleted, err := repo.DeleteStale(ctx, now.Add(time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted, "repeated pings must leave exactly one record")
}

func testGetByIDNotFound(t *testing.T, repo SessionRepository) {
	_, err := repo.GetByID(context.Background(), "missing-"+uuid.New().String())
	assert.ErrorIs(t, err, ErrNotFound)
}

func testDeleteStale(t *testing.T, repo SessionRepository) {
	ctx := context.Background()
	now := testNow()
	cutoff := now.Add(-7 * 24 * time.Hour)

	stale := newTestSession(cutoff.Add(-time.Minute))
	fresh := newTestSession(now)
	boundary := newTestSession(cutoff)
	for _, s := range []*models.Session{stale, fresh, boundary} {
		_, err := repo.Upsert(ctx, s)
		require.NoError(t, err)
	}

	// ACT: Sweep everything older than the cutoff
	deleted, err := repo.DeleteStale(ctx, cutoff)

	// ASSERT: Only strictly older records are removed
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = repo.GetByID(ctx, stale.SessionID)
	assert.ErrorIs(t, err, ErrNotFound, "stale session should be swept")

	_, err = repo.GetByID(ctx, fresh.SessionID)
	assert.NoError(t, err, "fresh session should survive")

	_, err = repo.GetByID(ctx, boundary.SessionID)
	assert.NoError(t, err, "session exactly at the cutoff should survive")
}

func testDeleteStaleKeepsRetouched(t *testing.T, repo SessionRepository) {
	ctx := context.Background()
	now := testNow()
	cutoff := now.Add(-7 * 24 * time.Hour)

	session := newTestSession(cutoff.Add(-time.Hour))
	_, err := repo.Upsert(ctx, session)
	require.NoError(t, err)

	// The client comes back before the sweep runs
	retouched := *session
	retouched.UpdatedAt = now
	_, err = repo.Upsert(ctx, &retouched)
	require.NoError(t, err)

	deleted, err := repo.DeleteStale(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)

	stored, err := repo.GetByID(ctx, session.SessionID)
	require.NoError(t, err)
	assert.True(t, stored.UpdatedAt.Equal(now))
}
