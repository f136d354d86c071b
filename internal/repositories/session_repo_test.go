package repositories

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prudhvinik1/sessionpulse/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisSessionRepository(t *testing.T) {
	runSessionRepositoryContract(t, func(t *testing.T) SessionRepository {
		client, _ := getTestRedisClient(t)
		return NewRedisSessionRepository(client)
	})
}

// TestRedisSessionRepository_IndexTracksUpdates checks the sorted set score follows updated_at
func TestRedisSessionRepository_IndexTracksUpdates(t *testing.T) {
	client, _ := getTestRedisClient(t)
	repo := NewRedisSessionRepository(client)
	ctx := context.Background()
	now := testNow()

	session := newTestSession(now.Add(-time.Hour))
	_, err := repo.Upsert(ctx, session)
	require.NoError(t, err)

	session.UpdatedAt = now
	_, err = repo.Upsert(ctx, session)
	require.NoError(t, err)

	score, err := client.ZScore(ctx, sessionsByTouch, session.SessionID).Result()
	require.NoError(t, err)
	assert.Equal(t, float64(now.UnixMilli()), score)

	members, err := client.ZCard(ctx, sessionsByTouch).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), members, "index should hold one entry per session")
}

// TestRedisSessionRepository_DeleteStaleBatches sweeps more than one batch in a single call
func TestRedisSessionRepository_DeleteStaleBatches(t *testing.T) {
	client, _ := getTestRedisClient(t)
	repo := NewRedisSessionRepository(client)
	ctx := context.Background()
	old := testNow().Add(-30 * 24 * time.Hour)

	total := sweepBatchSize + 25
	for i := 0; i < total; i++ {
		session := &models.Session{
			SessionID:  fmt.Sprintf("old-%d", i),
			UserAgent:  models.Unknown,
			DeviceType: models.Unknown,
			UpdatedAt:  old,
		}
		_, err := repo.Upsert(ctx, session)
		require.NoError(t, err)
	}

	deleted, err := repo.DeleteStale(ctx, testNow())

	require.NoError(t, err)
	assert.Equal(t, int64(total), deleted)

	keys, err := client.Keys(ctx, sessionPrefix+"*").Result()
	require.NoError(t, err)
	assert.Empty(t, keys)

	members, err := client.ZCard(ctx, sessionsByTouch).Result()
	require.NoError(t, err)
	assert.Zero(t, members)
}

func TestRedisSessionRepository_PingFailsWhenServerDown(t *testing.T) {
	client, server := getTestRedisClient(t)
	repo := NewRedisSessionRepository(client)

	server.Close()

	assert.Error(t, repo.Ping(context.Background()))
}

// Helper functions for test setup

// getTestRedisClient returns a client wired to an in-process redis server
func getTestRedisClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	server := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { client.Close() })

	err := client.Ping(context.Background()).Err()
	require.NoError(t, err, "Failed to connect to test Redis")

	return client, server
}
