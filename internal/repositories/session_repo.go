package repositories

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/prudhvinik1/sessionpulse/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	sessionPrefix   = "session:"
	sessionsByTouch = "sessions:by_updated_at"
	sweepBatchSize  = 500
)

// upsertScript keeps the hash and the updated_at index in step.
// KEYS[1] session hash, KEYS[2] index; ARGV id, user agent, device type, updated_at, score.
var upsertScript = redis.NewScript(`
local created = redis.call('HSETNX', KEYS[1], 'created_at', ARGV[4])
redis.call('HSET', KEYS[1], 'session_id', ARGV[1], 'user_agent', ARGV[2], 'device_type', ARGV[3], 'updated_at', ARGV[4])
redis.call('ZADD', KEYS[2], ARGV[5], ARGV[1])
return {created, redis.call('HGET', KEYS[1], 'created_at')}
`)

// sweepScript deletes up to ARGV[3] sessions scored below ARGV[1].
// The range read and the deletes run atomically, so a session touched
// concurrently is never removed on a stale score.
var sweepScript = redis.NewScript(`
local ids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', '(' .. ARGV[1], 'LIMIT', '0', ARGV[3])
for _, id in ipairs(ids) do
  redis.call('DEL', ARGV[2] .. id)
  redis.call('ZREM', KEYS[1], id)
end
return #ids
`)

type RedisSessionRepository struct {
	client *redis.Client
}

func NewRedisSessionRepository(client *redis.Client) *RedisSessionRepository {
	return &RedisSessionRepository{client: client}
}

func (r *RedisSessionRepository) Upsert(ctx context.Context, session *models.Session) (bool, error) {
	updatedAt := session.UpdatedAt.UTC()

	res, err := upsertScript.Run(ctx, r.client,
		[]string{sessionKey(session.SessionID), sessionsByTouch},
		session.SessionID,
		session.UserAgent,
		session.DeviceType,
		updatedAt.Format(time.RFC3339Nano),
		updatedAt.UnixMilli(),
	).Slice()
	if err != nil {
		return false, fmt.Errorf("failed to upsert session: %w", err)
	}
	if len(res) != 2 {
		return false, fmt.Errorf("failed to upsert session: unexpected script reply %v", res)
	}

	created, _ := res[0].(int64)
	createdRaw, _ := res[1].(string)
	createdAt, err := time.Parse(time.RFC3339Nano, createdRaw)
	if err != nil {
		return false, fmt.Errorf("failed to parse created_at: %w", err)
	}

	session.CreatedAt = createdAt
	session.UpdatedAt = updatedAt
	return created == 1, nil
}

func (r *RedisSessionRepository) GetByID(ctx context.Context, sessionID string) (*models.Session, error) {
	fields, err := r.client.HGetAll(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	// HGETALL on a missing key returns an empty map, not redis.Nil
	if len(fields) == 0 {
		return nil, ErrNotFound
	}

	createdAt, err := time.Parse(time.RFC3339Nano, fields["created_at"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, fields["updated_at"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return &models.Session{
		SessionID:  fields["session_id"],
		UserAgent:  fields["user_agent"],
		DeviceType: fields["device_type"],
		CreatedAt:  createdAt,
		UpdatedAt:  updatedAt,
	}, nil
}

// DeleteStale sweeps in batches so one call never blocks redis for long.
func (r *RedisSessionRepository) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	var total int64
	for {
		n, err := sweepScript.Run(ctx, r.client,
			[]string{sessionsByTouch},
			strconv.FormatInt(cutoff.UnixMilli(), 10),
			sessionPrefix,
			sweepBatchSize,
		).Int64()
		if err != nil {
			return total, fmt.Errorf("failed to delete stale sessions: %w", err)
		}

		total += n
		if n < sweepBatchSize {
			return total, nil
		}
	}
}

func (r *RedisSessionRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Helper: build Redis key for a session
func sessionKey(sessionID string) string {
	return sessionPrefix + sessionID
}
