package coderelay

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/franciscosanchezn/tg-game-api/internal/models"
)

// Records are hashes with fields username, code, platform_id, attempts and expires_at
// (unix nanoseconds). Key expiry is Redis' own TTL; HSET leaves it untouched.
var (
	attachScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return 0
end
redis.call('HSET', KEYS[1], 'code', ARGV[1], 'platform_id', ARGV[2])
return 1
`)

	recordFailureScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'expires_at') ~= ARGV[1] then
	return 0
end
return redis.call('HINCRBY', KEYS[1], 'attempts', 1)
`)

	deleteIfMatchesScript = redis.NewScript(`
local v = redis.call('HMGET', KEYS[1], 'code', 'expires_at', 'platform_id')
if v[1] == false or v[1] ~= ARGV[1] or v[2] ~= ARGV[2] then
	return false
end
redis.call('DEL', KEYS[1])
return v[3]
`)
)

// RedisStore shares pending logins between processes.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore creates a Redis-backed pending login store.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "pending_auth:",
	}
}

func (r *RedisStore) key(username string) string {
	return r.prefix + username
}

func (r *RedisStore) Put(ctx context.Context, rec models.PendingAuthentication, ttl time.Duration) error {
	key := r.key(rec.Username)
	if ttl <= 0 {
		return r.client.Del(ctx, key).Err()
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key,
			"username", rec.Username,
			"code", rec.Code,
			"platform_id", strconv.FormatInt(rec.PlatformID, 10),
			"expires_at", strconv.FormatInt(rec.ExpiresAt.UnixNano(), 10),
			"attempts", strconv.Itoa(rec.Attempts),
		)
		pipe.PExpire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("coderelay: failed to store pending login: %w", err)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, username string) (*models.PendingAuthentication, error) {
	fields, err := r.client.HGetAll(ctx, r.key(username)).Result()
	if err != nil {
		return nil, fmt.Errorf("coderelay: failed to load pending login: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	platformID, err := strconv.ParseInt(fields["platform_id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("coderelay: corrupt platform_id: %w", err)
	}
	expiresAt, err := strconv.ParseInt(fields["expires_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("coderelay: corrupt expires_at: %w", err)
	}
	attempts := 0
	if raw := fields["attempts"]; raw != "" {
		if attempts, err = strconv.Atoi(raw); err != nil {
			return nil, fmt.Errorf("coderelay: corrupt attempts: %w", err)
		}
	}

	return &models.PendingAuthentication{
		Username:   fields["username"],
		Code:       fields["code"],
		PlatformID: platformID,
		ExpiresAt:  time.Unix(0, expiresAt),
		Attempts:   attempts,
	}, nil
}

func (r *RedisStore) Attach(ctx context.Context, username, code string, platformID int64) (bool, error) {
	n, err := attachScript.Run(ctx, r.client,
		[]string{r.key(username)},
		code, strconv.FormatInt(platformID, 10),
	).Int()
	if err != nil {
		return false, fmt.Errorf("coderelay: failed to attach code: %w", err)
	}
	return n == 1, nil
}

func (r *RedisStore) DeleteIfMatches(ctx context.Context, username, code string, expiresAt time.Time) (*models.PendingAuthentication, error) {
	raw, err := deleteIfMatchesScript.Run(ctx, r.client,
		[]string{r.key(username)},
		code, strconv.FormatInt(expiresAt.UnixNano(), 10),
	).Text()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("coderelay: failed to consume pending login: %w", err)
	}

	platformID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("coderelay: corrupt platform_id: %w", err)
	}
	return &models.PendingAuthentication{
		Username:   username,
		Code:       code,
		PlatformID: platformID,
		ExpiresAt:  expiresAt,
	}, nil
}

func (r *RedisStore) RecordFailure(ctx context.Context, username string, expiresAt time.Time) (int, error) {
	n, err := recordFailureScript.Run(ctx, r.client,
		[]string{r.key(username)},
		strconv.FormatInt(expiresAt.UnixNano(), 10),
	).Int()
	if err != nil {
		return 0, fmt.Errorf("coderelay: failed to count wrong code: %w", err)
	}
	return n, nil
}

func (r *RedisStore) Len(ctx context.Context) (int, error) {
	count := 0
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("coderelay: failed to count pending logins: %w", err)
	}
	return count, nil
}
