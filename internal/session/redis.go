package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/eleccia/chatbot-engine/internal/model"
)

// RedisStore holds sessions in Redis under conversation:{user_id} keys with
// native key expiry. It is the store for multi-instance deployments.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis using a redis:// URL.
func NewRedisStore(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// Get returns the live session and renews its TTL.
func (st *RedisStore) Get(ctx context.Context, userID string) (*model.Session, error) {
	key := Key(userID)

	data, err := st.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session store get: %w", err)
	}

	var s model.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("corrupt session for %s: %w", userID, err)
	}

	// Sliding expiration: a read implies activity.
	if err := st.client.Expire(ctx, key, DefaultTTL).Err(); err != nil {
		return nil, fmt.Errorf("session store renew: %w", err)
	}

	return &s, nil
}

// Put writes or overwrites the session with the given TTL.
func (st *RedisStore) Put(ctx context.Context, userID string, s *model.Session, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to serialize session: %w", err)
	}

	if err := st.client.Set(ctx, Key(userID), data, ttl).Err(); err != nil {
		return fmt.Errorf("session store put: %w", err)
	}
	return nil
}

// Delete removes the entry. Idempotent.
func (st *RedisStore) Delete(ctx context.Context, userID string) error {
	if err := st.client.Del(ctx, Key(userID)).Err(); err != nil {
		return fmt.Errorf("session store delete: %w", err)
	}
	return nil
}

// KeysNearExpiry scans the session namespace and returns user ids whose
// remaining TTL is below threshold.
func (st *RedisStore) KeysNearExpiry(ctx context.Context, threshold time.Duration) ([]string, error) {
	var out []string

	iter := st.client.Scan(ctx, 0, KeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()

		ttl, err := st.client.TTL(ctx, key).Result()
		if err != nil {
			return nil, fmt.Errorf("session store ttl: %w", err)
		}
		// Negative TTL means the key is gone or has no expiry set.
		if ttl > 0 && ttl < threshold {
			out = append(out, strings.TrimPrefix(key, KeyPrefix))
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("session store scan: %w", err)
	}

	return out, nil
}

// Stats reports active-session counts.
func (st *RedisStore) Stats(ctx context.Context) (Stats, error) {
	var stats Stats

	iter := st.client.Scan(ctx, 0, KeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		stats.ActiveSessions++

		data, err := st.client.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return Stats{}, fmt.Errorf("session store get: %w", err)
		}

		var s model.Session
		if err := json.Unmarshal(data, &s); err != nil {
			continue
		}
		stats.TotalMessages += s.MessageCount
	}
	if err := iter.Err(); err != nil {
		return Stats{}, fmt.Errorf("session store scan: %w", err)
	}

	return stats, nil
}

// Ping verifies connectivity.
func (st *RedisStore) Ping(ctx context.Context) error {
	return st.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (st *RedisStore) Close() error {
	return st.client.Close()
}
