// Package idempotency deduplicates retried request creations by an
// Idempotency-Key header, backed by Redis.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix     = "relief:idem:"
	pendingPrefix = "pending:"
	maxKeyLength  = 128
)

var (
	// ErrInProgress is returned while another call holding the same key is
	// still running.
	ErrInProgress = errors.New("idempotent request still in progress")
	// ErrInvalidKey is returned for empty or oversized keys.
	ErrInvalidKey = errors.New("invalid idempotency key")
)

// Value is replaced only while it still holds the caller's pending token.
var completeScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
end
return false
`)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Connect creates a Redis client and checks that the server answers.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("idempotency: ping: %w", err)
	}
	return client, nil
}

// Store records which keys have produced which request. A nil *Store
// disables deduplication.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore builds a Store. Keys expire after ttl.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{client: client, ttl: ttl}
}

// Claim is held by the caller that won a key until it completes or
// releases it.
type Claim struct {
	store *Store
	key   string
	token string
}

// Begin claims key within scope. If the key already produced a request its
// ID is returned with a nil claim. A nil store, or an empty key, yields a
// nil claim and zero ID so the caller proceeds without deduplication.
func (s *Store) Begin(ctx context.Context, scope, key string) (*Claim, int64, error) {
	if s == nil || key == "" {
		return nil, 0, nil
	}
	if len(key) > maxKeyLength || strings.ContainsAny(key, " \t\r\n") {
		return nil, 0, ErrInvalidKey
	}

	redisKey := keyPrefix + scope + ":" + key
	token := pendingPrefix + uuid.NewString()

	// A second pass covers the key expiring between SETNX and GET.
	for range 2 {
		ok, err := s.client.SetNX(ctx, redisKey, token, s.ttl).Result()
		if err != nil {
			return nil, 0, fmt.Errorf("claiming idempotency key: %w", err)
		}
		if ok {
			return &Claim{store: s, key: redisKey, token: token}, 0, nil
		}

		value, err := s.client.Get(ctx, redisKey).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, 0, fmt.Errorf("reading idempotency key: %w", err)
		}
		if strings.HasPrefix(value, pendingPrefix) {
			return nil, 0, ErrInProgress
		}
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, 0, fmt.Errorf("idempotency key %q holds %q", key, value)
		}
		return nil, id, nil
	}
	return nil, 0, ErrInProgress
}

// Complete binds the claimed key to the created request.
func (c *Claim) Complete(ctx context.Context, requestID int64) error {
	if c == nil {
		return nil
	}
	err := completeScript.Run(ctx, c.store.client, []string{c.key},
		c.token, strconv.FormatInt(requestID, 10), c.store.ttl.Milliseconds(),
	).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("completing idempotency key: %w", err)
	}
	return nil
}

// Release frees the claimed key so the client can retry after a failure.
func (c *Claim) Release(ctx context.Context) error {
	if c == nil {
		return nil
	}
	if err := releaseScript.Run(ctx, c.store.client, []string{c.key}, c.token).Err(); err != nil {
		return fmt.Errorf("releasing idempotency key: %w", err)
	}
	return nil
}
