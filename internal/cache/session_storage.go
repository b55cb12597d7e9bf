package cache

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "session:"
	// CSRFKeyPrefix namespaces the csrf middleware's tokens.
	CSRFKeyPrefix  = "csrf:"
	storageTimeout = 2 * time.Second
)

// SessionStorage is a fiber.Storage backed by Redis, used by the session and csrf middleware.
// Keys are namespaced so Reset never touches cache or rate limit entries.
type SessionStorage struct {
	rdb    *redis.Client
	prefix string
}

var _ fiber.Storage = (*SessionStorage)(nil)

// NewSessionStorage wraps rdb. The caller owns the client; Close is a no-op.
func NewSessionStorage(rdb *redis.Client) *SessionStorage {
	return NewPrefixedStorage(rdb, sessionKeyPrefix)
}

// NewPrefixedStorage wraps rdb with a custom key namespace.
func NewPrefixedStorage(rdb *redis.Client, prefix string) *SessionStorage {
	return &SessionStorage{rdb: rdb, prefix: prefix}
}

func (s *SessionStorage) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), storageTimeout)
}

// Get returns nil, nil for a missing key as fiber.Storage requires.
func (s *SessionStorage) Get(key string) ([]byte, error) {
	if key == "" {
		return nil, nil
	}
	ctx, cancel := s.ctx()
	defer cancel()

	val, err := s.rdb.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return val, err
}

// Set stores val; a zero exp keeps the key until deleted.
func (s *SessionStorage) Set(key string, val []byte, exp time.Duration) error {
	if key == "" || len(val) == 0 {
		return nil
	}
	ctx, cancel := s.ctx()
	defer cancel()
	return s.rdb.Set(ctx, s.prefix+key, val, exp).Err()
}

func (s *SessionStorage) Delete(key string) error {
	if key == "" {
		return nil
	}
	ctx, cancel := s.ctx()
	defer cancel()
	return s.rdb.Del(ctx, s.prefix+key).Err()
}

// Reset removes every key in the storage's namespace.
func (s *SessionStorage) Reset() error {
	ctx, cancel := s.ctx()
	defer cancel()

	iter := s.rdb.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.rdb.Del(ctx, keys...).Err()
}

func (s *SessionStorage) Close() error {
	return nil
}
