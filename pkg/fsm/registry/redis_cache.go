package registry

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisCacheKey is used when no key is configured.
const DefaultRedisCacheKey = "fsm:definitions"

// RedisCacheStore keeps the definition snapshot in Redis, letting multiple
// application instances share one compiled snapshot.
type RedisCacheStore struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
}

// RedisCacheOption configures the store.
type RedisCacheOption func(*RedisCacheStore)

// WithRedisCacheKey overrides the snapshot key.
func WithRedisCacheKey(key string) RedisCacheOption {
	return func(s *RedisCacheStore) {
		if key != "" {
			s.key = key
		}
	}
}

// WithRedisCacheTTL bounds snapshot lifetime. Zero means no expiry.
func WithRedisCacheTTL(ttl time.Duration) RedisCacheOption {
	return func(s *RedisCacheStore) {
		s.ttl = ttl
	}
}

func NewRedisCacheStore(client redis.UniversalClient, opts ...RedisCacheOption) *RedisCacheStore {
	s := &RedisCacheStore{
		client: client,
		key:    DefaultRedisCacheKey,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisCacheStore) Load(ctx context.Context) ([]byte, bool, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return raw, true, nil
}

func (s *RedisCacheStore) Save(ctx context.Context, data []byte) error {
	return s.client.Set(ctx, s.key, data, s.ttl).Err()
}

func (s *RedisCacheStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}
