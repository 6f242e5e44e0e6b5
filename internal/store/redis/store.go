package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/outpost/internal/domain"
	"github.com/MrSnakeDoc/outpost/internal/logger"
	"github.com/MrSnakeDoc/outpost/internal/metrics"
	"github.com/MrSnakeDoc/outpost/internal/store"
)

// Store keeps the registry under a single Redis key. SET replaces the value in one
// command, so readers never see a partial registry.
type Store struct {
	client  *redis.Client
	key     string
	logger  logger.Logger
	metrics *metrics.Metrics
}

var _ store.Store = (*Store)(nil)

// NewStore creates a new Redis store. An empty key selects DefaultRegistryKey.
func NewStore(client *redis.Client, key string, log logger.Logger, m *metrics.Metrics) *Store {
	return &Store{
		client:  client,
		key:     RegistryKey(key),
		logger:  log,
		metrics: m,
	}
}

func (s *Store) Name() string { return "redis" }

// Key returns the Redis key the registry lives under.
func (s *Store) Key() string { return s.key }

// Load retrieves the registry. A missing key is an empty registry. Redis errors and
// undecodable values are logged and also yield an empty registry.
func (s *Store) Load(ctx context.Context) []domain.Entry {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("failed to read registry from redis, starting empty",
				logger.String("key", s.key),
				logger.Error(err))
			s.metrics.StoreCorrupt(s.Name())
		}
		return []domain.Entry{}
	}

	entries, err := store.Decode(data)
	if err != nil {
		s.logger.Warn("registry value corrupt, starting empty",
			logger.String("key", s.key),
			logger.Error(err))
		s.metrics.StoreCorrupt(s.Name())
		return []domain.Entry{}
	}
	return entries
}

// Save stores the registry without expiry.
func (s *Store) Save(ctx context.Context, entries []domain.Entry) error {
	data, err := store.Encode(entries)
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}

	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save registry: %w", err)
	}
	return nil
}

// Ping reports whether Redis is reachable. Used by the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
