package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/breast-dx-server/internal/domain"
)

// RedisStore keeps snapshots in Redis as JSON with a TTL. Calls go through a circuit
// breaker so a dead Redis costs one fast failure per request instead of a timeout.
type RedisStore struct {
	client  *redis.Client
	prefix  string
	ttl     time.Duration
	breaker *gobreaker.CircuitBreaker
	logger  *logrus.Logger
}

// NewRedisStore connects using the session config. The connection is not checked here;
// use Ping for that.
func NewRedisStore(cfg domain.SessionConfig, logger *logrus.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.PoolTimeout > 0 {
		opts.PoolTimeout = cfg.PoolTimeout
	}
	if cfg.MaxRetries > 0 {
		opts.MaxRetries = cfg.MaxRetries
	}

	return NewRedisStoreWithClient(redis.NewClient(opts), cfg.RedisPrefix, cfg.TTL, logger), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, prefix string, ttl time.Duration, logger *logrus.Logger) *RedisStore {
	if logger == nil {
		logger = logrus.New()
	}

	settings := gobreaker.Settings{
		Name:        "SessionRedis",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"circuit_breaker": name,
				"from_state":      from.String(),
				"to_state":        to.String(),
			}).Warn("Circuit breaker state changed")
		},
	}

	return &RedisStore{
		client:  client,
		prefix:  prefix,
		ttl:     ttl,
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}
}

func (r *RedisStore) key(sessionID string) string {
	return r.prefix + sessionID
}

// Put overwrites the session's snapshot.
func (r *RedisStore) Put(ctx context.Context, sessionID string, snap *Snapshot) error {
	if sessionID == "" {
		return errors.New("session id is required")
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	_, err = r.breaker.Execute(func() (interface{}, error) {
		return nil, r.client.Set(ctx, r.key(sessionID), data, r.ttl).Err()
	})
	if err != nil {
		return fmt.Errorf("storing session snapshot: %w", err)
	}
	return nil
}

// Get returns the session's snapshot, or (nil, nil) when there is none.
func (r *RedisStore) Get(ctx context.Context, sessionID string) (*Snapshot, error) {
	res, err := r.breaker.Execute(func() (interface{}, error) {
		data, err := r.client.Get(ctx, r.key(sessionID)).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return data, err
	})
	if err != nil {
		return nil, fmt.Errorf("loading session snapshot: %w", err)
	}

	data, _ := res.([]byte)
	if data == nil {
		return nil, nil
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decoding session snapshot: %w", err)
	}
	return &snap, nil
}

// Ping checks connectivity.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the client's connections.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
