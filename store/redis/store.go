// Package redis provides Redis-backed session storage for dishcovery.
//
// Only sessions live here: users and favourites are relational data
// and stay in the SQL store. Redis expiry doubles as the session TTL,
// so DeleteExpiredSessions is a no-op for this backend.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nmehta6/dishcovery/store"
)

// Key prefixes for Redis storage.
const (
	prefixSession      = "dishcovery:session:"
	prefixUserSessions = "dishcovery:user_sessions:"
)

// Store implements store.Sessions using Redis.
type Store struct {
	client redis.UniversalClient
}

// Config holds Redis store configuration.
type Config struct {
	// Client is an existing Redis client.
	// If provided, other options are ignored.
	Client redis.UniversalClient

	// Addr is the Redis server address (host:port).
	Addr string

	// Password is the Redis password.
	Password string

	// DB is the Redis database number.
	DB int

	// PoolSize is the maximum number of connections.
	PoolSize int
}

// New creates a new Redis session store.
func New(cfg *Config) (*Store, error) {
	var client redis.UniversalClient

	if cfg.Client != nil {
		client = cfg.Client
	} else {
		opts := &redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}
		if cfg.PoolSize > 0 {
			opts.PoolSize = cfg.PoolSize
		}
		client = redis.NewClient(opts)
	}

	return &Store{client: client}, nil
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// Ping verifies the Redis connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// SaveSession persists a session, expiring with the session itself.
func (s *Store) SaveSession(ctx context.Context, session *store.Session) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(session)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, prefixSession+session.TokenHash, data, ttl)
	pipe.SAdd(ctx, prefixUserSessions+session.UserID, session.TokenHash)
	pipe.Expire(ctx, prefixUserSessions+session.UserID, ttl)
	_, err = pipe.Exec(ctx)
	return err
}

// GetSessionByTokenHash retrieves a session by token hash.
func (s *Store) GetSessionByTokenHash(ctx context.Context, tokenHash string) (*store.Session, error) {
	data, err := s.client.Get(ctx, prefixSession+tokenHash).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	session := &store.Session{}
	if err := json.Unmarshal(data, session); err != nil {
		return nil, err
	}
	return session, nil
}

// DeleteSessionByTokenHash removes a session.
func (s *Store) DeleteSessionByTokenHash(ctx context.Context, tokenHash string) error {
	session, err := s.GetSessionByTokenHash(ctx, tokenHash)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, prefixSession+tokenHash)
	pipe.SRem(ctx, prefixUserSessions+session.UserID, tokenHash)
	_, err = pipe.Exec(ctx)
	return err
}

// DeleteUserSessions removes all sessions for a user.
func (s *Store) DeleteUserSessions(ctx context.Context, userID string) error {
	hashes, err := s.client.SMembers(ctx, prefixUserSessions+userID).Result()
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	for _, hash := range hashes {
		pipe.Del(ctx, prefixSession+hash)
	}
	pipe.Del(ctx, prefixUserSessions+userID)
	_, err = pipe.Exec(ctx)
	return err
}

// DeleteExpiredSessions is handled by Redis key expiry.
func (s *Store) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	return 0, nil
}

// Ensure Store implements store.Sessions.
var _ store.Sessions = (*Store)(nil)
