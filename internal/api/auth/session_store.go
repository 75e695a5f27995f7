package auth

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	cache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// SessionStore maps opaque session identifiers to the authenticated user's
// id. Entries expire after the configured TTL; expired entries are
// indistinguishable from missing ones. Implementations must be safe for
// concurrent use.
type SessionStore interface {
	Create(ctx context.Context, userID int32) (string, error)
	Get(ctx context.Context, sessionID string) (int32, bool, error)
	Destroy(ctx context.Context, sessionID string) error
}

// newSessionID generates an unguessable opaque session identifier.
func newSessionID() string {
	return uuid.NewString()
}

var _ SessionStore = (*MemorySessionStore)(nil)

// MemorySessionStore keeps sessions in a process-local TTL cache. A server
// restart invalidates every session; deployments that need sessions to
// survive restarts should use the Redis backend instead.
type MemorySessionStore struct {
	sessions *cache.Cache
}

func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		sessions: cache.New(ttl, 10*time.Minute),
	}
}

func (s *MemorySessionStore) Create(_ context.Context, userID int32) (string, error) {
	sessionID := newSessionID()
	s.sessions.Set(sessionID, userID, cache.DefaultExpiration)
	return sessionID, nil
}

func (s *MemorySessionStore) Get(_ context.Context, sessionID string) (int32, bool, error) {
	v, found := s.sessions.Get(sessionID)
	if !found {
		return 0, false, nil
	}
	return v.(int32), true, nil
}

// Destroy removes the session. Destroying an absent session is not an error.
func (s *MemorySessionStore) Destroy(_ context.Context, sessionID string) error {
	s.sessions.Delete(sessionID)
	return nil
}

var _ SessionStore = (*RedisSessionStore)(nil)

// RedisSessionStore keeps sessions in Redis with a per-key TTL, so they
// survive restarts and can be shared between replicas.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{
		client: client,
		ttl:    ttl,
	}
}

func sessionKey(sessionID string) string {
	return fmt.Sprintf("session:%s", sessionID)
}

func (s *RedisSessionStore) Create(ctx context.Context, userID int32) (string, error) {
	sessionID := newSessionID()
	err := s.client.Set(ctx, sessionKey(sessionID), int64(userID), s.ttl).Err()
	if err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}
	return sessionID, nil
}

func (s *RedisSessionStore) Get(ctx context.Context, sessionID string) (int32, bool, error) {
	val, err := s.client.Get(ctx, sessionKey(sessionID)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to look up session: %w", err)
	}

	userID, err := strconv.ParseInt(val, 10, 32)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt session payload: %w", err)
	}
	return int32(userID), true, nil
}

func (s *RedisSessionStore) Destroy(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to destroy session: %w", err)
	}
	return nil
}
