package form

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/google/uuid"
)

const sessionTTL = 24 * time.Hour

// SessionStore tracks per-session chat message counts.
type SessionStore interface {
	// NextMessageCount increments the session counter and returns the count
	// of messages sent BEFORE this one.
	NextMessageCount(ctx context.Context, userID uuid.UUID, sessionID string) (int, error)
}

// RedisSessionStore keeps chat counters in Redis with a session TTL.
type RedisSessionStore struct {
	client *redis.Client
}

func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

func (s *RedisSessionStore) NextMessageCount(ctx context.Context, userID uuid.UUID, sessionID string) (int, error) {
	key := fmt.Sprintf("chat:%s:%s:messages", userID.String(), sessionID)

	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("session counter increment: %w", err)
	}
	// Refresh the TTL on every message; counters expire with the session.
	if err := s.client.Expire(ctx, key, sessionTTL).Err(); err != nil {
		return 0, fmt.Errorf("session counter expire: %w", err)
	}

	return int(count) - 1, nil
}
