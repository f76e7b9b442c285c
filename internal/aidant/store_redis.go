package aidant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"aidantsconnect/internal/platform/redis"
)

// RedisSessionStore keeps the explicitly selected organisation per aidant.
// Entries expire after the session TTL so a stale switch never outlives the
// login that made it.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{client: client, ttl: ttl}
}

func sessionKey(aidantID uuid.UUID) string {
	return fmt.Sprintf("active_org:%s", aidantID)
}

func (s *RedisSessionStore) SetActiveOrganisation(ctx context.Context, aidantID, organisationID uuid.UUID) error {
	if err := s.client.Set(ctx, sessionKey(aidantID), organisationID.String(), s.ttl).Err(); err != nil {
		return fmt.Errorf("set active organisation: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) GetActiveOrganisation(ctx context.Context, aidantID uuid.UUID) (uuid.UUID, bool, error) {
	val, err := s.client.Get(ctx, sessionKey(aidantID)).Result()
	if errors.Is(err, goredis.Nil) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("get active organisation: %w", err)
	}
	orgID, err := uuid.Parse(val)
	if err != nil {
		// Unreadable entry, treat as absent rather than poisoning logins.
		return uuid.Nil, false, nil
	}
	return orgID, true, nil
}

func (s *RedisSessionStore) ClearActiveOrganisation(ctx context.Context, aidantID uuid.UUID) error {
	if err := s.client.Del(ctx, sessionKey(aidantID)).Err(); err != nil {
		return fmt.Errorf("clear active organisation: %w", err)
	}
	return nil
}
