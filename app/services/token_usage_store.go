// Package services provides external service integrations and technical concerns like notifications and tokens
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenUsageStore tracks redeemed single-purpose tokens by their jti so that
// activation and reset tokens cannot be replayed within their lifetime.
type TokenUsageStore interface {
	// Used reports whether the token ID has already been redeemed.
	Used(ctx context.Context, tokenID string) (bool, error)
	// MarkUsed records the token ID and reports whether this was its first use.
	MarkUsed(ctx context.Context, tokenID string, ttl time.Duration) (bool, error)
}

const usedTokenKeyPrefix = "finbook:used_token:"

// RedisTokenUsageStore implements TokenUsageStore on Redis
type RedisTokenUsageStore struct {
	client *redis.Client
}

// NewRedisTokenUsageStore creates a Redis-backed token usage store
func NewRedisTokenUsageStore(client *redis.Client) TokenUsageStore {
	return &RedisTokenUsageStore{client: client}
}

// Used checks for the token key without touching it
func (s *RedisTokenUsageStore) Used(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.client.Exists(ctx, usedTokenKeyPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token usage: %w", err)
	}

	return n > 0, nil
}

// MarkUsed sets the token key if absent. The key carries the remaining token
// TTL so entries expire together with the tokens they guard.
func (s *RedisTokenUsageStore) MarkUsed(ctx context.Context, tokenID string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = time.Minute
	}

	first, err := s.client.SetNX(ctx, usedTokenKeyPrefix+tokenID, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark token used: %w", err)
	}

	return first, nil
}

// NoopTokenUsageStore is used when no cache is configured. Tokens then remain
// valid for their full TTL.
type NoopTokenUsageStore struct{}

func NewNoopTokenUsageStore() TokenUsageStore {
	return &NoopTokenUsageStore{}
}

func (s *NoopTokenUsageStore) Used(ctx context.Context, tokenID string) (bool, error) {
	return false, nil
}

func (s *NoopTokenUsageStore) MarkUsed(ctx context.Context, tokenID string, ttl time.Duration) (bool, error) {
	return true, nil
}
