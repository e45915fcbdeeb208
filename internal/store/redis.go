// Package store provides storage backends for FlowDesk.
//
// This file implements a Redis-backed store for conversation state. State is
// stored as a JSON value per user under a configurable key prefix, with the
// set of known user ids kept in a companion index set.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/BotCanvas/FlowDesk/internal/models"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisKeyPrefix is the key prefix used when none is configured.
const DefaultRedisKeyPrefix = "flowdesk:conversation:"

type RedisStore struct {
	client *redis.Client
	prefix string
	opts   Opts
}

// NewRedisStore creates a Redis store from a redis:// DSN.
func NewRedisStore(opts ...Option) (*RedisStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewRedisStore invoked", "DSN_set", cfg.DSN != "")

	if cfg.DSN == "" {
		slog.Error("RedisStore DSN not set")
		return nil, fmt.Errorf("redis DSN not set")
	}
	redisOpts, err := redis.ParseURL(cfg.DSN)
	if err != nil {
		slog.Error("Failed to parse Redis DSN", "error", err)
		return nil, fmt.Errorf("failed to parse redis DSN: %w", err)
	}
	client := redis.NewClient(redisOpts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		slog.Error("Redis ping failed", "error", err)
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	slog.Debug("Redis connection established")

	return newRedisStore(client, cfg), nil
}

// NewRedisStoreFromClient creates a Redis store from an existing client.
// Used by tests to plug in a miniredis-backed client.
func NewRedisStoreFromClient(client *redis.Client, opts ...Option) *RedisStore {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	return newRedisStore(client, cfg)
}

func newRedisStore(client *redis.Client, cfg Opts) *RedisStore {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = DefaultRedisKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix, opts: cfg}
}

func (s *RedisStore) key(userID string) string {
	return s.prefix + userID
}

func (s *RedisStore) indexKey() string {
	return s.prefix + "index"
}

// GetConversationState retrieves conversation state for a user.
func (s *RedisStore) GetConversationState(ctx context.Context, userID string) (*models.ConversationState, error) {
	data, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if err == redis.Nil {
		slog.Debug("RedisStore GetConversationState not found", "userID", userID)
		return nil, nil
	}
	if err != nil {
		slog.Error("RedisStore GetConversationState failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to get conversation state for %s: %w", userID, err)
	}
	var state models.ConversationState
	if err := json.Unmarshal(data, &state); err != nil {
		slog.Error("RedisStore GetConversationState unmarshal failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to unmarshal conversation state for %s: %w", userID, err)
	}
	if state.Variables == nil {
		state.Variables = map[string]string{}
	}
	slog.Debug("RedisStore GetConversationState found", "userID", userID, "currentStep", state.CurrentStep)
	return &state, nil
}

// SaveConversationState upserts conversation state for a user and records the
// user id in the index set.
func (s *RedisStore) SaveConversationState(ctx context.Context, state models.ConversationState) error {
	data, err := json.Marshal(state)
	if err != nil {
		slog.Error("RedisStore SaveConversationState marshal failed", "error", err, "userID", state.UserID)
		return fmt.Errorf("failed to marshal conversation state for %s: %w", state.UserID, err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(state.UserID), data, s.opts.TTL)
	pipe.SAdd(ctx, s.indexKey(), state.UserID)
	if _, err := pipe.Exec(ctx); err != nil {
		slog.Error("RedisStore SaveConversationState failed", "error", err, "userID", state.UserID)
		return fmt.Errorf("failed to save conversation state for %s: %w", state.UserID, err)
	}
	slog.Debug("RedisStore SaveConversationState succeeded", "userID", state.UserID, "currentStep", state.CurrentStep)
	return nil
}

// DeleteConversationState removes conversation state for a user.
func (s *RedisStore) DeleteConversationState(ctx context.Context, userID string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.key(userID))
	pipe.SRem(ctx, s.indexKey(), userID)
	if _, err := pipe.Exec(ctx); err != nil {
		slog.Error("RedisStore DeleteConversationState failed", "error", err, "userID", userID)
		return fmt.Errorf("failed to delete conversation state for %s: %w", userID, err)
	}
	slog.Debug("RedisStore DeleteConversationState succeeded", "userID", userID)
	return nil
}

// ListConversationIDs returns all known user ids in sorted order.
func (s *RedisStore) ListConversationIDs(ctx context.Context) ([]string, error) {
	ids, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		slog.Error("RedisStore ListConversationIDs failed", "error", err)
		return nil, fmt.Errorf("failed to list conversation ids: %w", err)
	}
	sort.Strings(ids)
	slog.Debug("RedisStore ListConversationIDs succeeded", "count", len(ids))
	return ids, nil
}

// Close closes the underlying Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
