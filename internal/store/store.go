// Package store provides conversation state storage backends for FlowDesk.
//
// It includes an in-memory store for tests and development, plus persistent
// SQLite, PostgreSQL, and Redis backends selected by DSN.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/BotCanvas/FlowDesk/internal/models"
)

// Store defines the conversation state persistence contract.
//
// GetConversationState returns (nil, nil) when no state exists for the user.
// SaveConversationState is an upsert keyed by user id.
type Store interface {
	GetConversationState(ctx context.Context, userID string) (*models.ConversationState, error)
	SaveConversationState(ctx context.Context, state models.ConversationState) error
	DeleteConversationState(ctx context.Context, userID string) error
	ListConversationIDs(ctx context.Context) ([]string, error)
	Close() error
}

// Opts holds configuration values for store construction.
type Opts struct {
	DSN       string
	KeyPrefix string
	TTL       time.Duration
}

// Option configures store construction.
type Option func(*Opts)

// WithDSN sets the data source name (file path for SQLite, URL for Postgres
// and Redis).
func WithDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithKeyPrefix sets the key prefix used by the Redis store.
func WithKeyPrefix(prefix string) Option {
	return func(o *Opts) { o.KeyPrefix = prefix }
}

// WithTTL sets an expiration for stored conversation state (Redis only;
// zero means no expiration).
func WithTTL(ttl time.Duration) Option {
	return func(o *Opts) { o.TTL = ttl }
}

// InMemoryStore is a map-backed Store for tests and development.
type InMemoryStore struct {
	mu     sync.RWMutex
	states map[string]models.ConversationState
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{states: make(map[string]models.ConversationState)}
}

// GetConversationState retrieves the stored state for a user, or nil when absent.
func (s *InMemoryStore) GetConversationState(ctx context.Context, userID string) (*models.ConversationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[userID]
	if !ok {
		return nil, nil
	}
	// Copy history and variables so callers cannot mutate the stored record.
	clone := state
	clone.History = append([]string(nil), state.History...)
	clone.Variables = make(map[string]string, len(state.Variables))
	for k, v := range state.Variables {
		clone.Variables[k] = v
	}
	return &clone, nil
}

// SaveConversationState upserts the state for a user.
func (s *InMemoryStore) SaveConversationState(ctx context.Context, state models.ConversationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := state
	clone.History = append([]string(nil), state.History...)
	clone.Variables = make(map[string]string, len(state.Variables))
	for k, v := range state.Variables {
		clone.Variables[k] = v
	}
	s.states[state.UserID] = clone
	return nil
}

// DeleteConversationState removes the state for a user. Deleting an unknown
// user is not an error.
func (s *InMemoryStore) DeleteConversationState(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, userID)
	return nil
}

// ListConversationIDs returns all known user ids in sorted order.
func (s *InMemoryStore) ListConversationIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.states))
	for id := range s.states {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
