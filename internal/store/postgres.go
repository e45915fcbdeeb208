// Package store provides storage backends for FlowDesk.
//
// This file implements a PostgreSQL-backed store for conversation state.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/BotCanvas/FlowDesk/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")
	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	// Configure connection pool for better performance
	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running Postgres migrations")
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresStore{db: db}, nil
}

// GetConversationState retrieves conversation state for a user.
func (s *PostgresStore) GetConversationState(ctx context.Context, userID string) (*models.ConversationState, error) {
	row := s.db.QueryRowContext(ctx, `SELECT user_id, current_step, history, variables, created_at, updated_at FROM conversation_states WHERE user_id = $1`, userID)
	state, err := scanConversationState(row)
	if err == sql.ErrNoRows {
		slog.Debug("PostgresStore GetConversationState not found", "userID", userID)
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetConversationState failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to get conversation state for %s: %w", userID, err)
	}
	slog.Debug("PostgresStore GetConversationState found", "userID", userID, "currentStep", state.CurrentStep)
	return state, nil
}

// SaveConversationState upserts conversation state for a user.
func (s *PostgresStore) SaveConversationState(ctx context.Context, state models.ConversationState) error {
	historyJSON, variablesJSON, err := marshalStateColumns(state)
	if err != nil {
		slog.Error("PostgresStore SaveConversationState marshal failed", "error", err, "userID", state.UserID)
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO conversation_states (user_id, current_step, history, variables, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET current_step = EXCLUDED.current_step, history = EXCLUDED.history, variables = EXCLUDED.variables, updated_at = EXCLUDED.updated_at`,
		state.UserID, state.CurrentStep, historyJSON, variablesJSON, state.CreatedAt, state.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveConversationState failed", "error", err, "userID", state.UserID)
		return fmt.Errorf("failed to save conversation state for %s: %w", state.UserID, err)
	}
	slog.Debug("PostgresStore SaveConversationState succeeded", "userID", state.UserID, "currentStep", state.CurrentStep)
	return nil
}

// DeleteConversationState removes conversation state for a user.
func (s *PostgresStore) DeleteConversationState(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM conversation_states WHERE user_id = $1`, userID)
	if err != nil {
		slog.Error("PostgresStore DeleteConversationState failed", "error", err, "userID", userID)
		return fmt.Errorf("failed to delete conversation state for %s: %w", userID, err)
	}
	slog.Debug("PostgresStore DeleteConversationState succeeded", "userID", userID)
	return nil
}

// ListConversationIDs returns all known user ids.
func (s *PostgresStore) ListConversationIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id FROM conversation_states ORDER BY user_id`)
	if err != nil {
		slog.Error("PostgresStore ListConversationIDs query failed", "error", err)
		return nil, fmt.Errorf("failed to query conversation ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			slog.Error("PostgresStore ListConversationIDs scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan conversation id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore ListConversationIDs rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate conversation ids: %w", err)
	}
	slog.Debug("PostgresStore ListConversationIDs succeeded", "count", len(ids))
	return ids, nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
