// Package store provides storage backends for FlowDesk.
//
// This file implements an SQLite-backed store for conversation state.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/BotCanvas/FlowDesk/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// Constants for SQLite store configuration
const (
	// DefaultDirPermissions defines the default permissions for database directories
	DefaultDirPermissions = 0755
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running SQLite migrations")
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

// GetConversationState retrieves conversation state for a user.
func (s *SQLiteStore) GetConversationState(ctx context.Context, userID string) (*models.ConversationState, error) {
	row := s.db.QueryRowContext(ctx, `SELECT user_id, current_step, history, variables, created_at, updated_at FROM conversation_states WHERE user_id = ?`, userID)
	state, err := scanConversationState(row)
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore GetConversationState not found", "userID", userID)
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetConversationState failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to get conversation state for %s: %w", userID, err)
	}
	slog.Debug("SQLiteStore GetConversationState found", "userID", userID, "currentStep", state.CurrentStep)
	return state, nil
}

// SaveConversationState upserts conversation state for a user.
func (s *SQLiteStore) SaveConversationState(ctx context.Context, state models.ConversationState) error {
	historyJSON, variablesJSON, err := marshalStateColumns(state)
	if err != nil {
		slog.Error("SQLiteStore SaveConversationState marshal failed", "error", err, "userID", state.UserID)
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO conversation_states (user_id, current_step, history, variables, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET current_step = excluded.current_step, history = excluded.history, variables = excluded.variables, updated_at = excluded.updated_at`,
		state.UserID, state.CurrentStep, historyJSON, variablesJSON, state.CreatedAt, state.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveConversationState failed", "error", err, "userID", state.UserID)
		return fmt.Errorf("failed to save conversation state for %s: %w", state.UserID, err)
	}
	slog.Debug("SQLiteStore SaveConversationState succeeded", "userID", state.UserID, "currentStep", state.CurrentStep)
	return nil
}

// DeleteConversationState removes conversation state for a user.
func (s *SQLiteStore) DeleteConversationState(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM conversation_states WHERE user_id = ?`, userID)
	if err != nil {
		slog.Error("SQLiteStore DeleteConversationState failed", "error", err, "userID", userID)
		return fmt.Errorf("failed to delete conversation state for %s: %w", userID, err)
	}
	slog.Debug("SQLiteStore DeleteConversationState succeeded", "userID", userID)
	return nil
}

// ListConversationIDs returns all known user ids.
func (s *SQLiteStore) ListConversationIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id FROM conversation_states ORDER BY user_id`)
	if err != nil {
		slog.Error("SQLiteStore ListConversationIDs query failed", "error", err)
		return nil, fmt.Errorf("failed to query conversation ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			slog.Error("SQLiteStore ListConversationIDs scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan conversation id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore ListConversationIDs rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate conversation ids: %w", err)
	}
	slog.Debug("SQLiteStore ListConversationIDs succeeded", "count", len(ids))
	return ids, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// marshalStateColumns serializes the history and variables columns as JSON.
func marshalStateColumns(state models.ConversationState) (string, string, error) {
	historyJSON, err := json.Marshal(state.History)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal history: %w", err)
	}
	variables := state.Variables
	if variables == nil {
		variables = map[string]string{}
	}
	variablesJSON, err := json.Marshal(variables)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal variables: %w", err)
	}
	return string(historyJSON), string(variablesJSON), nil
}
