package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/BotCanvas/FlowDesk/internal/models"
)

// scanConversationState scans a ConversationState from a single sql.Row.
// It returns sql.ErrNoRows unwrapped so callers can map it to "not found".
func scanConversationState(row *sql.Row) (*models.ConversationState, error) {
	var state models.ConversationState
	var historyJSON, variablesJSON string
	err := row.Scan(&state.UserID, &state.CurrentStep, &historyJSON, &variablesJSON, &state.CreatedAt, &state.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := unmarshalStateColumns(&state, historyJSON, variablesJSON); err != nil {
		return nil, err
	}
	return &state, nil
}

// unmarshalStateColumns decodes the JSON history and variables columns.
func unmarshalStateColumns(state *models.ConversationState, historyJSON, variablesJSON string) error {
	if err := json.Unmarshal([]byte(historyJSON), &state.History); err != nil {
		return fmt.Errorf("failed to unmarshal history: %w", err)
	}
	if err := json.Unmarshal([]byte(variablesJSON), &state.Variables); err != nil {
		return fmt.Errorf("failed to unmarshal variables: %w", err)
	}
	if state.Variables == nil {
		state.Variables = map[string]string{}
	}
	return nil
}
