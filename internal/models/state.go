// Package models defines conversation state structures for FlowDesk.
package models

import "time"

// ConversationState is the durable per-user progress record.
//
// History is append-only and never consulted for control flow; it exists as a
// diagnostic trail and for forward-compatibility with branch selection.
// Variables accumulate over the conversation and are never removed.
type ConversationState struct {
	UserID      string            `json:"user_id"`
	CurrentStep string            `json:"currentStep"`
	History     []string          `json:"history"`
	Variables   map[string]string `json:"variables"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// NewConversationState creates the fresh record for a first-contact user.
func NewConversationState(userID, startStep string) ConversationState {
	now := time.Now()
	return ConversationState{
		UserID:      userID,
		CurrentStep: startStep,
		History:     []string{startStep},
		Variables:   make(map[string]string),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
