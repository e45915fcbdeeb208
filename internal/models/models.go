// Package models defines the core data structures for FlowDesk.
//
// It includes the chat request/reply shapes exchanged on the wire and the
// API response envelope shared across modules.
package models

import (
	"encoding/json"
	"errors"
)

// Validation constants for input validation
const (
	// MaxUserIDLength defines the maximum allowed length for a user identifier
	MaxUserIDLength = 128
	// MaxMessageLength defines the maximum allowed length for an incoming message
	MaxMessageLength = 4096
)

// Error variables for better error handling and testability
var (
	ErrEmptyUserID    = errors.New("user_id cannot be empty")
	ErrEmptyMessage   = errors.New("message cannot be empty")
	ErrUserIDTooLong  = errors.New("user_id exceeds maximum length")
	ErrMessageTooLong = errors.New("message exceeds maximum length")
)

// ChatRequest is the payload accepted by the chat endpoint.
type ChatRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// Validate performs input validation on a ChatRequest before the interpreter runs.
func (r *ChatRequest) Validate() error {
	if r.UserID == "" {
		return ErrEmptyUserID
	}
	if len(r.UserID) > MaxUserIDLength {
		return ErrUserIDTooLong
	}
	if r.Message == "" {
		return ErrEmptyMessage
	}
	if len(r.Message) > MaxMessageLength {
		return ErrMessageTooLong
	}
	return nil
}

// ChatReply is the payload returned by the chat endpoint.
//
// Raw is set only when the turn was handed off to the escalation gateway; in
// that case it carries the gateway's payload verbatim and Message/Options are
// empty.
type ChatReply struct {
	Message string          `json:"message"`
	Options []StepOption    `json:"options,omitempty"`
	Raw     json.RawMessage `json:"-"`
}

// APIResponse provides a consistent envelope for administrative endpoints.
type APIResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Result  interface{} `json:"result,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Response status constants
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Success creates a successful API response with a result payload.
func Success(result interface{}) APIResponse {
	return APIResponse{Status: StatusOK, Result: result}
}

// SuccessWithMessage creates a successful API response with a message and optional result.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return APIResponse{Status: StatusOK, Message: message, Result: result}
}

// Error creates an error API response.
func Error(message string) APIResponse {
	return APIResponse{Status: StatusError, Error: message}
}
