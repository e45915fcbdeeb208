// Package testutil provides common test utilities and helpers for FlowDesk tests.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/BotCanvas/FlowDesk/internal/api"
	"github.com/BotCanvas/FlowDesk/internal/flow"
	"github.com/BotCanvas/FlowDesk/internal/store"
)

// TestFlowJSON is the bootstrap flow used across tests: the onboarding graph
// with a menu that can branch to support and an escalate terminal.
const TestFlowJSON = `{
  "greetings": ["oi", "olá", "bom dia", "boa tarde", "boa noite"],
  "steps": [
    {"id": "start", "messages": ["Olá! Tudo bem? Qual é o seu nome?"], "capture": "name", "next": "preference"},
    {"id": "preference", "messages": ["Você prefere A, B ou C?"], "capture": "choice", "validation": "abc", "error_message": "Por favor, escolha entre A, B ou C.", "next": "menu"},
    {"id": "menu", "messages": ["Oi {{name}}! Você escolheu {{choice}}. Como posso ajudar?"], "options": [{"text": "Falar com atendente", "next": "escalate"}, {"text": "Recomeçar", "next": "start"}]},
    {"id": "escalate", "messages": ["Encaminhando para um atendente..."]}
  ]
}`

// MustLoadDefinition parses TestFlowJSON and fails the test on error.
func MustLoadDefinition(t *testing.T) *flow.Definition {
	t.Helper()
	def, err := flow.Parse([]byte(TestFlowJSON))
	if err != nil {
		t.Fatalf("failed to parse test flow definition: %v", err)
	}
	return def
}

// StubGateway is an escalation.Gateway that records forwarded messages and
// returns a canned payload.
type StubGateway struct {
	mu       sync.Mutex
	Payload  json.RawMessage
	Err      error
	Forwards []ForwardedMessage
}

// ForwardedMessage records one Forward call.
type ForwardedMessage struct {
	UserID  string
	Message string
}

// NewStubGateway creates a StubGateway with a default payload.
func NewStubGateway() *StubGateway {
	return &StubGateway{Payload: json.RawMessage(`{"message":"Um atendente irá responder em breve."}`)}
}

// Forward records the call and returns the configured payload or error.
func (g *StubGateway) Forward(ctx context.Context, userID, message string) (json.RawMessage, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Forwards = append(g.Forwards, ForwardedMessage{UserID: userID, Message: message})
	if g.Err != nil {
		return nil, g.Err
	}
	return g.Payload, nil
}

// ForwardCount returns how many messages were forwarded.
func (g *StubGateway) ForwardCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Forwards)
}

// NewTestServer creates a test API server with in-memory dependencies.
// This centralizes the test server creation logic used across test files.
func NewTestServer(t *testing.T) (*api.Server, *store.InMemoryStore, *StubGateway) {
	t.Helper()
	def := MustLoadDefinition(t)
	st := store.NewInMemoryStore()
	gw := NewStubGateway()
	return api.NewServer(def, st, gw), st, gw
}

// AssertHTTPStatus checks the HTTP status code and fails the test if it doesn't match.
func AssertHTTPStatus(t *testing.T, expected, actual int, context string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected status %d, got %d", context, expected, actual)
	}
}

// AssertJSONResponse decodes JSON response and validates the status field.
func AssertJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, expectedStatus string) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
	}

	if status, ok := response["status"].(string); ok {
		if status != expectedStatus {
			t.Errorf("expected status '%s', got '%s'", expectedStatus, status)
		}
	} else {
		t.Error("response missing or invalid 'status' field")
	}

	return response
}

// CreateHTTPRequest creates an HTTP request with optional JSON body for testing.
func CreateHTTPRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	t.Helper()
	var reqBody *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(data)
	} else {
		reqBody = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, url, reqBody)
	req.Header.Set("Content-Type", "application/json")
	return req
}
