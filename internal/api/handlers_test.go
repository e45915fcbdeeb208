package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BotCanvas/FlowDesk/internal/models"
	"github.com/BotCanvas/FlowDesk/internal/testutil"
)

func TestMessageHandlerMissingParams(t *testing.T) {
	server, _, _ := testutil.NewTestServer(t)
	handler := server.Handler()

	cases := []struct {
		name string
		body interface{}
	}{
		{"missing user_id", models.ChatRequest{Message: "Oi"}},
		{"missing message", models.ChatRequest{UserID: "user123"}},
		{"empty body", map[string]string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := testutil.CreateHTTPRequest(t, http.MethodPost, "/chatbot/message", tc.body)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			testutil.AssertHTTPStatus(t, http.StatusBadRequest, rr.Code, tc.name)
			var resp map[string]string
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp["error"] == "" {
				t.Error("expected error field in response")
			}
		})
	}
}

func TestMessageHandlerOnboardingFlow(t *testing.T) {
	server, _, _ := testutil.NewTestServer(t)
	handler := server.Handler()

	send := func(message string) map[string]interface{} {
		t.Helper()
		req := testutil.CreateHTTPRequest(t, http.MethodPost, "/chatbot/message", models.ChatRequest{UserID: "user123", Message: message})
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "chatbot message")
		var resp map[string]interface{}
		if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		return resp
	}

	if resp := send("Oi"); resp["message"] != "Olá! Tudo bem? Qual é o seu nome?" {
		t.Errorf("unexpected onboarding reply: %v", resp)
	}
	if resp := send("Ana"); resp["message"] != "Você prefere A, B ou C?" {
		t.Errorf("unexpected preference prompt: %v", resp)
	}

	resp := send("B")
	if resp["message"] != "Oi Ana! Você escolheu B. Como posso ajudar?" {
		t.Errorf("unexpected menu reply: %v", resp)
	}
	options, ok := resp["options"].([]interface{})
	if !ok || len(options) != 2 {
		t.Errorf("expected 2 menu options, got %v", resp["options"])
	}
}

func TestMessageHandlerEscalationRelay(t *testing.T) {
	server, st, gw := testutil.NewTestServer(t)
	handler := server.Handler()

	seed := models.NewConversationState("user123", "escalate")
	if err := st.SaveConversationState(context.Background(), seed); err != nil {
		t.Fatalf("failed to seed state: %v", err)
	}

	req := testutil.CreateHTTPRequest(t, http.MethodPost, "/chatbot/message", models.ChatRequest{UserID: "user123", Message: "preciso de ajuda"})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "escalated message")
	if rr.Body.String() != string(gw.Payload) {
		t.Errorf("expected gateway payload relayed verbatim, got %s", rr.Body.String())
	}
	if gw.ForwardCount() != 1 {
		t.Errorf("expected 1 forward, got %d", gw.ForwardCount())
	}
}

func TestMessageHandlerInvalidState(t *testing.T) {
	server, st, _ := testutil.NewTestServer(t)
	handler := server.Handler()

	seed := models.NewConversationState("user123", "removed_step")
	if err := st.SaveConversationState(context.Background(), seed); err != nil {
		t.Fatalf("failed to seed state: %v", err)
	}

	req := testutil.CreateHTTPRequest(t, http.MethodPost, "/chatbot/message", models.ChatRequest{UserID: "user123", Message: "Oi"})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	testutil.AssertHTTPStatus(t, http.StatusInternalServerError, rr.Code, "invalid state")
}

func TestFlowHandlerServesDefinitionVerbatim(t *testing.T) {
	server, _, _ := testutil.NewTestServer(t)
	handler := server.Handler()

	req := testutil.CreateHTTPRequest(t, http.MethodGet, "/chatbot/flow", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "flow definition")
	var def models.FlowDefinition
	if err := json.NewDecoder(rr.Body).Decode(&def); err != nil {
		t.Fatalf("failed to decode flow definition: %v", err)
	}
	if len(def.Steps) != 4 {
		t.Errorf("expected 4 steps, got %d", len(def.Steps))
	}
	if def.Steps[0].ID != "start" {
		t.Errorf("expected step order preserved, first step %q", def.Steps[0].ID)
	}
	if def.Steps[1].Capture != "choice" || def.Steps[1].Validation != "abc" {
		t.Error("expected capture/validation metadata preserved for editor round-trip")
	}
}

func TestConversationAdminEndpoints(t *testing.T) {
	server, st, _ := testutil.NewTestServer(t)
	handler := server.Handler()

	seed := models.NewConversationState("user123", "menu")
	seed.Variables["name"] = "Ana"
	if err := st.SaveConversationState(context.Background(), seed); err != nil {
		t.Fatalf("failed to seed state: %v", err)
	}

	// List
	req := testutil.CreateHTTPRequest(t, http.MethodGet, "/chatbot/conversations", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "list conversations")
	resp := testutil.AssertJSONResponse(t, rr, models.StatusOK)
	if ids, ok := resp["result"].([]interface{}); !ok || len(ids) != 1 {
		t.Errorf("expected 1 conversation id, got %v", resp["result"])
	}

	// Get
	req = testutil.CreateHTTPRequest(t, http.MethodGet, "/chatbot/conversations/user123", nil)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "get conversation")

	// Get unknown
	req = testutil.CreateHTTPRequest(t, http.MethodGet, "/chatbot/conversations/ghost", nil)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	testutil.AssertHTTPStatus(t, http.StatusNotFound, rr.Code, "get unknown conversation")

	// Delete
	req = testutil.CreateHTTPRequest(t, http.MethodDelete, "/chatbot/conversations/user123", nil)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "delete conversation")

	state, _ := st.GetConversationState(context.Background(), "user123")
	if state != nil {
		t.Error("expected conversation removed after delete")
	}
}

func TestHealthEndpoint(t *testing.T) {
	server, _, _ := testutil.NewTestServer(t)
	handler := server.Handler()

	req := testutil.CreateHTTPRequest(t, http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "health")
	testutil.AssertJSONResponse(t, rr, models.StatusOK)
}
