package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/BotCanvas/FlowDesk/internal/escalation"
	"github.com/BotCanvas/FlowDesk/internal/flow"
	"github.com/BotCanvas/FlowDesk/internal/models"
	"github.com/BotCanvas/FlowDesk/internal/util"
)

// Chat endpoint error messages. Clients match on these strings; do not reword.
const (
	ErrMsgMissingParams  = "Parâmetros 'user_id' e 'message' são obrigatórios"
	ErrMsgInvalidState   = "Erro interno: estado inválido"
	ErrMsgUnexpectedFlow = "Erro inesperado no fluxo."
	ErrMsgUpstream       = "Erro ao encaminhar mensagem para o atendimento."
	ErrMsgInternal       = "Erro interno no processamento da mensagem."
)

// chatError is the bare error shape the chat endpoint has always returned.
type chatError struct {
	Error string `json:"error"`
}

// messageHandler handles POST /chatbot/message: one conversational turn.
func (s *Server) messageHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	requestID := util.GenerateRequestID()
	slog.Debug("Server.messageHandler: processing message", "requestID", requestID)

	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.messageHandler: failed to decode JSON", "error", err, "requestID", requestID)
		writeJSONResponse(w, http.StatusBadRequest, chatError{Error: ErrMsgMissingParams})
		return
	}

	// Client input errors are rejected before the interpreter runs.
	if err := req.Validate(); err != nil {
		slog.Warn("Server.messageHandler: validation failed", "error", err, "requestID", requestID)
		writeJSONResponse(w, http.StatusBadRequest, chatError{Error: ErrMsgMissingParams})
		return
	}

	reply, err := s.interpreter.HandleMessage(r.Context(), req.UserID, req.Message)
	if err != nil {
		s.writeChatError(w, err, req.UserID, requestID)
		return
	}

	// Escalated turns relay the gateway payload verbatim.
	if reply.Raw != nil {
		slog.Debug("Server.messageHandler: relaying escalation payload", "userID", req.UserID, "requestID", requestID)
		writeRawJSONResponse(w, http.StatusOK, reply.Raw)
		return
	}

	slog.Debug("Server.messageHandler: turn completed", "userID", req.UserID, "requestID", requestID)
	writeJSONResponse(w, http.StatusOK, reply)
}

// writeChatError maps interpreter failures onto the chat endpoint's error
// responses.
func (s *Server) writeChatError(w http.ResponseWriter, err error, userID, requestID string) {
	var upstream *escalation.UpstreamError
	switch {
	case errors.Is(err, flow.ErrInvalidState):
		slog.Error("Server.messageHandler: invalid conversation state", "error", err, "userID", userID, "requestID", requestID)
		writeJSONResponse(w, http.StatusInternalServerError, chatError{Error: ErrMsgInvalidState})
	case errors.Is(err, flow.ErrUnexpectedFlow):
		slog.Error("Server.messageHandler: unexpected flow state", "error", err, "userID", userID, "requestID", requestID)
		writeJSONResponse(w, http.StatusInternalServerError, chatError{Error: ErrMsgUnexpectedFlow})
	case errors.As(err, &upstream):
		slog.Error("Server.messageHandler: escalation gateway failed", "error", err, "userID", userID, "requestID", requestID)
		writeJSONResponse(w, http.StatusBadGateway, chatError{Error: ErrMsgUpstream})
	default:
		slog.Error("Server.messageHandler: internal error", "error", err, "userID", userID, "requestID", requestID)
		writeJSONResponse(w, http.StatusInternalServerError, chatError{Error: ErrMsgInternal})
	}
}

// flowHandler handles GET /chatbot/flow: the loaded definition, verbatim, for
// the visual editor round-trip.
func (s *Server) flowHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.flowHandler: serving flow definition")
	writeJSONResponse(w, http.StatusOK, s.def.Raw())
}

// listConversationsHandler handles GET /chatbot/conversations.
func (s *Server) listConversationsHandler(w http.ResponseWriter, r *http.Request) {
	ids, err := s.st.ListConversationIDs(r.Context())
	if err != nil {
		slog.Error("Server.listConversationsHandler: failed to list conversations", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list conversations"))
		return
	}
	slog.Debug("Server.listConversationsHandler: listed conversations", "count", len(ids))
	writeJSONResponse(w, http.StatusOK, models.Success(ids))
}

// getConversationHandler handles GET /chatbot/conversations/{user_id}.
func (s *Server) getConversationHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	state, err := s.st.GetConversationState(r.Context(), userID)
	if err != nil {
		slog.Error("Server.getConversationHandler: failed to load state", "error", err, "userID", userID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load conversation"))
		return
	}
	if state == nil {
		slog.Debug("Server.getConversationHandler: conversation not found", "userID", userID)
		writeJSONResponse(w, http.StatusNotFound, models.Error("Conversation not found"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(state))
}

// deleteConversationHandler handles DELETE /chatbot/conversations/{user_id}.
// Retention policy hook; the interpreter itself never deletes state.
func (s *Server) deleteConversationHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	if err := s.st.DeleteConversationState(r.Context(), userID); err != nil {
		slog.Error("Server.deleteConversationHandler: failed to delete state", "error", err, "userID", userID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to delete conversation"))
		return
	}
	slog.Info("Server.deleteConversationHandler: conversation deleted", "userID", userID)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Conversation deleted", nil))
}

// healthHandler handles GET /health.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("ok", nil))
}
