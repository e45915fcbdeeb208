// Package api provides HTTP handlers and the main API server logic for FlowDesk.
//
// It exposes the chat endpoint that drives the flow interpreter, the flow
// definition endpoint consumed by the visual editor, and administrative
// conversation endpoints.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/BotCanvas/FlowDesk/internal/escalation"
	"github.com/BotCanvas/FlowDesk/internal/flow"
	"github.com/BotCanvas/FlowDesk/internal/store"
)

// Server configuration constants
const (
	// DefaultAddr is the listen address used when none is configured
	DefaultAddr = ":8080"
	// DefaultReadHeaderTimeout bounds header parsing on incoming requests
	DefaultReadHeaderTimeout = 10 * time.Second
	// DefaultShutdownTimeout bounds graceful shutdown
	DefaultShutdownTimeout = 10 * time.Second
)

// Server wires the flow interpreter, store, and gateway behind HTTP endpoints.
type Server struct {
	def         *flow.Definition
	st          store.Store
	interpreter *flow.Interpreter
	httpServer  *http.Server
}

// NewServer creates an API server with its dependencies.
func NewServer(def *flow.Definition, st store.Store, gw escalation.Gateway) *Server {
	slog.Debug("NewServer: creating API server")
	return &Server{
		def:         def,
		st:          st,
		interpreter: flow.NewInterpreter(def, st, gw),
	}
}

// Handler builds the route table for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chatbot/message", s.messageHandler)
	mux.HandleFunc("GET /chatbot/flow", s.flowHandler)
	mux.HandleFunc("GET /chatbot/conversations", s.listConversationsHandler)
	mux.HandleFunc("GET /chatbot/conversations/{user_id}", s.getConversationHandler)
	mux.HandleFunc("DELETE /chatbot/conversations/{user_id}", s.deleteConversationHandler)
	mux.HandleFunc("GET /health", s.healthHandler)
	return mux
}

// Run starts the HTTP server and blocks until the context is canceled or the
// listener fails.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server.Run: FlowDesk API listening", "addr", addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		slog.Info("Server.Run: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server.Run: shutdown failed", "error", err)
			return err
		}
		return nil
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server.Run: listener failed", "error", err)
			return err
		}
		return nil
	}
}
