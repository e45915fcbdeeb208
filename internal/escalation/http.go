package escalation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// Opts holds configuration values for gateway construction.
type Opts struct {
	URL    string
	Client *http.Client
}

// Option configures gateway construction.
type Option func(*Opts)

// WithURL sets the external handoff endpoint for the HTTP gateway.
func WithURL(url string) Option {
	return func(o *Opts) { o.URL = url }
}

// WithHTTPClient injects the HTTP client used for forwarding.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Opts) { o.Client = c }
}

// forwardRequest is the JSON body posted to the external handoff endpoint.
type forwardRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// HTTPGateway forwards escalated messages to an external HTTP service and
// relays the response body unmodified.
type HTTPGateway struct {
	url    string
	client *http.Client
}

// NewHTTPGateway creates an HTTP-backed escalation gateway.
func NewHTTPGateway(opts ...Option) (*HTTPGateway, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("escalation URL must be provided")
	}
	if cfg.Client == nil {
		cfg.Client = http.DefaultClient
	}
	slog.Debug("NewHTTPGateway: created", "url", cfg.URL)
	return &HTTPGateway{url: cfg.URL, client: cfg.Client}, nil
}

// Forward posts the raw message to the configured endpoint and returns the
// response body verbatim. Non-2xx statuses and transport failures surface as
// UpstreamError.
func (g *HTTPGateway) Forward(ctx context.Context, userID, message string) (json.RawMessage, error) {
	slog.Debug("HTTPGateway.Forward: forwarding message", "userID", userID)

	body, err := json.Marshal(forwardRequest{UserID: userID, Message: message})
	if err != nil {
		return nil, &UpstreamError{Err: fmt.Errorf("failed to encode forward request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return nil, &UpstreamError{Err: fmt.Errorf("failed to build forward request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		slog.Error("HTTPGateway.Forward: request failed", "error", err, "userID", userID)
		return nil, &UpstreamError{Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Error("HTTPGateway.Forward: failed to read response", "error", err, "userID", userID)
		return nil, &UpstreamError{Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Error("HTTPGateway.Forward: upstream returned error status", "status", resp.StatusCode, "userID", userID)
		return nil, &UpstreamError{Err: fmt.Errorf("upstream returned status %d", resp.StatusCode)}
	}

	slog.Debug("HTTPGateway.Forward: message forwarded", "userID", userID, "status", resp.StatusCode)
	return json.RawMessage(payload), nil
}
