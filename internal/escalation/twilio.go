package escalation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// MessageSender abstracts the Twilio REST call so tests can inject a mock.
type MessageSender interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// twilioOpts holds Twilio-specific configuration.
type twilioOpts struct {
	accountSID string
	authToken  string
	fromNumber string
}

// TwilioOption configures TwilioGateway construction.
type TwilioOption func(*twilioOpts)

// WithAccountSID sets the Twilio account SID.
func WithAccountSID(sid string) TwilioOption {
	return func(o *twilioOpts) { o.accountSID = sid }
}

// WithAuthToken sets the Twilio auth token.
func WithAuthToken(token string) TwilioOption {
	return func(o *twilioOpts) { o.authToken = token }
}

// WithFromNumber sets the Twilio sender number in "whatsapp:+1234567890" format.
func WithFromNumber(from string) TwilioOption {
	return func(o *twilioOpts) { o.fromNumber = from }
}

// TwilioGateway hands escalated conversations to a human support channel by
// relaying the user's raw message to the support WhatsApp number via the
// Twilio REST API. The payload returned to the user is a handoff
// acknowledgement carrying the queued message sid.
type TwilioGateway struct {
	sender        MessageSender
	supportNumber string // support destination, digits only
	fromNumber    string // Twilio sender in "whatsapp:+1234567890" format
}

// NewTwilioGateway creates a Twilio-backed escalation gateway. Credentials
// fall back to TWILIO_ACCOUNT_SID / TWILIO_AUTH_TOKEN when not provided.
func NewTwilioGateway(supportNumber string, opts ...TwilioOption) (*TwilioGateway, error) {
	var cfg twilioOpts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.accountSID == "" {
		cfg.accountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	}
	if cfg.authToken == "" {
		cfg.authToken = os.Getenv("TWILIO_AUTH_TOKEN")
	}
	if cfg.fromNumber == "" {
		cfg.fromNumber = os.Getenv("TWILIO_FROM_NUMBER")
	}
	slog.Debug("NewTwilioGateway: config loaded",
		"accountSID_set", cfg.accountSID != "",
		"authToken_set", cfg.authToken != "",
		"fromNumber_set", cfg.fromNumber != "",
		"supportNumber_set", supportNumber != "")

	if cfg.accountSID == "" || cfg.authToken == "" {
		return nil, fmt.Errorf("account SID and auth token must be provided")
	}
	if supportNumber == "" {
		return nil, fmt.Errorf("support number must be provided")
	}
	if cfg.fromNumber == "" {
		return nil, fmt.Errorf("from number must be provided")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.accountSID,
		Password: cfg.authToken,
	})

	return &TwilioGateway{sender: client.Api, supportNumber: supportNumber, fromNumber: cfg.fromNumber}, nil
}

// NewTwilioGatewayWithSender creates a TwilioGateway with an injected sender.
func NewTwilioGatewayWithSender(sender MessageSender, supportNumber, fromNumber string) *TwilioGateway {
	return &TwilioGateway{sender: sender, supportNumber: supportNumber, fromNumber: fromNumber}
}

// handoffAck is the payload relayed back to the user after a Twilio handoff.
type handoffAck struct {
	Message    string `json:"message"`
	HandoffSID string `json:"handoff_sid,omitempty"`
}

// Forward relays the raw message to the support number and returns the
// handoff acknowledgement payload.
func (g *TwilioGateway) Forward(ctx context.Context, userID, message string) (json.RawMessage, error) {
	slog.Debug("TwilioGateway.Forward: relaying to support", "userID", userID)

	params := &twilioApi.CreateMessageParams{}
	params.SetTo("whatsapp:" + g.supportNumber)
	params.SetFrom(g.fromNumber)
	params.SetBody(fmt.Sprintf("[%s] %s", userID, message))

	resource, err := g.sender.CreateMessage(params)
	if err != nil {
		slog.Error("TwilioGateway.Forward: Twilio send failed", "error", err, "userID", userID)
		return nil, &UpstreamError{Err: fmt.Errorf("failed to relay message for %s: %w", userID, err)}
	}

	ack := handoffAck{Message: "Sua mensagem foi encaminhada para um atendente."}
	if resource != nil && resource.Sid != nil {
		ack.HandoffSID = *resource.Sid
	}
	payload, err := json.Marshal(ack)
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}

	slog.Debug("TwilioGateway.Forward: handoff queued", "userID", userID, "sid", ack.HandoffSID)
	return payload, nil
}
