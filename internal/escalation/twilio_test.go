package escalation

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// mockSender records Twilio message creation calls.
type mockSender struct {
	params *twilioApi.CreateMessageParams
	sid    string
	err    error
}

func (m *mockSender) CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	m.params = params
	if m.err != nil {
		return nil, m.err
	}
	return &twilioApi.ApiV2010Message{Sid: &m.sid}, nil
}

func TestTwilioGatewayForward(t *testing.T) {
	sender := &mockSender{sid: "SM123"}
	gw := NewTwilioGatewayWithSender(sender, "+5511999999999", "whatsapp:+5511888888888")

	payload, err := gw.Forward(context.Background(), "user123", "Meu pedido não chegou")
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}

	if sender.params == nil {
		t.Fatal("expected a message to be created")
	}
	if to := *sender.params.To; to != "whatsapp:+5511999999999" {
		t.Errorf("unexpected destination: %q", to)
	}
	if from := *sender.params.From; from != "whatsapp:+5511888888888" {
		t.Errorf("unexpected sender: %q", from)
	}
	if body := *sender.params.Body; !strings.Contains(body, "user123") || !strings.Contains(body, "Meu pedido não chegou") {
		t.Errorf("relayed body missing user id or message: %q", body)
	}

	var ack map[string]interface{}
	if err := json.Unmarshal(payload, &ack); err != nil {
		t.Fatalf("failed to decode handoff ack: %v", err)
	}
	if ack["handoff_sid"] != "SM123" {
		t.Errorf("expected handoff_sid SM123, got %v", ack["handoff_sid"])
	}
}

func TestTwilioGatewayForwardError(t *testing.T) {
	sender := &mockSender{err: errors.New("twilio unavailable")}
	gw := NewTwilioGatewayWithSender(sender, "+5511999999999", "whatsapp:+5511888888888")

	_, err := gw.Forward(context.Background(), "user123", "alô?")
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Errorf("expected UpstreamError, got %v", err)
	}
}

func TestNewTwilioGatewayValidation(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "")
	t.Setenv("TWILIO_AUTH_TOKEN", "")
	t.Setenv("TWILIO_FROM_NUMBER", "")

	if _, err := NewTwilioGateway("+5511999999999"); err == nil {
		t.Error("expected error when credentials are missing")
	}
	if _, err := NewTwilioGateway("", WithAccountSID("AC1"), WithAuthToken("tok"), WithFromNumber("whatsapp:+1")); err == nil {
		t.Error("expected error when support number is missing")
	}
	if _, err := NewTwilioGateway("+5511999999999", WithAccountSID("AC1"), WithAuthToken("tok")); err == nil {
		t.Error("expected error when from number is missing")
	}
}
