package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BotCanvas/FlowDesk/internal/escalation"
	"github.com/BotCanvas/FlowDesk/internal/models"
	"github.com/BotCanvas/FlowDesk/internal/store"
)

// Well-known step ids of the bootstrap flow.
const (
	StartStepID      = "start"
	PreferenceStepID = "preference"
	MenuStepID       = "menu"
	EscalateStepID   = "escalate"
)

// Variable names captured by the bootstrap steps.
const (
	NameVariable   = "name"
	ChoiceVariable = "choice"
)

// Fixed prompts of the bootstrap flow. The onboarding prompt is deliberately
// hard-coded rather than read from the start step, so first contact never
// captures a reply prematurely.
const (
	OnboardingPrompt    = "Olá! Tudo bem? Qual é o seu nome?"
	FirstNameOnlyPrompt = "Digite apenas seu primeiro nome."
	PreferencePrompt    = "Você prefere A, B ou C?"
	InvalidChoicePrompt = "Por favor, escolha entre A, B ou C."
)

// validChoices are the accepted normalized answers at the preference step.
var validChoices = map[string]struct{}{"a": {}, "b": {}, "c": {}}

// Error variables for the interpreter's failure modes.
var (
	// ErrInvalidState signals that the persisted current step does not exist
	// in the loaded flow definition (stale or corrupted state).
	ErrInvalidState = errors.New("invalid conversation state")
	// ErrUnexpectedFlow signals a (step, input) combination with no
	// transition rule.
	ErrUnexpectedFlow = errors.New("unexpected flow state")
)

// Interpreter advances users through the flow graph one message at a time.
//
// The transition table is an explicit finite map over the bootstrap step ids;
// the generic Capture/Validation metadata on Step is authoring data and is
// intentionally not executed. Each turn is exclusive per user id: the
// read-decide-write cycle holds a per-user lock so concurrent turns for the
// same user cannot lose updates.
type Interpreter struct {
	def   *Definition
	st    store.Store
	gw    escalation.Gateway
	locks *userLocks
}

// NewInterpreter creates an Interpreter with its dependencies.
func NewInterpreter(def *Definition, st store.Store, gw escalation.Gateway) *Interpreter {
	slog.Debug("NewInterpreter: creating interpreter", "hasGateway", gw != nil)
	return &Interpreter{def: def, st: st, gw: gw, locks: newUserLocks()}
}

// HandleMessage processes one turn for a user and returns the reply.
//
// Errors are terminal for the turn: no state is persisted when an error is
// raised partway through a transition. The commit point is always "decide
// fully, then write once".
func (i *Interpreter) HandleMessage(ctx context.Context, userID, message string) (*models.ChatReply, error) {
	release := i.locks.acquire(userID)
	defer release()

	slog.Debug("Interpreter.HandleMessage: processing turn", "userID", userID)
	normalized := Normalize(message)

	state, err := i.st.GetConversationState(ctx, userID)
	if err != nil {
		slog.Error("Interpreter.HandleMessage: failed to load state", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to load conversation state: %w", err)
	}

	// First contact: seed the state and reply with the fixed onboarding
	// prompt without consulting the flow graph.
	if state == nil {
		fresh := models.NewConversationState(userID, StartStepID)
		if err := i.st.SaveConversationState(ctx, fresh); err != nil {
			slog.Error("Interpreter.HandleMessage: failed to persist new state", "error", err, "userID", userID)
			return nil, fmt.Errorf("failed to persist conversation state: %w", err)
		}
		slog.Info("Interpreter.HandleMessage: new conversation started", "userID", userID)
		return &models.ChatReply{Message: OnboardingPrompt}, nil
	}

	if i.def.Step(state.CurrentStep) == nil {
		slog.Error("Interpreter.HandleMessage: stored step missing from flow", "userID", userID, "currentStep", state.CurrentStep)
		return nil, fmt.Errorf("%w: step %q not in flow definition", ErrInvalidState, state.CurrentStep)
	}

	// Onboarded users saying hello are routed straight to the menu,
	// regardless of where they currently are.
	if i.def.IsGreeting(normalized) && state.Variables[NameVariable] != "" && state.Variables[ChoiceVariable] != "" {
		return i.transitionToMenu(ctx, state)
	}

	switch state.CurrentStep {
	case StartStepID:
		return i.captureName(ctx, state, message, normalized)
	case PreferenceStepID:
		return i.capturePreference(ctx, state, message, normalized)
	case EscalateStepID:
		return i.forwardToGateway(ctx, userID, message)
	}

	slog.Error("Interpreter.HandleMessage: no transition rule", "userID", userID, "currentStep", state.CurrentStep)
	return nil, fmt.Errorf("%w: no rule for step %q", ErrUnexpectedFlow, state.CurrentStep)
}

// captureName handles the start step: the reply is the user's first name.
func (i *Interpreter) captureName(ctx context.Context, state *models.ConversationState, message, normalized string) (*models.ChatReply, error) {
	if strings.Contains(normalized, " ") {
		slog.Debug("Interpreter.captureName: rejected multi-word name", "userID", state.UserID)
		return &models.ChatReply{Message: FirstNameOnlyPrompt}, nil
	}

	state.Variables[NameVariable] = message
	advance(state, PreferenceStepID)
	if err := i.st.SaveConversationState(ctx, *state); err != nil {
		slog.Error("Interpreter.captureName: failed to persist state", "error", err, "userID", state.UserID)
		return nil, fmt.Errorf("failed to persist conversation state: %w", err)
	}
	slog.Info("Interpreter.captureName: name captured", "userID", state.UserID)
	return &models.ChatReply{Message: PreferencePrompt}, nil
}

// capturePreference handles the preference step: the reply must be one of the
// fixed choices.
func (i *Interpreter) capturePreference(ctx context.Context, state *models.ConversationState, message, normalized string) (*models.ChatReply, error) {
	if _, ok := validChoices[normalized]; !ok {
		slog.Debug("Interpreter.capturePreference: rejected choice", "userID", state.UserID)
		return &models.ChatReply{Message: InvalidChoicePrompt}, nil
	}

	state.Variables[ChoiceVariable] = message
	return i.transitionToMenu(ctx, state)
}

// transitionToMenu moves the user to the menu step, persists, and renders the
// menu with the captured variables.
func (i *Interpreter) transitionToMenu(ctx context.Context, state *models.ConversationState) (*models.ChatReply, error) {
	menuStep := i.def.Step(MenuStepID)
	if menuStep == nil {
		slog.Error("Interpreter.transitionToMenu: menu step missing from flow", "userID", state.UserID)
		return nil, fmt.Errorf("%w: step %q not in flow definition", ErrInvalidState, MenuStepID)
	}

	advance(state, MenuStepID)
	if err := i.st.SaveConversationState(ctx, *state); err != nil {
		slog.Error("Interpreter.transitionToMenu: failed to persist state", "error", err, "userID", state.UserID)
		return nil, fmt.Errorf("failed to persist conversation state: %w", err)
	}

	slog.Info("Interpreter.transitionToMenu: user routed to menu", "userID", state.UserID)
	return &models.ChatReply{
		Message: Render(menuStep.Messages[0], state.Variables),
		Options: menuStep.Options,
	}, nil
}

// forwardToGateway relays the raw message once the conversation has been
// escalated. The gateway's payload is returned verbatim and no local state
// changes.
func (i *Interpreter) forwardToGateway(ctx context.Context, userID, message string) (*models.ChatReply, error) {
	slog.Debug("Interpreter.forwardToGateway: escalated turn", "userID", userID)
	payload, err := i.gw.Forward(ctx, userID, message)
	if err != nil {
		slog.Error("Interpreter.forwardToGateway: gateway error", "error", err, "userID", userID)
		return nil, err
	}
	return &models.ChatReply{Raw: payload}, nil
}

// advance moves the state to the next step and appends it to the history.
func advance(state *models.ConversationState, stepID string) {
	state.CurrentStep = stepID
	state.History = append(state.History, stepID)
	state.UpdatedAt = time.Now()
}
