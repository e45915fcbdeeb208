// Package escalation provides the external-handoff gateway used once a
// conversation reaches the escalate step.
//
// The interpreter treats the gateway as a black box: the raw user message is
// forwarded and whatever payload the gateway returns is relayed verbatim to
// the caller, with no retries and no local fallback content.
package escalation

import (
	"context"
	"encoding/json"
	"fmt"
)

// Gateway defines the external handoff contract consumed by the interpreter.
type Gateway interface {
	// Forward relays the raw user message to the external channel and
	// returns the channel's response payload verbatim.
	Forward(ctx context.Context, userID, message string) (json.RawMessage, error)
}

// UpstreamError wraps a gateway failure. It is propagated to the caller as-is;
// the interpreter never retries or substitutes fallback content.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("escalation gateway failed: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
