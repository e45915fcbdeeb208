// Package models defines the flow graph structures for FlowDesk.
package models

// StepOption represents one selectable choice on a branching step: the literal
// label shown to the user and the id of the step it leads to.
type StepOption struct {
	Text string `json:"text"`
	Next string `json:"next"`
}

// Step is one node in the conversational flow graph.
//
// Capture and Validation are declarative metadata consumed by the flow
// authoring tools; the interpreter executes an explicit transition table and
// does not derive behavior from them (see flow.Interpreter).
type Step struct {
	ID           string       `json:"id"`
	Messages     []string     `json:"messages"`
	Capture      string       `json:"capture,omitempty"`
	Validation   string       `json:"validation,omitempty"`
	ErrorMessage string       `json:"error_message,omitempty"`
	Next         string       `json:"next,omitempty"`
	Options      []StepOption `json:"options,omitempty"`
}

// FlowDefinition is the raw flow graph as authored: a set of greeting phrases
// and an ordered step sequence. Order is preserved for editor round-trips.
type FlowDefinition struct {
	Greetings []string `json:"greetings"`
	Steps     []Step   `json:"steps"`
}
