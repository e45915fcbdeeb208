package flow

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	_ "embed"

	"github.com/BotCanvas/FlowDesk/internal/models"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed flow_schema.json
var flowSchema string

// Definition is the loaded, immutable flow graph. It wraps the raw
// FlowDefinition with an id index for O(1) step lookup and a pre-normalized
// greeting set. A Definition is constructed once at startup and shared by
// reference across all turns; it must never be mutated after Load.
type Definition struct {
	raw       models.FlowDefinition
	steps     map[string]*models.Step
	greetings map[string]struct{}
}

// Load reads and validates a flow definition from a JSON file. Any schema or
// referential-integrity violation is a fatal configuration error; malformed
// graphs are never handled gracefully at runtime.
func Load(path string) (*Definition, error) {
	slog.Debug("Definition.Load: reading flow file", "path", path)
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Error("Definition.Load: failed to read flow file", "error", err, "path", path)
		return nil, fmt.Errorf("failed to read flow file %s: %w", path, err)
	}
	def, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("invalid flow file %s: %w", path, err)
	}
	slog.Info("Definition.Load: flow definition loaded", "path", path, "steps", len(def.raw.Steps), "greetings", len(def.raw.Greetings))
	return def, nil
}

// Parse validates raw JSON against the flow schema and structural invariants
// and builds the indexed Definition.
func Parse(data []byte) (*Definition, error) {
	result, err := gojsonschema.Validate(gojsonschema.NewStringLoader(flowSchema), gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("flow schema validation error: %w", err)
	}
	if !result.Valid() {
		var problems []string
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return nil, fmt.Errorf("flow definition does not match schema: %s", strings.Join(problems, "; "))
	}

	var raw models.FlowDefinition
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse flow definition: %w", err)
	}

	def := &Definition{
		raw:       raw,
		steps:     make(map[string]*models.Step, len(raw.Steps)),
		greetings: make(map[string]struct{}, len(raw.Greetings)),
	}
	for i := range raw.Steps {
		step := &raw.Steps[i]
		if _, exists := def.steps[step.ID]; exists {
			return nil, fmt.Errorf("duplicate step id %q", step.ID)
		}
		def.steps[step.ID] = step
	}

	// Referential integrity: every next pointer must land on a known step.
	for i := range raw.Steps {
		step := &raw.Steps[i]
		if step.Next != "" {
			if _, ok := def.steps[step.Next]; !ok {
				return nil, fmt.Errorf("step %q references unknown next step %q", step.ID, step.Next)
			}
		}
		for _, opt := range step.Options {
			if _, ok := def.steps[opt.Next]; !ok {
				return nil, fmt.Errorf("step %q option %q references unknown step %q", step.ID, opt.Text, opt.Next)
			}
		}
	}

	for _, greeting := range raw.Greetings {
		def.greetings[Normalize(greeting)] = struct{}{}
	}
	return def, nil
}

// Step returns the step with the given id, or nil when absent.
func (d *Definition) Step(id string) *models.Step {
	return d.steps[id]
}

// IsGreeting reports whether the already-normalized message matches one of the
// configured greeting phrases.
func (d *Definition) IsGreeting(normalized string) bool {
	_, ok := d.greetings[normalized]
	return ok
}

// Raw returns the flow definition as authored, order preserved. Callers must
// treat the result as read-only; it is served verbatim to the flow editor.
func (d *Definition) Raw() models.FlowDefinition {
	return d.raw
}
