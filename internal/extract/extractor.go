// Package extract drives structured LLM extraction over chunked intel.
//
// The Extractor is the single primitive shared by IOC extraction and hunt
// plan generation: one fenced-context prompt, one model round trip, one
// JSON decode into a typed target. A payload the model got wrong is a
// *SchemaError, while backend faults (network, HTTP, timeout) propagate
// unchanged so callers can tell "validly nothing" apart from "backend broke".
package extract

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/thsensai/sensai/internal/llm"
)

// DefaultTemperature keeps extraction output stable across runs.
const DefaultTemperature = 0.2

// SchemaError reports that a model response did not conform to the target
// schema. Pipelines recover from it locally; it is never a transport fault.
type SchemaError struct {
	Err error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema validation: %v", e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// Validator lets a decode target enforce invariants beyond JSON shape.
// A failed Validate surfaces as a *SchemaError.
type Validator interface {
	Validate() error
}

// Extractor invokes a generation backend with a fixed instruction and
// decodes the structured result.
type Extractor struct {
	provider llm.Provider
	opts     llm.CompletionOpts
}

// NewExtractor binds a provider and fixed generation options. The options
// are set once per run and reused for every invocation; they pass through
// unchanged except for the response format, which is always JSON. Callers
// that want stable output pass DefaultTemperature, and a temperature of
// zero is honored as given.
func NewExtractor(provider llm.Provider, opts llm.CompletionOpts) *Extractor {
	opts.Format = "json"
	return &Extractor{provider: provider, opts: opts}
}

// Name reports the bound provider/model.
func (e *Extractor) Name() string {
	return e.provider.Name()
}

// Invoke builds a single prompt from contextText and the fixed instruction,
// makes exactly one backend call, and decodes the JSON response into out.
// Decode or Validate failures return a *SchemaError; backend faults are
// wrapped and propagated.
func (e *Extractor) Invoke(ctx context.Context, contextText, instruction string, out any) error {
	raw, err := e.provider.Complete(ctx, buildPrompt(contextText, instruction), e.opts)
	if err != nil {
		return fmt.Errorf("invoking model: %w", err)
	}

	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return &SchemaError{Err: fmt.Errorf("invalid JSON: %w", err)}
	}
	if v, ok := out.(Validator); ok {
		if err := v.Validate(); err != nil {
			return &SchemaError{Err: err}
		}
	}
	return nil
}

// buildPrompt wraps the context text in a fenced block followed by the task
// instruction.
func buildPrompt(contextText, instruction string) string {
	return fmt.Sprintf("Use the following context:\n\n```\n%s\n```\n\n%s", contextText, instruction)
}
