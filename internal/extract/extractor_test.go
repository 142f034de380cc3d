package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/thsensai/sensai/internal/llm"
)

// scriptedProvider returns canned responses in order, one per Complete call.
type scriptedProvider struct {
	responses []scripted
	calls     int
	prompts   []string
}

type scripted struct {
	text string
	err  error
}

func (p *scriptedProvider) Complete(ctx context.Context, prompt string, opts llm.CompletionOpts) (string, error) {
	p.prompts = append(p.prompts, prompt)
	if p.calls >= len(p.responses) {
		return "", fmt.Errorf("unexpected call %d", p.calls)
	}
	r := p.responses[p.calls]
	p.calls++
	return r.text, r.err
}

func (p *scriptedProvider) Name() string { return "test/scripted" }

func llmOpts() llm.CompletionOpts { return llm.CompletionOpts{} }

type validated struct {
	Value string `json:"value"`
}

func (v *validated) Validate() error {
	if v.Value == "" {
		return fmt.Errorf("empty value")
	}
	return nil
}

func TestInvokeDecodesPayload(t *testing.T) {
	p := &scriptedProvider{responses: []scripted{{text: `{"value": "ok"}`}}}
	e := NewExtractor(p, llm.CompletionOpts{})

	var out validated
	if err := e.Invoke(context.Background(), "some context", "do the thing", &out); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if out.Value != "ok" {
		t.Errorf("Value = %q", out.Value)
	}

	prompt := p.prompts[0]
	if !strings.Contains(prompt, "```\nsome context\n```") {
		t.Errorf("context not fenced in prompt: %q", prompt)
	}
	if !strings.HasSuffix(prompt, "do the thing") {
		t.Errorf("instruction not appended: %q", prompt)
	}
}

func TestInvokeMalformedJSONIsSchemaError(t *testing.T) {
	p := &scriptedProvider{responses: []scripted{{text: `not json at all`}}}
	e := NewExtractor(p, llm.CompletionOpts{})

	var out validated
	err := e.Invoke(context.Background(), "ctx", "instr", &out)
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("err = %v, want *SchemaError", err)
	}
}

func TestInvokeValidationFailureIsSchemaError(t *testing.T) {
	p := &scriptedProvider{responses: []scripted{{text: `{"value": ""}`}}}
	e := NewExtractor(p, llm.CompletionOpts{})

	var out validated
	err := e.Invoke(context.Background(), "ctx", "instr", &out)
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("err = %v, want *SchemaError", err)
	}
}

func TestInvokeBackendFaultIsNotSchemaError(t *testing.T) {
	p := &scriptedProvider{responses: []scripted{{err: fmt.Errorf("connection refused")}}}
	e := NewExtractor(p, llm.CompletionOpts{})

	var out validated
	err := e.Invoke(context.Background(), "ctx", "instr", &out)
	if err == nil {
		t.Fatal("expected error")
	}
	var schemaErr *SchemaError
	if errors.As(err, &schemaErr) {
		t.Fatalf("backend fault surfaced as SchemaError: %v", err)
	}
}

func TestNewExtractorForcesJSONFormat(t *testing.T) {
	p := &scriptedProvider{responses: []scripted{{text: `{"value": "x"}`}}}
	e := NewExtractor(p, llm.CompletionOpts{Format: ""})
	if e.opts.Format != "json" {
		t.Errorf("Format = %q, want json", e.opts.Format)
	}
}

func TestNewExtractorHonorsTemperature(t *testing.T) {
	tests := []struct {
		name string
		temp float64
	}{
		{"explicit zero", 0},
		{"default", DefaultTemperature},
		{"custom", 0.7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewExtractor(&scriptedProvider{}, llm.CompletionOpts{Temperature: tt.temp})
			if e.opts.Temperature != tt.temp {
				t.Errorf("Temperature = %v, want %v", e.opts.Temperature, tt.temp)
			}
		})
	}
}
