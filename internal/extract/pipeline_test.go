package extract

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/thsensai/sensai/internal/intel"
	"github.com/thsensai/sensai/internal/ioc"
)

// recordingProgress captures Total and Advance calls.
type recordingProgress struct {
	total    int
	advances []string
}

func (r *recordingProgress) Total(n int) { r.total = n }

func (r *recordingProgress) Advance(status string) { r.advances = append(r.advances, status) }

func validParams() Params {
	return Params{ChunkSize: 100, ChunkOverlap: 10, MaxTokens: -1, ContextWindow: 4096}
}

func TestParamsValidate(t *testing.T) {
	if err := validParams().Validate(); err != nil {
		t.Errorf("valid params rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{"zero chunk size", func(p *Params) { p.ChunkSize = 0 }},
		{"negative overlap", func(p *Params) { p.ChunkOverlap = -1 }},
		{"overlap >= size", func(p *Params) { p.ChunkOverlap = p.ChunkSize }},
		{"zero max tokens", func(p *Params) { p.MaxTokens = 0 }},
		{"max tokens below -1", func(p *Params) { p.MaxTokens = -5 }},
		{"zero context window", func(p *Params) { p.ContextWindow = 0 }},
		{"chunk exceeds window budget", func(p *Params) { p.ChunkSize = 1 << 20; p.ChunkOverlap = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validParams()
			tt.mutate(&p)
			if err := p.Validate(); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestNewPipelineRejectsBadParams(t *testing.T) {
	p := &scriptedProvider{}
	e := NewExtractor(p, llmOpts())
	if _, err := NewPipeline(e, Params{}, nil); err == nil {
		t.Error("expected error for zero params")
	}
	if p.calls != 0 {
		t.Errorf("provider called %d times during validation", p.calls)
	}
}

func iocReply(iocs string) scripted {
	return scripted{text: `{"iocs": [` + iocs + `]}`}
}

// threeChunkDocs builds input that splits into exactly three chunks for
// ChunkSize 100, ChunkOverlap 10: three documents each under one window.
func threeChunkDocs() []intel.Document {
	return []intel.Document{
		{Content: strings.Repeat("a", 80), Source: "one.txt"},
		{Content: strings.Repeat("b", 80), Source: "two.txt"},
		{Content: strings.Repeat("c", 80), Source: "three.txt"},
	}
}

func TestExtractIOCsMergesAcrossChunks(t *testing.T) {
	p := &scriptedProvider{responses: []scripted{
		iocReply(`{"type": "domain", "value": "evil.example", "context": "ctx1"}`),
		iocReply(`{"type": "domain", "value": "evil.example", "context": "ctx2"}`),
		iocReply(`{"type": "ip", "value": "10.0.0.5", "context": "beacon"}`),
	}}
	progress := &recordingProgress{}
	pipeline, err := NewPipeline(NewExtractor(p, llmOpts()), validParams(), progress)
	if err != nil {
		t.Fatal(err)
	}

	set, err := pipeline.ExtractIOCs(context.Background(), threeChunkDocs())
	if err != nil {
		t.Fatalf("ExtractIOCs: %v", err)
	}

	if set.Len() != 2 {
		t.Fatalf("Len = %d, want 2 after merge", set.Len())
	}
	want := []ioc.IOC{
		{Type: "domain", Value: "evil.example", Context: "ctx1 | ctx2"},
		{Type: "ip", Value: "10.0.0.5", Context: "beacon"},
	}
	if !reflect.DeepEqual(set.IOCs, want) {
		t.Errorf("IOCs = %+v, want %+v", set.IOCs, want)
	}

	if progress.total != 3 {
		t.Errorf("Total = %d, want 3", progress.total)
	}
	if len(progress.advances) != 3 {
		t.Errorf("Advance called %d times, want 3", len(progress.advances))
	}
}

func TestExtractIOCsDeterministic(t *testing.T) {
	responses := []scripted{
		iocReply(`{"type": "domain", "value": "evil.example", "context": "ctx1"}`),
		iocReply(`{"type": "domain", "value": "evil.example", "context": "ctx2"}`),
		iocReply(`{"type": "ip", "value": "10.0.0.5", "context": "beacon"}`),
	}

	run := func() *ioc.Set {
		p := &scriptedProvider{responses: responses}
		pipeline, err := NewPipeline(NewExtractor(p, llmOpts()), validParams(), nil)
		if err != nil {
			t.Fatal(err)
		}
		set, err := pipeline.ExtractIOCs(context.Background(), threeChunkDocs())
		if err != nil {
			t.Fatal(err)
		}
		return set
	}

	first, second := run(), run()
	if !reflect.DeepEqual(first.IOCs, second.IOCs) {
		t.Errorf("identical runs diverged:\n first: %+v\nsecond: %+v", first.IOCs, second.IOCs)
	}
}

func TestExtractIOCsSkipsMalformedChunk(t *testing.T) {
	p := &scriptedProvider{responses: []scripted{
		iocReply(`{"type": "domain", "value": "evil.example", "context": "ctx1"}`),
		{text: `the model rambled instead of emitting JSON`},
		iocReply(`{"type": "ip", "value": "10.0.0.5", "context": "beacon"}`),
	}}
	progress := &recordingProgress{}
	pipeline, err := NewPipeline(NewExtractor(p, llmOpts()), validParams(), progress)
	if err != nil {
		t.Fatal(err)
	}

	set, err := pipeline.ExtractIOCs(context.Background(), threeChunkDocs())
	if err != nil {
		t.Fatalf("ExtractIOCs: %v", err)
	}
	if set.Len() != 2 {
		t.Errorf("Len = %d, want surviving chunks' IOCs", set.Len())
	}
	// The skipped chunk still advances progress.
	if len(progress.advances) != 3 {
		t.Errorf("Advance called %d times, want 3", len(progress.advances))
	}
}

func TestExtractIOCsAbortsOnBackendFault(t *testing.T) {
	p := &scriptedProvider{responses: []scripted{
		iocReply(`{"type": "domain", "value": "evil.example", "context": "ctx1"}`),
		{err: fmt.Errorf("connection refused")},
	}}
	pipeline, err := NewPipeline(NewExtractor(p, llmOpts()), validParams(), nil)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := pipeline.ExtractIOCs(context.Background(), threeChunkDocs()); err == nil {
		t.Fatal("expected abort on backend fault")
	}
	if p.calls != 2 {
		t.Errorf("provider called %d times, want abort after fault", p.calls)
	}
}

func TestExtractIOCsEmptyChunksYieldEmptySet(t *testing.T) {
	p := &scriptedProvider{responses: []scripted{
		iocReply(``), iocReply(``), iocReply(``),
	}}
	pipeline, err := NewPipeline(NewExtractor(p, llmOpts()), validParams(), nil)
	if err != nil {
		t.Fatal(err)
	}

	set, err := pipeline.ExtractIOCs(context.Background(), threeChunkDocs())
	if err != nil {
		t.Fatalf("ExtractIOCs: %v", err)
	}
	if set.Len() != 0 {
		t.Errorf("Len = %d, want 0", set.Len())
	}
}

func TestExtractIOCsStopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &scriptedProvider{}
	pipeline, err := NewPipeline(NewExtractor(p, llmOpts()), validParams(), nil)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := pipeline.ExtractIOCs(ctx, threeChunkDocs()); err == nil {
		t.Fatal("expected context error")
	}
	if p.calls != 0 {
		t.Errorf("provider called %d times after cancellation", p.calls)
	}
}
