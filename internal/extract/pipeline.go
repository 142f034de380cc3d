package extract

import (
	"context"
	"errors"
	"fmt"

	"github.com/thsensai/sensai/internal/intel"
	"github.com/thsensai/sensai/internal/ioc"
)

// iocInstruction is the fixed extraction task appended after every chunk's
// fenced context.
const iocInstruction = `As a threat intel expert, extract all Indicators of Compromise (IOCs) from the context above.

Look for IP addresses, domains, URLs, file hashes (MD5, SHA1, SHA256), email addresses, file names, registry keys, mutexes, CVEs and similar indicators. Indicators may be defanged (hxxp, [.], [:]) to prevent accidental clicks.

For each indicator report its type, its value and a short context describing where or how it appears. If the context contains no indicators, return an empty list.

Respond with JSON in exactly this shape:

{"iocs": [{"type": "<indicator type>", "value": "<indicator value>", "context": "<short context>"}]}`

// Progress receives per-chunk pipeline progress. Total is called once before
// the first chunk; Advance once after each chunk, extracted or skipped.
type Progress interface {
	Total(n int)
	Advance(status string)
}

// noProgress is the sink used when the caller passes nil.
type noProgress struct{}

func (noProgress) Total(int)      {}
func (noProgress) Advance(string) {}

// Params are the tunables of one extraction run, fixed for its duration.
type Params struct {
	ChunkSize     int  // characters per chunk
	ChunkOverlap  int  // characters shared between adjacent chunks
	MaxTokens     int  // generation budget per chunk (-1 = provider default)
	ContextWindow int  // model context window, in tokens
	Seed          *int // fixed sampling seed (nil = unseeded)
}

// charsPerToken is the rough character budget of one token, used to check
// that a chunk plus instruction fits the model's context window.
const charsPerToken = 4

// Validate rejects parameter combinations before any backend call is made.
func (p Params) Validate() error {
	if p.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", p.ChunkSize)
	}
	if p.ChunkOverlap < 0 {
		return fmt.Errorf("chunk overlap cannot be negative, got %d", p.ChunkOverlap)
	}
	if p.ChunkOverlap >= p.ChunkSize {
		return fmt.Errorf("chunk overlap (%d) must be smaller than chunk size (%d)", p.ChunkOverlap, p.ChunkSize)
	}
	if p.MaxTokens == 0 || p.MaxTokens < -1 {
		return fmt.Errorf("max tokens must be -1 or positive, got %d", p.MaxTokens)
	}
	if p.ContextWindow <= 0 {
		return fmt.Errorf("context window must be positive, got %d", p.ContextWindow)
	}
	// Leave a quarter of the window for the instruction and the response.
	budget := p.ContextWindow * 3 / 4 * charsPerToken
	if p.ChunkSize > budget {
		return fmt.Errorf("chunk size %d exceeds context window budget (%d chars for a %d token window)",
			p.ChunkSize, budget, p.ContextWindow)
	}
	return nil
}

// Pipeline runs chunked IOC extraction over intel documents.
type Pipeline struct {
	extractor *Extractor
	params    Params
	progress  Progress
}

// NewPipeline validates params and builds a pipeline around the provider.
// progress may be nil.
func NewPipeline(extractor *Extractor, params Params, progress Progress) (*Pipeline, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid extraction params: %w", err)
	}
	if progress == nil {
		progress = noProgress{}
	}
	return &Pipeline{extractor: extractor, params: params, progress: progress}, nil
}

// ExtractIOCs splits docs into chunks, extracts indicators from each chunk in
// document order, and returns the merged result. A chunk whose response fails
// schema validation contributes nothing and the run continues; a backend
// fault aborts the whole run. The returned set is merged exactly once, after
// all chunks have been processed.
func (p *Pipeline) ExtractIOCs(ctx context.Context, docs []intel.Document) (*ioc.Set, error) {
	chunks := intel.SplitDocuments(docs, p.params.ChunkSize, p.params.ChunkOverlap)
	p.progress.Total(len(chunks))

	set := ioc.NewSet()
	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var payload ioc.Set
		err := p.extractor.Invoke(ctx, chunk.Text, iocInstruction, &payload)
		switch {
		case err == nil:
			set.Extend(payload.IOCs...)
		case isSchemaError(err):
			// Malformed model output for this chunk only. Keep going.
		default:
			return nil, fmt.Errorf("extracting chunk %d (%s): %w", chunk.Index, chunk.Source, err)
		}

		p.progress.Advance(fmt.Sprintf("%d IOCs", set.Len()))
	}

	set.Merge()
	return set, nil
}

func isSchemaError(err error) bool {
	var schemaErr *SchemaError
	return errors.As(err, &schemaErr)
}
