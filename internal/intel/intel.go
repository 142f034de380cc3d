// Package intel acquires threat intelligence documents from files or URLs
// and splits them into overlapping text windows for extraction.
package intel

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Default chunking parameters, tuned for mid-size local models.
const (
	DefaultChunkSize    = 2600
	DefaultChunkOverlap = 300
)

// Document is one acquired piece of intelligence text with its provenance.
type Document struct {
	Content string
	Source  string
}

// Intel holds acquired threat intelligence data for one source.
type Intel struct {
	Source      string
	CSSSelector string
	Documents   []Document
}

// FromSource acquires intelligence from a file path or URL. URLs are scraped
// with the given CSS selector (empty means the whole body); anything else is
// read as a plain text or markdown file. A source that yields no content is
// an error; the pipeline must never start on an empty document set.
func FromSource(ctx context.Context, scraper *Scraper, source, cssSelector string) (*Intel, error) {
	n := &Intel{Source: source, CSSSelector: cssSelector}

	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		if scraper == nil {
			scraper = NewScraper()
		}
		docs, err := scraper.Scrape(ctx, source, cssSelector)
		if err != nil {
			return nil, err
		}
		n.Documents = docs
		return n, nil
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("reading intel source: %w", err)
	}
	content := string(data)
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("no content in intel source %s", source)
	}
	n.Documents = []Document{{Content: content, Source: source}}
	return n, nil
}

// SaveToDisk writes the acquired raw text under dir for audit, one blank
// line between documents.
func (n *Intel) SaveToDisk(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating intel directory: %w", err)
	}
	var sb strings.Builder
	for _, doc := range n.Documents {
		sb.WriteString(doc.Content)
		sb.WriteString("\n\n")
	}
	path := filepath.Join(dir, "intel.txt")
	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("writing intel text: %w", err)
	}
	return nil
}
