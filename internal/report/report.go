// Package report writes run artifacts to disk under parameter-stamped
// filenames, so reports from different runs of the same source never
// overwrite each other.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/thsensai/sensai/internal/extract"
	"github.com/thsensai/sensai/internal/hunt"
	"github.com/thsensai/sensai/internal/ioc"
)

// Name builds a report filename of the form
// <kind>_<slug>_cs-<chunkSize>_co-<chunkOverlap>_nc-<contextWindow>_np-<maxTokens>.<ext>
// where slug is derived from the intel source.
func Name(source, kind, ext string, params extract.Params) string {
	return fmt.Sprintf("%s_%s_cs-%d_co-%d_nc-%d_np-%d.%s",
		kind, Slug(source),
		params.ChunkSize, params.ChunkOverlap,
		params.ContextWindow, params.MaxTokens,
		ext)
}

// Slug reduces an intel source (URL or file path) to a filesystem-safe
// lowercase token.
func Slug(source string) string {
	s := strings.ToLower(strings.TrimSpace(source))
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "www.")
	s = strings.TrimSuffix(s, "/")

	var sb strings.Builder
	lastDash := true
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				sb.WriteByte('-')
				lastDash = true
			}
		}
	}
	slug := strings.Trim(sb.String(), "-")
	if slug == "" {
		slug = "intel"
	}
	if len(slug) > 80 {
		slug = strings.Trim(slug[:80], "-")
	}
	return slug
}

// WriteIOCs writes the set as a CSV report into dir and returns the path.
func WriteIOCs(dir, source string, set *ioc.Set, params extract.Params) (string, error) {
	data, err := set.ToCSV()
	if err != nil {
		return "", fmt.Errorf("serializing IOC report: %w", err)
	}
	return write(dir, Name(source, "ioc", "csv", params), data)
}

// WriteHunt writes the hunt plan as a JSON report into dir and returns the
// path.
func WriteHunt(dir, source string, h *hunt.Hunt, params extract.Params) (string, error) {
	data, err := h.DumpJSON()
	if err != nil {
		return "", fmt.Errorf("serializing hunt report: %w", err)
	}
	return write(dir, Name(source, "hunt", "json", params), data)
}

func write(dir, name, data string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating report dir %s: %w", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		return "", fmt.Errorf("writing report %s: %w", path, err)
	}
	return path, nil
}
