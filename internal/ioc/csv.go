package ioc

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// csvHeader is the canonical column order for IOC reports.
var csvHeader = []string{"Type", "Value", "Context"}

// ToCSV serializes the set as a comma-separated table with a
// Type,Value,Context header row, one row per IOC in current order.
func (s *Set) ToCSV() (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	if err := w.Write(csvHeader); err != nil {
		return "", fmt.Errorf("writing CSV header: %w", err)
	}
	for _, item := range s.IOCs {
		if err := w.Write([]string{item.Type, item.Value, item.Context}); err != nil {
			return "", fmt.Errorf("writing CSV row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flushing CSV: %w", err)
	}
	return sb.String(), nil
}

// ExtendFromCSV appends IOCs parsed from CSV data and merges the result.
// Header matching is case-insensitive; type and value columns are required,
// context is optional. Parsed rows are re-normalized on construction.
func (s *Set) ExtendFromCSV(data string) error {
	r := csv.NewReader(strings.NewReader(data))
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return fmt.Errorf("parsing CSV: %w", err)
	}
	if len(records) == 0 {
		return fmt.Errorf("empty CSV input")
	}

	cols := make(map[string]int, len(records[0]))
	for idx, name := range records[0] {
		cols[strings.ToLower(strings.TrimSpace(name))] = idx
	}
	typeIdx, ok := cols["type"]
	if !ok {
		return fmt.Errorf("missing required CSV column %q", "type")
	}
	valueIdx, ok := cols["value"]
	if !ok {
		return fmt.Errorf("missing required CSV column %q", "value")
	}
	contextIdx, hasContext := cols["context"]

	for _, row := range records[1:] {
		if typeIdx >= len(row) || valueIdx >= len(row) {
			continue
		}
		context := ""
		if hasContext && contextIdx < len(row) {
			context = row[contextIdx]
		}
		s.Extend(New(row[typeIdx], row[valueIdx], context))
	}

	s.Merge()
	return nil
}

// SetFromCSVFile loads a merged Set from a CSV report on disk.
func SetFromCSVFile(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading IOC CSV: %w", err)
	}
	s := NewSet()
	if err := s.ExtendFromCSV(string(data)); err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return s, nil
}
