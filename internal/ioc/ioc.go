// Package ioc provides the Indicator of Compromise data model for sensai.
//
// IOC values arrive from threat reports in defanged notation (192.168[.]1[.]1,
// hxxps://evil.example) and with inconsistent type labels. Both are normalized
// at construction time so every stored IOC is directly actionable and
// comparable. Sets of IOCs deduplicate by value, combining the context seen
// across report chunks.
package ioc

import (
	"encoding/json"
	"strings"
)

// IOC represents a single Indicator of Compromise.
type IOC struct {
	Type    string `json:"type"`
	Value   string `json:"value"`
	Context string `json:"context"`
}

// defangRewrites lists the literal substring replacements applied to IOC
// values, in order. Bracket escapes come first so an escaped scheme colon
// (hxxps[:]//) is restored before the scheme patterns run; otherwise such a
// value would need a second pass.
var defangRewrites = [...][2]string{
	{"[.]", "."},
	{"[:]", ":"},
	{"hxxps://", "https://"},
	{"hXXps://", "https://"},
	{"hxxp://", "http://"},
	{"hXXp://", "http://"},
}

// New constructs a normalized IOC. Normalization is total: it never fails,
// and applying it to already-normalized input is a no-op.
func New(iocType, value, context string) IOC {
	return IOC{
		Type:    NormalizeType(iocType),
		Value:   NormalizeValue(value),
		Context: strings.TrimSpace(context),
	}
}

// NormalizeType lowercases a type label, replaces underscores with spaces
// and strips surrounding whitespace.
func NormalizeType(s string) string {
	return strings.ToLower(strings.TrimSpace(strings.ReplaceAll(s, "_", " ")))
}

// NormalizeValue rewrites defanged notation back to its actionable form.
func NormalizeValue(s string) string {
	for _, r := range defangRewrites {
		s = strings.ReplaceAll(s, r[0], r[1])
	}
	return s
}

// UnmarshalJSON decodes an IOC and normalizes its fields, so IOCs parsed
// from model output carry the same construction-time guarantees as those
// built with New.
func (i *IOC) UnmarshalJSON(data []byte) error {
	type plain IOC
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*i = New(p.Type, p.Value, p.Context)
	return nil
}
