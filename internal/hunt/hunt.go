// Package hunt turns an extracted IOC set into a threat hunting plan:
// metadata describing the hunt, scoped targets and playbooks, and a set of
// testable hypotheses. Every generation step goes through the same
// structured extraction primitive as IOC extraction, with the IOC report as
// the model's context.
package hunt

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/thsensai/sensai/internal/extract"
	"github.com/thsensai/sensai/internal/ioc"
)

// Scope bounds a hunt to concrete systems, a lookback window, the data
// sources to query and the playbooks to execute.
type Scope struct {
	Targets       []string `json:"targets"`
	TimeframeDays int      `json:"timeframe_days"`
	Datasources   []string `json:"datasources"`
	Playbooks     []string `json:"playbooks"`
}

// Meta is the descriptive header of a hunt plan.
type Meta struct {
	Name            string `json:"name"`
	Purpose         string `json:"purpose"`
	Scope           Scope  `json:"scope"`
	ExpectedOutcome string `json:"expected_outcome"`
}

// Hunt is a complete hunting plan derived from one IOC set.
type Hunt struct {
	Meta       Meta       `json:"meta"`
	Hypotheses Hypotheses `json:"hypotheses"`

	iocs      *ioc.Set
	extractor *extract.Extractor
}

// FromIOCs starts a hunt plan over a merged IOC set.
func FromIOCs(extractor *extract.Extractor, iocs *ioc.Set) *Hunt {
	return &Hunt{iocs: iocs, extractor: extractor}
}

// IOCs returns the indicator set the hunt was built from.
func (h *Hunt) IOCs() *ioc.Set {
	return h.iocs
}

const metaInstruction = `As a threat hunting lead, design the metadata for a hunt based on the indicators in the context above.

Propose a short hunt name, its purpose, an initial scope (target systems, lookback timeframe in days, data sources to query, playbooks to run) and the expected outcome.

Respond with JSON in exactly this shape:

{"name": "<hunt name>", "purpose": "<why this hunt>", "scope": {"targets": ["..."], "timeframe_days": <days>, "datasources": ["..."], "playbooks": ["..."]}, "expected_outcome": "<what success looks like>"}`

// GenerateMeta fills in the hunt's metadata from the IOC set.
func (h *Hunt) GenerateMeta(ctx context.Context) error {
	report, err := h.iocs.ToCSV()
	if err != nil {
		return fmt.Errorf("rendering IOC context: %w", err)
	}

	var meta Meta
	if err := h.extractor.Invoke(ctx, report, metaInstruction, &meta); err != nil {
		return fmt.Errorf("generating hunt metadata: %w", err)
	}
	h.Meta = meta
	return nil
}

// Generate builds the full plan: metadata first, then n hypotheses.
func (h *Hunt) Generate(ctx context.Context, n int) error {
	if err := h.GenerateMeta(ctx); err != nil {
		return err
	}
	return h.GenerateHypotheses(ctx, n)
}

const refineTargetsInstruction = `The context above lists a hunting plan scope followed by an inventory of systems in the environment, one per line.

Replace the scope's generic targets with the concrete systems from the inventory that the hunt should cover, keeping everything else unchanged.

Respond with JSON in exactly this shape:

{"targets": ["..."], "timeframe_days": <days>, "datasources": ["..."], "playbooks": ["..."]}`

const refinePlaybooksInstruction = `The context above lists a hunting plan scope followed by the playbooks available in the environment, one per line.

Replace the scope's generic playbooks with the available playbooks relevant to this hunt, keeping everything else unchanged.

Respond with JSON in exactly this shape:

{"targets": ["..."], "timeframe_days": <days>, "datasources": ["..."], "playbooks": ["..."]}`

// RefineTargets narrows the scope's targets to the systems listed in
// scopesFile, one per line.
func (h *Hunt) RefineTargets(ctx context.Context, scopesFile string) error {
	return h.refineScope(ctx, scopesFile, "available systems", refineTargetsInstruction)
}

// RefinePlaybooks narrows the scope's playbooks to those listed in
// playbooksFile, one per line.
func (h *Hunt) RefinePlaybooks(ctx context.Context, playbooksFile string) error {
	return h.refineScope(ctx, playbooksFile, "available playbooks", refinePlaybooksInstruction)
}

func (h *Hunt) refineScope(ctx context.Context, path, label, instruction string) error {
	inventory, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", label, err)
	}

	current, err := json.Marshal(h.Meta.Scope)
	if err != nil {
		return fmt.Errorf("encoding scope: %w", err)
	}
	contextText := fmt.Sprintf("Current scope:\n%s\n\nInventory (%s):\n%s",
		current, label, strings.TrimSpace(string(inventory)))

	var scope Scope
	if err := h.extractor.Invoke(ctx, contextText, instruction, &scope); err != nil {
		return fmt.Errorf("refining scope from %s: %w", path, err)
	}
	h.Meta.Scope = scope
	return nil
}

// DumpJSON serializes the plan (metadata, hypotheses and indicators) as
// indented JSON.
func (h *Hunt) DumpJSON() (string, error) {
	full := struct {
		Meta       Meta       `json:"meta"`
		Hypotheses Hypotheses `json:"hypotheses"`
		IOCs       []ioc.IOC  `json:"iocs"`
	}{
		Meta:       h.Meta,
		Hypotheses: h.Hypotheses,
		IOCs:       h.iocs.IOCs,
	}
	out, err := json.MarshalIndent(full, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding hunt plan: %w", err)
	}
	return string(out), nil
}

// Display writes a human-readable rendition of the plan to w.
func (h *Hunt) Display(w io.Writer) {
	fmt.Fprintf(w, "Hunt: %s\n", h.Meta.Name)
	fmt.Fprintf(w, "Purpose: %s\n", h.Meta.Purpose)
	fmt.Fprintf(w, "Expected outcome: %s\n\n", h.Meta.ExpectedOutcome)

	fmt.Fprintf(w, "Scope (last %d days)\n", h.Meta.Scope.TimeframeDays)
	fmt.Fprintf(w, "  Targets:     %s\n", joinOrNone(h.Meta.Scope.Targets))
	fmt.Fprintf(w, "  Datasources: %s\n", joinOrNone(h.Meta.Scope.Datasources))
	fmt.Fprintf(w, "  Playbooks:   %s\n\n", joinOrNone(h.Meta.Scope.Playbooks))

	for _, hyp := range h.Hypotheses.Hypotheses {
		fmt.Fprintf(w, "[%s] %s (%s priority)\n", hyp.ID, hyp.Statement, hyp.Priority)
		fmt.Fprintf(w, "  Rationale: %s\n", hyp.Rationale)
		fmt.Fprintf(w, "  Log sources: %s\n", joinOrNone(hyp.LogSources))
		fmt.Fprintf(w, "  Detection: %s\n", joinOrNone(hyp.DetectionTechniques))
		if hyp.Able != nil {
			fmt.Fprintf(w, "  ABLE: actor=%s behavior=%s location=%s evidence=%s\n",
				hyp.Able.Actor, hyp.Able.Behavior, hyp.Able.Location, hyp.Able.Evidence)
		}
		fmt.Fprintln(w)
	}
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
