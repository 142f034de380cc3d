package hunt

import (
	"context"
	"fmt"
	"strings"
)

// Able captures a hypothesis in the ABLE framing: who acts, how, where, and
// what evidence would prove it.
type Able struct {
	Actor    string `json:"actor"`
	Behavior string `json:"behavior"`
	Location string `json:"location"`
	Evidence string `json:"evidence"`
}

// Hypothesis is a single testable statement about attacker activity.
type Hypothesis struct {
	ID                  string   `json:"hypothesis_id"`
	Statement           string   `json:"hypothesis"`
	Rationale           string   `json:"rationale"`
	LogSources          []string `json:"log_sources"`
	DetectionTechniques []string `json:"detection_techniques"`
	Priority            string   `json:"priority_level"`
	Able                *Able    `json:"able,omitempty"`
}

// Hypotheses is the decode target for hypothesis generation.
type Hypotheses struct {
	Hypotheses []Hypothesis `json:"hypotheses"`
}

// Validate rejects payloads where any hypothesis lacks a statement. The
// model occasionally returns placeholder entries with empty bodies; those
// are schema failures, not usable hypotheses.
func (h *Hypotheses) Validate() error {
	for idx, hyp := range h.Hypotheses {
		if strings.TrimSpace(hyp.Statement) == "" {
			return fmt.Errorf("hypothesis %d has an empty statement", idx)
		}
	}
	return nil
}

const hypothesesInstructionFmt = `As a threat hunting lead, write %d testable hypotheses about attacker activity suggested by the indicators in the context above.

Each hypothesis gets a short id (H-1, H-2, ...), the hypothesis statement, a rationale tied to specific indicators, the log sources to check, detection techniques to apply and a priority level (high, medium or low).

Respond with JSON in exactly this shape:

{"hypotheses": [{"hypothesis_id": "H-1", "hypothesis": "<statement>", "rationale": "<why>", "log_sources": ["..."], "detection_techniques": ["..."], "priority_level": "<high|medium|low>"}]}`

// GenerateHypotheses derives n hypotheses from the IOC set.
func (h *Hunt) GenerateHypotheses(ctx context.Context, n int) error {
	if n <= 0 {
		return fmt.Errorf("hypothesis count must be positive, got %d", n)
	}
	report, err := h.iocs.ToCSV()
	if err != nil {
		return fmt.Errorf("rendering IOC context: %w", err)
	}

	var hyps Hypotheses
	instruction := fmt.Sprintf(hypothesesInstructionFmt, n)
	if err := h.extractor.Invoke(ctx, report, instruction, &hyps); err != nil {
		return fmt.Errorf("generating hypotheses: %w", err)
	}
	h.Hypotheses = hyps
	return nil
}

const ableInstruction = `Break the hunting hypothesis in the context above down using the ABLE framework.

Identify the Actor carrying out the activity, the Behavior they exhibit, the Location in the environment where it happens and the Evidence that would confirm it.

Respond with JSON in exactly this shape:

{"actor": "<who>", "behavior": "<what they do>", "location": "<where>", "evidence": "<what proves it>"}`

// EnrichABLE attaches an ABLE breakdown to every hypothesis, one model call
// per hypothesis. Fails on the first hypothesis that cannot be enriched.
func (h *Hunt) EnrichABLE(ctx context.Context) error {
	for idx := range h.Hypotheses.Hypotheses {
		hyp := &h.Hypotheses.Hypotheses[idx]

		contextText := fmt.Sprintf("Hypothesis %s: %s\nRationale: %s", hyp.ID, hyp.Statement, hyp.Rationale)
		var able Able
		if err := h.extractor.Invoke(ctx, contextText, ableInstruction, &able); err != nil {
			return fmt.Errorf("enriching hypothesis %s: %w", hyp.ID, err)
		}
		hyp.Able = &able
	}
	return nil
}
