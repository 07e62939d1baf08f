package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ppiankov/claimscope/internal/model"
)

// SweepReport is the outcome of a pool-wide conflict sweep
type SweepReport struct {
	RunID       string       `json:"run_id"`
	StartedAt   time.Time    `json:"started_at"`
	DurationMS  int64        `json:"duration_ms"`
	PoolVersion uint64       `json:"pool_version"`
	Claims      []SweepEntry `json:"claims"`
	Totals      SweepTotals  `json:"totals"`
}

// SweepEntry is the detection result for one claim
type SweepEntry struct {
	model.Key
	Result model.ConflictResult `json:"result"`
	Error  string               `json:"error,omitempty"`
}

// SweepTotals summarizes a sweep. Pairs counts each overlapping pair once.
type SweepTotals struct {
	Claims     int `json:"claims"`
	Conflicted int `json:"conflicted"`
	Clean      int `json:"clean"`
	Failed     int `json:"failed"`
	Pairs      int `json:"pairs"`
}

// EvaluationReport is the outcome of a batch eligibility run
type EvaluationReport struct {
	RunID      string            `json:"run_id"`
	StartedAt  time.Time         `json:"started_at"`
	DurationMS int64             `json:"duration_ms"`
	Source     string            `json:"source"`
	Verdicts   []EvaluationEntry `json:"verdicts"`
	Totals     EvaluationTotals  `json:"totals"`
}

// EvaluationEntry is the verdict for one claim
type EvaluationEntry struct {
	model.Key
	Verdict *model.Verdict `json:"verdict,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// EvaluationTotals summarizes an evaluation run
type EvaluationTotals struct {
	Claims     int `json:"claims"`
	Eligible   int `json:"eligible"`
	Ineligible int `json:"ineligible"`
	Failed     int `json:"failed"`
}

// WriteJSON writes v as indented JSON to path, creating parent directories.
// A path of "-" writes to stdout.
func WriteJSON(v any, path string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	data = append(data, '\n')

	if path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// RenderSweepSummary prints a human-readable sweep summary
func RenderSweepSummary(w io.Writer, r *SweepReport) {
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "  Conflict Sweep Summary\n")
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "  Run:             %s\n", r.RunID)
	fmt.Fprintf(w, "  Claims checked:  %d\n", r.Totals.Claims)
	fmt.Fprintf(w, "  With conflicts:  %d\n", r.Totals.Conflicted)
	fmt.Fprintf(w, "  Clean:           %d\n", r.Totals.Clean)
	fmt.Fprintf(w, "  Overlap pairs:   %d\n", r.Totals.Pairs)
	if r.Totals.Failed > 0 {
		fmt.Fprintf(w, "  Failed:          %d\n", r.Totals.Failed)
	}
	fmt.Fprintf(w, "  Duration:        %v\n", time.Duration(r.DurationMS)*time.Millisecond)

	if r.Totals.Conflicted > 0 {
		fmt.Fprintf(w, "\n  Conflicts:\n")
		for _, e := range r.Claims {
			if !e.Result.ConflictDetected {
				continue
			}
			fmt.Fprintf(w, "    ✗ %s overlaps", e.Key)
			for _, c := range e.Result.Conflicts {
				fmt.Fprintf(w, " %s (%s)", c.ConflictingClaimID, c.OtherClaimantID)
			}
			fmt.Fprintf(w, "\n")
		}
	}
	fmt.Fprintf(w, "\n")
}

// RenderEvaluationSummary prints a human-readable evaluation summary
func RenderEvaluationSummary(w io.Writer, r *EvaluationReport) {
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "  Eligibility Summary (%s)\n", r.Source)
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "  Run:         %s\n", r.RunID)
	fmt.Fprintf(w, "  Claims:      %d\n", r.Totals.Claims)
	fmt.Fprintf(w, "  Eligible:    %d\n", r.Totals.Eligible)
	fmt.Fprintf(w, "  Ineligible:  %d\n", r.Totals.Ineligible)
	if r.Totals.Failed > 0 {
		fmt.Fprintf(w, "  Failed:      %d\n", r.Totals.Failed)
	}
	fmt.Fprintf(w, "  Duration:    %v\n", time.Duration(r.DurationMS)*time.Millisecond)
	fmt.Fprintf(w, "\n")

	for _, e := range r.Verdicts {
		switch {
		case e.Error != "":
			fmt.Fprintf(w, "  ! %s: %s\n", e.Key, e.Error)
		case e.Verdict.Eligible:
			fmt.Fprintf(w, "  ✓ %s eligible\n", e.Key)
		default:
			fmt.Fprintf(w, "  ✗ %s ineligible\n", e.Key)
			for _, reason := range e.Verdict.Reasons {
				fmt.Fprintf(w, "      - %s\n", reason)
			}
		}
	}
	fmt.Fprintf(w, "\n")
}

// RenderVerdict prints one verdict
func RenderVerdict(w io.Writer, v *model.Verdict) {
	status := "✓ eligible"
	if !v.Eligible {
		status = "✗ ineligible"
	}
	fmt.Fprintf(w, "%s,%s: %s (source: %s", v.ClaimantID, v.ClaimID, status, v.Source)
	if v.Model != "" {
		fmt.Fprintf(w, ", model: %s", v.Model)
	}
	fmt.Fprintf(w, ")\n")
	for _, reason := range v.Reasons {
		fmt.Fprintf(w, "  - %s\n", reason)
	}
	if len(v.ConflictingClaimIDs) > 0 {
		fmt.Fprintf(w, "  Conflicting claims: %v\n", v.ConflictingClaimIDs)
	}
}
