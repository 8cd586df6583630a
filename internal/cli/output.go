package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/pfrederiksen/topdog/internal/entry"
	"github.com/pfrederiksen/topdog/internal/pipeline"
	"github.com/pfrederiksen/topdog/internal/reconcile"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// OutputResult contains data to be output after a single crawl
type OutputResult struct {
	CheckedAt   time.Time            `json:"checked_at"`
	CycleID     string               `json:"cycle_id"`
	Entrants    int                  `json:"entrants"`
	Contests    []*entry.ContestGoal `json:"contests"`
	Leaderboard []*entry.Entrant     `json:"leaderboard"`
	Reconcile   *reconcile.Report    `json:"reconcile,omitempty"`
}

// newOutputResult builds the output for a published cycle
func newOutputResult(res *pipeline.CycleResult, checkedAt time.Time, reconciled bool) *OutputResult {
	out := &OutputResult{
		CheckedAt:   checkedAt.UTC(),
		CycleID:     res.CycleID,
		Entrants:    res.Entrants,
		Contests:    res.Goals,
		Leaderboard: res.Leaderboard,
	}
	if reconciled {
		report := res.Reconcile
		out.Reconcile = &report
	}
	return out
}

// WriteOutput writes the result in the specified format
func WriteOutput(w io.Writer, result *OutputResult, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatText:
		return writeText(w, result, verbose)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeJSON outputs results as JSON
func writeJSON(w io.Writer, result *OutputResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// writeText outputs results as human-readable text
func writeText(w io.Writer, result *OutputResult, verbose bool) error {
	if len(result.Contests) > 0 {
		fmt.Fprintln(w, "Contests:")
		for _, g := range result.Contests {
			fmt.Fprintf(w, "  %s: $%d of $%d (%d entries)\n", g.Contest.DisplayName, g.Raised, g.Goal, g.TotalEntries)
			if verbose && g.BonusDayAmount > 0 {
				fmt.Fprintf(w, "       Bonus day: $%d\n", g.BonusDayAmount)
			}
		}
		fmt.Fprintln(w)
	}

	if len(result.Leaderboard) == 0 {
		fmt.Fprintln(w, "No entrants found.")
	} else {
		fmt.Fprintln(w, "Top dogs:")
		for i, e := range result.Leaderboard {
			fmt.Fprintf(w, "  %2d. %s (%s): %d votes\n", i+1, e.Dog, e.Contest.DisplayName, e.Votes)
			if verbose {
				fmt.Fprintf(w, "       Page: %s\n", e.Page)
				if e.Category != "" {
					fmt.Fprintf(w, "       Category: %s\n", e.Category)
				}
			}
		}
	}

	if verbose && result.Reconcile != nil {
		r := result.Reconcile
		fmt.Fprintf(w, "\nBonus day: $%d matched from %d entrants (%d unmatched, %d blank)\n",
			r.Amount, r.Matched, r.Unmatched, r.Blank)
	}

	fmt.Fprintf(w, "\nTotal: %d entrants across %d contests (cycle %s)\n", result.Entrants, len(result.Contests), result.CycleID)
	return nil
}
