// Package cli provides output formatting and an HTTP client for the bookflow CLI.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/bookflow/internal/dataset"
	"github.com/hyperjump/bookflow/internal/models"
	"github.com/hyperjump/bookflow/internal/pipeline"
	"github.com/hyperjump/bookflow/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
	// OutputCompact prints one line per item.
	OutputCompact OutputFormat = "compact"
)

// ParseFormat maps a flag value to an OutputFormat.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case OutputText, OutputJSON, OutputCompact:
		return f, nil
	case "":
		return OutputText, nil
	}
	return "", fmt.Errorf("unknown output format %q; use text, compact, or json", s)
}

// searchOutput is the JSON shape of WriteSearchHits, matching GET /search.
type searchOutput struct {
	Query   string              `json:"query"`
	Results []*models.SearchHit `json:"results"`
}

// WriteSearchHits writes ranked hits to w in the given format.
func WriteSearchHits(w io.Writer, query string, hits []*models.SearchHit, format OutputFormat) error {
	switch format {
	case OutputJSON:
		if hits == nil {
			hits = []*models.SearchHit{}
		}
		return encodeIndented(w, searchOutput{Query: query, Results: hits})
	case OutputCompact:
		for _, h := range hits {
			fmt.Fprintf(w, "%.4f\t%s\t%v\t%s\n", h.Distance, h.ID, h.Metadata[models.MetaStatus], utils.Truncate(oneLine(h.Document), 80))
		}
		return nil
	default:
		if len(hits) == 0 {
			fmt.Fprintln(w, "No relevant documents found.")
			return nil
		}
		fmt.Fprintf(w, "\nFound %d results for %q\n\n", len(hits), query)
		for i, h := range hits {
			writeOneHit(w, i+1, h)
		}
		return nil
	}
}

func writeOneHit(w io.Writer, rank int, h *models.SearchHit) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "Rank: %d | Distance: %.4f\n", rank, h.Distance)
	fmt.Fprintf(w, "ID: %s\n", h.ID)
	if st, ok := h.Metadata[models.MetaStatus]; ok {
		fmt.Fprintf(w, "Status: %v | Version: %v\n", st, h.Metadata[models.MetaVersion])
	}
	if p, ok := h.Metadata[models.MetaParentID]; ok {
		fmt.Fprintf(w, "Parent: %v\n", p)
	}
	fmt.Fprintf(w, "\n%s\n\n", utils.Truncate(h.Document, 200))
}

// WriteOutcome writes the three documents produced by a pipeline run.
func WriteOutcome(w io.Writer, out *pipeline.Outcome, format OutputFormat) error {
	refs := []struct {
		label string
		ref   models.DocumentRef
	}{
		{"raw", out.RawDocument},
		{"spun", out.SpunDocument},
		{"reviewed", out.ReviewedDocument},
	}
	switch format {
	case OutputJSON:
		return encodeIndented(w, out)
	case OutputCompact:
		for _, r := range refs {
			fmt.Fprintf(w, "%s\t%s\n", r.label, r.ref.ID)
		}
		return nil
	default:
		fmt.Fprintln(w, "Chapter processed and reviewed successfully!")
		for _, r := range refs {
			fmt.Fprintf(w, "\n[%s] %s\n%s\n", r.label, r.ref.ID, r.ref.Preview)
		}
		return nil
	}
}

// WriteDataset writes preference triples. Compact emits JSON Lines, one
// triple per line, which is the usual input format for preference tuning.
func WriteDataset(w io.Writer, triples []models.PreferenceTriple, stats *dataset.Stats, format OutputFormat) error {
	switch format {
	case OutputJSON:
		if triples == nil {
			triples = []models.PreferenceTriple{}
		}
		return encodeIndented(w, map[string]interface{}{"preference_dataset": triples, "stats": stats})
	case OutputCompact:
		enc := json.NewEncoder(w)
		for _, t := range triples {
			if err := enc.Encode(t); err != nil {
				return err
			}
		}
		return nil
	default:
		if stats != nil {
			fmt.Fprintf(w, "human_edits:            %d\n", stats.HumanEdits)
			fmt.Fprintf(w, "emitted:                %d\n", stats.Emitted)
			fmt.Fprintf(w, "skipped_missing_parent: %d\n", stats.SkippedMissingParent)
			fmt.Fprintf(w, "skipped_no_root:        %d\n", stats.SkippedNoRoot)
			fmt.Fprintf(w, "skipped_cycle:          %d\n", stats.SkippedCycle)
		}
		if len(triples) == 0 {
			fmt.Fprintln(w, "\nNo human edits found to create a dataset.")
			return nil
		}
		for i, t := range triples {
			fmt.Fprintf(w, "\n#%d\n  prompt:   %s\n  chosen:   %s\n  rejected: %s\n", i+1,
				utils.Truncate(oneLine(t.Prompt), 80),
				utils.Truncate(oneLine(t.Chosen), 80),
				utils.Truncate(oneLine(t.Rejected), 80))
		}
		return nil
	}
}

func encodeIndented(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
