package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// WriteText renders the report for humans: one line per non-match record,
// then a summary.
func (r *Report) WriteText(w io.Writer) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Run %s\n", r.RunID)
	fmt.Fprintf(&b, "Module: %s\n", r.Module)
	fmt.Fprintf(&b, "Override: %s (%s)\n", r.Override.Wire(), r.Override)
	fmt.Fprintf(&b, "Count is %d\n", r.MayAliasCount)
	fmt.Fprintf(&b, "True size is %d\n", r.BaselineSize)

	nonMatches := r.NonMatches()
	if len(nonMatches) > 0 {
		b.WriteString("\n")
	}
	for _, rec := range nonMatches {
		switch rec.Outcome {
		case OutcomeDivergence:
			fmt.Fprintf(&b, "%d: %d (%+d)\n", rec.Index, rec.Size, rec.Delta())
		default:
			fmt.Fprintf(&b, "%d: %s: %s\n", rec.Index, rec.Outcome, firstLine(rec.Detail))
		}
	}

	s := r.Summary()
	b.WriteString("\nSummary:\n")
	fmt.Fprintf(&b, "  may_alias:  %d\n", s.MayAliasCount)
	fmt.Fprintf(&b, "  selected:   %d\n", s.Selected)
	for _, o := range Outcomes {
		fmt.Fprintf(&b, "  %-19s %d\n", string(o)+":", s.Counts[o])
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// JSONView is the machine-readable form of a report.
type JSONView struct {
	*Report
	Summary    Summary  `json:"summary"`
	NonMatches []Record `json:"non_matches"`
}

// View returns the JSON view of r.
func (r *Report) View() JSONView {
	return JSONView{Report: r, Summary: r.Summary(), NonMatches: r.NonMatches()}
}

// WriteJSON renders the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r.View())
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
