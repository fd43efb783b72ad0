// Package report aggregates per-substitution sizes against the baseline.
//
// Every selected substitution index yields exactly one Record. A record is a
// match when the substituted artifact has the baseline size and a
// divergence when it does not; the failure outcomes say which stage stopped
// the index from being measured. Divergences are the signal of interest:
// the final code size depends on that one ambiguous alias decision.
package report

import (
	"fmt"
	"sort"

	"github.com/roach88/aliasprobe/internal/alias"
)

// Outcome classifies one substitution index.
type Outcome string

const (
	OutcomeMatch             Outcome = "match"
	OutcomeDivergence        Outcome = "divergence"
	OutcomeCompileFailed     Outcome = "compile_failed"
	OutcomeMeasurementFailed Outcome = "measurement_failed"
	OutcomeReplayFailed      Outcome = "replay_failed"
)

// Outcomes lists every outcome in report order.
var Outcomes = []Outcome{
	OutcomeMatch,
	OutcomeDivergence,
	OutcomeCompileFailed,
	OutcomeMeasurementFailed,
	OutcomeReplayFailed,
}

// Record is the SensitivityRecord for one substitution index.
type Record struct {
	Index        int     `json:"index"`
	BaselineSize int64   `json:"baseline_size"`
	Size         int64   `json:"size"`
	Outcome      Outcome `json:"outcome"`
	Detail       string  `json:"detail,omitempty"`
	Queries      int     `json:"queries,omitempty"`
}

// Delta is Size minus BaselineSize. Zero unless the outcome is a divergence.
func (r Record) Delta() int64 {
	if r.Outcome != OutcomeDivergence {
		return 0
	}
	return r.Size - r.BaselineSize
}

// Classify builds the record for index from its measured size or the error
// that stopped it. The outcome for an error follows its failure code;
// errors without one are attributed to the replay.
func Classify(index int, baseline, size int64, err error) Record {
	rec := Record{Index: index, BaselineSize: baseline}
	if err != nil {
		rec.Detail = err.Error()
		switch alias.CodeOf(err) {
		case alias.ErrCodeCompileFailure:
			rec.Outcome = OutcomeCompileFailed
		case alias.ErrCodeMeasurementFailure:
			rec.Outcome = OutcomeMeasurementFailed
		default:
			rec.Outcome = OutcomeReplayFailed
		}
		return rec
	}

	rec.Size = size
	if size == baseline {
		rec.Outcome = OutcomeMatch
	} else {
		rec.Outcome = OutcomeDivergence
	}
	return rec
}

// Report is the result of one probe run.
type Report struct {
	RunID         string     `json:"run_id"`
	Module        string     `json:"module"`
	Override      alias.Code `json:"override"`
	MayAliasCount int        `json:"may_alias_count"`
	Queries       int        `json:"queries"`
	Selected      int        `json:"selected"`
	BaselineSize  int64      `json:"baseline_size"`
	Records       []Record   `json:"records"`
}

// New creates an empty report.
func New(runID, module string, override alias.Code) *Report {
	return &Report{
		RunID:    runID,
		Module:   module,
		Override: override,
		Records:  []Record{},
	}
}

// Add appends rec. Records are kept sorted by index.
func (r *Report) Add(rec Record) {
	r.Records = append(r.Records, rec)
	sort.SliceStable(r.Records, func(i, j int) bool {
		return r.Records[i].Index < r.Records[j].Index
	})
}

// NonMatches returns every record whose outcome is not a match.
func (r *Report) NonMatches() []Record {
	out := []Record{}
	for _, rec := range r.Records {
		if rec.Outcome != OutcomeMatch {
			out = append(out, rec)
		}
	}
	return out
}

// Divergences returns the records whose size differs from the baseline.
func (r *Report) Divergences() []Record {
	out := []Record{}
	for _, rec := range r.Records {
		if rec.Outcome == OutcomeDivergence {
			out = append(out, rec)
		}
	}
	return out
}

// Summary counts records per outcome.
type Summary struct {
	MayAliasCount int             `json:"may_alias_count"`
	Selected      int             `json:"selected"`
	BaselineSize  int64           `json:"baseline_size"`
	Counts        map[Outcome]int `json:"counts"`
}

// Summary returns the per-outcome counts.
func (r *Report) Summary() Summary {
	s := Summary{
		MayAliasCount: r.MayAliasCount,
		Selected:      r.Selected,
		BaselineSize:  r.BaselineSize,
		Counts:        make(map[Outcome]int, len(Outcomes)),
	}
	for _, o := range Outcomes {
		s.Counts[o] = 0
	}
	for _, rec := range r.Records {
		s.Counts[rec.Outcome]++
	}
	return s
}

// Failed reports whether any index failed to be measured.
func (r *Report) Failed() bool {
	for _, rec := range r.Records {
		switch rec.Outcome {
		case OutcomeMatch, OutcomeDivergence:
		default:
			return true
		}
	}
	return false
}

// Check verifies one record per selected index, each index distinct.
func (r *Report) Check() error {
	if len(r.Records) != r.Selected {
		return fmt.Errorf("report has %d records for %d selected indices", len(r.Records), r.Selected)
	}
	seen := make(map[int]bool, len(r.Records))
	for _, rec := range r.Records {
		if rec.Index < 0 || rec.Index >= r.MayAliasCount {
			return fmt.Errorf("record index %d outside [0,%d)", rec.Index, r.MayAliasCount)
		}
		if seen[rec.Index] {
			return fmt.Errorf("duplicate record for index %d", rec.Index)
		}
		seen[rec.Index] = true
	}
	return nil
}
