package engine

import (
	"fmt"
	"sort"

	"github.com/roach88/aliasprobe/internal/alias"
)

// Selection narrows which MayAlias indices a probe substitutes.
// The zero value selects every index.
type Selection struct {
	// Indices lists explicit indices. Empty means all of [0, M).
	Indices []int

	// Limit caps the number of indices after Indices is applied.
	// Zero means no cap.
	Limit int
}

// Resolve returns the sorted, de-duplicated indices selected out of m.
// Explicit indices outside [0, m) are an error.
func (s Selection) Resolve(m int) ([]int, error) {
	if s.Limit < 0 {
		return nil, fmt.Errorf("limit must not be negative, got %d", s.Limit)
	}

	var out []int
	if len(s.Indices) == 0 {
		out = make([]int, m)
		for i := range out {
			out[i] = i
		}
	} else {
		seen := make(map[int]bool, len(s.Indices))
		for _, k := range s.Indices {
			if k < 0 || k >= m {
				return nil, fmt.Errorf("index %d outside [0,%d)", k, m)
			}
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
		sort.Ints(out)
	}

	if s.Limit > 0 && len(out) > s.Limit {
		out = out[:s.Limit]
	}
	return out, nil
}

// Policy produces the baseline plan and one substitution plan per selected
// MayAlias index.
type Policy struct {
	// Override is the code sent to the targeted query.
	Override alias.Code

	// Selection picks the indices to substitute.
	Selection Selection
}

// Baseline returns the identity plan used for the counting run.
func (p Policy) Baseline() alias.SubstitutionPlan {
	return alias.IdentityPlan()
}

// Plans returns a plan for every selected index out of m MayAlias queries,
// in index order.
func (p Policy) Plans(m int) ([]alias.SubstitutionPlan, error) {
	if !p.Override.Valid() {
		return nil, fmt.Errorf("invalid override code %d", p.Override)
	}
	indices, err := p.Selection.Resolve(m)
	if err != nil {
		return nil, err
	}
	plans := make([]alias.SubstitutionPlan, len(indices))
	for i, k := range indices {
		plans[i] = alias.Plan(k, p.Override)
	}
	return plans, nil
}
