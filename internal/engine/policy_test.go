package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/aliasprobe/internal/alias"
)

func TestSelection_Resolve(t *testing.T) {
	tests := []struct {
		name    string
		sel     Selection
		m       int
		want    []int
		wantErr string
	}{
		{name: "all", m: 4, want: []int{0, 1, 2, 3}},
		{name: "none available", m: 0, want: []int{}},
		{name: "limit", sel: Selection{Limit: 2}, m: 4, want: []int{0, 1}},
		{name: "limit above m", sel: Selection{Limit: 10}, m: 3, want: []int{0, 1, 2}},
		{name: "explicit sorted and deduplicated", sel: Selection{Indices: []int{3, 1, 3}}, m: 4, want: []int{1, 3}},
		{name: "explicit with limit", sel: Selection{Indices: []int{2, 0, 1}, Limit: 2}, m: 4, want: []int{0, 1}},
		{name: "out of range", sel: Selection{Indices: []int{4}}, m: 4, wantErr: "outside [0,4)"},
		{name: "negative index", sel: Selection{Indices: []int{-1}}, m: 4, wantErr: "outside"},
		{name: "negative limit", sel: Selection{Limit: -1}, m: 4, wantErr: "limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.sel.Resolve(tt.m)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPolicy_Plans(t *testing.T) {
	p := Policy{Override: alias.CodeMustAlias}
	plans, err := p.Plans(3)
	require.NoError(t, err)
	assert.Equal(t, []alias.SubstitutionPlan{
		alias.Plan(0, alias.CodeMustAlias),
		alias.Plan(1, alias.CodeMustAlias),
		alias.Plan(2, alias.CodeMustAlias),
	}, plans)
	assert.True(t, p.Baseline().IsIdentity())
}

func TestPolicy_RejectsInvalidOverride(t *testing.T) {
	_, err := Policy{Override: alias.Code(7)}.Plans(3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid override")
}

// Each plan differs from the baseline in exactly the targeted MayAlias answer.
func TestPolicy_PlansChangeOneAnswer(t *testing.T) {
	kinds := []alias.Kind{alias.MayAlias, alias.NoAlias, alias.MayAlias, alias.PartialAlias, alias.MayAlias}
	answer := func(plan alias.SubstitutionPlan) []alias.Code {
		s := alias.NewDecisionStream()
		var out []alias.Code
		for _, k := range kinds {
			ev := plan.Respond(s.Observe(k))
			s.Record(ev)
			out = append(out, ev.Response)
		}
		return out
	}

	p := Policy{Override: alias.CodeNoAlias}
	base := answer(p.Baseline())
	plans, err := p.Plans(3)
	require.NoError(t, err)

	mayPositions := []int{0, 2, 4}
	for _, plan := range plans {
		got := answer(plan)
		for i := range got {
			if i == mayPositions[plan.Target] {
				assert.Equal(t, alias.CodeNoAlias, got[i])
				continue
			}
			assert.Equal(t, base[i], got[i], "plan %d position %d", plan.Target, i)
		}
	}
}
