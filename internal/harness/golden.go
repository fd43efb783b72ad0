package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"
)

// AssertGolden compares data against testdata/golden/{name}.golden.
//
// To regenerate golden files, run the package tests with -update:
//
//	go test ./internal/report -update
//
// Golden files are the source of truth for rendered output, so changes to a
// renderer show up as reviewable diffs.
func AssertGolden(t *testing.T, name string, data []byte) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
}
