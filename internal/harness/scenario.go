package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/roach88/aliasprobe/internal/alias"
)

// Scenario scripts the fake oracle and the tools downstream of it.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario exercises.
	Description string `yaml:"description"`

	// Queries are the kind tokens the oracle asks about, in order.
	// Tokens are emitted verbatim, so unknown kinds can be scripted.
	Queries []string `yaml:"queries"`

	// FailAfter prints the failure marker after this many queries.
	FailAfter *int `yaml:"fail_after,omitempty"`

	// HangAfter stops responding after this many queries.
	HangAfter *int `yaml:"hang_after,omitempty"`

	// ExitAfter closes output after this many queries without a header.
	ExitAfter *int `yaml:"exit_after,omitempty"`

	// Sensitive lists MayAlias ordinals whose override makes the module
	// grow by one function, changing the measured size.
	Sensitive []int `yaml:"sensitive,omitempty"`

	// CompileFail lists MayAlias ordinals whose override makes the backend fail.
	CompileFail []int `yaml:"compile_fail,omitempty"`

	// FailOnOverride lists MayAlias ordinals whose override makes the oracle
	// print its failure marker right after the reply.
	FailOnOverride []int `yaml:"fail_on_override,omitempty"`

	// MeasureFail lists MayAlias ordinals whose override makes the size tool
	// print diagnostics.
	MeasureFail []int `yaml:"measure_fail,omitempty"`
}

// LoadScenario reads and validates a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var sc Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("failed to parse scenario YAML: %w", err)
	}

	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", filepath.Base(path), err)
	}
	return &sc, nil
}

// Validate checks the scenario is internally consistent.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	stops := 0
	for _, p := range []*int{s.FailAfter, s.HangAfter, s.ExitAfter} {
		if p == nil {
			continue
		}
		stops++
		if *p < 0 || *p > len(s.Queries) {
			return fmt.Errorf("stop position %d outside [0,%d]", *p, len(s.Queries))
		}
	}
	if stops > 1 {
		return fmt.Errorf("at most one of fail_after, hang_after, exit_after may be set")
	}
	return nil
}

// MayAliasCount returns the number of MayAlias queries scripted.
func (s *Scenario) MayAliasCount() int {
	n := 0
	for _, q := range s.Queries {
		if q == string(alias.MayAlias) {
			n++
		}
	}
	return n
}

// WriteScenario saves sc as YAML in a fresh temp dir and returns the path.
func WriteScenario(t testing.TB, sc *Scenario) string {
	t.Helper()
	data, err := yaml.Marshal(sc)
	if err != nil {
		t.Fatalf("marshal scenario: %v", err)
	}
	path := filepath.Join(t.TempDir(), sc.Name+".yaml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write scenario: %v", err)
	}
	return path
}

// WriteModule writes an input module with the given number of functions
// and returns its path.
func WriteModule(t testing.TB, dir string, functions int) string {
	t.Helper()
	path := filepath.Join(dir, "input.ll")
	if err := os.WriteFile(path, []byte(ModuleText(functions)), 0644); err != nil {
		t.Fatalf("write module: %v", err)
	}
	return path
}

// ModuleText returns a small textual module with the given number of functions.
func ModuleText(functions int) string {
	var b bytes.Buffer
	b.WriteString("source_filename = \"input.c\"\n")
	for i := 0; i < functions; i++ {
		fmt.Fprintf(&b, "define i32 @f%d(i32 %%x) {\n  ret i32 %%x\n}\n", i)
	}
	return b.String()
}

// Ptr returns a pointer to n, for the *int scenario fields.
func Ptr(n int) *int {
	return &n
}
