package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_Valid(t *testing.T) {
	sc, err := LoadScenario(filepath.Join("testdata", "scenarios", "two_may.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "two_may", sc.Name)
	assert.Equal(t, []string{"NoAlias", "MayAlias", "MayAlias"}, sc.Queries)
	assert.Equal(t, []int{1}, sc.Sensitive)
	assert.Nil(t, sc.FailAfter)
	assert.Equal(t, 2, sc.MayAliasCount())
}

func TestLoadScenario_ConflictingStops(t *testing.T) {
	_, err := LoadScenario(filepath.Join("testdata", "scenarios", "conflicting_stops.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at most one of")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	_, err := LoadScenario(filepath.Join("testdata", "scenarios", "unknown_field.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse scenario YAML")
}

func TestLoadScenario_Missing(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestScenario_Validate(t *testing.T) {
	tests := []struct {
		name    string
		sc      Scenario
		wantErr string
	}{
		{"missing name", Scenario{Queries: []string{"MayAlias"}}, "name is required"},
		{"stop past end", Scenario{Name: "x", Queries: []string{"MayAlias"}, ExitAfter: Ptr(2)}, "outside"},
		{"negative stop", Scenario{Name: "x", FailAfter: Ptr(-1)}, "outside"},
		{"stop at end is fine", Scenario{Name: "x", Queries: []string{"MayAlias"}, HangAfter: Ptr(1)}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sc.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestWriteScenario_RoundTrip(t *testing.T) {
	sc := &Scenario{
		Name:        "roundtrip",
		Queries:     []string{"MayAlias", "PartialAlias"},
		FailAfter:   Ptr(1),
		CompileFail: []int{0},
	}
	loaded, err := LoadScenario(WriteScenario(t, sc))
	require.NoError(t, err)
	assert.Equal(t, sc, loaded)
}

func TestModuleText_FunctionCount(t *testing.T) {
	assert.Equal(t, 0, FunctionCount(ModuleText(0)))
	assert.Equal(t, 3, FunctionCount(ModuleText(3)))
}
