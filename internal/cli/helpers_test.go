package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/roach88/aliasprobe/internal/engine"
	"github.com/roach88/aliasprobe/internal/harness"
)

func TestMain(m *testing.M) {
	harness.MaybeRunFake()
	os.Exit(m.Run())
}

// fixture is a config file pointing at fake tools plus a two-function
// input module.
type fixture struct {
	dir     string
	config  string
	module  string
	workDir string
}

func newFixture(t *testing.T, sc *harness.Scenario) fixture {
	t.Helper()
	cfg := harness.FakeConfig(t, harness.WriteScenario(t, sc))
	dir := t.TempDir()

	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	path := filepath.Join(dir, "aliasprobe.yaml")
	require.NoError(t, os.WriteFile(path, data, 0644))

	return fixture{
		dir:     dir,
		config:  path,
		module:  harness.WriteModule(t, dir, 2),
		workDir: cfg.WorkDir,
	}
}

// execute runs the root command with pinned run IDs.
func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	opts := &RootOptions{IDs: engine.NewFixedGenerator("run-1", "run-2", "run-3")}
	cmd := newRootCommand(opts)

	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

var mixed = &harness.Scenario{
	Name:           "mixed",
	Queries:        []string{"MayAlias", "NoAlias", "MayAlias", "MayAlias", "MustAlias", "MayAlias", "MayAlias"},
	Sensitive:      []int{1},
	CompileFail:    []int{2},
	MeasureFail:    []int{3},
	FailOnOverride: []int{4},
}

var clean = &harness.Scenario{
	Name:    "clean",
	Queries: []string{"NoAlias", "MayAlias", "MayAlias"},
}
