package harness

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"testing"

	"github.com/roach88/aliasprobe/internal/alias"
	"github.com/roach88/aliasprobe/internal/config"
)

// Environment variables that turn a re-executed test binary into a fake tool.
const (
	EnvFake     = "ALIASPROBE_FAKE_TOOL"
	EnvScenario = "ALIASPROBE_FAKE_SCENARIO"
)

// Lines the fake oracle plants in a module to steer the fake backend and
// size tool.
const (
	markCompileError = "; fake: compile-error"
	markSizeError    = "; fake: size-error"
)

// MaybeRunFake turns the current process into a fake tool when EnvFake is
// set. Call it first thing in TestMain of any package whose tests spawn
// collaborators through FakeConfig.
func MaybeRunFake() {
	if os.Getenv(EnvFake) == "" {
		return
	}
	os.Exit(Main(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// FakeConfig returns a config whose tools re-execute the test binary as fake
// collaborators playing scenarioPath. Each call gets its own workdir.
func FakeConfig(t testing.TB, scenarioPath string) *config.Config {
	t.Helper()
	t.Setenv(EnvFake, "1")
	t.Setenv(EnvScenario, scenarioPath)

	exe, err := os.Executable()
	if err != nil {
		t.Fatalf("locate test binary: %v", err)
	}

	cfg := config.Default()
	cfg.Frontend = config.Tool{Path: exe, Args: []string{"frontend", config.PlaceholderInput, config.PlaceholderOutput}}
	cfg.Oracle = config.Tool{Path: exe, Args: []string{"oracle", config.PlaceholderInput}}
	cfg.Backend = config.Tool{Path: exe, Args: []string{"backend", config.PlaceholderInput, config.PlaceholderOutput}}
	cfg.SizeTool = config.Tool{Path: exe, Args: []string{"size", config.PlaceholderInput}}
	cfg.WorkDir = t.TempDir()
	cfg.QueryTimeout = "10s"
	cfg.ToolTimeout = "30s"
	return cfg
}

// Main dispatches on the tool role in args[0] and returns an exit status.
func Main(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "fake: missing role")
		return 2
	}

	var err error
	switch role, rest := args[0], args[1:]; role {
	case "oracle":
		err = mainOracle(rest, stdin, stdout)
	case "frontend", "backend":
		err = mainCopy(role, rest)
	case "size":
		return mainSize(rest, stdout, stderr)
	default:
		err = fmt.Errorf("unknown role %q", role)
	}
	if err != nil {
		fmt.Fprintf(stderr, "fake %s: %v\n", args[0], err)
		return 1
	}
	return 0
}

func mainOracle(args []string, stdin io.Reader, stdout io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: oracle <module>")
	}
	sc, err := LoadScenario(os.Getenv(EnvScenario))
	if err != nil {
		return err
	}
	module, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	w := bufio.NewWriter(stdout)
	defer w.Flush()
	return RunOracle(context.Background(), sc, string(module), stdin, &flushWriter{w})
}

// mainCopy plays the front-end and backend: copy input to output unless the
// input carries the compile-error mark.
func mainCopy(role string, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: %s <input> <output>", role)
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	if bytes.Contains(data, []byte(markCompileError)) {
		return fmt.Errorf("%s: error: use of undefined value", args[0])
	}
	return os.WriteFile(args[1], data, 0644)
}

// mainSize prints an llvm-size style report. Each function costs 64 bytes
// of text on top of a 32 byte floor.
func mainSize(args []string, stdout, stderr io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(stderr, "usage: size <artifact>")
		return 2
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(stderr, "llvm-size: error: '%s': %v\n", args[0], err)
		return 1
	}
	if bytes.Contains(data, []byte(markSizeError)) {
		// Diagnostics with a clean exit and a plausible report.
		fmt.Fprintf(stderr, "llvm-size: warning: '%s': truncated section table\n", args[0])
	}
	text := 32 + 64*FunctionCount(string(data))
	data8, bss := 8, 4
	dec := text + data8 + bss
	fmt.Fprintf(stdout, "   text\t   data\t    bss\t    dec\t    hex\tfilename\n")
	fmt.Fprintf(stdout, "%7d\t%7d\t%7d\t%7d\t%7x\t%s\n", text, data8, bss, dec, dec, args[0])
	return 0
}

// FunctionCount counts "define" lines in a module.
func FunctionCount(module string) int {
	n := 0
	for _, line := range strings.Split(module, "\n") {
		if strings.HasPrefix(line, "define ") {
			n++
		}
	}
	return n
}

// SizeOf returns the size the fake size tool reports for a module with the
// given number of functions.
func SizeOf(functions int) int64 {
	return int64(32 + 64*functions + 8 + 4)
}

// RunOracle plays sc against the harness on the other end of in and out.
// The module text is echoed after the header, followed by scenario-driven
// extras and a trailer recording every answer received.
func RunOracle(ctx context.Context, sc *Scenario, module string, in io.Reader, out io.Writer) error {
	r := bufio.NewReader(in)
	var answers []string
	var overridden []int
	may := 0

	for i := 0; ; i++ {
		switch {
		case sc.FailAfter != nil && *sc.FailAfter == i:
			_, err := fmt.Fprintln(out, "Failed to run alias analysis on module")
			return err
		case sc.HangAfter != nil && *sc.HangAfter == i:
			<-ctx.Done()
			return ctx.Err()
		case sc.ExitAfter != nil && *sc.ExitAfter == i:
			return nil
		}
		if i == len(sc.Queries) {
			break
		}

		q := sc.Queries[i]
		if _, err := fmt.Fprintf(out, "AA q%d %s: %%p%d, %%p%d\n", i, q, i, i+1); err != nil {
			return err
		}
		reply, err := r.ReadString('\n')
		if err != nil {
			return fmt.Errorf("query %d: read reply: %w", i, err)
		}
		code, err := strconv.Atoi(strings.TrimSuffix(reply, "\n"))
		if err != nil || code < 0 || code > 3 {
			return fmt.Errorf("query %d: bad reply %q", i, reply)
		}
		answers = append(answers, strconv.Itoa(code))
		if q == string(alias.MayAlias) {
			if alias.Code(code) != alias.CodeMayAlias {
				overridden = append(overridden, may)
				if slices.Contains(sc.FailOnOverride, may) {
					_, err := fmt.Fprintf(out, "Failed to verify module after query %d\n", i)
					return err
				}
			}
			may++
		}
	}

	if _, err := fmt.Fprintf(out, "; ModuleID = '%s'\n", sc.Name); err != nil {
		return err
	}
	var b strings.Builder
	b.WriteString(module)
	for _, k := range overridden {
		if slices.Contains(sc.Sensitive, k) {
			fmt.Fprintf(&b, "define void @elided%d() {\n  ret void\n}\n", k)
		}
		if slices.Contains(sc.CompileFail, k) {
			b.WriteString(markCompileError + "\n")
		}
		if slices.Contains(sc.MeasureFail, k) {
			b.WriteString(markSizeError + "\n")
		}
	}
	fmt.Fprintf(&b, "; answers: %s\n", strings.Join(answers, " "))
	_, err := io.WriteString(out, b.String())
	return err
}

// flushWriter flushes after every write so each protocol line reaches the
// harness before the oracle blocks on its reply.
type flushWriter struct {
	w *bufio.Writer
}

func (f *flushWriter) Write(p []byte) (int, error) {
	n, err := f.w.Write(p)
	if err != nil {
		return n, err
	}
	return n, f.w.Flush()
}
