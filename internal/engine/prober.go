package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/aliasprobe/internal/alias"
	"github.com/roach88/aliasprobe/internal/channel"
	"github.com/roach88/aliasprobe/internal/metrics"
	"github.com/roach88/aliasprobe/internal/report"
)

// Builder compiles and measures modules. *pipeline.Pipeline implements it.
type Builder interface {
	Compile(ctx context.Context, module, out string, index int) (alias.CompiledArtifact, error)
	MeasureSize(ctx context.Context, artifact string, index int) (int64, error)
}

// Options configures a Prober.
type Options struct {
	// WorkDir receives module.base.ll, file<k>.ll, and file<k>.out.
	WorkDir string

	// Workers bounds concurrent substitutions. Values below 1 mean 1.
	Workers int

	// Policy supplies the override code and index selection.
	Policy Policy

	// IDs generates run IDs. Nil means UUIDv7Generator.
	IDs IDGenerator

	// Logger receives progress. Nil discards.
	Logger *slog.Logger

	// Metrics records replay and outcome counts. Nil records nothing.
	Metrics *metrics.Recorder
}

// Prober measures how sensitive one module's code size is to each
// ambiguous alias decision the oracle makes while optimizing it.
type Prober struct {
	module  string
	oracle  channel.Oracle
	builder Builder
	opts    Options
	logger  *slog.Logger
}

// New creates a prober for module. oracle must be bound to the same module.
func New(module string, oracle channel.Oracle, builder Builder, opts Options) *Prober {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.IDs == nil {
		opts.IDs = UUIDv7Generator{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Prober{
		module:  module,
		oracle:  oracle,
		builder: builder,
		opts:    opts,
		logger:  logger,
	}
}

// Baseline is the result of the identity replay.
type Baseline struct {
	// MayAliasCount is M, the number of MayAlias queries.
	MayAliasCount int

	// Queries is the total number of queries answered.
	Queries int

	// ModulePath is where the identity replay's module was written.
	ModulePath string

	// Stream holds every answered query.
	Stream *alias.DecisionStream
}

// BaselineModulePath returns the path of the identity replay's module.
func (p *Prober) BaselineModulePath() string {
	return filepath.Join(p.opts.WorkDir, "module.base.ll")
}

// ModulePath returns the path of the module produced by substituting index k.
func (p *Prober) ModulePath(k int) string {
	return filepath.Join(p.opts.WorkDir, fmt.Sprintf("file%d.ll", k))
}

// ArtifactPath returns the path of the artifact compiled for index k.
func (p *Prober) ArtifactPath(k int) string {
	return filepath.Join(p.opts.WorkDir, fmt.Sprintf("file%d.out", k))
}

// Count replays the oracle with every query answered as computed and
// counts the MayAlias queries. Any failure here is fatal to a probe.
func (p *Prober) Count(ctx context.Context) (*Baseline, error) {
	path := p.BaselineModulePath()
	stream, err := p.replay(ctx, p.opts.Policy.Baseline(), path)
	if err != nil {
		return nil, fmt.Errorf("baseline replay: %w", err)
	}
	b := &Baseline{
		MayAliasCount: stream.MayAliasCount(),
		Queries:       stream.Len(),
		ModulePath:    path,
		Stream:        stream,
	}
	p.logger.Info("baseline replay finished",
		"queries", b.Queries,
		"may_alias", b.MayAliasCount,
		"module", path,
	)
	return b, nil
}

// Substitute replays the oracle with only plan's target overridden and
// writes the resulting module to file<k>.ll. Failures are tagged with k.
func (p *Prober) Substitute(ctx context.Context, plan alias.SubstitutionPlan) (string, *alias.DecisionStream, error) {
	path := p.ModulePath(plan.Target)
	stream, err := p.replay(ctx, plan, path)
	if err != nil {
		var fe *alias.FailureError
		if errors.As(err, &fe) {
			return path, stream, fe.WithIndex(plan.Target)
		}
		return path, stream, fmt.Errorf("replay index %d: %w", plan.Target, err)
	}
	return path, stream, nil
}

// replay runs one oracle pass under plan, writing the module to path.
func (p *Prober) replay(ctx context.Context, plan alias.SubstitutionPlan, path string) (*alias.DecisionStream, error) {
	if err := os.MkdirAll(p.opts.WorkDir, 0755); err != nil {
		return nil, fmt.Errorf("create workdir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create module file: %w", err)
	}
	w := bufio.NewWriter(f)

	start := time.Now()
	stream, err := p.oracle.Replay(ctx, plan, w)
	if err == nil {
		err = w.Flush()
	}
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close module file: %w", cerr)
	}

	queries := 0
	if stream != nil {
		queries = stream.Len()
	}
	result := "ok"
	if err != nil {
		result = "error"
		if code := alias.CodeOf(err); code != "" {
			result = string(code)
		}
	}
	p.opts.Metrics.ObserveReplay(result, queries, time.Since(start))
	return stream, err
}

// Run performs a complete probe: the baseline replay, the baseline
// compile and measure, then one substitution per selected index.
//
// Per-index failures become records. An error is returned only when the
// baseline cannot be established or ctx is cancelled; in the latter case
// the partial report is returned along with ctx's error.
func (p *Prober) Run(ctx context.Context) (*report.Report, error) {
	base, err := p.Count(ctx)
	if err != nil {
		return nil, err
	}

	size0, err := p.measureBaseline(ctx)
	if err != nil {
		return nil, err
	}

	plans, err := p.opts.Policy.Plans(base.MayAliasCount)
	if err != nil {
		return nil, err
	}

	rep := report.New(p.opts.IDs.Generate(), p.module, p.opts.Policy.Override)
	rep.MayAliasCount = base.MayAliasCount
	rep.Queries = base.Queries
	rep.Selected = len(plans)
	rep.BaselineSize = size0

	p.logger.Info("probing substitutions",
		"run_id", rep.RunID,
		"selected", len(plans),
		"may_alias", base.MayAliasCount,
		"baseline_size", size0,
		"workers", p.opts.Workers,
	)

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(p.opts.Workers)
	for _, plan := range plans {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			rec, ok := p.probe(ctx, plan, size0)
			if !ok {
				return nil
			}
			mu.Lock()
			rep.Add(rec)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return rep, fmt.Errorf("probe interrupted after %d of %d indices: %w", len(rep.Records), len(plans), err)
	}
	if err := rep.Check(); err != nil {
		return rep, fmt.Errorf("inconsistent report: %w", err)
	}
	return rep, nil
}

// measureBaseline compiles and measures the unmodified input module.
func (p *Prober) measureBaseline(ctx context.Context) (int64, error) {
	out := filepath.Join(p.opts.WorkDir, "module.out")
	art, err := p.builder.Compile(ctx, p.module, out, -1)
	if err != nil {
		return 0, fmt.Errorf("baseline compile: %w", err)
	}
	size, err := p.builder.MeasureSize(ctx, art.Path, -1)
	if err != nil {
		return 0, fmt.Errorf("baseline measure: %w", err)
	}
	p.logger.Info("baseline measured", "size", size)
	return size, nil
}

// probe substitutes, compiles, and measures one index. It reports false
// when cancellation of ctx cut the index short; such an index gets no
// record, so the report shows the run as interrupted.
func (p *Prober) probe(ctx context.Context, plan alias.SubstitutionPlan, size0 int64) (report.Record, bool) {
	k := plan.Target
	rec := p.build(ctx, plan, size0)
	if rec.Outcome != report.OutcomeMatch && rec.Outcome != report.OutcomeDivergence && ctx.Err() != nil {
		p.logger.Debug("index interrupted", "index", k, "error", rec.Detail)
		return rec, false
	}
	p.opts.Metrics.ObserveRecord(string(rec.Outcome))

	switch rec.Outcome {
	case report.OutcomeMatch:
		p.logger.Debug("index measured", "index", k, "outcome", rec.Outcome, "size", rec.Size)
	case report.OutcomeDivergence:
		p.logger.Info("index measured", "index", k, "outcome", rec.Outcome, "size", rec.Size, "delta", rec.Delta())
	default:
		p.logger.Warn("index failed", "index", k, "outcome", rec.Outcome, "error", rec.Detail)
	}
	return rec, true
}

func (p *Prober) build(ctx context.Context, plan alias.SubstitutionPlan, size0 int64) report.Record {
	k := plan.Target
	module, stream, err := p.Substitute(ctx, plan)
	queries := 0
	if stream != nil {
		queries = stream.Len()
	}
	record := func(size int64, err error) report.Record {
		rec := report.Classify(k, size0, size, err)
		rec.Queries = queries
		return rec
	}
	if err != nil {
		return record(0, err)
	}

	art, err := p.builder.Compile(ctx, module, p.ArtifactPath(k), k)
	if err != nil {
		return record(0, stageError(alias.ErrCodeCompileFailure, k, err))
	}

	size, err := p.builder.MeasureSize(ctx, art.Path, k)
	if err != nil {
		return record(0, stageError(alias.ErrCodeMeasurementFailure, k, err))
	}
	return record(size, nil)
}

// stageError attributes a tool timeout to the stage it interrupted, so a
// hung backend is reported as a compile failure rather than a replay one.
func stageError(code alias.FailureCode, index int, err error) error {
	if alias.IsTimeout(err) {
		return alias.NewFailure(code, index, "tool timed out", err)
	}
	return err
}
