// Package pipeline runs the builder and validator over many functions in
// parallel and gates interpretation on a clean validation report.
//
// Each function's graph is owned by the goroutine processing it; no state is
// shared between units, so one function's failure never affects another.
package pipeline

import (
	"context"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/cfgir/internal/ast"
	"github.com/roach88/cfgir/internal/builder"
	"github.com/roach88/cfgir/internal/interp"
	"github.com/roach88/cfgir/internal/ir"
	"github.com/roach88/cfgir/internal/validate"
)

// Unit is the outcome of building and validating one function.
type Unit struct {
	Function string

	// Build is nil when Err is set.
	Build *builder.Result

	// Report is the zero Report when Err is set.
	Report validate.Report

	// Err is a *builder.MalformedProgram when lowering failed.
	Err error
}

// Graph returns the built graph, or nil.
func (u Unit) Graph() *ir.Graph {
	if u.Build == nil {
		return nil
	}
	return u.Build.Graph
}

// OK reports whether the unit built and validated without fatal violations.
func (u Unit) OK() bool {
	return u.Err == nil && u.Report.OK()
}

// Option configures CompileAll.
type Option func(*config)

type config struct {
	jobs   int
	logger *slog.Logger
}

// WithJobs bounds the number of functions compiled at once.
// Values below 1 mean runtime.GOMAXPROCS(0).
func WithJobs(n int) Option {
	return func(c *config) {
		c.jobs = n
	}
}

// WithLogger sets the logger for per-function outcomes.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// CompileAll builds and validates every function. Units are returned in the
// order of fns. The error is non-nil only when ctx is cancelled; per-function
// failures are reported in Unit.Err and Unit.Report.
func CompileAll(ctx context.Context, fns []*ast.Function, opts ...Option) ([]Unit, error) {
	cfg := config{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.jobs < 1 {
		cfg.jobs = runtime.GOMAXPROCS(0)
	}

	units := make([]Unit, len(fns))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.jobs)

	for i, fn := range fns {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			units[i] = compileOne(fn, cfg.logger)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return units, nil
}

func compileOne(fn *ast.Function, logger *slog.Logger) Unit {
	u := Unit{Function: fn.Name}

	res, err := builder.Build(fn, builder.WithLogger(logger))
	if err != nil {
		logger.Info("build failed", "function", fn.Name, "error", err)
		u.Err = err
		return u
	}
	u.Build = res
	u.Report = validate.Validate(res.Graph)

	logger.Debug("compiled",
		"function", fn.Name,
		"blocks", res.Graph.Len(),
		"fatal", len(u.Report.Fatal()),
		"warnings", len(u.Report.Warnings()))
	return u
}

// Execute validates g and, only if it has no fatal violations, runs it.
// An invalid graph yields a *validate.InvalidGraphError and is never run.
func Execute(ctx context.Context, it *interp.Interpreter, g *ir.Graph, inputs map[string]ir.Constant) (*interp.Outcome, error) {
	if err := validate.Validate(g).Err(); err != nil {
		return nil, err
	}
	return it.Run(ctx, g, inputs)
}
