// Package mutir provides the main API for mutation testing over LLVM-IR
// modules, grounded on sivchari/gomu's pkg/gomu/engine.go: one Engine struct
// bundling every subsystem, a single Run entry point sequencing
// load-then-mutate-then-report-then-CI, and verbose logging throughout.
//
// Unlike sivchari/gomu's Engine, which owns its own file-discovery and
// Go-source mutation generation, this Engine is handed its native-toolchain
// collaborators (ModuleLoader, CodeGenerator, Linker) by the caller: those
// three interfaces are this spec's sole I/O boundary to the real compiler
// and linker (spec.md §1, §9), and nothing in this core should fabricate a
// native backend.
package mutir

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sivchari/mutir/internal/ci"
	"github.com/sivchari/mutir/internal/compiler"
	"github.com/sivchari/mutir/internal/config"
	"github.com/sivchari/mutir/internal/diagnostics"
	"github.com/sivchari/mutir/internal/digest"
	"github.com/sivchari/mutir/internal/history"
	"github.com/sivchari/mutir/internal/ignore"
	"github.com/sivchari/mutir/internal/junk"
	"github.com/sivchari/mutir/internal/mutate"
	"github.com/sivchari/mutir/internal/pipeline"
	"github.com/sivchari/mutir/internal/report"
	"github.com/sivchari/mutir/internal/runner"
	"github.com/sivchari/mutir/internal/store"
)

// Collaborators bundles the native-toolchain boundary a caller must supply:
// bitcode parsing, native code generation, and link-and-run, standing in
// for the real compiler/JIT/linker this core never touches directly.
type Collaborators struct {
	Loader store.ModuleLoader
	Gen    compiler.CodeGenerator
	Linker runner.Linker
}

// Engine is the main mutation testing engine, wiring together the Module
// Store, Compiler, Test Finder, mutation operator registry, Junk Detector,
// Test Runner, and Pipeline Driver (spec.md §1's component list) plus the
// history/report/CI supplements.
type Engine struct {
	cfg   *config.Config
	log   *diagnostics.Logger
	store *store.Store
	comp  *compiler.Compiler
	ops   []mutate.Operator
	jd    *junk.Detector
	run   *runner.Runner
	hist  *history.Store
	rep   *report.Generator

	ciMode bool
}

// New creates an Engine from its configuration and native-toolchain
// collaborators.
func New(cfg *config.Config, collab Collaborators, out io.Writer) (*Engine, error) {
	log := diagnostics.New(cfg.Verbose, out)

	ops, err := operatorsFor(cfg.Mutation.Operators)
	if err != nil {
		return nil, fmt.Errorf("mutir: %w", err)
	}

	jd, err := newJunkDetector(cfg)
	if err != nil {
		return nil, fmt.Errorf("mutir: %w", err)
	}

	hist, err := history.New(cfg.Incremental.HistoryFile)
	if err != nil {
		return nil, fmt.Errorf("mutir: history: %w", err)
	}

	return &Engine{
		cfg:    cfg,
		log:    log,
		store:  store.New(collab.Loader),
		comp:   compiler.New(collab.Gen),
		ops:    ops,
		jd:     jd,
		run:    runner.New(collab.Linker, time.Duration(cfg.Test.TimeoutSeconds)*time.Second),
		hist:   hist,
		rep:    report.New(cfg),
		ciMode: cfg.CI.Enabled,
	}, nil
}

func operatorsFor(names []string) ([]mutate.Operator, error) {
	if len(names) == 0 {
		return mutate.Default().Operators(), nil
	}

	var ops []mutate.Operator

	for _, name := range names {
		switch name {
		case "conditionals_boundary":
			ops = append(ops, &mutate.ConditionalsBoundaryOperator{})
		case "math_add":
			ops = append(ops, &mutate.MathAddOperator{})
		case "math_sub":
			ops = append(ops, &mutate.MathSubOperator{})
		default:
			return nil, fmt.Errorf("unknown mutation operator %q", name)
		}
	}

	return ops, nil
}

func newJunkDetector(cfg *config.Config) (*junk.Detector, error) {
	var db *junk.CompilationDatabase

	if cfg.CXX.CompilationDatabaseDir != "" {
		loaded, err := junk.LoadCompilationDatabase(cfg.CXX.CompilationDatabaseDir)
		if err == nil {
			db = loaded
		}
	}

	return junk.New(db, cfg.CXX.CompilationFlags), nil
}

// Run loads every configured bitcode Module, builds the baseline, and runs
// the full mutation pipeline, producing a report.Summary. In CI mode, it
// also evaluates the quality gate and returns an error if it fails and is
// configured to fail the build (spec.md §7's non-fatal taxonomy still
// governs per-mutant/per-test failures recorded inside the Summary; only a
// quality-gate failure or a fatal pre-run error surfaces here).
func (e *Engine) Run(ctx context.Context) (*report.Summary, error) {
	start := time.Now()

	e.log.Infof("loading %d bitcode module(s)", len(e.cfg.Bitcode.Paths))

	ign := ignore.New()
	if e.cfg.Ignore.File != "" {
		if err := ign.LoadFromFile(e.cfg.Ignore.File); err != nil {
			e.log.Warnf("ignore file: %v", err)
		}
	}

	for _, path := range e.cfg.Bitcode.Paths {
		if ign.ShouldIgnore(path) {
			e.log.Infof("skipping ignored module %s", path)

			continue
		}

		if _, err := e.store.Load(path); err != nil {
			return nil, fmt.Errorf("mutir: %w", err)
		}
	}

	baseline, err := pipeline.BuildBaseline(e.store, e.comp)
	if err != nil {
		return nil, fmt.Errorf("mutir: %w", err)
	}

	driver := pipeline.New(e.store, e.comp, e.ops, e.jd, e.run, e.log)
	runDigest := combinedDigest(e.cfg.Bitcode.Paths)

	// In CI mode, the ci.Engine owns the full run-report-gate-history
	// sequence so a quality-gate failure and the CI report stay consistent
	// with a single pipeline execution; outside CI mode this Engine runs
	// the pipeline itself and skips the gate entirely.
	if e.ciMode {
		engine := ci.NewEngine(e.cfg, driver, baseline, e.hist, runDigest)

		return engine.Run(ctx)
	}

	var results []pipeline.TestResult

	if e.cfg.Workers > 1 {
		e.log.Infof("running with %d workers", e.cfg.Workers)

		// The injected CodeGenerator/Linker are shared across workers here;
		// RunConcurrent's WorkerFactory exists so a caller with per-worker
		// native-toolchain instances can hand out a distinct one per call.
		// Callers running genuinely concurrent native compiles/links must
		// supply thread-safe (or pooled) collaborators.
		mkWorker := func() (*compiler.Compiler, *runner.Runner) {
			return e.comp, e.run
		}

		results, err = pipeline.RunConcurrent(ctx, e.store, mkWorker, e.ops, e.jd, e.log, e.cfg.Workers)
	} else {
		results, err = driver.Run(ctx, baseline)
	}

	if err != nil {
		return nil, fmt.Errorf("mutir: %w", err)
	}

	summary, err := e.rep.Generate(results, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("mutir: %w", err)
	}

	if e.cfg.Incremental.Enabled {
		for _, tr := range results {
			e.hist.Update(tr.Test.DisplayName, runDigest, []pipeline.TestResult{tr})
		}

		if err := e.hist.Save(); err != nil {
			e.log.Warnf("save history: %v", err)
		}
	}

	e.log.Infof("mutation testing completed in %v", time.Since(start))

	return summary, nil
}

// combinedDigest hashes every configured bitcode path (ignored ones
// included; unreadable ones are left out) and concatenates the digests in
// path order into one run-level digest. It is deliberately not
// per-Module: pipeline.TestResult has no Module field to key a finer digest
// against (see the Update call sites' doc comments).
func combinedDigest(paths []string) string {
	hasher := digest.New()

	var combined string

	for _, path := range paths {
		if d, err := hasher.HashFile(path); err == nil {
			combined += d
		}
	}

	return combined
}
