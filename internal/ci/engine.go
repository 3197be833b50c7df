package ci

import (
	"context"
	"fmt"
	"time"

	"github.com/sivchari/mutir/internal/config"
	"github.com/sivchari/mutir/internal/history"
	"github.com/sivchari/mutir/internal/pipeline"
	"github.com/sivchari/mutir/internal/report"
)

// Engine runs a Driver, generates a report, evaluates the quality gate,
// and persists history, grounded on sivchari/gomu's internal/ci/engine.go.
// Unlike sivchari/gomu's Engine, this one accepts an already-built
// pipeline.Driver and Baseline rather than constructing a mutation.Engine
// itself, since Driver construction needs per-run collaborators (Store,
// Compiler, Runner) that only pkg/mutir's façade has in hand.
type Engine struct {
	cfg      *config.Config
	driver   *pipeline.Driver
	baseline *pipeline.Baseline
	history  *history.Store
	digest   string
	gate     *QualityGateEvaluator
	reporter *Reporter
	ciReport *report.Generator
}

// NewEngine wires an Engine from its collaborators. digest is the content
// digest history.Update records against this run's results — typically a
// combination of every configured bitcode file's hash, computed by the caller via
// internal/digest (see pkg/mutir.Engine.Run).
func NewEngine(cfg *config.Config, driver *pipeline.Driver, baseline *pipeline.Baseline, hist *history.Store, digest string) *Engine {
	outputFormat := "json"
	if len(cfg.CI.Reports.Formats) > 0 {
		outputFormat = cfg.CI.Reports.Formats[0]
	}

	return &Engine{
		cfg:      cfg,
		driver:   driver,
		baseline: baseline,
		history:  hist,
		digest:   digest,
		gate: NewQualityGateEvaluator(
			cfg.CI.QualityGate.Enabled,
			cfg.CI.QualityGate.MinMutationScore,
			cfg.CI.QualityGate.MaxSurvivors,
		),
		reporter: NewReporter(cfg.CI.Reports.OutputDir, outputFormat),
		ciReport: report.New(cfg),
	}
}

// Run executes the full CI workflow: run the pipeline, report, evaluate
// the gate, persist history, and return an error if the gate fails and
// is configured to fail the build. The report.Summary is always returned,
// even when the gate fails, so a caller can still inspect or display it.
func (e *Engine) Run(ctx context.Context) (*report.Summary, error) {
	start := time.Now()

	results, err := e.driver.Run(ctx, e.baseline)
	if err != nil {
		return nil, fmt.Errorf("pipeline run: %w", err)
	}

	summary, err := e.ciReport.Generate(results, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("generate report: %w", err)
	}

	gateResult := e.gate.Evaluate(summary)

	if err := e.reporter.Generate(summary, gateResult); err != nil {
		return summary, fmt.Errorf("generate CI report: %w", err)
	}

	if e.history != nil {
		// Keyed by test display name rather than Module source path:
		// pipeline.TestResult does not carry which Module it exercised, so
		// the finest key available here is the test itself. digest is a
		// whole-run content digest (every configured bitcode file's hash combined),
		// which still lets Unchanged detect "nothing changed since last
		// time" even though it cannot isolate which Module changed.
		for _, tr := range results {
			e.history.Update(tr.Test.DisplayName, e.digest, []pipeline.TestResult{tr})
		}

		if err := e.history.Save(); err != nil {
			return summary, fmt.Errorf("save history: %w", err)
		}
	}

	if !gateResult.Pass && e.cfg.CI.QualityGate.FailOnQualityGate {
		return summary, fmt.Errorf("quality gate failed: %s", gateResult.Reason)
	}

	return summary, nil
}
