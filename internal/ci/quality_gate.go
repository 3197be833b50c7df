// Package ci evaluates a completed run's report.Summary against a
// quality gate and writes the CI-specific report, grounded on the
// teacher's internal/ci/quality_gate.go and reporter.go. The teacher's
// GitHub PR-comment integration and Slack notification config have no
// analogue here: nothing in this spec has a networking collaborator to
// post them through, so that surface was dropped rather than stubbed
// (see DESIGN.md).
package ci

import (
	"fmt"

	"github.com/sivchari/mutir/internal/report"
)

// QualityGateResult is the outcome of evaluating a report.Summary.
type QualityGateResult struct {
	Pass          bool    `json:"pass"`
	MutationScore float64 `json:"mutationScore"`
	Survivors     int     `json:"survivors"`
	Reason        string  `json:"reason"`
}

// QualityGateEvaluator checks a run's mutation score and survivor count
// against configured thresholds.
type QualityGateEvaluator struct {
	enabled      bool
	minScore     float64
	maxSurvivors int // 0 means unbounded
}

// NewQualityGateEvaluator creates an evaluator. maxSurvivors <= 0 means
// no survivor-count ceiling.
func NewQualityGateEvaluator(enabled bool, minScore float64, maxSurvivors int) *QualityGateEvaluator {
	return &QualityGateEvaluator{enabled: enabled, minScore: minScore, maxSurvivors: maxSurvivors}
}

// Evaluate checks summary against the configured thresholds.
func (e *QualityGateEvaluator) Evaluate(summary *report.Summary) *QualityGateResult {
	if summary == nil || summary.TotalMutants == 0 {
		return &QualityGateResult{Reason: "no mutants generated"}
	}

	score := summary.Statistics.Score
	survivors := summary.Statistics.Survived

	if !e.enabled {
		return &QualityGateResult{Pass: true, MutationScore: score, Survivors: survivors, Reason: "quality gate disabled"}
	}

	if e.maxSurvivors > 0 && survivors > e.maxSurvivors {
		return &QualityGateResult{
			MutationScore: score,
			Survivors:     survivors,
			Reason:        fmt.Sprintf("%d surviving mutants exceeds maximum of %d", survivors, e.maxSurvivors),
		}
	}

	if score < e.minScore {
		return &QualityGateResult{
			MutationScore: score,
			Survivors:     survivors,
			Reason:        fmt.Sprintf("mutation score %.1f%% is below minimum threshold of %.1f%%", score, e.minScore),
		}
	}

	return &QualityGateResult{
		Pass:          true,
		MutationScore: score,
		Survivors:     survivors,
		Reason:        "mutation score meets minimum threshold",
	}
}
