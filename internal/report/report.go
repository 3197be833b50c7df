// Package report renders a completed run's Test Results as the
// test:/baseline:/mutants: structure (spec.md §6), grounded on the
// teacher's internal/report/generator.go (a Summary struct, a
// format-switching Generate, JSON via json.MarshalIndent and text via
// fmt.Sprintf). The teacher's third format, HTML (a large inline
// text/template with client-side JS filtering), has no analogue here:
// it is a decorative rendering concern with nothing of this spec's
// semantics behind it, so it is not carried forward (see DESIGN.md).
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sivchari/mutir/internal/config"
	"github.com/sivchari/mutir/internal/ir"
	"github.com/sivchari/mutir/internal/mutate"
	"github.com/sivchari/mutir/internal/pipeline"
	"github.com/sivchari/mutir/internal/result"
)

const mutirVersion = "0.1.0"

// Summary is the complete result of a run (spec.md §6). Tests holds the
// live pipeline.TestResults for in-process consumers (the quality gate,
// the history store); it is deliberately excluded from JSON — a
// pipeline.TestResult carries live *ir.Instruction graph pointers
// (testfinder.Test.Function, mutate.Point.Inst, transitively every
// Operand.Ref) that would otherwise dump the entire IR graph into every
// report. ReportedTests is the serialized projection (spec.md §6's
// test:/baseline:/mutants:{operator,location,result} shape), matching
// the same split already used by internal/history.Summarize and
// internal/ci.CIReport.
type Summary struct {
	Tests         []pipeline.TestResult `json:"-"`
	ReportedTests []ReportedTest        `json:"tests"`
	TotalMutants  int                   `json:"totalMutants"`
	KilledMutants int                   `json:"killedMutants"`
	Statistics    Statistics            `json:"statistics"`
	Duration      time.Duration         `json:"duration"`
	Timestamp     time.Time             `json:"timestamp"`
	Version       string                `json:"version"`
}

// ReportedTest is the durable, JSON-safe projection of one
// pipeline.TestResult.
type ReportedTest struct {
	Name     string           `json:"name"`
	Baseline result.Status    `json:"baseline"`
	Mutants  []ReportedMutant `json:"mutants"`
}

// ReportedMutant is the durable projection of one pipeline.MutationResult:
// just the operator, the source location it targeted, and the outcome.
type ReportedMutant struct {
	Operator mutate.Kind   `json:"operator"`
	Location string        `json:"location"`
	Result   result.Status `json:"result"`
}

func projectTests(tests []pipeline.TestResult) []ReportedTest {
	reported := make([]ReportedTest, 0, len(tests))

	for _, tr := range tests {
		rt := ReportedTest{Name: tr.Test.DisplayName, Baseline: tr.Baseline.Status}

		for _, m := range tr.Mutants {
			rt.Mutants = append(rt.Mutants, ReportedMutant{
				Operator: m.Point.Operator,
				Location: formatLocation(m.Point.Loc),
				Result:   m.Execution.Status,
			})
		}

		reported = append(reported, rt)
	}

	return reported
}

func formatLocation(loc *ir.SourceLocation) string {
	if loc == nil {
		return "<unknown>"
	}

	return fmt.Sprintf("%s:%d:%d", loc.Path, loc.Line, loc.Column)
}

// Statistics aggregates Execution Result statuses across every Mutation
// Result in a run, broken down per operator kind.
type Statistics struct {
	Killed     int                      `json:"killed"`
	Survived   int                      `json:"survived"`
	Invalid    int                      `json:"invalid"`
	Score      float64                  `json:"mutationScore"`
	ByOperator map[string]OperatorStats `json:"byOperator,omitempty"`
}

// OperatorStats aggregates one operator kind's killed/survived counts.
type OperatorStats struct {
	Total    int `json:"total"`
	Killed   int `json:"killed"`
	Survived int `json:"survived"`
}

// Generator renders a Summary according to cfg.Output.
type Generator struct {
	cfg *config.Config
}

// New creates a Generator.
func New(cfg *config.Config) *Generator {
	return &Generator{cfg: cfg}
}

// Generate computes statistics, stamps the Summary, and writes it in the
// configured format.
func (g *Generator) Generate(tests []pipeline.TestResult, duration time.Duration) (*Summary, error) {
	summary := &Summary{
		Tests:         tests,
		ReportedTests: projectTests(tests),
		Duration:      duration,
		Timestamp:     time.Now(),
		Version:       mutirVersion,
	}

	summary.Statistics = calculateStatistics(tests)
	summary.TotalMutants = summary.Statistics.Killed + summary.Statistics.Survived + summary.Statistics.Invalid
	summary.KilledMutants = summary.Statistics.Killed

	var err error

	switch g.cfg.Output.Format {
	case "text":
		err = g.writeText(summary)
	default:
		err = g.writeJSON(summary)
	}

	return summary, err
}

func calculateStatistics(tests []pipeline.TestResult) Statistics {
	stats := Statistics{ByOperator: make(map[string]OperatorStats)}

	for _, tr := range tests {
		for _, m := range tr.Mutants {
			op := string(m.Point.Operator)
			opStats := stats.ByOperator[op]
			opStats.Total++

			switch m.Execution.Status {
			case result.StatusFailed:
				stats.Killed++
				opStats.Killed++
			case result.StatusPassed:
				stats.Survived++
				opStats.Survived++
			case result.StatusInvalid:
				stats.Invalid++
			}

			stats.ByOperator[op] = opStats
		}
	}

	valid := stats.Killed + stats.Survived
	if valid > 0 {
		stats.Score = float64(stats.Killed) / float64(valid) * 100
	}

	return stats
}

func (g *Generator) writeJSON(summary *Summary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	return g.emit(data)
}

func (g *Generator) writeText(summary *Summary) error {
	return g.emit([]byte(formatText(summary)))
}

func formatText(summary *Summary) string {
	stats := summary.Statistics

	out := fmt.Sprintf(`
Mutation Testing Report
========================

Tests run:      %d
Total mutants:  %d
Duration:       %v

Killed:    %d (%.1f%%)
Survived:  %d (%.1f%%)
Invalid:   %d (%.1f%%)

Mutation Score: %.1f%%

`,
		len(summary.ReportedTests),
		summary.TotalMutants,
		summary.Duration,
		stats.Killed, percentage(stats.Killed, summary.TotalMutants),
		stats.Survived, percentage(stats.Survived, summary.TotalMutants),
		stats.Invalid, percentage(stats.Invalid, summary.TotalMutants),
		stats.Score,
	)

	if stats.Survived > 0 {
		out += "Surviving mutants:\n==================\n"

		for _, rt := range summary.ReportedTests {
			for _, m := range rt.Mutants {
				if m.Result != result.StatusPassed {
					continue
				}

				out += fmt.Sprintf("  %s - %s (test: %s)\n", m.Location, m.Operator, rt.Name)
			}
		}
	}

	return out
}

func (g *Generator) emit(data []byte) error {
	if g.cfg.Output.File != "" {
		if err := os.WriteFile(g.cfg.Output.File, data, 0o600); err != nil {
			return fmt.Errorf("write output file: %w", err)
		}

		return nil
	}

	fmt.Println(string(data))

	return nil
}

func percentage(part, total int) float64 {
	if total == 0 {
		return 0
	}

	return float64(part) / float64(total) * 100
}
