package ci

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sivchari/mutir/internal/report"
)

// Reporter writes the CI-specific report: the run Summary plus the
// quality gate verdict, grounded on sivchari/gomu's internal/ci/reporter.go
// (minus its HTML variant; see internal/report's package doc).
type Reporter struct {
	outputDir string
	format    string
}

// NewReporter creates a Reporter.
func NewReporter(outputDir, format string) *Reporter {
	return &Reporter{outputDir: outputDir, format: format}
}

// CIReport is the JSON shape written for CI consumption.
type CIReport struct {
	MutationScore float64   `json:"mutationScore"`
	TotalMutants  int       `json:"totalMutants"`
	Killed        int       `json:"killed"`
	Survived      int       `json:"survived"`
	QualityGate   bool      `json:"qualityGatePassed"`
	Reason        string    `json:"qualityGateReason"`
	Timestamp     time.Time `json:"timestamp"`
}

// Generate writes the report according to r.format ("console" prints and
// returns; anything else, including the default, writes JSON).
func (r *Reporter) Generate(summary *report.Summary, gate *QualityGateResult) error {
	if r.format == "console" {
		r.printConsole(summary, gate)

		return nil
	}

	return r.writeJSON(summary, gate)
}

func (r *Reporter) writeJSON(summary *report.Summary, gate *QualityGateResult) error {
	out := CIReport{
		MutationScore: gate.MutationScore,
		TotalMutants:  summary.TotalMutants,
		Killed:        summary.Statistics.Killed,
		Survived:      summary.Statistics.Survived,
		QualityGate:   gate.Pass,
		Reason:        gate.Reason,
		Timestamp:     time.Now(),
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal CI report: %w", err)
	}

	path := filepath.Join(r.outputDir, "mutir-ci-report.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write CI report: %w", err)
	}

	return nil
}

func (r *Reporter) printConsole(summary *report.Summary, gate *QualityGateResult) {
	status := "FAILED"
	if gate.Pass {
		status = "PASSED"
	}

	fmt.Printf("Mutation score: %.1f%%\n", gate.MutationScore)
	fmt.Printf("Quality gate:   %s (%s)\n", status, gate.Reason)
	fmt.Printf("Total mutants:  %d (killed %d, survived %d)\n",
		summary.TotalMutants, summary.Statistics.Killed, summary.Statistics.Survived)
}
