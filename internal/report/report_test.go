package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sivchari/mutir/internal/config"
	"github.com/sivchari/mutir/internal/ir"
	"github.com/sivchari/mutir/internal/mutate"
	"github.com/sivchari/mutir/internal/pipeline"
	"github.com/sivchari/mutir/internal/result"
	"github.com/sivchari/mutir/internal/testfinder"
)

// sampleTests populates Test.Function and Point.Inst with non-nil IR
// nodes carrying a distinctive, greppable name, so a test can assert
// those nodes never reach the JSON report.
func sampleTests() []pipeline.TestResult {
	entryFn := &ir.Function{Name: "main"}
	taintedInst := &ir.Instruction{Opcode: ir.OpAdd, DebugLoc: &ir.SourceLocation{Path: "math.c", Line: 5, Column: 10}}

	return []pipeline.TestResult{
		{
			Test:     testfinder.Test{DisplayName: "main", Function: entryFn},
			Baseline: result.Execution{Status: result.StatusPassed},
			Mutants: []pipeline.MutationResult{
				{
					Point:     &mutate.Point{Operator: mutate.MathAdd, Loc: &ir.SourceLocation{Path: "math.c", Line: 5, Column: 10}, Inst: taintedInst},
					Execution: result.Execution{Status: result.StatusFailed},
				},
				{
					Point:     &mutate.Point{Operator: mutate.MathAdd, Inst: taintedInst},
					Execution: result.Execution{Status: result.StatusPassed},
				},
				{
					Point:     &mutate.Point{Operator: mutate.ConditionalsBoundary, Inst: taintedInst},
					Execution: result.Execution{Status: result.StatusInvalid},
				},
			},
		},
	}
}

func TestGenerate_ComputesStatistics(t *testing.T) {
	cfg := config.Default()
	cfg.Output.Format = "json"
	cfg.Output.File = filepath.Join(t.TempDir(), "out.json")

	g := New(cfg)

	summary, err := g.Generate(sampleTests(), 42*time.Millisecond)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.TotalMutants)
	assert.Equal(t, 1, summary.KilledMutants)
	assert.Equal(t, 1, summary.Statistics.Killed)
	assert.Equal(t, 1, summary.Statistics.Survived)
	assert.Equal(t, 1, summary.Statistics.Invalid)
	assert.InDelta(t, 50.0, summary.Statistics.Score, 0.001)

	mathAdd := summary.Statistics.ByOperator[string(mutate.MathAdd)]
	assert.Equal(t, 2, mathAdd.Total)
	assert.Equal(t, 1, mathAdd.Killed)
	assert.Equal(t, 1, mathAdd.Survived)
}

func TestGenerate_WritesJSONToFile(t *testing.T) {
	cfg := config.Default()
	cfg.Output.Format = "json"
	cfg.Output.File = filepath.Join(t.TempDir(), "out.json")

	g := New(cfg)

	_, err := g.Generate(sampleTests(), time.Second)
	require.NoError(t, err)

	data, err := os.ReadFile(cfg.Output.File)
	require.NoError(t, err)

	var decoded Summary
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 3, decoded.TotalMutants)
}

func TestGenerate_TextFormatIncludesSurvivors(t *testing.T) {
	cfg := config.Default()
	cfg.Output.Format = "text"
	cfg.Output.File = filepath.Join(t.TempDir(), "out.txt")

	g := New(cfg)

	_, err := g.Generate(sampleTests(), time.Second)
	require.NoError(t, err)

	data, err := os.ReadFile(cfg.Output.File)
	require.NoError(t, err)

	text := string(data)
	assert.Contains(t, text, "Mutation Testing Report")
	assert.Contains(t, text, "Surviving mutants:")
	assert.Contains(t, text, "<unknown>")
}

func TestGenerate_JSONExcludesRawIRGraph(t *testing.T) {
	cfg := config.Default()
	cfg.Output.Format = "json"
	cfg.Output.File = filepath.Join(t.TempDir(), "out.json")

	g := New(cfg)

	_, err := g.Generate(sampleTests(), time.Second)
	require.NoError(t, err)

	data, err := os.ReadFile(cfg.Output.File)
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(data, &generic))

	_, hasTests := generic["tests"]
	require.True(t, hasTests)

	// Neither the Instruction graph nor its opcode/block fields should
	// surface: the report only carries the minimal operator/location/result
	// projection.
	text := string(data)
	assert.NotContains(t, text, "\"opcode\"")
	assert.NotContains(t, text, "\"blocks\"")
	assert.NotContains(t, text, "\"inst\"")
	assert.NotContains(t, text, "\"function\"")
	assert.Contains(t, text, "\"operator\"")
	assert.Contains(t, text, "\"location\"")
	assert.Contains(t, text, "math.c:5:10")
}

func TestProjectTests_MapsEachMutantToMinimalShape(t *testing.T) {
	reported := projectTests(sampleTests())
	require.Len(t, reported, 1)

	rt := reported[0]
	assert.Equal(t, "main", rt.Name)
	assert.Equal(t, result.StatusPassed, rt.Baseline)
	require.Len(t, rt.Mutants, 3)
	assert.Equal(t, mutate.MathAdd, rt.Mutants[0].Operator)
	assert.Equal(t, "math.c:5:10", rt.Mutants[0].Location)
	assert.Equal(t, result.StatusFailed, rt.Mutants[0].Result)
	assert.Equal(t, "<unknown>", rt.Mutants[1].Location)
}

func TestGenerate_NoMutantsYieldsZeroScore(t *testing.T) {
	cfg := config.Default()
	cfg.Output.Format = "json"
	cfg.Output.File = filepath.Join(t.TempDir(), "out.json")

	g := New(cfg)

	summary, err := g.Generate(nil, 0)
	require.NoError(t, err)
	assert.Zero(t, summary.Statistics.Score)
	assert.Zero(t, summary.TotalMutants)
}
