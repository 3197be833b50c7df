package mutir

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sivchari/mutir/internal/compiler"
	"github.com/sivchari/mutir/internal/config"
	"github.com/sivchari/mutir/internal/ir"
)

// fakeLoader hands back a fixed in-memory Module for any path, standing in
// for a real bitcode parser.
type fakeLoader struct {
	modules map[string]*ir.Module
}

func (f *fakeLoader) LoadModuleAtPath(path string) (*ir.Module, error) {
	mod, ok := f.modules[path]
	if !ok {
		return nil, fmt.Errorf("no fake module for %s", path)
	}

	return mod, nil
}

// fakeGenerator serializes, for each function with a single arithmetic
// instruction, a "name=value" line reflecting that instruction's current
// opcode applied to its two constant operands. This stands in for real
// native code generation: it is just enough information for fakeLinker to
// evaluate whether a mutant changes observable behavior.
type fakeGenerator struct{}

func (fakeGenerator) Generate(mod *ir.Module) ([]byte, error) {
	var buf bytes.Buffer

	for _, fn := range mod.Functions {
		for _, b := range fn.Blocks {
			for _, inst := range b.Instructions {
				if inst.Opcode != ir.OpAdd && inst.Opcode != ir.OpSub {
					continue
				}

				a, bConst := inst.Operands[0].Constant, inst.Operands[1].Constant

				var v int64
				if inst.Opcode == ir.OpAdd {
					v = a + bConst
				} else {
					v = a - bConst
				}

				fmt.Fprintf(&buf, "%s=%d\n", fn.Name, v)
			}
		}
	}

	return buf.Bytes(), nil
}

// fakeLinker evaluates the test entry's "test.expect" attribute against the
// value the named callee computed, across every object handed to it.
type fakeLinker struct{}

func (fakeLinker) LinkAndRun(_ context.Context, objects map[ir.ModuleHandle]*compiler.Object, entry *ir.Function) (int, bool, error) {
	want, err := strconv.Atoi(entry.Attrs["test.expect"])
	if err != nil {
		return 0, false, fmt.Errorf("bad test.expect: %w", err)
	}

	callee := entry.Attrs["test.callee"]

	for _, obj := range objects {
		for _, line := range strings.Split(string(obj.Code), "\n") {
			name, val, ok := strings.Cut(line, "=")
			if !ok || name != callee {
				continue
			}

			got, err := strconv.Atoi(val)
			if err != nil {
				continue
			}

			if got == want {
				return 0, false, nil
			}

			return 1, false, nil
		}
	}

	return 1, false, nil
}

// buildModule constructs a two-function module: "compute" does 2+3, and
// "main" is a test entry calling it and expecting 5.
func buildModule(path string) *ir.Module {
	mod := &ir.Module{SourcePath: path}

	compute := &ir.Function{Name: "compute"}
	block := ir.NewBasicBlock(compute, "entry")
	ir.AppendInstruction(block, &ir.Instruction{
		Opcode:   ir.OpAdd,
		Operands: []ir.Operand{{Kind: ir.OperandConstant, Constant: 2}, {Kind: ir.OperandConstant, Constant: 3}},
		DebugLoc: &ir.SourceLocation{Path: "math.c", Line: 5, Column: 10},
	})

	main := &ir.Function{
		Name: "main",
		Attrs: map[string]string{
			"test.kind":   "main",
			"test.expect": "5",
			"test.callee": "compute",
		},
	}
	mainBlock := ir.NewBasicBlock(main, "entry")
	ir.AppendInstruction(mainBlock, &ir.Instruction{
		Opcode:   ir.OpCall,
		Operands: []ir.Operand{{Kind: ir.OperandFuncRef, Callee: "compute"}},
	})

	mod.Functions = []*ir.Function{compute, main}

	return mod
}

func newTestEngine(t *testing.T, workers int) *Engine {
	t.Helper()

	path := "math.bc"
	loader := &fakeLoader{modules: map[string]*ir.Module{path: buildModule(path)}}

	cfg := config.Default()
	cfg.Bitcode.Paths = []string{path}
	cfg.Workers = workers
	cfg.Incremental.Enabled = false
	cfg.Incremental.HistoryFile = t.TempDir() + "/history.json"
	cfg.Output.File = t.TempDir() + "/report.json"

	engine, err := New(cfg, Collaborators{Loader: loader, Gen: fakeGenerator{}, Linker: fakeLinker{}}, nil)
	require.NoError(t, err)

	return engine
}

func TestEngine_Run_KillsMutant(t *testing.T) {
	engine := newTestEngine(t, 1)

	summary, err := engine.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Tests, 1)

	tr := summary.Tests[0]
	assert.Equal(t, "main", tr.Test.DisplayName)
	require.NotEmpty(t, tr.Mutants)

	for _, m := range tr.Mutants {
		assert.Equal(t, "Failed", string(m.Execution.Status))
	}

	assert.InDelta(t, 100.0, summary.Statistics.Score, 0.01)
}

func TestEngine_Run_Concurrent(t *testing.T) {
	engine := newTestEngine(t, 2)

	summary, err := engine.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Tests, 1)
	assert.InDelta(t, 100.0, summary.Statistics.Score, 0.01)
}

func TestEngine_Run_InvalidBitcodePath(t *testing.T) {
	cfg := config.Default()
	cfg.Bitcode.Paths = []string{"missing.bc"}

	engine, err := New(cfg, Collaborators{
		Loader: &fakeLoader{modules: map[string]*ir.Module{}},
		Gen:    fakeGenerator{},
		Linker: fakeLinker{},
	}, nil)
	require.NoError(t, err)

	_, err = engine.Run(context.Background())
	require.Error(t, err)
}
