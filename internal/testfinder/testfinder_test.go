package testfinder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sivchari/mutir/internal/ir"
	"github.com/sivchari/mutir/internal/mutate"
	"github.com/sivchari/mutir/internal/result"
	"github.com/sivchari/mutir/internal/store"
)

type fakeLoader struct{ mod *ir.Module }

func (f *fakeLoader) LoadModuleAtPath(string) (*ir.Module, error) { return f.mod, nil }

func buildModule() *ir.Module {
	mod := &ir.Module{SourcePath: "math.bc"}

	compute := &ir.Function{Name: "compute"}
	computeBlock := ir.NewBasicBlock(compute, "entry")
	ir.AppendInstruction(computeBlock, &ir.Instruction{
		Opcode:   ir.OpAdd,
		Operands: []ir.Operand{{Kind: ir.OperandConstant, Constant: 2}, {Kind: ir.OperandConstant, Constant: 3}},
	})

	helper := &ir.Function{Name: "helper"}
	helperBlock := ir.NewBasicBlock(helper, "entry")
	ir.AppendInstruction(helperBlock, &ir.Instruction{
		Opcode:    ir.OpICmp,
		Predicate: ir.PredSLT,
		Operands:  []ir.Operand{{Kind: ir.OperandConstant, Constant: 1}, {Kind: ir.OperandConstant, Constant: 2}},
	})

	main := &ir.Function{
		Name:  "main",
		Attrs: map[string]string{"test.kind": "main"},
	}
	mainBlock := ir.NewBasicBlock(main, "entry")
	ir.AppendInstruction(mainBlock, &ir.Instruction{
		Opcode:   ir.OpCall,
		Operands: []ir.Operand{{Kind: ir.OperandFuncRef, Callee: "compute"}},
	})
	ir.AppendInstruction(mainBlock, &ir.Instruction{
		Opcode:   ir.OpCall,
		Operands: []ir.Operand{{Kind: ir.OperandFuncRef, Callee: "helper"}},
	})
	ir.AppendInstruction(mainBlock, &ir.Instruction{
		Opcode:   ir.OpCall,
		Operands: []ir.Operand{{Kind: ir.OperandFuncRef, Callee: "undefined_external"}},
	})

	mod.Functions = []*ir.Function{compute, helper, main}

	return mod
}

func newFinder(t *testing.T) *Finder {
	t.Helper()

	st := store.New(&fakeLoader{mod: buildModule()})
	_, err := st.Load("math.bc")
	require.NoError(t, err)

	return New(st)
}

func TestFindTests(t *testing.T) {
	finder := newFinder(t)

	tests, err := finder.FindTests()
	require.NoError(t, err)
	require.Len(t, tests, 1)
	assert.Equal(t, "main", tests[0].DisplayName)
	assert.Equal(t, MainEntry, tests[0].Kind)
}

func TestFindTests_PrefersDisplayNameAttr(t *testing.T) {
	mod := buildModule()
	main, _ := mod.FindFunction("main")
	main.Attrs["test.display_name"] = "TestMain_Pretty"

	st := store.New(&fakeLoader{mod: mod})
	_, err := st.Load("math.bc")
	require.NoError(t, err)

	tests, err := New(st).FindTests()
	require.NoError(t, err)
	require.Len(t, tests, 1)
	assert.Equal(t, "TestMain_Pretty", tests[0].DisplayName)
}

func TestFindTestees_WalksCallGraphAndSkipsExternal(t *testing.T) {
	finder := newFinder(t)

	tests, err := finder.FindTests()
	require.NoError(t, err)
	require.Len(t, tests, 1)

	testees, err := finder.FindTestees(tests[0])
	require.NoError(t, err)
	require.Len(t, testees, 2)

	names := []string{testees[0].Function.Name, testees[1].Function.Name}
	assert.ElementsMatch(t, []string{"compute", "helper"}, names)
}

func TestFindTestees_ExcludesTestFunctionItself(t *testing.T) {
	mod := &ir.Module{SourcePath: "self.bc"}
	main := &ir.Function{Name: "main", Attrs: map[string]string{"test.kind": "main"}}
	block := ir.NewBasicBlock(main, "entry")
	ir.AppendInstruction(block, &ir.Instruction{
		Opcode:   ir.OpCall,
		Operands: []ir.Operand{{Kind: ir.OperandFuncRef, Callee: "main"}},
	})
	mod.Functions = []*ir.Function{main}

	st := store.New(&fakeLoader{mod: mod})
	_, err := st.Load("self.bc")
	require.NoError(t, err)

	finder := New(st)
	tests, err := finder.FindTests()
	require.NoError(t, err)

	testees, err := finder.FindTestees(tests[0])
	require.NoError(t, err)
	assert.Empty(t, testees)
}

func TestFindMutationPoints_OrderedByOperatorThenInstructionIndex(t *testing.T) {
	finder := newFinder(t)
	tests, err := finder.FindTests()
	require.NoError(t, err)

	testees, err := finder.FindTestees(tests[0])
	require.NoError(t, err)

	var helperTestee Testee

	for _, te := range testees {
		if te.Function.Name == "helper" {
			helperTestee = te
		}
	}

	require.NotNil(t, helperTestee.Function)

	points := FindMutationPoints(mutate.Default().Operators(), helperTestee)
	require.Len(t, points, 1)
	assert.Equal(t, mutate.ConditionalsBoundary, points[0].Operator)
}

func TestInterpret_CrashedIsAlwaysInvalid(t *testing.T) {
	test := Test{Kind: MainEntry}
	assert.Equal(t, result.StatusInvalid, test.Interpret(0, true))
}

func TestInterpret_ExitCodePolarity(t *testing.T) {
	test := Test{Kind: MainEntry}
	assert.Equal(t, result.StatusPassed, test.Interpret(0, false))
	assert.Equal(t, result.StatusFailed, test.Interpret(1, false))
}
