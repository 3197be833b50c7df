// Package testfinder walks loaded IR modules to enumerate test entry
// points and, for each test, the testees reachable from it (spec.md §4.3).
//
// Test is represented as a tagged variant rather than a virtual base, per
// spec.md §9: a fixed, closed set of test-framework conventions, each
// carrying the data its Adapter needs to interpret a runner's exit code.
package testfinder

import (
	"sort"

	"github.com/sivchari/mutir/internal/ir"
	"github.com/sivchari/mutir/internal/mutate"
	"github.com/sivchari/mutir/internal/result"
)

// Kind enumerates the test-framework conventions this spec recognizes.
type Kind int

const (
	// MainEntry is a simple C main-like entry: exit code 0 means pass.
	MainEntry Kind = iota
	// XUnit is a registered xUnit-style test: a nonzero return from the
	// test function's simulated invocation means failure, same polarity
	// as MainEntry but discovered via a different naming/attribute
	// convention (test.kind=="xunit" vs "main").
	XUnit
)

// Test identifies a test entry point.
type Test struct {
	DisplayName string
	Function    *ir.Function
	Kind        Kind
}

// Interpret applies this Test's adapter to a runner's raw outcome.
func (t Test) Interpret(exitCode int, crashed bool) result.Status {
	if crashed {
		return result.StatusInvalid
	}

	switch t.Kind {
	case MainEntry, XUnit:
		if exitCode == 0 {
			return result.StatusPassed
		}

		return result.StatusFailed
	default:
		return result.StatusInvalid
	}
}

// Testee is a Function reachable from a Test that is a candidate for
// mutation.
type Testee struct {
	Function *ir.Function
	Module   ir.ModuleHandle
}

// ModuleLookup enumerates the Store's Module handles and fetches a Module
// by handle; the Finder resolves function names by searching every Module
// through it. It is the minimal view the Finder needs from store.Store,
// kept as an interface so
// tests can supply an in-memory fake without depending on internal/store.
type ModuleLookup interface {
	IterAll() []ir.ModuleHandle
	Get(ir.ModuleHandle) (*ir.Module, error)
}

// Finder discovers Tests and Testees over the modules held by a Store.
type Finder struct {
	store ModuleLookup
}

// New creates a Finder over store.
func New(store ModuleLookup) *Finder {
	return &Finder{store: store}
}

// FindTests scans every Module in the Store for functions marked as test
// entries, in Store load order then in-module declaration order, giving a
// deterministic discovery order (spec.md invariant 3).
func (f *Finder) FindTests() ([]Test, error) {
	var tests []Test

	for _, handle := range f.store.IterAll() {
		mod, err := f.store.Get(handle)
		if err != nil {
			return nil, err
		}

		for _, fn := range mod.Functions {
			kind, ok := testKind(fn)
			if !ok {
				continue
			}

			tests = append(tests, Test{
				DisplayName: displayName(fn),
				Function:    fn,
				Kind:        kind,
			})
		}
	}

	return tests, nil
}

func testKind(fn *ir.Function) (Kind, bool) {
	switch fn.Attrs["test.kind"] {
	case "main":
		return MainEntry, true
	case "xunit":
		return XUnit, true
	default:
		return 0, false
	}
}

func displayName(fn *ir.Function) string {
	if name, ok := fn.Attrs["test.display_name"]; ok && name != "" {
		return name
	}

	return fn.Name
}

// FindTestees performs a deterministic preorder traversal of the call
// graph rooted at test.Function, yielding each distinct function at most
// once and excluding the test function itself. External/unresolved
// callees are skipped silently; indirect calls are not followed (neither
// OpCall's Operand ever carries OperandInstRef for the callee slot in this
// IR, so there is nothing to "follow" indirectly by construction).
func (f *Finder) FindTestees(test Test) ([]Testee, error) {
	visited := map[string]bool{test.Function.Name: true}

	var testees []Testee

	var walk func(fn *ir.Function) error
	walk = func(fn *ir.Function) error {
		for _, callee := range calleesOf(fn) {
			if visited[callee] {
				continue
			}

			visited[callee] = true

			calleeFn, handle, found, err := f.resolve(callee)
			if err != nil {
				return err
			}

			if !found {
				continue // external/unresolved callee, skipped silently
			}

			testees = append(testees, Testee{Function: calleeFn, Module: handle})

			if err := walk(calleeFn); err != nil {
				return err
			}
		}

		return nil
	}

	if err := walk(test.Function); err != nil {
		return nil, err
	}

	return testees, nil
}

// calleesOf returns the callee names referenced by fn's OpCall
// instructions, in block order then instruction order, for determinism.
func calleesOf(fn *ir.Function) []string {
	var callees []string

	for _, b := range fn.Blocks {
		for _, inst := range b.Instructions {
			if inst.Opcode != ir.OpCall {
				continue
			}

			for _, op := range inst.Operands {
				if op.Kind == ir.OperandFuncRef {
					callees = append(callees, op.Callee)
				}
			}
		}
	}

	return callees
}

func (f *Finder) resolve(name string) (*ir.Function, ir.ModuleHandle, bool, error) {
	for _, handle := range f.store.IterAll() {
		mod, err := f.store.Get(handle)
		if err != nil {
			return nil, 0, false, err
		}

		if fn, ok := mod.FindFunction(name); ok {
			return fn, handle, true, nil
		}
	}

	return nil, 0, false, nil
}

// FindMutationPoints runs every operator, in registration order, over
// testee's function body and concatenates the results, ordered stably by
// (operator registration order, instruction index) per spec.md §4.3.
func FindMutationPoints(operators []mutate.Operator, testee Testee) []*mutate.Point {
	var points []*mutate.Point

	for _, op := range operators {
		found := op.Scan(testee.Function)
		sort.SliceStable(found, func(i, j int) bool {
			return found[i].InstructionIndex() < found[j].InstructionIndex()
		})

		points = append(points, found...)
	}

	return points
}
