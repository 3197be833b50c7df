// Package pipeline implements the Pipeline Driver (spec.md §4.7): for
// each test x testee x mutation point, it applies the mutation,
// recompiles only the affected module, runs the test against the mutant,
// reverts, and records results.
package pipeline

import (
	"context"
	"fmt"

	"github.com/sivchari/mutir/internal/compiler"
	"github.com/sivchari/mutir/internal/diagnostics"
	"github.com/sivchari/mutir/internal/ir"
	"github.com/sivchari/mutir/internal/junk"
	"github.com/sivchari/mutir/internal/mutate"
	"github.com/sivchari/mutir/internal/result"
	"github.com/sivchari/mutir/internal/runner"
	"github.com/sivchari/mutir/internal/store"
	"github.com/sivchari/mutir/internal/testfinder"
)

// MutationResult pairs an Execution Result with the Mutation Point that
// produced it (spec.md §3).
type MutationResult struct {
	Point     *mutate.Point
	Execution result.Execution
}

// TestResult is a Test, the baseline Execution Result for it, and every
// surviving (non-junk) Mutation Point considered for it (spec.md §3).
type TestResult struct {
	Test     testfinder.Test
	Baseline result.Execution
	Mutants  []MutationResult
}

// Driver orchestrates the full mutation pipeline over a Store.
type Driver struct {
	store    *store.Store
	compiler *compiler.Compiler
	finder   *testfinder.Finder
	ops      []mutate.Operator
	junk     *junk.Detector
	runner   *runner.Runner
	log      *diagnostics.Logger
}

// New constructs a Driver from its collaborators.
func New(
	st *store.Store,
	comp *compiler.Compiler,
	ops []mutate.Operator,
	jd *junk.Detector,
	run *runner.Runner,
	log *diagnostics.Logger,
) *Driver {
	return &Driver{
		store:    st,
		compiler: comp,
		finder:   testfinder.New(st),
		ops:      ops,
		junk:     jd,
		runner:   run,
		log:      log,
	}
}

// Baseline is the per-module baseline Object cache. It never contains a
// post-mutation compilation (spec.md invariant 2): every entry is built
// once up front from the Store's untouched IR and never rebuilt in place.
type Baseline struct {
	objects map[ir.ModuleHandle]*compiler.Object
}

// BuildBaseline compiles every Module in st to its baseline Object. A
// failure here is a BaselineCompileError and is fatal (spec.md §4.2, §7).
func BuildBaseline(st *store.Store, comp *compiler.Compiler) (*Baseline, error) {
	objects := make(map[ir.ModuleHandle]*compiler.Object)

	for _, handle := range st.IterAll() {
		mod, err := st.Get(handle)
		if err != nil {
			return nil, err
		}

		obj, err := comp.Compile(mod)
		if err != nil {
			return nil, fmt.Errorf("baseline: %w", err)
		}

		objects[handle] = obj
	}

	return &Baseline{objects: objects}, nil
}

// Get returns the cached baseline Object for handle.
func (b *Baseline) Get(handle ir.ModuleHandle) *compiler.Object {
	return b.objects[handle]
}

// Run executes the algorithm of spec.md §4.7 sequentially: one test at a
// time, one mutation point at a time. ctx is checked for cancellation
// between tests and between mutation points (spec.md §5); on cancellation
// the already-completed Test Results are returned with no error.
func (d *Driver) Run(ctx context.Context, baseline *Baseline) ([]TestResult, error) {
	tests, err := d.finder.FindTests()
	if err != nil {
		return nil, err
	}

	var results []TestResult

	for _, test := range tests {
		if cancelled(ctx) {
			break
		}

		tr, err := d.runTest(ctx, test, baseline)
		if err != nil {
			return results, err
		}

		results = append(results, tr)
	}

	return results, nil
}

func (d *Driver) runTest(ctx context.Context, test testfinder.Test, baseline *Baseline) (TestResult, error) {
	baselineExec := d.runner.Run(ctx, test, baseline.objects)

	tr := TestResult{Test: test, Baseline: baselineExec}

	testees, err := d.finder.FindTestees(test)
	if err != nil {
		return tr, err
	}

	for _, testee := range testees {
		if cancelled(ctx) {
			break
		}

		points := testfinder.FindMutationPoints(d.ops, testee)

		for _, point := range points {
			if cancelled(ctx) {
				break
			}

			isJunk, jerr := d.junk.IsJunk(point)
			if jerr != nil {
				d.log.Warnf("junk detector: %v (treating point as not-junk)", jerr)

				isJunk = false
			}

			if isJunk {
				continue
			}

			mr := d.runMutant(ctx, test, testee, point, baseline)
			tr.Mutants = append(tr.Mutants, mr)
		}
	}

	return tr, nil
}

// runMutant applies point, recompiles its owning module, runs test
// against "every other module's baseline object + this mutant", then
// reverts — guaranteeing that after this call every module's IR is back
// to its pre-apply state (spec.md invariant 1, "Isolation").
func (d *Driver) runMutant(ctx context.Context, test testfinder.Test, testee testfinder.Testee, point *mutate.Point, baseline *Baseline) MutationResult {
	mod, err := d.store.Get(testee.Module)
	if err != nil {
		return MutationResult{Point: point, Execution: result.Execution{
			Status:     result.StatusInvalid,
			Diagnostic: err.Error(),
		}}
	}

	point.Apply()
	defer point.Revert()

	obj, err := d.compiler.Compile(mod)
	if err != nil {
		d.log.Warnf("mutant compile failed for %s at %s: %v", point.Operator, point.Loc, err)

		return MutationResult{Point: point, Execution: result.Execution{
			Status:     result.StatusInvalid,
			Diagnostic: err.Error(),
		}}
	}

	objects := objectSetFor(baseline, testee.Module, obj)

	exec := d.runner.Run(ctx, test, objects)

	return MutationResult{Point: point, Execution: exec}
}

// objectSetFor builds "baseline of every module except mutated, plus the
// transient mutant object for mutated" (spec.md §4.7 step 2.1, and the
// Open Question in §9: when the test's module is also the testee's
// module, its baseline is likewise excluded in favor of the transient
// object, since that object already carries the re-emitted test code
// consistently alongside the mutant).
func objectSetFor(baseline *Baseline, mutated ir.ModuleHandle, mutant *compiler.Object) map[ir.ModuleHandle]*compiler.Object {
	objects := make(map[ir.ModuleHandle]*compiler.Object, len(baseline.objects))
	for handle, obj := range baseline.objects {
		if handle == mutated {
			continue
		}

		objects[handle] = obj
	}

	objects[mutated] = mutant

	return objects
}

func cancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
