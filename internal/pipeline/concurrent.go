package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/sivchari/mutir/internal/compiler"
	"github.com/sivchari/mutir/internal/diagnostics"
	"github.com/sivchari/mutir/internal/junk"
	"github.com/sivchari/mutir/internal/mutate"
	"github.com/sivchari/mutir/internal/runner"
	"github.com/sivchari/mutir/internal/store"
)

// WorkerFactory builds the per-worker collaborators that must not be
// shared across goroutines: a Linker-backed Runner (native JIT/linker
// invocations are not assumed thread-safe) and a CodeGenerator-backed
// Compiler. The Store and JunkDetector ARE safe to share — the former
// because RunConcurrent clones it per worker anyway, the latter because
// its AST cache is internally synchronized (spec.md §5).
type WorkerFactory func() (*compiler.Compiler, *runner.Runner)

// RunConcurrent runs the outer test loop across workers goroutines. Each
// worker operates on its own deep-cloned Store (spec.md §5: "per-worker
// copies of the Module Store"), so one worker's apply/revert is invisible
// to another even when two tests share a testee's parent module. Each
// job carries the test's discovery index, and the result is written to
// that same index in the pre-sized return slice, so the returned order
// always matches spec.md invariant 3's discovery order regardless of
// which worker finishes which job first — identical to Run's sequential
// result order.
//
// Grounded on golang.org/x/sync/errgroup, used in
// theRebelliousNerd/codenerd's internal/campaign/intelligence_gatherer.go
// for the same "fixed set of independent, cancellable workers" shape, in
// place of sivchari/gomu's hand-rolled WaitGroup+semaphore
// (internal/execution/engine.go's RunMutationsWithOptions).
func RunConcurrent(ctx context.Context, st *store.Store, mkWorker WorkerFactory, ops []mutate.Operator, jd *junk.Detector, log *diagnostics.Logger, workers int) ([]TestResult, error) {
	seqDriver := New(st, nil, ops, jd, nil, log) // only used to discover tests/order
	tests, err := seqDriver.finder.FindTests()
	if err != nil {
		return nil, err
	}

	resultsByIndex := make([]TestResult, len(tests))

	jobs := make(chan int)
	eg, egCtx := errgroup.WithContext(ctx)

	for w := 0; w < workers; w++ {
		eg.Go(func() error {
			workerStore := st.Clone()

			comp, run := mkWorker()

			baseline, err := BuildBaseline(workerStore, comp)
			if err != nil {
				return err
			}

			driver := New(workerStore, comp, ops, jd, run, log)
			workerTests, err := driver.finder.FindTests()
			if err != nil {
				return err
			}

			for idx := range jobs {
				if cancelled(egCtx) {
					return nil
				}

				tr, err := driver.runTest(egCtx, workerTests[idx], baseline)
				if err != nil {
					return err
				}

				resultsByIndex[idx] = tr
			}

			return nil
		})
	}

	eg.Go(func() error {
		defer close(jobs)

		for i := range tests {
			select {
			case jobs <- i:
			case <-egCtx.Done():
				return nil
			}
		}

		return nil
	})

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return resultsByIndex, nil
}
