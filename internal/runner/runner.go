// Package runner implements the Test Runner (spec.md §4.6): it links a
// complete set of native Objects and invokes a single test entry, turning
// the outcome into a result.Execution.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/sivchari/mutir/internal/compiler"
	"github.com/sivchari/mutir/internal/ir"
	"github.com/sivchari/mutir/internal/result"
	"github.com/sivchari/mutir/internal/testfinder"
)

// Linker is the external collaborator standing in for the native
// JIT/linker: it links objects together and invokes the named test entry,
// returning the raw process outcome. Signals and crashes of the invoked
// test are reported via the crashed flag; a non-nil err means the link or
// the invocation itself could not be carried out (e.g. a symbol could not
// be resolved). The Runner records both as StatusInvalid.
type Linker interface {
	LinkAndRun(ctx context.Context, objects map[ir.ModuleHandle]*compiler.Object, entry *ir.Function) (exitCode int, crashed bool, err error)
}

// Error wraps a link/invoke failure (spec.md §7: RunnerError).
type Error struct {
	Test string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("runner: test %s: %v", e.Test, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Runner links the given object set and invokes a single test entry.
type Runner struct {
	linker  Linker
	timeout time.Duration
}

// New creates a Runner. A zero timeout means no per-test timeout.
func New(linker Linker, timeout time.Duration) *Runner {
	return &Runner{linker: linker, timeout: timeout}
}

// Run invokes test against objects, measuring wall-clock time around the
// invocation only (spec.md §4.6).
func (r *Runner) Run(ctx context.Context, test testfinder.Test, objects map[ir.ModuleHandle]*compiler.Object) result.Execution {
	runCtx := ctx

	var cancel context.CancelFunc

	if r.timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	exitCode, crashed, err := r.linker.LinkAndRun(runCtx, objects, test.Function)
	elapsed := time.Since(start)

	if err != nil {
		return result.Execution{
			Status:        result.StatusInvalid,
			RunningTimeNs: elapsed.Nanoseconds(),
			Diagnostic:    (&Error{Test: test.DisplayName, Err: err}).Error(),
		}
	}

	if runCtx.Err() != nil {
		return result.Execution{
			Status:        result.StatusInvalid,
			RunningTimeNs: elapsed.Nanoseconds(),
			Diagnostic:    fmt.Sprintf("runner: test %s: timed out", test.DisplayName),
		}
	}

	return result.Execution{
		Status:        test.Interpret(exitCode, crashed),
		RunningTimeNs: elapsed.Nanoseconds(),
	}
}
