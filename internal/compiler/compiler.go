// Package compiler turns an IR Module into a native Object. The actual
// code generation is delegated to an injected CodeGenerator, standing in
// for the native JIT/linker backend spec.md §1 treats as an external
// service; this package owns only the compile/cache-error plumbing
// around it, matching sivchari/gomu's thin-wrapper constructors
// (internal/execution.New wrapping an OverlayMutator).
package compiler

import (
	"fmt"

	"github.com/sivchari/mutir/internal/ir"
)

// CodeGenerator produces native object bytes for the current IR of a
// Module. It is the external collaborator standing in for the real
// native code generator backend.
type CodeGenerator interface {
	Generate(mod *ir.Module) ([]byte, error)
}

// CompileError wraps a code generator failure with the module it was
// produced from.
type CompileError struct {
	Module ir.ModuleHandle
	Err    error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile module %d: %v", e.Module, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

// Object is the native-code compilation of one Module at one point in
// time. Baseline Objects are cached in pipeline.Baseline, not in the
// Module Store, which holds IR only; mutant Objects returned by Compile
// are always transient.
type Object struct {
	Module ir.ModuleHandle
	Code   []byte
}

// Compiler holds no state between calls beyond what the code generator
// itself requires; caching is pipeline.Baseline's job for baselines and
// the Pipeline Driver's job for transients (spec.md §4.2).
type Compiler struct {
	gen CodeGenerator
}

// New creates a Compiler delegating to gen.
func New(gen CodeGenerator) *Compiler {
	return &Compiler{gen: gen}
}

// Compile produces a freshly owned native Object for the current IR of
// mod. It never caches.
func (c *Compiler) Compile(mod *ir.Module) (*Object, error) {
	code, err := c.gen.Generate(mod)
	if err != nil {
		return nil, &CompileError{Module: mod.Handle, Err: err}
	}

	return &Object{Module: mod.Handle, Code: code}, nil
}
