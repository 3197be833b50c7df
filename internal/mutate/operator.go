// Package mutate hosts the mutation operator catalogue and the Mutation
// Point type (spec.md §3, §4.4). Each Operator scans a Function's IR and
// produces candidate Points without mutating anything; Points themselves
// carry the apply()/revert() pair that performs and undoes one edit.
//
// The catalogue mirrors sivchari/gomu's pluggable Mutator interface
// (internal/mutation.Mutator in sivchari/gomu: Name/CanMutate/Mutate)
// adapted from go/ast nodes to this repo's ir.Instruction model, and its
// registration-order-stable scan loop (internal/mutation/engine.go's
// ast.Inspect walk).
package mutate

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/sivchari/mutir/internal/ir"
)

// Kind identifies an operator, used by the Junk Detector to select a
// source-level visitor (spec.md §4.5).
type Kind string

const (
	ConditionalsBoundary Kind = "ConditionalsBoundary"
	MathAdd              Kind = "MathAdd"
	MathSub              Kind = "MathSub"
)

// Operator is the capability bundle every mutation operator implements.
// Operators must be pure: Scan must never mutate the IR it inspects.
type Operator interface {
	Kind() Kind
	Scan(fn *ir.Function) []*Point
}

// Point is a fully specified, reversible pending edit to one Instruction.
// Apply and Revert compose to the identity on the IR (spec.md §8
// round-trip law). A Point's ID is stable and opaque, independent of its
// position in any slice — grounded on google/uuid rather than the
// teacher's position-derived string IDs (internal/mutation/engine.go:
// fmt.Sprintf("%s_%d", filePath, index)), since spec.md models Mutation
// Points as independently identified records with their own lifetime.
type Point struct {
	ID       string
	Operator Kind
	Module   ir.ModuleHandle
	Inst     *Instruction
	Loc      *ir.SourceLocation

	applied bool
	apply   func()
	revert  func()
}

// Instruction is a thin, named alias kept distinct from *ir.Instruction at
// the call site so Point's field reads clearly; it is exactly *ir.Instruction.
type Instruction = ir.Instruction

// InstructionIndex returns the Index of this Point's target instruction
// within its owning block, used to order points deterministically.
func (p *Point) InstructionIndex() int {
	return p.Inst.Index
}

// Apply performs the edit. It panics if called while already applied,
// since spec.md's invariant ("no two Mutation Points that target the same
// Instruction may coexist as applied") is a programming error to violate,
// not a recoverable runtime condition.
func (p *Point) Apply() {
	if p.applied {
		panic(fmt.Sprintf("mutate: point %s already applied", p.ID))
	}

	p.apply()
	p.applied = true
}

// Revert undoes the edit performed by Apply.
func (p *Point) Revert() {
	if !p.applied {
		panic(fmt.Sprintf("mutate: point %s not applied", p.ID))
	}

	p.revert()
	p.applied = false
}

func newID() string {
	return uuid.NewString()
}

// Registry is the ordered, pluggable set of operators the Test Finder
// scans with. Order is registration order, matching spec.md §4.3's
// "(operator registration order, instruction index)" ordering rule.
type Registry struct {
	operators []Operator
}

// NewRegistry builds a Registry from operators, in the given order.
func NewRegistry(operators ...Operator) *Registry {
	return &Registry{operators: operators}
}

// Operators returns the registered operators in registration order.
func (r *Registry) Operators() []Operator {
	return r.operators
}

// Default returns the initial operator set named by spec.md §3:
// ConditionalsBoundary, MathAdd, MathSub.
func Default() *Registry {
	return NewRegistry(&ConditionalsBoundaryOperator{}, &MathAddOperator{}, &MathSubOperator{})
}
