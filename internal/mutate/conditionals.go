package mutate

import "github.com/sivchari/mutir/internal/ir"

// ConditionalsBoundaryOperator targets integer relational comparisons,
// rewriting strict predicates to non-strict and vice versa.
//
// Grounded on sivchari/gomu's ConditionalMutator
// (internal/mutation/conditional.go), adapted from go/token.Token swaps
// over go/ast.BinaryExpr to ir.Predicate swaps over ir.OpICmp.
type ConditionalsBoundaryOperator struct{}

func (ConditionalsBoundaryOperator) Kind() Kind { return ConditionalsBoundary }

var boundarySwap = map[ir.Predicate]ir.Predicate{
	ir.PredSLT: ir.PredSLE,
	ir.PredSLE: ir.PredSLT,
	ir.PredSGT: ir.PredSGE,
	ir.PredSGE: ir.PredSGT,
}

func (ConditionalsBoundaryOperator) Scan(fn *ir.Function) []*Point {
	var points []*Point

	for _, b := range fn.Blocks {
		for _, inst := range b.Instructions {
			if inst.Opcode != ir.OpICmp {
				continue
			}

			mutated, ok := boundarySwap[inst.Predicate]
			if !ok {
				continue
			}

			points = append(points, newSwapPredicatePoint(fn.Module, inst, mutated))
		}
	}

	return points
}

func newSwapPredicatePoint(mod ir.ModuleHandle, inst *ir.Instruction, mutated ir.Predicate) *Point {
	original := inst.Predicate

	return &Point{
		ID:       newID(),
		Operator: ConditionalsBoundary,
		Module:   mod,
		Inst:     inst,
		Loc:      inst.DebugLoc,
		apply: func() {
			inst.Predicate = mutated
		},
		revert: func() {
			inst.Predicate = original
		},
	}
}
