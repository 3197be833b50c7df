package mutate

import "github.com/sivchari/mutir/internal/ir"

// MathAddOperator targets integer and floating-point additions, replacing
// them with subtraction of the same operands. Because this IR does not
// distinguish "a + b", "a += b", and "a++" at the instruction level — all
// three lower to an OpAdd (optionally followed by an OpStore, or with a
// constant-1 operand) — a single opcode swap on OpAdd/OpFAdd covers all
// three source forms named in spec.md §4.4: the "+=" case is this same add
// instruction regardless of the trailing store, and "++" is this same add
// instruction with one constant operand equal to 1, so swapping its opcode
// to subtraction already produces the required decrement-by-one mutant.
//
// Grounded on sivchari/gomu's ArithmeticMutator (internal/mutation/arithmetic.go),
// which likewise handles ast.BinaryExpr, ast.AssignStmt, and ast.IncDecStmt
// as three surface forms of one underlying operator-table swap.
type MathAddOperator struct{}

func (MathAddOperator) Kind() Kind { return MathAdd }

func (MathAddOperator) Scan(fn *ir.Function) []*Point {
	return scanOpcodeSwap(fn, MathAdd, map[ir.Opcode]ir.Opcode{
		ir.OpAdd:  ir.OpSub,
		ir.OpFAdd: ir.OpFSub,
	})
}

// MathSubOperator is symmetric to MathAddOperator: subtraction becomes
// addition, "--" becomes "++".
type MathSubOperator struct{}

func (MathSubOperator) Kind() Kind { return MathSub }

func (MathSubOperator) Scan(fn *ir.Function) []*Point {
	return scanOpcodeSwap(fn, MathSub, map[ir.Opcode]ir.Opcode{
		ir.OpSub:  ir.OpAdd,
		ir.OpFSub: ir.OpFAdd,
	})
}

func scanOpcodeSwap(fn *ir.Function, kind Kind, swap map[ir.Opcode]ir.Opcode) []*Point {
	var points []*Point

	for _, b := range fn.Blocks {
		for _, inst := range b.Instructions {
			mutated, ok := swap[inst.Opcode]
			if !ok {
				continue
			}

			points = append(points, newSwapOpcodePoint(kind, fn.Module, inst, mutated))
		}
	}

	return points
}

func newSwapOpcodePoint(kind Kind, mod ir.ModuleHandle, inst *ir.Instruction, mutated ir.Opcode) *Point {
	original := inst.Opcode

	return &Point{
		ID:       newID(),
		Operator: kind,
		Module:   mod,
		Inst:     inst,
		Loc:      inst.DebugLoc,
		apply: func() {
			inst.Opcode = mutated
		},
		revert: func() {
			inst.Opcode = original
		},
	}
}
