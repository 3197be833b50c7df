package toolchain

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sivchari/mutir/internal/ir"
)

// CCGenerator lowers a Module's current IR to C source and invokes the
// system C compiler to produce a real native object file, standing in
// for the native code generator backend this spec treats as external
// (spec.md §1, §9). It supports the straight-line instruction set the
// mutation operators in internal/mutate actually target: arithmetic,
// integer comparison, call, and return.
type CCGenerator struct {
	// CC is the compiler driver to invoke. Defaults to "cc".
	CC string
	// WorkDir is the parent of each per-compile scratch directory.
	// Defaults to os.TempDir().
	WorkDir string
}

// NewCCGenerator creates a CCGenerator with its default compiler and
// scratch directory.
func NewCCGenerator() *CCGenerator {
	return &CCGenerator{CC: "cc", WorkDir: os.TempDir()}
}

// Generate implements compiler.CodeGenerator.
func (g *CCGenerator) Generate(mod *ir.Module) ([]byte, error) {
	cc := g.cc()

	src, err := lowerToC(mod)
	if err != nil {
		return nil, fmt.Errorf("lower module %d to C: %w", mod.Handle, err)
	}

	tmp, err := os.MkdirTemp(g.workDir(), "mutir-codegen-*")
	if err != nil {
		return nil, fmt.Errorf("scratch dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	srcPath := filepath.Join(tmp, "module.c")
	objPath := filepath.Join(tmp, "module.o")

	if err := os.WriteFile(srcPath, []byte(src), 0o600); err != nil {
		return nil, fmt.Errorf("write generated source: %w", err)
	}

	cmd := exec.Command(cc, "-c", "-O0", "-o", objPath, srcPath)

	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("%s -c: %w\n%s", cc, err, out)
	}

	return os.ReadFile(objPath)
}

func (g *CCGenerator) cc() string {
	if g.CC == "" {
		return "cc"
	}

	return g.CC
}

func (g *CCGenerator) workDir() string {
	if g.WorkDir == "" {
		return os.TempDir()
	}

	return g.WorkDir
}

func lowerToC(mod *ir.Module) (string, error) {
	var b strings.Builder

	b.WriteString("#include <stdint.h>\n\n")

	for _, fn := range mod.Functions {
		fmt.Fprintf(&b, "int64_t %s(void);\n", SafeSymbol(fn.Name))
	}

	b.WriteString("\n")

	for _, fn := range mod.Functions {
		if err := lowerFunction(&b, fn); err != nil {
			return "", err
		}
	}

	return b.String(), nil
}

func lowerFunction(b *strings.Builder, fn *ir.Function) error {
	fmt.Fprintf(b, "int64_t %s(void) {\n", SafeSymbol(fn.Name))

	varOf := make(map[*ir.Instruction]string)

	var (
		n    int
		last string
	)

	for _, blk := range fn.Blocks {
		for _, inst := range blk.Instructions {
			name := fmt.Sprintf("v%d", n)
			n++

			if err := lowerInstruction(b, fn.Name, inst, name, last, varOf); err != nil {
				return err
			}

			varOf[inst] = name
			last = name
		}
	}

	fmt.Fprintf(b, "    return %s;\n}\n\n", fallbackValue(last))

	return nil
}

func lowerInstruction(b *strings.Builder, fnName string, inst *ir.Instruction, name, last string, varOf map[*ir.Instruction]string) error {
	switch inst.Opcode {
	case ir.OpAdd, ir.OpFAdd, ir.OpSub, ir.OpFSub:
		if len(inst.Operands) != 2 {
			return fmt.Errorf("%s: arithmetic instruction needs 2 operands", fnName)
		}

		lhs, err := operandExpr(inst.Operands[0], varOf)
		if err != nil {
			return err
		}

		rhs, err := operandExpr(inst.Operands[1], varOf)
		if err != nil {
			return err
		}

		op := "+"
		if inst.Opcode == ir.OpSub || inst.Opcode == ir.OpFSub {
			op = "-"
		}

		fmt.Fprintf(b, "    int64_t %s = %s %s %s;\n", name, lhs, op, rhs)
	case ir.OpICmp:
		if len(inst.Operands) != 2 {
			return fmt.Errorf("%s: icmp needs 2 operands", fnName)
		}

		lhs, err := operandExpr(inst.Operands[0], varOf)
		if err != nil {
			return err
		}

		rhs, err := operandExpr(inst.Operands[1], varOf)
		if err != nil {
			return err
		}

		fmt.Fprintf(b, "    int64_t %s = (%s %s %s) ? 1 : 0;\n", name, lhs, predicateOp(inst.Predicate), rhs)
	case ir.OpCall:
		if len(inst.Operands) == 0 || inst.Operands[0].Kind != ir.OperandFuncRef {
			return fmt.Errorf("%s: call needs a function-reference operand", fnName)
		}

		fmt.Fprintf(b, "    int64_t %s = %s();\n", name, SafeSymbol(inst.Operands[0].Callee))
	case ir.OpRet:
		if len(inst.Operands) == 1 {
			expr, err := operandExpr(inst.Operands[0], varOf)
			if err != nil {
				return err
			}

			fmt.Fprintf(b, "    int64_t %s = %s;\n    return %s;\n", name, expr, name)
		} else {
			fmt.Fprintf(b, "    int64_t %s = %s;\n    return %s;\n", name, fallbackValue(last), name)
		}
	default:
		fmt.Fprintf(b, "    int64_t %s = 0; /* unsupported opcode %s */\n", name, inst.Opcode)
	}

	return nil
}

func operandExpr(op ir.Operand, varOf map[*ir.Instruction]string) (string, error) {
	switch op.Kind {
	case ir.OperandConstant:
		return fmt.Sprintf("%d", op.Constant), nil
	case ir.OperandInstRef:
		if op.Ref == nil {
			return "", fmt.Errorf("instruction-reference operand has a nil Ref")
		}

		name, ok := varOf[op.Ref]
		if !ok {
			return "", fmt.Errorf("instruction-reference operand points to an instruction not yet lowered")
		}

		return name, nil
	default:
		return "", fmt.Errorf("operand kind %d cannot be used as a value expression", op.Kind)
	}
}

func predicateOp(p ir.Predicate) string {
	switch p {
	case ir.PredEQ:
		return "=="
	case ir.PredNE:
		return "!="
	case ir.PredSLT:
		return "<"
	case ir.PredSLE:
		return "<="
	case ir.PredSGT:
		return ">"
	case ir.PredSGE:
		return ">="
	default:
		return "=="
	}
}

func fallbackValue(last string) string {
	if last == "" {
		return "0"
	}

	return last
}
