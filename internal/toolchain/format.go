package toolchain

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sivchari/mutir/internal/ir"
)

// TextLoader parses mutir's plain-text module interchange format, a
// deliberately simple stand-in for real LLVM bitcode (see doc.go).
//
// Format (one module per file, blank lines and "#" comments ignored):
//
//	function <name> [key=value ...]
//	block <label>
//	<opcode> <operand>[,<operand>] [pred=<p>] [dbg=<path>:<line>:<col>]
//	...
//	endblock
//	endfunction
//
// Operands: "#<int>" is a constant, "@<name>" is a function reference
// (for call), "%<n>" refers to the nth previously parsed instruction in
// the same function, counting across block boundaries.
type TextLoader struct{}

// NewTextLoader creates a TextLoader.
func NewTextLoader() *TextLoader { return &TextLoader{} }

// LoadModuleAtPath implements store.ModuleLoader.
func (l *TextLoader) LoadModuleAtPath(path string) (*ir.Module, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	mod := &ir.Module{SourcePath: path}

	var (
		fn      *ir.Function
		block   *ir.BasicBlock
		history []*ir.Instruction
	)

	scanner := bufio.NewScanner(f)

	lineNo := 0

	for scanner.Scan() {
		lineNo++

		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		fields := strings.Fields(text)

		switch fields[0] {
		case "function":
			if len(fields) < 2 {
				return nil, fmt.Errorf("%s:%d: function needs a name", path, lineNo)
			}

			fn = &ir.Function{Name: fields[1], Attrs: map[string]string{}}
			for _, kv := range fields[2:] {
				if k, v, ok := strings.Cut(kv, "="); ok {
					fn.Attrs[k] = v
				}
			}

			history = nil
			mod.Functions = append(mod.Functions, fn)
		case "endfunction":
			fn = nil
		case "block":
			if fn == nil {
				return nil, fmt.Errorf("%s:%d: block outside function", path, lineNo)
			}

			if len(fields) < 2 {
				return nil, fmt.Errorf("%s:%d: block needs a label", path, lineNo)
			}

			block = ir.NewBasicBlock(fn, fields[1])
		case "endblock":
			block = nil
		default:
			if fn == nil || block == nil {
				return nil, fmt.Errorf("%s:%d: instruction outside block", path, lineNo)
			}

			inst, err := parseInstruction(fields, history)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: %w", path, lineNo, err)
			}

			ir.AppendInstruction(block, inst)

			history = append(history, inst)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return mod, nil
}

func parseInstruction(fields []string, history []*ir.Instruction) (*ir.Instruction, error) {
	opcode, ok := opcodeFromString(fields[0])
	if !ok {
		return nil, fmt.Errorf("unknown opcode %q", fields[0])
	}

	inst := &ir.Instruction{Opcode: opcode}

	for _, field := range fields[1:] {
		if k, v, ok := strings.Cut(field, "="); ok && (k == "pred" || k == "dbg") {
			switch k {
			case "pred":
				inst.Predicate = predicateFromString(v)
			case "dbg":
				loc, err := parseDebugLoc(v)
				if err != nil {
					return nil, err
				}

				inst.DebugLoc = loc
			}

			continue
		}

		for _, raw := range strings.Split(field, ",") {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}

			op, err := parseOperand(raw, history)
			if err != nil {
				return nil, err
			}

			inst.Operands = append(inst.Operands, op)
		}
	}

	return inst, nil
}

func parseOperand(raw string, history []*ir.Instruction) (ir.Operand, error) {
	if raw == "" {
		return ir.Operand{}, fmt.Errorf("empty operand")
	}

	switch raw[0] {
	case '#':
		n, err := strconv.ParseInt(raw[1:], 10, 64)
		if err != nil {
			return ir.Operand{}, fmt.Errorf("invalid constant operand %q: %w", raw, err)
		}

		return ir.Operand{Kind: ir.OperandConstant, Constant: n}, nil
	case '@':
		return ir.Operand{Kind: ir.OperandFuncRef, Callee: raw[1:]}, nil
	case '%':
		n, err := strconv.Atoi(raw[1:])
		if err != nil {
			return ir.Operand{}, fmt.Errorf("invalid reference operand %q: %w", raw, err)
		}

		if n < 0 || n >= len(history) {
			return ir.Operand{}, fmt.Errorf("reference operand %q out of range", raw)
		}

		return ir.Operand{Kind: ir.OperandInstRef, Ref: history[n]}, nil
	default:
		return ir.Operand{}, fmt.Errorf("unrecognized operand %q", raw)
	}
}

func parseDebugLoc(v string) (*ir.SourceLocation, error) {
	parts := strings.Split(v, ":")
	if len(parts) != 3 {
		return nil, fmt.Errorf("invalid dbg location %q, want path:line:column", v)
	}

	line, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, fmt.Errorf("invalid dbg line in %q: %w", v, err)
	}

	col, err := strconv.Atoi(parts[2])
	if err != nil {
		return nil, fmt.Errorf("invalid dbg column in %q: %w", v, err)
	}

	return &ir.SourceLocation{Path: parts[0], Line: line, Column: col}, nil
}

func opcodeFromString(s string) (ir.Opcode, bool) {
	switch s {
	case "add":
		return ir.OpAdd, true
	case "fadd":
		return ir.OpFAdd, true
	case "sub":
		return ir.OpSub, true
	case "fsub":
		return ir.OpFSub, true
	case "icmp":
		return ir.OpICmp, true
	case "call":
		return ir.OpCall, true
	case "ret":
		return ir.OpRet, true
	case "store":
		return ir.OpStore, true
	case "load":
		return ir.OpLoad, true
	case "br":
		return ir.OpBr, true
	default:
		return ir.OpUnknown, false
	}
}

func predicateFromString(s string) ir.Predicate {
	switch s {
	case "eq":
		return ir.PredEQ
	case "ne":
		return ir.PredNE
	case "slt":
		return ir.PredSLT
	case "sle":
		return ir.PredSLE
	case "sgt":
		return ir.PredSGT
	case "sge":
		return ir.PredSGE
	default:
		return ir.PredNone
	}
}
