package bytecode

import (
	"fmt"
	"io"
)

// Disassemble renders a FuncPrototype (and, recursively, every prototype it
// nests) as a human-readable instruction listing. Grounded directly on the
// teacher's backend/disassembly.go, generalized from its byte-offset
// variable-length walk to a fixed-width instruction-index walk.
func Disassemble(w io.Writer, proto *FuncPrototype, pool *ConstantPool) {
	disassemble(w, proto, pool, "main")
}

func disassemble(w io.Writer, proto *FuncPrototype, pool *ConstantPool, label string) {
	fmt.Fprintf(w, "<function %q (%s)>\n", proto.Name, label)
	fmt.Fprintf(w, "  params=%d optional=%d registers=%d generator=%t\n",
		proto.ParamCount, proto.OptionalCount, proto.RegisterCount, proto.IsGenerator)

	for i, instr := range proto.Code {
		fmt.Fprintf(w, "  %4d %s\n", i, formatInstruction(instr))
	}

	if len(proto.Upvalues) > 0 {
		fmt.Fprintf(w, "  upvalues (%d):\n", len(proto.Upvalues))
		for i, uv := range proto.Upvalues {
			fmt.Fprintf(w, "   #%d %q localToParent=%t index=%d mutable=%t\n",
				i, uv.Name, uv.LocalToParent, uv.LookupIndex, uv.Mutable)
		}
	}

	for i, nested := range proto.NestedProtos {
		disassemble(w, nested, pool, fmt.Sprintf("nested #%d", i))
	}
}

// formatInstruction renders one instruction. Operand layout by opcode
// family (spec.md §3 only fixes the two encodings, ABC and A+Bx; the
// per-opcode operand assignment below is this compiler/VM's own
// convention, documented here and in compiler/compiler.go):
//   - LOAD_CONST, GET_GLOBAL, SET_GLOBAL, CLOSURE: A + Bx(16-bit pool index)
//   - GET_FIELD, SET_FIELD, CALL_BUILTIN, CALL, TAIL_CALL: ABC (register/id
//     triples; field-name and builtin ids are capped at 256 per module so
//     they fit an 8-bit operand)
//   - VEC_SLICE: A=dest, B=vecReg, C=fromReg, with toReg = fromReg+1
//     (contiguous, the same convention CALL uses for argument registers)
func formatInstruction(instr Instruction) string {
	op := instr.Opcode()
	switch op {
	case OpLoadConst, OpGetGlobal, OpSetGlobal, OpClosure:
		return fmt.Sprintf("%-14s r%d, #%d", op, instr.A(), instr.Bx())
	case OpLoadImmI8:
		return fmt.Sprintf("%-14s r%d, $%d", op, instr.A(), int8(instr.B()))
	case OpJump:
		return fmt.Sprintf("%-14s %+d", op, instr.SBx())
	case OpJumpIfTrue, OpJumpIfFalse, OpJumpIfNull:
		return fmt.Sprintf("%-14s r%d, %+d", op, instr.A(), instr.SBx())
	case OpGetUpvalue:
		return fmt.Sprintf("%-14s r%d, #%d", op, instr.A(), instr.B())
	case OpSetUpvalue:
		return fmt.Sprintf("%-14s #%d, r%d", op, instr.A(), instr.B())
	case OpCall, OpTailCall:
		return fmt.Sprintf("%-14s r%d, func=r%d, argc=%d", op, instr.A(), instr.B(), instr.C())
	case OpCallBuiltin:
		return fmt.Sprintf("%-14s r%d, builtin=#%d, argc=%d", op, instr.A(), instr.B(), instr.C())
	case OpGetField:
		return fmt.Sprintf("%-14s r%d, r%d, field=#%d", op, instr.A(), instr.B(), instr.C())
	case OpSetField, OpSetFieldMut:
		return fmt.Sprintf("%-14s r%d, field=#%d, r%d", op, instr.A(), instr.B(), instr.C())
	case OpReturn, OpNeg, OpNot, OpThrow, OpPopHandler:
		return fmt.Sprintf("%-14s r%d", op, instr.A())
	case OpReturnNull, OpNop:
		return op.String()
	case OpMove, OpDerefGet, OpDerefSet, OpVecLen:
		return fmt.Sprintf("%-14s r%d, r%d", op, instr.A(), instr.B())
	case OpPushHandler:
		return fmt.Sprintf("%-14s catch=#%d, errReg=r%d", op, instr.Bx(), instr.A())
	default:
		return fmt.Sprintf("%-14s r%d, r%d, r%d", op, instr.A(), instr.B(), instr.C())
	}
}
