package bytecode

// Instruction is a single 32-bit bytecode word: an 8-bit opcode followed
// either by three 8-bit operands (A, B, C) or by an 8-bit operand A and a
// 16-bit immediate/index (Bx). spec.md §3 "Instruction encoding".
type Instruction uint32

// EncodeABC packs an opcode and three byte operands into one instruction,
// mirroring the teacher's per-instruction Generate() methods (backend/
// instructions.go) but as a single fixed-width word instead of a variable
// length byte run.
func EncodeABC(op Opcode, a, b, c uint8) Instruction {
	return Instruction(uint32(op) | uint32(a)<<8 | uint32(b)<<16 | uint32(c)<<24)
}

// EncodeABx packs an opcode, a byte operand A, and a 16-bit operand Bx.
func EncodeABx(op Opcode, a uint8, bx uint16) Instruction {
	return Instruction(uint32(op) | uint32(a)<<8 | uint32(bx)<<16)
}

// EncodeAsBx packs a signed 16-bit branch offset, relative to the position
// of the instruction immediately following the branch (spec.md §3).
func EncodeAsBx(op Opcode, a uint8, sbx int16) Instruction {
	return EncodeABx(op, a, uint16(sbx))
}

func (i Instruction) Opcode() Opcode { return Opcode(uint32(i) & 0xFF) }
func (i Instruction) A() uint8       { return uint8(uint32(i) >> 8 & 0xFF) }
func (i Instruction) B() uint8       { return uint8(uint32(i) >> 16 & 0xFF) }
func (i Instruction) C() uint8       { return uint8(uint32(i) >> 24 & 0xFF) }
func (i Instruction) Bx() uint16     { return uint16(uint32(i) >> 16 & 0xFFFF) }
func (i Instruction) SBx() int16     { return int16(i.Bx()) }

// Code is a prototype's instruction stream.
type Code []Instruction

// Write appends an instruction and returns its index, used by the compiler
// when patching forward jumps (spec.md §4.1 "jump patch table").
func (c *Code) Write(instr Instruction) (index int) {
	index = len(*c)
	*c = append(*c, instr)
	return index
}

// Patch overwrites the Bx/SBx operand of an already-emitted jump
// instruction, preserving its opcode and A operand.
func (c Code) Patch(index int, sbx int16) {
	instr := c[index]
	c[index] = EncodeAsBx(instr.Opcode(), instr.A(), sbx)
}

// PatchBx overwrites an instruction's 16-bit Bx operand in place, keeping
// its opcode and A operand. compileTry (compiler/compiler.go) uses it to
// fill in PUSH_HANDLER's absolute catch PC once the catch block's position
// is known.
func (c Code) PatchBx(index int, bx uint16) {
	instr := c[index]
	c[index] = EncodeABx(instr.Opcode(), instr.A(), bx)
}
