// Package bytecode implements the in-memory BytecodeModule described in
// spec.md §3/§6: constant pool, string pool, function prototypes, and the
// 32-bit ABC/ABx instruction encoding the compiler emits and the VM decodes.
//
// Grounded on the teacher's backend/opcodes.go and backend/instructions.go,
// generalized from Plaid's stack-machine-flavored byte opcodes to the
// spec's fixed-width register-machine instruction word.
package bytecode

// Opcode identifies an instruction's operation. Grouped by family to match
// spec.md §4.2's opcode family listing.
type Opcode uint8

const (
	OpNop Opcode = iota

	// Constants/moves
	OpLoadConst
	OpLoadNull
	OpLoadTrue
	OpLoadFalse
	OpLoadImmI8
	OpMove

	// Arithmetic
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow
	OpNeg
	OpNot

	// Comparison
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe

	// Control flow
	OpJump
	OpJumpIfTrue
	OpJumpIfFalse
	OpJumpIfNull

	// Calls
	OpCall
	OpTailCall
	OpReturn
	OpReturnNull

	// Closures
	OpClosure
	OpGetUpvalue
	OpSetUpvalue

	// Promoted-mutable locals (spec.md §9 "Upvalues as promoted locals"):
	// every `mut` local, captured or not, lives in a MutableRef cell that
	// MAKE_REF creates at its declaration; the enclosing function reads and
	// writes it through DEREF_GET/DEREF_SET instead of plain MOVE.
	OpDerefGet
	OpDerefSet
	OpMakeRef

	// Aggregates: Vector
	OpNewVector
	OpVecPush
	OpVecGet
	OpVecSet
	OpVecSlice
	OpVecLen

	// Aggregates: Record
	OpNewRecord
	OpGetField
	OpSetField
	OpSetFieldMut // like OpSetField but also marks the field mutable on the record
	OpRecordSpread

	// Patterns
	OpMatchType
	OpMatchLit
	OpDestructureRec
	OpDestructureVec

	// Generators
	OpCreateGen
	OpYield
	OpResumeGen

	// Exceptions
	OpPushHandler
	OpPopHandler
	OpThrow

	// Built-ins
	OpCallBuiltin

	// Globals
	OpGetGlobal
	OpSetGlobal

	opcodeCount
)

var opcodeNames = [...]string{
	OpNop:            "Nop",
	OpLoadConst:      "LoadConst",
	OpLoadNull:       "LoadNull",
	OpLoadTrue:       "LoadTrue",
	OpLoadFalse:      "LoadFalse",
	OpLoadImmI8:      "LoadImmI8",
	OpMove:           "Move",
	OpAdd:            "Add",
	OpSub:            "Sub",
	OpMul:            "Mul",
	OpDiv:            "Div",
	OpMod:            "Mod",
	OpPow:            "Pow",
	OpNeg:            "Neg",
	OpNot:            "Not",
	OpEq:             "Eq",
	OpNe:             "Ne",
	OpLt:             "Lt",
	OpLe:             "Le",
	OpGt:             "Gt",
	OpGe:             "Ge",
	OpJump:           "Jump",
	OpJumpIfTrue:     "JumpIfTrue",
	OpJumpIfFalse:    "JumpIfFalse",
	OpJumpIfNull:     "JumpIfNull",
	OpCall:           "Call",
	OpTailCall:       "TailCall",
	OpReturn:         "Return",
	OpReturnNull:     "ReturnNull",
	OpClosure:        "Closure",
	OpGetUpvalue:     "GetUpvalue",
	OpSetUpvalue:     "SetUpvalue",
	OpDerefGet:       "DerefGet",
	OpDerefSet:       "DerefSet",
	OpMakeRef:        "MakeRef",
	OpNewVector:      "NewVector",
	OpVecPush:        "VecPush",
	OpVecGet:         "VecGet",
	OpVecSet:         "VecSet",
	OpVecSlice:       "VecSlice",
	OpVecLen:         "VecLen",
	OpNewRecord:      "NewRecord",
	OpGetField:       "GetField",
	OpSetField:       "SetField",
	OpSetFieldMut:    "SetFieldMut",
	OpRecordSpread:   "RecordSpread",
	OpMatchType:      "MatchType",
	OpMatchLit:       "MatchLit",
	OpDestructureRec: "DestructureRec",
	OpDestructureVec: "DestructureVec",
	OpCreateGen:      "CreateGen",
	OpYield:          "Yield",
	OpResumeGen:      "ResumeGen",
	OpPushHandler:    "PushHandler",
	OpPopHandler:     "PopHandler",
	OpThrow:          "Throw",
	OpCallBuiltin:    "CallBuiltin",
	OpGetGlobal:      "GetGlobal",
	OpSetGlobal:      "SetGlobal",
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) && opcodeNames[op] != "" {
		return opcodeNames[op]
	}
	return "Unknown"
}

// Register 255 is reserved for the executing closure (`rec` self-reference,
// spec.md §4.3); the register allocator never hands it out to ordinary
// temporaries or locals.
const RecRegister uint8 = 255

// MaxUsableRegister is the highest register index an allocator may assign to
// a temporary/local/parameter.
const MaxUsableRegister = 254
