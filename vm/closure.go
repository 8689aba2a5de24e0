package vm

import (
	"github.com/achronyme/achronyme/bytecode"
	"github.com/achronyme/achronyme/value"
)

// Closure pairs a compiled prototype with its captured upvalue values.
// Grounded on the teacher's backend/functions.go Closure type, but the
// upvalue array is a plain []value.Value copied once at CLOSURE-creation
// time rather than a []Upvalue{Cell *Register} indirection: a `mut` local
// is always boxed into a MutableRef from its declaration (compiler/
// compiler.go's defineAndInit/defineBoundLocal), so the Value stored in an
// upvalue slot already carries a *MutableRef in its opaque ptr field, and a
// plain struct copy preserves that pointer's identity. Sharing a mutable
// capture across closures falls out of Go's copy semantics with no need for
// the teacher's open/closed upvalue bookkeeping.
type Closure struct {
	Proto    *bytecode.FuncPrototype
	Upvalues []value.Value
}

func NewClosure(proto *bytecode.FuncPrototype, enclosing *Frame) *Closure {
	upvals := make([]value.Value, len(proto.Upvalues))
	for i, desc := range proto.Upvalues {
		if desc.LocalToParent {
			upvals[i] = enclosing.registers[desc.LookupIndex]
		} else {
			upvals[i] = enclosing.closure.Upvalues[desc.LookupIndex]
		}
	}
	return &Closure{Proto: proto, Upvalues: upvals}
}
