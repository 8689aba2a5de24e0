package compiler

import "github.com/achronyme/achronyme/bytecode"

// regAlloc is the register allocator for one compilation unit (spec.md
// §4.1's "free-list and a high-water mark"). Grounded on the teacher's
// assembly.stackPtr/reservedRegs bookkeeping (backend/compiler.go), but
// generalized from a single bump pointer to a free-list so temporaries
// freed mid-expression can be reused rather than only ever growing.
type regAlloc struct {
	free     []uint8 // indices available for reuse, smallest-first invariant not required; alloc scans
	highWater uint8
	used      int // highWater+1 if any register ever allocated, else 0; tracks RegisterCount
}

func newRegAlloc() *regAlloc {
	return &regAlloc{}
}

// alloc returns the smallest free register, or the next fresh one if the
// free-list is empty. Panics with tooManyRegisters{} if the allocation
// would exceed MaxUsableRegister; Compile (compiler.go) recovers this into
// a TooManyRegisters CompileError, which carries no source position.
func (r *regAlloc) alloc() uint8 {
	if len(r.free) > 0 {
		// smallest-first: scan since the free-list is typically tiny.
		minIdx := 0
		for i := 1; i < len(r.free); i++ {
			if r.free[i] < r.free[minIdx] {
				minIdx = i
			}
		}
		reg := r.free[minIdx]
		r.free = append(r.free[:minIdx], r.free[minIdx+1:]...)
		return reg
	}

	if r.used > bytecode.MaxUsableRegister {
		panic(tooManyRegisters{})
	}

	reg := uint8(r.used)
	r.used++
	if int(reg) > int(r.highWater) || r.used == 1 {
		r.highWater = reg
	}
	return reg
}

// reserve claims a specific register (used for parameters/locals whose
// index is fixed by declaration order) without consulting the free-list.
func (r *regAlloc) reserve(reg uint8) {
	if int(reg) >= r.used {
		r.used = int(reg) + 1
	}
	if reg > r.highWater {
		r.highWater = reg
	}
}

// release returns a temporary register to the pool.
func (r *regAlloc) release(reg uint8) {
	r.free = append(r.free, reg)
}

// registerCount reports the total register window this unit needs.
func (r *regAlloc) registerCount() int {
	return r.used
}

// tooManyRegisters is the panic payload alloc() raises on overflow;
// compiler.go's top-level recover turns it into a *CompileError.
type tooManyRegisters struct{}

// RegResult is the compile-time pair described in spec.md §4.1: every
// expression-lowering routine returns one, and the caller frees the
// register iff IsTemp is true.
type RegResult struct {
	Reg    uint8
	IsTemp bool
}

func (c *unit) freeIfTemp(r RegResult) {
	if r.IsTemp {
		c.regs.release(r.Reg)
	}
}
