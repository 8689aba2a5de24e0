package compiler

import "github.com/achronyme/achronyme/bytecode"

// symbol records one binding's home: a register in the current unit, or an
// upvalue slot once resolve_upvalue has pulled it in from an enclosing
// unit. Grounded on the teacher's frontend.Scope/LocalRecord pairing
// (frontend/scope.go), but collapsed into one table per compilation unit
// instead of a typeTable+variables split, since the compiler here does no
// static type checking.
type symbol struct {
	name      string
	reg       uint8
	mutable   bool
	isUpvalue bool
	upvalIdx  int
}

// scope is one lexical block within a unit; scopes push/pop and shadow.
type scope struct {
	parent  *scope
	symbols map[string]*symbol
}

func newScope(parent *scope) *scope {
	return &scope{parent: parent, symbols: make(map[string]*symbol)}
}

func (s *scope) define(sym *symbol) {
	s.symbols[sym.name] = sym
}

func (s *scope) lookup(name string) (*symbol, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if sym, ok := cur.symbols[name]; ok {
			return sym, true
		}
	}
	return nil, false
}

// resolveLocal finds a name bound by a local (non-upvalue) symbol in this
// unit's own scope chain, without consulting upvalues or parent units.
func (s *scope) resolveLocal(name string) (*symbol, bool) {
	sym, ok := s.lookup(name)
	if !ok || sym.isUpvalue {
		return nil, false
	}
	return sym, true
}

// resolveUpvalue walks from u up through its parents, implementing
// spec.md §4.1's resolve_upvalue: find the name as a local in a parent
// (emit a descriptor reading that register), or recurse higher and emit a
// descriptor reading the parent's own upvalue array. Lifted directly from
// the teacher's frontend/scope.go registerUpvalue, generalized from a
// single-scope-per-function model to the unit/scope split used here.
func (u *unit) resolveUpvalue(name string) (idx int, ok bool) {
	if existing, found := u.upvalIndex[name]; found {
		return existing, true
	}

	if u.parent == nil {
		return 0, false
	}

	var desc bytecode.UpvalueDescriptor
	desc.Name = name

	if parentLocal, found := u.parent.top.resolveLocal(name); found {
		desc.LocalToParent = true
		desc.LookupIndex = int(parentLocal.reg)
		desc.Mutable = parentLocal.mutable
		// No promotion step needed here: every mut local is already boxed
		// into a MutableRef at its let-mut declaration (see unit.defineAndInit
		// in compiler.go), so capturing one is a plain value-copy of a Value
		// whose ptr field aliases the same cell.
	} else if parentUpvalIdx, found := u.parent.resolveUpvalue(name); found {
		desc.LocalToParent = false
		desc.LookupIndex = parentUpvalIdx
		desc.Mutable = u.parent.upvalues[parentUpvalIdx].Mutable
	} else {
		return 0, false
	}

	idx = len(u.upvalues)
	u.upvalues = append(u.upvalues, desc)
	u.upvalIndex[name] = idx

	sym := &symbol{name: name, isUpvalue: true, upvalIdx: idx, mutable: desc.Mutable}
	u.top.define(sym)

	return idx, true
}
