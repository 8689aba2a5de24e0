// Package compiler lowers an ast.Program into a bytecode.Module. Grounded
// on the teacher's backend/compiler.go (the assembly/register-stack model)
// and frontend/scope.go (upvalue resolution), generalized to the fuller
// register-window instruction set and construct list of this language.
//
// Design simplification (documented in DESIGN.md): every `mut` local is
// unconditionally boxed in a MutableRef from declaration, not only those
// later found to be captured by a closure. This avoids a two-pass capture
// analysis (the teacher's static analysis pass, not reused here since this
// compiler resolves scopes live) while preserving identical observable
// semantics — a captured mutable and an uncaptured one behave the same
// either way, at the cost of one indirection for every mut access.
package compiler

import (
	"fmt"

	"github.com/achronyme/achronyme/ast"
	"github.com/achronyme/achronyme/builtin"
	"github.com/achronyme/achronyme/bytecode"
	"github.com/achronyme/achronyme/source"
)

// Compiler holds state shared across every compilation unit in a module:
// the constant and string pools are deduplicated module-wide, and the
// builtin registry tells identifier resolution which bare names should
// lower to CALL_BUILTIN instead of a generic GET_GLOBAL+CALL (spec.md
// §4.6: "The compiler, at lookup time, either resolves a call-site to a
// CALL_BUILTIN with a numeric id or defers resolution to runtime
// GET_GLOBAL").
type Compiler struct {
	constants *bytecode.ConstantPool
	strings   *bytecode.StringPool
	builtins  *builtin.Registry
}

func New(builtins *builtin.Registry) *Compiler {
	return &Compiler{
		constants: bytecode.NewConstantPool(),
		strings:   bytecode.NewStringPool(),
		builtins:  builtins,
	}
}

// unit is the compiler's state for one function being compiled (spec.md
// §4.1 "state per compilation unit").
type unit struct {
	c      *Compiler
	parent *unit
	top    *scope
	regs   *regAlloc

	code  bytecode.Code
	lines []int

	upvalues   []bytecode.UpvalueDescriptor
	upvalIndex map[string]int

	nestedProtos []*bytecode.FuncPrototype
	loops        []*loopCtx
	handlers     []bytecode.ExceptionHandler
	handlerDepth int // >0 means a PUSH_HANDLER is active; blocks tail calls

	name          string
	paramCount    int
	optionalCount int
	isGenerator   bool
	curLine       int
}

func newUnit(c *Compiler, parent *unit, name string) *unit {
	return &unit{
		c:          c,
		parent:     parent,
		top:        newScope(nil),
		regs:       newRegAlloc(),
		upvalIndex: make(map[string]int),
		name:       name,
	}
}

// Compile lowers a program into a module. Any CompileError raised deep in
// the recursive descent is recovered here and returned normally; panics of
// any other kind are a VM/compiler bug and are allowed to propagate.
func (c *Compiler) Compile(prog *ast.Program) (mod *bytecode.Module, err error) {
	defer func() {
		if r := recover(); r != nil {
			if ce, ok := r.(*CompileError); ok {
				err = ce
				return
			}
			if _, ok := r.(tooManyRegisters); ok {
				err = &CompileError{Kind: TooManyRegisters, Message: "function requires more than 255 registers"}
				return
			}
			panic(r)
		}
	}()

	u := newUnit(c, nil, "main")
	for i, stmt := range prog.Statements {
		if i == len(prog.Statements)-1 {
			if es, ok := stmt.(*ast.ExprStmt); ok {
				u.curLine = es.Pos().Line
				r := u.compileExpr(es.X, u.regs.alloc())
				u.emit(bytecode.EncodeABC(bytecode.OpReturn, r.Reg, 0, 0))
				u.freeIfTemp(r)
				break
			}
		}
		u.compileStmt(stmt)
	}
	u.emit(bytecode.EncodeABC(bytecode.OpReturnNull, 0, 0, 0))

	main := u.finish()
	return bytecode.NewModule(main, c.constants, c.strings), nil
}

func (u *unit) finish() *bytecode.FuncPrototype {
	return &bytecode.FuncPrototype{
		Name:          u.name,
		ParamCount:    u.paramCount,
		OptionalCount: u.optionalCount,
		RegisterCount: u.regs.registerCount(),
		Code:          u.code,
		Upvalues:      u.upvalues,
		NestedProtos:  u.nestedProtos,
		IsGenerator:   u.isGenerator,
		Handlers:      u.handlers,
		Lines:         u.lines,
	}
}

func (u *unit) emit(instr bytecode.Instruction) int {
	idx := u.code.Write(instr)
	u.lines = append(u.lines, u.curLine)
	return idx
}

func (u *unit) fail(kind Kind, pos ast.Node, format string, args ...interface{}) {
	p := pos.Pos()
	panic(newError(kind, p.Line, p.Col, format, args...))
}

// pushScope/popScope manage lexical blocks; registers allocated to locals
// declared in the popped scope are released back to the free-list.
func (u *unit) pushScope() {
	u.top = newScope(u.top)
}

func (u *unit) popScope(releaseRegs bool) {
	if releaseRegs {
		for _, sym := range u.top.symbols {
			if !sym.isUpvalue {
				u.regs.release(sym.reg)
			}
		}
	}
	u.top = u.top.parent
}

func (u *unit) internField(name string) uint8 {
	idx := u.c.strings.Intern(name)
	if idx > 255 {
		panic(newError(ConstantPoolOverflow, 0, 0, "more than 256 distinct field/global names in module"))
	}
	return uint8(idx)
}

func (u *unit) internName(name string) int {
	return u.c.strings.Intern(name)
}

// --- statements ---

func (u *unit) compileStmt(stmt ast.Stmt) {
	u.curLine = stmt.Pos().Line
	switch n := stmt.(type) {
	case *ast.LetStmt:
		u.compileLet(n)
	case *ast.AssignStmt:
		u.compileAssign(n)
	case *ast.ExprStmt:
		r := u.compileExpr(n.X, u.regs.alloc())
		u.freeIfTemp(r)
	case *ast.ReturnStmt:
		u.compileReturn(n)
	case *ast.BreakStmt:
		lc := u.currentLoop()
		if lc == nil {
			u.fail(BreakContinueOutsideLoop, n, "break outside loop")
		}
		idx := u.emit(bytecode.EncodeAsBx(bytecode.OpJump, 0, 0))
		lc.breakPatches = append(lc.breakPatches, idx)
	case *ast.ContinueStmt:
		lc := u.currentLoop()
		if lc == nil {
			u.fail(BreakContinueOutsideLoop, n, "continue outside loop")
		}
		idx := u.emit(bytecode.EncodeAsBx(bytecode.OpJump, 0, 0))
		lc.continuePatches = append(lc.continuePatches, idx)
	case *ast.WhileStmt:
		u.compileWhile(n)
	case *ast.ForInStmt:
		u.compileForIn(n)
	case *ast.MatchStmt:
		u.compileMatch(n, nil)
	case *ast.ThrowStmt:
		r := u.compileExpr(n.Argument, u.regs.alloc())
		u.emit(bytecode.EncodeABC(bytecode.OpThrow, r.Reg, 0, 0))
		u.freeIfTemp(r)
	default:
		panic(fmt.Sprintf("compiler: unhandled statement node %T", n))
	}
}

// compileBlockInto compiles a statement list such that, if the final
// statement is an expression-statement, its value lands in destReg
// (expression-oriented block semantics, spec.md §6); otherwise destReg is
// loaded with Null.
func (u *unit) compileBlockInto(stmts []ast.Stmt, destReg uint8) {
	u.pushScope()
	defer u.popScope(true)

	for i, stmt := range stmts {
		if i == len(stmts)-1 {
			if es, ok := stmt.(*ast.ExprStmt); ok {
				u.curLine = es.Pos().Line
				r := u.compileExpr(es.X, destReg)
				if r.Reg != destReg {
					u.emit(bytecode.EncodeABC(bytecode.OpMove, destReg, r.Reg, 0))
					u.freeIfTemp(r)
				}
				return
			}
		}
		u.compileStmt(stmt)
	}
	u.emit(bytecode.EncodeABC(bytecode.OpLoadNull, destReg, 0, 0))
}

func (u *unit) compileLet(n *ast.LetStmt) {
	u.bindPattern(n.Target, n.Assignment, n.Mutable)
}

// bindPattern lowers a (possibly destructuring) binding: an IdentPattern
// is the common case; Vector/Record patterns desugar to index/field reads
// plus defaults and type assertions (spec.md §4.1 "Destructuring").
func (u *unit) bindPattern(pat ast.Pattern, valueExpr ast.Expr, mutable bool) {
	switch p := pat.(type) {
	case *ast.IdentPattern:
		u.defineAndInit(p.Name, valueExpr, mutable, p)
	case *ast.WildcardPattern:
		r := u.compileExpr(valueExpr, u.regs.alloc())
		u.freeIfTemp(r)
	case *ast.VectorPattern:
		srcReg := u.regs.alloc()
		vr := u.compileExpr(valueExpr, srcReg)
		if vr.Reg != srcReg {
			u.emit(bytecode.EncodeABC(bytecode.OpMove, srcReg, vr.Reg, 0))
			u.freeIfTemp(vr)
		}
		for i, elemPat := range p.Elements {
			idxConst := u.c.constants.Number(float64(i))
			idxReg := u.regs.alloc()
			u.emit(bytecode.EncodeABx(bytecode.OpLoadConst, idxReg, uint16(idxConst)))
			elemReg := u.regs.alloc()
			u.emit(bytecode.EncodeABC(bytecode.OpVecGet, elemReg, srcReg, idxReg))
			u.regs.release(idxReg)
			u.bindDestructuredValue(elemPat, elemReg, mutable)
		}
		u.regs.release(srcReg)
	case *ast.RecordPattern:
		srcReg := u.regs.alloc()
		vr := u.compileExpr(valueExpr, srcReg)
		if vr.Reg != srcReg {
			u.emit(bytecode.EncodeABC(bytecode.OpMove, srcReg, vr.Reg, 0))
			u.freeIfTemp(vr)
		}
		for _, field := range p.Fields {
			fieldReg := u.regs.alloc()
			fieldIdx := u.internField(field.Key)
			u.emit(bytecode.EncodeABC(bytecode.OpGetField, fieldReg, srcReg, fieldIdx))

			if field.Default != nil {
				skip := u.emit(bytecode.EncodeAsBx(bytecode.OpJumpIfNull, fieldReg, 0))
				// fall-through path: field present; nothing to do.
				endJump := u.emit(bytecode.EncodeAsBx(bytecode.OpJump, 0, 0))
				u.patchJump(skip)
				defR := u.compileExpr(field.Default, fieldReg)
				if defR.Reg != fieldReg {
					u.emit(bytecode.EncodeABC(bytecode.OpMove, fieldReg, defR.Reg, 0))
					u.freeIfTemp(defR)
				}
				u.patchJump(endJump)
			}

			if field.TypeAssert != "" {
				typeConst := u.c.constants.String(field.TypeAssert)
				okReg := u.regs.alloc()
				u.emit(bytecode.EncodeABx(bytecode.OpLoadConst, okReg, uint16(typeConst)))
				resReg := u.regs.alloc()
				u.emit(bytecode.EncodeABC(bytecode.OpMatchType, resReg, fieldReg, okReg))
				u.regs.release(okReg)
				fail := u.emit(bytecode.EncodeAsBx(bytecode.OpJumpIfTrue, resReg, 0))
				u.regs.release(resReg)
				msgConst := u.c.constants.String(fmt.Sprintf("field %q failed type pattern %q", field.Key, field.TypeAssert))
				msgReg := u.regs.alloc()
				u.emit(bytecode.EncodeABx(bytecode.OpLoadConst, msgReg, uint16(msgConst)))
				u.emit(bytecode.EncodeABC(bytecode.OpThrow, msgReg, matchErrorTag, 0))
				u.regs.release(msgReg)
				u.patchJump(fail)
			}

			name := field.Key
			if field.Binding != nil {
				u.bindDestructuredValue(field.Binding, fieldReg, mutable)
				continue
			}
			u.defineBoundLocal(name, fieldReg, mutable)
		}
		u.regs.release(srcReg)
	default:
		panic(fmt.Sprintf("compiler: unhandled pattern node %T", p))
	}
}

// matchErrorTag marks a THROW emitted by the compiler itself (type-pattern
// failure) as constructing a MatchError; the VM's THROW handling treats a
// nonzero B operand on a compiler-synthesized throw as "wrap this string
// constant as kind=MatchError" rather than a user throw.
const matchErrorTag = 1

// bindDestructuredValue binds a nested pattern to a value already sitting
// in a register (used by vector/record pattern elements).
func (u *unit) bindDestructuredValue(pat ast.Pattern, reg uint8, mutable bool) {
	switch p := pat.(type) {
	case *ast.IdentPattern:
		u.defineBoundLocal(p.Name, reg, mutable)
	case *ast.WildcardPattern:
		// discard
	default:
		// Nested vector/record patterns: re-enter the general pattern
		// lowering using the already-materialized value as the source.
		u.bindPattern(pat, identityExprFor(reg), mutable)
	}
}

// defineBoundLocal binds name to a value already sitting in reg. If mutable,
// the value is boxed into a fresh MutableRef register (matching
// defineAndInit's boxing of plain `let mut` bindings) so every subsequent
// read/write of this local goes through OpDerefGet/OpDerefSet rather than
// treating reg itself as the storage location.
func (u *unit) defineBoundLocal(name string, reg uint8, mutable bool) {
	if mutable {
		local := u.regs.alloc()
		u.emit(bytecode.EncodeABC(bytecode.OpMakeRef, local, reg, 0))
		u.regs.release(reg)
		u.top.define(&symbol{name: name, reg: local, mutable: true})
		return
	}
	u.regs.reserve(reg)
	u.top.define(&symbol{name: name, reg: reg, mutable: false})
}

// defineAndInit compiles the initializer and binds it to a fresh local,
// boxing it in a MutableRef first if declared `mut`.
func (u *unit) defineAndInit(name string, valueExpr ast.Expr, mutable bool, pos ast.Node) {
	if mutable {
		tmp := u.regs.alloc()
		vr := u.compileExpr(valueExpr, tmp)
		if vr.Reg != tmp {
			u.emit(bytecode.EncodeABC(bytecode.OpMove, tmp, vr.Reg, 0))
			u.freeIfTemp(vr)
		}
		local := u.regs.alloc()
		u.emit(bytecode.EncodeABC(bytecode.OpMakeRef, local, tmp, 0))
		u.regs.release(tmp)
		u.top.define(&symbol{name: name, reg: local, mutable: true})
		return
	}

	local := u.regs.alloc()
	vr := u.compileExpr(valueExpr, local)
	if vr.Reg != local {
		u.emit(bytecode.EncodeABC(bytecode.OpMove, local, vr.Reg, 0))
		u.freeIfTemp(vr)
	}
	u.top.define(&symbol{name: name, reg: local, mutable: false})
}

func (u *unit) compileAssign(n *ast.AssignStmt) {
	switch target := n.Target.(type) {
	case *ast.Ident:
		u.compileAssignToName(target.Name, n.Operator, n.Assignment, n)
	case *ast.FieldAccessExpr:
		rootR := u.compileExpr(target.Root, u.regs.alloc())
		valExpr := n.Assignment
		if n.Operator != "=" {
			valExpr = desugarCompound(n.Operator, &ast.FieldAccessExpr{Root: target.Root, Field: target.Field}, n.Assignment)
		}
		valR := u.compileExpr(valExpr, u.regs.alloc())
		fieldIdx := u.internField(target.Field)
		u.emit(bytecode.EncodeABC(bytecode.OpSetField, rootR.Reg, fieldIdx, valR.Reg))
		u.freeIfTemp(rootR)
		u.freeIfTemp(valR)
	case *ast.IndexExpr:
		rootR := u.compileExpr(target.Root, u.regs.alloc())
		idxR := u.compileExpr(target.Index, u.regs.alloc())
		valExpr := n.Assignment
		if n.Operator != "=" {
			valExpr = desugarCompound(n.Operator, &ast.IndexExpr{Root: target.Root, Index: target.Index}, n.Assignment)
		}
		valR := u.compileExpr(valExpr, u.regs.alloc())
		u.emit(bytecode.EncodeABC(bytecode.OpVecSet, rootR.Reg, idxR.Reg, valR.Reg))
		u.freeIfTemp(rootR)
		u.freeIfTemp(idxR)
		u.freeIfTemp(valR)
	default:
		panic(fmt.Sprintf("compiler: invalid assignment target %T", target))
	}
}

func desugarCompound(op string, target ast.Expr, rhs ast.Expr) ast.Expr {
	base := op[:len(op)-1] // "+=" -> "+"
	return &ast.BinaryExpr{Operator: base, Left: target, Right: rhs}
}

func (u *unit) compileAssignToName(name string, op string, rhs ast.Expr, pos ast.Node) {
	valueExpr := rhs
	if op != "=" {
		valueExpr = desugarCompound(op, &ast.Ident{Name: name}, rhs)
	}

	if sym, ok := u.top.lookup(name); ok && !sym.isUpvalue {
		if !sym.mutable {
			u.fail(ImmutableAssignment, pos, "cannot assign to immutable binding %q", name)
		}
		tmp := u.regs.alloc()
		vr := u.compileExpr(valueExpr, tmp)
		if vr.Reg != tmp {
			u.emit(bytecode.EncodeABC(bytecode.OpMove, tmp, vr.Reg, 0))
			u.freeIfTemp(vr)
		}
		u.emit(bytecode.EncodeABC(bytecode.OpDerefSet, sym.reg, tmp, 0))
		u.regs.release(tmp)
		return
	}

	if idx, ok := u.resolveUpvalue(name); ok {
		if !u.upvalues[idx].Mutable {
			u.fail(ImmutableAssignment, pos, "cannot assign to immutable binding %q", name)
		}
		tmp := u.regs.alloc()
		vr := u.compileExpr(valueExpr, tmp)
		if vr.Reg != tmp {
			u.emit(bytecode.EncodeABC(bytecode.OpMove, tmp, vr.Reg, 0))
			u.freeIfTemp(vr)
		}
		refReg := u.regs.alloc()
		u.emit(bytecode.EncodeABC(bytecode.OpGetUpvalue, refReg, uint8(idx), 0))
		u.emit(bytecode.EncodeABC(bytecode.OpDerefSet, refReg, tmp, 0))
		u.regs.release(refReg)
		u.regs.release(tmp)
		return
	}

	// Undeclared name: treat as a top-level global assignment.
	tmp := u.regs.alloc()
	vr := u.compileExpr(valueExpr, tmp)
	if vr.Reg != tmp {
		u.emit(bytecode.EncodeABC(bytecode.OpMove, tmp, vr.Reg, 0))
		u.freeIfTemp(vr)
	}
	nameIdx := u.internName(name)
	u.emit(bytecode.EncodeABx(bytecode.OpSetGlobal, tmp, uint16(nameIdx)))
	u.regs.release(tmp)
}

func (u *unit) compileReturn(n *ast.ReturnStmt) {
	if n.Argument == nil {
		u.emit(bytecode.EncodeABC(bytecode.OpReturnNull, 0, 0, 0))
		return
	}

	if call, ok := n.Argument.(*ast.CallExpr); ok && u.handlerDepth == 0 {
		if id, ok := call.Callee.(*ast.Ident); !(ok && u.c.builtins != nil && u.c.builtins.Has(id.Name) && !u.nameIsBound(id.Name)) {
			u.compileTailCall(call)
			return
		}
	}

	r := u.compileExpr(n.Argument, u.regs.alloc())
	u.emit(bytecode.EncodeABC(bytecode.OpReturn, r.Reg, 0, 0))
	u.freeIfTemp(r)
}

func (u *unit) compileWhile(n *ast.WhileStmt) {
	top := len(u.code)
	condR := u.compileExpr(n.Cond, u.regs.alloc())
	exitPatch := u.emit(bytecode.EncodeAsBx(bytecode.OpJumpIfFalse, condR.Reg, 0))
	u.freeIfTemp(condR)

	lc := u.pushLoop()
	u.pushScope()
	for _, stmt := range n.Body {
		u.compileStmt(stmt)
	}
	u.popScope(true)

	for _, p := range lc.continuePatches {
		u.patchJump(p)
	}
	backOffset := int16(top - (len(u.code) + 1))
	u.emit(bytecode.EncodeAsBx(bytecode.OpJump, 0, backOffset))
	u.patchJump(exitPatch)
	for _, p := range lc.breakPatches {
		u.patchJump(p)
	}
	u.popLoop()
}

// compileForIn lowers `for x in collection { body }` (spec.md:121): a
// Vector collection runs as an index loop directly over its elements,
// while anything else (a Record wrapped by `entries`/`values`, or a user
// Generator) is driven as an iterator through RESUME_GEN, reading the
// `{value, done}` result record each step produces; RESUME_GEN raises a
// TypeError for any value that is not a Generator. Which path applies is
// decided at runtime with MATCH_TYPE, since the collection's static type
// isn't known to the compiler (e.g. a parameter typed only by use).
func (u *unit) compileForIn(n *ast.ForInStmt) {
	collReg := u.regs.alloc()
	cr := u.compileExpr(n.Collection, collReg)
	if cr.Reg != collReg {
		u.emit(bytecode.EncodeABC(bytecode.OpMove, collReg, cr.Reg, 0))
		u.freeIfTemp(cr)
	}

	vecTypeConst := u.c.constants.String("Vector")
	typeReg := u.regs.alloc()
	u.emit(bytecode.EncodeABx(bytecode.OpLoadConst, typeReg, uint16(vecTypeConst)))
	isVecReg := u.regs.alloc()
	u.emit(bytecode.EncodeABC(bytecode.OpMatchType, isVecReg, collReg, typeReg))
	u.regs.release(typeReg)
	toGenPath := u.emit(bytecode.EncodeAsBx(bytecode.OpJumpIfFalse, isVecReg, 0))
	u.regs.release(isVecReg)

	u.compileForInVector(n, collReg)
	toEnd := u.emit(bytecode.EncodeAsBx(bytecode.OpJump, 0, 0))

	u.patchJump(toGenPath)
	u.compileForInGenerator(n, collReg)

	u.patchJump(toEnd)
	u.regs.release(collReg)
}

// compileForInVector lowers the Vector branch of compileForIn as a
// counting loop over indices 0..VEC_LEN(collReg)-1, avoiding the
// generator/RESUME_GEN machinery entirely for the common case.
func (u *unit) compileForInVector(n *ast.ForInStmt, collReg uint8) {
	idxReg := u.regs.alloc()
	u.emit(bytecode.EncodeABC(bytecode.OpLoadImmI8, idxReg, 0, 0))
	lenReg := u.regs.alloc()
	u.emit(bytecode.EncodeABC(bytecode.OpVecLen, lenReg, collReg, 0))

	top := len(u.code)
	condReg := u.regs.alloc()
	u.emit(bytecode.EncodeABC(bytecode.OpLt, condReg, idxReg, lenReg))
	exitPatch := u.emit(bytecode.EncodeAsBx(bytecode.OpJumpIfFalse, condReg, 0))
	u.regs.release(condReg)

	itemReg := u.regs.alloc()
	u.emit(bytecode.EncodeABC(bytecode.OpVecGet, itemReg, collReg, idxReg))

	lc := u.pushLoop()
	u.pushScope()
	u.top.define(&symbol{name: n.Binding, reg: itemReg, mutable: false})
	for _, stmt := range n.Body {
		u.compileStmt(stmt)
	}
	u.popScope(true)

	for _, p := range lc.continuePatches {
		u.patchJump(p)
	}

	oneReg := u.regs.alloc()
	u.emit(bytecode.EncodeABC(bytecode.OpLoadImmI8, oneReg, 1, 0))
	u.emit(bytecode.EncodeABC(bytecode.OpAdd, idxReg, idxReg, oneReg))
	u.regs.release(oneReg)

	backOffset := int16(top - (len(u.code) + 1))
	u.emit(bytecode.EncodeAsBx(bytecode.OpJump, 0, backOffset))
	u.patchJump(exitPatch)
	for _, p := range lc.breakPatches {
		u.patchJump(p)
	}
	u.popLoop()

	u.regs.release(lenReg)
	u.regs.release(idxReg)
}

// compileForInGenerator lowers the non-Vector branch of compileForIn,
// driving collReg as an iterator via RESUME_GEN.
func (u *unit) compileForInGenerator(n *ast.ForInStmt, collReg uint8) {
	top := len(u.code)
	itemReg := u.regs.alloc()
	resultReg := u.regs.alloc()
	u.emit(bytecode.EncodeABC(bytecode.OpResumeGen, resultReg, collReg, 0))

	doneField := u.internField("done")
	valueField := u.internField("value")
	doneReg := u.regs.alloc()
	u.emit(bytecode.EncodeABC(bytecode.OpGetField, doneReg, resultReg, doneField))
	exitPatch := u.emit(bytecode.EncodeAsBx(bytecode.OpJumpIfTrue, doneReg, 0))
	u.regs.release(doneReg)

	u.emit(bytecode.EncodeABC(bytecode.OpGetField, itemReg, resultReg, valueField))
	u.regs.release(resultReg)

	lc := u.pushLoop()
	u.pushScope()
	u.top.define(&symbol{name: n.Binding, reg: itemReg, mutable: false})
	for _, stmt := range n.Body {
		u.compileStmt(stmt)
	}
	u.popScope(true)

	for _, p := range lc.continuePatches {
		u.patchJump(p)
	}
	backOffset := int16(top - (len(u.code) + 1))
	u.emit(bytecode.EncodeAsBx(bytecode.OpJump, 0, backOffset))
	u.patchJump(exitPatch)
	for _, p := range lc.breakPatches {
		u.patchJump(p)
	}
	u.popLoop()
}

func (u *unit) patchJump(idx int) {
	offset := int16(len(u.code) - (idx + 1))
	u.code.Patch(idx, offset)
}

// --- match ---

func (u *unit) compileMatch(n *ast.MatchStmt, destReg *uint8) {
	scrutReg := u.regs.alloc()
	sr := u.compileExpr(n.Scrutinee, scrutReg)
	if sr.Reg != scrutReg {
		u.emit(bytecode.EncodeABC(bytecode.OpMove, scrutReg, sr.Reg, 0))
		u.freeIfTemp(sr)
	}

	var endJumps []int
	var out uint8
	if destReg != nil {
		out = *destReg
	} else {
		out = u.regs.alloc()
	}

	for i, arm := range n.Arms {
		isLast := i == len(n.Arms)-1
		u.pushScope()
		nextArmPatch, boundAny := u.compilePatternTest(arm.Pattern, scrutReg)

		if arm.Guard != nil {
			gr := u.compileExpr(arm.Guard, u.regs.alloc())
			guardFail := u.emit(bytecode.EncodeAsBx(bytecode.OpJumpIfFalse, gr.Reg, 0))
			u.freeIfTemp(gr)
			u.compileBlockInto(arm.Body, out)
			end := u.emit(bytecode.EncodeAsBx(bytecode.OpJump, 0, 0))
			endJumps = append(endJumps, end)
			u.patchJump(guardFail)
		} else {
			u.compileBlockInto(arm.Body, out)
			end := u.emit(bytecode.EncodeAsBx(bytecode.OpJump, 0, 0))
			endJumps = append(endJumps, end)
		}

		u.popScope(true)
		_ = boundAny
		if nextArmPatch >= 0 {
			u.patchJump(nextArmPatch)
		}
		if isLast && !n.HasCatchAll {
			msgConst := u.c.constants.String("no match arm satisfied the value")
			msgReg := u.regs.alloc()
			u.emit(bytecode.EncodeABx(bytecode.OpLoadConst, msgReg, uint16(msgConst)))
			u.emit(bytecode.EncodeABC(bytecode.OpThrow, msgReg, matchErrorTag, 0))
			u.regs.release(msgReg)
		}
	}

	for _, j := range endJumps {
		u.patchJump(j)
	}
	u.regs.release(scrutReg)
	if destReg == nil {
		u.regs.release(out)
	}
}

// compilePatternTest binds one arm's pattern against value, defining names
// in the current (already-pushed) scope. nextArmPatch is always -1: no
// pattern kind emits a test that falls through to the next arm (record and
// vector patterns bind their elements without checking value's shape, and
// a failed typed field raises a MatchError), so only an arm's guard can
// send control on to the next arm.
func (u *unit) compilePatternTest(pat ast.Pattern, valueReg uint8) (nextArmPatch int, bound bool) {
	switch p := pat.(type) {
	case *ast.WildcardPattern:
		return -1, false
	case *ast.IdentPattern:
		u.defineBoundLocal(p.Name, valueReg, false)
		return -1, true
	case *ast.RecordPattern, *ast.VectorPattern:
		u.bindPattern(pat, identityExprFor(valueReg), false)
		return -1, true
	default:
		panic(fmt.Sprintf("compiler: unhandled match pattern %T", p))
	}
}

// regExpr is a minimal ast.Expr implementation wrapping an already-live
// register, letting bindPattern's generic valueExpr-compiling shape be
// reused for a value that already lives in a register (match scrutinees);
// compileExpr special-cases it before the main switch.
type regExpr struct {
	ast.Expr // always nil; embedding it gives regExpr ast.Expr's unexported marker method
	reg      uint8
}

func (regExpr) Pos() source.Pos      { return source.Pos{} }
func (regExpr) End() source.Pos      { return source.Pos{} }

func identityExprFor(reg uint8) ast.Expr {
	return regExpr{reg: reg}
}

// --- try/catch ---

func (u *unit) compileTry(n *ast.TryExpr, destReg *uint8) {
	var out uint8
	if destReg != nil {
		out = *destReg
	} else {
		out = u.regs.alloc()
	}

	errReg := u.regs.alloc()
	pushIdx := u.emit(bytecode.EncodeABx(bytecode.OpPushHandler, errReg, 0))
	u.handlerDepth++

	u.compileBlockInto(n.Body, out)
	u.emit(bytecode.EncodeABC(bytecode.OpPopHandler, 0, 0, 0))
	skipCatch := u.emit(bytecode.EncodeAsBx(bytecode.OpJump, 0, 0))

	catchPC := len(u.code)
	u.code.PatchBx(pushIdx, uint16(catchPC))

	u.handlerDepth--
	u.pushScope()
	u.top.define(&symbol{name: n.CatchName, reg: errReg, mutable: false})
	u.compileBlockInto(n.Catch, out)
	u.popScope(true)

	u.patchJump(skipCatch)
	u.regs.release(errReg)
	if destReg == nil {
		u.regs.release(out)
	}
}

// --- expressions ---

func (u *unit) compileExpr(expr ast.Expr, destReg uint8) RegResult {
	switch n := expr.(type) {
	case regExpr:
		return RegResult{Reg: n.reg, IsTemp: false}
	case *ast.NumberLit:
		idx := u.c.constants.Number(n.Value)
		u.emit(bytecode.EncodeABx(bytecode.OpLoadConst, destReg, uint16(idx)))
		return RegResult{Reg: destReg, IsTemp: true}
	case *ast.BoolLit:
		op := bytecode.OpLoadFalse
		if n.Value {
			op = bytecode.OpLoadTrue
		}
		u.emit(bytecode.EncodeABC(op, destReg, 0, 0))
		return RegResult{Reg: destReg, IsTemp: true}
	case *ast.NullLit:
		u.emit(bytecode.EncodeABC(bytecode.OpLoadNull, destReg, 0, 0))
		return RegResult{Reg: destReg, IsTemp: true}
	case *ast.StringLit:
		idx := u.c.constants.String(n.Value)
		u.emit(bytecode.EncodeABx(bytecode.OpLoadConst, destReg, uint16(idx)))
		return RegResult{Reg: destReg, IsTemp: true}
	case *ast.VectorLit:
		return u.compileVectorLit(n, destReg)
	case *ast.RecordLit:
		return u.compileRecordLit(n, destReg)
	case *ast.Ident:
		return u.compileIdent(n, destReg)
	case *ast.Rec:
		return RegResult{Reg: bytecode.RecRegister, IsTemp: false}
	case *ast.UnaryExpr:
		return u.compileUnary(n, destReg)
	case *ast.BinaryExpr:
		return u.compileBinary(n, destReg)
	case *ast.FuncExpr:
		return u.compileFuncExpr(n, destReg)
	case *ast.CallExpr:
		return u.compileCall(n, destReg)
	case *ast.FieldAccessExpr:
		rootR := u.compileExpr(n.Root, u.regs.alloc())
		fieldIdx := u.internField(n.Field)
		u.emit(bytecode.EncodeABC(bytecode.OpGetField, destReg, rootR.Reg, fieldIdx))
		u.freeIfTemp(rootR)
		return RegResult{Reg: destReg, IsTemp: true}
	case *ast.IndexExpr:
		rootR := u.compileExpr(n.Root, u.regs.alloc())
		idxR := u.compileExpr(n.Index, u.regs.alloc())
		u.emit(bytecode.EncodeABC(bytecode.OpVecGet, destReg, rootR.Reg, idxR.Reg))
		u.freeIfTemp(rootR)
		u.freeIfTemp(idxR)
		return RegResult{Reg: destReg, IsTemp: true}
	case *ast.SliceExpr:
		return u.compileSlice(n, destReg)
	case *ast.DoBlock:
		u.compileBlockInto(n.Statements, destReg)
		return RegResult{Reg: destReg, IsTemp: true}
	case *ast.IfExpr:
		return u.compileIf(n, destReg)
	case *ast.TryExpr:
		u.compileTry(n, &destReg)
		return RegResult{Reg: destReg, IsTemp: true}
	case *ast.YieldExpr:
		return u.compileYield(n, destReg)
	case *ast.GenerateExpr:
		return u.compileGenerate(n, destReg)
	default:
		panic(fmt.Sprintf("compiler: unhandled expression node %T", n))
	}
}

func (u *unit) compileIdent(n *ast.Ident, destReg uint8) RegResult {
	if sym, ok := u.top.lookup(n.Name); ok && !sym.isUpvalue {
		if sym.mutable {
			u.emit(bytecode.EncodeABC(bytecode.OpDerefGet, destReg, sym.reg, 0))
			return RegResult{Reg: destReg, IsTemp: true}
		}
		return RegResult{Reg: sym.reg, IsTemp: false}
	}

	if idx, ok := u.resolveUpvalue(n.Name); ok {
		u.emit(bytecode.EncodeABC(bytecode.OpGetUpvalue, destReg, uint8(idx), 0))
		if u.upvalues[idx].Mutable {
			u.emit(bytecode.EncodeABC(bytecode.OpDerefGet, destReg, destReg, 0))
		}
		return RegResult{Reg: destReg, IsTemp: true}
	}

	// Fall back to a global binding; true undefined-variable detection
	// would require whole-module static analysis of which globals exist,
	// which this compiler does not perform (globals may be defined by a
	// REPL session incrementally). GET_GLOBAL raises a runtime error if
	// the name was never bound.
	nameIdx := u.internName(n.Name)
	u.emit(bytecode.EncodeABx(bytecode.OpGetGlobal, destReg, uint16(nameIdx)))
	return RegResult{Reg: destReg, IsTemp: true}
}

func (u *unit) compileUnary(n *ast.UnaryExpr, destReg uint8) RegResult {
	operandR := u.compileExpr(n.Operand, u.regs.alloc())
	switch n.Operator {
	case "-":
		u.emit(bytecode.EncodeABC(bytecode.OpNeg, destReg, operandR.Reg, 0))
	case "!":
		u.emit(bytecode.EncodeABC(bytecode.OpNot, destReg, operandR.Reg, 0))
	default:
		u.fail(InvalidPattern, n, "unknown unary operator %q", n.Operator)
	}
	u.freeIfTemp(operandR)
	return RegResult{Reg: destReg, IsTemp: true}
}

var binaryOpcodes = map[string]bytecode.Opcode{
	"+": bytecode.OpAdd, "-": bytecode.OpSub, "*": bytecode.OpMul,
	"/": bytecode.OpDiv, "%": bytecode.OpMod, "**": bytecode.OpPow,
	"==": bytecode.OpEq, "!=": bytecode.OpNe,
	"<": bytecode.OpLt, "<=": bytecode.OpLe, ">": bytecode.OpGt, ">=": bytecode.OpGe,
}

func (u *unit) compileBinary(n *ast.BinaryExpr, destReg uint8) RegResult {
	if n.Operator == "&&" || n.Operator == "||" {
		return u.compileShortCircuit(n, destReg)
	}

	op, ok := binaryOpcodes[n.Operator]
	if !ok {
		u.fail(InvalidPattern, n, "unknown binary operator %q", n.Operator)
	}

	leftR := u.compileExpr(n.Left, u.regs.alloc())
	rightR := u.compileExpr(n.Right, u.regs.alloc())
	u.emit(bytecode.EncodeABC(op, destReg, leftR.Reg, rightR.Reg))
	u.freeIfTemp(leftR)
	u.freeIfTemp(rightR)
	return RegResult{Reg: destReg, IsTemp: true}
}

// compileShortCircuit lowers `&&`/`||` as conditional jumps so the right
// operand is not evaluated unless needed (spec.md §4.2, testable property
// #6): `A || B` yields A if truthy, else B; `A && B` yields A if falsy,
// else B.
func (u *unit) compileShortCircuit(n *ast.BinaryExpr, destReg uint8) RegResult {
	leftR := u.compileExpr(n.Left, destReg)
	if leftR.Reg != destReg {
		u.emit(bytecode.EncodeABC(bytecode.OpMove, destReg, leftR.Reg, 0))
		u.freeIfTemp(leftR)
	}

	var shortCircuitJump int
	if n.Operator == "||" {
		shortCircuitJump = u.emit(bytecode.EncodeAsBx(bytecode.OpJumpIfTrue, destReg, 0))
	} else {
		shortCircuitJump = u.emit(bytecode.EncodeAsBx(bytecode.OpJumpIfFalse, destReg, 0))
	}

	rightR := u.compileExpr(n.Right, destReg)
	if rightR.Reg != destReg {
		u.emit(bytecode.EncodeABC(bytecode.OpMove, destReg, rightR.Reg, 0))
	}
	u.freeIfTemp(rightR)
	u.patchJump(shortCircuitJump)
	return RegResult{Reg: destReg, IsTemp: true}
}

func (u *unit) compileVectorLit(n *ast.VectorLit, destReg uint8) RegResult {
	u.emit(bytecode.EncodeABC(bytecode.OpNewVector, destReg, 0, 0))
	for _, elem := range n.Elements {
		elemR := u.compileExpr(elem.Value, u.regs.alloc())
		spread := uint8(0)
		if elem.Spread {
			spread = 1
		}
		u.emit(bytecode.EncodeABC(bytecode.OpVecPush, destReg, elemR.Reg, spread))
		u.freeIfTemp(elemR)
	}
	return RegResult{Reg: destReg, IsTemp: true}
}

func (u *unit) compileRecordLit(n *ast.RecordLit, destReg uint8) RegResult {
	u.emit(bytecode.EncodeABC(bytecode.OpNewRecord, destReg, 0, 0))
	for _, f := range n.Fields {
		if f.Spread {
			srcR := u.compileExpr(f.Value, u.regs.alloc())
			u.emit(bytecode.EncodeABC(bytecode.OpRecordSpread, destReg, srcR.Reg, 0))
			u.freeIfTemp(srcR)
			continue
		}
		valR := u.compileExpr(f.Value, u.regs.alloc())
		fieldIdx := u.internField(f.Key)
		setOp := bytecode.OpSetField
		if f.Mutable {
			setOp = bytecode.OpSetFieldMut
		}
		u.emit(bytecode.EncodeABC(setOp, destReg, fieldIdx, valR.Reg))
		u.freeIfTemp(valR)
	}
	return RegResult{Reg: destReg, IsTemp: true}
}

func (u *unit) compileSlice(n *ast.SliceExpr, destReg uint8) RegResult {
	rootR := u.compileExpr(n.Root, u.regs.alloc())
	fromReg := u.regs.alloc()
	toReg := u.regs.alloc()
	if int(toReg) != int(fromReg)+1 {
		// The allocator's free-list can hand back non-contiguous
		// registers; force contiguity by re-requesting a fresh pair at
		// the high-water mark when that happens.
		u.regs.release(fromReg)
		u.regs.release(toReg)
		fromReg = uint8(u.regs.registerCount())
		u.regs.reserve(fromReg)
		toReg = uint8(u.regs.registerCount())
		u.regs.reserve(toReg)
	}

	if n.From != nil {
		fr := u.compileExpr(n.From, fromReg)
		if fr.Reg != fromReg {
			u.emit(bytecode.EncodeABC(bytecode.OpMove, fromReg, fr.Reg, 0))
		}
	} else {
		u.emit(bytecode.EncodeABC(bytecode.OpLoadNull, fromReg, 0, 0))
	}
	if n.To != nil {
		tr := u.compileExpr(n.To, toReg)
		if tr.Reg != toReg {
			u.emit(bytecode.EncodeABC(bytecode.OpMove, toReg, tr.Reg, 0))
		}
	} else {
		u.emit(bytecode.EncodeABC(bytecode.OpLoadNull, toReg, 0, 0))
	}

	u.emit(bytecode.EncodeABC(bytecode.OpVecSlice, destReg, rootR.Reg, fromReg))
	u.freeIfTemp(rootR)
	u.regs.release(fromReg)
	u.regs.release(toReg)
	return RegResult{Reg: destReg, IsTemp: true}
}

func (u *unit) compileIf(n *ast.IfExpr, destReg uint8) RegResult {
	condR := u.compileExpr(n.Cond, u.regs.alloc())
	falseJump := u.emit(bytecode.EncodeAsBx(bytecode.OpJumpIfFalse, condR.Reg, 0))
	u.freeIfTemp(condR)

	u.compileBlockInto(n.Then, destReg)
	endJump := u.emit(bytecode.EncodeAsBx(bytecode.OpJump, 0, 0))
	u.patchJump(falseJump)

	if n.Else != nil {
		u.compileBlockInto(n.Else, destReg)
	} else {
		u.emit(bytecode.EncodeABC(bytecode.OpLoadNull, destReg, 0, 0))
	}
	u.patchJump(endJump)
	return RegResult{Reg: destReg, IsTemp: true}
}

// --- functions, closures, calls ---

func (u *unit) compileFuncExpr(n *ast.FuncExpr, destReg uint8) RegResult {
	child := newUnit(u.c, u, n.Name)
	child.isGenerator = n.IsGenerator
	child.paramCount = len(n.Params)

	seen := make(map[string]bool, len(n.Params))
	for _, p := range n.Params {
		if seen[p.Name] {
			u.fail(DuplicateParameter, n, "duplicate parameter %q in function %q", p.Name, n.Name)
		}
		seen[p.Name] = true
	}

	for i, p := range n.Params {
		reg := uint8(i)
		child.regs.reserve(reg)
		child.top.define(&symbol{name: p.Name, reg: reg, mutable: false})
		if p.Default != nil || p.Optional {
			child.optionalCount++
			nullJump := child.emit(bytecode.EncodeAsBx(bytecode.OpJumpIfNull, reg, 0))
			skip := child.emit(bytecode.EncodeAsBx(bytecode.OpJump, 0, 0))
			child.patchJump(nullJump)
			if p.Default != nil {
				dr := child.compileExpr(p.Default, reg)
				if dr.Reg != reg {
					child.emit(bytecode.EncodeABC(bytecode.OpMove, reg, dr.Reg, 0))
				}
			} else {
				child.emit(bytecode.EncodeABC(bytecode.OpLoadNull, reg, 0, 0))
			}
			child.patchJump(skip)
		}
	}

	child.compileFuncBody(n.Body)

	proto := child.finish()
	idx := len(u.nestedProtos)
	u.nestedProtos = append(u.nestedProtos, proto)

	u.emit(bytecode.EncodeABx(bytecode.OpClosure, destReg, uint16(idx)))
	return RegResult{Reg: destReg, IsTemp: true}
}

// compileFuncBody compiles a function's statement list as its own unit's
// top-level code: a trailing expression-statement is the function's
// implicit return value (spec.md §6 expression-oriented functions), same
// as compileBlockInto's tail-expression rule but emitting OpReturn/
// OpReturnNull directly rather than writing into a destination register.
func (u *unit) compileFuncBody(stmts []ast.Stmt) {
	for i, stmt := range stmts {
		if i == len(stmts)-1 {
			if es, ok := stmt.(*ast.ExprStmt); ok {
				u.curLine = es.Pos().Line
				r := u.compileExpr(es.X, u.regs.alloc())
				u.emit(bytecode.EncodeABC(bytecode.OpReturn, r.Reg, 0, 0))
				u.freeIfTemp(r)
				return
			}
		}
		u.compileStmt(stmt)
	}
	u.emit(bytecode.EncodeABC(bytecode.OpReturnNull, 0, 0, 0))
}

// nameIsBound reports whether name resolves to a local or an enclosing
// local lexically, without the resolveUpvalue side effect of actually
// registering an upvalue descriptor. Used to let a user binding shadow a
// built-in of the same name (`let print = ...`) rather than the compiler
// always preferring CALL_BUILTIN.
func (u *unit) nameIsBound(name string) bool {
	if _, ok := u.top.lookup(name); ok {
		return true
	}
	for p := u.parent; p != nil; p = p.parent {
		if _, ok := p.top.resolveLocal(name); ok {
			return true
		}
	}
	return false
}

// compileBuiltinCall lowers a bare call to a name registered in the
// builtin.Registry directly to CALL_BUILTIN: args are evaluated into a
// contiguous block starting right after a fresh base register (the same
// reverse-move aliasing-safety trick as compileCall), and the builtin's
// name is interned into the shared string pool exactly like a field name
// (internField's 256-entry cap applies here too, since CALL_BUILTIN's name
// operand is 8 bits).
func (u *unit) compileBuiltinCall(name string, args []ast.Expr, destReg uint8) RegResult {
	base := u.regs.alloc()
	argRegs := make([]RegResult, len(args))
	for i, a := range args {
		argRegs[i] = u.compileExpr(a, u.regs.alloc())
	}
	for i := len(args) - 1; i >= 0; i-- {
		target := base + 1 + uint8(i)
		if argRegs[i].Reg != target {
			u.emit(bytecode.EncodeABC(bytecode.OpMove, target, argRegs[i].Reg, 0))
		}
	}
	for _, r := range argRegs {
		u.freeIfTemp(r)
	}

	nameIdx := u.internField(name)
	u.emit(bytecode.EncodeABC(bytecode.OpCallBuiltin, base, nameIdx, uint8(len(args))))
	if base != destReg {
		u.emit(bytecode.EncodeABC(bytecode.OpMove, destReg, base, 0))
	}
	u.regs.release(base)
	return RegResult{Reg: destReg, IsTemp: true}
}

// compileCall implements spec.md §4.1's argument-passing contract: the
// callee lands in F, arguments are evaluated left-to-right but moved into
// their final F+1..F+N slots in reverse order so that a later argument's
// source register (which may alias an earlier argument's target slot) is
// always read before it is overwritten.
func (u *unit) compileCall(n *ast.CallExpr, destReg uint8) RegResult {
	if id, ok := n.Callee.(*ast.Ident); ok && u.c.builtins != nil && u.c.builtins.Has(id.Name) && !u.nameIsBound(id.Name) {
		return u.compileBuiltinCall(id.Name, n.Args, destReg)
	}

	fReg := u.regs.alloc()
	calleeR := u.compileExpr(n.Callee, fReg)
	if calleeR.Reg != fReg {
		u.emit(bytecode.EncodeABC(bytecode.OpMove, fReg, calleeR.Reg, 0))
		u.freeIfTemp(calleeR)
	}

	argRegs := make([]RegResult, len(n.Args))
	for i, arg := range n.Args {
		argRegs[i] = u.compileExpr(arg, u.regs.alloc())
	}

	for i := len(n.Args) - 1; i >= 0; i-- {
		target := fReg + 1 + uint8(i)
		if argRegs[i].Reg != target {
			u.emit(bytecode.EncodeABC(bytecode.OpMove, target, argRegs[i].Reg, 0))
		}
	}
	for _, r := range argRegs {
		u.freeIfTemp(r)
	}

	u.emit(bytecode.EncodeABC(bytecode.OpCall, destReg, fReg, uint8(len(n.Args))))
	u.regs.release(fReg)
	return RegResult{Reg: destReg, IsTemp: true}
}

func (u *unit) compileTailCall(n *ast.CallExpr) {
	fReg := u.regs.alloc()
	calleeR := u.compileExpr(n.Callee, fReg)
	if calleeR.Reg != fReg {
		u.emit(bytecode.EncodeABC(bytecode.OpMove, fReg, calleeR.Reg, 0))
		u.freeIfTemp(calleeR)
	}

	argRegs := make([]RegResult, len(n.Args))
	for i, arg := range n.Args {
		argRegs[i] = u.compileExpr(arg, u.regs.alloc())
	}
	for i := len(n.Args) - 1; i >= 0; i-- {
		target := fReg + 1 + uint8(i)
		if argRegs[i].Reg != target {
			u.emit(bytecode.EncodeABC(bytecode.OpMove, target, argRegs[i].Reg, 0))
		}
	}
	for _, r := range argRegs {
		u.freeIfTemp(r)
	}

	u.emit(bytecode.EncodeABC(bytecode.OpTailCall, 0, fReg, uint8(len(n.Args))))
	u.regs.release(fReg)
}

func (u *unit) compileYield(n *ast.YieldExpr, destReg uint8) RegResult {
	if !u.isGenerator {
		u.fail(YieldOutsideGenerator, n, "yield used outside a generate block")
	}
	argR := u.compileExpr(n.Argument, u.regs.alloc())
	u.emit(bytecode.EncodeABC(bytecode.OpYield, destReg, argR.Reg, 0))
	u.freeIfTemp(argR)
	return RegResult{Reg: destReg, IsTemp: true}
}

func (u *unit) compileGenerate(n *ast.GenerateExpr, destReg uint8) RegResult {
	child := newUnit(u.c, u, u.name+".generate")
	child.isGenerator = true
	for _, stmt := range n.Body {
		child.compileStmt(stmt)
	}
	child.emit(bytecode.EncodeABC(bytecode.OpReturnNull, 0, 0, 0))

	proto := child.finish()
	idx := len(u.nestedProtos)
	u.nestedProtos = append(u.nestedProtos, proto)

	u.emit(bytecode.EncodeABx(bytecode.OpCreateGen, destReg, uint16(idx)))
	return RegResult{Reg: destReg, IsTemp: true}
}
