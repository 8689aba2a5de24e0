// Package vm executes a bytecode.Module: the register-window call-frame
// dispatch loop, closure materialization, exception unwinding, and the
// generator/reactive subsystems layered on top of it.
//
// Grounded on the teacher's backend/interpreter.go dispatch loop (a switch
// over opcodes reading operands off a cursor into the active frame) and on
// the sliding-window register-stack design from the paserati reference VM
// (other_examples' pkg/vm/vm.go), generalized from a fixed [N*MaxFrames]
// array to a growable slice since this VM's call depth is not capped by a
// compile-time constant.
package vm

import (
	"fmt"
	"math"

	"github.com/achronyme/achronyme/bytecode"
	"github.com/achronyme/achronyme/builtin"
	"github.com/achronyme/achronyme/value"
)

// Frame is one active call's register window and instruction cursor.
// Grounded on the teacher's backend/stackFrame.go StackFrame, generalized
// from a fixed 256-register-per-frame array to a slice view into the VM's
// shared register stack (the paserati sliding-window idea).
type Frame struct {
	closure   *Closure
	ip        int
	registers []value.Value
	resultReg uint8 // register in the CALLER frame that receives our return value
	handlers  []activeHandler
}

type activeHandler struct {
	catchPC int
	errReg  uint8
}

// VM executes one compiled module. A VM is single-use per top-level
// Run call but reused across generator resumptions (each Generator
// owns a nested VM sharing the parent's globals/module).
type VM struct {
	module  *bytecode.Module
	globals map[string]value.Value
	regs    []value.Value // shared growable register stack
	frames  []*Frame

	builtins *builtin.Registry
	reactive *reactiveContext
	gen      *Generator // non-nil when this VM instance is driving a generator body
}

func New(mod *bytecode.Module, reg *builtin.Registry) *VM {
	v := &VM{
		module:   mod,
		globals:  make(map[string]value.Value),
		regs:     make([]value.Value, 0, 4096),
		builtins: reg,
	}
	v.reactive = newReactiveContext(v)
	return v
}

// Run executes the module's main prototype to completion and returns its
// final value.
func (v *VM) Run() (value.Value, error) {
	main := &Closure{Proto: v.module.Main}
	return v.callClosure(main, nil)
}

// callClosure pushes a fresh frame for closure, runs it to a RETURN, and
// returns its value. Used for the top-level Run and for a generator body's
// run on its own VM; CALL and builtin higher-order invocation (CallValue)
// go through callNested instead.
func (v *VM) callClosure(cl *Closure, args []value.Value) (result value.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			if re, ok := r.(*RuntimeException); ok {
				err = re
				return
			}
			panic(r)
		}
	}()

	base := len(v.regs)
	need := frameSize(cl.Proto, len(args))
	v.regs = append(v.regs, make([]value.Value, need)...)
	window := v.regs[base : base+need]
	copy(window, args)
	fillMissingParams(window, cl.Proto, len(args))
	window[bytecode.RecRegister] = value.NewFunction(cl)

	frame := &Frame{closure: cl, registers: window}
	v.frames = append(v.frames, frame)

	result = v.run(frame)

	v.frames = v.frames[:len(v.frames)-1]
	v.regs = v.regs[:base]
	return result, nil
}

// run executes instructions in frame until it returns (normally or via a
// tail call that replaces the frame in place). A RuntimeException raised
// while frame is executing (a THROW, a failed arithmetic or field read, a
// built-in's error, or a throw escaping a nested call) is offered to
// frame's active PUSH_HANDLER entry; if there is none it propagates as a Go
// panic so callNested's or callClosure's recover can catch it.
func (v *VM) run(frame *Frame) (result value.Value) {
	defer func() {
		if r := recover(); r != nil {
			if re, ok := r.(*RuntimeException); ok && v.dispatchThrow(frame, re.Err) {
				result = v.run(frame)
				return
			}
			panic(r)
		}
	}()
	for {
		instr := frame.closure.Proto.Code[frame.ip]
		frame.ip++
		op := instr.Opcode()

		switch op {
		case bytecode.OpNop:
			// no-op

		case bytecode.OpLoadConst:
			c := v.module.Constants.Get(int(instr.Bx()))
			frame.registers[instr.A()] = c.ToValue()
		case bytecode.OpLoadNull:
			frame.registers[instr.A()] = value.Null()
		case bytecode.OpLoadTrue:
			frame.registers[instr.A()] = value.Boolean(true)
		case bytecode.OpLoadFalse:
			frame.registers[instr.A()] = value.Boolean(false)
		case bytecode.OpLoadImmI8:
			frame.registers[instr.A()] = value.Number(float64(int8(instr.B())))
		case bytecode.OpMove:
			frame.registers[instr.A()] = frame.registers[instr.B()]

		case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv, bytecode.OpMod, bytecode.OpPow:
			v.execArith(frame, op, instr)
		case bytecode.OpNeg:
			frame.registers[instr.A()] = negate(frame.registers[instr.B()])
		case bytecode.OpNot:
			frame.registers[instr.A()] = value.Boolean(!frame.registers[instr.B()].Truthy())

		case bytecode.OpEq:
			frame.registers[instr.A()] = value.Boolean(value.Eq(frame.registers[instr.B()], frame.registers[instr.C()]))
		case bytecode.OpNe:
			frame.registers[instr.A()] = value.Boolean(!value.Eq(frame.registers[instr.B()], frame.registers[instr.C()]))
		case bytecode.OpLt, bytecode.OpLe, bytecode.OpGt, bytecode.OpGe:
			v.execCompare(frame, op, instr)

		case bytecode.OpJump:
			frame.ip += int(instr.SBx())
		case bytecode.OpJumpIfTrue:
			if frame.registers[instr.A()].Truthy() {
				frame.ip += int(instr.SBx())
			}
		case bytecode.OpJumpIfFalse:
			if !frame.registers[instr.A()].Truthy() {
				frame.ip += int(instr.SBx())
			}
		case bytecode.OpJumpIfNull:
			if frame.registers[instr.A()].Kind() == value.KindNull {
				frame.ip += int(instr.SBx())
			}

		case bytecode.OpClosure:
			proto := frame.closure.Proto.NestedProtos[instr.Bx()]
			child := NewClosure(proto, frame)
			frame.registers[instr.A()] = value.NewFunction(child)
		case bytecode.OpGetUpvalue:
			frame.registers[instr.A()] = frame.closure.Upvalues[instr.B()]
		case bytecode.OpSetUpvalue:
			frame.closure.Upvalues[instr.A()] = frame.registers[instr.B()]

		case bytecode.OpMakeRef:
			frame.registers[instr.A()] = value.NewMutableRefValue(value.NewMutableRef(frame.registers[instr.B()]))
		case bytecode.OpDerefGet:
			frame.registers[instr.A()] = frame.registers[instr.B()].AsMutableRef().Value
		case bytecode.OpDerefSet:
			frame.registers[instr.A()].AsMutableRef().Value = frame.registers[instr.B()]

		case bytecode.OpNewVector:
			frame.registers[instr.A()] = value.NewVector(nil)
		case bytecode.OpVecPush:
			vec := frame.registers[instr.A()].AsVector()
			elem := frame.registers[instr.B()]
			if instr.C() != 0 {
				for _, e := range elem.AsVector().Elements {
					vec.Elements = append(vec.Elements, e)
				}
			} else {
				vec.Elements = append(vec.Elements, elem)
			}
		case bytecode.OpVecGet:
			vec := frame.registers[instr.B()].AsVector()
			idx := int(frame.registers[instr.C()].AsNumber())
			idx = normalizeIndex(idx, len(vec.Elements))
			if idx < 0 || idx >= len(vec.Elements) {
				panic(throwKind(IndexError, "index %d out of bounds for vector of length %d", idx, len(vec.Elements)))
			}
			frame.registers[instr.A()] = vec.Elements[idx]
		case bytecode.OpVecSet:
			vec := frame.registers[instr.A()].AsVector()
			idx := int(frame.registers[instr.B()].AsNumber())
			idx = normalizeIndex(idx, len(vec.Elements))
			if idx < 0 || idx >= len(vec.Elements) {
				panic(throwKind(IndexError, "index %d out of bounds for vector of length %d", idx, len(vec.Elements)))
			}
			vec.Elements[idx] = frame.registers[instr.C()]
		case bytecode.OpVecSlice:
			vec := frame.registers[instr.B()].AsVector()
			fromReg := instr.C()
			toReg := fromReg + 1
			from, to := sliceBounds(frame.registers[fromReg], frame.registers[toReg], len(vec.Elements))
			sliced := make([]value.Value, to-from)
			copy(sliced, vec.Elements[from:to])
			frame.registers[instr.A()] = value.NewVector(sliced)
		case bytecode.OpVecLen:
			vec := frame.registers[instr.B()].AsVector()
			frame.registers[instr.A()] = value.Number(float64(len(vec.Elements)))

		case bytecode.OpNewRecord:
			frame.registers[instr.A()] = value.NewRecordValue(value.NewRecord())
		case bytecode.OpGetField:
			root := frame.registers[instr.B()]
			name := v.module.Strings.Get(int(instr.C()))
			switch root.Kind() {
			case value.KindRecord:
				val, ok := root.AsRecord().Get(name)
				if !ok {
					frame.registers[instr.A()] = value.Null()
				} else {
					frame.registers[instr.A()] = val
				}
			case value.KindSignal, value.KindGenerator:
				frame.registers[instr.A()] = v.intrinsicField(root, name)
			case value.KindError:
				frame.registers[instr.A()] = errorField(root.AsError(), name)
			default:
				panic(throwKind(FieldError, "cannot read field %q of a %s", name, root.Kind()))
			}
		case bytecode.OpSetField, bytecode.OpSetFieldMut:
			root := frame.registers[instr.A()].AsRecord()
			name := v.module.Strings.Get(int(instr.B()))
			root.Set(name, frame.registers[instr.C()], op == bytecode.OpSetFieldMut)
		case bytecode.OpRecordSpread:
			dst := frame.registers[instr.A()].AsRecord()
			src := frame.registers[instr.B()].AsRecord()
			for _, k := range src.Keys {
				dst.Set(k, src.Fields[k], src.Mutable[k])
			}

		case bytecode.OpMatchType:
			wantType := frame.registers[instr.C()].AsString()
			frame.registers[instr.A()] = value.Boolean(matchesTypeName(frame.registers[instr.B()], wantType))

		case bytecode.OpCreateGen:
			proto := frame.closure.Proto.NestedProtos[instr.Bx()]
			child := NewClosure(proto, frame)
			gen := v.newGenerator(child)
			frame.registers[instr.A()] = value.NewGenerator(gen)
		case bytecode.OpYield:
			result := v.doYield(frame, frame.registers[instr.B()])
			frame.registers[instr.A()] = result
		case bytecode.OpResumeGen:
			src := frame.registers[instr.B()]
			if src.Kind() != value.KindGenerator {
				panic(throwKind(TypeError, "cannot iterate a %s", src.Kind()))
			}
			gen := src.AsGenerator().(*Generator)
			frame.registers[instr.A()] = gen.Resume(value.Null())

		case bytecode.OpPushHandler:
			frame.handlers = append(frame.handlers, activeHandler{catchPC: int(instr.Bx()), errReg: instr.A()})
		case bytecode.OpPopHandler:
			frame.handlers = frame.handlers[:len(frame.handlers)-1]
		case bytecode.OpThrow:
			errVal := frame.registers[instr.A()]
			if instr.B() != 0 {
				errVal = value.NewErrorValue(value.NewError(string(MatchError), value.Stringify(errVal)))
			} else if errVal.Kind() != value.KindError {
				errVal = value.NewErrorValue(value.NewError(string(UserError), value.Stringify(errVal)))
			}
			if v.dispatchThrow(frame, errVal) {
				continue
			}
			panic(&RuntimeException{Err: errVal})

		case bytecode.OpCallBuiltin:
			name := v.module.Strings.Get(int(instr.B()))
			argc := int(instr.C())
			args := make([]value.Value, argc)
			copy(args, frame.registers[instr.A()+1:instr.A()+1+uint8(argc)])
			result, err := v.builtins.Call(name, v, args)
			if err != nil {
				panic(asRuntimeException(err))
			}
			frame.registers[instr.A()] = result

		case bytecode.OpCall:
			v.execCall(frame, instr, false)
		case bytecode.OpTailCall:
			if !v.execCall(frame, instr, true) {
				return frame.registers[instr.A()]
			}
			continue

		case bytecode.OpReturn:
			return frame.registers[instr.A()]
		case bytecode.OpReturnNull:
			return value.Null()

		case bytecode.OpGetGlobal:
			name := v.module.Strings.Get(int(instr.Bx()))
			val, ok := v.globals[name]
			if !ok {
				panic(throwKind(RuntimeError, "undefined global %q", name))
			}
			frame.registers[instr.A()] = val
		case bytecode.OpSetGlobal:
			name := v.module.Strings.Get(int(instr.Bx()))
			v.globals[name] = frame.registers[instr.A()]

		default:
			panic(fmt.Sprintf("vm: unhandled opcode %s", op))
		}
	}
}

// dispatchThrow walks frame's handler stack looking for an active
// PUSH_HANDLER entry; if found, it unwinds the instruction pointer to the
// catch block and reports the error value into errReg, returning true. A
// throw raised in a nested call reaches here once for every frame on the
// way back out: callNested's recover calls it against the frame that made
// the call, and if that frame has no handler of its own either, it
// re-panics so the next callNested up the Go call stack gets the same
// chance against its own caller, per spec.md:189 ("THROW unwinds frames
// until a PUSH_HANDLER is found").
func (v *VM) dispatchThrow(frame *Frame, errVal value.Value) bool {
	if len(frame.handlers) == 0 {
		return false
	}
	h := frame.handlers[len(frame.handlers)-1]
	frame.handlers = frame.handlers[:len(frame.handlers)-1]
	frame.registers[h.errReg] = errVal
	frame.ip = h.catchPC
	return true
}

// execCall implements spec.md §4.2's CALL/TAIL_CALL: F holds the callee,
// F+1..F+argc the arguments. A user-defined function call recurses into a
// nested run(); TAIL_CALL additionally replaces the caller's own frame
// rather than growing the Go call stack, matching Plaid's original
// handling of self-recursive loops via `rec`.
func (v *VM) execCall(frame *Frame, instr bytecode.Instruction, tail bool) bool {
	fReg := instr.B()
	argc := int(instr.C())
	callee := frame.registers[fReg]
	args := make([]value.Value, argc)
	copy(args, frame.registers[fReg+1:fReg+1+uint8(argc)])

	switch callee.Kind() {
	case value.KindFunction:
		switch fn := callee.AsFunction().(type) {
		case *Closure:
			checkArity(fn.Proto, len(args))
			if tail {
				v.replaceFrame(frame, fn, args)
				return true
			}
			result, caught, err := v.callNested(frame, fn, args)
			if err != nil {
				panic(err)
			}
			if !caught {
				frame.registers[instr.A()] = result
			}
			return false
		case NativeFunc:
			// A bound intrinsic method (signal.set/.peek, generator.next)
			// has no prototype/register window of its own, so TAIL_CALL
			// reduces to an ordinary call here: there is no frame to reuse.
			result, err := fn(args)
			if err != nil {
				panic(asRuntimeException(err))
			}
			frame.registers[instr.A()] = result
			return false
		default:
			panic(throwKind(TypeError, "value is not callable"))
		}
	default:
		panic(throwKind(TypeError, "value of kind %s is not callable", callee.Kind()))
	}
}

func checkArity(proto *bytecode.FuncPrototype, argc int) {
	min := proto.ParamCount - proto.OptionalCount
	if argc < min || argc > proto.ParamCount {
		panic(throwKind(ArityError, "function %q expects %d-%d arguments, got %d", proto.Name, min, proto.ParamCount, argc))
	}
}

// callNested pushes a new frame sharing the same register stack/frame
// list (a genuine recursive vm call, not a fresh VM), used by CALL and by
// call_value-style built-ins. If the callee throws and the exception is
// uncaught within its own frame, callNested offers it to caller's handler
// chain via dispatchThrow before re-panicking, so a throw unwinds one CALL
// boundary at a time instead of skipping straight past every frame
// between the throw site and the first callClosure on the Go stack. caller
// may be nil (e.g. a call_value invoked from outside any active frame),
// in which case an uncaught exception simply propagates.
func (v *VM) callNested(caller *Frame, cl *Closure, args []value.Value) (result value.Value, caught bool, err error) {
	base := len(v.regs)
	need := frameSize(cl.Proto, len(args))
	v.regs = append(v.regs, make([]value.Value, need)...)
	window := v.regs[base : base+need]
	copy(window, args)
	fillMissingParams(window, cl.Proto, len(args))
	window[bytecode.RecRegister] = value.NewFunction(cl)

	child := &Frame{closure: cl, registers: window}
	v.frames = append(v.frames, child)

	func() {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			v.frames = v.frames[:len(v.frames)-1]
			v.regs = v.regs[:base]
			if re, ok := r.(*RuntimeException); ok && caller != nil && v.dispatchThrow(caller, re.Err) {
				caught = true
				return
			}
			panic(r)
		}()
		result = v.run(child)
	}()

	if !caught {
		v.frames = v.frames[:len(v.frames)-1]
		v.regs = v.regs[:base]
	}
	return result, caught, nil
}

// replaceFrame implements the tail-call optimization: frame's own window
// is reused (shrunk/grown as needed) rather than pushing a new frame, so a
// self-recursive loop via `rec()` runs in constant Go stack depth.
func (v *VM) replaceFrame(frame *Frame, cl *Closure, args []value.Value) {
	base := len(v.regs) - len(frame.registers)
	need := frameSize(cl.Proto, len(args))
	v.regs = v.regs[:base]
	v.regs = append(v.regs, make([]value.Value, need)...)
	frame.registers = v.regs[base : base+need]
	copy(frame.registers, args)
	fillMissingParams(frame.registers, cl.Proto, len(args))
	frame.registers[bytecode.RecRegister] = value.NewFunction(cl)
	frame.closure = cl
	frame.ip = 0
	frame.handlers = nil
}

// frameSize returns the register window size for a prototype: at least
// enough for RegisterCount/the incoming argument count, but always large
// enough to include index RecRegister (255), which every frame reserves
// for the `rec` self-reference regardless of how few ordinary registers
// the function body uses.
func frameSize(proto *bytecode.FuncPrototype, argc int) int {
	need := proto.RegisterCount
	if need < argc {
		need = argc
	}
	if need <= int(bytecode.RecRegister) {
		need = int(bytecode.RecRegister) + 1
	}
	return need
}

// fillMissingParams null-fills parameter registers beyond argc so a
// default-parameter prologue's OpJumpIfNull (compiler.go's
// compileFuncExpr) sees an actual Null value rather than a zero-valued
// value.Value, whose Kind is KindNumber (spec.md:181 — an omitted
// optional argument must read as Null until a default substitutes it).
func fillMissingParams(window []value.Value, proto *bytecode.FuncPrototype, argc int) {
	for i := argc; i < proto.ParamCount; i++ {
		window[i] = value.Null()
	}
}

// CallValue invokes an arbitrary callable Value with args, for use by
// higher-order built-ins (map/filter/reduce). Exposed on VM so the builtin
// package can call back into user closures without an import cycle.
func (v *VM) CallValue(callee value.Value, args []value.Value) (value.Value, error) {
	if callee.Kind() != value.KindFunction {
		return value.Value{}, fmt.Errorf("value of kind %s is not callable", callee.Kind())
	}
	switch fn := callee.AsFunction().(type) {
	case *Closure:
		checkArity(fn.Proto, len(args))
		result, _, err := v.callNested(nil, fn, args)
		return result, err
	case NativeFunc:
		return fn(args)
	default:
		return value.Value{}, fmt.Errorf("value is not callable")
	}
}

// MakeGenerator wraps a Go-side producer as a Generator Value, for built-ins
// (values/entries) that present a Vector as something `for..in` can drive
// without the builtin package needing to see the *Generator type itself.
func (v *VM) MakeGenerator(produce func(yield func(value.Value))) value.Value {
	return value.NewGenerator(v.NewNativeGenerator(produce))
}

func negate(v value.Value) value.Value {
	switch v.Kind() {
	case value.KindComplex:
		c := v.AsComplex()
		return value.ComplexNum(-c.Re, -c.Im)
	default:
		return value.Number(-v.AsNumber())
	}
}

func (v *VM) execArith(frame *Frame, op bytecode.Opcode, instr bytecode.Instruction) {
	a, b := frame.registers[instr.B()], frame.registers[instr.C()]
	frame.registers[instr.A()] = arithValues(op, a, b)
}

// arithValues implements spec.md:167's ADD/SUB/MUL/DIV/MOD/POW: IEEE-754 on
// Numbers, string concatenation for ADD with either operand a String,
// Complex arithmetic, and element-wise Vector/Tensor/ComplexTensor
// arithmetic when both operands' shapes match (a TypeError otherwise).
func arithValues(op bytecode.Opcode, a, b value.Value) value.Value {
	if op == bytecode.OpAdd && (a.Kind() == value.KindString || b.Kind() == value.KindString) {
		return value.String(value.Stringify(a) + value.Stringify(b))
	}

	if a.Kind() == value.KindVector || b.Kind() == value.KindVector {
		return vectorArith(op, a, b)
	}

	if a.Kind() == value.KindTensor || b.Kind() == value.KindTensor {
		return tensorArith(op, a, b)
	}

	if a.Kind() == value.KindComplexTensor || b.Kind() == value.KindComplexTensor {
		return complexTensorArith(op, a, b)
	}

	if a.Kind() == value.KindComplex || b.Kind() == value.KindComplex {
		return complexArith(op, a, b)
	}

	if a.Kind() != value.KindNumber || b.Kind() != value.KindNumber {
		panic(throwKind(TypeError, "arithmetic requires Numbers, got %s and %s", a.Kind(), b.Kind()))
	}

	x, y := a.AsNumber(), b.AsNumber()
	var res float64
	switch op {
	case bytecode.OpAdd:
		res = x + y
	case bytecode.OpSub:
		res = x - y
	case bytecode.OpMul:
		res = x * y
	case bytecode.OpDiv:
		res = x / y
	case bytecode.OpMod:
		res = math.Mod(x, y)
	case bytecode.OpPow:
		res = math.Pow(x, y)
	}
	return value.Number(res)
}

// vectorArith applies op element-wise across two same-length Vectors,
// recursing through arithValues so nested Vectors (e.g. a Vector of
// Vectors standing in for a matrix row) compose the same way a flat
// numeric Vector does.
func vectorArith(op bytecode.Opcode, a, b value.Value) value.Value {
	if a.Kind() != value.KindVector || b.Kind() != value.KindVector {
		panic(throwKind(TypeError, "arithmetic requires Numbers or matching Vectors, got %s and %s", a.Kind(), b.Kind()))
	}
	av, bv := a.AsVector().Elements, b.AsVector().Elements
	if len(av) != len(bv) {
		panic(throwKind(TypeError, "element-wise arithmetic requires matching shapes, got lengths %d and %d", len(av), len(bv)))
	}
	out := make([]value.Value, len(av))
	for i := range av {
		out[i] = arithValues(op, av[i], bv[i])
	}
	return value.NewVector(out)
}

// tensorArith applies op element-wise across two Tensors of identical
// shape, producing a new Tensor of that shape.
func tensorArith(op bytecode.Opcode, a, b value.Value) value.Value {
	if a.Kind() != value.KindTensor || b.Kind() != value.KindTensor {
		panic(throwKind(TypeError, "arithmetic requires matching Tensors, got %s and %s", a.Kind(), b.Kind()))
	}
	at, bt := a.AsTensor(), b.AsTensor()
	if !shapesEqual(at.Shape, bt.Shape) {
		panic(throwKind(TypeError, "element-wise arithmetic requires matching shapes, got %v and %v", at.Shape, bt.Shape))
	}
	out := make([]float64, len(at.Data))
	for i := range at.Data {
		out[i] = scalarArith(op, at.Data[i], bt.Data[i])
	}
	return value.NewTensor(append([]int(nil), at.Shape...), out)
}

// complexTensorArith applies op element-wise across two ComplexTensors of
// identical shape, producing a new ComplexTensor of that shape.
func complexTensorArith(op bytecode.Opcode, a, b value.Value) value.Value {
	if a.Kind() != value.KindComplexTensor || b.Kind() != value.KindComplexTensor {
		panic(throwKind(TypeError, "arithmetic requires matching ComplexTensors, got %s and %s", a.Kind(), b.Kind()))
	}
	at, bt := a.AsComplexTensor(), b.AsComplexTensor()
	if !shapesEqual(at.Shape, bt.Shape) {
		panic(throwKind(TypeError, "element-wise arithmetic requires matching shapes, got %v and %v", at.Shape, bt.Shape))
	}
	out := make([]value.Complex, len(at.Data))
	for i := range at.Data {
		res := complexArith(op, value.ComplexNum(at.Data[i].Re, at.Data[i].Im), value.ComplexNum(bt.Data[i].Re, bt.Data[i].Im))
		out[i] = res.AsComplex()
	}
	return value.NewComplexTensor(append([]int(nil), at.Shape...), out)
}

func shapesEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func scalarArith(op bytecode.Opcode, x, y float64) float64 {
	switch op {
	case bytecode.OpAdd:
		return x + y
	case bytecode.OpSub:
		return x - y
	case bytecode.OpMul:
		return x * y
	case bytecode.OpDiv:
		return x / y
	case bytecode.OpMod:
		return math.Mod(x, y)
	case bytecode.OpPow:
		return math.Pow(x, y)
	}
	return 0
}

func complexArith(op bytecode.Opcode, a, b value.Value) value.Value {
	toC := func(v value.Value) value.Complex {
		if v.Kind() == value.KindComplex {
			return v.AsComplex()
		}
		return value.Complex{Re: v.AsNumber()}
	}
	x, y := toC(a), toC(b)
	switch op {
	case bytecode.OpAdd:
		return value.ComplexNum(x.Re+y.Re, x.Im+y.Im)
	case bytecode.OpSub:
		return value.ComplexNum(x.Re-y.Re, x.Im-y.Im)
	case bytecode.OpMul:
		return value.ComplexNum(x.Re*y.Re-x.Im*y.Im, x.Re*y.Im+x.Im*y.Re)
	case bytecode.OpDiv:
		denom := y.Re*y.Re + y.Im*y.Im
		return value.ComplexNum((x.Re*y.Re+x.Im*y.Im)/denom, (x.Im*y.Re-x.Re*y.Im)/denom)
	default:
		panic(throwKind(TypeError, "unsupported operation on Complex values"))
	}
}

func (v *VM) execCompare(frame *Frame, op bytecode.Opcode, instr bytecode.Instruction) {
	a, b := frame.registers[instr.B()], frame.registers[instr.C()]
	if a.Kind() != value.KindNumber || b.Kind() != value.KindNumber {
		panic(throwKind(TypeError, "comparison requires Numbers, got %s and %s", a.Kind(), b.Kind()))
	}
	x, y := a.AsNumber(), b.AsNumber()
	var res bool
	switch op {
	case bytecode.OpLt:
		res = x < y
	case bytecode.OpLe:
		res = x <= y
	case bytecode.OpGt:
		res = x > y
	case bytecode.OpGe:
		res = x >= y
	}
	frame.registers[instr.A()] = value.Boolean(res)
}

func normalizeIndex(idx, length int) int {
	if idx < 0 {
		return length + idx
	}
	return idx
}

func sliceBounds(fromV, toV value.Value, length int) (int, int) {
	from, to := 0, length
	if fromV.Kind() != value.KindNull {
		from = normalizeIndex(int(fromV.AsNumber()), length)
	}
	if toV.Kind() != value.KindNull {
		to = normalizeIndex(int(toV.AsNumber()), length)
	}
	if from < 0 {
		from = 0
	}
	if to > length {
		to = length
	}
	if to < from {
		to = from
	}
	return from, to
}

// errorField reads an Error value's kind/message fields, the only way
// user code (typically a `catch (e)` binding) inspects a caught error's
// details (spec.md §7's Error taxonomy).
func errorField(e *value.Error, name string) value.Value {
	switch name {
	case "kind":
		return value.String(e.Kind)
	case "message":
		return value.String(e.Message)
	default:
		panic(throwKind(FieldError, "Error has no field %q", name))
	}
}

func matchesTypeName(v value.Value, typeName string) bool {
	return v.Kind().String() == typeName
}
