package vm

import "github.com/achronyme/achronyme/value"

// NativeFunc is a host-side callable wrapped as a Function Value, used for
// the small set of intrinsic methods a Signal or Generator exposes
// (`.set`, `.peek`, `.next`) that are bound to one receiver at GET_FIELD
// time rather than looked up by name through the builtin.Registry. It
// satisfies the same CALL/TAIL_CALL dispatch as a compiled Closure (see
// execCall/CallValue) without needing a register window of its own.
type NativeFunc func(args []value.Value) (value.Value, error)

// intrinsicField resolves a GET_FIELD against a Signal or Generator: a
// data property (signal.value) reads through directly, while a method name
// (signal.set, signal.peek, generator.next) returns a NativeFunc closing
// over root so a later CALL on the returned Value performs the bound
// action. Grounded on spec.md §4.5's signal.value/.set/.peek surface and
// §4.4's generator .next(), expressed as intrinsic methods rather than
// ordinary Record fields because a Signal/Generator is not a Record.
func (v *VM) intrinsicField(root value.Value, name string) value.Value {
	switch root.Kind() {
	case value.KindSignal:
		switch name {
		case "value":
			return v.SignalGet(root)
		case "peek":
			return value.NewFunction(NativeFunc(func(args []value.Value) (value.Value, error) {
				return v.SignalPeek(root), nil
			}))
		case "set":
			return value.NewFunction(NativeFunc(func(args []value.Value) (value.Value, error) {
				if len(args) == 0 {
					return value.Value{}, throwKind(ArityError, "signal.set expects 1 argument, got 0")
				}
				v.SignalSet(root, args[0])
				return value.Null(), nil
			}))
		default:
			panic(throwKind(FieldError, "signal has no field %q", name))
		}
	case value.KindGenerator:
		switch name {
		case "next":
			return value.NewFunction(NativeFunc(func(args []value.Value) (value.Value, error) {
				gen := root.AsGenerator().(*Generator)
				return gen.Resume(argOrNull(args, 0)), nil
			}))
		default:
			panic(throwKind(FieldError, "generator has no field %q", name))
		}
	default:
		panic(throwKind(FieldError, "cannot read field %q of a %s", name, root.Kind()))
	}
}

func argOrNull(args []value.Value, i int) value.Value {
	if i < len(args) {
		return args[i]
	}
	return value.Null()
}
