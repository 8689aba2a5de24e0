package builtin

import "github.com/achronyme/achronyme/value"

// registerReactive wires the two entry points into spec.md §4.5's
// subsystem that look like ordinary calls: `signal(initial)` constructs a
// cell, `effect(fn)` registers and immediately runs a callback. The
// cell's `.value`/`.set(v)`/`.peek()` surface is intrinsic method dispatch
// handled directly by the VM's GET_FIELD case (vm/vm.go), since a Signal is
// not a Record and method resolution there needs to see the concrete
// *reactiveSignal the vm package owns.
func registerReactive(r *Registry) {
	r.Register("signal", func(c Caller, args []value.Value) (value.Value, error) {
		return c.NewSignal(argOr(args, 0, value.Null())), nil
	})

	r.Register("effect", func(c Caller, args []value.Value) (value.Value, error) {
		fn := argOr(args, 0, value.Null())
		if err := c.Effect(fn); err != nil {
			return value.Value{}, err
		}
		return value.Null(), nil
	})
}
