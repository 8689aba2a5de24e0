// Package builtin implements the host-provided function registry described
// in spec.md §4.6/§6: a name→handler map the VM's CALL_BUILTIN opcode
// dispatches into. Grounded on the teacher's backend/functions.go FuncValue
// table (a name-keyed map of callables available to the interpreter) but
// reworked around a Caller interface instead of a concrete *Interpreter
// pointer, so this package has no import-time dependency on vm: vm imports
// builtin for the Registry type, and builtin calls back into vm only through
// the narrow interface a *vm.VM satisfies structurally (the same
// cycle-avoidance shape value.go already uses for Function/Signal/Generator
// via an opaque interface{} field).
package builtin

import (
	"fmt"

	"github.com/achronyme/achronyme/value"
)

// Caller is the slice of VM behavior a built-in handler may need: invoking
// an Achronyme callable (map/filter/reduce), minting a generator that wraps
// a Go-side producer (values/entries), and driving the reactive subsystem
// (signal/effect). *vm.VM implements this without the vm package ever
// appearing in this file.
type Caller interface {
	CallValue(callee value.Value, args []value.Value) (value.Value, error)
	MakeGenerator(produce func(yield func(value.Value))) value.Value
	NewSignal(initial value.Value) value.Value
	Effect(callback value.Value) error
}

// Handler is one built-in's implementation.
type Handler func(c Caller, args []value.Value) (value.Value, error)

// Registry is the name->handler table the compiler's identifier resolution
// and the VM's CALL_BUILTIN both consult (by name, not by a separately
// negotiated numeric id — the builtin name is just another string interned
// into the module's shared string pool, like a field or global name).
type Registry struct {
	handlers map[string]Handler
}

// New builds a Registry pre-populated with the core built-in library:
// arithmetic/numeric-analysis primitives (§1's "arithmetic specialization,
// ... numerical analysis" line), collection combinators, the
// signal/effect entry points, and Tensor/ComplexTensor construction and
// indexing. Hosts may register additional names with Register before
// first use; spec.md §1 treats the built-in library itself as outside the
// core's specified contract, so this set is a working minimum rather than
// an exhaustive stdlib.
func New() *Registry {
	r := &Registry{handlers: make(map[string]Handler)}
	registerCore(r)
	registerMath(r)
	registerCollections(r)
	registerReactive(r)
	registerTensor(r)
	return r
}

// Register adds or overrides a built-in. Hosts embedding this VM (CLI, LSP,
// GUI bridge) call this before Run to extend the library without touching
// this package.
func (r *Registry) Register(name string, h Handler) {
	r.handlers[name] = h
}

// Has reports whether name is a registered built-in, consulted by the
// compiler when deciding whether a bare identifier call should lower to
// CALL_BUILTIN instead of a generic GET_GLOBAL+CALL.
func (r *Registry) Has(name string) bool {
	_, ok := r.handlers[name]
	return ok
}

// Call dispatches name with args, run through caller c for any callback
// into the VM the handler needs.
func (r *Registry) Call(name string, c Caller, args []value.Value) (value.Value, error) {
	h, ok := r.handlers[name]
	if !ok {
		return value.Value{}, fmt.Errorf("undefined built-in %q", name)
	}
	return h(c, args)
}

func argOr(args []value.Value, i int, fallback value.Value) value.Value {
	if i < len(args) {
		return args[i]
	}
	return fallback
}
