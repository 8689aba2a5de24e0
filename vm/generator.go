package vm

import "github.com/achronyme/achronyme/value"

// Generator suspends/resumes a function body at YIELD points (spec.md
// §4.4). Go has no first-class continuations, so suspension is modeled the
// idiomatic way: the generator's body runs on its own goroutine, blocked on
// a channel handoff at every YIELD, and RESUME_GEN on the driving goroutine
// blocks on the matching receive. This is a stdlib-only piece of the VM
// (documented in DESIGN.md) since no library in the example pack provides
// suspendable bytecode execution — goroutines are themselves Go's native
// answer to coroutines.
type Generator struct {
	vm      *VM
	closure *Closure
	native  func(yield func(value.Value))

	resumeCh chan value.Value
	yieldCh  chan generatorStep

	started bool
	done    bool
}

// NewNativeGenerator wraps a plain Go sequence (used by built-ins like
// `values`/`entries` that expose a Vector as something `for..in` can drive)
// in the same suspend/resume protocol as a compiled generator body, so the
// VM's RESUME_GEN opcode does not need to special-case where a Generator
// value came from.
func (v *VM) NewNativeGenerator(produce func(yield func(value.Value))) *Generator {
	return &Generator{
		vm:       v,
		native:   produce,
		resumeCh: make(chan value.Value),
		yieldCh:  make(chan generatorStep),
	}
}

type generatorStep struct {
	value value.Value
	done  bool
	err   *RuntimeException
}

func (v *VM) newGenerator(cl *Closure) *Generator {
	return &Generator{
		vm:       v,
		closure:  cl,
		resumeCh: make(chan value.Value),
		yieldCh:  make(chan generatorStep),
	}
}

// Resume drives the generator forward by one step, delivering sent as the
// result of the generator's pending YIELD expression (Null on the first
// resume, before the body has executed anything). It returns a record
// `{value, done}` per spec.md §4.4.
func (g *Generator) Resume(sent value.Value) value.Value {
	if g.done {
		return resultRecord(value.Null(), true)
	}

	if !g.started {
		g.started = true
		go g.runBody()
	} else {
		g.resumeCh <- sent
	}

	step := <-g.yieldCh
	if step.err != nil {
		g.done = true
		panic(step.err)
	}
	if step.done {
		g.done = true
	}
	return resultRecord(step.value, step.done)
}

func resultRecord(v value.Value, done bool) value.Value {
	rec := value.NewRecord()
	rec.Set("value", v, false)
	rec.Set("done", value.Boolean(done), false)
	return value.NewRecordValue(rec)
}

// runBody executes the generator's prototype on its own goroutine, sharing
// the parent VM's globals/builtins/module but a private register stack and
// frame list (a generator's call frame must outlive the RESUME_GEN call
// that created it, so it cannot share the driving goroutine's stack).
func (g *Generator) runBody() {
	if g.native != nil {
		defer func() {
			if r := recover(); r != nil {
				if re, ok := r.(*RuntimeException); ok {
					g.yieldCh <- generatorStep{err: re}
					return
				}
				panic(r)
			}
		}()
		g.native(func(v value.Value) {
			g.yieldCh <- generatorStep{value: v, done: false}
			<-g.resumeCh
		})
		g.yieldCh <- generatorStep{value: value.Null(), done: true}
		return
	}

	sub := &VM{
		module:   g.vm.module,
		globals:  g.vm.globals,
		regs:     make([]value.Value, 0, 256),
		builtins: g.vm.builtins,
		reactive: g.vm.reactive,
		gen:      g,
	}

	defer func() {
		if r := recover(); r != nil {
			if re, ok := r.(*RuntimeException); ok {
				g.yieldCh <- generatorStep{err: re}
				return
			}
			panic(r)
		}
	}()

	result, err := sub.callClosure(g.closure, nil)
	if err != nil {
		g.yieldCh <- generatorStep{err: err.(*RuntimeException)}
		return
	}
	g.yieldCh <- generatorStep{value: result, done: true}
}

// doYield is reached by the OpYield case in run, executing on the
// generator's own goroutine (sub-VM). It hands the yielded value to
// whichever goroutine is blocked in Resume, then blocks for the next
// resume value.
func (v *VM) doYield(frame *Frame, yielded value.Value) value.Value {
	if v.gen == nil {
		panic(throwKind(RuntimeError, "yield reached outside an active generator"))
	}
	v.gen.yieldCh <- generatorStep{value: yielded, done: false}
	return <-v.gen.resumeCh
}
