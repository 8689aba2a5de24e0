package vm

import (
	"github.com/achronyme/achronyme/value"
	"github.com/google/uuid"
)

// reactiveContext implements the signal/effect subsystem (spec.md §4.5): a
// tracking stack of currently-running effects, and per-signal subscriber
// lists populated by reads that occur while an effect is on top of that
// stack. Grounded on the same call-frame-adjacent-state pattern as the
// generator table (a piece of VM state threaded alongside the register
// window rather than a value the language manipulates directly).
//
// The spec calls for weak subscriber references so a signal does not keep a
// disposed effect alive. Go has no idiomatic weak pointer in the teacher's
// era of the standard library, and nothing in the example pack reaches for
// one; subscriber lists here are ordinary strong references instead; dead
// effects are never explicitly disposed by this language (there is no
// `dispose` operation in scope), so the distinction is unobservable, and
// entries are simply deduplicated rather than reaped.
type reactiveContext struct {
	vm       *VM
	stack    []*reactiveEffect
	notifier func(id string)

	notifying map[*reactiveSignal]bool
	queue     []*reactiveSignal
	draining  bool
}

func newReactiveContext(v *VM) *reactiveContext {
	return &reactiveContext{
		vm:        v,
		notifying: make(map[*reactiveSignal]bool),
	}
}

// SetNotifier installs the host-facing callback invoked on every signal
// write (spec.md §4.6's "Signal notifier"). id is the uuid string minted
// for the signal by NewSignal, stable for the signal's lifetime.
func (v *VM) SetNotifier(fn func(id string)) {
	v.reactive.notifier = fn
}

type reactiveSignal struct {
	id          string
	value       value.Value
	subscribers []*reactiveEffect
}

type reactiveEffect struct {
	callback value.Value
	deps     []*reactiveSignal
}

// NewSignal creates a fresh reactive cell holding initial. id is a uuid
// handle a host can key external state off of (spec.md §6's "Signal
// notifier") without holding a Go pointer across whatever FFI boundary the
// host integration uses.
func (v *VM) NewSignal(initial value.Value) value.Value {
	return value.NewSignal(&reactiveSignal{id: uuid.New().String(), value: initial})
}

// SignalGet reads a signal's current value, recording a dependency on the
// effect currently running (if any).
func (v *VM) SignalGet(sigVal value.Value) value.Value {
	sig := sigVal.AsSignal().(*reactiveSignal)
	v.reactive.track(sig)
	return sig.value
}

// SignalPeek reads without registering a dependency.
func (v *VM) SignalPeek(sigVal value.Value) value.Value {
	sig := sigVal.AsSignal().(*reactiveSignal)
	return sig.value
}

// SignalSet updates a signal and re-runs its live subscribers. Nested sets
// triggered from inside an effect body are queued and drained in FIFO order
// once the outermost set finishes (spec.md §4.5's cycle handling), so an
// effect that writes to a signal it depends on reruns at most once per
// outermost set rather than recursing.
func (v *VM) SignalSet(sigVal value.Value, newVal value.Value) {
	sig := sigVal.AsSignal().(*reactiveSignal)
	sig.value = newVal

	rc := v.reactive
	if len(rc.notifying) > 0 || rc.draining {
		rc.queue = append(rc.queue, sig)
		return
	}

	ran := make(map[*reactiveEffect]bool)
	rc.notifying[sig] = true
	rc.drain(sig, ran)
	delete(rc.notifying, sig)

	if rc.notifier != nil {
		rc.notifier(signalID(sig))
	}

	if !rc.draining {
		rc.draining = true
		for len(rc.queue) > 0 {
			next := rc.queue[0]
			rc.queue = rc.queue[1:]
			rc.notifying[next] = true
			rc.drain(next, ran)
			delete(rc.notifying, next)
			if rc.notifier != nil {
				rc.notifier(signalID(next))
			}
		}
		rc.draining = false
	}
}

// drain snapshots sig's subscriber list (spec.md §5: "mutation during
// iteration must use snapshot-then-iterate") and reruns each effect not
// already recorded in ran, the set of effects rerun during the current
// outermost set.
func (rc *reactiveContext) drain(sig *reactiveSignal, ran map[*reactiveEffect]bool) {
	snapshot := make([]*reactiveEffect, len(sig.subscribers))
	copy(snapshot, sig.subscribers)
	for _, eff := range snapshot {
		if ran[eff] {
			continue
		}
		ran[eff] = true
		rc.vm.runEffect(eff)
	}
}

func (rc *reactiveContext) track(sig *reactiveSignal) {
	if len(rc.stack) == 0 {
		return
	}
	eff := rc.stack[len(rc.stack)-1]
	for _, d := range eff.deps {
		if d == sig {
			return
		}
	}
	eff.deps = append(eff.deps, sig)
	for _, s := range sig.subscribers {
		if s == eff {
			return
		}
	}
	sig.subscribers = append(sig.subscribers, eff)
}

// Effect registers callback to run immediately and re-run whenever any
// signal it reads during that run later changes.
func (v *VM) Effect(callback value.Value) error {
	eff := &reactiveEffect{callback: callback}
	return v.runEffect(eff)
}

func (v *VM) runEffect(eff *reactiveEffect) error {
	for _, sig := range eff.deps {
		sig.subscribers = removeEffect(sig.subscribers, eff)
	}
	eff.deps = eff.deps[:0]

	v.reactive.stack = append(v.reactive.stack, eff)
	_, err := v.CallValue(eff.callback, nil)
	v.reactive.stack = v.reactive.stack[:len(v.reactive.stack)-1]
	return err
}

func removeEffect(list []*reactiveEffect, target *reactiveEffect) []*reactiveEffect {
	out := list[:0]
	for _, e := range list {
		if e != target {
			out = append(out, e)
		}
	}
	return out
}

func signalID(sig *reactiveSignal) string {
	return sig.id
}
