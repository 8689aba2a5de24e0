package vm_test

// End-to-end scenarios mirroring spec.md §8's S1-S6: source text through the
// parser, compiler and VM. Grounded in the retrieved pack's integration-test
// style (ProbeChain-go-probe's devp2p protocol tests exercise a full
// encode/decode/dispatch round trip rather than unit-testing each layer in
// isolation) since this is the only way to observe compiler+VM semantics
// without constructing bytecode by hand.

import (
	"math"
	"testing"

	"github.com/achronyme/achronyme/builtin"
	"github.com/achronyme/achronyme/compiler"
	"github.com/achronyme/achronyme/parser"
	"github.com/achronyme/achronyme/source"
	"github.com/achronyme/achronyme/value"
	"github.com/achronyme/achronyme/vm"
	"github.com/stretchr/testify/require"
)

func eval(t *testing.T, src string) value.Value {
	t.Helper()
	file := &source.File{Filename: "<test>", Contents: src}
	prog, err := parser.Parse(file)
	require.NoError(t, err)

	reg := builtin.New()
	mod, err := compiler.New(reg).Compile(prog)
	require.NoError(t, err)

	machine := vm.New(mod, reg)
	result, err := machine.Run()
	require.NoError(t, err)
	return result
}

func TestArithmeticPrecedence_S1(t *testing.T) {
	result := eval(t, "2 + 3 * 4")
	require.Equal(t, value.KindNumber, result.Kind())
	require.Equal(t, float64(14), result.AsNumber())
}

func TestClosureCaptureOfMutable_S2(t *testing.T) {
	result := eval(t, `
let makeCounter = () => do {
    mut count = 0
    () => do { count = count + 1; count }
}
let c = makeCounter()
c(); c(); c()
`)
	require.Equal(t, float64(3), result.AsNumber())
}

func TestFactorialViaRec_S3(t *testing.T) {
	result := eval(t, `let f = (n) => if (n <= 1) { 1 } else { n * rec(n - 1) }; f(5)`)
	require.Equal(t, float64(120), result.AsNumber())
}

func TestGeneratorYields_S4(t *testing.T) {
	result := eval(t, `
let g = generate { yield 1; yield 2; yield 3 }
let r1 = g.next(); let r2 = g.next(); let r3 = g.next(); let r4 = g.next()
[r1.value, r2.value, r3.value, r4.done]
`)
	vec := result.AsVector().Elements
	require.Len(t, vec, 4)
	require.Equal(t, float64(1), vec[0].AsNumber())
	require.Equal(t, float64(2), vec[1].AsNumber())
	require.Equal(t, float64(3), vec[2].AsNumber())
	require.True(t, vec[3].AsBoolean())
}

func TestReactiveSignalAndEffect_S5(t *testing.T) {
	result := eval(t, `
let s = signal(1)
mut last = 0
effect(() => do { last = s.value * 10 })
s.set(5)
last
`)
	require.Equal(t, float64(50), result.AsNumber())
}

func TestDestructuringWithDefaults_S6(t *testing.T) {
	result := eval(t, `
let { name, age = 25 } = { name: "Alice" }
[name, age]
`)
	vec := result.AsVector().Elements
	require.Equal(t, "Alice", vec[0].AsString())
	require.Equal(t, float64(25), vec[1].AsNumber())
}

func TestDestructuringTypePatternMismatchRaisesMatchError(t *testing.T) {
	file := &source.File{Filename: "<test>", Contents: `let { x: Number = 0 } = { x: "hi" }`}
	prog, err := parser.Parse(file)
	require.NoError(t, err)

	reg := builtin.New()
	mod, err := compiler.New(reg).Compile(prog)
	require.NoError(t, err)

	machine := vm.New(mod, reg)
	_, err = machine.Run()
	require.Error(t, err)
}

func TestShortCircuitOr(t *testing.T) {
	result := eval(t, `
mut sideEffects = 0
let bump = () => do { sideEffects = sideEffects + 1; true }
true || bump()
sideEffects
`)
	require.Equal(t, float64(0), result.AsNumber())
}

func TestShortCircuitAnd(t *testing.T) {
	result := eval(t, `
mut sideEffects = 0
let bump = () => do { sideEffects = sideEffects + 1; true }
false && bump()
sideEffects
`)
	require.Equal(t, float64(0), result.AsNumber())
}

func TestIEEEDivision(t *testing.T) {
	result := eval(t, "1 / 0")
	require.True(t, math.IsInf(result.AsNumber(), 1))

	result = eval(t, "-1 / 0")
	require.True(t, math.IsInf(result.AsNumber(), -1))

	result = eval(t, "0 / 0")
	require.True(t, math.IsNaN(result.AsNumber()))
}

func TestTailCallBoundedStackDepth(t *testing.T) {
	// rec(n-1) only compiles to a TAIL_CALL (frame reuse, not frame growth)
	// when it appears as a return statement's argument, so the recursive
	// step must be spelled with an explicit return.
	result := eval(t, `
let countdown = (n) => {
    if (n <= 0) { return 0 }
    return rec(n - 1)
}
countdown(200000)
`)
	require.Equal(t, float64(0), result.AsNumber())
}

func TestTryCatchRecoversThrow(t *testing.T) {
	result := eval(t, `
try {
    throw "boom"
    1
} catch (e) {
    99
}
`)
	require.Equal(t, float64(99), result.AsNumber())
}

func TestTryIsAnExpression(t *testing.T) {
	result := eval(t, `let x = try { 10 } catch (e) { -1 }
x`)
	require.Equal(t, float64(10), result.AsNumber())
}

func TestTryCatchRecoversThrowAcrossNestedCall(t *testing.T) {
	// THROW must unwind past the CALL boundary that invoked the throwing
	// function, not just the frame it executes in (spec.md:189).
	result := eval(t, `
let boom = () => {
    throw "nested boom"
}
let wrapper = () => {
    boom()
    return "unreachable"
}
try {
    wrapper()
} catch (e) {
    e.message
}
`)
	require.Equal(t, "nested boom", result.AsString())
}

func TestForInOverVector(t *testing.T) {
	// for-in over a Vector directly compiles to an index loop rather than
	// going through the generator/RESUME_GEN machinery (spec.md:121).
	result := eval(t, `
mut total = 0
for x in [1, 2, 3, 4] { total = total + x }
total
`)
	require.Equal(t, float64(10), result.AsNumber())
}

func TestForInOverVectorWithContinue(t *testing.T) {
	// continue in the Vector index-loop branch must still run the
	// per-iteration advance step rather than looping forever.
	result := eval(t, `
mut total = 0
for x in [1, 2, 3, 4, 5] {
    if (x == 3) { continue }
    total = total + x
}
total
`)
	require.Equal(t, float64(12), result.AsNumber())
}

func TestForInOverGeneratorStillWorks(t *testing.T) {
	result := eval(t, `
mut total = 0
for x in values([1, 2, 3, 4]) { total = total + x }
total
`)
	require.Equal(t, float64(10), result.AsNumber())
}

func TestDefaultParameterAppliesOnOmittedArgument(t *testing.T) {
	result := eval(t, `
let greet = (n, x = 5) => x
greet(1)
`)
	require.Equal(t, float64(5), result.AsNumber())
}

func TestVectorElementWiseArithmetic(t *testing.T) {
	result := eval(t, "[1, 2] + [3, 4]")
	elems := result.AsVector().Elements
	require.Equal(t, float64(4), elems[0].AsNumber())
	require.Equal(t, float64(6), elems[1].AsNumber())
}

func TestVectorArithmeticShapeMismatchRaisesTypeError(t *testing.T) {
	result := eval(t, `
try {
    [1, 2] + [3, 4, 5]
} catch (e) {
    e.kind
}
`)
	require.Equal(t, "type error", result.AsString())
}

func TestTensorElementWiseArithmetic(t *testing.T) {
	result := eval(t, `
let a = tensor([2, 2], [1, 2, 3, 4])
let b = tensor([2, 2], [10, 20, 30, 40])
let c = a + b
tensorGet(c, [1, 1])
`)
	require.Equal(t, float64(44), result.AsNumber())
}

func TestMatchWithGuardAndCatchAll(t *testing.T) {
	// match is a statement, not an expression, so classify routes its result
	// through a mut local that each arm assigns.
	result := eval(t, `
let classify = (n) => do {
    mut result = ""
    match (n) {
        x if (x == 0) => result = "zero",
        x if (x > 0) => result = "positive",
        _ => result = "negative"
    }
    result
}
[classify(0), classify(5), classify(-5)]
`)
	vec := result.AsVector().Elements
	require.Equal(t, "zero", vec[0].AsString())
	require.Equal(t, "positive", vec[1].AsString())
	require.Equal(t, "negative", vec[2].AsString())
}
