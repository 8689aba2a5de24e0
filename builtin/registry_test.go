package builtin

import (
	"testing"

	"github.com/achronyme/achronyme/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCaller stands in for *vm.VM in tests, exercising the Caller interface
// boundary (this package must never import vm) the way a real VM would but
// without a full bytecode module to execute.
type fakeCaller struct {
	calls      int
	lastArgs   []value.Value
	signalVal  value.Value
	effectRuns int
}

func (f *fakeCaller) CallValue(callee value.Value, args []value.Value) (value.Value, error) {
	f.calls++
	f.lastArgs = args
	return value.Number(float64(len(args))), nil
}

func (f *fakeCaller) MakeGenerator(produce func(yield func(value.Value))) value.Value {
	return value.Null()
}

func (f *fakeCaller) NewSignal(initial value.Value) value.Value {
	f.signalVal = initial
	return value.Null()
}

func (f *fakeCaller) Effect(callback value.Value) error {
	f.effectRuns++
	return nil
}

func TestRegistryDispatchesByName(t *testing.T) {
	r := New()
	require.True(t, r.Has("print"))
	require.True(t, r.Has("abs"))
	require.False(t, r.Has("not-a-real-builtin"))

	result, err := r.Call("abs", &fakeCaller{}, []value.Value{value.Number(-5)})
	require.NoError(t, err)
	assert.Equal(t, float64(5), result.AsNumber())
}

func TestRegistryCallUnknownNameErrors(t *testing.T) {
	r := New()
	_, err := r.Call("doesNotExist", &fakeCaller{}, nil)
	assert.Error(t, err)
}

func TestRegisterOverridesHandler(t *testing.T) {
	r := New()
	r.Register("abs", func(c Caller, args []value.Value) (value.Value, error) {
		return value.Number(42), nil
	})
	result, err := r.Call("abs", &fakeCaller{}, []value.Value{value.Number(-5)})
	require.NoError(t, err)
	assert.Equal(t, float64(42), result.AsNumber())
}

func TestTypeofAndLength(t *testing.T) {
	r := New()
	caller := &fakeCaller{}

	kind, err := r.Call("typeof", caller, []value.Value{value.Number(1)})
	require.NoError(t, err)
	assert.Equal(t, "Number", kind.AsString())

	n, err := r.Call("length", caller, []value.Value{value.NewVector([]value.Value{value.Number(1), value.Number(2)})})
	require.NoError(t, err)
	assert.Equal(t, float64(2), n.AsNumber())

	_, err = r.Call("length", caller, []value.Value{value.Number(1)})
	assert.Error(t, err, "length of a Number is not defined")
}

func TestAssertRaisesOnFalsyCondition(t *testing.T) {
	r := New()
	caller := &fakeCaller{}

	_, err := r.Call("assert", caller, []value.Value{value.Boolean(true)})
	assert.NoError(t, err)

	_, err = r.Call("assert", caller, []value.Value{value.Boolean(false), value.String("nope")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
}

func TestSignalAndEffectRouteThroughCaller(t *testing.T) {
	r := New()
	caller := &fakeCaller{}

	_, err := r.Call("signal", caller, []value.Value{value.Number(7)})
	require.NoError(t, err)
	assert.Equal(t, float64(7), caller.signalVal.AsNumber())

	_, err = r.Call("effect", caller, []value.Value{value.Null()})
	require.NoError(t, err)
	assert.Equal(t, 1, caller.effectRuns)
}
