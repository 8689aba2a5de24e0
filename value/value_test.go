package value

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIEEECompliance(t *testing.T) {
	zero := zeroValue()
	assert.Equal(t, math.Inf(1), 1.0/zero)
	assert.Equal(t, math.Inf(-1), -1.0/zero)
	assert.True(t, math.IsNaN(0.0/zero))
}

// zeroValue defeats constant folding so 1.0/zero is computed at runtime
// rather than rejected by the compiler as a division by a literal zero.
func zeroValue() float64 { return 0 }

func TestTruthy(t *testing.T) {
	assert.False(t, Boolean(false).Truthy())
	assert.False(t, Null().Truthy())
	assert.False(t, Number(0).Truthy())
	assert.False(t, Number(math.NaN()).Truthy())
	assert.True(t, Number(1).Truthy())
	assert.True(t, String("").Truthy())
	assert.True(t, NewVector(nil).Truthy())
}

func TestEqNaN(t *testing.T) {
	assert.False(t, Eq(Number(math.NaN()), Number(math.NaN())))
	assert.True(t, Eq(Number(1), Number(1)))
	assert.False(t, Eq(Number(1), String("1")))
}

func TestEqAggregateByIdentity(t *testing.T) {
	a := NewVector([]Value{Number(1)})
	b := NewVector([]Value{Number(1)})
	aliasOfA := a

	assert.False(t, Eq(a, b), "structurally equal vectors are not pointer-equal")
	assert.True(t, Eq(a, aliasOfA))
}

func TestMutableRefEqualityAutoDereferences(t *testing.T) {
	// DESIGN.md records the decision: == auto-dereferences both sides of a
	// MutableRef comparison.
	ra := NewMutableRefValue(NewMutableRef(Number(5)))
	rb := NewMutableRefValue(NewMutableRef(Number(5)))
	assert.True(t, Eq(ra, rb))
}

func TestRecordPreservesInsertionOrder(t *testing.T) {
	r := NewRecord()
	r.Set("b", Number(2), false)
	r.Set("a", Number(1), false)
	assert.Equal(t, []string{"b", "a"}, r.Keys)
}

func TestVectorAliasingIsObservable(t *testing.T) {
	v := NewVector([]Value{Number(1), Number(2)})
	alias := v
	alias.AsVector().Elements[0] = Number(99)
	assert.Equal(t, float64(99), v.AsVector().Elements[0].AsNumber())
}

func TestStringifyNumbers(t *testing.T) {
	assert.Equal(t, "14", Stringify(Number(14)))
	assert.Equal(t, "NaN", Stringify(Number(math.NaN())))
	assert.Equal(t, "Infinity", Stringify(Number(math.Inf(1))))
	assert.Equal(t, "-Infinity", Stringify(Number(math.Inf(-1))))
}

func TestStringifyComplex(t *testing.T) {
	assert.Equal(t, "0+1i", Stringify(ComplexNum(0, 1)))
	assert.Equal(t, "1-2i", Stringify(ComplexNum(1, -2)))
}
