package builtin

import (
	"fmt"

	"github.com/achronyme/achronyme/value"
)

// registerTensor wires the Tensor corner of §1's built-in library ("tensors"
// is named in the registry contract but left unspecified in detail). A
// Tensor has no literal syntax or construction opcode of its own (spec.md
// §4.2's aggregate opcodes only cover Vector and Record); these built-ins
// are the only way a program produces one, shaped from ordinary Vectors.
func registerTensor(r *Registry) {
	r.Register("tensor", func(c Caller, args []value.Value) (value.Value, error) {
		shapeVec, err := vectorArg(args, 0)
		if err != nil {
			return value.Value{}, fmt.Errorf("tensor expects a shape Vector as its first argument: %w", err)
		}
		dataVec, err := vectorArg(args, 1)
		if err != nil {
			return value.Value{}, fmt.Errorf("tensor expects a flat data Vector as its second argument: %w", err)
		}

		shape := make([]int, len(shapeVec.Elements))
		size := 1
		for i, e := range shapeVec.Elements {
			if e.Kind() != value.KindNumber {
				return value.Value{}, fmt.Errorf("tensor shape must be a Vector of Numbers, got %s at index %d", e.Kind(), i)
			}
			shape[i] = int(e.AsNumber())
			size *= shape[i]
		}
		if size != len(dataVec.Elements) {
			return value.Value{}, fmt.Errorf("tensor shape %v needs %d elements, got %d", shape, size, len(dataVec.Elements))
		}

		data := make([]float64, len(dataVec.Elements))
		for i, e := range dataVec.Elements {
			if e.Kind() != value.KindNumber {
				return value.Value{}, fmt.Errorf("tensor data must be a Vector of Numbers, got %s at index %d", e.Kind(), i)
			}
			data[i] = e.AsNumber()
		}
		return value.NewTensor(shape, data), nil
	})

	r.Register("complexTensor", func(c Caller, args []value.Value) (value.Value, error) {
		shapeVec, err := vectorArg(args, 0)
		if err != nil {
			return value.Value{}, fmt.Errorf("complexTensor expects a shape Vector as its first argument: %w", err)
		}
		dataVec, err := vectorArg(args, 1)
		if err != nil {
			return value.Value{}, fmt.Errorf("complexTensor expects a flat data Vector as its second argument: %w", err)
		}

		shape := make([]int, len(shapeVec.Elements))
		size := 1
		for i, e := range shapeVec.Elements {
			if e.Kind() != value.KindNumber {
				return value.Value{}, fmt.Errorf("complexTensor shape must be a Vector of Numbers, got %s at index %d", e.Kind(), i)
			}
			shape[i] = int(e.AsNumber())
			size *= shape[i]
		}
		if size != len(dataVec.Elements) {
			return value.Value{}, fmt.Errorf("complexTensor shape %v needs %d elements, got %d", shape, size, len(dataVec.Elements))
		}

		data := make([]value.Complex, len(dataVec.Elements))
		for i, e := range dataVec.Elements {
			switch e.Kind() {
			case value.KindComplex:
				data[i] = e.AsComplex()
			case value.KindNumber:
				data[i] = value.Complex{Re: e.AsNumber()}
			default:
				return value.Value{}, fmt.Errorf("complexTensor data must be a Vector of Numbers/Complex, got %s at index %d", e.Kind(), i)
			}
		}
		return value.NewComplexTensor(shape, data), nil
	})

	r.Register("shape", func(c Caller, args []value.Value) (value.Value, error) {
		v := argOr(args, 0, value.Null())
		var shape []int
		switch v.Kind() {
		case value.KindTensor:
			shape = v.AsTensor().Shape
		case value.KindComplexTensor:
			shape = v.AsComplexTensor().Shape
		default:
			return value.Value{}, fmt.Errorf("shape expects a Tensor or ComplexTensor, got %s", v.Kind())
		}
		out := make([]value.Value, len(shape))
		for i, d := range shape {
			out[i] = value.Number(float64(d))
		}
		return value.NewVector(out), nil
	})

	r.Register("tensorGet", func(c Caller, args []value.Value) (value.Value, error) {
		v := argOr(args, 0, value.Null())
		idxVec, err := vectorArg(args, 1)
		if err != nil {
			return value.Value{}, fmt.Errorf("tensorGet expects an index Vector as its second argument: %w", err)
		}
		switch v.Kind() {
		case value.KindTensor:
			t := v.AsTensor()
			i, err := flatIndex(t.Shape, idxVec.Elements)
			if err != nil {
				return value.Value{}, err
			}
			return value.Number(t.Data[i]), nil
		case value.KindComplexTensor:
			t := v.AsComplexTensor()
			i, err := flatIndex(t.Shape, idxVec.Elements)
			if err != nil {
				return value.Value{}, err
			}
			cx := t.Data[i]
			return value.ComplexNum(cx.Re, cx.Im), nil
		default:
			return value.Value{}, fmt.Errorf("tensorGet expects a Tensor or ComplexTensor, got %s", v.Kind())
		}
	})

	r.Register("tensorSet", func(c Caller, args []value.Value) (value.Value, error) {
		v := argOr(args, 0, value.Null())
		idxVec, err := vectorArg(args, 1)
		if err != nil {
			return value.Value{}, fmt.Errorf("tensorSet expects an index Vector as its second argument: %w", err)
		}
		val := argOr(args, 2, value.Null())
		switch v.Kind() {
		case value.KindTensor:
			t := v.AsTensor()
			i, err := flatIndex(t.Shape, idxVec.Elements)
			if err != nil {
				return value.Value{}, err
			}
			if val.Kind() != value.KindNumber {
				return value.Value{}, fmt.Errorf("tensorSet expects a Number value for a Tensor, got %s", val.Kind())
			}
			t.Data[i] = val.AsNumber()
			return v, nil
		case value.KindComplexTensor:
			t := v.AsComplexTensor()
			i, err := flatIndex(t.Shape, idxVec.Elements)
			if err != nil {
				return value.Value{}, err
			}
			switch val.Kind() {
			case value.KindComplex:
				t.Data[i] = val.AsComplex()
			case value.KindNumber:
				t.Data[i] = value.Complex{Re: val.AsNumber()}
			default:
				return value.Value{}, fmt.Errorf("tensorSet expects a Number/Complex value for a ComplexTensor, got %s", val.Kind())
			}
			return v, nil
		default:
			return value.Value{}, fmt.Errorf("tensorSet expects a Tensor or ComplexTensor, got %s", v.Kind())
		}
	})
}

// flatIndex converts a multi-index Vector into an offset into a
// row-major-laid-out Tensor/ComplexTensor's flat Data buffer.
func flatIndex(shape []int, idx []value.Value) (int, error) {
	if len(idx) != len(shape) {
		return 0, fmt.Errorf("expected %d indices for shape %v, got %d", len(shape), shape, len(idx))
	}
	offset := 0
	for dim, e := range idx {
		if e.Kind() != value.KindNumber {
			return 0, fmt.Errorf("tensor index must be a Number, got %s at dimension %d", e.Kind(), dim)
		}
		i := int(e.AsNumber())
		if i < 0 || i >= shape[dim] {
			return 0, fmt.Errorf("index %d out of bounds for dimension %d of size %d", i, dim, shape[dim])
		}
		offset = offset*shape[dim] + i
	}
	return offset, nil
}
