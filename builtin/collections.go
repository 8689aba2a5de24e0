package builtin

import (
	"fmt"

	"github.com/achronyme/achronyme/value"
)

// registerCollections wires the higher-order built-ins spec.md §4.6
// specifically calls out ("map, filter, reduce") plus the vector/record
// helpers that feed for-in's generator path (compiler/compiler.go's
// compileForIn, which iterates a bare Vector with an index loop instead):
// values and entries each wrap an aggregate in a native generator via
// Caller.MakeGenerator, so a Vector or Record passed through them is
// iterated the same way a `generate` block is, without the VM's RESUME_GEN
// opcode needing to know where the Generator came from.
func registerCollections(r *Registry) {
	r.Register("push", func(c Caller, args []value.Value) (value.Value, error) {
		vec, err := vectorArg(args, 0)
		if err != nil {
			return value.Value{}, err
		}
		vec.Elements = append(vec.Elements, argOr(args, 1, value.Null()))
		return value.NewVector(vec.Elements), nil
	})

	r.Register("keys", func(c Caller, args []value.Value) (value.Value, error) {
		rec, err := recordArg(args, 0)
		if err != nil {
			return value.Value{}, err
		}
		out := make([]value.Value, len(rec.Keys))
		for i, k := range rec.Keys {
			out[i] = value.String(k)
		}
		return value.NewVector(out), nil
	})

	r.Register("values", func(c Caller, args []value.Value) (value.Value, error) {
		v := argOr(args, 0, value.Null())
		switch v.Kind() {
		case value.KindVector:
			elems := v.AsVector().Elements
			return c.MakeGenerator(func(yield func(value.Value)) {
				for _, e := range elems {
					yield(e)
				}
			}), nil
		case value.KindRecord:
			rec := v.AsRecord()
			return c.MakeGenerator(func(yield func(value.Value)) {
				for _, k := range rec.Keys {
					yield(rec.Fields[k])
				}
			}), nil
		default:
			return value.Value{}, fmt.Errorf("values expects a Vector or Record, got %s", v.Kind())
		}
	})

	r.Register("entries", func(c Caller, args []value.Value) (value.Value, error) {
		v := argOr(args, 0, value.Null())
		switch v.Kind() {
		case value.KindVector:
			elems := v.AsVector().Elements
			return c.MakeGenerator(func(yield func(value.Value)) {
				for i, e := range elems {
					yield(value.NewVector([]value.Value{value.Number(float64(i)), e}))
				}
			}), nil
		case value.KindRecord:
			rec := v.AsRecord()
			return c.MakeGenerator(func(yield func(value.Value)) {
				for _, k := range rec.Keys {
					yield(value.NewVector([]value.Value{value.String(k), rec.Fields[k]}))
				}
			}), nil
		default:
			return value.Value{}, fmt.Errorf("entries expects a Vector or Record, got %s", v.Kind())
		}
	})

	r.Register("map", func(c Caller, args []value.Value) (value.Value, error) {
		vec, err := vectorArg(args, 0)
		if err != nil {
			return value.Value{}, err
		}
		fn := argOr(args, 1, value.Null())
		out := make([]value.Value, len(vec.Elements))
		for i, e := range vec.Elements {
			result, err := c.CallValue(fn, []value.Value{e, value.Number(float64(i))})
			if err != nil {
				return value.Value{}, err
			}
			out[i] = result
		}
		return value.NewVector(out), nil
	})

	r.Register("filter", func(c Caller, args []value.Value) (value.Value, error) {
		vec, err := vectorArg(args, 0)
		if err != nil {
			return value.Value{}, err
		}
		fn := argOr(args, 1, value.Null())
		out := make([]value.Value, 0, len(vec.Elements))
		for i, e := range vec.Elements {
			keep, err := c.CallValue(fn, []value.Value{e, value.Number(float64(i))})
			if err != nil {
				return value.Value{}, err
			}
			if keep.Truthy() {
				out = append(out, e)
			}
		}
		return value.NewVector(out), nil
	})

	r.Register("reduce", func(c Caller, args []value.Value) (value.Value, error) {
		vec, err := vectorArg(args, 0)
		if err != nil {
			return value.Value{}, err
		}
		fn := argOr(args, 1, value.Null())
		acc := argOr(args, 2, value.Null())
		for i, e := range vec.Elements {
			acc, err = c.CallValue(fn, []value.Value{acc, e, value.Number(float64(i))})
			if err != nil {
				return value.Value{}, err
			}
		}
		return acc, nil
	})
}

func vectorArg(args []value.Value, i int) (*value.Vector, error) {
	v := argOr(args, i, value.Null())
	if v.Kind() != value.KindVector {
		return nil, fmt.Errorf("expected a Vector argument, got %s", v.Kind())
	}
	return v.AsVector(), nil
}

func recordArg(args []value.Value, i int) (*value.Record, error) {
	v := argOr(args, i, value.Null())
	if v.Kind() != value.KindRecord {
		return nil, fmt.Errorf("expected a Record argument, got %s", v.Kind())
	}
	return v.AsRecord(), nil
}
