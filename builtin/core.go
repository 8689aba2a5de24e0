package builtin

import (
	"fmt"

	"github.com/achronyme/achronyme/value"
)

// registerCore wires the small set of built-ins every program needs
// regardless of domain: printing, introspection, and the length query
// collections/vectors share.
func registerCore(r *Registry) {
	r.Register("print", func(c Caller, args []value.Value) (value.Value, error) {
		parts := make([]interface{}, len(args))
		for i, a := range args {
			parts[i] = value.Stringify(a)
		}
		fmt.Println(parts...)
		return value.Null(), nil
	})

	r.Register("toString", func(c Caller, args []value.Value) (value.Value, error) {
		return value.String(value.Stringify(argOr(args, 0, value.Null()))), nil
	})

	r.Register("typeof", func(c Caller, args []value.Value) (value.Value, error) {
		return value.String(argOr(args, 0, value.Null()).Kind().String()), nil
	})

	r.Register("assert", func(c Caller, args []value.Value) (value.Value, error) {
		cond := argOr(args, 0, value.Boolean(false))
		if !cond.Truthy() {
			msg := "assertion failed"
			if len(args) > 1 {
				msg = value.Stringify(args[1])
			}
			return value.Value{}, fmt.Errorf("%s", msg)
		}
		return value.Null(), nil
	})

	r.Register("length", func(c Caller, args []value.Value) (value.Value, error) {
		v := argOr(args, 0, value.Null())
		switch v.Kind() {
		case value.KindVector:
			return value.Number(float64(len(v.AsVector().Elements))), nil
		case value.KindString:
			return value.Number(float64(len([]rune(v.AsString())))), nil
		case value.KindRecord:
			return value.Number(float64(len(v.AsRecord().Keys))), nil
		default:
			return value.Value{}, fmt.Errorf("length expects a Vector, String or Record, got %s", v.Kind())
		}
	})
}
