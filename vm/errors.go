package vm

import (
	"fmt"

	"github.com/achronyme/achronyme/value"
)

// Kind classifies a runtime failure, paralleling compiler.Kind for
// compile-time failures (spec.md §7's taxonomy).
type Kind string

const (
	TypeError    Kind = "type error"
	ArityError   Kind = "arity error"
	IndexError   Kind = "index error"
	FieldError   Kind = "field error"
	MatchError   Kind = "match error"
	RuntimeError Kind = "runtime error"
	UserError    Kind = "user error"
)

// RuntimeException carries an uncaught (or in-flight) Error value up through
// Go's call stack via panic/recover, mirroring the teacher's use of Go
// panics for Plaid runtime faults (backend/interpreter.go's recover-based
// trap handler) but wrapping a first-class Error value instead of a string.
type RuntimeException struct {
	Err value.Value // always KindError
}

func (e *RuntimeException) Error() string {
	return value.Stringify(e.Err)
}

func throwKind(kind Kind, format string, args ...interface{}) *RuntimeException {
	msg := fmt.Sprintf(format, args...)
	return &RuntimeException{Err: value.NewErrorValue(value.NewError(string(kind), msg))}
}

// asRuntimeException preserves a handler-raised *RuntimeException's kind
// (e.g. throwKind(ArityError, ...) from an intrinsic method) instead of
// collapsing every builtin/native-func error into a generic RuntimeError.
func asRuntimeException(err error) *RuntimeException {
	if re, ok := err.(*RuntimeException); ok {
		return re
	}
	return &RuntimeException{Err: value.NewErrorValue(value.NewError(string(RuntimeError), err.Error()))}
}
