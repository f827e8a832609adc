package errors

import "fmt"

// Op is a builder argument naming the failing operation.
type Op string

// Component is a builder argument naming the failing component.
type Component string

// E builds a LedgerError from its arguments in any order. Recognised argument types are
// Op, Operation, Component, ErrorCode, Kind, error and string (used as the message when
// no error is given). Retryable is derived from the code.
func E(args ...interface{}) error {
	e := &LedgerError{}
	var msg string
	for _, arg := range args {
		switch a := arg.(type) {
		case Op:
			e.Op = Operation(a)
		case Operation:
			e.Op = a
		case Component:
			e.Component = string(a)
		case ErrorCode:
			e.Code = a
		case Kind:
			e.Kind = a
		case *LedgerError:
			if e.Code == "" {
				e.Code = a.Code
			}
			if e.Kind == "" {
				e.Kind = a.Kind
			}
			e.Err = a
		case error:
			e.Err = a
		case string:
			msg = a
		default:
			panic(fmt.Sprintf("errors.E: unsupported argument type %T", arg))
		}
	}
	if e.Err == nil && msg != "" {
		e.Err = fmt.Errorf("%s", msg)
	} else if msg != "" {
		e.Err = fmt.Errorf("%s: %w", msg, e.Err)
	}
	e.Retryable = e.Code == ErrCodeVersionConflict
	return e
}

// WrapOpComponent provides a convenience helper to wrap errors with consistent Op and Component propagation.
// If err is nil, returns nil.
func WrapOpComponent(err error, op, component string) error {
	if err == nil {
		return nil
	}
	return E(Op(op), Component(component), err)
}

// WrapOpComponentKind provides a convenience helper to wrap errors with Op, Component, and Kind.
// If err is nil, returns nil.
func WrapOpComponentKind(err error, op, component string, kind Kind) error {
	if err == nil {
		return nil
	}
	return E(Op(op), Component(component), kind, err)
}

// WrapStorage wraps a driver or filesystem failure as STORAGE_IO.
// If err is nil, returns nil.
func WrapStorage(err error, op, component string) error {
	if err == nil {
		return nil
	}
	return E(Op(op), Component(component), ErrCodeStorageIO, KindInternal, err)
}
