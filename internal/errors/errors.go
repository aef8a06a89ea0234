package errors

import (
	"errors"
	"runtime"

	errorsGo "github.com/go-errors/errors"
)

var ErrUnsupported = errors.ErrUnsupported

func As(err error, target any) bool { return errorsGo.As(err, target) }

func Is(err, target error) bool { return errorsGo.Is(err, target) }

func Join(errs ...error) error {
	if err := errors.Join(errs...); err != nil {
		return errorsGo.Wrap(err, 1)
	}
	return nil
}

// New wraps obj with a stack trace. It returns nil for nil and keeps the
// stack of an already wrapped error.
func New(obj any) *Error {
	if obj == nil {
		return nil
	}
	if err, ok := obj.(error); ok && err == nil {
		return nil
	}
	if errGo, okErrGo := obj.(*errorsGo.Error); okErrGo {
		return errGo
	}
	return errorsGo.Wrap(obj, 1)
}

// Wrapped is like New but returns a plain error so that a nil result compares
// equal to nil.
func Wrapped(err error) error {
	if err == nil {
		return nil
	}
	if errGo, okErrGo := err.(*errorsGo.Error); okErrGo {
		return errGo
	}
	return errorsGo.Wrap(err, 1)
}

func Unwrap(err error) error { return errorsGo.Unwrap(err) }

type Error = errorsGo.Error

func Errorf(format string, a ...any) *Error { return errorsGo.Errorf(format, a...) }

func Wrap(e any, skip int) *Error { return errorsGo.Wrap(e, skip+1) }

func WrapPrefix(e any, prefix string, skip int) *Error {
	return errorsGo.WrapPrefix(e, prefix, skip+1)
}

// Mark tags err with kind so that Is(result, kind) and Is(result, err) both
// hold. The message is "kind: err".
func Mark(err, kind error) error {
	if err == nil {
		return nil
	}
	if kind == nil || errors.Is(err, kind) {
		return Wrapped(err)
	}
	return errorsGo.Wrap(&marked{kind: kind, err: err}, 1)
}

type marked struct {
	kind error
	err  error
}

func (m *marked) Error() string   { return m.kind.Error() + `: ` + m.err.Error() }
func (m *marked) Unwrap() []error { return []error{m.kind, m.err} }

// NilReceiver returns an error with the function name if any of the arguments are nil
func NilReceiver(args ...any) error {
	return errMsgNilTester(`nil receiver or struct field`, 3, args...)
}

// NilParam returns an error with the function name if any of the arguments are nil
func NilParam(args ...any) error {
	return errMsgNilTester(`nil parameter`, 3, args...)
}

// NotImplemented returns an error with the function name
func NotImplemented() error {
	return errMsg(`not implemented`, 2)
}

func errMsgNilTester(msg string, skip int, args ...any) error {
	if len(args) == 0 {
		return errMsg(msg, skip)
	}
	for i := range args {
		if args[i] == nil {
			return errMsg(msg, skip)
		}
	}
	return nil
}

func errMsg(msg string, skip int) error {
	pc, _, _, ok := runtime.Caller(skip)
	if !ok {
		return Wrap(msg, skip)
	}
	return Wrap(msg+`: `+runtime.FuncForPC(pc).Name()+`()`, skip)
}
