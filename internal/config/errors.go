package config

import "fmt"

type ErrorKind string

const (
	KindSyntax     ErrorKind = "syntax"
	KindValidation ErrorKind = "validation"
)

// Error is a failed parse or validation. A syntax error means the
// document could not be decoded at all; a validation error means it
// decoded but violates an invariant. Either way no live state has been
// touched: callers keep their previous Snapshot.
type Error struct {
	Kind   ErrorKind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config %s error: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("config %s error: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

func validationErrorf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Detail: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a validation-kind config error.
func IsValidation(err error) bool {
	ce, ok := err.(*Error)
	return ok && ce.Kind == KindValidation
}
