package market

import (
	"errors"
	"fmt"
)

type ErrKind string

const (
	KindValidation      ErrKind = "validation"
	KindNotFound        ErrKind = "not_found"
	KindUnauthenticated ErrKind = "unauthenticated"
	KindForbidden       ErrKind = "forbidden"
	KindConflict        ErrKind = "conflict"
	KindInvalidState    ErrKind = "invalid_state"
)

// Error membawa kind supaya layer HTTP bisa memetakan ke status code
// tanpa string matching.
type Error struct {
	Kind ErrKind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func Errorf(kind ErrKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the error kind, or "" for unexpected/internal errors.
func KindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsKind(err error, kind ErrKind) bool { return KindOf(err) == kind }
