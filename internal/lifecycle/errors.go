package lifecycle

import (
	"errors"
	"fmt"

	"parking-backend/internal/store"
)

// Kind classifies a lifecycle failure independently of any transport.
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindInvalidState Kind = "invalid_state"
	KindConflict     Kind = "conflict"
	KindForbidden    Kind = "forbidden"
	KindInvalidInput Kind = "invalid_input"
	KindUpstream     Kind = "upstream_failure"
)

// Error is the typed failure returned by every manager operation.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the kind of err. Errors that did not originate in this package
// are reported as upstream failures.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUpstream
}

// Message returns the user-facing message of err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return err.Error()
}

func fail(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// storeErr translates a store error. what names the entity for not-found messages.
func storeErr(op, what string, err error) error {
	var e *Error
	switch {
	case errors.As(err, &e):
		return err
	case errors.Is(err, store.ErrNotFound):
		return &Error{Kind: KindNotFound, Op: op, Msg: what + " not found", Err: err}
	case errors.Is(err, store.ErrStale):
		return &Error{Kind: KindConflict, Op: op, Msg: what + " changed concurrently", Err: err}
	case errors.Is(err, store.ErrDuplicate):
		return &Error{Kind: KindConflict, Op: op, Msg: what + " already exists", Err: err}
	default:
		return &Error{Kind: KindUpstream, Op: op, Msg: "storage failure", Err: err}
	}
}

func isStale(err error) bool {
	return errors.Is(err, store.ErrStale)
}
