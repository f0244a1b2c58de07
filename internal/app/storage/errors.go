package storage

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
)

// Kind classifies a storage failure.
type Kind int

const (
	KindUnknown Kind = iota
	// KindForeignKey is a referential constraint violation.
	KindForeignKey
	// KindUnavailable is a connectivity or driver-level failure.
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindForeignKey:
		return "foreign_key"
	case KindUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

var (
	// ErrForeignKey matches any error of KindForeignKey via errors.Is.
	ErrForeignKey = &Error{Kind: KindForeignKey}
	// ErrUnavailable matches any error of KindUnavailable via errors.Is.
	ErrUnavailable = &Error{Kind: KindUnavailable}
)

// Error is a classified storage failure.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("storage %s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("storage: %s: %v", e.Kind, e.Err)
	default:
		return "storage: " + e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on kind so callers can test against the sentinel values.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Wrap tags err with an operation and kind. A nil err returns nil.
func Wrap(op string, kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Classify returns the kind of err. Errors that were not produced by a
// gateway are inspected for common connectivity failures.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	if isConnectivity(err) {
		return KindUnavailable
	}
	return KindUnknown
}

func isConnectivity(err error) bool {
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
