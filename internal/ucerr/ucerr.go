// Package ucerr defines the error taxonomy shared by the HAL, the
// profile engine, and the RPC surface. RPC handlers classify every
// error they return into one of these kinds so clients can render a
// typed reply instead of a free-form string.
package ucerr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the RPC layer.
type Kind int

const (
	// Unsupported means the device identity does not match a known
	// capability record. Fatal at startup.
	Unsupported Kind = iota
	// HwIO means a sysfs/hwmon/EC read or write failed.
	HwIO
	// InvalidArgument means an RPC argument failed validation.
	InvalidArgument
	// AuthDenied means the policy service denied the call.
	AuthDenied
	// NotFound means an id did not resolve.
	NotFound
	// Conflict means the operation would violate a referential
	// invariant (e.g. deleting a profile still in use).
	Conflict
	// Transient means a retryable condition (e.g. EC busy) was hit
	// and the internal retry also failed.
	Transient
)

func (k Kind) String() string {
	switch k {
	case Unsupported:
		return "Unsupported"
	case HwIO:
		return "HwIO"
	case InvalidArgument:
		return "InvalidArgument"
	case AuthDenied:
		return "AuthDenied"
	case NotFound:
		return "NotFound"
	case Conflict:
		return "Conflict"
	case Transient:
		return "Transient"
	default:
		return "Unknown"
	}
}

// Error is a typed error carrying a Kind plus the wrapped cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a Error of the given kind for op, wrapping err (which may
// be nil).
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// As extracts the first *Error in err's unwrap chain (which may run
// through wrapper layers such as github.com/pkg/errors.Wrap).
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Is reports whether err is a *Error of kind k, looking through any
// wrapper layers.
func Is(err error, k Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == k
}
