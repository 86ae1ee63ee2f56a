// Package errs implements the error taxonomy used throughout dit: every
// fatal condition is classified into one of a small number of kinds so the
// CLI entry point can print a categorized message and choose an exit code
// without inspecting error strings.
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind partitions errors the way the design calls for: Protocol failures
// abort the running operation, Connection failures are only fatal inside an
// in-flight operation, Decode/FileSystem/Subprocess are always fatal, and
// User errors are a clean exit rather than a crash.
type Kind int

const (
	Protocol Kind = iota
	Connection
	Decode
	FileSystem
	Subprocess
	User
)

func (k Kind) String() string {
	switch k {
	case Protocol:
		return "Protocol"
	case Connection:
		return "Connection"
	case Decode:
		return "Decode"
	case FileSystem:
		return "FileSystem"
	case Subprocess:
		return "Subprocess"
	case User:
		return "User"
	default:
		return "Unknown"
	}
}

// Error is a categorized, wrapped error.
type Error struct {
	Kind Kind
	Op   string // short description of what was being attempted
	err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("[%s] %s", e.Kind, e.err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Kind, e.Op, e.err)
}

func (e *Error) Unwrap() error { return e.err }

// New wraps err (which may be nil, in which case New returns nil) as a
// categorized Error with the given op description.
func New(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, err: errors.WithStack(err)}
}

// Newf builds a categorized error from a format string, with no underlying
// cause to wrap.
func Newf(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, err: errors.Errorf(format, args...)}
}

// As reports whether err (or something it wraps) is a *Error, returning it.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the Kind of err if it is a categorized Error, or Protocol
// (the most conservative default — treated as fatal to the running
// operation) otherwise.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return Protocol
}

// Sentinels for protocol-level abort states shared between the DKG and
// signing engines (spec's ProtocolError enum: Timeout | Connection | Blame | Full).
var (
	ErrBlame       = Newf(Protocol, "protocol aborted: blame")
	ErrFull        = Newf(Protocol, "signup quota reached")
	ErrTimeout     = Newf(Connection, "operation timed out")
	ErrNoOperation = Newf(Protocol, "no operation in progress")
)
