package iso9660

import (
	"errors"

	goerrors "github.com/go-errors/errors"
)

// Kind classifies a failure surfaced by the planner, writer, or reader.
type Kind int

const (
	// KindInvalidInput covers names unrepresentable under the active
	// Strictness, payloads exceeding 4 GiB under Strict, and duplicate
	// sibling names surviving mangling.
	KindInvalidInput Kind = iota
	// KindPlanOverflow covers a total image size exceeding 2^32-1
	// sectors, the largest the PVD's volume space size field can hold.
	KindPlanOverflow
	// KindIoError wraps a failure from the payload source or the sink,
	// with position context.
	KindIoError
	// KindBootCatalogError covers a Validation Entry whose checksum
	// cannot be constructed, or a boot image exceeding its media type's
	// sector-count limit.
	KindBootCatalogError
	// KindNotConformant is surfaced only while reading: the image
	// violates a rule the reader cannot recover from. In Default
	// strictness, recoverable cases are logged as warnings instead.
	KindNotConformant
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "InvalidInput"
	case KindPlanOverflow:
		return "PlanOverflow"
	case KindIoError:
		return "IoError"
	case KindBootCatalogError:
		return "BootCatalogError"
	case KindNotConformant:
		return "NotConformant"
	default:
		return "Unknown"
	}
}

// Error is the error type returned across the package boundary. It carries
// a Kind so callers can branch on failure category, and wraps the
// underlying cause (if any) with a stack trace via go-errors/errors.
type Error struct {
	Kind    Kind
	Context string
	cause   error
}

func (e *Error) Error() string {
	if e.cause == nil {
		return e.Kind.String() + ": " + e.Context
	}
	return e.Kind.String() + ": " + e.Context + ": " + e.cause.Error()
}

func (e *Error) Unwrap() error {
	return e.cause
}

// newError builds an Error, wrapping cause (if non-nil) through
// go-errors/errors so a stack trace is retained for diagnostics.
func newError(kind Kind, context string, cause error) *Error {
	wrapped := cause
	if cause != nil {
		wrapped = goerrors.Wrap(cause, 1)
	}
	return &Error{Kind: kind, Context: context, cause: wrapped}
}

// IsKind reports whether err is an *Error of the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
