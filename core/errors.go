package core

import "fmt"

// Kind classifies an Error the way spec-level callers need to branch on:
// invalid input, a missing persisted member, or a datatype the core
// cannot decode.
type Kind int

const (
	// KindInvalidArgument covers dimension mismatches, k=0, k>L, K>N_t,
	// D not divisible by M, and other caller-input errors.
	KindInvalidArgument Kind = iota
	// KindNotFound covers a missing metadata key or member when loading
	// a persisted index.
	KindNotFound
	// KindUnsupported covers a datatype in metadata the core cannot decode.
	KindUnsupported
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid_argument"
	case KindNotFound:
		return "not_found"
	case KindUnsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// Error is the typed error every public entry point in this module
// returns. Op names the failing operation (e.g. "kmeans.Train",
// "ivf.Query") so a caller can log a short, greppable message without
// parsing free text.
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

// Invalid constructs a KindInvalidArgument error.
func Invalid(op, format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidArgument, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// NotFound constructs a KindNotFound error.
func NotFound(op, format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Unsupported constructs a KindUnsupported error.
func Unsupported(op, format string, args ...interface{}) *Error {
	return &Error{Kind: KindUnsupported, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches an underlying error to an Error without changing its Kind.
func (e *Error) Wrap(err error) *Error {
	e.Err = err
	return e
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if err == nil {
		return false
	}
	if ae, ok := err.(*Error); ok {
		e = ae
	} else {
		return false
	}
	return e.Kind == kind
}
