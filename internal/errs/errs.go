// Package errs defines the error kinds the core distinguishes, shared by
// the Record Store and the RPC surface so that a store failure maps to a
// structured RPC error instead of propagating as an opaque Go error.
package errs

import "errors"

// Kind tags an error with one of the categories the core distinguishes.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidConfig
	KindBindFailed
	KindInvalidArgument
	KindNotFound
	KindUpstream
	KindTransient
	KindNotImplemented
)

func (k Kind) String() string {
	switch k {
	case KindInvalidConfig:
		return "invalid_config"
	case KindBindFailed:
		return "bind_failed"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindNotFound:
		return "not_found"
	case KindUpstream:
		return "upstream"
	case KindTransient:
		return "transient"
	case KindNotImplemented:
		return "not_implemented"
	default:
		return "unknown"
	}
}

// Error is a typed error carrying a Kind alongside the usual message chain.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the Kind of err, or KindUnknown if err is not (or does
// not wrap) an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

var (
	ErrNotFound        = New(KindNotFound, "record not found")
	ErrNotImplemented  = New(KindNotImplemented, "not implemented")
	ErrInvalidArgument = New(KindInvalidArgument, "invalid argument")
)
