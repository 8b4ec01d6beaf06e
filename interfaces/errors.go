package interfaces

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a custody failure.
type ErrorKind int

const (
	// KindInternal covers network failures, timeouts, 5xx and anything unclassified.
	KindInternal ErrorKind = iota
	// KindUnauthorized means the token is missing, invalid or expired.
	KindUnauthorized
	// KindForbidden means the token is valid but its policy denies the operation.
	KindForbidden
	// KindNotFound means the key or path does not exist.
	KindNotFound
	// KindProtocol means the store answered with a shape we do not understand.
	KindProtocol
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindProtocol:
		return "protocol_error"
	default:
		return "internal_error"
	}
}

// Sentinels for errors.Is matching. They compare by kind only.
var (
	ErrUnauthorized = &CustodyError{Kind: KindUnauthorized}
	ErrForbidden    = &CustodyError{Kind: KindForbidden}
	ErrNotFound     = &CustodyError{Kind: KindNotFound}
	ErrProtocol     = &CustodyError{Kind: KindProtocol}
	ErrInternal     = &CustodyError{Kind: KindInternal}
)

// CustodyError is the single error type returned by the custody gateway.
type CustodyError struct {
	// Kind is the failure class.
	Kind ErrorKind

	// Status is the upstream HTTP status, or 0 if no response was received.
	Status int

	// Op names the remote operation, e.g. "sign" or "lookup-self".
	Op string

	// Path is the store path the operation addressed, if any.
	Path string

	// Timeout is set when the call failed because a deadline was exceeded.
	Timeout bool

	// Err is the underlying cause.
	Err error
}

func (e *CustodyError) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Timeout {
		msg += " (timeout)"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CustodyError) Unwrap() error {
	return e.Err
}

// Is reports kind equality so that errors.Is(err, ErrForbidden) works on any
// CustodyError of that kind.
func (e *CustodyError) Is(target error) bool {
	t, ok := target.(*CustodyError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// NewProtocolError reports a response that does not match the expected contract.
func NewProtocolError(op, path string, format string, args ...any) *CustodyError {
	return &CustodyError{
		Kind: KindProtocol,
		Op:   op,
		Path: path,
		Err:  fmt.Errorf(format, args...),
	}
}

// KindOf returns the kind of err. Errors that are not a CustodyError are internal.
func KindOf(err error) ErrorKind {
	var ce *CustodyError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindInternal
}

// StatusForKind maps a failure kind to an upstream-independent status code
// suitable for HTTP responses produced by consumers of the gateway.
func StatusForKind(kind ErrorKind) int {
	switch kind {
	case KindUnauthorized:
		return 401
	case KindForbidden:
		return 403
	case KindNotFound:
		return 404
	case KindProtocol:
		return 502
	default:
		return 500
	}
}
