package dav

import (
	"errors"
	"fmt"
)

// Kind classifies a client failure.
type Kind int

const (
	// KindAuth means the credentials could not be obtained. No request was sent.
	KindAuth Kind = iota + 1
	// KindTransport means a request could not be sent, its response could
	// not be read, or the server answered with an error status.
	KindTransport
	// KindMalformedResponse means the response body does not have the
	// expected multistatus shape, including unparsable timestamps.
	KindMalformedResponse
)

// Sentinels matched by *Error through errors.Is.
var (
	ErrAuth              = errors.New("authentication failed")
	ErrTransport         = errors.New("transport failure")
	ErrMalformedResponse = errors.New("malformed response")
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindTransport:
		return "transport"
	case KindMalformedResponse:
		return "malformed response"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindAuth:
		return ErrAuth
	case KindTransport:
		return ErrTransport
	case KindMalformedResponse:
		return ErrMalformedResponse
	}
	return nil
}

// Error is the error type returned by every Client operation and decoder.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op + ": " + e.Kind.sentinel().Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

// StatusError is the cause of a transport failure when the server responded
// with a non-success status.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	if e.Status != "" {
		return "unexpected status " + e.Status
	}
	return fmt.Sprintf("unexpected status %d", e.Code)
}

func authErr(op string, err error) error {
	return &Error{Kind: KindAuth, Op: op, Err: err}
}

func transportErr(op string, err error) error {
	return &Error{Kind: KindTransport, Op: op, Err: err}
}

func malformed(op string, err error) error {
	return &Error{Kind: KindMalformedResponse, Op: op, Err: err}
}
