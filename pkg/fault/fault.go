// Package fault defines the error taxonomy shared by every search operation.
//
// Callers match failures with errors.Is against the sentinel kinds below. A
// *Error unwraps to both its kind and its cause, so
//
//	errors.Is(err, fault.ErrRateLimited)
//	errors.Is(err, context.DeadlineExceeded)
//
// both work on the same value.
package fault

import (
	"errors"
	"strings"
)

var (
	// ErrTransport is a network or connection failure, or an unclassified HTTP status.
	ErrTransport = errors.New("transport failure")
	// ErrRateLimited is returned for HTTP 202/301/403 or a detected bot challenge.
	ErrRateLimited = errors.New("rate limited")
	// ErrTimeout is returned when a request exceeded its deadline.
	ErrTimeout = errors.New("timeout")
	// ErrMalformedResponse means an expected token, JSON payload or HTML structure was absent.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrCoordinatesNotFound means geocoding yielded no match.
	ErrCoordinatesNotFound = errors.New("coordinates not found")
	// ErrConversationLimit is the chat-specific quota signal.
	ErrConversationLimit = errors.New("conversation limit exceeded")
	// ErrChat is any other error fragment returned by the chat endpoint.
	ErrChat = errors.New("chat failure")
	// ErrTripped is the cause attached to every call made on a transport
	// after one of its requests failed.
	ErrTripped = errors.New("exception occurred in previous call")
)

// Error is a classified failure of a single provider operation.
type Error struct {
	// Kind is one of the sentinel errors of this package.
	Kind error
	// Op names the operation, e.g. "send" or "vqd".
	Op string
	// URL is the endpoint involved, if any.
	URL string
	// Err is the underlying cause. May be nil.
	Err error
}

// New builds an *Error.
func New(kind error, op, url string, cause error) *Error {
	return &Error{Kind: kind, Op: op, URL: url, Err: cause}
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Kind != nil {
		b.WriteString(e.Kind.Error())
	}
	if e.URL != "" {
		b.WriteString(" ")
		b.WriteString(e.URL)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// KindOf returns the sentinel kind carried by err, or nil if err was not
// produced by this package.
func KindOf(err error) error {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return nil
}
