package feed

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a fetch did not succeed.
type ErrorKind int

const (
	KindInvalidRequest ErrorKind = iota + 1
	KindSessionAcquisition
	KindNavigationTimeout
	KindExtraction
	KindUnhandledFault
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidRequest:
		return "invalid_request"
	case KindSessionAcquisition:
		return "session_acquisition_failure"
	case KindNavigationTimeout:
		return "navigation_timeout"
	case KindExtraction:
		return "extraction_failure"
	case KindUnhandledFault:
		return "unhandled_fault"
	default:
		return "unknown"
	}
}

// Fatal reports whether the kind ends the fetch. A navigation timeout
// does not: extraction still runs on whatever the page reached.
func (k ErrorKind) Fatal() bool {
	return k != KindNavigationTimeout
}

// Boundary validation errors.
var (
	ErrMissingURL     = errors.New("url parameter is required")
	ErrInvalidURL     = errors.New("url must be an absolute http or https URL")
	ErrHostNotAllowed = errors.New("target host is not allowed")
)

// Error is a classified fetch error.
type Error struct {
	Kind ErrorKind
	URL  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of the first *Error in err's chain, or
// KindUnhandledFault when err carries no classification.
func KindOf(err error) ErrorKind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnhandledFault
}

func newError(kind ErrorKind, url string, err error) *Error {
	return &Error{Kind: kind, URL: url, Err: err}
}
