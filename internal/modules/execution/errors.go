package execution

import (
	"errors"
	"fmt"
)

// Kind classifies why an execution did not succeed
type Kind string

const (
	KindPortfolioNotFound       Kind = "portfolio_not_found"
	KindInsufficientHoldings    Kind = "insufficient_holdings"
	KindEngineRejected          Kind = "rejected"
	KindMalformedEngineResponse Kind = "malformed_response"
	KindTransportFailure        Kind = "transport_failed"
	KindInvalidRequest          Kind = "invalid_request"
	KindInternal                Kind = "internal"
)

// Sentinels for errors.Is matching on an *Error's kind
var (
	ErrPortfolioNotFound       = errors.New("portfolio not found")
	ErrInsufficientHoldings    = errors.New("insufficient holdings")
	ErrEngineRejected          = errors.New("engine rejected execution")
	ErrMalformedEngineResponse = errors.New("malformed engine response")
	ErrTransportFailure        = errors.New("engine transport failure")
	ErrInvalidRequest          = errors.New("invalid execution request")
	ErrInternal                = errors.New("internal error")
)

var kindSentinels = map[Kind]error{
	KindPortfolioNotFound:       ErrPortfolioNotFound,
	KindInsufficientHoldings:    ErrInsufficientHoldings,
	KindEngineRejected:          ErrEngineRejected,
	KindMalformedEngineResponse: ErrMalformedEngineResponse,
	KindTransportFailure:        ErrTransportFailure,
	KindInvalidRequest:          ErrInvalidRequest,
	KindInternal:                ErrInternal,
}

// Error is the single error type returned by Dispatcher.Execute.
// Message is safe to show to the caller; Err keeps the underlying cause.
type Error struct {
	Kind           Kind
	Message        string
	UpstreamStatus int // engine HTTP status, set for KindEngineRejected and KindMalformedEngineResponse
	Err            error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Err.Error() != e.Message {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel of the error's kind
func (e *Error) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

func newError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// KindOf returns the kind of err, or KindInternal when err is not an *Error
func KindOf(err error) Kind {
	var execErr *Error
	if errors.As(err, &execErr) {
		return execErr.Kind
	}
	return KindInternal
}
