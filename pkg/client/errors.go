package client

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrRequestFailed is reported when every attempt failed.
	ErrRequestFailed = errors.New("request failed")

	// ErrCancelled is reported when the caller's context ended the call.
	ErrCancelled = errors.New("request cancelled")
)

// ErrorClass represents a classification of HTTP errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 420, 429 and 520 rate limit errors.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassUnaccepted represents non-error statuses outside the
	// accepted set, such as 201 or 304 when not listed.
	ErrorClassUnaccepted ErrorClass = "unaccepted"
)

// classifyStatus maps a non-accepted status code to an ErrorClass.
func classifyStatus(status int) ErrorClass {
	switch {
	case status == 420 || status == 429 || status == 520:
		return ErrorClassRateLimit
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		return ErrorClassUnaccepted
	}
}

// ESIError is an exchange that completed with a status outside the accepted
// set.
type ESIError struct {
	StatusCode int
	ErrorClass ErrorClass
	Body       string
}

// Error implements the error interface.
func (e *ESIError) Error() string {
	return fmt.Sprintf("ESI %s error (status %d)", e.ErrorClass, e.StatusCode)
}

// RequestError is the Go error form of a failed Outcome. It matches
// ErrRequestFailed or ErrCancelled with errors.Is and unwraps to the last
// cause (a *transport.Error or *ESIError) for errors.As.
type RequestError struct {
	Endpoint string
	Attempts int
	Reason   error
	Cause    error
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s %s after %d attempt(s): %v", e.Endpoint, e.Reason, e.Attempts, e.Cause)
	}
	return fmt.Sprintf("%s %s after %d attempt(s)", e.Endpoint, e.Reason, e.Attempts)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *RequestError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Reason}
	}
	return []error{e.Reason, e.Cause}
}
