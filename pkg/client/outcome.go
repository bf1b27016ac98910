package client

import (
	"encoding/json"
)

// Failure messages carried in Failure.Error.
const (
	failureMessage   = "Request failed"
	cancelledMessage = "Request cancelled"
)

// Outcome is the normalized result of a request.
//
// On success Data is the decoded JSON body, the raw body text when it is not
// JSON, or nil for an empty or unexpected body. On failure Data is a
// *Failure.
type Outcome struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`

	err error
}

// Failure describes why every attempt failed. Fields that were never
// recorded are nil.
type Failure struct {
	Error         string  `json:"error"`
	LastException *string `json:"last_exception"`
	LastStatus    *int    `json:"last_status"`
	LastResponse  *string `json:"last_response"`
}

// Failure returns the failure details, or nil for a successful Outcome.
func (o Outcome) Failure() *Failure {
	if o.Success {
		return nil
	}
	f, _ := o.Data.(*Failure)
	return f
}

// Err returns nil for a successful Outcome and a *RequestError otherwise.
func (o Outcome) Err() error {
	if o.Success {
		return nil
	}
	if o.err != nil {
		return o.err
	}
	return &RequestError{Reason: ErrRequestFailed}
}

// decodeBody turns a raw body into Outcome data: nil when empty, the decoded
// value when it is JSON, the text itself otherwise. A whitespace-only body is
// not empty and comes back as text.
func decodeBody(body string) any {
	if body == "" {
		return nil
	}
	var v any
	if err := json.Unmarshal([]byte(body), &v); err != nil {
		return body
	}
	return v
}
