package services

import "fmt"

// ValidationError reports malformed input caught before any network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// UpstreamError reports a non-success status from the authoritative
// cart engine. Body detail is kept for server-side logging only and
// must never be forwarded to the browser.
type UpstreamError struct {
	Status int
	Detail string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("cart engine returned status %d", e.Status)
}

// TransportError reports a failed network call or an undecodable
// engine response.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
