package twitch

import "fmt"

// AuthError is returned when the token endpoint answers with a non-2xx
// status. Body carries the raw response body for diagnostics.
type AuthError struct {
	Status int
	Body   string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("token exchange failed with status %d: %s", e.Status, e.Body)
}

// APIError is returned for non-2xx Helix responses. Message is taken
// from the response body's "message" field when present.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("twitch api error (status %d): %s", e.Status, e.Message)
}

// TransportError wraps a network-level failure.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("twitch request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
