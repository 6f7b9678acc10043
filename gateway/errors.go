package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/jrsteele09/taskflow-client/internal/errors"
)

// SessionExpiredMessage is shown to the user when a 401 could not be
// recovered by refreshing.
const SessionExpiredMessage = "Session expired. Please login again."

// ErrSessionExpired matches (errors.Is) the error returned after an
// unrecoverable 401.
var ErrSessionExpired = errors.ErrSessionExpired

// APIError is a non-success response from the backend.
type APIError struct {
	Status  int
	Message string
	// Data is the parsed response payload, nil when the body was empty.
	Data json.RawMessage

	expired bool
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	switch {
	case e.expired:
		return errors.ErrSessionExpired
	case e.Status == 404:
		return errors.ErrNotFound
	}
	return nil
}

// SessionExpired reports whether the error ended the session.
func (e *APIError) SessionExpired() bool {
	return e.expired
}

func newSessionExpiredError() *APIError {
	return &APIError{Status: 401, Message: SessionExpiredMessage, expired: true}
}

// ParseError is returned when a non-empty response body is not valid JSON.
type ParseError struct {
	Status int
	Body   []byte
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse response (status %d): %v", e.Status, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return parseErr.Status
	}
	return 0
}
