// Package store adapts the remote document store (collections and documents
// over JSON HTTP) to the application's persistence ports. The transport here
// is deliberately thin: retries, backoff, and circuit breaking belong to the
// resilience executor that callers wrap around every store operation.
package store

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Store error codes. These travel inside RemoteError and are what the
// failure classifier keys on.
const (
	CodeUnavailable        = "unavailable"
	CodeResourceExhausted  = "resource-exhausted"
	CodePermissionDenied   = "permission-denied"
	CodeFailedPrecondition = "failed-precondition"
	CodeNotFound           = "not-found"
	CodeConflict           = "conflict"
	CodeUnauthenticated    = "unauthenticated"
	CodeInvalidArgument    = "invalid-argument"
	CodeInternal           = "internal"
)

// RemoteError is a failure reported by the document store. It carries the
// store's error code for classification and the HTTP status for logging.
type RemoteError struct {
	Code    string
	Status  int
	Message string
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("document store: %s (HTTP %d): %s", e.Code, e.Status, e.Message)
	}

	return fmt.Sprintf("document store: %s (HTTP %d)", e.Code, e.Status)
}

// ErrorCode returns the store error code. Implements resilience.Coder.
func (e *RemoteError) ErrorCode() string {
	return e.Code
}

// errorBody is the store's error response envelope.
type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// decodeRemoteError builds a RemoteError from an error response. The store's
// own code wins when the body carries one; otherwise the HTTP status decides.
func decodeRemoteError(status int, body []byte) *RemoteError {
	rerr := &RemoteError{
		Code:   codeForStatus(status),
		Status: status,
	}

	var envelope errorBody
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Error.Code != "" {
			rerr.Code = envelope.Error.Code
		}
		rerr.Message = envelope.Error.Message
	}

	return rerr
}

// codeForStatus maps an HTTP status to a store error code.
func codeForStatus(status int) string {
	switch status {
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusConflict:
		return CodeConflict
	case http.StatusForbidden:
		return CodePermissionDenied
	case http.StatusUnauthorized:
		return CodeUnauthenticated
	case http.StatusTooManyRequests:
		return CodeResourceExhausted
	case http.StatusPreconditionFailed:
		return CodeFailedPrecondition
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return CodeInvalidArgument
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return CodeUnavailable
	default:
		if status >= http.StatusInternalServerError {
			return CodeInternal
		}
		return CodeInvalidArgument
	}
}
