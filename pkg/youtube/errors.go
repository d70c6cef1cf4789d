package youtube

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrorClass represents a classification of upstream API failures.
type ErrorClass string

const (
	// ErrorClassQuota means the API key's daily allotment is exhausted.
	// The caller should rotate to another key.
	ErrorClassQuota ErrorClass = "quota"

	// ErrorClassBadRequest means the query itself is invalid or the target
	// resource does not exist. Not retryable.
	ErrorClassBadRequest ErrorClass = "bad_request"

	// ErrorClassAuth means the key was rejected for reasons other than quota.
	// Not retryable with the same key, but not the caller's fault either.
	ErrorClassAuth ErrorClass = "auth"

	// ErrorClassTransient covers network failures and upstream 5xx responses.
	// Retryable with the same key a bounded number of times.
	ErrorClassTransient ErrorClass = "transient"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all transient-error retries are used up.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")
)

// Quota-related reason codes in YouTube Data API error payloads.
var quotaReasons = map[string]bool{
	"quotaExceeded":         true,
	"dailyLimitExceeded":    true,
	"rateLimitExceeded":     true,
	"userRateLimitExceeded": true,
}

// APIError is a classified upstream API failure.
type APIError struct {
	StatusCode int
	Class      ErrorClass
	Reason     string
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("youtube %s error (status %d): %s: %v",
			e.Class, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("youtube %s error (status %d, reason %q): %s",
		e.Class, e.StatusCode, e.Reason, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// IsQuotaExceeded reports whether err is a quota-classified API error.
func IsQuotaExceeded(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Class == ErrorClassQuota
}

// errorBody mirrors the wire shape of a YouTube Data API error response.
type errorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"error"`
}

// classifyResponse builds an APIError from a non-2xx response body. The
// classification comes from the HTTP status plus the structured reason code,
// never from matching on the message text.
func classifyResponse(statusCode int, body []byte) *APIError {
	var payload errorBody
	_ = json.Unmarshal(body, &payload)

	reason := ""
	if len(payload.Error.Errors) > 0 {
		reason = payload.Error.Errors[0].Reason
	}

	apiErr := &APIError{
		StatusCode: statusCode,
		Reason:     reason,
		Message:    payload.Error.Message,
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(statusCode)
	}

	switch {
	case statusCode == http.StatusForbidden && quotaReasons[reason]:
		apiErr.Class = ErrorClassQuota
	case statusCode == http.StatusBadRequest || statusCode == http.StatusNotFound:
		apiErr.Class = ErrorClassBadRequest
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		apiErr.Class = ErrorClassAuth
	case statusCode >= 500:
		apiErr.Class = ErrorClassTransient
	default:
		apiErr.Class = ErrorClassTransient
	}

	return apiErr
}

// classifyNetworkError wraps a transport-level failure as a transient APIError.
func classifyNetworkError(err error) *APIError {
	return &APIError{
		Class:   ErrorClassTransient,
		Message: "network error",
		Err:     err,
	}
}

// shouldRetry determines if an error class should be retried with the same key.
func shouldRetry(class ErrorClass) bool {
	return class == ErrorClassTransient
}
