package canvas

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

var (
	// ErrMissingCSRFToken is returned by session-authenticated writes when
	// no anti-forgery token is configured. The write is never sent.
	ErrMissingCSRFToken = errors.New("canvas: CSRF token not found")

	// ErrUnexpectedShape is returned when a list response is neither a JSON
	// array nor a JSON object.
	ErrUnexpectedShape = errors.New("canvas: response is neither an array nor an object")
)

// APIError represents a non-2xx response from the Canvas API.
type APIError struct {
	// StatusCode is the HTTP response status code.
	StatusCode int

	// Message is the error description extracted from the response body,
	// or the raw body when it is not a recognised Canvas error document.
	Message string
}

func (err *APIError) Error() string {
	if err.Message == "" {
		return fmt.Sprintf("canvas: HTTP %d", err.StatusCode)
	}
	return fmt.Sprintf("canvas: HTTP %d: %s", err.StatusCode, err.Message)
}

// NetworkError wraps a request that never produced an HTTP response:
// connection failures, DNS errors and client timeouts.
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

func (err *NetworkError) Error() string {
	return fmt.Sprintf("canvas: %s %s: %v", err.Method, err.URL, err.Err)
}

func (err *NetworkError) Unwrap() error {
	return err.Err
}

// Timeout reports whether the request failed because it ran out of time.
func (err *NetworkError) Timeout() bool {
	var netErr net.Error
	return errors.As(err.Err, &netErr) && netErr.Timeout()
}

// IsPermissionDenied reports whether err is a 403 Forbidden or 401
// Unauthorized response.
func IsPermissionDenied(err error) bool {
	var apiError *APIError
	return errors.As(err, &apiError) &&
		(apiError.StatusCode == http.StatusForbidden || apiError.StatusCode == http.StatusUnauthorized)
}

// IsNotFound reports whether err is a 404 Not Found response.
func IsNotFound(err error) bool {
	var apiError *APIError
	return errors.As(err, &apiError) && apiError.StatusCode == http.StatusNotFound
}

// IsNetwork reports whether err is a transport level failure.
func IsNetwork(err error) bool {
	var networkError *NetworkError
	return errors.As(err, &networkError)
}

// parseAPIError builds an APIError from a status code and response body.
// Canvas answers with either {"errors":[{"message":...}]} or
// {"message":...}; anything else is kept verbatim.
func parseAPIError(statusCode int, body []byte) *APIError {
	apiError := &APIError{StatusCode: statusCode}

	var wireError struct {
		Message string `json:"message"`
		Errors  []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if json.Unmarshal(body, &wireError) == nil {
		var messages []string
		if wireError.Message != "" {
			messages = append(messages, wireError.Message)
		}
		for _, entry := range wireError.Errors {
			if entry.Message != "" {
				messages = append(messages, entry.Message)
			}
		}
		if len(messages) > 0 {
			apiError.Message = strings.Join(messages, "; ")
			return apiError
		}
	}

	apiError.Message = strings.TrimSpace(string(body))
	return apiError
}
