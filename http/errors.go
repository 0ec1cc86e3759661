package http

import (
	"errors"
	"fmt"
	"time"
)

// ClientError represents different types of REST client errors
type ClientError interface {
	error
	Type() ErrorType
}

// ErrorType defines the category of client error
type ErrorType string

const (
	NetworkError     ErrorType = "network"
	TimeoutError     ErrorType = "timeout"
	HTTPError        ErrorType = "http"
	ValidationError  ErrorType = "validation"
	InterceptorError ErrorType = "interceptor"
)

// Pipeline stages reported by interceptor errors
const (
	StageRequest  = "request"
	StageResponse = "response"
	StageFatal    = "fatal"
)

// FatalRequestError is a connection-level failure: no HTTP response was
// obtained. It is routed through the fatal pipeline and always surfaces to
// the caller.
type FatalRequestError struct {
	// Request is the request whose transport attempt failed
	Request *Request

	kind    ErrorType
	message string
	timeout time.Duration
	wrapped error
}

func (e *FatalRequestError) Error() string {
	if e.kind == TimeoutError {
		return fmt.Sprintf("timeout error: %s (timeout: %v)", e.message, e.timeout)
	}
	if e.wrapped != nil {
		return fmt.Sprintf("network error: %s: %v", e.message, e.wrapped)
	}
	return fmt.Sprintf("network error: %s", e.message)
}

// Type returns NetworkError or TimeoutError
func (e *FatalRequestError) Type() ErrorType {
	return e.kind
}

func (e *FatalRequestError) Unwrap() error {
	return e.wrapped
}

// RequestError is an HTTP-level failure carrying the failed response.
type RequestError struct {
	// Response is the failed response
	Response *Response

	message string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("HTTP error: %s (status: %d)", e.message, e.StatusCode())
}

func (e *RequestError) Type() ErrorType {
	return HTTPError
}

// StatusCode returns the status of the failed response
func (e *RequestError) StatusCode() int {
	if e.Response == nil {
		return 0
	}
	return e.Response.StatusCode
}

// Body returns the body of the failed response
func (e *RequestError) Body() []byte {
	if e.Response == nil {
		return nil
	}
	return e.Response.Body
}

// validationError represents request validation errors
type validationError struct {
	message string
	field   string
}

func (e *validationError) Error() string {
	if e.field != "" {
		return fmt.Sprintf("validation error: %s (field: %s)", e.message, e.field)
	}
	return fmt.Sprintf("validation error: %s", e.message)
}

func (e *validationError) Type() ErrorType {
	return ValidationError
}

// interceptorError wraps an error returned by a pipe
type interceptorError struct {
	message string
	wrapped error
	stage   string
}

func (e *interceptorError) Error() string {
	return fmt.Sprintf("interceptor error: %s (stage: %s): %v", e.message, e.stage, e.wrapped)
}

func (e *interceptorError) Type() ErrorType {
	return InterceptorError
}

func (e *interceptorError) Unwrap() error {
	return e.wrapped
}

// NewNetworkError creates a connection-level failure
func NewNetworkError(message string, wrapped error) ClientError {
	return &FatalRequestError{kind: NetworkError, message: message, wrapped: wrapped}
}

// NewTimeoutError creates a connection-level timeout failure
func NewTimeoutError(message string, timeout time.Duration) ClientError {
	return &FatalRequestError{kind: TimeoutError, message: message, timeout: timeout}
}

// NewHTTPError creates an HTTP failure from a bare status and body
func NewHTTPError(message string, statusCode int, body []byte) ClientError {
	return &RequestError{
		message:  message,
		Response: &Response{StatusCode: statusCode, Body: body},
	}
}

// NewRequestError creates an HTTP failure for resp
func NewRequestError(resp *Response) *RequestError {
	return &RequestError{
		message:  fmt.Sprintf("HTTP request failed with status %d", resp.StatusCode),
		Response: resp,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message, field string) ClientError {
	return &validationError{message: message, field: field}
}

// NewInterceptorError creates a new interceptor error
func NewInterceptorError(message, stage string, wrapped error) ClientError {
	return &interceptorError{message: message, wrapped: wrapped, stage: stage}
}

// newFatalError classifies a transport error as a timeout or network failure
func newFatalError(req *Request, err error, timeout time.Duration) *FatalRequestError {
	fatal := &FatalRequestError{Request: req, kind: NetworkError, message: "request execution failed", wrapped: err}
	if isTimeout(err) {
		fatal.kind = TimeoutError
		fatal.message = "request timeout"
		fatal.timeout = timeout
	}
	return fatal
}

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errorType ErrorType) bool {
	if err == nil {
		return false
	}
	var clientErr ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type() == errorType
	}
	return false
}

// IsHTTPStatusError checks if an error is an HTTP error with a specific status code
func IsHTTPStatusError(err error, statusCode int) bool {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.StatusCode() == statusCode
	}
	return false
}

// IsSuccessStatus checks if a status code represents success (2xx)
func IsSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
