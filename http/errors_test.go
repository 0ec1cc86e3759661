package http

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name     string
		err      ClientError
		expected string
		kind     ErrorType
	}{
		{
			name:     "network",
			err:      NewNetworkError("connection failed", errors.New("refused")),
			expected: "network error: connection failed: refused",
			kind:     NetworkError,
		},
		{
			name:     "network without cause",
			err:      NewNetworkError("connection failed", nil),
			expected: "network error: connection failed",
			kind:     NetworkError,
		},
		{
			name:     "timeout",
			err:      NewTimeoutError("request timeout", 5*time.Second),
			expected: "timeout error: request timeout (timeout: 5s)",
			kind:     TimeoutError,
		},
		{
			name:     "http",
			err:      NewHTTPError("not found", 404, []byte("missing")),
			expected: "HTTP error: not found (status: 404)",
			kind:     HTTPError,
		},
		{
			name:     "validation with field",
			err:      NewValidationError("invalid URL", "url"),
			expected: "validation error: invalid URL (field: url)",
			kind:     ValidationError,
		},
		{
			name:     "validation without field",
			err:      NewValidationError("invalid", ""),
			expected: "validation error: invalid",
			kind:     ValidationError,
		},
		{
			name:     "interceptor",
			err:      NewInterceptorError("pipe failed", StageRequest, errors.New("boom")),
			expected: "interceptor error: pipe failed (stage: request): boom",
			kind:     InterceptorError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.EqualError(t, tt.err, tt.expected)
			assert.Equal(t, tt.kind, tt.err.Type())
			assert.True(t, IsErrorType(fmt.Errorf("wrapped: %w", tt.err), tt.kind))
		})
	}
}

func TestRequestErrorAccessors(t *testing.T) {
	err := NewHTTPError("bad gateway", 502, []byte("upstream"))
	var reqErr *RequestError
	assert.ErrorAs(t, err, &reqErr)
	assert.Equal(t, 502, reqErr.StatusCode())
	assert.Equal(t, []byte("upstream"), reqErr.Body())
	assert.True(t, IsHTTPStatusError(err, 502))
	assert.False(t, IsHTTPStatusError(err, 500))

	empty := &RequestError{}
	assert.Zero(t, empty.StatusCode())
	assert.Nil(t, empty.Body())
}

func TestNewFatalErrorClassifies(t *testing.T) {
	req := &Request{URL: testURL}

	timeout := newFatalError(req, context.DeadlineExceeded, time.Second)
	assert.Equal(t, TimeoutError, timeout.Type())
	assert.Same(t, req, timeout.Request)

	network := newFatalError(req, errConnRefused, time.Second)
	assert.Equal(t, NetworkError, network.Type())
	assert.ErrorIs(t, network, errConnRefused)
}

func TestIsErrorTypeAndStatus(t *testing.T) {
	assert.False(t, IsErrorType(nil, NetworkError))
	assert.False(t, IsErrorType(errors.New("plain"), NetworkError))
	assert.False(t, IsHTTPStatusError(errors.New("plain"), 500))

	assert.True(t, IsSuccessStatus(200))
	assert.True(t, IsSuccessStatus(299))
	assert.False(t, IsSuccessStatus(300))
	assert.False(t, IsSuccessStatus(199))
}
