package http

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/gaborage/go-relay/trace"
)

// Names of the pipes registered by the Builder
const (
	PipeDefaultHeaders = "default_headers"
	PipeTraceID        = "trace_id"
	PipeRateLimit      = "rate_limit"
	PipeAuthenticate   = "authenticate"
)

const (
	// HeaderXRequestID is the standard header name for request tracing
	HeaderXRequestID = trace.HeaderXRequestID
	// HeaderTraceParent is the W3C trace context header name
	HeaderTraceParent = trace.HeaderTraceParent
	// HeaderTraceState is the W3C trace context "tracestate" header name
	HeaderTraceState = trace.HeaderTraceState
)

// NewDefaultHeadersPipe sets every header of defaults that the request does not set itself
func NewDefaultHeadersPipe(defaults map[string]string) RequestPipe {
	return func(_ context.Context, req *Request) (*Request, error) {
		for key, value := range defaults {
			if _, ok := req.Header(key); !ok {
				req.SetHeader(key, value)
			}
		}
		return nil, nil
	}
}

// TraceOptions configures NewTraceIDPipe
type TraceOptions struct {
	// Header carries the trace ID (default: X-Request-ID)
	Header string
	// NewTraceID generates an ID when the context has none (default: uuid)
	NewTraceID func() string
	// W3C also propagates traceparent and tracestate
	W3C bool
}

// NewTraceIDPipe propagates the context trace ID, and optionally the W3C trace
// context, unless the request already carries them.
func NewTraceIDPipe(opts TraceOptions) RequestPipe {
	header := opts.Header
	if header == "" {
		header = HeaderXRequestID
	}
	return func(ctx context.Context, req *Request) (*Request, error) {
		if _, ok := req.Header(header); !ok {
			req.SetHeader(header, traceID(ctx, opts.NewTraceID))
		}
		if !opts.W3C {
			return nil, nil
		}
		if _, ok := req.Header(HeaderTraceParent); !ok {
			tp, found := trace.ParentFromContext(ctx)
			if !found {
				tp = trace.GenerateTraceParent()
			}
			req.SetHeader(HeaderTraceParent, tp)
		}
		if _, ok := req.Header(HeaderTraceState); !ok {
			if ts, found := trace.StateFromContext(ctx); found {
				req.SetHeader(HeaderTraceState, ts)
			}
		}
		return nil, nil
	}
}

func traceID(ctx context.Context, generate func() string) string {
	if id, ok := trace.IDFromContext(ctx); ok {
		return id
	}
	if generate != nil {
		if id := generate(); id != "" {
			return id
		}
	}
	return trace.EnsureTraceID(ctx)
}

// NewRateLimitPipe blocks each attempt until limiter admits it. The wait ends
// early with an error when ctx is done.
func NewRateLimitPipe(limiter *rate.Limiter) RequestPipe {
	return func(ctx context.Context, _ *Request) (*Request, error) {
		if err := limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
		return nil, nil
	}
}

// NewAuthenticatePipe applies the request authenticator, or fallback when the
// request has none.
func NewAuthenticatePipe(fallback Authenticator) RequestPipe {
	return func(ctx context.Context, req *Request) (*Request, error) {
		auth := req.Auth
		if auth == nil {
			auth = fallback
		}
		if auth == nil {
			return nil, nil
		}
		if err := auth.Authenticate(ctx, req); err != nil {
			return nil, fmt.Errorf("authenticate: %w", err)
		}
		return nil, nil
	}
}
