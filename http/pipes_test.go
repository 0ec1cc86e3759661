package http

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/gaborage/go-relay/pipeline"
	"github.com/gaborage/go-relay/trace"
)

func TestDefaultHeadersPipe(t *testing.T) {
	pipe := NewDefaultHeadersPipe(map[string]string{"Accept": "application/json", "X-Client": "relay"})
	req := &Request{Headers: map[string]string{"Accept": "text/csv"}}

	out, err := pipe(context.Background(), req)
	require.NoError(t, err)
	assert.Nil(t, out)
	assert.Equal(t, "text/csv", req.Headers["Accept"])
	assert.Equal(t, "relay", req.Headers["X-Client"])
}

func TestTraceIDPipe(t *testing.T) {
	t.Run("uuid fallback", func(t *testing.T) {
		req := &Request{}
		_, err := NewTraceIDPipe(TraceOptions{})(context.Background(), req)
		require.NoError(t, err)
		assert.Len(t, req.Headers[HeaderXRequestID], 36)
		assert.NotContains(t, req.Headers, HeaderTraceParent)
	})

	t.Run("empty generator result falls back", func(t *testing.T) {
		req := &Request{}
		_, err := NewTraceIDPipe(TraceOptions{NewTraceID: func() string { return "" }})(context.Background(), req)
		require.NoError(t, err)
		assert.NotEmpty(t, req.Headers[HeaderXRequestID])
	})

	t.Run("explicit traceparent from context", func(t *testing.T) {
		const parent = "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"
		ctx := trace.WithTraceParent(context.Background(), parent)
		req := &Request{}
		_, err := NewTraceIDPipe(TraceOptions{W3C: true})(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, parent, req.Headers[HeaderTraceParent])
		assert.NotContains(t, req.Headers, HeaderTraceState)
	})
}

func TestRateLimitPipe(t *testing.T) {
	t.Run("admits within burst", func(t *testing.T) {
		pipe := NewRateLimitPipe(rate.NewLimiter(rate.Limit(1), 2))
		for i := 0; i < 2; i++ {
			_, err := pipe(context.Background(), &Request{})
			require.NoError(t, err)
		}
	})

	t.Run("gives up when the context ends", func(t *testing.T) {
		pipe := NewRateLimitPipe(rate.NewLimiter(rate.Every(time.Hour), 1))
		_, err := pipe(context.Background(), &Request{})
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, err = pipe(ctx, &Request{})
		assert.ErrorContains(t, err, "rate limit wait")
	})

	t.Run("connector rate limit is a request error", func(t *testing.T) {
		sender := newScriptedSender(respond(200))
		c, _, _ := newTestConnector(t, sender, func(b *Builder) {
			b.WithRateLimit(0.0001, 1)
		})
		require.True(t, c.Middleware().RequestPipeline().Has(PipeRateLimit))

		_, err := c.Get(context.Background(), &Request{URL: testURL})
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, err = c.Get(ctx, &Request{URL: testURL})
		assert.True(t, IsErrorType(err, InterceptorError))
		assert.Equal(t, 1, sender.calls())
	})

	t.Run("zero rate disables the pipe", func(t *testing.T) {
		c, _, _ := newTestConnector(t, newScriptedSender(respond(200)), func(b *Builder) {
			b.WithRateLimit(0, 5)
		})
		assert.False(t, c.Middleware().RequestPipeline().Has(PipeRateLimit))
	})
}

func TestAuthenticatePipe(t *testing.T) {
	t.Run("no authenticator", func(t *testing.T) {
		req := &Request{}
		_, err := NewAuthenticatePipe(nil)(context.Background(), req)
		require.NoError(t, err)
		assert.Empty(t, req.Headers)
	})

	t.Run("wraps authenticator errors", func(t *testing.T) {
		authErr := errors.New("expired")
		pipe := NewAuthenticatePipe(authenticatorFunc(func(context.Context, *Request) error { return authErr }))
		_, err := pipe(context.Background(), &Request{})
		assert.ErrorIs(t, err, authErr)
	})
}

func TestBuiltinPipeOrder(t *testing.T) {
	c, _, _ := newTestConnector(t, newScriptedSender(respond(200)), func(b *Builder) {
		b.WithDefaultHeader("X-Client", "relay")
		b.WithRateLimit(100, 10)
		b.WithRequestPipe(appendHeader("u"), pipeline.WithName("user"))
	})

	var names []string
	for _, p := range c.Middleware().RequestPipeline().Pipes() {
		names = append(names, p.Name())
	}
	assert.Equal(t, []string{PipeDefaultHeaders, PipeTraceID, PipeRateLimit, "user", PipeAuthenticate}, names)
}
