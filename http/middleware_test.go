package http

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/go-relay/pipeline"
)

const (
	testPipeName  = "test_pipe"
	testHeaderKey = "X-Order"
)

// appendHeader returns a request pipe that appends tag to the X-Order header
func appendHeader(tag string) RequestPipe {
	return func(_ context.Context, req *Request) (*Request, error) {
		v, _ := req.Header(testHeaderKey)
		req.SetHeader(testHeaderKey, v+tag)
		return nil, nil
	}
}

// appendBody returns a response pipe that appends tag to the body
func appendBody(tag string) ResponsePipe {
	return func(_ context.Context, resp *Response) (*Response, error) {
		resp.Body = append(resp.Body, tag...)
		return nil, nil
	}
}

func TestMiddlewareRequestPipeline(t *testing.T) {
	t.Run("pipes mutate the request", func(t *testing.T) {
		m := NewMiddlewarePipeline()
		require.NoError(t, m.OnRequest(appendHeader("a")))

		out, err := m.ExecuteRequestPipeline(context.Background(), &Request{})
		require.NoError(t, err)
		assert.Equal(t, "a", out.Headers[testHeaderKey])
	})

	t.Run("named pipes must be unique", func(t *testing.T) {
		m := NewMiddlewarePipeline()
		require.NoError(t, m.OnRequest(appendHeader("a"), pipeline.WithName(testPipeName)))

		err := m.OnRequest(appendHeader("b"), pipeline.WithName(testPipeName))
		assert.ErrorIs(t, err, pipeline.ErrDuplicatePipeName)
		assert.EqualError(t, err, `the "test_pipe" pipe already exists on the pipeline`)
		assert.Equal(t, 1, m.RequestPipeline().Len())
	})

	t.Run("a returned request replaces the current one", func(t *testing.T) {
		replacement := &Request{URL: "https://replaced.example.com"}
		var seen *Request

		m := NewMiddlewarePipeline()
		require.NoError(t, m.OnRequest(func(context.Context, *Request) (*Request, error) { return replacement, nil }))
		require.NoError(t, m.OnRequest(func(_ context.Context, req *Request) (*Request, error) {
			seen = req
			return nil, nil
		}))

		out, err := m.ExecuteRequestPipeline(context.Background(), &Request{URL: "https://original.example.com"})
		require.NoError(t, err)
		assert.Same(t, replacement, out)
		assert.Same(t, replacement, seen)
	})

	t.Run("first and last groups", func(t *testing.T) {
		m := NewMiddlewarePipeline()
		require.NoError(t, m.OnRequest(appendHeader("b")))
		require.NoError(t, m.OnRequest(appendHeader("z"), pipeline.WithOrder(pipeline.Last)))
		require.NoError(t, m.OnRequest(appendHeader("a"), pipeline.WithOrder(pipeline.First)))
		require.NoError(t, m.OnRequest(appendHeader("c")))

		out, err := m.ExecuteRequestPipeline(context.Background(), &Request{})
		require.NoError(t, err)
		assert.Equal(t, "abcz", out.Headers[testHeaderKey])
	})

	t.Run("errors stop the pipeline", func(t *testing.T) {
		boom := errors.New("boom")
		m := NewMiddlewarePipeline()
		require.NoError(t, m.OnRequest(func(context.Context, *Request) (*Request, error) { return nil, boom }))
		require.NoError(t, m.OnRequest(appendHeader("never")))

		req := &Request{}
		out, err := m.ExecuteRequestPipeline(context.Background(), req)
		assert.ErrorIs(t, err, boom)
		assert.Nil(t, out)
		assert.Empty(t, req.Headers)
	})
}

func TestMiddlewareResponsePipeline(t *testing.T) {
	t.Run("pipes run in order", func(t *testing.T) {
		m := NewMiddlewarePipeline()
		require.NoError(t, m.OnResponse(appendBody("2"), pipeline.WithName("second")))
		require.NoError(t, m.OnResponse(appendBody("3"), pipeline.WithOrder(pipeline.Last)))
		require.NoError(t, m.OnResponse(appendBody("1"), pipeline.WithOrder(pipeline.First)))

		out, err := m.ExecuteResponsePipeline(context.Background(), &Response{StatusCode: 200})
		require.NoError(t, err)
		assert.Equal(t, "123", string(out.Body))
	})

	t.Run("a returned response replaces the current one", func(t *testing.T) {
		m := NewMiddlewarePipeline()
		require.NoError(t, m.OnResponse(func(context.Context, *Response) (*Response, error) {
			return &Response{StatusCode: 299}, nil
		}))
		require.NoError(t, m.OnResponse(appendBody("x")))

		out, err := m.ExecuteResponsePipeline(context.Background(), &Response{StatusCode: 200})
		require.NoError(t, err)
		assert.Equal(t, 299, out.StatusCode)
		assert.Equal(t, "x", string(out.Body))
	})

	t.Run("named pipes must be unique", func(t *testing.T) {
		m := NewMiddlewarePipeline()
		require.NoError(t, m.OnResponse(appendBody("a"), pipeline.WithName(testPipeName)))
		assert.ErrorIs(t, m.OnResponse(appendBody("b"), pipeline.WithName(testPipeName)), pipeline.ErrDuplicatePipeName)
	})
}

func TestMiddlewareFatalPipeline(t *testing.T) {
	t.Run("pipes observe the fatal error in order", func(t *testing.T) {
		var order []string
		observe := func(tag string) FatalPipe {
			return func(_ context.Context, fatal *FatalRequestError) (*FatalRequestError, error) {
				order = append(order, tag+":"+string(fatal.Type()))
				return nil, nil
			}
		}

		m := NewMiddlewarePipeline()
		require.NoError(t, m.OnFatal(observe("b")))
		require.NoError(t, m.OnFatal(observe("c"), pipeline.WithOrder(pipeline.Last)))
		require.NoError(t, m.OnFatal(observe("a"), pipeline.WithOrder(pipeline.First), pipeline.WithName("first")))

		fatal := newFatalError(&Request{}, errConnRefused, 0)
		require.NoError(t, m.ExecuteFatalPipeline(context.Background(), fatal))
		assert.Equal(t, []string{"a:network", "b:network", "c:network"}, order)
	})

	t.Run("pipe errors are reported", func(t *testing.T) {
		boom := errors.New("boom")
		m := NewMiddlewarePipeline()
		require.NoError(t, m.OnFatal(func(context.Context, *FatalRequestError) (*FatalRequestError, error) { return nil, boom }))

		assert.ErrorIs(t, m.ExecuteFatalPipeline(context.Background(), newFatalError(&Request{}, errConnRefused, 0)), boom)
	})

	t.Run("named pipes must be unique", func(t *testing.T) {
		noop := func(context.Context, *FatalRequestError) (*FatalRequestError, error) { return nil, nil }
		m := NewMiddlewarePipeline()
		require.NoError(t, m.OnFatal(noop, pipeline.WithName(testPipeName)))
		assert.ErrorIs(t, m.OnFatal(noop, pipeline.WithName(testPipeName)), pipeline.ErrDuplicatePipeName)
	})
}

func TestMiddlewareSameNameAcrossCategories(t *testing.T) {
	m := NewMiddlewarePipeline()
	require.NoError(t, m.OnRequest(appendHeader("a"), pipeline.WithName(testPipeName)))
	require.NoError(t, m.OnResponse(appendBody("a"), pipeline.WithName(testPipeName)))
	require.NoError(t, m.OnFatal(func(context.Context, *FatalRequestError) (*FatalRequestError, error) { return nil, nil },
		pipeline.WithName(testPipeName)))
}

func TestMiddlewareZeroValueIsUsable(t *testing.T) {
	var m MiddlewarePipeline
	require.NoError(t, m.OnRequest(appendHeader("a")))

	out, err := m.ExecuteRequestPipeline(context.Background(), &Request{})
	require.NoError(t, err)
	assert.Equal(t, "a", out.Headers[testHeaderKey])

	resp := &Response{StatusCode: 204}
	got, err := m.ExecuteResponsePipeline(context.Background(), resp)
	require.NoError(t, err)
	assert.Same(t, resp, got)
}

func TestMiddlewareMerge(t *testing.T) {
	t.Run("merges every category in order", func(t *testing.T) {
		a := NewMiddlewarePipeline()
		require.NoError(t, a.OnRequest(appendHeader("1"), pipeline.WithName("one")))
		require.NoError(t, a.OnResponse(appendBody("1")))

		b := NewMiddlewarePipeline()
		require.NoError(t, b.OnRequest(appendHeader("2"), pipeline.WithName("two")))
		require.NoError(t, b.OnRequest(appendHeader("0"), pipeline.WithOrder(pipeline.First)))
		require.NoError(t, b.OnResponse(appendBody("2")))
		require.NoError(t, b.OnFatal(func(context.Context, *FatalRequestError) (*FatalRequestError, error) { return nil, nil }))

		require.NoError(t, a.Merge(b))
		assert.Equal(t, 3, a.RequestPipeline().Len())
		assert.Equal(t, 2, a.ResponsePipeline().Len())
		assert.Equal(t, 1, a.FatalPipeline().Len())

		req, err := a.ExecuteRequestPipeline(context.Background(), &Request{})
		require.NoError(t, err)
		assert.Equal(t, "012", req.Headers[testHeaderKey])

		resp, err := a.ExecuteResponsePipeline(context.Background(), &Response{})
		require.NoError(t, err)
		assert.Equal(t, "12", string(resp.Body))

		// the source pipeline is not modified
		assert.Equal(t, 2, b.RequestPipeline().Len())
	})

	t.Run("a collision in any category leaves the target unchanged", func(t *testing.T) {
		a := NewMiddlewarePipeline()
		require.NoError(t, a.OnRequest(appendHeader("1"), pipeline.WithName("request_pipe")))
		require.NoError(t, a.OnFatal(func(context.Context, *FatalRequestError) (*FatalRequestError, error) { return nil, nil },
			pipeline.WithName(testPipeName)))

		b := NewMiddlewarePipeline()
		require.NoError(t, b.OnRequest(appendHeader("2"), pipeline.WithName("other_request_pipe")))
		require.NoError(t, b.OnResponse(appendBody("2")))
		require.NoError(t, b.OnFatal(func(context.Context, *FatalRequestError) (*FatalRequestError, error) { return nil, nil },
			pipeline.WithName(testPipeName)))

		err := a.Merge(b)
		var dup *pipeline.DuplicateNameError
		require.ErrorAs(t, err, &dup)
		assert.Equal(t, testPipeName, dup.Name)

		assert.Equal(t, 1, a.RequestPipeline().Len())
		assert.Equal(t, 0, a.ResponsePipeline().Len())
		assert.Equal(t, 1, a.FatalPipeline().Len())
	})

	t.Run("merging nil is a no-op", func(t *testing.T) {
		a := NewMiddlewarePipeline()
		require.NoError(t, a.Merge(nil))
	})
}

func TestMiddlewareClone(t *testing.T) {
	original := NewMiddlewarePipeline()
	require.NoError(t, original.OnRequest(appendHeader("a"), pipeline.WithName(testPipeName)))

	clone := original.Clone()
	require.NoError(t, clone.OnRequest(appendHeader("b")))
	require.NoError(t, clone.OnResponse(appendBody("b")))

	assert.Equal(t, 1, original.RequestPipeline().Len())
	assert.Equal(t, 0, original.ResponsePipeline().Len())
	assert.Equal(t, 2, clone.RequestPipeline().Len())
	assert.True(t, clone.RequestPipeline().Has(testPipeName))
}
