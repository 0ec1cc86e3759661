package http

import (
	"context"

	"github.com/gaborage/go-relay/pipeline"
)

type (
	// RequestPipe runs before the transport. Returning a non-nil *Request
	// replaces the request sent on this attempt.
	RequestPipe = pipeline.Handler[Request]
	// ResponsePipe runs on every response. Returning a non-nil *Response
	// replaces it; returning resp.Throw() turns it into a failure.
	ResponsePipe = pipeline.Handler[Response]
	// FatalPipe observes connection-level failures. It cannot suppress them.
	FatalPipe = pipeline.Handler[FatalRequestError]
)

// MiddlewarePipeline owns the request, response and fatal pipelines.
// Pipe names are unique per category. The zero value is ready for use.
//
// Registration is not synchronized: register pipes during setup, then share
// the pipeline read-only across sends.
type MiddlewarePipeline struct {
	request  pipeline.Pipeline[Request]
	response pipeline.Pipeline[Response]
	fatal    pipeline.Pipeline[FatalRequestError]
}

// NewMiddlewarePipeline creates an empty middleware pipeline
func NewMiddlewarePipeline() *MiddlewarePipeline {
	return &MiddlewarePipeline{}
}

// OnRequest registers a request pipe
func (m *MiddlewarePipeline) OnRequest(pipe RequestPipe, opts ...pipeline.Option) error {
	return m.request.Insert(pipe, opts...)
}

// OnResponse registers a response pipe
func (m *MiddlewarePipeline) OnResponse(pipe ResponsePipe, opts ...pipeline.Option) error {
	return m.response.Insert(pipe, opts...)
}

// OnFatal registers a fatal pipe
func (m *MiddlewarePipeline) OnFatal(pipe FatalPipe, opts ...pipeline.Option) error {
	return m.fatal.Insert(pipe, opts...)
}

// RequestPipeline returns the request pipeline
func (m *MiddlewarePipeline) RequestPipeline() *pipeline.Pipeline[Request] {
	return &m.request
}

// ResponsePipeline returns the response pipeline
func (m *MiddlewarePipeline) ResponsePipeline() *pipeline.Pipeline[Response] {
	return &m.response
}

// FatalPipeline returns the fatal pipeline
func (m *MiddlewarePipeline) FatalPipeline() *pipeline.Pipeline[FatalRequestError] {
	return &m.fatal
}

// ExecuteRequestPipeline runs the request pipes and returns the request to send
func (m *MiddlewarePipeline) ExecuteRequestPipeline(ctx context.Context, req *Request) (*Request, error) {
	return m.request.Execute(ctx, req)
}

// ExecuteResponsePipeline runs the response pipes and returns the final response
func (m *MiddlewarePipeline) ExecuteResponsePipeline(ctx context.Context, resp *Response) (*Response, error) {
	return m.response.Execute(ctx, resp)
}

// ExecuteFatalPipeline runs the fatal pipes against fatal. It only reports
// errors raised by the pipes; the caller still returns fatal itself.
func (m *MiddlewarePipeline) ExecuteFatalPipeline(ctx context.Context, fatal *FatalRequestError) error {
	_, err := m.fatal.Execute(ctx, fatal)
	return err
}

// Merge appends the pipes of other to each category. All three categories are
// checked before any is modified, so a name collision leaves m unchanged.
func (m *MiddlewarePipeline) Merge(other *MiddlewarePipeline) error {
	if other == nil {
		return nil
	}
	if err := m.request.CheckMerge(&other.request); err != nil {
		return err
	}
	if err := m.response.CheckMerge(&other.response); err != nil {
		return err
	}
	if err := m.fatal.CheckMerge(&other.fatal); err != nil {
		return err
	}

	// cannot fail after the checks above
	_ = m.request.Merge(&other.request)
	_ = m.response.Merge(&other.response)
	_ = m.fatal.Merge(&other.fatal)
	return nil
}

// Clone returns an independent copy sharing the same pipe handlers
func (m *MiddlewarePipeline) Clone() *MiddlewarePipeline {
	return &MiddlewarePipeline{
		request:  *m.request.Clone(),
		response: *m.response.Clone(),
		fatal:    *m.fatal.Clone(),
	}
}
