package http

import (
	"context"
	"encoding/base64"
	nethttp "net/http"
	"net/url"
	"time"
)

// Client defines the REST client interface for making HTTP requests
type Client interface {
	Get(ctx context.Context, req *Request) (*Response, error)
	Post(ctx context.Context, req *Request) (*Response, error)
	Put(ctx context.Context, req *Request) (*Response, error)
	Patch(ctx context.Context, req *Request) (*Response, error)
	Delete(ctx context.Context, req *Request) (*Response, error)
	Do(ctx context.Context, method string, req *Request) (*Response, error)
	Send(ctx context.Context, req *Request) (*Response, error)
}

// Sender performs a single transport round trip. Implementations return a
// *FatalRequestError when no HTTP response could be obtained; other errors are
// classified by the connector.
type Sender interface {
	Send(ctx context.Context, req *Request) (*Response, error)
}

// SenderFunc adapts a function to the Sender interface
type SenderFunc func(ctx context.Context, req *Request) (*Response, error)

// Send calls f(ctx, req)
func (f SenderFunc) Send(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// Authenticator applies credentials to an outgoing request.
type Authenticator interface {
	Authenticate(ctx context.Context, req *Request) error
}

// Request is the mutable in-flight request. Pipes, authenticators and retry
// hooks mutate it in place; the same value is used for every attempt.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Query   url.Values
	Body    []byte

	// Auth overrides the connector authenticator for this request
	Auth Authenticator
	// Retry overrides the connector retry policy; NoRetry{} disables retries
	Retry RetryPolicy
	// RetryHook is consulted after the connector hook on every retryable failure
	RetryHook RetryHook
	// Middleware is merged after the connector middleware for this request only
	Middleware *MiddlewarePipeline
}

// SetHeader sets a header, allocating the header map when needed
func (r *Request) SetHeader(key, value string) {
	if r.Headers == nil {
		r.Headers = make(map[string]string)
	}
	r.Headers[key] = value
}

// Header returns a header value and whether it is set
func (r *Request) Header(key string) (string, bool) {
	v, ok := r.Headers[key]
	return v, ok
}

// SetQuery sets a query parameter, allocating the query values when needed
func (r *Request) SetQuery(key, value string) {
	if r.Query == nil {
		r.Query = url.Values{}
	}
	r.Query.Set(key, value)
}

// FullURL returns URL with Query merged into its query string
func (r *Request) FullURL() (string, error) {
	if len(r.Query) == 0 {
		return r.URL, nil
	}
	u, err := url.Parse(r.URL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	for k, vs := range r.Query {
		q[k] = append([]string(nil), vs...)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Response represents an HTTP response with tracking information
type Response struct {
	StatusCode int
	Body       []byte
	Headers    nethttp.Header
	Stats      Stats
	// Request is the request that produced this response
	Request *Request
}

// Stats contains request execution statistics
type Stats struct {
	ElapsedTime time.Duration
	CallCount   int64
	Attempt     int
}

// Successful reports a 2xx status
func (r *Response) Successful() bool {
	return IsSuccessStatus(r.StatusCode)
}

// Failed reports a 4xx or 5xx status
func (r *Response) Failed() bool {
	return r.StatusCode >= 400
}

// ServerError reports a 5xx status
func (r *Response) ServerError() bool {
	return r.StatusCode >= 500 && r.StatusCode < 600
}

// ClientError reports a 4xx status
func (r *Response) ClientError() bool {
	return r.StatusCode >= 400 && r.StatusCode < 500
}

// Throw returns a *RequestError when the response failed, nil otherwise.
// Response pipes may return it to turn a failed response into a failure.
func (r *Response) Throw() error {
	if !r.Failed() {
		return nil
	}
	return NewRequestError(r)
}

// BasicAuth contains basic authentication credentials and implements Authenticator
type BasicAuth struct {
	Username string
	Password string
}

// Authenticate sets the Authorization header
func (a *BasicAuth) Authenticate(_ context.Context, req *Request) error {
	credentials := base64.StdEncoding.EncodeToString([]byte(a.Username + ":" + a.Password))
	req.SetHeader(headerAuthorization, "Basic "+credentials)
	return nil
}
