package http

import (
	"context"
	"errors"
	nethttp "net/http"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/metric"
	oteltrace "go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/gaborage/go-relay/config"
	"github.com/gaborage/go-relay/http/internal/tracking"
	"github.com/gaborage/go-relay/logger"
	"github.com/gaborage/go-relay/pipeline"
)

const (
	// DefaultTimeout is the default request timeout duration
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries is the default maximum number of retries for failed requests
	DefaultMaxRetries = 0

	// DefaultRetryDelay is the default delay between retries
	DefaultRetryDelay = 1 * time.Second
)

// Connector sends requests through its middleware pipeline and retry policy.
// It is safe for concurrent use once built.
type Connector struct {
	sender     Sender
	logger     logger.Logger
	middleware *MiddlewarePipeline
	retry      RetryPolicy
	retryHook  RetryHook
	sleeper    Sleeper
	baseURL    string
	timeout    time.Duration
	tracker    *tracking.Tracker
	callCount  int64
}

var _ Client = (*Connector)(nil)

// NewClient creates a connector with default configuration
func NewClient(log logger.Logger) Client {
	c, err := NewBuilder(log).Build()
	if err != nil {
		// the default builder registers only built-in pipes with distinct names
		panic(err)
	}
	return c
}

// Builder provides a fluent interface for configuring a Connector.
// Registration errors are collected and reported by Build.
type Builder struct {
	logger         logger.Logger
	timeout        time.Duration
	baseURL        string
	httpClient     *nethttp.Client
	transport      nethttp.RoundTripper
	sender         Sender
	retry          RetryPolicy
	retryHook      RetryHook
	sleeper        Sleeper
	auth           Authenticator
	defaultHeaders map[string]string
	traceOpts      TraceOptions
	traceEnabled   bool
	limiter        *rate.Limiter
	middleware     *MiddlewarePipeline
	meterProvider  metric.MeterProvider
	tracerProvider oteltrace.TracerProvider
	errs           []error
}

// NewBuilder creates a new connector builder
func NewBuilder(log logger.Logger) *Builder {
	if log == nil {
		log = logger.Nop()
	}
	return &Builder{
		logger:         log,
		timeout:        DefaultTimeout,
		retry:          NoRetry{},
		defaultHeaders: make(map[string]string),
		traceEnabled:   true,
		middleware:     NewMiddlewarePipeline(),
	}
}

// WithBaseURL sets the URL prepended to relative request URLs
func (b *Builder) WithBaseURL(baseURL string) *Builder {
	b.baseURL = baseURL
	return b
}

// WithTimeout sets the request timeout
func (b *Builder) WithTimeout(timeout time.Duration) *Builder {
	b.timeout = timeout
	return b
}

// WithHTTPClient sends through httpClient as-is; WithTimeout and WithTransport are ignored
func (b *Builder) WithHTTPClient(httpClient *nethttp.Client) *Builder {
	b.httpClient = httpClient
	return b
}

// WithTransport sets the round tripper of the default HTTP client
func (b *Builder) WithTransport(transport nethttp.RoundTripper) *Builder {
	b.transport = transport
	return b
}

// WithSender replaces the net/http transport entirely
func (b *Builder) WithSender(sender Sender) *Builder {
	b.sender = sender
	return b
}

// WithRetry sets the default retry policy
func (b *Builder) WithRetry(policy RetryPolicy) *Builder {
	if policy == nil {
		policy = NoRetry{}
	}
	b.retry = policy
	return b
}

// WithRetries retries connection failures and 5xx responses up to maxRetries
// times with jittered exponential backoff starting at retryDelay.
func (b *Builder) WithRetries(maxRetries int, retryDelay time.Duration) *Builder {
	if maxRetries <= 0 {
		b.retry = NoRetry{}
		return b
	}
	b.retry = NewRetry(maxRetries+1,
		WithRetryInterval(retryDelay),
		WithExponentialBackoff(),
		WithMaxRetryInterval(DefaultTimeout),
		WithRetryJitter(),
	)
	b.retryHook = RetryOnServerErrors
	return b
}

// WithRetryHook sets the connector retry hook, consulted before the request hook
func (b *Builder) WithRetryHook(hook RetryHook) *Builder {
	b.retryHook = hook
	return b
}

// WithSleeper replaces the timer used between attempts
func (b *Builder) WithSleeper(sleeper Sleeper) *Builder {
	b.sleeper = sleeper
	return b
}

// WithBasicAuth sets basic authentication credentials
func (b *Builder) WithBasicAuth(username, password string) *Builder {
	b.auth = &BasicAuth{Username: username, Password: password}
	return b
}

// WithAuthenticator sets the default authenticator
func (b *Builder) WithAuthenticator(auth Authenticator) *Builder {
	b.auth = auth
	return b
}

// WithDefaultHeader adds a default header that will be sent with all requests
func (b *Builder) WithDefaultHeader(key, value string) *Builder {
	b.defaultHeaders[key] = value
	return b
}

// WithTraceIDHeader sets the header carrying the trace ID
func (b *Builder) WithTraceIDHeader(header string) *Builder {
	b.traceOpts.Header = header
	return b
}

// WithTraceIDGenerator sets the trace ID generator used when the context has none
func (b *Builder) WithTraceIDGenerator(gen func() string) *Builder {
	b.traceOpts.NewTraceID = gen
	return b
}

// WithW3CTrace enables traceparent and tracestate propagation
func (b *Builder) WithW3CTrace(enabled bool) *Builder {
	b.traceOpts.W3C = enabled
	return b
}

// WithoutTraceID disables the trace_id request pipe
func (b *Builder) WithoutTraceID() *Builder {
	b.traceEnabled = false
	return b
}

// WithRateLimit limits attempts to rps per second with the given burst
func (b *Builder) WithRateLimit(rps float64, burst int) *Builder {
	if rps <= 0 {
		b.limiter = nil
		return b
	}
	b.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
	return b
}

// WithRequestPipe registers a request pipe on the connector middleware
func (b *Builder) WithRequestPipe(pipe RequestPipe, opts ...pipeline.Option) *Builder {
	b.collect(b.middleware.OnRequest(pipe, opts...))
	return b
}

// WithResponsePipe registers a response pipe on the connector middleware
func (b *Builder) WithResponsePipe(pipe ResponsePipe, opts ...pipeline.Option) *Builder {
	b.collect(b.middleware.OnResponse(pipe, opts...))
	return b
}

// WithFatalPipe registers a fatal pipe on the connector middleware
func (b *Builder) WithFatalPipe(pipe FatalPipe, opts ...pipeline.Option) *Builder {
	b.collect(b.middleware.OnFatal(pipe, opts...))
	return b
}

// WithMeterProvider sets the provider for client metrics (default: global)
func (b *Builder) WithMeterProvider(mp metric.MeterProvider) *Builder {
	b.meterProvider = mp
	return b
}

// WithTracerProvider sets the provider for send spans (default: global)
func (b *Builder) WithTracerProvider(tp oteltrace.TracerProvider) *Builder {
	b.tracerProvider = tp
	return b
}

// WithConfig applies a loaded client configuration
func (b *Builder) WithConfig(cfg *config.ClientConfig) *Builder {
	if cfg == nil {
		return b
	}
	if cfg.BaseURL != "" {
		b.baseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		b.timeout = cfg.Timeout
	}
	for key, value := range cfg.DefaultHeaders {
		b.defaultHeaders[key] = value
	}
	if cfg.Retry.Tries > 0 {
		opts := []RetryOption{
			WithRetryInterval(cfg.Retry.Interval),
			WithThrowOnMaxTries(cfg.Retry.ThrowOnMaxTries),
			WithMaxRetryInterval(cfg.Retry.MaxInterval),
		}
		if cfg.Retry.Backoff {
			opts = append(opts, WithExponentialBackoff())
		}
		if cfg.Retry.Jitter {
			opts = append(opts, WithRetryJitter())
		}
		b.retry = NewRetry(cfg.Retry.Tries, opts...)
	}
	if cfg.RateLimit.RequestsPerSecond > 0 {
		b.WithRateLimit(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	}
	if cfg.Trace.Header != "" {
		b.traceOpts.Header = cfg.Trace.Header
	}
	b.traceOpts.W3C = b.traceOpts.W3C || cfg.Trace.W3C
	return b
}

func (b *Builder) collect(err error) {
	if err != nil {
		b.errs = append(b.errs, err)
	}
}

// Build creates the connector. It fails when a pipe could not be registered
// or collides with a built-in pipe name.
func (b *Builder) Build() (*Connector, error) {
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}

	middleware, err := b.buildMiddleware()
	if err != nil {
		return nil, err
	}

	sender := b.sender
	if sender == nil {
		httpClient := b.httpClient
		if httpClient == nil {
			httpClient = &nethttp.Client{Timeout: b.timeout, Transport: b.transport}
		}
		sender = NewNetHTTPSender(httpClient)
	}

	sleeper := b.sleeper
	if sleeper == nil {
		sleeper = timerSleeper{}
	}

	return &Connector{
		sender:     sender,
		logger:     b.logger,
		middleware: middleware,
		retry:      b.retry,
		retryHook:  b.retryHook,
		sleeper:    sleeper,
		baseURL:    b.baseURL,
		timeout:    b.timeout,
		tracker:    tracking.New(b.meterProvider, b.tracerProvider),
	}, nil
}

// buildMiddleware registers the built-in pipes, then the user pipes
func (b *Builder) buildMiddleware() (*MiddlewarePipeline, error) {
	m := NewMiddlewarePipeline()
	first := pipeline.WithOrder(pipeline.First)

	if len(b.defaultHeaders) > 0 {
		headers := make(map[string]string, len(b.defaultHeaders))
		for k, v := range b.defaultHeaders {
			headers[k] = v
		}
		if err := m.OnRequest(NewDefaultHeadersPipe(headers), pipeline.WithName(PipeDefaultHeaders), first); err != nil {
			return nil, err
		}
	}
	if b.traceEnabled {
		if err := m.OnRequest(NewTraceIDPipe(b.traceOpts), pipeline.WithName(PipeTraceID), first); err != nil {
			return nil, err
		}
	}
	if b.limiter != nil {
		if err := m.OnRequest(NewRateLimitPipe(b.limiter), pipeline.WithName(PipeRateLimit), first); err != nil {
			return nil, err
		}
	}
	if err := m.OnRequest(NewAuthenticatePipe(b.auth), pipeline.WithName(PipeAuthenticate), pipeline.WithOrder(pipeline.Last)); err != nil {
		return nil, err
	}

	if err := m.Merge(b.middleware); err != nil {
		return nil, err
	}
	return m, nil
}

// Middleware returns the connector middleware. Register pipes before sending;
// the pipeline is shared by concurrent sends.
func (c *Connector) Middleware() *MiddlewarePipeline {
	return c.middleware
}

// Get performs a GET request
func (c *Connector) Get(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodGet, req)
}

// Post performs a POST request
func (c *Connector) Post(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodPost, req)
}

// Put performs a PUT request
func (c *Connector) Put(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodPut, req)
}

// Patch performs a PATCH request
func (c *Connector) Patch(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodPatch, req)
}

// Delete performs a DELETE request
func (c *Connector) Delete(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodDelete, req)
}

// Do performs an HTTP request with the specified method
func (c *Connector) Do(ctx context.Context, method string, req *Request) (*Response, error) {
	if req != nil {
		req.Method = method
	}
	return c.Send(ctx, req)
}

// Send runs req through the middleware and retry policy.
//
// Connection failures return a *FatalRequestError. HTTP failures are returned
// as a *RequestError only when a retry policy throws on exhaustion; otherwise
// the failed response is returned without error. Pipe, validation and retry
// hook errors are returned as soon as they occur.
func (c *Connector) Send(ctx context.Context, req *Request) (*Response, error) {
	if err := c.prepare(req); err != nil {
		return nil, err
	}

	mw := c.middleware.Clone()
	if err := mw.Merge(req.Middleware); err != nil {
		return nil, err
	}

	ctx, span := c.tracker.StartSend(ctx, req.Method, req.URL)

	start := time.Now()
	callCount := atomic.AddInt64(&c.callCount, 1)
	method := req.Method

	r := &retrier{
		policy:  c.policyFor(req),
		hooks:   []RetryHook{c.retryHook, req.RetryHook},
		sleeper: c.sleeper,
		logger:  c.logger,
		onRetry: func(ctx context.Context, attempt int, delay time.Duration, _ error) {
			c.tracker.RecordRetry(ctx, method, attempt, delay)
		},
	}

	resp, err := r.run(ctx, req, func(ctx context.Context, attempt int) (*Response, error) {
		return c.attempt(ctx, mw, req, attempt, start, callCount)
	})

	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	tracking.EndSend(span, status, err)
	return resp, err
}

// prepare validates req and resolves its URL against the base URL
func (c *Connector) prepare(req *Request) error {
	if req == nil {
		return NewValidationError("request cannot be nil", "request")
	}
	req.URL = c.resolveURL(req.URL)
	if req.URL == "" {
		return NewValidationError("URL cannot be empty", "url")
	}
	if req.Method == "" {
		req.Method = nethttp.MethodGet
	}
	return nil
}

// resolveURL joins a relative endpoint onto the base URL with a single slash
func (c *Connector) resolveURL(endpoint string) string {
	if c.baseURL == "" || isAbsoluteURL(endpoint) {
		return endpoint
	}
	if endpoint == "" {
		return c.baseURL
	}
	return strings.TrimRight(c.baseURL, "/") + "/" + strings.TrimLeft(endpoint, "/")
}

func isAbsoluteURL(u string) bool {
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}

func (c *Connector) policyFor(req *Request) RetryPolicy {
	if req.Retry != nil {
		return req.Retry
	}
	if c.retry != nil {
		return c.retry
	}
	return NoRetry{}
}

// attempt runs one pass: request pipes, transport, then fatal or response pipes
func (c *Connector) attempt(ctx context.Context, mw *MiddlewarePipeline, req *Request, n int, start time.Time, callCount int64) (*Response, error) {
	out, err := mw.ExecuteRequestPipeline(ctx, req)
	if err != nil {
		return nil, NewInterceptorError("request pipe failed", StageRequest, err)
	}

	c.logRequest(out, n)

	attemptStart := time.Now()
	resp, err := c.sender.Send(ctx, out)
	if err == nil && resp == nil {
		err = NewNetworkError("sender returned no response", nil)
	}
	if err != nil {
		c.tracker.RecordAttempt(ctx, out.Method, 0, errorType(err), time.Since(attemptStart))
		return nil, c.handleSendError(ctx, mw, out, n, err)
	}
	c.tracker.RecordAttempt(ctx, out.Method, resp.StatusCode, "", time.Since(attemptStart))

	resp.Request = out
	resp.Stats = Stats{
		ElapsedTime: time.Since(start),
		CallCount:   callCount,
		Attempt:     n,
	}
	c.logResponse(resp)

	final, err := mw.ExecuteResponsePipeline(ctx, resp)
	if err != nil {
		var reqErr *RequestError
		if errors.As(err, &reqErr) {
			return nil, err
		}
		return nil, NewInterceptorError("response pipe failed", StageResponse, err)
	}
	return final, nil
}

// handleSendError routes connection failures through the fatal pipes.
// The fatal error is always returned, joined with any fatal pipe error.
func (c *Connector) handleSendError(ctx context.Context, mw *MiddlewarePipeline, req *Request, n int, err error) error {
	var fatal *FatalRequestError
	if !errors.As(err, &fatal) {
		var clientErr ClientError
		if errors.As(err, &clientErr) {
			return err
		}
		fatal = newFatalError(req, err, c.timeout)
		err = fatal
	}
	if fatal.Request == nil {
		fatal.Request = req
	}

	c.logFatal(req, n, fatal)

	if pipeErr := mw.ExecuteFatalPipeline(ctx, fatal); pipeErr != nil {
		return errors.Join(err, NewInterceptorError("fatal pipe failed", StageFatal, pipeErr))
	}
	return err
}

func errorType(err error) string {
	var clientErr ClientError
	if errors.As(err, &clientErr) {
		return string(clientErr.Type())
	}
	return "_OTHER"
}

// logRequest logs the outgoing request
func (c *Connector) logRequest(req *Request, attempt int) {
	logEvent := c.logger.Info().
		Str("direction", "outbound").
		Str("method", req.Method).
		Str("url", req.URL).
		Int("attempt", attempt)

	if len(req.Headers) > 0 {
		logEvent.Interface("headers", req.Headers)
	}

	if len(req.Body) > 0 {
		logEvent.Bytes("body", req.Body)
	}

	logEvent.Msg("REST client request")
}

// logResponse logs the incoming response
func (c *Connector) logResponse(resp *Response) {
	logEvent := c.logger.Info().
		Str("direction", "inbound").
		Int("status", resp.StatusCode).
		Dur("elapsed", resp.Stats.ElapsedTime).
		Int64("call_count", resp.Stats.CallCount).
		Int("attempt", resp.Stats.Attempt)

	if len(resp.Body) > 0 {
		logEvent.Bytes("body", resp.Body)
	}

	logEvent.Msg("REST client response")
}

// logFatal logs a connection-level failure
func (c *Connector) logFatal(req *Request, attempt int, fatal *FatalRequestError) {
	c.logger.Error().
		Err(fatal).
		Str("direction", "outbound").
		Str("method", req.Method).
		Str("url", req.URL).
		Int("attempt", attempt).
		Str("error_type", string(fatal.Type())).
		Msg("REST client request failed")
}
