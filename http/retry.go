package http

import (
	"context"
	crand "crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/gaborage/go-relay/logger"
)

// maxBackoffShift caps the exponent of the backoff multiplier
const maxBackoffShift = 20

// RetryPolicy selects whether and how a send is retried.
// It is either NoRetry or Retry.
type RetryPolicy interface {
	retryPolicy()
}

// NoRetry sends once. Failed responses are returned without error.
type NoRetry struct{}

func (NoRetry) retryPolicy() {}

// Retry re-attempts a send on connection and HTTP failures.
type Retry struct {
	// Tries is the maximum number of attempts, including the first
	Tries int
	// Interval is the wait after the first failed attempt; zero means no wait
	Interval time.Duration
	// ExponentialBackoff doubles the wait after every failed attempt
	ExponentialBackoff bool
	// ThrowOnMaxTries returns the last failure as an error once retries are
	// exhausted. When false the last failed response is returned instead.
	ThrowOnMaxTries bool
	// MaxInterval caps the wait when positive
	MaxInterval time.Duration
	// Jitter randomizes each wait in [0, delay)
	Jitter bool
}

func (Retry) retryPolicy() {}

// RetryOption configures a Retry created by NewRetry
type RetryOption func(*Retry)

// NewRetry creates a policy with the given number of tries that throws on exhaustion
func NewRetry(tries int, opts ...RetryOption) Retry {
	r := Retry{Tries: tries, ThrowOnMaxTries: true}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// WithRetryInterval sets the wait between attempts
func WithRetryInterval(interval time.Duration) RetryOption {
	return func(r *Retry) { r.Interval = interval }
}

// WithExponentialBackoff doubles the interval after every failed attempt
func WithExponentialBackoff() RetryOption {
	return func(r *Retry) { r.ExponentialBackoff = true }
}

// WithThrowOnMaxTries controls whether exhaustion returns an error
func WithThrowOnMaxTries(throw bool) RetryOption {
	return func(r *Retry) { r.ThrowOnMaxTries = throw }
}

// WithMaxRetryInterval caps the wait between attempts
func WithMaxRetryInterval(maxInterval time.Duration) RetryOption {
	return func(r *Retry) { r.MaxInterval = maxInterval }
}

// WithRetryJitter enables full jitter on the wait between attempts
func WithRetryJitter() RetryOption {
	return func(r *Retry) { r.Jitter = true }
}

// Delay returns the wait after failed attempt n (1-based), before jitter.
func (r Retry) Delay(attempt int) time.Duration {
	if r.Interval <= 0 {
		return 0
	}
	d := r.Interval
	if r.ExponentialBackoff && attempt > 1 {
		shift := min(attempt-1, maxBackoffShift)
		if r.Interval > time.Duration(math.MaxInt64>>shift) {
			d = time.Duration(math.MaxInt64)
		} else {
			d = r.Interval << shift
		}
	}
	if r.MaxInterval > 0 && d > r.MaxInterval {
		d = r.MaxInterval
	}
	return d
}

func (r Retry) wait(attempt int) time.Duration {
	d := r.Delay(attempt)
	if !r.Jitter || d <= 0 {
		return d
	}
	n, err := crand.Int(crand.Reader, big.NewInt(int64(d)))
	if err != nil {
		return d
	}
	return time.Duration(n.Int64())
}

// RetryHook decides whether a failed attempt is retried. It receives the
// failure and the request shared by all attempts, which it may mutate.
// Returning an error aborts the send with that error.
type RetryHook func(ctx context.Context, failure error, req *Request) (bool, error)

// RetryOnServerErrors retries connection failures and 5xx responses only
func RetryOnServerErrors(_ context.Context, failure error, _ *Request) (bool, error) {
	var reqErr *RequestError
	if errors.As(failure, &reqErr) {
		return reqErr.Response != nil && reqErr.Response.ServerError(), nil
	}
	return true, nil
}

// RetryOnConnectionErrors retries connection failures only
func RetryOnConnectionErrors(_ context.Context, failure error, _ *Request) (bool, error) {
	var fatal *FatalRequestError
	return errors.As(failure, &fatal), nil
}

// Sleeper waits between attempts
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc adapts a function to the Sleeper interface
type SleeperFunc func(ctx context.Context, d time.Duration) error

// Sleep calls f(ctx, d)
func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error {
	return f(ctx, d)
}

// timerSleeper waits on a timer and returns early when ctx is done
type timerSleeper struct{}

func (timerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// attemptFunc performs one attempt: pipelines plus transport
type attemptFunc func(ctx context.Context, attempt int) (*Response, error)

// retrier drives the attempts of a single send. It holds only per-send state.
type retrier struct {
	policy  RetryPolicy
	hooks   []RetryHook
	sleeper Sleeper
	logger  logger.Logger
	onRetry func(ctx context.Context, attempt int, delay time.Duration, failure error)
}

func (r *retrier) run(ctx context.Context, req *Request, attempt attemptFunc) (*Response, error) {
	policy, ok := r.policy.(Retry)
	if !ok {
		return attempt(ctx, 1)
	}

	tries := max(policy.Tries, 1)
	var lastResp *Response
	var lastFailure error

	for n := 1; ; n++ {
		resp, err := attempt(ctx, n)
		failure, failedResp, retryable := classify(resp, err)
		if !retryable {
			return resp, err
		}
		lastResp, lastFailure = failedResp, failure

		if n >= tries {
			break
		}

		proceed, err := r.allow(ctx, failure, req)
		if err != nil {
			return nil, err
		}
		if !proceed {
			break
		}

		delay := policy.wait(n)
		r.logRetry(req, n, delay, failure)
		if r.onRetry != nil {
			r.onRetry(ctx, n, delay, failure)
		}
		if delay > 0 {
			if err := r.sleeper.Sleep(ctx, delay); err != nil {
				return nil, fmt.Errorf("retry wait interrupted: %w", err)
			}
		}
	}

	if policy.ThrowOnMaxTries || lastResp == nil {
		return lastResp, lastFailure
	}
	return lastResp, nil
}

// allow consults every hook in order; the first veto or error wins
func (r *retrier) allow(ctx context.Context, failure error, req *Request) (bool, error) {
	for _, hook := range r.hooks {
		if hook == nil {
			continue
		}
		proceed, err := hook(ctx, failure, req)
		if err != nil || !proceed {
			return false, err
		}
	}
	return true, nil
}

func (r *retrier) logRetry(req *Request, attempt int, delay time.Duration, failure error) {
	if r.logger == nil {
		return
	}
	r.logger.Warn().
		Str("method", req.Method).
		Str("url", req.URL).
		Int("attempt", attempt).
		Dur("delay", delay).
		Err(failure).
		Msg("REST client retrying request")
}

// classify splits an attempt outcome into success, retryable failure and
// non-retryable error. For retryable failures it returns the failure and the
// failed response, if any.
func classify(resp *Response, err error) (failure error, failedResp *Response, retryable bool) {
	if err == nil {
		if resp != nil && resp.Failed() {
			return NewRequestError(resp), resp, true
		}
		return nil, nil, false
	}

	var clientErr ClientError
	if !errors.As(err, &clientErr) {
		return nil, nil, false
	}
	switch e := clientErr.(type) {
	case *FatalRequestError:
		return err, nil, true
	case *RequestError:
		return err, e.Response, true
	default:
		return nil, nil, false
	}
}
