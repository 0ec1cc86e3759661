// Package http provides a composable HTTP client built around a middleware
// pipeline and a retry orchestrator.
//
// Middleware
//   - A Connector owns a MiddlewarePipeline with three categories of pipes:
//     request pipes run before the transport, response pipes run on every
//     response, fatal pipes observe connection-level failures.
//   - Pipes may be named (unique per category) and placed First or Last.
//   - Request.Middleware is merged into a copy of the connector pipeline on
//     each send; a name collision fails the send before any network I/O.
//
// Retries
//   - Controlled by a RetryPolicy: NoRetry or Retry.
//   - Connection failures (*FatalRequestError) and HTTP failures (status >= 400,
//     or a *RequestError raised by a response pipe) are retryable.
//   - A RetryHook may veto further attempts and may mutate the request; every
//     attempt receives the same *Request. Hooks are not called after the
//     final attempt.
//   - Delay for failed attempt n is Interval, or Interval * 2^(n-1) with
//     exponential backoff, optionally capped and jittered.
//   - Pipe errors, validation errors and hook errors are never retried.
//
// Exhaustion
//   - ThrowOnMaxTries (default) returns the last failure.
//   - Otherwise the last failed response is returned without error. A
//     connection failure has no response and is always returned as an error.
package http
