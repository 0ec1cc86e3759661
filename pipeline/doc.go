// Package pipeline provides an ordered collection of named, optionally
// positioned pipes that are folded over a value.
//
// Ordering
//   - Pipes inserted with First run before every unordered pipe.
//   - Pipes inserted with Last run after every unordered pipe.
//   - Inside each group, pipes keep their insertion order.
//
// Ordering is resolved when pipes are read or executed, so groups stay stable
// no matter how First, Last and unordered insertions are interleaved.
//
// Replacement
//   - A pipe returning a non-nil pointer replaces the in-flight value for all
//     later pipes and for the caller.
//   - A pipe returning nil leaves the current value untouched.
//   - A pipe returning an error stops execution; the error is returned as-is.
//
// Concurrency
//
// A Pipeline is not locked. Insert and Merge are meant for setup; Execute may
// then be called from many goroutines. Mutating a pipeline while it executes is
// the caller's responsibility.
package pipeline
