package pipeline

import "context"

// Handler transforms the in-flight value. Returning a nil pointer keeps the
// current value; returning a non-nil pointer replaces it.
type Handler[T any] func(ctx context.Context, v *T) (*T, error)

// Pipe is a single unit of work registered on a Pipeline.
// Pipes are immutable once inserted.
type Pipe[T any] struct {
	name    string
	order   Order
	handler Handler[T]
}

// Name returns the pipe name, empty for unnamed pipes
func (p Pipe[T]) Name() string { return p.name }

// Order returns the ordering group of the pipe
func (p Pipe[T]) Order() Order { return p.order }

// Handle runs the pipe handler
func (p Pipe[T]) Handle(ctx context.Context, v *T) (*T, error) {
	return p.handler(ctx, v)
}

// Option configures a pipe at insertion time
type Option func(*pipeOptions)

type pipeOptions struct {
	name  string
	order Order
}

// WithName names the pipe. Names are unique per pipeline.
func WithName(name string) Option {
	return func(o *pipeOptions) {
		o.name = name
	}
}

// WithOrder places the pipe in the First or Last group
func WithOrder(order Order) Option {
	return func(o *pipeOptions) {
		o.order = order
	}
}
