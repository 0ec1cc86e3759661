package pipeline

import (
	"context"
	"errors"
)

// Pipeline is an ordered collection of pipes over values of type T.
// The zero value is an empty pipeline ready for use.
type Pipeline[T any] struct {
	pipes []Pipe[T]
}

// New creates an empty pipeline
func New[T any]() *Pipeline[T] {
	return &Pipeline[T]{}
}

// Insert appends a pipe built from handler and opts.
// It returns a *DuplicateNameError when a pipe with the same non-empty name
// is already registered.
func (p *Pipeline[T]) Insert(handler Handler[T], opts ...Option) error {
	if handler == nil {
		return errors.New("pipeline: nil handler")
	}

	var o pipeOptions
	for _, opt := range opts {
		opt(&o)
	}

	if o.name != "" && p.Has(o.name) {
		return &DuplicateNameError{Name: o.name}
	}

	p.pipes = append(p.pipes, Pipe[T]{name: o.name, order: o.order, handler: handler})
	return nil
}

// Has reports whether a pipe with the given name is registered
func (p *Pipeline[T]) Has(name string) bool {
	if name == "" {
		return false
	}
	for _, pipe := range p.pipes {
		if pipe.name == name {
			return true
		}
	}
	return false
}

// Len returns the number of registered pipes
func (p *Pipeline[T]) Len() int {
	return len(p.pipes)
}

// Pipes returns the pipes in execution order: the First group, then unordered
// pipes, then the Last group, each in insertion order. The returned slice is a
// copy.
func (p *Pipeline[T]) Pipes() []Pipe[T] {
	ordered := make([]Pipe[T], 0, len(p.pipes))
	for _, group := range []Order{First, Unordered, Last} {
		for _, pipe := range p.pipes {
			if pipe.order == group {
				ordered = append(ordered, pipe)
			}
		}
	}
	return ordered
}

// Execute folds the ordered pipes over v and returns the final value.
// An empty pipeline returns v unchanged.
func (p *Pipeline[T]) Execute(ctx context.Context, v *T) (*T, error) {
	current := v
	for _, pipe := range p.Pipes() {
		next, err := pipe.handler(ctx, current)
		if err != nil {
			return nil, err
		}
		if next != nil {
			current = next
		}
	}
	return current, nil
}

// Merge appends the pipes of other, in insertion order, after the pipes of p.
// Every name is checked before anything is appended, so a collision leaves p
// unchanged.
func (p *Pipeline[T]) Merge(other *Pipeline[T]) error {
	if err := p.CheckMerge(other); err != nil {
		return err
	}
	if other != nil {
		p.pipes = append(p.pipes, other.pipes...)
	}
	return nil
}

// CheckMerge returns the error Merge would return for other without
// modifying p. It lets callers validate several merges before committing any.
func (p *Pipeline[T]) CheckMerge(other *Pipeline[T]) error {
	if other == nil {
		return nil
	}
	for _, pipe := range other.pipes {
		if p.Has(pipe.name) {
			return &DuplicateNameError{Name: pipe.name}
		}
	}
	return nil
}

// Clone returns an independent copy of p sharing the same handlers
func (p *Pipeline[T]) Clone() *Pipeline[T] {
	return &Pipeline[T]{pipes: append([]Pipe[T](nil), p.pipes...)}
}
