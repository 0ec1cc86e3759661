package http

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// PoolResult holds the outcome of one pooled send
type PoolResult struct {
	Response *Response
	Err      error
}

// Pool sends reqs concurrently with at most concurrency sends in flight.
// Results are index-aligned with reqs. A failed send does not cancel the
// others; cancel ctx to stop the pool.
func (c *Connector) Pool(ctx context.Context, reqs []*Request, concurrency int) []PoolResult {
	results := make([]PoolResult, len(reqs))
	if len(reqs) == 0 {
		return results
	}

	var g errgroup.Group
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}

	for i, req := range reqs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = PoolResult{Err: err}
				return nil
			}
			resp, err := c.Send(ctx, req)
			results[i] = PoolResult{Response: resp, Err: err}
			return nil
		})
	}
	// goroutines never return errors; failures live in results
	_ = g.Wait()
	return results
}
