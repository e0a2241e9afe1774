package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/jsamuelsen/restcall/internal/adapters/clients"
	"github.com/jsamuelsen/restcall/internal/dispatch"
)

// Result holds the outcome of one call of a batch. Response is set whenever
// the downstream answered and no handler turned the failure into an error.
type Result[T any] struct {
	Response *clients.Response[T]
	Value    *T
	Err      error
}

// ExecuteAll runs calls as blocking dispatcher calls with at most limit in
// flight, and collects every outcome. A failed call does not stop the others.
// Results are in the order of calls. A limit below one means no limit.
//
// Example:
//
//	results := ExecuteAll(ctx, d, 4, nil, calls...)
//	for i, r := range results {
//	    if r.Err != nil {
//	        log.Printf("call %d: %v", i, r.Err)
//	    }
//	}
func ExecuteAll[T any](
	ctx context.Context,
	d *dispatch.Dispatcher,
	limit int,
	onError dispatch.ErrorHandler,
	calls ...*clients.Call[T],
) []Result[T] {
	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}

	results := make([]Result[T], len(calls))

	for i, call := range calls {
		g.Go(func() error {
			resp, err := dispatch.ExecuteResponse(ctx, d, call, onError)

			r := Result[T]{Response: resp, Err: err}
			if err == nil && resp.IsSuccessful() {
				r.Value = resp.Body
			}
			results[i] = r

			return nil
		})
	}

	_ = g.Wait()

	return results
}

// Gather runs calls as blocking dispatcher calls and returns every payload,
// or the first error. The remaining calls are canceled on the first error.
//
// Example:
//
//	users, err := Gather(ctx, d, 0, nil, userCalls...)
func Gather[T any](
	ctx context.Context,
	d *dispatch.Dispatcher,
	limit int,
	onError dispatch.ErrorHandler,
	calls ...*clients.Call[T],
) ([]*T, error) {
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	results := make([]*T, len(calls))

	for i, call := range calls {
		g.Go(func() error {
			value, err := dispatch.Execute(ctx, d, call, onError)
			if err != nil {
				return err
			}

			results[i] = value

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("gathering %d calls: %w", len(calls), err)
	}

	return results, nil
}
