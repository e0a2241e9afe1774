package dispatch

import (
	"context"

	"github.com/jsamuelsen/restcall/internal/adapters/clients"
	"github.com/jsamuelsen/restcall/internal/domain"
)

// Enqueue submits call to the transport's asynchronous facility.
//
// Progress is shown on submission and hidden exactly once on completion,
// before any callback runs. A success goes to onSuccess when set. A
// transport fault becomes a network APIError and a failed response is
// normalized; both are resolved by onError, the default async handler, or
// dropped. Callbacks run on the transport's goroutine.
func Enqueue[T any](ctx context.Context, d *Dispatcher, call *clients.Call[T], onSuccess func(*clients.Response[T]), onError AsyncErrorHandler) {
	d.showProgress(true)

	call.Enqueue(ctx, &asyncAdapter[T]{
		ctx:       ctx,
		d:         d,
		onSuccess: onSuccess,
		onError:   onError,
	})
}

// asyncAdapter turns transport completions into progress updates and
// resolution-chain calls.
type asyncAdapter[T any] struct {
	ctx       context.Context //nolint:containedctx // completion outlives Enqueue
	d         *Dispatcher
	onSuccess func(*clients.Response[T])
	onError   AsyncErrorHandler
}

// OnResponse implements clients.Callback.
func (a *asyncAdapter[T]) OnResponse(_ *clients.Call[T], resp *clients.Response[T]) {
	a.d.showProgress(false)

	if resp.IsSuccessful() {
		if a.onSuccess != nil {
			a.onSuccess(resp)
		}
		return
	}

	apiErr := buildError(resp, a.d.cfg.Debug, a.d.cfg.ErrorBodyParser)
	a.d.resolveAsync(a.ctx, apiErr, a.onError)
}

// OnFailure implements clients.Callback.
func (a *asyncAdapter[T]) OnFailure(_ *clients.Call[T], err error) {
	a.d.showProgress(false)

	a.d.resolveAsync(a.ctx, domain.NewNetworkError(err), a.onError)
}
