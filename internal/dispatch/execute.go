package dispatch

import (
	"context"

	"github.com/jsamuelsen/restcall/internal/adapters/clients"
)

// Execute runs call on the calling goroutine and returns its payload.
//
// The payload is nil when the server sent none; see IsEmptyBodyError.
// A transport fault is returned unchanged and never reaches a handler.
// A failed response is normalized and resolved by onError, the default
// handler, or a *domain.UnhandledError, in that order.
func Execute[T any](ctx context.Context, d *Dispatcher, call *clients.Call[T], onError ErrorHandler) (*T, error) {
	resp, err := ExecuteResponse(ctx, d, call, onError)
	if err != nil || resp == nil {
		return nil, err
	}
	if !resp.IsSuccessful() {
		return nil, nil
	}
	return resp.Body, nil
}

// ExecuteResponse is Execute returning the whole response.
//
// When the handler resolving a failure returns nil, the failed response is
// returned with a nil error; its error body has already been consumed.
func ExecuteResponse[T any](ctx context.Context, d *Dispatcher, call *clients.Call[T], onError ErrorHandler) (*clients.Response[T], error) {
	resp, err := call.Execute(ctx)
	if err != nil {
		return nil, err
	}

	if resp.IsSuccessful() {
		return resp, nil
	}

	apiErr := buildError(resp, d.cfg.Debug, d.cfg.ErrorBodyParser)
	if err := d.resolveBlocking(ctx, apiErr, onError); err != nil {
		return nil, err
	}

	return resp, nil
}
