package dispatch

import (
	"context"
	"log/slog"

	"github.com/jsamuelsen/restcall/internal/domain"
)

// Resolution names the link of a chain that consumed a normalized error.
type Resolution string

const (
	// ResolvedByCall means the handler passed at the call site consumed it.
	ResolvedByCall Resolution = "call"

	// ResolvedByDefault means the dispatcher-wide handler consumed it.
	ResolvedByDefault Resolution = "default"

	// ResolvedByFallback means no handler existed: blocking calls fail with
	// *domain.UnhandledError and async calls drop the error.
	ResolvedByFallback Resolution = "fallback"
)

// Mode is the call mode a normalized error was produced in.
type Mode string

const (
	ModeBlocking Mode = "blocking"
	ModeAsync    Mode = "async"
)

type link[H any] struct {
	resolution Resolution
	handler    H
	present    bool
}

// firstLink walks the chain in order and returns the first present handler.
func firstLink[H any](chain ...link[H]) (link[H], bool) {
	for _, l := range chain {
		if l.present {
			return l, true
		}
	}
	return link[H]{resolution: ResolvedByFallback}, false
}

// resolveBlocking routes apiErr through call handler, default handler and
// finally *domain.UnhandledError.
func (d *Dispatcher) resolveBlocking(ctx context.Context, apiErr *domain.APIError, onError ErrorHandler) error {
	l, ok := firstLink(
		link[ErrorHandler]{ResolvedByCall, onError, onError != nil},
		link[ErrorHandler]{ResolvedByDefault, d.cfg.ErrorHandler, d.cfg.ErrorHandler != nil},
	)
	d.observe(ctx, ModeBlocking, apiErr, l.resolution)

	if !ok {
		return domain.NewUnhandledError(apiErr)
	}
	return l.handler(apiErr)
}

// resolveAsync routes apiErr through call handler and default handler.
// Without either the error is dropped after a warning.
func (d *Dispatcher) resolveAsync(ctx context.Context, apiErr *domain.APIError, onError AsyncErrorHandler) {
	l, ok := firstLink(
		link[AsyncErrorHandler]{ResolvedByCall, onError, onError != nil},
		link[AsyncErrorHandler]{ResolvedByDefault, d.cfg.AsyncErrorHandler, d.cfg.AsyncErrorHandler != nil},
	)
	d.observe(ctx, ModeAsync, apiErr, l.resolution)

	if !ok {
		d.logger(ctx).WarnContext(ctx, "dropping unhandled api error",
			slog.Any("api_error", apiErr),
		)
		return
	}
	l.handler(apiErr)
}

func (d *Dispatcher) observe(ctx context.Context, mode Mode, apiErr *domain.APIError, res Resolution) {
	d.metrics.ObserveError(mode, apiErr.StatusCode(), res)

	d.logger(ctx).DebugContext(ctx, "request failed",
		slog.String("mode", string(mode)),
		slog.String("resolution", string(res)),
		slog.Any("api_error", apiErr),
	)
}
