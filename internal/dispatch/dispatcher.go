// Package dispatch executes requests through a transport and turns every
// failure into a domain.APIError routed through a resolution chain.
//
// Two call modes are offered. Execute blocks the calling goroutine and
// returns either the payload, the error produced by the chain, or the
// transport fault unchanged. Enqueue hands the call to the transport's
// asynchronous facility and reports through callbacks; it never returns an
// error itself.
package dispatch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/jsamuelsen/restcall/internal/adapters/clients"
	"github.com/jsamuelsen/restcall/internal/domain"
	"github.com/jsamuelsen/restcall/internal/platform/logging"
)

// ErrorHandler consumes a normalized error in blocking mode. The error it
// returns becomes the error of the call; returning nil swallows the failure.
type ErrorHandler func(apiErr *domain.APIError) error

// AsyncErrorHandler consumes a normalized error in async mode.
type AsyncErrorHandler func(apiErr *domain.APIError)

// ProgressFunc is told when an async call starts (true) and ends (false).
type ProgressFunc func(show bool)

// Config is the dispatcher configuration. It is copied by New and never
// changes afterwards.
type Config struct {
	// BaseURL is the endpoint relative request paths resolve against.
	// A trailing slash is added when missing. Optional when every request
	// is built with an absolute URL.
	BaseURL string

	// Transport issues the requests. Required.
	Transport clients.Doer

	// Converters decode success payloads. JSON is used when empty.
	Converters []clients.Converter

	// Debug adds the request line, response headers, response summary and
	// error body to the log message of every normalized error.
	Debug bool

	// ErrorBodyParser extracts application detail from error bodies.
	ErrorBodyParser ErrorBodyParser

	// ErrorHandler is the default blocking-mode handler.
	ErrorHandler ErrorHandler

	// AsyncErrorHandler is the default async-mode handler.
	AsyncErrorHandler AsyncErrorHandler

	// Progress is driven around every async call.
	Progress ProgressFunc

	// Logger overrides the logger carried by the call context.
	Logger *slog.Logger

	// Metrics observes normalized errors and async calls in flight.
	Metrics Metrics
}

// Dispatcher issues calls and normalizes their failures.
// It is safe for concurrent use.
type Dispatcher struct {
	cfg     Config
	baseURL *url.URL
	metrics Metrics
}

// New validates cfg and returns a dispatcher bound to a copy of it.
func New(cfg Config) (*Dispatcher, error) {
	if cfg.Transport == nil {
		return nil, ErrNoTransport
	}

	d := &Dispatcher{
		cfg:     cfg,
		metrics: cfg.Metrics,
	}
	d.cfg.Converters = append([]clients.Converter(nil), cfg.Converters...)

	if cfg.BaseURL != "" {
		base, err := parseBaseURL(cfg.BaseURL)
		if err != nil {
			return nil, err
		}
		d.baseURL = base
	}

	if d.metrics == nil {
		d.metrics = noopMetrics{}
	}

	return d, nil
}

// parseBaseURL requires an absolute http(s) URL and makes its path end in a
// slash so relative paths extend it instead of replacing its last segment.
func parseBaseURL(raw string) (*url.URL, error) {
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBaseURL, err)
	}

	if (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, fmt.Errorf("%w: %q is not an absolute http(s) URL", ErrInvalidBaseURL, raw)
	}

	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	return base, nil
}

// BaseURL returns the normalized base URL, or nil when none is configured.
func (d *Dispatcher) BaseURL() *url.URL {
	if d.baseURL == nil {
		return nil
	}
	u := *d.baseURL
	return &u
}

// Debug reports whether diagnostic log messages are built.
func (d *Dispatcher) Debug() bool {
	return d.cfg.Debug
}

// NewRequest builds a request for path resolved against the base URL.
// Absolute URLs are used as given.
func (d *Dispatcher) NewRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("parsing request path %q: %w", path, err)
	}

	target := ref
	if !ref.IsAbs() {
		if d.baseURL == nil {
			return nil, fmt.Errorf("%w: %q", ErrNoBaseURL, path)
		}
		target = d.baseURL.ResolveReference(ref)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("building %s request: %w", method, err)
	}

	return req, nil
}

// NewCall binds req to the dispatcher's transport and converters.
func NewCall[T any](d *Dispatcher, req *http.Request) *clients.Call[T] {
	return clients.NewCall[T](d.cfg.Transport, req, d.cfg.Converters...)
}

func (d *Dispatcher) logger(ctx context.Context) *slog.Logger {
	if d.cfg.Logger != nil {
		return d.cfg.Logger
	}
	return logging.FromContext(ctx)
}

func (d *Dispatcher) showProgress(show bool) {
	if show {
		d.metrics.AsyncStarted()
	} else {
		d.metrics.AsyncFinished()
	}

	if d.cfg.Progress != nil {
		d.cfg.Progress(show)
	}
}
