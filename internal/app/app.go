// Package app assembles the transport and the dispatcher from configuration
// and runs groups of calls through them.
//
// It is the only place that knows both the configuration layout and the
// dispatcher options, so the CLI and the integration suite build their
// runtime the same way.
package app

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jsamuelsen/restcall/internal/adapters/clients"
	"github.com/jsamuelsen/restcall/internal/dispatch"
	"github.com/jsamuelsen/restcall/internal/platform/config"
)

// Options carries what cannot come from configuration: handlers, sinks and
// collaborators owned by the caller. Every field is optional.
type Options struct {
	Logger            *slog.Logger
	Registerer        prometheus.Registerer
	ErrorBodyParser   dispatch.ErrorBodyParser
	ErrorHandler      dispatch.ErrorHandler
	AsyncErrorHandler dispatch.AsyncErrorHandler
	Progress          dispatch.ProgressFunc
	AuthFunc          func(*http.Request)

	// Converters replace the default protobuf-then-JSON converter set.
	Converters []clients.Converter
}

// Runtime is the assembled request stack.
type Runtime struct {
	Client     *clients.Client
	Dispatcher *dispatch.Dispatcher

	// EmptyBodyStatuses are the statuses for which a missing payload is expected.
	EmptyBodyStatuses []int
}

// New builds the transport and the dispatcher described by cfg.
// cfg is expected to be validated already.
func New(cfg *config.Config, opts Options) (*Runtime, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	client, err := clients.New(&clients.Config{
		ServiceName: cfg.Dispatcher.ServiceName,
		Timeout:     cfg.Client.Timeout,
		Retry:       cfg.Client.Retry,
		Circuit:     cfg.Client.CircuitBreaker,
		Transport:   cfg.Client.Transport,
		AuthFunc:    opts.AuthFunc,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating HTTP client: %w", err)
	}

	var metrics dispatch.Metrics
	if opts.Registerer != nil {
		pm, err := dispatch.NewPrometheusMetrics(opts.Registerer, metricsNamespace(cfg.App.Name))
		if err != nil {
			return nil, fmt.Errorf("registering dispatcher metrics: %w", err)
		}
		metrics = pm
	}

	converters := opts.Converters
	if len(converters) == 0 {
		converters = []clients.Converter{clients.ProtobufConverter{}, clients.JSONConverter{}}
	}

	d, err := dispatch.New(dispatch.Config{
		BaseURL:           cfg.Dispatcher.BaseURL,
		Transport:         client,
		Converters:        converters,
		Debug:             cfg.Dispatcher.Debug,
		ErrorBodyParser:   opts.ErrorBodyParser,
		ErrorHandler:      opts.ErrorHandler,
		AsyncErrorHandler: opts.AsyncErrorHandler,
		Progress:          opts.Progress,
		Logger:            logger.With(slog.String("component", "dispatch.Dispatcher")),
		Metrics:           metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("creating dispatcher: %w", err)
	}

	return &Runtime{
		Client:            client,
		Dispatcher:        d,
		EmptyBodyStatuses: append([]int(nil), cfg.Dispatcher.EmptyBodyStatuses...),
	}, nil
}

// metricsNamespace turns an application name into a valid Prometheus namespace.
func metricsNamespace(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
