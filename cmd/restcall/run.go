package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/urfave/cli/v2"
	"go.opentelemetry.io/otel"

	"github.com/jsamuelsen/restcall/internal/adapters/clients"
	"github.com/jsamuelsen/restcall/internal/app"
	"github.com/jsamuelsen/restcall/internal/dispatch"
	"github.com/jsamuelsen/restcall/internal/domain"
	"github.com/jsamuelsen/restcall/internal/platform/config"
	"github.com/jsamuelsen/restcall/internal/platform/logging"
	"github.com/jsamuelsen/restcall/internal/platform/telemetry"
)

const tracerName = "github.com/jsamuelsen/restcall/cmd/restcall"

// request is one call asked for on the command line.
type request struct {
	method string
	path   string
	body   []byte
}

func (r request) String() string {
	return r.method + " " + r.path
}

func requestsFor(method string, paths []string, body []byte) []request {
	reqs := make([]request, 0, len(paths))
	for _, p := range paths {
		reqs = append(reqs, request{method: method, path: p, body: body})
	}
	return reqs
}

func jsonValid(data []byte) bool {
	return json.Valid(data)
}

// session holds what a command builds before issuing calls.
type session struct {
	cfg       *config.Config
	logger    *slog.Logger
	telemetry *telemetry.Provider
	registry  *prometheus.Registry
	runtime   *app.Runtime
	out       *printer
}

func run(cctx *cli.Context, reqs []request) error {
	ctx, stop := signal.NotifyContext(cctx.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, err := newSession(ctx, cctx)
	if err != nil {
		return err
	}
	defer s.close(ctx)

	ctx, span := otel.Tracer(tracerName).Start(ctx, "restcall "+cctx.Command.Name)
	defer span.End()

	ctx = s.requestContext(ctx)

	calls := make([]*clients.Call[json.RawMessage], 0, len(reqs))
	for _, r := range reqs {
		call, err := s.newCall(ctx, r)
		if err != nil {
			return err
		}
		calls = append(calls, call)
	}

	var failed int
	if cctx.Bool("async") {
		failed, err = s.enqueueAll(ctx, reqs, calls)
		if err != nil {
			return err
		}
	} else {
		failed = s.executeAll(ctx, cctx.Int("concurrency"), reqs, calls)
	}

	if cctx.Bool("metrics") {
		if err := s.writeMetrics(cctx.App.ErrWriter); err != nil {
			s.logger.Warn("writing metrics", slog.Any("error", err))
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d calls failed", failed, len(reqs))
	}

	return nil
}

// newSession loads configuration, applies flag overrides and assembles the
// logger, telemetry and runtime.
func newSession(ctx context.Context, cctx *cli.Context) (*session, error) {
	cfg, err := config.Load(cctx.String("profile"))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	applyFlags(cctx, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.NewWithWriter(&logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.App.Name,
		Version: cfg.App.Version,
		File: logging.FileConfig{
			Enabled:    cfg.Log.File.Enabled,
			Path:       cfg.Log.File.Path,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		},
	}, cctx.App.ErrWriter)
	logging.SetDefault(logger)

	tel, err := telemetry.New(ctx, &telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		Endpoint:     cfg.Telemetry.Endpoint,
		ServiceName:  cfg.Telemetry.ServiceName,
		Version:      cfg.App.Version,
		Environment:  cfg.App.Environment,
		SamplingRate: cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing telemetry: %w", err)
	}

	var parser dispatch.ErrorBodyParser
	if !cctx.Bool("raw-errors") {
		parser = dispatch.JSONErrorBodyParser{}
	}

	registry := prometheus.NewRegistry()

	rt, err := app.New(cfg, app.Options{
		Logger:          logger,
		Registerer:      registry,
		ErrorBodyParser: parser,
		Progress:        progressLogger(logger),
	})
	if err != nil {
		_ = tel.Shutdown(ctx)
		return nil, err
	}

	logger.Debug("session ready",
		slog.String("version", Version),
		slog.String("environment", cfg.App.Environment),
		slog.String("base_url", rt.Dispatcher.BaseURL().String()),
		slog.Bool("debug", rt.Dispatcher.Debug()),
	)

	return &session{
		cfg:       cfg,
		logger:    logger,
		telemetry: tel,
		registry:  registry,
		runtime:   rt,
		out:       newPrinter(cctx.App.Writer, cctx.App.ErrWriter, rt.EmptyBodyStatuses),
	}, nil
}

func applyFlags(cctx *cli.Context, cfg *config.Config) {
	if cctx.IsSet("base-url") {
		cfg.Dispatcher.BaseURL = cctx.String("base-url")
	}
	if cctx.IsSet("debug") {
		cfg.Dispatcher.Debug = cctx.Bool("debug")
	}
	if cctx.IsSet("allow-empty") {
		cfg.Dispatcher.EmptyBodyStatuses = cctx.IntSlice("allow-empty")
	}
}

// progressLogger is the progress sink of the command.
func progressLogger(logger *slog.Logger) dispatch.ProgressFunc {
	return func(show bool) {
		if show {
			logger.Info("request in flight")
		} else {
			logger.Info("request finished")
		}
	}
}

func (s *session) close(ctx context.Context) {
	if err := s.telemetry.Shutdown(context.WithoutCancel(ctx)); err != nil {
		s.logger.Error("telemetry shutdown error", slog.Any("error", err))
	}
}

// requestContext tags ctx with a request ID shared by every call of the command.
func (s *session) requestContext(ctx context.Context) context.Context {
	id := clients.NewRequestID()

	ctx = clients.ContextWithRequestID(ctx, id)
	ctx = logging.WithContext(ctx, s.logger)
	ctx = logging.WithRequestID(ctx, id)
	ctx = logging.WithDownstream(ctx, s.cfg.Dispatcher.ServiceName)

	return logging.WithSpan(ctx)
}

func (s *session) newCall(ctx context.Context, r request) (*clients.Call[json.RawMessage], error) {
	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}

	req, err := s.runtime.Dispatcher.NewRequest(ctx, r.method, r.path, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", clients.MediaTypeJSON)
	if r.body != nil {
		req.Header.Set("Content-Type", clients.MediaTypeJSON)
	}

	return dispatch.NewCall[json.RawMessage](s.runtime.Dispatcher, req), nil
}

// executeAll runs the calls in blocking mode and returns how many failed.
func (s *session) executeAll(ctx context.Context, limit int, reqs []request, calls []*clients.Call[json.RawMessage]) int {
	var failed int

	for i, r := range app.ExecuteAll(ctx, s.runtime.Dispatcher, limit, nil, calls...) {
		if r.Err != nil {
			s.out.failure(reqs[i], r.Err)
			failed++
			continue
		}
		if !s.out.response(reqs[i], r.Response) {
			failed++
		}
	}

	return failed
}

// enqueueAll runs the calls in async mode, waits for every callback and
// returns how many failed.
func (s *session) enqueueAll(ctx context.Context, reqs []request, calls []*clients.Call[json.RawMessage]) (int, error) {
	outcomes := make(chan bool, len(calls))

	for i, call := range calls {
		r := reqs[i]
		dispatch.Enqueue(ctx, s.runtime.Dispatcher, call,
			func(resp *clients.Response[json.RawMessage]) {
				outcomes <- s.out.response(r, resp)
			},
			func(apiErr *domain.APIError) {
				s.out.apiError(r, apiErr)
				outcomes <- false
			},
		)
	}

	var failed int
	for range calls {
		select {
		case ok := <-outcomes:
			if !ok {
				failed++
			}
		case <-ctx.Done():
			return failed, fmt.Errorf("waiting for async calls: %w", ctx.Err())
		}
	}

	return failed, nil
}

func (s *session) writeMetrics(w io.Writer) error {
	families, err := s.registry.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}

	var errs []error
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
