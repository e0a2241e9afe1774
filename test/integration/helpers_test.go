//go:build integration

package integration

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/restcall/internal/app"
	"github.com/jsamuelsen/restcall/internal/platform/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// loadConfig loads and validates the configuration with env applied on top
// of the defaults.
func loadConfig(t *testing.T, env map[string]string) *config.Config {
	t.Helper()

	for k, v := range env {
		t.Setenv(k, v)
	}

	cfg, err := config.Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	return cfg
}

// startRuntime serves handler and assembles a runtime pointed at it under /v1.
// Retries are fast and the circuit breaker tolerant unless env says otherwise.
func startRuntime(t *testing.T, handler http.HandlerFunc, env map[string]string, opts app.Options) *app.Runtime {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	merged := map[string]string{
		"APP_DISPATCHER_BASE_URL":                server.URL + "/v1",
		"APP_CLIENT_RETRY_MAX_ATTEMPTS":          "1",
		"APP_CLIENT_RETRY_INITIAL_INTERVAL":      "10ms",
		"APP_CLIENT_RETRY_MAX_INTERVAL":          "100ms",
		"APP_CLIENT_CIRCUIT_BREAKER_MAX_FAILURES": "100",
	}
	for k, v := range env {
		merged[k] = v
	}

	if opts.Logger == nil {
		opts.Logger = discardLogger()
	}

	rt, err := app.New(loadConfig(t, merged), opts)
	require.NoError(t, err)

	return rt
}
