package dispatch

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/restcall/internal/adapters/clients"
)

func TestNew_Validation(t *testing.T) {
	t.Run("transport required", func(t *testing.T) {
		_, err := New(Config{BaseURL: testBaseURL})
		assert.ErrorIs(t, err, ErrNoTransport)
	})

	tests := []struct {
		name    string
		baseURL string
	}{
		{"relative", "api/v1"},
		{"unsupported scheme", "ftp://files.example.com"},
		{"no host", "https://"},
		{"malformed", "http://[::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(Config{BaseURL: tt.baseURL, Transport: respond(200, "", nil)})
			assert.ErrorIs(t, err, ErrInvalidBaseURL)
		})
	}

	t.Run("base url optional", func(t *testing.T) {
		d, err := New(Config{Transport: respond(200, "", nil)})
		require.NoError(t, err)
		assert.Nil(t, d.BaseURL())
	})
}

func TestNew_CopiesConfig(t *testing.T) {
	converters := []clients.Converter{clients.JSONConverter{}}
	cfg := Config{
		BaseURL:    testBaseURL,
		Transport:  respond(200, "", nil),
		Converters: converters,
		Debug:      true,
	}

	d, err := New(cfg)
	require.NoError(t, err)

	cfg.Debug = false
	converters[0] = clients.ProtobufConverter{}

	assert.True(t, d.Debug())
	assert.Equal(t, clients.JSONConverter{}, d.cfg.Converters[0])
}

func TestDispatcher_BaseURL(t *testing.T) {
	tests := []struct {
		baseURL  string
		expected string
	}{
		{"https://api.example.com", "https://api.example.com/"},
		{"https://api.example.com/", "https://api.example.com/"},
		{"https://api.example.com/v1", "https://api.example.com/v1/"},
		{"https://api.example.com/v1/", "https://api.example.com/v1/"},
	}

	for _, tt := range tests {
		t.Run(tt.baseURL, func(t *testing.T) {
			d := newTestDispatcher(t, respond(200, "", nil), func(c *Config) { c.BaseURL = tt.baseURL })
			assert.Equal(t, tt.expected, d.BaseURL().String())
		})
	}

	t.Run("returned URL is a copy", func(t *testing.T) {
		d := newTestDispatcher(t, respond(200, "", nil))
		d.BaseURL().Path = "/changed/"
		assert.Equal(t, "https://api.example.com/v1/", d.BaseURL().String())
	})
}

func TestDispatcher_NewRequest(t *testing.T) {
	d := newTestDispatcher(t, respond(200, "", nil))

	tests := []struct {
		path     string
		expected string
	}{
		{"users", "https://api.example.com/v1/users"},
		{"users/1?expand=roles", "https://api.example.com/v1/users/1?expand=roles"},
		{"/health", "https://api.example.com/health"},
		{"http://other.example.com/x", "http://other.example.com/x"},
		{"", "https://api.example.com/v1/"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req, err := d.NewRequest(context.Background(), http.MethodGet, tt.path, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, req.URL.String())
			assert.Equal(t, http.MethodGet, req.Method)
		})
	}

	t.Run("body is rewindable", func(t *testing.T) {
		req, err := d.NewRequest(context.Background(), http.MethodPost, "users", strings.NewReader(`{"name":"ada"}`))
		require.NoError(t, err)
		assert.NotNil(t, req.GetBody)
	})

	t.Run("carries context", func(t *testing.T) {
		type key struct{}
		ctx := context.WithValue(context.Background(), key{}, "v")

		req, err := d.NewRequest(ctx, http.MethodGet, "users", nil)
		require.NoError(t, err)
		assert.Equal(t, "v", req.Context().Value(key{}))
	})

	t.Run("relative path without base url", func(t *testing.T) {
		bare, err := New(Config{Transport: respond(200, "", nil)})
		require.NoError(t, err)

		_, err = bare.NewRequest(context.Background(), http.MethodGet, "users", nil)
		assert.ErrorIs(t, err, ErrNoBaseURL)

		req, err := bare.NewRequest(context.Background(), http.MethodGet, "https://api.example.com/users", nil)
		require.NoError(t, err)
		assert.Equal(t, "https://api.example.com/users", req.URL.String())
	})

	t.Run("invalid method", func(t *testing.T) {
		_, err := d.NewRequest(context.Background(), "BAD METHOD", "users", nil)
		assert.Error(t, err)
	})
}

func TestNewCall_UsesConfiguredConverters(t *testing.T) {
	d := newTestDispatcher(t,
		respond(200, `{"id":1}`, http.Header{"Content-Type": {"application/xml"}}),
		func(c *Config) { c.Converters = []clients.Converter{clients.JSONConverter{}} },
	)

	_, err := Execute(context.Background(), d, getUser(t, d), nil)
	assert.ErrorIs(t, err, clients.ErrNoConverter)
}
