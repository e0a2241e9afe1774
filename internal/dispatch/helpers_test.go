package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/restcall/internal/adapters/clients"
	"github.com/jsamuelsen/restcall/internal/platform/config"
)

const testBaseURL = "https://api.example.com/v1"

type user struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// trackingBody records whether it was closed and can fail midway.
type trackingBody struct {
	r       io.Reader
	failErr error
	mu      sync.Mutex
	closed  bool
}

func newBody(data string) *trackingBody {
	return &trackingBody{r: strings.NewReader(data)}
}

// newBrokenBody yields data and then fails with err.
func newBrokenBody(data string, err error) *trackingBody {
	return &trackingBody{r: strings.NewReader(data), failErr: err}
}

func (b *trackingBody) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	if err == io.EOF && b.failErr != nil {
		return n, b.failErr
	}
	return n, err
}

func (b *trackingBody) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func (b *trackingBody) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// rawResponse builds the response a server would send for req.
func rawResponse(req *http.Request, status int, header http.Header, body io.ReadCloser, length int64) *http.Response {
	if header == nil {
		header = http.Header{}
	}
	if body == nil {
		body = http.NoBody
	}

	return &http.Response{
		Status:        fmt.Sprintf("%d %s", status, http.StatusText(status)),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          body,
		ContentLength: length,
		Request:       req,
	}
}

// respond returns a transport answering every request with status and body.
func respond(status int, body string, header http.Header) clients.DoerFunc {
	return func(_ context.Context, req *http.Request) (*http.Response, error) {
		if body == "" {
			return rawResponse(req, status, header.Clone(), nil, 0), nil
		}
		return rawResponse(req, status, header.Clone(), newBody(body), int64(len(body))), nil
	}
}

// respondWith returns a transport answering with the given body reader.
func respondWith(status int, body *trackingBody, header http.Header) clients.DoerFunc {
	return func(_ context.Context, req *http.Request) (*http.Response, error) {
		return rawResponse(req, status, header.Clone(), body, -1), nil
	}
}

// fail returns a transport that never produces a response.
func fail(err error) clients.DoerFunc {
	return func(context.Context, *http.Request) (*http.Response, error) {
		return nil, err
	}
}

func newTestDispatcher(t *testing.T, transport clients.Doer, opts ...func(*Config)) *Dispatcher {
	t.Helper()

	cfg := Config{
		BaseURL:   testBaseURL,
		Transport: transport,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	d, err := New(cfg)
	require.NoError(t, err)
	return d
}

func getUser(t *testing.T, d *Dispatcher) *clients.Call[user] {
	t.Helper()

	req, err := d.NewRequest(context.Background(), http.MethodGet, "users/1", nil)
	require.NoError(t, err)
	return NewCall[user](d, req)
}

// failedResponse executes a call against transport and returns the raw
// failed response, bypassing the dispatcher.
func failedResponse(t *testing.T, transport clients.Doer) *clients.Response[user] {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, testBaseURL+"/users/1", nil)
	require.NoError(t, err)

	resp, err := clients.NewCall[user](transport, req).Execute(context.Background())
	require.NoError(t, err)
	require.False(t, resp.IsSuccessful())
	return resp
}

// syncBuffer is a goroutine-safe log sink.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// progressRecorder records progress signals in order.
type progressRecorder struct {
	mu     sync.Mutex
	events []bool
	done   chan struct{}
}

func newProgressRecorder() *progressRecorder {
	return &progressRecorder{done: make(chan struct{}, 1)}
}

func (p *progressRecorder) record(show bool) {
	p.mu.Lock()
	p.events = append(p.events, show)
	p.mu.Unlock()

	if !show {
		p.done <- struct{}{}
	}
}

func (p *progressRecorder) snapshot() []bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]bool(nil), p.events...)
}

func newServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

// newClient returns the instrumented transport with fast retries.
func newClient(t *testing.T) *clients.Client {
	t.Helper()

	client, err := clients.New(&clients.Config{
		ServiceName: "test-downstream",
		Timeout:     2 * time.Second,
		Retry: config.RetryConfig{
			MaxAttempts:     2,
			InitialInterval: time.Millisecond,
			MaxInterval:     5 * time.Millisecond,
			Multiplier:      2.0,
		},
		Circuit: config.CircuitBreakerConfig{
			MaxFailures:   5,
			Timeout:       time.Second,
			HalfOpenLimit: 1,
		},
	})
	require.NoError(t, err)
	return client
}
