package clients

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
)

// Doer executes a prepared request. *Client implements it; so does any
// wrapper around *http.Client.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// DoerFunc adapts a function to the Doer interface.
type DoerFunc func(ctx context.Context, req *http.Request) (*http.Response, error)

// Do calls f(ctx, req).
func (f DoerFunc) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	return f(ctx, req)
}

// Response is the outcome of a call that reached the server.
type Response[T any] struct {
	// Raw is the underlying response. Its body has been consumed.
	Raw *http.Response

	// Body is the decoded payload of a successful response.
	// Nil when the server sent no content.
	Body *T

	// ErrorBody is the unread body of a failed response.
	// Nil when the server sent none. Whoever reads it must close it.
	ErrorBody io.ReadCloser
}

// IsSuccessful reports whether the status code is in the 2xx range.
func (r *Response[T]) IsSuccessful() bool {
	return r.Raw.StatusCode >= http.StatusOK && r.Raw.StatusCode < http.StatusMultipleChoices
}

// StatusCode returns the HTTP status code.
func (r *Response[T]) StatusCode() int {
	return r.Raw.StatusCode
}

// Message returns the status text, "Not Found" for "404 Not Found".
func (r *Response[T]) Message() string {
	msg := strings.TrimSpace(strings.TrimPrefix(r.Raw.Status, strconv.Itoa(r.Raw.StatusCode)))
	if msg == "" {
		return http.StatusText(r.Raw.StatusCode)
	}
	return msg
}

// Header returns the response headers.
func (r *Response[T]) Header() http.Header {
	return r.Raw.Header
}

// Request returns the request that produced this response.
func (r *Response[T]) Request() *http.Request {
	return r.Raw.Request
}

// String returns a one-line summary of the response.
func (r *Response[T]) String() string {
	url := ""
	if r.Raw.Request != nil && r.Raw.Request.URL != nil {
		url = r.Raw.Request.URL.String()
	}

	return fmt.Sprintf("Response{protocol=%s, code=%d, message=%s, url=%s}",
		r.Raw.Proto, r.Raw.StatusCode, r.Message(), url)
}

// Callback receives the completion of an enqueued call.
// Exactly one of its methods is invoked, once.
type Callback[T any] interface {
	// OnResponse is invoked when the server answered, successfully or not.
	OnResponse(call *Call[T], resp *Response[T])

	// OnFailure is invoked when no response could be obtained or decoded.
	OnFailure(call *Call[T], err error)
}

// Call is a prepared request bound to a transport and a converter set.
// A Call can be executed more than once; each execution sends the request again.
type Call[T any] struct {
	doer       Doer
	req        *http.Request
	converters []Converter
}

// NewCall binds req to doer. Converters are tried in order; with none, JSON is used.
func NewCall[T any](doer Doer, req *http.Request, converters ...Converter) *Call[T] {
	if len(converters) == 0 {
		converters = []Converter{JSONConverter{}}
	}

	return &Call[T]{
		doer:       doer,
		req:        req,
		converters: converters,
	}
}

// Request returns the prepared request.
func (c *Call[T]) Request() *http.Request {
	return c.req
}

// Execute sends the request on the calling goroutine.
//
// It returns an error only for transport faults: no response, or a success
// response whose body could not be decoded. Any response the server sent,
// including 4xx and 5xx, comes back as a Response.
func (c *Call[T]) Execute(ctx context.Context) (*Response[T], error) {
	raw, err := c.doer.Do(ctx, c.req)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("%s %s: %w", c.req.Method, c.req.URL.Path, ErrNoResponse)
	}
	if raw.Body == nil {
		raw.Body = http.NoBody
	}

	resp := &Response[T]{Raw: raw}

	if !resp.IsSuccessful() {
		if hasBody(raw) {
			resp.ErrorBody = raw.Body
		} else {
			_ = raw.Body.Close()
		}
		return resp, nil
	}

	defer func() { _ = raw.Body.Close() }()

	body, err := c.decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decoding %s %s response: %w", c.req.Method, c.req.URL.Path, err)
	}
	resp.Body = body

	return resp, nil
}

// Enqueue sends the request on a new goroutine and reports the outcome to cb.
func (c *Call[T]) Enqueue(ctx context.Context, cb Callback[T]) {
	go func() {
		resp, err := c.Execute(ctx)
		if err != nil {
			cb.OnFailure(c, err)
			return
		}
		cb.OnResponse(c, resp)
	}()
}

// decode converts the body of a successful response. Empty bodies yield nil.
func (c *Call[T]) decode(raw *http.Response) (*T, error) {
	if raw.StatusCode == http.StatusNoContent || raw.StatusCode == http.StatusResetContent || !hasBody(raw) {
		return nil, nil
	}

	data, err := io.ReadAll(raw.Body)
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var v T
	conv, err := c.converterFor(raw.Header.Get("Content-Type"), &v)
	if err != nil {
		return nil, err
	}

	if err := conv.Decode(data, &v); err != nil {
		return nil, err
	}

	return &v, nil
}

// converterFor picks the first converter accepting the media type.
// A response without a content type is treated as JSON, and goes to the
// first converter when none accepts JSON.
func (c *Call[T]) converterFor(contentType string, v any) (Converter, error) {
	mediaType := MediaTypeJSON
	if contentType != "" {
		var err error
		if mediaType, _, err = mime.ParseMediaType(contentType); err != nil {
			return nil, fmt.Errorf("parsing content type %q: %w", contentType, err)
		}
	}

	for _, conv := range c.converters {
		if conv.Accepts(mediaType, v) {
			return conv, nil
		}
	}

	if contentType == "" {
		return c.converters[0], nil
	}

	return nil, fmt.Errorf("%w: %s", ErrNoConverter, mediaType)
}

func hasBody(raw *http.Response) bool {
	return raw.Body != nil && raw.Body != http.NoBody && raw.ContentLength != 0
}
