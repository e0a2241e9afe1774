package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/jsamuelsen/restcall/internal/adapters/clients"
	"github.com/jsamuelsen/restcall/internal/dispatch"
	"github.com/jsamuelsen/restcall/internal/domain"
)

// printer writes payloads to out and failures to errOut. Async callbacks
// share it, so every write holds the lock.
type printer struct {
	mu         sync.Mutex
	out        io.Writer
	errOut     io.Writer
	allowEmpty []int
}

func newPrinter(out, errOut io.Writer, allowEmpty []int) *printer {
	return &printer{out: out, errOut: errOut, allowEmpty: allowEmpty}
}

// response prints a response that reached the caller and reports whether it
// counts as a success.
func (p *printer) response(r request, resp *clients.Response[json.RawMessage]) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !resp.IsSuccessful() {
		// A handler swallowed the failure; the normalized error was printed there.
		return false
	}

	if dispatch.IsEmptyBodyError(resp, p.allowEmpty...) {
		fmt.Fprintf(p.errOut, "%s: %d %s: empty body\n", r, resp.StatusCode(), resp.Message())
		return false
	}

	if resp.Body == nil {
		fmt.Fprintf(p.out, "%s: %d %s\n", r, resp.StatusCode(), resp.Message())
		return true
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, *resp.Body, "", "  "); err != nil {
		buf.Reset()
		buf.Write(*resp.Body)
	}
	buf.WriteByte('\n')

	_, _ = p.out.Write(buf.Bytes())

	return true
}

// failure prints the error of a blocking call.
func (p *printer) failure(r request, err error) {
	var unhandled *domain.UnhandledError
	if errors.As(err, &unhandled) {
		p.apiError(r, unhandled.APIError)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.errOut, "%s: transport error: %v\n", r, err)
}

// apiError prints a normalized error with its log message indented below.
func (p *printer) apiError(r request, apiErr *domain.APIError) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.errOut, "%s: %d %s\n", r, apiErr.StatusCode(), apiErr.UserMessage())

	if msg := apiErr.LogMessage(); msg != "" {
		for line := range strings.Lines(msg) {
			fmt.Fprintf(p.errOut, "    %s", line)
		}
		fmt.Fprintln(p.errOut)
	}

	if cause := apiErr.Cause(); cause != nil {
		fmt.Fprintf(p.errOut, "    cause: %v\n", cause)
	}
}
