package dispatch

import (
	"bytes"
	"io"
	"strings"

	"github.com/jsamuelsen/restcall/internal/adapters/clients"
	"github.com/jsamuelsen/restcall/internal/domain"
)

// buildError normalizes a failed response. The branch order decides which
// diagnostic text ends up in the log message:
//
//   - debug with a body and no parser: header, then "\nBody:" and the body;
//     a body that cannot be read leaves the header alone
//   - debug with a body and a parser: the parser's result, header prepended
//   - debug without a body: the header
//   - no debug, parser and body: the parser's result, summary prepended
//   - anything else: no log message
//
// The error body is always closed.
func buildError[T any](resp *clients.Response[T], debug bool, parser ErrorBodyParser) *domain.APIError {
	apiErr := domain.NewAPIError(resp.StatusCode()).WithUserMessage(resp.Message())

	body := resp.ErrorBody
	if body != nil {
		defer func() { _ = body.Close() }()
	}

	if debug {
		header := diagnosticHeader(resp)

		if body == nil {
			return apiErr.WithLogMessage(header)
		}

		if parser == nil {
			text, err := io.ReadAll(body)
			if err != nil {
				return apiErr.WithLogMessage(header)
			}
			return apiErr.WithLogMessage(header + "\nBody:" + string(text))
		}

		return parse(parser, body, apiErr).PrependLogMessage(header)
	}

	if parser != nil && body != nil {
		return parse(parser, body, apiErr).PrependLogMessage(resp.String())
	}

	return apiErr
}

// parse hands the parser whatever could be read, even after a read failure.
func parse(parser ErrorBodyParser, body io.Reader, apiErr *domain.APIError) *domain.APIError {
	data, _ := io.ReadAll(body)

	if parsed := parser.Parse(data, apiErr); parsed != nil {
		return parsed
	}
	return apiErr
}

// diagnosticHeader renders the request line, the response headers and the
// response summary on three lines.
func diagnosticHeader[T any](resp *clients.Response[T]) string {
	var b strings.Builder

	if req := resp.Request(); req != nil {
		b.WriteString(req.Method)
		b.WriteByte(' ')
		if req.URL != nil {
			b.WriteString(req.URL.String())
		}
	}

	b.WriteString("\nHeaders{")
	b.WriteString(flattenHeaders(resp))
	b.WriteString("}\n")
	b.WriteString(resp.String())

	return b.String()
}

// flattenHeaders writes the headers in wire format, sorted by name, with the
// line separators replaced by ", " and the trailing one trimmed.
func flattenHeaders[T any](resp *clients.Response[T]) string {
	if len(resp.Header()) == 0 {
		return ""
	}

	var buf bytes.Buffer
	if err := resp.Header().Write(&buf); err != nil {
		return ""
	}

	return strings.TrimSuffix(strings.ReplaceAll(buf.String(), "\r\n", ", "), ", ")
}
