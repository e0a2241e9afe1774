package dispatch

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/jsamuelsen/restcall/internal/domain"
)

// ErrorBodyParser extracts application detail from the bytes of an error
// body. It receives the error built so far and returns the error to use;
// since APIError is immutable it returns a modified copy.
type ErrorBodyParser interface {
	Parse(body []byte, apiErr *domain.APIError) *domain.APIError
}

// ErrorBodyParserFunc adapts a function to the ErrorBodyParser interface.
type ErrorBodyParserFunc func(body []byte, apiErr *domain.APIError) *domain.APIError

// Parse calls f(body, apiErr).
func (f ErrorBodyParserFunc) Parse(body []byte, apiErr *domain.APIError) *domain.APIError {
	return f(body, apiErr)
}

// ErrorResponse is the error body shape most JSON APIs send.
// It supports both nested format (error.code/message) and flat format (code/message).
type ErrorResponse struct {
	Error   ErrorDetail `json:"error"`
	Code    string      `json:"code,omitempty"`
	Message string      `json:"message,omitempty"`
}

// ErrorDetail contains the nested error information.
type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// GetCode returns the error code from either nested or top-level format.
func (e *ErrorResponse) GetCode() string {
	if e.Error.Code != "" {
		return e.Error.Code
	}

	return e.Code
}

// GetMessage returns the error message from either nested or top-level format.
func (e *ErrorResponse) GetMessage() string {
	if e.Error.Message != "" {
		return e.Error.Message
	}

	return e.Message
}

// JSONErrorBodyParser reads ErrorResponse bodies.
//
// A message in the body replaces the user message. Code, message and details
// become the log message, details sorted by field. A body that is not an
// ErrorResponse is kept verbatim as the log message so nothing is lost.
type JSONErrorBodyParser struct{}

// Parse implements ErrorBodyParser.
func (JSONErrorBodyParser) Parse(body []byte, apiErr *domain.APIError) *domain.APIError {
	errResp := parseErrorResponse(body)
	if errResp == nil {
		if len(body) == 0 {
			return apiErr
		}
		return apiErr.WithLogMessage(string(body))
	}

	if msg := errResp.GetMessage(); msg != "" {
		apiErr = apiErr.WithUserMessage(msg)
	}

	return apiErr.WithLogMessage(errResp.describe())
}

// parseErrorResponse returns nil unless the body carries a code or a message.
func parseErrorResponse(body []byte) *ErrorResponse {
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil {
		return nil
	}

	if errResp.GetCode() == "" && errResp.GetMessage() == "" {
		return nil
	}

	return &errResp
}

func (e *ErrorResponse) describe() string {
	var b strings.Builder

	fmt.Fprintf(&b, "code=%s message=%s", e.GetCode(), e.GetMessage())

	for _, field := range slices.Sorted(maps.Keys(e.Error.Details)) {
		fmt.Fprintf(&b, "\n  %s: %s", field, e.Error.Details[field])
	}

	return b.String()
}
