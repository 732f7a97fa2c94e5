package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxErrorBody caps how much of an error response is read into memory.
const maxErrorBody = 64 << 10

// ServerError is returned by CircuitBreakerClient when the upstream answers
// with a 5xx status. The body is kept so callers can surface the upstream message.
type ServerError struct {
	StatusCode int
	Body       string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.StatusCode, e.Body)
}

// Message extracts the upstream message from the body the same way
// ErrorMessage does.
func (e *ServerError) Message() string {
	return messageFromBody(e.StatusCode, []byte(e.Body))
}

// ErrorMessage reads a non-2xx response body and extracts a human readable
// message. JSON bodies with a "message" or "error" field are unwrapped; any
// other body is returned trimmed. An empty body yields "http <status>".
// The body is fully consumed and closed.
func ErrorMessage(resp *http.Response) string {
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return fmt.Sprintf("http %d", resp.StatusCode)
	}
	return messageFromBody(resp.StatusCode, raw)
}

func messageFromBody(status int, raw []byte) string {
	var structured struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(raw, &structured) == nil {
		if structured.Message != "" {
			return structured.Message
		}
		if structured.Error != "" {
			return structured.Error
		}
	}

	text := strings.TrimSpace(string(raw))
	if text == "" || strings.HasPrefix(text, "{") || strings.HasPrefix(text, "<") {
		return fmt.Sprintf("http %d", status)
	}
	return text
}
