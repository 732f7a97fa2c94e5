package httpclient

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func makeResponse(statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"json message", 400, `{"code":"ko","message":"Invalid Token"}`, "Invalid Token"},
		{"json error", 401, `{"error":"bad key"}`, "bad key"},
		{"plain text", 429, "  slow down \n", "slow down"},
		{"empty body", 403, "", "http 403"},
		{"json without message", 404, `{"code":"ko"}`, "http 404"},
		{"html page", 502, "<html>bad gateway</html>", "http 502"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorMessage(makeResponse(tt.status, tt.body)))
		})
	}
}

func TestServerError_Error(t *testing.T) {
	err := &ServerError{StatusCode: 503, Body: "maintenance"}
	assert.Equal(t, "server error 503: maintenance", err.Error())
}

func TestServerError_Message(t *testing.T) {
	assert.Equal(t, "maintenance", (&ServerError{StatusCode: 503, Body: "maintenance"}).Message())
	assert.Equal(t, "Down", (&ServerError{StatusCode: 500, Body: `{"message":"Down"}`}).Message())
	assert.Equal(t, "http 502", (&ServerError{StatusCode: 502}).Message())
}
