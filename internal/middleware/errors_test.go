package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProblem_Render(t *testing.T) {
	problem := Problem{
		Type:   "/errors/not-found",
		Title:  "Not Found",
		Status: http.StatusNotFound,
		Detail: "run abc-123 not found",
		Trace:  "trace-1",
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs/abc-123", nil)
	w := httptest.NewRecorder()
	require.NoError(t, problem.Render(w, req))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))

	var decoded Problem
	require.NoError(t, json.NewDecoder(w.Body).Decode(&decoded))
	assert.Equal(t, problem, decoded)
}

func TestProblemFromStatus(t *testing.T) {
	tests := []struct {
		status    int
		wantType  string
		wantTitle string
	}{
		{http.StatusBadRequest, "/errors/bad-request", "Bad Request"},
		{http.StatusNotFound, "/errors/not-found", "Not Found"},
		{http.StatusMethodNotAllowed, "/errors/method-not-allowed", "Method Not Allowed"},
		{http.StatusConflict, "/errors/conflict", "Conflict"},
		{http.StatusRequestEntityTooLarge, "/errors/payload-too-large", "Payload Too Large"},
		{http.StatusUnsupportedMediaType, "/errors/unsupported-media-type", "Unsupported Media Type"},
		{http.StatusTooManyRequests, "/errors/rate-limit-exceeded", "Too Many Requests"},
		{http.StatusInternalServerError, "/errors/internal-server-error", "Internal Server Error"},
		{http.StatusServiceUnavailable, "/errors/service-unavailable", "Service Unavailable"},
		{http.StatusGatewayTimeout, "/errors/gateway-timeout", "Gateway Timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.wantTitle, func(t *testing.T) {
			problem := ProblemFromStatus(tt.status, "detail", "trace-9")
			assert.Equal(t, tt.status, problem.Status)
			assert.Equal(t, tt.wantType, problem.Type)
			assert.Equal(t, tt.wantTitle, problem.Title)
			assert.Equal(t, "detail", problem.Detail)
			assert.Equal(t, "trace-9", problem.Trace)
		})
	}

	t.Run("unknown status falls back to status text", func(t *testing.T) {
		problem := ProblemFromStatus(http.StatusTeapot, "", "")
		assert.Equal(t, "/errors/unknown", problem.Type)
		assert.Equal(t, http.StatusText(http.StatusTeapot), problem.Title)
	})
}
