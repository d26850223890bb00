package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/topicnav/internal/testutil"
)

func TestLoggingMiddleware(t *testing.T) {
	tests := []struct {
		name          string
		method        string
		path          string
		handlerStatus int
		handlerBody   string
		expectedRoute string
		expectedLevel logrus.Level
	}{
		{
			name:          "navigation request",
			method:        http.MethodPost,
			path:          "/api/v1/sessions/abc/next/camera/front",
			handlerStatus: http.StatusOK,
			handlerBody:   `{"topic":"camera/front"}`,
			expectedRoute: "POST /api/v1/sessions/{id}/next/{topic...}",
			expectedLevel: logrus.InfoLevel,
		},
		{
			name:          "created session",
			method:        http.MethodPost,
			path:          "/api/v1/sessions",
			handlerStatus: http.StatusCreated,
			handlerBody:   `{"id":"abc"}`,
			expectedRoute: "POST /api/v1/sessions",
			expectedLevel: logrus.InfoLevel,
		},
		{
			name:          "unmatched path",
			method:        http.MethodGet,
			path:          "/nowhere",
			handlerStatus: http.StatusNotFound,
			expectedRoute: unmatchedRoute,
			expectedLevel: logrus.InfoLevel,
		},
		{
			name:          "health check",
			method:        http.MethodGet,
			path:          "/health",
			handlerStatus: http.StatusOK,
			handlerBody:   "ok",
			expectedRoute: "GET /health",
			expectedLevel: logrus.DebugLevel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, hook := testutil.NewCapturingLogger()

			respond := func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.handlerStatus)
				_, _ = w.Write([]byte(tt.handlerBody))
			}

			mux := http.NewServeMux()
			mux.HandleFunc("POST /api/v1/sessions/{id}/next/{topic...}", respond)
			mux.HandleFunc("POST /api/v1/sessions", respond)
			mux.HandleFunc("GET /health", respond)

			req := httptest.NewRequest(tt.method, tt.path, http.NoBody)
			req.Header.Set("User-Agent", "test-agent/1.0")
			req.RemoteAddr = "192.168.1.1:12345"

			rec := httptest.NewRecorder()
			Logging(logger)(mux).ServeHTTP(rec, req)

			assert.Equal(t, tt.handlerStatus, rec.Code)

			entry := hook.LastEntry()
			require.NotNil(t, entry)

			assert.Equal(t, "HTTP request completed", entry.Message)
			assert.Equal(t, tt.expectedLevel, entry.Level)
			assert.Equal(t, tt.method, entry.Data["method"])
			assert.Equal(t, tt.path, entry.Data["path"])
			assert.Equal(t, tt.expectedRoute, entry.Data["route"])
			assert.Equal(t, tt.handlerStatus, entry.Data["status"])
			assert.Equal(t, rec.Body.Len(), entry.Data["bytes_written"])
			assert.Equal(t, "192.168.1.1:12345", entry.Data["remote_addr"])
			assert.Equal(t, "test-agent/1.0", entry.Data["user_agent"])
			assert.Contains(t, entry.Data, "duration_ms")
		})
	}
}

func TestResponseWriter_StatusCodeDefault(t *testing.T) {
	logger, hook := testutil.NewCapturingLogger()

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("first "))
		_, _ = w.Write([]byte("second"))
	})

	rec := httptest.NewRecorder()
	Logging(logger)(handler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", http.NoBody))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, http.StatusOK, entry.Data["status"])
	assert.Equal(t, len("first second"), entry.Data["bytes_written"])
}
