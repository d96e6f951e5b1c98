// README: Tests for request id, recovery and per-user rate limiting.
package middleware_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripwise/internal/http/middleware"
)

func newTestRouter(buf *bytes.Buffer, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logging(zerolog.New(buf)), middleware.Recovery())
	r.Use(extra...)
	r.GET("/ok/:user_id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"request_id": middleware.RequestIDFrom(c)})
	})
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	return r
}

func get(r http.Handler, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequestID_GeneratedAndPropagated(t *testing.T) {
	var buf bytes.Buffer
	r := newTestRouter(&buf)

	w := get(r, "/ok/alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	id := w.Header().Get(middleware.RequestIDHeader)
	_, err := uuid.Parse(id)
	require.NoError(t, err)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, id, line["request_id"])
	assert.Equal(t, "/ok/:user_id", line["path"])
	assert.EqualValues(t, 200, line["status"])
}

func TestRequestID_ReusesValidHeader(t *testing.T) {
	var buf bytes.Buffer
	r := newTestRouter(&buf)
	want := uuid.NewString()

	w := get(r, "/ok/alice", http.Header{middleware.RequestIDHeader: {want}})
	assert.Equal(t, want, w.Header().Get(middleware.RequestIDHeader))

	w = get(r, "/ok/alice", http.Header{middleware.RequestIDHeader: {"not-a-uuid"}})
	assert.NotEqual(t, "not-a-uuid", w.Header().Get(middleware.RequestIDHeader))
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	r := newTestRouter(&buf)

	w := get(r, "/panic", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, w.Body.String())
	assert.Contains(t, buf.String(), "recovered from panic")
}

func TestRateLimit_PerUser(t *testing.T) {
	var buf bytes.Buffer
	limiter := middleware.NewRateLimiter(0.001, 2)
	r := newTestRouter(&buf, limiter.Middleware())

	assert.Equal(t, http.StatusOK, get(r, "/ok/alice", nil).Code)
	assert.Equal(t, http.StatusOK, get(r, "/ok/alice", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, get(r, "/ok/alice", nil).Code)

	// Other users have their own bucket.
	assert.Equal(t, http.StatusOK, get(r, "/ok/bob", nil).Code)
}

func TestRateLimit_Disabled(t *testing.T) {
	limiter := middleware.NewRateLimiter(0, 0)
	for i := 0; i < 50; i++ {
		require.True(t, limiter.Allow("alice"))
	}
}
