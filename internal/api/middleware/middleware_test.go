package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handlers...)
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func get(r http.Handler, remote, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = remote
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimitPerClient(t *testing.T) {
	r := newRouter(RateLimit(RateLimitConfig{RequestsPerSecond: 1, Burst: 1}))

	assert.Equal(t, http.StatusOK, get(r, "10.0.0.1:1000", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(r, "10.0.0.1:1001", "").Code)

	// another client has its own budget
	assert.Equal(t, http.StatusOK, get(r, "10.0.0.2:1000", "").Code)
}

func TestDefaultRateLimitConfig(t *testing.T) {
	cfg := DefaultRateLimitConfig()
	assert.Equal(t, 20, cfg.RequestsPerSecond)
	assert.Equal(t, 40, cfg.Burst)
	assert.Positive(t, cfg.Idle)
}

func TestCORSAllowsConfiguredOrigins(t *testing.T) {
	r := newRouter(CORS(DefaultCORSConfig([]string{"http://localhost:3000"})))

	w := get(r, "10.0.0.1:1000", "http://localhost:3000")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	w = get(r, "10.0.0.1:1000", "http://other.example")
	assert.Equal(t, http.StatusForbidden, w.Code)

	// requests without an Origin header are not cross-origin
	assert.Equal(t, http.StatusOK, get(r, "10.0.0.1:1000", "").Code)
}

func TestRequestLoggerPassesThrough(t *testing.T) {
	r := newRouter(RequestLogger(nil))
	w := get(r, "10.0.0.1:1000", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
}

func TestRequestID(t *testing.T) {
	var seen string
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/ping", func(c *gin.Context) {
		seen = GetRequestID(c)
		c.Status(http.StatusNoContent)
	})

	w := get(r, "10.0.0.1:1000", "")
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "9b2f1c1e-0c1f-4a53-9d8e-2f3c4b5a6d7e")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "9b2f1c1e-0c1f-4a53-9d8e-2f3c4b5a6d7e", seen)

	// malformed ids are replaced
	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "<script>")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.NotEqual(t, "<script>", w.Header().Get(RequestIDHeader))
}
