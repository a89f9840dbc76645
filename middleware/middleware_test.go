package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HSouheill/alumni_backend/models"
)

func ok(c echo.Context) error {
	return c.String(http.StatusOK, GetCredential(c))
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRateLimit(t *testing.T) {
	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter()
	defer limiter.Stop()
	limiter.now = func() time.Time { return clock }

	e := echo.New()
	e.Use(limiter.RateLimit())
	e.POST("/api/otp/send", ok)
	e.GET("/api/users", ok)
	e.GET("/uploads/*", ok)

	send := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/otp/send", nil)
		req.Header.Set(echo.HeaderXRealIP, ip)
		return serve(e, req)
	}

	for i := 0; i < 5; i++ {
		require.Equal(t, http.StatusOK, send("10.0.0.1").Code, "request %d", i+1)
	}

	rec := send("10.0.0.1")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	var body models.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "rate_limited", body.Kind)
	assert.Equal(t, 300, body.RetryAfterSeconds)

	// the block is confined to the exhausted endpoint
	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
	assert.Equal(t, http.StatusOK, serve(e, req).Code)

	clock = clock.Add(time.Minute)
	rec = send("10.0.0.1")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 240, body.RetryAfterSeconds)

	req = httptest.NewRequest(http.MethodGet, "/uploads/profiles/a.jpg", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
	assert.Equal(t, http.StatusOK, serve(e, req).Code)

	assert.Equal(t, http.StatusOK, send("10.0.0.2").Code)

	limiter.mu.Lock()
	assert.Contains(t, limiter.blocked, "10.0.0.1|/api/otp/send")
	assert.NotContains(t, limiter.blocked, "10.0.0.1")
	limiter.mu.Unlock()

	clock = clock.Add(4*time.Minute + time.Second)
	assert.Equal(t, http.StatusOK, send("10.0.0.1").Code)

	limiter.cleanup()
	limiter.mu.Lock()
	assert.Empty(t, limiter.blocked)
	limiter.mu.Unlock()
}

func TestRateLimitGeneralBlockSparesStrictEndpoints(t *testing.T) {
	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter()
	defer limiter.Stop()
	limiter.now = func() time.Time { return clock }

	e := echo.New()
	e.Use(limiter.RateLimit())
	e.POST("/api/otp/send", ok)
	e.GET("/api/users", ok)

	list := func() int {
		req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
		req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
		return serve(e, req).Code
	}
	for i := 0; i < 20; i++ {
		require.Equal(t, http.StatusOK, list(), "request %d", i+1)
	}
	require.Equal(t, http.StatusTooManyRequests, list())

	req := httptest.NewRequest(http.MethodPost, "/api/otp/send", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
	assert.Equal(t, http.StatusOK, serve(e, req).Code)
}

func TestRequireBearer(t *testing.T) {
	e := echo.New()
	e.PUT("/api/profile", ok, RequireBearer())

	for _, header := range []string{"", "Bearer ", "Basic abc", "bearer abc"} {
		req := httptest.NewRequest(http.MethodPut, "/api/profile", nil)
		if header != "" {
			req.Header.Set(echo.HeaderAuthorization, header)
		}
		assert.Equal(t, http.StatusUnauthorized, serve(e, req).Code, header)
	}

	req := httptest.NewRequest(http.MethodPut, "/api/profile", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer abc.def.ghi")
	rec := serve(e, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc.def.ghi", rec.Body.String())
}

func TestRequireAdminKey(t *testing.T) {
	e := echo.New()
	e.PUT("/admin", ok, RequireAdminKey("letmein"))
	e.PUT("/unset", ok, RequireAdminKey(""))

	req := httptest.NewRequest(http.MethodPut, "/admin", nil)
	assert.Equal(t, http.StatusForbidden, serve(e, req).Code)

	req.Header.Set(HeaderAdminKey, "nope")
	assert.Equal(t, http.StatusForbidden, serve(e, req).Code)

	req.Header.Set(HeaderAdminKey, "letmein")
	assert.Equal(t, http.StatusOK, serve(e, req).Code)

	req = httptest.NewRequest(http.MethodPut, "/unset", nil)
	req.Header.Set(HeaderAdminKey, "")
	assert.Equal(t, http.StatusForbidden, serve(e, req).Code)
}

func TestRequireContentType(t *testing.T) {
	e := echo.New()
	e.Use(RequireContentType())
	e.POST("/api/otp/send", ok)

	post := func(contentType string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/otp/send", strings.NewReader("x=1"))
		req.Header.Set(echo.HeaderContentType, contentType)
		return serve(e, req).Code
	}

	assert.Equal(t, http.StatusOK, post("application/json"))
	assert.Equal(t, http.StatusOK, post("application/json; charset=utf-8"))
	assert.Equal(t, http.StatusOK, post("multipart/form-data; boundary=xyz"))
	assert.Equal(t, http.StatusUnsupportedMediaType, post("text/xml"))
	assert.Equal(t, http.StatusUnsupportedMediaType, post(""))
}

func TestSecurityHeaders(t *testing.T) {
	e := echo.New()
	e.Use(SecurityHeadersWithConfig(SecurityConfig{HSTS: true, ImageHosts: []string{"https://minio.example.com"}}))
	e.GET("/health", ok)

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "default-src 'none'; img-src 'self' data: https://minio.example.com; frame-ancestors 'none'",
		rec.Header().Get("Content-Security-Policy"))
	assert.NotEmpty(t, rec.Header().Get("Strict-Transport-Security"))
}
