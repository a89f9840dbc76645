package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HSouheill/alumni_backend/controllers"
	"github.com/HSouheill/alumni_backend/middleware"
	"github.com/HSouheill/alumni_backend/models"
	"github.com/HSouheill/alumni_backend/services"
	"github.com/HSouheill/alumni_backend/services/servicestest"
)

const adminKey = "admin-key"

type testValidator struct {
	validator *validator.Validate
}

func (v *testValidator) Validate(i interface{}) error {
	return v.validator.Struct(i)
}

type envelope struct {
	Status            int             `json:"status"`
	Message           string          `json:"message"`
	Kind              string          `json:"kind"`
	RemainingAttempts int             `json:"remainingAttempts"`
	RetryAfterSeconds int             `json:"retryAfterSeconds"`
	Data              json.RawMessage `json:"data"`
}

type server struct {
	e         *echo.Echo
	users     *servicestest.Users
	sender    *servicestest.Sender
	uploadDir string
}

type limiterFunc func(ctx context.Context, identifier string) error

func (f limiterFunc) CheckAndIncrement(ctx context.Context, identifier string) error {
	return f(ctx, identifier)
}

func newServer(t *testing.T, limiter services.IssueLimiter) *server {
	t.Helper()

	s := &server{
		users: servicestest.NewUsers(&models.User{
			Email:  "alice@example.com",
			Name:   "Alice",
			Role:   models.RoleStudent,
			Status: models.StatusApproved,
			Phone:  "+15551234567",
		}),
		sender:    &servicestest.Sender{},
		uploadDir: t.TempDir(),
	}
	codes := servicestest.NewCodes()
	images := servicestest.NewImages()
	signer := services.NewCredentialSigner("test-secret")
	if limiter == nil {
		limiter = servicestest.NoLimit{}
	}

	otp := services.NewOTPService(s.users, codes, limiter, s.sender, signer, services.OTPConfig{
		CodeTTL:     5 * time.Minute,
		SessionTTL:  20 * time.Minute,
		MaxAttempts: 5,
		HashCost:    4,
	})

	s.e = echo.New()
	s.e.Validator = &testValidator{validator: validator.New()}
	s.e.Use(middleware.RequireContentType())
	SetupRoutes(s.e, nil, Controllers{
		OTP:     controllers.NewOTPController(otp),
		Profile: controllers.NewProfileController(services.NewProfileService(s.users, codes, images, signer)),
		User:    controllers.NewUserController(services.NewDirectoryService(s.users, images, 4)),
	}, adminKey, s.uploadDir)
	return s
}

func (s *server) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	var body envelope
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func jsonRequest(t *testing.T, method, path string, payload interface{}) *http.Request {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func (s *server) credential(t *testing.T) string {
	t.Helper()
	rec, _ := s.do(t, jsonRequest(t, http.MethodPost, "/api/otp/send", map[string]string{
		"identifier": "alice@example.com", "channel": "email",
	}))
	require.Equal(t, http.StatusOK, rec.Code)

	sent, ok := s.sender.Last()
	require.True(t, ok)

	rec, body := s.do(t, jsonRequest(t, http.MethodPost, "/api/otp/verify", map[string]string{
		"identifier": "alice@example.com", "channel": "email", "code": sent.Code,
	}))
	require.Equal(t, http.StatusOK, rec.Code)

	var verified models.OTPVerifiedResponse
	require.NoError(t, json.Unmarshal(body.Data, &verified))
	require.NotEmpty(t, verified.Credential)
	return verified.Credential
}

func TestOTPProfileFlow(t *testing.T) {
	s := newServer(t, nil)

	rec, body := s.do(t, jsonRequest(t, http.MethodPost, "/api/otp/send", map[string]string{
		"identifier": "alice@example.com", "channel": "email",
	}))
	require.Equal(t, http.StatusOK, rec.Code)
	var sentResp models.OTPSentResponse
	require.NoError(t, json.Unmarshal(body.Data, &sentResp))
	assert.Equal(t, "al***@example.com", sentResp.Destination)
	assert.NotContains(t, rec.Body.String(), "codeHash")

	sent, _ := s.sender.Last()
	wrong := "000000"
	if sent.Code == wrong {
		wrong = "111111"
	}

	rec, body = s.do(t, jsonRequest(t, http.MethodPost, "/api/otp/verify", map[string]string{
		"identifier": "alice@example.com", "channel": "email", "code": wrong,
	}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_code", body.Kind)
	assert.Equal(t, 4, body.RemainingAttempts)

	rec, body = s.do(t, jsonRequest(t, http.MethodPost, "/api/otp/verify", map[string]string{
		"identifier": "alice@example.com", "channel": "email", "code": sent.Code,
	}))
	require.Equal(t, http.StatusOK, rec.Code)
	var verified models.OTPVerifiedResponse
	require.NoError(t, json.Unmarshal(body.Data, &verified))

	update := func(credential string) (*httptest.ResponseRecorder, envelope) {
		req := jsonRequest(t, http.MethodPut, "/api/profile", map[string]interface{}{
			"identifier": "alice@example.com",
			"channel":    "email",
			"fields":     map[string]interface{}{"name": "Alice B", "role": "alumni"},
		})
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+credential)
		return s.do(t, req)
	}

	rec, body = update(verified.Credential)
	require.Equal(t, http.StatusOK, rec.Code)
	var updated models.ProfileUpdatedResponse
	require.NoError(t, json.Unmarshal(body.Data, &updated))
	assert.Equal(t, "Alice B", updated.User.Name)
	assert.Equal(t, []string{"role"}, updated.IgnoredFields)
	assert.NotContains(t, rec.Body.String(), "password")

	rec, body = update(verified.Credential)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", body.Kind)
}

func TestOTPErrors(t *testing.T) {
	t.Run("validation", func(t *testing.T) {
		s := newServer(t, nil)

		rec, body := s.do(t, jsonRequest(t, http.MethodPost, "/api/otp/send", map[string]string{
			"identifier": "alice", "channel": "email",
		}))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "validation", body.Kind)

		rec, _ = s.do(t, jsonRequest(t, http.MethodPost, "/api/otp/send", map[string]string{
			"identifier": "alice@example.com", "channel": "fax",
		}))
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		req := httptest.NewRequest(http.MethodPost, "/api/otp/send", strings.NewReader("{"))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec, _ = s.do(t, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		req = httptest.NewRequest(http.MethodPost, "/api/otp/send", strings.NewReader("<xml/>"))
		req.Header.Set(echo.HeaderContentType, "application/xml")
		rec, _ = s.do(t, req)
		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	})

	t.Run("unknown identifier", func(t *testing.T) {
		s := newServer(t, nil)
		rec, body := s.do(t, jsonRequest(t, http.MethodPost, "/api/otp/send", map[string]string{
			"identifier": "nobody@example.com", "channel": "email",
		}))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "not_found", body.Kind)
	})

	t.Run("no active code", func(t *testing.T) {
		s := newServer(t, nil)
		rec, body := s.do(t, jsonRequest(t, http.MethodPost, "/api/otp/verify", map[string]string{
			"identifier": "alice@example.com", "channel": "email", "code": "123456",
		}))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "no_active_code", body.Kind)
	})

	t.Run("rate limited", func(t *testing.T) {
		s := newServer(t, limiterFunc(func(context.Context, string) error {
			return services.RateLimitedError(90 * time.Second)
		}))
		rec, body := s.do(t, jsonRequest(t, http.MethodPost, "/api/otp/send", map[string]string{
			"identifier": "alice@example.com", "channel": "email",
		}))
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "rate_limited", body.Kind)
		assert.Equal(t, 90, body.RetryAfterSeconds)
		assert.Equal(t, "90", rec.Header().Get("Retry-After"))
	})

	t.Run("delivery failure hides the cause", func(t *testing.T) {
		s := newServer(t, nil)
		s.sender.Fail = assert.AnError
		rec, body := s.do(t, jsonRequest(t, http.MethodPost, "/api/otp/send", map[string]string{
			"identifier": "alice@example.com", "channel": "email",
		}))
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Equal(t, "delivery_failed", body.Kind)
		assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
	})

	t.Run("profile update needs a bearer credential", func(t *testing.T) {
		s := newServer(t, nil)
		rec, _ := s.do(t, jsonRequest(t, http.MethodPut, "/api/profile", map[string]interface{}{
			"identifier": "alice@example.com", "channel": "email", "fields": map[string]string{"name": "x"},
		}))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestMultipartProfileUpdate(t *testing.T) {
	s := newServer(t, nil)
	credential := s.credential(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("identifier", "alice@example.com"))
	require.NoError(t, w.WriteField("channel", "email"))
	require.NoError(t, w.WriteField("headline", "Platform engineer"))
	require.NoError(t, w.WriteField("socialLinks.github", "https://github.com/alice"))
	part, err := w.CreateFormFile("profileImage", "me.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG fake"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPut, "/api/profile", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+credential)

	rec, body := s.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated models.ProfileUpdatedResponse
	require.NoError(t, json.Unmarshal(body.Data, &updated))
	assert.Equal(t, "Platform engineer", updated.User.Headline)
	assert.Equal(t, "https://github.com/alice", updated.User.SocialLinks["github"])
	assert.Equal(t, "/uploads/profiles/me.png", updated.User.ProfileImage)
}

func TestDirectoryRoutes(t *testing.T) {
	s := newServer(t, nil)

	signup := map[string]interface{}{
		"email": "carol@example.com", "password": "correct-horse", "name": "Carol",
		"role": "alumni", "company": "Hooli", "batch": 2015,
	}
	rec, body := s.do(t, jsonRequest(t, http.MethodPost, "/api/users/register", signup))
	require.Equal(t, http.StatusCreated, rec.Code)
	var created models.User
	require.NoError(t, json.Unmarshal(body.Data, &created))
	assert.Equal(t, models.StatusPending, created.Status)

	rec, body = s.do(t, jsonRequest(t, http.MethodPost, "/api/users/register", signup))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", body.Kind)

	signup["password"] = "short"
	rec, _ = s.do(t, jsonRequest(t, http.MethodPost, "/api/users/register", signup))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = s.do(t, httptest.NewRequest(http.MethodGet, "/api/users?role=alumni", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []models.User
	require.NoError(t, json.Unmarshal(body.Data, &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "carol@example.com", listed[0].Email)

	rec, _ = s.do(t, httptest.NewRequest(http.MethodGet, "/api/users?batch=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(t, httptest.NewRequest(http.MethodGet, "/api/users/carol@example.com", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, httptest.NewRequest(http.MethodGet, "/api/users/nobody@example.com", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	approve := httptest.NewRequest(http.MethodPut, "/api/admin/users/carol@example.com/approve", nil)
	rec, _ = s.do(t, approve)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	approve = httptest.NewRequest(http.MethodPut, "/api/admin/users/carol@example.com/approve", nil)
	approve.Header.Set(middleware.HeaderAdminKey, adminKey)
	rec, body = s.do(t, approve)
	require.Equal(t, http.StatusOK, rec.Code)
	var approved models.User
	require.NoError(t, json.Unmarshal(body.Data, &approved))
	assert.Equal(t, models.StatusApproved, approved.Status)
}

func TestHealthAndFiles(t *testing.T) {
	s := newServer(t, nil)

	rec, _ := s.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, os.MkdirAll(filepath.Join(s.uploadDir, "profiles"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(s.uploadDir, "profiles", "a.jpg"), []byte("jpeg"), 0644))

	rec, _ = s.do(t, httptest.NewRequest(http.MethodGet, "/uploads/profiles/a.jpg", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "jpeg", rec.Body.String())

	rec, _ = s.do(t, httptest.NewRequest(http.MethodGet, "/uploads/profiles/missing.jpg", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = s.do(t, httptest.NewRequest(http.MethodGet, "/uploads/profiles", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
