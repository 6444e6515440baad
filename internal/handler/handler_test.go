package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/active-breaks/internal/auth"
	"github.com/iliyamo/active-breaks/internal/config"
	"github.com/iliyamo/active-breaks/internal/handler"
	"github.com/iliyamo/active-breaks/internal/history"
	"github.com/iliyamo/active-breaks/internal/middleware"
	"github.com/iliyamo/active-breaks/internal/ratelimit"
	"github.com/iliyamo/active-breaks/internal/repository"
	"github.com/iliyamo/active-breaks/internal/router"
	"github.com/iliyamo/active-breaks/internal/settings"
	"github.com/iliyamo/active-breaks/internal/utils"
)

const cookieName = "pausas_refresh_token"

type app struct {
	e       *echo.Echo
	limiter *ratelimit.SlidingWindow
	auth    *auth.Service
}

func newApp(t *testing.T) *app {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := repository.NewMemoryStore()
	codec, err := utils.NewTokenCodec("access-secret", "refresh-secret", 15*time.Minute, 14*24*time.Hour, nil)
	require.NoError(t, err)
	authSvc := auth.NewService(store, codec, utils.NewBcryptHasher(4), nil, log, auth.Config{})

	rl := config.RateLimitConfig{Enabled: true, Limit: 30, Window: time.Minute, RetryAfter: time.Minute, Prefix: "rl"}
	limiter := ratelimit.NewSlidingWindow(rl.Limit, rl.Window, rl.RetryAfter, nil)

	e := echo.New()
	e.Use(middleware.RequestLogger(log))
	router.RegisterRoutes(e, nil)
	router.RegisterAuth(e, handler.NewAuthHandler(authSvc, handler.CookieConfig{Name: cookieName, Secure: true}), authSvc, limiter, rl)
	router.RegisterSettings(e, handler.NewSettingsHandler(settings.NewService(store, nil)), authSvc)
	router.RegisterHistory(e, handler.NewHistoryHandler(history.NewService(store, log)), authSvc)
	return &app{e: e, limiter: limiter, auth: authSvc}
}

type call struct {
	method, path string
	body         any
	bearer       string
	cookie       *http.Cookie
	remote       string
}

func (a *app) do(t *testing.T, c call) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if c.body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(c.body))
	}
	req := httptest.NewRequest(c.method, c.path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if c.bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+c.bearer)
	}
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	if c.remote != "" {
		req.RemoteAddr = c.remote
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func refreshCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == cookieName {
			return ck
		}
	}
	t.Fatalf("no %s cookie in response", cookieName)
	return nil
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

type authBody struct {
	AccessToken string `json:"access_token"`
	User        struct {
		ID            string `json:"id"`
		Email         string `json:"email"`
		IsActive      bool   `json:"is_active"`
		EmailVerified bool   `json:"email_verified"`
	} `json:"user"`
}

func TestAuthFlow(t *testing.T) {
	a := newApp(t)
	creds := map[string]string{"email": "Ana@Example.com", "password": "s3cret-pass"}

	rec := a.do(t, call{method: http.MethodPost, path: "/auth/register", body: creds})
	require.Equal(t, http.StatusCreated, rec.Code)
	reg := decode[authBody](t, rec)
	require.Equal(t, "ana@example.com", reg.User.Email)
	require.True(t, reg.User.IsActive)
	require.NotEmpty(t, reg.AccessToken)
	regCookie := refreshCookie(t, rec)
	require.True(t, regCookie.HttpOnly)
	require.True(t, regCookie.Secure)
	require.Equal(t, http.SameSiteLaxMode, regCookie.SameSite)
	require.Equal(t, "/", regCookie.Path)
	require.Equal(t, 14*24*3600, regCookie.MaxAge)

	rec = a.do(t, call{method: http.MethodPost, path: "/auth/register", body: creds})
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(t, call{method: http.MethodPost, path: "/auth/login", body: map[string]string{"email": "ana@example.com", "password": "wrong-pass"}})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "invalid credentials", decode[map[string]string](t, rec)["error"])

	rec = a.do(t, call{method: http.MethodPost, path: "/auth/login", body: creds})
	require.Equal(t, http.StatusOK, rec.Code)
	loginCookie := refreshCookie(t, rec)
	require.NotEqual(t, regCookie.Value, loginCookie.Value)

	rec = a.do(t, call{method: http.MethodGet, path: "/auth/me", bearer: reg.AccessToken})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, reg.User.ID, decode[map[string]any](t, rec)["id"])

	rec = a.do(t, call{method: http.MethodGet, path: "/auth/me"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// Rotation: the new cookie works once, the old one never again.
	rec = a.do(t, call{method: http.MethodPost, path: "/auth/refresh", cookie: loginCookie})
	require.Equal(t, http.StatusOK, rec.Code)
	rotated := refreshCookie(t, rec)
	require.NotEqual(t, loginCookie.Value, rotated.Value)

	rec = a.do(t, call{method: http.MethodPost, path: "/auth/refresh", cookie: loginCookie})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "invalid session", decode[map[string]string](t, rec)["error"])
	require.Equal(t, -1, refreshCookie(t, rec).MaxAge)

	rec = a.do(t, call{method: http.MethodPost, path: "/auth/refresh"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(t, call{method: http.MethodPost, path: "/auth/logout", cookie: rotated})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, true, decode[map[string]bool](t, rec)["ok"])
	require.Equal(t, -1, refreshCookie(t, rec).MaxAge)

	rec = a.do(t, call{method: http.MethodPost, path: "/auth/refresh", cookie: rotated})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(t, call{method: http.MethodPost, path: "/auth/forgot-password", body: map[string]string{"email": "ghost@example.com"}})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, call{method: http.MethodPost, path: "/auth/reset-password", body: map[string]string{"token": "bogus", "new_password": "brand-new-pass"}})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInactiveBearerIsForbidden(t *testing.T) {
	a := newApp(t)
	creds := map[string]string{"email": "ana@example.com", "password": "s3cret-pass"}

	rec := a.do(t, call{method: http.MethodPost, path: "/auth/register", body: creds})
	require.Equal(t, http.StatusCreated, rec.Code)
	reg := decode[authBody](t, rec)

	_, err := a.auth.SetActive(context.Background(), "ana@example.com", false)
	require.NoError(t, err)

	rec = a.do(t, call{method: http.MethodGet, path: "/auth/me", bearer: reg.AccessToken})
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "user inactive", decode[map[string]string](t, rec)["error"])

	rec = a.do(t, call{method: http.MethodGet, path: "/settings/me", bearer: reg.AccessToken})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(t, call{method: http.MethodGet, path: "/auth/me", bearer: "not-a-token"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "invalid session", decode[map[string]string](t, rec)["error"])
}

func TestAuthRateLimit(t *testing.T) {
	a := newApp(t)
	body := map[string]string{"email": "ana@example.com", "password": "wrong-pass"}

	for i := 0; i < 30; i++ {
		rec := a.do(t, call{method: http.MethodPost, path: "/auth/login", body: body, remote: "203.0.113.7:5000"})
		require.Equal(t, http.StatusUnauthorized, rec.Code, "request %d", i+1)
	}
	rec := a.do(t, call{method: http.MethodPost, path: "/auth/login", body: body, remote: "203.0.113.7:5000"})
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "60", rec.Header().Get("Retry-After"))
	out := decode[map[string]any](t, rec)
	require.Equal(t, "too_many_requests", out["error"])
	require.Equal(t, float64(60), out["retry_after"])

	// Other clients and other paths keep their own windows.
	rec = a.do(t, call{method: http.MethodPost, path: "/auth/login", body: body, remote: "198.51.100.2:5000"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = a.do(t, call{method: http.MethodPost, path: "/auth/forgot-password", body: map[string]string{"email": "x@example.com"}, remote: "203.0.113.7:5000"})
	require.Equal(t, http.StatusOK, rec.Code)
}

func register(t *testing.T, a *app, email string) string {
	t.Helper()
	rec := a.do(t, call{method: http.MethodPost, path: "/auth/register", body: map[string]string{"email": email, "password": "s3cret-pass"}})
	require.Equal(t, http.StatusCreated, rec.Code)
	return decode[authBody](t, rec).AccessToken
}

func TestSettingsEndpoints(t *testing.T) {
	a := newApp(t)
	token := register(t, a, "ana@example.com")

	rec := a.do(t, call{method: http.MethodGet, path: "/settings/me", bearer: token})
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[map[string]any](t, rec)
	require.Equal(t, 0.5, got["alarmVolume"])
	require.Equal(t, float64(120), got["workIntervalMinutes"])
	require.Nil(t, got["disclaimerAcceptedAt"])

	got["alarmVolume"] = 1.7
	got["theme"] = "light"
	got["disclaimerAccepted"] = true
	got["disclaimerAcceptedAt"] = "2026-04-06T10:00:00Z"
	rec = a.do(t, call{method: http.MethodPut, path: "/settings/me", bearer: token, body: got})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[map[string]any](t, rec)
	require.Equal(t, float64(1), updated["alarmVolume"])
	require.Equal(t, "light", updated["theme"])
	require.Equal(t, "2026-04-06T10:00:00Z", updated["disclaimerAcceptedAt"])

	got["workStartHour"] = 30
	rec = a.do(t, call{method: http.MethodPut, path: "/settings/me", bearer: token, body: got})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, call{method: http.MethodGet, path: "/settings/me"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHistoryEndpoints(t *testing.T) {
	a := newApp(t)
	token := register(t, a, "ana@example.com")
	other := register(t, a, "bob@example.com")

	rec := a.do(t, call{method: http.MethodPost, path: "/history/sessions", bearer: token, body: map[string]any{
		"date":                   "2026-04-06",
		"startedAt":              "2026-04-06T09:00:00Z",
		"exerciseIds":            []string{"visual-20-20-20"},
		"durationPlannedSeconds": 600,
	}})
	require.Equal(t, http.StatusOK, rec.Code)
	sess := decode[map[string]any](t, rec)
	id := sess["id"].(string)
	require.Equal(t, false, sess["completed"])
	require.Nil(t, sess["completedAt"])

	complete := map[string]any{"completedAt": "2026-04-06T09:10:00Z", "durationActualSeconds": 590}
	rec = a.do(t, call{method: http.MethodPatch, path: "/history/sessions/" + id + "/complete", bearer: other, body: complete})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(t, call{method: http.MethodPatch, path: "/history/sessions/" + id + "/complete", bearer: token, body: complete})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, true, decode[map[string]any](t, rec)["completed"])

	rec = a.do(t, call{method: http.MethodPatch, path: "/history/sessions/" + id + "/complete", bearer: token, body: complete})
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(t, call{method: http.MethodGet, path: "/history/daily-records?from=2026-04-01&to=2026-04-30", bearer: token})
	require.Equal(t, http.StatusOK, rec.Code)
	recs := decode[[]map[string]any](t, rec)
	require.Len(t, recs, 1)
	require.Equal(t, "2026-04-06", recs[0]["date"])
	require.Equal(t, float64(4), recs[0]["sessionsExpected"])
	require.Equal(t, float64(25), recs[0]["compliancePercent"])

	rec = a.do(t, call{method: http.MethodPut, path: "/history/daily-records/2026-04-06/expected", bearer: token, body: map[string]int{"sessionsExpected": 2}})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, float64(50), decode[map[string]any](t, rec)["compliancePercent"])

	rec = a.do(t, call{method: http.MethodPut, path: "/history/daily-records/2026-04-06/expected", bearer: token, body: map[string]int{"sessionsExpected": -1}})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, call{method: http.MethodGet, path: "/history/sessions?from=2026-04-06&to=2026-04-06", bearer: token})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[[]map[string]any](t, rec), 1)

	rec = a.do(t, call{method: http.MethodGet, path: "/history/sessions?from=2026-04-06&to=2026-04-06", bearer: other})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[[]map[string]any](t, rec), 0)

	rec = a.do(t, call{method: http.MethodGet, path: "/history/sessions?from=bad&to=2026-04-06", bearer: token})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	a := newApp(t)
	rec := a.do(t, call{method: http.MethodGet, path: "/healthz"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = a.do(t, call{method: http.MethodGet, path: "/readyz"})
	require.Equal(t, http.StatusOK, rec.Code)
}
