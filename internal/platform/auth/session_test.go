package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/crypto/bcrypt"

	"github.com/fotomart/api/internal/platform/requestctx"
)

func newTestSessionManager(t *testing.T, password string) *SessionManager {
	t.Helper()
	mgr, err := NewSessionManager(SessionConfig{
		Secret:   "test-secret",
		Username: "admin",
		Password: password,
	})
	if err != nil {
		t.Fatalf("new session manager: %v", err)
	}
	return mgr
}

func loginCookies(t *testing.T, mgr *SessionManager, username, password string) []*http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/login", nil)
	if err := mgr.Login(rec, req, username, password); err != nil {
		t.Fatalf("login: %v", err)
	}
	return rec.Result().Cookies()
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	mgr := newTestSessionManager(t, "hunter2")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/login", nil)

	if err := mgr.Login(rec, req, "admin", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if err := mgr.Login(rec, req, "intruder", "hunter2"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong username, got %v", err)
	}
	if cookies := rec.Result().Cookies(); len(cookies) != 0 {
		t.Fatalf("expected no cookies on failed login, got %d", len(cookies))
	}
}

func TestLoginIssuesAdminCookie(t *testing.T) {
	mgr := newTestSessionManager(t, "hunter2")
	cookies := loginCookies(t, mgr, "admin", "hunter2")
	if len(cookies) == 0 {
		t.Fatalf("expected session cookie on successful login")
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/status", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	if !mgr.IsAdmin(req) {
		t.Fatalf("expected admin session to be recognised")
	}
}

func TestLoginAcceptsBcryptHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("generate hash: %v", err)
	}
	mgr := newTestSessionManager(t, string(hash))

	cookies := loginCookies(t, mgr, "admin", "hunter2")
	if len(cookies) == 0 {
		t.Fatalf("expected cookie when password matches hash")
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/login", nil)
	if err := mgr.Login(rec, req, "admin", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials against hash, got %v", err)
	}
}

func TestLogoutClearsSession(t *testing.T) {
	mgr := newTestSessionManager(t, "hunter2")
	cookies := loginCookies(t, mgr, "admin", "hunter2")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/logout", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	if err := mgr.Logout(rec, req); err != nil {
		t.Fatalf("logout: %v", err)
	}

	cleared := rec.Result().Cookies()
	if len(cleared) == 0 {
		t.Fatalf("expected expiring cookie on logout")
	}
	if cleared[0].MaxAge >= 0 {
		t.Fatalf("expected negative max-age, got %d", cleared[0].MaxAge)
	}
}

func TestLogoutWithoutSessionIsNoop(t *testing.T) {
	mgr := newTestSessionManager(t, "hunter2")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/logout", nil)
	if err := mgr.Logout(rec, req); err != nil {
		t.Fatalf("logout without session: %v", err)
	}
}

func TestIsAdminRejectsTamperedCookie(t *testing.T) {
	mgr := newTestSessionManager(t, "hunter2")
	cookies := loginCookies(t, mgr, "admin", "hunter2")

	req := httptest.NewRequest(http.MethodGet, "/admin/status", nil)
	for _, c := range cookies {
		c.Value = c.Value + "tampered"
		req.AddCookie(c)
	}
	if mgr.IsAdmin(req) {
		t.Fatalf("expected tampered cookie to be rejected")
	}
}

func TestRequireAdminBlocksAnonymous(t *testing.T) {
	mgr := newTestSessionManager(t, "hunter2")

	called := false
	handler := mgr.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodPost, "/add_product", nil)
	req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "req-7"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if called {
		t.Fatalf("expected handler to be skipped")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error"] != "admin_required" {
		t.Fatalf("expected admin_required error code, got %v", body["error"])
	}
	if body["request_id"] != "req-7" {
		t.Fatalf("expected request id in envelope, got %v", body["request_id"])
	}
}

func TestRequireAdminAllowsSession(t *testing.T) {
	mgr := newTestSessionManager(t, "hunter2")
	cookies := loginCookies(t, mgr, "admin", "hunter2")

	var sawAdmin bool
	handler := mgr.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawAdmin = requestctx.IsAdmin(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPost, "/add_product", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !sawAdmin {
		t.Fatalf("expected admin flag on request context")
	}
}
