package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/fotomart/api/internal/platform/auth"
)

func newAdminSessionRouter(t *testing.T) (chi.Router, *auth.SessionManager) {
	t.Helper()
	sessions, err := auth.NewSessionManager(auth.SessionConfig{
		Secret:   "test-secret",
		Username: "admin",
		Password: "hunter2",
	})
	if err != nil {
		t.Fatalf("new session manager: %v", err)
	}
	router := chi.NewRouter()
	NewAdminSessionHandlers(sessions).Routes(router)
	return router, sessions
}

func loginAdmin(t *testing.T, router chi.Router) []*http.Cookie {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/admin/login", bytes.NewBufferString(`{"username":"admin","password":"hunter2"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("login failed with status %d: %s", rr.Code, rr.Body.String())
	}
	return rr.Result().Cookies()
}

func TestAdminLoginSuccess(t *testing.T) {
	router, _ := newAdminSessionRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/admin/login", bytes.NewBufferString(`{"username":"admin","password":"hunter2"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if len(rr.Result().Cookies()) == 0 {
		t.Fatalf("expected session cookie on login")
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["message"] != "Login successful" {
		t.Fatalf("expected login message, got %v", body["message"])
	}
	if body["is_admin"] != true {
		t.Fatalf("expected is_admin true, got %v", body["is_admin"])
	}
}

func TestAdminLoginBadCredentials(t *testing.T) {
	router, _ := newAdminSessionRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/admin/login", bytes.NewBufferString(`{"username":"admin","password":"wrong"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error"] != "invalid_credentials" {
		t.Fatalf("expected invalid_credentials, got %v", body["error"])
	}
	if len(rr.Result().Cookies()) != 0 {
		t.Fatalf("expected no cookie on failed login")
	}
}

func TestAdminLoginRejectsInvalidJSON(t *testing.T) {
	router, _ := newAdminSessionRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/admin/login", bytes.NewBufferString(`not-json`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestAdminStatusReflectsSession(t *testing.T) {
	router, _ := newAdminSessionRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/status", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["is_admin"] != false {
		t.Fatalf("expected is_admin false for anonymous, got %v", body["is_admin"])
	}

	cookies := loginAdmin(t, router)
	req = httptest.NewRequest(http.MethodGet, "/admin/status", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["is_admin"] != true {
		t.Fatalf("expected is_admin true after login, got %v", body["is_admin"])
	}
}

func TestAdminLogoutClearsSession(t *testing.T) {
	router, sessions := newAdminSessionRouter(t)
	cookies := loginAdmin(t, router)

	req := httptest.NewRequest(http.MethodPost, "/admin/logout", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	// The expiring cookie must no longer authenticate.
	statusReq := httptest.NewRequest(http.MethodGet, "/admin/status", nil)
	for _, c := range rr.Result().Cookies() {
		statusReq.AddCookie(c)
	}
	if sessions.IsAdmin(statusReq) {
		t.Fatalf("expected session cleared after logout")
	}
}
