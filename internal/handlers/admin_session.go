package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/fotomart/api/internal/platform/auth"
	"github.com/fotomart/api/internal/platform/httpx"
)

const maxLoginRequestBody = 4 * 1024

// AdminSessionHandlers exposes login, logout and status for the admin cookie session.
type AdminSessionHandlers struct {
	sessions *auth.SessionManager
}

// NewAdminSessionHandlers constructs admin session handlers.
func NewAdminSessionHandlers(sessions *auth.SessionManager) *AdminSessionHandlers {
	return &AdminSessionHandlers{sessions: sessions}
}

// Routes registers admin session endpoints under the provided router.
func (h *AdminSessionHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/admin/login", h.login)
	r.Post("/admin/logout", h.logout)
	r.Get("/admin/status", h.status)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AdminSessionHandlers) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.sessions == nil {
		httpx.WriteError(ctx, w, httpx.NewError("auth_unavailable", "admin session service unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxLoginRequestBody)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, errBodyTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), status))
		return
	}

	var req loginRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	err = h.sessions.Login(w, r, strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_credentials", "invalid username or password", http.StatusUnauthorized))
			return
		}
		httpx.WriteError(ctx, w, httpx.NewError("auth_error", "failed to establish admin session", http.StatusInternalServerError))
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"message":  "Login successful",
		"is_admin": true,
	})
}

func (h *AdminSessionHandlers) logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.sessions == nil {
		httpx.WriteError(ctx, w, httpx.NewError("auth_unavailable", "admin session service unavailable", http.StatusServiceUnavailable))
		return
	}

	if err := h.sessions.Logout(w, r); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("auth_error", "failed to clear admin session", http.StatusInternalServerError))
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"message":  "Logged out successfully",
		"is_admin": false,
	})
}

func (h *AdminSessionHandlers) status(w http.ResponseWriter, r *http.Request) {
	isAdmin := h.sessions != nil && h.sessions.IsAdmin(r)
	writeJSONResponse(w, http.StatusOK, map[string]any{"is_admin": isAdmin})
}
