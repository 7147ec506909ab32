package auth

import (
	"net/http"

	"github.com/fotomart/api/internal/platform/httpx"
	"github.com/fotomart/api/internal/platform/requestctx"
)

// AnnotateAdmin resolves the admin session once per request and records the
// result on the request context for downstream handlers.
func (m *SessionManager) AnnotateAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestctx.WithAdmin(r.Context(), m.IsAdmin(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin rejects requests that do not carry a valid admin session.
// Missing cookies, expired cookies and tampered cookies are indistinguishable
// to the caller: all of them get the same 401.
func (m *SessionManager) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !requestctx.IsAdmin(r.Context()) && !m.IsAdmin(r) {
			httpx.WriteError(r.Context(), w, httpx.NewError("admin_required", "admin session required", http.StatusUnauthorized))
			return
		}
		ctx := requestctx.WithAdmin(r.Context(), true)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
