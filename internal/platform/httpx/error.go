// Package httpx carries the JSON error envelope every fotomart endpoint
// returns: a stable machine-readable code for the storefront to branch on,
// a human-readable message, and the request/trace identifiers needed to
// find the failure in the logs.
package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/fotomart/api/internal/platform/requestctx"
)

// Error is the wire error envelope. Code values are part of the storefront
// contract (invalid_email, product_not_found, order_exists, admin_required,
// ...) and must stay stable across releases.
type Error struct {
	Code      string `json:"error"`
	Message   string `json:"message"`
	Status    int    `json:"status"`
	RequestID string `json:"request_id,omitempty"`
	TraceID   string `json:"trace_id,omitempty"`
}

// NewError builds an envelope with the given code, message and HTTP status.
// A zero status falls back to 500.
func NewError(code, message string, status int) Error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return Error{
		Code:    trimField(code, 80),
		Message: trimField(message, 512),
		Status:  status,
	}
}

// WriteError fills in the request and trace identifiers from the context and
// writes the envelope.
func WriteError(ctx context.Context, w http.ResponseWriter, err Error) {
	if err.Status == 0 {
		err.Status = http.StatusInternalServerError
	}
	if err.RequestID == "" {
		err.RequestID = trimField(middleware.GetReqID(ctx), 80)
	}
	if err.TraceID == "" {
		err.TraceID = trimField(requestctx.TraceID(ctx), 64)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Status)
	_ = json.NewEncoder(w).Encode(err)
}

// trimField keeps envelope fields single-line and bounded so a hostile
// upstream message cannot smuggle newlines or megabytes into responses.
func trimField(value string, limit int) string {
	value = strings.ReplaceAll(value, "\n", " ")
	value = strings.ReplaceAll(value, "\r", " ")
	value = strings.TrimSpace(value)
	if limit > 0 && len(value) > limit {
		value = value[:limit]
	}
	return value
}
