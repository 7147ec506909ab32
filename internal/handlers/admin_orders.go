package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/fotomart/api/internal/platform/httpx"
	"github.com/fotomart/api/internal/services"
)

// AdminOrderHandlers exposes the admin order operations. Mounted behind the
// admin session middleware.
type AdminOrderHandlers struct {
	checkout services.CheckoutService
}

// NewAdminOrderHandlers constructs admin order handlers.
func NewAdminOrderHandlers(checkout services.CheckoutService) *AdminOrderHandlers {
	return &AdminOrderHandlers{checkout: checkout}
}

// Routes registers admin order endpoints under the provided router.
func (h *AdminOrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/admin/orders/{paymentIntentId}/refund", h.refund)
}

func (h *AdminOrderHandlers) refund(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "checkout service unavailable", http.StatusServiceUnavailable))
		return
	}

	order, err := h.checkout.RefundOrder(ctx, services.RefundOrderCommand{
		PaymentIntentID: strings.TrimSpace(chi.URLParam(r, "paymentIntentId")),
		Reason:          strings.TrimSpace(r.URL.Query().Get("reason")),
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrCheckoutInvalidInput):
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		case errors.Is(err, services.ErrOrderNotFound):
			httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "no order for this payment", http.StatusNotFound))
		case errors.Is(err, services.ErrOrderAlreadyRefunded):
			httpx.WriteError(ctx, w, httpx.NewError("order_already_refunded", "order has already been refunded", http.StatusConflict))
		default:
			httpx.WriteError(ctx, w, httpx.NewError("refund_error", "failed to refund order", http.StatusInternalServerError))
		}
		return
	}

	writeJSONResponse(w, http.StatusOK, toOrderPayload(order))
}
