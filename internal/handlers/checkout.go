package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fotomart/api/internal/platform/httpx"
	"github.com/fotomart/api/internal/services"
)

const maxCheckoutRequestBody = 8 * 1024

// CheckoutHandlers exposes the payment flow endpoints.
type CheckoutHandlers struct {
	checkout services.CheckoutService
}

// NewCheckoutHandlers constructs checkout handlers.
func NewCheckoutHandlers(checkout services.CheckoutService) *CheckoutHandlers {
	return &CheckoutHandlers{checkout: checkout}
}

// Routes registers checkout endpoints under the provided router.
func (h *CheckoutHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/create-payment-intent", h.createIntent)
	r.Post("/confirm-payment", h.confirmPayment)
	r.Post("/place_order", h.placeOrder)
}

type createIntentRequest struct {
	ProductID string `json:"product_id"`
	Email     string `json:"email"`
}

type createIntentResponse struct {
	ClientSecret    string `json:"client_secret"`
	PaymentIntentID string `json:"payment_intent_id"`
	ProductName     string `json:"product_name"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
}

type confirmPaymentRequest struct {
	PaymentIntentID string `json:"payment_intent_id"`
}

type placeOrderRequest struct {
	Email           string  `json:"email"`
	ProductID       string  `json:"product_id"`
	ProductName     string  `json:"product_name"`
	AmountPaid      float64 `json:"amount_paid"`
	PaymentIntentID string  `json:"payment_intent_id"`
}

type orderPayload struct {
	OrderID         string  `json:"order_id"`
	Email           string  `json:"email"`
	ProductID       string  `json:"product_id"`
	ProductName     string  `json:"product_name"`
	AmountPaid      float64 `json:"amount_paid"`
	PaymentIntentID string  `json:"payment_intent_id"`
	Status          string  `json:"status"`
	OrderDate       string  `json:"order_date"`
}

func toOrderPayload(order services.Order) orderPayload {
	payload := orderPayload{
		OrderID:         order.ID,
		Email:           order.Email,
		ProductID:       order.ProductID,
		ProductName:     order.ProductName,
		AmountPaid:      order.AmountPaid,
		PaymentIntentID: order.PaymentIntentID,
		Status:          order.Status,
	}
	if !order.OrderDate.IsZero() {
		payload.OrderDate = order.OrderDate.UTC().Format(time.RFC3339Nano)
	}
	return payload
}

func (h *CheckoutHandlers) createIntent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "checkout service unavailable", http.StatusServiceUnavailable))
		return
	}

	var req createIntentRequest
	if !h.decode(ctx, w, r, &req) {
		return
	}

	result, err := h.checkout.CreatePaymentIntent(ctx, services.CreateIntentCommand{
		ProductID: strings.TrimSpace(req.ProductID),
		Email:     strings.TrimSpace(req.Email),
	})
	if err != nil {
		h.writeCheckoutError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, createIntentResponse{
		ClientSecret:    result.ClientSecret,
		PaymentIntentID: result.IntentID,
		ProductName:     result.ProductName,
		Amount:          result.Amount,
		Currency:        result.Currency,
	})
}

func (h *CheckoutHandlers) confirmPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "checkout service unavailable", http.StatusServiceUnavailable))
		return
	}

	var req confirmPaymentRequest
	if !h.decode(ctx, w, r, &req) {
		return
	}

	order, err := h.checkout.ConfirmPayment(ctx, services.ConfirmPaymentCommand{
		PaymentIntentID: strings.TrimSpace(req.PaymentIntentID),
	})
	if err != nil {
		h.writeCheckoutError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toOrderPayload(order))
}

func (h *CheckoutHandlers) placeOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "checkout service unavailable", http.StatusServiceUnavailable))
		return
	}

	var req placeOrderRequest
	if !h.decode(ctx, w, r, &req) {
		return
	}

	order, err := h.checkout.PlaceOrder(ctx, services.PlaceOrderCommand{
		Email:           strings.TrimSpace(req.Email),
		ProductID:       strings.TrimSpace(req.ProductID),
		ProductName:     strings.TrimSpace(req.ProductName),
		AmountPaid:      req.AmountPaid,
		PaymentIntentID: strings.TrimSpace(req.PaymentIntentID),
	})
	if err != nil {
		h.writeCheckoutError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, toOrderPayload(order))
}

func (h *CheckoutHandlers) decode(ctx context.Context, w http.ResponseWriter, r *http.Request, dst any) bool {
	body, err := readLimitedBody(r, maxCheckoutRequestBody)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, errBodyTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), status))
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return false
	}
	return true
}

func (h *CheckoutHandlers) writeCheckoutError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidEmail):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_email", "a valid email address is required", http.StatusBadRequest))
	case errors.Is(err, services.ErrCheckoutInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrProductNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "product not found", http.StatusNotFound))
	case errors.Is(err, services.ErrPaymentNotSucceeded):
		httpx.WriteError(ctx, w, httpx.NewError("payment_not_succeeded", "payment has not succeeded", http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderAlreadyRecorded):
		httpx.WriteError(ctx, w, httpx.NewError("order_exists", "an order for this payment already exists", http.StatusConflict))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("checkout_error", "failed to process checkout request", http.StatusInternalServerError))
	}
}
