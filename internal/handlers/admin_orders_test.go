package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/fotomart/api/internal/services"
)

func TestAdminOrdersRefund(t *testing.T) {
	router := chi.NewRouter()
	var captured services.RefundOrderCommand
	NewAdminOrderHandlers(&stubCheckoutService{
		refundFunc: func(ctx context.Context, cmd services.RefundOrderCommand) (services.Order, error) {
			captured = cmd
			return services.Order{
				ID:              "order-1",
				PaymentIntentID: cmd.PaymentIntentID,
				Status:          "refunded",
			}, nil
		},
	}).Routes(router)

	req := httptest.NewRequest(http.MethodPost, "/admin/orders/pi_123/refund?reason=requested_by_customer", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if captured.PaymentIntentID != "pi_123" || captured.Reason != "requested_by_customer" {
		t.Fatalf("unexpected command %+v", captured)
	}
	var resp orderPayload
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "refunded" {
		t.Fatalf("expected refunded status, got %+v", resp)
	}
}

func TestAdminOrdersRefundUnknownOrder(t *testing.T) {
	router := chi.NewRouter()
	NewAdminOrderHandlers(&stubCheckoutService{}).Routes(router)

	req := httptest.NewRequest(http.MethodPost, "/admin/orders/pi_missing/refund", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error"] != "order_not_found" {
		t.Fatalf("expected order_not_found, got %v", body["error"])
	}
}

func TestAdminOrdersRefundAlreadyRefunded(t *testing.T) {
	router := chi.NewRouter()
	NewAdminOrderHandlers(&stubCheckoutService{
		refundFunc: func(context.Context, services.RefundOrderCommand) (services.Order, error) {
			return services.Order{}, services.ErrOrderAlreadyRefunded
		},
	}).Routes(router)

	req := httptest.NewRequest(http.MethodPost, "/admin/orders/pi_123/refund", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rr.Code)
	}
}
