package payments

import (
	"context"
	"errors"
	"testing"
)

type fakeProvider struct {
	lastOp  string
	intent  Intent
	payment PaymentDetails
	err     error
}

func (f *fakeProvider) CreateIntent(ctx context.Context, req CreateIntentRequest) (Intent, error) {
	f.lastOp = "create"
	return f.intent, f.err
}

func (f *fakeProvider) Refund(ctx context.Context, req RefundRequest) (PaymentDetails, error) {
	f.lastOp = "refund"
	return f.payment, f.err
}

func (f *fakeProvider) LookupPayment(ctx context.Context, req LookupRequest) (PaymentDetails, error) {
	f.lastOp = "lookup"
	return f.payment, f.err
}

func TestManagerCreateIntentUsesPreferredProvider(t *testing.T) {
	ctx := context.Background()
	stripe := &fakeProvider{intent: Intent{ID: "pi_stripe"}}
	paypal := &fakeProvider{intent: Intent{ID: "pi_paypal"}}

	mgr, err := NewManager(map[string]Provider{
		"stripe": stripe,
		"paypal": paypal,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	intent, err := mgr.CreateIntent(ctx, PaymentContext{PreferredProvider: "paypal"}, CreateIntentRequest{Currency: "USD"})
	if err != nil {
		t.Fatalf("create intent: %v", err)
	}

	if intent.Provider != "paypal" {
		t.Fatalf("expected provider 'paypal', got %q", intent.Provider)
	}
	if paypal.lastOp != "create" {
		t.Fatalf("expected paypal provider to handle call")
	}
	if stripe.lastOp != "" {
		t.Fatalf("expected stripe provider to remain unused")
	}
}

func TestManagerRoutesByCurrency(t *testing.T) {
	ctx := context.Background()
	stripe := &fakeProvider{intent: Intent{ID: "pi_stripe"}}
	paypal := &fakeProvider{intent: Intent{ID: "pi_paypal"}}

	mgr, err := NewManager(
		map[string]Provider{
			"stripe": stripe,
			"paypal": paypal,
		},
		WithCurrencyRoutes(map[string]string{"JPY": "paypal"}),
	)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	intent, err := mgr.CreateIntent(ctx, PaymentContext{Currency: "JPY"}, CreateIntentRequest{Currency: "JPY"})
	if err != nil {
		t.Fatalf("create intent: %v", err)
	}
	if intent.Provider != "paypal" {
		t.Fatalf("expected provider 'paypal', got %q", intent.Provider)
	}
	if paypal.lastOp != "create" {
		t.Fatalf("expected paypal provider to handle call")
	}
}

func TestManagerFallsBackToDefault(t *testing.T) {
	ctx := context.Background()
	stripe := &fakeProvider{payment: PaymentDetails{Provider: "stripe"}}

	mgr, err := NewManager(map[string]Provider{"stripe": stripe})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	details, err := mgr.LookupPayment(ctx, PaymentContext{}, LookupRequest{IntentID: "pi_123"})
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if stripe.lastOp != "lookup" {
		t.Fatalf("expected lookup to invoke default provider")
	}
	if details.Provider != "stripe" {
		t.Fatalf("unexpected provider in details: %q", details.Provider)
	}
}

func TestManagerUnsupportedProvider(t *testing.T) {
	ctx := context.Background()
	mgr, err := NewManager(map[string]Provider{"stripe": &fakeProvider{}, "paypal": &fakeProvider{}}, WithDefaultProvider(""))
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	_, err = mgr.CreateIntent(ctx, PaymentContext{PreferredProvider: "unknown"}, CreateIntentRequest{Currency: "USD"})
	if !errors.Is(err, ErrUnsupportedProvider) {
		t.Fatalf("expected ErrUnsupportedProvider, got %v", err)
	}
}

func TestNewManagerValidatesProviders(t *testing.T) {
	if _, err := NewManager(map[string]Provider{"bad": nil}); err == nil {
		t.Fatalf("expected error for nil provider")
	}
	if _, err := NewManager(nil); err == nil {
		t.Fatalf("expected error when providers empty")
	}
}
