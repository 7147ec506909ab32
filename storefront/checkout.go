package storefront

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

var (
	// ErrCardDeclined wraps a card confirmation failure reported by the widget.
	ErrCardDeclined = errors.New("storefront: card declined")
	// ErrCheckoutClosed is returned when Purchase is called while a submission
	// is in flight or after the flow already succeeded. A finished flow stays
	// finished until Reset.
	ErrCheckoutClosed = errors.New("storefront: checkout closed")
)

// CardConfirmer collects payment against a payment intent. In the real
// storefront this is the hosted card widget; tests supply a fake.
type CardConfirmer interface {
	ConfirmCard(ctx context.Context, clientSecret string) error
}

// CardConfirmerFunc adapts a function to the CardConfirmer interface.
type CardConfirmerFunc func(ctx context.Context, clientSecret string) error

// ConfirmCard implements CardConfirmer.
func (f CardConfirmerFunc) ConfirmCard(ctx context.Context, clientSecret string) error {
	return f(ctx, clientSecret)
}

// CheckoutFlow runs a single-product purchase in strict order: open an
// intent, confirm the card against it, then report the confirmation to the
// API. Each Purchase attempt opens a fresh intent; a declined intent is
// abandoned, never retried. Once the card has been charged the flow always
// ends in the succeeded state and refuses further submissions.
type CheckoutFlow struct {
	client    *Client
	confirmer CardConfirmer

	mu        sync.Mutex
	state     ViewState
	onSuccess []func(Order)
}

// NewCheckoutFlow constructs a checkout flow in the ready state.
func NewCheckoutFlow(client *Client, confirmer CardConfirmer) *CheckoutFlow {
	return &CheckoutFlow{
		client:    client,
		confirmer: confirmer,
		state:     StateReady(),
	}
}

// State returns the flow's current state.
func (f *CheckoutFlow) State() ViewState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// OnSuccess registers a callback invoked once per completed purchase, after
// the flow has moved to the succeeded state.
func (f *CheckoutFlow) OnSuccess(fn func(Order)) {
	if fn == nil {
		return
	}
	f.mu.Lock()
	f.onSuccess = append(f.onSuccess, fn)
	f.mu.Unlock()
}

// Reset returns a finished or failed flow to the ready state so a new
// purchase can start. A submission in flight is left alone.
func (f *CheckoutFlow) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state.Phase() == PhaseSubmitting {
		return
	}
	f.state = StateReady()
}

type intentResponse struct {
	ClientSecret    string `json:"client_secret"`
	PaymentIntentID string `json:"payment_intent_id"`
	ProductName     string `json:"product_name"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
}

// Purchase buys one product for the given email. On success the returned
// order is also available through State. A flow that is already submitting
// or has already succeeded refuses re-entry with ErrCheckoutClosed; any
// other failure lands the flow in the error state, and calling Purchase
// again starts over with a new intent.
func (f *CheckoutFlow) Purchase(ctx context.Context, productID, email string) (Order, error) {
	email, err := ValidateEmail(email)
	if err != nil {
		return Order{}, err
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return Order{}, errors.New("storefront: product id is required")
	}
	if f.confirmer == nil {
		return Order{}, errors.New("storefront: card confirmer is required")
	}

	if err := f.begin(); err != nil {
		return Order{}, err
	}

	var intent intentResponse
	err = f.client.postJSON(ctx, "/create-payment-intent", map[string]string{
		"product_id": productID,
		"email":      email,
	}, &intent)
	if err != nil {
		f.setState(StateError(err))
		return Order{}, err
	}

	if err := f.confirmer.ConfirmCard(ctx, intent.ClientSecret); err != nil {
		declined := fmt.Errorf("%w: %v", ErrCardDeclined, err)
		f.setState(StateError(declined))
		return Order{}, declined
	}

	// The card is charged at this point. Recording the order is best effort:
	// a failed report is logged, the customer still sees success, and the
	// flow builds the order view from what the intent told us.
	var order Order
	err = f.client.postJSON(ctx, "/confirm-payment", map[string]string{
		"payment_intent_id": intent.PaymentIntentID,
	}, &order)
	if err != nil {
		f.client.logger.Warn("order confirmation failed after payment",
			zap.String("payment_intent_id", intent.PaymentIntentID),
			zap.Error(err),
		)
		order = Order{
			Email:           email,
			ProductID:       productID,
			ProductName:     intent.ProductName,
			AmountPaid:      float64(intent.Amount) / 100,
			PaymentIntentID: intent.PaymentIntentID,
			Status:          "completed",
		}
	}

	f.succeed(order)
	return order, nil
}

// begin moves the flow into the submitting state, refusing re-entry when a
// submission is in flight or the flow already succeeded.
func (f *CheckoutFlow) begin() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.state.Phase() {
	case PhaseSubmitting, PhaseSucceeded:
		return ErrCheckoutClosed
	}
	f.state = StateSubmitting()
	return nil
}

func (f *CheckoutFlow) succeed(order Order) {
	f.mu.Lock()
	f.state = StateSucceeded(order)
	callbacks := make([]func(Order), len(f.onSuccess))
	copy(callbacks, f.onSuccess)
	f.mu.Unlock()

	for _, fn := range callbacks {
		fn(order)
	}
}

func (f *CheckoutFlow) setState(state ViewState) {
	f.mu.Lock()
	f.state = state
	f.mu.Unlock()
}
