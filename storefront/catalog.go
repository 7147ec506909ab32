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
	// ErrInvalidEmail is returned when a customer email fails the storefront rule.
	ErrInvalidEmail = errors.New("storefront: invalid email")
	// ErrNoSelection is returned when checkout starts without a chosen product.
	ErrNoSelection = errors.New("storefront: no product selected")
	// ErrEmailRequired is returned when checkout starts before an email is set.
	ErrEmailRequired = errors.New("storefront: email is required")
)

// CatalogView drives the public product listing: the product grid, the
// single active selection and the purchase form feeding the checkout flow.
type CatalogView struct {
	client   *Client
	checkout *CheckoutFlow

	mu             sync.Mutex
	state          ViewState
	products       []Product
	publishableKey string
	selected       *Product
	email          string
}

// CatalogOption customises CatalogView construction.
type CatalogOption func(*CatalogView)

// WithCheckoutFlow attaches the flow BeginCheckout drives. The view clears
// its selection and email once the flow reports a completed purchase.
func WithCheckoutFlow(flow *CheckoutFlow) CatalogOption {
	return func(v *CatalogView) {
		if flow == nil {
			return
		}
		v.checkout = flow
		flow.OnSuccess(func(Order) {
			v.clearPurchaseForm()
		})
	}
}

// NewCatalogView constructs a catalog view in the loading state.
func NewCatalogView(client *Client, opts ...CatalogOption) *CatalogView {
	v := &CatalogView{
		client: client,
		state:  StateLoading(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Load fetches the widget configuration and the product list concurrently.
// The view is unusable without products, so a failed product fetch lands it
// in the error state; a failed config fetch only costs the payment widget
// and is logged, leaving the view ready.
func (v *CatalogView) Load(ctx context.Context) error {
	v.mu.Lock()
	v.state = StateLoading()
	v.mu.Unlock()

	var (
		cfg struct {
			PublishableKey string `json:"publishable_key"`
		}
		products    []Product
		cfgErr      error
		productsErr error
		wg          sync.WaitGroup
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		cfgErr = v.client.getJSON(ctx, "/config", &cfg)
	}()
	go func() {
		defer wg.Done()
		productsErr = v.client.getJSON(ctx, "/products", &products)
	}()
	wg.Wait()

	if productsErr != nil {
		err := fmt.Errorf("load products: %w", productsErr)
		v.fail(err)
		return err
	}
	if cfgErr != nil {
		v.client.logger.Warn("widget config unavailable", zap.Error(cfgErr))
	}

	v.mu.Lock()
	v.products = products
	v.publishableKey = cfg.PublishableKey
	v.selected = nil
	v.state = StateReady()
	v.mu.Unlock()
	return nil
}

// State returns the view's current state.
func (v *CatalogView) State() ViewState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Products returns the loaded product list. Empty until the view is ready.
func (v *CatalogView) Products() []Product {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]Product, len(v.products))
	copy(out, v.products)
	return out
}

// PublishableKey returns the key the payment widget initialises with.
func (v *CatalogView) PublishableKey() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.publishableKey
}

// Select marks a product as the active purchase target. Selecting again
// replaces the previous choice; there is never more than one.
func (v *CatalogView) Select(productID string) error {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return ErrProductNotFound
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	for i := range v.products {
		if v.products[i].ID == productID {
			p := v.products[i]
			v.selected = &p
			return nil
		}
	}
	return ErrProductNotFound
}

// Selected returns the active purchase target, if any.
func (v *CatalogView) Selected() (Product, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.selected == nil {
		return Product{}, false
	}
	return *v.selected, true
}

// SetEmail records the customer email for the purchase form.
func (v *CatalogView) SetEmail(email string) error {
	email, err := ValidateEmail(email)
	if err != nil {
		return err
	}
	v.mu.Lock()
	v.email = email
	v.mu.Unlock()
	return nil
}

// Email returns the recorded customer email.
func (v *CatalogView) Email() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.email
}

// BeginCheckout starts the purchase for the current selection. The form is
// gated locally first: no selection or missing email fails before anything
// touches the network.
func (v *CatalogView) BeginCheckout(ctx context.Context) (Order, error) {
	v.mu.Lock()
	flow := v.checkout
	selected := v.selected
	email := v.email
	v.mu.Unlock()

	if flow == nil {
		return Order{}, errors.New("storefront: no checkout flow attached")
	}
	if selected == nil {
		return Order{}, ErrNoSelection
	}
	if email == "" {
		return Order{}, ErrEmailRequired
	}
	return flow.Purchase(ctx, selected.ID, email)
}

// CancelCheckout discards the purchase form locally. Nothing is sent to the
// API; an intent already opened server-side is simply abandoned.
func (v *CatalogView) CancelCheckout() {
	v.clearPurchaseForm()
	if v.checkout != nil {
		v.checkout.Reset()
	}
}

func (v *CatalogView) clearPurchaseForm() {
	v.mu.Lock()
	v.selected = nil
	v.email = ""
	v.mu.Unlock()
}

func (v *CatalogView) fail(err error) {
	v.mu.Lock()
	v.products = nil
	v.publishableKey = ""
	v.selected = nil
	v.state = StateError(err)
	v.mu.Unlock()
}

// ValidateEmail applies the purchase form rule: non-empty and containing "@".
func ValidateEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return "", fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}
	return email, nil
}
