package services

import (
	"context"
	"io"

	domain "github.com/fotomart/api/internal/domain"
	"github.com/fotomart/api/internal/payments"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Product = domain.Product
	Order   = domain.Order
)

// ImageUpload carries a multipart image upload into the catalog service.
type ImageUpload struct {
	Filename string
	Content  io.Reader
}

// AddProductCommand captures the inputs for creating a catalog product.
type AddProductCommand struct {
	Name        string
	Price       float64
	Description string
	Image       *ImageUpload
}

// UpdateProductCommand overwrites an existing product. Name, price and
// description always replace the stored values; a nil Image keeps the
// current photo.
type UpdateProductCommand struct {
	ID          string
	Name        string
	Price       float64
	Description string
	Image       *ImageUpload
}

// CatalogService manages the product catalog for storefront and admin views.
type CatalogService interface {
	ListProducts(ctx context.Context) ([]Product, error)
	GetProduct(ctx context.Context, productID string) (Product, error)
	AddProduct(ctx context.Context, cmd AddProductCommand) (Product, error)
	UpdateProduct(ctx context.Context, cmd UpdateProductCommand) (Product, error)
	DeleteProduct(ctx context.Context, productID string) error
}

// CreateIntentCommand opens a payment intent for a single product purchase.
type CreateIntentCommand struct {
	ProductID string
	Email     string
}

// PaymentIntentResult is returned to the storefront so the hosted card widget
// can collect payment against the intent.
type PaymentIntentResult struct {
	IntentID     string
	ClientSecret string
	ProductName  string
	Amount       int64
	Currency     string
}

// ConfirmPaymentCommand finalises a purchase after the card widget reports success.
type ConfirmPaymentCommand struct {
	PaymentIntentID string
}

// PlaceOrderCommand records an order directly, used by the legacy order endpoint.
type PlaceOrderCommand struct {
	Email           string
	ProductID       string
	ProductName     string
	AmountPaid      float64
	PaymentIntentID string
}

// RefundOrderCommand reverses a recorded order through the payment provider.
type RefundOrderCommand struct {
	PaymentIntentID string
	Reason          string
}

// CheckoutService coordinates PSP intents and order recording.
type CheckoutService interface {
	CreatePaymentIntent(ctx context.Context, cmd CreateIntentCommand) (PaymentIntentResult, error)
	ConfirmPayment(ctx context.Context, cmd ConfirmPaymentCommand) (Order, error)
	PlaceOrder(ctx context.Context, cmd PlaceOrderCommand) (Order, error)
	RefundOrder(ctx context.Context, cmd RefundOrderCommand) (Order, error)
}

// PaymentGateway is the slice of the payments manager the checkout service uses.
type PaymentGateway interface {
	CreateIntent(ctx context.Context, paymentCtx payments.PaymentContext, req payments.CreateIntentRequest) (payments.Intent, error)
	Refund(ctx context.Context, paymentCtx payments.PaymentContext, req payments.RefundRequest) (payments.PaymentDetails, error)
	LookupPayment(ctx context.Context, paymentCtx payments.PaymentContext, req payments.LookupRequest) (payments.PaymentDetails, error)
}
