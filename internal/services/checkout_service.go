package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	domain "github.com/fotomart/api/internal/domain"
	"github.com/fotomart/api/internal/mail"
	"github.com/fotomart/api/internal/payments"
	"github.com/fotomart/api/internal/platform/observability"
	"github.com/fotomart/api/internal/platform/storage"
	"github.com/fotomart/api/internal/repositories"
)

var (
	// ErrCheckoutInvalidInput indicates the caller supplied invalid checkout data.
	ErrCheckoutInvalidInput = errors.New("checkout service: invalid input")
	// ErrInvalidEmail indicates the customer email failed validation.
	ErrInvalidEmail = errors.New("checkout service: invalid email")
	// ErrPaymentNotSucceeded indicates the PSP does not report the payment as captured.
	ErrPaymentNotSucceeded = errors.New("checkout service: payment not succeeded")
	// ErrOrderAlreadyRecorded indicates the payment intent has already produced an order.
	ErrOrderAlreadyRecorded = errors.New("checkout service: order already recorded")
	// ErrOrderNotFound indicates no order exists for the given payment intent.
	ErrOrderNotFound = errors.New("checkout service: order not found")
	// ErrOrderAlreadyRefunded indicates the order has already been refunded.
	ErrOrderAlreadyRefunded = errors.New("checkout service: order already refunded")
)

// CheckoutServiceDeps bundles constructor inputs for the checkout service.
type CheckoutServiceDeps struct {
	Gateway  PaymentGateway
	Products repositories.ProductRepository
	Orders   repositories.OrderRepository
	Mailer   mail.Mailer
	Images   storage.ImageStore
	Currency string
	Clock    func() time.Time
	Logger   *zap.Logger
}

type checkoutService struct {
	gateway  PaymentGateway
	products repositories.ProductRepository
	orders   repositories.OrderRepository
	mailer   mail.Mailer
	images   storage.ImageStore
	currency string
	clock    func() time.Time
	logger   *zap.Logger
}

// NewCheckoutService constructs the checkout service with the supplied dependencies.
func NewCheckoutService(deps CheckoutServiceDeps) (CheckoutService, error) {
	if deps.Gateway == nil {
		return nil, fmt.Errorf("checkout service: payment gateway is required")
	}
	if deps.Products == nil {
		return nil, fmt.Errorf("checkout service: product repository is required")
	}
	if deps.Orders == nil {
		return nil, fmt.Errorf("checkout service: order repository is required")
	}
	currency := strings.ToUpper(strings.TrimSpace(deps.Currency))
	if currency == "" {
		currency = "USD"
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &checkoutService{
		gateway:  deps.Gateway,
		products: deps.Products,
		orders:   deps.Orders,
		mailer:   deps.Mailer,
		images:   deps.Images,
		currency: currency,
		clock:    func() time.Time { return clock().UTC() },
		logger:   logger.Named("checkout"),
	}, nil
}

func (s *checkoutService) CreatePaymentIntent(ctx context.Context, cmd CreateIntentCommand) (PaymentIntentResult, error) {
	email, err := validateEmail(cmd.Email)
	if err != nil {
		return PaymentIntentResult{}, err
	}
	productID := strings.TrimSpace(cmd.ProductID)
	if productID == "" {
		return PaymentIntentResult{}, fmt.Errorf("%w: product id is required", ErrCheckoutInvalidInput)
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return PaymentIntentResult{}, ErrProductNotFound
		}
		return PaymentIntentResult{}, err
	}

	intent, err := s.gateway.CreateIntent(ctx, payments.PaymentContext{Currency: s.currency}, payments.CreateIntentRequest{
		Amount:       product.PriceCents(),
		Currency:     s.currency,
		ReceiptEmail: email,
		Metadata: map[string]string{
			"product_id":     product.ID,
			"product_name":   product.Name,
			"customer_email": email,
		},
	})
	if err != nil {
		return PaymentIntentResult{}, err
	}

	s.logger.Info("payment intent created",
		zap.String("payment_intent", intent.ID),
		zap.String("product_id", product.ID),
		zap.String("customer", observability.MaskEmail(email)),
		zap.Int64("amount", intent.Amount),
	)

	return PaymentIntentResult{
		IntentID:     intent.ID,
		ClientSecret: intent.ClientSecret,
		ProductName:  product.Name,
		Amount:       intent.Amount,
		Currency:     intent.Currency,
	}, nil
}

func (s *checkoutService) ConfirmPayment(ctx context.Context, cmd ConfirmPaymentCommand) (Order, error) {
	intentID := strings.TrimSpace(cmd.PaymentIntentID)
	if intentID == "" {
		return Order{}, fmt.Errorf("%w: payment intent id is required", ErrCheckoutInvalidInput)
	}

	// An intent finalises exactly one order. Replays get a conflict instead
	// of a duplicate order.
	if _, err := s.orders.FindByPaymentIntent(ctx, intentID); err == nil {
		return Order{}, ErrOrderAlreadyRecorded
	} else if !repositories.IsNotFound(err) {
		return Order{}, err
	}

	details, err := s.gateway.LookupPayment(ctx, payments.PaymentContext{Currency: s.currency}, payments.LookupRequest{IntentID: intentID})
	if err != nil {
		return Order{}, err
	}
	if details.Status != payments.StatusSucceeded {
		return Order{}, fmt.Errorf("%w: status %q", ErrPaymentNotSucceeded, details.Status)
	}

	order := Order{
		Email:           details.Metadata["customer_email"],
		ProductID:       details.Metadata["product_id"],
		ProductName:     details.Metadata["product_name"],
		AmountPaid:      float64(details.Amount) / 100,
		PaymentIntentID: intentID,
		Status:          domain.OrderStatusCompleted,
		OrderDate:       s.clock(),
	}

	recorded, err := s.orders.Insert(ctx, order)
	if err != nil {
		return Order{}, err
	}

	s.logger.Info("order recorded",
		zap.String("order_id", recorded.ID),
		zap.String("payment_intent", intentID),
	)

	// Delivery failures must not undo a captured payment.
	s.sendConfirmation(ctx, recorded)

	return recorded, nil
}

func (s *checkoutService) PlaceOrder(ctx context.Context, cmd PlaceOrderCommand) (Order, error) {
	email, err := validateEmail(cmd.Email)
	if err != nil {
		return Order{}, err
	}
	productID := strings.TrimSpace(cmd.ProductID)
	if productID == "" {
		return Order{}, fmt.Errorf("%w: product id is required", ErrCheckoutInvalidInput)
	}

	productName := strings.TrimSpace(cmd.ProductName)
	amount := cmd.AmountPaid
	if productName == "" || amount <= 0 {
		product, err := s.products.FindByID(ctx, productID)
		if err != nil {
			if repositories.IsNotFound(err) {
				return Order{}, ErrProductNotFound
			}
			return Order{}, err
		}
		if productName == "" {
			productName = product.Name
		}
		if amount <= 0 {
			amount = product.Price
		}
	}

	if intentID := strings.TrimSpace(cmd.PaymentIntentID); intentID != "" {
		if _, err := s.orders.FindByPaymentIntent(ctx, intentID); err == nil {
			return Order{}, ErrOrderAlreadyRecorded
		} else if !repositories.IsNotFound(err) {
			return Order{}, err
		}
	}

	order := Order{
		Email:           email,
		ProductID:       productID,
		ProductName:     productName,
		AmountPaid:      amount,
		PaymentIntentID: strings.TrimSpace(cmd.PaymentIntentID),
		Status:          domain.OrderStatusCompleted,
		OrderDate:       s.clock(),
	}

	recorded, err := s.orders.Insert(ctx, order)
	if err != nil {
		return Order{}, err
	}

	s.logger.Info("order placed", zap.String("order_id", recorded.ID))
	s.sendConfirmation(ctx, recorded)

	return recorded, nil
}

func (s *checkoutService) RefundOrder(ctx context.Context, cmd RefundOrderCommand) (Order, error) {
	intentID := strings.TrimSpace(cmd.PaymentIntentID)
	if intentID == "" {
		return Order{}, fmt.Errorf("%w: payment intent id is required", ErrCheckoutInvalidInput)
	}

	order, err := s.orders.FindByPaymentIntent(ctx, intentID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return Order{}, ErrOrderNotFound
		}
		return Order{}, err
	}
	if order.Status == domain.OrderStatusRefunded {
		return Order{}, ErrOrderAlreadyRefunded
	}

	if _, err := s.gateway.Refund(ctx, payments.PaymentContext{Currency: s.currency}, payments.RefundRequest{
		IntentID: intentID,
		Reason:   strings.TrimSpace(cmd.Reason),
	}); err != nil {
		return Order{}, err
	}

	refunded, err := s.orders.UpdateStatusByPaymentIntent(ctx, intentID, domain.OrderStatusRefunded)
	if err != nil {
		return Order{}, err
	}

	s.logger.Info("order refunded",
		zap.String("order_id", refunded.ID),
		zap.String("payment_intent", intentID),
	)
	return refunded, nil
}

// sendConfirmation emails the purchased photo to the customer. Best effort:
// failures are logged, never returned.
func (s *checkoutService) sendConfirmation(ctx context.Context, order Order) {
	if s.mailer == nil || order.Email == "" {
		return
	}

	msg := mail.Message{
		To:      order.Email,
		Subject: fmt.Sprintf("Your FotoMart order: %s", order.ProductName),
		HTMLBody: fmt.Sprintf(
			"<h2>Thank you for your purchase!</h2>"+
				"<p>You bought <strong>%s</strong> for $%.2f.</p>"+
				"<p>Your photo is attached to this email.</p>",
			order.ProductName, order.AmountPaid,
		),
	}

	if att, ok := s.loadImageAttachment(ctx, order.ProductID); ok {
		msg.Attachments = append(msg.Attachments, att)
	}

	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Warn("order confirmation email failed",
			zap.String("order_id", order.ID),
			zap.Error(err),
		)
	}
}

func (s *checkoutService) loadImageAttachment(ctx context.Context, productID string) (mail.Attachment, bool) {
	if s.images == nil || productID == "" {
		return mail.Attachment{}, false
	}
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return mail.Attachment{}, false
	}
	filename := imageFilename(product.ImageURL)
	if filename == "" {
		return mail.Attachment{}, false
	}
	f, err := s.images.Open(filename)
	if err != nil {
		return mail.Attachment{}, false
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return mail.Attachment{}, false
	}
	return mail.Attachment{
		Filename:    filename,
		ContentType: imageContentType(filename),
		Content:     content,
	}, true
}

func imageContentType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".svg":
		return "image/svg+xml"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

// validateEmail applies the storefront rule: a non-empty address containing "@".
func validateEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return "", fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}
	return email, nil
}
