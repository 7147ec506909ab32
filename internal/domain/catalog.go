package domain

import (
	"math"
	"time"
)

// Product is a digital photo listed for sale. Price carries the decimal
// dollar amount exposed on the wire; Stripe receives the cent value.
type Product struct {
	ID          string
	Name        string
	Price       float64
	Description string
	ImageURL    string
}

// PriceCents converts the listed price to the integer minor-unit amount
// expected by payment providers.
func (p Product) PriceCents() int64 {
	return int64(math.Round(p.Price * 100))
}

const (
	// OrderStatusCompleted marks orders whose payment the provider confirmed.
	OrderStatusCompleted = "completed"
	// OrderStatusRefunded marks orders whose payment has been returned.
	OrderStatusRefunded = "refunded"
)

// Order records a completed purchase of a single product.
type Order struct {
	ID              string
	Email           string
	ProductID       string
	ProductName     string
	AmountPaid      float64
	PaymentIntentID string
	Status          string
	OrderDate       time.Time
}
