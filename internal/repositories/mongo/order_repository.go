package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fotomart/api/internal/domain"
)

const orderCollection = "orders"

type orderDocument struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	Email           string             `bson:"email"`
	ProductID       string             `bson:"product_id"`
	ProductName     string             `bson:"product_name"`
	AmountPaid      float64            `bson:"amount_paid"`
	PaymentIntentID string             `bson:"stripe_payment_intent,omitempty"`
	Status          string             `bson:"status"`
	OrderDate       time.Time          `bson:"order_date"`
}

func (d orderDocument) toDomain() domain.Order {
	return domain.Order{
		ID:              d.ID.Hex(),
		Email:           d.Email,
		ProductID:       d.ProductID,
		ProductName:     d.ProductName,
		AmountPaid:      d.AmountPaid,
		PaymentIntentID: d.PaymentIntentID,
		Status:          d.Status,
		OrderDate:       d.OrderDate,
	}
}

// OrderRepository records purchases in the orders collection.
type OrderRepository struct {
	provider *Provider
}

// NewOrderRepository constructs an OrderRepository backed by the provider.
func NewOrderRepository(provider *Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("mongo: provider is required")
	}
	return &OrderRepository{provider: provider}, nil
}

func (r *OrderRepository) collection(ctx context.Context) (*mongo.Collection, error) {
	db, err := r.provider.Database(ctx)
	if err != nil {
		return nil, err
	}
	return db.Collection(orderCollection), nil
}

// Insert stores a new order and returns it with the generated identifier.
func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) (domain.Order, error) {
	coll, err := r.collection(ctx)
	if err != nil {
		return domain.Order{}, err
	}

	doc := orderDocument{
		Email:           order.Email,
		ProductID:       order.ProductID,
		ProductName:     order.ProductName,
		AmountPaid:      order.AmountPaid,
		PaymentIntentID: order.PaymentIntentID,
		Status:          order.Status,
		OrderDate:       order.OrderDate.UTC(),
	}
	result, err := coll.InsertOne(ctx, doc)
	if err != nil {
		return domain.Order{}, newError("orders: insert", err)
	}

	id, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return domain.Order{}, newError("orders: insert", errors.New("unexpected inserted id type"))
	}
	order.ID = id.Hex()
	return order, nil
}

// FindByPaymentIntent looks up an order by the provider's intent identifier.
func (r *OrderRepository) FindByPaymentIntent(ctx context.Context, intentID string) (domain.Order, error) {
	coll, err := r.collection(ctx)
	if err != nil {
		return domain.Order{}, err
	}

	var doc orderDocument
	if err := coll.FindOne(ctx, bson.M{"stripe_payment_intent": intentID}).Decode(&doc); err != nil {
		return domain.Order{}, newError("orders: find by intent", err)
	}
	return doc.toDomain(), nil
}

// UpdateStatusByPaymentIntent transitions the order's status and returns the
// updated document.
func (r *OrderRepository) UpdateStatusByPaymentIntent(ctx context.Context, intentID, status string) (domain.Order, error) {
	coll, err := r.collection(ctx)
	if err != nil {
		return domain.Order{}, err
	}

	after := options.After
	var doc orderDocument
	err = coll.FindOneAndUpdate(ctx,
		bson.M{"stripe_payment_intent": intentID},
		bson.M{"$set": bson.M{"status": status}},
		&options.FindOneAndUpdateOptions{ReturnDocument: &after},
	).Decode(&doc)
	if err != nil {
		return domain.Order{}, newError("orders: update status", err)
	}
	return doc.toDomain(), nil
}
