package mongo

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/fotomart/api/internal/domain"
)

const productCollection = "products"

type productDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Name        string             `bson:"name"`
	Price       float64            `bson:"price"`
	Description string             `bson:"description"`
	ImageURL    string             `bson:"image_url,omitempty"`
}

func (d productDocument) toDomain() domain.Product {
	return domain.Product{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Price:       d.Price,
		Description: d.Description,
		ImageURL:    d.ImageURL,
	}
}

// ProductRepository persists catalog listings in the products collection.
type ProductRepository struct {
	provider *Provider
}

// NewProductRepository constructs a ProductRepository backed by the provider.
func NewProductRepository(provider *Provider) (*ProductRepository, error) {
	if provider == nil {
		return nil, errors.New("mongo: provider is required")
	}
	return &ProductRepository{provider: provider}, nil
}

func (r *ProductRepository) collection(ctx context.Context) (*mongo.Collection, error) {
	db, err := r.provider.Database(ctx)
	if err != nil {
		return nil, err
	}
	return db.Collection(productCollection), nil
}

// Insert stores a new product and returns it with the generated identifier.
func (r *ProductRepository) Insert(ctx context.Context, product domain.Product) (domain.Product, error) {
	coll, err := r.collection(ctx)
	if err != nil {
		return domain.Product{}, err
	}

	doc := productDocument{
		Name:        product.Name,
		Price:       product.Price,
		Description: product.Description,
		ImageURL:    product.ImageURL,
	}
	result, err := coll.InsertOne(ctx, doc)
	if err != nil {
		return domain.Product{}, newError("products: insert", err)
	}

	id, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return domain.Product{}, newError("products: insert", errors.New("unexpected inserted id type"))
	}
	product.ID = id.Hex()
	return product, nil
}

// Update overwrites every stored field of the product identified by product.ID.
func (r *ProductRepository) Update(ctx context.Context, product domain.Product) (domain.Product, error) {
	objectID, err := parseObjectID(product.ID)
	if err != nil {
		return domain.Product{}, notFoundError("products: update", err)
	}
	coll, err := r.collection(ctx)
	if err != nil {
		return domain.Product{}, err
	}

	update := bson.M{"$set": bson.M{
		"name":        product.Name,
		"price":       product.Price,
		"description": product.Description,
		"image_url":   product.ImageURL,
	}}
	result, err := coll.UpdateByID(ctx, objectID, update)
	if err != nil {
		return domain.Product{}, newError("products: update", err)
	}
	if result.MatchedCount == 0 {
		return domain.Product{}, notFoundError("products: update", nil)
	}
	return product, nil
}

// Delete removes the product identified by productID.
func (r *ProductRepository) Delete(ctx context.Context, productID string) error {
	objectID, err := parseObjectID(productID)
	if err != nil {
		return notFoundError("products: delete", err)
	}
	coll, err := r.collection(ctx)
	if err != nil {
		return err
	}

	result, err := coll.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return newError("products: delete", err)
	}
	if result.DeletedCount == 0 {
		return notFoundError("products: delete", nil)
	}
	return nil
}

// FindByID fetches a single product.
func (r *ProductRepository) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	objectID, err := parseObjectID(productID)
	if err != nil {
		return domain.Product{}, notFoundError("products: find", err)
	}
	coll, err := r.collection(ctx)
	if err != nil {
		return domain.Product{}, err
	}

	var doc productDocument
	if err := coll.FindOne(ctx, bson.M{"_id": objectID}).Decode(&doc); err != nil {
		return domain.Product{}, newError("products: find", err)
	}
	return doc.toDomain(), nil
}

// List returns every product in the catalog.
func (r *ProductRepository) List(ctx context.Context) ([]domain.Product, error) {
	coll, err := r.collection(ctx)
	if err != nil {
		return nil, err
	}

	cursor, err := coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, newError("products: list", err)
	}
	defer cursor.Close(ctx)

	products := make([]domain.Product, 0)
	for cursor.Next(ctx) {
		var doc productDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, newError("products: list", err)
		}
		products = append(products, doc.toDomain())
	}
	if err := cursor.Err(); err != nil {
		return nil, newError("products: list", err)
	}
	return products, nil
}

func parseObjectID(value string) (primitive.ObjectID, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return primitive.NilObjectID, errors.New("object id required")
	}
	return primitive.ObjectIDFromHex(trimmed)
}
