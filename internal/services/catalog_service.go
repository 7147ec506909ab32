package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/fotomart/api/internal/platform/storage"
	"github.com/fotomart/api/internal/repositories"
)

var (
	// ErrCatalogInvalidInput indicates the caller supplied invalid data to a catalog mutation.
	ErrCatalogInvalidInput = errors.New("catalog service: invalid input")
	// ErrProductNotFound indicates the requested product does not exist.
	ErrProductNotFound = errors.New("catalog service: product not found")
	// ErrUnsupportedImage indicates the uploaded file is not an accepted image type.
	ErrUnsupportedImage = errors.New("catalog service: unsupported image type")
)

// CatalogServiceDeps bundles constructor inputs for the catalog service.
type CatalogServiceDeps struct {
	Products repositories.ProductRepository
	Images   storage.ImageStore
	Logger   *zap.Logger
}

type catalogService struct {
	products repositories.ProductRepository
	images   storage.ImageStore
	policy   *bluemonday.Policy
	logger   *zap.Logger
}

// NewCatalogService constructs the catalog service with the supplied dependencies.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Products == nil {
		return nil, fmt.Errorf("catalog service: product repository is required")
	}
	if deps.Images == nil {
		return nil, fmt.Errorf("catalog service: image store is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &catalogService{
		products: deps.Products,
		images:   deps.Images,
		policy:   bluemonday.StrictPolicy(),
		logger:   logger.Named("catalog"),
	}, nil
}

func (s *catalogService) ListProducts(ctx context.Context) ([]Product, error) {
	products, err := s.products.List(ctx)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []Product{}
	}
	return products, nil
}

func (s *catalogService) GetProduct(ctx context.Context, productID string) (Product, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return Product{}, fmt.Errorf("%w: product id is required", ErrCatalogInvalidInput)
	}
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return Product{}, ErrProductNotFound
		}
		return Product{}, err
	}
	return product, nil
}

func (s *catalogService) AddProduct(ctx context.Context, cmd AddProductCommand) (Product, error) {
	product, err := s.normalise(cmd.Name, cmd.Price, cmd.Description)
	if err != nil {
		return Product{}, err
	}
	if cmd.Image == nil || cmd.Image.Content == nil {
		return Product{}, fmt.Errorf("%w: product image is required", ErrCatalogInvalidInput)
	}

	stored, err := s.images.Save(cmd.Image.Filename, cmd.Image.Content)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedType) {
			return Product{}, fmt.Errorf("%w: %q", ErrUnsupportedImage, cmd.Image.Filename)
		}
		return Product{}, err
	}
	product.ImageURL = s.images.URL(stored)

	created, err := s.products.Insert(ctx, product)
	if err != nil {
		// Keep the upload directory consistent with the catalog.
		if cleanupErr := s.images.Delete(stored); cleanupErr != nil {
			s.logger.Warn("failed to clean up orphaned image", zap.String("file", stored), zap.Error(cleanupErr))
		}
		return Product{}, err
	}

	s.logger.Info("product added", zap.String("product_id", created.ID), zap.String("name", created.Name))
	return created, nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, cmd UpdateProductCommand) (Product, error) {
	productID := strings.TrimSpace(cmd.ID)
	if productID == "" {
		return Product{}, fmt.Errorf("%w: product id is required", ErrCatalogInvalidInput)
	}
	product, err := s.normalise(cmd.Name, cmd.Price, cmd.Description)
	if err != nil {
		return Product{}, err
	}
	product.ID = productID

	existing, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return Product{}, ErrProductNotFound
		}
		return Product{}, err
	}

	replacedImage := ""
	if cmd.Image != nil && cmd.Image.Content != nil {
		stored, err := s.images.Save(cmd.Image.Filename, cmd.Image.Content)
		if err != nil {
			if errors.Is(err, storage.ErrUnsupportedType) {
				return Product{}, fmt.Errorf("%w: %q", ErrUnsupportedImage, cmd.Image.Filename)
			}
			return Product{}, err
		}
		product.ImageURL = s.images.URL(stored)
		replacedImage = imageFilename(existing.ImageURL)
	} else {
		product.ImageURL = existing.ImageURL
	}

	updated, err := s.products.Update(ctx, product)
	if err != nil {
		if repositories.IsNotFound(err) {
			return Product{}, ErrProductNotFound
		}
		return Product{}, err
	}

	if replacedImage != "" {
		if err := s.images.Delete(replacedImage); err != nil {
			s.logger.Warn("failed to delete replaced image", zap.String("file", replacedImage), zap.Error(err))
		}
	}

	s.logger.Info("product updated", zap.String("product_id", updated.ID))
	return updated, nil
}

func (s *catalogService) DeleteProduct(ctx context.Context, productID string) error {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return fmt.Errorf("%w: product id is required", ErrCatalogInvalidInput)
	}

	existing, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return ErrProductNotFound
		}
		return err
	}

	if err := s.products.Delete(ctx, productID); err != nil {
		if repositories.IsNotFound(err) {
			return ErrProductNotFound
		}
		return err
	}

	if file := imageFilename(existing.ImageURL); file != "" {
		if err := s.images.Delete(file); err != nil {
			s.logger.Warn("failed to delete product image", zap.String("file", file), zap.Error(err))
		}
	}

	s.logger.Info("product deleted", zap.String("product_id", productID))
	return nil
}

func (s *catalogService) normalise(name string, price float64, description string) (Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Product{}, fmt.Errorf("%w: product name is required", ErrCatalogInvalidInput)
	}
	if price < 0 {
		return Product{}, fmt.Errorf("%w: price must not be negative", ErrCatalogInvalidInput)
	}
	return Product{
		Name:        name,
		Price:       price,
		Description: s.policy.Sanitize(strings.TrimSpace(description)),
	}, nil
}

// imageFilename extracts the stored filename from a public image URL.
func imageFilename(imageURL string) string {
	if imageURL == "" {
		return ""
	}
	parsed, err := url.Parse(imageURL)
	if err != nil {
		return ""
	}
	name := path.Base(parsed.Path)
	if name == "." || name == "/" {
		return ""
	}
	return name
}
