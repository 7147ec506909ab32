package repositories

import (
	"context"

	"github.com/fotomart/api/internal/domain"
)

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// ProductRepository persists catalog listings.
type ProductRepository interface {
	Insert(ctx context.Context, product domain.Product) (domain.Product, error)
	Update(ctx context.Context, product domain.Product) (domain.Product, error)
	Delete(ctx context.Context, productID string) error
	FindByID(ctx context.Context, productID string) (domain.Product, error)
	List(ctx context.Context) ([]domain.Product, error)
}

// OrderRepository records completed purchases.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) (domain.Order, error)
	FindByPaymentIntent(ctx context.Context, intentID string) (domain.Order, error)
	UpdateStatusByPaymentIntent(ctx context.Context, intentID, status string) (domain.Order, error)
}

// IsNotFound reports whether err carries repository not-found categorisation.
func IsNotFound(err error) bool {
	var repoErr RepositoryError
	if !asRepositoryError(err, &repoErr) {
		return false
	}
	return repoErr.IsNotFound()
}

func asRepositoryError(err error, target *RepositoryError) bool {
	for err != nil {
		if repoErr, ok := err.(RepositoryError); ok {
			*target = repoErr
			return true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}
