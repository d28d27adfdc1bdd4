package repository

import (
	"context"

	"github.com/oksasatya/go-ddd-storefront/internal/domain/entity"
)

// ProductFilter selects a page of products. When IDs is non-nil only those
// products are returned, in the given order, and Keyword is ignored.
type ProductFilter struct {
	Keyword  string
	IDs      []string
	Page     int
	PageSize int
}

type ProductRepository interface {
	Create(ctx context.Context, p *entity.Product) error
	// GetByID loads the product with its reviews.
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	// GetByIDs loads products without reviews; unknown or malformed ids are absent from the map.
	GetByIDs(ctx context.Context, ids []string) (map[string]*entity.Product, error)
	Update(ctx context.Context, p *entity.Product) error
	Delete(ctx context.Context, id string) error
	// List returns one page and the total number of matches.
	List(ctx context.Context, f ProductFilter) ([]*entity.Product, int, error)
	Top(ctx context.Context, limit int) ([]*entity.Product, error)
	// AddReview stores r and recomputes rating and review count atomically.
	// It returns ErrDuplicate if r.UserID already reviewed the product.
	AddReview(ctx context.Context, productID string, r entity.Review) (*entity.Product, error)
}
