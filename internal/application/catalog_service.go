package application

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-storefront/internal/domain/entity"
	repo "github.com/oksasatya/go-ddd-storefront/internal/domain/repository"
	"github.com/oksasatya/go-ddd-storefront/pkg/apperror"
	"github.com/oksasatya/go-ddd-storefront/pkg/helpers"
)

const defaultTopLimit = 3

type CatalogService struct {
	Products repo.ProductRepository
	Index    ProductIndex // optional
	Cache    ProductCache // optional
	Logger   *logrus.Logger
	PageSize int
}

func NewCatalogService(products repo.ProductRepository, index ProductIndex, cache ProductCache, logger *logrus.Logger, pageSize int) *CatalogService {
	if pageSize <= 0 {
		pageSize = 8
	}
	return &CatalogService{Products: products, Index: index, Cache: cache, Logger: logger, PageSize: pageSize}
}

type ProductPage struct {
	Products []*entity.Product
	Page     int
	Pages    int
}

func pagesFor(total, size int) int {
	if total == 0 {
		return 1
	}
	return (total + size - 1) / size
}

// List returns one page of products, optionally filtered by keyword.
// Keyword search goes through the index when there is one and falls back to a name match.
func (s *CatalogService) List(ctx context.Context, keyword string, page int) (*ProductPage, error) {
	if page < 1 {
		page = 1
	}
	keyword = strings.TrimSpace(keyword)
	f := repo.ProductFilter{Keyword: keyword, Page: page, PageSize: s.PageSize}

	if keyword != "" && s.Index != nil {
		ids, total, err := s.Index.Search(ctx, keyword, (page-1)*s.PageSize, s.PageSize)
		if err == nil {
			if ids == nil {
				ids = []string{}
			}
			items, _, err := s.Products.List(ctx, repo.ProductFilter{IDs: ids})
			if err != nil {
				return nil, apperror.Internal(err)
			}
			return &ProductPage{Products: items, Page: page, Pages: pagesFor(total, s.PageSize)}, nil
		}
		helpers.LogError(s.Logger, "product search failed, falling back to store", err, logrus.Fields{"keyword": keyword})
	}

	items, total, err := s.Products.List(ctx, f)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return &ProductPage{Products: items, Page: page, Pages: pagesFor(total, s.PageSize)}, nil
}

func (s *CatalogService) Get(ctx context.Context, id string) (*entity.Product, error) {
	p, err := s.Products.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "product not found")
	}
	return p, nil
}

// Top returns the best rated products, served from cache when possible.
func (s *CatalogService) Top(ctx context.Context, limit int) ([]*entity.Product, error) {
	if limit <= 0 || limit > 20 {
		limit = defaultTopLimit
	}
	if s.Cache != nil {
		if cached, ok := s.Cache.GetTop(ctx, limit); ok {
			return cached, nil
		}
	}
	items, err := s.Products.Top(ctx, limit)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if s.Cache != nil {
		s.Cache.SetTop(ctx, limit, items)
	}
	return items, nil
}

// Create adds a placeholder product for the admin to edit.
func (s *CatalogService) Create(ctx context.Context, p entity.Principal) (*entity.Product, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	prod := &entity.Product{
		UserID:      p.UserID,
		Name:        "Sample name",
		Image:       "/images/sample.jpg",
		Brand:       "Sample brand",
		Category:    "Sample category",
		Description: "Sample description",
		Price:       decimal.Zero,
	}
	if err := s.Products.Create(ctx, prod); err != nil {
		return nil, apperror.Internal(err)
	}
	s.changed(ctx, prod)
	return prod, nil
}

// ProductUpdate holds optional changes; nil fields are left alone.
type ProductUpdate struct {
	Name         *string
	Price        *decimal.Decimal
	Description  *string
	Image        *string
	Brand        *string
	Category     *string
	CountInStock *int
}

func (s *CatalogService) Update(ctx context.Context, p entity.Principal, id string, in ProductUpdate) (*entity.Product, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	prod, err := s.Products.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "product not found")
	}
	if in.Price != nil && in.Price.IsNegative() {
		return nil, apperror.InvalidInput("price must not be negative")
	}
	if in.CountInStock != nil && *in.CountInStock < 0 {
		return nil, apperror.InvalidInput("countInStock must not be negative")
	}
	setString(&prod.Name, in.Name)
	setString(&prod.Description, in.Description)
	setString(&prod.Image, in.Image)
	setString(&prod.Brand, in.Brand)
	setString(&prod.Category, in.Category)
	if in.Price != nil {
		prod.Price = in.Price.Round(2)
	}
	if in.CountInStock != nil {
		prod.CountInStock = *in.CountInStock
	}
	if err := s.Products.Update(ctx, prod); err != nil {
		return nil, notFoundOr(err, "product not found")
	}
	s.changed(ctx, prod)
	return prod, nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func (s *CatalogService) Delete(ctx context.Context, p entity.Principal, id string) error {
	if err := requireAdmin(p); err != nil {
		return err
	}
	if err := s.Products.Delete(ctx, id); err != nil {
		return notFoundOr(err, "product not found")
	}
	if s.Index != nil {
		if err := s.Index.Remove(ctx, id); err != nil {
			helpers.LogError(s.Logger, "remove product from index failed", err, logrus.Fields{"product_id": id})
		}
	}
	if s.Cache != nil {
		s.Cache.Invalidate(ctx)
	}
	return nil
}

// AddReview records the caller's single review of a product.
func (s *CatalogService) AddReview(ctx context.Context, p entity.Principal, productID string, rating int, comment string) (*entity.Product, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}
	if rating < 1 || rating > 5 {
		return nil, apperror.InvalidInput("rating must be between 1 and 5")
	}
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return nil, apperror.InvalidInput("comment is required")
	}
	prod, err := s.Products.AddReview(ctx, productID, entity.Review{
		UserID:  p.UserID,
		Name:    p.Name,
		Rating:  rating,
		Comment: comment,
	})
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, apperror.Conflict("product already reviewed")
		}
		return nil, notFoundOr(err, "product not found")
	}
	s.changed(ctx, prod)
	return prod, nil
}

// changed keeps the search index and top cache in step with a product write.
func (s *CatalogService) changed(ctx context.Context, p *entity.Product) {
	if s.Index != nil {
		if err := s.Index.Index(ctx, p); err != nil {
			helpers.LogError(s.Logger, "index product failed", err, logrus.Fields{"product_id": p.ID})
		}
	}
	if s.Cache != nil {
		s.Cache.Invalidate(ctx)
	}
}
