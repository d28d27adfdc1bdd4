package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/go-ddd-storefront/internal/domain/entity"
	"github.com/oksasatya/go-ddd-storefront/internal/domain/repository"
)

const productColumns = `id, COALESCE(user_id::text, ''), name, image, brand, category, description,
	price, count_in_stock, rating, num_reviews, created_at, updated_at`

type ProductRepository struct {
	pool *pgxpool.Pool
}

func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

func scanProduct(row pgx.Row) (*entity.Product, error) {
	p := &entity.Product{}
	if err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Image, &p.Brand, &p.Category, &p.Description,
		&p.Price, &p.CountInStock, &p.Rating, &p.NumReviews, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	return p, nil
}

func collectProducts(rows pgx.Rows) ([]*entity.Product, error) {
	defer rows.Close()
	out := make([]*entity.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *ProductRepository) Create(ctx context.Context, p *entity.Product) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO products (user_id, name, image, brand, category, description, price, count_in_stock)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`, nullable(p.UserID), p.Name, p.Image, p.Brand, p.Category, p.Description, p.Price.Round(2), p.CountInStock)

	p.Rating, p.NumReviews, p.Reviews = 0, 0, nil
	return mapErr(row.Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt))
}

func (r *ProductRepository) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	if !validID(id) {
		return nil, repository.ErrNotFound
	}
	p, err := scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	p.Reviews, err = r.reviews(ctx, id)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *ProductRepository) reviews(ctx context.Context, productID string) ([]entity.Review, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, name, rating, comment, created_at
		FROM reviews WHERE product_id = $1
		ORDER BY created_at
	`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entity.Review
	for rows.Next() {
		var rv entity.Review
		if err := rows.Scan(&rv.ID, &rv.UserID, &rv.Name, &rv.Rating, &rv.Comment, &rv.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*entity.Product, error) {
	out := make(map[string]*entity.Product, len(ids))
	valid := parseIDs(ids)
	if len(valid) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, valid)
	if err != nil {
		return nil, err
	}
	items, err := collectProducts(rows)
	if err != nil {
		return nil, err
	}
	for _, p := range items {
		out[p.ID] = p
	}
	return out, nil
}

// Update writes the editable fields only; the rating aggregate belongs to AddReview.
func (r *ProductRepository) Update(ctx context.Context, p *entity.Product) error {
	if !validID(p.ID) {
		return repository.ErrNotFound
	}
	p.UpdatedAt = time.Now()
	res, err := r.pool.Exec(ctx, `
		UPDATE products
		SET name = $1, image = $2, brand = $3, category = $4, description = $5,
		    price = $6, count_in_stock = $7, updated_at = $8
		WHERE id = $9
	`, p.Name, p.Image, p.Brand, p.Category, p.Description, p.Price.Round(2), p.CountInStock, p.UpdatedAt, p.ID)
	if err != nil {
		return mapErr(err)
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return repository.ErrNotFound
	}
	res, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *ProductRepository) List(ctx context.Context, f repository.ProductFilter) ([]*entity.Product, int, error) {
	if f.IDs != nil {
		return r.listByIDs(ctx, f.IDs)
	}

	pattern := "%" + escapeLike(f.Keyword) + "%"
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE name ILIKE $1`, pattern).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit, offset := pageWindow(f.Page, f.PageSize)
	rows, err := r.pool.Query(ctx, `
		SELECT `+productColumns+` FROM products
		WHERE name ILIKE $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, pattern, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := collectProducts(rows)
	return items, total, err
}

// listByIDs keeps the caller's order, which is the search relevance order.
func (r *ProductRepository) listByIDs(ctx context.Context, ids []string) ([]*entity.Product, int, error) {
	found, err := r.GetByIDs(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	out := make([]*entity.Product, 0, len(found))
	for _, id := range ids {
		if p, ok := found[id]; ok {
			out = append(out, p)
		}
	}
	return out, len(out), nil
}

func pageWindow(page, size int) (*int, int) {
	if size <= 0 {
		return nil, 0
	}
	if page < 1 {
		page = 1
	}
	return &size, (page - 1) * size
}

func escapeLike(s string) string {
	out := make([]rune, 0, len(s))
	for _, c := range s {
		if c == '%' || c == '_' || c == '\\' {
			out = append(out, '\\')
		}
		out = append(out, c)
	}
	return string(out)
}

func (r *ProductRepository) Top(ctx context.Context, limit int) ([]*entity.Product, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+productColumns+` FROM products
		ORDER BY rating DESC, created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	return collectProducts(rows)
}

// AddReview inserts the review and recomputes the aggregate in one transaction.
// The product row is locked so concurrent reviews serialise on it.
func (r *ProductRepository) AddReview(ctx context.Context, productID string, rv entity.Review) (*entity.Product, error) {
	if !validID(productID) {
		return nil, repository.ErrNotFound
	}
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var locked string
		if err := tx.QueryRow(ctx, `SELECT id FROM products WHERE id = $1 FOR UPDATE`, productID).Scan(&locked); err != nil {
			return mapErr(err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO reviews (product_id, user_id, name, rating, comment)
			VALUES ($1, $2, $3, $4, $5)
		`, productID, rv.UserID, rv.Name, rv.Rating, rv.Comment); err != nil {
			return mapErr(err)
		}
		_, err := tx.Exec(ctx, `
			UPDATE products p
			SET num_reviews = s.n,
			    rating = ROUND(s.avg, 2)::float8,
			    updated_at = NOW()
			FROM (
				SELECT COUNT(*) AS n, AVG(rating)::numeric AS avg
				FROM reviews WHERE product_id = $1
			) s
			WHERE p.id = $1
		`, productID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, productID)
}

var _ repository.ProductRepository = (*ProductRepository)(nil)
