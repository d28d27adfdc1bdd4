package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/go-ddd-storefront/internal/domain/entity"
	"github.com/oksasatya/go-ddd-storefront/internal/domain/repository"
)

type Products struct{ s *Store }

func (r *Products) Create(_ context.Context, p *entity.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.now()
	p.ID = uuid.NewString()
	p.CreatedAt, p.UpdatedAt = now, now
	p.RecalculateRating()
	r.s.products[p.ID] = cloneProduct(p, true)
	return nil
}

func (r *Products) GetByID(_ context.Context, id string) (*entity.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneProduct(p, true), nil
}

func (r *Products) GetByIDs(_ context.Context, ids []string) (map[string]*entity.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make(map[string]*entity.Product, len(ids))
	for _, id := range ids {
		if p, ok := r.s.products[id]; ok {
			out[id] = cloneProduct(p, false)
		}
	}
	return out, nil
}

// Update replaces the editable fields; reviews and the rating aggregate are kept.
func (r *Products) Update(_ context.Context, p *entity.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.products[p.ID]
	if !ok {
		return repository.ErrNotFound
	}
	next := cloneProduct(p, false)
	next.Reviews = cur.Reviews
	next.Rating, next.NumReviews = cur.Rating, cur.NumReviews
	next.CreatedAt = cur.CreatedAt
	next.UpdatedAt = r.s.now()
	r.s.products[p.ID] = next
	p.UpdatedAt = next.UpdatedAt
	return nil
}

func (r *Products) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.products, id)
	return nil
}

func (r *Products) List(_ context.Context, f repository.ProductFilter) ([]*entity.Product, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var matched []*entity.Product
	if f.IDs != nil {
		for _, id := range f.IDs {
			if p, ok := r.s.products[id]; ok {
				matched = append(matched, p)
			}
		}
	} else {
		for _, p := range r.s.products {
			if f.Keyword == "" || containsFold(p.Name, f.Keyword) {
				matched = append(matched, p)
			}
		}
		sortNewestFirst(matched, func(p *entity.Product) time.Time { return p.CreatedAt })
	}

	total := len(matched)
	start, end := pageBounds(f.Page, f.PageSize, total)
	out := make([]*entity.Product, 0, end-start)
	for _, p := range matched[start:end] {
		out = append(out, cloneProduct(p, false))
	}
	return out, total, nil
}

func pageBounds(page, size, total int) (int, int) {
	if size <= 0 {
		return 0, total
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	return start, end
}

func (r *Products) Top(_ context.Context, limit int) ([]*entity.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	all := make([]*entity.Product, 0, len(r.s.products))
	for _, p := range r.s.products {
		all = append(all, p)
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Rating != all[j].Rating {
			return all[i].Rating > all[j].Rating
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	out := make([]*entity.Product, 0, len(all))
	for _, p := range all {
		out = append(out, cloneProduct(p, false))
	}
	return out, nil
}

func (r *Products) AddReview(_ context.Context, productID string, rv entity.Review) (*entity.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[productID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	next := cloneProduct(p, true)
	if rv.ID == "" {
		rv.ID = uuid.NewString()
	}
	if rv.CreatedAt.IsZero() {
		rv.CreatedAt = r.s.now()
	}
	if err := next.AddReview(rv); err != nil {
		return nil, repository.ErrDuplicate
	}
	r.s.products[productID] = next
	return cloneProduct(next, true), nil
}
