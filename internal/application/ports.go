package application

import (
	"context"
	"io"
	"time"

	"github.com/oksasatya/go-ddd-storefront/internal/domain/entity"
	"github.com/oksasatya/go-ddd-storefront/pkg/mailer"
)

// Notifier hands an email job to whatever delivers mail.
type Notifier interface {
	Notify(ctx context.Context, job mailer.EmailJob) error
}

// SessionRevoker keeps logged-out session ids until their tokens expire.
type SessionRevoker interface {
	Revoke(ctx context.Context, jti string, until time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// EventGuard claims a key for a while. It drops provider retries of an event
// and keeps two charges for one order from running at once.
type EventGuard interface {
	FirstSeen(ctx context.Context, eventID string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, eventID string) error
}

// ProductIndex is a full-text index over the catalog.
type ProductIndex interface {
	Index(ctx context.Context, p *entity.Product) error
	Remove(ctx context.Context, id string) error
	// Search returns matching product ids for one page and the total hit count.
	Search(ctx context.Context, keyword string, from, size int) ([]string, int, error)
}

// ProductCache caches the top-rated list.
type ProductCache interface {
	GetTop(ctx context.Context, limit int) ([]*entity.Product, bool)
	SetTop(ctx context.Context, limit int, products []*entity.Product)
	Invalidate(ctx context.Context)
}

// ImageStore persists an uploaded image and returns the path or URL clients use.
type ImageStore interface {
	Save(ctx context.Context, name, contentType string, r io.Reader) (string, error)
}
