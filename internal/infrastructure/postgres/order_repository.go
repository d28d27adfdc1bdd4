package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/oksasatya/go-ddd-storefront/internal/domain/entity"
	"github.com/oksasatya/go-ddd-storefront/internal/domain/repository"
)

const orderColumns = `id, user_id, items, shipping, payment_method,
	items_price, shipping_price, tax_price, total_price,
	is_paid, paid_at, is_delivered, delivered_at,
	COALESCE(payment_id, ''), payment_status, payment_update_time, payment_email,
	COALESCE(checkout_session_id, ''), created_at, updated_at`

// lineItemDoc and shippingDoc are the JSONB shapes of order snapshots.
type lineItemDoc struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Image     string          `json:"image"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"qty"`
}

type shippingDoc struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

func scanOrder(row pgx.Row) (*entity.Order, error) {
	var (
		o                   entity.Order
		itemsRaw, shipRaw   []byte
		payID, payStatus    string
		payUpdate, payEmail string
	)
	if err := row.Scan(&o.ID, &o.UserID, &itemsRaw, &shipRaw, &o.PaymentMethod,
		&o.ItemsPrice, &o.ShippingPrice, &o.TaxPrice, &o.TotalPrice,
		&o.IsPaid, &o.PaidAt, &o.IsDelivered, &o.DeliveredAt,
		&payID, &payStatus, &payUpdate, &payEmail,
		&o.CheckoutSessionID, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}

	var docs []lineItemDoc
	if err := json.Unmarshal(itemsRaw, &docs); err != nil {
		return nil, err
	}
	o.Items = make([]entity.LineItem, 0, len(docs))
	for _, d := range docs {
		o.Items = append(o.Items, entity.LineItem(d))
	}
	var ship shippingDoc
	if err := json.Unmarshal(shipRaw, &ship); err != nil {
		return nil, err
	}
	o.Shipping = entity.ShippingAddress(ship)
	if payID != "" {
		o.PaymentResult = &entity.PaymentResult{ID: payID, Status: payStatus, UpdateTime: payUpdate, EmailAddress: payEmail}
	}
	return &o, nil
}

func collectOrders(rows pgx.Rows) ([]*entity.Order, error) {
	defer rows.Close()
	out := make([]*entity.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *OrderRepository) Create(ctx context.Context, o *entity.Order) error {
	docs := make([]lineItemDoc, 0, len(o.Items))
	for _, it := range o.Items {
		docs = append(docs, lineItemDoc(it))
	}
	items, err := json.Marshal(docs)
	if err != nil {
		return err
	}
	ship, err := json.Marshal(shippingDoc(o.Shipping))
	if err != nil {
		return err
	}
	var pay entity.PaymentResult
	if o.PaymentResult != nil {
		pay = *o.PaymentResult
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO orders (user_id, items, shipping, payment_method,
			items_price, shipping_price, tax_price, total_price,
			is_paid, paid_at, payment_id, payment_status, payment_update_time, payment_email,
			checkout_session_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at, updated_at
	`, o.UserID, items, ship, o.PaymentMethod,
		o.ItemsPrice, o.ShippingPrice, o.TaxPrice, o.TotalPrice,
		o.IsPaid, o.PaidAt, nullable(pay.ID), pay.Status, pay.UpdateTime, pay.EmailAddress,
		nullable(o.CheckoutSessionID))

	return mapErr(row.Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt))
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*entity.Order, error) {
	if !validID(id) {
		return nil, repository.ErrNotFound
	}
	return scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
}

func (r *OrderRepository) GetByCheckoutSession(ctx context.Context, sessionID string) (*entity.Order, error) {
	if sessionID == "" {
		return nil, repository.ErrNotFound
	}
	return scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE checkout_session_id = $1`, sessionID))
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]*entity.Order, error) {
	if !validID(userID) {
		return []*entity.Order{}, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

func (r *OrderRepository) List(ctx context.Context) ([]*entity.Order, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

// exists separates "not found" from "condition not met" after a conditional update.
func (r *OrderRepository) exists(ctx context.Context, id string) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&ok)
	return ok, err
}

func (r *OrderRepository) conditional(ctx context.Context, id string, sql string, args ...any) (bool, error) {
	if !validID(id) {
		return false, repository.ErrNotFound
	}
	res, err := r.pool.Exec(ctx, sql, append([]any{id}, args...)...)
	if err != nil {
		return false, mapErr(err)
	}
	if res.RowsAffected() == 1 {
		return true, nil
	}
	ok, err := r.exists(ctx, id)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, repository.ErrNotFound
	}
	return false, nil
}

func (r *OrderRepository) MarkPaid(ctx context.Context, id string, at time.Time, res entity.PaymentResult) (bool, error) {
	return r.conditional(ctx, id, `
		UPDATE orders
		SET is_paid = TRUE, paid_at = $2, payment_id = $3, payment_status = $4,
		    payment_update_time = $5, payment_email = $6, updated_at = NOW()
		WHERE id = $1 AND NOT is_paid
	`, at, res.ID, res.Status, res.UpdateTime, res.EmailAddress)
}

func (r *OrderRepository) MarkDelivered(ctx context.Context, id string, at time.Time) (bool, error) {
	return r.conditional(ctx, id, `
		UPDATE orders
		SET is_delivered = TRUE, delivered_at = $2, updated_at = NOW()
		WHERE id = $1 AND is_paid AND NOT is_delivered
	`, at)
}

func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return repository.ErrNotFound
	}
	res, err := r.pool.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

var _ repository.OrderRepository = (*OrderRepository)(nil)
