package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/oksasatya/go-ddd-storefront/internal/domain/entity"
	"github.com/oksasatya/go-ddd-storefront/internal/domain/repository"
)

type lineItemDoc struct {
	ProductID string               `bson:"product_id"`
	Name      string               `bson:"name"`
	Image     string               `bson:"image"`
	Price     primitive.Decimal128 `bson:"price"`
	Quantity  int                  `bson:"qty"`
}

type shippingDoc struct {
	Address    string `bson:"address"`
	City       string `bson:"city"`
	PostalCode string `bson:"postal_code"`
	Country    string `bson:"country"`
}

type paymentResultDoc struct {
	ID           string `bson:"id"`
	Status       string `bson:"status"`
	UpdateTime   string `bson:"update_time"`
	EmailAddress string `bson:"email_address"`
}

type orderDoc struct {
	ID                primitive.ObjectID   `bson:"_id,omitempty"`
	UserID            string               `bson:"user_id"`
	Items             []lineItemDoc        `bson:"items"`
	Shipping          shippingDoc          `bson:"shipping"`
	PaymentMethod     string               `bson:"payment_method"`
	ItemsPrice        primitive.Decimal128 `bson:"items_price"`
	ShippingPrice     primitive.Decimal128 `bson:"shipping_price"`
	TaxPrice          primitive.Decimal128 `bson:"tax_price"`
	TotalPrice        primitive.Decimal128 `bson:"total_price"`
	IsPaid            bool                 `bson:"is_paid"`
	PaidAt            *time.Time           `bson:"paid_at,omitempty"`
	IsDelivered       bool                 `bson:"is_delivered"`
	DeliveredAt       *time.Time           `bson:"delivered_at,omitempty"`
	PaymentResult     *paymentResultDoc    `bson:"payment_result,omitempty"`
	CheckoutSessionID string               `bson:"checkout_session_id,omitempty"`
	CreatedAt         time.Time            `bson:"created_at"`
	UpdatedAt         time.Time            `bson:"updated_at"`
}

func newOrderDoc(o *entity.Order) orderDoc {
	items := make([]lineItemDoc, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, lineItemDoc{
			ProductID: it.ProductID,
			Name:      it.Name,
			Image:     it.Image,
			Price:     toDecimal128(it.Price),
			Quantity:  it.Quantity,
		})
	}
	doc := orderDoc{
		UserID:            o.UserID,
		Items:             items,
		Shipping:          shippingDoc(o.Shipping),
		PaymentMethod:     o.PaymentMethod,
		ItemsPrice:        toDecimal128(o.ItemsPrice),
		ShippingPrice:     toDecimal128(o.ShippingPrice),
		TaxPrice:          toDecimal128(o.TaxPrice),
		TotalPrice:        toDecimal128(o.TotalPrice),
		IsPaid:            o.IsPaid,
		PaidAt:            o.PaidAt,
		IsDelivered:       o.IsDelivered,
		DeliveredAt:       o.DeliveredAt,
		CheckoutSessionID: o.CheckoutSessionID,
	}
	if o.PaymentResult != nil {
		pr := paymentResultDoc(*o.PaymentResult)
		doc.PaymentResult = &pr
	}
	return doc
}

func (d *orderDoc) entity() *entity.Order {
	o := &entity.Order{
		ID:                d.ID.Hex(),
		UserID:            d.UserID,
		Items:             make([]entity.LineItem, 0, len(d.Items)),
		Shipping:          entity.ShippingAddress(d.Shipping),
		PaymentMethod:     d.PaymentMethod,
		ItemsPrice:        fromDecimal128(d.ItemsPrice),
		ShippingPrice:     fromDecimal128(d.ShippingPrice),
		TaxPrice:          fromDecimal128(d.TaxPrice),
		TotalPrice:        fromDecimal128(d.TotalPrice),
		IsPaid:            d.IsPaid,
		PaidAt:            d.PaidAt,
		IsDelivered:       d.IsDelivered,
		DeliveredAt:       d.DeliveredAt,
		CheckoutSessionID: d.CheckoutSessionID,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
	for _, it := range d.Items {
		o.Items = append(o.Items, entity.LineItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Image:     it.Image,
			Price:     fromDecimal128(it.Price),
			Quantity:  it.Quantity,
		})
	}
	if d.PaymentResult != nil {
		pr := entity.PaymentResult(*d.PaymentResult)
		o.PaymentResult = &pr
	}
	return o
}

type OrderRepository struct {
	coll *mongo.Collection
}

func NewOrderRepository(db *mongo.Database) *OrderRepository {
	return &OrderRepository{coll: db.Collection(ordersCollection)}
}

func (r *OrderRepository) Create(ctx context.Context, o *entity.Order) error {
	now := time.Now().UTC()
	doc := newOrderDoc(o)
	doc.ID = primitive.NewObjectID()
	doc.CreatedAt, doc.UpdatedAt = now, now
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return mapErr(err)
	}
	o.ID, o.CreatedAt, o.UpdatedAt = doc.ID.Hex(), now, now
	return nil
}

func (r *OrderRepository) findOne(ctx context.Context, filter bson.M) (*entity.Order, error) {
	var doc orderDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, mapErr(err)
	}
	return doc.entity(), nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*entity.Order, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *OrderRepository) GetByCheckoutSession(ctx context.Context, sessionID string) (*entity.Order, error) {
	if sessionID == "" {
		return nil, repository.ErrNotFound
	}
	return r.findOne(ctx, bson.M{"checkout_session_id": sessionID})
}

func (r *OrderRepository) list(ctx context.Context, filter bson.M) ([]*entity.Order, error) {
	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	var docs []orderDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*entity.Order, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].entity())
	}
	return out, nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]*entity.Order, error) {
	return r.list(ctx, bson.M{"user_id": userID})
}

func (r *OrderRepository) List(ctx context.Context) ([]*entity.Order, error) {
	return r.list(ctx, bson.M{})
}

// conditional applies update when cond also holds, then tells "not found" apart from "condition not met".
func (r *OrderRepository) conditional(ctx context.Context, id string, cond, update bson.M) (bool, error) {
	oid, err := objectID(id)
	if err != nil {
		return false, err
	}
	cond["_id"] = oid
	res, err := r.coll.UpdateOne(ctx, cond, update)
	if err != nil {
		return false, mapErr(err)
	}
	if res.MatchedCount == 1 {
		return true, nil
	}
	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": oid})
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, repository.ErrNotFound
	}
	return false, nil
}

func (r *OrderRepository) MarkPaid(ctx context.Context, id string, at time.Time, res entity.PaymentResult) (bool, error) {
	pr := paymentResultDoc(res)
	return r.conditional(ctx, id, bson.M{"is_paid": false}, bson.M{"$set": bson.M{
		"is_paid":        true,
		"paid_at":        at.UTC(),
		"payment_result": pr,
		"updated_at":     time.Now().UTC(),
	}})
}

func (r *OrderRepository) MarkDelivered(ctx context.Context, id string, at time.Time) (bool, error) {
	return r.conditional(ctx, id, bson.M{"is_paid": true, "is_delivered": false}, bson.M{"$set": bson.M{
		"is_delivered": true,
		"delivered_at": at.UTC(),
		"updated_at":   time.Now().UTC(),
	}})
}

func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

var _ repository.OrderRepository = (*OrderRepository)(nil)
