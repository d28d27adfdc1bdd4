package mongodb

import (
	"context"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/oksasatya/go-ddd-storefront/internal/domain/entity"
	"github.com/oksasatya/go-ddd-storefront/internal/domain/repository"
)

// reviewRetries bounds optimistic retries when reviews race on one product.
const reviewRetries = 5

type reviewDoc struct {
	ID        string    `bson:"id"`
	UserID    string    `bson:"user_id"`
	Name      string    `bson:"name"`
	Rating    int       `bson:"rating"`
	Comment   string    `bson:"comment"`
	CreatedAt time.Time `bson:"created_at"`
}

type productDoc struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty"`
	UserID       string               `bson:"user_id"`
	Name         string               `bson:"name"`
	Image        string               `bson:"image"`
	Brand        string               `bson:"brand"`
	Category     string               `bson:"category"`
	Description  string               `bson:"description"`
	Price        primitive.Decimal128 `bson:"price"`
	CountInStock int                  `bson:"count_in_stock"`
	Rating       float64              `bson:"rating"`
	NumReviews   int                  `bson:"num_reviews"`
	Reviews      []reviewDoc          `bson:"reviews"`
	CreatedAt    time.Time            `bson:"created_at"`
	UpdatedAt    time.Time            `bson:"updated_at"`
}

func (d *productDoc) entity(withReviews bool) *entity.Product {
	p := &entity.Product{
		ID:           d.ID.Hex(),
		UserID:       d.UserID,
		Name:         d.Name,
		Image:        d.Image,
		Brand:        d.Brand,
		Category:     d.Category,
		Description:  d.Description,
		Price:        fromDecimal128(d.Price),
		CountInStock: d.CountInStock,
		Rating:       d.Rating,
		NumReviews:   d.NumReviews,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
	if withReviews {
		for _, rv := range d.Reviews {
			p.Reviews = append(p.Reviews, entity.Review(rv))
		}
	}
	return p
}

// withoutReviews keeps list queries small.
var withoutReviews = bson.M{"reviews": 0}

type ProductRepository struct {
	coll *mongo.Collection
}

func NewProductRepository(db *mongo.Database) *ProductRepository {
	return &ProductRepository{coll: db.Collection(productsCollection)}
}

func (r *ProductRepository) Create(ctx context.Context, p *entity.Product) error {
	now := time.Now().UTC()
	doc := productDoc{
		ID:           primitive.NewObjectID(),
		UserID:       p.UserID,
		Name:         p.Name,
		Image:        p.Image,
		Brand:        p.Brand,
		Category:     p.Category,
		Description:  p.Description,
		Price:        toDecimal128(p.Price),
		CountInStock: p.CountInStock,
		Reviews:      []reviewDoc{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return mapErr(err)
	}
	p.ID, p.CreatedAt, p.UpdatedAt = doc.ID.Hex(), now, now
	p.Rating, p.NumReviews, p.Reviews = 0, 0, nil
	return nil
}

func (r *ProductRepository) get(ctx context.Context, oid primitive.ObjectID) (*productDoc, error) {
	var doc productDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, mapErr(err)
	}
	return &doc, nil
}

func (r *ProductRepository) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	doc, err := r.get(ctx, oid)
	if err != nil {
		return nil, err
	}
	return doc.entity(true), nil
}

func (r *ProductRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*entity.Product, error) {
	cur, err := r.coll.Find(ctx, filter, opts.SetProjection(withoutReviews))
	if err != nil {
		return nil, err
	}
	var docs []productDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*entity.Product, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].entity(false))
	}
	return out, nil
}

func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*entity.Product, error) {
	out := make(map[string]*entity.Product, len(ids))
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	if len(oids) == 0 {
		return out, nil
	}
	items, err := r.find(ctx, bson.M{"_id": bson.M{"$in": oids}}, options.Find())
	if err != nil {
		return nil, err
	}
	for _, p := range items {
		out[p.ID] = p
	}
	return out, nil
}

func (r *ProductRepository) Update(ctx context.Context, p *entity.Product) error {
	oid, err := objectID(p.ID)
	if err != nil {
		return err
	}
	p.UpdatedAt = time.Now().UTC()
	res, err := r.coll.UpdateByID(ctx, oid, bson.M{"$set": bson.M{
		"name":           p.Name,
		"image":          p.Image,
		"brand":          p.Brand,
		"category":       p.Category,
		"description":    p.Description,
		"price":          toDecimal128(p.Price),
		"count_in_stock": p.CountInStock,
		"updated_at":     p.UpdatedAt,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
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

func (r *ProductRepository) List(ctx context.Context, f repository.ProductFilter) ([]*entity.Product, int, error) {
	if f.IDs != nil {
		found, err := r.GetByIDs(ctx, f.IDs)
		if err != nil {
			return nil, 0, err
		}
		out := make([]*entity.Product, 0, len(found))
		for _, id := range f.IDs {
			if p, ok := found[id]; ok {
				out = append(out, p)
			}
		}
		return out, len(out), nil
	}

	filter := bson.M{}
	if f.Keyword != "" {
		filter["name"] = bson.M{"$regex": regexp.QuoteMeta(f.Keyword), "$options": "i"}
	}
	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if f.PageSize > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		opts.SetSkip(int64((page - 1) * f.PageSize)).SetLimit(int64(f.PageSize))
	}
	items, err := r.find(ctx, filter, opts)
	return items, int(total), err
}

func (r *ProductRepository) Top(ctx context.Context, limit int) ([]*entity.Product, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "rating", Value: -1}, {Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))
	return r.find(ctx, bson.M{}, opts)
}

// AddReview appends the review with a compare-and-set on the review count,
// so the stored aggregate always matches the stored reviews.
func (r *ProductRepository) AddReview(ctx context.Context, productID string, rv entity.Review) (*entity.Product, error) {
	oid, err := objectID(productID)
	if err != nil {
		return nil, err
	}
	if rv.ID == "" {
		rv.ID = primitive.NewObjectID().Hex()
	}
	if rv.CreatedAt.IsZero() {
		rv.CreatedAt = time.Now().UTC()
	}

	for attempt := 0; attempt < reviewRetries; attempt++ {
		doc, err := r.get(ctx, oid)
		if err != nil {
			return nil, err
		}
		p := doc.entity(true)
		if err := p.AddReview(rv); err != nil {
			return nil, repository.ErrDuplicate
		}
		reviews := make([]reviewDoc, 0, len(p.Reviews))
		for _, x := range p.Reviews {
			reviews = append(reviews, reviewDoc(x))
		}
		p.UpdatedAt = time.Now().UTC()
		res, err := r.coll.UpdateOne(ctx,
			bson.M{"_id": oid, "num_reviews": doc.NumReviews},
			bson.M{"$set": bson.M{
				"reviews":     reviews,
				"num_reviews": p.NumReviews,
				"rating":      p.Rating,
				"updated_at":  p.UpdatedAt,
			}})
		if err != nil {
			return nil, err
		}
		if res.MatchedCount == 1 {
			return p, nil
		}
	}
	return nil, errReviewContention
}

var _ repository.ProductRepository = (*ProductRepository)(nil)
