package mongodb

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/oksasatya/go-ddd-storefront/internal/domain/entity"
	"github.com/oksasatya/go-ddd-storefront/internal/domain/repository"
)

type userDoc struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty"`
	Name               string             `bson:"name"`
	Email              string             `bson:"email"`
	Password           string             `bson:"password"`
	IsAdmin            bool               `bson:"is_admin"`
	IsEmailVerified    bool               `bson:"is_email_verified"`
	ResetCode          string             `bson:"reset_code,omitempty"`
	ResetCodeExpiresAt *time.Time         `bson:"reset_code_expires_at,omitempty"`
	ResetAttempts      int                `bson:"reset_attempts,omitempty"`
	CreatedAt          time.Time          `bson:"created_at"`
	UpdatedAt          time.Time          `bson:"updated_at"`
}

func (d *userDoc) entity() *entity.User {
	return &entity.User{
		ID:                 d.ID.Hex(),
		Name:               d.Name,
		Email:              d.Email,
		Password:           d.Password,
		IsAdmin:            d.IsAdmin,
		IsEmailVerified:    d.IsEmailVerified,
		ResetCode:          d.ResetCode,
		ResetCodeExpiresAt: d.ResetCodeExpiresAt,
		ResetAttempts:      d.ResetAttempts,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}
}

type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(usersCollection)}
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	now := time.Now().UTC()
	doc := userDoc{
		ID:              primitive.NewObjectID(),
		Name:            u.Name,
		Email:           strings.ToLower(u.Email),
		Password:        u.Password,
		IsAdmin:         u.IsAdmin,
		IsEmailVerified: u.IsEmailVerified,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return mapErr(err)
	}
	u.ID, u.Email, u.CreatedAt, u.UpdatedAt = doc.ID.Hex(), doc.Email, now, now
	return nil
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*entity.User, error) {
	var doc userDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, mapErr(err)
	}
	return doc.entity(), nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.findOne(ctx, bson.M{"email": strings.ToLower(email)})
}

func (r *UserRepository) Update(ctx context.Context, u *entity.User) error {
	oid, err := objectID(u.ID)
	if err != nil {
		return err
	}
	u.Email = strings.ToLower(u.Email)
	u.UpdatedAt = time.Now().UTC()
	set := bson.M{
		"name":              u.Name,
		"email":             u.Email,
		"password":          u.Password,
		"is_admin":          u.IsAdmin,
		"is_email_verified": u.IsEmailVerified,
		"updated_at":        u.UpdatedAt,
	}
	update := bson.M{"$set": set}
	if u.ResetCode != "" && u.ResetCodeExpiresAt != nil {
		set["reset_code"] = u.ResetCode
		set["reset_code_expires_at"] = u.ResetCodeExpiresAt
		set["reset_attempts"] = u.ResetAttempts
	} else {
		update["$unset"] = bson.M{"reset_code": "", "reset_code_expires_at": "", "reset_attempts": ""}
	}
	res, err := r.coll.UpdateByID(ctx, oid, update)
	if err != nil {
		return mapErr(err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
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

func (r *UserRepository) List(ctx context.Context) ([]*entity.User, error) {
	cur, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*entity.User, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].entity())
	}
	return out, nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
