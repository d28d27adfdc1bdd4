package main

import (
	"context"
	"errors"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/oksasatya/go-ddd-storefront/config"
	"github.com/oksasatya/go-ddd-storefront/internal/container"
	"github.com/oksasatya/go-ddd-storefront/internal/domain/entity"
	repo "github.com/oksasatya/go-ddd-storefront/internal/domain/repository"
	"github.com/oksasatya/go-ddd-storefront/internal/infrastructure/mongodb"
	pginfra "github.com/oksasatya/go-ddd-storefront/internal/infrastructure/postgres"
	"github.com/oksasatya/go-ddd-storefront/internal/infrastructure/search"
	"github.com/oksasatya/go-ddd-storefront/internal/router"
	"github.com/oksasatya/go-ddd-storefront/pkg/helpers"
)

var sampleProducts = []entity.Product{
	{Name: "Airpods Wireless Bluetooth Headphones", Brand: "Apple", Category: "Electronics", Price: decimal.RequireFromString("89.99"), CountInStock: 10,
		Description: "Bluetooth technology lets you connect it with compatible devices wirelessly"},
	{Name: "iPhone 13 Pro 256GB Memory", Brand: "Apple", Category: "Electronics", Price: decimal.RequireFromString("599.99"), CountInStock: 7,
		Description: "Introducing the iPhone 13 Pro. A transformative triple-camera system"},
	{Name: "Cannon EOS 80D DSLR Camera", Brand: "Cannon", Category: "Electronics", Price: decimal.RequireFromString("929.99"), CountInStock: 5,
		Description: "Characterized by versatile imaging specs, the Canon EOS 80D further clarifies itself"},
	{Name: "Sony Playstation 5", Brand: "Sony", Category: "Electronics", Price: decimal.RequireFromString("399.99"), CountInStock: 11,
		Description: "The ultimate home entertainment center starts with PlayStation"},
	{Name: "Logitech G-Series Gaming Mouse", Brand: "Logitech", Category: "Electronics", Price: decimal.RequireFromString("49.99"), CountInStock: 7,
		Description: "Get a better handle on your games with this Logitech LIGHTSYNC gaming mouse"},
	{Name: "Amazon Echo Dot 3rd Generation", Brand: "Amazon", Category: "Electronics", Price: decimal.RequireFromString("29.99"), CountInStock: 0,
		Description: "Meet Echo Dot - Our most popular smart speaker with a fabric design"},
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName, cfg.Env)
	ctx := context.Background()

	email := strings.ToLower(strings.TrimSpace(os.Getenv("SEED_ADMIN_EMAIL")))
	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if email == "" || len(password) < 6 {
		log.Fatal("SEED_ADMIN_EMAIL and SEED_ADMIN_PASSWORD (min 6 chars) are required")
	}

	switch cfg.DBDriver {
	case "postgres", "":
		pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), pginfra.PoolOptions{MaxConns: 2})
		if err != nil {
			log.Fatalf("failed to connect to postgres: %v", err)
		}
		defer pool.Close()
		if err := pginfra.Migrate(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
			log.Fatalf("migration failed: %v", err)
		}
		container.SetPGPool(pool)
	case "mongo", "mongodb":
		client, err := mongodb.Connect(ctx, cfg.MongoURI)
		if err != nil {
			log.Fatalf("failed to connect to mongo: %v", err)
		}
		defer func() { _ = client.Disconnect(context.Background()) }()
		db := client.Database(cfg.MongoDB)
		if err := mongodb.EnsureIndexes(ctx, db); err != nil {
			log.Fatalf("mongo indexes: %v", err)
		}
		container.SetMongo(db)
	default:
		log.Fatalf("seeding needs a persistent DB_DRIVER, got %q", cfg.DBDriver)
	}

	repos, err := router.BuildRepositories(cfg)
	if err != nil {
		log.Fatalf("repositories: %v", err)
	}

	admin, err := seedAdmin(ctx, repos.Users, cfg.AppName, email, password)
	if err != nil {
		log.Fatalf("failed to seed admin: %v", err)
	}
	logger.WithField("user_id", admin.ID).Info("admin ensured")

	var index *search.ProductIndex
	if addrs := cfg.ESAddrs(); len(addrs) > 0 {
		es, err := helpers.NewESClient(addrs, cfg.ElasticsearchUser, cfg.ElasticsearchPass, cfg.ProviderTimeout)
		if err != nil {
			log.Fatalf("failed to init elasticsearch: %v", err)
		}
		index = search.NewProductIndex(es, cfg.ESProductsIndex)
		if err := index.EnsureIndex(ctx); err != nil {
			log.Fatalf("products index: %v", err)
		}
	}

	n, err := seedProducts(ctx, repos.Products, index, admin.ID)
	if err != nil {
		log.Fatalf("failed to seed products: %v", err)
	}
	logger.WithField("count", n).Info("products seeded")
}

// seedAdmin creates the admin, or promotes an existing account with that email.
func seedAdmin(ctx context.Context, users repo.UserRepository, appName, email, password string) (*entity.User, error) {
	u, err := users.GetByEmail(ctx, email)
	if err == nil {
		u.IsAdmin = true
		u.IsEmailVerified = true
		return u, users.Update(ctx, u)
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}
	hash, err := helpers.HashPassword(password)
	if err != nil {
		return nil, err
	}
	u = &entity.User{
		Name:            appName + " Admin",
		Email:           email,
		Password:        hash,
		IsAdmin:         true,
		IsEmailVerified: true,
	}
	return u, users.Create(ctx, u)
}

// seedProducts only fills an empty catalog.
func seedProducts(ctx context.Context, products repo.ProductRepository, index *search.ProductIndex, adminID string) (int, error) {
	_, total, err := products.List(ctx, repo.ProductFilter{Page: 1, PageSize: 1})
	if err != nil {
		return 0, err
	}
	if total > 0 {
		return 0, nil
	}
	for i := range sampleProducts {
		p := sampleProducts[i]
		p.UserID = adminID
		p.Image = "/images/sample.jpg"
		if err := products.Create(ctx, &p); err != nil {
			return i, err
		}
		if index != nil {
			if err := index.Index(ctx, &p); err != nil {
				return i, err
			}
		}
	}
	return len(sampleProducts), nil
}
