package router

import (
	"fmt"

	"github.com/oksasatya/go-ddd-storefront/config"
	"github.com/oksasatya/go-ddd-storefront/internal/application"
	"github.com/oksasatya/go-ddd-storefront/internal/container"
	"github.com/oksasatya/go-ddd-storefront/internal/domain/payment"
	repo "github.com/oksasatya/go-ddd-storefront/internal/domain/repository"
	"github.com/oksasatya/go-ddd-storefront/internal/infrastructure/cache"
	"github.com/oksasatya/go-ddd-storefront/internal/infrastructure/iyzico"
	"github.com/oksasatya/go-ddd-storefront/internal/infrastructure/memory"
	"github.com/oksasatya/go-ddd-storefront/internal/infrastructure/mongodb"
	pginfra "github.com/oksasatya/go-ddd-storefront/internal/infrastructure/postgres"
	"github.com/oksasatya/go-ddd-storefront/internal/infrastructure/queue"
	"github.com/oksasatya/go-ddd-storefront/internal/infrastructure/search"
	"github.com/oksasatya/go-ddd-storefront/internal/infrastructure/storage"
	"github.com/oksasatya/go-ddd-storefront/internal/infrastructure/stripe"
	handlers "github.com/oksasatya/go-ddd-storefront/internal/interface/http"
	"github.com/oksasatya/go-ddd-storefront/internal/router/modules"
)

// Repositories is one store's implementation of every repository.
type Repositories struct {
	Users    repo.UserRepository
	Products repo.ProductRepository
	Orders   repo.OrderRepository
}

// Services holds the application layer built from the container.
type Services struct {
	Accounts *application.AccountService
	Catalog  *application.CatalogService
	Orders   *application.OrderService
	Payments *application.PaymentService
	Upload   *application.UploadService
}

// BuildRepositories picks the store named by DB_DRIVER.
func BuildRepositories(cfg *config.Config) (Repositories, error) {
	switch cfg.DBDriver {
	case "postgres", "":
		pool := container.GetPGPool()
		if pool == nil {
			return Repositories{}, fmt.Errorf("postgres pool not initialized")
		}
		return Repositories{
			Users:    pginfra.NewUserRepository(pool),
			Products: pginfra.NewProductRepository(pool),
			Orders:   pginfra.NewOrderRepository(pool),
		}, nil
	case "mongo", "mongodb":
		db := container.GetMongo()
		if db == nil {
			return Repositories{}, fmt.Errorf("mongo database not initialized")
		}
		return Repositories{
			Users:    mongodb.NewUserRepository(db),
			Products: mongodb.NewProductRepository(db),
			Orders:   mongodb.NewOrderRepository(db),
		}, nil
	case "memory":
		store := memory.NewStore()
		return Repositories{Users: store.Users(), Products: store.Products(), Orders: store.Orders()}, nil
	default:
		return Repositories{}, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
	}
}

// buildNotifier prefers the queue, then inline sending, then a log-only sink.
func buildNotifier(cfg *config.Config) application.Notifier {
	if !cfg.MailSendEnabled {
		return queue.NewLogNotifier(container.GetLogger())
	}
	if pub := container.GetRabbitPub(); pub != nil {
		return queue.NewRabbitNotifier(pub)
	}
	if s := container.GetMailSender(); s != nil {
		return queue.NewInlineNotifier(s, cfg.ProviderTimeout)
	}
	return queue.NewLogNotifier(container.GetLogger())
}

func buildImageStore(cfg *config.Config) (application.ImageStore, error) {
	if gcs := container.GetGCS(); gcs != nil && cfg.GCSBucket != "" {
		return storage.NewGCSStore(gcs, cfg.GCSBucket), nil
	}
	return storage.NewLocalStore(cfg.UploadDir)
}

// buildGateways returns only the providers whose keys are configured.
func buildGateways(cfg *config.Config) (payment.SessionGateway, payment.Gateway) {
	var hosted payment.SessionGateway
	var direct payment.Gateway
	if cfg.StripeSecretKey != "" && cfg.StripeWebhookSecret != "" {
		hosted = stripe.NewGateway(stripe.Config{
			SecretKey:     cfg.StripeSecretKey,
			WebhookSecret: cfg.StripeWebhookSecret,
			ReturnURL:     cfg.StripeReturnURL,
			Timeout:       cfg.ProviderTimeout,
		})
	}
	if cfg.IyzicoAPIKey != "" && cfg.IyzicoSecretKey != "" {
		direct = iyzico.NewGateway(iyzico.Config{
			APIKey:         cfg.IyzicoAPIKey,
			SecretKey:      cfg.IyzicoSecretKey,
			BaseURL:        cfg.IyzicoBaseURL,
			IdentityNumber: cfg.IyzicoIdentityNumber,
			Timeout:        cfg.ProviderTimeout,
		})
	}
	return hosted, direct
}

// BuildServices wires the application layer from the container singletons.
func BuildServices() (*Services, error) {
	cfg := container.GetConfig()
	logger := container.GetLogger()

	repos, err := BuildRepositories(cfg)
	if err != nil {
		return nil, err
	}

	var (
		revoker application.SessionRevoker
		guard   application.EventGuard
		topc    application.ProductCache
	)
	if rdb := container.GetRedis(); rdb != nil {
		revoker = cache.NewRevocations(rdb)
		guard = cache.NewEventGuard(rdb)
		topc = cache.NewTopProducts(rdb, logger)
	} else {
		revoker = memory.NewRevocations()
		guard = memory.NewEventGuard()
	}

	var index application.ProductIndex
	if es := container.GetES(); es != nil {
		index = search.NewProductIndex(es, cfg.ESProductsIndex)
	}

	images, err := buildImageStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("image store: %w", err)
	}

	notifier := buildNotifier(cfg)
	hosted, direct := buildGateways(cfg)

	accounts := application.NewAccountService(repos.Users, container.GetJWT(), revoker, notifier, logger, cfg.AppName, cfg.ResetCodeTTL)
	orders := application.NewOrderService(repos.Orders, repos.Products, repos.Users, notifier, logger, cfg.AppName)
	return &Services{
		Accounts: accounts,
		Catalog:  application.NewCatalogService(repos.Products, index, topc, logger, cfg.PageSize),
		Orders:   orders,
		Payments: application.NewPaymentService(orders, repos.Users, hosted, direct, guard, logger, cfg.PaymentCurrency),
		Upload:   application.NewUploadService(images, logger),
	}, nil
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry) error {
	svc, err := BuildServices()
	if err != nil {
		return err
	}
	Mount(r, svc)
	return nil
}

// Mount adds every module for svc to r.
func Mount(r *Registry, svc *Services) {
	cfg := container.GetConfig()
	logger := container.GetLogger()
	rdb := container.GetRedis()

	r.Add(modules.NewUserModule(
		handlers.NewUserHandler(svc.Accounts, logger, cfg.CookieDomain, cfg.CookieSecure), svc.Accounts, rdb))
	r.Add(modules.NewProductModule(handlers.NewProductHandler(svc.Catalog, logger), svc.Accounts, rdb))
	r.Add(modules.NewOrderModule(
		handlers.NewOrderHandler(svc.Orders, logger),
		handlers.NewPaymentHandler(svc.Payments, logger),
		svc.Accounts, rdb))
	r.Add(modules.NewUploadModule(handlers.NewUploadHandler(svc.Upload, logger), svc.Accounts))
	if cfg.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule())
	}
	if cfg.GCSBucket == "" {
		r.Engine.Static(storage.URLPrefix, cfg.UploadDir)
	}
}
