package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"mymerch/app/controller"
	"mymerch/app/router"
	"mymerch/catalog"
	"mymerch/config"
	"mymerch/db"
	"mymerch/logger"
	"mymerch/repository"
	"mymerch/service"
	"mymerch/storage"
)

// App is the wired HTTP application
type App struct {
	Handler http.Handler
	closers []func() error
}

// Close releases the database and Redis connections
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Initialize initializes the application
func Initialize(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	log = logger.OrNop(log)
	a := &App{}

	// Initialize order store
	var orderRepo repository.OrderRepositoryInterface
	conn, err := db.Open(ctx, cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if conn != nil {
		a.closers = append(a.closers, conn.Close)
		orderRepo = repository.NewOrderRepository(conn, log)
	} else {
		log.Warn("Using in-memory order store; orders are lost on restart")
		orderRepo = repository.NewMemoryOrderRepository(log)
	}

	// Initialize preview storage
	store, err := storage.New(ctx, cfg.Storage, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize image storage: %w", err)
	}
	imageServer, _ := store.(storage.ImageServer)

	// Initialize services
	orderService := service.NewOrderService(orderRepo, store, service.PreviewLimits{
		MaxDimension: cfg.Upload.MaxPreviewDimension,
		MaxPixels:    cfg.Upload.MaxPreviewPixels,
	}, log)
	proofService := service.NewProofService(imageServer, cfg.Storage.PublicPath, cfg.Proof.ChromePath, cfg.Proof.Timeout, log)

	// Create controllers
	controllers := &router.Controllers{
		Order: controller.NewOrderController(orderService, proofService, cfg.Upload.MaxBytes, log),
	}
	if imageServer != nil {
		controllers.Preview = controller.NewPreviewController(imageServer, log)
	}
	if cfg.Catalog.BaseURL != "" {
		controllers.Product = controller.NewProductController(a.catalogClient(ctx, cfg, log), log)
	}

	a.Handler = router.SetupRoutes(controllers, router.Options{
		CORSOrigins: cfg.App.CORSOrigins,
		JWTSecret:   cfg.JWT.Secret,
		JWTIssuer:   cfg.JWT.Issuer,
		Logger:      log,
	})
	return a, nil
}

// catalogClient builds the feed client, cached in Redis when configured and
// in process memory otherwise
func (a *App) catalogClient(ctx context.Context, cfg *config.Config, log *zap.Logger) *catalog.Client {
	var cache catalog.Cache = catalog.NewMemoryCache()

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("Redis unavailable, using in-memory catalog cache", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
			rdb.Close()
		} else {
			log.Info("✓ Redis connection established", zap.String("addr", cfg.Redis.Addr))
			a.closers = append(a.closers, rdb.Close)
			cache = catalog.NewRedisCache(rdb, log)
		}
	}

	return catalog.NewClient(cfg.Catalog.BaseURL,
		catalog.WithHTTPClient(&http.Client{Timeout: cfg.Catalog.Timeout}),
		catalog.WithCache(cache, cfg.Catalog.CacheTTL),
		catalog.WithLogger(log),
	)
}
