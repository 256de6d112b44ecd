package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/medimandi/medimandi-backend/api/controllers"
	"github.com/medimandi/medimandi-backend/api/routes"
	"github.com/medimandi/medimandi-backend/internal/auction"
	"github.com/medimandi/medimandi-backend/internal/catalog"
	"github.com/medimandi/medimandi-backend/internal/reconcile"
	"github.com/medimandi/medimandi-backend/internal/settlement"
	"github.com/medimandi/medimandi-backend/pkg/config"
	"github.com/medimandi/medimandi-backend/pkg/db"
	"github.com/medimandi/medimandi-backend/pkg/logger"
	"github.com/medimandi/medimandi-backend/pkg/metrics"
	"github.com/medimandi/medimandi-backend/pkg/migrate"
	"github.com/medimandi/medimandi-backend/pkg/outbox"
	"github.com/medimandi/medimandi-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	outboxRepo := outbox.NewRepository(dbClient.DB())
	emitter := outbox.NewService(outboxRepo, logg)
	catalogRepo := catalog.NewRepository(dbClient.DB())

	catalogService, err := catalog.NewService(catalogRepo, cfg.Reconcile)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	reconcileService, err := reconcile.NewService(
		reconcile.NewRepository(dbClient.DB()),
		catalogRepo,
		dbClient,
		emitter,
		cfg.Reconcile,
		logg,
		metrics.NewReconcileMetrics(prometheus.DefaultRegisterer),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create reconcile service", err)
		os.Exit(1)
	}

	auctionRepo := auction.NewRepository(dbClient.DB())
	auctionService, err := auction.NewService(
		auctionRepo,
		catalogRepo,
		dbClient,
		emitter,
		cfg.Auction,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create auction service", err)
		os.Exit(1)
	}

	settlementService, err := settlement.NewService(
		settlement.NewRepository(dbClient.DB()),
		auctionRepo,
		dbClient,
		emitter,
		cfg.Auction,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement service", err)
		os.Exit(1)
	}

	router := routes.NewRouter(routes.Deps{
		Config: cfg,
		Logger: logg,
		Health: map[string]controllers.Pinger{
			"database": dbClient,
			"redis":    redisClient,
		},
		Catalog:    catalogService,
		Reconcile:  reconcileService,
		Auction:    auctionService,
		Settlement: settlementService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
