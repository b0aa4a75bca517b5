package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/memberbase/memberbase/pkg/api"
	"github.com/memberbase/memberbase/pkg/auth"
	"github.com/memberbase/memberbase/pkg/companies"
	"github.com/memberbase/memberbase/pkg/config"
	"github.com/memberbase/memberbase/pkg/locations"
	"github.com/memberbase/memberbase/pkg/middleware"
	"github.com/memberbase/memberbase/pkg/notifications"
	"github.com/memberbase/memberbase/pkg/observability"
	"github.com/memberbase/memberbase/pkg/plans"
	"github.com/memberbase/memberbase/pkg/rbac"
	"github.com/memberbase/memberbase/pkg/storage"
	"github.com/memberbase/memberbase/pkg/subscriptions"
)

func main() {
	migrateOnly := flag.Bool("migrate", false, "Run database migrations and exit")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	db, err := storage.NewDB(cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := storage.RunMigrations(ctx, db); err != nil {
		log.Fatalf("Failed to run storage migrations: %v", err)
	}
	if err := rbac.RunMigrations(ctx, db); err != nil {
		log.Fatalf("Failed to run rbac migrations: %v", err)
	}
	if *migrateOnly {
		logger.Info("migrations applied")
		return
	}

	redisClient, err := storage.NewRedisClient(cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	objectStore, err := storage.NewObjectStore(cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to initialize object storage: %v", err)
	}

	registry := prometheus.NewRegistry()
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
	}

	roleStore := rbac.NewStore(db)
	grants := rbac.DefaultGrants()
	checker := rbac.NewChecker(roleStore, grants).
		WithCache(rbac.NewRedisCache(redisClient), cfg.Quotas.PermissionCacheTTL).
		WithMetrics(metrics)
	objectStore.WithMetrics(metrics)

	tokenManager := auth.NewTokenManager(auth.NewStore(db))
	authMiddleware := middleware.NewAuthMiddleware(tokenManager, false)

	companyService := companies.NewService(db, roleStore, objectStore, cfg.Quotas.MaxCompaniesPerOwner)
	locationService := locations.NewService(db, cfg.Quotas.MaxLocationsPerCompany)
	subscriptionService := subscriptions.NewService(db)
	planService := plans.NewService(db)
	notificationService := notifications.NewService(db)

	server := api.NewServer(api.Config{
		Companies:          companyService,
		Locations:          locationService,
		Subscriptions:      subscriptionService,
		Plans:              planService,
		Notifications:      notificationService,
		Roles:              roleStore,
		Checker:            checker,
		Grants:             grants,
		Files:              objectStore,
		Auth:               authMiddleware,
		Logger:             logger,
		Metrics:            metrics,
		MaxRolesPerCompany: cfg.Quotas.MaxRolesPerCompany,
	})

	apiServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux,
		observability.NewHealthChecker(db, redisClient).WithMetrics(metrics))
	if cfg.Observability.MetricsEnabled {
		healthMux.Handle("/metrics", observability.MetricsHandler(registry))
	}
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		logger.WithField("addr", apiServer.Addr).Info("api server listening")
		if err := apiServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.WithField("addr", healthServer.Addr).Info("health server listening")
		if err := healthServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("api server shutdown")
		}
		return healthServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
	logger.Info("stopped")
}
