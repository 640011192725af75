package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	handlers "github.com/wekeepgrowing/resume-billing/internal/adapter/handler/http"
	"github.com/wekeepgrowing/resume-billing/internal/adapter/repository"
	"github.com/wekeepgrowing/resume-billing/internal/config"
	"github.com/wekeepgrowing/resume-billing/internal/infrastructure/database"
	grpcServer "github.com/wekeepgrowing/resume-billing/internal/infrastructure/grpc"
	httpServer "github.com/wekeepgrowing/resume-billing/internal/infrastructure/http"
	"github.com/wekeepgrowing/resume-billing/internal/infrastructure/metrics"
	stripeprovider "github.com/wekeepgrowing/resume-billing/internal/infrastructure/provider/stripe"
	"github.com/wekeepgrowing/resume-billing/internal/usecase"
	pkglogger "github.com/wekeepgrowing/resume-billing/pkg/logger"
	"github.com/wekeepgrowing/resume-billing/pkg/messaging"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := pkglogger.NewZapLogger(pkglogger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Output:      cfg.Log.Output,
		FilePath:    cfg.Log.FilePath,
		Development: cfg.Log.Development,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	logger = logger.With(
		zap.String("service", cfg.Service.Name),
		zap.String("environment", cfg.Service.Environment))

	// Error tracking
	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			Environment:      cfg.Service.Environment,
			Release:          cfg.Service.Version,
			EnableTracing:    cfg.Sentry.TracesSampleRate > 0,
			TracesSampleRate: cfg.Sentry.TracesSampleRate,
		}); err != nil {
			logger.Warn("Failed to initialize Sentry", zap.Error(err))
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Initialize database connection
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := database.Close(db, logger); err != nil {
			logger.Error("Failed to close database connection", zap.Error(err))
		}
	}()

	// Run database migrations
	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db, logger); err != nil {
			logger.Fatal("Failed to run database migrations", zap.Error(err))
		}
	}

	// Initialize repositories
	repos := database.NewRepositories(db, logger)
	directory := repository.NewSupabaseUserDirectory(
		cfg.Service.Supabase.ProjectURL,
		cfg.Service.Supabase.APIKey,
		cfg.Service.Supabase.Timeout,
		logger)

	catalog, err := usecase.LoadPlanCatalog(cfg.Service.PlansPath, logger)
	if err != nil {
		logger.Fatal("Failed to load plan catalog", zap.Error(err))
	}

	recorder := metrics.NewMetrics()

	// Access-change notifications
	var notifier usecase.AccessNotifier = usecase.NopAccessNotifier{}
	if cfg.Redis.Addr != "" {
		redisClient, err := messaging.NewRedisClient(messaging.Options{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			DialTimeout: 5 * time.Second,
		})
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		notifier = usecase.NewRedisAccessNotifier(redisClient, cfg.Redis.Channel, logger)
	} else {
		logger.Info("Redis not configured, access-change notifications disabled")
	}

	// Stripe
	billingProvider := stripeprovider.NewStripeProvider(stripeprovider.Options{
		SecretKey:         cfg.Service.StripeSecretKey,
		Timeout:           cfg.Service.StripeTimeout,
		MaxNetworkRetries: cfg.Service.StripeMaxRetries,
	}, logger)
	verifier := stripeprovider.NewEventVerifier(cfg.Service.StripeWebhookSecret, logger)

	// Use cases
	subscriptionReconciler := usecase.NewSubscriptionReconciler(repos.Subscription, catalog, notifier, recorder, logger)
	purchaseReconciler := usecase.NewPurchaseReconciler(repos.Purchase, directory, catalog, notifier, recorder, logger)
	webhookService := usecase.NewWebhookService(
		repos.Webhook,
		repos.Subscription,
		billingProvider,
		subscriptionReconciler,
		purchaseReconciler,
		notifier,
		recorder,
		logger)
	accessService := usecase.NewAccessService(repos.Subscription, repos.Purchase, recorder, logger)
	cancellationService := usecase.NewCancellationService(billingProvider, repos.Subscription, subscriptionReconciler, logger)
	resyncService := usecase.NewResyncService(billingProvider, repos.Subscription, subscriptionReconciler, logger)

	ping := func(ctx context.Context) error { return database.Ping(ctx, db) }

	// Initialize servers
	grpcSrv := grpcServer.NewServer(cfg, logger, ping)
	httpSrv := httpServer.NewServer(cfg, logger, httpServer.Dependencies{
		Webhook:      handlers.NewWebhookHandler(logger, verifier, webhookService),
		Access:       handlers.NewAccessHandler(logger, accessService),
		Subscription: handlers.NewSubscriptionHandler(logger, cancellationService),
		Admin:        handlers.NewAdminHandler(logger, resyncService),
		Metrics:      recorder.Handler(),
		Health:       ping,
	})

	// Start servers
	go func() {
		if err := grpcSrv.Start(); err != nil {
			logger.Fatal("Failed to start gRPC server", zap.Error(err))
		}
	}()

	go func() {
		if err := httpSrv.Start(); err != nil {
			logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down servers...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Shutdown servers
	if err := httpSrv.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown HTTP server", zap.Error(err))
	}

	if err := grpcSrv.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown gRPC server", zap.Error(err))
	}

	logger.Info("Servers shut down successfully")
}
