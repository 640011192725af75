// Command resync re-reads Stripe subscriptions and reconciles them into the
// store, for repairing rows after a missed or failed webhook.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/wekeepgrowing/resume-billing/internal/config"
	"github.com/wekeepgrowing/resume-billing/internal/infrastructure/database"
	stripeprovider "github.com/wekeepgrowing/resume-billing/internal/infrastructure/provider/stripe"
	"github.com/wekeepgrowing/resume-billing/internal/usecase"
	pkglogger "github.com/wekeepgrowing/resume-billing/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	subscriptions := flag.String("subscription", "", "comma-separated Stripe subscription ids (sub_...)")
	flag.Parse()

	ids := splitIDs(*subscriptions)
	if len(ids) == 0 {
		fmt.Fprintln(os.Stderr, "usage: resync -subscription sub_123[,sub_456]")
		os.Exit(2)
	}

	os.Exit(run(ids))
}

func run(ids []string) int {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := pkglogger.NewZapLogger(pkglogger.Config{
		Level:  cfg.Log.Level,
		Format: "console",
		Output: "stderr",
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

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

	repos := database.NewRepositories(db, logger)

	catalog, err := usecase.LoadPlanCatalog(cfg.Service.PlansPath, logger)
	if err != nil {
		logger.Fatal("Failed to load plan catalog", zap.Error(err))
	}

	billingProvider := stripeprovider.NewStripeProvider(stripeprovider.Options{
		SecretKey:         cfg.Service.StripeSecretKey,
		Timeout:           cfg.Service.StripeTimeout,
		MaxNetworkRetries: cfg.Service.StripeMaxRetries,
	}, logger)

	reconciler := usecase.NewSubscriptionReconciler(
		repos.Subscription, catalog, usecase.NopAccessNotifier{}, usecase.NopRecorder{}, logger)
	resync := usecase.NewResyncService(billingProvider, repos.Subscription, reconciler, logger)

	failed := 0
	for _, id := range ids {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Service.RequestTimeout)
		row, err := resync.ResyncSubscription(ctx, id)
		cancel()
		if err != nil {
			failed++
			logger.Error("Failed to resync subscription",
				zap.String("subscription_id", id),
				zap.Error(err))
			continue
		}
		fmt.Printf("%s\tuser=%s\tstatus=%s\tplan=%s\tperiod_end=%s\n",
			row.StripeSubscriptionID, row.UserID, row.Status, row.PlanID,
			row.CurrentPeriodEnd.UTC().Format("2006-01-02T15:04:05Z"))
	}

	if failed > 0 {
		logger.Error("Resync finished with failures", zap.Int("failed", failed), zap.Int("total", len(ids)))
		return 1
	}
	return 0
}

func splitIDs(raw string) []string {
	var ids []string
	for _, part := range strings.Split(raw, ",") {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
