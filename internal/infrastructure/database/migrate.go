package database

import (
	"github.com/wekeepgrowing/resume-billing/internal/domain/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Migrate creates or updates the billing tables.
func Migrate(db *gorm.DB, logger *zap.Logger) error {
	logger.Info("Running database migrations...")

	err := db.AutoMigrate(
		&model.Subscription{},
		&model.Purchase{},
		&model.StripeWebhookEvent{},
	)
	if err != nil {
		logger.Error("Failed to run migrations", zap.Error(err))
		return err
	}
	logger.Info("GORM auto-migrations completed successfully")

	if db.Dialector.Name() == "postgres" {
		logger.Info("Creating custom indexes...")
		if err := createCustomIndexes(db); err != nil {
			logger.Error("Failed to create custom indexes", zap.Error(err))
			return err
		}
		logger.Info("Custom indexes created successfully")
	}

	logger.Info("Database migrations completed successfully")
	return nil
}

// createCustomIndexes creates partial indexes that GORM doesn't handle automatically
func createCustomIndexes(db *gorm.DB) error {
	// Access checks read the newest granting subscription per user
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_user_subscriptions_access ON user_subscriptions (user_id, current_period_end DESC) WHERE status IN ('active', 'canceled')`).Error; err != nil {
		return err
	}

	// Access checks read unexpired purchases with credits left
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_user_purchases_access ON user_purchases (user_id, expires_at DESC) WHERE status = 'succeeded' AND resumes_remaining > 0`).Error; err != nil {
		return err
	}

	// Create index for webhook events
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_webhook_events_unprocessed ON stripe_webhook_events (created_at) WHERE status IN ('pending', 'failed')`).Error; err != nil {
		return err
	}

	return nil
}
