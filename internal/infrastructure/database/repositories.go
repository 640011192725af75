package database

import (
	"github.com/wekeepgrowing/resume-billing/internal/adapter/repository"
	domainRepo "github.com/wekeepgrowing/resume-billing/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Repositories holds all repository instances
type Repositories struct {
	Subscription domainRepo.SubscriptionRepository
	Purchase     domainRepo.PurchaseRepository
	Webhook      domainRepo.WebhookEventRepository
}

// NewRepositories creates new repository instances with database connection
func NewRepositories(db *gorm.DB, logger *zap.Logger) *Repositories {
	return &Repositories{
		Subscription: repository.NewSubscriptionRepository(db, logger),
		Purchase:     repository.NewPurchaseRepository(db, logger),
		Webhook:      repository.NewWebhookRepository(db, logger),
	}
}
