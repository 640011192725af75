package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseStatus of a one-time purchase. Only succeeded grants access.
type PurchaseStatus string

const (
	PurchaseStatusSucceeded PurchaseStatus = "succeeded"
	PurchaseStatusRefunded  PurchaseStatus = "refunded"
)

const (
	// PurchaseCredits is the number of resume views a purchase grants.
	PurchaseCredits = 5
	// PurchaseValidity is how long purchased credits stay usable.
	PurchaseValidity = 30 * 24 * time.Hour
)

// Purchase is one row of user_purchases. StripePaymentIntentID is the
// idempotency key; sessions without a payment intent use the checkout
// session id instead.
type Purchase struct {
	ID                    int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID                string          `gorm:"not null;size:100;index" json:"user_id"`
	StripePaymentIntentID string          `gorm:"uniqueIndex;not null;size:255" json:"stripe_payment_intent_id"`
	PlanID                string          `gorm:"not null;size:100" json:"plan_id"`
	AmountPaid            decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount_paid"`
	Currency              string          `gorm:"size:3" json:"currency"`
	Status                PurchaseStatus  `gorm:"not null;size:32" json:"status"`
	ResumesRemaining      int             `gorm:"not null" json:"resumes_remaining"`
	ExpiresAt             time.Time       `gorm:"not null;index" json:"expires_at"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// HasAccessAt reports whether the purchase still grants access at now.
func (p *Purchase) HasAccessAt(now time.Time) bool {
	return p.Status == PurchaseStatusSucceeded && p.ResumesRemaining > 0 && p.ExpiresAt.After(now)
}

// TableName specifies the table name for GORM
func (Purchase) TableName() string {
	return "user_purchases"
}
