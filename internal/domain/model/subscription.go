package model

import (
	"database/sql/driver"
	"time"
)

// SubscriptionStatus mirrors the provider's subscription status. The set is
// open: unknown values are stored as received.
type SubscriptionStatus string

const (
	SubscriptionStatusActive            SubscriptionStatus = "active"
	SubscriptionStatusTrialing          SubscriptionStatus = "trialing"
	SubscriptionStatusCanceled          SubscriptionStatus = "canceled"
	SubscriptionStatusPastDue           SubscriptionStatus = "past_due"
	SubscriptionStatusIncomplete        SubscriptionStatus = "incomplete"
	SubscriptionStatusIncompleteExpired SubscriptionStatus = "incomplete_expired"
	SubscriptionStatusUnpaid            SubscriptionStatus = "unpaid"
	SubscriptionStatusPaused            SubscriptionStatus = "paused"
)

// GrantsAccess reports whether a subscription in this status counts toward
// access while its period is still running. Canceled subscriptions keep
// access until the end of the paid period.
func (s SubscriptionStatus) GrantsAccess() bool {
	return s == SubscriptionStatusActive || s == SubscriptionStatusCanceled
}

// Scan implements sql.Scanner interface
func (s *SubscriptionStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*s = SubscriptionStatus(v)
	case []byte:
		*s = SubscriptionStatus(v)
	default:
		*s = ""
	}
	return nil
}

// Value implements driver.Valuer interface
func (s SubscriptionStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// Subscription is one row of user_subscriptions, keyed by the provider's
// subscription id. Rows are never deleted.
type Subscription struct {
	ID                   int64              `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID               string             `gorm:"not null;size:100;index" json:"user_id"`
	StripeCustomerID     string             `gorm:"size:100" json:"stripe_customer_id"`
	StripeSubscriptionID string             `gorm:"uniqueIndex;not null;size:100" json:"stripe_subscription_id"`
	PlanID               string             `gorm:"not null;size:100" json:"plan_id"`
	Status               SubscriptionStatus `gorm:"not null;size:32;index" json:"status"`
	CurrentPeriodStart   time.Time          `gorm:"not null" json:"current_period_start"`
	CurrentPeriodEnd     time.Time          `gorm:"not null" json:"current_period_end"`
	CancelAtPeriodEnd    bool               `gorm:"not null;default:false" json:"cancel_at_period_end"`
	CreatedAt            time.Time          `json:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at"`
}

// HasAccessAt reports whether the subscription grants access at now. The
// period end is exclusive.
func (s *Subscription) HasAccessAt(now time.Time) bool {
	return s.Status.GrantsAccess() && s.CurrentPeriodEnd.After(now)
}

// TableName specifies the table name for GORM
func (Subscription) TableName() string {
	return "user_subscriptions"
}
