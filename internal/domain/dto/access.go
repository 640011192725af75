package dto

import "time"

// AccessSource names what grants a user access.
type AccessSource string

const (
	AccessSourceSubscription AccessSource = "subscription"
	AccessSourcePurchase     AccessSource = "purchase"
	AccessSourceNone         AccessSource = "none"
)

// AccessSnapshot is the read model returned to the UI for gating.
type AccessSnapshot struct {
	UserID       string               `json:"user_id"`
	HasAccess    bool                 `json:"has_access"`
	Source       AccessSource         `json:"source"`
	Subscription *SubscriptionSummary `json:"subscription,omitempty"`
	Purchase     *PurchaseSummary     `json:"purchase,omitempty"`
	CheckedAt    time.Time            `json:"checked_at"`
}

type SubscriptionSummary struct {
	StripeSubscriptionID string    `json:"stripe_subscription_id"`
	PlanID               string    `json:"plan_id"`
	Status               string    `json:"status"`
	CurrentPeriodEnd     time.Time `json:"current_period_end"`
	CancelAtPeriodEnd    bool      `json:"cancel_at_period_end"`
}

type PurchaseSummary struct {
	PlanID           string    `json:"plan_id"`
	ResumesRemaining int       `json:"resumes_remaining"`
	ExpiresAt        time.Time `json:"expires_at"`
}
