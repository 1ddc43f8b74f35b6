package model

import (
	"time"

	"gorm.io/gorm"
)

const (
	SubscriptionPending   = "pending"
	SubscriptionActive    = "active"
	SubscriptionExpired   = "expired"
	SubscriptionCancelled = "cancelled"
	SubscriptionRefunded  = "refunded"
)

const (
	PaymentMethodFree           = "free"
	PaymentMethodCardRedirect   = "card_redirect"
	PaymentMethodWalletApproval = "wallet_approval"
)

// Subscription is a user's time-bounded entitlement to a plan. The plan
// itself lives in the in-memory catalog; only its key is persisted.
type Subscription struct {
	gorm.Model
	UserID                uint      `json:"user_id" gorm:"index:idx_subscriptions_user_status,priority:1;not null"`
	PlanKey               string    `json:"plan_key" gorm:"not null"`
	Status                string    `json:"status" gorm:"index:idx_subscriptions_user_status,priority:2;default:'pending'"`
	StartAt               time.Time `json:"start_at"`
	EndAt                 time.Time `json:"end_at"`
	PaymentMethod         string    `json:"payment_method"`
	ExternalTransactionID *string   `json:"external_transaction_id,omitempty"`
	Amount                float64   `json:"amount"`
	Currency              string    `json:"currency"`

	// Relations
	User          User           `json:"-" gorm:"foreignKey:UserID"`
	QuotaCounters []QuotaCounter `json:"-" gorm:"foreignKey:SubscriptionID"`
}

func (s *Subscription) IsActive(now time.Time) bool {
	return s.Status == SubscriptionActive && now.Before(s.EndAt)
}
