package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	TransactionPending    = "pending"
	TransactionAuthorized = "authorized"
	TransactionCompleted  = "completed"
	TransactionFailed     = "failed"
	TransactionCancelled  = "cancelled"
	TransactionRefunded   = "refunded"
)

// PaymentTransaction records one attempt against an external gateway.
// It owns the link to the subscription (nullable until activation); the
// subscription never points back.
type PaymentTransaction struct {
	gorm.Model
	UserID                uint           `json:"user_id" gorm:"index;not null"`
	SubscriptionID        *uint          `json:"subscription_id,omitempty"`
	Gateway               string         `json:"gateway" gorm:"not null"`
	ExternalTransactionID string         `json:"external_transaction_id" gorm:"uniqueIndex"`
	Amount                float64        `json:"amount"`
	Currency              string         `json:"currency"`
	Status                string         `json:"status" gorm:"default:'pending'"`
	GatewayPayload        datatypes.JSON `json:"-"`

	// Relations
	User User `json:"-" gorm:"foreignKey:UserID"`
}

// PendingPayment is the short-lived association between a user and the
// transaction they were redirected out for. One per user; written only by
// the originating purchase request.
type PendingPayment struct {
	gorm.Model
	UserID               uint   `json:"user_id" gorm:"uniqueIndex;not null"`
	PaymentTransactionID uint   `json:"payment_transaction_id" gorm:"not null"`
	Token                string `json:"-"`
}
