package model

import (
	"time"

	"gorm.io/gorm"
)

// QuotaCounter counts consumption of one resource within one subscription
// period. Counters never cross subscription boundaries: a new subscription
// starts from fresh zero counters and the old rows stay as history.
type QuotaCounter struct {
	gorm.Model
	UserID         uint      `json:"user_id" gorm:"uniqueIndex:idx_quota_counter_scope,priority:1;not null"`
	SubscriptionID uint      `json:"subscription_id" gorm:"uniqueIndex:idx_quota_counter_scope,priority:2;not null"`
	Resource       string    `json:"resource" gorm:"uniqueIndex:idx_quota_counter_scope,priority:3;not null"`
	UsedCount      int       `json:"used_count" gorm:"not null;default:0"`
	PeriodStartAt  time.Time `json:"period_start_at"`

	// Relations
	Subscription Subscription `json:"-" gorm:"foreignKey:SubscriptionID"`
}
