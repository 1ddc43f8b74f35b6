package engine

import (
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/Erickxkunzx12/ARmind-CVs-sub001/internal/model"
	"github.com/Erickxkunzx12/ARmind-CVs-sub001/pkg/plan"
)

// SubscriptionStore is the authoritative source of subscription state.
// Every invariant is enforced inside database transactions, not in memory,
// so it survives multi-process deployment.
type SubscriptionStore struct {
	db      *gorm.DB
	catalog *plan.Catalog
	now     func() time.Time
}

func NewSubscriptionStore(db *gorm.DB, catalog *plan.Catalog) *SubscriptionStore {
	return &SubscriptionStore{db: db, catalog: catalog, now: time.Now}
}

// ActiveFor returns the user's active subscription, nil if there is none.
func (s *SubscriptionStore) ActiveFor(userID uint) (*model.Subscription, error) {
	var sub model.Subscription
	err := s.db.Where("user_id = ? AND status = ?", userID, model.SubscriptionActive).
		Order("start_at DESC").
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// CreatePending inserts a pending subscription for a plan purchase.
// It does not touch any existing active subscription.
func (s *SubscriptionStore) CreatePending(userID uint, planKey string, amount float64, currency, paymentMethod string) (*model.Subscription, error) {
	if _, ok := s.catalog.Get(planKey); !ok {
		return nil, ErrUnknownPlan
	}

	sub := model.Subscription{
		UserID:        userID,
		PlanKey:       planKey,
		Status:        model.SubscriptionPending,
		PaymentMethod: paymentMethod,
		Amount:        amount,
		Currency:      currency,
	}
	if err := s.db.Create(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

// Activate promotes a pending subscription to active. In one transaction it
// expires every other active subscription of the same user (all of them, so
// a previously violated single-active invariant converges), stamps the
// period from the plan duration and creates the zero quota counters.
//
// Repeating the call with the same external transaction id is a no-op that
// returns the already-active subscription.
func (s *SubscriptionStore) Activate(subscriptionID uint, externalTransactionID string) (*model.Subscription, error) {
	var activated *model.Subscription
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		activated, err = s.ActivateIn(tx, subscriptionID, externalTransactionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return activated, nil
}

// ActivateIn is Activate running inside a caller-owned transaction, so the
// payment orchestrator can commit activation and transaction completion
// together or not at all.
func (s *SubscriptionStore) ActivateIn(tx *gorm.DB, subscriptionID uint, externalTransactionID string) (*model.Subscription, error) {
	var target model.Subscription
	if err := tx.First(&target, subscriptionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}

	// Duplicate confirm for the same gateway transaction.
	if target.Status == model.SubscriptionActive &&
		target.ExternalTransactionID != nil &&
		*target.ExternalTransactionID == externalTransactionID {
		return &target, nil
	}

	p, ok := s.catalog.Get(target.PlanKey)
	if !ok {
		return nil, ErrUnknownPlan
	}

	now := s.now()

	res := tx.Model(&model.Subscription{}).
		Where("user_id = ? AND status = ? AND id <> ?", target.UserID, model.SubscriptionActive, target.ID).
		Updates(map[string]interface{}{"status": model.SubscriptionExpired, "updated_at": now})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected > 1 {
		log.Printf("user %d had %d active subscriptions, expired extras during activation", target.UserID, res.RowsAffected)
	}

	target.Status = model.SubscriptionActive
	target.StartAt = now
	target.EndAt = now.AddDate(0, 0, p.DurationDays)
	target.ExternalTransactionID = &externalTransactionID
	if err := tx.Save(&target).Error; err != nil {
		return nil, err
	}

	for resource := range p.Quotas {
		counter := model.QuotaCounter{
			UserID:         target.UserID,
			SubscriptionID: target.ID,
			Resource:       string(resource),
			UsedCount:      0,
			PeriodStartAt:  target.StartAt,
		}
		if err := tx.Where(model.QuotaCounter{
			UserID:         target.UserID,
			SubscriptionID: target.ID,
			Resource:       string(resource),
		}).FirstOrCreate(&counter).Error; err != nil {
			return nil, err
		}
	}

	return &target, nil
}

// ExpireElapsed transitions active subscriptions whose period has elapsed.
// Safe to run concurrently with user traffic and idempotent across runs.
func (s *SubscriptionStore) ExpireElapsed(now time.Time) (int64, error) {
	res := s.db.Model(&model.Subscription{}).
		Where("status = ? AND end_at <= ?", model.SubscriptionActive, now).
		Updates(map[string]interface{}{"status": model.SubscriptionExpired, "updated_at": now})
	return res.RowsAffected, res.Error
}

// CancelStalePending sweeps pending subscriptions abandoned before
// olderThan to cancelled. Their payment either failed or never returned.
func (s *SubscriptionStore) CancelStalePending(olderThan time.Time) (int64, error) {
	res := s.db.Model(&model.Subscription{}).
		Where("status = ? AND created_at < ?", model.SubscriptionPending, olderThan).
		Updates(map[string]interface{}{"status": model.SubscriptionCancelled, "updated_at": s.now()})
	return res.RowsAffected, res.Error
}

// Cancel marks the user's active subscription as cancelled.
func (s *SubscriptionStore) Cancel(userID uint) (*model.Subscription, error) {
	sub, err := s.ActiveFor(userID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, ErrNoActiveSubscription
	}
	sub.Status = model.SubscriptionCancelled
	if err := s.db.Save(sub).Error; err != nil {
		return nil, err
	}
	return sub, nil
}

// HistoryFor returns all subscriptions of a user, newest period first.
func (s *SubscriptionStore) HistoryFor(userID uint) ([]model.Subscription, error) {
	var subs []model.Subscription
	err := s.db.Where("user_id = ?", userID).
		Order("start_at DESC").
		Find(&subs).Error
	return subs, err
}
