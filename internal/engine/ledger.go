package engine

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Erickxkunzx12/ARmind-CVs-sub001/internal/model"
	"github.com/Erickxkunzx12/ARmind-CVs-sub001/pkg/plan"
)

// Usage is one resource's consumption against its plan limit.
type Usage struct {
	Used      int `json:"used"`
	Limit     int `json:"limit"`
	Remaining int `json:"remaining"`
}

// QuotaLedger counts consumption per active subscription. It is the single
// enforcement point: HTTP-layer gating is advisory and may be bypassed by
// retries or races, so the authoritative check happens at the write.
type QuotaLedger struct {
	db      *gorm.DB
	catalog *plan.Catalog
	store   *SubscriptionStore
	now     func() time.Time
}

func NewQuotaLedger(db *gorm.DB, catalog *plan.Catalog, store *SubscriptionStore) *QuotaLedger {
	return &QuotaLedger{db: db, catalog: catalog, store: store, now: time.Now}
}

func knownResource(resource plan.Resource) bool {
	for _, r := range plan.Resources {
		if r == resource {
			return true
		}
	}
	return false
}

// Used returns the consumption recorded for the user's active subscription.
// Read-only: no subscription or no counter yet both read as 0, so advisory
// checks never mutate state.
func (l *QuotaLedger) Used(userID uint, resource plan.Resource) (int, error) {
	sub, err := l.store.ActiveFor(userID)
	if err != nil {
		return 0, err
	}
	if sub == nil {
		return 0, nil
	}

	var counter model.QuotaCounter
	err = l.db.Where("user_id = ? AND subscription_id = ? AND resource = ?",
		userID, sub.ID, string(resource)).First(&counter).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return counter.UsedCount, nil
}

// Increment consumes delta units of a resource. The whole operation runs in
// one transaction; the quota bound is enforced by a guarded UPDATE whose
// row count discriminates exhaustion, so two concurrent calls racing for
// the last unit resolve to exactly one winner.
//
// Admin users are exempt: the call is a no-op and creates no counters.
func (l *QuotaLedger) Increment(userID uint, resource plan.Resource, delta int) (int, error) {
	if !knownResource(resource) {
		return 0, ErrUnknownResource
	}
	if delta <= 0 {
		delta = 1
	}

	var user model.User
	if err := l.db.First(&user, userID).Error; err != nil {
		return 0, err
	}
	if user.IsAdmin() {
		return 0, nil
	}

	newValue := 0
	err := l.db.Transaction(func(tx *gorm.DB) error {
		var sub model.Subscription
		err := tx.Where("user_id = ? AND status = ?", userID, model.SubscriptionActive).
			Order("start_at DESC").First(&sub).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNoActiveSubscription
		}
		if err != nil {
			return err
		}
		if !sub.EndAt.After(l.now()) {
			return ErrNoActiveSubscription
		}

		p, ok := l.catalog.Get(sub.PlanKey)
		if !ok {
			return ErrUnknownPlan
		}
		limit := p.Quota(resource)

		// Counters are created by activation; recreate lazily in case the
		// plan gained a resource after this subscription started.
		counter := model.QuotaCounter{
			UserID:         userID,
			SubscriptionID: sub.ID,
			Resource:       string(resource),
			PeriodStartAt:  sub.StartAt,
		}
		if err := tx.Where(model.QuotaCounter{
			UserID:         userID,
			SubscriptionID: sub.ID,
			Resource:       string(resource),
		}).FirstOrCreate(&counter).Error; err != nil {
			return err
		}

		res := tx.Model(&model.QuotaCounter{}).
			Where("id = ? AND used_count + ? <= ?", counter.ID, delta, limit).
			Updates(map[string]interface{}{
				"used_count": gorm.Expr("used_count + ?", delta),
				"updated_at": l.now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrQuotaExhausted
		}

		if err := tx.First(&counter, counter.ID).Error; err != nil {
			return err
		}
		newValue = counter.UsedCount
		return nil
	})
	if err != nil {
		return 0, err
	}
	return newValue, nil
}

// Snapshot reports used/limit/remaining per resource for UI display.
// Users without an active subscription get an empty map.
func (l *QuotaLedger) Snapshot(userID uint) (map[plan.Resource]Usage, error) {
	out := make(map[plan.Resource]Usage)

	sub, err := l.store.ActiveFor(userID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return out, nil
	}

	p, ok := l.catalog.Get(sub.PlanKey)
	if !ok {
		return out, nil
	}

	var counters []model.QuotaCounter
	if err := l.db.Where("user_id = ? AND subscription_id = ?", userID, sub.ID).
		Find(&counters).Error; err != nil {
		return nil, err
	}
	usedByResource := make(map[plan.Resource]int, len(counters))
	for _, c := range counters {
		usedByResource[plan.Resource(c.Resource)] = c.UsedCount
	}

	for resource, limit := range p.Quotas {
		used := usedByResource[resource]
		remaining := limit - used
		if remaining < 0 {
			remaining = 0
		}
		out[resource] = Usage{Used: used, Limit: limit, Remaining: remaining}
	}
	return out, nil
}
