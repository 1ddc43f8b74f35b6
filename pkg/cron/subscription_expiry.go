package cron

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Erickxkunzx12/ARmind-CVs-sub001/internal/engine"
	"github.com/Erickxkunzx12/ARmind-CVs-sub001/internal/model"
	"github.com/Erickxkunzx12/ARmind-CVs-sub001/pkg/database"
	"github.com/Erickxkunzx12/ARmind-CVs-sub001/pkg/email"
	"github.com/Erickxkunzx12/ARmind-CVs-sub001/pkg/plan"
)

// Pending purchases abandoned longer than this are swept to cancelled.
const stalePendingAge = 24 * time.Hour

func InitSubscriptionExpiryCron(store *engine.SubscriptionStore, catalog *plan.Catalog) {
	c := cron.New()

	_, err := c.AddFunc("0 9 * * *", func() {
		sweepSubscriptions(store)
		warnExpiringSubscriptions(catalog)
	})

	if err != nil {
		log.Printf("Could not initialize subscription expiry cron: %v", err)
		return
	}

	c.Start()
}

func sweepSubscriptions(store *engine.SubscriptionStore) {
	now := time.Now()

	expired, err := store.ExpireElapsed(now)
	if err != nil {
		log.Printf("Error expiring elapsed subscriptions: %v", err)
	} else if expired > 0 {
		log.Printf("Expired %d elapsed subscriptions", expired)
	}

	cancelled, err := store.CancelStalePending(now.Add(-stalePendingAge))
	if err != nil {
		log.Printf("Error cancelling stale pending subscriptions: %v", err)
	} else if cancelled > 0 {
		log.Printf("Cancelled %d stale pending subscriptions", cancelled)
	}
}

func warnExpiringSubscriptions(catalog *plan.Catalog) {
	if email.GlobalEmailService == nil {
		return
	}

	warningDays := []int{7, 3}

	for _, days := range warningDays {
		dayStart := time.Now().AddDate(0, 0, days).Truncate(24 * time.Hour)
		dayEnd := dayStart.Add(24 * time.Hour)

		var subs []model.Subscription
		err := database.DB.
			Where("status = ? AND end_at >= ? AND end_at < ?", model.SubscriptionActive, dayStart, dayEnd).
			Preload("User").
			Find(&subs).Error
		if err != nil {
			log.Printf("Error fetching expiring subscriptions: %v", err)
			continue
		}

		for _, sub := range subs {
			planName := sub.PlanKey
			if p, ok := catalog.Get(sub.PlanKey); ok {
				planName = p.DisplayName
			}

			err := email.GlobalEmailService.SendSubscriptionExpiryWarning(
				sub.User.Email,
				sub.User.GetFullName(),
				planName,
				sub.EndAt,
				days,
			)
			if err != nil {
				log.Printf("Error sending expiry warning to %s: %v", sub.User.Email, err)
			}
		}
	}
}
