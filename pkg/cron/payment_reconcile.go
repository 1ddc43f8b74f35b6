package cron

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Erickxkunzx12/ARmind-CVs-sub001/internal/payment"
)

// Transactions stuck in pending longer than this get reconciled against
// the gateway's own state.
const reconcileThreshold = 30 * time.Minute

func InitPaymentReconcileCron(orchestrator *payment.Orchestrator) {
	c := cron.New()

	_, err := c.AddFunc("*/15 * * * *", func() {
		resolved, err := orchestrator.ReconcilePending(reconcileThreshold)
		if err != nil {
			log.Printf("Error reconciling pending payments: %v", err)
			return
		}
		if resolved > 0 {
			log.Printf("Reconciled %d pending payment transactions", resolved)
		}
	})

	if err != nil {
		log.Printf("Could not initialize payment reconcile cron: %v", err)
		return
	}

	c.Start()
}
