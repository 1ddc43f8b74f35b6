package payment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Erickxkunzx12/ARmind-CVs-sub001/internal/engine"
	"github.com/Erickxkunzx12/ARmind-CVs-sub001/internal/model"
	"github.com/Erickxkunzx12/ARmind-CVs-sub001/pkg/plan"
)

const (
	OutcomeActivated     = "activated"
	OutcomeAlreadyActive = "already_active"
	OutcomeCancelled     = "cancelled"
	OutcomeFailed        = "failed"
)

// PurchaseResult is what begin-purchase hands back to the HTTP layer.
// Paid plans carry a redirect URL; free activation carries the new
// subscription directly.
type PurchaseResult struct {
	RedirectURL    string `json:"redirect_url,omitempty"`
	PendingID      uint   `json:"pending_id"`
	SubscriptionID *uint  `json:"subscription_id,omitempty"`
}

// ReturnOutcome is the settled result of a gateway return callback. UserID
// and PlanKey identify who the outcome belongs to for notifications; they
// never leave the process.
type ReturnOutcome struct {
	Outcome        string `json:"outcome"`
	SubscriptionID *uint  `json:"subscription_id,omitempty"`
	UserID         uint   `json:"-"`
	PlanKey        string `json:"-"`
}

// Orchestrator drives external gateways through create, approve and
// confirm, and binds a successful confirmation to subscription activation
// in a single database transaction.
type Orchestrator struct {
	db        *gorm.DB
	catalog   *plan.Catalog
	store     *engine.SubscriptionStore
	registry  *Registry
	returnURL string
	cancelURL string
	timeout   time.Duration
	now       func() time.Time
}

func NewOrchestrator(db *gorm.DB, catalog *plan.Catalog, store *engine.SubscriptionStore, registry *Registry, returnURL, cancelURL string) *Orchestrator {
	return &Orchestrator{
		db:        db,
		catalog:   catalog,
		store:     store,
		registry:  registry,
		returnURL: returnURL,
		cancelURL: cancelURL,
		timeout:   30 * time.Second,
		now:       time.Now,
	}
}

// BeginPurchase starts a plan purchase. Free plans skip the gateway but go
// through the same activation transaction, so the single-active invariant
// holds either way.
func (o *Orchestrator) BeginPurchase(userID uint, planKey, gatewayKind string) (*PurchaseResult, error) {
	p, ok := o.catalog.Get(planKey)
	if !ok {
		return nil, engine.ErrUnknownPlan
	}

	orderRef := fmt.Sprintf("%d_%s_%d", userID, planKey, o.now().Unix())

	if p.IsFree() {
		if gatewayKind != "" && gatewayKind != model.PaymentMethodFree {
			return nil, ErrFreePlanNoGateway
		}
		return o.activateFree(userID, p, orderRef)
	}

	gw, ok := o.registry.Get(gatewayKind)
	if !ok {
		return nil, ErrGatewayUnavailable
	}

	sub, err := o.store.CreatePending(userID, planKey, p.Price, p.Currency, gatewayKind)
	if err != nil {
		return nil, err
	}

	txRec := model.PaymentTransaction{
		UserID:         userID,
		SubscriptionID: &sub.ID,
		Gateway:        gatewayKind,
		// Placeholder until the gateway assigns the real id; orderRef keeps
		// the unique constraint satisfied in the meantime.
		ExternalTransactionID: orderRef,
		Amount:                p.Price,
		Currency:              p.Currency,
		Status:                model.TransactionPending,
	}
	if err := o.db.Create(&txRec).Error; err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()

	created, err := gw.Create(ctx, CreateRequest{
		Amount:    p.Price,
		Currency:  p.Currency,
		OrderRef:  orderRef,
		ItemName:  p.DisplayName,
		ReturnURL: appendParam(o.returnURL, "gateway="+gatewayKind),
		// The cancel redirect is a bare browser GET with no auth context, so
		// it carries the order reference to find the purchase again.
		CancelURL: appendParam(appendParam(o.cancelURL, "gateway="+gatewayKind), "ref="+orderRef),
	})
	if err != nil {
		o.markTransaction(&txRec, model.TransactionFailed, nil)
		return nil, err
	}

	txRec.ExternalTransactionID = created.ExternalID
	if err := o.db.Save(&txRec).Error; err != nil {
		return nil, err
	}

	if err := o.storePendingAssociation(userID, txRec.ID, orderRef); err != nil {
		return nil, err
	}

	return &PurchaseResult{RedirectURL: created.RedirectURL, PendingID: txRec.ID}, nil
}

func (o *Orchestrator) activateFree(userID uint, p plan.Plan, orderRef string) (*PurchaseResult, error) {
	sub, err := o.store.CreatePending(userID, p.Key, 0, p.Currency, model.PaymentMethodFree)
	if err != nil {
		return nil, err
	}

	var txRec model.PaymentTransaction
	var activated *model.Subscription
	err = o.db.Transaction(func(dbtx *gorm.DB) error {
		activated, err = o.store.ActivateIn(dbtx, sub.ID, orderRef)
		if err != nil {
			return err
		}
		txRec = model.PaymentTransaction{
			UserID:                userID,
			SubscriptionID:        &activated.ID,
			Gateway:               model.PaymentMethodFree,
			ExternalTransactionID: orderRef,
			Amount:                0,
			Currency:              p.Currency,
			Status:                model.TransactionCompleted,
		}
		return dbtx.Create(&txRec).Error
	})
	if err != nil {
		return nil, err
	}

	return &PurchaseResult{PendingID: txRec.ID, SubscriptionID: &activated.ID}, nil
}

// HandleReturn settles a gateway return callback. Duplicate callbacks for
// the same external id resolve to the already-active subscription; a
// success arriving after a prior failure still promotes the transaction.
func (o *Orchestrator) HandleReturn(gatewayKind string, params ConfirmParams) (*ReturnOutcome, error) {
	gw, ok := o.registry.Get(gatewayKind)
	if !ok {
		return nil, ErrGatewayUnavailable
	}

	externalID := gw.ExternalID(params)
	if externalID == "" {
		return nil, ErrUnknownTransaction
	}

	var txRec model.PaymentTransaction
	err := o.db.Where("external_transaction_id = ?", externalID).First(&txRec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUnknownTransaction
	}
	if err != nil {
		return nil, err
	}

	if txRec.Status == model.TransactionCompleted {
		return &ReturnOutcome{
			Outcome:        OutcomeAlreadyActive,
			SubscriptionID: txRec.SubscriptionID,
			UserID:         txRec.UserID,
		}, nil
	}

	// The association is only consulted while it exists: a callback that
	// arrives after it was cleared is still honored through the external id
	// above, but a mismatching one is someone else's transaction.
	var pending model.PendingPayment
	err = o.db.Where("user_id = ?", txRec.UserID).First(&pending).Error
	if err == nil && pending.PaymentTransactionID != txRec.ID {
		return nil, ErrPendingMismatch
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()

	confirmed, err := gw.Confirm(ctx, params)
	if err != nil {
		o.markTransaction(&txRec, model.TransactionFailed, nil)
		return nil, err
	}

	return o.settle(&txRec, confirmed)
}

// settle applies a gateway verdict to the local transaction. Activation and
// transaction completion commit together or not at all.
func (o *Orchestrator) settle(txRec *model.PaymentTransaction, confirmed ConfirmResult) (*ReturnOutcome, error) {
	switch confirmed.Status {
	case StatusAuthorized:
		if txRec.SubscriptionID == nil {
			log.Printf("transaction %s authorized but has no linked subscription", txRec.ExternalTransactionID)
			return nil, ErrUnknownTransaction
		}

		var activated *model.Subscription
		err := o.db.Transaction(func(dbtx *gorm.DB) error {
			var err error
			activated, err = o.store.ActivateIn(dbtx, *txRec.SubscriptionID, txRec.ExternalTransactionID)
			if err != nil {
				return err
			}
			txRec.Status = model.TransactionCompleted
			txRec.GatewayPayload = datatypes.JSON(confirmed.Raw)
			if err := dbtx.Save(txRec).Error; err != nil {
				return err
			}
			return o.clearPendingAssociation(dbtx, txRec.UserID)
		})
		if err != nil {
			return nil, err
		}
		return &ReturnOutcome{
			Outcome:        OutcomeActivated,
			SubscriptionID: &activated.ID,
			UserID:         activated.UserID,
			PlanKey:        activated.PlanKey,
		}, nil

	case StatusCancelled:
		o.markTransaction(txRec, model.TransactionCancelled, confirmed.Raw)
		return &ReturnOutcome{Outcome: OutcomeCancelled, UserID: txRec.UserID, PlanKey: o.planKeyFor(txRec)}, nil

	default:
		o.markTransaction(txRec, model.TransactionFailed, confirmed.Raw)
		return &ReturnOutcome{Outcome: OutcomeFailed, UserID: txRec.UserID, PlanKey: o.planKeyFor(txRec)}, nil
	}
}

// planKeyFor reads the plan off the transaction's linked subscription, for
// notifications about non-activating outcomes.
func (o *Orchestrator) planKeyFor(txRec *model.PaymentTransaction) string {
	if txRec.SubscriptionID == nil {
		return ""
	}
	var sub model.Subscription
	if err := o.db.First(&sub, *txRec.SubscriptionID).Error; err != nil {
		return ""
	}
	return sub.PlanKey
}

// CancelPending handles the user backing out at the gateway: the pending
// transaction and its subscription are closed out without contacting the
// gateway.
func (o *Orchestrator) CancelPending(userID uint) (*ReturnOutcome, error) {
	var pending model.PendingPayment
	err := o.db.Where("user_id = ?", userID).First(&pending).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &ReturnOutcome{Outcome: OutcomeCancelled, UserID: userID}, nil
	}
	if err != nil {
		return nil, err
	}
	return o.closeOutPending(&pending)
}

// CancelPendingByToken settles a gateway cancel redirect. The redirect is a
// bare browser GET with no auth context, so the order reference minted at
// begin-purchase identifies the abandoned purchase instead. An unknown ref
// means the purchase was already settled or swept; cancelling it again is a
// no-op.
func (o *Orchestrator) CancelPendingByToken(token string) (*ReturnOutcome, error) {
	if token == "" {
		return nil, ErrUnknownTransaction
	}

	var pending model.PendingPayment
	err := o.db.Where("token = ?", token).First(&pending).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &ReturnOutcome{Outcome: OutcomeCancelled}, nil
	}
	if err != nil {
		return nil, err
	}
	return o.closeOutPending(&pending)
}

func (o *Orchestrator) closeOutPending(pending *model.PendingPayment) (*ReturnOutcome, error) {
	var txRec model.PaymentTransaction
	if err := o.db.First(&txRec, pending.PaymentTransactionID).Error; err != nil {
		return nil, err
	}

	err := o.db.Transaction(func(dbtx *gorm.DB) error {
		if txRec.Status == model.TransactionPending {
			txRec.Status = model.TransactionCancelled
			if err := dbtx.Save(&txRec).Error; err != nil {
				return err
			}
		}
		if txRec.SubscriptionID != nil {
			res := dbtx.Model(&model.Subscription{}).
				Where("id = ? AND status = ?", *txRec.SubscriptionID, model.SubscriptionPending).
				Update("status", model.SubscriptionCancelled)
			if res.Error != nil {
				return res.Error
			}
		}
		return o.clearPendingAssociation(dbtx, pending.UserID)
	})
	if err != nil {
		return nil, err
	}
	return &ReturnOutcome{Outcome: OutcomeCancelled, UserID: pending.UserID, PlanKey: o.planKeyFor(&txRec)}, nil
}

// ReconcilePending resolves transactions stuck in pending longer than
// olderThan by asking each gateway for its authoritative state. Covers the
// crash window between a gateway authorization and the local commit.
func (o *Orchestrator) ReconcilePending(olderThan time.Duration) (int, error) {
	cutoff := o.now().Add(-olderThan)

	var stuck []model.PaymentTransaction
	err := o.db.Where("status = ? AND created_at < ?", model.TransactionPending, cutoff).
		Find(&stuck).Error
	if err != nil {
		return 0, err
	}

	resolved := 0
	for i := range stuck {
		txRec := &stuck[i]
		gw, ok := o.registry.Get(txRec.Gateway)
		if !ok {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
		verdict, err := gw.Lookup(ctx, txRec.ExternalTransactionID)
		cancel()
		if err != nil {
			log.Printf("reconcile: could not look up transaction %s: %v", txRec.ExternalTransactionID, err)
			continue
		}

		if _, err := o.settle(txRec, verdict); err != nil {
			log.Printf("reconcile: could not settle transaction %s: %v", txRec.ExternalTransactionID, err)
			continue
		}
		resolved++
	}
	return resolved, nil
}

func (o *Orchestrator) markTransaction(txRec *model.PaymentTransaction, status string, raw []byte) {
	txRec.Status = status
	if raw != nil {
		txRec.GatewayPayload = datatypes.JSON(raw)
	}
	if err := o.db.Save(txRec).Error; err != nil {
		log.Printf("could not update transaction %d to %s: %v", txRec.ID, status, err)
	}
}

func (o *Orchestrator) storePendingAssociation(userID, transactionID uint, token string) error {
	return o.db.Transaction(func(dbtx *gorm.DB) error {
		if err := o.clearPendingAssociation(dbtx, userID); err != nil {
			return err
		}
		return dbtx.Create(&model.PendingPayment{
			UserID:               userID,
			PaymentTransactionID: transactionID,
			Token:                token,
		}).Error
	})
}

func (o *Orchestrator) clearPendingAssociation(dbtx *gorm.DB, userID uint) error {
	// Hard delete: the unique index on user_id must free up immediately.
	return dbtx.Unscoped().Where("user_id = ?", userID).Delete(&model.PendingPayment{}).Error
}
