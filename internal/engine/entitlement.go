package engine

import (
	"time"

	"gorm.io/gorm"

	"github.com/Erickxkunzx12/ARmind-CVs-sub001/internal/model"
	"github.com/Erickxkunzx12/ARmind-CVs-sub001/pkg/plan"
)

// Decision is the advisory authorization result. The binding decision is
// always the ledger's Increment.
type Decision struct {
	Allowed   bool   `json:"allowed"`
	Reason    string `json:"reason"`
	Remaining *int   `json:"remaining,omitempty"`
	PlanKey   string `json:"plan_key,omitempty"`
}

// DefaultActions maps gated action names to metered resources.
var DefaultActions = map[string]plan.Resource{
	"cv_analysis": plan.ResourceCVAnalysis,
	"cv_creation": plan.ResourceCVCreation,
}

// Entitlement answers allow/deny questions without mutating state. It may
// be called many times per request, e.g. to render UI buttons.
type Entitlement struct {
	db      *gorm.DB
	catalog *plan.Catalog
	store   *SubscriptionStore
	ledger  *QuotaLedger
	actions map[string]plan.Resource
	now     func() time.Time
}

func NewEntitlement(db *gorm.DB, catalog *plan.Catalog, store *SubscriptionStore, ledger *QuotaLedger) *Entitlement {
	return &Entitlement{
		db:      db,
		catalog: catalog,
		store:   store,
		ledger:  ledger,
		actions: DefaultActions,
		now:     time.Now,
	}
}

// Check resolves (user, action) to a decision with the remaining quota.
func (e *Entitlement) Check(userID uint, action string) (Decision, error) {
	var user model.User
	if err := e.db.First(&user, userID).Error; err != nil {
		return Decision{}, err
	}
	if user.IsAdmin() {
		return Decision{Allowed: true, Reason: ReasonAdmin}, nil
	}

	resource, ok := e.actions[action]
	if !ok {
		return Decision{Allowed: false, Reason: ReasonUnknownAction}, nil
	}

	sub, err := e.store.ActiveFor(userID)
	if err != nil {
		return Decision{}, err
	}
	if sub == nil || !sub.EndAt.After(e.now()) {
		return Decision{Allowed: false, Reason: ReasonNoActiveSubscription}, nil
	}

	p, ok := e.catalog.Get(sub.PlanKey)
	if !ok {
		// Plan removed from the catalog after purchase: deny everything.
		return Decision{Allowed: false, Reason: ReasonInvalidPlan}, nil
	}

	limit := p.Quota(resource)
	used, err := e.ledger.Used(userID, resource)
	if err != nil {
		return Decision{}, err
	}

	if used >= limit {
		zero := 0
		return Decision{Allowed: false, Reason: ReasonQuotaExhausted, Remaining: &zero, PlanKey: p.Key}, nil
	}
	remaining := limit - used
	return Decision{Allowed: true, Reason: ReasonOK, Remaining: &remaining, PlanKey: p.Key}, nil
}

// ProviderAllowed reports whether the user's plan may call the given LLM
// provider. Consumed by the analysis layer before dispatching a request.
func (e *Entitlement) ProviderAllowed(userID uint, provider string) (bool, error) {
	var user model.User
	if err := e.db.First(&user, userID).Error; err != nil {
		return false, err
	}
	if user.IsAdmin() {
		return true, nil
	}

	sub, err := e.store.ActiveFor(userID)
	if err != nil {
		return false, err
	}
	if sub == nil || !sub.EndAt.After(e.now()) {
		return false, nil
	}
	p, ok := e.catalog.Get(sub.PlanKey)
	if !ok {
		return false, nil
	}
	return p.AllowsProvider(provider), nil
}
