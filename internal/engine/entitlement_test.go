package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Erickxkunzx12/ARmind-CVs-sub001/internal/model"
	"github.com/Erickxkunzx12/ARmind-CVs-sub001/pkg/plan"
)

func TestCheckAdminBypassesEverything(t *testing.T) {
	db, _, _, _, entitlements := newTestEngine(t)
	admin := createTestUser(t, db, model.RoleAdmin)

	for _, action := range []string{"cv_analysis", "cv_creation", "anything_else"} {
		decision, err := entitlements.Check(admin.ID, action)
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
		assert.Equal(t, ReasonAdmin, decision.Reason)
	}

	var count int64
	require.NoError(t, db.Model(&model.QuotaCounter{}).
		Where("user_id = ?", admin.ID).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestCheckWithoutSubscription(t *testing.T) {
	db, _, _, _, entitlements := newTestEngine(t)
	user := createTestUser(t, db, model.RoleUser)

	decision, err := entitlements.Check(user.ID, "cv_analysis")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonNoActiveSubscription, decision.Reason)
}

func TestCheckExpiredSubscription(t *testing.T) {
	db, _, store, _, entitlements := newTestEngine(t)
	user := createTestUser(t, db, model.RoleUser)
	sub := activateTrial(t, store, user.ID)

	entitlements.now = func() time.Time { return sub.EndAt }

	decision, err := entitlements.Check(user.ID, "cv_analysis")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonNoActiveSubscription, decision.Reason)
}

func TestCheckUnknownAction(t *testing.T) {
	db, _, store, _, entitlements := newTestEngine(t)
	user := createTestUser(t, db, model.RoleUser)
	activateTrial(t, store, user.ID)

	decision, err := entitlements.Check(user.ID, "time_travel")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonUnknownAction, decision.Reason)
}

func TestCheckInvalidPlanDeniesEverything(t *testing.T) {
	db, _, _, _, entitlements := newTestEngine(t)
	user := createTestUser(t, db, model.RoleUser)

	// Subscription referencing a plan that left the catalog.
	orphan := model.Subscription{
		UserID:  user.ID,
		PlanKey: "retired_plan",
		Status:  model.SubscriptionActive,
		StartAt: time.Now(),
		EndAt:   time.Now().Add(24 * time.Hour),
	}
	require.NoError(t, db.Create(&orphan).Error)

	decision, err := entitlements.Check(user.ID, "cv_analysis")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonInvalidPlan, decision.Reason)
}

func TestCheckCountsDownToExhaustion(t *testing.T) {
	db, _, store, ledger, entitlements := newTestEngine(t)
	user := createTestUser(t, db, model.RoleUser)
	activateTrial(t, store, user.ID)

	decision, err := entitlements.Check(user.ID, "cv_analysis")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, ReasonOK, decision.Reason)
	require.NotNil(t, decision.Remaining)
	assert.Equal(t, 5, *decision.Remaining)
	assert.Equal(t, plan.FreeTrialPlan, decision.PlanKey)

	for i := 0; i < 5; i++ {
		_, err := ledger.Increment(user.ID, plan.ResourceCVAnalysis, 1)
		require.NoError(t, err)
	}

	decision, err = entitlements.Check(user.ID, "cv_analysis")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonQuotaExhausted, decision.Reason)
	require.NotNil(t, decision.Remaining)
	assert.Equal(t, 0, *decision.Remaining)
}

func TestProviderAllowedFollowsPlan(t *testing.T) {
	db, _, store, _, entitlements := newTestEngine(t)
	user := createTestUser(t, db, model.RoleUser)
	activateTrial(t, store, user.ID)

	allowed, err := entitlements.ProviderAllowed(user.ID, "openai")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = entitlements.ProviderAllowed(user.ID, "anthropic")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestProviderAllowedEmptySetDeniesAll(t *testing.T) {
	db := newTestDB(t)
	catalog := plan.NewCatalog(plan.Plan{
		Key:          "isolated",
		DisplayName:  "Isolated",
		Currency:     "CLP",
		DurationDays: 30,
		Quotas:       map[plan.Resource]int{plan.ResourceCVAnalysis: 5},
	})
	store := NewSubscriptionStore(db, catalog)
	ledger := NewQuotaLedger(db, catalog, store)
	entitlements := NewEntitlement(db, catalog, store, ledger)

	user := createTestUser(t, db, model.RoleUser)
	sub, err := store.CreatePending(user.ID, "isolated", 0, "CLP", model.PaymentMethodFree)
	require.NoError(t, err)
	_, err = store.Activate(sub.ID, "free_isolated")
	require.NoError(t, err)

	for _, provider := range []string{"openai", "gemini", "anthropic"} {
		allowed, err := entitlements.ProviderAllowed(user.ID, provider)
		require.NoError(t, err)
		assert.False(t, allowed)
	}
}

func TestProviderAllowedWithoutSubscription(t *testing.T) {
	db, _, _, _, entitlements := newTestEngine(t)
	user := createTestUser(t, db, model.RoleUser)

	allowed, err := entitlements.ProviderAllowed(user.ID, "openai")
	require.NoError(t, err)
	assert.False(t, allowed)
}
