package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Erickxkunzx12/ARmind-CVs-sub001/internal/model"
	"github.com/Erickxkunzx12/ARmind-CVs-sub001/pkg/plan"
)

func TestCreatePendingUnknownPlan(t *testing.T) {
	db, _, store, _, _ := newTestEngine(t)
	user := createTestUser(t, db, model.RoleUser)

	_, err := store.CreatePending(user.ID, "golden", 100, "CLP", model.PaymentMethodCardRedirect)
	assert.ErrorIs(t, err, ErrUnknownPlan)
}

func TestActivateStampsPeriodAndCounters(t *testing.T) {
	db, _, store, _, _ := newTestEngine(t)
	user := createTestUser(t, db, model.RoleUser)

	sub := activateTrial(t, store, user.ID)

	assert.Equal(t, model.SubscriptionActive, sub.Status)
	assert.Equal(t, sub.StartAt.AddDate(0, 0, 7), sub.EndAt)

	var counters []model.QuotaCounter
	require.NoError(t, db.Where("subscription_id = ?", sub.ID).Find(&counters).Error)
	require.Len(t, counters, 2)
	for _, c := range counters {
		assert.Equal(t, 0, c.UsedCount)
		assert.Equal(t, user.ID, c.UserID)
		assert.True(t, c.PeriodStartAt.Equal(sub.StartAt))
	}
}

func TestActivateExpiresPreviousSubscription(t *testing.T) {
	db, _, store, ledger, _ := newTestEngine(t)
	user := createTestUser(t, db, model.RoleUser)

	trial := activateTrial(t, store, user.ID)

	// Consume some trial quota, then upgrade.
	for i := 0; i < 3; i++ {
		_, err := ledger.Increment(user.ID, plan.ResourceCVAnalysis, 1)
		require.NoError(t, err)
	}

	upgrade, err := store.CreatePending(user.ID, plan.StandardPlan, 5990, "CLP", model.PaymentMethodCardRedirect)
	require.NoError(t, err)
	activated, err := store.Activate(upgrade.ID, "cs_test_upgrade")
	require.NoError(t, err)

	var oldSub model.Subscription
	require.NoError(t, db.First(&oldSub, trial.ID).Error)
	assert.Equal(t, model.SubscriptionExpired, oldSub.Status)

	active, err := store.ActiveFor(user.ID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, activated.ID, active.ID)
	assert.Equal(t, plan.StandardPlan, active.PlanKey)

	// Fresh counters for the new subscription; old ones kept as history.
	used, err := ledger.Used(user.ID, plan.ResourceCVAnalysis)
	require.NoError(t, err)
	assert.Equal(t, 0, used)

	var oldCounter model.QuotaCounter
	require.NoError(t, db.Where("subscription_id = ? AND resource = ?",
		trial.ID, string(plan.ResourceCVAnalysis)).First(&oldCounter).Error)
	assert.Equal(t, 3, oldCounter.UsedCount)
}

func TestActivateIdempotentOnSameExternalID(t *testing.T) {
	db, _, store, ledger, _ := newTestEngine(t)
	user := createTestUser(t, db, model.RoleUser)

	sub, err := store.CreatePending(user.ID, plan.StandardPlan, 5990, "CLP", model.PaymentMethodCardRedirect)
	require.NoError(t, err)

	first, err := store.Activate(sub.ID, "cs_test_dup")
	require.NoError(t, err)

	_, err = ledger.Increment(user.ID, plan.ResourceCVAnalysis, 1)
	require.NoError(t, err)

	second, err := store.Activate(sub.ID, "cs_test_dup")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.StartAt.Equal(first.StartAt))

	// The replay must not reset consumption.
	used, err := ledger.Used(user.ID, plan.ResourceCVAnalysis)
	require.NoError(t, err)
	assert.Equal(t, 1, used)

	var activeCount int64
	require.NoError(t, db.Model(&model.Subscription{}).
		Where("user_id = ? AND status = ?", user.ID, model.SubscriptionActive).
		Count(&activeCount).Error)
	assert.EqualValues(t, 1, activeCount)
}

func TestActivateConvergesDoubleActive(t *testing.T) {
	db, _, store, _, _ := newTestEngine(t)
	user := createTestUser(t, db, model.RoleUser)

	// Simulate a historical invariant violation: two active rows.
	for i := 0; i < 2; i++ {
		bad := model.Subscription{
			UserID:  user.ID,
			PlanKey: plan.FreeTrialPlan,
			Status:  model.SubscriptionActive,
			StartAt: time.Now().Add(-time.Hour),
			EndAt:   time.Now().Add(24 * time.Hour),
		}
		require.NoError(t, db.Create(&bad).Error)
	}

	sub, err := store.CreatePending(user.ID, plan.StandardPlan, 5990, "CLP", model.PaymentMethodCardRedirect)
	require.NoError(t, err)
	activated, err := store.Activate(sub.ID, "cs_test_converge")
	require.NoError(t, err)

	var activeCount int64
	require.NoError(t, db.Model(&model.Subscription{}).
		Where("user_id = ? AND status = ?", user.ID, model.SubscriptionActive).
		Count(&activeCount).Error)
	assert.EqualValues(t, 1, activeCount)

	active, err := store.ActiveFor(user.ID)
	require.NoError(t, err)
	assert.Equal(t, activated.ID, active.ID)
}

func TestActivateUnknownSubscription(t *testing.T) {
	_, _, store, _, _ := newTestEngine(t)

	_, err := store.Activate(9999, "cs_test_missing")
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)
}

func TestExpireElapsed(t *testing.T) {
	db, _, store, _, _ := newTestEngine(t)
	user := createTestUser(t, db, model.RoleUser)

	sub := activateTrial(t, store, user.ID)

	// Nothing elapses before end_at.
	count, err := store.ExpireElapsed(sub.EndAt.Add(-time.Minute))
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)

	// end_at itself is already out of the period.
	count, err = store.ExpireElapsed(sub.EndAt)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	var expired model.Subscription
	require.NoError(t, db.First(&expired, sub.ID).Error)
	assert.Equal(t, model.SubscriptionExpired, expired.Status)

	// Idempotent across runs.
	count, err = store.ExpireElapsed(sub.EndAt.Add(time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)
}

func TestCancelStalePending(t *testing.T) {
	db, _, store, _, _ := newTestEngine(t)
	user := createTestUser(t, db, model.RoleUser)

	sub, err := store.CreatePending(user.ID, plan.StandardPlan, 5990, "CLP", model.PaymentMethodCardRedirect)
	require.NoError(t, err)

	count, err := store.CancelStalePending(time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	var swept model.Subscription
	require.NoError(t, db.First(&swept, sub.ID).Error)
	assert.Equal(t, model.SubscriptionCancelled, swept.Status)
}

func TestCancelActiveSubscription(t *testing.T) {
	db, _, store, _, _ := newTestEngine(t)
	user := createTestUser(t, db, model.RoleUser)

	_, err := store.Cancel(user.ID)
	assert.ErrorIs(t, err, ErrNoActiveSubscription)

	activateTrial(t, store, user.ID)

	sub, err := store.Cancel(user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionCancelled, sub.Status)

	active, err := store.ActiveFor(user.ID)
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestHistoryForOrdersNewestFirst(t *testing.T) {
	db, _, store, _, _ := newTestEngine(t)
	user := createTestUser(t, db, model.RoleUser)

	trial := activateTrial(t, store, user.ID)

	upgrade, err := store.CreatePending(user.ID, plan.StandardPlan, 5990, "CLP", model.PaymentMethodCardRedirect)
	require.NoError(t, err)
	store.now = func() time.Time { return time.Now().Add(time.Hour) }
	activated, err := store.Activate(upgrade.ID, "cs_test_history")
	require.NoError(t, err)

	history, err := store.HistoryFor(user.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, activated.ID, history[0].ID)
	assert.Equal(t, trial.ID, history[1].ID)
}
