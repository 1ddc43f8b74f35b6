package engine

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Erickxkunzx12/ARmind-CVs-sub001/internal/model"
	"github.com/Erickxkunzx12/ARmind-CVs-sub001/pkg/plan"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// Named in-memory database with a shared cache, so the connection pool
	// sees one store; immediate transactions serialize concurrent writers.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000&_txlock=immediate", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Subscription{},
		&model.QuotaCounter{},
		&model.PaymentTransaction{},
		&model.PendingPayment{},
	))
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, role string) model.User {
	t.Helper()

	user := model.User{
		Email:    uuid.New().String() + "@example.com",
		Password: "hashed",
		Username: "user-" + uuid.New().String(),
		Role:     role,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func newTestEngine(t *testing.T) (*gorm.DB, *plan.Catalog, *SubscriptionStore, *QuotaLedger, *Entitlement) {
	t.Helper()

	db := newTestDB(t)
	catalog := plan.Default()
	store := NewSubscriptionStore(db, catalog)
	ledger := NewQuotaLedger(db, catalog, store)
	entitlements := NewEntitlement(db, catalog, store, ledger)
	return db, catalog, store, ledger, entitlements
}

// activateTrial gives the user an active free_trial subscription.
func activateTrial(t *testing.T, store *SubscriptionStore, userID uint) *model.Subscription {
	t.Helper()

	sub, err := store.CreatePending(userID, plan.FreeTrialPlan, 0, "CLP", model.PaymentMethodFree)
	require.NoError(t, err)
	activated, err := store.Activate(sub.ID, "free_"+uuid.New().String())
	require.NoError(t, err)
	return activated
}
