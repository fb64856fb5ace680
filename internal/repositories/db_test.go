package repositories

import (
	"context"
	"testing"
	"time"

	"lumepay/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testNow = time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

// newTestDB opens a private in-memory database with the payment tables.
// A single connection keeps every query on the same in-memory database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
		NowFunc:        func() time.Time { return testNow },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.APIKey{},
		&models.Intent{},
		&models.Payment{},
		&models.SystemSetting{},
	))
	return db
}

func seedMerchant(t *testing.T, db *gorm.DB, id string, credits int) *models.APIKey {
	t.Helper()
	require.NoError(t, db.Create(&models.User{
		ID:           id,
		Email:        id + "@example.com",
		Password:     "x",
		Name:         "Abebe Kebede",
		TokenVersion: 1,
	}).Error)

	key := &models.APIKey{
		UserID:              id,
		Name:                "Production",
		KeyHash:             "hash-" + id,
		Prefix:              "lume_" + id,
		RemainingCredits:    credits,
		Enabled:             true,
		RateLimitEnabled:    true,
		RateLimitMax:        100,
		RateLimitTimeWindow: time.Hour.Milliseconds(),
	}
	require.NoError(t, db.Create(key).Error)
	return key
}

func seedIntent(t *testing.T, db *gorm.DB, userID string, expiresAt time.Time) *models.Intent {
	t.Helper()
	intent := &models.Intent{
		UserID:    userID,
		Amount:    500,
		Status:    models.IntentPending,
		ExpiresAt: expiresAt,
		CreatedAt: testNow,
	}
	require.NoError(t, NewIntentRepository(db).Create(context.Background(), intent))
	return intent
}
