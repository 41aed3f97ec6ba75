package services

import (
	"path/filepath"
	"testing"
	"time"

	"eduwave-game-service/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a throwaway sqlite database with the same schema and the
// same TranslateError setting the service runs with in production.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "game.db") + "?_busy_timeout=10000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	if err := db.AutoMigrate(
		&models.GameUser{},
		&models.DuelSession{},
		&models.UserGameStats{},
		&models.UserBadge{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, externalID, name string, points int64) *models.GameUser {
	t.Helper()
	user := &models.GameUser{
		ExternalUserID:   externalID,
		FullName:         name,
		Points:           points,
		AccountCreatedAt: time.Now().Add(-24 * time.Hour),
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create test user %s: %v", externalID, err)
	}
	return user
}

// fixedClock returns a Now func pinned to t0 that tests can move by swapping
// the pointer target.
func fixedClock(t0 time.Time) (func() time.Time, *time.Time) {
	current := t0
	return func() time.Time { return current }, &current
}

func newTestBadgeEngine(db *gorm.DB) *BadgeEngine {
	return NewBadgeEngine(db, nil, nil, nil)
}

func newTestDuelService(t *testing.T, db *gorm.DB) *DuelService {
	t.Helper()
	badges := newTestBadgeEngine(db)
	ledger := NewPointsLedger(db, badges)
	return NewDuelService(db, NewRateLimitTracker(), ledger, badges)
}
