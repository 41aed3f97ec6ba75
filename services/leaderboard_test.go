package services

import (
	"errors"
	"testing"
	"time"

	"eduwave-game-service/models"
)

func TestGetLeaderboardOrdering(t *testing.T) {
	db := newTestDB(t)
	svc := NewLeaderboardService(db, nil)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	seed := []struct {
		id      string
		name    string
		points  int64
		created time.Time
	}{
		{"u1", "Amina", 300, base.AddDate(0, 0, 2)},
		{"u2", "Bilal", 500, base},
		{"u3", "Chidi", 300, base}, // same points as u1, older account → ranks higher
		{"u4", "Dana", 100, base},
	}
	for _, s := range seed {
		if err := db.Create(&models.GameUser{
			ExternalUserID:   s.id,
			FullName:         s.name,
			Points:           s.points,
			AccountCreatedAt: s.created,
		}).Error; err != nil {
			t.Fatalf("seed %s: %v", s.id, err)
		}
	}

	entries, err := svc.GetLeaderboard(10, 0, false)
	if err != nil {
		t.Fatalf("GetLeaderboard: %v", err)
	}

	wantOrder := []string{"u2", "u3", "u1", "u4"}
	if len(entries) != len(wantOrder) {
		t.Fatalf("got %d entries, want %d", len(entries), len(wantOrder))
	}
	for i, want := range wantOrder {
		if entries[i].UserID != want {
			t.Errorf("position %d = %s, want %s", i, entries[i].UserID, want)
		}
		if entries[i].Rank != i+1 {
			t.Errorf("rank at position %d = %d, want %d", i, entries[i].Rank, i+1)
		}
	}
}

func TestGetLeaderboardPaginationRanksAbsolute(t *testing.T) {
	db := newTestDB(t)
	svc := NewLeaderboardService(db, nil)

	for i := 0; i < 5; i++ {
		createTestUser(t, db, string(rune('a'+i)), "User", int64(500-i*100))
	}

	entries, err := svc.GetLeaderboard(2, 2, false)
	if err != nil {
		t.Fatalf("GetLeaderboard: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Rank != 3 || entries[1].Rank != 4 {
		t.Errorf("ranks = %d,%d, want 3,4", entries[0].Rank, entries[1].Rank)
	}
}

func TestGetUserRank(t *testing.T) {
	db := newTestDB(t)
	svc := NewLeaderboardService(db, nil)

	createTestUser(t, db, "u1", "Amina", 500)
	createTestUser(t, db, "u2", "Bilal", 300)
	createTestUser(t, db, "u3", "Chidi", 100)

	rank, points, total, err := svc.GetUserRank("u2")
	if err != nil {
		t.Fatalf("GetUserRank: %v", err)
	}
	if rank != 2 || points != 300 || total != 3 {
		t.Errorf("got rank=%d points=%d total=%d, want 2/300/3", rank, points, total)
	}

	_, _, _, err = svc.GetUserRank("nobody")
	var nfErr *NotFoundError
	if !errors.As(err, &nfErr) {
		t.Errorf("expected NotFoundError for unknown user, got %v", err)
	}
}
