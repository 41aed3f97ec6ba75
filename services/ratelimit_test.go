package services

import (
	"errors"
	"strings"
	"testing"
	"time"

	"eduwave-game-service/models"
)

func TestCheckAndConsumeDailyCap(t *testing.T) {
	tests := []struct {
		name      string
		isPremium bool
		daily     int
	}{
		{"free user gets one duel per day", false, FreeDailyDuelLimit},
		{"premium user gets five duels per day", true, PremiumDailyDuelLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now, _ := fixedClock(time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC))
			tracker := &RateLimitTracker{Now: now}
			stats := &models.UserGameStats{}

			for i := 0; i < tt.daily; i++ {
				if err := tracker.CheckAndConsume(stats, tt.isPremium); err != nil {
					t.Fatalf("duel %d unexpectedly limited: %v", i+1, err)
				}
			}

			err := tracker.CheckAndConsume(stats, tt.isPremium)
			var rateErr *RateLimitError
			if !errors.As(err, &rateErr) {
				t.Fatalf("expected RateLimitError, got %v", err)
			}
			if rateErr.Window != "daily" {
				t.Errorf("Window = %q, want daily", rateErr.Window)
			}
			if rateErr.Limit != tt.daily {
				t.Errorf("Limit = %d, want %d", rateErr.Limit, tt.daily)
			}
		})
	}
}

func TestCheckAndConsumeWeeklyCap(t *testing.T) {
	// Wednesday; the week has room for one duel a day but the weekly cap
	// trips first for free users.
	start := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC) // Monday
	now, clock := fixedClock(start)
	tracker := &RateLimitTracker{Now: now}
	stats := &models.UserGameStats{}

	for day := 0; day < FreeWeeklyDuelLimit; day++ {
		*clock = start.AddDate(0, 0, day)
		if err := tracker.CheckAndConsume(stats, false); err != nil {
			t.Fatalf("day %d unexpectedly limited: %v", day, err)
		}
	}

	*clock = start.AddDate(0, 0, FreeWeeklyDuelLimit) // Thursday, same week
	err := tracker.CheckAndConsume(stats, false)
	var rateErr *RateLimitError
	if !errors.As(err, &rateErr) {
		t.Fatalf("expected weekly RateLimitError, got %v", err)
	}
	if rateErr.Window != "weekly" {
		t.Errorf("Window = %q, want weekly", rateErr.Window)
	}

	// Next Monday the weekly counter rolls over.
	*clock = start.AddDate(0, 0, 7)
	if err := tracker.CheckAndConsume(stats, false); err != nil {
		t.Fatalf("new week unexpectedly limited: %v", err)
	}
}

func TestResetRollingCountersLazyReset(t *testing.T) {
	start := time.Date(2026, 8, 26, 23, 0, 0, 0, time.UTC)
	now, clock := fixedClock(start)
	tracker := &RateLimitTracker{Now: now}
	stats := &models.UserGameStats{}

	if err := tracker.CheckAndConsume(stats, false); err != nil {
		t.Fatalf("first duel limited: %v", err)
	}
	if stats.DuelsToday != 1 || stats.DuelsThisWeek != 1 {
		t.Fatalf("counters = (%d, %d), want (1, 1)", stats.DuelsToday, stats.DuelsThisWeek)
	}

	// Two hours later it is the next calendar day; the daily counter resets
	// but the weekly one keeps counting.
	*clock = start.Add(2 * time.Hour)
	tracker.ResetRollingCounters(stats)
	if stats.DuelsToday != 0 {
		t.Errorf("DuelsToday = %d after day rollover, want 0", stats.DuelsToday)
	}
	if stats.DuelsThisWeek != 1 {
		t.Errorf("DuelsThisWeek = %d after day rollover, want 1", stats.DuelsThisWeek)
	}
}

func TestWeekKeyYearBoundary(t *testing.T) {
	// 2024-12-30 and 2025-01-02 are both ISO week 1 of 2025.
	a := weekKey(time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC))
	b := weekKey(time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC))
	if a != b {
		t.Errorf("same ISO week got different keys: %q vs %q", a, b)
	}
	if a != "2025-W01" {
		t.Errorf("weekKey = %q, want 2025-W01", a)
	}
}

func TestRateLimitErrorMentionsUpgradeForFreeUsers(t *testing.T) {
	freeErr := (&RateLimitError{Window: "daily", Limit: 1, IsPremium: false}).Error()
	premiumErr := (&RateLimitError{Window: "daily", Limit: 5, IsPremium: true}).Error()

	if !strings.Contains(freeErr, "Upgrade") {
		t.Errorf("free-user message should suggest upgrading, got %q", freeErr)
	}
	if strings.Contains(premiumErr, "Upgrade") {
		t.Errorf("premium message should not suggest upgrading, got %q", premiumErr)
	}
}
