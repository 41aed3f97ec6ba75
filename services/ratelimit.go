package services

import (
	"fmt"
	"time"

	"eduwave-game-service/models"
)

// Duel creation caps. Joining an existing duel is uncapped; starting one does
// not consume quota (it was consumed at creation).
const (
	FreeDailyDuelLimit     = 1
	FreeWeeklyDuelLimit    = 3
	PremiumDailyDuelLimit  = 5
	PremiumWeeklyDuelLimit = 20
)

// RateLimitTracker decides whether a user may create a duel right now and
// records consumption on the user's stats record. Counters roll over lazily:
// the stored day/week is compared against "now" on every check and reset
// before the limit comparison.
type RateLimitTracker struct {
	Now func() time.Time
}

func NewRateLimitTracker() *RateLimitTracker {
	return &RateLimitTracker{Now: time.Now}
}

// dayKey is the calendar date of t, e.g. "2026-08-29".
func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// weekKey is a stable identifier for the ISO week containing t, e.g.
// "2026-W35". Distinct weeks get distinct keys across year boundaries.
func weekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// ResetRollingCounters zeroes the daily and weekly counters when the stored
// window no longer matches now. Mutates stats in place; the caller persists.
func (r *RateLimitTracker) ResetRollingCounters(stats *models.UserGameStats) {
	now := r.Now()
	if stats.LastDuelDate != nil && dayKey(*stats.LastDuelDate) != dayKey(now) {
		stats.DuelsToday = 0
	}
	if stats.LastDuelWeek != "" && stats.LastDuelWeek != weekKey(now) {
		stats.DuelsThisWeek = 0
	}
}

// CheckAndConsume verifies the create quota and, when allowed, increments the
// rolling counters and stamps the current day/week. The caller persists the
// stats record as part of the same write that records the duel action.
func (r *RateLimitTracker) CheckAndConsume(stats *models.UserGameStats, isPremium bool) error {
	r.ResetRollingCounters(stats)

	dailyLimit, weeklyLimit := FreeDailyDuelLimit, FreeWeeklyDuelLimit
	if isPremium {
		dailyLimit, weeklyLimit = PremiumDailyDuelLimit, PremiumWeeklyDuelLimit
	}

	if stats.DuelsToday >= dailyLimit {
		return &RateLimitError{Window: "daily", Limit: dailyLimit, IsPremium: isPremium}
	}
	if stats.DuelsThisWeek >= weeklyLimit {
		return &RateLimitError{Window: "weekly", Limit: weeklyLimit, IsPremium: isPremium}
	}

	now := r.Now()
	stats.DuelsToday++
	stats.DuelsThisWeek++
	stats.LastDuelDate = &now
	stats.LastDuelWeek = weekKey(now)
	return nil
}

// Limits reports the caps that apply to the given premium status, for the
// stats endpoint's user-facing messaging.
func (r *RateLimitTracker) Limits(isPremium bool) (daily, weekly int) {
	if isPremium {
		return PremiumDailyDuelLimit, PremiumWeeklyDuelLimit
	}
	return FreeDailyDuelLimit, FreeWeeklyDuelLimit
}
