package models

import (
	"time"

	"gorm.io/gorm"
)

// GameUser is a local snapshot of platform user data needed by the game
// service. Owned solely by this service; populated via sync workers from the
// profile and billing services, and mutated locally for points and streaks.
type GameUser struct {
	ID             string `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string `gorm:"uniqueIndex;not null" json:"external_user_id"` // the profile service's UUID
	FullName       string `gorm:"index;not null" json:"full_name"`
	Email          string `json:"email,omitempty"`

	// Cumulative points across every point source (duels, forum, lessons).
	// Always a whole number; adjusted only through the points ledger.
	Points int64 `json:"points" gorm:"default:0;index"`

	// Premium / trial flags, synced from the billing service.
	IsPro          bool       `json:"is_pro" gorm:"default:false"`
	TrialStartDate *time.Time `json:"trial_start_date,omitempty"`
	TrialExpired   bool       `json:"trial_expired" gorm:"default:false"`

	// Login streak, updated by the login engagement event.
	LoginStreak   int        `json:"login_streak" gorm:"default:0"`
	LastLoginDate *time.Time `json:"last_login_date,omitempty"`

	// Engagement markers consumed by badge predicates.
	LastCourseOpenedAt  *time.Time `json:"last_course_opened_at,omitempty"`
	LastToolUsedAt      *time.Time `json:"last_tool_used_at,omitempty"`
	ConsecutiveToolDays int        `json:"consecutive_tool_days" gorm:"default:0"`
	StudyPlannerDays    int        `json:"study_planner_days" gorm:"default:0"`
	AnalyticsDays       int        `json:"analytics_days" gorm:"default:0"`
	LastPlannerDate     *time.Time `json:"last_planner_date,omitempty"`
	LastAnalyticsDate   *time.Time `json:"last_analytics_date,omitempty"`

	// Forum counters mirrored from forum_post / forum_vote events.
	ForumPosts        int `json:"forum_posts" gorm:"default:0"`
	ForumHelpfulVotes int `json:"forum_helpful_votes" gorm:"default:0"`

	// Account creation time at the profile service; leaderboard tie-break.
	AccountCreatedAt time.Time `json:"account_created_at"`

	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsPremium reports whether the user currently has premium entitlements,
// either through a Pro subscription or a running trial.
func (u *GameUser) IsPremium() bool {
	return u.IsPro || (u.TrialStartDate != nil && !u.TrialExpired)
}
