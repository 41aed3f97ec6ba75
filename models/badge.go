package models

import (
	"math"
	"time"
)

// Badge kinds. Achievement badges are predicate-triggered; point badges are
// threshold bands over cumulative user points.
const (
	BadgeKindAchievement = "achievement"
	BadgeKindPoint       = "point"
)

// Achievement badge ids.
const (
	BadgeFirstStep      = "first_step"
	BadgeGoalSetter     = "goal_setter"
	BadgeQuickLearner   = "quick_learner"
	BadgeWaveRider      = "wave_rider"
	BadgeConsistent     = "consistent"
	BadgeDailyGrinder   = "daily_grinder"
	BadgeExpert         = "expert"
	BadgeWaveChampion   = "wave_champion"
	BadgeWaveInfluencer = "wave_influencer"
	BadgeTrending       = "trending"
)

// BadgeDefinition is static, code-defined badge metadata. Not user data.
type BadgeDefinition struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
}

// PointBadgeBand is a point badge with its inclusive points band.
type PointBadgeBand struct {
	BadgeDefinition
	MinPoints int64 `json:"min_points"`
	MaxPoints int64 `json:"max_points"`
}

// AchievementBadges lists every achievement badge, in display order.
var AchievementBadges = []BadgeDefinition{
	{ID: BadgeFirstStep, Name: "First Step", Icon: "👣", Description: "Open a course, use a tool, and post in forum"},
	{ID: BadgeGoalSetter, Name: "Goal Setter", Icon: "🎯", Description: "Use Smart Study Planner or Progress Analytics for 7 consecutive days"},
	{ID: BadgeQuickLearner, Name: "Quick Learner", Icon: "⚡", Description: "Complete a course within 1 day"},
	{ID: BadgeWaveRider, Name: "Wave Rider", Icon: "🏄", Description: "Win 5 games in a row on Learning Games"},
	{ID: BadgeConsistent, Name: "Consistent", Icon: "📅", Description: "Log into EduWave for 1 month (30 days streak)"},
	{ID: BadgeDailyGrinder, Name: "Daily Grinder", Icon: "💪", Description: "Use any EduWave tools daily for 14 consecutive days"},
	{ID: BadgeExpert, Name: "Expert", Icon: "🎓", Description: "Complete 5 courses"},
	{ID: BadgeWaveChampion, Name: "Wave Champion", Icon: "🏆", Description: "Reach top 3 on the Leaderboard"},
	{ID: BadgeWaveInfluencer, Name: "Wave Influencer", Icon: "🌟", Description: "Get 100 likes on a single post"},
	{ID: BadgeTrending, Name: "Trending", Icon: "🔥", Description: "Have 100 comments on a single post"},
}

// PointBadges lists the point bands, lowest first. Bands are inclusive and
// non-overlapping by construction.
var PointBadges = []PointBadgeBand{
	{BadgeDefinition: BadgeDefinition{ID: "bronze", Name: "EduWaver Bronze", Icon: "🥉"}, MinPoints: 1000, MaxPoints: 4999},
	{BadgeDefinition: BadgeDefinition{ID: "silver", Name: "EduWaver Silver", Icon: "🥈"}, MinPoints: 5000, MaxPoints: 9999},
	{BadgeDefinition: BadgeDefinition{ID: "gold", Name: "EduWaver Gold", Icon: "🥇"}, MinPoints: 10000, MaxPoints: 19999},
	{BadgeDefinition: BadgeDefinition{ID: "platinum", Name: "EduWaver Platinum", Icon: "💎"}, MinPoints: 20000, MaxPoints: 99999},
	{BadgeDefinition: BadgeDefinition{ID: "legend", Name: "EduWaver Legend", Icon: "👑"}, MinPoints: 100000, MaxPoints: math.MaxInt64},
}

// UserBadge is a user's per-badge state. One row per (user, badge id); once
// earned is set it is never cleared or re-awarded.
type UserBadge struct {
	ID             string     `gorm:"primaryKey;type:uuid" json:"-"`
	ExternalUserID string     `gorm:"uniqueIndex:idx_user_badge;not null" json:"-"`
	BadgeID        string     `gorm:"uniqueIndex:idx_user_badge;not null" json:"id"`
	Kind           string     `gorm:"type:varchar(16);not null" json:"-"`
	Earned         bool       `gorm:"default:false" json:"earned"`
	Progress       int        `gorm:"default:0" json:"progress,omitempty"`
	EarnedAt       *time.Time `json:"earned_at,omitempty"`

	CreatedAt time.Time `json:"-" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"-" gorm:"autoUpdateTime"`
}
