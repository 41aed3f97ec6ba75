package models

import (
	"time"

	"gorm.io/gorm"
)

// UserGameStats tracks per-user duel activity (denormalized for performance).
// Created lazily on the first duel interaction; never deleted.
type UserGameStats struct {
	ID             string `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string `gorm:"uniqueIndex;not null" json:"external_user_id"`

	GamesPlayed  int64 `json:"games_played" gorm:"default:0"`
	GamesWon     int64 `json:"games_won" gorm:"default:0;index"`
	PointsEarned int64 `json:"points_earned" gorm:"default:0"` // duel-sourced points only

	CurrentGameStreak int `json:"current_game_streak" gorm:"default:0"`
	MaxGameStreak     int `json:"max_game_streak" gorm:"default:0"`

	// Rolling rate-limit counters; reset lazily when the stored day/week no
	// longer matches the current one.
	DuelsToday    int        `json:"duels_today" gorm:"default:0"`
	DuelsThisWeek int        `json:"duels_this_week" gorm:"default:0"`
	LastDuelDate  *time.Time `json:"last_duel_date,omitempty"`
	LastDuelWeek  string     `json:"last_duel_week,omitempty" gorm:"type:varchar(10)"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
