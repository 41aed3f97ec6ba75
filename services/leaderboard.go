package services

import (
	"errors"

	"eduwave-game-service/models"

	"gorm.io/gorm"
)

// LeaderboardService ranks users by cumulative points. Ordering is
// deterministic: higher points first, then earlier account creation.
type LeaderboardService struct {
	DB     *gorm.DB
	Badges *BadgeEngine
}

func NewLeaderboardService(db *gorm.DB, badges *BadgeEngine) *LeaderboardService {
	return &LeaderboardService{DB: db, Badges: badges}
}

// LeaderboardEntry is one ranked row.
type LeaderboardEntry struct {
	Rank   int            `json:"rank"`
	UserID string         `json:"user_id"`
	Name   string         `json:"name"`
	Points int64          `json:"points"`
	Badges *UserBadgeView `json:"badges,omitempty"`
}

// rankOf computes 1 + count of users strictly ahead of the given user by the
// leaderboard ordering. Shared with the wave_champion predicate.
func rankOf(db *gorm.DB, user *models.GameUser) (int, error) {
	var ahead int64
	err := db.Model(&models.GameUser{}).
		Where("points > ? OR (points = ? AND account_created_at < ?)",
			user.Points, user.Points, user.AccountCreatedAt).
		Count(&ahead).Error
	if err != nil {
		return 0, err
	}
	return int(ahead) + 1, nil
}

// GetLeaderboard returns the ranked slice [offset, offset+limit). Ranks are
// absolute, not page-relative. With includeBadges each entry carries the
// user's badge view.
func (s *LeaderboardService) GetLeaderboard(limit, offset int, includeBadges bool) ([]LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var users []models.GameUser
	if err := s.DB.
		Order("points DESC, account_created_at ASC").
		Limit(limit).Offset(offset).
		Find(&users).Error; err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, len(users))
	for i, user := range users {
		entries[i] = LeaderboardEntry{
			Rank:   offset + i + 1,
			UserID: user.ExternalUserID,
			Name:   user.FullName,
			Points: user.Points,
		}
		if includeBadges && s.Badges != nil {
			view, err := s.Badges.GetUserBadges(user.ExternalUserID)
			if err != nil {
				return nil, err
			}
			entries[i].Badges = view
		}
	}
	return entries, nil
}

// GetUserRank returns the user's absolute rank, points and the total user
// count.
func (s *LeaderboardService) GetUserRank(externalUserID string) (rank int, points int64, total int64, err error) {
	var user models.GameUser
	if err = s.DB.Where("external_user_id = ?", externalUserID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = &NotFoundError{Resource: "user"}
		}
		return
	}
	rank, err = rankOf(s.DB, &user)
	if err != nil {
		return
	}
	points = user.Points
	err = s.DB.Model(&models.GameUser{}).Count(&total).Error
	return
}
