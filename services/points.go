package services

import (
	"log"

	"eduwave-game-service/models"

	"gorm.io/gorm"
)

// PointsLedger is the single write path for the User.points total. Every
// subsystem that awards or removes points goes through Adjust, which keeps
// the total whole and non-negative and re-checks point badges afterward.
type PointsLedger struct {
	DB     *gorm.DB
	Badges *BadgeEngine
}

func NewPointsLedger(db *gorm.DB, badges *BadgeEngine) *PointsLedger {
	return &PointsLedger{DB: db, Badges: badges}
}

// Adjust applies delta (which may be negative, e.g. removing a forum vote) to
// the user's points and persists the result. The write is a single UPDATE
// expression so concurrent adjustments for the same user serialize at the row
// and no delta is lost. The total never drops below zero; the legacy backend
// re-rounded on every write to guard against fractional drift, which the
// int64 column makes structural here. Returns the new total.
func (l *PointsLedger) Adjust(externalUserID string, delta int64) (int64, error) {
	res := l.DB.Model(&models.GameUser{}).
		Where("external_user_id = ?", externalUserID).
		Update("points", gorm.Expr("CASE WHEN points + ? < 0 THEN 0 ELSE points + ? END", delta, delta))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, &NotFoundError{Resource: "user"}
	}

	var user models.GameUser
	if err := l.DB.Where("external_user_id = ?", externalUserID).First(&user).Error; err != nil {
		return 0, err
	}

	// Point badges move only through this operation, so this is the single
	// re-check hook. Best-effort: a badge failure never fails the adjustment.
	if l.Badges != nil {
		if err := l.Badges.CheckPointBadges(externalUserID); err != nil {
			log.Printf("⚠️ [POINTS] point badge check failed for %s: %v", externalUserID, err)
		}
	}

	return user.Points, nil
}
