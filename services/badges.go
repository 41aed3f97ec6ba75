package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"eduwave-game-service/models"

	"gorm.io/gorm"
)

// Streak and count thresholds for the achievement predicates.
const (
	firstStepTarget      = 3
	goalSetterDays       = 7
	waveRiderStreak      = 5
	consistentLoginDays  = 30
	dailyGrinderToolDays = 14
	expertCourseCount    = 5
	waveChampionRank     = 3
	waveInfluencerVotes  = 100
	trendingReplies      = 100
)

// ForumReader exposes the forum service data badge predicates need. The
// forum itself is owned by another service; this service only reads.
type ForumReader interface {
	// MaxPostVotes returns the highest helpful-vote count across the user's posts.
	MaxPostVotes(ctx context.Context, externalUserID string) (int, error)
	// MaxPostReplies returns the highest reply count across the user's posts.
	MaxPostReplies(ctx context.Context, externalUserID string) (int, error)
}

// CourseReader exposes the course service data badge predicates need.
type CourseReader interface {
	// CompletedCourses returns how many courses the user has at 100% progress.
	CompletedCourses(ctx context.Context, externalUserID string) (int, error)
	// FirstInteraction returns when the user first touched the course, or the
	// zero time if they never did.
	FirstInteraction(ctx context.Context, externalUserID, courseID string) (time.Time, error)
}

// Notifier dispatches a user notification. Delivery is fire-and-forget;
// failures are logged by implementations and never surface to callers.
type Notifier interface {
	Notify(externalUserID, title, message, link string)
}

// BadgeEngine evaluates badge predicates against persisted user state and
// awards badge ids exactly once. Definitions are static tables injected at
// construction so the engine stays testable in isolation; badges are never
// revoked.
type BadgeEngine struct {
	DB           *gorm.DB
	Achievements []models.BadgeDefinition
	PointBands   []models.PointBadgeBand
	Forum        ForumReader
	Courses      CourseReader
	Notifier     Notifier
	Now          func() time.Time
}

func NewBadgeEngine(db *gorm.DB, forum ForumReader, courses CourseReader, notifier Notifier) *BadgeEngine {
	return &BadgeEngine{
		DB:           db,
		Achievements: models.AchievementBadges,
		PointBands:   models.PointBadges,
		Forum:        forum,
		Courses:      courses,
		Notifier:     notifier,
		Now:          time.Now,
	}
}

// ensureBadge locates or initializes the badge row for (user, badge id).
func (e *BadgeEngine) ensureBadge(tx *gorm.DB, externalUserID, badgeID, kind string) (*models.UserBadge, error) {
	var badge models.UserBadge
	err := tx.Where("external_user_id = ? AND badge_id = ?", externalUserID, badgeID).First(&badge).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		badge = models.UserBadge{ExternalUserID: externalUserID, BadgeID: badgeID, Kind: kind}
		if err := tx.Create(&badge).Error; err != nil {
			return nil, err
		}
		return &badge, nil
	}
	if err != nil {
		return nil, err
	}
	return &badge, nil
}

// Award sets earned on the badge exactly once. A second award for the same id
// is a silent no-op; the return value reports whether the badge was newly
// earned. EarnedAt is never overwritten.
func (e *BadgeEngine) Award(externalUserID, badgeID, kind string) (bool, error) {
	newly := false
	err := e.DB.Transaction(func(tx *gorm.DB) error {
		badge, err := e.ensureBadge(tx, externalUserID, badgeID, kind)
		if err != nil {
			return err
		}
		if badge.Earned {
			return nil
		}
		now := e.Now()
		badge.Earned = true
		badge.EarnedAt = &now
		newly = true
		return tx.Model(&models.UserBadge{}).
			Where("id = ? AND earned = ?", badge.ID, false).
			Updates(map[string]interface{}{"earned": true, "earned_at": now}).Error
	})
	if err != nil {
		return false, err
	}

	if newly {
		log.Printf("🎖️ Badge awarded: %s → %s", badgeID, externalUserID)
		if e.Notifier != nil {
			e.Notifier.Notify(externalUserID, "Badge Earned!",
				fmt.Sprintf("You earned the %q badge", badgeName(badgeID)), "/badges.html")
		}
	}
	return newly, nil
}

// UpdateProgress records progress toward a badge threshold. Progress moves
// freely; earned state is untouched.
func (e *BadgeEngine) UpdateProgress(externalUserID, badgeID, kind string, progress int) error {
	return e.DB.Transaction(func(tx *gorm.DB) error {
		badge, err := e.ensureBadge(tx, externalUserID, badgeID, kind)
		if err != nil {
			return err
		}
		return tx.Model(&models.UserBadge{}).
			Where("id = ?", badge.ID).
			Update("progress", progress).Error
	})
}

func badgeName(badgeID string) string {
	for _, def := range models.AchievementBadges {
		if def.ID == badgeID {
			return def.Name
		}
	}
	for _, band := range models.PointBadges {
		if band.ID == badgeID {
			return band.Name
		}
	}
	return badgeID
}

func (e *BadgeEngine) user(externalUserID string) (*models.GameUser, error) {
	var user models.GameUser
	if err := e.DB.Where("external_user_id = ?", externalUserID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "user"}
		}
		return nil, err
	}
	return &user, nil
}

// CheckPointBadges awards every point badge whose band contains the user's
// current total. Bands the user has passed through stay earned.
func (e *BadgeEngine) CheckPointBadges(externalUserID string) error {
	user, err := e.user(externalUserID)
	if err != nil {
		return err
	}
	for _, band := range e.PointBands {
		if user.Points >= band.MinPoints && user.Points <= band.MaxPoints {
			if _, err := e.Award(externalUserID, band.ID, models.BadgeKindPoint); err != nil {
				return err
			}
		}
	}
	return nil
}

// CheckFirstStep: progress counts {course opened, tool used, forum post};
// earned at all three.
func (e *BadgeEngine) CheckFirstStep(externalUserID string) error {
	user, err := e.user(externalUserID)
	if err != nil {
		return err
	}
	progress := 0
	if user.LastCourseOpenedAt != nil {
		progress++
	}
	if user.LastToolUsedAt != nil {
		progress++
	}
	if user.ForumPosts > 0 {
		progress++
	}
	if err := e.UpdateProgress(externalUserID, models.BadgeFirstStep, models.BadgeKindAchievement, progress); err != nil {
		return err
	}
	if progress >= firstStepTarget {
		_, err = e.Award(externalUserID, models.BadgeFirstStep, models.BadgeKindAchievement)
	}
	return err
}

// CheckConsistent: 30-day login streak.
func (e *BadgeEngine) CheckConsistent(externalUserID string) error {
	user, err := e.user(externalUserID)
	if err != nil {
		return err
	}
	if err := e.UpdateProgress(externalUserID, models.BadgeConsistent, models.BadgeKindAchievement, user.LoginStreak); err != nil {
		return err
	}
	if user.LoginStreak >= consistentLoginDays {
		_, err = e.Award(externalUserID, models.BadgeConsistent, models.BadgeKindAchievement)
	}
	return err
}

// CheckDailyGrinder: 14 consecutive tool-usage days.
func (e *BadgeEngine) CheckDailyGrinder(externalUserID string) error {
	user, err := e.user(externalUserID)
	if err != nil {
		return err
	}
	if err := e.UpdateProgress(externalUserID, models.BadgeDailyGrinder, models.BadgeKindAchievement, user.ConsecutiveToolDays); err != nil {
		return err
	}
	if user.ConsecutiveToolDays >= dailyGrinderToolDays {
		_, err = e.Award(externalUserID, models.BadgeDailyGrinder, models.BadgeKindAchievement)
	}
	return err
}

// CheckGoalSetter: 7 consecutive days on the study planner or analytics,
// whichever streak is longer.
func (e *BadgeEngine) CheckGoalSetter(externalUserID string) error {
	user, err := e.user(externalUserID)
	if err != nil {
		return err
	}
	days := user.StudyPlannerDays
	if user.AnalyticsDays > days {
		days = user.AnalyticsDays
	}
	if err := e.UpdateProgress(externalUserID, models.BadgeGoalSetter, models.BadgeKindAchievement, days); err != nil {
		return err
	}
	if days >= goalSetterDays {
		_, err = e.Award(externalUserID, models.BadgeGoalSetter, models.BadgeKindAchievement)
	}
	return err
}

// CheckExpert: five courses at 100% progress.
func (e *BadgeEngine) CheckExpert(ctx context.Context, externalUserID string) error {
	if e.Courses == nil {
		return nil
	}
	completed, err := e.Courses.CompletedCourses(ctx, externalUserID)
	if err != nil {
		return err
	}
	if err := e.UpdateProgress(externalUserID, models.BadgeExpert, models.BadgeKindAchievement, completed); err != nil {
		return err
	}
	if completed >= expertCourseCount {
		_, err = e.Award(externalUserID, models.BadgeExpert, models.BadgeKindAchievement)
	}
	return err
}

// CheckQuickLearner is evaluated at course-completion time only: the badge is
// earned when the course was finished within one day of the user's first
// interaction with it.
func (e *BadgeEngine) CheckQuickLearner(ctx context.Context, externalUserID, courseID string) error {
	if e.Courses == nil {
		return nil
	}
	first, err := e.Courses.FirstInteraction(ctx, externalUserID, courseID)
	if err != nil {
		return err
	}
	if first.IsZero() {
		return nil
	}
	if e.Now().Sub(first) <= 24*time.Hour {
		_, err = e.Award(externalUserID, models.BadgeQuickLearner, models.BadgeKindAchievement)
	}
	return err
}

// CheckWaveRider: a duel win pushed the current streak to five or more.
func (e *BadgeEngine) CheckWaveRider(externalUserID string, currentStreak int) error {
	if currentStreak < waveRiderStreak {
		return nil
	}
	_, err := e.Award(externalUserID, models.BadgeWaveRider, models.BadgeKindAchievement)
	return err
}

// CheckWaveChampion: current leaderboard rank in the top three.
func (e *BadgeEngine) CheckWaveChampion(externalUserID string) error {
	user, err := e.user(externalUserID)
	if err != nil {
		return err
	}
	rank, err := rankOf(e.DB, user)
	if err != nil {
		return err
	}
	if rank <= waveChampionRank {
		_, err = e.Award(externalUserID, models.BadgeWaveChampion, models.BadgeKindAchievement)
	}
	return err
}

// CheckWaveInfluencer: a single authored post with 100 helpful votes.
func (e *BadgeEngine) CheckWaveInfluencer(ctx context.Context, externalUserID string) error {
	if e.Forum == nil {
		return nil
	}
	votes, err := e.Forum.MaxPostVotes(ctx, externalUserID)
	if err != nil {
		return err
	}
	if votes >= waveInfluencerVotes {
		_, err = e.Award(externalUserID, models.BadgeWaveInfluencer, models.BadgeKindAchievement)
	}
	return err
}

// CheckTrending: a single authored post with 100 replies.
func (e *BadgeEngine) CheckTrending(ctx context.Context, externalUserID string) error {
	if e.Forum == nil {
		return nil
	}
	replies, err := e.Forum.MaxPostReplies(ctx, externalUserID)
	if err != nil {
		return err
	}
	if replies >= trendingReplies {
		_, err = e.Award(externalUserID, models.BadgeTrending, models.BadgeKindAchievement)
	}
	return err
}

// CheckAll runs every predicate once. Used for on-demand re-validation when
// the user requests their badge list; individual predicate failures are
// logged and do not stop the rest.
func (e *BadgeEngine) CheckAll(ctx context.Context, externalUserID string) {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"point_badges", func() error { return e.CheckPointBadges(externalUserID) }},
		{"first_step", func() error { return e.CheckFirstStep(externalUserID) }},
		{"consistent", func() error { return e.CheckConsistent(externalUserID) }},
		{"daily_grinder", func() error { return e.CheckDailyGrinder(externalUserID) }},
		{"goal_setter", func() error { return e.CheckGoalSetter(externalUserID) }},
		{"expert", func() error { return e.CheckExpert(ctx, externalUserID) }},
		{"wave_champion", func() error { return e.CheckWaveChampion(externalUserID) }},
		{"wave_influencer", func() error { return e.CheckWaveInfluencer(ctx, externalUserID) }},
		{"trending", func() error { return e.CheckTrending(ctx, externalUserID) }},
	}
	for _, check := range checks {
		if err := check.fn(); err != nil {
			log.Printf("⚠️ [BADGES] %s check failed for %s: %v", check.name, externalUserID, err)
		}
	}
}

// UserBadgeView is the badge list returned to clients, split by kind and
// paired with the static definitions so the frontend can render names/icons.
type UserBadgeView struct {
	Achievement []models.UserBadge     `json:"achievement"`
	Point       []models.UserBadge     `json:"point"`
	Definitions map[string]interface{} `json:"definitions"`
}

// GetUserBadges returns the user's badge rows grouped by kind.
func (e *BadgeEngine) GetUserBadges(externalUserID string) (*UserBadgeView, error) {
	var rows []models.UserBadge
	if err := e.DB.Where("external_user_id = ?", externalUserID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	view := &UserBadgeView{
		Achievement: []models.UserBadge{},
		Point:       []models.UserBadge{},
		Definitions: map[string]interface{}{
			"achievement": e.Achievements,
			"point":       e.PointBands,
		},
	}
	for _, row := range rows {
		if row.Kind == models.BadgeKindPoint {
			view.Point = append(view.Point, row)
		} else {
			view.Achievement = append(view.Achievement, row)
		}
	}
	return view, nil
}
