package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"eduwave-game-service/models"

	"gorm.io/gorm"
)

// Engagement event types accepted on the events endpoint. Sibling services
// (auth, courses, forum, tools) post these when the corresponding user action
// happens on their side.
const (
	EventLogin           = "login"
	EventCourseOpened    = "course_opened"
	EventCourseCompleted = "course_completed"
	EventLessonCompleted = "lesson_completed"
	EventToolUsed        = "tool_used"
	EventForumPost       = "forum_post"
	EventForumVote       = "forum_vote"
	EventForumReply      = "forum_reply"
)

// Tool ids with their own day-streak counters feeding the goal_setter badge.
const (
	ToolStudyPlanner = "study_planner"
	ToolAnalytics    = "analytics"
)

// Point awards for content-completion events.
const (
	LessonCompletionPoints = 5
	CourseCompletionPoints = 20
	ForumReplyPoints       = 1
)

// EngagementEvent is the payload posted by sibling services. UserID is the
// acting user; AuthorID carries the content author for forum vote/reply
// events, where the points go to the author rather than the actor.
type EngagementEvent struct {
	UserID   string `json:"user_id"`
	CourseID string `json:"course_id,omitempty"`
	ToolID   string `json:"tool_id,omitempty"`
	AuthorID string `json:"author_id,omitempty"`
	Delta    int    `json:"delta,omitempty"` // forum_vote: +1 vote, -1 unvote
}

// EngagementResult reports what the event changed, echoed back to the
// posting service.
type EngagementResult struct {
	Event         string `json:"event"`
	PointsAwarded int64  `json:"points_awarded"`
	PointsTotal   int64  `json:"points_total,omitempty"`
	LoginStreak   int    `json:"login_streak,omitempty"`
	ToolStreak    int    `json:"tool_streak,omitempty"`
}

// EngagementService ingests platform activity events and turns them into
// streak updates, point awards and badge checks. It is the only writer of the
// login and tool-usage streak columns.
type EngagementService struct {
	DB     *gorm.DB
	Ledger *PointsLedger
	Badges *BadgeEngine
	Now    func() time.Time
}

func NewEngagementService(db *gorm.DB, ledger *PointsLedger, badges *BadgeEngine) *EngagementService {
	return &EngagementService{DB: db, Ledger: ledger, Badges: badges, Now: time.Now}
}

// Handle dispatches one event. Unknown event types are a validation error so
// a misconfigured caller fails loudly instead of silently dropping activity.
func (s *EngagementService) Handle(ctx context.Context, eventType string, event EngagementEvent) (*EngagementResult, error) {
	if event.UserID == "" {
		return nil, NewValidationError("user_id", "user_id is required")
	}

	switch strings.ToLower(strings.TrimSpace(eventType)) {
	case EventLogin:
		return s.handleLogin(event)
	case EventCourseOpened:
		return s.handleCourseOpened(event)
	case EventCourseCompleted:
		return s.handleCourseCompleted(ctx, event)
	case EventLessonCompleted:
		return s.handleLessonCompleted(event)
	case EventToolUsed:
		return s.handleToolUsed(event)
	case EventForumPost:
		return s.handleForumPost(event)
	case EventForumVote:
		return s.handleForumVote(ctx, event)
	case EventForumReply:
		return s.handleForumReply(ctx, event)
	default:
		return nil, NewValidationError("type", "unknown event type: "+eventType)
	}
}

func (s *EngagementService) loadUser(externalUserID string) (*models.GameUser, error) {
	var user models.GameUser
	if err := s.DB.Where("external_user_id = ?", externalUserID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "user"}
		}
		return nil, err
	}
	return &user, nil
}

// sameCalendarDay compares wall-clock dates, not 24h windows.
func sameCalendarDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func isCalendarYesterday(last, now time.Time) bool {
	return sameCalendarDay(last, now.AddDate(0, 0, -1))
}

// advanceDayStreak applies the shared day-streak rule: a repeat on the same
// day leaves the streak alone, consecutive days extend it, any gap resets it
// to one.
func advanceDayStreak(streak int, last *time.Time, now time.Time) int {
	switch {
	case last == nil:
		return 1
	case sameCalendarDay(*last, now):
		return streak
	case isCalendarYesterday(*last, now):
		return streak + 1
	default:
		return 1
	}
}

func (s *EngagementService) handleLogin(event EngagementEvent) (*EngagementResult, error) {
	user, err := s.loadUser(event.UserID)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	streak := advanceDayStreak(user.LoginStreak, user.LastLoginDate, now)
	if err := s.DB.Model(&models.GameUser{}).
		Where("external_user_id = ?", event.UserID).
		Updates(map[string]interface{}{
			"login_streak":    streak,
			"last_login_date": now,
		}).Error; err != nil {
		return nil, err
	}

	if err := s.Badges.CheckConsistent(event.UserID); err != nil {
		log.Printf("⚠️ [EVENTS] consistent check failed for %s: %v", event.UserID, err)
	}
	return &EngagementResult{Event: EventLogin, LoginStreak: streak}, nil
}

func (s *EngagementService) handleCourseOpened(event EngagementEvent) (*EngagementResult, error) {
	if _, err := s.loadUser(event.UserID); err != nil {
		return nil, err
	}

	now := s.Now()
	if err := s.DB.Model(&models.GameUser{}).
		Where("external_user_id = ?", event.UserID).
		Update("last_course_opened_at", now).Error; err != nil {
		return nil, err
	}

	if err := s.Badges.CheckFirstStep(event.UserID); err != nil {
		log.Printf("⚠️ [EVENTS] first_step check failed for %s: %v", event.UserID, err)
	}
	return &EngagementResult{Event: EventCourseOpened}, nil
}

func (s *EngagementService) handleCourseCompleted(ctx context.Context, event EngagementEvent) (*EngagementResult, error) {
	total, err := s.Ledger.Adjust(event.UserID, CourseCompletionPoints)
	if err != nil {
		return nil, err
	}
	log.Printf("📚 Course completed: %s earned %d points", event.UserID, CourseCompletionPoints)

	if event.CourseID != "" {
		if err := s.Badges.CheckQuickLearner(ctx, event.UserID, event.CourseID); err != nil {
			log.Printf("⚠️ [EVENTS] quick_learner check failed for %s: %v", event.UserID, err)
		}
	}
	if err := s.Badges.CheckExpert(ctx, event.UserID); err != nil {
		log.Printf("⚠️ [EVENTS] expert check failed for %s: %v", event.UserID, err)
	}
	return &EngagementResult{
		Event:         EventCourseCompleted,
		PointsAwarded: CourseCompletionPoints,
		PointsTotal:   total,
	}, nil
}

func (s *EngagementService) handleLessonCompleted(event EngagementEvent) (*EngagementResult, error) {
	total, err := s.Ledger.Adjust(event.UserID, LessonCompletionPoints)
	if err != nil {
		return nil, err
	}

	if err := s.Badges.CheckFirstStep(event.UserID); err != nil {
		log.Printf("⚠️ [EVENTS] first_step check failed for %s: %v", event.UserID, err)
	}
	return &EngagementResult{
		Event:         EventLessonCompleted,
		PointsAwarded: LessonCompletionPoints,
		PointsTotal:   total,
	}, nil
}

func (s *EngagementService) handleToolUsed(event EngagementEvent) (*EngagementResult, error) {
	user, err := s.loadUser(event.UserID)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	streak := advanceDayStreak(user.ConsecutiveToolDays, user.LastToolUsedAt, now)
	updates := map[string]interface{}{
		"consecutive_tool_days": streak,
		"last_tool_used_at":     now,
	}

	// The planner and analytics tools keep their own day streaks for the
	// goal_setter badge.
	switch event.ToolID {
	case ToolStudyPlanner:
		updates["study_planner_days"] = advanceDayStreak(user.StudyPlannerDays, user.LastPlannerDate, now)
		updates["last_planner_date"] = now
	case ToolAnalytics:
		updates["analytics_days"] = advanceDayStreak(user.AnalyticsDays, user.LastAnalyticsDate, now)
		updates["last_analytics_date"] = now
	}

	if err := s.DB.Model(&models.GameUser{}).
		Where("external_user_id = ?", event.UserID).
		Updates(updates).Error; err != nil {
		return nil, err
	}

	for name, check := range map[string]func(string) error{
		"daily_grinder": s.Badges.CheckDailyGrinder,
		"goal_setter":   s.Badges.CheckGoalSetter,
		"first_step":    s.Badges.CheckFirstStep,
	} {
		if err := check(event.UserID); err != nil {
			log.Printf("⚠️ [EVENTS] %s check failed for %s: %v", name, event.UserID, err)
		}
	}
	return &EngagementResult{Event: EventToolUsed, ToolStreak: streak}, nil
}

func (s *EngagementService) handleForumPost(event EngagementEvent) (*EngagementResult, error) {
	if _, err := s.loadUser(event.UserID); err != nil {
		return nil, err
	}

	if err := s.DB.Model(&models.GameUser{}).
		Where("external_user_id = ?", event.UserID).
		Update("forum_posts", gorm.Expr("forum_posts + 1")).Error; err != nil {
		return nil, err
	}

	if err := s.Badges.CheckFirstStep(event.UserID); err != nil {
		log.Printf("⚠️ [EVENTS] first_step check failed for %s: %v", event.UserID, err)
	}
	return &EngagementResult{Event: EventForumPost}, nil
}

// handleForumVote credits (or debits, on unvote) the post author, not the
// voter. Delta is normalized to ±1 whatever the caller sends.
func (s *EngagementService) handleForumVote(ctx context.Context, event EngagementEvent) (*EngagementResult, error) {
	author := event.AuthorID
	if author == "" {
		return nil, NewValidationError("author_id", "author_id is required for forum_vote")
	}
	delta := int64(1)
	if event.Delta < 0 {
		delta = -1
	}

	total, err := s.Ledger.Adjust(author, delta)
	if err != nil {
		return nil, err
	}

	// Mirror the helpful-vote counter, never below zero.
	expr := gorm.Expr("forum_helpful_votes + 1")
	if delta < 0 {
		expr = gorm.Expr("CASE WHEN forum_helpful_votes > 0 THEN forum_helpful_votes - 1 ELSE 0 END")
	}
	if err := s.DB.Model(&models.GameUser{}).
		Where("external_user_id = ?", author).
		Update("forum_helpful_votes", expr).Error; err != nil {
		return nil, err
	}

	if delta > 0 {
		if err := s.Badges.CheckWaveInfluencer(ctx, author); err != nil {
			log.Printf("⚠️ [EVENTS] wave_influencer check failed for %s: %v", author, err)
		}
	}
	return &EngagementResult{Event: EventForumVote, PointsAwarded: delta, PointsTotal: total}, nil
}

// handleForumReply pays the post author for attracting a reply.
func (s *EngagementService) handleForumReply(ctx context.Context, event EngagementEvent) (*EngagementResult, error) {
	author := event.AuthorID
	if author == "" {
		return nil, NewValidationError("author_id", "author_id is required for forum_reply")
	}

	total, err := s.Ledger.Adjust(author, ForumReplyPoints)
	if err != nil {
		return nil, err
	}

	if err := s.Badges.CheckTrending(ctx, author); err != nil {
		log.Printf("⚠️ [EVENTS] trending check failed for %s: %v", author, err)
	}
	return &EngagementResult{Event: EventForumReply, PointsAwarded: ForumReplyPoints, PointsTotal: total}, nil
}
