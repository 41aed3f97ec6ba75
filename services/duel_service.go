package services

import (
	"errors"
	"fmt"
	"log"
	"math"
	"math/rand"
	"strings"
	"time"

	"eduwave-game-service/models"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

const (
	duelKeyChars     = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	duelKeyLength    = 6
	maxKeyAttempts   = 10
	minDuelQuestions = 1
	maxDuelQuestions = 50
)

// DuelService drives the duel session lifecycle: create, join (atomic
// opponent claim), start, submit, cancel, forfeit, plus the per-user game
// stats view. Expiry is enforced by timestamp comparison on read; the gocron
// sweep is hygiene only.
type DuelService struct {
	DB          *gorm.DB
	RateLimits  *RateLimitTracker
	Ledger      *PointsLedger
	Badges      *BadgeEngine
	Now         func() time.Time
	GenerateKey func() string
}

func NewDuelService(db *gorm.DB, limits *RateLimitTracker, ledger *PointsLedger, badges *BadgeEngine) *DuelService {
	return &DuelService{
		DB:          db,
		RateLimits:  limits,
		Ledger:      ledger,
		Badges:      badges,
		Now:         time.Now,
		GenerateKey: generateDuelKey,
	}
}

func generateDuelKey() string {
	b := make([]byte, duelKeyLength)
	for i := range b {
		b[i] = duelKeyChars[rand.Intn(len(duelKeyChars))]
	}
	return string(b)
}

// GetOrCreateStats lazily creates the stats record on a user's first duel
// interaction. Stats records are never deleted.
func (s *DuelService) GetOrCreateStats(externalUserID string) (*models.UserGameStats, error) {
	var stats models.UserGameStats
	err := s.DB.Where("external_user_id = ?", externalUserID).First(&stats).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		stats = models.UserGameStats{ExternalUserID: externalUserID}
		if err := s.DB.Create(&stats).Error; err != nil {
			return nil, err
		}
		return &stats, nil
	}
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (s *DuelService) user(externalUserID string) (*models.GameUser, error) {
	var user models.GameUser
	if err := s.DB.Where("external_user_id = ?", externalUserID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "user"}
		}
		return nil, err
	}
	return &user, nil
}

// CreateDuel checks the creator's quota, consumes it, and persists a waiting
// session under a fresh unique key.
func (s *DuelService) CreateDuel(externalUserID, topic string, numQuestions int) (*models.DuelSession, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, NewValidationError("topic", "topic is required")
	}
	if numQuestions < minDuelQuestions || numQuestions > maxDuelQuestions {
		return nil, NewValidationError("numQuestions", "number of questions must be between %d and %d", minDuelQuestions, maxDuelQuestions)
	}

	user, err := s.user(externalUserID)
	if err != nil {
		return nil, err
	}

	stats, err := s.GetOrCreateStats(externalUserID)
	if err != nil {
		return nil, err
	}
	if err := s.RateLimits.CheckAndConsume(stats, user.IsPremium()); err != nil {
		return nil, err
	}
	if err := s.DB.Save(stats).Error; err != nil {
		return nil, err
	}

	now := s.Now()
	duel := &models.DuelSession{
		HostID:       externalUserID,
		HostName:     user.FullName,
		Topic:        topic,
		TopicSlug:    slug.Make(topic),
		NumQuestions: numQuestions,
		Status:       models.DuelStatusWaiting,
		ExpiresAt:    now.Add(models.DuelKeyTTL),
	}

	// Collision probability is tiny (36^6 keyspace) but the retry loop is
	// bounded anyway; the unique index backstops a racing duplicate.
	for attempt := 0; attempt < maxKeyAttempts; attempt++ {
		duel.DuelKey = s.GenerateKey()
		err := s.DB.Create(duel).Error
		if err == nil {
			return duel, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("could not generate a unique duel key after %d attempts", maxKeyAttempts)
}

// findByKey loads a session and lazily flips a stale waiting session to
// expired before returning it.
func (s *DuelService) findByKey(duelKey string) (*models.DuelSession, error) {
	key := strings.ToUpper(strings.TrimSpace(duelKey))
	if key == "" {
		return nil, NewValidationError("duelKey", "duel key is required")
	}

	var duel models.DuelSession
	if err := s.DB.Where("duel_key = ?", key).First(&duel).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "duel"}
		}
		return nil, err
	}

	if duel.Status == models.DuelStatusWaiting && duel.ExpiresAt.Before(s.Now()) {
		// Lazy expiry: flip on observation. Conditional so a concurrent join
		// that already claimed the slot wins.
		res := s.DB.Model(&models.DuelSession{}).
			Where("id = ? AND status = ?", duel.ID, models.DuelStatusWaiting).
			Update("status", models.DuelStatusExpired)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 1 {
			duel.Status = models.DuelStatusExpired
		}
	}
	return &duel, nil
}

// GetDuelStatus returns the full session view for polling clients.
func (s *DuelService) GetDuelStatus(duelKey string) (*models.DuelSession, error) {
	return s.findByKey(duelKey)
}

// JoinDuel claims the opponent slot. The claim is a single conditional
// update — opponent still null AND status still waiting — so of two
// concurrent joiners exactly one succeeds; the loser's error is derived from
// a re-read after the failed update, never from a stale pre-check.
func (s *DuelService) JoinDuel(externalUserID, duelKey string) (*models.DuelSession, error) {
	duel, err := s.findByKey(duelKey)
	if err != nil {
		return nil, err
	}

	if duel.HostID == externalUserID {
		return nil, &ForbiddenError{Message: "you cannot join your own duel"}
	}
	if duel.Status == models.DuelStatusExpired {
		return nil, &ExpiredError{}
	}
	if duel.Status != models.DuelStatusWaiting {
		return nil, &StateConflictError{Status: duel.Status, Message: "duel is " + duel.Status}
	}

	joiner, err := s.user(externalUserID)
	if err != nil {
		return nil, err
	}

	res := s.DB.Model(&models.DuelSession{}).
		Where("id = ? AND status = ? AND opponent_id IS NULL", duel.ID, models.DuelStatusWaiting).
		Updates(map[string]interface{}{
			"opponent_id":   externalUserID,
			"opponent_name": joiner.FullName,
			"status":        models.DuelStatusLocked,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// Someone else got there first; report what actually happened.
		current, err := s.findByKey(duelKey)
		if err != nil {
			return nil, err
		}
		if current.OpponentID != nil {
			return nil, &StateConflictError{Status: current.Status, Message: "duel already has an opponent"}
		}
		if current.Status == models.DuelStatusExpired {
			return nil, &ExpiredError{}
		}
		return nil, &StateConflictError{Status: current.Status, Message: "duel is " + current.Status}
	}

	return s.findByKey(duelKey)
}

// StartDuel moves a locked session to started. Host only.
func (s *DuelService) StartDuel(externalUserID, duelKey string) (*models.DuelSession, error) {
	duel, err := s.findByKey(duelKey)
	if err != nil {
		return nil, err
	}
	if duel.HostID != externalUserID {
		return nil, &ForbiddenError{Message: "only the host can start the duel"}
	}
	if duel.Status != models.DuelStatusLocked {
		return nil, &StateConflictError{Status: duel.Status, Message: "duel is not ready to start"}
	}

	now := s.Now()
	res := s.DB.Model(&models.DuelSession{}).
		Where("id = ? AND status = ?", duel.ID, models.DuelStatusLocked).
		Updates(map[string]interface{}{"status": models.DuelStatusStarted, "started_at": now})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		current, err := s.findByKey(duelKey)
		if err != nil {
			return nil, err
		}
		return nil, &StateConflictError{Status: current.Status, Message: "duel is " + current.Status}
	}
	return s.findByKey(duelKey)
}

// CancelDuel cancels a still-waiting session. Host only; terminal.
func (s *DuelService) CancelDuel(externalUserID, duelKey string) error {
	duel, err := s.findByKey(duelKey)
	if err != nil {
		return err
	}
	if duel.HostID != externalUserID {
		return &ForbiddenError{Message: "only the host can cancel the duel"}
	}
	if duel.Status != models.DuelStatusWaiting {
		return &StateConflictError{Status: duel.Status, Message: "cannot cancel a duel that is " + duel.Status}
	}

	res := s.DB.Model(&models.DuelSession{}).
		Where("id = ? AND status = ?", duel.ID, models.DuelStatusWaiting).
		Update("status", models.DuelStatusCancelled)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		current, err := s.findByKey(duelKey)
		if err != nil {
			return err
		}
		return &StateConflictError{Status: current.Status, Message: "cannot cancel a duel that is " + current.Status}
	}
	return nil
}

// ForfeitDuel moves any non-terminal session to forfeited. Either
// participant may forfeit; no points are awarded to either side afterward.
func (s *DuelService) ForfeitDuel(externalUserID, duelKey string) error {
	duel, err := s.findByKey(duelKey)
	if err != nil {
		return err
	}
	if !duel.IsParticipant(externalUserID) {
		return &ForbiddenError{Message: "only a duel participant can forfeit"}
	}
	if duel.Terminal() {
		return &StateConflictError{Status: duel.Status, Message: "cannot forfeit a duel that is " + duel.Status}
	}

	res := s.DB.Model(&models.DuelSession{}).
		Where("id = ? AND status IN ?", duel.ID,
			[]string{models.DuelStatusWaiting, models.DuelStatusLocked, models.DuelStatusStarted}).
		Update("status", models.DuelStatusForfeited)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		current, err := s.findByKey(duelKey)
		if err != nil {
			return err
		}
		return &StateConflictError{Status: current.Status, Message: "cannot forfeit a duel that is " + current.Status}
	}
	log.Printf("🏳️ Duel %s forfeited by %s", duel.DuelKey, externalUserID)
	return nil
}

// SubmitResultResponse reports what a score submission did.
type SubmitResultResponse struct {
	Completed     bool   `json:"completed"`
	Forfeited     bool   `json:"forfeited,omitempty"`
	PointsAwarded int64  `json:"points_awarded"`
	Winner        string `json:"winner,omitempty"` // external user id; empty on draw or incomplete
	Draw          bool   `json:"draw,omitempty"`
	Message       string `json:"message,omitempty"`
}

// SubmitResult records a client-supplied score. Solo games only bump
// gamesPlayed. For duels, score 0 still means "not submitted" — a session
// completes only once both recorded scores are positive. A resubmission
// before completion overwrites the side's score (last write wins), matching
// the legacy backend.
func (s *DuelService) SubmitResult(externalUserID, duelKey string, score int64, isSolo bool) (*SubmitResultResponse, error) {
	if score < 0 {
		return nil, NewValidationError("score", "score cannot be negative")
	}

	if isSolo {
		stats, err := s.GetOrCreateStats(externalUserID)
		if err != nil {
			return nil, err
		}
		stats.GamesPlayed++
		if err := s.DB.Save(stats).Error; err != nil {
			return nil, err
		}
		return &SubmitResultResponse{Message: "solo game result saved"}, nil
	}

	if strings.TrimSpace(duelKey) == "" {
		return nil, NewValidationError("duelKey", "duel key is required for duel games")
	}

	duel, err := s.findByKey(duelKey)
	if err != nil {
		return nil, err
	}
	if duel.Status == models.DuelStatusForfeited {
		return &SubmitResultResponse{
			Forfeited: true,
			Message:   "duel was forfeited — no points awarded",
		}, nil
	}
	if !duel.IsParticipant(externalUserID) {
		return nil, &ForbiddenError{Message: "only a duel participant can submit a result"}
	}
	if duel.Status == models.DuelStatusCompleted || duel.Status == models.DuelStatusCancelled ||
		duel.Status == models.DuelStatusExpired {
		return nil, &StateConflictError{Status: duel.Status, Message: "duel is " + duel.Status}
	}

	scoreColumn := "opponent_score"
	if duel.HostID == externalUserID {
		scoreColumn = "host_score"
	}
	if err := s.DB.Model(&models.DuelSession{}).
		Where("id = ?", duel.ID).
		Update(scoreColumn, score).Error; err != nil {
		return nil, err
	}

	duel, err = s.findByKey(duelKey)
	if err != nil {
		return nil, err
	}
	if duel.HostScore <= 0 || duel.OpponentScore <= 0 {
		return &SubmitResultResponse{Message: "score recorded, waiting for opponent"}, nil
	}

	// Both scores are in. The conditional flip makes exactly one submitter
	// the resolver even if both land at once.
	now := s.Now()
	res := s.DB.Model(&models.DuelSession{}).
		Where("id = ? AND status NOT IN ?", duel.ID,
			[]string{models.DuelStatusCompleted, models.DuelStatusCancelled, models.DuelStatusExpired, models.DuelStatusForfeited}).
		Updates(map[string]interface{}{"status": models.DuelStatusCompleted, "completed_at": now})
	if res.Error != nil {
		return nil, res.Error
	}

	resolution := ResolveScores(duel.HostID, *duel.OpponentID, duel.HostScore, duel.OpponentScore)
	if res.RowsAffected == 1 {
		s.applyResolution(resolution)
	}

	submitter := resolution.Host
	if *duel.OpponentID == externalUserID {
		submitter = resolution.Opponent
	}
	return &SubmitResultResponse{
		Completed:     true,
		PointsAwarded: submitter.Points,
		Winner:        resolution.WinnerID,
		Draw:          resolution.Draw,
	}, nil
}

// applyResolution settles both sides of a completed duel. Each side is an
// independent atomic write; a failure mid-sequence leaves the other side to
// settle on a later read path rather than rolling anything back.
func (s *DuelService) applyResolution(resolution DuelResolution) {
	for _, outcome := range []DuelOutcome{resolution.Host, resolution.Opponent} {
		if err := s.applyOutcome(outcome); err != nil {
			log.Printf("❌ [DUEL] failed to settle outcome for %s: %v", outcome.UserID, err)
		}
	}
}

func (s *DuelService) applyOutcome(outcome DuelOutcome) error {
	stats, err := s.GetOrCreateStats(outcome.UserID)
	if err != nil {
		return err
	}

	// Counter mutations are UPDATE expressions so two duels completing at
	// once for the same user cannot lose an increment.
	updates := map[string]interface{}{
		"games_played":  gorm.Expr("games_played + 1"),
		"points_earned": gorm.Expr("points_earned + ?", outcome.Points),
	}
	if outcome.Won {
		updates["games_won"] = gorm.Expr("games_won + 1")
	}
	switch outcome.StreakDelta {
	case 1:
		updates["current_game_streak"] = gorm.Expr("current_game_streak + 1")
		updates["max_game_streak"] = gorm.Expr(
			"CASE WHEN current_game_streak + 1 > max_game_streak THEN current_game_streak + 1 ELSE max_game_streak END")
	case -1:
		updates["current_game_streak"] = 0
	}
	if err := s.DB.Model(&models.UserGameStats{}).
		Where("id = ?", stats.ID).
		Updates(updates).Error; err != nil {
		return err
	}

	// Points are part of the primary action and must not be dropped.
	if _, err := s.Ledger.Adjust(outcome.UserID, outcome.Points); err != nil {
		return err
	}

	// Streak badge is best-effort.
	if s.Badges != nil && outcome.StreakDelta == 1 {
		var current models.UserGameStats
		if err := s.DB.Where("id = ?", stats.ID).First(&current).Error; err != nil {
			return err
		}
		if err := s.Badges.CheckWaveRider(outcome.UserID, current.CurrentGameStreak); err != nil {
			log.Printf("⚠️ [DUEL] wave_rider check failed for %s: %v", outcome.UserID, err)
		}
	}
	return nil
}

// GameStatsView is the stats payload for the client dashboard.
type GameStatsView struct {
	GamesPlayed   int64 `json:"games_played"`
	GamesWon      int64 `json:"games_won"`
	WinRate       int   `json:"win_rate"`
	PointsEarned  int64 `json:"points_earned"`
	CurrentStreak int   `json:"current_game_streak"`
	MaxStreak     int   `json:"max_game_streak"`
	DuelsToday    int   `json:"duels_today"`
	DuelsThisWeek int   `json:"duels_this_week"`
	DailyLimit    int   `json:"daily_limit"`
	WeeklyLimit   int   `json:"weekly_limit"`
	IsPremium     bool  `json:"is_premium"`
}

// GetGameStats returns the user's duel statistics with rolling counters
// already reset for the current day/week.
func (s *DuelService) GetGameStats(externalUserID string) (*GameStatsView, error) {
	user, err := s.user(externalUserID)
	if err != nil {
		return nil, err
	}
	stats, err := s.GetOrCreateStats(externalUserID)
	if err != nil {
		return nil, err
	}

	s.RateLimits.ResetRollingCounters(stats)
	if err := s.DB.Save(stats).Error; err != nil {
		return nil, err
	}

	winRate := 0
	if stats.GamesPlayed > 0 {
		winRate = int(math.Round(float64(stats.GamesWon) / float64(stats.GamesPlayed) * 100))
	}

	daily, weekly := s.RateLimits.Limits(user.IsPremium())
	return &GameStatsView{
		GamesPlayed:   stats.GamesPlayed,
		GamesWon:      stats.GamesWon,
		WinRate:       winRate,
		PointsEarned:  stats.PointsEarned,
		CurrentStreak: stats.CurrentGameStreak,
		MaxStreak:     stats.MaxGameStreak,
		DuelsToday:    stats.DuelsToday,
		DuelsThisWeek: stats.DuelsThisWeek,
		DailyLimit:    daily,
		WeeklyLimit:   weekly,
		IsPremium:     user.IsPremium(),
	}, nil
}
