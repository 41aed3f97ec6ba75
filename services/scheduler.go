// services/scheduler.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"eduwave-game-service/models"
	"eduwave-game-service/utils"

	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

const snapshotLeaderboardSize = 100

// Scheduler runs the background housekeeping jobs: the duel-expiry sweep and
// the weekly leaderboard snapshot.
type Scheduler struct {
	DB          *gorm.DB
	Leaderboard *LeaderboardService
}

func NewScheduler(db *gorm.DB, leaderboard *LeaderboardService) *Scheduler {
	return &Scheduler{DB: db, Leaderboard: leaderboard}
}

func (s *Scheduler) Start() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	// Every minute: flip expired waiting duels. Reads already expire lazily;
	// the sweep keeps status queries and the table itself honest for duels
	// nobody ever looks at again.
	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			result := s.DB.Model(&models.DuelSession{}).
				Where("status = ? AND expires_at <= ?", models.DuelStatusWaiting, time.Now()).
				Update("status", models.DuelStatusExpired)
			if result.Error != nil {
				log.Printf("[Scheduler] expiry sweep DB error: %v", result.Error)
				return
			}
			if result.RowsAffected > 0 {
				log.Printf("⏰ Expired %d stale duel(s)", result.RowsAffected)
			}
		}),
	)

	// Monday just after midnight: archive last week's top 100 to R2.
	_, _ = sched.NewJob(
		gocron.WeeklyJob(1,
			gocron.NewWeekdays(time.Monday),
			gocron.NewAtTimes(gocron.NewAtTime(0, 5, 0)),
		),
		gocron.NewTask(s.snapshotLeaderboard),
	)
}

// snapshotLeaderboard serializes the current top of the leaderboard and ships
// it to R2, keyed by the ISO week that just ended.
func (s *Scheduler) snapshotLeaderboard() {
	if !utils.R2Enabled() {
		return
	}

	entries, err := s.Leaderboard.GetLeaderboard(snapshotLeaderboardSize, 0, false)
	if err != nil {
		log.Printf("[Scheduler] leaderboard snapshot query failed: %v", err)
		return
	}

	lastWeek := time.Now().AddDate(0, 0, -7)
	year, week := lastWeek.ISOWeek()
	snapshot := map[string]interface{}{
		"week":         fmt.Sprintf("%d-W%02d", year, week),
		"generated_at": time.Now().UTC(),
		"entries":      entries,
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		log.Printf("[Scheduler] leaderboard snapshot marshal failed: %v", err)
		return
	}

	key := fmt.Sprintf("leaderboards/%d-W%02d.json", year, week)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	url, err := utils.UploadBytesToR2(ctx, key, data, "application/json")
	if err != nil {
		log.Printf("[Scheduler] leaderboard snapshot upload failed: %v", err)
		return
	}
	log.Printf("📦 Archived weekly leaderboard snapshot: %s", url)
}
