package services

import (
	"context"
	"testing"
	"time"

	"eduwave-game-service/models"
)

// fakeForum and fakeCourses stand in for the forum/course service clients.
type fakeForum struct {
	votes   int
	replies int
}

func (f *fakeForum) MaxPostVotes(context.Context, string) (int, error)   { return f.votes, nil }
func (f *fakeForum) MaxPostReplies(context.Context, string) (int, error) { return f.replies, nil }

type fakeCourses struct {
	completed int
	first     time.Time
}

func (f *fakeCourses) CompletedCourses(context.Context, string) (int, error) { return f.completed, nil }
func (f *fakeCourses) FirstInteraction(context.Context, string, string) (time.Time, error) {
	return f.first, nil
}

func TestAwardIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	engine := newTestBadgeEngine(db)
	clock, current := fixedClock(time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC))
	engine.Now = clock

	newly, err := engine.Award("u1", models.BadgeWaveRider, models.BadgeKindAchievement)
	if err != nil {
		t.Fatalf("first Award: %v", err)
	}
	if !newly {
		t.Fatal("first Award should report newly earned")
	}

	var first models.UserBadge
	if err := db.Where("external_user_id = ? AND badge_id = ?", "u1", models.BadgeWaveRider).First(&first).Error; err != nil {
		t.Fatalf("load badge: %v", err)
	}

	// Award again a day later; earned_at must not move.
	*current = current.AddDate(0, 0, 1)
	newly, err = engine.Award("u1", models.BadgeWaveRider, models.BadgeKindAchievement)
	if err != nil {
		t.Fatalf("second Award: %v", err)
	}
	if newly {
		t.Error("second Award should be a no-op")
	}

	var second models.UserBadge
	if err := db.Where("external_user_id = ? AND badge_id = ?", "u1", models.BadgeWaveRider).First(&second).Error; err != nil {
		t.Fatalf("reload badge: %v", err)
	}
	if !second.Earned {
		t.Error("badge should stay earned")
	}
	if second.EarnedAt == nil || !second.EarnedAt.Equal(*first.EarnedAt) {
		t.Errorf("EarnedAt changed on re-award: %v → %v", first.EarnedAt, second.EarnedAt)
	}
}

func TestCheckPointBadgesBanding(t *testing.T) {
	tests := []struct {
		name       string
		points     int64
		wantEarned []string
	}{
		{"below first band", 999, nil},
		{"exact bronze threshold", 1000, []string{"bronze"}},
		{"top of bronze band", 4999, []string{"bronze"}},
		{"exact silver threshold", 5000, []string{"silver"}},
		{"legend", 100000, []string{"legend"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newTestDB(t)
			engine := newTestBadgeEngine(db)
			createTestUser(t, db, "u1", "Amina", tt.points)

			if err := engine.CheckPointBadges("u1"); err != nil {
				t.Fatalf("CheckPointBadges: %v", err)
			}

			view, err := engine.GetUserBadges("u1")
			if err != nil {
				t.Fatalf("GetUserBadges: %v", err)
			}
			var earned []string
			for _, b := range view.Point {
				if b.Earned {
					earned = append(earned, b.BadgeID)
				}
			}
			if len(earned) != len(tt.wantEarned) {
				t.Fatalf("earned = %v, want %v", earned, tt.wantEarned)
			}
			for i := range earned {
				if earned[i] != tt.wantEarned[i] {
					t.Errorf("earned = %v, want %v", earned, tt.wantEarned)
				}
			}
		})
	}
}

func TestPointBadgesNeverRevoked(t *testing.T) {
	db := newTestDB(t)
	engine := newTestBadgeEngine(db)
	user := createTestUser(t, db, "u1", "Amina", 1200)

	if err := engine.CheckPointBadges("u1"); err != nil {
		t.Fatalf("CheckPointBadges: %v", err)
	}

	// Points drop back below the band; bronze stays earned.
	if err := db.Model(user).Update("points", 50).Error; err != nil {
		t.Fatalf("drop points: %v", err)
	}
	if err := engine.CheckPointBadges("u1"); err != nil {
		t.Fatalf("CheckPointBadges after drop: %v", err)
	}

	var badge models.UserBadge
	if err := db.Where("external_user_id = ? AND badge_id = ?", "u1", "bronze").First(&badge).Error; err != nil {
		t.Fatalf("load bronze: %v", err)
	}
	if !badge.Earned {
		t.Error("bronze should remain earned after points drop")
	}
}

func TestCheckFirstStepProgress(t *testing.T) {
	db := newTestDB(t)
	engine := newTestBadgeEngine(db)
	user := createTestUser(t, db, "u1", "Amina", 0)

	if err := engine.CheckFirstStep("u1"); err != nil {
		t.Fatalf("CheckFirstStep: %v", err)
	}
	var badge models.UserBadge
	if err := db.Where("external_user_id = ? AND badge_id = ?", "u1", models.BadgeFirstStep).First(&badge).Error; err != nil {
		t.Fatalf("load first_step: %v", err)
	}
	if badge.Earned || badge.Progress != 0 {
		t.Fatalf("fresh user: earned=%v progress=%d, want false/0", badge.Earned, badge.Progress)
	}

	// Tick the three markers one at a time.
	now := time.Now()
	if err := db.Model(user).Update("last_course_opened_at", now).Error; err != nil {
		t.Fatal(err)
	}
	if err := engine.CheckFirstStep("u1"); err != nil {
		t.Fatal(err)
	}
	db.Where("external_user_id = ? AND badge_id = ?", "u1", models.BadgeFirstStep).First(&badge)
	if badge.Earned || badge.Progress != 1 {
		t.Fatalf("one marker: earned=%v progress=%d, want false/1", badge.Earned, badge.Progress)
	}

	if err := db.Model(user).Updates(map[string]interface{}{
		"last_tool_used_at": now,
		"forum_posts":       1,
	}).Error; err != nil {
		t.Fatal(err)
	}
	if err := engine.CheckFirstStep("u1"); err != nil {
		t.Fatal(err)
	}
	db.Where("external_user_id = ? AND badge_id = ?", "u1", models.BadgeFirstStep).First(&badge)
	if !badge.Earned || badge.Progress != 3 {
		t.Fatalf("all markers: earned=%v progress=%d, want true/3", badge.Earned, badge.Progress)
	}
}

func TestCheckWaveRiderThreshold(t *testing.T) {
	db := newTestDB(t)
	engine := newTestBadgeEngine(db)

	if err := engine.CheckWaveRider("u1", 4); err != nil {
		t.Fatalf("CheckWaveRider(4): %v", err)
	}
	var count int64
	db.Model(&models.UserBadge{}).Where("external_user_id = ?", "u1").Count(&count)
	if count != 0 {
		t.Fatal("streak of 4 should not award wave_rider")
	}

	if err := engine.CheckWaveRider("u1", 5); err != nil {
		t.Fatalf("CheckWaveRider(5): %v", err)
	}
	var badge models.UserBadge
	if err := db.Where("external_user_id = ? AND badge_id = ?", "u1", models.BadgeWaveRider).First(&badge).Error; err != nil {
		t.Fatalf("load wave_rider: %v", err)
	}
	if !badge.Earned {
		t.Error("streak of 5 should award wave_rider")
	}
}

func TestCheckWaveChampionTopThree(t *testing.T) {
	db := newTestDB(t)
	engine := newTestBadgeEngine(db)
	createTestUser(t, db, "u1", "Amina", 500)
	createTestUser(t, db, "u2", "Bilal", 400)
	createTestUser(t, db, "u3", "Chidi", 300)
	createTestUser(t, db, "u4", "Dana", 200)

	if err := engine.CheckWaveChampion("u3"); err != nil {
		t.Fatalf("CheckWaveChampion rank 3: %v", err)
	}
	var badge models.UserBadge
	if err := db.Where("external_user_id = ? AND badge_id = ?", "u3", models.BadgeWaveChampion).First(&badge).Error; err != nil || !badge.Earned {
		t.Errorf("rank 3 should earn wave_champion (err=%v)", err)
	}

	if err := engine.CheckWaveChampion("u4"); err != nil {
		t.Fatalf("CheckWaveChampion rank 4: %v", err)
	}
	var count int64
	db.Model(&models.UserBadge{}).
		Where("external_user_id = ? AND badge_id = ? AND earned = ?", "u4", models.BadgeWaveChampion, true).
		Count(&count)
	if count != 0 {
		t.Error("rank 4 should not earn wave_champion")
	}
}

func TestRemoteDataPredicates(t *testing.T) {
	ctx := context.Background()

	t.Run("expert needs five completed courses", func(t *testing.T) {
		db := newTestDB(t)
		engine := newTestBadgeEngine(db)
		engine.Courses = &fakeCourses{completed: 4}

		if err := engine.CheckExpert(ctx, "u1"); err != nil {
			t.Fatal(err)
		}
		var badge models.UserBadge
		db.Where("external_user_id = ? AND badge_id = ?", "u1", models.BadgeExpert).First(&badge)
		if badge.Earned || badge.Progress != 4 {
			t.Errorf("4 courses: earned=%v progress=%d, want false/4", badge.Earned, badge.Progress)
		}

		engine.Courses = &fakeCourses{completed: 5}
		if err := engine.CheckExpert(ctx, "u1"); err != nil {
			t.Fatal(err)
		}
		db.Where("external_user_id = ? AND badge_id = ?", "u1", models.BadgeExpert).First(&badge)
		if !badge.Earned {
			t.Error("5 courses should earn expert")
		}
	})

	t.Run("quick learner within one day of first interaction", func(t *testing.T) {
		db := newTestDB(t)
		engine := newTestBadgeEngine(db)
		now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
		engine.Now = func() time.Time { return now }

		engine.Courses = &fakeCourses{first: now.Add(-25 * time.Hour)}
		if err := engine.CheckQuickLearner(ctx, "u1", "c1"); err != nil {
			t.Fatal(err)
		}
		var count int64
		db.Model(&models.UserBadge{}).Where("external_user_id = ? AND earned = ?", "u1", true).Count(&count)
		if count != 0 {
			t.Error("25h completion should not earn quick_learner")
		}

		engine.Courses = &fakeCourses{first: now.Add(-23 * time.Hour)}
		if err := engine.CheckQuickLearner(ctx, "u1", "c1"); err != nil {
			t.Fatal(err)
		}
		var badge models.UserBadge
		db.Where("external_user_id = ? AND badge_id = ?", "u1", models.BadgeQuickLearner).First(&badge)
		if !badge.Earned {
			t.Error("23h completion should earn quick_learner")
		}
	})

	t.Run("influencer and trending at 100", func(t *testing.T) {
		db := newTestDB(t)
		engine := newTestBadgeEngine(db)
		engine.Forum = &fakeForum{votes: 100, replies: 99}

		if err := engine.CheckWaveInfluencer(ctx, "u1"); err != nil {
			t.Fatal(err)
		}
		if err := engine.CheckTrending(ctx, "u1"); err != nil {
			t.Fatal(err)
		}

		var badge models.UserBadge
		db.Where("external_user_id = ? AND badge_id = ?", "u1", models.BadgeWaveInfluencer).First(&badge)
		if !badge.Earned {
			t.Error("100 votes should earn wave_influencer")
		}
		var count int64
		db.Model(&models.UserBadge{}).
			Where("external_user_id = ? AND badge_id = ? AND earned = ?", "u1", models.BadgeTrending, true).
			Count(&count)
		if count != 0 {
			t.Error("99 replies should not earn trending")
		}
	})
}

func TestGetUserBadgesGroupsByKind(t *testing.T) {
	db := newTestDB(t)
	engine := newTestBadgeEngine(db)

	if _, err := engine.Award("u1", models.BadgeExpert, models.BadgeKindAchievement); err != nil {
		t.Fatal(err)
	}
	if _, err := engine.Award("u1", "bronze", models.BadgeKindPoint); err != nil {
		t.Fatal(err)
	}

	view, err := engine.GetUserBadges("u1")
	if err != nil {
		t.Fatalf("GetUserBadges: %v", err)
	}
	if len(view.Achievement) != 1 || view.Achievement[0].BadgeID != models.BadgeExpert {
		t.Errorf("Achievement = %+v, want [expert]", view.Achievement)
	}
	if len(view.Point) != 1 || view.Point[0].BadgeID != "bronze" {
		t.Errorf("Point = %+v, want [bronze]", view.Point)
	}
}
