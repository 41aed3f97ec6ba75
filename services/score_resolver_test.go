package services

import "testing"

func TestResolveScores(t *testing.T) {
	tests := []struct {
		name          string
		hostScore     int64
		opponentScore int64
		wantWinner    string
		wantDraw      bool
		wantHost      DuelOutcome
		wantOpponent  DuelOutcome
	}{
		{
			name:          "host wins",
			hostScore:     10,
			opponentScore: 7,
			wantWinner:    "host",
			wantHost:      DuelOutcome{UserID: "host", Points: 5, Won: true, StreakDelta: 1},
			wantOpponent:  DuelOutcome{UserID: "opp", Points: 2, Won: false, StreakDelta: -1},
		},
		{
			name:          "opponent wins",
			hostScore:     3,
			opponentScore: 9,
			wantWinner:    "opp",
			wantHost:      DuelOutcome{UserID: "host", Points: 2, Won: false, StreakDelta: -1},
			wantOpponent:  DuelOutcome{UserID: "opp", Points: 5, Won: true, StreakDelta: 1},
		},
		{
			// A draw pays the loser value to both sides yet credits both
			// with a win, and leaves streaks untouched.
			name:          "draw pays both and credits both wins",
			hostScore:     8,
			opponentScore: 8,
			wantDraw:      true,
			wantHost:      DuelOutcome{UserID: "host", Points: 2, Won: true, StreakDelta: 0},
			wantOpponent:  DuelOutcome{UserID: "opp", Points: 2, Won: true, StreakDelta: 0},
		},
		{
			name:          "narrow margin still decisive",
			hostScore:     1,
			opponentScore: 2,
			wantWinner:    "opp",
			wantHost:      DuelOutcome{UserID: "host", Points: 2, Won: false, StreakDelta: -1},
			wantOpponent:  DuelOutcome{UserID: "opp", Points: 5, Won: true, StreakDelta: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveScores("host", "opp", tt.hostScore, tt.opponentScore)
			if got.WinnerID != tt.wantWinner {
				t.Errorf("WinnerID = %q, want %q", got.WinnerID, tt.wantWinner)
			}
			if got.Draw != tt.wantDraw {
				t.Errorf("Draw = %v, want %v", got.Draw, tt.wantDraw)
			}
			if got.Host != tt.wantHost {
				t.Errorf("Host = %+v, want %+v", got.Host, tt.wantHost)
			}
			if got.Opponent != tt.wantOpponent {
				t.Errorf("Opponent = %+v, want %+v", got.Opponent, tt.wantOpponent)
			}
		})
	}
}
