package services

// Point values for duel outcomes.
const (
	DuelWinPoints  = 5
	DuelLosePoints = 2
	DuelDrawPoints = 2
)

// DuelOutcome is the resolved result for one side of a completed duel.
type DuelOutcome struct {
	UserID      string
	Points      int64
	Won         bool // counts toward gamesWon (true for both sides on a draw)
	StreakDelta int  // +1 extends the streak, 0 leaves it, -1 resets it to zero
}

// DuelResolution is the full result of score resolution.
type DuelResolution struct {
	WinnerID string // empty on a draw
	Draw     bool
	Host     DuelOutcome
	Opponent DuelOutcome
}

// ResolveScores determines winner, loser and point deltas once both scores
// are recorded. A draw pays both sides the loser value and credits both with
// a win; that asymmetry matches the platform's documented behavior and is
// pinned by tests, so it must not be "fixed" here. Streaks only move on a
// decisive result: the winner extends, the loser resets, a draw leaves both.
func ResolveScores(hostID, opponentID string, hostScore, opponentScore int64) DuelResolution {
	switch {
	case hostScore > opponentScore:
		return DuelResolution{
			WinnerID: hostID,
			Host:     DuelOutcome{UserID: hostID, Points: DuelWinPoints, Won: true, StreakDelta: 1},
			Opponent: DuelOutcome{UserID: opponentID, Points: DuelLosePoints, StreakDelta: -1},
		}
	case opponentScore > hostScore:
		return DuelResolution{
			WinnerID: opponentID,
			Host:     DuelOutcome{UserID: hostID, Points: DuelLosePoints, StreakDelta: -1},
			Opponent: DuelOutcome{UserID: opponentID, Points: DuelWinPoints, Won: true, StreakDelta: 1},
		}
	default:
		return DuelResolution{
			Draw:     true,
			Host:     DuelOutcome{UserID: hostID, Points: DuelDrawPoints, Won: true},
			Opponent: DuelOutcome{UserID: opponentID, Points: DuelDrawPoints, Won: true},
		}
	}
}
