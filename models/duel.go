package models

import "time"

// Duel session statuses. Waiting is the initial state; completed, expired,
// cancelled and forfeited are terminal.
const (
	DuelStatusWaiting   = "waiting"
	DuelStatusLocked    = "locked"
	DuelStatusStarted   = "started"
	DuelStatusCompleted = "completed"
	DuelStatusExpired   = "expired"
	DuelStatusCancelled = "cancelled"
	DuelStatusForfeited = "forfeited"
)

// DuelKeyTTL is how long a freshly created duel key stays joinable.
const DuelKeyTTL = 30 * time.Minute

// DuelSession records a single two-player quiz duel from creation to a
// terminal state. The opponent slot is claimed with a conditional update so
// two concurrent joiners can never both succeed.
type DuelSession struct {
	ID      string `gorm:"primaryKey;type:uuid" json:"id"`
	DuelKey string `gorm:"uniqueIndex;not null" json:"duel_key"` // 6-char shareable join code

	HostID       string  `gorm:"index;not null" json:"host_id"`
	HostName     string  `gorm:"not null" json:"host_name"`
	OpponentID   *string `gorm:"index" json:"opponent_id,omitempty"`
	OpponentName *string `json:"opponent_name,omitempty"`

	Topic        string `gorm:"not null" json:"topic"`
	TopicSlug    string `gorm:"index" json:"topic_slug"`
	NumQuestions int    `gorm:"not null" json:"num_questions"`

	Status string `gorm:"type:varchar(16);default:'waiting';index:idx_duel_status_created" json:"status"`

	// Score 0 doubles as "not submitted yet"; a genuine zero score cannot be
	// told apart from an absent one. Carried over from the legacy backend.
	HostScore     int64 `gorm:"default:0" json:"host_score"`
	OpponentScore int64 `gorm:"default:0" json:"opponent_score"`

	ExpiresAt   time.Time  `gorm:"index;not null" json:"expires_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime;index:idx_duel_status_created,sort:desc"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// Terminal reports whether the session can no longer change state.
func (d *DuelSession) Terminal() bool {
	switch d.Status {
	case DuelStatusCompleted, DuelStatusExpired, DuelStatusCancelled, DuelStatusForfeited:
		return true
	}
	return false
}

// IsParticipant reports whether the given user is the host or the opponent.
func (d *DuelSession) IsParticipant(externalUserID string) bool {
	if d.HostID == externalUserID {
		return true
	}
	return d.OpponentID != nil && *d.OpponentID == externalUserID
}
