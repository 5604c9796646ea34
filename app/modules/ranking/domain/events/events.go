package rankingevents

import "time"

// Stream name
const RankingStreamName = "ranking"

// Ranking events
const (
	ScoreUpdatedSubject       = "ranking.score.updated"
	ClanCaptureChangedSubject = "ranking.clan.capture.changed"
)

// ScoreUpdatedEvent is published after a submitted score has been ranked.
type ScoreUpdatedEvent struct {
	ScoreID       int64     `json:"score_id"`
	PlayerID      string    `json:"player_id"`
	LeaderboardID string    `json:"leaderboard_id"`
	Context       string    `json:"context"`
	ModifiedScore int       `json:"modified_score"`
	Accuracy      float64   `json:"accuracy"`
	PP            float64   `json:"pp"`
	Rank          int       `json:"rank"`
	PlayerPP      float64   `json:"player_pp"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// ClanCaptureChangedEvent is published when a leaderboard changes captor.
type ClanCaptureChangedEvent struct {
	LeaderboardID    string    `json:"leaderboard_id"`
	PreviousCaptorID *string   `json:"previous_captor_id,omitempty"`
	CurrentCaptorID  *string   `json:"current_captor_id,omitempty"`
	Description      string    `json:"description"`
	OccurredAt       time.Time `json:"occurred_at"`
}
