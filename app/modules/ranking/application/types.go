package rankingservice

import rankingdomain "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/domain"

// Settings tunes batch processing.
type Settings struct {
	// PageSize is the number of leaderboards or players loaded per page.
	PageSize int
	// FlushThreshold is the number of dirty fields that triggers a chunk commit.
	FlushThreshold int
	// LeaderboardWorkers bounds concurrent leaderboard computations.
	LeaderboardWorkers int
	// PlayerWorkers bounds concurrent player aggregations.
	PlayerWorkers int
	// ClanWorkers bounds concurrent clan aggregate updates.
	ClanWorkers int
}

// DefaultSettings returns the production defaults.
func DefaultSettings() Settings {
	return Settings{
		PageSize:           1000,
		FlushThreshold:     5000,
		LeaderboardWorkers: 20,
		PlayerWorkers:      20,
		ClanWorkers:        8,
	}
}

func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.PageSize <= 0 {
		s.PageSize = d.PageSize
	}
	if s.FlushThreshold <= 0 {
		s.FlushThreshold = d.FlushThreshold
	}
	if s.LeaderboardWorkers <= 0 {
		s.LeaderboardWorkers = d.LeaderboardWorkers
	}
	if s.PlayerWorkers <= 0 {
		s.PlayerWorkers = d.PlayerWorkers
	}
	if s.ClanWorkers <= 0 {
		s.ClanWorkers = d.ClanWorkers
	}
	return s
}

// RefreshOptions selects what a leaderboard refresh recomputes.
type RefreshOptions struct {
	// Contexts to process. Empty means every context.
	Contexts []rankingdomain.Context
	// RanksOnly skips normalization and pp, re-ranking on stored values.
	RanksOnly bool
	// SkipClans skips the clan follow-up pass over touched leaderboards.
	SkipClans bool
}

func (o RefreshOptions) contexts() []rankingdomain.Context {
	if len(o.Contexts) == 0 {
		return rankingdomain.AllContexts
	}
	return o.Contexts
}

// BatchReport is the best-effort accounting of a run. Callers must not rely
// on it for per-item status.
type BatchReport struct {
	Leaderboards    int  `json:"leaderboards"`
	Players         int  `json:"players"`
	Clans           int  `json:"clans"`
	ScoresWritten   int  `json:"scores_written"`
	PlayersWritten  int  `json:"players_written"`
	CommittedChunks int  `json:"committed_chunks"`
	FailedChunks    int  `json:"failed_chunks"`
	FailedRows      int  `json:"failed_rows"`
	SkippedItems    int  `json:"skipped_items"`
	CaptureChanges  int  `json:"capture_changes"`
	Cancelled       bool `json:"cancelled"`
}

// ContextOutcome is a processed score's standing in one context.
type ContextOutcome struct {
	Context       rankingdomain.Context `json:"context"`
	ModifiedScore int                   `json:"modified_score"`
	Accuracy      float64               `json:"accuracy"`
	PP            float64               `json:"pp"`
	Rank          int                   `json:"rank"`
	PlayerPP      float64               `json:"player_pp"`
}

// ScoreOutcome is the result of processing one submitted score.
type ScoreOutcome struct {
	ScoreID       int64            `json:"score_id"`
	PlayerID      string           `json:"player_id"`
	LeaderboardID string           `json:"leaderboard_id"`
	Contexts      []ContextOutcome `json:"contexts"`
}
