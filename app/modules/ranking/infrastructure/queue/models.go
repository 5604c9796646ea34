package rankingqueue

import "github.com/riverqueue/river"

// QueueName is the dedicated river queue for ranking jobs.
const QueueName = "ranking"

// ProcessScoreJob ranks one newly submitted score.
type ProcessScoreJob struct {
	ScoreID int64 `json:"score_id"`
}

// Kind returns the job type identifier for River
func (ProcessScoreJob) Kind() string { return "ranking_process_score" }

// RefreshLeaderboardJob recomputes one leaderboard.
type RefreshLeaderboardJob struct {
	LeaderboardID string   `json:"leaderboard_id"`
	Contexts      []string `json:"contexts,omitempty"`
	RanksOnly     bool     `json:"ranks_only,omitempty"`
}

// Kind returns the job type identifier for River
func (RefreshLeaderboardJob) Kind() string { return "ranking_refresh_leaderboard" }

// RefreshAllLeaderboardsJob recomputes every leaderboard.
type RefreshAllLeaderboardsJob struct {
	Contexts  []string `json:"contexts,omitempty"`
	RanksOnly bool     `json:"ranks_only,omitempty"`
	SkipClans bool     `json:"skip_clans,omitempty"`
}

// Kind returns the job type identifier for River
func (RefreshAllLeaderboardsJob) Kind() string { return "ranking_refresh_all_leaderboards" }

// RefreshPlayersJob recomputes every player aggregate and the global ranks.
type RefreshPlayersJob struct {
	Contexts []string `json:"contexts,omitempty"`
}

// Kind returns the job type identifier for River
func (RefreshPlayersJob) Kind() string { return "ranking_refresh_players" }

// RefreshGlobalRanksJob reassigns global and country ranks.
type RefreshGlobalRanksJob struct {
	Contexts []string `json:"contexts,omitempty"`
}

// Kind returns the job type identifier for River
func (RefreshGlobalRanksJob) Kind() string { return "ranking_refresh_global_ranks" }

// RefreshClansJob re-ranks clans on every competitive leaderboard.
type RefreshClansJob struct{}

// Kind returns the job type identifier for River
func (RefreshClansJob) Kind() string { return "ranking_refresh_clans" }

// ClanMembershipJob reacts to a clan join, leave, kick, create or dissolve.
type ClanMembershipJob struct {
	ClanID string `json:"clan_id"`
}

// Kind returns the job type identifier for River
func (ClanMembershipJob) Kind() string { return "ranking_clan_membership" }

// NightlyRefreshJob runs the full recompute: leaderboards, players, then clans.
type NightlyRefreshJob struct{}

// Kind returns the job type identifier for River
func (NightlyRefreshJob) Kind() string { return "ranking_nightly_refresh" }

// InsertOpts keeps at most one nightly run queued.
func (NightlyRefreshJob) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:      QueueName,
		UniqueOpts: river.UniqueOpts{ByArgs: true},
	}
}

// EnqueueResult describes an inserted job.
type EnqueueResult struct {
	JobID     int64  `json:"job_id"`
	Kind      string `json:"kind"`
	Duplicate bool   `json:"duplicate"`
}
