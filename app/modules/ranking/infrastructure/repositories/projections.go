package rankingdb

import (
	rankingdomain "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/domain"
	"github.com/google/uuid"
)

// ScoreRow is the projection of a score needed to recompute and rank it on
// its leaderboard. RowID is the scores id in the General context and the
// extension id otherwise.
type ScoreRow struct {
	RowID         int64   `bun:"row_id"`
	ScoreID       int64   `bun:"score_id"`
	PlayerID      string  `bun:"player_id"`
	BaseScore     int     `bun:"base_score"`
	Modifiers     string  `bun:"modifiers"`
	Timepost      int64   `bun:"timepost"`
	Qualification bool    `bun:"qualification"`
	ModifiedScore int     `bun:"modified_score"`
	Accuracy      float64 `bun:"accuracy"`
	PP            float64 `bun:"pp"`
	AccPP         float64 `bun:"acc_pp"`
	PassPP        float64 `bun:"pass_pp"`
	TechPP        float64 `bun:"tech_pp"`
	BonusPP       float64 `bun:"bonus_pp"`
	Rank          int     `bun:"rank"`
	Priority      int     `bun:"priority"`
	Weight        float64 `bun:"weight"`
	// Excluded marks a banned row or one outside the context that still holds
	// ranking state to clear.
	Excluded bool `bun:"excluded"`
}

// Fields returns the row's current mutable fields.
func (r ScoreRow) Fields() ScoreFields {
	return ScoreFields{
		ModifiedScore: r.ModifiedScore,
		Accuracy:      r.Accuracy,
		PP:            r.PP,
		AccPP:         r.AccPP,
		PassPP:        r.PassPP,
		TechPP:        r.TechPP,
		BonusPP:       r.BonusPP,
		Rank:          r.Rank,
		Priority:      r.Priority,
		Weight:        r.Weight,
	}
}

// PlayerScoreRow is a player's score joined with its leaderboard status.
type PlayerScoreRow struct {
	RowID         int64                          `bun:"row_id"`
	LeaderboardID string                         `bun:"leaderboard_id"`
	Status        rankingdomain.DifficultyStatus `bun:"status"`
	Qualification bool                           `bun:"qualification"`
	ModifiedScore int                            `bun:"modified_score"`
	Accuracy      float64                        `bun:"accuracy"`
	PP            float64                        `bun:"pp"`
	AccPP         float64                        `bun:"acc_pp"`
	PassPP        float64                        `bun:"pass_pp"`
	TechPP        float64                        `bun:"tech_pp"`
	BonusPP       float64                        `bun:"bonus_pp"`
	Rank          int                            `bun:"rank"`
	Weight        float64                        `bun:"weight"`
	Timepost      int64                          `bun:"timepost"`
	Platform      string                         `bun:"platform"`
	HMD           string                         `bun:"hmd"`
}

// PlayerStandingRow is a player's aggregate pp and current ranks in one context.
type PlayerStandingRow struct {
	PlayerID    string  `bun:"player_id"`
	Country     string  `bun:"country"`
	PP          float64 `bun:"pp"`
	Rank        int     `bun:"rank"`
	CountryRank int     `bun:"country_rank"`
}

// ClanScoreRow is one eligible score on a leaderboard for one of the player's clans.
type ClanScoreRow struct {
	ScoreID       int64     `bun:"score_id"`
	PlayerID      string    `bun:"player_id"`
	ClanID        uuid.UUID `bun:"clan_id"`
	PP            float64   `bun:"pp"`
	Accuracy      float64   `bun:"accuracy"`
	Rank          int       `bun:"rank"`
	ModifiedScore int       `bun:"modified_score"`
}

// ClanMemberRow is a clan member's General context aggregate.
type ClanMemberRow struct {
	PlayerID        string  `bun:"player_id"`
	PP              float64 `bun:"pp"`
	Rank            int     `bun:"rank"`
	RankedAccuracy  float64 `bun:"ranked_accuracy"`
	RankedPlayCount int     `bun:"ranked_play_count"`
}
