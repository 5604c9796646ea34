package rankingdb

import (
	"time"

	rankingdomain "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/domain"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Score is one submission in the General context.
type Score struct {
	bun.BaseModel `bun:"table:scores,alias:s"`

	ID            int64   `bun:"id,pk,autoincrement"`
	PlayerID      string  `bun:"player_id,notnull"`
	LeaderboardID string  `bun:"leaderboard_id,notnull"`
	BaseScore     int     `bun:"base_score,notnull"`
	ModifiedScore int     `bun:"modified_score,notnull,default:0"`
	Accuracy      float64 `bun:"accuracy,notnull,default:0"`
	PP            float64 `bun:"pp,notnull,default:0"`
	AccPP         float64 `bun:"acc_pp,notnull,default:0"`
	PassPP        float64 `bun:"pass_pp,notnull,default:0"`
	TechPP        float64 `bun:"tech_pp,notnull,default:0"`
	BonusPP       float64 `bun:"bonus_pp,notnull,default:0"`
	Rank          int     `bun:"rank,notnull,default:0"`
	Priority      int     `bun:"priority,notnull,default:0"`
	Weight        float64 `bun:"weight,notnull,default:0"`
	Timepost      int64   `bun:"timepost,notnull"`
	Modifiers     string  `bun:"modifiers,notnull,default:''"`
	Platform      string  `bun:"platform,notnull,default:''"`
	HMD           string  `bun:"hmd,notnull,default:''"`
	MaxCombo      int     `bun:"max_combo,notnull,default:0"`
	FullCombo     bool    `bun:"full_combo,notnull,default:false"`

	Qualification  bool `bun:"qualification,notnull,default:false"`
	Banned         bool `bun:"banned,notnull,default:false"`
	IgnoreForStats bool `bun:"ignore_for_stats,notnull,default:false"`

	ValidContexts rankingdomain.Context `bun:"valid_contexts,notnull,default:2"`
}

// ScoreContextExtension shadows a score's ranking fields in a non-General context.
type ScoreContextExtension struct {
	bun.BaseModel `bun:"table:score_context_extensions,alias:e"`

	ID            int64                 `bun:"id,pk,autoincrement"`
	ScoreID       *int64                `bun:"score_id,unique:score_context"`
	Context       rankingdomain.Context `bun:"context,notnull,unique:score_context"`
	PlayerID      string                `bun:"player_id,notnull"`
	LeaderboardID string                `bun:"leaderboard_id,notnull"`
	BaseScore     int                   `bun:"base_score,notnull"`
	Modifiers     string                `bun:"modifiers,notnull,default:''"`
	Timepost      int64                 `bun:"timepost,notnull"`
	ModifiedScore int                   `bun:"modified_score,notnull,default:0"`
	Accuracy      float64               `bun:"accuracy,notnull,default:0"`
	PP            float64               `bun:"pp,notnull,default:0"`
	AccPP         float64               `bun:"acc_pp,notnull,default:0"`
	PassPP        float64               `bun:"pass_pp,notnull,default:0"`
	TechPP        float64               `bun:"tech_pp,notnull,default:0"`
	BonusPP       float64               `bun:"bonus_pp,notnull,default:0"`
	Rank          int                   `bun:"rank,notnull,default:0"`
	Priority      int                   `bun:"priority,notnull,default:0"`
	Weight        float64               `bun:"weight,notnull,default:0"`
	Qualification bool                  `bun:"qualification,notnull,default:false"`
	Banned        bool                  `bun:"banned,notnull,default:false"`
}

// Leaderboard is one (song, difficulty, mode) triple.
type Leaderboard struct {
	bun.BaseModel `bun:"table:leaderboards,alias:lb"`

	ID              string                         `bun:"id,pk"`
	SongID          string                         `bun:"song_id,notnull"`
	Difficulty      string                         `bun:"difficulty,notnull"`
	ModeName        string                         `bun:"mode_name,notnull,default:'Standard'"`
	Status          rankingdomain.DifficultyStatus `bun:"status,notnull,default:0"`
	MaxScore        int                            `bun:"max_score,notnull,default:0"`
	Notes           int                            `bun:"notes,notnull,default:0"`
	AccRating       float64                        `bun:"acc_rating,notnull,default:0"`
	PassRating      float64                        `bun:"pass_rating,notnull,default:0"`
	TechRating      float64                        `bun:"tech_rating,notnull,default:0"`
	ModifierValues  rankingdomain.ModifierValues   `bun:"modifier_values,type:jsonb"`
	ModifierRatings *rankingdomain.ModifierRatings `bun:"modifier_ratings,type:jsonb"`
	Plays           int                            `bun:"plays,notnull,default:0"`
	CaptorClanID    *uuid.UUID                     `bun:"captor_clan_id,type:uuid"`
}

// StandardMode reports whether the leaderboard is played in the standard mode.
func (l *Leaderboard) StandardMode() bool {
	return l.ModeName == "" || l.ModeName == "Standard"
}

// Player is a ranked account.
type Player struct {
	bun.BaseModel `bun:"table:players,alias:p"`

	ID      string `bun:"id,pk"`
	Name    string `bun:"name,notnull,default:''"`
	Country string `bun:"country,notnull,default:'not set'"`
	Banned  bool   `bun:"banned,notnull,default:false"`
}

// PlayerContextExtension holds a player's aggregate in one context.
type PlayerContextExtension struct {
	bun.BaseModel `bun:"table:player_context_extensions,alias:pce"`

	PlayerID    string                         `bun:"player_id,pk"`
	Context     rankingdomain.Context          `bun:"context,pk"`
	PP          float64                        `bun:"pp,notnull,default:0"`
	AccPP       float64                        `bun:"acc_pp,notnull,default:0"`
	PassPP      float64                        `bun:"pass_pp,notnull,default:0"`
	TechPP      float64                        `bun:"tech_pp,notnull,default:0"`
	Rank        int                            `bun:"rank,notnull,default:0"`
	CountryRank int                            `bun:"country_rank,notnull,default:0"`
	Stats       rankingdomain.PlayerScoreStats `bun:"stats,type:jsonb"`
	UpdatedAt   time.Time                      `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// Clan is a group of players competing for leaderboard captures.
type Clan struct {
	bun.BaseModel `bun:"table:clans,alias:c"`

	ID                        uuid.UUID `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Tag                       string    `bun:"tag,notnull,unique"`
	Name                      string    `bun:"name,notnull"`
	PP                        float64   `bun:"pp,notnull,default:0"`
	AverageAccuracy           float64   `bun:"average_accuracy,notnull,default:0"`
	AverageRank               float64   `bun:"average_rank,notnull,default:0"`
	RankedPoolPercentCaptured float64   `bun:"ranked_pool_percent_captured,notnull,default:0"`
	CaptureLeaderboardsCount  int       `bun:"capture_leaderboards_count,notnull,default:0"`
	PlayersCount              int       `bun:"players_count,notnull,default:0"`
	UpdatedAt                 time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// ClanMember links a player to a clan. A player may belong to several clans.
type ClanMember struct {
	bun.BaseModel `bun:"table:clan_members,alias:cm"`

	ClanID   uuid.UUID `bun:"clan_id,pk,type:uuid"`
	PlayerID string    `bun:"player_id,pk"`
}

// ClanRanking is one clan's standing on one leaderboard.
type ClanRanking struct {
	bun.BaseModel `bun:"table:clan_rankings,alias:cr"`

	ID              int64     `bun:"id,pk,autoincrement"`
	LeaderboardID   string    `bun:"leaderboard_id,notnull,unique:leaderboard_clan"`
	ClanID          uuid.UUID `bun:"clan_id,type:uuid,notnull,unique:leaderboard_clan"`
	Rank            int       `bun:"rank,notnull"`
	PP              float64   `bun:"pp,notnull"`
	AverageRank     float64   `bun:"average_rank,notnull"`
	AverageAccuracy float64   `bun:"average_accuracy,notnull"`
	TotalScore      int64     `bun:"total_score,notnull"`
	LastUpdateTime  time.Time `bun:"last_update_time,notnull"`
}

// ClanRankingChange records a captor transition on a leaderboard.
type ClanRankingChange struct {
	bun.BaseModel `bun:"table:clan_ranking_changes,alias:crc"`

	ID                int64      `bun:"id,pk,autoincrement"`
	LeaderboardID     string     `bun:"leaderboard_id,notnull"`
	PreviousCaptorID  *uuid.UUID `bun:"previous_captor_id,type:uuid"`
	CurrentCaptorID   *uuid.UUID `bun:"current_captor_id,type:uuid"`
	ChangeDescription string     `bun:"change_description,notnull"`
	CreatedAt         time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
