package rankingdb

import (
	"slices"

	rankingdomain "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/domain"
)

// Score columns that a recompute pass may dirty. The same names exist on
// scores and score_context_extensions.
const (
	ColModifiedScore = "modified_score"
	ColAccuracy      = "accuracy"
	ColPP            = "pp"
	ColAccPP         = "acc_pp"
	ColPassPP        = "pass_pp"
	ColTechPP        = "tech_pp"
	ColBonusPP       = "bonus_pp"
	ColRank          = "rank"
	ColPriority      = "priority"
	ColWeight        = "weight"
)

// Player aggregate columns.
const (
	ColCountryRank = "country_rank"
	ColStats       = "stats"
)

var scoreColumns = []string{
	ColModifiedScore, ColAccuracy, ColPP, ColAccPP, ColPassPP, ColTechPP,
	ColBonusPP, ColRank, ColPriority, ColWeight,
}

var playerColumns = []string{
	ColPP, ColAccPP, ColPassPP, ColTechPP, ColRank, ColCountryRank, ColStats,
}

// ScoreFields carries the mutable ranking fields of a score.
type ScoreFields struct {
	ModifiedScore int
	Accuracy      float64
	PP            float64
	AccPP         float64
	PassPP        float64
	TechPP        float64
	BonusPP       float64
	Rank          int
	Priority      int
	Weight        float64
}

// ScorePatch is a partial update of one score row. Only Columns are written.
// General context rows live in scores, every other context in
// score_context_extensions.
type ScorePatch struct {
	RowID   int64
	Context rankingdomain.Context
	Fields  ScoreFields
	Columns []string
}

// Merge folds other's columns into p. Fields for columns already on p are
// overwritten by other's values.
func (p *ScorePatch) Merge(other ScorePatch) {
	for _, col := range other.Columns {
		switch col {
		case ColModifiedScore:
			p.Fields.ModifiedScore = other.Fields.ModifiedScore
		case ColAccuracy:
			p.Fields.Accuracy = other.Fields.Accuracy
		case ColPP:
			p.Fields.PP = other.Fields.PP
		case ColAccPP:
			p.Fields.AccPP = other.Fields.AccPP
		case ColPassPP:
			p.Fields.PassPP = other.Fields.PassPP
		case ColTechPP:
			p.Fields.TechPP = other.Fields.TechPP
		case ColBonusPP:
			p.Fields.BonusPP = other.Fields.BonusPP
		case ColRank:
			p.Fields.Rank = other.Fields.Rank
		case ColPriority:
			p.Fields.Priority = other.Fields.Priority
		case ColWeight:
			p.Fields.Weight = other.Fields.Weight
		}
		if !slices.Contains(p.Columns, col) {
			p.Columns = append(p.Columns, col)
		}
	}
}

// PlayerFields carries a player's aggregate in one context.
type PlayerFields struct {
	PP          float64
	AccPP       float64
	PassPP      float64
	TechPP      float64
	Rank        int
	CountryRank int
	Stats       rankingdomain.PlayerScoreStats
}

// PlayerPatch is a partial upsert of one player_context_extensions row.
type PlayerPatch struct {
	PlayerID string
	Context  rankingdomain.Context
	Fields   PlayerFields
	Columns  []string
}

// Merge folds other's columns into p.
func (p *PlayerPatch) Merge(other PlayerPatch) {
	for _, col := range other.Columns {
		switch col {
		case ColPP:
			p.Fields.PP = other.Fields.PP
		case ColAccPP:
			p.Fields.AccPP = other.Fields.AccPP
		case ColPassPP:
			p.Fields.PassPP = other.Fields.PassPP
		case ColTechPP:
			p.Fields.TechPP = other.Fields.TechPP
		case ColRank:
			p.Fields.Rank = other.Fields.Rank
		case ColCountryRank:
			p.Fields.CountryRank = other.Fields.CountryRank
		case ColStats:
			p.Fields.Stats = other.Fields.Stats
		}
		if !slices.Contains(p.Columns, col) {
			p.Columns = append(p.Columns, col)
		}
	}
}

// LeaderboardPatch updates the derived play count of a leaderboard.
type LeaderboardPatch struct {
	ID    string
	Plays int
}

func validColumns(cols, allowed []string) bool {
	for _, c := range cols {
		if !slices.Contains(allowed, c) {
			return false
		}
	}
	return true
}
