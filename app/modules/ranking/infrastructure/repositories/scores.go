package rankingdb

import (
	"context"
	"fmt"
	"slices"

	rankingdomain "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/domain"
	"github.com/uptrace/bun"
)

// GetScore retrieves a General context score by id.
func (r *Impl) GetScore(ctx context.Context, db bun.IDB, scoreID int64) (*Score, error) {
	db = r.resolveDB(db)
	score := new(Score)
	if err := db.NewSelect().Model(score).Where("s.id = ?", scoreID).Scan(ctx); err != nil {
		return nil, notFound("GetScore", err)
	}
	return score, nil
}

// ListLeaderboardScores returns the rows of a leaderboard in one context,
// ordered by row id. Banned scores and scores whose context bit is cleared come
// back marked Excluded, and only while they still carry a rank, pp or weight.
func (r *Impl) ListLeaderboardScores(ctx context.Context, db bun.IDB, leaderboardID string, c rankingdomain.Context) ([]ScoreRow, error) {
	db = r.resolveDB(db)
	var rows []ScoreRow

	var q *bun.SelectQuery
	if c == rankingdomain.ContextGeneral {
		live := "s.banned = false AND s.valid_contexts & ? <> 0"
		q = db.NewSelect().
			TableExpr("scores AS s").
			ColumnExpr("s.id AS row_id, s.id AS score_id, s.player_id, s.base_score, s.modifiers, s.timepost, s.qualification").
			ColumnExpr("s.modified_score, s.accuracy, s.pp, s.acc_pp, s.pass_pp, s.tech_pp, s.bonus_pp, s.rank, s.priority, s.weight").
			ColumnExpr("NOT ("+live+") AS excluded", int(c)).
			Where("s.leaderboard_id = ?", leaderboardID).
			Where("("+live+") OR s.rank <> 0 OR s.pp <> 0 OR s.weight <> 0", int(c)).
			OrderExpr("s.id ASC")
	} else {
		live := "e.banned = false AND s.banned = false AND s.valid_contexts & ? <> 0"
		q = db.NewSelect().
			TableExpr("score_context_extensions AS e").
			Join("JOIN scores AS s ON s.id = e.score_id").
			ColumnExpr("e.id AS row_id, e.score_id, e.player_id, e.base_score, e.modifiers, e.timepost, e.qualification").
			ColumnExpr("e.modified_score, e.accuracy, e.pp, e.acc_pp, e.pass_pp, e.tech_pp, e.bonus_pp, e.rank, e.priority, e.weight").
			ColumnExpr("NOT ("+live+") AS excluded", int(c)).
			Where("e.leaderboard_id = ?", leaderboardID).
			Where("e.context = ?", int(c)).
			Where("("+live+") OR e.rank <> 0 OR e.pp <> 0 OR e.weight <> 0", int(c)).
			OrderExpr("e.id ASC")
	}

	if err := q.Scan(ctx, &rows); err != nil {
		return nil, fmt.Errorf("rankingdb.ListLeaderboardScores: %w", err)
	}
	return rows, nil
}

// PatchScores writes only the listed columns of each patch by primary key.
func (r *Impl) PatchScores(ctx context.Context, db bun.IDB, patches []ScorePatch) error {
	db = r.resolveDB(db)
	for _, p := range patches {
		if len(p.Columns) == 0 {
			continue
		}
		if !validColumns(p.Columns, scoreColumns) {
			return fmt.Errorf("rankingdb.PatchScores: %w: %v", ErrUnknownColumn, p.Columns)
		}

		var model any
		f := p.Fields
		if p.Context == rankingdomain.ContextGeneral {
			model = &Score{
				ID: p.RowID, ModifiedScore: f.ModifiedScore, Accuracy: f.Accuracy,
				PP: f.PP, AccPP: f.AccPP, PassPP: f.PassPP, TechPP: f.TechPP, BonusPP: f.BonusPP,
				Rank: f.Rank, Priority: f.Priority, Weight: f.Weight,
			}
		} else {
			model = &ScoreContextExtension{
				ID: p.RowID, ModifiedScore: f.ModifiedScore, Accuracy: f.Accuracy,
				PP: f.PP, AccPP: f.AccPP, PassPP: f.PassPP, TechPP: f.TechPP, BonusPP: f.BonusPP,
				Rank: f.Rank, Priority: f.Priority, Weight: f.Weight,
			}
		}

		if _, err := db.NewUpdate().Model(model).Column(p.Columns...).WherePK().Exec(ctx); err != nil {
			return fmt.Errorf("rankingdb.PatchScores: row %d (%s): %w", p.RowID, p.Context, err)
		}
	}
	return nil
}

// ResetScoreColumn zeroes a ranking column for every row of a context in one
// set-based statement.
func (r *Impl) ResetScoreColumn(ctx context.Context, db bun.IDB, c rankingdomain.Context, column string) (int64, error) {
	db = r.resolveDB(db)
	if !slices.Contains(scoreColumns, column) {
		return 0, fmt.Errorf("rankingdb.ResetScoreColumn: %w: %s", ErrUnknownColumn, column)
	}

	q := db.NewUpdate().Set("? = 0", bun.Ident(column))
	if c == rankingdomain.ContextGeneral {
		q = q.Model((*Score)(nil)).Where("valid_contexts & ? <> 0", int(c))
	} else {
		q = q.Model((*ScoreContextExtension)(nil)).Where("context = ?", int(c))
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("rankingdb.ResetScoreColumn: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
