package rankingdb

import (
	"context"
	"fmt"
	"time"

	rankingdomain "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/domain"
	"github.com/uptrace/bun"
)

// GetPlayer retrieves a player by id.
func (r *Impl) GetPlayer(ctx context.Context, db bun.IDB, playerID string) (*Player, error) {
	db = r.resolveDB(db)
	player := new(Player)
	if err := db.NewSelect().Model(player).Where("p.id = ?", playerID).Scan(ctx); err != nil {
		return nil, notFound("GetPlayer", err)
	}
	return player, nil
}

// ListPlayerIDsPage returns up to limit player ids > afterID, ordered by id.
func (r *Impl) ListPlayerIDsPage(ctx context.Context, db bun.IDB, afterID string, limit int) ([]string, error) {
	db = r.resolveDB(db)
	var ids []string
	err := db.NewSelect().
		Model((*Player)(nil)).
		Column("id").
		Where("p.id > ?", afterID).
		Order("p.id ASC").
		Limit(limit).
		Scan(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("rankingdb.ListPlayerIDsPage: %w", err)
	}
	return ids, nil
}

// ListPlayerScores returns a player's scores in one context joined with the
// status of their leaderboards.
func (r *Impl) ListPlayerScores(ctx context.Context, db bun.IDB, playerID string, c rankingdomain.Context) ([]PlayerScoreRow, error) {
	db = r.resolveDB(db)
	var rows []PlayerScoreRow

	var q *bun.SelectQuery
	if c == rankingdomain.ContextGeneral {
		q = db.NewSelect().
			TableExpr("scores AS s").
			Join("JOIN leaderboards AS lb ON lb.id = s.leaderboard_id").
			ColumnExpr("s.id AS row_id, s.leaderboard_id, lb.status, s.qualification, s.modified_score, s.accuracy").
			ColumnExpr("s.pp, s.acc_pp, s.pass_pp, s.tech_pp, s.bonus_pp, s.rank, s.weight, s.timepost").
			Where("s.player_id = ?", playerID).
			OrderExpr("s.id ASC")
	} else {
		q = db.NewSelect().
			TableExpr("score_context_extensions AS e").
			Join("JOIN scores AS s ON s.id = e.score_id").
			Join("JOIN leaderboards AS lb ON lb.id = e.leaderboard_id").
			ColumnExpr("e.id AS row_id, e.leaderboard_id, lb.status, e.qualification, e.modified_score, e.accuracy").
			ColumnExpr("e.pp, e.acc_pp, e.pass_pp, e.tech_pp, e.bonus_pp, e.rank, e.weight, e.timepost").
			Where("e.player_id = ?", playerID).
			Where("e.context = ?", int(c)).
			Where("e.banned = false").
			OrderExpr("e.id ASC")
	}
	q = q.ColumnExpr("s.platform, s.hmd").
		Where("s.banned = false").
		Where("s.ignore_for_stats = false").
		Where("s.valid_contexts & ? <> 0", int(c))

	if err := q.Scan(ctx, &rows); err != nil {
		return nil, fmt.Errorf("rankingdb.ListPlayerScores: %w", err)
	}
	return rows, nil
}

// GetPlayerExtension retrieves a player's aggregate in one context.
func (r *Impl) GetPlayerExtension(ctx context.Context, db bun.IDB, playerID string, c rankingdomain.Context) (*PlayerContextExtension, error) {
	db = r.resolveDB(db)
	ext := new(PlayerContextExtension)
	err := db.NewSelect().
		Model(ext).
		Where("pce.player_id = ?", playerID).
		Where("pce.context = ?", int(c)).
		Scan(ctx)
	if err != nil {
		return nil, notFound("GetPlayerExtension", err)
	}
	return ext, nil
}

// ListPlayerStandings returns the aggregate pp and current ranks of every
// player in one context. Banned players are reported with zero pp.
func (r *Impl) ListPlayerStandings(ctx context.Context, db bun.IDB, c rankingdomain.Context) ([]PlayerStandingRow, error) {
	db = r.resolveDB(db)
	var rows []PlayerStandingRow
	err := db.NewSelect().
		TableExpr("players AS p").
		Join("LEFT JOIN player_context_extensions AS pce ON pce.player_id = p.id AND pce.context = ?", int(c)).
		ColumnExpr("p.id AS player_id, p.country").
		ColumnExpr("CASE WHEN p.banned THEN 0 ELSE COALESCE(pce.pp, 0) END AS pp").
		ColumnExpr("COALESCE(pce.rank, 0) AS rank, COALESCE(pce.country_rank, 0) AS country_rank").
		OrderExpr("p.id ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("rankingdb.ListPlayerStandings: %w", err)
	}
	return rows, nil
}

// PatchPlayers upserts each patch, overwriting only its listed columns on conflict.
func (r *Impl) PatchPlayers(ctx context.Context, db bun.IDB, patches []PlayerPatch) error {
	db = r.resolveDB(db)
	now := time.Now().UTC()
	for _, p := range patches {
		if len(p.Columns) == 0 {
			continue
		}
		if !validColumns(p.Columns, playerColumns) {
			return fmt.Errorf("rankingdb.PatchPlayers: %w: %v", ErrUnknownColumn, p.Columns)
		}

		f := p.Fields
		stub := &PlayerContextExtension{
			PlayerID:    p.PlayerID,
			Context:     p.Context,
			PP:          f.PP,
			AccPP:       f.AccPP,
			PassPP:      f.PassPP,
			TechPP:      f.TechPP,
			Rank:        f.Rank,
			CountryRank: f.CountryRank,
			Stats:       f.Stats,
			UpdatedAt:   now,
		}

		q := db.NewInsert().Model(stub).On("CONFLICT (player_id, context) DO UPDATE")
		for _, col := range p.Columns {
			q = q.Set("? = EXCLUDED.?", bun.Ident(col), bun.Ident(col))
		}
		q = q.Set("updated_at = EXCLUDED.updated_at")

		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("rankingdb.PatchPlayers: %s (%s): %w", p.PlayerID, p.Context, err)
		}
	}
	return nil
}
