package rankingdb

import (
	"context"
	"fmt"
	"time"

	rankingdomain "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/domain"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// GetClan retrieves a clan by id.
func (r *Impl) GetClan(ctx context.Context, db bun.IDB, clanID uuid.UUID) (*Clan, error) {
	db = r.resolveDB(db)
	clan := new(Clan)
	if err := db.NewSelect().Model(clan).Where("c.id = ?", clanID).Scan(ctx); err != nil {
		return nil, notFound("GetClan", err)
	}
	return clan, nil
}

// ListClans returns every clan ordered by id.
func (r *Impl) ListClans(ctx context.Context, db bun.IDB) ([]Clan, error) {
	db = r.resolveDB(db)
	var clans []Clan
	if err := db.NewSelect().Model(&clans).Order("c.id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("rankingdb.ListClans: %w", err)
	}
	return clans, nil
}

// ListClanScores returns the eligible General context scores of a leaderboard:
// not banned, not part of a qualification and carrying pp. A score appears
// once per clan of its player.
func (r *Impl) ListClanScores(ctx context.Context, db bun.IDB, leaderboardID string) ([]ClanScoreRow, error) {
	db = r.resolveDB(db)
	var rows []ClanScoreRow
	err := db.NewSelect().
		TableExpr("scores AS s").
		Join("JOIN clan_members AS cm ON cm.player_id = s.player_id").
		Join("JOIN players AS p ON p.id = s.player_id").
		ColumnExpr("s.id AS score_id, s.player_id, cm.clan_id, s.pp, s.accuracy, s.rank, s.modified_score").
		Where("s.leaderboard_id = ?", leaderboardID).
		Where("s.banned = false").
		Where("s.qualification = false").
		Where("p.banned = false").
		Where("s.pp > 0").
		Where("s.valid_contexts & ? <> 0", int(rankingdomain.ContextGeneral)).
		OrderExpr("s.id ASC, cm.clan_id ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("rankingdb.ListClanScores: %w", err)
	}
	return rows, nil
}

// ReplaceClanRankings deletes a leaderboard's clan standings and inserts rankings.
func (r *Impl) ReplaceClanRankings(ctx context.Context, db bun.IDB, leaderboardID string, rankings []ClanRanking) error {
	db = r.resolveDB(db)
	_, err := db.NewDelete().
		Model((*ClanRanking)(nil)).
		Where("leaderboard_id = ?", leaderboardID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("rankingdb.ReplaceClanRankings: delete: %w", err)
	}
	if len(rankings) == 0 {
		return nil
	}
	if _, err := db.NewInsert().Model(&rankings).Exec(ctx); err != nil {
		return fmt.Errorf("rankingdb.ReplaceClanRankings: insert: %w", err)
	}
	return nil
}

// SetLeaderboardCaptor records the capturing clan of a leaderboard.
func (r *Impl) SetLeaderboardCaptor(ctx context.Context, db bun.IDB, leaderboardID string, clanID *uuid.UUID) error {
	db = r.resolveDB(db)
	_, err := db.NewUpdate().
		Model((*Leaderboard)(nil)).
		Set("captor_clan_id = ?", clanID).
		Where("id = ?", leaderboardID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("rankingdb.SetLeaderboardCaptor: %w", err)
	}
	return nil
}

// InsertClanRankingChange appends a capture changelog entry.
func (r *Impl) InsertClanRankingChange(ctx context.Context, db bun.IDB, change *ClanRankingChange) error {
	db = r.resolveDB(db)
	if _, err := db.NewInsert().Model(change).Exec(ctx); err != nil {
		return fmt.Errorf("rankingdb.InsertClanRankingChange: %w", err)
	}
	return nil
}

// ListClanMembers returns the General context aggregates of a clan's non-banned members.
func (r *Impl) ListClanMembers(ctx context.Context, db bun.IDB, clanID uuid.UUID) ([]ClanMemberRow, error) {
	db = r.resolveDB(db)
	var rows []ClanMemberRow
	err := db.NewSelect().
		TableExpr("clan_members AS cm").
		Join("JOIN players AS p ON p.id = cm.player_id").
		Join("LEFT JOIN player_context_extensions AS pce ON pce.player_id = cm.player_id AND pce.context = ?", int(rankingdomain.ContextGeneral)).
		ColumnExpr("cm.player_id, COALESCE(pce.pp, 0) AS pp, COALESCE(pce.rank, 0) AS rank").
		ColumnExpr("COALESCE((pce.stats->'ranked'->>'average_accuracy')::float8, 0) AS ranked_accuracy").
		ColumnExpr("COALESCE((pce.stats->'ranked'->>'play_count')::int, 0) AS ranked_play_count").
		Where("cm.clan_id = ?", clanID).
		Where("p.banned = false").
		OrderExpr("cm.player_id ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("rankingdb.ListClanMembers: %w", err)
	}
	return rows, nil
}

// CountCapturedLeaderboards returns how many leaderboards a clan captures, in
// total and within the ranked pool.
func (r *Impl) CountCapturedLeaderboards(ctx context.Context, db bun.IDB, clanID uuid.UUID) (rankingdomain.CaptureCounts, error) {
	db = r.resolveDB(db)
	var counts rankingdomain.CaptureCounts
	err := db.NewSelect().
		Model((*Leaderboard)(nil)).
		ColumnExpr("COUNT(*) AS total").
		ColumnExpr("COUNT(*) FILTER (WHERE lb.status = ?) AS ranked", int(rankingdomain.StatusRanked)).
		Where("lb.captor_clan_id = ?", clanID).
		Scan(ctx, &counts.Total, &counts.Ranked)
	if err != nil {
		return rankingdomain.CaptureCounts{}, fmt.Errorf("rankingdb.CountCapturedLeaderboards: %w", err)
	}
	return counts, nil
}

// UpdateClanAggregate writes a clan's derived aggregate columns.
func (r *Impl) UpdateClanAggregate(ctx context.Context, db bun.IDB, clan *Clan) error {
	db = r.resolveDB(db)
	clan.UpdatedAt = time.Now().UTC()
	_, err := db.NewUpdate().
		Model(clan).
		Column("pp", "average_accuracy", "average_rank", "ranked_pool_percent_captured",
			"capture_leaderboards_count", "players_count", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("rankingdb.UpdateClanAggregate: %w", err)
	}
	return nil
}

// ListClanLeaderboardIDs returns the pp-bearing leaderboards a clan's members
// scored on, the leaderboards the clan currently captures and every leaderboard
// still holding a standing for the clan.
func (r *Impl) ListClanLeaderboardIDs(ctx context.Context, db bun.IDB, clanID uuid.UUID) ([]string, error) {
	db = r.resolveDB(db)
	var ids []string
	err := db.NewRaw(`
		SELECT DISTINCT s.leaderboard_id AS id
		FROM scores AS s
		JOIN clan_members AS cm ON cm.player_id = s.player_id
		JOIN leaderboards AS lb ON lb.id = s.leaderboard_id
		WHERE cm.clan_id = ? AND lb.status IN (?)
		UNION
		SELECT lb.id FROM leaderboards AS lb WHERE lb.captor_clan_id = ?
		UNION
		SELECT cr.leaderboard_id FROM clan_rankings AS cr WHERE cr.clan_id = ?
		ORDER BY id`,
		clanID,
		bun.In([]int{
			int(rankingdomain.StatusQualified),
			int(rankingdomain.StatusRanked),
			int(rankingdomain.StatusInEvent),
		}),
		clanID,
		clanID,
	).Scan(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("rankingdb.ListClanLeaderboardIDs: %w", err)
	}
	return ids, nil
}

// ListClanRankedLeaderboardIDs returns every leaderboard holding at least one
// stored clan standing, ordered by id.
func (r *Impl) ListClanRankedLeaderboardIDs(ctx context.Context, db bun.IDB) ([]string, error) {
	db = r.resolveDB(db)
	var ids []string
	err := db.NewSelect().
		Model((*ClanRanking)(nil)).
		ColumnExpr("DISTINCT cr.leaderboard_id").
		OrderExpr("cr.leaderboard_id ASC").
		Scan(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("rankingdb.ListClanRankedLeaderboardIDs: %w", err)
	}
	return ids, nil
}
