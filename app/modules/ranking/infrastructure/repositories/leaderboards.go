package rankingdb

import (
	"context"
	"fmt"

	rankingdomain "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/domain"
	"github.com/uptrace/bun"
)

// GetLeaderboard retrieves a leaderboard by id.
func (r *Impl) GetLeaderboard(ctx context.Context, db bun.IDB, leaderboardID string) (*Leaderboard, error) {
	db = r.resolveDB(db)
	lb := new(Leaderboard)
	if err := db.NewSelect().Model(lb).Where("lb.id = ?", leaderboardID).Scan(ctx); err != nil {
		return nil, notFound("GetLeaderboard", err)
	}
	return lb, nil
}

// ListLeaderboardsPage returns up to limit leaderboards with id > afterID.
func (r *Impl) ListLeaderboardsPage(ctx context.Context, db bun.IDB, afterID string, limit int) ([]Leaderboard, error) {
	db = r.resolveDB(db)
	var lbs []Leaderboard
	err := db.NewSelect().
		Model(&lbs).
		Where("lb.id > ?", afterID).
		Order("lb.id ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("rankingdb.ListLeaderboardsPage: %w", err)
	}
	return lbs, nil
}

// PatchLeaderboards writes the play count of each leaderboard.
func (r *Impl) PatchLeaderboards(ctx context.Context, db bun.IDB, patches []LeaderboardPatch) error {
	db = r.resolveDB(db)
	for _, p := range patches {
		stub := &Leaderboard{ID: p.ID, Plays: p.Plays}
		if _, err := db.NewUpdate().Model(stub).Column("plays").WherePK().Exec(ctx); err != nil {
			return fmt.Errorf("rankingdb.PatchLeaderboards: %s: %w", p.ID, err)
		}
	}
	return nil
}

// CountRankedLeaderboards returns the number of leaderboards in ranked status.
func (r *Impl) CountRankedLeaderboards(ctx context.Context, db bun.IDB) (int, error) {
	db = r.resolveDB(db)
	n, err := db.NewSelect().
		Model((*Leaderboard)(nil)).
		Where("lb.status = ?", int(rankingdomain.StatusRanked)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("rankingdb.CountRankedLeaderboards: %w", err)
	}
	return n, nil
}
