package rankingmigrations

import (
	"context"
	"fmt"

	rankingdb "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/infrastructure/repositories"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating ranking tables...")

		models := []any{
			(*rankingdb.Leaderboard)(nil),
			(*rankingdb.Player)(nil),
			(*rankingdb.Score)(nil),
			(*rankingdb.ScoreContextExtension)(nil),
			(*rankingdb.PlayerContextExtension)(nil),
			(*rankingdb.Clan)(nil),
			(*rankingdb.ClanMember)(nil),
			(*rankingdb.ClanRanking)(nil),
			(*rankingdb.ClanRankingChange)(nil),
		}
		for _, model := range models {
			if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
				return fmt.Errorf("failed to create table for %T: %w", model, err)
			}
		}

		indexes := []string{
			"CREATE INDEX IF NOT EXISTS idx_scores_leaderboard_id ON scores (leaderboard_id)",
			"CREATE INDEX IF NOT EXISTS idx_scores_player_id ON scores (player_id)",
			"CREATE INDEX IF NOT EXISTS idx_score_ext_leaderboard_context ON score_context_extensions (leaderboard_id, context)",
			"CREATE INDEX IF NOT EXISTS idx_score_ext_player_context ON score_context_extensions (player_id, context)",
			"CREATE INDEX IF NOT EXISTS idx_player_ext_context_pp ON player_context_extensions (context, pp DESC)",
			"CREATE INDEX IF NOT EXISTS idx_clan_members_player_id ON clan_members (player_id)",
			"CREATE INDEX IF NOT EXISTS idx_leaderboards_captor ON leaderboards (captor_clan_id)",
			"CREATE INDEX IF NOT EXISTS idx_clan_ranking_changes_leaderboard ON clan_ranking_changes (leaderboard_id, created_at DESC)",
		}
		for _, stmt := range indexes {
			if _, err := db.NewRaw(stmt).Exec(ctx); err != nil {
				return err
			}
		}

		fmt.Println("Ranking tables created successfully!")
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping ranking tables...")

		models := []any{
			(*rankingdb.ClanRankingChange)(nil),
			(*rankingdb.ClanRanking)(nil),
			(*rankingdb.ClanMember)(nil),
			(*rankingdb.Clan)(nil),
			(*rankingdb.PlayerContextExtension)(nil),
			(*rankingdb.ScoreContextExtension)(nil),
			(*rankingdb.Score)(nil),
			(*rankingdb.Player)(nil),
			(*rankingdb.Leaderboard)(nil),
		}
		for _, model := range models {
			if _, err := db.NewDropTable().Model(model).IfExists().Exec(ctx); err != nil {
				return err
			}
		}

		fmt.Println("Ranking tables dropped successfully!")
		return nil
	})
}
