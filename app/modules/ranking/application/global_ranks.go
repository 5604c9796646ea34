package rankingservice

import (
	"context"
	"fmt"
	"log/slog"

	authdomain "github.com/Black-And-White-Club/rhythm-ranker/app/modules/auth/domain"
	rankingdomain "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/domain"
	rankingdb "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/infrastructure/repositories"
)

func standingsOf(rows []rankingdb.PlayerStandingRow) []rankingdomain.PlayerStanding {
	out := make([]rankingdomain.PlayerStanding, len(rows))
	for i, r := range rows {
		out[i] = rankingdomain.PlayerStanding{PlayerID: r.PlayerID, Country: r.Country, PP: r.PP}
	}
	return out
}

// assignGlobalRanks is the single sequential global and country rank pass of
// one context. Only changed ranks are written.
func (s *RankingService) assignGlobalRanks(ctx context.Context, c rankingdomain.Context, report *BatchReport) error {
	rows, err := s.repo.ListPlayerStandings(ctx, nil, c)
	if err != nil {
		return err
	}
	current := make(map[string]rankingdb.PlayerStandingRow, len(rows))
	for _, r := range rows {
		current[r.PlayerID] = r
	}

	ranks := rankingdomain.AssignGlobalRanks(standingsOf(rows))

	w := newChunkWriter(s, report)
	for _, r := range ranks {
		if ctx.Err() != nil {
			w.discard()
			report.Cancelled = true
			return ctx.Err()
		}
		old := current[r.PlayerID]
		if old.Rank == r.Rank && old.CountryRank == r.CountryRank {
			continue
		}
		w.add(ctx, writeGroup{players: []rankingdb.PlayerPatch{{
			PlayerID: r.PlayerID,
			Context:  c,
			Fields:   rankingdb.PlayerFields{Rank: r.Rank, CountryRank: r.CountryRank},
			Columns:  []string{rankingdb.ColRank, rankingdb.ColCountryRank},
		}}})
	}
	w.flush(ctx)

	if s.mirror != nil {
		if err := s.mirror.Replace(ctx, c, ranks); err != nil {
			s.logger.WarnContext(ctx, "Failed to update ranking mirror",
				slog.String("context", c.String()),
				slog.Any("error", err),
			)
		}
	}
	return nil
}

// RefreshGlobalRanks reassigns global and country ranks in each context.
func (s *RankingService) RefreshGlobalRanks(ctx context.Context, caps authdomain.Capabilities, contexts []rankingdomain.Context) (BatchReport, error) {
	if err := authorize(caps, authdomain.PermRefreshPlayers); err != nil {
		return BatchReport{}, err
	}
	contexts = RefreshOptions{Contexts: contexts}.contexts()

	return withTelemetry(s, ctx, "RefreshGlobalRanks", fmt.Sprint(contexts), func(ctx context.Context) (BatchReport, error) {
		var report BatchReport
		for _, c := range contexts {
			if err := s.assignGlobalRanks(ctx, c, &report); err != nil {
				return report, err
			}
		}
		return report, nil
	})
}
