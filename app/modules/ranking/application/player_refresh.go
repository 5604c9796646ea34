package rankingservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"

	authdomain "github.com/Black-And-White-Club/rhythm-ranker/app/modules/auth/domain"
	rankingdomain "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/domain"
	rankingdb "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/infrastructure/repositories"
	"golang.org/x/sync/errgroup"
)

// playerResult is the computed aggregate of one player in one context.
type playerResult struct {
	playerID string
	context  rankingdomain.Context
	group    writeGroup
	pp       float64
	err      error
}

// computePlayer rebuilds a player's aggregate from scratch and returns the
// player patch plus a weight patch for every score whose weight changed.
// Rank and country rank are left to the global rank pass.
func computePlayer(playerID string, c rankingdomain.Context, rows []rankingdb.PlayerScoreRow, existing rankingdb.PlayerFields) playerResult {
	scores := make([]rankingdomain.PlayerScore, len(rows))
	weights := make(map[int64]float64, len(rows))
	for i, row := range rows {
		scores[i] = rankingdomain.PlayerScore{
			ID:            row.RowID,
			LeaderboardID: row.LeaderboardID,
			PP:            row.PP,
			AccPP:         row.AccPP,
			PassPP:        row.PassPP,
			TechPP:        row.TechPP,
			BonusPP:       row.BonusPP,
			Accuracy:      row.Accuracy,
			ModifiedScore: row.ModifiedScore,
			Rank:          row.Rank,
			Timepost:      row.Timepost,
			Ranked:        row.Status.PPBearing() && !row.Qualification,
			Platform:      row.Platform,
			HMD:           row.HMD,
		}
		weights[row.RowID] = row.Weight
	}

	agg := rankingdomain.AggregatePlayer(scores)
	res := playerResult{playerID: playerID, context: c, pp: agg.Weighted.PP}

	for _, sw := range agg.Weighted.Weights {
		if weights[sw.ScoreID] == sw.Weight {
			continue
		}
		res.group.scores = append(res.group.scores, rankingdb.ScorePatch{
			RowID:   sw.ScoreID,
			Context: c,
			Fields:  rankingdb.ScoreFields{Weight: sw.Weight},
			Columns: []string{rankingdb.ColWeight},
		})
	}

	next := existing
	next.PP = agg.Weighted.PP
	next.AccPP = agg.Weighted.AccPP
	next.PassPP = agg.Weighted.PassPP
	next.TechPP = agg.Weighted.TechPP
	next.Stats = agg.Stats

	var cols []string
	if existing.PP != next.PP {
		cols = append(cols, rankingdb.ColPP)
	}
	if existing.AccPP != next.AccPP {
		cols = append(cols, rankingdb.ColAccPP)
	}
	if existing.PassPP != next.PassPP {
		cols = append(cols, rankingdb.ColPassPP)
	}
	if existing.TechPP != next.TechPP {
		cols = append(cols, rankingdb.ColTechPP)
	}
	if !reflect.DeepEqual(existing.Stats, next.Stats) {
		cols = append(cols, rankingdb.ColStats)
	}
	if len(cols) > 0 {
		res.group.players = []rankingdb.PlayerPatch{{
			PlayerID: playerID,
			Context:  c,
			Fields:   next,
			Columns:  cols,
		}}
	}
	return res
}

// loadAndComputePlayer reads a player's scores and current aggregate in one
// context and recomputes it.
func (s *RankingService) loadAndComputePlayer(ctx context.Context, playerID string, c rankingdomain.Context) playerResult {
	rows, err := s.repo.ListPlayerScores(ctx, nil, playerID, c)
	if err != nil {
		return playerResult{playerID: playerID, context: c, err: err}
	}

	var existing rankingdb.PlayerFields
	ext, err := s.repo.GetPlayerExtension(ctx, nil, playerID, c)
	switch {
	case err == nil:
		existing = rankingdb.PlayerFields{
			PP:          ext.PP,
			AccPP:       ext.AccPP,
			PassPP:      ext.PassPP,
			TechPP:      ext.TechPP,
			Rank:        ext.Rank,
			CountryRank: ext.CountryRank,
			Stats:       ext.Stats,
		}
	case errors.Is(err, rankingdb.ErrNotFound):
	default:
		return playerResult{playerID: playerID, context: c, err: err}
	}

	return computePlayer(playerID, c, rows, existing)
}

func (s *RankingService) applyPlayerResult(ctx context.Context, w *chunkWriter, report *BatchReport, res playerResult) {
	if res.err != nil {
		report.SkippedItems++
		s.logger.WarnContext(ctx, "Skipping player",
			slog.String("player_id", res.playerID),
			slog.String("context", res.context.String()),
			slog.Any("error", res.err),
		)
		return
	}
	w.add(ctx, res.group)
}

// RefreshPlayer recomputes one player's aggregates in the requested contexts.
func (s *RankingService) RefreshPlayer(ctx context.Context, caps authdomain.Capabilities, playerID string, contexts []rankingdomain.Context) (BatchReport, error) {
	if err := authorize(caps, authdomain.PermRefreshPlayers); err != nil {
		return BatchReport{}, err
	}

	return withTelemetry(s, ctx, "RefreshPlayer", playerID, func(ctx context.Context) (BatchReport, error) {
		if _, err := s.repo.GetPlayer(ctx, nil, playerID); err != nil {
			if errors.Is(err, rankingdb.ErrNotFound) {
				return BatchReport{}, fmt.Errorf("%w: %s", ErrPlayerNotFound, playerID)
			}
			return BatchReport{}, err
		}

		var report BatchReport
		w := newChunkWriter(s, &report)
		for _, c := range (RefreshOptions{Contexts: contexts}).contexts() {
			s.applyPlayerResult(ctx, w, &report, s.loadAndComputePlayer(ctx, playerID, c))
		}
		w.flush(ctx)
		report.Players = 1
		return report, nil
	})
}

// RefreshAllPlayers recomputes every player's aggregates page by page and
// then reassigns global ranks in each context.
func (s *RankingService) RefreshAllPlayers(ctx context.Context, caps authdomain.Capabilities, contexts []rankingdomain.Context) (BatchReport, error) {
	if err := authorize(caps, authdomain.PermRefreshPlayers); err != nil {
		return BatchReport{}, err
	}
	contexts = RefreshOptions{Contexts: contexts}.contexts()

	return withTelemetry(s, ctx, "RefreshAllPlayers", fmt.Sprint(contexts), func(ctx context.Context) (BatchReport, error) {
		var report BatchReport
		w := newChunkWriter(s, &report)

		after := ""
		for {
			if ctx.Err() != nil {
				w.discard()
				report.Cancelled = true
				return report, ctx.Err()
			}

			ids, err := s.repo.ListPlayerIDsPage(ctx, nil, after, s.settings.PageSize)
			if err != nil {
				w.flush(ctx)
				return report, err
			}
			if len(ids) == 0 {
				break
			}

			results := make([]playerResult, len(ids)*len(contexts))
			var g errgroup.Group
			g.SetLimit(s.settings.PlayerWorkers)
			for i, id := range ids {
				for j, c := range contexts {
					slot := i*len(contexts) + j
					g.Go(func() error {
						results[slot] = s.loadAndComputePlayer(ctx, id, c)
						return nil
					})
				}
			}
			_ = g.Wait()

			for _, res := range results {
				s.applyPlayerResult(ctx, w, &report, res)
			}
			report.Players += len(ids)
			if s.metrics != nil {
				s.metrics.RecordItems(ctx, "player", len(ids))
			}

			after = ids[len(ids)-1]
			if len(ids) < s.settings.PageSize {
				break
			}
		}
		if ctx.Err() != nil {
			w.discard()
			report.Cancelled = true
			return report, ctx.Err()
		}
		w.flush(ctx)

		for _, c := range contexts {
			if err := s.assignGlobalRanks(ctx, c, &report); err != nil {
				return report, err
			}
		}
		return report, nil
	})
}
