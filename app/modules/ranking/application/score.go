package rankingservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	rankingevents "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/domain/events"
	rankingdb "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/infrastructure/repositories"
)

// ProcessScore recomputes the submitted score's leaderboard in every context
// the score counts toward, refreshes its player in those contexts and, on a
// pp-bearing leaderboard, re-ranks the leaderboard's clans.
func (s *RankingService) ProcessScore(ctx context.Context, scoreID int64) (*ScoreOutcome, error) {
	return withTelemetry(s, ctx, "ProcessScore", strconv.FormatInt(scoreID, 10), func(ctx context.Context) (*ScoreOutcome, error) {
		score, err := s.repo.GetScore(ctx, nil, scoreID)
		if err != nil {
			if errors.Is(err, rankingdb.ErrNotFound) {
				return nil, fmt.Errorf("%w: %d", ErrScoreNotFound, scoreID)
			}
			return nil, err
		}
		lb, err := s.repo.GetLeaderboard(ctx, nil, score.LeaderboardID)
		if err != nil {
			if errors.Is(err, rankingdb.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrLeaderboardNotFound, score.LeaderboardID)
			}
			return nil, err
		}

		var report BatchReport
		w := newChunkWriter(s, &report)

		contexts := score.ValidContexts.Split()
		boards := make([]leaderboardResult, 0, len(contexts))
		for _, c := range contexts {
			res := s.loadAndCompute(ctx, lb, c, false)
			if res.err != nil {
				return nil, res.err
			}
			s.applyLeaderboardResult(ctx, w, &report, res)
			boards = append(boards, res)
		}
		w.flush(ctx)

		players := make([]playerResult, 0, len(contexts))
		for _, c := range contexts {
			res := s.loadAndComputePlayer(ctx, score.PlayerID, c)
			s.applyPlayerResult(ctx, w, &report, res)
			players = append(players, res)
		}
		w.flush(ctx)

		if report.FailedChunks > 0 {
			return nil, fmt.Errorf("ProcessScore: %d of %d chunks failed", report.FailedChunks, report.FailedChunks+report.CommittedChunks)
		}

		if lb.Status.PPBearing() {
			s.refreshClans(ctx, []string{lb.ID}, &report)
		}

		outcome := &ScoreOutcome{
			ScoreID:       score.ID,
			PlayerID:      score.PlayerID,
			LeaderboardID: lb.ID,
		}
		for i, res := range boards {
			rowID, ok := res.rowOf[score.ID]
			if !ok {
				continue
			}
			f := res.final[rowID]
			co := ContextOutcome{
				Context:       res.context,
				ModifiedScore: f.ModifiedScore,
				Accuracy:      f.Accuracy,
				PP:            f.PP,
				Rank:          f.Rank,
			}
			if players[i].err == nil {
				co.PlayerPP = players[i].pp
			}
			outcome.Contexts = append(outcome.Contexts, co)
		}

		s.publishScore(ctx, outcome)
		return outcome, nil
	})
}

// publishScore announces each ranked context of a processed score. Failures
// are logged and never fail the score.
func (s *RankingService) publishScore(ctx context.Context, outcome *ScoreOutcome) {
	if s.notifier == nil {
		return
	}
	for _, co := range outcome.Contexts {
		err := s.notifier.PublishScore(ctx, rankingevents.ScoreUpdatedEvent{
			ScoreID:       outcome.ScoreID,
			PlayerID:      outcome.PlayerID,
			LeaderboardID: outcome.LeaderboardID,
			Context:       co.Context.String(),
			ModifiedScore: co.ModifiedScore,
			Accuracy:      co.Accuracy,
			PP:            co.PP,
			Rank:          co.Rank,
			PlayerPP:      co.PlayerPP,
			OccurredAt:    s.now().UTC(),
		})
		if err != nil {
			s.logger.WarnContext(ctx, "Failed to publish score event",
				slog.Int64("score_id", outcome.ScoreID),
				slog.String("context", co.Context.String()),
				slog.Any("error", err),
			)
		}
	}
}
