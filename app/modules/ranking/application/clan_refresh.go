package rankingservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"golang.org/x/sync/errgroup"

	authdomain "github.com/Black-And-White-Club/rhythm-ranker/app/modules/auth/domain"
	rankingdomain "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/domain"
	rankingevents "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/domain/events"
	rankingmetrics "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/infrastructure/metrics"
	rankingdb "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/infrastructure/repositories"
)

// clanResult is the computed clan standing of one leaderboard.
type clanResult struct {
	leaderboardID string
	capture       rankingdomain.ClanCapture
	err           error
}

// clanScoresOf folds one row per (score, clan) into one ClanScore per score.
func clanScoresOf(rows []rankingdb.ClanScoreRow) []rankingdomain.ClanScore {
	idx := make(map[int64]int, len(rows))
	var out []rankingdomain.ClanScore
	for _, r := range rows {
		if i, ok := idx[r.ScoreID]; ok {
			out[i].ClanIDs = append(out[i].ClanIDs, r.ClanID)
			continue
		}
		idx[r.ScoreID] = len(out)
		out = append(out, rankingdomain.ClanScore{
			ScoreID:       r.ScoreID,
			PlayerID:      r.PlayerID,
			ClanIDs:       []uuid.UUID{r.ClanID},
			PP:            r.PP,
			Accuracy:      r.Accuracy,
			Rank:          r.Rank,
			ModifiedScore: r.ModifiedScore,
		})
	}
	return out
}

// computeClans ranks the clans of one leaderboard. Leaderboards that no
// longer bear pp lose their standings and captor.
func (s *RankingService) computeClans(ctx context.Context, leaderboardID string) clanResult {
	lb, err := s.repo.GetLeaderboard(ctx, nil, leaderboardID)
	if err != nil {
		return clanResult{leaderboardID: leaderboardID, err: err}
	}

	var scores []rankingdomain.ClanScore
	if lb.Status.PPBearing() {
		rows, err := s.repo.ListClanScores(ctx, nil, leaderboardID)
		if err != nil {
			return clanResult{leaderboardID: leaderboardID, err: err}
		}
		scores = clanScoresOf(rows)
	}

	return clanResult{
		leaderboardID: leaderboardID,
		capture:       rankingdomain.RankClans(leaderboardID, scores, lb.CaptorClanID, s.clanPolicy),
	}
}

func clanTag(tags map[uuid.UUID]string, id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	if tag, ok := tags[*id]; ok {
		return "[" + tag + "]"
	}
	return "[" + id.String() + "]"
}

func describeCapture(change *rankingdomain.CaptureChange, tags map[uuid.UUID]string) string {
	prev, cur := clanTag(tags, change.PreviousCaptorID), clanTag(tags, change.CurrentCaptorID)
	switch {
	case cur != "" && prev != "":
		return fmt.Sprintf("%s captured leaderboard %s from %s", cur, change.LeaderboardID, prev)
	case cur != "":
		return fmt.Sprintf("%s captured leaderboard %s", cur, change.LeaderboardID)
	default:
		return fmt.Sprintf("%s lost leaderboard %s", prev, change.LeaderboardID)
	}
}

func uuidString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

// writeClans stores one leaderboard's standings and, on a captor change, the
// new captor and its changelog entry in a single transaction.
func (s *RankingService) writeClans(ctx context.Context, res clanResult, description string) error {
	now := s.now().UTC()
	rankings := make([]rankingdb.ClanRanking, len(res.capture.Standings))
	for i, st := range res.capture.Standings {
		rankings[i] = rankingdb.ClanRanking{
			LeaderboardID:   res.leaderboardID,
			ClanID:          st.ClanID,
			Rank:            st.Rank,
			PP:              st.PP,
			AverageRank:     st.AverageRank,
			AverageAccuracy: st.AverageAccuracy,
			TotalScore:      st.TotalScore,
			LastUpdateTime:  now,
		}
	}

	return s.runInTx(context.WithoutCancel(ctx), func(ctx context.Context, db bun.IDB) error {
		if err := s.repo.ReplaceClanRankings(ctx, db, res.leaderboardID, rankings); err != nil {
			return err
		}
		change := res.capture.Change
		if change == nil {
			return nil
		}
		if err := s.repo.SetLeaderboardCaptor(ctx, db, res.leaderboardID, change.CurrentCaptorID); err != nil {
			return err
		}
		return s.repo.InsertClanRankingChange(ctx, db, &rankingdb.ClanRankingChange{
			LeaderboardID:     res.leaderboardID,
			PreviousCaptorID:  change.PreviousCaptorID,
			CurrentCaptorID:   change.CurrentCaptorID,
			ChangeDescription: description,
		})
	})
}

// refreshClans re-ranks the clans of each leaderboard, writes the results one
// leaderboard at a time and then recomputes the aggregate of every clan whose
// standing or capture may have moved. Failures are counted, not returned.
func (s *RankingService) refreshClans(ctx context.Context, leaderboardIDs []string, report *BatchReport) {
	s.refreshClansTouching(ctx, leaderboardIDs, nil, report)
}

func (s *RankingService) refreshClansTouching(ctx context.Context, leaderboardIDs []string, extra []uuid.UUID, report *BatchReport) {
	tags := make(map[uuid.UUID]string)
	clans, err := s.repo.ListClans(ctx, nil)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to load clan tags", slog.Any("error", err))
	}
	for _, c := range clans {
		tags[c.ID] = c.Tag
	}

	results := make([]clanResult, len(leaderboardIDs))
	var g errgroup.Group
	g.SetLimit(s.settings.LeaderboardWorkers)
	for i, id := range leaderboardIDs {
		g.Go(func() error {
			results[i] = s.computeClans(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	touched := make(map[uuid.UUID]struct{})
	for _, id := range extra {
		touched[id] = struct{}{}
	}

	var events []rankingevents.ClanCaptureChangedEvent
	for _, res := range results {
		if ctx.Err() != nil {
			report.Cancelled = true
			return
		}
		if res.err != nil {
			report.SkippedItems++
			s.logger.WarnContext(ctx, "Skipping clan ranking",
				slog.String("leaderboard_id", res.leaderboardID),
				slog.Any("error", res.err),
			)
			continue
		}

		var description string
		if res.capture.Change != nil {
			description = describeCapture(res.capture.Change, tags)
		}
		if err := s.writeClans(ctx, res, description); err != nil {
			report.FailedChunks++
			report.FailedRows += len(res.capture.Standings)
			s.logger.WarnContext(ctx, "Clan ranking commit failed, discarding",
				slog.String("leaderboard_id", res.leaderboardID),
				slog.Any("error", err),
			)
			if s.metrics != nil {
				s.metrics.RecordChunk(ctx, rankingmetrics.ChunkFailed, len(res.capture.Standings))
			}
			continue
		}
		report.CommittedChunks++

		for _, st := range res.capture.Standings {
			touched[st.ClanID] = struct{}{}
		}
		if change := res.capture.Change; change != nil {
			report.CaptureChanges++
			if change.PreviousCaptorID != nil {
				touched[*change.PreviousCaptorID] = struct{}{}
			}
			events = append(events, rankingevents.ClanCaptureChangedEvent{
				LeaderboardID:    change.LeaderboardID,
				PreviousCaptorID: uuidString(change.PreviousCaptorID),
				CurrentCaptorID:  uuidString(change.CurrentCaptorID),
				Description:      description,
				OccurredAt:       s.now().UTC(),
			})
		}
	}

	if s.notifier != nil {
		for _, ev := range events {
			if err := s.notifier.PublishClanCapture(ctx, ev); err != nil {
				s.logger.WarnContext(ctx, "Failed to publish clan capture event",
					slog.String("leaderboard_id", ev.LeaderboardID),
					slog.Any("error", err),
				)
			}
		}
	}

	s.updateClanAggregates(ctx, touched, report)
}

// updateClanAggregates recomputes every touched clan on a bounded pool. Each
// clan is written by exactly one worker.
func (s *RankingService) updateClanAggregates(ctx context.Context, touched map[uuid.UUID]struct{}, report *BatchReport) {
	if len(touched) == 0 {
		return
	}
	ids := make([]uuid.UUID, 0, len(touched))
	for id := range touched {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b uuid.UUID) int {
		return slices.Compare(a[:], b[:])
	})

	pool, err := s.repo.CountRankedLeaderboards(ctx, nil)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to count ranked leaderboards", slog.Any("error", err))
		report.SkippedItems += len(ids)
		return
	}

	failed := make([]bool, len(ids))
	var g errgroup.Group
	g.SetLimit(s.settings.ClanWorkers)
	for i, id := range ids {
		g.Go(func() error {
			if err := s.updateClanAggregate(ctx, id, pool); err != nil {
				failed[i] = true
				s.logger.WarnContext(ctx, "Failed to update clan aggregate",
					slog.String("clan_id", id.String()),
					slog.Any("error", err),
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, f := range failed {
		if f {
			report.SkippedItems++
		} else {
			report.Clans++
		}
	}
}

func (s *RankingService) updateClanAggregate(ctx context.Context, clanID uuid.UUID, rankedPool int) error {
	clan, err := s.repo.GetClan(ctx, nil, clanID)
	if err != nil {
		return err
	}
	rows, err := s.repo.ListClanMembers(ctx, nil, clanID)
	if err != nil {
		return err
	}
	captures, err := s.repo.CountCapturedLeaderboards(ctx, nil, clanID)
	if err != nil {
		return err
	}

	members := make([]rankingdomain.ClanMember, len(rows))
	for i, r := range rows {
		members[i] = rankingdomain.ClanMember{
			PlayerID:        r.PlayerID,
			PP:              r.PP,
			Rank:            r.Rank,
			RankedAccuracy:  r.RankedAccuracy,
			RankedPlayCount: r.RankedPlayCount,
		}
	}
	agg := rankingdomain.AggregateClan(members, captures, rankedPool)

	clan.PP = agg.PP
	clan.AverageAccuracy = agg.AverageAccuracy
	clan.AverageRank = agg.AverageRank
	clan.RankedPoolPercentCaptured = agg.RankedPoolPercentCaptured
	clan.CaptureLeaderboardsCount = agg.CaptureLeaderboardsCount
	clan.PlayersCount = agg.PlayersCount
	return s.repo.UpdateClanAggregate(context.WithoutCancel(ctx), nil, clan)
}

// withStaleClanStandings adds to ids every candidate leaderboard that still
// holds stored clan standings. The result is sorted.
func (s *RankingService) withStaleClanStandings(ctx context.Context, ids, candidates []string, report *BatchReport) []string {
	if len(candidates) > 0 {
		stale, err := s.repo.ListClanRankedLeaderboardIDs(ctx, nil)
		if err != nil {
			report.SkippedItems += len(candidates)
			s.logger.WarnContext(ctx, "Failed to list leaderboards with clan standings", slog.Any("error", err))
		} else {
			for _, id := range candidates {
				if _, ok := slices.BinarySearch(stale, id); ok {
					ids = append(ids, id)
				}
			}
		}
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}

// RefreshClanRankings re-ranks the clans of the given leaderboards.
func (s *RankingService) RefreshClanRankings(ctx context.Context, caps authdomain.Capabilities, leaderboardIDs []string) (BatchReport, error) {
	if err := authorize(caps, authdomain.PermRefreshClans); err != nil {
		return BatchReport{}, err
	}
	if len(leaderboardIDs) == 0 {
		return BatchReport{}, fmt.Errorf("%w: no leaderboards given", ErrInvalidInput)
	}

	return withTelemetry(s, ctx, "RefreshClanRankings", fmt.Sprint(leaderboardIDs), func(ctx context.Context) (BatchReport, error) {
		var report BatchReport
		s.refreshClans(ctx, leaderboardIDs, &report)
		report.Leaderboards = len(leaderboardIDs)
		if report.Cancelled {
			return report, ctx.Err()
		}
		return report, nil
	})
}

// RefreshAllClanRankings re-ranks the clans of every pp-bearing leaderboard
// and of every leaderboard that still has a captor or stored standings.
func (s *RankingService) RefreshAllClanRankings(ctx context.Context, caps authdomain.Capabilities) (BatchReport, error) {
	if err := authorize(caps, authdomain.PermRefreshClans); err != nil {
		return BatchReport{}, err
	}

	return withTelemetry(s, ctx, "RefreshAllClanRankings", "all", func(ctx context.Context) (BatchReport, error) {
		var report BatchReport
		var ids, demoted []string
		after := ""
		for {
			page, err := s.repo.ListLeaderboardsPage(ctx, nil, after, s.settings.PageSize)
			if err != nil {
				return report, err
			}
			for _, lb := range page {
				if lb.Status.PPBearing() || lb.CaptorClanID != nil {
					ids = append(ids, lb.ID)
				} else {
					demoted = append(demoted, lb.ID)
				}
			}
			if len(page) < s.settings.PageSize {
				break
			}
			after = page[len(page)-1].ID
		}
		ids = s.withStaleClanStandings(ctx, ids, demoted, &report)

		s.refreshClans(ctx, ids, &report)
		report.Leaderboards = len(ids)
		if report.Cancelled {
			return report, ctx.Err()
		}
		return report, nil
	})
}

// OnClanMembershipChanged re-ranks every leaderboard the clan competes on and
// recomputes the clan's aggregate. A dissolved clan is only re-ranked away.
func (s *RankingService) OnClanMembershipChanged(ctx context.Context, clanID uuid.UUID) (BatchReport, error) {
	return withTelemetry(s, ctx, "OnClanMembershipChanged", clanID.String(), func(ctx context.Context) (BatchReport, error) {
		var report BatchReport
		ids, err := s.repo.ListClanLeaderboardIDs(ctx, nil, clanID)
		if err != nil {
			return report, err
		}

		var extra []uuid.UUID
		if _, err := s.repo.GetClan(ctx, nil, clanID); err == nil {
			extra = append(extra, clanID)
		} else if !errors.Is(err, rankingdb.ErrNotFound) {
			return report, err
		}

		s.refreshClansTouching(ctx, ids, extra, &report)
		report.Leaderboards = len(ids)
		if report.Cancelled {
			return report, ctx.Err()
		}
		return report, nil
	})
}
