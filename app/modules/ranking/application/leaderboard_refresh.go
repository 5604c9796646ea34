package rankingservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	authdomain "github.com/Black-And-White-Club/rhythm-ranker/app/modules/auth/domain"
	rankingdomain "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/domain"
	rankingdb "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/infrastructure/repositories"
	"golang.org/x/sync/errgroup"
)

// leaderboardResult is the computed state of one leaderboard in one context.
type leaderboardResult struct {
	leaderboardID string
	context       rankingdomain.Context
	ppBearing     bool
	// captured reports whether the leaderboard had a captor when loaded.
	captured bool
	patches  []rankingdb.ScorePatch
	board    *rankingdb.LeaderboardPatch
	// final holds every row's recomputed fields keyed by row id.
	final map[int64]rankingdb.ScoreFields
	// rowOf maps a score id to its row id in this context.
	rowOf   map[int64]int64
	skipped int
	err     error
}

// clearedFields drops the ranking state of a row that no longer competes.
func clearedFields(f rankingdb.ScoreFields) rankingdb.ScoreFields {
	f.PP, f.AccPP, f.PassPP, f.TechPP, f.BonusPP = 0, 0, 0, 0, 0
	f.Rank = 0
	f.Weight = 0
	return f
}

// computeLeaderboard normalizes, prices and ranks every row of a leaderboard
// in one context and returns patches for the fields that changed. Rows with
// malformed modifiers keep their stored values and are still ranked. Excluded
// rows are not ranked and lose their rank, pp and weight.
func (s *RankingService) computeLeaderboard(ctx context.Context, lb *rankingdb.Leaderboard, c rankingdomain.Context, all []rankingdb.ScoreRow, ranksOnly bool) leaderboardResult {
	ppBearing := lb.Status.PPBearing()
	rows := make([]rankingdb.ScoreRow, 0, len(all))
	var excluded []rankingdb.ScoreRow
	for _, row := range all {
		if row.Excluded {
			excluded = append(excluded, row)
			continue
		}
		rows = append(rows, row)
	}

	res := leaderboardResult{
		leaderboardID: lb.ID,
		context:       c,
		ppBearing:     ppBearing,
		captured:      lb.CaptorClanID != nil,
		final:         make(map[int64]rankingdb.ScoreFields, len(rows)),
		rowOf:         make(map[int64]int64, len(rows)),
	}

	next := make([]rankingdb.ScoreFields, len(rows))
	entries := make([]rankingdomain.RankEntry, len(rows))
	for i, row := range rows {
		f := row.Fields()
		if !ranksOnly {
			norm, err := rankingdomain.Normalize(rankingdomain.NormalizeInput{
				BaseScore: row.BaseScore,
				Modifiers: row.Modifiers,
				MaxScore:  lb.MaxScore,
				Notes:     lb.Notes,
				PPBearing: ppBearing,
				Values:    lb.ModifierValues,
			})
			if err != nil {
				res.skipped++
				s.logger.WarnContext(ctx, "Skipping score with malformed modifiers",
					slog.Int64("row_id", row.RowID),
					slog.String("leaderboard_id", lb.ID),
					slog.Any("error", err),
				)
			} else {
				pp := rankingdomain.ComputePP(s.calc, rankingdomain.PPInput{
					Accuracy:        norm.Accuracy,
					Context:         c,
					Modifiers:       norm.Modifiers,
					ModifierValues:  lb.ModifierValues,
					ModifierRatings: lb.ModifierRatings,
					AccRating:       lb.AccRating,
					PassRating:      lb.PassRating,
					TechRating:      lb.TechRating,
					StandardMode:    lb.StandardMode(),
					PPBearing:       ppBearing,
				})
				f.ModifiedScore = norm.ModifiedScore
				f.Accuracy = norm.Accuracy
				f.Priority = norm.Priority
				f.PP = pp.PP
				f.AccPP = pp.AccPP
				f.PassPP = pp.PassPP
				f.TechPP = pp.TechPP
				f.BonusPP = pp.BonusPP
			}
		}
		next[i] = f
		entries[i] = rankingdomain.RankEntry{
			ID:            row.RowID,
			PP:            f.PP,
			Accuracy:      f.Accuracy,
			ModifiedScore: f.ModifiedScore,
			Priority:      f.Priority,
			Timepost:      row.Timepost,
		}
	}

	ranks := rankingdomain.AssignRanks(entries, rankingdomain.PolicyFor(lb.Status, c))
	rankByID := make(map[int64]int, len(ranks))
	for _, r := range ranks {
		rankByID[r.ID] = r.Rank
	}

	for i, row := range rows {
		next[i].Rank = rankByID[row.RowID]
		res.final[row.RowID] = next[i]
		res.rowOf[row.ScoreID] = row.RowID
		if cols := diffScore(row.Fields(), next[i]); len(cols) > 0 {
			res.patches = append(res.patches, rankingdb.ScorePatch{
				RowID:   row.RowID,
				Context: c,
				Fields:  next[i],
				Columns: cols,
			})
		}
	}

	for _, row := range excluded {
		cleared := clearedFields(row.Fields())
		if cols := diffScore(row.Fields(), cleared); len(cols) > 0 {
			res.patches = append(res.patches, rankingdb.ScorePatch{
				RowID:   row.RowID,
				Context: c,
				Fields:  cleared,
				Columns: cols,
			})
		}
	}

	if c == rankingdomain.ContextGeneral && lb.Plays != len(rows) {
		res.board = &rankingdb.LeaderboardPatch{ID: lb.ID, Plays: len(rows)}
	}
	return res
}

// loadAndCompute reads one leaderboard's rows in one context and computes them.
func (s *RankingService) loadAndCompute(ctx context.Context, lb *rankingdb.Leaderboard, c rankingdomain.Context, ranksOnly bool) leaderboardResult {
	rows, err := s.repo.ListLeaderboardScores(ctx, nil, lb.ID, c)
	if err != nil {
		return leaderboardResult{leaderboardID: lb.ID, context: c, err: err}
	}
	return s.computeLeaderboard(ctx, lb, c, rows, ranksOnly)
}

// computePage computes every (leaderboard, context) pair of a page on a
// bounded pool. Results come back in page order, then context order.
func (s *RankingService) computePage(ctx context.Context, page []rankingdb.Leaderboard, contexts []rankingdomain.Context, ranksOnly bool) []leaderboardResult {
	results := make([]leaderboardResult, len(page)*len(contexts))

	var g errgroup.Group
	g.SetLimit(s.settings.LeaderboardWorkers)
	for i := range page {
		lb := &page[i]
		for j, c := range contexts {
			slot := i*len(contexts) + j
			g.Go(func() error {
				results[slot] = s.loadAndCompute(ctx, lb, c, ranksOnly)
				return nil
			})
		}
	}
	_ = g.Wait()
	return results
}

// applyLeaderboardResult buffers a computed leaderboard and records its outcome.
func (s *RankingService) applyLeaderboardResult(ctx context.Context, w *chunkWriter, report *BatchReport, res leaderboardResult) {
	report.SkippedItems += res.skipped
	if res.err != nil {
		report.SkippedItems++
		s.logger.WarnContext(ctx, "Skipping leaderboard",
			slog.String("leaderboard_id", res.leaderboardID),
			slog.String("context", res.context.String()),
			slog.Any("error", res.err),
		)
		return
	}
	w.add(ctx, writeGroup{scores: res.patches, board: res.board})
}

// RefreshLeaderboard recomputes one leaderboard in the requested contexts and
// then re-ranks its clans.
func (s *RankingService) RefreshLeaderboard(ctx context.Context, caps authdomain.Capabilities, leaderboardID string, opts RefreshOptions) (BatchReport, error) {
	if err := authorize(caps, authdomain.PermRefreshLeaderboard); err != nil {
		return BatchReport{}, err
	}

	return withTelemetry(s, ctx, "RefreshLeaderboard", leaderboardID, func(ctx context.Context) (BatchReport, error) {
		lb, err := s.repo.GetLeaderboard(ctx, nil, leaderboardID)
		if err != nil {
			if errors.Is(err, rankingdb.ErrNotFound) {
				return BatchReport{}, fmt.Errorf("%w: %s", ErrLeaderboardNotFound, leaderboardID)
			}
			return BatchReport{}, err
		}

		var report BatchReport
		w := newChunkWriter(s, &report)
		for _, c := range opts.contexts() {
			s.applyLeaderboardResult(ctx, w, &report, s.loadAndCompute(ctx, lb, c, opts.RanksOnly))
		}
		w.flush(ctx)
		report.Leaderboards = 1

		if !opts.SkipClans && !opts.RanksOnly {
			s.refreshClans(ctx, []string{lb.ID}, &report)
		}
		return report, nil
	})
}

// RefreshAllLeaderboards recomputes every leaderboard page by page, then runs
// the clan pass over the pp-bearing leaderboards it touched and over demoted
// leaderboards that still carry clan state.
func (s *RankingService) RefreshAllLeaderboards(ctx context.Context, caps authdomain.Capabilities, opts RefreshOptions) (BatchReport, error) {
	if err := authorize(caps, authdomain.PermRefreshAll); err != nil {
		return BatchReport{}, err
	}

	return withTelemetry(s, ctx, "RefreshAllLeaderboards", fmt.Sprintf("ranksOnly=%t", opts.RanksOnly), func(ctx context.Context) (BatchReport, error) {
		var report BatchReport
		w := newChunkWriter(s, &report)
		contexts := opts.contexts()

		var touched, demoted []string
		after := ""
		for {
			if ctx.Err() != nil {
				w.discard()
				report.Cancelled = true
				return report, ctx.Err()
			}

			page, err := s.repo.ListLeaderboardsPage(ctx, nil, after, s.settings.PageSize)
			if err != nil {
				w.flush(ctx)
				return report, err
			}
			if len(page) == 0 {
				break
			}

			for _, res := range s.computePage(ctx, page, contexts, opts.RanksOnly) {
				if ctx.Err() != nil {
					break
				}
				s.applyLeaderboardResult(ctx, w, &report, res)
				if res.err != nil || res.context != rankingdomain.ContextGeneral {
					continue
				}
				if res.ppBearing || res.captured {
					touched = append(touched, res.leaderboardID)
				} else {
					demoted = append(demoted, res.leaderboardID)
				}
			}

			report.Leaderboards += len(page)
			if s.metrics != nil {
				s.metrics.RecordItems(ctx, "leaderboard", len(page))
			}
			s.logger.InfoContext(ctx, "Leaderboard page processed",
				slog.String("after", after),
				slog.Int("leaderboards", len(page)),
				slog.Int("committed_chunks", report.CommittedChunks),
				slog.Int("failed_chunks", report.FailedChunks),
			)

			after = page[len(page)-1].ID
			if len(page) < s.settings.PageSize {
				break
			}
		}
		if ctx.Err() != nil {
			w.discard()
			report.Cancelled = true
			return report, ctx.Err()
		}
		w.flush(ctx)

		if opts.SkipClans || opts.RanksOnly {
			return report, nil
		}
		touched = s.withStaleClanStandings(ctx, touched, demoted, &report)
		if len(touched) > 0 {
			s.refreshClans(ctx, touched, &report)
		}
		return report, nil
	})
}
