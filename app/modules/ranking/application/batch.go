package rankingservice

import (
	"context"
	"log/slog"

	rankingdomain "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/domain"
	rankingmetrics "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/infrastructure/metrics"
	rankingdb "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/infrastructure/repositories"
	"github.com/uptrace/bun"
)

type scoreKey struct {
	context rankingdomain.Context
	rowID   int64
}

type playerKey struct {
	context  rankingdomain.Context
	playerID string
}

// chunkWriter buffers partial updates and commits them in chunks bounded by
// the number of dirty fields. Each chunk runs in its own transaction; a
// failed chunk is rolled back, discarded and counted. Writes are added one
// group at a time and a group is never split across chunks.
type chunkWriter struct {
	s         *RankingService
	report    *BatchReport
	threshold int

	scores    []rankingdb.ScorePatch
	scoreIdx  map[scoreKey]int
	players   []rankingdb.PlayerPatch
	playerIdx map[playerKey]int
	boards    []rankingdb.LeaderboardPatch
	dirty     int
}

func newChunkWriter(s *RankingService, report *BatchReport) *chunkWriter {
	w := &chunkWriter{s: s, report: report, threshold: s.settings.FlushThreshold}
	w.reset()
	return w
}

func (w *chunkWriter) reset() {
	w.scores = nil
	w.scoreIdx = make(map[scoreKey]int)
	w.players = nil
	w.playerIdx = make(map[playerKey]int)
	w.boards = nil
	w.dirty = 0
}

func (w *chunkWriter) pending() int {
	return len(w.scores) + len(w.players) + len(w.boards)
}

// writeGroup is one atomic unit of buffered writes, typically all patches of
// one leaderboard in one context or of one player.
type writeGroup struct {
	scores  []rankingdb.ScorePatch
	players []rankingdb.PlayerPatch
	board   *rankingdb.LeaderboardPatch
}

func (g writeGroup) dirtyFields() int {
	n := 0
	for _, p := range g.scores {
		n += len(p.Columns)
	}
	for _, p := range g.players {
		n += len(p.Columns)
	}
	if g.board != nil {
		n++
	}
	return n
}

// add buffers a group, committing the current chunk first if the group would
// push it past the threshold.
func (w *chunkWriter) add(ctx context.Context, g writeGroup) {
	n := g.dirtyFields()
	if n == 0 {
		return
	}
	if w.dirty > 0 && w.dirty+n > w.threshold {
		w.flush(ctx)
	}

	for _, p := range g.scores {
		w.attachScore(p)
	}
	for _, p := range g.players {
		w.attachPlayer(p)
	}
	if g.board != nil {
		w.boards = append(w.boards, *g.board)
		w.dirty++
	}

	if w.dirty >= w.threshold {
		w.flush(ctx)
	}
}

// attachScore buffers p. A row that is already pending is merged instead of
// attached twice.
func (w *chunkWriter) attachScore(p rankingdb.ScorePatch) {
	if len(p.Columns) == 0 {
		return
	}
	key := scoreKey{context: p.Context, rowID: p.RowID}
	if i, ok := w.scoreIdx[key]; ok {
		before := len(w.scores[i].Columns)
		w.scores[i].Merge(p)
		w.dirty += len(w.scores[i].Columns) - before
		return
	}
	w.scoreIdx[key] = len(w.scores)
	w.scores = append(w.scores, p)
	w.dirty += len(p.Columns)
}

func (w *chunkWriter) attachPlayer(p rankingdb.PlayerPatch) {
	if len(p.Columns) == 0 {
		return
	}
	key := playerKey{context: p.Context, playerID: p.PlayerID}
	if i, ok := w.playerIdx[key]; ok {
		before := len(w.players[i].Columns)
		w.players[i].Merge(p)
		w.dirty += len(w.players[i].Columns) - before
		return
	}
	w.playerIdx[key] = len(w.players)
	w.players = append(w.players, p)
	w.dirty += len(p.Columns)
}

// flush commits the buffered chunk. The commit ignores cancellation of ctx so
// an issued chunk always either commits or rolls back as a whole.
func (w *chunkWriter) flush(ctx context.Context) {
	if w.pending() == 0 {
		return
	}
	scores, players, boards := w.scores, w.players, w.boards
	rows := w.pending()
	w.reset()

	commitCtx := context.WithoutCancel(ctx)
	err := w.s.runInTx(commitCtx, func(ctx context.Context, db bun.IDB) error {
		if err := w.s.repo.PatchScores(ctx, db, scores); err != nil {
			return err
		}
		if err := w.s.repo.PatchPlayers(ctx, db, players); err != nil {
			return err
		}
		return w.s.repo.PatchLeaderboards(ctx, db, boards)
	})
	if err != nil {
		w.report.FailedChunks++
		w.report.FailedRows += rows
		w.s.logger.WarnContext(ctx, "Chunk commit failed, discarding",
			slog.Int("rows", rows),
			slog.Any("error", err),
		)
		if w.s.metrics != nil {
			w.s.metrics.RecordChunk(ctx, rankingmetrics.ChunkFailed, rows)
		}
		return
	}

	w.report.CommittedChunks++
	w.report.ScoresWritten += len(scores)
	w.report.PlayersWritten += len(players)
	if w.s.metrics != nil {
		w.s.metrics.RecordChunk(ctx, rankingmetrics.ChunkCommitted, rows)
	}
}

// discard drops the buffered chunk without writing it.
func (w *chunkWriter) discard() {
	w.report.SkippedItems += w.pending()
	w.reset()
}

// diffScore returns the columns whose value differs between old and next.
func diffScore(old, next rankingdb.ScoreFields) []string {
	var cols []string
	if old.ModifiedScore != next.ModifiedScore {
		cols = append(cols, rankingdb.ColModifiedScore)
	}
	if old.Accuracy != next.Accuracy {
		cols = append(cols, rankingdb.ColAccuracy)
	}
	if old.PP != next.PP {
		cols = append(cols, rankingdb.ColPP)
	}
	if old.AccPP != next.AccPP {
		cols = append(cols, rankingdb.ColAccPP)
	}
	if old.PassPP != next.PassPP {
		cols = append(cols, rankingdb.ColPassPP)
	}
	if old.TechPP != next.TechPP {
		cols = append(cols, rankingdb.ColTechPP)
	}
	if old.BonusPP != next.BonusPP {
		cols = append(cols, rankingdb.ColBonusPP)
	}
	if old.Rank != next.Rank {
		cols = append(cols, rankingdb.ColRank)
	}
	if old.Priority != next.Priority {
		cols = append(cols, rankingdb.ColPriority)
	}
	if old.Weight != next.Weight {
		cols = append(cols, rankingdb.ColWeight)
	}
	return cols
}
