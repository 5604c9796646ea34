package rankingqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	authdomain "github.com/Black-And-White-Club/rhythm-ranker/app/modules/auth/domain"
	rankingservice "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/application"
	rankingdomain "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/domain"
	"github.com/google/uuid"
	"github.com/riverqueue/river"
)

// permanent reports errors that retrying cannot fix.
func permanent(err error) bool {
	return errors.Is(err, rankingservice.ErrScoreNotFound) ||
		errors.Is(err, rankingservice.ErrLeaderboardNotFound) ||
		errors.Is(err, rankingservice.ErrPlayerNotFound) ||
		errors.Is(err, rankingservice.ErrInvalidInput) ||
		errors.Is(err, rankingservice.ErrUnauthorized) ||
		errors.Is(err, rankingdomain.ErrUnknownContext)
}

// finish logs the outcome of a job and cancels it instead of retrying when
// the failure is permanent.
func finish(ctx context.Context, logger *slog.Logger, kind string, report rankingservice.BatchReport, err error) error {
	if err != nil {
		logger.ErrorContext(ctx, "Ranking job failed",
			slog.String("kind", kind),
			slog.Any("error", err),
		)
		if permanent(err) {
			return river.JobCancel(err)
		}
		return err
	}
	logger.InfoContext(ctx, "Ranking job completed",
		slog.String("kind", kind),
		slog.Int("leaderboards", report.Leaderboards),
		slog.Int("players", report.Players),
		slog.Int("clans", report.Clans),
		slog.Int("failed_chunks", report.FailedChunks),
		slog.Bool("cancelled", report.Cancelled),
	)
	return nil
}

func parseContexts(names []string) ([]rankingdomain.Context, error) {
	if len(names) == 0 {
		return nil, nil
	}
	return rankingdomain.ParseContexts(strings.Join(names, ","))
}

// ProcessScoreWorker handles ProcessScoreJob.
type ProcessScoreWorker struct {
	river.WorkerDefaults[ProcessScoreJob]
	service rankingservice.Service
	logger  *slog.Logger
}

func NewProcessScoreWorker(service rankingservice.Service, logger *slog.Logger) *ProcessScoreWorker {
	return &ProcessScoreWorker{service: service, logger: logger}
}

func (w *ProcessScoreWorker) Work(ctx context.Context, job *river.Job[ProcessScoreJob]) error {
	_, err := w.service.ProcessScore(ctx, job.Args.ScoreID)
	return finish(ctx, w.logger, job.Args.Kind(), rankingservice.BatchReport{}, err)
}

// RefreshLeaderboardWorker handles RefreshLeaderboardJob.
type RefreshLeaderboardWorker struct {
	river.WorkerDefaults[RefreshLeaderboardJob]
	service rankingservice.Service
	logger  *slog.Logger
}

func NewRefreshLeaderboardWorker(service rankingservice.Service, logger *slog.Logger) *RefreshLeaderboardWorker {
	return &RefreshLeaderboardWorker{service: service, logger: logger}
}

func (w *RefreshLeaderboardWorker) Work(ctx context.Context, job *river.Job[RefreshLeaderboardJob]) error {
	contexts, err := parseContexts(job.Args.Contexts)
	if err != nil {
		return finish(ctx, w.logger, job.Args.Kind(), rankingservice.BatchReport{}, err)
	}
	report, err := w.service.RefreshLeaderboard(ctx, authdomain.SystemCapabilities(), job.Args.LeaderboardID, rankingservice.RefreshOptions{
		Contexts:  contexts,
		RanksOnly: job.Args.RanksOnly,
	})
	return finish(ctx, w.logger, job.Args.Kind(), report, err)
}

// RefreshAllLeaderboardsWorker handles RefreshAllLeaderboardsJob.
type RefreshAllLeaderboardsWorker struct {
	river.WorkerDefaults[RefreshAllLeaderboardsJob]
	service rankingservice.Service
	logger  *slog.Logger
}

func NewRefreshAllLeaderboardsWorker(service rankingservice.Service, logger *slog.Logger) *RefreshAllLeaderboardsWorker {
	return &RefreshAllLeaderboardsWorker{service: service, logger: logger}
}

func (w *RefreshAllLeaderboardsWorker) Work(ctx context.Context, job *river.Job[RefreshAllLeaderboardsJob]) error {
	contexts, err := parseContexts(job.Args.Contexts)
	if err != nil {
		return finish(ctx, w.logger, job.Args.Kind(), rankingservice.BatchReport{}, err)
	}
	report, err := w.service.RefreshAllLeaderboards(ctx, authdomain.SystemCapabilities(), rankingservice.RefreshOptions{
		Contexts:  contexts,
		RanksOnly: job.Args.RanksOnly,
		SkipClans: job.Args.SkipClans,
	})
	return finish(ctx, w.logger, job.Args.Kind(), report, err)
}

// RefreshPlayersWorker handles RefreshPlayersJob.
type RefreshPlayersWorker struct {
	river.WorkerDefaults[RefreshPlayersJob]
	service rankingservice.Service
	logger  *slog.Logger
}

func NewRefreshPlayersWorker(service rankingservice.Service, logger *slog.Logger) *RefreshPlayersWorker {
	return &RefreshPlayersWorker{service: service, logger: logger}
}

func (w *RefreshPlayersWorker) Work(ctx context.Context, job *river.Job[RefreshPlayersJob]) error {
	contexts, err := parseContexts(job.Args.Contexts)
	if err != nil {
		return finish(ctx, w.logger, job.Args.Kind(), rankingservice.BatchReport{}, err)
	}
	report, err := w.service.RefreshAllPlayers(ctx, authdomain.SystemCapabilities(), contexts)
	return finish(ctx, w.logger, job.Args.Kind(), report, err)
}

// RefreshGlobalRanksWorker handles RefreshGlobalRanksJob.
type RefreshGlobalRanksWorker struct {
	river.WorkerDefaults[RefreshGlobalRanksJob]
	service rankingservice.Service
	logger  *slog.Logger
}

func NewRefreshGlobalRanksWorker(service rankingservice.Service, logger *slog.Logger) *RefreshGlobalRanksWorker {
	return &RefreshGlobalRanksWorker{service: service, logger: logger}
}

func (w *RefreshGlobalRanksWorker) Work(ctx context.Context, job *river.Job[RefreshGlobalRanksJob]) error {
	contexts, err := parseContexts(job.Args.Contexts)
	if err != nil {
		return finish(ctx, w.logger, job.Args.Kind(), rankingservice.BatchReport{}, err)
	}
	report, err := w.service.RefreshGlobalRanks(ctx, authdomain.SystemCapabilities(), contexts)
	return finish(ctx, w.logger, job.Args.Kind(), report, err)
}

// RefreshClansWorker handles RefreshClansJob.
type RefreshClansWorker struct {
	river.WorkerDefaults[RefreshClansJob]
	service rankingservice.Service
	logger  *slog.Logger
}

func NewRefreshClansWorker(service rankingservice.Service, logger *slog.Logger) *RefreshClansWorker {
	return &RefreshClansWorker{service: service, logger: logger}
}

func (w *RefreshClansWorker) Work(ctx context.Context, job *river.Job[RefreshClansJob]) error {
	report, err := w.service.RefreshAllClanRankings(ctx, authdomain.SystemCapabilities())
	return finish(ctx, w.logger, job.Args.Kind(), report, err)
}

// ClanMembershipWorker handles ClanMembershipJob.
type ClanMembershipWorker struct {
	river.WorkerDefaults[ClanMembershipJob]
	service rankingservice.Service
	logger  *slog.Logger
}

func NewClanMembershipWorker(service rankingservice.Service, logger *slog.Logger) *ClanMembershipWorker {
	return &ClanMembershipWorker{service: service, logger: logger}
}

func (w *ClanMembershipWorker) Work(ctx context.Context, job *river.Job[ClanMembershipJob]) error {
	clanID, err := uuid.Parse(job.Args.ClanID)
	if err != nil {
		err = fmt.Errorf("%w: clan id: %w", rankingservice.ErrInvalidInput, err)
		return finish(ctx, w.logger, job.Args.Kind(), rankingservice.BatchReport{}, err)
	}
	report, err := w.service.OnClanMembershipChanged(ctx, clanID)
	return finish(ctx, w.logger, job.Args.Kind(), report, err)
}

// NightlyRefreshWorker runs the full recompute in dependency order so clan
// aggregates see the final player pp.
type NightlyRefreshWorker struct {
	river.WorkerDefaults[NightlyRefreshJob]
	service rankingservice.Service
	logger  *slog.Logger
}

func NewNightlyRefreshWorker(service rankingservice.Service, logger *slog.Logger) *NightlyRefreshWorker {
	return &NightlyRefreshWorker{service: service, logger: logger}
}

func (w *NightlyRefreshWorker) Work(ctx context.Context, job *river.Job[NightlyRefreshJob]) error {
	caps := authdomain.SystemCapabilities()
	var total rankingservice.BatchReport

	report, err := w.service.RefreshAllLeaderboards(ctx, caps, rankingservice.RefreshOptions{SkipClans: true})
	total = merge(total, report)
	if err != nil || report.Cancelled {
		return finish(ctx, w.logger, job.Args.Kind(), total, err)
	}

	report, err = w.service.RefreshAllPlayers(ctx, caps, nil)
	total = merge(total, report)
	if err != nil || report.Cancelled {
		return finish(ctx, w.logger, job.Args.Kind(), total, err)
	}

	report, err = w.service.RefreshAllClanRankings(ctx, caps)
	total = merge(total, report)
	return finish(ctx, w.logger, job.Args.Kind(), total, err)
}

func merge(a, b rankingservice.BatchReport) rankingservice.BatchReport {
	a.Leaderboards += b.Leaderboards
	a.Players += b.Players
	a.Clans += b.Clans
	a.ScoresWritten += b.ScoresWritten
	a.PlayersWritten += b.PlayersWritten
	a.CommittedChunks += b.CommittedChunks
	a.FailedChunks += b.FailedChunks
	a.FailedRows += b.FailedRows
	a.SkippedItems += b.SkippedItems
	a.CaptureChanges += b.CaptureChanges
	a.Cancelled = a.Cancelled || b.Cancelled
	return a
}
