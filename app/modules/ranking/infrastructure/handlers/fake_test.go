package rankinghandlers

import (
	"context"
	"sync"

	authdomain "github.com/Black-And-White-Club/rhythm-ranker/app/modules/auth/domain"
	rankingservice "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/application"
	rankingdomain "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/domain"
	rankingqueue "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/infrastructure/queue"
	"github.com/google/uuid"
	"github.com/riverqueue/river"
)

// FakeService records calls and returns programmable results. Unset funcs
// return zero values.
type FakeService struct {
	mu    sync.Mutex
	trace []string

	ProcessScoreFunc            func(ctx context.Context, scoreID int64) (*rankingservice.ScoreOutcome, error)
	RefreshLeaderboardFunc      func(ctx context.Context, caps authdomain.Capabilities, leaderboardID string, opts rankingservice.RefreshOptions) (rankingservice.BatchReport, error)
	RefreshAllLeaderboardsFunc  func(ctx context.Context, caps authdomain.Capabilities, opts rankingservice.RefreshOptions) (rankingservice.BatchReport, error)
	RefreshPlayerFunc           func(ctx context.Context, caps authdomain.Capabilities, playerID string, contexts []rankingdomain.Context) (rankingservice.BatchReport, error)
	RefreshAllPlayersFunc       func(ctx context.Context, caps authdomain.Capabilities, contexts []rankingdomain.Context) (rankingservice.BatchReport, error)
	RefreshGlobalRanksFunc      func(ctx context.Context, caps authdomain.Capabilities, contexts []rankingdomain.Context) (rankingservice.BatchReport, error)
	RefreshClanRankingsFunc     func(ctx context.Context, caps authdomain.Capabilities, leaderboardIDs []string) (rankingservice.BatchReport, error)
	RefreshAllClanRankingsFunc  func(ctx context.Context, caps authdomain.Capabilities) (rankingservice.BatchReport, error)
	OnClanMembershipChangedFunc func(ctx context.Context, clanID uuid.UUID) (rankingservice.BatchReport, error)
	ResetContextColumnFunc      func(ctx context.Context, caps authdomain.Capabilities, c rankingdomain.Context, column string) (int64, error)
	TopPlayersFunc              func(ctx context.Context, caps authdomain.Capabilities, c rankingdomain.Context, n int) ([]rankingdomain.GlobalRank, error)
}

var _ rankingservice.Service = (*FakeService)(nil)

func (f *FakeService) record(step string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trace = append(f.trace, step)
}

// Trace returns the called methods in order.
func (f *FakeService) Trace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.trace...)
}

func (f *FakeService) ProcessScore(ctx context.Context, scoreID int64) (*rankingservice.ScoreOutcome, error) {
	f.record("ProcessScore")
	if f.ProcessScoreFunc != nil {
		return f.ProcessScoreFunc(ctx, scoreID)
	}
	return &rankingservice.ScoreOutcome{ScoreID: scoreID}, nil
}

func (f *FakeService) RefreshLeaderboard(ctx context.Context, caps authdomain.Capabilities, leaderboardID string, opts rankingservice.RefreshOptions) (rankingservice.BatchReport, error) {
	f.record("RefreshLeaderboard")
	if f.RefreshLeaderboardFunc != nil {
		return f.RefreshLeaderboardFunc(ctx, caps, leaderboardID, opts)
	}
	return rankingservice.BatchReport{}, nil
}

func (f *FakeService) RefreshAllLeaderboards(ctx context.Context, caps authdomain.Capabilities, opts rankingservice.RefreshOptions) (rankingservice.BatchReport, error) {
	f.record("RefreshAllLeaderboards")
	if f.RefreshAllLeaderboardsFunc != nil {
		return f.RefreshAllLeaderboardsFunc(ctx, caps, opts)
	}
	return rankingservice.BatchReport{}, nil
}

func (f *FakeService) RefreshPlayer(ctx context.Context, caps authdomain.Capabilities, playerID string, contexts []rankingdomain.Context) (rankingservice.BatchReport, error) {
	f.record("RefreshPlayer")
	if f.RefreshPlayerFunc != nil {
		return f.RefreshPlayerFunc(ctx, caps, playerID, contexts)
	}
	return rankingservice.BatchReport{}, nil
}

func (f *FakeService) RefreshAllPlayers(ctx context.Context, caps authdomain.Capabilities, contexts []rankingdomain.Context) (rankingservice.BatchReport, error) {
	f.record("RefreshAllPlayers")
	if f.RefreshAllPlayersFunc != nil {
		return f.RefreshAllPlayersFunc(ctx, caps, contexts)
	}
	return rankingservice.BatchReport{}, nil
}

func (f *FakeService) RefreshGlobalRanks(ctx context.Context, caps authdomain.Capabilities, contexts []rankingdomain.Context) (rankingservice.BatchReport, error) {
	f.record("RefreshGlobalRanks")
	if f.RefreshGlobalRanksFunc != nil {
		return f.RefreshGlobalRanksFunc(ctx, caps, contexts)
	}
	return rankingservice.BatchReport{}, nil
}

func (f *FakeService) RefreshClanRankings(ctx context.Context, caps authdomain.Capabilities, leaderboardIDs []string) (rankingservice.BatchReport, error) {
	f.record("RefreshClanRankings")
	if f.RefreshClanRankingsFunc != nil {
		return f.RefreshClanRankingsFunc(ctx, caps, leaderboardIDs)
	}
	return rankingservice.BatchReport{}, nil
}

func (f *FakeService) RefreshAllClanRankings(ctx context.Context, caps authdomain.Capabilities) (rankingservice.BatchReport, error) {
	f.record("RefreshAllClanRankings")
	if f.RefreshAllClanRankingsFunc != nil {
		return f.RefreshAllClanRankingsFunc(ctx, caps)
	}
	return rankingservice.BatchReport{}, nil
}

func (f *FakeService) OnClanMembershipChanged(ctx context.Context, clanID uuid.UUID) (rankingservice.BatchReport, error) {
	f.record("OnClanMembershipChanged")
	if f.OnClanMembershipChangedFunc != nil {
		return f.OnClanMembershipChangedFunc(ctx, clanID)
	}
	return rankingservice.BatchReport{}, nil
}

func (f *FakeService) ResetContextColumn(ctx context.Context, caps authdomain.Capabilities, c rankingdomain.Context, column string) (int64, error) {
	f.record("ResetContextColumn")
	if f.ResetContextColumnFunc != nil {
		return f.ResetContextColumnFunc(ctx, caps, c, column)
	}
	return 0, nil
}

func (f *FakeService) TopPlayers(ctx context.Context, caps authdomain.Capabilities, c rankingdomain.Context, n int) ([]rankingdomain.GlobalRank, error) {
	f.record("TopPlayers")
	if f.TopPlayersFunc != nil {
		return f.TopPlayersFunc(ctx, caps, c, n)
	}
	return nil, nil
}

// FakeEnqueuer captures inserted jobs.
type FakeEnqueuer struct {
	Jobs        []river.JobArgs
	EnqueueFunc func(ctx context.Context, job river.JobArgs) (rankingqueue.EnqueueResult, error)
}

func (f *FakeEnqueuer) Enqueue(ctx context.Context, job river.JobArgs) (rankingqueue.EnqueueResult, error) {
	f.Jobs = append(f.Jobs, job)
	if f.EnqueueFunc != nil {
		return f.EnqueueFunc(ctx, job)
	}
	return rankingqueue.EnqueueResult{JobID: int64(len(f.Jobs)), Kind: job.Kind()}, nil
}
