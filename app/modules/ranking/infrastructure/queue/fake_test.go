package rankingqueue

import (
	"context"
	"sync"

	authdomain "github.com/Black-And-White-Club/rhythm-ranker/app/modules/auth/domain"
	rankingservice "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/application"
	rankingdomain "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/domain"
	"github.com/google/uuid"
)

// FakeRankingService records calls and returns programmable results.
type FakeRankingService struct {
	mu    sync.Mutex
	trace []string

	ProcessScoreFunc           func(ctx context.Context, scoreID int64) (*rankingservice.ScoreOutcome, error)
	RefreshLeaderboardFunc     func(ctx context.Context, caps authdomain.Capabilities, leaderboardID string, opts rankingservice.RefreshOptions) (rankingservice.BatchReport, error)
	RefreshAllLeaderboardsFunc func(ctx context.Context, caps authdomain.Capabilities, opts rankingservice.RefreshOptions) (rankingservice.BatchReport, error)
	RefreshAllPlayersFunc      func(ctx context.Context, caps authdomain.Capabilities, contexts []rankingdomain.Context) (rankingservice.BatchReport, error)
	RefreshGlobalRanksFunc     func(ctx context.Context, caps authdomain.Capabilities, contexts []rankingdomain.Context) (rankingservice.BatchReport, error)
	RefreshAllClanRankingsFunc func(ctx context.Context, caps authdomain.Capabilities) (rankingservice.BatchReport, error)
	OnClanMembershipFunc       func(ctx context.Context, clanID uuid.UUID) (rankingservice.BatchReport, error)
}

var _ rankingservice.Service = (*FakeRankingService)(nil)

func (f *FakeRankingService) record(step string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trace = append(f.trace, step)
}

// Trace returns the called methods in order.
func (f *FakeRankingService) Trace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.trace...)
}

func (f *FakeRankingService) ProcessScore(ctx context.Context, scoreID int64) (*rankingservice.ScoreOutcome, error) {
	f.record("ProcessScore")
	if f.ProcessScoreFunc != nil {
		return f.ProcessScoreFunc(ctx, scoreID)
	}
	return &rankingservice.ScoreOutcome{ScoreID: scoreID}, nil
}

func (f *FakeRankingService) RefreshLeaderboard(ctx context.Context, caps authdomain.Capabilities, leaderboardID string, opts rankingservice.RefreshOptions) (rankingservice.BatchReport, error) {
	f.record("RefreshLeaderboard")
	if f.RefreshLeaderboardFunc != nil {
		return f.RefreshLeaderboardFunc(ctx, caps, leaderboardID, opts)
	}
	return rankingservice.BatchReport{Leaderboards: 1}, nil
}

func (f *FakeRankingService) RefreshAllLeaderboards(ctx context.Context, caps authdomain.Capabilities, opts rankingservice.RefreshOptions) (rankingservice.BatchReport, error) {
	f.record("RefreshAllLeaderboards")
	if f.RefreshAllLeaderboardsFunc != nil {
		return f.RefreshAllLeaderboardsFunc(ctx, caps, opts)
	}
	return rankingservice.BatchReport{}, nil
}

func (f *FakeRankingService) RefreshPlayer(ctx context.Context, caps authdomain.Capabilities, playerID string, contexts []rankingdomain.Context) (rankingservice.BatchReport, error) {
	f.record("RefreshPlayer")
	return rankingservice.BatchReport{Players: 1}, nil
}

func (f *FakeRankingService) RefreshAllPlayers(ctx context.Context, caps authdomain.Capabilities, contexts []rankingdomain.Context) (rankingservice.BatchReport, error) {
	f.record("RefreshAllPlayers")
	if f.RefreshAllPlayersFunc != nil {
		return f.RefreshAllPlayersFunc(ctx, caps, contexts)
	}
	return rankingservice.BatchReport{}, nil
}

func (f *FakeRankingService) RefreshGlobalRanks(ctx context.Context, caps authdomain.Capabilities, contexts []rankingdomain.Context) (rankingservice.BatchReport, error) {
	f.record("RefreshGlobalRanks")
	if f.RefreshGlobalRanksFunc != nil {
		return f.RefreshGlobalRanksFunc(ctx, caps, contexts)
	}
	return rankingservice.BatchReport{}, nil
}

func (f *FakeRankingService) RefreshClanRankings(ctx context.Context, caps authdomain.Capabilities, leaderboardIDs []string) (rankingservice.BatchReport, error) {
	f.record("RefreshClanRankings")
	return rankingservice.BatchReport{}, nil
}

func (f *FakeRankingService) RefreshAllClanRankings(ctx context.Context, caps authdomain.Capabilities) (rankingservice.BatchReport, error) {
	f.record("RefreshAllClanRankings")
	if f.RefreshAllClanRankingsFunc != nil {
		return f.RefreshAllClanRankingsFunc(ctx, caps)
	}
	return rankingservice.BatchReport{}, nil
}

func (f *FakeRankingService) OnClanMembershipChanged(ctx context.Context, clanID uuid.UUID) (rankingservice.BatchReport, error) {
	f.record("OnClanMembershipChanged")
	if f.OnClanMembershipFunc != nil {
		return f.OnClanMembershipFunc(ctx, clanID)
	}
	return rankingservice.BatchReport{}, nil
}

func (f *FakeRankingService) ResetContextColumn(ctx context.Context, caps authdomain.Capabilities, c rankingdomain.Context, column string) (int64, error) {
	f.record("ResetContextColumn")
	return 0, nil
}

func (f *FakeRankingService) TopPlayers(ctx context.Context, caps authdomain.Capabilities, c rankingdomain.Context, n int) ([]rankingdomain.GlobalRank, error) {
	f.record("TopPlayers")
	return nil, nil
}
