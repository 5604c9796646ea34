package rankingservice

import (
	"context"

	authdomain "github.com/Black-And-White-Club/rhythm-ranker/app/modules/auth/domain"
	rankingdomain "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/domain"
	rankingevents "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/domain/events"
	"github.com/google/uuid"
)

// Service is the ranking engine's entry point. Operations taking
// Capabilities are administrative and reject callers lacking the required
// permission before doing any work.
type Service interface {
	// ProcessScore ranks a newly submitted score in every context it counts
	// toward and refreshes its player's aggregates.
	ProcessScore(ctx context.Context, scoreID int64) (*ScoreOutcome, error)

	RefreshLeaderboard(ctx context.Context, caps authdomain.Capabilities, leaderboardID string, opts RefreshOptions) (BatchReport, error)
	RefreshAllLeaderboards(ctx context.Context, caps authdomain.Capabilities, opts RefreshOptions) (BatchReport, error)

	RefreshPlayer(ctx context.Context, caps authdomain.Capabilities, playerID string, contexts []rankingdomain.Context) (BatchReport, error)
	RefreshAllPlayers(ctx context.Context, caps authdomain.Capabilities, contexts []rankingdomain.Context) (BatchReport, error)
	RefreshGlobalRanks(ctx context.Context, caps authdomain.Capabilities, contexts []rankingdomain.Context) (BatchReport, error)

	RefreshClanRankings(ctx context.Context, caps authdomain.Capabilities, leaderboardIDs []string) (BatchReport, error)
	RefreshAllClanRankings(ctx context.Context, caps authdomain.Capabilities) (BatchReport, error)
	// OnClanMembershipChanged re-ranks every leaderboard the clan competes on
	// and recomputes its aggregate. Called on join, leave, kick, create and dissolve.
	OnClanMembershipChanged(ctx context.Context, clanID uuid.UUID) (BatchReport, error)

	// ResetContextColumn zeroes one score column across a whole context.
	ResetContextColumn(ctx context.Context, caps authdomain.Capabilities, c rankingdomain.Context, column string) (int64, error)

	// TopPlayers returns the best n players of a context.
	TopPlayers(ctx context.Context, caps authdomain.Capabilities, c rankingdomain.Context, n int) ([]rankingdomain.GlobalRank, error)
}

// Notifier publishes fire-and-forget ranking events.
type Notifier interface {
	PublishScore(ctx context.Context, event rankingevents.ScoreUpdatedEvent) error
	PublishClanCapture(ctx context.Context, event rankingevents.ClanCaptureChangedEvent) error
}

// RankingMirror keeps a read-optimised copy of global rankings.
type RankingMirror interface {
	Replace(ctx context.Context, c rankingdomain.Context, ranks []rankingdomain.GlobalRank) error
	Top(ctx context.Context, c rankingdomain.Context, n int) ([]rankingdomain.GlobalRank, error)
}
