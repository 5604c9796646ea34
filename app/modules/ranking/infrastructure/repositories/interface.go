package rankingdb

import (
	"context"

	rankingdomain "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/domain"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Repository defines the persistence contract of the ranking engine. Every
// method takes the bun.IDB to run on so callers can pass a transaction; nil
// falls back to the repository's connection.
type Repository interface {
	// --- Scores ---

	// GetScore retrieves a General context score by id.
	GetScore(ctx context.Context, db bun.IDB, scoreID int64) (*Score, error)

	// ListLeaderboardScores returns the rankable scores of a leaderboard in one
	// context plus excluded rows that still hold ranking state.
	ListLeaderboardScores(ctx context.Context, db bun.IDB, leaderboardID string, c rankingdomain.Context) ([]ScoreRow, error)

	// PatchScores writes only the listed columns of each patch.
	PatchScores(ctx context.Context, db bun.IDB, patches []ScorePatch) error

	// ResetScoreColumn sets a ranking column to zero for every row of a context.
	ResetScoreColumn(ctx context.Context, db bun.IDB, c rankingdomain.Context, column string) (int64, error)

	// --- Leaderboards ---

	// GetLeaderboard retrieves a leaderboard by id.
	GetLeaderboard(ctx context.Context, db bun.IDB, leaderboardID string) (*Leaderboard, error)

	// ListLeaderboardsPage returns up to limit leaderboards with id > afterID, ordered by id.
	ListLeaderboardsPage(ctx context.Context, db bun.IDB, afterID string, limit int) ([]Leaderboard, error)

	// PatchLeaderboards updates derived leaderboard counters.
	PatchLeaderboards(ctx context.Context, db bun.IDB, patches []LeaderboardPatch) error

	// CountRankedLeaderboards returns the size of the ranked pool.
	CountRankedLeaderboards(ctx context.Context, db bun.IDB) (int, error)

	// --- Players ---

	// GetPlayer retrieves a player by id.
	GetPlayer(ctx context.Context, db bun.IDB, playerID string) (*Player, error)

	// ListPlayerIDsPage returns up to limit player ids > afterID, ordered by id.
	ListPlayerIDsPage(ctx context.Context, db bun.IDB, afterID string, limit int) ([]string, error)

	// ListPlayerScores returns a player's countable scores in one context.
	ListPlayerScores(ctx context.Context, db bun.IDB, playerID string, c rankingdomain.Context) ([]PlayerScoreRow, error)

	// GetPlayerExtension retrieves a player's aggregate in one context.
	GetPlayerExtension(ctx context.Context, db bun.IDB, playerID string, c rankingdomain.Context) (*PlayerContextExtension, error)

	// ListPlayerStandings returns every non-banned player's aggregate in one context.
	ListPlayerStandings(ctx context.Context, db bun.IDB, c rankingdomain.Context) ([]PlayerStandingRow, error)

	// PatchPlayers upserts only the listed columns of each patch.
	PatchPlayers(ctx context.Context, db bun.IDB, patches []PlayerPatch) error

	// --- Clans ---

	// GetClan retrieves a clan by id.
	GetClan(ctx context.Context, db bun.IDB, clanID uuid.UUID) (*Clan, error)

	// ListClans returns every clan ordered by id.
	ListClans(ctx context.Context, db bun.IDB) ([]Clan, error)

	// ListClanScores returns the eligible General context scores of a leaderboard
	// once per clan of the scoring player.
	ListClanScores(ctx context.Context, db bun.IDB, leaderboardID string) ([]ClanScoreRow, error)

	// ReplaceClanRankings swaps the clan standings of a leaderboard.
	ReplaceClanRankings(ctx context.Context, db bun.IDB, leaderboardID string, rankings []ClanRanking) error

	// SetLeaderboardCaptor records the capturing clan of a leaderboard. nil clears it.
	SetLeaderboardCaptor(ctx context.Context, db bun.IDB, leaderboardID string, clanID *uuid.UUID) error

	// InsertClanRankingChange appends a capture changelog entry.
	InsertClanRankingChange(ctx context.Context, db bun.IDB, change *ClanRankingChange) error

	// ListClanMembers returns the General context aggregates of a clan's members.
	ListClanMembers(ctx context.Context, db bun.IDB, clanID uuid.UUID) ([]ClanMemberRow, error)

	// CountCapturedLeaderboards returns how many leaderboards a clan captures,
	// in total and within the ranked pool.
	CountCapturedLeaderboards(ctx context.Context, db bun.IDB, clanID uuid.UUID) (rankingdomain.CaptureCounts, error)

	// UpdateClanAggregate writes a clan's derived aggregate columns.
	UpdateClanAggregate(ctx context.Context, db bun.IDB, clan *Clan) error

	// ListClanLeaderboardIDs returns the leaderboards a clan's standing depends
	// on: pp-bearing ones a member scored on, those the clan captures and those
	// still holding a stored standing for the clan.
	ListClanLeaderboardIDs(ctx context.Context, db bun.IDB, clanID uuid.UUID) ([]string, error)

	// ListClanRankedLeaderboardIDs returns every leaderboard holding at least
	// one stored clan standing, ordered by id.
	ListClanRankedLeaderboardIDs(ctx context.Context, db bun.IDB) ([]string, error)
}
