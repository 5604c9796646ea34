package rankingservice

import "errors"

var (
	// ErrUnauthorized is returned before any work when the caller lacks a permission.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrLeaderboardNotFound is returned when a requested leaderboard does not exist.
	ErrLeaderboardNotFound = errors.New("leaderboard not found")
	// ErrPlayerNotFound is returned when a requested player does not exist.
	ErrPlayerNotFound = errors.New("player not found")
	// ErrScoreNotFound is returned when a submitted score does not exist.
	ErrScoreNotFound = errors.New("score not found")
	// ErrInvalidInput is returned for malformed request parameters.
	ErrInvalidInput = errors.New("invalid input")
)
