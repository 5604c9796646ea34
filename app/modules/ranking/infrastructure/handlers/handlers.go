package rankinghandlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	authhandlers "github.com/Black-And-White-Club/rhythm-ranker/app/modules/auth/infrastructure/handlers"
	rankingservice "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/application"
	rankingdomain "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/domain"
	rankingqueue "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/infrastructure/queue"
	rankingdb "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/infrastructure/repositories"
)

// RankingHandlers serves the ranking admin trigger surface.
type RankingHandlers struct {
	service rankingservice.Service
	queue   rankingqueue.Enqueuer
	logger  *slog.Logger
}

// NewRankingHandlers creates the HTTP handlers. queue may be nil, in which
// case job endpoints answer 503.
func NewRankingHandlers(service rankingservice.Service, queue rankingqueue.Enqueuer, logger *slog.Logger) *RankingHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &RankingHandlers{service: service, queue: queue, logger: logger}
}

// RefreshRequest is the optional JSON body of refresh endpoints.
type RefreshRequest struct {
	Contexts  []string `json:"contexts,omitempty"`
	RanksOnly bool     `json:"ranks_only,omitempty"`
	SkipClans bool     `json:"skip_clans,omitempty"`
}

// ClanRefreshRequest selects leaderboards for a clan refresh. Empty means all.
type ClanRefreshRequest struct {
	LeaderboardIDs []string `json:"leaderboard_ids,omitempty"`
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(r *http.Request, err error) int {
	switch {
	case errors.Is(err, rankingservice.ErrUnauthorized):
		if authhandlers.CapabilitiesFromContext(r.Context()).Subject == "" {
			return http.StatusUnauthorized
		}
		return http.StatusForbidden
	case errors.Is(err, rankingservice.ErrLeaderboardNotFound),
		errors.Is(err, rankingservice.ErrPlayerNotFound),
		errors.Is(err, rankingservice.ErrScoreNotFound):
		return http.StatusNotFound
	case errors.Is(err, rankingservice.ErrInvalidInput),
		errors.Is(err, rankingdomain.ErrInvalidModifiers),
		errors.Is(err, rankingdomain.ErrUnknownContext),
		errors.Is(err, rankingdb.ErrUnknownColumn):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *RankingHandlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(r, err)
	if status == http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "Ranking request failed",
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
		http.Error(w, "internal error", status)
		return
	}
	http.Error(w, err.Error(), status)
}

func (h *RankingHandlers) writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to encode response", slog.Any("error", err))
	}
}

// decodeBody decodes an optional JSON body into v. An empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Join(rankingservice.ErrInvalidInput, err)
	}
	return nil
}
