package rankinghandlers

import (
	"fmt"
	"net/http"

	rankingservice "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/application"
	rankingqueue "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/infrastructure/queue"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/riverqueue/river"
)

// JobRequest is the JSON body of the enqueue endpoint. Fields not used by
// the requested kind are ignored.
type JobRequest struct {
	RefreshRequest
	ScoreID       int64  `json:"score_id,omitempty"`
	LeaderboardID string `json:"leaderboard_id,omitempty"`
	ClanID        string `json:"clan_id,omitempty"`
}

func jobFor(kind string, req JobRequest) (river.JobArgs, error) {
	switch kind {
	case "process-score":
		if req.ScoreID <= 0 {
			return nil, fmt.Errorf("%w: score_id is required", rankingservice.ErrInvalidInput)
		}
		return rankingqueue.ProcessScoreJob{ScoreID: req.ScoreID}, nil
	case "refresh-leaderboard":
		if req.LeaderboardID == "" {
			return nil, fmt.Errorf("%w: leaderboard_id is required", rankingservice.ErrInvalidInput)
		}
		return rankingqueue.RefreshLeaderboardJob{
			LeaderboardID: req.LeaderboardID,
			Contexts:      req.Contexts,
			RanksOnly:     req.RanksOnly,
		}, nil
	case "refresh-all":
		return rankingqueue.RefreshAllLeaderboardsJob{
			Contexts:  req.Contexts,
			RanksOnly: req.RanksOnly,
			SkipClans: req.SkipClans,
		}, nil
	case "refresh-players":
		return rankingqueue.RefreshPlayersJob{Contexts: req.Contexts}, nil
	case "refresh-global":
		return rankingqueue.RefreshGlobalRanksJob{Contexts: req.Contexts}, nil
	case "refresh-clans":
		return rankingqueue.RefreshClansJob{}, nil
	case "clan-membership":
		if _, err := uuid.Parse(req.ClanID); err != nil {
			return nil, fmt.Errorf("%w: clan_id: %w", rankingservice.ErrInvalidInput, err)
		}
		return rankingqueue.ClanMembershipJob{ClanID: req.ClanID}, nil
	case "nightly":
		return rankingqueue.NightlyRefreshJob{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown job kind %q", rankingservice.ErrInvalidInput, kind)
	}
}

// HandleEnqueueJob inserts a background ranking job and answers 202.
func (h *RankingHandlers) HandleEnqueueJob(w http.ResponseWriter, r *http.Request) {
	if h.queue == nil {
		http.Error(w, "job queue disabled", http.StatusServiceUnavailable)
		return
	}

	var req JobRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	job, err := jobFor(chi.URLParam(r, "kind"), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.queue.Enqueue(r.Context(), job)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	h.writeJSON(w, r, res)
}
