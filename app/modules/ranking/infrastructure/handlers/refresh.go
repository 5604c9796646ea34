package rankinghandlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	authhandlers "github.com/Black-And-White-Club/rhythm-ranker/app/modules/auth/infrastructure/handlers"
	rankingservice "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/application"
	rankingdomain "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/domain"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// refreshRequest reads the JSON body and lets query parameters override it.
func refreshRequest(r *http.Request) (RefreshRequest, []rankingdomain.Context, error) {
	var req RefreshRequest
	if err := decodeBody(r, &req); err != nil {
		return req, nil, err
	}

	q := r.URL.Query()
	if v := q.Get("contexts"); v != "" {
		req.Contexts = strings.Split(v, ",")
	}
	for name, dst := range map[string]*bool{"ranks_only": &req.RanksOnly, "skip_clans": &req.SkipClans} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return req, nil, fmt.Errorf("%w: %s: %w", rankingservice.ErrInvalidInput, name, err)
		}
		*dst = b
	}

	if len(req.Contexts) == 0 {
		return req, nil, nil
	}
	contexts, err := rankingdomain.ParseContexts(strings.Join(req.Contexts, ","))
	return req, contexts, err
}

// HandleRefreshLeaderboard recomputes one leaderboard.
func (h *RankingHandlers) HandleRefreshLeaderboard(w http.ResponseWriter, r *http.Request) {
	req, contexts, err := refreshRequest(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	caps := authhandlers.CapabilitiesFromContext(r.Context())
	report, err := h.service.RefreshLeaderboard(r.Context(), caps, chi.URLParam(r, "leaderboardID"), rankingservice.RefreshOptions{
		Contexts:  contexts,
		RanksOnly: req.RanksOnly,
		SkipClans: req.SkipClans,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, report)
}

// HandleRefreshAllLeaderboards recomputes every leaderboard. It answers once
// the whole run is finished, with failed chunks counted in the report.
func (h *RankingHandlers) HandleRefreshAllLeaderboards(w http.ResponseWriter, r *http.Request) {
	req, contexts, err := refreshRequest(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	caps := authhandlers.CapabilitiesFromContext(r.Context())
	report, err := h.service.RefreshAllLeaderboards(r.Context(), caps, rankingservice.RefreshOptions{
		Contexts:  contexts,
		RanksOnly: req.RanksOnly,
		SkipClans: req.SkipClans,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, report)
}

// HandleRefreshPlayer recomputes one player's aggregates.
func (h *RankingHandlers) HandleRefreshPlayer(w http.ResponseWriter, r *http.Request) {
	_, contexts, err := refreshRequest(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	caps := authhandlers.CapabilitiesFromContext(r.Context())
	report, err := h.service.RefreshPlayer(r.Context(), caps, chi.URLParam(r, "playerID"), contexts)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, report)
}

// HandleRefreshAllPlayers recomputes every player aggregate.
func (h *RankingHandlers) HandleRefreshAllPlayers(w http.ResponseWriter, r *http.Request) {
	_, contexts, err := refreshRequest(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	caps := authhandlers.CapabilitiesFromContext(r.Context())
	report, err := h.service.RefreshAllPlayers(r.Context(), caps, contexts)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, report)
}

// HandleRefreshGlobalRanks reassigns global and country ranks.
func (h *RankingHandlers) HandleRefreshGlobalRanks(w http.ResponseWriter, r *http.Request) {
	_, contexts, err := refreshRequest(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	caps := authhandlers.CapabilitiesFromContext(r.Context())
	report, err := h.service.RefreshGlobalRanks(r.Context(), caps, contexts)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, report)
}

// HandleRefreshClans re-ranks clans on the requested leaderboards, or on all
// of them when none are named.
func (h *RankingHandlers) HandleRefreshClans(w http.ResponseWriter, r *http.Request) {
	var req ClanRefreshRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	caps := authhandlers.CapabilitiesFromContext(r.Context())
	var (
		report rankingservice.BatchReport
		err    error
	)
	if len(req.LeaderboardIDs) == 0 {
		report, err = h.service.RefreshAllClanRankings(r.Context(), caps)
	} else {
		report, err = h.service.RefreshClanRankings(r.Context(), caps, req.LeaderboardIDs)
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, report)
}

// HandleClanMembershipChanged refreshes a clan after its roster changed.
func (h *RankingHandlers) HandleClanMembershipChanged(w http.ResponseWriter, r *http.Request) {
	clanID, err := uuid.Parse(chi.URLParam(r, "clanID"))
	if err != nil {
		http.Error(w, "invalid clan id", http.StatusBadRequest)
		return
	}

	report, err := h.service.OnClanMembershipChanged(r.Context(), clanID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, report)
}

// HandleResetColumn zeroes one score column across a context.
func (h *RankingHandlers) HandleResetColumn(w http.ResponseWriter, r *http.Request) {
	c, err := rankingdomain.ParseContext(chi.URLParam(r, "context"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	caps := authhandlers.CapabilitiesFromContext(r.Context())
	n, err := h.service.ResetContextColumn(r.Context(), caps, c, chi.URLParam(r, "column"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, map[string]int64{"rows": n})
}

// HandleTopPlayers lists the best players of a context.
func (h *RankingHandlers) HandleTopPlayers(w http.ResponseWriter, r *http.Request) {
	c, err := rankingdomain.ParseContext(chi.URLParam(r, "context"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
	}

	caps := authhandlers.CapabilitiesFromContext(r.Context())
	top, err := h.service.TopPlayers(r.Context(), caps, c, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, top)
}
