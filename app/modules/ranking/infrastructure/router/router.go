package rankingrouter

import (
	"net/http"

	authdomain "github.com/Black-And-White-Club/rhythm-ranker/app/modules/auth/domain"
	authhandlers "github.com/Black-And-White-Club/rhythm-ranker/app/modules/auth/infrastructure/handlers"
	rankinghandlers "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/infrastructure/handlers"
	"github.com/go-chi/chi/v5"
)

// BasePath is where the ranking routes are mounted.
const BasePath = "/api/ranking"

// Options configures the middleware stack in front of the ranking routes.
type Options struct {
	AllowedOrigins []string
	Limiter        *authhandlers.IPRateLimiter
	// Authenticate resolves the caller's capabilities. Requests without it
	// reach the handlers with empty capabilities and are rejected there.
	Authenticate func(http.Handler) http.Handler
}

// Router mounts the ranking admin surface on a chi router.
type Router struct {
	handlers *rankinghandlers.RankingHandlers
	opts     Options
}

// NewRouter creates a new Router.
func NewRouter(handlers *rankinghandlers.RankingHandlers, opts Options) *Router {
	return &Router{handlers: handlers, opts: opts}
}

// Register adds the ranking routes under BasePath.
func (rt *Router) Register(r chi.Router) {
	h := rt.handlers
	r.Route(BasePath, func(r chi.Router) {
		r.Use(authhandlers.CORSMiddleware(rt.opts.AllowedOrigins))
		if rt.opts.Limiter != nil {
			r.Use(authhandlers.RateLimitMiddleware(rt.opts.Limiter))
		}
		if rt.opts.Authenticate != nil {
			r.Use(rt.opts.Authenticate)
		}

		r.Get("/{context}/top", h.HandleTopPlayers)

		r.Post("/leaderboards/refresh", h.HandleRefreshAllLeaderboards)
		r.Post("/leaderboards/{leaderboardID}/refresh", h.HandleRefreshLeaderboard)

		r.Post("/players/refresh", h.HandleRefreshAllPlayers)
		r.Post("/players/{playerID}/refresh", h.HandleRefreshPlayer)
		r.Post("/global/refresh", h.HandleRefreshGlobalRanks)

		r.Post("/clans/refresh", h.HandleRefreshClans)
		r.With(authhandlers.RequirePermission(authdomain.PermRefreshClans)).
			Post("/clans/{clanID}/membership", h.HandleClanMembershipChanged)

		r.Post("/contexts/{context}/reset/{column}", h.HandleResetColumn)

		r.With(authhandlers.RequirePermission(authdomain.PermEnqueueJobs)).
			Post("/jobs/{kind}", h.HandleEnqueueJob)
	})
}
