package ranking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	authhandlers "github.com/Black-And-White-Club/rhythm-ranker/app/modules/auth/infrastructure/handlers"
	rankingservice "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/application"
	rankingdomain "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/domain"
	rankinghandlers "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/infrastructure/handlers"
	rankingmetrics "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/infrastructure/metrics"
	rankingnotify "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/infrastructure/notify"
	rankingqueue "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/infrastructure/queue"
	rankcache "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/infrastructure/rankcache"
	rankingdb "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/infrastructure/repositories"
	rankingrouter "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/infrastructure/router"
	"github.com/Black-And-White-Club/rhythm-ranker/config"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// Deps carries the shared infrastructure the ranking module is built on.
type Deps struct {
	DB      *bun.DB
	Logger  *slog.Logger
	Metrics rankingmetrics.RankingMetrics
	Tracer  trace.Tracer
	// Router receives the ranking HTTP routes. Nil skips route registration.
	Router chi.Router
	// Authenticate resolves capabilities for HTTP callers.
	Authenticate func(http.Handler) http.Handler
	// DisableQueue builds the module without River, as the CLI does.
	DisableQueue bool
}

// Module represents the ranking module.
type Module struct {
	RankingService rankingservice.Service
	Queue          *rankingqueue.Service
	notifier       *rankingnotify.Publisher
	redis          *redis.Client
	logger         *slog.Logger
	cancelFunc     context.CancelFunc
}

// NewRankingModule creates a new instance of the ranking module.
func NewRankingModule(ctx context.Context, cfg *config.Config, deps Deps) (*Module, error) {
	logger := deps.Logger
	logger.InfoContext(ctx, "ranking.NewRankingModule called")

	policy, err := rankingdomain.ClanPolicyByName(cfg.Ranking.ClanPolicy)
	if err != nil {
		return nil, err
	}

	opts := []rankingservice.Option{
		rankingservice.WithClanPolicy(policy),
		rankingservice.WithSettings(rankingservice.Settings{
			PageSize:           cfg.Ranking.PageSize,
			FlushThreshold:     cfg.Ranking.FlushThreshold,
			LeaderboardWorkers: cfg.Ranking.LeaderboardWorkers,
			PlayerWorkers:      cfg.Ranking.PlayerWorkers,
			ClanWorkers:        cfg.Ranking.ClanWorkers,
		}),
	}

	m := &Module{logger: logger}

	if cfg.NATS.URL != "" {
		pub, err := rankingnotify.NewNATSPublisher(cfg.NATS.URL, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create ranking publisher: %w", err)
		}
		m.notifier = rankingnotify.NewPublisher(pub, logger)
		opts = append(opts, rankingservice.WithNotifier(m.notifier))
	}

	if cfg.Redis.Addr != "" {
		m.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := m.redis.Ping(ctx).Err(); err != nil {
			m.Close()
			return nil, fmt.Errorf("failed to reach redis: %w", err)
		}
		opts = append(opts, rankingservice.WithMirror(rankcache.NewMirror(m.redis, cfg.Redis.KeyPrefix, logger)))
	}

	repo := rankingdb.NewRepository(deps.DB)
	service := rankingservice.NewRankingService(repo, logger, deps.Metrics, deps.Tracer, deps.DB, opts...)
	m.RankingService = service

	var enqueuer rankingqueue.Enqueuer
	if !deps.DisableQueue {
		q, err := rankingqueue.NewService(ctx, cfg.Postgres.DSN, service, rankingqueue.Config{
			MaxWorkers:      cfg.Ranking.QueueWorkers,
			NightlyInterval: cfg.Ranking.NightlyInterval,
		}, logger, deps.Metrics)
		if err != nil {
			m.Close()
			return nil, fmt.Errorf("failed to create ranking queue: %w", err)
		}
		m.Queue = q
		enqueuer = q
	}

	if deps.Router != nil {
		handlers := rankinghandlers.NewRankingHandlers(service, enqueuer, logger)
		var limiter *authhandlers.IPRateLimiter
		if cfg.HTTP.RateLimit > 0 {
			limiter = authhandlers.NewIPRateLimiter(rate.Limit(cfg.HTTP.RateLimit), cfg.HTTP.RateBurst)
		}
		rankingrouter.NewRouter(handlers, rankingrouter.Options{
			AllowedOrigins: cfg.HTTP.AllowedOrigins,
			Limiter:        limiter,
			Authenticate:   deps.Authenticate,
		}).Register(deps.Router)
	}

	return m, nil
}

// Run starts the job queue and blocks until ctx is canceled.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	m.logger.InfoContext(ctx, "Starting ranking module")

	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if wg != nil {
		defer wg.Done()
	}

	if m.Queue != nil {
		if err := m.Queue.Start(ctx); err != nil {
			m.logger.ErrorContext(ctx, "Failed to start ranking queue", slog.Any("error", err))
			return
		}
	}

	<-ctx.Done()
	m.logger.InfoContext(ctx, "Ranking module goroutine stopped")
}

// Close stops the ranking module and cleans up resources.
func (m *Module) Close() error {
	m.logger.Info("Stopping ranking module")

	if m.cancelFunc != nil {
		m.cancelFunc()
	}

	var errs []error
	if m.Queue != nil {
		if err := m.Queue.Stop(context.Background()); err != nil {
			errs = append(errs, fmt.Errorf("queue: %w", err))
		}
	}
	if m.notifier != nil {
		if err := m.notifier.Close(); err != nil {
			errs = append(errs, fmt.Errorf("notifier: %w", err))
		}
	}
	if m.redis != nil {
		if err := m.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}

	m.logger.Info("Ranking module stopped")
	return errors.Join(errs...)
}
