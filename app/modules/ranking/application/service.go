package rankingservice

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	authdomain "github.com/Black-And-White-Club/rhythm-ranker/app/modules/auth/domain"
	rankingdomain "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/domain"
	rankingmetrics "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/infrastructure/metrics"
	rankingdb "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/infrastructure/repositories"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "RankingService"

// RankingService implements the Service interface.
type RankingService struct {
	repo       rankingdb.Repository
	logger     *slog.Logger
	metrics    rankingmetrics.RankingMetrics
	tracer     trace.Tracer
	db         *bun.DB
	calc       rankingdomain.PPCalculator
	clanPolicy rankingdomain.ClanScorePolicy
	notifier   Notifier
	mirror     RankingMirror
	settings   Settings
	now        func() time.Time
}

// Option configures optional collaborators of a RankingService.
type Option func(*RankingService)

// WithCalculator replaces the default pp curve.
func WithCalculator(calc rankingdomain.PPCalculator) Option {
	return func(s *RankingService) { s.calc = calc }
}

// WithClanPolicy replaces the default clan combination policy.
func WithClanPolicy(p rankingdomain.ClanScorePolicy) Option {
	return func(s *RankingService) { s.clanPolicy = p }
}

// WithNotifier sets the event publisher.
func WithNotifier(n Notifier) Option {
	return func(s *RankingService) { s.notifier = n }
}

// WithMirror sets the global ranking mirror.
func WithMirror(m RankingMirror) Option {
	return func(s *RankingService) { s.mirror = m }
}

// WithSettings overrides the batch settings. Zero fields keep their defaults.
func WithSettings(settings Settings) Option {
	return func(s *RankingService) { s.settings = settings.withDefaults() }
}

// NewRankingService creates a new RankingService.
func NewRankingService(
	repo rankingdb.Repository,
	logger *slog.Logger,
	metrics rankingmetrics.RankingMetrics,
	tracer trace.Tracer,
	db *bun.DB,
	opts ...Option,
) *RankingService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &RankingService{
		repo:       repo,
		logger:     logger,
		metrics:    metrics,
		tracer:     tracer,
		db:         db,
		calc:       rankingdomain.NewCurveCalculator(),
		clanPolicy: rankingdomain.WeightedPPPolicy{},
		settings:   DefaultSettings(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// authorize rejects callers that lack any of perms.
func authorize(caps authdomain.Capabilities, perms ...authdomain.Permission) error {
	if err := caps.Require(perms...); err != nil {
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	return nil
}

// ResetContextColumn zeroes one score column across a whole context.
func (s *RankingService) ResetContextColumn(ctx context.Context, caps authdomain.Capabilities, c rankingdomain.Context, column string) (int64, error) {
	if err := authorize(caps, authdomain.PermRefreshAll); err != nil {
		return 0, err
	}
	return withTelemetry(s, ctx, "ResetContextColumn", c.String()+"."+column, func(ctx context.Context) (int64, error) {
		var n int64
		err := s.runInTx(ctx, func(ctx context.Context, db bun.IDB) error {
			var err error
			n, err = s.repo.ResetScoreColumn(ctx, db, c, column)
			return err
		})
		return n, err
	})
}

// TopPlayers returns the best n players of a context from the mirror, falling
// back to ranking the stored aggregates when no mirror is configured or it fails.
func (s *RankingService) TopPlayers(ctx context.Context, caps authdomain.Capabilities, c rankingdomain.Context, n int) ([]rankingdomain.GlobalRank, error) {
	if err := authorize(caps, authdomain.PermReadRankings); err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", ErrInvalidInput)
	}

	return withTelemetry(s, ctx, "TopPlayers", c.String(), func(ctx context.Context) ([]rankingdomain.GlobalRank, error) {
		if s.mirror != nil {
			top, err := s.mirror.Top(ctx, c, n)
			if err == nil {
				return top, nil
			}
			s.logger.WarnContext(ctx, "Ranking mirror read failed, using database",
				slog.String("context", c.String()),
				slog.Any("error", err),
			)
		}

		rows, err := s.repo.ListPlayerStandings(ctx, nil, c)
		if err != nil {
			return nil, err
		}
		ranks := rankingdomain.AssignGlobalRanks(standingsOf(rows))
		out := make([]rankingdomain.GlobalRank, 0, n)
		for _, r := range ranks {
			if r.Rank == 0 || len(out) == n {
				break
			}
			out = append(out, r)
		}
		return out, nil
	})
}

// -----------------------------------------------------------------------------
// Generic Helpers (Defined as functions because methods cannot have type params)
// -----------------------------------------------------------------------------

// withTelemetry wraps a service operation with tracing, metrics, and panic recovery.
func withTelemetry[T any](
	s *RankingService,
	ctx context.Context,
	operationName string,
	identifier string,
	op func(ctx context.Context) (T, error),
) (result T, err error) {
	var span trace.Span
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, operationName, trace.WithAttributes(
			attribute.String("operation", operationName),
			attribute.String("identifier", identifier),
		))
	} else {
		span = trace.SpanFromContext(ctx)
	}
	defer span.End()

	if s.metrics != nil {
		s.metrics.RecordOperationAttempt(ctx, operationName, serviceName)
	}

	startTime := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordOperationDuration(ctx, operationName, serviceName, time.Since(startTime))
		}
	}()

	s.logger.InfoContext(ctx, "Operation triggered",
		slog.String("operation", operationName),
		slog.String("identifier", identifier),
	)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operationName, r)
			s.logger.ErrorContext(ctx, "Critical panic recovered",
				slog.String("identifier", identifier),
				slog.Any("error", err),
			)
			if s.metrics != nil {
				s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
			}
			span.RecordError(err)
		}
	}()

	result, err = op(ctx)
	if err != nil {
		wrappedErr := fmt.Errorf("%s: %w", operationName, err)
		s.logger.ErrorContext(ctx, "Operation failed with error",
			slog.String("operation", operationName),
			slog.String("identifier", identifier),
			slog.Any("error", wrappedErr),
		)
		if s.metrics != nil {
			s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
		}
		span.RecordError(wrappedErr)
		return result, wrappedErr
	}

	s.logger.InfoContext(ctx, "Operation completed successfully",
		slog.String("operation", operationName),
		slog.String("identifier", identifier),
	)
	if s.metrics != nil {
		s.metrics.RecordOperationSuccess(ctx, operationName, serviceName)
	}
	return result, nil
}

// runInTx runs fn in a transaction, or directly on the repository's
// connection when the service has no database handle.
func (s *RankingService) runInTx(ctx context.Context, fn func(ctx context.Context, db bun.IDB) error) error {
	if s.db == nil {
		return fn(ctx, nil)
	}
	return s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, tx)
	})
}
