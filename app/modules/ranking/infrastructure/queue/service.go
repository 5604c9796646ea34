package rankingqueue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	rankingservice "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/application"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
)

const serviceName = "river"

// Metrics is the subset of ranking metrics the queue reports to.
type Metrics interface {
	RecordOperationAttempt(ctx context.Context, operation, service string)
	RecordOperationSuccess(ctx context.Context, operation, service string)
	RecordOperationFailure(ctx context.Context, operation, service string)
	RecordOperationDuration(ctx context.Context, operation, service string, duration time.Duration)
}

// Config tunes the ranking queue.
type Config struct {
	// MaxWorkers bounds concurrently running ranking jobs.
	MaxWorkers int
	// NightlyInterval schedules NightlyRefreshJob periodically. Zero disables it.
	NightlyInterval time.Duration
}

// Enqueuer inserts ranking jobs.
type Enqueuer interface {
	Enqueue(ctx context.Context, job river.JobArgs) (EnqueueResult, error)
}

var _ Enqueuer = (*Service)(nil)

// Service runs ranking jobs on River.
type Service struct {
	client  *river.Client[pgx.Tx]
	pool    *pgxpool.Pool
	logger  *slog.Logger
	metrics Metrics
}

// Workers registers every ranking worker against service.
func Workers(service rankingservice.Service, logger *slog.Logger) *river.Workers {
	workers := river.NewWorkers()
	river.AddWorker(workers, NewProcessScoreWorker(service, logger))
	river.AddWorker(workers, NewRefreshLeaderboardWorker(service, logger))
	river.AddWorker(workers, NewRefreshAllLeaderboardsWorker(service, logger))
	river.AddWorker(workers, NewRefreshPlayersWorker(service, logger))
	river.AddWorker(workers, NewRefreshGlobalRanksWorker(service, logger))
	river.AddWorker(workers, NewRefreshClansWorker(service, logger))
	river.AddWorker(workers, NewClanMembershipWorker(service, logger))
	river.AddWorker(workers, NewNightlyRefreshWorker(service, logger))
	return workers
}

// PeriodicJobs returns the scheduled jobs for cfg.
func PeriodicJobs(cfg Config) []*river.PeriodicJob {
	if cfg.NightlyInterval <= 0 {
		return nil
	}
	return []*river.PeriodicJob{
		river.NewPeriodicJob(
			river.PeriodicInterval(cfg.NightlyInterval),
			func() (river.JobArgs, *river.InsertOpts) {
				return NightlyRefreshJob{}, nil
			},
			&river.PeriodicJobOpts{RunOnStart: false},
		),
	}
}

// NewService creates a River-based queue running the ranking workers.
func NewService(ctx context.Context, dsn string, service rankingservice.Service, cfg Config, logger *slog.Logger, metrics Metrics) (*Service, error) {
	logger = logger.With(slog.String("component", "river_queue"))
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 4
	}

	start := time.Now()
	metrics.RecordOperationAttempt(ctx, "initialize_service", serviceName)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		metrics.RecordOperationFailure(ctx, "initialize_service", serviceName)
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		metrics.RecordOperationFailure(ctx, "initialize_service", serviceName)
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		metrics.RecordOperationFailure(ctx, "initialize_service", serviceName)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 1},
			QueueName:          {MaxWorkers: cfg.MaxWorkers},
		},
		Workers:      Workers(service, logger),
		PeriodicJobs: PeriodicJobs(cfg),
		Logger:       logger,
	})
	if err != nil {
		pool.Close()
		metrics.RecordOperationFailure(ctx, "initialize_service", serviceName)
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	metrics.RecordOperationSuccess(ctx, "initialize_service", serviceName)
	metrics.RecordOperationDuration(ctx, "initialize_service", serviceName, time.Since(start))
	logger.InfoContext(ctx, "Ranking queue service initialized",
		slog.Int("max_workers", cfg.MaxWorkers),
		slog.Duration("nightly_interval", cfg.NightlyInterval),
	)

	return &Service{client: client, pool: pool, logger: logger, metrics: metrics}, nil
}

// Start starts working jobs.
func (s *Service) Start(ctx context.Context) error {
	if err := s.client.Start(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Failed to start River client", slog.Any("error", err))
		return fmt.Errorf("failed to start River client: %w", err)
	}
	s.logger.InfoContext(ctx, "Ranking queue service started")
	return nil
}

// Stop waits for running jobs and closes the pool.
func (s *Service) Stop(ctx context.Context) error {
	defer s.pool.Close()
	if err := s.client.Stop(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Failed to stop River client", slog.Any("error", err))
		return fmt.Errorf("failed to stop River client: %w", err)
	}
	s.logger.InfoContext(ctx, "Ranking queue service stopped")
	return nil
}

// Enqueue inserts job on the ranking queue. A job whose arguments match one
// that is still pending is reported as a duplicate instead of inserted twice.
func (s *Service) Enqueue(ctx context.Context, job river.JobArgs) (EnqueueResult, error) {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "enqueue", serviceName)

	res, err := s.client.Insert(ctx, job, &river.InsertOpts{
		Queue:      QueueName,
		UniqueOpts: river.UniqueOpts{ByArgs: true},
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to enqueue ranking job",
			slog.String("kind", job.Kind()),
			slog.Any("error", err),
		)
		s.metrics.RecordOperationFailure(ctx, "enqueue", serviceName)
		return EnqueueResult{}, fmt.Errorf("failed to enqueue %s: %w", job.Kind(), err)
	}

	s.metrics.RecordOperationSuccess(ctx, "enqueue", serviceName)
	s.metrics.RecordOperationDuration(ctx, "enqueue", serviceName, time.Since(start))
	s.logger.InfoContext(ctx, "Ranking job enqueued",
		slog.String("kind", job.Kind()),
		slog.Int64("job_id", res.Job.ID),
		slog.Bool("duplicate", res.UniqueSkippedAsDuplicate),
	)
	return EnqueueResult{
		JobID:     res.Job.ID,
		Kind:      job.Kind(),
		Duplicate: res.UniqueSkippedAsDuplicate,
	}, nil
}

// HealthCheck verifies the queue database is reachable.
func (s *Service) HealthCheck(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("queue service health check failed: %w", err)
	}
	return nil
}
