package rankingmetrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RankingMetrics records ranking engine activity.
type RankingMetrics interface {
	RecordOperationAttempt(ctx context.Context, operation, service string)
	RecordOperationSuccess(ctx context.Context, operation, service string)
	RecordOperationFailure(ctx context.Context, operation, service string)
	RecordOperationDuration(ctx context.Context, operation, service string, duration time.Duration)
	// RecordChunk counts a committed or failed write chunk and its rows.
	RecordChunk(ctx context.Context, outcome string, rows int)
	// RecordItems counts processed leaderboards, players or clans.
	RecordItems(ctx context.Context, kind string, n int)
}

// Chunk outcomes.
const (
	ChunkCommitted = "committed"
	ChunkFailed    = "failed"
)

type prometheusMetrics struct {
	operations *prometheus.CounterVec
	durations  *prometheus.HistogramVec
	chunks     *prometheus.CounterVec
	chunkRows  *prometheus.CounterVec
	items      *prometheus.CounterVec
}

// NewPrometheus registers the ranking collectors on reg.
func NewPrometheus(reg prometheus.Registerer) RankingMetrics {
	factory := promauto.With(reg)
	return &prometheusMetrics{
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ranker",
			Name:      "operations_total",
			Help:      "Ranking service operations by outcome.",
		}, []string{"service", "operation", "outcome"}),
		durations: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ranker",
			Name:      "operation_duration_seconds",
			Help:      "Ranking service operation latency.",
			Buckets:   []float64{.01, .05, .1, .5, 1, 5, 30, 120, 600, 1800},
		}, []string{"service", "operation"}),
		chunks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ranker",
			Name:      "chunks_total",
			Help:      "Write chunks by outcome.",
		}, []string{"outcome"}),
		chunkRows: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ranker",
			Name:      "chunk_rows_total",
			Help:      "Rows written or discarded by chunk outcome.",
		}, []string{"outcome"}),
		items: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ranker",
			Name:      "items_processed_total",
			Help:      "Leaderboards, players and clans processed.",
		}, []string{"kind"}),
	}
}

func (m *prometheusMetrics) RecordOperationAttempt(_ context.Context, operation, service string) {
	m.operations.WithLabelValues(service, operation, "attempt").Inc()
}

func (m *prometheusMetrics) RecordOperationSuccess(_ context.Context, operation, service string) {
	m.operations.WithLabelValues(service, operation, "success").Inc()
}

func (m *prometheusMetrics) RecordOperationFailure(_ context.Context, operation, service string) {
	m.operations.WithLabelValues(service, operation, "failure").Inc()
}

func (m *prometheusMetrics) RecordOperationDuration(_ context.Context, operation, service string, duration time.Duration) {
	m.durations.WithLabelValues(service, operation).Observe(duration.Seconds())
}

func (m *prometheusMetrics) RecordChunk(_ context.Context, outcome string, rows int) {
	m.chunks.WithLabelValues(outcome).Inc()
	m.chunkRows.WithLabelValues(outcome).Add(float64(rows))
}

func (m *prometheusMetrics) RecordItems(_ context.Context, kind string, n int) {
	m.items.WithLabelValues(kind).Add(float64(n))
}

type noop struct{}

// NewNoop returns metrics that record nothing.
func NewNoop() RankingMetrics { return noop{} }

func (noop) RecordOperationAttempt(context.Context, string, string)                 {}
func (noop) RecordOperationSuccess(context.Context, string, string)                 {}
func (noop) RecordOperationFailure(context.Context, string, string)                 {}
func (noop) RecordOperationDuration(context.Context, string, string, time.Duration) {}
func (noop) RecordChunk(context.Context, string, int)                               {}
func (noop) RecordItems(context.Context, string, int)                               {}
