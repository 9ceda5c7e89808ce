// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// SyncMetrics provides integration metrics for the ERP sync engine.
// It tracks sync run activity, record throughput, KPI computations,
// and connection fleet health.
type SyncMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	syncRunsTotal        *Counter
	syncRecordsTotal     *Counter
	kpiComputationsTotal *Counter

	// Histogram metrics
	syncDuration *Histogram

	// Gauge metrics (point-in-time values)
	connectionsCount      *Gauge
	staleConnectionsCount *Gauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	// Data provider for periodic collection
	connectionProvider ConnectionMetricsProvider
	staleAfter         time.Duration
}

// ConnectionStatusCount is one row of the connection fleet breakdown.
type ConnectionStatusCount struct {
	ProviderType string
	Status       string
	Count        int64
}

// ConnectionMetricsProvider provides connection fleet data for periodic
// metrics collection. This interface allows the telemetry layer to query
// connection state without depending on the erp domain directly.
type ConnectionMetricsProvider interface {
	// GetConnectionCountsByStatus returns connection counts grouped by
	// provider type and lifecycle status.
	GetConnectionCountsByStatus(ctx context.Context) ([]ConnectionStatusCount, error)

	// GetStaleConnectionCount returns the number of connected integrations
	// whose last successful sync is older than the given cutoff.
	GetStaleConnectionCount(ctx context.Context, olderThan time.Time) (int64, error)
}

// SyncMetricsConfig holds configuration for sync metrics.
type SyncMetricsConfig struct {
	Meter              metric.Meter
	Logger             *zap.Logger
	CollectInterval    time.Duration // Default: 5 minutes
	StaleAfter         time.Duration // Default: 24 hours
	ConnectionProvider ConnectionMetricsProvider
}

// NewSyncMetrics creates a new SyncMetrics instance.
func NewSyncMetrics(cfg SyncMetricsConfig) (*SyncMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	staleAfter := cfg.StaleAfter
	if staleAfter <= 0 {
		staleAfter = 24 * time.Hour
	}

	sm := &SyncMetrics{
		meter:              cfg.Meter,
		logger:             logger,
		stopChan:           make(chan struct{}),
		connectionProvider: cfg.ConnectionProvider,
		staleAfter:         staleAfter,
	}

	var err error

	sm.syncRunsTotal, err = NewCounter(
		cfg.Meter,
		"erp_sync_runs_total",
		"Total number of sync runs",
		"{runs}",
	)
	if err != nil {
		return nil, err
	}

	sm.syncRecordsTotal, err = NewCounter(
		cfg.Meter,
		"erp_sync_records_total",
		"Total number of records processed by sync runs",
		"{records}",
	)
	if err != nil {
		return nil, err
	}

	sm.kpiComputationsTotal, err = NewCounter(
		cfg.Meter,
		"erp_kpi_computations_total",
		"Total number of KPI computations served",
		"{computations}",
	)
	if err != nil {
		return nil, err
	}

	sm.syncDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "erp_sync_duration_seconds",
		Description: "Duration of sync runs in seconds",
		Unit:        "s",
		Buckets:     []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
	})
	if err != nil {
		return nil, err
	}

	sm.connectionsCount, err = NewGauge(
		cfg.Meter,
		"erp_connections_count",
		"Current number of ERP connections by provider and status",
		"{connections}",
	)
	if err != nil {
		return nil, err
	}

	sm.staleConnectionsCount, err = NewGauge(
		cfg.Meter,
		"erp_connections_stale_count",
		"Number of connected integrations with no recent successful sync",
		"{connections}",
	)
	if err != nil {
		return nil, err
	}

	return sm, nil
}

// =============================================================================
// Sync Run Metrics
// =============================================================================

// SyncRunStatus represents the outcome of a sync run for metrics labeling.
type SyncRunStatus string

const (
	SyncRunStatusSuccess SyncRunStatus = "success"
	SyncRunStatusPartial SyncRunStatus = "partial"
	SyncRunStatusFailed  SyncRunStatus = "failed"
)

// RecordSyncRun records a completed sync run.
// This should be called from the application layer when a sync run finishes.
func (sm *SyncMetrics) RecordSyncRun(ctx context.Context, providerType, syncType string, status SyncRunStatus, duration time.Duration) {
	sm.syncRunsTotal.Inc(ctx,
		AttrProviderType.String(providerType),
		AttrSyncType.String(syncType),
		AttrSyncStatus.String(string(status)),
	)
	sm.syncDuration.RecordDuration(ctx, duration,
		AttrProviderType.String(providerType),
		AttrSyncType.String(syncType),
	)
}

// RecordSyncedRecords records the number of records processed for one data domain.
func (sm *SyncMetrics) RecordSyncedRecords(ctx context.Context, providerType, domain string, records int64) {
	if records <= 0 {
		return
	}
	sm.syncRecordsTotal.Add(ctx, records,
		AttrProviderType.String(providerType),
		AttrSyncDomain.String(domain),
	)
}

// =============================================================================
// KPI Metrics
// =============================================================================

// RecordKPIComputation records a served KPI computation.
func (sm *SyncMetrics) RecordKPIComputation(ctx context.Context, kpiCode, providerType string) {
	sm.kpiComputationsTotal.Inc(ctx,
		AttrKPICode.String(kpiCode),
		AttrProviderType.String(providerType),
	)
}

// =============================================================================
// Periodic Collection
// =============================================================================

// StartPeriodicCollection starts periodic collection of connection fleet gauges.
// It collects every interval (default: 5 minutes).
// This is non-blocking - use Stop() to stop collection.
func (sm *SyncMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	sm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}

		go sm.runPeriodicCollection(ctx, interval)
	})
}

// runPeriodicCollection runs the periodic collection loop.
func (sm *SyncMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Collect immediately on start
	sm.collectConnectionMetrics(ctx)

	for {
		select {
		case <-sm.stopChan:
			sm.logger.Info("Stopping periodic sync metrics collection")
			return
		case <-ctx.Done():
			sm.logger.Info("Context cancelled, stopping periodic sync metrics collection")
			return
		case <-ticker.C:
			sm.collectConnectionMetrics(ctx)
		}
	}
}

// collectConnectionMetrics collects connection fleet gauge metrics.
func (sm *SyncMetrics) collectConnectionMetrics(ctx context.Context) {
	if sm.connectionProvider == nil {
		sm.logger.Debug("No connection provider configured, skipping connection metrics collection")
		return
	}

	counts, err := sm.connectionProvider.GetConnectionCountsByStatus(ctx)
	if err != nil {
		sm.logger.Warn("Failed to get connection counts", zap.Error(err))
	} else {
		for _, row := range counts {
			sm.connectionsCount.Record(ctx, row.Count,
				AttrProviderType.String(row.ProviderType),
				AttrSyncStatus.String(row.Status),
			)
		}
	}

	staleCount, err := sm.connectionProvider.GetStaleConnectionCount(ctx, time.Now().Add(-sm.staleAfter))
	if err != nil {
		sm.logger.Warn("Failed to get stale connection count", zap.Error(err))
	} else {
		sm.staleConnectionsCount.Record(ctx, staleCount)
	}
}

// Stop stops the periodic collection.
func (sm *SyncMetrics) Stop() {
	sm.stopOnce.Do(func() {
		close(sm.stopChan)
	})
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewSyncMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
