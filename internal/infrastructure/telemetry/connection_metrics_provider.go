// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// GormConnectionMetricsProvider implements ConnectionMetricsProvider using GORM.
// It queries the erp_connections table directly for aggregated metrics.
type GormConnectionMetricsProvider struct {
	db *gorm.DB
}

// NewGormConnectionMetricsProvider creates a new GormConnectionMetricsProvider.
func NewGormConnectionMetricsProvider(db *gorm.DB) *GormConnectionMetricsProvider {
	return &GormConnectionMetricsProvider{db: db}
}

// GetConnectionCountsByStatus returns connection counts grouped by provider
// type and lifecycle status.
func (p *GormConnectionMetricsProvider) GetConnectionCountsByStatus(ctx context.Context) ([]ConnectionStatusCount, error) {
	type result struct {
		ProviderType string `gorm:"column:provider_type"`
		Status       string `gorm:"column:status"`
		Count        int64  `gorm:"column:count"`
	}

	var results []result
	err := p.db.WithContext(ctx).
		Table("erp_connections").
		Select("provider_type, status, COUNT(*) as count").
		Group("provider_type, status").
		Find(&results).Error

	if err != nil {
		return nil, err
	}

	counts := make([]ConnectionStatusCount, 0, len(results))
	for _, r := range results {
		counts = append(counts, ConnectionStatusCount{
			ProviderType: r.ProviderType,
			Status:       r.Status,
			Count:        r.Count,
		})
	}
	return counts, nil
}

// GetStaleConnectionCount returns the number of connected integrations whose
// last successful sync is older than the given cutoff. Connections that have
// never synced count as stale.
func (p *GormConnectionMetricsProvider) GetStaleConnectionCount(ctx context.Context, olderThan time.Time) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Table("erp_connections").
		Where("status = ?", "CONNECTED").
		Where("last_sync_date IS NULL OR last_sync_date < ?", olderThan).
		Count(&count).Error

	if err != nil {
		return 0, err
	}
	return count, nil
}
