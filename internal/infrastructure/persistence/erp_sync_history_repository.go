package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bizpulse/backend/internal/domain/erp"
	"github.com/bizpulse/backend/internal/infrastructure/persistence/models"
)

// GormSyncHistoryRepository implements erp.SyncHistoryRepository using GORM.
// History rows are append-only: there is deliberately no update method.
type GormSyncHistoryRepository struct {
	db *gorm.DB
}

// NewGormSyncHistoryRepository creates a new GormSyncHistoryRepository
func NewGormSyncHistoryRepository(db *gorm.DB) *GormSyncHistoryRepository {
	return &GormSyncHistoryRepository{db: db}
}

// Create appends a history record
func (r *GormSyncHistoryRepository) Create(ctx context.Context, record *erp.SyncHistoryRecord) error {
	model := models.ERPSyncHistoryModelFromDomain(record)
	return r.db.WithContext(ctx).Create(model).Error
}

// FindByConnection returns history for a connection, newest first
func (r *GormSyncHistoryRepository) FindByConnection(ctx context.Context, connectionID uuid.UUID, limit, offset int) ([]erp.SyncHistoryRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var historyModels []models.ERPSyncHistoryModel
	if err := r.db.WithContext(ctx).
		Where("connection_id = ?", connectionID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&historyModels).Error; err != nil {
		return nil, err
	}

	records := make([]erp.SyncHistoryRecord, len(historyModels))
	for i, model := range historyModels {
		records[i] = *model.ToDomain()
	}
	return records, nil
}

// CountByConnection returns the number of history rows for a connection
func (r *GormSyncHistoryRepository) CountByConnection(ctx context.Context, connectionID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ERPSyncHistoryModel{}).
		Where("connection_id = ?", connectionID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Ensure GormSyncHistoryRepository implements the repository interface
var _ erp.SyncHistoryRepository = (*GormSyncHistoryRepository)(nil)
