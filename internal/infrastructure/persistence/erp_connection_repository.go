package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bizpulse/backend/internal/domain/erp"
	"github.com/bizpulse/backend/internal/domain/shared"
	"github.com/bizpulse/backend/internal/infrastructure/persistence/models"
)

// GormConnectionRepository implements erp.ConnectionRepository using GORM
type GormConnectionRepository struct {
	db *gorm.DB
}

// NewGormConnectionRepository creates a new GormConnectionRepository
func NewGormConnectionRepository(db *gorm.DB) *GormConnectionRepository {
	return &GormConnectionRepository{db: db}
}

// FindByID finds a connection by its ID
func (r *GormConnectionRepository) FindByID(ctx context.Context, id uuid.UUID) (*erp.ERPConnection, error) {
	var model models.ERPConnectionModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, erp.ErrConnectionNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByCustomerAndProvider finds the connection for a (customer, provider) pair
func (r *GormConnectionRepository) FindByCustomerAndProvider(ctx context.Context, customerID uuid.UUID, providerType erp.ProviderType) (*erp.ERPConnection, error) {
	var model models.ERPConnectionModel
	if err := r.db.WithContext(ctx).
		Where("customer_id = ? AND provider_type = ?", customerID, providerType).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, erp.ErrConnectionNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByCustomer finds all connections for a customer
func (r *GormConnectionRepository) FindByCustomer(ctx context.Context, customerID uuid.UUID) ([]erp.ERPConnection, error) {
	var connectionModels []models.ERPConnectionModel
	if err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Find(&connectionModels).Error; err != nil {
		return nil, err
	}
	return toDomainConnections(connectionModels), nil
}

// FindAll finds all connections
func (r *GormConnectionRepository) FindAll(ctx context.Context) ([]erp.ERPConnection, error) {
	var connectionModels []models.ERPConnectionModel
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&connectionModels).Error; err != nil {
		return nil, err
	}
	return toDomainConnections(connectionModels), nil
}

// FindConnected finds all connections currently in CONNECTED state
func (r *GormConnectionRepository) FindConnected(ctx context.Context) ([]erp.ERPConnection, error) {
	var connectionModels []models.ERPConnectionModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", erp.ConnectionStatusConnected).
		Find(&connectionModels).Error; err != nil {
		return nil, err
	}
	return toDomainConnections(connectionModels), nil
}

// ExistsByCustomerAndProvider reports whether the (customer, provider) pair has a connection
func (r *GormConnectionRepository) ExistsByCustomerAndProvider(ctx context.Context, customerID uuid.UUID, providerType erp.ProviderType) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ERPConnectionModel{}).
		Where("customer_id = ? AND provider_type = ?", customerID, providerType).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create inserts a new connection row
func (r *GormConnectionRepository) Create(ctx context.Context, conn *erp.ERPConnection) error {
	model := models.ERPConnectionModelFromDomain(conn)
	return r.db.WithContext(ctx).Create(model).Error
}

// Update persists a mutated connection with an optimistic version check.
// The caller's in-memory version is bumped only after the row accepts the
// write, so a stale basis surfaces as a concurrency conflict instead of a
// lost update.
func (r *GormConnectionRepository) Update(ctx context.Context, conn *erp.ERPConnection) error {
	model := models.ERPConnectionModelFromDomain(conn)
	result := r.db.WithContext(ctx).
		Model(&models.ERPConnectionModel{}).
		Where("id = ? AND version = ?", conn.ID, conn.Version).
		Updates(map[string]interface{}{
			"status":                model.Status,
			"encrypted_credentials": model.EncryptedCredentials,
			"last_sync_date":        model.LastSyncDate,
			"last_sync_status":      model.LastSyncStatus,
			"last_sync_error":       model.LastSyncError,
			"mapping_health":        model.MappingHealth,
			"data_domains":          model.DataDomainsJSON,
			"version":               conn.Version + 1,
			"updated_at":            model.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	conn.Version++
	return nil
}

// Delete removes a connection and cascades its sync history in one transaction
func (r *GormConnectionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.ERPSyncHistoryModel{}, "connection_id = ?", id).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.ERPConnectionModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return erp.ErrConnectionNotFound
		}
		return nil
	})
}

func toDomainConnections(connectionModels []models.ERPConnectionModel) []erp.ERPConnection {
	connections := make([]erp.ERPConnection, len(connectionModels))
	for i, model := range connectionModels {
		connections[i] = *model.ToDomain()
	}
	return connections
}

// Ensure GormConnectionRepository implements the repository interface
var _ erp.ConnectionRepository = (*GormConnectionRepository)(nil)
