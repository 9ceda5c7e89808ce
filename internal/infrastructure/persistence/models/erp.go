package models

import (
	"encoding/json"
	"time"

	"github.com/bizpulse/backend/internal/domain/erp"
	"github.com/google/uuid"
)

// ERPConnectionModel is the persistence model for the ERPConnection aggregate.
type ERPConnectionModel struct {
	ID                   uuid.UUID            `gorm:"type:uuid;primary_key"`
	CustomerID           uuid.UUID            `gorm:"type:uuid;not null;uniqueIndex:idx_erp_connections_customer_provider,priority:1"`
	ProviderType         erp.ProviderType     `gorm:"type:varchar(20);not null;uniqueIndex:idx_erp_connections_customer_provider,priority:2"`
	Status               erp.ConnectionStatus `gorm:"type:varchar(20);not null;index"`
	EncryptedCredentials string               `gorm:"type:text;not null"`
	LastSyncDate         *time.Time           `gorm:"index"`
	LastSyncStatus       *erp.SyncStatus      `gorm:"type:varchar(20)"`
	LastSyncError        string               `gorm:"type:text"`
	MappingHealth        int                  `gorm:"not null;default:0"`
	DataDomainsJSON      string               `gorm:"type:jsonb;column:data_domains"`
	Version              int                  `gorm:"not null;default:1"`
	CreatedAt            time.Time            `gorm:"not null"`
	UpdatedAt            time.Time            `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ERPConnectionModel) TableName() string {
	return "erp_connections"
}

// ToDomain converts the persistence model to a domain ERPConnection aggregate.
func (m *ERPConnectionModel) ToDomain() *erp.ERPConnection {
	conn := &erp.ERPConnection{
		ID:                   m.ID,
		CustomerID:           m.CustomerID,
		ProviderType:         m.ProviderType,
		Status:               m.Status,
		EncryptedCredentials: m.EncryptedCredentials,
		LastSyncDate:         m.LastSyncDate,
		LastSyncStatus:       m.LastSyncStatus,
		LastSyncError:        m.LastSyncError,
		MappingHealth:        m.MappingHealth,
		DataDomains:          make([]erp.DataDomain, 0),
		Version:              m.Version,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}

	if m.DataDomainsJSON != "" {
		var domains []erp.DataDomain
		if err := json.Unmarshal([]byte(m.DataDomainsJSON), &domains); err == nil {
			conn.DataDomains = domains
		}
	}

	return conn
}

// FromDomain populates the persistence model from a domain ERPConnection aggregate.
func (m *ERPConnectionModel) FromDomain(c *erp.ERPConnection) {
	m.ID = c.ID
	m.CustomerID = c.CustomerID
	m.ProviderType = c.ProviderType
	m.Status = c.Status
	m.EncryptedCredentials = c.EncryptedCredentials
	m.LastSyncDate = c.LastSyncDate
	m.LastSyncStatus = c.LastSyncStatus
	m.LastSyncError = c.LastSyncError
	m.MappingHealth = c.MappingHealth
	m.DataDomainsJSON = marshalJSONList(c.DataDomains)
	m.Version = c.Version
	m.CreatedAt = c.CreatedAt
	m.UpdatedAt = c.UpdatedAt
}

// ERPConnectionModelFromDomain creates a new persistence model from a domain aggregate.
func ERPConnectionModelFromDomain(c *erp.ERPConnection) *ERPConnectionModel {
	m := &ERPConnectionModel{}
	m.FromDomain(c)
	return m
}

// ERPSyncHistoryModel is the persistence model for append-only sync audit records.
type ERPSyncHistoryModel struct {
	ID           uuid.UUID      `gorm:"type:uuid;primary_key"`
	ConnectionID uuid.UUID      `gorm:"type:uuid;not null;index:idx_erp_sync_history_connection"`
	SyncType     erp.SyncType   `gorm:"type:varchar(20);not null"`
	Status       erp.SyncStatus `gorm:"type:varchar(20);not null"`

	RecordsProcessed  int    `gorm:"not null;default:0"`
	RecordsSkipped    int    `gorm:"not null;default:0"`
	ErrorsJSON        string `gorm:"type:jsonb;column:errors"`
	WarningsJSON      string `gorm:"type:jsonb;column:warnings"`
	DomainsSyncedJSON string `gorm:"type:jsonb;column:domains_synced"`

	StartTime   time.Time `gorm:"not null"`
	EndTime     time.Time `gorm:"not null"`
	DurationMS  int64     `gorm:"not null;default:0"`
	TriggeredBy string    `gorm:"type:varchar(100)"`
	CreatedAt   time.Time `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (ERPSyncHistoryModel) TableName() string {
	return "erp_sync_history"
}

// ToDomain converts the persistence model to a domain SyncHistoryRecord.
func (m *ERPSyncHistoryModel) ToDomain() *erp.SyncHistoryRecord {
	record := &erp.SyncHistoryRecord{
		ID:               m.ID,
		ConnectionID:     m.ConnectionID,
		SyncType:         m.SyncType,
		Status:           m.Status,
		RecordsProcessed: m.RecordsProcessed,
		RecordsSkipped:   m.RecordsSkipped,
		Errors:           make([]string, 0),
		Warnings:         make([]string, 0),
		DomainsSynced:    make([]erp.DataDomain, 0),
		StartTime:        m.StartTime,
		EndTime:          m.EndTime,
		Duration:         time.Duration(m.DurationMS) * time.Millisecond,
		TriggeredBy:      m.TriggeredBy,
		CreatedAt:        m.CreatedAt,
	}

	if m.ErrorsJSON != "" {
		var errs []string
		if err := json.Unmarshal([]byte(m.ErrorsJSON), &errs); err == nil {
			record.Errors = errs
		}
	}
	if m.WarningsJSON != "" {
		var warnings []string
		if err := json.Unmarshal([]byte(m.WarningsJSON), &warnings); err == nil {
			record.Warnings = warnings
		}
	}
	if m.DomainsSyncedJSON != "" {
		var domains []erp.DataDomain
		if err := json.Unmarshal([]byte(m.DomainsSyncedJSON), &domains); err == nil {
			record.DomainsSynced = domains
		}
	}

	return record
}

// FromDomain populates the persistence model from a domain SyncHistoryRecord.
func (m *ERPSyncHistoryModel) FromDomain(r *erp.SyncHistoryRecord) {
	m.ID = r.ID
	m.ConnectionID = r.ConnectionID
	m.SyncType = r.SyncType
	m.Status = r.Status
	m.RecordsProcessed = r.RecordsProcessed
	m.RecordsSkipped = r.RecordsSkipped
	m.ErrorsJSON = marshalJSONList(r.Errors)
	m.WarningsJSON = marshalJSONList(r.Warnings)
	m.DomainsSyncedJSON = marshalJSONList(r.DomainsSynced)
	m.StartTime = r.StartTime
	m.EndTime = r.EndTime
	m.DurationMS = r.Duration.Milliseconds()
	m.TriggeredBy = r.TriggeredBy
	m.CreatedAt = r.CreatedAt
}

// ERPSyncHistoryModelFromDomain creates a new persistence model from a domain record.
func ERPSyncHistoryModelFromDomain(r *erp.SyncHistoryRecord) *ERPSyncHistoryModel {
	m := &ERPSyncHistoryModel{}
	m.FromDomain(r)
	return m
}

// marshalJSONList serializes a slice to JSON, defaulting to an empty array.
func marshalJSONList[T any](list []T) string {
	if len(list) == 0 {
		return "[]"
	}
	if jsonBytes, err := json.Marshal(list); err == nil {
		return string(jsonBytes)
	}
	return "[]"
}
