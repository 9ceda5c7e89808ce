package erpconn

import (
	"time"

	"github.com/google/uuid"

	"github.com/bizpulse/backend/internal/domain/erp"
)

// ---------------------------------------------------------------------------
// Connection DTOs
// ---------------------------------------------------------------------------

// ConnectionResponse represents a connection in API responses. The encrypted
// credential blob is deliberately absent: it never leaves the service.
type ConnectionResponse struct {
	ID             uuid.UUID            `json:"id"`
	CustomerID     uuid.UUID            `json:"customer_id"`
	ProviderType   erp.ProviderType     `json:"provider_type"`
	ProviderName   string               `json:"provider_name"`
	Status         erp.ConnectionStatus `json:"status"`
	LastSyncDate   *time.Time           `json:"last_sync_date,omitempty"`
	LastSyncStatus *erp.SyncStatus      `json:"last_sync_status,omitempty"`
	LastSyncError  string               `json:"last_sync_error,omitempty"`
	MappingHealth  int                  `json:"mapping_health"`
	DataDomains    []erp.DataDomain     `json:"data_domains"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// NewConnectionResponse converts a domain connection into its API shape.
func NewConnectionResponse(c *erp.ERPConnection) *ConnectionResponse {
	domains := c.DataDomains
	if domains == nil {
		domains = make([]erp.DataDomain, 0)
	}
	return &ConnectionResponse{
		ID:             c.ID,
		CustomerID:     c.CustomerID,
		ProviderType:   c.ProviderType,
		ProviderName:   c.ProviderType.DisplayName(),
		Status:         c.Status,
		LastSyncDate:   c.LastSyncDate,
		LastSyncStatus: c.LastSyncStatus,
		LastSyncError:  c.LastSyncError,
		MappingHealth:  c.MappingHealth,
		DataDomains:    domains,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

// TestResponse represents a connection test outcome in API responses
type TestResponse struct {
	Success    bool              `json:"success"`
	Message    string            `json:"message"`
	ServerInfo map[string]string `json:"server_info,omitempty"`
}

// NewTestResponse converts an adapter test result into its API shape.
func NewTestResponse(r *erp.TestResult) *TestResponse {
	return &TestResponse{
		Success:    r.Success,
		Message:    r.Message,
		ServerInfo: r.ServerInfo,
	}
}

// MappingValidationResponse reports mapping validation plus the recomputed
// mapping health score.
type MappingValidationResponse struct {
	Valid         bool     `json:"valid"`
	Errors        []string `json:"errors"`
	MappingHealth int      `json:"mapping_health"`
}

// ---------------------------------------------------------------------------
// Sync DTOs
// ---------------------------------------------------------------------------

// SyncOutcome is the use-case level result of a sync attempt. A failed sync
// is a normal outcome (Success=false), not an error: errors are reserved for
// precondition violations that never reached the provider.
type SyncOutcome struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Result  *SyncResultResponse `json:"result,omitempty"`
}

// SyncResultResponse represents sync metrics in API responses
type SyncResultResponse struct {
	Status           erp.SyncStatus   `json:"status"`
	RecordsProcessed int              `json:"records_processed"`
	RecordsSkipped   int              `json:"records_skipped"`
	Errors           []string         `json:"errors"`
	Warnings         []string         `json:"warnings"`
	DomainsSynced    []erp.DataDomain `json:"domains_synced"`
	StartTime        time.Time        `json:"start_time"`
	EndTime          time.Time        `json:"end_time"`
	DurationMS       int64            `json:"duration_ms"`
}

// NewSyncResultResponse converts a domain sync result into its API shape.
func NewSyncResultResponse(r *erp.SyncResult) *SyncResultResponse {
	return &SyncResultResponse{
		Status:           r.Status,
		RecordsProcessed: r.RecordsProcessed,
		RecordsSkipped:   r.RecordsSkipped,
		Errors:           emptyIfNil(r.Errors),
		Warnings:         emptyIfNil(r.Warnings),
		DomainsSynced:    emptyDomainsIfNil(r.DomainsSynced),
		StartTime:        r.StartTime,
		EndTime:          r.EndTime,
		DurationMS:       r.Duration().Milliseconds(),
	}
}

// SyncHistoryResponse represents one audit record in API responses
type SyncHistoryResponse struct {
	ID               uuid.UUID        `json:"id"`
	ConnectionID     uuid.UUID        `json:"connection_id"`
	SyncType         erp.SyncType     `json:"sync_type"`
	Status           erp.SyncStatus   `json:"status"`
	RecordsProcessed int              `json:"records_processed"`
	RecordsSkipped   int              `json:"records_skipped"`
	Errors           []string         `json:"errors"`
	Warnings         []string         `json:"warnings"`
	DomainsSynced    []erp.DataDomain `json:"domains_synced"`
	StartTime        time.Time        `json:"start_time"`
	EndTime          time.Time        `json:"end_time"`
	DurationMS       int64            `json:"duration_ms"`
	TriggeredBy      string           `json:"triggered_by"`
	CreatedAt        time.Time        `json:"created_at"`
}

// NewSyncHistoryResponse converts a domain history record into its API shape.
func NewSyncHistoryResponse(r *erp.SyncHistoryRecord) *SyncHistoryResponse {
	return &SyncHistoryResponse{
		ID:               r.ID,
		ConnectionID:     r.ConnectionID,
		SyncType:         r.SyncType,
		Status:           r.Status,
		RecordsProcessed: r.RecordsProcessed,
		RecordsSkipped:   r.RecordsSkipped,
		Errors:           emptyIfNil(r.Errors),
		Warnings:         emptyIfNil(r.Warnings),
		DomainsSynced:    emptyDomainsIfNil(r.DomainsSynced),
		StartTime:        r.StartTime,
		EndTime:          r.EndTime,
		DurationMS:       r.Duration.Milliseconds(),
		TriggeredBy:      r.TriggeredBy,
		CreatedAt:        r.CreatedAt,
	}
}

// SyncHistoryListResponse is a paginated history listing
type SyncHistoryListResponse struct {
	Records []SyncHistoryResponse `json:"records"`
	Total   int64                 `json:"total"`
	Limit   int                   `json:"limit"`
	Offset  int                   `json:"offset"`
}

func emptyIfNil(list []string) []string {
	if list == nil {
		return make([]string, 0)
	}
	return list
}

func emptyDomainsIfNil(list []erp.DataDomain) []erp.DataDomain {
	if list == nil {
		return make([]erp.DataDomain, 0)
	}
	return list
}
