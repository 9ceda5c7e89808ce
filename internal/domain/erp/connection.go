package erp

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Connection Status State Machine
// ---------------------------------------------------------------------------

// ConnectionStatus represents the lifecycle state of an ERP connection.
// The conceptual start state (no row exists) has no constant; a connection
// row only comes into existence already CONNECTED, after a successful test.
type ConnectionStatus string

const (
	// ConnectionStatusConnecting indicates a test/reconnect is in flight
	ConnectionStatusConnecting ConnectionStatus = "CONNECTING"
	// ConnectionStatusConnected indicates the connection is healthy
	ConnectionStatusConnected ConnectionStatus = "CONNECTED"
	// ConnectionStatusError indicates the last test or sync failed
	ConnectionStatusError ConnectionStatus = "ERROR"
	// ConnectionStatusDisconnected indicates an explicit disconnect
	ConnectionStatusDisconnected ConnectionStatus = "DISCONNECTED"
)

// IsValid returns true if the status is valid
func (s ConnectionStatus) IsValid() bool {
	switch s {
	case ConnectionStatusConnecting, ConnectionStatusConnected,
		ConnectionStatusError, ConnectionStatusDisconnected:
		return true
	default:
		return false
	}
}

// String returns the string representation of ConnectionStatus
func (s ConnectionStatus) String() string {
	return string(s)
}

// CanSync returns true when syncs are permitted in this state.
// CONNECTED is the only such state.
func (s ConnectionStatus) CanSync() bool {
	return s == ConnectionStatusConnected
}

// CanReconnect returns true when a reconnect attempt may start.
func (s ConnectionStatus) CanReconnect() bool {
	switch s {
	case ConnectionStatusConnected, ConnectionStatusError, ConnectionStatusDisconnected:
		return true
	default:
		return false
	}
}

// ---------------------------------------------------------------------------
// Sync Status / Type
// ---------------------------------------------------------------------------

// SyncStatus represents the outcome of a sync attempt
type SyncStatus string

const (
	// SyncStatusSuccess indicates every requested domain synced
	SyncStatusSuccess SyncStatus = "SUCCESS"
	// SyncStatusPartial indicates some domains synced, some failed
	SyncStatusPartial SyncStatus = "PARTIAL"
	// SyncStatusFailed indicates the sync produced no usable data
	SyncStatusFailed SyncStatus = "FAILED"
)

// IsValid returns true if the status is valid
func (s SyncStatus) IsValid() bool {
	switch s {
	case SyncStatusSuccess, SyncStatusPartial, SyncStatusFailed:
		return true
	default:
		return false
	}
}

// String returns the string representation of SyncStatus
func (s SyncStatus) String() string {
	return string(s)
}

// SyncType distinguishes who initiated a sync
type SyncType string

const (
	// SyncTypeManual is a user- or API-triggered sync
	SyncTypeManual SyncType = "MANUAL"
	// SyncTypeScheduled is a scheduler-triggered sync
	SyncTypeScheduled SyncType = "SCHEDULED"
)

// IsValid returns true if the sync type is valid
func (t SyncType) IsValid() bool {
	return t == SyncTypeManual || t == SyncTypeScheduled
}

// String returns the string representation of SyncType
func (t SyncType) String() string {
	return string(t)
}

// ---------------------------------------------------------------------------
// ERPConnection Aggregate
// ---------------------------------------------------------------------------

// ERPConnection is the aggregate root tracking one customer's link to one
// ERP provider. At most one connection exists per (CustomerID, ProviderType)
// pair; the lifecycle service enforces that before any network call.
type ERPConnection struct {
	ID           uuid.UUID
	CustomerID   uuid.UUID
	ProviderType ProviderType

	// Status follows the transition table in the lifecycle service.
	Status ConnectionStatus
	// EncryptedCredentials is the vault-produced opaque blob. It is never
	// decrypted outside an adapter call and never serialized outward.
	EncryptedCredentials string

	LastSyncDate   *time.Time
	LastSyncStatus *SyncStatus
	LastSyncError  string
	// MappingHealth scores how completely field mappings are configured (0-100).
	MappingHealth int
	// DataDomains is the set of domains currently considered synced.
	DataDomains []DataDomain

	// Version backs the optimistic concurrency check on status-updating writes.
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewERPConnection creates a connection row after a successful live test.
// Per the lifecycle rules it is born CONNECTED.
func NewERPConnection(customerID uuid.UUID, providerType ProviderType, encryptedCredentials string) (*ERPConnection, error) {
	if customerID == uuid.Nil {
		return nil, fmt.Errorf("%w: customer ID is required", ErrInvalidCredentials)
	}
	if !providerType.IsValid() {
		return nil, ErrUnsupportedProvider
	}
	if encryptedCredentials == "" {
		return nil, fmt.Errorf("%w: encrypted credentials are required", ErrInvalidCredentials)
	}
	now := time.Now()
	status := SyncStatusSuccess
	return &ERPConnection{
		ID:                   uuid.New(),
		CustomerID:           customerID,
		ProviderType:         providerType,
		Status:               ConnectionStatusConnected,
		EncryptedCredentials: encryptedCredentials,
		LastSyncDate:         &now,
		LastSyncStatus:       &status,
		MappingHealth:        0,
		DataDomains:          make([]DataDomain, 0),
		Version:              1,
		CreatedAt:            now,
		UpdatedAt:            now,
	}, nil
}

// BeginReconnect moves the connection into CONNECTING and clears the last
// sync error. Allowed from CONNECTED, ERROR and DISCONNECTED.
func (c *ERPConnection) BeginReconnect() error {
	if !c.Status.CanReconnect() {
		return fmt.Errorf("%w: cannot reconnect from %s", ErrConnectionState, c.Status)
	}
	c.Status = ConnectionStatusConnecting
	c.LastSyncError = ""
	c.UpdatedAt = time.Now()
	return nil
}

// CompleteReconnect resolves a CONNECTING state based on the test outcome.
func (c *ERPConnection) CompleteReconnect(success bool, message string) error {
	if c.Status != ConnectionStatusConnecting {
		return fmt.Errorf("%w: cannot complete reconnect from %s", ErrConnectionState, c.Status)
	}
	now := time.Now()
	if success {
		c.Status = ConnectionStatusConnected
		status := SyncStatusSuccess
		c.LastSyncStatus = &status
		c.LastSyncDate = &now
	} else {
		c.Status = ConnectionStatusError
		status := SyncStatusFailed
		c.LastSyncStatus = &status
		c.LastSyncError = message
	}
	c.UpdatedAt = now
	return nil
}

// Disconnect moves a CONNECTED connection to DISCONNECTED.
func (c *ERPConnection) Disconnect() error {
	if c.Status != ConnectionStatusConnected {
		return fmt.Errorf("%w: cannot disconnect from %s", ErrConnectionState, c.Status)
	}
	c.Status = ConnectionStatusDisconnected
	c.UpdatedAt = time.Now()
	return nil
}

// RecordSyncOutcome updates the rolling health fields after a sync attempt.
// A FAILED outcome keeps the connection CONNECTED; only tests change status.
func (c *ERPConnection) RecordSyncOutcome(status SyncStatus, syncErr string, domains []DataDomain) {
	now := time.Now()
	c.LastSyncDate = &now
	c.LastSyncStatus = &status
	c.LastSyncError = syncErr
	if status != SyncStatusFailed && len(domains) > 0 {
		c.DataDomains = mergeDomains(c.DataDomains, domains)
	}
	c.UpdatedAt = now
}

// SetMappingHealth clamps and stores the mapping health score.
func (c *ERPConnection) SetMappingHealth(score int) {
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	c.MappingHealth = score
	c.UpdatedAt = time.Now()
}

// mergeDomains unions the synced domain sets, preserving order of first sight.
func mergeDomains(existing, synced []DataDomain) []DataDomain {
	seen := make(map[DataDomain]struct{}, len(existing))
	merged := make([]DataDomain, 0, len(existing)+len(synced))
	for _, d := range existing {
		if _, ok := seen[d]; !ok {
			seen[d] = struct{}{}
			merged = append(merged, d)
		}
	}
	for _, d := range synced {
		if _, ok := seen[d]; !ok {
			seen[d] = struct{}{}
			merged = append(merged, d)
		}
	}
	return merged
}

// ---------------------------------------------------------------------------
// Sync Result / History
// ---------------------------------------------------------------------------

// SyncResult aggregates the per-domain outcomes of one sync attempt.
type SyncResult struct {
	Status           SyncStatus
	RecordsProcessed int
	RecordsSkipped   int
	Errors           []string
	Warnings         []string
	DomainsSynced    []DataDomain
	StartTime        time.Time
	EndTime          time.Time
}

// Duration returns the wall-clock length of the sync.
func (r *SyncResult) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

// SyncHistoryRecord is the append-only audit entry for one sync attempt.
// Every attempt, including ones that die on an exception mid-loop, produces
// exactly one record. Records are never mutated after creation.
type SyncHistoryRecord struct {
	ID           uuid.UUID
	ConnectionID uuid.UUID
	SyncType     SyncType
	Status       SyncStatus

	RecordsProcessed int
	RecordsSkipped   int
	Errors           []string
	Warnings         []string
	DomainsSynced    []DataDomain

	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
	TriggeredBy string
	CreatedAt   time.Time
}

// NewSyncHistoryRecord freezes a sync result into an audit entry.
func NewSyncHistoryRecord(connectionID uuid.UUID, syncType SyncType, triggeredBy string, result *SyncResult) *SyncHistoryRecord {
	return &SyncHistoryRecord{
		ID:               uuid.New(),
		ConnectionID:     connectionID,
		SyncType:         syncType,
		Status:           result.Status,
		RecordsProcessed: result.RecordsProcessed,
		RecordsSkipped:   result.RecordsSkipped,
		Errors:           append([]string(nil), result.Errors...),
		Warnings:         append([]string(nil), result.Warnings...),
		DomainsSynced:    append([]DataDomain(nil), result.DomainsSynced...),
		StartTime:        result.StartTime,
		EndTime:          result.EndTime,
		Duration:         result.Duration(),
		TriggeredBy:      triggeredBy,
		CreatedAt:        time.Now(),
	}
}
