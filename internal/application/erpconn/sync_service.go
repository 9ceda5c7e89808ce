package erpconn

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bizpulse/backend/internal/domain/erp"
)

// syncLockTTL bounds how long a crashed replica can hold the distributed
// sync lock for a connection.
const syncLockTTL = 10 * time.Minute

// SyncOrchestrator runs data syncs against a connected provider. Its core
// invariant: every attempt that passes the preconditions writes exactly one
// history record and updates the connection's sync fields, on the success
// path and the failure path alike.
type SyncOrchestrator struct {
	connections erp.ConnectionRepository
	history     erp.SyncHistoryRepository
	registry    erp.AdapterRegistry
	vault       CredentialVault
	locks       *keyedMutex
	distLock    DistributedLock
	callTimeout time.Duration
	logger      *zap.Logger
}

// NewSyncOrchestrator creates a new SyncOrchestrator
func NewSyncOrchestrator(
	connections erp.ConnectionRepository,
	history erp.SyncHistoryRepository,
	registry erp.AdapterRegistry,
	vault CredentialVault,
	distLock DistributedLock,
	callTimeout time.Duration,
	logger *zap.Logger,
) *SyncOrchestrator {
	if callTimeout <= 0 {
		callTimeout = 30 * time.Second
	}
	if distLock == nil {
		distLock = NoopLock{}
	}
	return &SyncOrchestrator{
		connections: connections,
		history:     history,
		registry:    registry,
		vault:       vault,
		locks:       newKeyedMutex(),
		distLock:    distLock,
		callTimeout: callTimeout,
		logger:      logger,
	}
}

// Sync pulls the requested data domains from the provider. Precondition
// failures (missing connection, wrong state, held lock) return an error and
// write nothing; once fetching starts, the outcome is always recorded.
func (s *SyncOrchestrator) Sync(ctx context.Context, connectionID uuid.UUID, domains []string, syncType erp.SyncType, triggeredBy string) (*SyncOutcome, error) {
	unlock := s.locks.lock(connectionID)
	defer unlock()

	release, acquired, err := s.distLock.Acquire(ctx, "erp:sync:"+connectionID.String(), syncLockTTL)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, fmt.Errorf("%w: a sync is already running for connection %s", erp.ErrConnectionState, connectionID)
	}
	defer release()

	conn, err := s.connections.FindByID(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if !conn.Status.CanSync() {
		return nil, fmt.Errorf("%w: sync requires CONNECTED, connection is %s", erp.ErrConnectionState, conn.Status)
	}

	adapter, err := s.registry.GetAdapter(conn.ProviderType)
	if err != nil {
		return nil, err
	}
	// Decrypted exactly once; the value stays inside this call.
	creds, err := s.vault.Decrypt(conn.EncryptedCredentials)
	if err != nil {
		return nil, err
	}

	result := s.runDomains(ctx, adapter, creds, domains)
	s.record(ctx, conn, syncType, triggeredBy, result)

	outcome := &SyncOutcome{
		Success: result.Status != erp.SyncStatusFailed,
		Result:  NewSyncResultResponse(result),
	}
	if outcome.Success {
		outcome.Message = fmt.Sprintf("Synced %d records across %d domains", result.RecordsProcessed, len(result.DomainsSynced))
	} else {
		outcome.Message = fmt.Sprintf("Sync failed: %s", result.Errors[len(result.Errors)-1])
	}
	return outcome, nil
}

// runDomains dispatches each requested domain to its fetch method. Unknown
// domain tags become warnings and never abort the loop; a fetch error stops
// the remaining domains, keeping whatever counts were accumulated.
func (s *SyncOrchestrator) runDomains(ctx context.Context, adapter erp.ProviderAdapter, creds erp.Credentials, domains []string) *erp.SyncResult {
	result := &erp.SyncResult{
		Status:        erp.SyncStatusSuccess,
		Errors:        make([]string, 0),
		Warnings:      make([]string, 0),
		DomainsSynced: make([]erp.DataDomain, 0),
		StartTime:     time.Now(),
	}
	defer func() { result.EndTime = time.Now() }()

	for _, tag := range domains {
		dataDomain := erp.DataDomain(tag)
		if !dataDomain.IsValid() {
			result.Warnings = append(result.Warnings, fmt.Sprintf("unknown data domain: %s", tag))
			result.RecordsSkipped++
			continue
		}

		count, err := s.fetchDomain(ctx, adapter, creds, dataDomain)
		if err != nil {
			result.Status = erp.SyncStatusFailed
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", dataDomain, err))
			return result
		}
		result.RecordsProcessed += count
		result.DomainsSynced = append(result.DomainsSynced, dataDomain)
	}
	return result
}

// fetchDomain runs one domain's fetch with the per-call timeout.
func (s *SyncOrchestrator) fetchDomain(ctx context.Context, adapter erp.ProviderAdapter, creds erp.Credentials, dataDomain erp.DataDomain) (int, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	switch dataDomain {
	case erp.DataDomainAR:
		records, err := adapter.GetCustomers(callCtx, creds, nil)
		return len(records), err
	case erp.DataDomainSales:
		records, err := adapter.GetInvoices(callCtx, creds, nil)
		return len(records), err
	case erp.DataDomainAP:
		records, err := adapter.GetPayments(callCtx, creds, nil)
		return len(records), err
	case erp.DataDomainGL:
		records, err := adapter.GetAccountTransactions(callCtx, creds, nil)
		return len(records), err
	case erp.DataDomainHR:
		records, err := adapter.GetEmployees(callCtx, creds)
		return len(records), err
	default:
		return 0, fmt.Errorf("no fetch method for domain %s", dataDomain)
	}
}

// record writes the history row and updates the connection. Neither write
// is allowed to silently vanish: a failed history write is logged loudly
// and the connection update still runs. The writes are detached from the
// caller's cancellation so an aborted request still leaves an audit trail.
func (s *SyncOrchestrator) record(ctx context.Context, conn *erp.ERPConnection, syncType erp.SyncType, triggeredBy string, result *erp.SyncResult) {
	ctx = context.WithoutCancel(ctx)
	historyRecord := erp.NewSyncHistoryRecord(conn.ID, syncType, triggeredBy, result)
	if err := s.history.Create(ctx, historyRecord); err != nil {
		s.logger.Error("failed to write sync history record",
			zap.String("connection_id", conn.ID.String()),
			zap.String("status", result.Status.String()),
			zap.Error(err))
	}

	var syncErr string
	if len(result.Errors) > 0 {
		syncErr = result.Errors[len(result.Errors)-1]
	}
	conn.RecordSyncOutcome(result.Status, syncErr, result.DomainsSynced)
	if err := s.connections.Update(ctx, conn); err != nil {
		s.logger.Error("failed to update connection after sync",
			zap.String("connection_id", conn.ID.String()),
			zap.Error(err))
	}
}
