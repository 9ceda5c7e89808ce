package erpconn

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bizpulse/backend/internal/domain/erp"
)

// LifecycleService owns the connection state machine: connect, test,
// reconnect, disconnect, and the read/delete surface around it. Adapters
// stay stateless; every state transition lives here.
type LifecycleService struct {
	connections erp.ConnectionRepository
	history     erp.SyncHistoryRepository
	registry    erp.AdapterRegistry
	vault       CredentialVault
	callTimeout time.Duration
	logger      *zap.Logger
}

// NewLifecycleService creates a new LifecycleService
func NewLifecycleService(
	connections erp.ConnectionRepository,
	history erp.SyncHistoryRepository,
	registry erp.AdapterRegistry,
	vault CredentialVault,
	callTimeout time.Duration,
	logger *zap.Logger,
) *LifecycleService {
	if callTimeout <= 0 {
		callTimeout = 30 * time.Second
	}
	return &LifecycleService{
		connections: connections,
		history:     history,
		registry:    registry,
		vault:       vault,
		callTimeout: callTimeout,
		logger:      logger,
	}
}

// ---------------------------------------------------------------------------
// State Transitions
// ---------------------------------------------------------------------------

// Connect creates a connection for a (customer, provider) pair. The
// duplicate check runs before any network call; a failing live test means
// no row is created at all.
func (s *LifecycleService) Connect(ctx context.Context, customerID uuid.UUID, providerType erp.ProviderType, creds erp.Credentials) (*erp.ERPConnection, *erp.TestResult, error) {
	creds.ProviderType = providerType
	if err := creds.Validate(); err != nil {
		return nil, nil, err
	}

	exists, err := s.connections.ExistsByCustomerAndProvider(ctx, customerID, providerType)
	if err != nil {
		return nil, nil, err
	}
	if exists {
		return nil, nil, erp.ErrDuplicateConnection
	}

	adapter, err := s.registry.GetAdapter(providerType)
	if err != nil {
		return nil, nil, err
	}

	testCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	testResult, err := adapter.TestConnection(testCtx, creds)
	if err != nil {
		s.logger.Warn("connection test failed during connect",
			zap.String("customer_id", customerID.String()),
			zap.String("provider", providerType.String()),
			zap.Error(err))
		return nil, nil, err
	}

	blob, err := s.vault.Encrypt(creds)
	if err != nil {
		return nil, nil, err
	}

	conn, err := erp.NewERPConnection(customerID, providerType, blob)
	if err != nil {
		return nil, nil, err
	}
	if err := s.connections.Create(ctx, conn); err != nil {
		return nil, nil, err
	}

	s.logger.Info("ERP connection created",
		zap.String("connection_id", conn.ID.String()),
		zap.String("customer_id", customerID.String()),
		zap.String("provider", providerType.String()))
	return conn, testResult, nil
}

// Test runs a live connection test without changing any state.
func (s *LifecycleService) Test(ctx context.Context, connectionID uuid.UUID) (*erp.TestResult, error) {
	conn, err := s.connections.FindByID(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	adapter, creds, err := s.resolve(conn)
	if err != nil {
		return nil, err
	}

	testCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	return adapter.TestConnection(testCtx, creds)
}

// Reconnect moves the connection through CONNECTING and resolves it to
// CONNECTED or ERROR based on a live test. Both the intermediate and the
// final state are persisted so observers see the transition.
func (s *LifecycleService) Reconnect(ctx context.Context, connectionID uuid.UUID) (*erp.ERPConnection, error) {
	conn, err := s.connections.FindByID(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if err := conn.BeginReconnect(); err != nil {
		return nil, err
	}
	if err := s.connections.Update(ctx, conn); err != nil {
		return nil, err
	}

	adapter, creds, err := s.resolve(conn)
	if err != nil {
		// Unresolvable adapter or blob still resolves the CONNECTING state.
		s.completeReconnect(ctx, conn, false, err.Error())
		return nil, err
	}

	testCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	testResult, testErr := adapter.TestConnection(testCtx, creds)

	if testErr != nil {
		s.completeReconnect(ctx, conn, false, testErr.Error())
	} else {
		s.completeReconnect(ctx, conn, true, testResult.Message)
	}
	return conn, nil
}

func (s *LifecycleService) completeReconnect(ctx context.Context, conn *erp.ERPConnection, success bool, message string) {
	if err := conn.CompleteReconnect(success, message); err != nil {
		s.logger.Error("failed to resolve reconnect state",
			zap.String("connection_id", conn.ID.String()), zap.Error(err))
		return
	}
	if err := s.connections.Update(ctx, conn); err != nil {
		s.logger.Error("failed to persist reconnect outcome",
			zap.String("connection_id", conn.ID.String()), zap.Error(err))
	}
}

// Disconnect moves a CONNECTED connection to DISCONNECTED. Adapter-level
// cleanup is best-effort; session-less adapters no-op here.
func (s *LifecycleService) Disconnect(ctx context.Context, connectionID uuid.UUID) (*erp.ERPConnection, error) {
	conn, err := s.connections.FindByID(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if err := conn.Disconnect(); err != nil {
		return nil, err
	}

	if adapter, adapterErr := s.registry.GetAdapter(conn.ProviderType); adapterErr == nil {
		if err := adapter.Disconnect(ctx, conn.ID); err != nil {
			s.logger.Warn("adapter cleanup failed during disconnect",
				zap.String("connection_id", conn.ID.String()), zap.Error(err))
		}
	}

	if err := s.connections.Update(ctx, conn); err != nil {
		return nil, err
	}
	return conn, nil
}

// ---------------------------------------------------------------------------
// Reads / Delete
// ---------------------------------------------------------------------------

// Get returns one connection.
func (s *LifecycleService) Get(ctx context.Context, connectionID uuid.UUID) (*erp.ERPConnection, error) {
	return s.connections.FindByID(ctx, connectionID)
}

// List returns connections, optionally filtered by customer.
func (s *LifecycleService) List(ctx context.Context, customerID *uuid.UUID) ([]erp.ERPConnection, error) {
	if customerID != nil {
		return s.connections.FindByCustomer(ctx, *customerID)
	}
	return s.connections.FindAll(ctx)
}

// Delete removes a connection and its sync history in one transaction.
func (s *LifecycleService) Delete(ctx context.Context, connectionID uuid.UUID) error {
	if err := s.connections.Delete(ctx, connectionID); err != nil {
		return err
	}
	s.logger.Info("ERP connection deleted", zap.String("connection_id", connectionID.String()))
	return nil
}

// History returns the paginated sync audit trail, newest first.
func (s *LifecycleService) History(ctx context.Context, connectionID uuid.UUID, limit, offset int) (*SyncHistoryListResponse, error) {
	if _, err := s.connections.FindByID(ctx, connectionID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	records, err := s.history.FindByConnection(ctx, connectionID, limit, offset)
	if err != nil {
		return nil, err
	}
	total, err := s.history.CountByConnection(ctx, connectionID)
	if err != nil {
		return nil, err
	}

	responses := make([]SyncHistoryResponse, len(records))
	for i := range records {
		responses[i] = *NewSyncHistoryResponse(&records[i])
	}
	return &SyncHistoryListResponse{Records: responses, Total: total, Limit: limit, Offset: offset}, nil
}

// ---------------------------------------------------------------------------
// Mapping Validation
// ---------------------------------------------------------------------------

// ValidateMappings checks the configured field mappings against the
// provider's model surface and recomputes the connection's mapping health
// as the share of mappings that validated.
func (s *LifecycleService) ValidateMappings(ctx context.Context, connectionID uuid.UUID, mappings []erp.FieldMapping) (*MappingValidationResponse, error) {
	conn, err := s.connections.FindByID(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	adapter, creds, err := s.resolve(conn)
	if err != nil {
		return nil, err
	}

	validateCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	validation, err := adapter.ValidateMapping(validateCtx, creds, mappings)
	if err != nil {
		return nil, err
	}

	health := 0
	if len(mappings) > 0 {
		health = (len(mappings) - len(validation.Errors)) * 100 / len(mappings)
	}
	conn.SetMappingHealth(health)
	if err := s.connections.Update(ctx, conn); err != nil {
		return nil, err
	}

	return &MappingValidationResponse{
		Valid:         validation.Valid,
		Errors:        emptyIfNil(validation.Errors),
		MappingHealth: health,
	}, nil
}

// resolve pairs a connection with its adapter and decrypted credentials.
// The credentials value must not outlive the adapter call the caller is
// about to make.
func (s *LifecycleService) resolve(conn *erp.ERPConnection) (erp.ProviderAdapter, erp.Credentials, error) {
	adapter, err := s.registry.GetAdapter(conn.ProviderType)
	if err != nil {
		return nil, erp.Credentials{}, err
	}
	creds, err := s.vault.Decrypt(conn.EncryptedCredentials)
	if err != nil {
		return nil, erp.Credentials{}, err
	}
	return adapter, creds, nil
}
