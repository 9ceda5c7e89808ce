package erp

import (
	"context"

	"github.com/google/uuid"
)

// ConnectionRepository persists ERPConnection aggregates.
type ConnectionRepository interface {
	// FindByID finds a connection by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*ERPConnection, error)

	// FindByCustomerAndProvider finds the connection for a (customer, provider) pair
	FindByCustomerAndProvider(ctx context.Context, customerID uuid.UUID, providerType ProviderType) (*ERPConnection, error)

	// FindByCustomer finds all connections for a customer
	FindByCustomer(ctx context.Context, customerID uuid.UUID) ([]ERPConnection, error)

	// FindAll finds all connections
	FindAll(ctx context.Context) ([]ERPConnection, error)

	// FindConnected finds all connections currently in CONNECTED state
	FindConnected(ctx context.Context) ([]ERPConnection, error)

	// ExistsByCustomerAndProvider reports whether a connection already exists
	// for the (customer, provider) pair
	ExistsByCustomerAndProvider(ctx context.Context, customerID uuid.UUID, providerType ProviderType) (bool, error)

	// Create inserts a new connection row
	Create(ctx context.Context, conn *ERPConnection) error

	// Update persists a mutated connection using an optimistic version check;
	// it returns shared.ErrConcurrencyConflict semantics when the row moved
	// underneath the caller
	Update(ctx context.Context, conn *ERPConnection) error

	// Delete removes a connection and cascades its sync history in one
	// transaction. Deletion is always this explicit bulk operation.
	Delete(ctx context.Context, id uuid.UUID) error
}

// SyncHistoryRepository persists append-only sync audit records.
type SyncHistoryRepository interface {
	// Create appends a history record. Records are never updated.
	Create(ctx context.Context, record *SyncHistoryRecord) error

	// FindByConnection returns history for a connection, newest first
	FindByConnection(ctx context.Context, connectionID uuid.UUID, limit, offset int) ([]SyncHistoryRecord, error)

	// CountByConnection returns the number of history rows for a connection
	CountByConnection(ctx context.Context, connectionID uuid.UUID) (int64, error)
}
