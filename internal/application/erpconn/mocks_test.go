package erpconn

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/bizpulse/backend/internal/domain/erp"
)

// MockConnectionRepository is a mock implementation of erp.ConnectionRepository
type MockConnectionRepository struct {
	mock.Mock
}

func (m *MockConnectionRepository) FindByID(ctx context.Context, id uuid.UUID) (*erp.ERPConnection, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*erp.ERPConnection), args.Error(1)
}

func (m *MockConnectionRepository) FindByCustomerAndProvider(ctx context.Context, customerID uuid.UUID, providerType erp.ProviderType) (*erp.ERPConnection, error) {
	args := m.Called(ctx, customerID, providerType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*erp.ERPConnection), args.Error(1)
}

func (m *MockConnectionRepository) FindByCustomer(ctx context.Context, customerID uuid.UUID) ([]erp.ERPConnection, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]erp.ERPConnection), args.Error(1)
}

func (m *MockConnectionRepository) FindAll(ctx context.Context) ([]erp.ERPConnection, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]erp.ERPConnection), args.Error(1)
}

func (m *MockConnectionRepository) FindConnected(ctx context.Context) ([]erp.ERPConnection, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]erp.ERPConnection), args.Error(1)
}

func (m *MockConnectionRepository) ExistsByCustomerAndProvider(ctx context.Context, customerID uuid.UUID, providerType erp.ProviderType) (bool, error) {
	args := m.Called(ctx, customerID, providerType)
	return args.Bool(0), args.Error(1)
}

func (m *MockConnectionRepository) Create(ctx context.Context, conn *erp.ERPConnection) error {
	args := m.Called(ctx, conn)
	return args.Error(0)
}

func (m *MockConnectionRepository) Update(ctx context.Context, conn *erp.ERPConnection) error {
	args := m.Called(ctx, conn)
	return args.Error(0)
}

func (m *MockConnectionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockSyncHistoryRepository is a mock implementation of erp.SyncHistoryRepository
type MockSyncHistoryRepository struct {
	mock.Mock
}

func (m *MockSyncHistoryRepository) Create(ctx context.Context, record *erp.SyncHistoryRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockSyncHistoryRepository) FindByConnection(ctx context.Context, connectionID uuid.UUID, limit, offset int) ([]erp.SyncHistoryRecord, error) {
	args := m.Called(ctx, connectionID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]erp.SyncHistoryRecord), args.Error(1)
}

func (m *MockSyncHistoryRepository) CountByConnection(ctx context.Context, connectionID uuid.UUID) (int64, error) {
	args := m.Called(ctx, connectionID)
	return args.Get(0).(int64), args.Error(1)
}

// MockProviderAdapter is a mock implementation of erp.ProviderAdapter
type MockProviderAdapter struct {
	mock.Mock
	provider erp.ProviderType
}

func (m *MockProviderAdapter) ProviderType() erp.ProviderType {
	return m.provider
}

func (m *MockProviderAdapter) TestConnection(ctx context.Context, creds erp.Credentials) (*erp.TestResult, error) {
	args := m.Called(ctx, creds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*erp.TestResult), args.Error(1)
}

func (m *MockProviderAdapter) Disconnect(ctx context.Context, connectionID uuid.UUID) error {
	args := m.Called(ctx, connectionID)
	return args.Error(0)
}

func (m *MockProviderAdapter) GetCustomers(ctx context.Context, creds erp.Credentials, dateRange *erp.DateRange) ([]erp.PartnerRecord, error) {
	args := m.Called(ctx, creds, dateRange)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]erp.PartnerRecord), args.Error(1)
}

func (m *MockProviderAdapter) GetInvoices(ctx context.Context, creds erp.Credentials, dateRange *erp.DateRange) ([]erp.InvoiceRecord, error) {
	args := m.Called(ctx, creds, dateRange)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]erp.InvoiceRecord), args.Error(1)
}

func (m *MockProviderAdapter) GetPayments(ctx context.Context, creds erp.Credentials, dateRange *erp.DateRange) ([]erp.PaymentRecord, error) {
	args := m.Called(ctx, creds, dateRange)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]erp.PaymentRecord), args.Error(1)
}

func (m *MockProviderAdapter) GetAccountTransactions(ctx context.Context, creds erp.Credentials, dateRange *erp.DateRange) ([]erp.AccountMoveRecord, error) {
	args := m.Called(ctx, creds, dateRange)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]erp.AccountMoveRecord), args.Error(1)
}

func (m *MockProviderAdapter) GetSalesOrders(ctx context.Context, creds erp.Credentials, dateRange *erp.DateRange) ([]erp.SalesOrderRecord, error) {
	args := m.Called(ctx, creds, dateRange)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]erp.SalesOrderRecord), args.Error(1)
}

func (m *MockProviderAdapter) GetEmployees(ctx context.Context, creds erp.Credentials) ([]erp.EmployeeRecord, error) {
	args := m.Called(ctx, creds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]erp.EmployeeRecord), args.Error(1)
}

func (m *MockProviderAdapter) GetChartOfAccounts(ctx context.Context, creds erp.Credentials) ([]erp.AccountRecord, error) {
	args := m.Called(ctx, creds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]erp.AccountRecord), args.Error(1)
}

func (m *MockProviderAdapter) ValidateMapping(ctx context.Context, creds erp.Credentials, mappings []erp.FieldMapping) (*erp.MappingValidation, error) {
	args := m.Called(ctx, creds, mappings)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*erp.MappingValidation), args.Error(1)
}

// stubRegistry is a fixed-map AdapterRegistry for tests
type stubRegistry struct {
	adapters map[erp.ProviderType]erp.ProviderAdapter
}

func newStubRegistry(adapters ...erp.ProviderAdapter) *stubRegistry {
	r := &stubRegistry{adapters: make(map[erp.ProviderType]erp.ProviderAdapter)}
	for _, a := range adapters {
		r.adapters[a.ProviderType()] = a
	}
	return r
}

func (r *stubRegistry) GetAdapter(providerType erp.ProviderType) (erp.ProviderAdapter, error) {
	adapter, ok := r.adapters[providerType]
	if !ok {
		return nil, erp.ErrUnsupportedProvider
	}
	return adapter, nil
}

func (r *stubRegistry) ListProviders() []erp.ProviderType {
	providers := make([]erp.ProviderType, 0, len(r.adapters))
	for p := range r.adapters {
		providers = append(providers, p)
	}
	return providers
}

// fakeVault round-trips credentials through JSON, no cryptography involved
type fakeVault struct{}

func (fakeVault) Encrypt(creds erp.Credentials) (string, error) {
	data, err := json.Marshal(creds)
	return string(data), err
}

func (fakeVault) Decrypt(blob string) (erp.Credentials, error) {
	var creds erp.Credentials
	err := json.Unmarshal([]byte(blob), &creds)
	return creds, err
}
