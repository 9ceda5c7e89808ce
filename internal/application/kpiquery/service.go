package kpiquery

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bizpulse/backend/internal/application/erpconn"
	"github.com/bizpulse/backend/internal/domain/erp"
	"github.com/bizpulse/backend/internal/domain/kpi"
)

// FinancialInputs carries the numbers the KPI engine cannot derive from
// provider records. Debt, equity and recruiting figures come from the
// caller's own books; the engine never fabricates them.
type FinancialInputs struct {
	TotalDebt           *decimal.Decimal `json:"total_debt,omitempty"`
	TotalEquity         *decimal.Decimal `json:"total_equity,omitempty"`
	TotalRecruitingCost *decimal.Decimal `json:"total_recruiting_cost,omitempty"`
	Hires               *int             `json:"hires,omitempty"`
}

// Query is one KPI computation request.
type Query struct {
	Code   kpi.Code
	AsOf   *time.Time
	Period *kpi.Period
	Inputs FinancialInputs
}

// QueryService computes KPIs from live provider data. Results are
// ephemeral: every request fetches and recomputes, nothing is cached.
type QueryService struct {
	connections erp.ConnectionRepository
	registry    erp.AdapterRegistry
	vault       erpconn.CredentialVault
	callTimeout time.Duration
	logger      *zap.Logger
}

// NewQueryService creates a new QueryService
func NewQueryService(
	connections erp.ConnectionRepository,
	registry erp.AdapterRegistry,
	vault erpconn.CredentialVault,
	callTimeout time.Duration,
	logger *zap.Logger,
) *QueryService {
	if callTimeout <= 0 {
		callTimeout = 30 * time.Second
	}
	return &QueryService{
		connections: connections,
		registry:    registry,
		vault:       vault,
		callTimeout: callTimeout,
		logger:      logger,
	}
}

// Catalog returns the supported KPI definitions.
func (s *QueryService) Catalog() []kpi.Definition {
	return kpi.Catalog()
}

// Compute runs one KPI against a CONNECTED connection's live data.
func (s *QueryService) Compute(ctx context.Context, connectionID uuid.UUID, query Query) (*kpi.Result, error) {
	if !query.Code.IsValid() {
		return nil, fmt.Errorf("%w: %s", kpi.ErrUnknownCode, query.Code)
	}

	conn, err := s.connections.FindByID(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if !conn.Status.CanSync() {
		return nil, fmt.Errorf("%w: KPI queries require CONNECTED, connection is %s", erp.ErrConnectionState, conn.Status)
	}

	adapter, err := s.registry.GetAdapter(conn.ProviderType)
	if err != nil {
		return nil, err
	}
	creds, err := s.vault.Decrypt(conn.EncryptedCredentials)
	if err != nil {
		return nil, err
	}

	switch query.Code {
	case kpi.CodeRevenueGrowth:
		return s.revenueGrowth(ctx, adapter, creds, query)
	case kpi.CodeOperatingMargin:
		return s.operatingMargin(ctx, adapter, creds, query)
	case kpi.CodeEmployeeGrowth:
		return s.employeeGrowth(ctx, adapter, creds, query)
	case kpi.CodeEmployeeTurnover:
		return s.employeeTurnover(ctx, adapter, creds, query)
	case kpi.CodeAverageTenure:
		return s.averageTenure(ctx, adapter, creds, query)
	case kpi.CodeAverageOrderValue:
		return s.averageOrderValue(ctx, adapter, creds, query)
	case kpi.CodeDebtToEquity:
		return s.debtToEquity(query)
	case kpi.CodeCustomerCount:
		return s.customerCount(ctx, adapter, creds, query)
	case kpi.CodeCostPerHire:
		return s.costPerHire(query)
	default:
		return nil, fmt.Errorf("%w: %s", kpi.ErrUnknownCode, query.Code)
	}
}

// ---------------------------------------------------------------------------
// Financial KPIs
// ---------------------------------------------------------------------------

func (s *QueryService) revenueGrowth(ctx context.Context, adapter erp.ProviderAdapter, creds erp.Credentials, query Query) (*kpi.Result, error) {
	period, err := requirePeriod(query)
	if err != nil {
		return nil, err
	}
	previous := period.Previous()

	currentInvoices, err := s.invoices(ctx, adapter, creds, *period)
	if err != nil {
		return nil, err
	}
	previousInvoices, err := s.invoices(ctx, adapter, creds, previous)
	if err != nil {
		return nil, err
	}

	result := kpi.RevenueGrowth(kpi.RevenueFromInvoices(currentInvoices), kpi.RevenueFromInvoices(previousInvoices))
	result.CurrentPeriod = period
	result.PreviousPeriod = &previous
	return &result, nil
}

func (s *QueryService) operatingMargin(ctx context.Context, adapter erp.ProviderAdapter, creds erp.Credentials, query Query) (*kpi.Result, error) {
	period, err := requirePeriod(query)
	if err != nil {
		return nil, err
	}

	invoices, err := s.invoices(ctx, adapter, creds, *period)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	moves, err := adapter.GetAccountTransactions(callCtx, creds, toDateRange(*period))
	if err != nil {
		return nil, err
	}

	result := kpi.OperatingMargin(kpi.RevenueFromInvoices(invoices), kpi.ExpensesFromMoves(moves))
	result.CurrentPeriod = period
	return &result, nil
}

func (s *QueryService) averageOrderValue(ctx context.Context, adapter erp.ProviderAdapter, creds erp.Credentials, query Query) (*kpi.Result, error) {
	period, err := requirePeriod(query)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	orders, err := adapter.GetSalesOrders(callCtx, creds, toDateRange(*period))
	if err != nil {
		return nil, err
	}

	result := kpi.AverageOrderValue(kpi.RevenueFromOrders(orders), len(orders))
	result.CurrentPeriod = period
	return &result, nil
}

func (s *QueryService) debtToEquity(query Query) (*kpi.Result, error) {
	if query.Inputs.TotalDebt == nil || query.Inputs.TotalEquity == nil {
		return nil, fmt.Errorf("%w: total_debt and total_equity", kpi.ErrMissingInputs)
	}
	result := kpi.DebtToEquity(*query.Inputs.TotalDebt, *query.Inputs.TotalEquity)
	result.AsOfDate = query.AsOf
	return &result, nil
}

func (s *QueryService) customerCount(ctx context.Context, adapter erp.ProviderAdapter, creds erp.Credentials, query Query) (*kpi.Result, error) {
	asOf, err := requireAsOf(query)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	partners, err := adapter.GetCustomers(callCtx, creds, nil)
	if err != nil {
		return nil, err
	}

	result := kpi.CustomerCount(partners, *asOf)
	return &result, nil
}

// ---------------------------------------------------------------------------
// HR KPIs
// ---------------------------------------------------------------------------

func (s *QueryService) employeeGrowth(ctx context.Context, adapter erp.ProviderAdapter, creds erp.Credentials, query Query) (*kpi.Result, error) {
	period, err := requirePeriod(query)
	if err != nil {
		return nil, err
	}
	previous := period.Previous()

	employees, err := s.employees(ctx, adapter, creds)
	if err != nil {
		return nil, err
	}

	result := kpi.EmployeeGrowth(kpi.HeadcountAt(employees, period.End), kpi.HeadcountAt(employees, previous.End))
	result.CurrentPeriod = period
	result.PreviousPeriod = &previous
	return &result, nil
}

func (s *QueryService) employeeTurnover(ctx context.Context, adapter erp.ProviderAdapter, creds erp.Credentials, query Query) (*kpi.Result, error) {
	period, err := requirePeriod(query)
	if err != nil {
		return nil, err
	}

	employees, err := s.employees(ctx, adapter, creds)
	if err != nil {
		return nil, err
	}

	result := kpi.EmployeeTurnover(
		kpi.CountDepartures(employees, *period),
		kpi.HeadcountAt(employees, period.Start),
		kpi.HeadcountAt(employees, period.End),
	)
	result.CurrentPeriod = period
	return &result, nil
}

func (s *QueryService) averageTenure(ctx context.Context, adapter erp.ProviderAdapter, creds erp.Credentials, query Query) (*kpi.Result, error) {
	asOf, err := requireAsOf(query)
	if err != nil {
		return nil, err
	}

	employees, err := s.employees(ctx, adapter, creds)
	if err != nil {
		return nil, err
	}

	result := kpi.AverageTenure(employees, *asOf)
	return &result, nil
}

func (s *QueryService) costPerHire(query Query) (*kpi.Result, error) {
	if query.Inputs.TotalRecruitingCost == nil || query.Inputs.Hires == nil {
		return nil, fmt.Errorf("%w: total_recruiting_cost and hires", kpi.ErrMissingInputs)
	}
	result := kpi.CostPerHire(*query.Inputs.TotalRecruitingCost, *query.Inputs.Hires)
	result.CurrentPeriod = query.Period
	return &result, nil
}

// ---------------------------------------------------------------------------
// Fetch Helpers
// ---------------------------------------------------------------------------

func (s *QueryService) invoices(ctx context.Context, adapter erp.ProviderAdapter, creds erp.Credentials, period kpi.Period) ([]erp.InvoiceRecord, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	return adapter.GetInvoices(callCtx, creds, toDateRange(period))
}

func (s *QueryService) employees(ctx context.Context, adapter erp.ProviderAdapter, creds erp.Credentials) ([]erp.EmployeeRecord, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	return adapter.GetEmployees(callCtx, creds)
}

func requirePeriod(query Query) (*kpi.Period, error) {
	if query.Period == nil || query.Period.Start.IsZero() || query.Period.End.IsZero() {
		return nil, kpi.ErrMissingPeriod
	}
	if query.Period.Start.After(query.Period.End) {
		return nil, erp.ErrInvalidDateRange
	}
	return query.Period, nil
}

func requireAsOf(query Query) (*time.Time, error) {
	if query.AsOf == nil || query.AsOf.IsZero() {
		return nil, kpi.ErrMissingAsOfDate
	}
	return query.AsOf, nil
}

func toDateRange(period kpi.Period) *erp.DateRange {
	return &erp.DateRange{Start: period.Start, End: period.End}
}
