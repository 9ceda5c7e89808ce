package erp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

var (
	// Adapter errors
	ErrAuthenticationFailed = errors.New("erp: authentication failed")
	ErrEndpointUnavailable  = errors.New("erp: no usable endpoint variant")
	ErrProviderUnavailable  = errors.New("erp: provider temporarily unavailable")
	ErrInvalidResponse      = errors.New("erp: invalid provider response")
	ErrUnsupportedProvider  = errors.New("erp: provider type not supported")
	ErrRefreshNotSupported  = errors.New("erp: provider does not support token refresh")

	// Credential errors
	ErrInvalidCredentials = errors.New("erp: invalid credentials for provider type")
	ErrDecryptionFailed   = errors.New("erp: credential blob could not be decrypted")

	// Connection errors
	ErrConnectionNotFound  = errors.New("erp: connection not found")
	ErrDuplicateConnection = errors.New("erp: connection already exists for customer and provider")
	ErrConnectionState     = errors.New("erp: operation not allowed in current connection state")

	// Request errors
	ErrInvalidDateRange = errors.New("erp: start date must be before end date")
)

// ---------------------------------------------------------------------------
// ProviderType represents the kind of external ERP system
// ---------------------------------------------------------------------------

// ProviderType represents the kind of external ERP system
type ProviderType string

const (
	// ProviderTypeOdoo represents an Odoo server (JSON-RPC)
	ProviderTypeOdoo ProviderType = "ODOO"
	// ProviderTypeSalesforce represents a Salesforce org (REST/SOQL)
	ProviderTypeSalesforce ProviderType = "SALESFORCE"
)

// IsValid returns true if the provider type is valid
func (t ProviderType) IsValid() bool {
	switch t {
	case ProviderTypeOdoo, ProviderTypeSalesforce:
		return true
	default:
		return false
	}
}

// String returns the string representation of ProviderType
func (t ProviderType) String() string {
	return string(t)
}

// DisplayName returns a human-readable name for the provider
func (t ProviderType) DisplayName() string {
	switch t {
	case ProviderTypeOdoo:
		return "Odoo"
	case ProviderTypeSalesforce:
		return "Salesforce"
	default:
		return string(t)
	}
}

// ---------------------------------------------------------------------------
// DataDomain represents an independently syncable category of ERP data
// ---------------------------------------------------------------------------

// DataDomain represents an independently syncable category of ERP data
type DataDomain string

const (
	// DataDomainAR is accounts receivable (customers/partners)
	DataDomainAR DataDomain = "AR"
	// DataDomainAP is accounts payable (supplier payments)
	DataDomainAP DataDomain = "AP"
	// DataDomainGL is the general ledger (account moves)
	DataDomainGL DataDomain = "GL"
	// DataDomainSales is sales documents (invoices)
	DataDomainSales DataDomain = "Sales"
	// DataDomainHR is employee records
	DataDomainHR DataDomain = "HR"
)

// AllDataDomains returns every supported data domain.
func AllDataDomains() []DataDomain {
	return []DataDomain{DataDomainAR, DataDomainAP, DataDomainGL, DataDomainSales, DataDomainHR}
}

// IsValid returns true if the data domain is recognized
func (d DataDomain) IsValid() bool {
	switch d {
	case DataDomainAR, DataDomainAP, DataDomainGL, DataDomainSales, DataDomainHR:
		return true
	default:
		return false
	}
}

// String returns the string representation of DataDomain
func (d DataDomain) String() string {
	return string(d)
}

// ---------------------------------------------------------------------------
// Credentials
// ---------------------------------------------------------------------------

// Credentials is the tagged union of provider credential shapes. The
// ProviderType tag decides which fields are meaningful; Validate enforces
// the per-provider required set. A Credentials value only ever exists in
// decrypted form inside an adapter call.
type Credentials struct {
	// ProviderType tags which variant this value carries
	ProviderType ProviderType `json:"provider_type"`
	// BaseURL is the root URL of the customer's ERP instance
	BaseURL string `json:"base_url"`
	// Database is the tenant/database identifier (Odoo)
	Database string `json:"database,omitempty"`
	// Username is the API user login
	Username string `json:"username,omitempty"`
	// Password is the API user password
	Password string `json:"password,omitempty"`
	// APIKey is an optional static API key (Odoo 14+)
	APIKey string `json:"api_key,omitempty"`
	// ClientID is the OAuth consumer key (Salesforce)
	ClientID string `json:"client_id,omitempty"`
	// ClientSecret is the OAuth consumer secret (Salesforce)
	ClientSecret string `json:"client_secret,omitempty"`
	// AccessToken is the current OAuth access token (Salesforce)
	AccessToken string `json:"access_token,omitempty"`
	// RefreshToken is the OAuth refresh token (Salesforce)
	RefreshToken string `json:"refresh_token,omitempty"`
	// SecurityToken is the Salesforce user security token
	SecurityToken string `json:"security_token,omitempty"`
}

// Validate checks that the fields required by the tagged provider are present.
func (c *Credentials) Validate() error {
	if !c.ProviderType.IsValid() {
		return ErrUnsupportedProvider
	}
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base URL is required", ErrInvalidCredentials)
	}
	switch c.ProviderType {
	case ProviderTypeOdoo:
		if c.Database == "" {
			return fmt.Errorf("%w: database is required for Odoo", ErrInvalidCredentials)
		}
		if c.Username == "" || (c.Password == "" && c.APIKey == "") {
			return fmt.Errorf("%w: username and password or API key required for Odoo", ErrInvalidCredentials)
		}
	case ProviderTypeSalesforce:
		if c.ClientID == "" || c.ClientSecret == "" {
			return fmt.Errorf("%w: client ID and secret required for Salesforce", ErrInvalidCredentials)
		}
		if c.Username == "" || c.Password == "" {
			return fmt.Errorf("%w: username and password required for Salesforce", ErrInvalidCredentials)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Value Objects
// ---------------------------------------------------------------------------

// DateRange bounds a record query. Both ends are inclusive.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Validate returns an error when the range is inverted.
func (r *DateRange) Validate() error {
	if !r.Start.IsZero() && !r.End.IsZero() && r.Start.After(r.End) {
		return ErrInvalidDateRange
	}
	return nil
}

// TestResult is the outcome of a connection test against a provider.
type TestResult struct {
	// Success is true when authentication and a probe call both worked
	Success bool
	// Message is a human-readable summary
	Message string
	// ServerInfo carries provider metadata (version, edition) when available
	ServerInfo map[string]string
}

// PartnerRecord is a customer/supplier record pulled from the provider.
type PartnerRecord struct {
	ExternalID string
	Name       string
	Email      string
	Phone      string
	IsCustomer bool
	IsSupplier bool
	IsActive   bool
	CreatedAt  time.Time
}

// TransactionType tags the sign-relevant kind of a financial document.
type TransactionType string

const (
	// TransactionTypeInvoice adds to revenue totals
	TransactionTypeInvoice TransactionType = "INVOICE"
	// TransactionTypeCreditNote subtracts from revenue totals
	TransactionTypeCreditNote TransactionType = "CREDIT_NOTE"
	// TransactionTypeRefund subtracts from revenue totals
	TransactionTypeRefund TransactionType = "REFUND"
)

// InvoiceRecord is a sales invoice or credit note pulled from the provider.
type InvoiceRecord struct {
	ExternalID  string
	Number      string
	PartnerName string
	Type        TransactionType
	AmountTotal decimal.Decimal
	Currency    string
	State       string
	InvoiceDate time.Time
}

// SignedAmount returns the invoice amount with credit notes and refunds negated.
func (r *InvoiceRecord) SignedAmount() decimal.Decimal {
	switch r.Type {
	case TransactionTypeCreditNote, TransactionTypeRefund:
		return r.AmountTotal.Neg()
	default:
		return r.AmountTotal
	}
}

// PaymentRecord is a payment document pulled from the provider.
type PaymentRecord struct {
	ExternalID  string
	PartnerName string
	Amount      decimal.Decimal
	Currency    string
	State       string
	PaymentDate time.Time
}

// AccountMoveRecord is a general-ledger move line pulled from the provider.
type AccountMoveRecord struct {
	ExternalID  string
	AccountCode string
	AccountName string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Date        time.Time
}

// SalesOrderRecord is a sales order pulled from the provider.
type SalesOrderRecord struct {
	ExternalID  string
	Number      string
	PartnerName string
	AmountTotal decimal.Decimal
	State       string
	OrderDate   time.Time
}

// EmployeeRecord is an HR record pulled from the provider.
type EmployeeRecord struct {
	ExternalID    string
	Name          string
	JobTitle      string
	Department    string
	IsActive      bool
	HireDate      time.Time
	DepartureDate *time.Time
}

// AccountRecord is a chart-of-accounts entry pulled from the provider.
type AccountRecord struct {
	ExternalID  string
	Code        string
	Name        string
	AccountType string
}

// FieldMapping pairs a provider entity/field with a local field name.
type FieldMapping struct {
	Entity     string `json:"entity"`
	SourceName string `json:"source_name"`
	TargetName string `json:"target_name"`
	Required   bool   `json:"required"`
}

// MappingValidation is the outcome of checking field mappings against the
// provider's known model surface.
type MappingValidation struct {
	Valid  bool
	Errors []string
}

// ---------------------------------------------------------------------------
// ProviderAdapter Port Interface
// ---------------------------------------------------------------------------

// ProviderAdapter is the port interface one concrete type implements per ERP
// vendor. Adapters are stateless besides their HTTP client: every call takes
// the decrypted credentials, which must not outlive the call. Implementations
// live in the infrastructure layer.
type ProviderAdapter interface {
	// ProviderType returns the provider this adapter handles
	ProviderType() ProviderType

	// TestConnection authenticates against the provider and probes that the
	// API surface answers. It never mutates provider state.
	TestConnection(ctx context.Context, creds Credentials) (*TestResult, error)

	// Disconnect performs adapter-level session cleanup for a connection.
	// Most providers are session-less here and no-op.
	Disconnect(ctx context.Context, connectionID uuid.UUID) error

	// ---------------------------------------------------------------------------
	// Record Queries
	// ---------------------------------------------------------------------------

	// GetCustomers returns partner records flagged as customers.
	GetCustomers(ctx context.Context, creds Credentials, dateRange *DateRange) ([]PartnerRecord, error)

	// GetInvoices returns customer invoices and credit notes.
	GetInvoices(ctx context.Context, creds Credentials, dateRange *DateRange) ([]InvoiceRecord, error)

	// GetPayments returns payment documents.
	GetPayments(ctx context.Context, creds Credentials, dateRange *DateRange) ([]PaymentRecord, error)

	// GetAccountTransactions returns general-ledger move lines.
	GetAccountTransactions(ctx context.Context, creds Credentials, dateRange *DateRange) ([]AccountMoveRecord, error)

	// GetSalesOrders returns sales orders.
	GetSalesOrders(ctx context.Context, creds Credentials, dateRange *DateRange) ([]SalesOrderRecord, error)

	// GetEmployees returns HR employee records.
	GetEmployees(ctx context.Context, creds Credentials) ([]EmployeeRecord, error)

	// GetChartOfAccounts returns the provider's chart of accounts.
	GetChartOfAccounts(ctx context.Context, creds Credentials) ([]AccountRecord, error)

	// ValidateMapping checks field mappings against the provider's model surface.
	ValidateMapping(ctx context.Context, creds Credentials, mappings []FieldMapping) (*MappingValidation, error)
}

// TokenRefresher is the optional capability for OAuth-based providers.
// Adapters that cannot refresh simply do not implement it; callers assert
// for the interface instead of probing for an undefined method.
type TokenRefresher interface {
	// RefreshToken exchanges the stored refresh token for fresh credentials.
	RefreshToken(ctx context.Context, creds Credentials) (Credentials, error)
}

// AdapterRegistry resolves a provider type to its cached adapter instance.
// The registry is populated once at process start and safe for concurrent
// read-only use afterwards.
type AdapterRegistry interface {
	// GetAdapter returns the adapter for the given provider type, or
	// ErrUnsupportedProvider when none is registered.
	GetAdapter(providerType ProviderType) (ProviderAdapter, error)

	// ListProviders returns the provider types with a registered adapter.
	ListProviders() []ProviderType
}
