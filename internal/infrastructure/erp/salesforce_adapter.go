package erp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	domain "github.com/bizpulse/backend/internal/domain/erp"
)

// SalesforceAdapter implements the ProviderAdapter interface against the
// Salesforce REST API: an OAuth2 username-password token grant followed by
// SOQL queries. It also implements TokenRefresher since the token pair can
// be refreshed without the user's password.
type SalesforceAdapter struct {
	httpClient *http.Client
}

// NewSalesforceAdapter creates a Salesforce adapter with the given per-call timeout.
func NewSalesforceAdapter(timeout time.Duration) *SalesforceAdapter {
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return &SalesforceAdapter{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// ProviderType returns the provider this adapter handles
func (a *SalesforceAdapter) ProviderType() domain.ProviderType {
	return domain.ProviderTypeSalesforce
}

// ---------------------------------------------------------------------------
// OAuth
// ---------------------------------------------------------------------------

// authenticate runs the username-password token grant. The security token
// is appended to the password, which is how Salesforce expects it for API
// logins from untrusted networks.
func (a *SalesforceAdapter) authenticate(ctx context.Context, creds domain.Credentials) (*sfTokenResponse, error) {
	form := url.Values{
		"grant_type":    {"password"},
		"client_id":     {creds.ClientID},
		"client_secret": {creds.ClientSecret},
		"username":      {creds.Username},
		"password":      {creds.Password + creds.SecurityToken},
	}
	return a.tokenRequest(ctx, creds.BaseURL, form)
}

func (a *SalesforceAdapter) tokenRequest(ctx context.Context, baseURL string, form url.Values) (*sfTokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(baseURL, "/")+"/services/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("salesforce: failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("salesforce: failed to read token response: %w", err)
	}
	if resp.StatusCode >= 400 {
		var oauthErr sfOAuthError
		if json.Unmarshal(body, &oauthErr) == nil && oauthErr.Code != "" {
			return nil, fmt.Errorf("%w: %s", domain.ErrAuthenticationFailed, oauthErr.Text())
		}
		return nil, fmt.Errorf("%w: HTTP %d from token endpoint", domain.ErrAuthenticationFailed, resp.StatusCode)
	}

	var token sfTokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("%w: unparseable token response", domain.ErrInvalidResponse)
	}
	if token.AccessToken == "" || token.InstanceURL == "" {
		return nil, fmt.Errorf("%w: token response missing access token or instance URL", domain.ErrAuthenticationFailed)
	}
	return &token, nil
}

// RefreshToken exchanges the stored refresh token for a fresh access token.
// Without a refresh token it falls back to the password grant, which works
// because the full credential set is stored in the vault anyway.
func (a *SalesforceAdapter) RefreshToken(ctx context.Context, creds domain.Credentials) (domain.Credentials, error) {
	var token *sfTokenResponse
	var err error
	if creds.RefreshToken != "" {
		token, err = a.tokenRequest(ctx, creds.BaseURL, url.Values{
			"grant_type":    {"refresh_token"},
			"client_id":     {creds.ClientID},
			"client_secret": {creds.ClientSecret},
			"refresh_token": {creds.RefreshToken},
		})
	} else {
		token, err = a.authenticate(ctx, creds)
	}
	if err != nil {
		return domain.Credentials{}, err
	}
	creds.AccessToken = token.AccessToken
	return creds, nil
}

// ---------------------------------------------------------------------------
// SOQL
// ---------------------------------------------------------------------------

// query runs a SOQL statement and follows nextRecordsUrl pagination until
// the server reports done.
func (a *SalesforceAdapter) query(ctx context.Context, token *sfTokenResponse, soql string) ([]map[string]any, error) {
	queryURL := fmt.Sprintf("%s/services/data/%s/query?q=%s",
		strings.TrimRight(token.InstanceURL, "/"), sfAPIVersion, url.QueryEscape(soql))

	var records []map[string]any
	for queryURL != "" {
		page, err := a.queryPage(ctx, token, queryURL)
		if err != nil {
			return nil, err
		}
		records = append(records, page.Records...)
		if page.Done || page.NextRecordsURL == "" {
			break
		}
		queryURL = strings.TrimRight(token.InstanceURL, "/") + page.NextRecordsURL
	}
	if records == nil {
		records = []map[string]any{}
	}
	return records, nil
}

func (a *SalesforceAdapter) queryPage(ctx context.Context, token *sfTokenResponse, queryURL string) (*sfQueryResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL, nil)
	if err != nil {
		return nil, fmt.Errorf("salesforce: failed to create query request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("salesforce: failed to read query response: %w", err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, fmt.Errorf("%w: access token rejected", domain.ErrAuthenticationFailed)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: %s", domain.ErrEndpointUnavailable, decodeSfAPIErrors(body))
	}

	var page sfQueryResponse
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("%w: unparseable query response", domain.ErrInvalidResponse)
	}
	return &page, nil
}

// soqlDateClause builds a WHERE fragment for an inclusive date range.
// Datetime fields compare against UTC instants, date fields against date
// literals; SOQL forbids quoting either.
func soqlDateClause(field string, dateRange *domain.DateRange, datetime bool) string {
	if dateRange == nil {
		return ""
	}
	var parts []string
	if !dateRange.Start.IsZero() {
		parts = append(parts, fmt.Sprintf("%s >= %s", field, soqlDate(dateRange.Start, datetime)))
	}
	if !dateRange.End.IsZero() {
		parts = append(parts, fmt.Sprintf("%s <= %s", field, soqlDate(dateRange.End, datetime)))
	}
	return strings.Join(parts, " AND ")
}

func soqlDate(t time.Time, datetime bool) string {
	if datetime {
		return t.UTC().Format("2006-01-02T15:04:05Z")
	}
	return t.Format("2006-01-02")
}

func appendWhere(soql, clause string) string {
	if clause == "" {
		return soql
	}
	if strings.Contains(soql, " WHERE ") {
		return soql + " AND " + clause
	}
	return soql + " WHERE " + clause
}

// ---------------------------------------------------------------------------
// Connection Operations
// ---------------------------------------------------------------------------

// TestConnection authenticates and probes that the query API answers.
func (a *SalesforceAdapter) TestConnection(ctx context.Context, creds domain.Credentials) (*domain.TestResult, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	token, err := a.authenticate(ctx, creds)
	if err != nil {
		return nil, err
	}
	if _, err := a.query(ctx, token, "SELECT Id FROM Account LIMIT 1"); err != nil {
		return nil, err
	}

	return &domain.TestResult{
		Success: true,
		Message: "Connected to Salesforce",
		ServerInfo: map[string]string{
			"instance_url": token.InstanceURL,
			"api_version":  sfAPIVersion,
		},
	}, nil
}

// Disconnect is a no-op: tokens are obtained per call and never stored.
func (a *SalesforceAdapter) Disconnect(_ context.Context, _ uuid.UUID) error {
	return nil
}

// ---------------------------------------------------------------------------
// Record Queries
// ---------------------------------------------------------------------------

// GetCustomers returns Account records.
func (a *SalesforceAdapter) GetCustomers(ctx context.Context, creds domain.Credentials, dateRange *domain.DateRange) ([]domain.PartnerRecord, error) {
	token, err := a.authenticate(ctx, creds)
	if err != nil {
		return nil, err
	}
	soql := appendWhere("SELECT Id, Name, Phone, Type, CreatedDate FROM Account",
		soqlDateClause("CreatedDate", dateRange, true))
	rows, err := a.query(ctx, token, soql)
	if err != nil {
		return nil, err
	}

	partners := make([]domain.PartnerRecord, 0, len(rows))
	for _, row := range rows {
		partners = append(partners, domain.PartnerRecord{
			ExternalID: sfString(row, "Id"),
			Name:       sfString(row, "Name"),
			Phone:      sfString(row, "Phone"),
			IsCustomer: true,
			IsActive:   true,
			CreatedAt:  sfDate(row, "CreatedDate"),
		})
	}
	return partners, nil
}

// GetInvoices returns closed-won opportunities as revenue documents.
// Salesforce core has no invoice object; won opportunity amounts are the
// closest revenue equivalent.
func (a *SalesforceAdapter) GetInvoices(ctx context.Context, creds domain.Credentials, dateRange *domain.DateRange) ([]domain.InvoiceRecord, error) {
	token, err := a.authenticate(ctx, creds)
	if err != nil {
		return nil, err
	}
	soql := appendWhere(
		"SELECT Id, Name, Amount, StageName, CloseDate, Account.Name FROM Opportunity WHERE IsClosed = true AND IsWon = true",
		soqlDateClause("CloseDate", dateRange, false))
	rows, err := a.query(ctx, token, soql)
	if err != nil {
		return nil, err
	}

	invoices := make([]domain.InvoiceRecord, 0, len(rows))
	for _, row := range rows {
		invoices = append(invoices, domain.InvoiceRecord{
			ExternalID:  sfString(row, "Id"),
			Number:      sfString(row, "Name"),
			PartnerName: sfNested(row, "Account", "Name"),
			Type:        domain.TransactionTypeInvoice,
			AmountTotal: sfDecimal(row, "Amount"),
			State:       sfString(row, "StageName"),
			InvoiceDate: sfDate(row, "CloseDate"),
		})
	}
	return invoices, nil
}

// GetPayments queries the Payment object. Orgs without the billing package
// do not have it; the resulting INVALID_TYPE error surfaces as an endpoint
// failure rather than being masked as an empty result.
func (a *SalesforceAdapter) GetPayments(ctx context.Context, creds domain.Credentials, dateRange *domain.DateRange) ([]domain.PaymentRecord, error) {
	token, err := a.authenticate(ctx, creds)
	if err != nil {
		return nil, err
	}
	soql := appendWhere("SELECT Id, PaymentNumber, Amount, Status, EffectiveDate FROM Payment",
		soqlDateClause("EffectiveDate", dateRange, false))
	rows, err := a.query(ctx, token, soql)
	if err != nil {
		return nil, err
	}

	payments := make([]domain.PaymentRecord, 0, len(rows))
	for _, row := range rows {
		payments = append(payments, domain.PaymentRecord{
			ExternalID:  sfString(row, "Id"),
			Amount:      sfDecimal(row, "Amount"),
			State:       sfString(row, "Status"),
			PaymentDate: sfDate(row, "EffectiveDate"),
		})
	}
	return payments, nil
}

// GetAccountTransactions is not available: Salesforce carries no general
// ledger. Callers get a typed failure instead of a silently empty sync.
func (a *SalesforceAdapter) GetAccountTransactions(_ context.Context, _ domain.Credentials, _ *domain.DateRange) ([]domain.AccountMoveRecord, error) {
	return nil, fmt.Errorf("%w: Salesforce does not expose general ledger transactions", domain.ErrEndpointUnavailable)
}

// GetSalesOrders returns activated Order records.
func (a *SalesforceAdapter) GetSalesOrders(ctx context.Context, creds domain.Credentials, dateRange *domain.DateRange) ([]domain.SalesOrderRecord, error) {
	token, err := a.authenticate(ctx, creds)
	if err != nil {
		return nil, err
	}
	soql := appendWhere(
		"SELECT Id, OrderNumber, TotalAmount, Status, EffectiveDate, Account.Name FROM Order WHERE Status = 'Activated'",
		soqlDateClause("EffectiveDate", dateRange, false))
	rows, err := a.query(ctx, token, soql)
	if err != nil {
		return nil, err
	}

	orders := make([]domain.SalesOrderRecord, 0, len(rows))
	for _, row := range rows {
		orders = append(orders, domain.SalesOrderRecord{
			ExternalID:  sfString(row, "Id"),
			Number:      sfString(row, "OrderNumber"),
			PartnerName: sfNested(row, "Account", "Name"),
			AmountTotal: sfDecimal(row, "TotalAmount"),
			State:       sfString(row, "Status"),
			OrderDate:   sfDate(row, "EffectiveDate"),
		})
	}
	return orders, nil
}

// GetEmployees returns standard User records. Salesforce has no departure
// date, so turnover math sees deactivated users as active headcount; the
// HR domain is best served by Odoo.
func (a *SalesforceAdapter) GetEmployees(ctx context.Context, creds domain.Credentials) ([]domain.EmployeeRecord, error) {
	token, err := a.authenticate(ctx, creds)
	if err != nil {
		return nil, err
	}
	rows, err := a.query(ctx, token,
		"SELECT Id, Name, Title, Department, IsActive, CreatedDate FROM User WHERE UserType = 'Standard'")
	if err != nil {
		return nil, err
	}

	employees := make([]domain.EmployeeRecord, 0, len(rows))
	for _, row := range rows {
		employees = append(employees, domain.EmployeeRecord{
			ExternalID: sfString(row, "Id"),
			Name:       sfString(row, "Name"),
			JobTitle:   sfString(row, "Title"),
			Department: sfString(row, "Department"),
			IsActive:   sfBool(row, "IsActive"),
			HireDate:   sfDate(row, "CreatedDate"),
		})
	}
	return employees, nil
}

// GetChartOfAccounts is not available: Salesforce has no chart of accounts.
func (a *SalesforceAdapter) GetChartOfAccounts(_ context.Context, _ domain.Credentials) ([]domain.AccountRecord, error) {
	return nil, fmt.Errorf("%w: Salesforce does not expose a chart of accounts", domain.ErrEndpointUnavailable)
}

// ValidateMapping checks configured field mappings against the SObject
// surface this integration knows.
func (a *SalesforceAdapter) ValidateMapping(_ context.Context, _ domain.Credentials, mappings []domain.FieldMapping) (*domain.MappingValidation, error) {
	validation := &domain.MappingValidation{Valid: true, Errors: make([]string, 0)}
	for _, m := range mappings {
		fields, ok := sfObjectFields[m.Entity]
		if !ok {
			validation.Errors = append(validation.Errors, fmt.Sprintf("unknown object: %s", m.Entity))
			continue
		}
		found := false
		for _, f := range fields {
			if f == m.SourceName {
				found = true
				break
			}
		}
		if !found {
			validation.Errors = append(validation.Errors, fmt.Sprintf("unknown field %s on object %s", m.SourceName, m.Entity))
		}
	}
	validation.Valid = len(validation.Errors) == 0
	return validation, nil
}

// Ensure SalesforceAdapter implements both adapter interfaces
var (
	_ domain.ProviderAdapter = (*SalesforceAdapter)(nil)
	_ domain.TokenRefresher  = (*SalesforceAdapter)(nil)
)
