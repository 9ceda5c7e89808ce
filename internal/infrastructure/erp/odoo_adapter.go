package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	domain "github.com/bizpulse/backend/internal/domain/erp"
)

// maxResponseSize is the maximum allowed response size from a provider (10MB)
const maxResponseSize = 10 * 1024 * 1024

// defaultCallTimeout bounds every provider call when no config overrides it.
const defaultCallTimeout = 30 * time.Second

// OdooAdapter implements the ProviderAdapter interface for Odoo servers
// speaking JSON-RPC 2.0. It is stateless besides its HTTP client: every
// call authenticates, obtains a session token from the Set-Cookie header,
// and replays it as a Cookie on subsequent requests.
type OdooAdapter struct {
	httpClient *http.Client
}

// NewOdooAdapter creates an Odoo adapter with the given per-call timeout.
func NewOdooAdapter(timeout time.Duration) *OdooAdapter {
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return &OdooAdapter{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// ProviderType returns the provider this adapter handles
func (a *OdooAdapter) ProviderType() domain.ProviderType {
	return domain.ProviderTypeOdoo
}

// ---------------------------------------------------------------------------
// Authentication
// ---------------------------------------------------------------------------

// authenticate posts the credentials to the session-authenticate endpoint.
// The session token arrives in a Set-Cookie header, not the response body;
// an apparently successful auth response without that cookie is a hard
// authentication failure, not a silent continue.
func (a *OdooAdapter) authenticate(ctx context.Context, creds domain.Credentials) (string, *odooAuthResult, error) {
	password := creds.Password
	if password == "" {
		password = creds.APIKey
	}
	params := map[string]any{
		"db":       creds.Database,
		"login":    creds.Username,
		"password": password,
	}

	body, err := json.Marshal(newOdooRPCRequest(params))
	if err != nil {
		return "", nil, fmt.Errorf("odoo: failed to encode auth request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(creds.BaseURL, "/")+"/web/session/authenticate", bytes.NewReader(body))
	if err != nil {
		return "", nil, fmt.Errorf("odoo: failed to create auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", nil, fmt.Errorf("odoo: failed to read auth response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", nil, fmt.Errorf("%w: HTTP %d from authenticate endpoint", domain.ErrAuthenticationFailed, resp.StatusCode)
	}

	var rpcResp odooRPCResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return "", nil, fmt.Errorf("%w: unparseable auth response", domain.ErrInvalidResponse)
	}
	if rpcResp.Error != nil {
		return "", nil, fmt.Errorf("%w: %s", domain.ErrAuthenticationFailed, rpcResp.Error.Text())
	}

	var auth odooAuthResult
	if rpcResp.HasResult() {
		if err := json.Unmarshal(rpcResp.Result, &auth); err != nil {
			return "", nil, fmt.Errorf("%w: unparseable auth result", domain.ErrInvalidResponse)
		}
	}
	if auth.UID == 0 {
		return "", nil, fmt.Errorf("%w: invalid database, username or password", domain.ErrAuthenticationFailed)
	}

	session := extractSessionID(resp.Header.Values("Set-Cookie"))
	if session == "" {
		return "", nil, fmt.Errorf("%w: authenticate succeeded but no session_id cookie was returned", domain.ErrAuthenticationFailed)
	}
	return session, &auth, nil
}

// extractSessionID scans all Set-Cookie entries for a session_id value.
func extractSessionID(setCookies []string) string {
	for _, cookie := range setCookies {
		for _, part := range strings.Split(cookie, ";") {
			part = strings.TrimSpace(part)
			if value, ok := strings.CutPrefix(part, "session_id="); ok && value != "" {
				return value
			}
		}
	}
	return ""
}

// ---------------------------------------------------------------------------
// Endpoint Fallback Chain
// ---------------------------------------------------------------------------

// odooEndpointVariant is one candidate request shape for a model query.
// The record-listing RPC has changed across Odoo server versions, so the
// adapter keeps an ordered list of shapes and tries each exactly once.
type odooEndpointVariant struct {
	name string
	path string
	body func(q odooQuery, creds domain.Credentials, auth *odooAuthResult) any
}

// odooSearchVariants is the fixed fallback order: newest shape first.
func odooSearchVariants() []odooEndpointVariant {
	return []odooEndpointVariant{
		{
			name: "call_kw",
			path: "/web/dataset/call_kw",
			body: func(q odooQuery, _ domain.Credentials, _ *odooAuthResult) any {
				return map[string]any{
					"model":  q.Model,
					"method": "search_read",
					"args":   []any{q.Domain, q.Fields},
					"kwargs": map[string]any{"limit": q.Limit},
				}
			},
		},
		{
			name: "search_read",
			path: "/web/dataset/search_read",
			body: func(q odooQuery, _ domain.Credentials, _ *odooAuthResult) any {
				return map[string]any{
					"model":  q.Model,
					"domain": q.Domain,
					"fields": q.Fields,
					"limit":  q.Limit,
				}
			},
		},
		{
			name: "execute_kw",
			path: "/jsonrpc",
			body: func(q odooQuery, creds domain.Credentials, auth *odooAuthResult) any {
				password := creds.Password
				if password == "" {
					password = creds.APIKey
				}
				return map[string]any{
					"service": "object",
					"method":  "execute_kw",
					"args": []any{
						creds.Database, auth.UID, password,
						q.Model, "search_read",
						[]any{q.Domain},
						map[string]any{"fields": q.Fields, "limit": q.Limit},
					},
				}
			},
		},
	}
}

// searchRead authenticates, then walks the fallback chain: each candidate
// is tried exactly once, in order, never looping back. A vendor-level error
// becomes the running last error and the next candidate is tried; the first
// non-empty result returns immediately. An exhausted chain that saw only
// empty successes is a legitimately empty record set; an exhausted chain
// with no success at all fails with the last recorded error.
func (a *OdooAdapter) searchRead(ctx context.Context, creds domain.Credentials, q odooQuery) ([]map[string]any, error) {
	session, auth, err := a.authenticate(ctx, creds)
	if err != nil {
		return nil, err
	}
	return a.searchReadWithSession(ctx, creds, session, auth, q)
}

func (a *OdooAdapter) searchReadWithSession(ctx context.Context, creds domain.Credentials, session string, auth *odooAuthResult, q odooQuery) ([]map[string]any, error) {
	var lastErr string
	emptySeen := false

	for _, variant := range odooSearchVariants() {
		records, err := a.tryVariant(ctx, creds, session, variant, q, auth)
		if err != nil {
			lastErr = fmt.Sprintf("%s: %v", variant.name, err)
			continue
		}
		if len(records) > 0 {
			return records, nil
		}
		emptySeen = true
	}

	if emptySeen {
		return []map[string]any{}, nil
	}
	return nil, fmt.Errorf("%w for %s: last error: %s", domain.ErrEndpointUnavailable, q.Model, lastErr)
}

// tryVariant sends one candidate request with the session cookie attached.
func (a *OdooAdapter) tryVariant(ctx context.Context, creds domain.Credentials, session string, variant odooEndpointVariant, q odooQuery, auth *odooAuthResult) ([]map[string]any, error) {
	body, err := json.Marshal(newOdooRPCRequest(variant.body(q, creds, auth)))
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(creds.BaseURL, "/")+variant.path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cookie", "session_id="+session)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	var rpcResp odooRPCResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("unparseable response: %v", err)
	}
	if rpcResp.Error != nil {
		return nil, fmt.Errorf("%s", rpcResp.Error.Text())
	}
	if !rpcResp.HasResult() {
		return nil, fmt.Errorf("response carried no result")
	}
	return decodeOdooRecords(rpcResp.Result)
}

// dateDomain appends range predicates to a vendor domain filter.
func dateDomain(conditions []any, field string, dateRange *domain.DateRange) []any {
	if dateRange == nil {
		return conditions
	}
	if !dateRange.Start.IsZero() {
		conditions = append(conditions, []any{field, ">=", dateRange.Start.Format("2006-01-02")})
	}
	if !dateRange.End.IsZero() {
		conditions = append(conditions, []any{field, "<=", dateRange.End.Format("2006-01-02")})
	}
	return conditions
}

// ---------------------------------------------------------------------------
// Connection Operations
// ---------------------------------------------------------------------------

// TestConnection authenticates and probes that the record API answers.
func (a *OdooAdapter) TestConnection(ctx context.Context, creds domain.Credentials) (*domain.TestResult, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	session, auth, err := a.authenticate(ctx, creds)
	if err != nil {
		return nil, err
	}

	// Probe one record read so a bad database grant fails here, not mid-sync.
	probe := odooQuery{Model: "res.partner", Domain: []any{}, Fields: []string{"id"}, Limit: 1}
	if _, err := a.searchReadWithSession(ctx, creds, session, auth, probe); err != nil {
		return nil, err
	}

	info := map[string]string{"database": auth.DBName}
	if auth.ServerVersion != "" {
		info["server_version"] = auth.ServerVersion
	}
	message := "Connected to Odoo"
	if auth.ServerVersion != "" {
		message = fmt.Sprintf("Connected to Odoo %s", auth.ServerVersion)
	}
	return &domain.TestResult{Success: true, Message: message, ServerInfo: info}, nil
}

// Disconnect is a no-op: sessions are obtained per call and never stored.
func (a *OdooAdapter) Disconnect(_ context.Context, _ uuid.UUID) error {
	return nil
}

// ---------------------------------------------------------------------------
// Record Queries
// ---------------------------------------------------------------------------

// GetCustomers returns partner records flagged as customers.
func (a *OdooAdapter) GetCustomers(ctx context.Context, creds domain.Credentials, dateRange *domain.DateRange) ([]domain.PartnerRecord, error) {
	conditions := dateDomain([]any{[]any{"customer_rank", ">", 0}}, "create_date", dateRange)
	rows, err := a.searchRead(ctx, creds, odooQuery{
		Model:  "res.partner",
		Domain: conditions,
		Fields: []string{"name", "email", "phone", "customer_rank", "supplier_rank", "active", "create_date"},
	})
	if err != nil {
		return nil, err
	}

	partners := make([]domain.PartnerRecord, 0, len(rows))
	for _, row := range rows {
		partners = append(partners, domain.PartnerRecord{
			ExternalID: odooID(row),
			Name:       odooString(row, "name"),
			Email:      odooString(row, "email"),
			Phone:      odooString(row, "phone"),
			IsCustomer: odooDecimal(row, "customer_rank").IsPositive(),
			IsSupplier: odooDecimal(row, "supplier_rank").IsPositive(),
			IsActive:   odooBool(row, "active"),
			CreatedAt:  odooDate(row, "create_date"),
		})
	}
	return partners, nil
}

// GetInvoices returns posted customer invoices and credit notes. The
// move_type tag decides the transaction type so downstream reductions can
// subtract refund rows.
func (a *OdooAdapter) GetInvoices(ctx context.Context, creds domain.Credentials, dateRange *domain.DateRange) ([]domain.InvoiceRecord, error) {
	conditions := []any{
		[]any{"move_type", "in", []string{"out_invoice", "out_refund"}},
		[]any{"state", "=", "posted"},
	}
	conditions = dateDomain(conditions, "invoice_date", dateRange)
	rows, err := a.searchRead(ctx, creds, odooQuery{
		Model:  "account.move",
		Domain: conditions,
		Fields: []string{"name", "partner_id", "move_type", "amount_total", "currency_id", "state", "invoice_date"},
	})
	if err != nil {
		return nil, err
	}

	invoices := make([]domain.InvoiceRecord, 0, len(rows))
	for _, row := range rows {
		txType := domain.TransactionTypeInvoice
		if odooString(row, "move_type") == "out_refund" {
			txType = domain.TransactionTypeCreditNote
		}
		invoices = append(invoices, domain.InvoiceRecord{
			ExternalID:  odooID(row),
			Number:      odooString(row, "name"),
			PartnerName: odooRelName(row, "partner_id"),
			Type:        txType,
			AmountTotal: odooDecimal(row, "amount_total"),
			Currency:    odooRelName(row, "currency_id"),
			State:       odooString(row, "state"),
			InvoiceDate: odooDate(row, "invoice_date"),
		})
	}
	return invoices, nil
}

// GetPayments returns posted payment documents.
func (a *OdooAdapter) GetPayments(ctx context.Context, creds domain.Credentials, dateRange *domain.DateRange) ([]domain.PaymentRecord, error) {
	conditions := dateDomain([]any{[]any{"state", "=", "posted"}}, "date", dateRange)
	rows, err := a.searchRead(ctx, creds, odooQuery{
		Model:  "account.payment",
		Domain: conditions,
		Fields: []string{"partner_id", "amount", "currency_id", "state", "date"},
	})
	if err != nil {
		return nil, err
	}

	payments := make([]domain.PaymentRecord, 0, len(rows))
	for _, row := range rows {
		payments = append(payments, domain.PaymentRecord{
			ExternalID:  odooID(row),
			PartnerName: odooRelName(row, "partner_id"),
			Amount:      odooDecimal(row, "amount"),
			Currency:    odooRelName(row, "currency_id"),
			State:       odooString(row, "state"),
			PaymentDate: odooDate(row, "date"),
		})
	}
	return payments, nil
}

// GetAccountTransactions returns general-ledger move lines.
func (a *OdooAdapter) GetAccountTransactions(ctx context.Context, creds domain.Credentials, dateRange *domain.DateRange) ([]domain.AccountMoveRecord, error) {
	conditions := dateDomain([]any{}, "date", dateRange)
	rows, err := a.searchRead(ctx, creds, odooQuery{
		Model:  "account.move.line",
		Domain: conditions,
		Fields: []string{"account_id", "debit", "credit", "date", "name"},
	})
	if err != nil {
		return nil, err
	}

	moves := make([]domain.AccountMoveRecord, 0, len(rows))
	for _, row := range rows {
		moves = append(moves, domain.AccountMoveRecord{
			ExternalID:  odooID(row),
			AccountName: odooRelName(row, "account_id"),
			Debit:       odooDecimal(row, "debit"),
			Credit:      odooDecimal(row, "credit"),
			Date:        odooDate(row, "date"),
		})
	}
	return moves, nil
}

// GetSalesOrders returns confirmed sales orders.
func (a *OdooAdapter) GetSalesOrders(ctx context.Context, creds domain.Credentials, dateRange *domain.DateRange) ([]domain.SalesOrderRecord, error) {
	conditions := []any{[]any{"state", "in", []string{"sale", "done"}}}
	conditions = dateDomain(conditions, "date_order", dateRange)
	rows, err := a.searchRead(ctx, creds, odooQuery{
		Model:  "sale.order",
		Domain: conditions,
		Fields: []string{"name", "partner_id", "amount_total", "state", "date_order"},
	})
	if err != nil {
		return nil, err
	}

	orders := make([]domain.SalesOrderRecord, 0, len(rows))
	for _, row := range rows {
		orders = append(orders, domain.SalesOrderRecord{
			ExternalID:  odooID(row),
			Number:      odooString(row, "name"),
			PartnerName: odooRelName(row, "partner_id"),
			AmountTotal: odooDecimal(row, "amount_total"),
			State:       odooString(row, "state"),
			OrderDate:   odooDate(row, "date_order"),
		})
	}
	return orders, nil
}

// GetEmployees returns HR records, including departed employees so tenure
// and turnover math can see departure dates.
func (a *OdooAdapter) GetEmployees(ctx context.Context, creds domain.Credentials) ([]domain.EmployeeRecord, error) {
	rows, err := a.searchRead(ctx, creds, odooQuery{
		Model:  "hr.employee",
		Domain: []any{[]any{"active", "in", []bool{true, false}}},
		Fields: []string{"name", "job_title", "department_id", "active", "create_date", "departure_date"},
	})
	if err != nil {
		return nil, err
	}

	employees := make([]domain.EmployeeRecord, 0, len(rows))
	for _, row := range rows {
		emp := domain.EmployeeRecord{
			ExternalID: odooID(row),
			Name:       odooString(row, "name"),
			JobTitle:   odooString(row, "job_title"),
			Department: odooRelName(row, "department_id"),
			IsActive:   odooBool(row, "active"),
			HireDate:   odooDate(row, "create_date"),
		}
		if d := odooDate(row, "departure_date"); !d.IsZero() {
			emp.DepartureDate = &d
		}
		employees = append(employees, emp)
	}
	return employees, nil
}

// GetChartOfAccounts returns the chart of accounts.
func (a *OdooAdapter) GetChartOfAccounts(ctx context.Context, creds domain.Credentials) ([]domain.AccountRecord, error) {
	rows, err := a.searchRead(ctx, creds, odooQuery{
		Model:  "account.account",
		Domain: []any{},
		Fields: []string{"code", "name", "account_type"},
	})
	if err != nil {
		return nil, err
	}

	accounts := make([]domain.AccountRecord, 0, len(rows))
	for _, row := range rows {
		accounts = append(accounts, domain.AccountRecord{
			ExternalID:  odooID(row),
			Code:        odooString(row, "code"),
			Name:        odooString(row, "name"),
			AccountType: odooString(row, "account_type"),
		})
	}
	return accounts, nil
}

// ValidateMapping checks configured field mappings against the model
// surface this integration knows.
func (a *OdooAdapter) ValidateMapping(_ context.Context, _ domain.Credentials, mappings []domain.FieldMapping) (*domain.MappingValidation, error) {
	validation := &domain.MappingValidation{Valid: true, Errors: make([]string, 0)}
	for _, m := range mappings {
		fields, ok := odooModelFields[m.Entity]
		if !ok {
			validation.Errors = append(validation.Errors, fmt.Sprintf("unknown model: %s", m.Entity))
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
			validation.Errors = append(validation.Errors, fmt.Sprintf("unknown field %s on model %s", m.SourceName, m.Entity))
		}
	}
	validation.Valid = len(validation.Errors) == 0
	return validation, nil
}

// Ensure OdooAdapter implements the ProviderAdapter interface
var _ domain.ProviderAdapter = (*OdooAdapter)(nil)
