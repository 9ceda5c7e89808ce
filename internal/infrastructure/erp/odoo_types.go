package erp

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// JSON-RPC 2.0 envelope
// ---------------------------------------------------------------------------

// odooRPCRequest is the JSON-RPC 2.0 request envelope Odoo expects.
type odooRPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	ID      int    `json:"id"`
}

func newOdooRPCRequest(params any) odooRPCRequest {
	return odooRPCRequest{
		JSONRPC: "2.0",
		Method:  "call",
		Params:  params,
		ID:      1,
	}
}

// odooRPCError is the vendor-level error object carried inside a 200 response.
type odooRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	} `json:"data"`
}

// Text returns the most specific message available.
func (e *odooRPCError) Text() string {
	if e.Data.Message != "" {
		return e.Data.Message
	}
	return e.Message
}

// odooRPCResponse is the generic JSON-RPC response envelope. Result stays
// raw because its shape differs between server-version endpoint variants.
type odooRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *odooRPCError   `json:"error"`
}

// HasResult reports whether the response carries a non-null result field.
func (r *odooRPCResponse) HasResult() bool {
	return len(r.Result) > 0 && string(r.Result) != "null"
}

// ---------------------------------------------------------------------------
// Authentication
// ---------------------------------------------------------------------------

// odooAuthResult is the body-side result of /web/session/authenticate. The
// session token itself arrives in a Set-Cookie header, not here.
type odooAuthResult struct {
	UID           int    `json:"uid"`
	Username      string `json:"username"`
	ServerVersion string `json:"server_version"`
	DBName        string `json:"db"`
}

// ---------------------------------------------------------------------------
// Record queries
// ---------------------------------------------------------------------------

// odooQuery describes one search_read over a model: a vendor domain filter
// (predicate list) plus a field projection.
type odooQuery struct {
	Model  string
	Domain []any
	Fields []string
	Limit  int
}

// odooSearchReadWrapped is the {records, length} result shape the
// /web/dataset/search_read variant returns; the other variants return a
// bare record array.
type odooSearchReadWrapped struct {
	Records []map[string]any `json:"records"`
	Length  int              `json:"length"`
}

// decodeOdooRecords handles both result shapes.
func decodeOdooRecords(raw json.RawMessage) ([]map[string]any, error) {
	var records []map[string]any
	if err := json.Unmarshal(raw, &records); err == nil {
		return records, nil
	}
	var wrapped odooSearchReadWrapped
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Records, nil
}

// ---------------------------------------------------------------------------
// Row helpers
// ---------------------------------------------------------------------------

// Odoo serializes absent values as boolean false, so every accessor must
// tolerate a false where a string or number was expected.

func odooString(row map[string]any, key string) string {
	if v, ok := row[key].(string); ok {
		return v
	}
	return ""
}

func odooBool(row map[string]any, key string) bool {
	if v, ok := row[key].(bool); ok {
		return v
	}
	return false
}

func odooDecimal(row map[string]any, key string) decimal.Decimal {
	if v, ok := row[key].(float64); ok {
		return decimal.NewFromFloat(v)
	}
	return decimal.Zero
}

func odooID(row map[string]any) string {
	if v, ok := row["id"].(float64); ok {
		return decimal.NewFromFloat(v).String()
	}
	return ""
}

// odooDate parses Odoo's date and datetime formats; the zero time means
// the field was absent.
func odooDate(row map[string]any, key string) time.Time {
	s := odooString(row, key)
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t
	}
	return time.Time{}
}

// odooRelName extracts the display name from a many2one tuple [id, name].
func odooRelName(row map[string]any, key string) string {
	if tuple, ok := row[key].([]any); ok && len(tuple) == 2 {
		if name, ok := tuple[1].(string); ok {
			return name
		}
	}
	return ""
}

// ---------------------------------------------------------------------------
// Model surface (for mapping validation)
// ---------------------------------------------------------------------------

// odooModelFields lists the fields this integration knows per model; mapping
// validation checks configured mappings against it.
var odooModelFields = map[string][]string{
	"res.partner":       {"name", "email", "phone", "customer_rank", "supplier_rank", "active", "create_date"},
	"account.move":      {"name", "partner_id", "move_type", "amount_total", "currency_id", "state", "invoice_date"},
	"account.move.line": {"account_id", "debit", "credit", "date", "name"},
	"account.payment":   {"partner_id", "amount", "currency_id", "state", "date"},
	"sale.order":        {"name", "partner_id", "amount_total", "state", "date_order"},
	"hr.employee":       {"name", "job_title", "department_id", "active", "create_date", "departure_date"},
	"account.account":   {"code", "name", "account_type"},
}
