package erp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// sfAPIVersion is the REST API version appended to query URLs.
const sfAPIVersion = "v59.0"

// sfTokenResponse is the OAuth token endpoint response.
type sfTokenResponse struct {
	AccessToken string `json:"access_token"`
	InstanceURL string `json:"instance_url"`
	TokenType   string `json:"token_type"`
	IssuedAt    string `json:"issued_at"`
}

// sfOAuthError is the OAuth token endpoint failure shape.
type sfOAuthError struct {
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *sfOAuthError) Text() string {
	if e.Description != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Description)
	}
	return e.Code
}

// sfQueryResponse is the paginated SOQL query result envelope.
type sfQueryResponse struct {
	TotalSize      int              `json:"totalSize"`
	Done           bool             `json:"done"`
	NextRecordsURL string           `json:"nextRecordsUrl"`
	Records        []map[string]any `json:"records"`
}

// sfAPIError is one element of the REST error array Salesforce returns
// on failed queries.
type sfAPIError struct {
	Message   string `json:"message"`
	ErrorCode string `json:"errorCode"`
}

func decodeSfAPIErrors(body []byte) string {
	var errs []sfAPIError
	if err := json.Unmarshal(body, &errs); err != nil || len(errs) == 0 {
		return string(body)
	}
	return fmt.Sprintf("%s: %s", errs[0].ErrorCode, errs[0].Message)
}

// ---------------------------------------------------------------------------
// Row Helpers
// ---------------------------------------------------------------------------

func sfString(row map[string]any, key string) string {
	if v, ok := row[key].(string); ok {
		return v
	}
	return ""
}

func sfBool(row map[string]any, key string) bool {
	if v, ok := row[key].(bool); ok {
		return v
	}
	return false
}

func sfDecimal(row map[string]any, key string) decimal.Decimal {
	switch v := row[key].(type) {
	case float64:
		return decimal.NewFromFloat(v)
	case string:
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
	case json.Number:
		if d, err := decimal.NewFromString(v.String()); err == nil {
			return d
		}
	}
	return decimal.Zero
}

// sfDate parses both Salesforce datetime (2026-05-14T09:30:00.000+0000)
// and plain date fields.
func sfDate(row map[string]any, key string) time.Time {
	s, ok := row[key].(string)
	if !ok || s == "" {
		return time.Time{}
	}
	for _, layout := range []string{
		"2006-01-02T15:04:05.000-0700",
		time.RFC3339,
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// sfNested reads a field off a relationship sub-object, e.g. Account.Name.
func sfNested(row map[string]any, object, key string) string {
	sub, ok := row[object].(map[string]any)
	if !ok {
		return ""
	}
	return sfString(sub, key)
}

// sfObjectFields is the SObject surface this integration queries, used to
// validate configured field mappings without a network round trip.
var sfObjectFields = map[string][]string{
	"Account":     {"Id", "Name", "Phone", "Type", "Industry", "CreatedDate"},
	"Opportunity": {"Id", "Name", "Amount", "StageName", "IsWon", "IsClosed", "CloseDate", "AccountId"},
	"Order":       {"Id", "OrderNumber", "TotalAmount", "Status", "EffectiveDate", "AccountId"},
	"User":        {"Id", "Name", "Title", "Department", "IsActive", "CreatedDate", "UserType"},
	"Payment":     {"Id", "PaymentNumber", "Amount", "Status", "EffectiveDate", "AccountId"},
}
