package kpi

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

var (
	// ErrUnknownCode indicates the KPI code is not part of the catalog
	ErrUnknownCode = errors.New("kpi: unknown KPI code")
	// ErrMissingPeriod indicates the KPI needs a date range the caller omitted
	ErrMissingPeriod = errors.New("kpi: start date and end date are required")
	// ErrMissingAsOfDate indicates the KPI needs an as-of date the caller omitted
	ErrMissingAsOfDate = errors.New("kpi: as-of date is required")
	// ErrMissingInputs indicates an externally supplied input was not provided
	ErrMissingInputs = errors.New("kpi: required financial inputs not supplied")
)

// ---------------------------------------------------------------------------
// Codes
// ---------------------------------------------------------------------------

// Code identifies one KPI formula.
type Code string

const (
	CodeRevenueGrowth     Code = "REVENUE_GROWTH"
	CodeOperatingMargin   Code = "OPERATING_MARGIN"
	CodeEmployeeGrowth    Code = "EMPLOYEE_GROWTH"
	CodeEmployeeTurnover  Code = "EMPLOYEE_TURNOVER"
	CodeAverageTenure     Code = "AVERAGE_TENURE"
	CodeAverageOrderValue Code = "AVERAGE_ORDER_VALUE"
	CodeDebtToEquity      Code = "DEBT_TO_EQUITY"
	CodeCustomerCount     Code = "CUSTOMER_COUNT"
	CodeCostPerHire       Code = "COST_PER_HIRE"
)

// IsValid returns true if the code is part of the catalog
func (c Code) IsValid() bool {
	_, ok := catalog[c]
	return ok
}

// String returns the string representation of Code
func (c Code) String() string {
	return string(c)
}

// Name returns the display name for the code
func (c Code) Name() string {
	if def, ok := catalog[c]; ok {
		return def.Name
	}
	return string(c)
}

// Formula returns the literal formula string for the code
func (c Code) Formula() string {
	if def, ok := catalog[c]; ok {
		return def.Formula
	}
	return ""
}

// Definition describes one catalog entry.
type Definition struct {
	Code    Code   `json:"code"`
	Name    string `json:"name"`
	Formula string `json:"formula"`
	// NeedsPeriod is true for KPIs parameterized by a date range; the rest
	// take a single as-of date.
	NeedsPeriod bool `json:"needs_period"`
}

var catalog = map[Code]Definition{
	CodeRevenueGrowth: {
		Code:        CodeRevenueGrowth,
		Name:        "Revenue Growth %",
		Formula:     "(Current Revenue - Previous Revenue) / Previous Revenue x 100",
		NeedsPeriod: true,
	},
	CodeOperatingMargin: {
		Code:        CodeOperatingMargin,
		Name:        "Operating Margin %",
		Formula:     "(Revenue - Operating Expenses) / Revenue x 100",
		NeedsPeriod: true,
	},
	CodeEmployeeGrowth: {
		Code:        CodeEmployeeGrowth,
		Name:        "Employee Growth %",
		Formula:     "(Current Employees - Previous Employees) / Previous Employees x 100",
		NeedsPeriod: true,
	},
	CodeEmployeeTurnover: {
		Code:        CodeEmployeeTurnover,
		Name:        "Employee Turnover %",
		Formula:     "Employees Departed / Average Employees x 100",
		NeedsPeriod: true,
	},
	CodeAverageTenure: {
		Code:    CodeAverageTenure,
		Name:    "Average Tenure (months)",
		Formula: "Sum of (As-of Date - Hire Date) in months / Active Employees",
	},
	CodeAverageOrderValue: {
		Code:        CodeAverageOrderValue,
		Name:        "Average Order Value",
		Formula:     "Total Revenue / Number of Orders",
		NeedsPeriod: true,
	},
	CodeDebtToEquity: {
		Code:    CodeDebtToEquity,
		Name:    "Debt-to-Equity Ratio",
		Formula: "Total Debt / Total Equity",
	},
	CodeCustomerCount: {
		Code:    CodeCustomerCount,
		Name:    "Number of Customers",
		Formula: "Count of active customer partners as of date",
	},
	CodeCostPerHire: {
		Code:        CodeCostPerHire,
		Name:        "Cost per Hire",
		Formula:     "Total Recruiting Cost / Number of Hires",
		NeedsPeriod: true,
	},
}

// Catalog returns all KPI definitions in stable code order.
func Catalog() []Definition {
	defs := make([]Definition, 0, len(catalog))
	for _, code := range []Code{
		CodeRevenueGrowth, CodeOperatingMargin, CodeEmployeeGrowth,
		CodeEmployeeTurnover, CodeAverageTenure, CodeAverageOrderValue,
		CodeDebtToEquity, CodeCustomerCount, CodeCostPerHire,
	} {
		defs = append(defs, catalog[code])
	}
	return defs
}

// ---------------------------------------------------------------------------
// Result
// ---------------------------------------------------------------------------

// Period is an inclusive date range used by period-based KPIs.
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Previous derives the period of equal length immediately preceding p.
func (p Period) Previous() Period {
	length := p.End.Sub(p.Start)
	return Period{
		Start: p.Start.Add(-length - 24*time.Hour),
		End:   p.Start.Add(-24 * time.Hour),
	}
}

// Result is the ephemeral value object one KPI computation produces. It is
// recomputed on every request and never persisted. Formula and Calculation
// are a user-facing audit trail: Calculation shows the substituted numbers.
type Result struct {
	Code           Code       `json:"kpi_code"`
	Name           string     `json:"kpi_name"`
	CurrentPeriod  *Period    `json:"current_period,omitempty"`
	PreviousPeriod *Period    `json:"previous_period,omitempty"`
	AsOfDate       *time.Time `json:"as_of_date,omitempty"`

	Value       decimal.Decimal `json:"result"`
	Formula     string          `json:"formula"`
	Calculation string          `json:"calculation"`
	Note        string          `json:"note,omitempty"`
}

// newResult seeds a result with the catalog name and formula for a code.
func newResult(code Code) Result {
	return Result{
		Code:    code,
		Name:    code.Name(),
		Formula: code.Formula(),
	}
}

// fmtNum renders an input number for the calculation string: plain decimal
// notation with trailing zeros trimmed, so 120000.00 prints as "120000".
func fmtNum(d decimal.Decimal) string {
	return d.String()
}

// fmtPct renders a ratio result to two decimal places for the calculation
// string, e.g. "33.33".
func fmtPct(d decimal.Decimal) string {
	return d.StringFixed(2)
}

var (
	hundred = decimal.NewFromInt(100)
	two     = decimal.NewFromInt(2)
	// daysPerMonth is the average-month constant used for tenure math.
	daysPerMonth = decimal.NewFromFloat(30.44)
)
