package kpi

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bizpulse/backend/internal/domain/erp"
)

// ---------------------------------------------------------------------------
// HR KPIs
// ---------------------------------------------------------------------------

// EmployeeGrowth computes period-over-period headcount growth in percent,
// with the same zero-base policy as revenue growth.
func EmployeeGrowth(current, previous int) Result {
	r := newResult(CodeEmployeeGrowth)
	switch {
	case previous == 0 && current > 0:
		r.Value = hundred
		r.Note = "previous period headcount is zero; treated as full growth from zero base"
	case previous == 0:
		r.Value = decimal.Zero
		r.Note = "no employees in either period"
	default:
		cur := decimal.NewFromInt(int64(current))
		prev := decimal.NewFromInt(int64(previous))
		r.Value = cur.Sub(prev).Div(prev).Mul(hundred).Round(2)
	}
	r.Calculation = fmt.Sprintf("(%d - %d) / %d x 100 = %s%%",
		current, previous, previous, fmtPct(r.Value))
	return r
}

// EmployeeTurnover computes departures over average headcount in percent,
// where average headcount is (start + end) / 2; a zero average yields 0.
func EmployeeTurnover(departed, startCount, endCount int) Result {
	r := newResult(CodeEmployeeTurnover)
	average := decimal.NewFromInt(int64(startCount + endCount)).Div(two)
	if average.IsZero() {
		r.Value = decimal.Zero
		r.Note = "average headcount is zero"
	} else {
		r.Value = decimal.NewFromInt(int64(departed)).Div(average).Mul(hundred).Round(2)
	}
	r.Calculation = fmt.Sprintf("%d / %s x 100 = %s%%",
		departed, fmtNum(average), fmtPct(r.Value))
	return r
}

// AverageTenure computes mean tenure in months as of a date, using 30.44
// days per month, over employees whose departure date is null or after the
// as-of date. Employees with a negative computed tenure (bad data) are
// excluded from both numerator and denominator.
func AverageTenure(employees []erp.EmployeeRecord, asOf time.Time) Result {
	r := newResult(CodeAverageTenure)
	r.AsOfDate = &asOf

	totalMonths := decimal.Zero
	counted := 0
	for _, e := range employees {
		if e.DepartureDate != nil && !e.DepartureDate.After(asOf) {
			continue
		}
		days := decimal.NewFromFloat(asOf.Sub(e.HireDate).Hours() / 24)
		if days.IsNegative() {
			continue
		}
		totalMonths = totalMonths.Add(days.Div(daysPerMonth))
		counted++
	}

	if counted == 0 {
		r.Value = decimal.Zero
		r.Note = "no active employees as of date"
		r.Calculation = "0.00 / 0 = 0.00 months"
		return r
	}
	r.Value = totalMonths.Div(decimal.NewFromInt(int64(counted))).Round(2)
	r.Calculation = fmt.Sprintf("%s / %d = %s months",
		totalMonths.StringFixed(2), counted, fmtPct(r.Value))
	return r
}

// CostPerHire computes recruiting cost over hires; 0 if no hires. Both
// inputs are supplied by the caller, not derived from provider records.
func CostPerHire(totalRecruitingCost decimal.Decimal, hires int) Result {
	r := newResult(CodeCostPerHire)
	if hires == 0 {
		r.Value = decimal.Zero
		r.Note = "no hires in period"
		r.Calculation = fmt.Sprintf("%s / 0 = 0.00", fmtNum(totalRecruitingCost))
		return r
	}
	r.Value = totalRecruitingCost.Div(decimal.NewFromInt(int64(hires))).Round(2)
	r.Calculation = fmt.Sprintf("%s / %d = %s", fmtNum(totalRecruitingCost), hires, fmtPct(r.Value))
	return r
}

// CountDepartures returns how many employees departed inside the period.
func CountDepartures(employees []erp.EmployeeRecord, period Period) int {
	departed := 0
	for _, e := range employees {
		if e.DepartureDate == nil {
			continue
		}
		if !e.DepartureDate.Before(period.Start) && !e.DepartureDate.After(period.End) {
			departed++
		}
	}
	return departed
}

// HeadcountAt returns the number of employees active on a given date.
func HeadcountAt(employees []erp.EmployeeRecord, at time.Time) int {
	count := 0
	for _, e := range employees {
		if e.HireDate.After(at) {
			continue
		}
		if e.DepartureDate != nil && !e.DepartureDate.After(at) {
			continue
		}
		count++
	}
	return count
}
