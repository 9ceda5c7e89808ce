package kpi

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bizpulse/backend/internal/domain/erp"
)

// ---------------------------------------------------------------------------
// Financial KPIs
// ---------------------------------------------------------------------------

// RevenueGrowth computes period-over-period revenue growth in percent.
// A zero previous period with positive current revenue is treated as full
// growth from a zero base (100), never as infinite; two zero periods are 0.
func RevenueGrowth(current, previous decimal.Decimal) Result {
	r := newResult(CodeRevenueGrowth)
	switch {
	case previous.IsZero() && current.IsPositive():
		r.Value = hundred
		r.Note = "previous period revenue is zero; treated as full growth from zero base"
	case previous.IsZero():
		r.Value = decimal.Zero
		r.Note = "no revenue in either period"
	default:
		r.Value = current.Sub(previous).Div(previous).Mul(hundred).Round(2)
	}
	r.Calculation = fmt.Sprintf("(%s - %s) / %s x 100 = %s%%",
		fmtNum(current), fmtNum(previous), fmtNum(previous), fmtPct(r.Value))
	return r
}

// OperatingMargin computes (revenue - operating expenses) / revenue in
// percent; zero revenue yields 0.
func OperatingMargin(revenue, expenses decimal.Decimal) Result {
	r := newResult(CodeOperatingMargin)
	if revenue.IsZero() {
		r.Value = decimal.Zero
		r.Note = "no revenue in period"
	} else {
		r.Value = revenue.Sub(expenses).Div(revenue).Mul(hundred).Round(2)
	}
	r.Calculation = fmt.Sprintf("(%s - %s) / %s x 100 = %s%%",
		fmtNum(revenue), fmtNum(expenses), fmtNum(revenue), fmtPct(r.Value))
	return r
}

// AverageOrderValue computes total revenue over order count; 0 if no orders.
func AverageOrderValue(totalRevenue decimal.Decimal, orderCount int) Result {
	r := newResult(CodeAverageOrderValue)
	if orderCount == 0 {
		r.Value = decimal.Zero
		r.Note = "no orders in period"
		r.Calculation = fmt.Sprintf("%s / 0 = 0.00", fmtNum(totalRevenue))
		return r
	}
	orders := decimal.NewFromInt(int64(orderCount))
	r.Value = totalRevenue.Div(orders).Round(2)
	r.Calculation = fmt.Sprintf("%s / %d = %s", fmtNum(totalRevenue), orderCount, fmtPct(r.Value))
	return r
}

// DebtToEquity computes total debt over total equity; 0 if equity is zero.
func DebtToEquity(totalDebt, totalEquity decimal.Decimal) Result {
	r := newResult(CodeDebtToEquity)
	if totalEquity.IsZero() {
		r.Value = decimal.Zero
		r.Note = "total equity is zero"
	} else {
		r.Value = totalDebt.Div(totalEquity).Round(2)
	}
	r.Calculation = fmt.Sprintf("%s / %s = %s", fmtNum(totalDebt), fmtNum(totalEquity), fmtPct(r.Value))
	return r
}

// CustomerCount reports the number of active customer partners as of a date.
func CustomerCount(partners []erp.PartnerRecord, asOf time.Time) Result {
	r := newResult(CodeCustomerCount)
	count := 0
	for _, p := range partners {
		if p.IsCustomer && p.IsActive && !p.CreatedAt.After(asOf) {
			count++
		}
	}
	r.Value = decimal.NewFromInt(int64(count))
	r.AsOfDate = &asOf
	r.Calculation = fmt.Sprintf("%d active customers as of %s", count, asOf.Format("2006-01-02"))
	return r
}

// ---------------------------------------------------------------------------
// Record Aggregation
// ---------------------------------------------------------------------------

// RevenueFromInvoices reduces invoice rows to net revenue: invoices add,
// credit notes and refunds subtract, decided by the row's transaction type.
func RevenueFromInvoices(invoices []erp.InvoiceRecord) decimal.Decimal {
	total := decimal.Zero
	for _, inv := range invoices {
		total = total.Add(inv.SignedAmount())
	}
	return total
}

// RevenueFromOrders sums sales order totals.
func RevenueFromOrders(orders []erp.SalesOrderRecord) decimal.Decimal {
	total := decimal.Zero
	for _, o := range orders {
		total = total.Add(o.AmountTotal)
	}
	return total
}

// ExpensesFromMoves reduces ledger move lines to a net expense total
// (debits minus credits).
func ExpensesFromMoves(moves []erp.AccountMoveRecord) decimal.Decimal {
	total := decimal.Zero
	for _, m := range moves {
		total = total.Add(m.Debit).Sub(m.Credit)
	}
	return total
}
