package kpi

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/bizpulse/backend/internal/domain/erp"
)

func TestRevenueGrowth(t *testing.T) {
	tests := []struct {
		name     string
		current  decimal.Decimal
		previous decimal.Decimal
		want     decimal.Decimal
		wantCalc string
	}{
		{
			name:     "normal growth",
			current:  decimal.NewFromInt(150),
			previous: decimal.NewFromInt(100),
			want:     decimal.NewFromInt(50),
			wantCalc: "(150 - 100) / 100 x 100 = 50.00%",
		},
		{
			name:     "rounded growth",
			current:  decimal.NewFromInt(120000),
			previous: decimal.NewFromInt(90000),
			want:     decimal.NewFromFloat(33.33),
			wantCalc: "(120000 - 90000) / 90000 x 100 = 33.33%",
		},
		{
			name:     "zero base with current revenue is full growth",
			current:  decimal.NewFromInt(500),
			previous: decimal.Zero,
			want:     decimal.NewFromInt(100),
			wantCalc: "(500 - 0) / 0 x 100 = 100.00%",
		},
		{
			name:     "both zero",
			current:  decimal.Zero,
			previous: decimal.Zero,
			want:     decimal.Zero,
			wantCalc: "(0 - 0) / 0 x 100 = 0.00%",
		},
		{
			name:     "decline",
			current:  decimal.NewFromInt(80),
			previous: decimal.NewFromInt(100),
			want:     decimal.NewFromInt(-20),
			wantCalc: "(80 - 100) / 100 x 100 = -20.00%",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := RevenueGrowth(tt.current, tt.previous)
			assert.True(t, r.Value.Equal(tt.want), "got %s", r.Value)
			assert.Equal(t, tt.wantCalc, r.Calculation)
			assert.Equal(t, CodeRevenueGrowth, r.Code)
			assert.NotEmpty(t, r.Formula)
		})
	}
}

func TestOperatingMargin(t *testing.T) {
	t.Run("normal margin", func(t *testing.T) {
		r := OperatingMargin(decimal.NewFromInt(100000), decimal.NewFromInt(60000))
		assert.True(t, r.Value.Equal(decimal.NewFromInt(40)))
		assert.Equal(t, "(100000 - 60000) / 100000 x 100 = 40.00%", r.Calculation)
	})

	t.Run("zero revenue guard", func(t *testing.T) {
		r := OperatingMargin(decimal.Zero, decimal.NewFromInt(5000))
		assert.True(t, r.Value.IsZero())
		assert.NotEmpty(t, r.Note)
	})

	t.Run("negative margin", func(t *testing.T) {
		r := OperatingMargin(decimal.NewFromInt(50000), decimal.NewFromInt(75000))
		assert.True(t, r.Value.Equal(decimal.NewFromInt(-50)))
	})
}

func TestAverageOrderValue(t *testing.T) {
	t.Run("normal", func(t *testing.T) {
		r := AverageOrderValue(decimal.NewFromInt(50000), 25)
		assert.True(t, r.Value.Equal(decimal.NewFromInt(2000)))
		assert.Equal(t, "50000 / 25 = 2000.00", r.Calculation)
	})

	t.Run("no orders", func(t *testing.T) {
		r := AverageOrderValue(decimal.NewFromInt(50000), 0)
		assert.True(t, r.Value.IsZero())
	})
}

func TestDebtToEquity(t *testing.T) {
	t.Run("normal ratio", func(t *testing.T) {
		r := DebtToEquity(decimal.NewFromInt(50000), decimal.NewFromInt(100000))
		assert.True(t, r.Value.Equal(decimal.NewFromFloat(0.5)))
		assert.Equal(t, "50000 / 100000 = 0.50", r.Calculation)
	})

	t.Run("zero equity guard", func(t *testing.T) {
		r := DebtToEquity(decimal.NewFromInt(50000), decimal.Zero)
		assert.True(t, r.Value.IsZero())
		assert.NotEmpty(t, r.Note)
	})
}

func TestCustomerCount(t *testing.T) {
	asOf := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	partners := []erp.PartnerRecord{
		{Name: "active customer", IsCustomer: true, IsActive: true, CreatedAt: asOf.AddDate(0, -3, 0)},
		{Name: "inactive customer", IsCustomer: true, IsActive: false, CreatedAt: asOf.AddDate(0, -3, 0)},
		{Name: "supplier only", IsSupplier: true, IsActive: true, CreatedAt: asOf.AddDate(0, -3, 0)},
		{Name: "future customer", IsCustomer: true, IsActive: true, CreatedAt: asOf.AddDate(0, 1, 0)},
	}

	r := CustomerCount(partners, asOf)
	assert.True(t, r.Value.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, "1 active customers as of 2026-01-31", r.Calculation)
}

func TestRevenueFromInvoices(t *testing.T) {
	invoices := []erp.InvoiceRecord{
		{Type: erp.TransactionTypeInvoice, AmountTotal: decimal.NewFromInt(1000)},
		{Type: erp.TransactionTypeInvoice, AmountTotal: decimal.NewFromInt(500)},
		{Type: erp.TransactionTypeCreditNote, AmountTotal: decimal.NewFromInt(200)},
		{Type: erp.TransactionTypeRefund, AmountTotal: decimal.NewFromInt(100)},
	}

	total := RevenueFromInvoices(invoices)
	assert.True(t, total.Equal(decimal.NewFromInt(1200)), "credit notes and refunds must subtract, got %s", total)
}

func TestExpensesFromMoves(t *testing.T) {
	moves := []erp.AccountMoveRecord{
		{Debit: decimal.NewFromInt(800), Credit: decimal.Zero},
		{Debit: decimal.NewFromInt(300), Credit: decimal.NewFromInt(100)},
	}
	assert.True(t, ExpensesFromMoves(moves).Equal(decimal.NewFromInt(1000)))
}

func TestPeriodPrevious(t *testing.T) {
	p := Period{
		Start: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC),
	}
	prev := p.Previous()
	assert.Equal(t, time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC), prev.End)
	assert.Equal(t, time.Date(2026, 1, 4, 0, 0, 0, 0, time.UTC), prev.Start)
	assert.Equal(t, p.End.Sub(p.Start), prev.End.Sub(prev.Start))
}
