package aggregate

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"receivables/internal/settlement"
	"receivables/pkg/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func amt(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func sheet(id string, invoiced, deposited int64) settlement.Sheet {
	s := settlement.Sheet{
		CustomerID:   id,
		InvoiceTotal: amt(invoiced),
		DepositTotal: amt(deposited),
		Balance:      amt(deposited - invoiced),
	}
	if invoiced > 0 {
		s.InvoiceCount = 1
	}
	if deposited > 0 {
		s.DepositCount = 1
	}
	s.Status = settlement.StatusOf(s.Balance)
	return s
}

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod("2024-02")
	require.NoError(t, err)
	assert.Equal(t, Period{Year: 2024, Month: time.February}, p)
	assert.Equal(t, "2024-02", p.String())
	assert.True(t, p.Contains(day(2024, 2, 29)))
	assert.False(t, p.Contains(day(2023, 2, 1)))

	_, err = ParsePeriod("Feb 2024")
	assert.Error(t, err)
}

func TestTopCustomers(t *testing.T) {
	sheets := []settlement.Sheet{
		sheet("a", 100, 0),
		sheet("b", 500, 0),
		sheet("c", 100, 0),
		sheet("d", 300, 0),
		sheet("e", 100, 0),
	}

	top := TopCustomers(sheets, 3)
	require.Len(t, top, 3)
	assert.Equal(t, "b", top[0].CustomerID)
	assert.Equal(t, "d", top[1].CustomerID)
	assert.Equal(t, "a", top[2].CustomerID, "ties keep roster order")

	assert.Len(t, TopCustomers(sheets[:2], 3), 2)
	assert.Nil(t, TopCustomers(sheets, 0))
	assert.Equal(t, "a", sheets[0].CustomerID, "input untouched")
}

func TestSummarize(t *testing.T) {
	feb := Period{Year: 2024, Month: time.February}

	in := Input{
		Invoices: []models.Invoice{
			{ID: "i1", IssueDate: day(2024, 1, 10), TotalAmount: amt(1_000_000)},
			{ID: "i2", IssueDate: day(2024, 2, 5), TotalAmount: amt(500_000)},
			{ID: "i3", IssueDate: day(2024, 2, 29), TotalAmount: amt(250_000)},
		},
		Deposits: []models.Deposit{
			{ID: "d1", Date: day(2024, 1, 20), Amount: amt(700_000)},
			{ID: "d2", Date: day(2024, 2, 1), Amount: amt(30_000)},
			{ID: "d3", Date: day(2024, 2, 2), Amount: amt(45_000)},
			{ID: "d4", Date: day(2024, 2, 3), Amount: amt(5_000)},
			{ID: "d5", Date: day(2024, 3, 1), Amount: amt(9_999)},
		},
		Sheets: []settlement.Sheet{
			sheet("acme", 1_500_000, 700_000),
			sheet("globex", 250_000, 300_000),
			sheet("initech", 100, 100),
			sheet("idle", 0, 0),
		},
		Classifications: []models.Classification{
			{DepositID: "d2", Type: models.ClassificationInternal, Detail: "owner top-up"},
			{DepositID: "d3", Type: models.ClassificationExternal, Detail: "tax refund"},
			{DepositID: "d4", Type: models.ClassificationInternal, Detail: "also linked"},
			{DepositID: "d5", Type: models.ClassificationInternal, Detail: "next month"},
			{DepositID: "missing", Type: models.ClassificationExternal},
		},
		DepositLinks: models.Links{"d4": models.LinkedTo("acme")},
	}

	s := Summarize(feb, in, DefaultTopN)

	assert.Equal(t, 2, s.InvoiceCount)
	assert.True(t, amt(750_000).Equal(s.InvoiceTotal))
	assert.Equal(t, 3, s.DepositCount)
	assert.True(t, amt(80_000).Equal(s.DepositTotal))

	assert.Equal(t, 1, s.Unpaid)
	assert.Equal(t, 1, s.Overpaid)
	assert.Equal(t, 1, s.Complete)
	assert.Equal(t, 1, s.Idle)
	assert.True(t, amt(800_000).Equal(s.Outstanding))
	assert.True(t, amt(50_000).Equal(s.Overpayment))

	require.Len(t, s.TopCustomers, 3)
	assert.Equal(t, "acme", s.TopCustomers[0].CustomerID)
	assert.Equal(t, "globex", s.TopCustomers[1].CustomerID)
	assert.Equal(t, "initech", s.TopCustomers[2].CustomerID)

	internal := s.Classifications[models.ClassificationInternal]
	assert.Equal(t, 1, internal.Count)
	assert.True(t, amt(30_000).Equal(internal.Amount))
	external := s.Classifications[models.ClassificationExternal]
	assert.Equal(t, 1, external.Count)
	assert.True(t, amt(45_000).Equal(external.Amount))
}
