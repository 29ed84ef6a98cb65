package settlement

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"receivables/pkg/models"
)

var today = time.Date(2024, 3, 1, 15, 45, 0, 0, time.UTC)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func amt(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func invoice(id string, date time.Time, total int64) models.Invoice {
	return models.Invoice{ID: id, IssueDate: date, TotalAmount: amt(total), ApprovalNumber: id}
}

func deposit(id string, date time.Time, amount int64) models.Deposit {
	return models.Deposit{ID: id, Date: date, Amount: amt(amount)}
}

var acme = models.Customer{ID: "acme", CompanyName: "Acme"}

func TestSettleScenarios(t *testing.T) {
	invoices := []models.Invoice{
		invoice("inv-1", day(2024, 1, 10), 1_000_000),
		invoice("inv-2", day(2024, 2, 5), 500_000),
	}

	t.Run("partial payment leaves the oldest invoice unpaid", func(t *testing.T) {
		deposits := []models.Deposit{deposit("dep-1", day(2024, 1, 20), 700_000)}

		sheet, err := Settle(acme, invoices, deposits, today)
		require.NoError(t, err)

		assert.True(t, amt(-800_000).Equal(sheet.Balance), sheet.Balance.String())
		assert.Equal(t, StatusUnpaid, sheet.Status)
		require.NotNil(t, sheet.OldestUnpaidDate)
		assert.Equal(t, day(2024, 1, 10), *sheet.OldestUnpaidDate)
		assert.Equal(t, "inv-1", sheet.OldestUnpaidInvoiceID)
		assert.Equal(t, 51, sheet.OverdueDays)
		assert.True(t, amt(800_000).Equal(sheet.OverdueAmount))
	})

	t.Run("second deposit overpays", func(t *testing.T) {
		deposits := []models.Deposit{
			deposit("dep-1", day(2024, 1, 20), 700_000),
			deposit("dep-2", day(2024, 2, 20), 1_000_000),
		}

		sheet, err := Settle(acme, invoices, deposits, today)
		require.NoError(t, err)

		assert.True(t, amt(200_000).Equal(sheet.Balance))
		assert.Equal(t, StatusOverpaid, sheet.Status)
		assert.Nil(t, sheet.OldestUnpaidDate)
		assert.Zero(t, sheet.OverdueDays)
		assert.True(t, sheet.OverdueAmount.IsZero())
	})

	t.Run("first invoice covered moves pointer to the next", func(t *testing.T) {
		deposits := []models.Deposit{deposit("dep-1", day(2024, 1, 20), 1_200_000)}

		sheet, err := Settle(acme, invoices, deposits, today)
		require.NoError(t, err)

		assert.Equal(t, StatusUnpaid, sheet.Status)
		assert.Equal(t, "inv-2", sheet.OldestUnpaidInvoiceID)
		assert.Equal(t, day(2024, 2, 5), *sheet.OldestUnpaidDate)
		assert.Equal(t, 25, sheet.OverdueDays)
	})

	t.Run("no deposits points at the earliest invoice", func(t *testing.T) {
		shuffled := []models.Invoice{invoices[1], invoices[0]}

		sheet, err := Settle(acme, shuffled, nil, today)
		require.NoError(t, err)

		assert.True(t, amt(-1_500_000).Equal(sheet.Balance))
		assert.Equal(t, "inv-1", sheet.OldestUnpaidInvoiceID)
		assert.True(t, amt(1_500_000).Equal(sheet.OverdueAmount))
	})

	t.Run("exactly settled", func(t *testing.T) {
		deposits := []models.Deposit{deposit("dep-1", day(2024, 2, 20), 1_500_000)}

		sheet, err := Settle(acme, invoices, deposits, today)
		require.NoError(t, err)
		assert.Equal(t, StatusComplete, sheet.Status)
		assert.True(t, sheet.Balance.IsZero())
	})

	t.Run("no documents is complete", func(t *testing.T) {
		sheet, err := Settle(acme, nil, nil, today)
		require.NoError(t, err)
		assert.Equal(t, StatusComplete, sheet.Status)
		assert.False(t, sheet.HasActivity())
		assert.True(t, sheet.InvoiceTotal.IsZero())
	})
}

func TestSettleStableOnSameDay(t *testing.T) {
	invoices := []models.Invoice{
		invoice("late", day(2024, 2, 1), 100),
		invoice("same-a", day(2024, 1, 5), 300),
		invoice("same-b", day(2024, 1, 5), 200),
	}
	deposits := []models.Deposit{deposit("d", day(2024, 1, 6), 350)}

	sheet, err := Settle(acme, invoices, deposits, today)
	require.NoError(t, err)
	assert.Equal(t, "same-b", sheet.OldestUnpaidInvoiceID, "same-a is paid first because it came first")
}

func TestSettleFutureInvoiceHasNoOverdueDays(t *testing.T) {
	invoices := []models.Invoice{
		invoice("today", day(2024, 3, 1), 100),
		invoice("future", day(2024, 4, 1), 100),
	}

	sheet, err := Settle(acme, invoices[:1], nil, today)
	require.NoError(t, err)
	assert.Equal(t, StatusUnpaid, sheet.Status)
	assert.Zero(t, sheet.OverdueDays)

	sheet, err = Settle(acme, invoices[1:], nil, today)
	require.NoError(t, err)
	assert.Zero(t, sheet.OverdueDays)
}

func TestSettleRejectsNegativeAmounts(t *testing.T) {
	_, err := Settle(acme, []models.Invoice{invoice("bad", day(2024, 1, 1), -5)}, nil, today)
	assert.ErrorIs(t, err, ErrNegativeAmount)

	_, err = Settle(acme, nil, []models.Deposit{deposit("bad", day(2024, 1, 1), -5)}, today)
	assert.ErrorIs(t, err, ErrNegativeAmount)
}

func TestSettleOldestUnpaidIsFirstUncovered(t *testing.T) {
	invoices := []models.Invoice{
		invoice("a", day(2024, 1, 3), 120),
		invoice("b", day(2024, 1, 1), 75),
		invoice("c", day(2024, 1, 2), 333),
		invoice("d", day(2024, 1, 2), 10),
		invoice("e", day(2024, 1, 9), 48),
	}
	var invoiceTotal int64
	for _, inv := range invoices {
		invoiceTotal += inv.TotalAmount.IntPart()
	}

	for paid := int64(0); paid < invoiceTotal; paid += 7 {
		t.Run(fmt.Sprintf("paid=%d", paid), func(t *testing.T) {
			sheet, err := Settle(acme, invoices, []models.Deposit{deposit("d", day(2024, 1, 1), paid)}, today)
			require.NoError(t, err)
			require.Equal(t, StatusUnpaid, sheet.Status)
			assert.True(t, sheet.Balance.Equal(sheet.DepositTotal.Sub(sheet.InvoiceTotal)))

			// Walk the same order and check the pointer splits covered from uncovered.
			ordered := []string{"b", "c", "d", "a", "e"}
			before := decimal.Zero
			for _, id := range ordered {
				var inv models.Invoice
				for _, candidate := range invoices {
					if candidate.ID == id {
						inv = candidate
					}
				}
				if id == sheet.OldestUnpaidInvoiceID {
					assert.True(t, before.LessThanOrEqual(sheet.DepositTotal))
					assert.True(t, before.Add(inv.TotalAmount).GreaterThan(sheet.DepositTotal))
					return
				}
				before = before.Add(inv.TotalAmount)
			}
			t.Fatalf("pointer %q not found", sheet.OldestUnpaidInvoiceID)
		})
	}
}

func TestOverdueDays(t *testing.T) {
	assert.Equal(t, 0, OverdueDays(day(2024, 3, 1), today))
	assert.Equal(t, 1, OverdueDays(day(2024, 2, 29), today))
	assert.Equal(t, 0, OverdueDays(day(2024, 3, 2), today))
	assert.Equal(t, 366, OverdueDays(day(2023, 3, 1), today))
}

func testSnapshot() Snapshot {
	customers := []models.Customer{
		acme,
		{ID: "globex", CompanyName: "Globex"},
		{ID: "idle", CompanyName: "Idle Inc"},
	}
	invoices := []models.Invoice{
		invoice("inv-1", day(2024, 1, 10), 1_000_000),
		invoice("inv-2", day(2024, 2, 5), 500_000),
		invoice("inv-3", day(2024, 2, 1), 300_000),
		invoice("inv-4", day(2024, 2, 2), 999),
		invoice("inv-5", day(2024, 2, 3), 50),
	}
	deposits := []models.Deposit{
		deposit("dep-1", day(2024, 1, 20), 700_000),
		deposit("dep-2", day(2024, 2, 10), 400_000),
		deposit("dep-3", day(2024, 2, 11), 12345),
	}
	ghost := "ghost"
	return Snapshot{
		Customers: customers,
		Invoices:  invoices,
		Deposits:  deposits,
		InvoiceLinks: models.NewLinks([]models.Relation{
			{DocumentID: "inv-1", CustomerID: &acme.ID},
			{DocumentID: "inv-2", CustomerID: &acme.ID},
			{DocumentID: "inv-3", CustomerID: &customers[1].ID},
			{DocumentID: "inv-4", CustomerID: nil},
			{DocumentID: "inv-5", CustomerID: &ghost},
		}),
		DepositLinks: models.NewLinks([]models.Relation{
			{DocumentID: "dep-1", CustomerID: &acme.ID},
			{DocumentID: "dep-2", CustomerID: &customers[1].ID},
		}),
	}
}

func TestEngineSettleAll(t *testing.T) {
	engine := NewEngine(WithClock(func() time.Time { return today }), WithWorkers(2))

	sheets, err := engine.SettleAll(context.Background(), testSnapshot())
	require.NoError(t, err)
	require.Len(t, sheets, 3)

	assert.Equal(t, "acme", sheets[0].CustomerID)
	assert.True(t, amt(-800_000).Equal(sheets[0].Balance))
	assert.Equal(t, 2, sheets[0].InvoiceCount)
	assert.Equal(t, 1, sheets[0].DepositCount)

	assert.Equal(t, "globex", sheets[1].CustomerID)
	assert.Equal(t, StatusOverpaid, sheets[1].Status)
	assert.True(t, amt(100_000).Equal(sheets[1].Balance))

	assert.Equal(t, "idle", sheets[2].CustomerID)
	assert.Equal(t, StatusComplete, sheets[2].Status)
	assert.False(t, sheets[2].HasActivity())
}

func TestEngineSettleAllCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEngine().SettleAll(ctx, testSnapshot())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngineSettleCustomer(t *testing.T) {
	engine := NewEngine(WithClock(func() time.Time { return today }))
	snap := testSnapshot()

	sheet, err := engine.SettleCustomer(snap, "globex")
	require.NoError(t, err)
	assert.True(t, amt(300_000).Equal(sheet.InvoiceTotal))
	assert.True(t, amt(400_000).Equal(sheet.DepositTotal))

	_, err = engine.SettleCustomer(snap, "nobody")
	assert.ErrorIs(t, err, ErrUnknownCustomer)
}

func TestCache(t *testing.T) {
	c := NewCache()
	asOf := day(2024, 3, 1)

	_, ok := c.Get("acme", asOf)
	assert.False(t, ok)

	assert.True(t, c.Put(c.Generation(), asOf, Sheet{CustomerID: "acme", Balance: amt(-5)}, Sheet{CustomerID: "globex"}))
	assert.Equal(t, 2, c.Len())

	got, ok := c.Get("acme", asOf)
	require.True(t, ok)
	assert.True(t, amt(-5).Equal(got.Balance))

	_, ok = c.Get("acme", asOf.AddDate(0, 0, 1))
	assert.False(t, ok, "entries from another day are not served")

	c.Invalidate("acme")
	_, ok = c.Get("acme", asOf)
	assert.False(t, ok)

	c.Reset()
	assert.Zero(t, c.Len())
}

func TestCacheDropsPutAfterInvalidate(t *testing.T) {
	c := NewCache()
	asOf := day(2024, 3, 1)

	gen := c.Generation()
	c.Invalidate("acme")
	assert.False(t, c.Put(gen, asOf, Sheet{CustomerID: "acme"}), "computed before the write")
	_, ok := c.Get("acme", asOf)
	assert.False(t, ok)

	gen = c.Generation()
	c.Reset()
	assert.False(t, c.Put(gen, asOf, Sheet{CustomerID: "globex"}))
	assert.Zero(t, c.Len())

	assert.True(t, c.Put(c.Generation(), asOf, Sheet{CustomerID: "globex"}))
	assert.Equal(t, 1, c.Len())
}
