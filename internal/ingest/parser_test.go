package ingest

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/korean"

	"receivables/pkg/models"
)

var fixedNow = time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)

func newTestParser() *Parser {
	return NewParser(WithClock(func() time.Time { return fixedNow }))
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

const invoiceCSV = `Tax invoice export
Issued between 2024-01-01 and 2024-02-29
,,,,,,,,
Issue Date,Approval Number,Registration Number,Company Name,Registration Number,Company Name,Total Amount,Supply Amount,Tax Amount
2024-01-10,A-001,111-11-11111,Our Trading Co,222-22-22222,Acme,"1,000,000","909,091","90,909"
,,,,,,,,
Issue Date,Approval Number,Registration Number,Company Name,Registration Number,Company Name,Total Amount,Supply Amount,Tax Amount
2024/02/05,A-002,111-11-11111,Our Trading Co,333-33-33333,Globex, 550000 ,,
not a date,A-003,111-11-11111,Our Trading Co,222-22-22222,Acme,abc,,
`

func TestParseInvoicesCSV(t *testing.T) {
	p := newTestParser()

	result, err := p.Parse("invoices.csv", strings.NewReader(invoiceCSV), models.KindInvoice)
	require.NoError(t, err)

	assert.Equal(t, 4, result.HeaderRow)
	assert.Equal(t, 5, result.Scanned)
	assert.Equal(t, 2, result.Discarded, "blank row and repeated header")
	require.Len(t, result.Invoices, 3)
	assert.Empty(t, result.Deposits)

	t.Run("second company name column is the buyer", func(t *testing.T) {
		inv := result.Invoices[0]
		assert.Equal(t, 5, inv.Row)
		assert.Equal(t, "A-001", inv.ApprovalNumber)
		assert.Equal(t, "Acme", inv.BuyerName)
		assert.Equal(t, "222-22-22222", inv.BuyerRegistrationNumber)
		assert.Equal(t, day(2024, 1, 10), inv.IssueDate)
		assert.True(t, dec("1000000").Equal(inv.TotalAmount))
		assert.True(t, dec("909091").Equal(inv.SupplyAmount))
		assert.True(t, dec("90909").Equal(inv.TaxAmount))
		assert.False(t, inv.DateFallback)
	})

	t.Run("missing supply and tax are split from the total", func(t *testing.T) {
		inv := result.Invoices[1]
		assert.Equal(t, "Globex", inv.BuyerName)
		assert.Equal(t, day(2024, 2, 5), inv.IssueDate)
		assert.True(t, dec("550000").Equal(inv.TotalAmount))
		assert.True(t, dec("500000").Equal(inv.SupplyAmount))
		assert.True(t, dec("50000").Equal(inv.TaxAmount))
	})

	t.Run("unreadable date falls back to today and amount to zero", func(t *testing.T) {
		inv := result.Invoices[2]
		assert.True(t, inv.DateFallback)
		assert.Equal(t, day(2024, 3, 15), inv.IssueDate)
		assert.True(t, inv.TotalAmount.IsZero())
		assert.Equal(t, 1, result.DateFallbacks)
	})
}

func TestParseDepositsCSV(t *testing.T) {
	const data = "\xEF\xBB\xBFAccount 123-456\n" +
		"Transaction Date,Transaction Time,Payer Name,Withdrawal,Deposit,Branch\n" +
		"2024-01-20,10:15:00,Acme,0,\"700,000\",Seoul\n" +
		"2024-01-21,11:00,Landlord,\"1,200,000\",0,Seoul\n" +
		"2024-01-22 14:05:09,,Acme Ltd,,\"50,000\",Busan\n" +
		"2024-01-23,,Refund,20000,30000,\n" +
		",,,,,\n"

	result, err := newTestParser().Parse("statement.CSV", strings.NewReader(data), models.KindDeposit)
	require.NoError(t, err)

	assert.Equal(t, 2, result.HeaderRow)
	assert.Equal(t, 1, result.Dropped, "withdrawal-only line")
	assert.Equal(t, 1, result.Discarded)
	require.Len(t, result.Deposits, 3)

	first := result.Deposits[0]
	assert.Equal(t, day(2024, 1, 20), first.Date)
	assert.Equal(t, "10:15:00", first.Time)
	assert.Equal(t, "Acme", first.PayerName)
	assert.Equal(t, "Seoul", first.Branch)
	assert.True(t, dec("700000").Equal(first.Amount))

	second := result.Deposits[1]
	assert.Equal(t, "14:05:09", second.Time, "time taken from the date cell")
	assert.Equal(t, "Acme Ltd", second.PayerName)

	third := result.Deposits[2]
	assert.True(t, dec("20000").Equal(third.Withdrawal))
	assert.True(t, dec("30000").Equal(third.Amount))
}

func TestParseRejectsNegativeAmounts(t *testing.T) {
	const data = "Approval Number,Issue Date,Buyer Name,Total Amount,Supply Amount,Tax Amount\n" +
		"A-1,2024-01-10,Acme,-110,-100,-10\n" +
		"A-2,2024-01-11,Acme,110,100,10\n"

	result, err := newTestParser().Parse("credit.csv", strings.NewReader(data), models.KindInvoice)
	require.NoError(t, err)

	require.Len(t, result.Invoices, 1)
	assert.Equal(t, "A-2", result.Invoices[0].ApprovalNumber)
	require.Len(t, result.Rejected, 3)
	assert.Equal(t, 2, result.Rejected[0].Row)
	assert.Equal(t, "TotalAmount", result.Rejected[0].Field)
}

func TestParseNoHeader(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 12; i++ {
		b.WriteString("filler,row\n")
	}
	b.WriteString("Approval Number,Total Amount\nA-1,100\n")

	p := NewParser(WithHeaderScanRows(10))
	result, err := p.Parse("late-header.csv", strings.NewReader(b.String()), models.KindInvoice)
	require.NoError(t, err)
	assert.Zero(t, result.HeaderRow)
	assert.Zero(t, result.Len())

	result, err = NewParser().Parse("empty.csv", strings.NewReader(""), models.KindDeposit)
	require.NoError(t, err)
	assert.Zero(t, result.Len())
}

func TestParseUnsupportedFormat(t *testing.T) {
	_, err := NewParser().Parse("statement.pdf", strings.NewReader("%PDF"), models.KindDeposit)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))

	var pe *ParseError
	assert.True(t, errors.As(err, &pe))
	assert.Equal(t, "Parse", pe.Op)
}

func TestParseUnknownKind(t *testing.T) {
	_, err := NewParser().Parse("a.csv", strings.NewReader("x"), models.DocumentKind("receipt"))
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestParseCorruptSpreadsheet(t *testing.T) {
	_, err := NewParser().Parse("broken.xlsx", strings.NewReader("not a zip"), models.KindInvoice)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrParseFailure)
}

func TestParseEUCKRDeposits(t *testing.T) {
	utf8Text := "거래일자,입금자명,출금액,입금액,거래점\n2024.01.20,홍길동,0,\"150,000\",강남\n"
	encoded, err := korean.EUCKR.NewEncoder().String(utf8Text)
	require.NoError(t, err)

	result, err := newTestParser().Parse("bank.csv", strings.NewReader(encoded), models.KindDeposit)
	require.NoError(t, err)

	require.Len(t, result.Deposits, 1)
	assert.Equal(t, "홍길동", result.Deposits[0].PayerName)
	assert.Equal(t, "강남", result.Deposits[0].Branch)
	assert.Equal(t, day(2024, 1, 20), result.Deposits[0].Date)
}

func TestParseSpreadsheet(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"
	rows := [][]interface{}{
		{"Deposit history"},
		{"Account", "123-456"},
		{"Transaction Date", "Payer Name", "Deposit", "Withdrawal", "Branch"},
		{45311, "Acme", 700000, 0, "Seoul"},
		{45311.75, "Globex", 250000, 0, "Busan"},
		{45312, "Utility Co", 0, 98000, "Seoul"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow(sheet, cell, &r))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	result, err := newTestParser().Parse("history.xlsx", bytes.NewReader(buf.Bytes()), models.KindDeposit)
	require.NoError(t, err)

	assert.Equal(t, 3, result.HeaderRow)
	assert.Equal(t, 1, result.Dropped)
	require.Len(t, result.Deposits, 2)

	assert.Equal(t, day(2024, 1, 20), result.Deposits[0].Date)
	assert.Equal(t, "", result.Deposits[0].Time)
	assert.True(t, dec("700000").Equal(result.Deposits[0].Amount))

	assert.Equal(t, "Globex", result.Deposits[1].PayerName)
	assert.Equal(t, "18:00:00", result.Deposits[1].Time)
}

func TestParseRows(t *testing.T) {
	rows := [][]string{
		{"Approval Number", "Issue Date", "Buyer Name", "Total Amount"},
		{"A-9", "45301", "Acme", "1100"},
	}
	result, err := newTestParser().ParseRows(rows, models.KindInvoice)
	require.NoError(t, err)
	require.Len(t, result.Invoices, 1)
	assert.Equal(t, day(2024, 1, 10), result.Invoices[0].IssueDate)
	assert.True(t, dec("1000").Equal(result.Invoices[0].SupplyAmount))
}
