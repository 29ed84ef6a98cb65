// Package aggregate rolls settled customer sheets and raw documents up into
// a portfolio view for one reporting month. Nothing here is stored; a
// summary is cheap to rebuild on every request.
package aggregate

import (
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"receivables/internal/settlement"
	"receivables/pkg/models"
)

// DefaultTopN is how many customers the top list shows.
const DefaultTopN = 3

// Period is a calendar month.
type Period struct {
	Year  int
	Month time.Month
}

// PeriodOf returns the month containing t.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// ParsePeriod reads "YYYY-MM".
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Period{}, fmt.Errorf("invalid period %q (format: YYYY-MM): %w", s, err)
	}
	return PeriodOf(t), nil
}

// Contains reports whether t falls in the month.
func (p Period) Contains(t time.Time) bool {
	return t.Year() == p.Year && t.Month() == p.Month
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// ClassificationTotal counts and sums deposits of one classification type.
type ClassificationTotal struct {
	Count  int
	Amount decimal.Decimal
}

// Input is what a summary is built from.
type Input struct {
	Invoices        []models.Invoice
	Deposits        []models.Deposit
	Sheets          []settlement.Sheet // Roster order
	Classifications []models.Classification
	DepositLinks    models.Links
}

// Summary is the portfolio view for one month.
type Summary struct {
	Period Period

	// Documents dated in the period, whether linked or not.
	InvoiceCount int
	InvoiceTotal decimal.Decimal
	DepositCount int
	DepositTotal decimal.Decimal

	// Customer counts over all-time balances. Idle customers have no linked
	// documents and are not counted as complete.
	Complete int
	Unpaid   int
	Overpaid int
	Idle     int

	Outstanding decimal.Decimal // Sum owed by unpaid customers
	Overpayment decimal.Decimal // Sum held for overpaid customers

	TopCustomers    []settlement.Sheet
	Classifications map[models.ClassificationType]ClassificationTotal
}

// Summarize builds the summary for period.
func Summarize(period Period, in Input, topN int) Summary {
	s := Summary{
		Period:       period,
		InvoiceTotal: decimal.Zero,
		DepositTotal: decimal.Zero,
		Outstanding:  decimal.Zero,
		Overpayment:  decimal.Zero,
	}

	for _, inv := range in.Invoices {
		if period.Contains(inv.IssueDate) {
			s.InvoiceCount++
			s.InvoiceTotal = s.InvoiceTotal.Add(inv.TotalAmount)
		}
	}
	for _, dep := range in.Deposits {
		if period.Contains(dep.Date) {
			s.DepositCount++
			s.DepositTotal = s.DepositTotal.Add(dep.Amount)
		}
	}

	for _, sheet := range in.Sheets {
		switch {
		case !sheet.HasActivity():
			s.Idle++
		case sheet.Status == settlement.StatusUnpaid:
			s.Unpaid++
			s.Outstanding = s.Outstanding.Add(sheet.Balance.Neg())
		case sheet.Status == settlement.StatusOverpaid:
			s.Overpaid++
			s.Overpayment = s.Overpayment.Add(sheet.Balance)
		default:
			s.Complete++
		}
	}

	s.TopCustomers = TopCustomers(in.Sheets, topN)
	s.Classifications = ClassificationRollup(period, in.Deposits, in.Classifications, in.DepositLinks)
	return s
}

// TopCustomers returns the n sheets with the largest invoice totals. Ties
// keep roster order.
func TopCustomers(sheets []settlement.Sheet, n int) []settlement.Sheet {
	if n <= 0 {
		return nil
	}
	sorted := slices.Clone(sheets)
	slices.SortStableFunc(sorted, func(a, b settlement.Sheet) int {
		return b.InvoiceTotal.Cmp(a.InvoiceTotal)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// ClassificationRollup counts and sums classified deposits dated in period.
// Deposits that are also linked to a customer count as customer payments and
// are left out.
func ClassificationRollup(period Period, deposits []models.Deposit, classifications []models.Classification, links models.Links) map[models.ClassificationType]ClassificationTotal {
	byID := make(map[string]models.Deposit, len(deposits))
	for _, d := range deposits {
		byID[d.ID] = d
	}

	totals := map[models.ClassificationType]ClassificationTotal{
		models.ClassificationInternal: {Amount: decimal.Zero},
		models.ClassificationExternal: {Amount: decimal.Zero},
	}
	for _, c := range classifications {
		dep, ok := byID[c.DepositID]
		if !ok || !c.Type.IsValid() || !period.Contains(dep.Date) {
			continue
		}
		if links.Of(c.DepositID).State == models.Linked {
			continue
		}
		t := totals[c.Type]
		t.Count++
		t.Amount = t.Amount.Add(dep.Amount)
		totals[c.Type] = t
	}
	return totals
}
