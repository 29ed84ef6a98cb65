package settlement

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"receivables/pkg/models"
)

// Settle computes the balance sheet of one customer from the invoices and
// deposits linked to it.
//
// When the customer owes money, deposits are applied to invoices oldest
// first: invoices are sorted by issue date (stable, so same-day invoices keep
// their input order) and each is paid off in full while the deposit total
// allows. The first invoice that cannot be covered is reported as the oldest
// unpaid one. This is a deterministic convention, not a record of which
// payment settled which invoice.
func Settle(customer models.Customer, invoices []models.Invoice, deposits []models.Deposit, today time.Time) (Sheet, error) {
	sheet := Sheet{
		CustomerID:   customer.ID,
		CompanyName:  customer.CompanyName,
		InvoiceTotal: decimal.Zero,
		DepositTotal: decimal.Zero,
		InvoiceCount: len(invoices),
		DepositCount: len(deposits),
	}

	for _, inv := range invoices {
		if inv.TotalAmount.IsNegative() {
			return Sheet{}, fmt.Errorf("%w: invoice %s (%s)", ErrNegativeAmount, inv.ID, inv.TotalAmount)
		}
		sheet.InvoiceTotal = sheet.InvoiceTotal.Add(inv.TotalAmount)
	}
	for _, dep := range deposits {
		if dep.Amount.IsNegative() {
			return Sheet{}, fmt.Errorf("%w: deposit %s (%s)", ErrNegativeAmount, dep.ID, dep.Amount)
		}
		sheet.DepositTotal = sheet.DepositTotal.Add(dep.Amount)
	}

	sheet.Balance = sheet.DepositTotal.Sub(sheet.InvoiceTotal)
	sheet.Status = StatusOf(sheet.Balance)
	if sheet.Status != StatusUnpaid {
		return sheet, nil
	}

	sorted := slices.Clone(invoices)
	slices.SortStableFunc(sorted, func(a, b models.Invoice) int {
		return a.IssueDate.Compare(b.IssueDate)
	})

	remaining := sheet.DepositTotal
	for _, inv := range sorted {
		if remaining.GreaterThanOrEqual(inv.TotalAmount) {
			remaining = remaining.Sub(inv.TotalAmount)
			continue
		}
		oldest := models.DateOf(inv.IssueDate)
		sheet.OldestUnpaidDate = &oldest
		sheet.OldestUnpaidInvoiceID = inv.ID
		sheet.OverdueDays = OverdueDays(oldest, today)
		break
	}
	sheet.OverdueAmount = sheet.Balance.Neg()

	return sheet, nil
}

// OverdueDays counts whole calendar days from since to today, never negative.
func OverdueDays(since, today time.Time) int {
	elapsed := models.DateOf(today).Sub(models.DateOf(since))
	days := int(math.Ceil(elapsed.Hours() / 24))
	if days < 0 {
		return 0
	}
	return days
}
