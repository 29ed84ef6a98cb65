package settlement

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"receivables/pkg/models"
)

// Errors returned for malformed input. The engine never talks to storage, so
// these are the only ways it fails.
var (
	// ErrNegativeAmount is returned when an invoice or deposit carries a
	// negative amount; ingestion validation should have rejected it.
	ErrNegativeAmount = errors.New("negative document amount")

	// ErrUnknownCustomer is returned when a single-customer settlement is
	// requested for an id that is not in the roster.
	ErrUnknownCustomer = errors.New("customer not in roster")
)

// Status classifies a customer's balance.
type Status string

const (
	StatusComplete Status = "complete" // Balance is exactly zero
	StatusUnpaid   Status = "unpaid"   // Customer owes money
	StatusOverpaid Status = "overpaid" // Customer paid more than invoiced
)

// StatusOf maps a signed balance to its status.
func StatusOf(balance decimal.Decimal) Status {
	switch balance.Sign() {
	case -1:
		return StatusUnpaid
	case 1:
		return StatusOverpaid
	}
	return StatusComplete
}

// Sheet is the derived balance of one customer. It is recomputed from the
// documents and their links on every read.
type Sheet struct {
	CustomerID   string
	CompanyName  string
	InvoiceTotal decimal.Decimal
	DepositTotal decimal.Decimal
	Balance      decimal.Decimal // DepositTotal - InvoiceTotal
	InvoiceCount int
	DepositCount int
	Status       Status

	// Set only when Status is unpaid.
	OldestUnpaidDate      *time.Time
	OldestUnpaidInvoiceID string
	OverdueDays           int
	OverdueAmount         decimal.Decimal // -Balance
}

// HasActivity reports whether any invoice or deposit is linked to the customer.
// A customer without activity is complete by convention.
func (s *Sheet) HasActivity() bool {
	return s.InvoiceCount > 0 || s.DepositCount > 0
}

// Snapshot is everything the engine reads: the roster, every document, and
// the current links. It is treated as immutable during a run.
type Snapshot struct {
	Customers    []models.Customer
	Invoices     []models.Invoice
	Deposits     []models.Deposit
	InvoiceLinks models.Links
	DepositLinks models.Links
}
