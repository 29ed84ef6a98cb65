package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DocumentKind identifies which schema an ingested file follows.
type DocumentKind string

const (
	KindInvoice DocumentKind = "invoice"
	KindDeposit DocumentKind = "deposit"
)

// ParseDocumentKind accepts "invoice" or "deposit" in any case.
func ParseDocumentKind(s string) (DocumentKind, error) {
	switch DocumentKind(strings.ToLower(strings.TrimSpace(s))) {
	case KindInvoice:
		return KindInvoice, nil
	case KindDeposit:
		return KindDeposit, nil
	}
	return "", fmt.Errorf("unknown document kind %q (must be 'invoice' or 'deposit')", s)
}

// Invoice is an issued tax invoice.
type Invoice struct {
	ID                      string
	IssueDate               time.Time
	BuyerName               string
	BuyerRegistrationNumber string
	TotalAmount             decimal.Decimal // Supply + tax
	SupplyAmount            decimal.Decimal
	TaxAmount               decimal.Decimal
	ApprovalNumber          string // Dedup key
	CreatedAt               time.Time
}

// Deposit is a single incoming bank transaction line.
type Deposit struct {
	ID         string
	Date       time.Time
	Time       string // HH:MM:SS, empty when the source had none
	PayerName  string
	Amount     decimal.Decimal
	Withdrawal decimal.Decimal // Recorded when present on the same line
	Branch     string
	CreatedAt  time.Time
}

// DedupKey returns the (date, time, amount, payer) tuple identifying a deposit.
func (d *Deposit) DedupKey() string {
	return strings.Join([]string{
		d.Date.Format("2006-01-02"),
		d.Time,
		d.Amount.String(),
		d.PayerName,
	}, "|")
}
