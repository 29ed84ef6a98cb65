package store

import (
	"time"

	"github.com/shopspring/decimal"

	"receivables/pkg/models"
)

// Table rows. Seq keeps insertion order, which the settlement walk relies on
// to break issue-date ties. Amounts are stored as text so they round-trip
// exactly.

type customerRow struct {
	Seq                uint   `gorm:"primaryKey;autoIncrement"`
	ID                 string `gorm:"size:36;uniqueIndex;not null"`
	CompanyName        string `gorm:"not null;index"`
	RegistrationNumber string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (customerRow) TableName() string { return "customers" }

type aliasRow struct {
	Seq        uint   `gorm:"primaryKey;autoIncrement"`
	CustomerID string `gorm:"size:36;not null;uniqueIndex:idx_customer_alias,priority:1"`
	Alias      string `gorm:"not null;uniqueIndex:idx_customer_alias,priority:2"`
	CreatedAt  time.Time
}

func (aliasRow) TableName() string { return "customer_aliases" }

type invoiceRow struct {
	Seq                     uint            `gorm:"primaryKey;autoIncrement"`
	ID                      string          `gorm:"size:36;uniqueIndex;not null"`
	ApprovalNumber          string          `gorm:"not null;uniqueIndex"`
	IssueDate               time.Time       `gorm:"not null;index"`
	BuyerName               string          `gorm:"index"`
	BuyerRegistrationNumber string
	TotalAmount             decimal.Decimal `gorm:"type:text;not null"`
	SupplyAmount            decimal.Decimal `gorm:"type:text;not null"`
	TaxAmount               decimal.Decimal `gorm:"type:text;not null"`
	CreatedAt               time.Time
}

func (invoiceRow) TableName() string { return "invoices" }

func newInvoiceRow(inv *models.Invoice) *invoiceRow {
	return &invoiceRow{
		ID:                      inv.ID,
		ApprovalNumber:          inv.ApprovalNumber,
		IssueDate:               models.DateOf(inv.IssueDate),
		BuyerName:               inv.BuyerName,
		BuyerRegistrationNumber: inv.BuyerRegistrationNumber,
		TotalAmount:             inv.TotalAmount,
		SupplyAmount:            inv.SupplyAmount,
		TaxAmount:               inv.TaxAmount,
	}
}

func (r *invoiceRow) toModel() models.Invoice {
	return models.Invoice{
		ID:                      r.ID,
		IssueDate:               models.DateOf(r.IssueDate),
		BuyerName:               r.BuyerName,
		BuyerRegistrationNumber: r.BuyerRegistrationNumber,
		TotalAmount:             r.TotalAmount,
		SupplyAmount:            r.SupplyAmount,
		TaxAmount:               r.TaxAmount,
		ApprovalNumber:          r.ApprovalNumber,
		CreatedAt:               r.CreatedAt,
	}
}

type depositRow struct {
	Seq        uint            `gorm:"primaryKey;autoIncrement"`
	ID         string          `gorm:"size:36;uniqueIndex;not null"`
	Date       time.Time       `gorm:"not null;uniqueIndex:idx_deposit_dedup,priority:1"`
	TxnTime    string          `gorm:"not null;uniqueIndex:idx_deposit_dedup,priority:2"`
	Amount     decimal.Decimal `gorm:"type:text;not null;uniqueIndex:idx_deposit_dedup,priority:3"`
	PayerName  string          `gorm:"not null;uniqueIndex:idx_deposit_dedup,priority:4"`
	Withdrawal decimal.Decimal `gorm:"type:text;not null"`
	Branch     string
	CreatedAt  time.Time
}

func (depositRow) TableName() string { return "deposits" }

func newDepositRow(dep *models.Deposit) *depositRow {
	return &depositRow{
		ID:         dep.ID,
		Date:       models.DateOf(dep.Date),
		TxnTime:    dep.Time,
		Amount:     dep.Amount,
		PayerName:  dep.PayerName,
		Withdrawal: dep.Withdrawal,
		Branch:     dep.Branch,
	}
}

func (r *depositRow) toModel() models.Deposit {
	return models.Deposit{
		ID:         r.ID,
		Date:       models.DateOf(r.Date),
		Time:       r.TxnTime,
		PayerName:  r.PayerName,
		Amount:     r.Amount,
		Withdrawal: r.Withdrawal,
		Branch:     r.Branch,
		CreatedAt:  r.CreatedAt,
	}
}

type invoiceRelationRow struct {
	DocumentID string  `gorm:"primaryKey;size:36"`
	CustomerID *string `gorm:"size:36;index"`
	UpdatedAt  time.Time
}

func (invoiceRelationRow) TableName() string { return "invoice_relations" }

type depositRelationRow invoiceRelationRow

func (depositRelationRow) TableName() string { return "deposit_relations" }

type classificationRow struct {
	DepositID string `gorm:"primaryKey;size:36"`
	Type      string `gorm:"not null;index"`
	Detail    string
	UpdatedAt time.Time
}

func (classificationRow) TableName() string { return "classifications" }

// tables is the migration set, in dependency order.
var tables = []interface{}{
	&customerRow{},
	&aliasRow{},
	&invoiceRow{},
	&depositRow{},
	&invoiceRelationRow{},
	&depositRelationRow{},
	&classificationRow{},
}
