// Package store persists customers, documents and their link rows.
//
// The reconciliation core only talks to the Store interface. GormStore is the
// sqlite-backed implementation used by the CLI; tests run it against an
// in-memory database.
package store

import (
	"context"
	"errors"
	"fmt"

	"receivables/pkg/models"
)

var (
	// ErrDuplicateRecord matches every duplicate-insert error below.
	ErrDuplicateRecord = errors.New("duplicate record")

	// ErrDuplicateApprovalNumber is returned when an invoice with the same
	// approval number is already stored.
	ErrDuplicateApprovalNumber = fmt.Errorf("%w: approval number already exists", ErrDuplicateRecord)

	// ErrDuplicateDeposit is returned when a deposit with the same date, time,
	// amount and payer name is already stored.
	ErrDuplicateDeposit = fmt.Errorf("%w: deposit already exists", ErrDuplicateRecord)

	// ErrNotFound is returned when a customer or document id does not exist.
	ErrNotFound = errors.New("record not found")
)

// Store is the narrow persistence surface the reconciliation service needs.
// List methods return rows in insertion order.
type Store interface {
	ListCustomers(ctx context.Context) ([]models.Customer, error)
	GetCustomer(ctx context.Context, id string) (*models.Customer, error)
	CreateCustomer(ctx context.Context, c *models.Customer) error
	// AppendAlias adds alias to the customer and reports whether it was new.
	AppendAlias(ctx context.Context, customerID, alias string) (bool, error)
	// RemoveAlias reports whether the alias existed.
	RemoveAlias(ctx context.Context, customerID, alias string) (bool, error)

	ListInvoices(ctx context.Context) ([]models.Invoice, error)
	GetInvoice(ctx context.Context, id string) (*models.Invoice, error)
	InsertInvoice(ctx context.Context, inv *models.Invoice) (string, error)

	ListDeposits(ctx context.Context) ([]models.Deposit, error)
	GetDeposit(ctx context.Context, id string) (*models.Deposit, error)
	InsertDeposit(ctx context.Context, dep *models.Deposit) (string, error)

	ListInvoiceRelations(ctx context.Context) ([]models.Relation, error)
	ListDepositRelations(ctx context.Context) ([]models.Relation, error)
	// Upsert methods write a link row; a nil customerID stores an explicit
	// "no customer" row.
	UpsertInvoiceRelation(ctx context.Context, documentID string, customerID *string) error
	UpsertDepositRelation(ctx context.Context, documentID string, customerID *string) error

	ListClassifications(ctx context.Context) ([]models.Classification, error)
	UpsertClassification(ctx context.Context, c models.Classification) error

	// WithinTx runs fn against a Store bound to one transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(Store) error) error
}
