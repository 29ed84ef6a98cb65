package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"receivables/internal/logger"
	"receivables/pkg/models"
)

// GormStore implements Store on top of gorm.
type GormStore struct {
	db  *gorm.DB
	log zerolog.Logger
}

// Open opens (or creates) the sqlite database at path and migrates it.
// Use ":memory:" for a throwaway database.
func Open(path string) (*GormStore, error) {
	const op = "Open"

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: failed to open database %s: %w", op, path, err)
	}

	// sqlite allows one writer; a single connection also keeps an
	// in-memory database alive and shared.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get connection pool: %w", op, err)
	}
	sqlDB.SetMaxOpenConns(1)

	return New(db)
}

// New wraps an open gorm connection and migrates the schema.
func New(db *gorm.DB) (*GormStore, error) {
	const op = "New"

	if err := db.AutoMigrate(tables...); err != nil {
		return nil, fmt.Errorf("%s: migration failed: %w", op, err)
	}
	return &GormStore{db: db, log: logger.WithComponent("store")}, nil
}

// Close releases the underlying connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// WithinTx implements Store.
func (s *GormStore) WithinTx(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx, log: s.log})
	})
}

// ListCustomers returns the roster with aliases in the order they were added.
func (s *GormStore) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	const op = "ListCustomers"

	var rows []customerRow
	if err := s.db.WithContext(ctx).Order("seq").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var aliases []aliasRow
	if err := s.db.WithContext(ctx).Order("seq").Find(&aliases).Error; err != nil {
		return nil, fmt.Errorf("%s: failed to load aliases: %w", op, err)
	}

	byCustomer := make(map[string][]string, len(rows))
	for _, a := range aliases {
		byCustomer[a.CustomerID] = append(byCustomer[a.CustomerID], a.Alias)
	}

	customers := make([]models.Customer, len(rows))
	for i, r := range rows {
		customers[i] = customerModel(&r, byCustomer[r.ID])
	}
	return customers, nil
}

// GetCustomer returns one customer or ErrNotFound.
func (s *GormStore) GetCustomer(ctx context.Context, id string) (*models.Customer, error) {
	const op = "GetCustomer"

	var row customerRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%s: customer %s: %w", op, id, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var aliases []aliasRow
	if err := s.db.WithContext(ctx).Where("customer_id = ?", id).Order("seq").Find(&aliases).Error; err != nil {
		return nil, fmt.Errorf("%s: failed to load aliases: %w", op, err)
	}
	names := make([]string, len(aliases))
	for i, a := range aliases {
		names[i] = a.Alias
	}

	c := customerModel(&row, names)
	return &c, nil
}

// CreateCustomer inserts c and its aliases, assigning an id when c has none.
// Blank and repeated aliases are skipped.
func (s *GormStore) CreateCustomer(ctx context.Context, c *models.Customer) error {
	const op = "CreateCustomer"

	if strings.TrimSpace(c.CompanyName) == "" {
		return fmt.Errorf("%s: company name is required", op)
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	} else if err := s.customerExists(ctx, c.ID); err == nil {
		return fmt.Errorf("%s: customer id %s: %w", op, c.ID, ErrDuplicateRecord)
	}

	var aliases []string
	for _, a := range c.Aliases {
		a = strings.TrimSpace(a)
		if a != "" && !slices.Contains(aliases, a) {
			aliases = append(aliases, a)
		}
	}

	row := customerRow{
		ID:                 c.ID,
		CompanyName:        strings.TrimSpace(c.CompanyName),
		RegistrationNumber: c.RegistrationNumber,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		for _, a := range aliases {
			if err := tx.Create(&aliasRow{CustomerID: c.ID, Alias: a}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%s: customer id %s: %w", op, c.ID, ErrDuplicateRecord)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	c.CompanyName = row.CompanyName
	c.Aliases = aliases
	c.CreatedAt = row.CreatedAt
	c.UpdatedAt = row.UpdatedAt

	s.log.Debug().
		Str("customer_id", c.ID).
		Str("company_name", c.CompanyName).
		Int("aliases", len(aliases)).
		Msg("Customer created")
	return nil
}

// AppendAlias implements Store.
func (s *GormStore) AppendAlias(ctx context.Context, customerID, alias string) (bool, error) {
	const op = "AppendAlias"

	alias = strings.TrimSpace(alias)
	if alias == "" {
		return false, fmt.Errorf("%s: alias is empty", op)
	}
	if err := s.customerExists(ctx, customerID); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "customer_id"}, {Name: "alias"}},
			DoNothing: true,
		}).
		Create(&aliasRow{CustomerID: customerID, Alias: alias})
	if res.Error != nil {
		return false, fmt.Errorf("%s: %w", op, res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	s.touchCustomer(ctx, customerID)
	return true, nil
}

// RemoveAlias implements Store.
func (s *GormStore) RemoveAlias(ctx context.Context, customerID, alias string) (bool, error) {
	const op = "RemoveAlias"

	if err := s.customerExists(ctx, customerID); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	res := s.db.WithContext(ctx).
		Where("customer_id = ? AND alias = ?", customerID, strings.TrimSpace(alias)).
		Delete(&aliasRow{})
	if res.Error != nil {
		return false, fmt.Errorf("%s: %w", op, res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	s.touchCustomer(ctx, customerID)
	return true, nil
}

// ListInvoices implements Store.
func (s *GormStore) ListInvoices(ctx context.Context) ([]models.Invoice, error) {
	var rows []invoiceRow
	if err := s.db.WithContext(ctx).Order("seq").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("ListInvoices: %w", err)
	}
	invoices := make([]models.Invoice, len(rows))
	for i := range rows {
		invoices[i] = rows[i].toModel()
	}
	return invoices, nil
}

// GetInvoice returns one invoice or ErrNotFound.
func (s *GormStore) GetInvoice(ctx context.Context, id string) (*models.Invoice, error) {
	const op = "GetInvoice"

	var row invoiceRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%s: invoice %s: %w", op, id, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	inv := row.toModel()
	return &inv, nil
}

// InsertInvoice stores inv and returns its id. An invoice whose approval
// number is already stored fails with ErrDuplicateApprovalNumber.
func (s *GormStore) InsertInvoice(ctx context.Context, inv *models.Invoice) (string, error) {
	const op = "InsertInvoice"

	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	row := newInvoiceRow(inv)
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "approval_number"}},
			DoNothing: true,
		}).
		Create(row)
	if err := insertError(res, ErrDuplicateApprovalNumber); err != nil {
		inv.ID = ""
		return "", fmt.Errorf("%s: %s: %w", op, inv.ApprovalNumber, err)
	}

	inv.CreatedAt = row.CreatedAt
	return inv.ID, nil
}

// ListDeposits implements Store.
func (s *GormStore) ListDeposits(ctx context.Context) ([]models.Deposit, error) {
	var rows []depositRow
	if err := s.db.WithContext(ctx).Order("seq").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("ListDeposits: %w", err)
	}
	deposits := make([]models.Deposit, len(rows))
	for i := range rows {
		deposits[i] = rows[i].toModel()
	}
	return deposits, nil
}

// GetDeposit returns one deposit or ErrNotFound.
func (s *GormStore) GetDeposit(ctx context.Context, id string) (*models.Deposit, error) {
	const op = "GetDeposit"

	var row depositRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%s: deposit %s: %w", op, id, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	dep := row.toModel()
	return &dep, nil
}

// InsertDeposit stores dep and returns its id. A deposit matching a stored
// one on date, time, amount and payer name fails with ErrDuplicateDeposit.
func (s *GormStore) InsertDeposit(ctx context.Context, dep *models.Deposit) (string, error) {
	const op = "InsertDeposit"

	if dep.ID == "" {
		dep.ID = uuid.NewString()
	}
	row := newDepositRow(dep)
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "date"}, {Name: "txn_time"}, {Name: "amount"}, {Name: "payer_name"},
			},
			DoNothing: true,
		}).
		Create(row)
	if err := insertError(res, ErrDuplicateDeposit); err != nil {
		dep.ID = ""
		return "", fmt.Errorf("%s: %s: %w", op, row.PayerName, err)
	}

	dep.CreatedAt = row.CreatedAt
	return dep.ID, nil
}

// ListInvoiceRelations implements Store.
func (s *GormStore) ListInvoiceRelations(ctx context.Context) ([]models.Relation, error) {
	var rows []invoiceRelationRow
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("ListInvoiceRelations: %w", err)
	}
	relations := make([]models.Relation, len(rows))
	for i, r := range rows {
		relations[i] = models.Relation{DocumentID: r.DocumentID, CustomerID: r.CustomerID}
	}
	return relations, nil
}

// ListDepositRelations implements Store.
func (s *GormStore) ListDepositRelations(ctx context.Context) ([]models.Relation, error) {
	var rows []depositRelationRow
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("ListDepositRelations: %w", err)
	}
	relations := make([]models.Relation, len(rows))
	for i, r := range rows {
		relations[i] = models.Relation{DocumentID: r.DocumentID, CustomerID: r.CustomerID}
	}
	return relations, nil
}

// UpsertInvoiceRelation implements Store.
func (s *GormStore) UpsertInvoiceRelation(ctx context.Context, documentID string, customerID *string) error {
	row := invoiceRelationRow{DocumentID: documentID, CustomerID: normalizeCustomerID(customerID)}
	if err := s.upsertRelation(ctx, &row); err != nil {
		return fmt.Errorf("UpsertInvoiceRelation: %s: %w", documentID, err)
	}
	return nil
}

// UpsertDepositRelation implements Store.
func (s *GormStore) UpsertDepositRelation(ctx context.Context, documentID string, customerID *string) error {
	row := depositRelationRow{DocumentID: documentID, CustomerID: normalizeCustomerID(customerID)}
	if err := s.upsertRelation(ctx, &row); err != nil {
		return fmt.Errorf("UpsertDepositRelation: %s: %w", documentID, err)
	}
	return nil
}

func (s *GormStore) upsertRelation(ctx context.Context, row interface{}) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "document_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"customer_id", "updated_at"}),
		}).
		Create(row).Error
}

// ListClassifications implements Store.
func (s *GormStore) ListClassifications(ctx context.Context) ([]models.Classification, error) {
	var rows []classificationRow
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("ListClassifications: %w", err)
	}
	out := make([]models.Classification, len(rows))
	for i, r := range rows {
		out[i] = models.Classification{
			DepositID: r.DepositID,
			Type:      models.ClassificationType(r.Type),
			Detail:    r.Detail,
		}
	}
	return out, nil
}

// UpsertClassification implements Store.
func (s *GormStore) UpsertClassification(ctx context.Context, c models.Classification) error {
	const op = "UpsertClassification"

	if !c.Type.IsValid() {
		return fmt.Errorf("%s: invalid classification type %q", op, c.Type)
	}
	row := classificationRow{DepositID: c.DepositID, Type: string(c.Type), Detail: c.Detail}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "deposit_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"type", "detail", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("%s: %s: %w", op, c.DepositID, err)
	}
	return nil
}

func (s *GormStore) customerExists(ctx context.Context, id string) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&customerRow{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("customer %s: %w", id, ErrNotFound)
	}
	return nil
}

// touchCustomer bumps updated_at after an alias change. Failure only costs
// the timestamp.
func (s *GormStore) touchCustomer(ctx context.Context, id string) {
	err := s.db.WithContext(ctx).Model(&customerRow{}).
		Where("id = ?", id).
		Update("updated_at", time.Now()).Error
	if err != nil {
		s.log.Warn().Err(err).Str("customer_id", id).Msg("Failed to update customer timestamp")
	}
}

// insertError maps an ON CONFLICT DO NOTHING insert to dup when no row was
// written.
func insertError(res *gorm.DB, dup error) error {
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return dup
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return dup
	}
	return nil
}

func normalizeCustomerID(id *string) *string {
	if id == nil || strings.TrimSpace(*id) == "" {
		return nil
	}
	v := *id
	return &v
}

func customerModel(r *customerRow, aliases []string) models.Customer {
	return models.Customer{
		ID:                 r.ID,
		CompanyName:        r.CompanyName,
		Aliases:            aliases,
		RegistrationNumber: r.RegistrationNumber,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}
