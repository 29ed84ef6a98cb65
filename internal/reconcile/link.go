package reconcile

import (
	"context"
	"fmt"
	"strings"

	"receivables/internal/identity"
	"receivables/internal/store"
	"receivables/pkg/models"
)

// LinkReport describes the outcome of a manual deposit link.
type LinkReport struct {
	DepositID  string
	CustomerID string
	PayerName  string
	Linked     bool // The chosen deposit's link row was written
	AliasAdded bool
	Propagated int // Sibling deposits linked along with the chosen one
	Failed     int // Siblings that could not be linked
}

// LinkDepositAndPropagate links a deposit to a customer on a reviewer's
// say-so. The deposit's payer name becomes an alias of the customer, and
// every other deposit with exactly the same payer name that is neither
// linked nor classified is linked too.
//
// All writes go in one transaction. When that transaction fails the chosen
// deposit and alias are written first and each sibling is retried on its
// own; siblings that still fail are counted and ErrPartialLink is returned
// with the report. Any other failure after the first write also returns the
// report, with Linked and AliasAdded showing what was stored.
func (s *Service) LinkDepositAndPropagate(ctx context.Context, depositID, customerID string) (*LinkReport, error) {
	const op = "LinkDepositAndPropagate"

	dep, err := s.store.GetDeposit(ctx, depositID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	customer, err := s.store.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	siblings, previous, err := s.siblingDeposits(ctx, dep)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	report := &LinkReport{DepositID: dep.ID, CustomerID: customer.ID, PayerName: dep.PayerName}
	wantAlias := identity.Normalize(dep.PayerName) != "" && !hasName(customer, dep.PayerName)

	err = s.store.WithinTx(ctx, func(tx store.Store) error {
		if err := tx.UpsertDepositRelation(ctx, dep.ID, &customer.ID); err != nil {
			return err
		}
		if wantAlias {
			added, err := tx.AppendAlias(ctx, customer.ID, dep.PayerName)
			if err != nil {
				return err
			}
			report.AliasAdded = added
		}
		for _, id := range siblings {
			if err := tx.UpsertDepositRelation(ctx, id, &customer.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err == nil {
		report.Linked = true
		report.Propagated = len(siblings)
	} else {
		s.log.Warn().
			Err(err).
			Str("deposit_id", dep.ID).
			Int("siblings", len(siblings)).
			Msg("Bulk link failed, retrying deposits one by one")

		report.AliasAdded = false
		if err := s.linkEach(ctx, report, dep, customer, wantAlias, siblings); err != nil {
			if report.Linked {
				s.invalidate(customer.ID, previous)
				return report, fmt.Errorf("%s: %w", op, err)
			}
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	s.invalidate(customer.ID, previous)

	s.log.Info().
		Str("deposit_id", dep.ID).
		Str("customer_id", customer.ID).
		Str("payer", dep.PayerName).
		Bool("alias_added", report.AliasAdded).
		Int("propagated", report.Propagated).
		Int("failed", report.Failed).
		Msg("Deposit linked")

	if report.Failed > 0 {
		return report, fmt.Errorf("%s: %d of %d: %w", op, report.Failed, len(siblings), ErrPartialLink)
	}
	return report, nil
}

// linkEach is the non-transactional fallback of LinkDepositAndPropagate.
func (s *Service) linkEach(ctx context.Context, report *LinkReport, dep *models.Deposit, customer *models.Customer, wantAlias bool, siblings []string) error {
	if err := s.store.UpsertDepositRelation(ctx, dep.ID, &customer.ID); err != nil {
		return err
	}
	report.Linked = true
	if wantAlias {
		added, err := s.store.AppendAlias(ctx, customer.ID, dep.PayerName)
		if err != nil {
			return err
		}
		report.AliasAdded = added
	}
	for _, id := range siblings {
		if err := s.store.UpsertDepositRelation(ctx, id, &customer.ID); err != nil {
			report.Failed++
			s.log.Warn().Err(err).Str("deposit_id", id).Msg("Failed to link sibling deposit")
			continue
		}
		report.Propagated++
	}
	return nil
}

// siblingDeposits returns the ids of propagation targets for dep and the
// customer dep is currently linked to, if any.
func (s *Service) siblingDeposits(ctx context.Context, dep *models.Deposit) ([]string, string, error) {
	relations, err := s.store.ListDepositRelations(ctx)
	if err != nil {
		return nil, "", err
	}
	links := models.NewLinks(relations)
	previous := links.Of(dep.ID).CustomerID

	if dep.PayerName == "" {
		return nil, previous, nil
	}

	classifications, err := s.store.ListClassifications(ctx)
	if err != nil {
		return nil, "", err
	}
	classified := make(map[string]bool, len(classifications))
	for _, c := range classifications {
		classified[c.DepositID] = true
	}

	deposits, err := s.store.ListDeposits(ctx)
	if err != nil {
		return nil, "", err
	}
	var siblings []string
	for _, d := range deposits {
		if d.ID == dep.ID || d.PayerName != dep.PayerName {
			continue
		}
		if links.Of(d.ID).State == models.Linked || classified[d.ID] {
			continue
		}
		siblings = append(siblings, d.ID)
	}
	return siblings, previous, nil
}

// LinkInvoice links an invoice to a customer.
func (s *Service) LinkInvoice(ctx context.Context, invoiceID, customerID string) error {
	const op = "LinkInvoice"

	if _, err := s.store.GetInvoice(ctx, invoiceID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err := s.store.GetCustomer(ctx, customerID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	previous, err := s.invoiceOwner(ctx, invoiceID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.store.UpsertInvoiceRelation(ctx, invoiceID, &customerID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(customerID, previous)

	s.log.Info().Str("invoice_id", invoiceID).Str("customer_id", customerID).Msg("Invoice linked")
	return nil
}

// UnlinkInvoice marks an invoice as explicitly without customer.
func (s *Service) UnlinkInvoice(ctx context.Context, invoiceID string) error {
	const op = "UnlinkInvoice"

	if _, err := s.store.GetInvoice(ctx, invoiceID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	previous, err := s.invoiceOwner(ctx, invoiceID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.store.UpsertInvoiceRelation(ctx, invoiceID, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(previous)
	return nil
}

// UnlinkDeposit marks a deposit as explicitly without customer. Aliases
// added when it was linked are kept.
func (s *Service) UnlinkDeposit(ctx context.Context, depositID string) error {
	const op = "UnlinkDeposit"

	if _, err := s.store.GetDeposit(ctx, depositID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	relations, err := s.store.ListDepositRelations(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	previous := models.NewLinks(relations).Of(depositID).CustomerID

	if err := s.store.UpsertDepositRelation(ctx, depositID, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(previous)
	return nil
}

func (s *Service) invoiceOwner(ctx context.Context, invoiceID string) (string, error) {
	relations, err := s.store.ListInvoiceRelations(ctx)
	if err != nil {
		return "", err
	}
	return models.NewLinks(relations).Of(invoiceID).CustomerID, nil
}

// ClassifyDeposit tags a deposit as internal or external movement. It does
// not touch the deposit's customer link.
func (s *Service) ClassifyDeposit(ctx context.Context, depositID string, kind models.ClassificationType, detail string) error {
	const op = "ClassifyDeposit"

	if !kind.IsValid() {
		return fmt.Errorf("%s: invalid classification %q", op, kind)
	}
	if _, err := s.store.GetDeposit(ctx, depositID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	c := models.Classification{DepositID: depositID, Type: kind, Detail: strings.TrimSpace(detail)}
	if err := s.store.UpsertClassification(ctx, c); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info().Str("deposit_id", depositID).Str("type", string(kind)).Msg("Deposit classified")
	return nil
}

// CreateCustomer adds a customer to the roster. A name that already
// resolves to a customer is refused with ErrCustomerExists.
func (s *Service) CreateCustomer(ctx context.Context, name, registrationNumber string, aliases ...string) (*models.Customer, error) {
	const op = "CreateCustomer"

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%s: company name is required", op)
	}
	roster, err := s.store.ListCustomers(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if id, ok := identity.Resolve(name, roster); ok {
		return nil, fmt.Errorf("%s: %q resolves to customer %s: %w", op, name, id, ErrCustomerExists)
	}

	c := &models.Customer{
		CompanyName:        name,
		RegistrationNumber: strings.TrimSpace(registrationNumber),
		Aliases:            aliases,
	}
	if err := s.store.CreateCustomer(ctx, c); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

// AddAlias adds an alias to a customer and reports whether it was new. An
// alias that resolves to one of the customer's names already is not added.
// Documents already stored are not re-resolved.
func (s *Service) AddAlias(ctx context.Context, customerID, alias string) (bool, error) {
	const op = "AddAlias"

	customer, err := s.store.GetCustomer(ctx, customerID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if hasName(customer, alias) {
		return false, nil
	}
	added, err := s.store.AppendAlias(ctx, customerID, alias)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return added, nil
}

// hasName reports whether name normalizes to the company name or an alias of c.
func hasName(c *models.Customer, name string) bool {
	key := identity.Normalize(name)
	for _, n := range c.Names() {
		if identity.Normalize(n) == key {
			return true
		}
	}
	return false
}

// RemoveAlias removes an alias from a customer and reports whether it existed.
func (s *Service) RemoveAlias(ctx context.Context, customerID, alias string) (bool, error) {
	removed, err := s.store.RemoveAlias(ctx, customerID, alias)
	if err != nil {
		return false, fmt.Errorf("RemoveAlias: %w", err)
	}
	return removed, nil
}
