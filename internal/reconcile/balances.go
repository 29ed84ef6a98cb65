package reconcile

import (
	"context"
	"fmt"
	"time"

	"receivables/internal/aggregate"
	"receivables/internal/identity"
	"receivables/internal/settlement"
	"receivables/pkg/models"
)

// Balances settles every customer on the roster, in roster order.
func (s *Service) Balances(ctx context.Context) ([]settlement.Sheet, error) {
	const op = "Balances"

	today := s.engine.Today()
	if s.cache != nil {
		roster, err := s.store.ListCustomers(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if sheets, ok := s.cached(roster, today); ok {
			return sheets, nil
		}
	}

	gen := s.generation()
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	sheets, err := s.engine.SettleAll(ctx, snap)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if s.cache != nil {
		s.cache.Put(gen, today, sheets...)
	}
	return sheets, nil
}

// cached returns the roster's sheets when every one of them is cached.
func (s *Service) cached(roster []models.Customer, today time.Time) ([]settlement.Sheet, bool) {
	if len(roster) == 0 {
		return nil, false
	}
	sheets := make([]settlement.Sheet, len(roster))
	for i, c := range roster {
		sheet, ok := s.cache.Get(c.ID, today)
		if !ok {
			return nil, false
		}
		sheets[i] = sheet
	}
	return sheets, true
}

// CustomerBalance settles one customer.
func (s *Service) CustomerBalance(ctx context.Context, customerID string) (settlement.Sheet, error) {
	const op = "CustomerBalance"

	today := s.engine.Today()
	if s.cache != nil {
		if sheet, ok := s.cache.Get(customerID, today); ok {
			return sheet, nil
		}
	}

	gen := s.generation()
	snap, err := s.snapshot(ctx)
	if err != nil {
		return settlement.Sheet{}, fmt.Errorf("%s: %w", op, err)
	}
	sheet, err := s.engine.SettleCustomer(snap, customerID)
	if err != nil {
		return settlement.Sheet{}, fmt.Errorf("%s: %w", op, err)
	}
	if s.cache != nil {
		s.cache.Put(gen, today, sheet)
	}
	return sheet, nil
}

// Summary builds the portfolio summary for one month. Customer statuses use
// all-time balances. A topN of zero uses the service default.
func (s *Service) Summary(ctx context.Context, period aggregate.Period, topN int) (aggregate.Summary, error) {
	const op = "Summary"

	if topN <= 0 {
		topN = s.topN
	}

	snap, err := s.snapshot(ctx)
	if err != nil {
		return aggregate.Summary{}, fmt.Errorf("%s: %w", op, err)
	}
	sheets, err := s.engine.SettleAll(ctx, snap)
	if err != nil {
		return aggregate.Summary{}, fmt.Errorf("%s: %w", op, err)
	}
	classifications, err := s.store.ListClassifications(ctx)
	if err != nil {
		return aggregate.Summary{}, fmt.Errorf("%s: %w", op, err)
	}

	return aggregate.Summarize(period, aggregate.Input{
		Invoices:        snap.Invoices,
		Deposits:        snap.Deposits,
		Sheets:          sheets,
		Classifications: classifications,
		DepositLinks:    snap.DepositLinks,
	}, topN), nil
}

// Suggest lists customers whose names loosely match name. The list is
// advisory; nothing is linked.
func (s *Service) Suggest(ctx context.Context, name string, limit int) ([]identity.Suggestion, error) {
	roster, err := s.store.ListCustomers(ctx)
	if err != nil {
		return nil, fmt.Errorf("Suggest: %w", err)
	}
	return identity.Suggest(name, roster, limit), nil
}

// UnmatchedDeposits returns deposits that are neither linked to a customer
// nor classified, in insertion order.
func (s *Service) UnmatchedDeposits(ctx context.Context) ([]models.Deposit, error) {
	const op = "UnmatchedDeposits"

	deposits, err := s.store.ListDeposits(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	relations, err := s.store.ListDepositRelations(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	classifications, err := s.store.ListClassifications(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	links := models.NewLinks(relations)
	classified := make(map[string]bool, len(classifications))
	for _, c := range classifications {
		classified[c.DepositID] = true
	}

	var out []models.Deposit
	for _, d := range deposits {
		if links.Of(d.ID).State != models.Linked && !classified[d.ID] {
			out = append(out, d)
		}
	}
	return out, nil
}
