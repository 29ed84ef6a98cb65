// Package settlement derives per-customer balances from invoices, deposits
// and the links between them.
//
// Balances are never stored. Every run recomputes them from a Snapshot, so
// correctness depends only on the links being current. Customers are
// independent of each other, which lets a run fan out across goroutines.
package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"receivables/internal/logger"
	"receivables/pkg/models"
)

// DefaultWorkers is the fan-out used when no worker count is configured.
const DefaultWorkers = 4

// Engine settles every customer in a snapshot.
type Engine struct {
	now     func() time.Time
	workers int
	log     zerolog.Logger
}

// Option is a functional option for Engine configuration
type Option func(*Engine)

// WithClock replaces time.Now as the source of "today" for overdue days.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithWorkers sets how many customers are settled concurrently.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// NewEngine creates an engine with the given options.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		now:     time.Now,
		workers: DefaultWorkers,
		log:     logger.WithComponent("settlement"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Today returns the engine's current calendar date.
func (e *Engine) Today() time.Time {
	return models.DateOf(e.now())
}

// grouping holds each customer's linked documents in snapshot order.
type grouping struct {
	invoices map[string][]models.Invoice
	deposits map[string][]models.Deposit
	orphaned int
}

func group(snap Snapshot) grouping {
	known := make(map[string]struct{}, len(snap.Customers))
	for _, c := range snap.Customers {
		known[c.ID] = struct{}{}
	}

	g := grouping{
		invoices: make(map[string][]models.Invoice),
		deposits: make(map[string][]models.Deposit),
	}
	for _, inv := range snap.Invoices {
		link := snap.InvoiceLinks.Of(inv.ID)
		if link.State != models.Linked {
			continue
		}
		if _, ok := known[link.CustomerID]; !ok {
			g.orphaned++
			continue
		}
		g.invoices[link.CustomerID] = append(g.invoices[link.CustomerID], inv)
	}
	for _, dep := range snap.Deposits {
		link := snap.DepositLinks.Of(dep.ID)
		if link.State != models.Linked {
			continue
		}
		if _, ok := known[link.CustomerID]; !ok {
			g.orphaned++
			continue
		}
		g.deposits[link.CustomerID] = append(g.deposits[link.CustomerID], dep)
	}
	return g
}

// SettleAll returns one sheet per roster customer, in roster order.
func (e *Engine) SettleAll(ctx context.Context, snap Snapshot) ([]Sheet, error) {
	const op = "SettleAll"

	today := e.Today()
	g := group(snap)
	if g.orphaned > 0 {
		e.log.Debug().
			Int("orphaned_links", g.orphaned).
			Msg("Ignoring links to customers missing from the roster")
	}

	sheets := make([]Sheet, len(snap.Customers))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(e.workers)
	for i := range snap.Customers {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			c := snap.Customers[i]
			sheet, err := Settle(c, g.invoices[c.ID], g.deposits[c.ID], today)
			if err != nil {
				return fmt.Errorf("%s: customer %s: %w", op, c.ID, err)
			}
			sheets[i] = sheet
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	e.log.Debug().
		Int("customers", len(sheets)).
		Int("workers", e.workers).
		Str("as_of", today.Format("2006-01-02")).
		Msg("Settlement run completed")

	return sheets, nil
}

// SettleCustomer settles a single customer of the snapshot.
func (e *Engine) SettleCustomer(snap Snapshot, customerID string) (Sheet, error) {
	const op = "SettleCustomer"

	for _, c := range snap.Customers {
		if c.ID != customerID {
			continue
		}
		g := group(Snapshot{
			Customers:    []models.Customer{c},
			Invoices:     snap.Invoices,
			Deposits:     snap.Deposits,
			InvoiceLinks: snap.InvoiceLinks,
			DepositLinks: snap.DepositLinks,
		})
		sheet, err := Settle(c, g.invoices[c.ID], g.deposits[c.ID], e.Today())
		if err != nil {
			return Sheet{}, fmt.Errorf("%s: %w", op, err)
		}
		return sheet, nil
	}
	return Sheet{}, fmt.Errorf("%s: %w: %s", op, ErrUnknownCustomer, customerID)
}
