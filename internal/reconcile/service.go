// Package reconcile is the application layer of the receivables engine. It
// feeds parsed files through the identity resolver into the store, runs
// settlement over the stored documents, and carries out the manual link and
// classification commands a reviewer issues.
package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"receivables/internal/aggregate"
	"receivables/internal/ingest"
	"receivables/internal/logger"
	"receivables/internal/settlement"
	"receivables/internal/store"
	"receivables/pkg/models"
)

var (
	// ErrCustomerExists is returned when a new customer's name already
	// resolves to someone on the roster.
	ErrCustomerExists = errors.New("customer already exists")

	// ErrPartialLink is returned alongside a LinkReport when some sibling
	// deposits could not be linked.
	ErrPartialLink = errors.New("some deposits could not be linked")
)

// Service runs reconciliation commands against a Store.
type Service struct {
	store      store.Store
	parser     *ingest.Parser
	engine     *settlement.Engine
	cache      *settlement.Cache
	autoCreate bool
	topN       int
	log        zerolog.Logger
}

// Option is a functional option for Service configuration
type Option func(*Service)

// WithAutoCreateCustomers makes ingestion create a customer for every
// invoice buyer that does not resolve.
func WithAutoCreateCustomers(enabled bool) Option {
	return func(s *Service) {
		s.autoCreate = enabled
	}
}

// WithTopN sets how many customers the summary's top list holds.
func WithTopN(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.topN = n
		}
	}
}

// WithCache sets the settlement cache. Pass nil to disable caching.
func WithCache(c *settlement.Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// NewService creates a service over st.
func NewService(st store.Store, parser *ingest.Parser, engine *settlement.Engine, opts ...Option) *Service {
	s := &Service{
		store:  st,
		parser: parser,
		engine: engine,
		cache:  settlement.NewCache(),
		topN:   aggregate.DefaultTopN,
		log:    logger.WithComponent("reconcile"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Customers returns the roster.
func (s *Service) Customers(ctx context.Context) ([]models.Customer, error) {
	return s.store.ListCustomers(ctx)
}

// snapshot loads everything settlement reads.
func (s *Service) snapshot(ctx context.Context) (settlement.Snapshot, error) {
	const op = "snapshot"

	var snap settlement.Snapshot
	var err error
	if snap.Customers, err = s.store.ListCustomers(ctx); err != nil {
		return snap, fmt.Errorf("%s: %w", op, err)
	}
	if snap.Invoices, err = s.store.ListInvoices(ctx); err != nil {
		return snap, fmt.Errorf("%s: %w", op, err)
	}
	if snap.Deposits, err = s.store.ListDeposits(ctx); err != nil {
		return snap, fmt.Errorf("%s: %w", op, err)
	}
	invRel, err := s.store.ListInvoiceRelations(ctx)
	if err != nil {
		return snap, fmt.Errorf("%s: %w", op, err)
	}
	depRel, err := s.store.ListDepositRelations(ctx)
	if err != nil {
		return snap, fmt.Errorf("%s: %w", op, err)
	}
	snap.InvoiceLinks = models.NewLinks(invRel)
	snap.DepositLinks = models.NewLinks(depRel)
	return snap, nil
}

// generation must be read before the snapshot whose sheets will be cached.
func (s *Service) generation() uint64 {
	if s.cache == nil {
		return 0
	}
	return s.cache.Generation()
}

func (s *Service) invalidate(customerIDs ...string) {
	if s.cache == nil {
		return
	}
	var ids []string
	for _, id := range customerIDs {
		if id != "" {
			ids = append(ids, id)
		}
	}
	s.cache.Invalidate(ids...)
}

func (s *Service) resetCache() {
	if s.cache != nil {
		s.cache.Reset()
	}
}
