package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"receivables/internal/identity"
	"receivables/internal/ingest"
	"receivables/internal/store"
	"receivables/pkg/models"
)

// IngestReport summarizes one ingested file.
type IngestReport struct {
	Source    string
	Kind      models.DocumentKind
	HeaderRow int

	Total         int // Admitted records
	Saved         int
	Skipped       int // Already stored
	Rejected      int // Rows that failed validation, never stored
	Failed        int // Store writes that failed
	Linked        int // Saved records resolved to a customer
	Unresolved    int // Saved records left for review
	Created       int // Customers created from invoice buyers
	CreateFailed  int // Buyers whose customer could not be created, left unresolved
	DateFallbacks int

	RowErrors []ingest.RowError
}

// Ingest parses one file and stores its records. Parse failures abort the
// file before anything is written. Duplicate records are skipped and
// counted.
func (s *Service) Ingest(ctx context.Context, filename string, r io.Reader, kind models.DocumentKind) (*IngestReport, error) {
	const op = "Ingest"

	result, err := s.parser.Parse(filename, r, kind)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.save(ctx, filename, result)
}

// IngestRows stores records parsed from rows already read into memory.
func (s *Service) IngestRows(ctx context.Context, source string, rows [][]string, kind models.DocumentKind) (*IngestReport, error) {
	const op = "IngestRows"

	result, err := s.parser.ParseRows(rows, kind)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.save(ctx, source, result)
}

func (s *Service) save(ctx context.Context, source string, result *ingest.Result) (*IngestReport, error) {
	const op = "save"

	report := &IngestReport{
		Source:        source,
		Kind:          result.Kind,
		HeaderRow:     result.HeaderRow,
		Total:         result.Len(),
		Rejected:      rejectedRows(result.Rejected),
		DateFallbacks: result.DateFallbacks,
		RowErrors:     result.Rejected,
	}

	roster, err := s.store.ListCustomers(ctx)
	if err != nil {
		return report, fmt.Errorf("%s: failed to load customers: %w", op, err)
	}
	ix := identity.NewIndex(roster)

	log := s.log.With().Str("source", source).Str("kind", string(result.Kind)).Logger()

	for _, rec := range result.Invoices {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("%s: %w", op, err)
		}
		inv := rec.Invoice
		if _, err := s.store.InsertInvoice(ctx, &inv); err != nil {
			if errors.Is(err, store.ErrDuplicateRecord) {
				report.Skipped++
				log.Debug().Str("approval_number", inv.ApprovalNumber).Int("row", rec.Row).Msg("Duplicate invoice skipped")
				continue
			}
			report.Failed++
			log.Warn().Err(err).Int("row", rec.Row).Msg("Failed to save invoice")
			continue
		}
		report.Saved++

		customerID, created, err := s.resolveBuyer(ctx, ix, &inv)
		if err != nil {
			report.CreateFailed++
			log.Warn().Err(err).Str("buyer", inv.BuyerName).Msg("Failed to create customer")
		}
		if created {
			report.Created++
		}
		s.relate(ctx, report, s.store.UpsertInvoiceRelation, inv.ID, customerID)
	}

	for _, rec := range result.Deposits {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("%s: %w", op, err)
		}
		dep := rec.Deposit
		if _, err := s.store.InsertDeposit(ctx, &dep); err != nil {
			if errors.Is(err, store.ErrDuplicateRecord) {
				report.Skipped++
				log.Debug().Str("dedup_key", dep.DedupKey()).Int("row", rec.Row).Msg("Duplicate deposit skipped")
				continue
			}
			report.Failed++
			log.Warn().Err(err).Int("row", rec.Row).Msg("Failed to save deposit")
			continue
		}
		report.Saved++

		customerID, _ := ix.Resolve(dep.PayerName)
		s.relate(ctx, report, s.store.UpsertDepositRelation, dep.ID, customerID)
	}

	if report.Saved > 0 {
		s.resetCache()
	}

	log.Info().
		Int("total", report.Total).
		Int("saved", report.Saved).
		Int("skipped", report.Skipped).
		Int("rejected", report.Rejected).
		Int("failed", report.Failed).
		Int("linked", report.Linked).
		Int("unresolved", report.Unresolved).
		Int("created", report.Created).
		Int("create_failed", report.CreateFailed).
		Msg("Ingestion completed")

	return report, nil
}

// resolveBuyer returns the customer an invoice belongs to, creating one from
// the buyer when auto-creation is on.
func (s *Service) resolveBuyer(ctx context.Context, ix *identity.Index, inv *models.Invoice) (string, bool, error) {
	if id, ok := ix.Resolve(inv.BuyerName); ok {
		return id, false, nil
	}
	if !s.autoCreate || strings.TrimSpace(inv.BuyerName) == "" {
		return "", false, nil
	}

	c := &models.Customer{
		CompanyName:        inv.BuyerName,
		RegistrationNumber: inv.BuyerRegistrationNumber,
	}
	if err := s.store.CreateCustomer(ctx, c); err != nil {
		return "", false, err
	}
	ix.Add(*c)
	s.log.Info().
		Str("customer_id", c.ID).
		Str("company_name", c.CompanyName).
		Msg("Customer created from invoice buyer")
	return c.ID, true, nil
}

type upsertFunc func(ctx context.Context, documentID string, customerID *string) error

// relate writes the initial link row of a saved document. An empty
// customerID stores an explicit unresolved row.
func (s *Service) relate(ctx context.Context, report *IngestReport, upsert upsertFunc, documentID, customerID string) {
	var target *string
	if customerID != "" {
		target = &customerID
	}
	if err := upsert(ctx, documentID, target); err != nil {
		report.Failed++
		s.log.Warn().Err(err).Str("document_id", documentID).Msg("Failed to write link row")
		return
	}
	if target != nil {
		report.Linked++
	} else {
		report.Unresolved++
	}
}

func rejectedRows(errs []ingest.RowError) int {
	rows := make(map[int]struct{}, len(errs))
	for _, e := range errs {
		rows[e.Row] = struct{}{}
	}
	return len(rows)
}
