// Package ingest turns exported invoice and bank statement files into typed records.
//
// Exports are semi-structured: a title block of unknown height usually sits
// above the real header row, header titles vary between sources, and dates
// and amounts arrive in mixed locale formats. The parser therefore:
//   - looks for the header row within the first rows of the file, keyed by a
//     distinguishing title ("approval number" for invoices, "transaction date"
//     for deposits);
//   - admits a data row only when its key cell is non-empty and is not the
//     header title repeated;
//   - keeps only deposit lines with a strictly positive deposit amount;
//   - coerces unreadable amounts to zero and unreadable dates to today,
//     flagging the latter on the record.
//
// Supported formats:
//   - Delimited text (.csv, .txt), UTF-8 with optional BOM or EUC-KR
//   - Spreadsheets (.xlsx, .xlsm, .xltx, .xltm), first worksheet only
//
// Records are returned in file order. Deduplication happens at write time in
// the store, not here.
package ingest

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"receivables/internal/logger"
	"receivables/pkg/models"
)

// DefaultHeaderScanRows is how many leading rows are searched for the header.
const DefaultHeaderScanRows = 10

var vatDivisor = decimal.RequireFromString("1.1")

// InvoiceRecord is one admitted invoice row.
type InvoiceRecord struct {
	models.Invoice
	Row          int  // 1-based row in the source
	DateFallback bool // Issue date was unreadable and set to today
}

// DepositRecord is one admitted deposit row.
type DepositRecord struct {
	models.Deposit
	Row          int
	DateFallback bool
}

// Result is the outcome of parsing one file.
type Result struct {
	Kind      models.DocumentKind
	Invoices  []InvoiceRecord
	Deposits  []DepositRecord
	HeaderRow int // 1-based, 0 when no header was found

	Scanned       int        // Rows read after the header
	Discarded     int        // Rows with an empty key cell or a repeated header
	Dropped       int        // Deposit lines without a positive deposit amount
	Rejected      []RowError // Rows that failed validation
	DateFallbacks int
}

// Len returns the number of admitted records.
func (r *Result) Len() int {
	return len(r.Invoices) + len(r.Deposits)
}

// invoiceCheck and depositCheck carry the validation rules applied to
// admitted rows before they leave the parser.
type invoiceCheck struct {
	ApprovalNumber string          `validate:"required"`
	TotalAmount    decimal.Decimal `validate:"gte=0"`
	SupplyAmount   decimal.Decimal `validate:"gte=0"`
	TaxAmount      decimal.Decimal `validate:"gte=0"`
}

type depositCheck struct {
	Amount     decimal.Decimal `validate:"gt=0"`
	Withdrawal decimal.Decimal `validate:"gte=0"`
}

// Parser reads invoice and deposit exports.
type Parser struct {
	scanRows int
	now      func() time.Time
	validate *validator.Validate
	log      zerolog.Logger
}

// Option is a functional option for Parser configuration
type Option func(*Parser)

// WithHeaderScanRows sets how many leading rows are searched for the header.
func WithHeaderScanRows(n int) Option {
	return func(p *Parser) {
		if n > 0 {
			p.scanRows = n
		}
	}
}

// WithClock replaces time.Now as the source of "today" for date fallbacks.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) {
		p.now = now
	}
}

// NewParser creates a parser with the given options.
func NewParser(opts ...Option) *Parser {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	p := &Parser{
		scanRows: DefaultHeaderScanRows,
		now:      time.Now,
		validate: v,
		log:      logger.WithComponent("ingest"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse reads one uploaded file of the declared kind. The format is chosen
// from the file name's extension.
func (p *Parser) Parse(filename string, r io.Reader, kind models.DocumentKind) (*Result, error) {
	const op = "Parse"

	if _, ok := schemaFor(kind); !ok {
		return nil, NewParseError(op, ErrUnknownKind, string(kind))
	}

	format, err := DetectFormat(filename)
	if err != nil {
		return nil, NewParseError(op, err, filename)
	}

	var src rowSource
	switch format {
	case FormatDelimited:
		src, err = newDelimitedSource(r)
	case FormatSpreadsheet:
		src, err = newSpreadsheetSource(r)
	}
	if err != nil {
		return nil, err
	}
	defer src.Close()

	p.log.Info().
		Str("file", filename).
		Str("format", string(format)).
		Str("kind", string(kind)).
		Msg("Parsing file")

	return p.parse(src, kind)
}

// ParseRows parses rows that were already read into memory, such as a
// spreadsheet range fetched over an API.
func (p *Parser) ParseRows(rows [][]string, kind models.DocumentKind) (*Result, error) {
	const op = "ParseRows"

	if _, ok := schemaFor(kind); !ok {
		return nil, NewParseError(op, ErrUnknownKind, string(kind))
	}
	return p.parse(&sliceSource{rows: rows}, kind)
}

func (p *Parser) parse(src rowSource, kind models.DocumentKind) (*Result, error) {
	const op = "parse"

	s, _ := schemaFor(kind)
	result := &Result{Kind: kind}
	today := models.DateOf(p.now())

	var h *header
	rowNum := 0
	for {
		row, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		rowNum++
		if err != nil {
			pe := NewParseError(op, err, "")
			pe.Row = rowNum
			return nil, pe
		}

		if h == nil {
			if rowNum > p.scanRows {
				break
			}
			if h = newHeader(s, row, rowNum); h != nil {
				result.HeaderRow = rowNum
				p.log.Debug().
					Int("row", rowNum).
					Int("columns", len(h.resolved)).
					Msg("Header row found")
			}
			continue
		}

		result.Scanned++
		key := h.value(row, s.key.name)
		if key == "" || isLabel(s.key, key) {
			result.Discarded++
			continue
		}

		switch kind {
		case models.KindInvoice:
			p.admitInvoice(result, h, row, rowNum, today)
		case models.KindDeposit:
			p.admitDeposit(result, h, row, rowNum, today)
		}
	}

	if h == nil {
		p.log.Warn().
			Str("kind", string(kind)).
			Int("scanned_rows", min(rowNum, p.scanRows)).
			Msg("No header row found, file yields no records")
		return result, nil
	}

	p.log.Info().
		Str("kind", string(kind)).
		Int("header_row", result.HeaderRow).
		Int("scanned", result.Scanned).
		Int("admitted", result.Len()).
		Int("discarded", result.Discarded).
		Int("dropped", result.Dropped).
		Int("rejected", len(result.Rejected)).
		Int("date_fallbacks", result.DateFallbacks).
		Msg("File parsed")

	return result, nil
}

func (p *Parser) admitInvoice(result *Result, h *header, row []string, rowNum int, today time.Time) {
	rec := InvoiceRecord{Row: rowNum}
	rec.ApprovalNumber = h.value(row, fieldApprovalNumber)
	rec.BuyerName = h.value(row, fieldBuyerName)
	rec.BuyerRegistrationNumber = h.value(row, fieldBuyerRegistration)
	rec.TotalAmount = ParseAmount(h.value(row, fieldTotalAmount))
	rec.SupplyAmount = ParseAmount(h.value(row, fieldSupplyAmount))
	rec.TaxAmount = ParseAmount(h.value(row, fieldTaxAmount))
	splitVAT(&rec.Invoice)

	raw := h.value(row, fieldIssueDate)
	date, _, err := ParseDate(raw)
	if err != nil {
		p.log.Warn().
			Str("date_str", raw).
			Int("row", rowNum).
			Msg("Invalid issue date, using today")
		date = today
		rec.DateFallback = true
		result.DateFallbacks++
	}
	rec.IssueDate = date

	check := invoiceCheck{
		ApprovalNumber: rec.ApprovalNumber,
		TotalAmount:    rec.TotalAmount,
		SupplyAmount:   rec.SupplyAmount,
		TaxAmount:      rec.TaxAmount,
	}
	if rowErrs := p.check(check, rowNum); len(rowErrs) > 0 {
		result.Rejected = append(result.Rejected, rowErrs...)
		return
	}
	result.Invoices = append(result.Invoices, rec)
}

func (p *Parser) admitDeposit(result *Result, h *header, row []string, rowNum int, today time.Time) {
	rec := DepositRecord{Row: rowNum}
	rec.Amount = ParseAmount(h.value(row, fieldDepositAmount))
	rec.Withdrawal = ParseAmount(h.value(row, fieldWithdrawalAmount))
	if !rec.Amount.IsPositive() {
		result.Dropped++
		return
	}
	rec.PayerName = h.value(row, fieldPayerName)
	rec.Branch = h.value(row, fieldBranch)

	raw := h.value(row, fieldTransactionDate)
	date, clock, err := ParseDate(raw)
	if err != nil {
		p.log.Warn().
			Str("date_str", raw).
			Int("row", rowNum).
			Msg("Invalid transaction date, using today")
		date = today
		rec.DateFallback = true
		result.DateFallbacks++
	}
	rec.Date = date
	rec.Time = ParseClock(h.value(row, fieldTransactionTime))
	if rec.Time == "" {
		rec.Time = clock
	}

	check := depositCheck{Amount: rec.Amount, Withdrawal: rec.Withdrawal}
	if rowErrs := p.check(check, rowNum); len(rowErrs) > 0 {
		result.Rejected = append(result.Rejected, rowErrs...)
		return
	}
	result.Deposits = append(result.Deposits, rec)
}

func (p *Parser) check(v interface{}, rowNum int) []RowError {
	err := p.validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []RowError{{Row: rowNum, Message: err.Error()}}
	}

	rowErrs := make([]RowError, 0, len(verrs))
	for _, fe := range verrs {
		rowErrs = append(rowErrs, RowError{
			Row:     rowNum,
			Field:   fe.Field(),
			Message: fmt.Sprintf("failed '%s' check", fe.Tag()),
			Value:   fmt.Sprintf("%v", fe.Value()),
		})
	}
	p.log.Warn().
		Int("row", rowNum).
		Int("violations", len(rowErrs)).
		Str("first", rowErrs[0].Error()).
		Msg("Row rejected")
	return rowErrs
}

// splitVAT fills in amounts missing from a 10% VAT invoice: supply and tax
// from the total, or the total from supply and tax.
func splitVAT(inv *models.Invoice) {
	switch {
	case inv.SupplyAmount.IsZero() && inv.TaxAmount.IsZero() && inv.TotalAmount.IsPositive():
		inv.SupplyAmount = inv.TotalAmount.Div(vatDivisor).Round(0)
		inv.TaxAmount = inv.TotalAmount.Sub(inv.SupplyAmount)
	case inv.TotalAmount.IsZero() && (!inv.SupplyAmount.IsZero() || !inv.TaxAmount.IsZero()):
		inv.TotalAmount = inv.SupplyAmount.Add(inv.TaxAmount)
	}
}
