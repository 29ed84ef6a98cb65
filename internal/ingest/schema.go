package ingest

import (
	"strings"

	"receivables/pkg/models"
)

// column names one header title and which occurrence of it to use. Exports
// that describe both parties repeat titles such as "company name"; the
// second occurrence belongs to the counter-party.
type column struct {
	label string
	nth   int
}

// field lists the header titles a value may appear under, in preference order.
type field struct {
	name       string
	candidates []column
}

func first(labels ...string) []column { return occurrence(1, labels) }
func second(labels ...string) []column { return occurrence(2, labels) }

func occurrence(nth int, labels []string) []column {
	cols := make([]column, len(labels))
	for i, l := range labels {
		cols[i] = column{label: normalizeLabel(l), nth: nth}
	}
	return cols
}

func candidates(groups ...[]column) []column {
	var all []column
	for _, g := range groups {
		all = append(all, g...)
	}
	return all
}

// schema is the set of fields one document kind is read with. key is the
// discriminator used both to find the header row and to admit data rows.
type schema struct {
	key    field
	fields []field
}

const (
	fieldApprovalNumber    = "approval_number"
	fieldIssueDate         = "issue_date"
	fieldBuyerName         = "buyer_name"
	fieldBuyerRegistration = "buyer_registration_number"
	fieldTotalAmount       = "total_amount"
	fieldSupplyAmount      = "supply_amount"
	fieldTaxAmount         = "tax_amount"
	fieldTransactionDate   = "transaction_date"
	fieldTransactionTime   = "transaction_time"
	fieldPayerName         = "payer_name"
	fieldDepositAmount     = "deposit_amount"
	fieldWithdrawalAmount  = "withdrawal_amount"
	fieldBranch            = "branch"
)

var invoiceSchema = schema{
	key: field{fieldApprovalNumber, first("approval number", "승인번호")},
	fields: []field{
		{fieldIssueDate, first("issue date", "작성일자", "발급일자")},
		{fieldBuyerName, candidates(
			first("buyer name", "buyer company name"),
			second("company name", "상호"),
		)},
		{fieldBuyerRegistration, candidates(
			first("buyer registration number"),
			second("registration number", "사업자등록번호", "등록번호"),
		)},
		{fieldTotalAmount, first("total amount", "합계금액")},
		{fieldSupplyAmount, first("supply amount", "공급가액")},
		{fieldTaxAmount, first("tax amount", "세액")},
	},
}

var depositSchema = schema{
	key: field{fieldTransactionDate, first("transaction date", "거래일자", "거래일시")},
	fields: []field{
		{fieldTransactionTime, first("transaction time", "거래시간")},
		{fieldPayerName, first("payer name", "payer", "depositor", "입금자명", "입금자", "적요")},
		{fieldDepositAmount, first("deposit", "deposit amount", "입금액", "입금")},
		{fieldWithdrawalAmount, first("withdrawal", "withdrawal amount", "출금액", "출금")},
		{fieldBranch, first("branch", "거래점", "취급점")},
	},
}

func schemaFor(kind models.DocumentKind) (schema, bool) {
	switch kind {
	case models.KindInvoice:
		return invoiceSchema, true
	case models.KindDeposit:
		return depositSchema, true
	}
	return schema{}, false
}

// normalizeLabel folds case and collapses whitespace so "Approval  Number"
// and "approval number" are the same title.
func normalizeLabel(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// header records where every title sits in the discovered header row.
type header struct {
	row       int
	positions map[string][]int
	resolved  map[string]int
}

// newHeader indexes row as a header for s, or returns nil when the row does
// not carry the schema's key title.
func newHeader(s schema, row []string, rowNum int) *header {
	h := &header{
		row:       rowNum,
		positions: make(map[string][]int),
		resolved:  make(map[string]int),
	}
	for i, cell := range row {
		label := normalizeLabel(cell)
		if label != "" {
			h.positions[label] = append(h.positions[label], i)
		}
	}

	key, ok := h.locate(s.key)
	if !ok {
		return nil
	}
	h.resolved[s.key.name] = key
	for _, f := range s.fields {
		if i, ok := h.locate(f); ok {
			h.resolved[f.name] = i
		}
	}
	return h
}

func (h *header) locate(f field) (int, bool) {
	for _, c := range f.candidates {
		if pos := h.positions[c.label]; len(pos) >= c.nth {
			return pos[c.nth-1], true
		}
	}
	return 0, false
}

// value returns the trimmed cell for the named field, "" when the header
// lacks that column or the row is short.
func (h *header) value(row []string, name string) string {
	i, ok := h.resolved[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// isLabel reports whether v is one of f's header titles, which happens when
// an export repeats its header further down the sheet.
func isLabel(f field, v string) bool {
	n := normalizeLabel(v)
	for _, c := range f.candidates {
		if c.label == n {
			return true
		}
	}
	return false
}
