package ingest

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
)

// Format is the container format of an uploaded file, derived from its extension.
type Format string

const (
	FormatDelimited   Format = "delimited"
	FormatSpreadsheet Format = "spreadsheet"
)

// DetectFormat maps a file name to the reader that understands it.
func DetectFormat(filename string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt":
		return FormatDelimited, nil
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		return FormatSpreadsheet, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(filename))
}

// rowSource yields raw rows one at a time; Next returns io.EOF after the last row.
type rowSource interface {
	Next() ([]string, error)
	Close() error
}

// delimitedSource streams comma-separated rows, stripping a UTF-8 BOM and
// decoding EUC-KR when the content is not valid UTF-8.
type delimitedSource struct {
	reader *csv.Reader
}

func newDelimitedSource(r io.Reader) (*delimitedSource, error) {
	const op = "newDelimitedSource"
	const sniffSize = 4096

	buf := bufio.NewReaderSize(r, sniffSize)

	bom, err := buf.Peek(3)
	if err != nil && err != io.EOF {
		return nil, NewParseError(op, fmt.Errorf("%w: %v", ErrParseFailure, err), "failed to read file")
	}
	if len(bom) == 3 && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		_, _ = buf.Discard(3)
	}

	head, err := buf.Peek(sniffSize)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, NewParseError(op, fmt.Errorf("%w: %v", ErrParseFailure, err), "failed to read file")
	}

	var content io.Reader = buf
	if !validUTF8Prefix(head, len(head) < sniffSize) {
		content = transform.NewReader(buf, korean.EUCKR.NewDecoder())
	}

	reader := csv.NewReader(content)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1 // Exports mix title lines with tabular rows

	return &delimitedSource{reader: reader}, nil
}

func (s *delimitedSource) Next() ([]string, error) {
	record, err := s.reader.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseFailure, err)
	}
	for i, field := range record {
		if !utf8.ValidString(field) {
			return nil, fmt.Errorf("%w: %w: field %d is not valid text", ErrParseFailure, ErrInvalidEncoding, i+1)
		}
	}
	return record, nil
}

func (s *delimitedSource) Close() error { return nil }

// validUTF8Prefix checks b for valid UTF-8, ignoring a rune cut off at the
// end of the window unless the window is the whole file.
func validUTF8Prefix(b []byte, complete bool) bool {
	if !complete {
		for i := 0; i < utf8.UTFMax-1 && len(b) > 0; i++ {
			if r, size := utf8.DecodeLastRune(b); r != utf8.RuneError || size != 1 {
				break
			}
			b = b[:len(b)-1]
		}
	}
	return utf8.Valid(b)
}

// spreadsheetSource streams rows of the first worksheet. Cell values are read
// raw so that dates arrive as serial numbers rather than display strings.
type spreadsheetSource struct {
	file *excelize.File
	rows *excelize.Rows
}

func newSpreadsheetSource(r io.Reader) (*spreadsheetSource, error) {
	const op = "newSpreadsheetSource"

	file, err := excelize.OpenReader(r)
	if err != nil {
		return nil, NewParseError(op, fmt.Errorf("%w: %v", ErrParseFailure, err), "failed to open spreadsheet")
	}

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		_ = file.Close()
		return nil, NewParseError(op, ErrParseFailure, "spreadsheet has no worksheets")
	}

	rows, err := file.Rows(sheets[0])
	if err != nil {
		_ = file.Close()
		return nil, NewParseError(op, fmt.Errorf("%w: %v", ErrParseFailure, err), "failed to read worksheet "+sheets[0])
	}

	return &spreadsheetSource{file: file, rows: rows}, nil
}

func (s *spreadsheetSource) Next() ([]string, error) {
	if !s.rows.Next() {
		if err := s.rows.Error(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrParseFailure, err)
		}
		return nil, io.EOF
	}
	cols, err := s.rows.Columns(excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseFailure, err)
	}
	return cols, nil
}

func (s *spreadsheetSource) Close() error {
	if err := s.rows.Close(); err != nil {
		_ = s.file.Close()
		return err
	}
	return s.file.Close()
}

// sliceSource replays rows that were already tabulated elsewhere.
type sliceSource struct {
	rows [][]string
	next int
}

func (s *sliceSource) Next() ([]string, error) {
	if s.next >= len(s.rows) {
		return nil, io.EOF
	}
	row := s.rows[s.next]
	s.next++
	return row, nil
}

func (s *sliceSource) Close() error { return nil }
