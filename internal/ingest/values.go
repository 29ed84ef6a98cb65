package ingest

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

var errUnparseableDate = errors.New("unparseable date")

// ParseAmount strips thousands separators and whitespace and parses the rest
// as a decimal. Anything that is still not a number yields zero.
func ParseAmount(raw string) decimal.Decimal {
	cleaned := strings.Join(strings.Fields(strings.ReplaceAll(raw, ",", "")), "")
	if cleaned == "" {
		return decimal.Zero
	}
	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return amount
}

// ParseDate reads a document date. It accepts a spreadsheet serial number,
// a compact YYYYMMDD string, or three components delimited by '-', '/' or '.'
// optionally followed by a time of day.
//
// Delimited text is read as Y-M-D unless the first component has at most two
// digits and the last one is greater than 31, in which case it is M/D/Y.
// Two-digit years get a "20" prefix. The returned date is UTC midnight; clock
// is "HH:MM:SS" when the input carried a time of day, otherwise empty.
func ParseDate(raw string) (date time.Time, clock string, err error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, "", errUnparseableDate
	}

	if isDecimalNumber(s) {
		if len(s) == 8 && !strings.Contains(s, ".") {
			if d, err := time.Parse("20060102", s); err == nil {
				return d, "", nil
			}
		}
		serial, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return time.Time{}, "", errUnparseableDate
		}
		return fromSerial(serial)
	}

	datePart, clockPart := s, ""
	if i := strings.IndexAny(s, " T"); i > 0 {
		datePart, clockPart = s[:i], strings.TrimSpace(s[i+1:])
	}

	parts := strings.FieldsFunc(datePart, func(r rune) bool {
		return r == '-' || r == '/' || r == '.'
	})
	if len(parts) != 3 {
		return time.Time{}, "", fmt.Errorf("%w: %q", errUnparseableDate, raw)
	}

	y, m, d := parts[0], parts[1], parts[2]
	if last, err := strconv.Atoi(parts[2]); err == nil && len(parts[0]) <= 2 && last > 31 {
		m, d, y = parts[0], parts[1], parts[2]
	}
	if len(y) == 2 {
		y = "20" + y
	}

	year, errY := strconv.Atoi(y)
	month, errM := strconv.Atoi(m)
	day, errD := strconv.Atoi(d)
	if errY != nil || errM != nil || errD != nil || len(y) != 4 {
		return time.Time{}, "", fmt.Errorf("%w: %q", errUnparseableDate, raw)
	}
	if month < 1 || month > 12 || day < 1 || day > daysIn(year, time.Month(month)) {
		return time.Time{}, "", fmt.Errorf("%w: %q", errUnparseableDate, raw)
	}

	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), ParseClock(clockPart), nil
}

// ParseClock normalizes a time of day to HH:MM:SS. A bare spreadsheet
// fraction of a day (0 <= x < 1) is accepted as well. Unreadable input yields "".
func ParseClock(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if isDecimalNumber(s) {
		frac, err := strconv.ParseFloat(s, 64)
		if err != nil || frac < 0 || frac >= 1 {
			return ""
		}
		return clockFromSeconds(int(math.Round(frac * 86400)))
	}
	for _, layout := range []string{"15:04:05", "15:04", "3:04:05 PM", "3:04 PM"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("15:04:05")
		}
	}
	return ""
}

func fromSerial(serial float64) (time.Time, string, error) {
	if serial < 1 {
		return time.Time{}, "", fmt.Errorf("%w: serial %v", errUnparseableDate, serial)
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("%w: %v", errUnparseableDate, err)
	}
	clock := ""
	if secs := t.Hour()*3600 + t.Minute()*60 + t.Second(); secs > 0 {
		clock = clockFromSeconds(secs)
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), clock, nil
}

func clockFromSeconds(secs int) string {
	if secs >= 86400 {
		secs = 86399
	}
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, secs%3600/60, secs%60)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// isDecimalNumber reports whether s is digits with at most one '.'.
func isDecimalNumber(s string) bool {
	dot := false
	digits := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '.' && !dot:
			dot = true
		default:
			return false
		}
	}
	return digits > 0
}
