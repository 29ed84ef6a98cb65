package models

import "time"

// DateOf drops the clock from t, keeping its calendar date in t's own
// location. Document dates are always compared as UTC-midnight values.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
