package models

import (
	"slices"
	"strings"
	"time"
)

// Customer is the canonical identity documents are attributed to.
type Customer struct {
	ID                 string
	CompanyName        string   // Primary display name
	Aliases            []string // Additional payer/buyer names that resolve to this customer
	RegistrationNumber string   // Business registration number (optional)
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// HasAlias reports whether alias is already one of the customer's aliases.
// Comparison is exact; normalization is the resolver's concern.
func (c *Customer) HasAlias(alias string) bool {
	return slices.Contains(c.Aliases, alias)
}

// Names returns the company name followed by the aliases, skipping blanks.
func (c *Customer) Names() []string {
	names := make([]string, 0, len(c.Aliases)+1)
	if strings.TrimSpace(c.CompanyName) != "" {
		names = append(names, c.CompanyName)
	}
	for _, a := range c.Aliases {
		if strings.TrimSpace(a) != "" {
			names = append(names, a)
		}
	}
	return names
}
