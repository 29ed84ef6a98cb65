// Package identity maps free-text payer and buyer names onto customers.
//
// Resolution is strict: a name matches when, after trimming and Unicode case
// folding, it equals a customer's company name or one of its aliases.
// Company names are consulted for the whole roster before any alias, and
// within each pass the first customer in roster order wins.
//
// Substring matching lives in Suggest and is advisory only; it never decides
// a link on its own.
package identity

import (
	"strings"

	"golang.org/x/text/cases"

	"receivables/pkg/models"
)

// Normalize returns the comparison form of a name.
func Normalize(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ""
	}
	// A Caser keeps state, so each call gets its own.
	return cases.Fold().String(trimmed)
}

// Resolve returns the id of the customer that name refers to.
func Resolve(name string, roster []models.Customer) (string, bool) {
	key := Normalize(name)
	if key == "" {
		return "", false
	}
	for i := range roster {
		if Normalize(roster[i].CompanyName) == key {
			return roster[i].ID, true
		}
	}
	for i := range roster {
		for _, alias := range roster[i].Aliases {
			if Normalize(alias) == key {
				return roster[i].ID, true
			}
		}
	}
	return "", false
}

// Index answers the same question as Resolve for a fixed roster without
// rescanning it, for resolving every row of an ingested file.
type Index struct {
	byCompany map[string]string
	byAlias   map[string]string
}

// NewIndex builds an index over roster. Later duplicates never shadow
// earlier customers.
func NewIndex(roster []models.Customer) *Index {
	ix := &Index{
		byCompany: make(map[string]string, len(roster)),
		byAlias:   make(map[string]string),
	}
	for _, c := range roster {
		ix.addCompany(c)
	}
	for _, c := range roster {
		ix.addAliases(c)
	}
	return ix
}

// Resolve returns the id of the customer that name refers to.
func (ix *Index) Resolve(name string) (string, bool) {
	key := Normalize(name)
	if key == "" {
		return "", false
	}
	if id, ok := ix.byCompany[key]; ok {
		return id, true
	}
	id, ok := ix.byAlias[key]
	return id, ok
}

// Add registers a customer created after the index was built. It only
// fills names nobody else holds yet.
func (ix *Index) Add(c models.Customer) {
	ix.addCompany(c)
	ix.addAliases(c)
}

func (ix *Index) addCompany(c models.Customer) {
	if key := Normalize(c.CompanyName); key != "" {
		if _, taken := ix.byCompany[key]; !taken {
			ix.byCompany[key] = c.ID
		}
	}
}

func (ix *Index) addAliases(c models.Customer) {
	for _, alias := range c.Aliases {
		if key := Normalize(alias); key != "" {
			if _, taken := ix.byAlias[key]; !taken {
				ix.byAlias[key] = c.ID
			}
		}
	}
}
