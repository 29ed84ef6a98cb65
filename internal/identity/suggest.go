package identity

import (
	"strings"

	"receivables/pkg/models"
)

// Suggestion is a candidate customer for a human reviewer.
type Suggestion struct {
	CustomerID  string
	CompanyName string
	MatchedName string // The company name or alias that matched
	Exact       bool   // MatchedName equals the query after normalization
}

// Suggest lists customers whose company name or an alias contains name, or
// is contained in it, ignoring case. Exact matches come first; otherwise
// roster order is kept. A limit of zero or less means no limit.
//
// The result is advisory. Links are only ever made by Resolve or by an
// explicit manual confirmation.
func Suggest(name string, roster []models.Customer, limit int) []Suggestion {
	query := Normalize(name)
	if query == "" {
		return nil
	}

	var exact, partial []Suggestion
	for _, c := range roster {
		best, found := Suggestion{}, false
		for _, candidate := range c.Names() {
			n := Normalize(candidate)
			if n == "" || !(strings.Contains(n, query) || strings.Contains(query, n)) {
				continue
			}
			if !found || n == query {
				best = Suggestion{
					CustomerID:  c.ID,
					CompanyName: c.CompanyName,
					MatchedName: candidate,
					Exact:       n == query,
				}
				found = true
			}
			if best.Exact {
				break
			}
		}
		switch {
		case !found:
		case best.Exact:
			exact = append(exact, best)
		default:
			partial = append(partial, best)
		}
	}

	all := append(exact, partial...)
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all
}
