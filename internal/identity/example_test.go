package identity_test

import (
	"fmt"

	"receivables/internal/identity"
	"receivables/pkg/models"
)

var roster = []models.Customer{
	{ID: "c1", CompanyName: "Acme", Aliases: []string{"ACME Trading"}},
	{ID: "c2", CompanyName: "Globex"},
}

func ExampleResolve() {
	for _, name := range []string{"  acme trading ", "GLOBEX", "Acme Ltd"} {
		id, ok := identity.Resolve(name, roster)
		if !ok {
			id = "none"
		}
		fmt.Printf("%q -> %s\n", name, id)
	}
	// Output:
	// "  acme trading " -> c1
	// "GLOBEX" -> c2
	// "Acme Ltd" -> none
}

func ExampleSuggest() {
	for _, s := range identity.Suggest("ACME CO LTD", roster, 0) {
		fmt.Printf("%s %s (matched %q, exact %v)\n", s.CustomerID, s.CompanyName, s.MatchedName, s.Exact)
	}
	// Output:
	// c1 Acme (matched "Acme", exact false)
}
