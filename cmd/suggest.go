package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var suggestCmd = &cobra.Command{
	Use:   "suggest [name]",
	Short: "Suggest customers for a payer or buyer name",
	Long: `List customers whose company name or an alias contains the given name, or
is contained in it, ignoring case. Suggestions are advisory; confirm one with
'link'.

With --pending, every deposit that is neither linked nor classified is listed
with its suggestions.`,
	Example: `  receivables suggest "ACME CO LTD"
  receivables suggest --pending`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSuggest,
}

func init() {
	rootCmd.AddCommand(suggestCmd)

	suggestCmd.Flags().Int("limit", 5, "Maximum suggestions per name")
	suggestCmd.Flags().Bool("pending", false, "Suggest for every unmatched deposit")
}

func runSuggest(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	pending, _ := cmd.Flags().GetBool("pending")

	if !pending && len(args) == 0 {
		return fmt.Errorf("a name or --pending is required")
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()

	if !pending {
		return printSuggestions(ctx, a, args[0], limit, "")
	}

	deposits, err := a.svc.UnmatchedDeposits(ctx)
	if err != nil {
		return err
	}
	banner("UNMATCHED DEPOSITS")
	for _, d := range deposits {
		fmt.Printf("%s  %s %s  %s  %s\n", d.ID, d.Date.Format("2006-01-02"), d.Time, formatAmount(d.Amount), d.PayerName)
		if err := printSuggestions(ctx, a, d.PayerName, limit, "    "); err != nil {
			return err
		}
	}
	fmt.Printf("%d unmatched deposits\n", len(deposits))
	return nil
}

func printSuggestions(ctx context.Context, a *app, name string, limit int, indent string) error {
	suggestions, err := a.svc.Suggest(ctx, name, limit)
	if err != nil {
		return err
	}
	if len(suggestions) == 0 {
		fmt.Printf("%sno suggestions\n", indent)
		return nil
	}
	for _, s := range suggestions {
		marker := " "
		if s.Exact {
			marker = "="
		}
		fmt.Printf("%s%s %s  %s (matched %q)\n", indent, marker, s.CustomerID, s.CompanyName, s.MatchedName)
	}
	return nil
}
