package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"receivables/internal/aggregate"
	"receivables/internal/logger"
	"receivables/pkg/models"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show the portfolio summary for one month",
	Long: `Show invoice and deposit totals for one month, the customers with the
largest invoice totals, how many customers are settled, unpaid or overpaid,
and the classified (non-customer) deposits of the month.`,
	Example: `  # Current month
  receivables summary

  # January 2024, top 5 customers
  receivables summary --month 2024-01 --top 5`,
	Args: cobra.NoArgs,
	RunE: runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)

	summaryCmd.Flags().String("month", "", "Reporting month (format: YYYY-MM, default: current month)")
	summaryCmd.Flags().Int("top", 0, "Number of top customers (default: TOP_CUSTOMERS)")
	summaryCmd.Flags().Bool("json", false, "Output as JSON format")
}

func runSummary(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("summary")

	month, _ := cmd.Flags().GetString("month")
	top, _ := cmd.Flags().GetInt("top")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	period := aggregate.PeriodOf(time.Now())
	if month != "" {
		p, err := aggregate.ParsePeriod(month)
		if err != nil {
			return err
		}
		period = p
	}
	if top < 0 {
		return fmt.Errorf("--top must not be negative")
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	summary, err := a.svc.Summary(ctx, period, top)
	if err != nil {
		return err
	}

	log.Debug().
		Str("period", period.String()).
		Int("invoices", summary.InvoiceCount).
		Int("deposits", summary.DepositCount).
		Msg("Summary built")

	if jsonOutput {
		data, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to create JSON output: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	banner("RECEIVABLES SUMMARY " + period.String())

	fmt.Println("=== MONTH ===")
	fmt.Printf("Invoices issued:   %d, total %s\n", summary.InvoiceCount, formatAmount(summary.InvoiceTotal))
	fmt.Printf("Deposits received: %d, total %s\n", summary.DepositCount, formatAmount(summary.DepositTotal))
	fmt.Println()

	fmt.Println("=== CUSTOMERS ===")
	fmt.Printf("Settled:  %d\n", summary.Complete)
	fmt.Printf("Unpaid:   %d (outstanding %s)\n", summary.Unpaid, formatAmount(summary.Outstanding))
	fmt.Printf("Overpaid: %d (held %s)\n", summary.Overpaid, formatAmount(summary.Overpayment))
	fmt.Printf("No documents: %d\n", summary.Idle)
	fmt.Println()

	fmt.Printf("=== TOP %d BY INVOICED AMOUNT ===\n", len(summary.TopCustomers))
	for i, s := range summary.TopCustomers {
		fmt.Printf("%d. %s: %s (balance %s)\n", i+1, s.CompanyName, formatAmount(s.InvoiceTotal), formatAmount(s.Balance))
	}
	fmt.Println()

	fmt.Println("=== CLASSIFIED DEPOSITS ===")
	for _, t := range []models.ClassificationType{models.ClassificationInternal, models.ClassificationExternal} {
		total := summary.Classifications[t]
		fmt.Printf("%-9s %d, total %s\n", string(t)+":", total.Count, formatAmount(total.Amount))
	}
	fmt.Println(strRule)
	return nil
}
