package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"receivables/internal/settlement"
)

var balancesCmd = &cobra.Command{
	Use:   "balances [customer-id]",
	Short: "Show each customer's balance and overdue days",
	Long: `Settle every customer's deposits against their invoices, oldest invoice
first, and print the resulting balance.

A negative balance means the customer owes money; the oldest invoice not
fully covered by deposits and its age in days are shown. A positive balance
means the customer has overpaid.`,
	Example: `  # All customers
  receivables balances

  # Only customers who owe money, as JSON
  receivables balances --unpaid --json

  # One customer
  receivables balances 5f0c...`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBalances,
}

func init() {
	rootCmd.AddCommand(balancesCmd)

	balancesCmd.Flags().Bool("unpaid", false, "Only show customers with an unpaid balance")
	balancesCmd.Flags().Bool("all", false, "Include customers without any documents")
	balancesCmd.Flags().Bool("json", false, "Output as JSON format")
}

func runBalances(cmd *cobra.Command, args []string) error {
	unpaidOnly, _ := cmd.Flags().GetBool("unpaid")
	showAll, _ := cmd.Flags().GetBool("all")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()

	var sheets []settlement.Sheet
	if len(args) == 1 {
		sheet, err := a.svc.CustomerBalance(ctx, args[0])
		if err != nil {
			return err
		}
		sheets = []settlement.Sheet{sheet}
		showAll = true
	} else {
		if sheets, err = a.svc.Balances(ctx); err != nil {
			return err
		}
	}

	var shown []settlement.Sheet
	for _, s := range sheets {
		if unpaidOnly && s.Status != settlement.StatusUnpaid {
			continue
		}
		if !showAll && !s.HasActivity() {
			continue
		}
		shown = append(shown, s)
	}

	if jsonOutput {
		data, err := json.MarshalIndent(shown, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to create JSON output: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	banner("CUSTOMER BALANCES")
	if len(shown) == 0 {
		fmt.Println("No customers to show.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "Customer\tInvoiced\tDeposited\tBalance\tStatus\tOldest unpaid\tDays\t")
	for _, s := range shown {
		oldest, days := "-", "-"
		if s.OldestUnpaidDate != nil {
			oldest = s.OldestUnpaidDate.Format("2006-01-02")
			days = fmt.Sprintf("%d", s.OverdueDays)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			s.CompanyName,
			formatAmount(s.InvoiceTotal),
			formatAmount(s.DepositTotal),
			formatAmount(s.Balance),
			s.Status,
			oldest,
			days,
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Println(strRule)
	return nil
}
