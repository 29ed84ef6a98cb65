package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"receivables/pkg/models"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <deposit-id> <internal|external> [detail...]",
	Short: "Mark a deposit as a non-customer movement",
	Long: `Classify a deposit that is not a customer payment.

  internal - money moved by the company's principal or staff
  external - any other non-customer deposit (refunds, interest, ...)

Classified deposits are left out of alias propagation and are totalled
separately in the monthly summary.`,
	Example: `  receivables classify 3d1f... internal owner capital injection
  receivables classify 7c2e... external tax refund`,
	Args: cobra.MinimumNArgs(2),
	RunE: runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)
}

func runClassify(cmd *cobra.Command, args []string) error {
	kind, err := models.ParseClassificationType(args[1])
	if err != nil {
		return err
	}
	detail := strings.Join(args[2:], " ")

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.svc.ClassifyDeposit(context.Background(), args[0], kind, detail); err != nil {
		return err
	}

	fmt.Printf("Deposit %s classified as %s\n", args[0], kind)
	return nil
}
