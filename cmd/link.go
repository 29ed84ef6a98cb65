package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"receivables/internal/reconcile"
	"receivables/pkg/models"
)

var linkCmd = &cobra.Command{
	Use:   "link <invoice|deposit> <document-id> <customer-id>",
	Short: "Link an invoice or deposit to a customer",
	Long: `Link a document to a customer by hand.

Linking a deposit also records its payer name as an alias of the customer,
and links every other deposit with exactly the same payer name that is not
yet linked or classified. The number of deposits linked this way is
reported, as is any deposit that could not be linked.`,
	Example: `  receivables link deposit 3d1f... 5f0c...
  receivables link invoice 9ab2... 5f0c...`,
	Args: cobra.ExactArgs(3),
	RunE: runLink,
}

var unlinkCmd = &cobra.Command{
	Use:   "unlink <invoice|deposit> <document-id>",
	Short: "Mark a document as not belonging to any customer",
	Long: `Mark a document as explicitly unlinked. The document stays stored and
is left out of every customer's balance. Aliases are not removed.`,
	Args: cobra.ExactArgs(2),
	RunE: runUnlink,
}

func init() {
	rootCmd.AddCommand(linkCmd)
	rootCmd.AddCommand(unlinkCmd)
}

func runLink(cmd *cobra.Command, args []string) error {
	kind, err := models.ParseDocumentKind(args[0])
	if err != nil {
		return err
	}
	documentID, customerID := args[1], args[2]

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()

	if kind == models.KindInvoice {
		if err := a.svc.LinkInvoice(ctx, documentID, customerID); err != nil {
			return err
		}
		fmt.Printf("Invoice %s linked to customer %s\n", documentID, customerID)
		return nil
	}

	report, err := a.svc.LinkDepositAndPropagate(ctx, documentID, customerID)
	if err != nil && !errors.Is(err, reconcile.ErrPartialLink) {
		return err
	}

	fmt.Printf("Deposit %s linked to customer %s\n", report.DepositID, report.CustomerID)
	if report.AliasAdded {
		fmt.Printf("Alias added: %q\n", report.PayerName)
	}
	fmt.Printf("Other deposits from %q linked: %d\n", report.PayerName, report.Propagated)
	if report.Failed > 0 {
		fmt.Printf("WARNING: %d deposits from %q could not be linked, run the command again\n", report.Failed, report.PayerName)
		return err
	}
	return nil
}

func runUnlink(cmd *cobra.Command, args []string) error {
	kind, err := models.ParseDocumentKind(args[0])
	if err != nil {
		return err
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	if kind == models.KindInvoice {
		err = a.svc.UnlinkInvoice(ctx, args[1])
	} else {
		err = a.svc.UnlinkDeposit(ctx, args[1])
	}
	if err != nil {
		return err
	}

	fmt.Printf("%s %s unlinked\n", kind, args[1])
	return nil
}
