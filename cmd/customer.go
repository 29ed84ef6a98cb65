package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var customerCmd = &cobra.Command{
	Use:   "customer",
	Short: "Manage customers and their aliases",
	Long: `Manage the customer roster.

Documents are linked to a customer when their buyer or payer name equals the
customer's company name or one of its aliases, ignoring case and surrounding
spaces.`,
}

var customerAddCmd = &cobra.Command{
	Use:     "add <company-name>",
	Short:   "Add a customer",
	Example: `  receivables customer add "Acme Ltd" --reg-no 222-22-22222 --alias "ACME TRADING" --alias "(주)에이크미"`,
	Args:    cobra.ExactArgs(1),
	RunE:    runCustomerAdd,
}

var customerAliasCmd = &cobra.Command{
	Use:   "alias <customer-id> <alias>",
	Short: "Add an alias to a customer",
	Long: `Add an alias to a customer. Documents stored earlier are not re-linked;
use 'link' for those.`,
	Args: cobra.ExactArgs(2),
	RunE: runCustomerAlias,
}

var customerUnaliasCmd = &cobra.Command{
	Use:   "unalias <customer-id> <alias>",
	Short: "Remove an alias from a customer",
	Args:  cobra.ExactArgs(2),
	RunE:  runCustomerUnalias,
}

var customerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List customers",
	Args:  cobra.NoArgs,
	RunE:  runCustomerList,
}

func init() {
	rootCmd.AddCommand(customerCmd)
	customerCmd.AddCommand(customerAddCmd, customerAliasCmd, customerUnaliasCmd, customerListCmd)

	customerAddCmd.Flags().String("reg-no", "", "Business registration number")
	customerAddCmd.Flags().StringArray("alias", nil, "Alias name (repeatable)")
}

func runCustomerAdd(cmd *cobra.Command, args []string) error {
	regNo, _ := cmd.Flags().GetString("reg-no")
	aliases, _ := cmd.Flags().GetStringArray("alias")

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	c, err := a.svc.CreateCustomer(context.Background(), args[0], regNo, aliases...)
	if err != nil {
		return err
	}

	fmt.Printf("Customer created: %s (%s)\n", c.CompanyName, c.ID)
	if len(c.Aliases) > 0 {
		fmt.Printf("Aliases: %s\n", strings.Join(c.Aliases, ", "))
	}
	return nil
}

func runCustomerAlias(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	added, err := a.svc.AddAlias(context.Background(), args[0], args[1])
	if err != nil {
		return err
	}
	if !added {
		fmt.Printf("Alias %q already present\n", args[1])
		return nil
	}
	fmt.Printf("Alias %q added\n", args[1])
	return nil
}

func runCustomerUnalias(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	removed, err := a.svc.RemoveAlias(context.Background(), args[0], args[1])
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("customer %s has no alias %q", args[0], args[1])
	}
	fmt.Printf("Alias %q removed\n", args[1])
	return nil
}

func runCustomerList(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	roster, err := a.svc.Customers(context.Background())
	if err != nil {
		return err
	}

	banner("CUSTOMERS")
	for _, c := range roster {
		fmt.Printf("%s  %s", c.ID, c.CompanyName)
		if c.RegistrationNumber != "" {
			fmt.Printf(" [%s]", c.RegistrationNumber)
		}
		fmt.Println()
		if len(c.Aliases) > 0 {
			fmt.Printf("    aliases: %s\n", strings.Join(c.Aliases, ", "))
		}
	}
	fmt.Printf("%d customers\n", len(roster))
	return nil
}
