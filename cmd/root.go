package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"receivables/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "receivables",
	Short: "Receivables CLI - reconcile tax invoices with bank deposits",
	Long: `Receivables CLI tracks what each customer owes.

It ingests tax invoice and bank statement exports (CSV or XLSX, or a Google
Sheets range), links every document to a customer by company name or alias,
and settles each customer's deposits against their invoices oldest first to
report balance, oldest unpaid invoice and days overdue.

Data is kept in a local sqlite database (DATABASE_PATH, or --db).`,
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.WithComponent("root")
		log.Info().
			Str("version", version).
			Msg("Receivables CLI executed")

		fmt.Println("Welcome to Receivables CLI!")
		fmt.Println("Use --help to see available commands and options.")
	},
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print version information")
	rootCmd.PersistentFlags().String("db", "", "Database file (default: DATABASE_PATH or receivables.db)")
}
