package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"receivables/internal/logger"
	"receivables/internal/reconcile"
	"receivables/internal/sheets"
	"receivables/pkg/models"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Import a tax invoice or bank deposit export",
	Long: `Import an invoice or deposit export and link its documents to customers.

Accepted files: .csv and .txt (UTF-8 or EUC-KR), .xlsx and .xlsm (first
worksheet). The header row is searched for among the first rows of the file.
Records already stored are skipped, so a file can safely be imported twice.

Instead of a file, a Google Sheets range can be read with --range. The sheet
comes from --sheet-url or GOOGLE_SHEET_URL and needs
GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS.`,
	Example: `  # Import issued tax invoices
  receivables ingest invoices.xlsx --kind invoice

  # Import a bank statement
  receivables ingest statement.csv --kind deposit

  # Import deposits from a Google Sheet
  receivables ingest --kind deposit --range 'Bank!A1:F'`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().String("kind", "", "Document kind (invoice or deposit) [REQUIRED]")
	ingestCmd.Flags().String("range", "", "Google Sheets range to read instead of a file (e.g. 'Bank!A1:F')")
	ingestCmd.Flags().String("sheet-url", "", "Google Sheets URL (default: GOOGLE_SHEET_URL)")
	ingestCmd.Flags().Bool("json", false, "Output report as JSON")
	_ = ingestCmd.MarkFlagRequired("kind")
}

func runIngest(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("ingest")

	kindStr, _ := cmd.Flags().GetString("kind")
	rangeSpec, _ := cmd.Flags().GetString("range")
	sheetURL, _ := cmd.Flags().GetString("sheet-url")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	kind, err := models.ParseDocumentKind(kindStr)
	if err != nil {
		return err
	}
	if len(args) == 0 && rangeSpec == "" {
		return fmt.Errorf("either a file or --range is required")
	}
	if len(args) == 1 && rangeSpec != "" {
		return fmt.Errorf("a file and --range cannot be used together")
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	var report *reconcile.IngestReport

	if rangeSpec != "" {
		if sheetURL == "" {
			sheetURL = a.cfg.GoogleSheetURL
		}
		if sheetURL == "" {
			return fmt.Errorf("--sheet-url or GOOGLE_SHEET_URL is required with --range")
		}

		sheetsService, err := sheets.NewSheetsService(ctx, sheetURL)
		if err != nil {
			return fmt.Errorf("failed to initialize Google Sheets service: %w", err)
		}
		rows, err := sheetsService.ReadRange(ctx, rangeSpec)
		if err != nil {
			return err
		}

		log.Info().
			Str("range", rangeSpec).
			Int("rows", len(rows)).
			Str("kind", string(kind)).
			Msg("Importing sheet range")

		report, err = a.svc.IngestRows(ctx, rangeSpec, rows, kind)
		if err != nil {
			return err
		}
	} else {
		path := args[0]
		file, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open file: %w", err)
		}
		defer file.Close()

		fileLog := logger.WithFile("ingest", path)
		fileLog.Info().
			Str("kind", string(kind)).
			Msg("Importing file")

		report, err = a.svc.Ingest(ctx, filepath.Base(path), file, kind)
		if err != nil {
			return err
		}
	}

	if jsonOutput {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to create JSON output: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	printIngestReport(report)
	return nil
}

func printIngestReport(r *reconcile.IngestReport) {
	banner("IMPORT REPORT")
	fmt.Printf("Source:          %s (%s)\n", r.Source, r.Kind)
	if r.HeaderRow == 0 {
		fmt.Println("Header row:      not found, nothing imported")
	} else {
		fmt.Printf("Header row:      %d\n", r.HeaderRow)
	}
	fmt.Printf("Records:         %d\n", r.Total)
	fmt.Printf("Saved:           %d\n", r.Saved)
	fmt.Printf("Skipped (dup):   %d\n", r.Skipped)
	fmt.Printf("Rejected:        %d\n", r.Rejected)
	fmt.Printf("Failed:          %d\n", r.Failed)
	fmt.Printf("Linked:          %d\n", r.Linked)
	fmt.Printf("Unresolved:      %d\n", r.Unresolved)
	if r.Created > 0 {
		fmt.Printf("New customers:   %d\n", r.Created)
	}
	if r.CreateFailed > 0 {
		fmt.Printf("Customer creation failed: %d (left unresolved)\n", r.CreateFailed)
	}
	if r.DateFallbacks > 0 {
		fmt.Printf("Dates unreadable, set to today: %d\n", r.DateFallbacks)
	}
	if len(r.RowErrors) > 0 {
		fmt.Println()
		fmt.Println("=== REJECTED ROWS ===")
		for _, e := range r.RowErrors {
			fmt.Printf("  %s\n", e.Error())
		}
	}
	fmt.Println(strRule)
}
