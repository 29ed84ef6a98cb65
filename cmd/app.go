package cmd

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"receivables/internal/config"
	"receivables/internal/ingest"
	"receivables/internal/logger"
	"receivables/internal/reconcile"
	"receivables/internal/settlement"
	"receivables/internal/store"
)

// app holds what every data command needs.
type app struct {
	cfg   *config.Config
	store *store.GormStore
	svc   *reconcile.Service
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	dbPath, _ := cmd.Flags().GetString("db")
	if dbPath == "" {
		dbPath = cfg.DatabasePath
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	log := logger.WithComponent("cmd")
	log.Debug().
		Str("database", dbPath).
		Int("workers", cfg.SettlementWorkers).
		Bool("auto_create_customers", cfg.AutoCreateCustomers).
		Msg("Database opened")

	parser := ingest.NewParser(ingest.WithHeaderScanRows(cfg.HeaderScanRows))
	engine := settlement.NewEngine(settlement.WithWorkers(cfg.SettlementWorkers))
	svc := reconcile.NewService(st, parser, engine,
		reconcile.WithAutoCreateCustomers(cfg.AutoCreateCustomers),
		reconcile.WithTopN(cfg.TopCustomers),
	)

	return &app{cfg: cfg, store: st, svc: svc}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		logger.Error(err, "Failed to close database")
	}
}

var printer = message.NewPrinter(language.English)

// formatAmount renders an amount with thousands separators for display.
func formatAmount(d decimal.Decimal) string {
	return printer.Sprint(number.Decimal(d.InexactFloat64(), number.MaxFractionDigits(2)))
}

var strRule = strings.Repeat("=", 80)

func banner(title string) {
	fmt.Println(strRule)
	fmt.Printf("%*s\n", 40+len(title)/2, title)
	fmt.Println(strRule)
}
