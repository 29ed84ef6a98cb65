package ingest_test

import (
	"fmt"
	"log"
	"strings"

	"receivables/internal/ingest"
	"receivables/pkg/models"
)

// Example parses a bank statement whose header sits below a title line.
// Withdrawal lines are dropped.
func Example() {
	const statement = "Bank statement 2024-01\n" +
		"Transaction Date,Payer Name,Withdrawal,Deposit\n" +
		"2024-01-20 10:15:00,Acme,0,\"700,000\"\n" +
		"2024-01-21,Landlord,\"1,200,000\",0\n"

	result, err := ingest.NewParser().Parse("statement.csv", strings.NewReader(statement), models.KindDeposit)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("header row:", result.HeaderRow)
	for _, d := range result.Deposits {
		fmt.Println(d.Date.Format("2006-01-02"), d.Time, d.PayerName, d.Amount)
	}
	fmt.Println("dropped:", result.Dropped)
	// Output:
	// header row: 2
	// 2024-01-20 10:15:00 Acme 700000
	// dropped: 1
}

func ExampleParseDate() {
	for _, raw := range []string{"2024-01-20", "1/20/2024", "24.01.20", "20240120", "45311", "10/1/24"} {
		d, _, err := ingest.ParseDate(raw)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("%-10s %s\n", raw, d.Format("2006-01-02"))
	}
	// Output:
	// 2024-01-20 2024-01-20
	// 1/20/2024  2024-01-20
	// 24.01.20   2024-01-20
	// 20240120   2024-01-20
	// 45311      2024-01-20
	// 10/1/24    2010-01-24
}
