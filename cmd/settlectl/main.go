// Command settlectl runs settlement maintenance tasks against the configured
// database: rate synchronization, balance reports and ledger listings.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// A missing .env is normal outside development
	_ = godotenv.Load()

	if err := newRootCmd(openServices, os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
