// Command budgetctl administers a budgetly SQLite database.
package main

import (
	"fmt"
	"os"

	"budgetly/internal/cli"
)

func main() {
	cli.LoadEnvFile()
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
