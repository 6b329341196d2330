package main

import (
	"fmt"
	"os"

	"github.com/fathom/ledgerdesk/internal/ui"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", ui.Fail("Error:"), err)
		os.Exit(1)
	}
}
