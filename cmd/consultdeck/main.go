// Command consultdeck is the entry point for the ConsultDeck presentation
// assistant. It provides a CLI interface (via Cobra) and an HTTP server that
// presentation clients talk to during live sessions.
package main

import (
	"fmt"
	"os"

	"github.com/consultdeck/consultdeck/cmd/consultdeck/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
