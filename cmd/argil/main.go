package main

import (
	"os"

	"github.com/argil-ai/argil-go/cli"
)

func main() {
	cmd := cli.RootCmd()
	if err := cmd.Execute(); err != nil {
		// Errors are already printed by the command.
		os.Exit(1)
	}
}
