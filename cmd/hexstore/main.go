package main

import (
	"fmt"
	"os"

	"github.com/roach88/hexstore/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
