// Command cfgir builds, validates and interprets control-flow graph IR.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/cfgir/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()

	// Commands report their own failures as ExitErrors; anything else is a
	// usage error from flag or argument parsing.
	var exitErr *cli.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		fmt.Fprintf(os.Stderr, "Error: %v\nRun 'cfgir --help' for usage.\n", err)
		err = cli.WrapExitError(cli.ExitCommandError, "usage", err)
	}
	os.Exit(cli.GetExitCode(err))
}
