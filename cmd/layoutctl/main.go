package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/layoutkit/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err == nil {
		return
	}

	// Command failures are reported by the command itself in the selected
	// format. Anything else (flag parsing, unknown commands) is not.
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(cli.GetExitCode(err))
}
