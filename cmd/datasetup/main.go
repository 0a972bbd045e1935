package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"datasetup/internal/provision"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(exitCode(err, os.Stderr))
	}
}

// exitCode maps a command error to the process exit status, printing it when
// the user has not already seen an explanation.
func exitCode(err error, stderr io.Writer) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, provision.ErrDataUnavailable):
		return provision.ExitDataUnavailable
	case errors.Is(err, context.Canceled):
		return 1
	default:
		fmt.Fprintln(stderr, err)
		return 1
	}
}
