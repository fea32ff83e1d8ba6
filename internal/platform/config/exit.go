package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
)

var (
	exit             = os.Exit
	stderr io.Writer = os.Stderr
)

// Exitf prints a formatted message to stderr and exits with status 1.
func Exitf(format string, args ...any) {
	fmt.Fprintf(stderr, format+"\n", args...)
	exit(1)
}

// ExitOnParseError ends a command whose flags failed to parse. A help
// request exits 0 because the flag set already printed usage; any other
// error is reported through Exitf.
func ExitOnParseError(err error) {
	switch {
	case err == nil:
		return
	case errors.Is(err, flag.ErrHelp):
		exit(0)
	default:
		Exitf("parse flags: %v", err)
	}
}
