package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/quickgate/quickgate/internal/cli"
)

// Version is set at build time via ldflags.
var Version = "dev"

type exitCoder interface {
	ExitCode() int
}

func main() {
	cli.SetVersion(Version)
	if err := cli.Execute(); err != nil {
		code := 1
		var ec exitCoder
		if errors.As(err, &ec) {
			code = ec.ExitCode()
		}
		if msg := err.Error(); msg != "" {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(code)
	}
}
