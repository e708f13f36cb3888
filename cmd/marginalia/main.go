// Package main provides the entry point for the marginalia CLI.
package main

import (
	"fmt"
	"os"

	"github.com/listenupapp/marginalia/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
