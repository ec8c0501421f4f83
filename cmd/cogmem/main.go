// Package main provides the entry point for the cogmem CLI.
package main

import (
	"os"

	"github.com/cogmem/cogmem/cmd/cogmem/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
