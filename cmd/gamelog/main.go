// Package main provides the entry point for the gamelog CLI tool.
package main

import (
	"os"

	"github.com/apetrov/gamelog/cmd/gamelog/cmd"
)

// Version information populated by goreleaser.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := cmd.Execute(version, commit, date); err != nil {
		os.Exit(1)
	}
}
