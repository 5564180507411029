// Package main is the entry point for the lexcloud CLI.
package main

import (
	"os"

	"github.com/lexcloud/lexcloud/cmd/lexcloud/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
