// Package main provides the entry point for the augment-lite CLI.
package main

import (
	"os"

	"github.com/zoonderkins/augment-lite/cmd/augmentlite/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
