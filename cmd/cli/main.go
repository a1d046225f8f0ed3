// Package main is the entry point for the gradefix CLI.
package main

import (
	"errors"
	"fmt"
	"os"

	"gradefix/cmd/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, cmd.ErrRunNotSucceeded) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
