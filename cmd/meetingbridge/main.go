package main

import (
	"fmt"
	"os"

	"meetingbridge/internal/cli"
)

// Main entry point; commands and signal handling live in internal/cli
func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is separate from main so tests can drive the command tree
func run(args []string) error {
	root := cli.NewRootCmd(&cli.Dependencies{})
	root.SetArgs(args)
	return root.Execute()
}
