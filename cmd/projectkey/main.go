package main

import (
	"context"
	"os"

	"github.com/temirov/projectkey/internal/cli"
)

// main is the entry point for the projectkey launcher.
func main() {
	os.Exit(cli.ExecuteLauncher(context.Background(), os.Args[1:]))
}
