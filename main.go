package main

import (
	"context"
	"os"

	"github.com/sendtophone/cli/cmd"
)

// Set via ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	m := cmd.Metadata{Version: version, Commit: commit, Date: date}
	if err := cmd.Execute(context.Background(), m); err != nil {
		os.Exit(1)
	}
}
