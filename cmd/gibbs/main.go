// Command gibbs is the entry point of the dissociation engine: one-shot
// transforms, data management, the HTTP API and the Kafka worker.
package main

import (
	"context"
	"os"

	"github.com/jasmincar/milo-lab/internal/interfaces/cli"
)

// Build-time variables injected via ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func init() {
	cli.Version = version
	cli.GitCommit = commit
	cli.BuildDate = buildDate
}

func main() {
	// Execute reports the error itself.
	if err := cli.Execute(context.Background()); err != nil {
		os.Exit(1)
	}
}

//Personal.AI order the ending
