// Command docrepo runs the document repository service and offers extraction
// and comparison helpers on the command line.
package main

import (
	"fmt"
	"os"
)

// Version information (set at build time with -ldflags)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
