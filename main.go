// main is the entry point for the prstats CLI.
package main

import (
	"fmt"
	"os"

	"github.com/huangsam/prstats/cmd"
	"github.com/huangsam/prstats/internal/iocache"
)

func main() {
	err := cmd.Execute()
	iocache.CloseStores()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cmd.ExitCode(err))
	}
}
