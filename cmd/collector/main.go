package main

import (
	"fmt"
	"os"

	"github.com/scottpeterman/velocitycollector/cmd/collector/cmd"
	"github.com/scottpeterman/velocitycollector/internal/store"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps a command error to the process exit code per §6: 2 for a
// configuration or setup failure that never reached device work (bad job
// descriptor, unreachable store, locked vault), 1 for anything else (a
// device or job actually ran and failed).
func exitCode(err error) int {
	kind, _ := store.KindOf(err)
	switch kind {
	case store.KindConfigError, store.KindInventoryEmpty, store.KindSecretStoreLocked:
		return 2
	default:
		return 1
	}
}
