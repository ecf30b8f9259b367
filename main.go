// main is the entry point for the estateprep CLI.
package main

import (
	"fmt"
	"os"

	"github.com/huangsam/estateprep/cmd"
	"github.com/huangsam/estateprep/internal/iocache"
)

func main() {
	cmd.SetStoreManager(iocache.Manager)

	err := cmd.Execute()
	iocache.CloseStores()
	if stopErr := cmd.StopProfiling(); stopErr != nil {
		fmt.Fprintln(os.Stderr, "❌", stopErr)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
}
