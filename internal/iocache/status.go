package iocache

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/huangsam/estateprep/internal/contract"
	"github.com/huangsam/estateprep/schema"
)

// PrintStateStatus prints state store status information.
func PrintStateStatus(status schema.StateStatus) {
	fmt.Printf("State Backend: %s\n", status.Backend)
	fmt.Printf("Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	fmt.Printf("Total States: %d\n", status.TotalStates)
	if status.TotalStates > 0 {
		fmt.Printf("Last Fit: %s\n", status.LastStateTime.Format(contract.DateTimeFormat))
		fmt.Printf("Oldest Fit: %s\n", status.OldestStateTime.Format(contract.DateTimeFormat))
	}
	fmt.Printf("Table Size: %d bytes\n", status.TableSizeBytes)
}

// PrintRunStatus prints run store status information.
func PrintRunStatus(status schema.RunStatus) {
	fmt.Printf("Run Backend: %s\n", status.Backend)
	fmt.Printf("Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	fmt.Printf("Total Runs: %d\n", status.TotalRuns)
	if status.TotalRuns > 0 {
		fmt.Printf("Last Run ID: %d\n", status.LastRunID)
		fmt.Printf("Last Run: %s\n", status.LastRunTime.Format(contract.DateTimeFormat))
		fmt.Printf("Oldest Run: %s\n", status.OldestRunTime.Format(contract.DateTimeFormat))
		fmt.Printf("Total Records Fitted: %d\n", status.TotalRecords)
	}
	fmt.Println("Table Sizes:")
	for _, table := range slices.Sorted(maps.Keys(status.TableSizes)) {
		fmt.Printf("  %s: %d rows\n", table, status.TableSizes[table])
	}
}

// PrintStateList prints stored state keys, newest first.
func PrintStateList(states []schema.StoredState) {
	if len(states) == 0 {
		fmt.Println("No fitted states stored.")
		return
	}
	for _, st := range states {
		fmt.Printf("%-32s v%d  %s\n", st.Key, st.Version, time.Unix(st.Timestamp, 0).Format(contract.DateTimeFormat))
	}
}
