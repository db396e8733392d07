package iocache

import (
	"errors"
	"fmt"
	"io"

	"github.com/huangsam/prstats/internal/contract"
	"github.com/huangsam/prstats/internal/parquet"
)

// ExecuteHistoryExport writes the runs and group rows of store to two Parquet files
// next to outputFile.
func ExecuteHistoryExport(store contract.HistoryStore, outputFile string, w io.Writer) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}
	if store == nil {
		return errors.New("history store is not initialized. Check --history-backend")
	}

	status, err := store.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get history status: %w", err)
	}
	if status.TotalRuns == 0 {
		return errors.New("no run history found to export")
	}

	_, _ = fmt.Fprintf(w, "Exporting data from %s backend...\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Total runs: %d\n", status.TotalRuns)
	_, _ = fmt.Fprintf(w, "Total group records: %d\n", status.TableSizes[groupStatsTable])

	runs, err := store.GetAllRuns()
	if err != nil {
		return fmt.Errorf("failed to retrieve runs: %w", err)
	}
	groups, err := store.GetAllGroupStats()
	if err != nil {
		return fmt.Errorf("failed to retrieve group stats: %w", err)
	}

	runsFile := outputFile + ".runs.parquet"
	if err := parquet.WriteFile(parquet.ConvertRunRecords(runs), runsFile); err != nil {
		return fmt.Errorf("failed to write runs: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d runs to: %s\n", len(runs), runsFile)

	groupsFile := outputFile + ".group_stats.parquet"
	if err := parquet.WriteFile(parquet.ConvertGroupStatsRecords(groups), groupsFile); err != nil {
		return fmt.Errorf("failed to write group stats: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d group records to: %s\n", len(groups), groupsFile)

	return nil
}
