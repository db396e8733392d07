package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/huangsam/prstats/internal/parquet"
	"github.com/huangsam/prstats/schema"
)

var reportCSVHeader = []string{"scope", "name", "metric", "unit", "count", "min", "median", "mean", "max"}

// writeReportCSV writes one row per metric of every repository and group.
func writeReportCSV(w io.Writer, report *schema.Report) error {
	rows := parquet.ConvertReport(*report)
	return writeCSVWithHeader(w, reportCSVHeader, func(cw *csv.Writer) error {
		for _, r := range rows {
			rec := []string{
				r.Scope,
				r.Name,
				r.Metric,
				r.Unit,
				strconv.Itoa(int(r.Count)),
				fmtOptional(r.Min),
				fmtOptional(r.Median),
				fmtOptional(r.Mean),
				fmtOptional(r.Max),
			}
			if err := cw.Write(rec); err != nil {
				return fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
		return nil
	})
}

// writeReportParquet writes the same rows as the CSV output as a Parquet file.
func writeReportParquet(w io.Writer, report *schema.Report) error {
	return parquet.Write(w, parquet.ConvertReport(*report))
}
