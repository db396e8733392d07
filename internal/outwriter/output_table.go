package outwriter

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/huangsam/prstats/internal/contract"
	"github.com/huangsam/prstats/internal/parquet"
	"github.com/huangsam/prstats/schema"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// writeReportTable generates and writes the human-readable tables.
func writeReportTable(w io.Writer, report *schema.Report, cfg *contract.Config, duration time.Duration) error {
	meta := report.Metadata
	if _, err := fmt.Fprintf(w, "%s %s  window: %s .. %s  override used: %s\n",
		contract.InfoColor.Sprint("Policy:"),
		contract.GetColorLabel(meta.PolicyState),
		formatBound(meta.Window.Since),
		formatBound(meta.Window.Until),
		yesNo(meta.OverrideUsed)); err != nil {
		return err
	}

	rows := parquet.ConvertReport(*report)
	nameWidth := GetMaxTableNameWidth(cfg)

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Scope", "Name", "Metric", "Count", "Min", "Median", "Mean", "Max"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for _, r := range rows {
		count := strconv.Itoa(int(r.Count))
		median := fmtOptional(r.Median)
		if r.Unit == "%" && r.Median != nil {
			median = formatRate(r.Median)
		}
		if r.Count == 0 {
			count, median = "-", "no data"
		}
		data = append(data, []string{
			r.Scope,
			truncateName(r.Name, nameWidth),
			metricLabel(schema.MetricKey(r.Metric), unitLabel(r.Unit)),
			count,
			fmtOptional(r.Min),
			median,
			fmtOptional(r.Mean),
			fmtOptional(r.Max),
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "Showing %d repositories and %d groups (pull requests: %d)\n",
		len(report.RepoStats), len(report.GroupStats), meta.PullRequests); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Run completed in %v with %d workers. Cache backend: %s\n",
		duration.Round(time.Millisecond), cfg.MaxWorkers, cfg.CacheBackend); err != nil {
		return err
	}
	return nil
}

// unitLabel drops the percent sign from metric labels since the value carries it.
func unitLabel(unit string) string {
	if unit == "%" {
		return ""
	}
	return unit
}
