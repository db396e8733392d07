// Package outwriter has output and writer logic.
package outwriter

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/huangsam/prstats/internal/contract"
	"github.com/huangsam/prstats/schema"
	"golang.org/x/term"
)

// OutWriter provides a unified interface for all output operations.
// It encapsulates the various output formats and provides a clean API for the commands.
type OutWriter struct{}

// NewOutWriter creates a new instance of the output writer.
func NewOutWriter() *OutWriter {
	return &OutWriter{}
}

// WriteReport writes an approved report to cfg.OutputFile (stdout when empty) in the
// configured format.
func (ow *OutWriter) WriteReport(report *schema.Report, cfg *contract.Config, duration time.Duration) error {
	if report == nil {
		return fmt.Errorf("no report to write")
	}
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return RenderReport(w, report, cfg, duration)
	}, "Wrote "+string(cfg.Output)+" report")
}

// WriteCheck writes a threshold check result to w. JSON and CSV are honored, every other
// format renders the text listing.
func (ow *OutWriter) WriteCheck(w io.Writer, result schema.CheckResult, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeJSON(w, result)
	case schema.CSVOut:
		return writeCheckCSV(w, result)
	default:
		return writeCheckText(w, result)
	}
}

// WriteBlocked explains a blocked run on w. No statistics are part of it.
func (ow *OutWriter) WriteBlocked(w io.Writer, blocked schema.BlockedResult) error {
	return writeBlockedText(w, blocked)
}

// RenderReport renders report to w in cfg.Output.
func RenderReport(w io.Writer, report *schema.Report, cfg *contract.Config, duration time.Duration) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeJSON(w, report)
	case schema.CSVOut:
		return writeReportCSV(w, report)
	case schema.ParquetOut:
		return writeReportParquet(w, report)
	case schema.TextOut:
		return writeReportTable(w, report, cfg, duration)
	case schema.MarkdownOut, "":
		return writeMarkdownReport(w, report)
	default:
		return fmt.Errorf("unsupported output format: %s", cfg.Output)
	}
}

// GetMaxTableNameWidth calculates the maximum width for repository and group names in
// table output based on terminal width.
func GetMaxTableNameWidth(cfg *contract.Config) int {
	var termWidth int

	// Check for absolute width override from flag/env
	if cfg.Width > 0 {
		termWidth = cfg.Width
	}

	if termWidth == 0 {
		detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || detectedWidth <= 0 {
			termWidth = 80 // Conservative default for narrow terminals and CI
		} else {
			termWidth = detectedWidth
		}
	}

	// Scope + Metric + Count + four value columns, with borders and padding
	baseWidth := 12 + 34 + 8 + 4*12 + 20

	available := termWidth - baseWidth
	if available < 12 {
		return 12
	}
	if available > 50 {
		return 50
	}
	return available
}
