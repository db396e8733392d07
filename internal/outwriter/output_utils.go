package outwriter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/huangsam/prstats/internal/contract"
	"github.com/huangsam/prstats/schema"
)

// metricLabels are the human-readable names of every metric.
var metricLabels = map[schema.MetricKey]string{
	schema.OpenPRDuration:              "Duration open pull requests",
	schema.ClosedPRDuration:            "Duration closed pull requests",
	schema.MergedPRDuration:            "Duration merged pull requests",
	schema.TimeToFirstReview:           "Time to first review",
	schema.ChangesRequestedToReRequest: "Time between changes requested and re-request",
	schema.CommitsPerPR:                "Commits per PR",
	schema.ReReviewsPerPR:              "Re-reviews per PR",
	schema.CommentsPer100LOC:           "Comments per 100 LOC",
	schema.RequestedCommitsPerPR:       "Requested commits per PR",
	schema.UnrequestedCommitsPerPR:     "Unrequested commits per PR",
	schema.TimeToSubmitReview:          "Time between requested and submitting review",
	schema.LOCPerCreatedPR:             "Changed lines of code per created PR",
	schema.CommentsPer100LOCAsReviewer: "Comments per 100 LOC (as reviewer)",
	schema.CommentsPer100LOCAsAuthor:   "Comments per 100 LOC (as author)",
	schema.ChangesRequestedRate:        "Request for changes rate",
	schema.DirectApprovalRate:          "Direct approval rate",
}

// metricLabel returns the label of key, with the unit in parentheses when there is one.
func metricLabel(key schema.MetricKey, unit string) string {
	label, ok := metricLabels[key]
	if !ok {
		label = string(key)
	}
	if unit == "" {
		return label
	}
	return fmt.Sprintf("%s (%s)", label, unit)
}

// fmtFloat formats v with two decimals.
func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// fmtOptional formats a nil value as an empty cell.
func fmtOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return fmtFloat(*v)
}

// formatDistribution renders a distribution on one line, or "no data".
func formatDistribution(d schema.Distribution) string {
	if !d.HasData() {
		return "no data"
	}
	return fmt.Sprintf("count: %d, min: %s, median: %s, mean: %s, max: %s",
		d.Count,
		fmtFloat(schema.Deref(d.Minimum)),
		fmtFloat(schema.Deref(d.Median)),
		fmtFloat(schema.Deref(d.Mean)),
		fmtFloat(schema.Deref(d.Maximum)))
}

// formatRate renders a percentage, or "no data" when there was no denominator.
func formatRate(v *float64) string {
	if v == nil {
		return "no data"
	}
	return fmtFloat(*v) + "%"
}

// formatBound renders one end of the window as a date.
func formatBound(t *time.Time) string {
	if t == nil {
		return "(no filter)"
	}
	return t.Format(contract.DateFormat)
}

// writeWithFile handles the common pattern of opening a file, writing to it, and cleaning up.
// It accepts a writer function that takes an io.Writer and returns an error.
func writeWithFile(outputFile string, writer func(io.Writer) error, successMsg string) error {
	file, err := contract.SelectOutputFile(outputFile)
	if err != nil {
		return err
	}
	// Only close if it's not stdout
	if file != os.Stdout {
		defer func() { _ = file.Close() }()
	}

	if err := writer(file); err != nil {
		return err
	}

	if file != os.Stdout {
		fmt.Fprintf(os.Stderr, "💾 %s to %s\n", successMsg, outputFile)
	}
	return nil
}

// writeJSON is a generic JSON encoder that handles indentation consistently.
func writeJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// writeCSVWithHeader handles the common pattern of creating a CSV writer,
// writing a header, and writing data rows.
func writeCSVWithHeader(w io.Writer, header []string, writeRows func(*csv.Writer) error) error {
	csvWriter := csv.NewWriter(w)

	if err := csvWriter.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	if err := writeRows(csvWriter); err != nil {
		return err
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

// truncateName shortens s to maxWidth runes, keeping the end, which carries the
// repository or group name.
func truncateName(s string, maxWidth int) string {
	runes := []rune(s)
	if len(runes) <= maxWidth || maxWidth < 4 {
		return s
	}
	return "..." + string(runes[len(runes)-maxWidth+3:])
}
