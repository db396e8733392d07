package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/huangsam/prstats/internal/contract"
	"github.com/huangsam/prstats/schema"

	"github.com/olekukonko/tablewriter"
)

// writeCheckText lists the active member counts and every violation.
func writeCheckText(w io.Writer, result schema.CheckResult) error {
	if _, err := fmt.Fprintf(w, "Policy Check Results:\n  State: %s\n  Threshold: %d active members\n  Repository scope: %d active members\n\n",
		contract.GetColorLabel(result.State), result.Threshold, result.RepositoryActiveCount); err != nil {
		return err
	}

	failed := make(map[string]bool)
	for _, name := range result.FailedGroups() {
		failed[name] = true
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Group", "Members", "Active", "Status"})
	var data [][]string
	for _, name := range schema.SortedKeys(result.GroupActiveCounts) {
		status := contract.ApprovedColor.Sprint("ok")
		if failed[name] {
			status = contract.BlockedColor.Sprint("below threshold")
		}
		data = append(data, []string{
			name,
			strconv.Itoa(result.GroupMemberCounts[name]),
			strconv.Itoa(result.GroupActiveCounts[name]),
			status,
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	return writeViolations(w, result.Violations)
}

// writeBlockedText explains why no statistics were produced.
func writeBlockedText(w io.Writer, blocked schema.BlockedResult) error {
	if _, err := fmt.Fprintf(w, "Policy Check Results:\n  State: %s\n  Failed groups: %s\n",
		contract.GetColorLabel(blocked.State), strings.Join(blocked.FailedGroups, ", ")); err != nil {
		return err
	}
	if err := writeViolations(w, blocked.Violations); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "Statistics were withheld to meet data protection thresholds. "+
		"Rerun with --overwrite-data-protection to publish them after confirmation.")
	return err
}

func writeViolations(w io.Writer, violations []schema.Violation) error {
	if len(violations) == 0 {
		_, err := fmt.Fprintln(w, "No violations.")
		return err
	}
	if _, err := fmt.Fprintln(w, "Violations:"); err != nil {
		return err
	}
	for _, v := range violations {
		if _, err := fmt.Fprintf(w, "  - %s\n", contract.WarnColor.Sprint(v.Message)); err != nil {
			return err
		}
	}
	return nil
}

// writeCheckCSV writes one row per group followed by the repository scope.
func writeCheckCSV(w io.Writer, result schema.CheckResult) error {
	header := []string{"scope", "name", "members", "active", "threshold", "passed"}
	failed := make(map[string]bool)
	for _, v := range result.Violations {
		failed[string(v.Type)+":"+v.Scope] = true
	}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, name := range schema.SortedKeys(result.GroupActiveCounts) {
			rec := []string{
				string(schema.GroupViolation),
				name,
				strconv.Itoa(result.GroupMemberCounts[name]),
				strconv.Itoa(result.GroupActiveCounts[name]),
				strconv.Itoa(result.Threshold),
				strconv.FormatBool(!failed[string(schema.GroupViolation)+":"+name]),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return cw.Write([]string{
			string(schema.RepositoryScopeViolation),
			schema.RepositoryScope,
			"",
			strconv.Itoa(result.RepositoryActiveCount),
			strconv.Itoa(result.Threshold),
			strconv.FormatBool(!failed[string(schema.RepositoryScopeViolation)+":"+schema.RepositoryScope]),
		})
	})
}
