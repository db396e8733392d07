package outwriter

import (
	"fmt"
	"io"
	"strings"

	"github.com/huangsam/prstats/schema"
)

// writeMarkdownReport renders the report as a Markdown document.
func writeMarkdownReport(w io.Writer, report *schema.Report) error {
	var b strings.Builder
	meta := report.Metadata

	b.WriteString("# GitHub Statistics Report\n\n")

	b.WriteString("## Metadata\n\n")
	fmt.Fprintf(&b, "- **Time range start:** %s\n", formatBound(meta.Window.Since))
	fmt.Fprintf(&b, "- **Time range end:** %s\n", formatBound(meta.Window.Until))
	fmt.Fprintf(&b, "- **Repositories analyzed:** %d\n", len(meta.Repositories))
	fmt.Fprintf(&b, "- **Groups analyzed:** %d\n", len(meta.GroupsConsidered))
	fmt.Fprintf(&b, "- **Pull requests analyzed:** %d\n", meta.PullRequests)
	fmt.Fprintf(&b, "- **Data protection override used:** %s\n", yesNo(meta.OverrideUsed))
	if meta.OverrideUsed && len(meta.Violations) > 0 {
		b.WriteString("- **Thresholds overridden:**\n")
		for _, v := range meta.Violations {
			fmt.Fprintf(&b, "  - %s\n", v.Message)
		}
	}
	b.WriteString("\n")

	b.WriteString("## Repositories\n\n")
	if len(report.RepoStats) == 0 {
		b.WriteString("No repository statistics available.\n\n")
	}
	for _, repo := range schema.SortedKeys(report.RepoStats) {
		stats := report.RepoStats[repo]
		fmt.Fprintf(&b, "### %s\n\n", repo)
		for _, nd := range stats.Distributions() {
			fmt.Fprintf(&b, "- **%s:** %s\n", metricLabel(nd.Key, nd.Unit), formatDistribution(nd.Distribution))
		}
		if notes := repoNotes(stats); notes != "" {
			fmt.Fprintf(&b, "\n_%s_\n", notes)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Groups\n\n")
	if len(report.GroupStats) == 0 {
		b.WriteString("No group statistics available.\n\n")
	}
	for _, name := range schema.SortedKeys(report.GroupStats) {
		stats := report.GroupStats[name]
		fmt.Fprintf(&b, "### %s\n\n", name)
		fmt.Fprintf(&b, "- **Members:** %d (%d active)\n", stats.MemberCount, stats.ActiveMemberCount)
		fmt.Fprintf(&b, "- **Reviews submitted:** %d\n", stats.ReviewsSubmitted)
		for _, nd := range stats.Distributions() {
			fmt.Fprintf(&b, "- **%s:** %s\n", metricLabel(nd.Key, nd.Unit), formatDistribution(nd.Distribution))
		}
		for _, r := range stats.Rates() {
			fmt.Fprintf(&b, "- **%s:** %s\n", metricLabel(r.Key, ""), formatRate(r.Value))
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// repoNotes summarizes the data quality counters of a repository, or "" when there is
// nothing to report.
func repoNotes(s schema.RepoStats) string {
	var parts []string
	if s.ZeroLOCExcluded > 0 {
		parts = append(parts, fmt.Sprintf("%d PRs without changed lines excluded from comment density", s.ZeroLOCExcluded))
	}
	if s.ClassificationUnavailable > 0 {
		parts = append(parts, fmt.Sprintf("%d PRs without commit classification", s.ClassificationUnavailable))
	}
	if s.DegradedTimelines > 0 {
		parts = append(parts, fmt.Sprintf("%d PRs with incomplete timelines", s.DegradedTimelines))
	}
	if s.InconsistentSkipped > 0 {
		parts = append(parts, fmt.Sprintf("%d inconsistent PRs skipped", s.InconsistentSkipped))
	}
	if len(parts) == 0 {
		return ""
	}
	return fmt.Sprintf("%d pull requests; %s.", s.PullRequests, strings.Join(parts, "; "))
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
