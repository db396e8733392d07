// Package metrics reduces pull request collections into repository figures and raw per-user values.
package metrics

import (
	"time"

	"github.com/huangsam/prstats/core/algo"
	"github.com/huangsam/prstats/core/timeline"
	"github.com/huangsam/prstats/schema"
)

// ComputeRepoStats computes repository-level distributions for prs.
// asOf is the reference instant for PRs that are still open; the function never reads the clock.
func ComputeRepoStats(prs []schema.PullRequest, asOf time.Time) schema.RepoStats {
	var (
		openDays, closedDays, mergedDays []float64
		firstReviewDays, reRequestDays   []float64
		commits, reReviews, commentRates []float64
		requested, unrequested           []float64
	)
	stats := schema.RepoStats{PullRequests: len(prs)}

	for i := range prs {
		pr := &prs[i]

		switch {
		case pr.MergedAt != nil:
			mergedDays = append(mergedDays, algo.Days(pr.CreatedAt, *pr.MergedAt))
		case pr.State == schema.ClosedState && pr.ClosedAt != nil:
			closedDays = append(closedDays, algo.Days(pr.CreatedAt, *pr.ClosedAt))
		case pr.State == schema.OpenState:
			openDays = append(openDays, algo.Days(pr.CreatedAt, asOf))
		}

		if first, ok := firstReview(pr); ok {
			firstReviewDays = append(firstReviewDays, algo.Days(pr.CreatedAt, first))
		}
		reRequestDays = append(reRequestDays, changesRequestedToReRequest(pr)...)

		commits = append(commits, float64(len(pr.Commits)))
		if n := countReReviews(pr); n > 0 {
			reReviews = append(reReviews, float64(n))
		}

		if loc := pr.ChangedLines(); loc > 0 {
			commentRates = append(commentRates, algo.Per100(len(pr.Comments), loc))
		} else {
			stats.ZeroLOCExcluded++
		}

		c := timeline.Classify(pr)
		if c.Unavailable {
			stats.ClassificationUnavailable++
			continue
		}
		if c.Degraded {
			stats.DegradedTimelines++
		}
		requested = append(requested, float64(c.Requested))
		unrequested = append(unrequested, float64(c.Unrequested))
	}

	stats.OpenPRDuration = algo.NewDistribution(openDays)
	stats.ClosedPRDuration = algo.NewDistribution(closedDays)
	stats.MergedPRDuration = algo.NewDistribution(mergedDays)
	stats.TimeToFirstReview = algo.NewDistribution(firstReviewDays)
	stats.ChangesRequestedToReRequest = algo.NewDistribution(reRequestDays)
	stats.CommitsPerPR = algo.NewDistribution(commits)
	stats.ReReviewsPerPR = algo.NewDistribution(reReviews)
	stats.CommentsPer100LOC = algo.NewDistribution(commentRates)
	stats.RequestedCommitsPerPR = algo.NewDistribution(requested)
	stats.UnrequestedCommitsPerPR = algo.NewDistribution(unrequested)
	return stats
}

// firstReview returns the earliest dated review submission.
func firstReview(pr *schema.PullRequest) (time.Time, bool) {
	var first time.Time
	for _, r := range pr.Reviews {
		if r.SubmittedAt.IsZero() {
			continue
		}
		if first.IsZero() || r.SubmittedAt.Before(first) {
			first = r.SubmittedAt
		}
	}
	return first, !first.IsZero()
}

// countReReviews counts, per reviewer, every review after that reviewer's first one.
func countReReviews(pr *schema.PullRequest) int {
	perReviewer := make(map[string]int)
	for _, r := range pr.Reviews {
		perReviewer[r.Reviewer]++
	}
	total := 0
	for _, n := range perReviewer {
		total += n - 1
	}
	return total
}

// changesRequestedToReRequest returns, in days, the gap between each CHANGES_REQUESTED
// review and the next review request naming the same reviewer. Cycles that never see a
// re-request contribute nothing.
func changesRequestedToReRequest(pr *schema.PullRequest) []float64 {
	var out []float64
	for _, r := range pr.Reviews {
		if r.Outcome != schema.ChangesRequested || r.SubmittedAt.IsZero() {
			continue
		}
		var next time.Time
		for _, req := range pr.ReviewRequests {
			if !req.RequestedAt.After(r.SubmittedAt) || !req.Includes(r.Reviewer) {
				continue
			}
			if next.IsZero() || req.RequestedAt.Before(next) {
				next = req.RequestedAt
			}
		}
		if !next.IsZero() {
			out = append(out, algo.Days(r.SubmittedAt, next))
		}
	}
	return out
}
