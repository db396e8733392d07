package metrics

import (
	"slices"
	"time"

	"github.com/huangsam/prstats/core/algo"
	"github.com/huangsam/prstats/schema"
)

// UserValues are the raw figures one user contributes. They exist only to be pooled
// by the group aggregator and must never be rendered.
type UserValues struct {
	ReviewLatencyHours          []float64
	LOCPerCreatedPR             []float64
	CommentsPer100LOCAsReviewer []float64
	CommentsPer100LOCAsAuthor   []float64

	ReviewsSubmitted int
	ChangesRequested int
	DirectApprovals  int
}

// CollectUserValues walks prs once and returns the raw values of every user seen as
// author, reviewer, requested reviewer or commenter.
func CollectUserValues(prs []schema.PullRequest) map[string]*UserValues {
	users := make(map[string]*UserValues)
	get := func(name string) *UserValues {
		v, ok := users[name]
		if !ok {
			v = &UserValues{}
			users[name] = v
		}
		return v
	}

	for i := range prs {
		pr := &prs[i]
		loc := pr.ChangedLines()

		author := get(pr.Author)
		author.LOCPerCreatedPR = append(author.LOCPerCreatedPR, float64(loc))

		collectReviewLatency(pr, get)
		collectReviewOutcomes(pr, get)

		if loc == 0 {
			continue
		}
		counts := make(map[string]int)
		for _, c := range pr.Comments {
			counts[c.Author]++
		}
		for _, name := range schema.SortedKeys(counts) {
			rate := algo.Per100(counts[name], loc)
			if name == pr.Author {
				author.CommentsPer100LOCAsAuthor = append(author.CommentsPer100LOCAsAuthor, rate)
				continue
			}
			v := get(name)
			v.CommentsPer100LOCAsReviewer = append(v.CommentsPer100LOCAsReviewer, rate)
		}
	}
	return users
}

// collectReviewLatency records, for every (request, requested reviewer) pair, the hours until
// that reviewer's first review submitted after the request.
func collectReviewLatency(pr *schema.PullRequest, get func(string) *UserValues) {
	for _, req := range pr.ReviewRequests {
		if req.RequestedAt.IsZero() {
			continue
		}
		for _, reviewer := range req.RequestedReviewers {
			var next time.Time
			for _, r := range pr.Reviews {
				if r.Reviewer != reviewer || !r.SubmittedAt.After(req.RequestedAt) {
					continue
				}
				if next.IsZero() || r.SubmittedAt.Before(next) {
					next = r.SubmittedAt
				}
			}
			v := get(reviewer)
			if !next.IsZero() {
				v.ReviewLatencyHours = append(v.ReviewLatencyHours, algo.Hours(req.RequestedAt, next))
			}
		}
	}
}

// collectReviewOutcomes counts submitted reviews, change requests and approvals that were
// not preceded by a change request from the same reviewer on the same PR.
func collectReviewOutcomes(pr *schema.PullRequest, get func(string) *UserValues) {
	reviews := slices.Clone(pr.Reviews)
	slices.SortStableFunc(reviews, func(a, b schema.ReviewEvent) int {
		return a.SubmittedAt.Compare(b.SubmittedAt)
	})

	requestedChanges := make(map[string]bool)
	for _, r := range reviews {
		v := get(r.Reviewer)
		v.ReviewsSubmitted++
		switch r.Outcome {
		case schema.ChangesRequested:
			v.ChangesRequested++
			requestedChanges[r.Reviewer] = true
		case schema.Approved:
			if !requestedChanges[r.Reviewer] {
				v.DirectApprovals++
			}
		}
	}
}
