package ghclient

import (
	"time"

	"github.com/google/go-github/v62/github"

	"github.com/huangsam/prstats/schema"
)

// Timeline event names used by the classifier.
const (
	eventReviewRequested = "review_requested"
	eventReadyForReview  = "ready_for_review"
)

func convertPullRequest(gh *github.PullRequest) schema.PullRequest {
	pr := schema.PullRequest{
		Number:    gh.GetNumber(),
		Title:     gh.GetTitle(),
		Author:    gh.GetUser().GetLogin(),
		CreatedAt: gh.GetCreatedAt().Time,
		Additions: gh.GetAdditions(),
		Deletions: gh.GetDeletions(),
		State:     schema.OpenState,
	}
	if gh.ClosedAt != nil {
		pr.ClosedAt = timePtr(gh.GetClosedAt().Time)
		pr.State = schema.ClosedState
	}
	if gh.MergedAt != nil {
		pr.MergedAt = timePtr(gh.GetMergedAt().Time)
		pr.State = schema.MergedState
		if pr.ClosedAt == nil {
			pr.ClosedAt = timePtr(*pr.MergedAt)
		}
	}
	return pr
}

// convertCommit prefers the GitHub login of the author and falls back to the git author name.
func convertCommit(c *github.RepositoryCommit) schema.CommitInfo {
	author := c.GetAuthor().GetLogin()
	if author == "" {
		author = c.GetCommit().GetAuthor().GetName()
	}
	return schema.CommitInfo{
		SHA:        c.GetSHA(),
		Author:     author,
		AuthoredAt: c.GetCommit().GetAuthor().GetDate().Time,
		IsMerge:    len(c.Parents) > 1,
		Message:    c.GetCommit().GetMessage(),
	}
}

// convertReview drops pending reviews, which have not been submitted yet.
func convertReview(r *github.PullRequestReview) (schema.ReviewEvent, bool) {
	if r.GetState() == "PENDING" {
		return schema.ReviewEvent{}, false
	}
	return schema.ReviewEvent{
		Reviewer:    r.GetUser().GetLogin(),
		SubmittedAt: r.GetSubmittedAt().Time,
		Outcome:     schema.NormalizeOutcome(r.GetState()),
	}, true
}

// applyTimeline copies review requests and the first ready-for-review marker onto pr.
// Team review requests carry no reviewer login and are skipped.
func applyTimeline(pr *schema.PullRequest, events []*github.Timeline) {
	for _, ev := range events {
		switch ev.GetEvent() {
		case eventReviewRequested:
			login := ev.GetReviewer().GetLogin()
			if login == "" {
				continue
			}
			pr.ReviewRequests = append(pr.ReviewRequests, schema.ReviewRequestEvent{
				RequestedAt:        ev.GetCreatedAt().Time,
				RequestedReviewers: []string{login},
			})
		case eventReadyForReview:
			if pr.ReadyForReview == nil {
				pr.ReadyForReview = &schema.ReadyForReviewEvent{OccurredAt: ev.GetCreatedAt().Time}
			}
		}
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}
