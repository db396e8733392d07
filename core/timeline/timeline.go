// Package timeline orders pull request activity and classifies commits against review cycles.
package timeline

import (
	"cmp"
	"slices"
	"time"

	"github.com/huangsam/prstats/schema"
)

// Event is one entry of a normalized timeline. Exactly one payload pointer is set,
// matching Kind. Index is the position of the payload in its source slice on the PR.
type Event struct {
	Kind    schema.EventKind
	At      time.Time
	Index   int
	Commit  *schema.CommitInfo
	Review  *schema.ReviewEvent
	Request *schema.ReviewRequestEvent
	Comment *schema.CommentInfo
}

// Timeline is the time-ordered activity of one pull request.
type Timeline struct {
	Events []Event

	// Degraded is set when at least one event had no timestamp and was dropped.
	Degraded bool
	Dropped  int
}

// Normalize merges commits, reviews, review requests, the ready-for-review marker and
// comments of pr into one sequence ordered by time. Events at the same instant are ordered
// ReadyForReview, ReviewRequest, Review, Commit, Comment, then by source position.
// pr is only read.
func Normalize(pr *schema.PullRequest) Timeline {
	var tl Timeline
	add := func(ev Event) {
		if ev.At.IsZero() {
			tl.Degraded = true
			tl.Dropped++
			return
		}
		tl.Events = append(tl.Events, ev)
	}

	if pr.ReadyForReview != nil {
		add(Event{Kind: schema.EventReadyForReview, At: pr.ReadyForReview.OccurredAt})
	}
	for i := range pr.ReviewRequests {
		add(Event{Kind: schema.EventReviewRequest, At: pr.ReviewRequests[i].RequestedAt, Index: i, Request: &pr.ReviewRequests[i]})
	}
	for i := range pr.Reviews {
		add(Event{Kind: schema.EventReview, At: pr.Reviews[i].SubmittedAt, Index: i, Review: &pr.Reviews[i]})
	}
	for i := range pr.Commits {
		add(Event{Kind: schema.EventCommit, At: pr.Commits[i].AuthoredAt, Index: i, Commit: &pr.Commits[i]})
	}
	for i := range pr.Comments {
		add(Event{Kind: schema.EventComment, At: pr.Comments[i].CreatedAt, Index: i, Comment: &pr.Comments[i]})
	}

	slices.SortFunc(tl.Events, compareEvents)
	return tl
}

func compareEvents(a, b Event) int {
	if c := a.At.Compare(b.At); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Kind, b.Kind); c != 0 {
		return c
	}
	return cmp.Compare(a.Index, b.Index)
}
