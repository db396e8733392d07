// Package schema has the models, typed constants and sentinel errors shared by all parts of prstats.
package schema

import (
	"fmt"
	"time"
)

// CommitInfo is a single commit attached to a pull request.
type CommitInfo struct {
	SHA        string    `json:"sha"`
	Author     string    `json:"author"`
	AuthoredAt time.Time `json:"authored_at"` // zero when the provider had no date
	IsMerge    bool      `json:"is_merge,omitempty"`
	Message    string    `json:"message,omitempty"`
}

// CommentInfo is a conversation or inline review comment.
type CommentInfo struct {
	Author     string      `json:"author"`
	CreatedAt  time.Time   `json:"created_at"`
	BodyLength int         `json:"body_length"`
	Kind       CommentKind `json:"kind"`
}

// ReviewEvent is a submitted review.
type ReviewEvent struct {
	Reviewer    string        `json:"reviewer"`
	SubmittedAt time.Time     `json:"submitted_at"`
	Outcome     ReviewOutcome `json:"outcome"`
}

// ReviewRequestEvent is a (re-)request for review.
type ReviewRequestEvent struct {
	RequestedAt        time.Time `json:"requested_at"`
	RequestedReviewers []string  `json:"requested_reviewers"`
}

// Includes reports whether the request names the given reviewer.
func (r ReviewRequestEvent) Includes(reviewer string) bool {
	for _, name := range r.RequestedReviewers {
		if name == reviewer {
			return true
		}
	}
	return false
}

// ReadyForReviewEvent marks the transition out of draft.
type ReadyForReviewEvent struct {
	OccurredAt time.Time `json:"occurred_at"`
}

// PullRequest is a fully populated pull request record as yielded by a provider.
type PullRequest struct {
	Repository     string               `json:"repository"`
	Number         int                  `json:"number"`
	Title          string               `json:"title,omitempty"`
	Author         string               `json:"author"`
	CreatedAt      time.Time            `json:"created_at"`
	ClosedAt       *time.Time           `json:"closed_at,omitempty"`
	MergedAt       *time.Time           `json:"merged_at,omitempty"`
	State          PRState              `json:"state"`
	Additions      int                  `json:"additions"`
	Deletions      int                  `json:"deletions"`
	Commits        []CommitInfo         `json:"commits,omitempty"`
	Comments       []CommentInfo        `json:"comments,omitempty"`
	Reviews        []ReviewEvent        `json:"reviews,omitempty"`
	ReviewRequests []ReviewRequestEvent `json:"review_requests,omitempty"`
	ReadyForReview *ReadyForReviewEvent `json:"ready_for_review,omitempty"`

	// TimelineUnavailable is set when the provider could not fetch timeline events.
	TimelineUnavailable bool `json:"timeline_unavailable,omitempty"`
}

// ChangedLines returns added plus deleted lines.
func (pr *PullRequest) ChangedLines() int {
	return pr.Additions + pr.Deletions
}

// ReadyAt returns the time the PR became reviewable. PRs opened without a draft phase
// are treated as ready from creation.
func (pr *PullRequest) ReadyAt() time.Time {
	if pr.ReadyForReview != nil && !pr.ReadyForReview.OccurredAt.IsZero() {
		return pr.ReadyForReview.OccurredAt
	}
	return pr.CreatedAt
}

// Key returns "owner/repo#number".
func (pr *PullRequest) Key() string {
	return fmt.Sprintf("%s#%d", pr.Repository, pr.Number)
}

// Validate checks the temporal invariants of the record.
func (pr *PullRequest) Validate() error {
	if pr.ClosedAt != nil && pr.ClosedAt.Before(pr.CreatedAt) {
		return fmt.Errorf("%w: %s closed before it was created", ErrInvalidPullRequest, pr.Key())
	}
	if pr.MergedAt != nil {
		if pr.State != MergedState {
			return fmt.Errorf("%w: %s has merged_at but state %q", ErrInvalidPullRequest, pr.Key(), pr.State)
		}
		if pr.ClosedAt == nil || !pr.ClosedAt.Equal(*pr.MergedAt) {
			return fmt.Errorf("%w: %s closed_at must equal merged_at", ErrInvalidPullRequest, pr.Key())
		}
	}
	return nil
}

// GroupDefinition is a named set of usernames.
type GroupDefinition struct {
	Name    string   `json:"name" mapstructure:"name"`
	Members []string `json:"members" mapstructure:"members"`
}

// ActivityWindow bounds a run. Both ends are inclusive and a nil end is open.
type ActivityWindow struct {
	Since *time.Time `json:"since,omitempty"`
	Until *time.Time `json:"until,omitempty"`
}

// Contains reports whether t falls inside the window.
func (w ActivityWindow) Contains(t time.Time) bool {
	if w.Since != nil && t.Before(*w.Since) {
		return false
	}
	if w.Until != nil && t.After(*w.Until) {
		return false
	}
	return true
}

// AsOf returns the reference time for open PR durations: Until when set, otherwise fallback.
func (w ActivityWindow) AsOf(fallback time.Time) time.Time {
	if w.Until != nil {
		return *w.Until
	}
	return fallback
}
