package timeline

import "github.com/huangsam/prstats/schema"

// State is the review-cycle state of the commit classifier.
type State int

const (
	// StateNormal means no change request is outstanding.
	StateNormal State = iota
	// StateChangesRequestedOpen means a CHANGES_REQUESTED review has not been resolved yet.
	StateChangesRequestedOpen
)

func (s State) String() string {
	if s == StateChangesRequestedOpen {
		return "CHANGES_REQUESTED_OPEN"
	}
	return "NORMAL"
}

// Classification is the classifier output for one pull request.
type Classification struct {
	// Labels has one entry per element of PullRequest.Commits, in the same order.
	// It is nil when Unavailable is set.
	Labels      []schema.CommitLabel
	Requested   int
	Unrequested int

	// Unavailable is set when the provider reported no timeline data for the PR.
	Unavailable bool
	// Degraded is set when events without timestamps were dropped.
	Degraded bool
}

// Transition returns the state after ev. Only reviews and review requests move the state;
// a COMMENTED review never does.
func Transition(state State, ev Event) State {
	switch ev.Kind {
	case schema.EventReview:
		switch ev.Review.Outcome {
		case schema.ChangesRequested:
			return StateChangesRequestedOpen
		case schema.Approved:
			return StateNormal
		}
	case schema.EventReviewRequest:
		return StateNormal
	}
	return state
}

// Classify folds the normalized timeline of pr through the review-cycle state machine,
// starting at the ready-for-review time (creation time when the PR never was a draft).
// Commits at or after that instant are requested while a change request is open and
// unrequested otherwise. Earlier commits and merge commits are excluded.
func Classify(pr *schema.PullRequest) Classification {
	if pr.TimelineUnavailable {
		return Classification{Unavailable: true}
	}

	tl := Normalize(pr)
	out := Classification{
		Labels:   make([]schema.CommitLabel, len(pr.Commits)),
		Degraded: tl.Degraded,
	}
	for i := range out.Labels {
		out.Labels[i] = schema.ExcludedCommit
	}

	ready := pr.ReadyAt()
	state := StateNormal
	for _, ev := range tl.Events {
		if ev.At.Before(ready) {
			continue
		}
		if ev.Kind != schema.EventCommit {
			state = Transition(state, ev)
			continue
		}
		if ev.Commit.IsMerge {
			continue
		}
		if state == StateChangesRequestedOpen {
			out.Labels[ev.Index] = schema.RequestedCommit
			out.Requested++
		} else {
			out.Labels[ev.Index] = schema.UnrequestedCommit
			out.Unrequested++
		}
	}
	return out
}

// ClassifyCommitsRequestedVsUnrequested returns the requested and unrequested commit counts.
// ok is false, with both counts 0, when the PR has no timeline data.
func ClassifyCommitsRequestedVsUnrequested(pr *schema.PullRequest) (requested, unrequested int, ok bool) {
	c := Classify(pr)
	if c.Unavailable {
		return 0, 0, false
	}
	return c.Requested, c.Unrequested, true
}
