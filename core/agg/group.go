package agg

import (
	"fmt"
	"slices"

	"github.com/huangsam/prstats/core/algo"
	"github.com/huangsam/prstats/core/metrics"
	"github.com/huangsam/prstats/schema"
)

// accumulator pools the raw values of several users. It never leaves this package,
// so nothing downstream can look at an individual contribution.
type accumulator struct {
	latency    []float64
	loc        []float64
	asReviewer []float64
	asAuthor   []float64

	reviews          int
	changesRequested int
	directApprovals  int
}

func (a *accumulator) add(v *metrics.UserValues) {
	if v == nil {
		return
	}
	a.latency = append(a.latency, v.ReviewLatencyHours...)
	a.loc = append(a.loc, v.LOCPerCreatedPR...)
	a.asReviewer = append(a.asReviewer, v.CommentsPer100LOCAsReviewer...)
	a.asAuthor = append(a.asAuthor, v.CommentsPer100LOCAsAuthor...)
	a.reviews += v.ReviewsSubmitted
	a.changesRequested += v.ChangesRequested
	a.directApprovals += v.DirectApprovals
}

// pooled returns the accumulator contents as if one user had contributed all of them.
func (a *accumulator) pooled() *metrics.UserValues {
	return &metrics.UserValues{
		ReviewLatencyHours:          slices.Clone(a.latency),
		LOCPerCreatedPR:             slices.Clone(a.loc),
		CommentsPer100LOCAsReviewer: slices.Clone(a.asReviewer),
		CommentsPer100LOCAsAuthor:   slices.Clone(a.asAuthor),
		ReviewsSubmitted:            a.reviews,
		ChangesRequested:            a.changesRequested,
		DirectApprovals:             a.directApprovals,
	}
}

func (a *accumulator) stats(memberCount, activeCount int) schema.GroupStats {
	return schema.GroupStats{
		MemberCount:                 memberCount,
		ActiveMemberCount:           activeCount,
		ReviewsSubmitted:            a.reviews,
		TimeToSubmitReview:          algo.NewDistribution(a.latency),
		LOCPerCreatedPR:             algo.NewDistribution(a.loc),
		CommentsPer100LOCAsReviewer: algo.NewDistribution(a.asReviewer),
		CommentsPer100LOCAsAuthor:   algo.NewDistribution(a.asAuthor),
		ChangesRequestedRate:        algo.Rate(a.changesRequested, a.reviews),
		DirectApprovalRate:          algo.Rate(a.directApprovals, a.reviews),
	}
}

// Aggregate pools the values of each group's members into group-level statistics keyed by
// group name. A member that appears in several groups contributes to each of them. Members
// without values contribute nothing. activeCounts supplies ActiveMemberCount per group.
func Aggregate(groups []schema.GroupDefinition, values map[string]*metrics.UserValues, activeCounts map[string]int) map[string]schema.GroupStats {
	out := make(map[string]schema.GroupStats, len(groups))
	for _, g := range groups {
		members := schema.UniqueStrings(g.Members)
		acc := &accumulator{}
		for _, m := range members {
			acc.add(values[m])
		}
		out[g.Name] = acc.stats(len(members), activeCounts[g.Name])
	}
	MustNotContainUsers(out, values)
	return out
}

// AggregatePullRequests computes per-user values from prs and pools them in one step.
// The per-user values are dropped before returning.
func AggregatePullRequests(prs []schema.PullRequest, groups []schema.GroupDefinition, activeCounts map[string]int) map[string]schema.GroupStats {
	return Aggregate(groups, metrics.CollectUserValues(prs), activeCounts)
}

// CheckNoUserKeys returns ErrUserKeyInOutput when a key of out is a known username.
func CheckNoUserKeys[V any](out map[string]schema.GroupStats, users map[string]V) error {
	for _, key := range schema.SortedKeys(out) {
		if _, ok := users[key]; ok {
			return fmt.Errorf("%w: %q", schema.ErrUserKeyInOutput, key)
		}
	}
	return nil
}

// MustNotContainUsers panics when a key of out is a known username.
// Group names are validated against member names at config time, so reaching this is a bug.
func MustNotContainUsers[V any](out map[string]schema.GroupStats, users map[string]V) {
	if err := CheckNoUserKeys(out, users); err != nil {
		panic(err)
	}
}
