package agg

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huangsam/prstats/core/metrics"
	"github.com/huangsam/prstats/schema"
)

func sampleValues() map[string]*metrics.UserValues {
	return map[string]*metrics.UserValues{
		"alice": {
			ReviewLatencyHours: []float64{2, 4},
			LOCPerCreatedPR:    []float64{100},
			ReviewsSubmitted:   4,
			ChangesRequested:   1,
			DirectApprovals:    2,
		},
		"bob": {
			ReviewLatencyHours:          []float64{6},
			LOCPerCreatedPR:             []float64{10, 30},
			CommentsPer100LOCAsReviewer: []float64{5},
			ReviewsSubmitted:            1,
			ChangesRequested:            1,
		},
		"carol": {
			CommentsPer100LOCAsAuthor: []float64{1},
		},
	}
}

var fiveMembers = []string{"alice", "bob", "carol", "dave", "erin"}

func TestAggregate(t *testing.T) {
	groups := []schema.GroupDefinition{
		{Name: "backend", Members: fiveMembers},
		{Name: "quiet", Members: []string{"dave", "erin", "frank", "gina", "hank"}},
	}

	out := Aggregate(groups, sampleValues(), map[string]int{"backend": 3})

	require.Len(t, out, 2)
	backend := out["backend"]
	assert.Equal(t, 5, backend.MemberCount)
	assert.Equal(t, 3, backend.ActiveMemberCount)
	assert.Equal(t, 5, backend.ReviewsSubmitted)
	assert.Equal(t, 3, backend.TimeToSubmitReview.Count)
	assert.InDelta(t, 4.0, *backend.TimeToSubmitReview.Median, 1e-9)
	assert.Equal(t, 3, backend.LOCPerCreatedPR.Count)
	assert.InDelta(t, 30.0, *backend.LOCPerCreatedPR.Median, 1e-9)
	require.NotNil(t, backend.ChangesRequestedRate)
	assert.InDelta(t, 40.0, *backend.ChangesRequestedRate, 1e-9)
	require.NotNil(t, backend.DirectApprovalRate)
	assert.InDelta(t, 40.0, *backend.DirectApprovalRate, 1e-9)

	quiet := out["quiet"]
	assert.Equal(t, 5, quiet.MemberCount)
	assert.Zero(t, quiet.ActiveMemberCount)
	assert.False(t, quiet.TimeToSubmitReview.HasData())
	assert.Nil(t, quiet.ChangesRequestedRate)
	assert.Nil(t, quiet.DirectApprovalRate)
}

func TestAggregateOverlappingGroups(t *testing.T) {
	groups := []schema.GroupDefinition{
		{Name: "a", Members: fiveMembers},
		{Name: "b", Members: []string{"alice", "x1", "x2", "x3", "x4"}},
	}

	out := Aggregate(groups, sampleValues(), nil)

	assert.Equal(t, 2, out["b"].TimeToSubmitReview.Count)
	assert.Equal(t, 3, out["a"].TimeToSubmitReview.Count)
}

func TestAggregateDuplicateMembersCountOnce(t *testing.T) {
	groups := []schema.GroupDefinition{
		{Name: "dup", Members: append([]string{"alice", "alice"}, fiveMembers[1:]...)},
	}

	out := Aggregate(groups, sampleValues(), nil)

	assert.Equal(t, 5, out["dup"].MemberCount)
	assert.Equal(t, 5, out["dup"].ReviewsSubmitted)
}

func TestAggregateIdempotent(t *testing.T) {
	values := sampleValues()
	groups := []schema.GroupDefinition{{Name: "backend", Members: fiveMembers}}
	first := Aggregate(groups, values, nil)

	acc := &accumulator{}
	for _, m := range fiveMembers {
		acc.add(values[m])
	}
	again := Aggregate(
		[]schema.GroupDefinition{{Name: "backend", Members: []string{"pooled"}}},
		map[string]*metrics.UserValues{"pooled": acc.pooled()},
		nil,
	)

	want, got := first["backend"], again["backend"]
	assert.Equal(t, want.Distributions(), got.Distributions())
	assert.Equal(t, want.Rates(), got.Rates())
	assert.Equal(t, want.ReviewsSubmitted, got.ReviewsSubmitted)
}

func TestAggregatePanicsOnUserKey(t *testing.T) {
	groups := []schema.GroupDefinition{{Name: "alice", Members: fiveMembers}}

	assert.Panics(t, func() {
		Aggregate(groups, sampleValues(), nil)
	})
}

func TestCheckNoUserKeys(t *testing.T) {
	out := map[string]schema.GroupStats{"backend": {}, "bob": {}}

	err := CheckNoUserKeys(out, sampleValues())
	require.Error(t, err)
	assert.True(t, errors.Is(err, schema.ErrUserKeyInOutput))
	assert.Contains(t, err.Error(), `"bob"`)

	assert.NoError(t, CheckNoUserKeys(map[string]schema.GroupStats{"backend": {}}, sampleValues()))
}

func TestAggregatePullRequests(t *testing.T) {
	prs := []schema.PullRequest{
		{Number: 1, Author: "alice", State: schema.OpenState, Additions: 40},
		{Number: 2, Author: "bob", State: schema.OpenState, Additions: 60},
	}
	groups := []schema.GroupDefinition{{Name: "backend", Members: fiveMembers}}

	out := AggregatePullRequests(prs, groups, map[string]int{"backend": 2})

	assert.Equal(t, 2, out["backend"].LOCPerCreatedPR.Count)
	assert.InDelta(t, 50.0, *out["backend"].LOCPerCreatedPR.Mean, 1e-9)
}

func TestAggregatePoolsRawValues(t *testing.T) {
	values := map[string]*metrics.UserValues{
		"alice": {LOCPerCreatedPR: []float64{1, 3}},
		"bob":   {LOCPerCreatedPR: []float64{2, 4}},
	}
	groups := []schema.GroupDefinition{{Name: "pair", Members: fiveMembers}}

	loc := Aggregate(groups, values, nil)["pair"].LOCPerCreatedPR

	// Pooled, not a median of per-user medians (2 and 3).
	assert.Equal(t, 4, loc.Count)
	assert.InDelta(t, 1.0, *loc.Minimum, 1e-9)
	assert.InDelta(t, 4.0, *loc.Maximum, 1e-9)
	assert.InDelta(t, 2.5, *loc.Median, 1e-9)
	assert.InDelta(t, 2.5, *loc.Mean, 1e-9)
}
