package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huangsam/prstats/schema"
)

var base = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func day(n float64) time.Time {
	return base.Add(time.Duration(n * 24 * float64(time.Hour)))
}

func ptr(t time.Time) *time.Time { return &t }

func TestComputeRepoStatsDurations(t *testing.T) {
	prs := []schema.PullRequest{
		{Number: 1, Author: "alice", CreatedAt: day(0), State: schema.OpenState, Additions: 10},
		{Number: 2, Author: "bob", CreatedAt: day(0), State: schema.ClosedState, ClosedAt: ptr(day(2)), Additions: 10},
		{Number: 3, Author: "carol", CreatedAt: day(0), State: schema.MergedState, ClosedAt: ptr(day(4)), MergedAt: ptr(day(4)), Additions: 10},
		{Number: 4, Author: "dave", CreatedAt: day(1), State: schema.MergedState, ClosedAt: ptr(day(2)), MergedAt: ptr(day(2)), Additions: 10},
	}

	stats := ComputeRepoStats(prs, day(5))

	assert.Equal(t, 4, stats.PullRequests)
	require.Equal(t, 1, stats.OpenPRDuration.Count)
	assert.InDelta(t, 5.0, *stats.OpenPRDuration.Median, 1e-9)
	require.Equal(t, 1, stats.ClosedPRDuration.Count)
	assert.InDelta(t, 2.0, *stats.ClosedPRDuration.Median, 1e-9)
	require.Equal(t, 2, stats.MergedPRDuration.Count)
	assert.InDelta(t, 1.0, *stats.MergedPRDuration.Minimum, 1e-9)
	assert.InDelta(t, 4.0, *stats.MergedPRDuration.Maximum, 1e-9)
	assert.InDelta(t, 2.5, *stats.MergedPRDuration.Mean, 1e-9)
}

func TestComputeRepoStatsEmpty(t *testing.T) {
	stats := ComputeRepoStats(nil, base)

	assert.Equal(t, 0, stats.PullRequests)
	for _, d := range stats.Distributions() {
		assert.False(t, d.Distribution.HasData(), d.Key)
		assert.Nil(t, d.Distribution.Median, d.Key)
	}
}

func TestComputeRepoStatsReviews(t *testing.T) {
	pr := schema.PullRequest{
		Number: 7, Author: "alice", CreatedAt: day(0), State: schema.OpenState,
		Additions: 150, Deletions: 50,
		Reviews: []schema.ReviewEvent{
			{Reviewer: "bob", SubmittedAt: day(2), Outcome: schema.ChangesRequested},
			{Reviewer: "carol", SubmittedAt: day(1), Outcome: schema.Commented},
			{Reviewer: "bob", SubmittedAt: day(4), Outcome: schema.Approved},
			{Reviewer: "bob", SubmittedAt: day(5), Outcome: schema.Approved},
		},
		ReviewRequests: []schema.ReviewRequestEvent{
			{RequestedAt: day(0), RequestedReviewers: []string{"bob", "carol"}},
			{RequestedAt: day(3.5), RequestedReviewers: []string{"carol"}},
			{RequestedAt: day(3), RequestedReviewers: []string{"bob"}},
		},
		Comments: []schema.CommentInfo{
			{Author: "bob", CreatedAt: day(2)},
			{Author: "alice", CreatedAt: day(2)},
			{Author: "carol", CreatedAt: day(1)},
			{Author: "bob", CreatedAt: day(4)},
		},
	}

	stats := ComputeRepoStats([]schema.PullRequest{pr}, day(6))

	require.Equal(t, 1, stats.TimeToFirstReview.Count)
	assert.InDelta(t, 1.0, *stats.TimeToFirstReview.Median, 1e-9)

	require.Equal(t, 1, stats.ChangesRequestedToReRequest.Count)
	assert.InDelta(t, 1.0, *stats.ChangesRequestedToReRequest.Median, 1e-9)

	require.Equal(t, 1, stats.ReReviewsPerPR.Count)
	assert.InDelta(t, 2.0, *stats.ReReviewsPerPR.Median, 1e-9)

	require.Equal(t, 1, stats.CommentsPer100LOC.Count)
	assert.InDelta(t, 2.0, *stats.CommentsPer100LOC.Median, 1e-9)
}

func TestComputeRepoStatsReReviewsOnlyWhenPresent(t *testing.T) {
	reviewedBy := func(number, reviews int) schema.PullRequest {
		pr := schema.PullRequest{Number: number, Author: "alice", CreatedAt: day(0), State: schema.OpenState, Additions: 10}
		for i := range reviews {
			pr.Reviews = append(pr.Reviews, schema.ReviewEvent{Reviewer: "bob", SubmittedAt: day(float64(i + 1)), Outcome: schema.Commented})
		}
		return pr
	}
	prs := []schema.PullRequest{reviewedBy(1, 1), reviewedBy(2, 1), reviewedBy(3, 2), reviewedBy(4, 0)}

	stats := ComputeRepoStats(prs, day(5))

	require.Equal(t, 1, stats.ReReviewsPerPR.Count)
	assert.InDelta(t, 1.0, *stats.ReReviewsPerPR.Median, 1e-9)
	assert.InDelta(t, 1.0, *stats.ReReviewsPerPR.Mean, 1e-9)
}

func TestComputeRepoStatsChangesRequestedWithoutReRequest(t *testing.T) {
	pr := schema.PullRequest{
		Number: 8, Author: "alice", CreatedAt: day(0), State: schema.OpenState, Additions: 1,
		Reviews: []schema.ReviewEvent{
			{Reviewer: "bob", SubmittedAt: day(1), Outcome: schema.ChangesRequested},
		},
		ReviewRequests: []schema.ReviewRequestEvent{
			{RequestedAt: day(0), RequestedReviewers: []string{"bob"}},
			{RequestedAt: day(2), RequestedReviewers: []string{"carol"}},
		},
	}

	stats := ComputeRepoStats([]schema.PullRequest{pr}, day(3))

	assert.False(t, stats.ChangesRequestedToReRequest.HasData())
	assert.Equal(t, 1, stats.TimeToFirstReview.Count)
}

func TestComputeRepoStatsZeroLOC(t *testing.T) {
	prs := []schema.PullRequest{
		{Number: 1, Author: "alice", CreatedAt: day(0), State: schema.OpenState,
			Comments: []schema.CommentInfo{{Author: "bob", CreatedAt: day(1)}}},
		{Number: 2, Author: "alice", CreatedAt: day(0), State: schema.OpenState, Additions: 50,
			Comments: []schema.CommentInfo{{Author: "bob", CreatedAt: day(1)}}},
	}

	stats := ComputeRepoStats(prs, day(1))

	assert.Equal(t, 1, stats.ZeroLOCExcluded)
	require.Equal(t, 1, stats.CommentsPer100LOC.Count)
	assert.InDelta(t, 2.0, *stats.CommentsPer100LOC.Median, 1e-9)
}

func TestComputeRepoStatsClassification(t *testing.T) {
	prs := []schema.PullRequest{
		{
			Number: 1, Author: "alice", CreatedAt: day(0), State: schema.OpenState, Additions: 5,
			ReviewRequests: []schema.ReviewRequestEvent{{RequestedAt: day(1), RequestedReviewers: []string{"bob"}}},
			Reviews:        []schema.ReviewEvent{{Reviewer: "bob", SubmittedAt: day(2), Outcome: schema.ChangesRequested}},
			Commits: []schema.CommitInfo{
				{SHA: "a", Author: "alice", AuthoredAt: day(0.5)},
				{SHA: "b", Author: "alice", AuthoredAt: day(3)},
				{SHA: "c", Author: "alice", AuthoredAt: day(3.5), IsMerge: true},
			},
		},
		{
			Number: 2, Author: "alice", CreatedAt: day(0), State: schema.OpenState, Additions: 5,
			TimelineUnavailable: true,
			Commits:             []schema.CommitInfo{{SHA: "d", Author: "alice", AuthoredAt: day(1)}},
		},
	}

	stats := ComputeRepoStats(prs, day(4))

	assert.Equal(t, 1, stats.ClassificationUnavailable)
	require.Equal(t, 1, stats.RequestedCommitsPerPR.Count)
	assert.InDelta(t, 1.0, *stats.RequestedCommitsPerPR.Median, 1e-9)
	require.Equal(t, 1, stats.UnrequestedCommitsPerPR.Count)
	assert.InDelta(t, 1.0, *stats.UnrequestedCommitsPerPR.Median, 1e-9)
	require.Equal(t, 2, stats.CommitsPerPR.Count)
	assert.InDelta(t, 3.0, *stats.CommitsPerPR.Maximum, 1e-9)
}

func TestComputeRepoStatsDeterministic(t *testing.T) {
	prs := []schema.PullRequest{
		{Number: 1, Author: "alice", CreatedAt: day(0), State: schema.OpenState, Additions: 3},
		{Number: 2, Author: "bob", CreatedAt: day(1), State: schema.MergedState, ClosedAt: ptr(day(3)), MergedAt: ptr(day(3)), Additions: 9},
	}
	assert.Equal(t, ComputeRepoStats(prs, day(4)), ComputeRepoStats(prs, day(4)))
}
