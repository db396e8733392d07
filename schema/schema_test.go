package schema

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPullRequestValidate(t *testing.T) {
	created := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	later := created.Add(48 * time.Hour)
	earlier := created.Add(-time.Hour)
	other := later.Add(time.Hour)

	tests := []struct {
		name    string
		pr      PullRequest
		wantErr bool
	}{
		{"open", PullRequest{CreatedAt: created, State: OpenState}, false},
		{"closed", PullRequest{CreatedAt: created, ClosedAt: &later, State: ClosedState}, false},
		{"merged", PullRequest{CreatedAt: created, ClosedAt: &later, MergedAt: &later, State: MergedState}, false},
		{"closed before created", PullRequest{CreatedAt: created, ClosedAt: &earlier, State: ClosedState}, true},
		{"merged with wrong state", PullRequest{CreatedAt: created, ClosedAt: &later, MergedAt: &later, State: ClosedState}, true},
		{"merged_at differs from closed_at", PullRequest{CreatedAt: created, ClosedAt: &other, MergedAt: &later, State: MergedState}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.pr.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidPullRequest))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPullRequestReadyAt(t *testing.T) {
	created := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	ready := created.Add(3 * time.Hour)

	pr := PullRequest{CreatedAt: created}
	assert.Equal(t, created, pr.ReadyAt())

	pr.ReadyForReview = &ReadyForReviewEvent{OccurredAt: ready}
	assert.Equal(t, ready, pr.ReadyAt())
	assert.Equal(t, 0, pr.ChangedLines())
}

func TestActivityWindowContains(t *testing.T) {
	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	w := ActivityWindow{Since: &since, Until: &until}

	assert.True(t, w.Contains(since), "since is inclusive")
	assert.True(t, w.Contains(until), "until is inclusive")
	assert.False(t, w.Contains(since.Add(-time.Second)))
	assert.False(t, w.Contains(until.Add(time.Second)))
	assert.True(t, ActivityWindow{}.Contains(time.Time{}), "open window contains everything")
	assert.Equal(t, until, w.AsOf(time.Now()))
}

func TestNormalizeOutcome(t *testing.T) {
	assert.Equal(t, Approved, NormalizeOutcome("APPROVED"))
	assert.Equal(t, ChangesRequested, NormalizeOutcome("CHANGES_REQUESTED"))
	assert.Equal(t, Commented, NormalizeOutcome("COMMENTED"))
	assert.Equal(t, Commented, NormalizeOutcome("DISMISSED"))
}

func TestCheckResultFailedGroups(t *testing.T) {
	r := CheckResult{Violations: []Violation{
		{Type: GroupViolation, Scope: "backend"},
		{Type: RepositoryScopeViolation, Scope: RepositoryScope},
		{Type: GroupViolation, Scope: "frontend"},
	}}
	assert.False(t, r.Passed())
	assert.Equal(t, []string{"backend", "frontend"}, r.FailedGroups())
}
