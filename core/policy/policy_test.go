package policy

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/huangsam/prstats/internal/contract"
	"github.com/huangsam/prstats/schema"
)

var (
	since = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	until = time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
)

func window() schema.ActivityWindow {
	s, u := since, until
	return schema.ActivityWindow{Since: &s, Until: &u}
}

func prWithCommits(authors ...string) schema.PullRequest {
	pr := schema.PullRequest{Repository: "org/repo1", Number: 1, Author: "alice", CreatedAt: since, State: schema.OpenState}
	for i, a := range authors {
		pr.Commits = append(pr.Commits, schema.CommitInfo{
			SHA:        fmt.Sprintf("c%d", i),
			Author:     a,
			AuthoredAt: since.AddDate(0, 0, i+1),
		})
	}
	return pr
}

func TestValidateGroups(t *testing.T) {
	tests := []struct {
		name     string
		groups   []schema.GroupDefinition
		wantErr  string
		tooSmall bool
	}{
		{
			name:   "valid",
			groups: []schema.GroupDefinition{{Name: "g", Members: []string{"a", "b", "c", "d", "e"}}},
		},
		{
			name:     "four members",
			groups:   []schema.GroupDefinition{{Name: "g", Members: []string{"a", "b", "c", "d"}}},
			wantErr:  "has 4 members",
			tooSmall: true,
		},
		{
			name:     "duplicates do not count twice",
			groups:   []schema.GroupDefinition{{Name: "g", Members: []string{"a", "a", "b", "c", "d"}}},
			wantErr:  "has 4 members",
			tooSmall: true,
		},
		{
			name:    "empty member",
			groups:  []schema.GroupDefinition{{Name: "g", Members: []string{"a", "b", "c", "d", "e", " "}}},
			wantErr: "empty member",
		},
		{
			name:    "empty name",
			groups:  []schema.GroupDefinition{{Name: "", Members: []string{"a", "b", "c", "d", "e"}}},
			wantErr: "name cannot be empty",
		},
		{
			name: "group named after a user",
			groups: []schema.GroupDefinition{
				{Name: "a", Members: []string{"v", "w", "x", "y", "z"}},
				{Name: "g", Members: []string{"a", "b", "c", "d", "e"}},
			},
			wantErr: "same name as a user",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateGroups(tt.groups)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, tt.tooSmall, errors.Is(err, schema.ErrGroupTooSmall))
		})
	}
}

func TestActiveUsers(t *testing.T) {
	pr := prWithCommits("alice", "bob")
	pr.Commits = append(pr.Commits,
		schema.CommitInfo{SHA: "early", Author: "carol", AuthoredAt: since.Add(-time.Second)},
		schema.CommitInfo{SHA: "edge", Author: "dave", AuthoredAt: until},
		schema.CommitInfo{SHA: "undated", Author: "erin"},
	)

	active := ActiveUsers(map[string][]schema.PullRequest{"org/repo1": {pr}}, window())

	assert.Equal(t, []string{"alice", "bob", "dave"}, schema.SortedKeys(active))
}

func TestEnforceBlocksBelowThreshold(t *testing.T) {
	prs := map[string][]schema.PullRequest{"org/repo1": {prWithCommits("alice", "bob", "carol")}}
	groups := []schema.GroupDefinition{{Name: "team_alpha", Members: []string{"alice", "bob", "carol", "dave", "erin"}}}

	result := Enforce(prs, groups, window())

	assert.Equal(t, schema.BlockedState, result.State)
	assert.False(t, result.Passed())
	require.Len(t, result.Violations, 2)
	assert.Equal(t, schema.GroupViolation, result.Violations[0].Type)
	assert.Equal(t, "team_alpha", result.Violations[0].Scope)
	assert.Equal(t, 3, result.Violations[0].ActiveCount)
	assert.Equal(t, "Group 'team_alpha' has 3 active members, minimum required is 5", result.Violations[0].Message)
	assert.Equal(t, schema.RepositoryScopeViolation, result.Violations[1].Type)
	assert.Equal(t, schema.RepositoryScope, result.Violations[1].Scope)
	assert.Equal(t, 3, result.RepositoryActiveCount)
	assert.Equal(t, []string{"team_alpha"}, result.FailedGroups())
}

func TestEnforceActiveMemberBoundary(t *testing.T) {
	members := []string{"a", "b", "c", "d", "e", "f"}
	groups := []schema.GroupDefinition{{Name: "six", Members: members}}

	four := Enforce(map[string][]schema.PullRequest{"r": {prWithCommits("a", "b", "c", "d", "x1")}}, groups, window())
	assert.Equal(t, schema.BlockedState, four.State)
	assert.Equal(t, 4, four.GroupActiveCounts["six"])
	assert.Equal(t, 6, four.GroupMemberCounts["six"])

	five := Enforce(map[string][]schema.PullRequest{"r": {prWithCommits("a", "b", "c", "d", "e")}}, groups, window())
	assert.Equal(t, schema.ApprovedState, five.State)
	assert.Empty(t, five.Violations)
}

func TestEnforceRepositoryScopeAcrossRepos(t *testing.T) {
	prs := map[string][]schema.PullRequest{
		"org/a": {prWithCommits("alice", "bob", "carol")},
		"org/b": {prWithCommits("dave", "erin", "alice")},
	}
	groups := []schema.GroupDefinition{{Name: "g", Members: []string{"alice", "bob", "carol", "dave", "erin"}}}

	result := Enforce(prs, groups, window())

	assert.Equal(t, 5, result.RepositoryActiveCount)
	assert.Equal(t, schema.ApprovedState, result.State)
}

func blocked() schema.CheckResult {
	return schema.CheckResult{
		State: schema.BlockedState,
		Violations: []schema.Violation{{
			Type: schema.GroupViolation, Scope: "g", ActiveCount: 2, Threshold: 5,
			Message: "Group 'g' has 2 active members, minimum required is 5",
		}},
	}
}

func TestGovern(t *testing.T) {
	tests := []struct {
		name      string
		result    schema.CheckResult
		directive bool
		answer    string
		answerErr error
		asked     bool
		want      schema.PolicyState
		blocked   bool
		aborted   bool
	}{
		{name: "passing result", result: schema.CheckResult{State: schema.ApprovedState}, want: schema.ApprovedState},
		{name: "no directive even with yes", result: blocked(), answer: "y", want: schema.AbortedState, blocked: true, aborted: true},
		{name: "directive and no", result: blocked(), directive: true, answer: "n", asked: true, want: schema.AbortedState, aborted: true},
		{name: "directive and empty", result: blocked(), directive: true, answer: "", asked: true, want: schema.AbortedState, aborted: true},
		{name: "directive and read error", result: blocked(), directive: true, answerErr: errors.New("closed"), asked: true, want: schema.AbortedState, aborted: true},
		{name: "directive and y", result: blocked(), directive: true, answer: "y", asked: true, want: schema.ApprovedWithOverrideState},
		{name: "directive and YES", result: blocked(), directive: true, answer: " YES ", asked: true, want: schema.ApprovedWithOverrideState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			confirm := &contract.MockConfirmationSource{}
			if tt.asked {
				confirm.On("Confirm", ConfirmPrompt).Return(tt.answer, tt.answerErr).Once()
			}
			var disclaimer strings.Builder

			state, err := Govern(tt.result, tt.directive, &disclaimer, confirm)

			assert.Equal(t, tt.want, state)
			assert.Equal(t, tt.blocked, IsBlocked(err))
			assert.Equal(t, tt.aborted, errors.Is(err, schema.ErrOverrideAborted))
			if tt.want == schema.ApprovedState || tt.want == schema.ApprovedWithOverrideState {
				assert.NoError(t, err)
			}
			if tt.asked {
				assert.Contains(t, disclaimer.String(), "WARNING")
				assert.Contains(t, disclaimer.String(), "Group 'g' has 2 active members")
			} else {
				assert.Empty(t, disclaimer.String())
			}
			confirm.AssertExpectations(t)
		})
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestGovernDisclaimerMustBeShown(t *testing.T) {
	confirm := &contract.MockConfirmationSource{}

	state, err := Govern(blocked(), true, failingWriter{}, confirm)
	assert.Equal(t, schema.AbortedState, state)
	assert.ErrorIs(t, err, schema.ErrOverrideAborted)

	state, err = Govern(blocked(), true, nil, confirm)
	assert.Equal(t, schema.AbortedState, state)
	assert.ErrorIs(t, err, schema.ErrOverrideAborted)

	confirm.AssertNotCalled(t, "Confirm", mock.Anything)
}

func TestBlockedError(t *testing.T) {
	_, err := Govern(blocked(), false, nil, nil)

	var be *BlockedError
	require.ErrorAs(t, err, &be)
	assert.Contains(t, err.Error(), "data protection")
	res := be.Blocked()
	assert.Equal(t, schema.BlockedState, res.State)
	assert.Equal(t, []string{"g"}, res.FailedGroups)
	assert.Len(t, res.Violations, 1)
}

func TestIsAffirmative(t *testing.T) {
	for token, want := range map[string]bool{"y": true, "Yes": true, " yes\n": true, "n": false, "yess": false, "": false, "ok": false} {
		assert.Equal(t, want, IsAffirmative(token), token)
	}
}
