package schema

import "errors"

// Sentinel errors used across packages. Wrap them with fmt.Errorf and test with errors.Is.
var (
	// ErrGroupTooSmall is a configuration error: a group has fewer than MinGroupSize members.
	ErrGroupTooSmall = errors.New("group has fewer members than the data protection minimum")

	// ErrOverrideAborted means the override ritual was not completed.
	ErrOverrideAborted = errors.New("data protection override aborted")

	// ErrInvalidPullRequest flags a record that breaks the PR time invariants.
	ErrInvalidPullRequest = errors.New("invalid pull request record")

	// ErrUserKeyInOutput is raised when a per-user key reaches group output.
	ErrUserKeyInOutput = errors.New("per-user key found in group output")
)
