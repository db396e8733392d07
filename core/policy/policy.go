// Package policy enforces the data protection thresholds and runs the override ritual
// that may release output despite a violation.
package policy

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/huangsam/prstats/internal/contract"
	"github.com/huangsam/prstats/schema"
)

// Disclaimer is shown to the operator before asking for override confirmation.
const Disclaimer = `WARNING: data protection thresholds were not met.
Publishing these statistics may allow conclusions about individual people.
Only continue if this use has been cleared with whoever is responsible for
data protection in your organization.
`

// ConfirmPrompt asks for the confirmation token.
const ConfirmPrompt = "Type 'y' or 'yes' to publish the statistics anyway: "

// BlockedError carries a blocked check result up to the caller. It unwraps to
// ErrOverrideAborted so callers that only care about "no output" can use errors.Is.
type BlockedError struct {
	Result schema.CheckResult
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("data protection check failed with %d violation(s); rerun with the override directive to publish anyway", len(e.Result.Violations))
}

func (e *BlockedError) Unwrap() error {
	return schema.ErrOverrideAborted
}

// Blocked converts the error into the result shown instead of a report.
func (e *BlockedError) Blocked() schema.BlockedResult {
	return schema.BlockedResult{
		State:        schema.BlockedState,
		FailedGroups: e.Result.FailedGroups(),
		Violations:   e.Result.Violations,
	}
}

// ValidateGroups checks the configured groups before anything is collected. Every group needs a
// unique non-empty name and at least MinGroupSize distinct members, and no group may be named
// after a member of any group.
func ValidateGroups(groups []schema.GroupDefinition) error {
	members := make(map[string]struct{})
	seen := make(map[string]struct{}, len(groups))
	for _, g := range groups {
		if strings.TrimSpace(g.Name) == "" {
			return fmt.Errorf("user group name cannot be empty")
		}
		if _, dup := seen[g.Name]; dup {
			return fmt.Errorf("user group %q is defined more than once", g.Name)
		}
		seen[g.Name] = struct{}{}

		for _, m := range g.Members {
			if strings.TrimSpace(m) == "" {
				return fmt.Errorf("user group %q has an empty member name", g.Name)
			}
		}
		unique := schema.UniqueStrings(g.Members)
		if len(unique) < schema.MinGroupSize {
			return fmt.Errorf("%w: group %q has %d members, minimum required is %d",
				schema.ErrGroupTooSmall, g.Name, len(unique), schema.MinGroupSize)
		}
		for _, m := range unique {
			members[m] = struct{}{}
		}
	}
	for _, g := range groups {
		if _, clash := members[g.Name]; clash {
			return fmt.Errorf("user group %q has the same name as a user; rename the group", g.Name)
		}
	}
	return nil
}

// ActiveUsers returns the authors with at least one commit inside window across all prs.
// Undated commits never count.
func ActiveUsers(prs map[string][]schema.PullRequest, window schema.ActivityWindow) map[string]struct{} {
	active := make(map[string]struct{})
	for _, repo := range schema.SortedKeys(prs) {
		for _, pr := range prs[repo] {
			for _, c := range pr.Commits {
				if c.Author == "" || c.AuthoredAt.IsZero() {
					continue
				}
				if window.Contains(c.AuthoredAt) {
					active[c.Author] = struct{}{}
				}
			}
		}
	}
	return active
}

// Enforce counts active members per group and across the whole run and reports every
// count below MinActiveMembers as a violation.
func Enforce(prs map[string][]schema.PullRequest, groups []schema.GroupDefinition, window schema.ActivityWindow) schema.CheckResult {
	active := ActiveUsers(prs, window)
	result := schema.CheckResult{
		State:                 schema.CheckingState,
		GroupActiveCounts:     make(map[string]int, len(groups)),
		GroupMemberCounts:     make(map[string]int, len(groups)),
		RepositoryActiveCount: len(active),
		Threshold:             schema.MinActiveMembers,
		Violations:            []schema.Violation{},
	}

	for _, g := range groups {
		members := schema.UniqueStrings(g.Members)
		count := 0
		for _, m := range members {
			if _, ok := active[m]; ok {
				count++
			}
		}
		result.GroupActiveCounts[g.Name] = count
		result.GroupMemberCounts[g.Name] = len(members)
		if count < schema.MinActiveMembers {
			result.Violations = append(result.Violations, schema.Violation{
				Type:        schema.GroupViolation,
				Scope:       g.Name,
				ActiveCount: count,
				Threshold:   schema.MinActiveMembers,
				Message:     fmt.Sprintf("Group '%s' has %d active members, minimum required is %d", g.Name, count, schema.MinActiveMembers),
			})
		}
	}

	if len(active) < schema.MinActiveMembers {
		result.Violations = append(result.Violations, schema.Violation{
			Type:        schema.RepositoryScopeViolation,
			Scope:       schema.RepositoryScope,
			ActiveCount: len(active),
			Threshold:   schema.MinActiveMembers,
			Message:     fmt.Sprintf("Repository scope has %d active members, minimum required is %d", len(active), schema.MinActiveMembers),
		})
	}

	if result.Passed() {
		result.State = schema.ApprovedState
	} else {
		result.State = schema.BlockedState
	}
	return result
}

// Govern decides whether output may be produced for result.
//
// A passing result is APPROVED. A failing one is APPROVED_WITH_OVERRIDE only if, in this order,
// the override directive was given, the disclaimer was written to disclaimer and confirm
// returned "y" or "yes". Any other path is ABORTED. Without the directive the error is a
// *BlockedError, otherwise it wraps ErrOverrideAborted. Nothing is retried.
func Govern(result schema.CheckResult, directive bool, disclaimer io.Writer, confirm contract.ConfirmationSource) (schema.PolicyState, error) {
	if result.Passed() {
		return schema.ApprovedState, nil
	}
	if !directive {
		return schema.AbortedState, &BlockedError{Result: result}
	}
	if disclaimer == nil {
		return schema.AbortedState, fmt.Errorf("%w: no disclaimer sink", schema.ErrOverrideAborted)
	}
	if _, err := io.WriteString(disclaimer, renderDisclaimer(result)); err != nil {
		return schema.AbortedState, fmt.Errorf("%w: showing disclaimer: %w", schema.ErrOverrideAborted, err)
	}
	if confirm == nil {
		return schema.AbortedState, fmt.Errorf("%w: no confirmation source", schema.ErrOverrideAborted)
	}
	token, err := confirm.Confirm(ConfirmPrompt)
	if err != nil {
		return schema.AbortedState, fmt.Errorf("%w: reading confirmation: %w", schema.ErrOverrideAborted, err)
	}
	if !IsAffirmative(token) {
		return schema.AbortedState, fmt.Errorf("%w: operator answered %q", schema.ErrOverrideAborted, strings.TrimSpace(token))
	}
	return schema.ApprovedWithOverrideState, nil
}

// IsAffirmative reports whether token is "y" or "yes", ignoring case and surrounding space.
func IsAffirmative(token string) bool {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "y", "yes":
		return true
	}
	return false
}

// IsBlocked reports whether err came from a blocked run without override directive.
func IsBlocked(err error) bool {
	var blocked *BlockedError
	return errors.As(err, &blocked)
}

func renderDisclaimer(result schema.CheckResult) string {
	var sb strings.Builder
	sb.WriteString(Disclaimer)
	sb.WriteString("\nViolations:\n")
	for _, v := range result.Violations {
		fmt.Fprintf(&sb, "  - %s\n", v.Message)
	}
	sb.WriteString("\n")
	return sb.String()
}
