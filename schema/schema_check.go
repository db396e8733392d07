package schema

// Violation is a single data protection threshold failure.
type Violation struct {
	Type        ViolationType `json:"violation_type"`
	Scope       string        `json:"scope"`
	ActiveCount int           `json:"active_count"`
	Threshold   int           `json:"threshold"`
	Message     string        `json:"message"`
}

// CheckResult holds the outcome of the active-member threshold check.
type CheckResult struct {
	State                 PolicyState    `json:"state"`
	GroupActiveCounts     map[string]int `json:"group_active_counts"`
	GroupMemberCounts     map[string]int `json:"group_member_counts"`
	RepositoryActiveCount int            `json:"repository_scope_active_count"`
	Threshold             int            `json:"threshold"`
	Violations            []Violation    `json:"violations"`
}

// Passed reports whether no threshold was violated.
func (r CheckResult) Passed() bool {
	return len(r.Violations) == 0
}

// FailedGroups returns the group names with a violation, in violation order.
func (r CheckResult) FailedGroups() []string {
	var out []string
	for _, v := range r.Violations {
		if v.Type == GroupViolation {
			out = append(out, v.Scope)
		}
	}
	return out
}
