package schema

import "time"

// MetricKey names a metric in repository or group output.
type MetricKey string

// Repository metric keys.
const (
	OpenPRDuration              MetricKey = "open_pr_duration"
	ClosedPRDuration            MetricKey = "closed_pr_duration"
	MergedPRDuration            MetricKey = "merged_pr_duration"
	TimeToFirstReview           MetricKey = "time_to_first_review"
	ChangesRequestedToReRequest MetricKey = "changes_requested_to_re_request"
	CommitsPerPR                MetricKey = "commits_per_pr"
	ReReviewsPerPR              MetricKey = "re_reviews_per_pr"
	CommentsPer100LOC           MetricKey = "comments_per_100_loc"
	RequestedCommitsPerPR       MetricKey = "requested_commits_per_pr"
	UnrequestedCommitsPerPR     MetricKey = "unrequested_commits_per_pr"
)

// Group metric keys.
const (
	TimeToSubmitReview          MetricKey = "time_to_submit_review"
	LOCPerCreatedPR             MetricKey = "loc_per_created_pr"
	CommentsPer100LOCAsReviewer MetricKey = "comments_per_100_loc_as_reviewer"
	CommentsPer100LOCAsAuthor   MetricKey = "comments_per_100_loc_as_author"
	ChangesRequestedRate        MetricKey = "changes_requested_rate"
	DirectApprovalRate          MetricKey = "direct_approval_rate"
)

// Distribution summarizes a multiset of numbers. All value fields are nil when Count is 0.
type Distribution struct {
	Count   int      `json:"count"`
	Minimum *float64 `json:"minimum,omitempty"`
	Maximum *float64 `json:"maximum,omitempty"`
	Mean    *float64 `json:"mean,omitempty"`
	Median  *float64 `json:"median,omitempty"`
}

// HasData reports whether the distribution has at least one sample.
func (d Distribution) HasData() bool {
	return d.Count > 0
}

// NamedDistribution pairs a metric with its distribution and display unit.
type NamedDistribution struct {
	Key          MetricKey
	Unit         string
	Distribution Distribution
}

// NamedRate pairs a metric with a percentage. Value is nil when there was no denominator.
type NamedRate struct {
	Key   MetricKey
	Value *float64
}

// RepoStats holds repository-level distributions.
type RepoStats struct {
	OpenPRDuration              Distribution `json:"open_pr_duration"`
	ClosedPRDuration            Distribution `json:"closed_pr_duration"`
	MergedPRDuration            Distribution `json:"merged_pr_duration"`
	TimeToFirstReview           Distribution `json:"time_to_first_review"`
	ChangesRequestedToReRequest Distribution `json:"changes_requested_to_re_request"`
	CommitsPerPR                Distribution `json:"commits_per_pr"`
	ReReviewsPerPR              Distribution `json:"re_reviews_per_pr"`
	CommentsPer100LOC           Distribution `json:"comments_per_100_loc"`
	RequestedCommitsPerPR       Distribution `json:"requested_commits_per_pr"`
	UnrequestedCommitsPerPR     Distribution `json:"unrequested_commits_per_pr"`

	PullRequests              int `json:"pull_requests"`
	ZeroLOCExcluded           int `json:"zero_loc_excluded"`
	ClassificationUnavailable int `json:"classification_unavailable"`
	DegradedTimelines         int `json:"degraded_timelines"`
	InconsistentSkipped       int `json:"inconsistent_skipped"`
}

// Distributions returns the repository metrics in display order.
func (s RepoStats) Distributions() []NamedDistribution {
	return []NamedDistribution{
		{OpenPRDuration, "days", s.OpenPRDuration},
		{ClosedPRDuration, "days", s.ClosedPRDuration},
		{MergedPRDuration, "days", s.MergedPRDuration},
		{TimeToFirstReview, "days", s.TimeToFirstReview},
		{ChangesRequestedToReRequest, "days", s.ChangesRequestedToReRequest},
		{CommitsPerPR, "", s.CommitsPerPR},
		{ReReviewsPerPR, "", s.ReReviewsPerPR},
		{CommentsPer100LOC, "", s.CommentsPer100LOC},
		{RequestedCommitsPerPR, "", s.RequestedCommitsPerPR},
		{UnrequestedCommitsPerPR, "", s.UnrequestedCommitsPerPR},
	}
}

// GroupStats holds pooled group-level figures. It never carries per-user data.
type GroupStats struct {
	MemberCount       int `json:"member_count"`
	ActiveMemberCount int `json:"active_member_count"`
	ReviewsSubmitted  int `json:"reviews_submitted"`

	TimeToSubmitReview          Distribution `json:"time_to_submit_review"`
	LOCPerCreatedPR             Distribution `json:"loc_per_created_pr"`
	CommentsPer100LOCAsReviewer Distribution `json:"comments_per_100_loc_as_reviewer"`
	CommentsPer100LOCAsAuthor   Distribution `json:"comments_per_100_loc_as_author"`

	ChangesRequestedRate *float64 `json:"changes_requested_rate,omitempty"`
	DirectApprovalRate   *float64 `json:"direct_approval_rate,omitempty"`
}

// Distributions returns the group metrics in display order.
func (s GroupStats) Distributions() []NamedDistribution {
	return []NamedDistribution{
		{TimeToSubmitReview, "hours", s.TimeToSubmitReview},
		{LOCPerCreatedPR, "", s.LOCPerCreatedPR},
		{CommentsPer100LOCAsReviewer, "", s.CommentsPer100LOCAsReviewer},
		{CommentsPer100LOCAsAuthor, "", s.CommentsPer100LOCAsAuthor},
	}
}

// Rates returns the group rates in display order.
func (s GroupStats) Rates() []NamedRate {
	return []NamedRate{
		{ChangesRequestedRate, s.ChangesRequestedRate},
		{DirectApprovalRate, s.DirectApprovalRate},
	}
}

// ReportMetadata describes how a report was produced.
type ReportMetadata struct {
	Window           ActivityWindow `json:"window"`
	AsOf             time.Time      `json:"as_of"`
	Repositories     []string       `json:"repositories"`
	GroupsConsidered []string       `json:"groups_considered"`
	PullRequests     int            `json:"pull_requests"`
	PolicyState      PolicyState    `json:"policy_state"`
	OverrideUsed     bool           `json:"override_used"`
	Violations       []Violation    `json:"violations,omitempty"` // kept when an override was used
}

// Report is the output handed to renderers when the run is approved.
type Report struct {
	RepoStats  map[string]RepoStats  `json:"repo_stats"`
	GroupStats map[string]GroupStats `json:"group_stats"`
	Metadata   ReportMetadata        `json:"metadata"`
}

// BlockedResult replaces a Report when thresholds fail and no override was exercised.
type BlockedResult struct {
	State        PolicyState `json:"state"`
	FailedGroups []string    `json:"failed_groups"`
	Violations   []Violation `json:"violations"`
}
