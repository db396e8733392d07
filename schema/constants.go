package schema

// Custom string types for type safety.
type (
	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents the database backend for caching and run history.
	DatabaseBackend string

	// PRState represents the lifecycle state of a pull request.
	PRState string

	// ReviewOutcome represents the submitted state of a review.
	ReviewOutcome string

	// CommentKind distinguishes conversation comments from inline review comments.
	CommentKind string

	// EventKind tags an entry of a normalized PR timeline.
	EventKind int

	// CommitLabel is the classifier verdict for a single commit.
	CommitLabel string

	// PolicyState is the state of the data protection check for one run.
	PolicyState string

	// ViolationType identifies the scope a threshold violation applies to.
	ViolationType string

	// RunOutcome is what a recorded run ended with.
	RunOutcome string
)

// All output modes supported.
const (
	MarkdownOut OutputMode = "markdown" // default
	TextOut     OutputMode = "text"
	CSVOut      OutputMode = "csv"
	JSONOut     OutputMode = "json"
	ParquetOut  OutputMode = "parquet"
)

// All database backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// All pull request states.
const (
	OpenState   PRState = "open"
	ClosedState PRState = "closed"
	MergedState PRState = "merged"
)

// Review outcomes. Anything GitHub reports beyond these is treated as COMMENTED.
const (
	Approved         ReviewOutcome = "APPROVED"
	ChangesRequested ReviewOutcome = "CHANGES_REQUESTED"
	Commented        ReviewOutcome = "COMMENTED"
)

// Comment kinds.
const (
	IssueComment  CommentKind = "issue"
	ReviewComment CommentKind = "review"
)

// Timeline event kinds. The numeric order is the tie-break priority at equal timestamps.
const (
	EventReadyForReview EventKind = iota
	EventReviewRequest
	EventReview
	EventCommit
	EventComment
)

// Commit labels produced by the classifier.
const (
	RequestedCommit   CommitLabel = "requested"
	UnrequestedCommit CommitLabel = "unrequested"
	ExcludedCommit    CommitLabel = "excluded"
)

// Data protection states.
const (
	CheckingState             PolicyState = "CHECKING"
	ApprovedState             PolicyState = "APPROVED"
	BlockedState              PolicyState = "BLOCKED"
	AbortedState              PolicyState = "ABORTED"
	ApprovedWithOverrideState PolicyState = "APPROVED_WITH_OVERRIDE"
)

// Violation scopes.
const (
	GroupViolation           ViolationType = "group"
	RepositoryScopeViolation ViolationType = "repository_scope"
)

// Run outcomes stored in the history.
const (
	RunCompleted RunOutcome = "completed"
	RunBlocked   RunOutcome = "blocked"
	RunAborted   RunOutcome = "aborted"
	RunFailed    RunOutcome = "failed"
)

// Policy thresholds. These are fixed and intentionally not configurable.
const (
	MinGroupSize     = 5
	MinActiveMembers = 5
)

// RepositoryScope is the Scope value of a repository-scope violation.
const RepositoryScope = "run_scope"

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	MarkdownOut: {},
	TextOut:     {},
	CSVOut:      {},
	JSONOut:     {},
	ParquetOut:  {},
}

// ValidDatabaseBackends lists all valid database backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// String returns the name of the event kind.
func (k EventKind) String() string {
	switch k {
	case EventReadyForReview:
		return "ready_for_review"
	case EventReviewRequest:
		return "review_requested"
	case EventReview:
		return "review"
	case EventCommit:
		return "commit"
	case EventComment:
		return "comment"
	default:
		return "unknown"
	}
}

// NormalizeOutcome maps a raw GitHub review state onto a ReviewOutcome.
func NormalizeOutcome(state string) ReviewOutcome {
	switch ReviewOutcome(state) {
	case Approved:
		return Approved
	case ChangesRequested:
		return ChangesRequested
	default:
		return Commented
	}
}
