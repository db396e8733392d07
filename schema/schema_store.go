package schema

import "time"

// RunRecord represents a row from the prstats_runs table.
type RunRecord struct {
	RunID         int64
	StartTime     time.Time
	EndTime       *time.Time
	RunDurationMs *int64
	Outcome       *string
	OverrideUsed  bool
	PullRequests  int32
	ConfigParams  *string
}

// GroupStatsRecord represents a row from the prstats_group_stats table.
// Only medians and rates are persisted; raw samples never leave the aggregator.
type GroupStatsRecord struct {
	RunID                    int64
	GroupName                string
	RecordedAt               time.Time
	MemberCount              int32
	ActiveMemberCount        int32
	ReviewsSubmitted         int32
	TimeToSubmitReviewMedian *float64
	LOCPerCreatedPRMedian    *float64
	CommentsAsReviewerMedian *float64
	CommentsAsAuthorMedian   *float64
	ChangesRequestedRate     *float64
	DirectApprovalRate       *float64
}

// NewGroupStatsRecord flattens GroupStats into a history row.
func NewGroupStatsRecord(runID int64, group string, recordedAt time.Time, stats GroupStats) GroupStatsRecord {
	return GroupStatsRecord{
		RunID:                    runID,
		GroupName:                group,
		RecordedAt:               recordedAt,
		MemberCount:              int32(stats.MemberCount),
		ActiveMemberCount:        int32(stats.ActiveMemberCount),
		ReviewsSubmitted:         int32(stats.ReviewsSubmitted),
		TimeToSubmitReviewMedian: stats.TimeToSubmitReview.Median,
		LOCPerCreatedPRMedian:    stats.LOCPerCreatedPR.Median,
		CommentsAsReviewerMedian: stats.CommentsPer100LOCAsReviewer.Median,
		CommentsAsAuthorMedian:   stats.CommentsPer100LOCAsAuthor.Median,
		ChangesRequestedRate:     stats.ChangesRequestedRate,
		DirectApprovalRate:       stats.DirectApprovalRate,
	}
}
