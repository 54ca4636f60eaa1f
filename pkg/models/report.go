package models

import "time"

// ReportStatus of a moderation report
type ReportStatus string

const (
	ReportOpen     ReportStatus = "open"
	ReportResolved ReportStatus = "resolved"
)

func (s ReportStatus) Valid() bool {
	return s == ReportOpen || s == ReportResolved
}

// ResolveAction is the moderator's decision on a report
type ResolveAction string

const (
	ActionHide    ResolveAction = "hide"
	ActionDismiss ResolveAction = "dismiss"
)

func (a ResolveAction) Valid() bool {
	return a == ActionHide || a == ActionDismiss
}

// Report flags a comment for moderator review
type Report struct {
	ID         int64          `json:"id"`
	CommentID  int64          `json:"commentId"`
	ReporterID string         `json:"reporterId"`
	Reason     string         `json:"reason"`
	Status     ReportStatus   `json:"status"`
	Resolution *ResolveAction `json:"resolution,omitempty"`
	ResolvedBy *string        `json:"resolvedBy,omitempty"`
	ResolvedAt *time.Time     `json:"resolvedAt,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// ReportRequest is the body of POST /comments/:id/report
type ReportRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// ResolveReportRequest is the body of POST /admin/reports/:id/resolve
type ResolveReportRequest struct {
	Action ResolveAction `json:"action" binding:"required,oneof=hide dismiss"`
}

// ReportsFilter drives the moderation queue; zero values match all
type ReportsFilter struct {
	Status    ReportStatus
	CommentID int64
	Page      int
	Limit     int
}

// ReportsPage is one page of the moderation queue
type ReportsPage struct {
	Reports    []*Report `json:"reports"`
	TotalCount int       `json:"totalCount"`
	Page       int       `json:"page"`
	Limit      int       `json:"limit"`
}

// ResolveResult describes the effects of a moderation decision
type ResolveResult struct {
	Report          *Report  `json:"report,omitempty"`
	Comment         *Comment `json:"comment"`
	Hidden          bool     `json:"hidden"`          // comment status changed to hidden
	ResolvedReports int      `json:"resolvedReports"` // open reports closed by this decision
}
