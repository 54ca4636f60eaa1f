package core

import (
	"context"
	"errors"

	"novelhub/internal/events"
	"novelhub/internal/repository"
	"novelhub/pkg/logger"
	"novelhub/pkg/models"
	"novelhub/pkg/utils"
)

// ModerationService handles reports and moderator actions. Role checks
// happen at the transport layer.
type ModerationService interface {
	Report(ctx context.Context, commentID int64, reporterID, reason string) (*models.Report, error)
	Resolve(ctx context.Context, reportID int64, moderatorID string, action models.ResolveAction) (*models.ResolveResult, error)
	Hide(ctx context.Context, commentID int64, moderatorID string) (*models.ResolveResult, error)
	Unhide(ctx context.Context, commentID int64, moderatorID string) (*models.Comment, error)
	HardDelete(ctx context.Context, commentID int64, adminID string) (int, error)
	ListReports(ctx context.Context, filter models.ReportsFilter) (*models.ReportsPage, error)
	ListComments(ctx context.Context, filter models.AdminCommentsFilter) (*models.CommentsPage, error)
}

type moderationService struct {
	commentRepo repository.CommentRepository
	reportRepo  repository.ReportRepository
	sink        events.Sink
	policy      Policy
}

// NewModerationService creates a new moderation service
func NewModerationService(
	commentRepo repository.CommentRepository,
	reportRepo repository.ReportRepository,
	sink events.Sink,
	policy Policy,
) ModerationService {
	return &moderationService{
		commentRepo: commentRepo,
		reportRepo:  reportRepo,
		sink:        sink,
		policy:      policy,
	}
}

// Report opens a report. One open report per reporter and comment.
func (s *moderationService) Report(ctx context.Context, commentID int64, reporterID, reason string) (*models.Report, error) {
	reason, err := s.policy.normalizeReason(reason)
	if err != nil {
		return nil, err
	}

	ctx, cancel := utils.WithTimeout(ctx)
	defer cancel()

	c, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return nil, internal(err)
	}

	report, err := s.reportRepo.Create(ctx, &models.Report{
		CommentID:  commentID,
		ReporterID: reporterID,
		Reason:     reason,
	})
	if err != nil {
		return nil, internal(err)
	}

	reportsOpened.Inc()
	e := events.ForComment(events.ReportOpened, c, reporterID)
	e.ReportID = report.ID
	publish(ctx, s.sink, e)
	return report, nil
}

// Resolve closes a report. Hiding also closes every other open report on
// the same comment.
func (s *moderationService) Resolve(ctx context.Context, reportID int64, moderatorID string, action models.ResolveAction) (*models.ResolveResult, error) {
	if !action.Valid() {
		return nil, models.NewValidationError("action", "action must be hide or dismiss")
	}

	ctx, cancel := utils.WithTimeout(ctx)
	defer cancel()

	result, err := s.reportRepo.Resolve(ctx, reportID, moderatorID, action)
	if err != nil {
		return nil, internal(err)
	}

	reportsResolved.WithLabelValues(string(action)).Add(float64(result.ResolvedReports))
	logger.WithRequestID(ctx).WithFields(map[string]interface{}{
		"report_id":    reportID,
		"comment_id":   result.Comment.ID,
		"action":       string(action),
		"moderator_id": moderatorID,
	}).Info("report resolved")

	s.afterHide(ctx, result, moderatorID)
	return result, nil
}

// Hide hides an active comment directly
func (s *moderationService) Hide(ctx context.Context, commentID int64, moderatorID string) (*models.ResolveResult, error) {
	ctx, cancel := utils.WithTimeout(ctx)
	defer cancel()

	c, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return nil, internal(err)
	}
	if c.Status != models.StatusActive {
		return nil, models.NewAlreadyDeletedError(commentID)
	}

	result, err := s.reportRepo.HideComment(ctx, commentID, moderatorID)
	if err != nil {
		return nil, internal(err)
	}
	if !result.Hidden {
		return nil, models.NewAlreadyDeletedError(commentID)
	}
	if result.ResolvedReports > 0 {
		reportsResolved.WithLabelValues(string(models.ActionHide)).Add(float64(result.ResolvedReports))
	}

	s.afterHide(ctx, result, moderatorID)
	return result, nil
}

func (s *moderationService) afterHide(ctx context.Context, result *models.ResolveResult, moderatorID string) {
	if !result.Hidden {
		return
	}
	statusTransitions.WithLabelValues(string(models.StatusHidden)).Inc()
	e := events.ForComment(events.CommentHidden, result.Comment, moderatorID)
	if result.Report != nil {
		e.ReportID = result.Report.ID
	}
	publish(ctx, s.sink, e)
}

// Unhide restores a hidden comment to active
func (s *moderationService) Unhide(ctx context.Context, commentID int64, moderatorID string) (*models.Comment, error) {
	ctx, cancel := utils.WithTimeout(ctx)
	defer cancel()

	c, err := s.commentRepo.SetStatus(ctx, commentID, models.StatusHidden, models.StatusActive)
	if errors.Is(err, repository.ErrConditionFailed) {
		if _, err := s.commentRepo.GetByID(ctx, commentID); err != nil {
			return nil, internal(err)
		}
		return nil, models.NewValidationError("status", "only hidden comments can be restored")
	}
	if err != nil {
		return nil, internal(err)
	}

	statusTransitions.WithLabelValues(string(models.StatusActive)).Inc()
	logger.WithRequestID(ctx).WithFields(map[string]interface{}{
		"comment_id":   commentID,
		"moderator_id": moderatorID,
	}).Info("comment restored")
	return c, nil
}

// HardDelete removes a comment with its subtree, votes and reports
func (s *moderationService) HardDelete(ctx context.Context, commentID int64, adminID string) (int, error) {
	ctx, cancel := utils.WithTimeout(ctx)
	defer cancel()

	removed, err := s.commentRepo.HardDelete(ctx, commentID)
	if err != nil {
		return 0, internal(err)
	}

	logger.WithRequestID(ctx).WithFields(map[string]interface{}{
		"comment_id": commentID,
		"removed":    removed,
		"admin_id":   adminID,
	}).Warn("comment hard deleted")
	return removed, nil
}

// ListReports returns one page of the report queue, oldest first
func (s *moderationService) ListReports(ctx context.Context, filter models.ReportsFilter) (*models.ReportsPage, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, models.NewValidationError("status", "status must be open or resolved")
	}
	p := models.ClampPagination(filter.Page, filter.Limit, s.policy.DefaultPageSize, s.policy.MaxPageSize)
	filter.Page, filter.Limit = p.Page, p.Limit

	ctx, cancel := utils.WithTimeout(ctx)
	defer cancel()

	reports, total, err := s.reportRepo.List(ctx, filter)
	if err != nil {
		return nil, internal(err)
	}
	if reports == nil {
		reports = []*models.Report{}
	}
	return &models.ReportsPage{Reports: reports, TotalCount: total, Page: p.Page, Limit: p.Limit}, nil
}

// ListComments is the moderator view; bodies are not masked
func (s *moderationService) ListComments(ctx context.Context, filter models.AdminCommentsFilter) (*models.CommentsPage, error) {
	if filter.TargetType != "" && !filter.TargetType.Valid() {
		return nil, models.NewValidationError("targetType", "targetType must be novel, chapter or news")
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, models.NewValidationError("status", "status must be active, deleted or hidden")
	}
	p := models.ClampPagination(filter.Page, filter.Limit, s.policy.DefaultPageSize, s.policy.MaxPageSize)
	filter.Page, filter.Limit = p.Page, p.Limit

	ctx, cancel := utils.WithTimeout(ctx)
	defer cancel()

	comments, total, err := s.commentRepo.ListForModeration(ctx, filter)
	if err != nil {
		return nil, internal(err)
	}
	if comments == nil {
		comments = []*models.Comment{}
	}
	return &models.CommentsPage{Comments: comments, TotalCount: total, Page: p.Page, Limit: p.Limit}, nil
}
