package memory

import (
	"context"
	"sort"

	"novelhub/internal/repository"
	"novelhub/pkg/models"
)

// ReportRepository implements repository.ReportRepository
type ReportRepository struct {
	s *Store
}

var _ repository.ReportRepository = (*ReportRepository)(nil)

func (r *ReportRepository) Create(ctx context.Context, report *models.Report) (*models.Report, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.comments[report.CommentID]; !ok {
		return nil, models.NewNotFoundError("comment")
	}
	for _, existing := range s.reports {
		if existing.CommentID == report.CommentID && existing.ReporterID == report.ReporterID && existing.Status == models.ReportOpen {
			return nil, models.NewRateLimitError("you already have an open report on this comment")
		}
	}

	s.lastReportID++
	stored := &models.Report{
		ID:         s.lastReportID,
		CommentID:  report.CommentID,
		ReporterID: report.ReporterID,
		Reason:     report.Reason,
		Status:     models.ReportOpen,
		CreatedAt:  s.timestamp(),
	}
	s.reports[stored.ID] = stored
	return copyReport(stored), nil
}

func (r *ReportRepository) GetByID(ctx context.Context, id int64) (*models.Report, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	report, ok := s.reports[id]
	if !ok {
		return nil, models.NewNotFoundError("report")
	}
	return copyReport(report), nil
}

func (s *Store) resolveLocked(report *models.Report, moderatorID string, action models.ResolveAction) {
	now := s.timestamp()
	a := action
	by := moderatorID
	report.Status = models.ReportResolved
	report.Resolution = &a
	report.ResolvedBy = &by
	report.ResolvedAt = &now
}

// hideLocked mirrors the transactional hide: status flip plus every open report closed
func (s *Store) hideLocked(commentID int64, moderatorID string) (*models.ResolveResult, error) {
	c, ok := s.comments[commentID]
	if !ok {
		return nil, models.NewNotFoundError("comment")
	}

	result := &models.ResolveResult{}
	if c.Status == models.StatusActive {
		c.Status = models.StatusHidden
		c.UpdatedAt = s.timestamp()
		result.Hidden = true
	}
	for _, report := range s.reports {
		if report.CommentID == commentID && report.Status == models.ReportOpen {
			s.resolveLocked(report, moderatorID, models.ActionHide)
			result.ResolvedReports++
		}
	}
	result.Comment = copyComment(c)
	return result, nil
}

func (r *ReportRepository) Resolve(ctx context.Context, id int64, moderatorID string, action models.ResolveAction) (*models.ResolveResult, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	report, ok := s.reports[id]
	if !ok {
		return nil, models.NewNotFoundError("report")
	}
	if report.Status != models.ReportOpen {
		return nil, models.NewValidationError("status", "report is already resolved")
	}

	switch action {
	case models.ActionDismiss:
		s.resolveLocked(report, moderatorID, action)
		c, ok := s.comments[report.CommentID]
		if !ok {
			return nil, models.NewNotFoundError("comment")
		}
		return &models.ResolveResult{
			Report:          copyReport(report),
			Comment:         copyComment(c),
			ResolvedReports: 1,
		}, nil

	case models.ActionHide:
		result, err := s.hideLocked(report.CommentID, moderatorID)
		if err != nil {
			return nil, err
		}
		result.Report = copyReport(report)
		return result, nil

	default:
		return nil, models.NewValidationError("action", "action must be hide or dismiss")
	}
}

func (r *ReportRepository) HideComment(ctx context.Context, commentID int64, moderatorID string) (*models.ResolveResult, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.hideLocked(commentID, moderatorID)
}

func (r *ReportRepository) List(ctx context.Context, filter models.ReportsFilter) ([]*models.Report, int, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*models.Report
	for _, report := range s.reports {
		if filter.Status != "" && report.Status != filter.Status {
			continue
		}
		if filter.CommentID != 0 && report.CommentID != filter.CommentID {
			continue
		}
		matched = append(matched, copyReport(report))
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].ID < matched[j].ID
	})

	return page(matched, models.Pagination{Page: filter.Page, Limit: filter.Limit}), len(matched), nil
}
