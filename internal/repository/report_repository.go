package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"novelhub/pkg/models"
)

const reportColumns = `id, comment_id, reporter_id, reason, status, resolution, resolved_by, resolved_at, created_at`

type reportRepository struct {
	pgStore
}

// NewReportRepository creates a new PostgreSQL report repository
func NewReportRepository(pool *pgxpool.Pool) ReportRepository {
	return &reportRepository{pgStore{pool: pool}}
}

func scanReport(row pgx.Row) (*models.Report, error) {
	r := &models.Report{}
	err := row.Scan(
		&r.ID,
		&r.CommentID,
		&r.ReporterID,
		&r.Reason,
		&r.Status,
		&r.Resolution,
		&r.ResolvedBy,
		&r.ResolvedAt,
		&r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Create opens a report; the partial unique index rejects a second open report by the same reporter
func (r *reportRepository) Create(ctx context.Context, report *models.Report) (*models.Report, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO comment_reports (comment_id, reporter_id, reason, status)
		VALUES ($1, $2, $3, 'open')
		RETURNING `+reportColumns,
		report.CommentID, report.ReporterID, report.Reason,
	)
	created, err := scanReport(row)
	if err != nil {
		return nil, mapDBError(err, "create_report")
	}
	return created, nil
}

// GetByID retrieves a report by ID
func (r *reportRepository) GetByID(ctx context.Context, id int64) (*models.Report, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+reportColumns+` FROM comment_reports WHERE id = $1`, id)
	report, err := scanReport(row)
	if err != nil {
		return nil, mapDBError(err, "get_report")
	}
	return report, nil
}

// Resolve applies a moderator decision to an open report
func (r *reportRepository) Resolve(ctx context.Context, id int64, moderatorID string, action models.ResolveAction) (*models.ResolveResult, error) {
	result := &models.ResolveResult{}

	err := r.WithTransaction(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `SELECT `+reportColumns+` FROM comment_reports WHERE id = $1 FOR UPDATE`, id)
		report, err := scanReport(row)
		if err != nil {
			return mapDBError(err, "resolve_report")
		}
		if report.Status != models.ReportOpen {
			return models.NewValidationError("status", "report is already resolved")
		}

		switch action {
		case models.ActionDismiss:
			row := tx.QueryRow(ctx, `
				UPDATE comment_reports
				SET status = 'resolved', resolution = 'dismiss', resolved_by = $2, resolved_at = NOW()
				WHERE id = $1
				RETURNING `+reportColumns,
				id, moderatorID,
			)
			if result.Report, err = scanReport(row); err != nil {
				return mapDBError(err, "resolve_report")
			}
			result.ResolvedReports = 1

			row = tx.QueryRow(ctx, `SELECT `+commentColumns+` FROM comments WHERE id = $1`, report.CommentID)
			result.Comment, err = scanComment(row)
			return mapDBError(err, "reload_comment")

		case models.ActionHide:
			if err := hideInTx(ctx, tx, report.CommentID, moderatorID, result); err != nil {
				return err
			}
			row := tx.QueryRow(ctx, `SELECT `+reportColumns+` FROM comment_reports WHERE id = $1`, id)
			result.Report, err = scanReport(row)
			return mapDBError(err, "resolve_report")

		default:
			return models.NewValidationError("action", "action must be hide or dismiss")
		}
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// HideComment hides a comment directly, closing its open reports
func (r *reportRepository) HideComment(ctx context.Context, commentID int64, moderatorID string) (*models.ResolveResult, error) {
	result := &models.ResolveResult{}
	err := r.WithTransaction(ctx, func(tx pgx.Tx) error {
		return hideInTx(ctx, tx, commentID, moderatorID, result)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// hideInTx flips Active to Hidden and resolves every open report of the comment.
// A comment that is already tombstoned keeps its status.
func hideInTx(ctx context.Context, tx pgx.Tx, commentID int64, moderatorID string, result *models.ResolveResult) error {
	row := tx.QueryRow(ctx, `SELECT `+commentColumns+` FROM comments WHERE id = $1 FOR UPDATE`, commentID)
	c, err := scanComment(row)
	if err != nil {
		return mapDBError(err, "hide_comment")
	}

	if c.Status == models.StatusActive {
		row = tx.QueryRow(ctx, `
			UPDATE comments SET status = 'hidden', updated_at = NOW()
			WHERE id = $1
			RETURNING `+commentColumns,
			commentID,
		)
		if c, err = scanComment(row); err != nil {
			return mapDBError(err, "hide_comment")
		}
		result.Hidden = true
	}
	result.Comment = c

	tag, err := tx.Exec(ctx, `
		UPDATE comment_reports
		SET status = 'resolved', resolution = 'hide', resolved_by = $2, resolved_at = NOW()
		WHERE comment_id = $1 AND status = 'open'
	`, commentID, moderatorID)
	if err != nil {
		return mapDBError(err, "hide_comment")
	}
	result.ResolvedReports = int(tag.RowsAffected())
	return nil
}

// List returns reports oldest-first so the queue is worked in arrival order
func (r *reportRepository) List(ctx context.Context, filter models.ReportsFilter) ([]*models.Report, int, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.CommentID != 0 {
		args = append(args, filter.CommentID)
		conds = append(conds, fmt.Sprintf("comment_id = $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM comment_reports `+where, args...).Scan(&total); err != nil {
		return nil, 0, mapDBError(err, "count_reports")
	}

	page := models.Pagination{Page: filter.Page, Limit: filter.Limit}
	args = append(args, page.Limit, page.Offset())
	query := fmt.Sprintf(`SELECT %s FROM comment_reports %s ORDER BY created_at ASC, id ASC LIMIT $%d OFFSET $%d`,
		reportColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, mapDBError(err, "list_reports")
	}
	defer rows.Close()

	reports := make([]*models.Report, 0)
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, 0, mapDBError(err, "list_reports")
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, mapDBError(err, "list_reports")
	}
	return reports, total, nil
}
