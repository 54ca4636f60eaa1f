package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"novelhub/pkg/models"
)

// ErrConditionFailed is returned by conditional writes when the row exists
// but no longer matches the expected state. Callers re-read and classify.
var ErrConditionFailed = errors.New("row no longer matches update condition")

// CommentRepository handles comment persistence. Every method is one
// transaction; counters only move through atomic increments.
type CommentRepository interface {
	// Create inserts c and bumps the parent's replies count in the same
	// transaction. The parent must still be active.
	Create(ctx context.Context, c *models.Comment) (*models.Comment, error)
	GetByID(ctx context.Context, id int64) (*models.Comment, error)
	ListTopLevel(ctx context.Context, filter models.ListCommentsFilter) ([]*models.Comment, int, error)
	ListReplies(ctx context.Context, parentID int64, after *models.ReplyCursor, limit int) ([]*models.Comment, error)
	UpdateBody(ctx context.Context, id int64, authorID, body string, isSpoiler *bool) (*models.Comment, error)
	SetStatus(ctx context.Context, id int64, from, to models.CommentStatus) (*models.Comment, error)
	// HardDelete removes the comment with its whole subtree and returns how
	// many comments were removed.
	HardDelete(ctx context.Context, id int64) (int, error)
	ListForModeration(ctx context.Context, filter models.AdminCommentsFilter) ([]*models.Comment, int, error)
}

// VoteRepository keeps per-user votes and the derived counters in step
type VoteRepository interface {
	Cast(ctx context.Context, commentID int64, userID string, value int) (*models.Comment, error)
	Clear(ctx context.Context, commentID int64, userID string) (*models.Comment, error)
	GetUserVotes(ctx context.Context, userID string, commentIDs []int64) (map[int64]int, error)
}

// ReportRepository stores moderation reports
type ReportRepository interface {
	Create(ctx context.Context, r *models.Report) (*models.Report, error)
	GetByID(ctx context.Context, id int64) (*models.Report, error)
	Resolve(ctx context.Context, id int64, moderatorID string, action models.ResolveAction) (*models.ResolveResult, error)
	// HideComment hides an active comment and closes its open reports
	HideComment(ctx context.Context, commentID int64, moderatorID string) (*models.ResolveResult, error)
	List(ctx context.Context, filter models.ReportsFilter) ([]*models.Report, int, error)
}

// pgStore is shared by the PostgreSQL repositories
type pgStore struct {
	pool *pgxpool.Pool
}

// WithTransaction executes a function within a database transaction
func (r *pgStore) WithTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return mapDBError(err, "begin_transaction")
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return mapDBError(err, "commit_transaction")
	}
	return nil
}

// notFoundResource names the missing resource for each operation
var notFoundResource = map[string]string{
	"get_comment":      "comment",
	"update_comment":   "comment",
	"set_status":       "comment",
	"hard_delete":      "comment",
	"create_comment":   "parent comment",
	"cast_vote":        "comment",
	"clear_vote":       "comment",
	"create_report":    "comment",
	"get_report":       "report",
	"resolve_report":   "report",
	"hide_comment":     "comment",
	"reload_comment":   "comment",
	"lock_vote_target": "comment",
}

// mapDBError maps database errors to application errors
func mapDBError(err error, operation string) error {
	if err == nil {
		return nil
	}
	if _, ok := models.AsAppError(err); ok {
		return err
	}
	if errors.Is(err, ErrConditionFailed) {
		return err
	}

	if errors.Is(err, pgx.ErrNoRows) {
		resource, ok := notFoundResource[operation]
		if !ok {
			resource = "resource"
		}
		return models.NewNotFoundError(resource)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23503": // foreign_key_violation
			return models.NewNotFoundError("comment")
		case "23505": // unique_violation
			if pgErr.ConstraintName == "comment_reports_open_unique" {
				return models.NewRateLimitError("you already have an open report on this comment")
			}
			return fmt.Errorf("duplicate row during %s: %w", operation, err)
		case "22001": // string_data_right_truncation
			return models.NewValidationError("targetId", "value too long")
		case "23514": // check_violation
			return fmt.Errorf("check constraint %s violated during %s: %w", pgErr.ConstraintName, operation, err)
		}
	}

	return fmt.Errorf("database error during %s: %w", operation, err)
}
