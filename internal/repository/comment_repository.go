package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"novelhub/pkg/models"
)

const commentColumns = `id, target_type, target_id, parent_id, depth, author_id, body, is_spoiler,
	status, likes_count, dislikes_count, replies_count, created_at, updated_at`

// ORDER BY per sort; id is the final tie-break
var sortClauses = map[models.SortOrder]string{
	models.SortNewest: "created_at DESC, id DESC",
	models.SortOldest: "created_at ASC, id ASC",
	models.SortTop:    "(likes_count - dislikes_count) DESC, created_at DESC, id DESC",
}

type commentRepository struct {
	pgStore
}

// NewCommentRepository creates a new PostgreSQL comment repository
func NewCommentRepository(pool *pgxpool.Pool) CommentRepository {
	return &commentRepository{pgStore{pool: pool}}
}

func scanComment(row pgx.Row) (*models.Comment, error) {
	c := &models.Comment{}
	err := row.Scan(
		&c.ID,
		&c.TargetType,
		&c.TargetID,
		&c.ParentID,
		&c.Depth,
		&c.AuthorID,
		&c.Body,
		&c.IsSpoiler,
		&c.Status,
		&c.LikesCount,
		&c.DislikesCount,
		&c.RepliesCount,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func collectComments(rows pgx.Rows, operation string) ([]*models.Comment, error) {
	defer rows.Close()

	comments := make([]*models.Comment, 0)
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, mapDBError(err, operation)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, mapDBError(err, operation)
	}
	return comments, nil
}

// Create inserts a comment and increments the parent's replies count atomically
func (r *commentRepository) Create(ctx context.Context, c *models.Comment) (*models.Comment, error) {
	var created *models.Comment

	err := r.WithTransaction(ctx, func(tx pgx.Tx) error {
		if c.ParentID != nil {
			// Locks the parent row; a concurrent hard delete or tombstone aborts the insert
			tag, err := tx.Exec(ctx, `
				UPDATE comments
				SET replies_count = replies_count + 1
				WHERE id = $1 AND status = 'active'
			`, *c.ParentID)
			if err != nil {
				return mapDBError(err, "create_comment")
			}
			if tag.RowsAffected() == 0 {
				return ErrConditionFailed
			}
		}

		row := tx.QueryRow(ctx, `
			INSERT INTO comments (target_type, target_id, parent_id, depth, author_id, body, is_spoiler, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, 'active')
			RETURNING `+commentColumns,
			c.TargetType,
			c.TargetID,
			c.ParentID,
			c.Depth,
			c.AuthorID,
			c.Body,
			c.IsSpoiler,
		)

		var err error
		created, err = scanComment(row)
		return mapDBError(err, "create_comment")
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetByID retrieves a comment by ID
func (r *commentRepository) GetByID(ctx context.Context, id int64) (*models.Comment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+commentColumns+` FROM comments WHERE id = $1`, id)
	c, err := scanComment(row)
	if err != nil {
		return nil, mapDBError(err, "get_comment")
	}
	return c, nil
}

// ListTopLevel returns one page of root comments of a target plus the total count
func (r *commentRepository) ListTopLevel(ctx context.Context, filter models.ListCommentsFilter) ([]*models.Comment, int, error) {
	order, ok := sortClauses[filter.Sort]
	if !ok {
		return nil, 0, models.NewValidationError("sort", "sort must be newest, oldest or top")
	}

	var total int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM comments
		WHERE target_type = $1 AND target_id = $2 AND parent_id IS NULL
	`, filter.TargetType, filter.TargetID).Scan(&total)
	if err != nil {
		return nil, 0, mapDBError(err, "count_comments")
	}

	page := models.Pagination{Page: filter.Page, Limit: filter.Limit}
	rows, err := r.pool.Query(ctx, `
		SELECT `+commentColumns+`
		FROM comments
		WHERE target_type = $1 AND target_id = $2 AND parent_id IS NULL
		ORDER BY `+order+`
		LIMIT $3 OFFSET $4
	`, filter.TargetType, filter.TargetID, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, mapDBError(err, "list_comments")
	}

	comments, err := collectComments(rows, "list_comments")
	if err != nil {
		return nil, 0, err
	}
	return comments, total, nil
}

// ListReplies returns direct children oldest-first, strictly after the cursor
func (r *commentRepository) ListReplies(ctx context.Context, parentID int64, after *models.ReplyCursor, limit int) ([]*models.Comment, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if after == nil {
		rows, err = r.pool.Query(ctx, `
			SELECT `+commentColumns+`
			FROM comments
			WHERE parent_id = $1
			ORDER BY created_at ASC, id ASC
			LIMIT $2
		`, parentID, limit)
	} else {
		rows, err = r.pool.Query(ctx, `
			SELECT `+commentColumns+`
			FROM comments
			WHERE parent_id = $1 AND (created_at, id) > ($2, $3)
			ORDER BY created_at ASC, id ASC
			LIMIT $4
		`, parentID, after.CreatedAt, after.ID, limit)
	}
	if err != nil {
		return nil, mapDBError(err, "list_replies")
	}
	return collectComments(rows, "list_replies")
}

// UpdateBody edits an active comment of the given author
func (r *commentRepository) UpdateBody(ctx context.Context, id int64, authorID, body string, isSpoiler *bool) (*models.Comment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE comments
		SET body = $3,
			is_spoiler = COALESCE($4, is_spoiler),
			updated_at = NOW()
		WHERE id = $1 AND author_id = $2 AND status = 'active'
		RETURNING `+commentColumns,
		id, authorID, body, isSpoiler,
	)
	c, err := scanComment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrConditionFailed
	}
	if err != nil {
		return nil, mapDBError(err, "update_comment")
	}
	return c, nil
}

// SetStatus moves a comment between statuses when it is currently in from
func (r *commentRepository) SetStatus(ctx context.Context, id int64, from, to models.CommentStatus) (*models.Comment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE comments
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING `+commentColumns,
		id, from, to,
	)
	c, err := scanComment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrConditionFailed
	}
	if err != nil {
		return nil, mapDBError(err, "set_status")
	}
	return c, nil
}

// HardDelete removes a subtree; votes and reports go with it through ON DELETE CASCADE
func (r *commentRepository) HardDelete(ctx context.Context, id int64) (int, error) {
	var removed int

	err := r.WithTransaction(ctx, func(tx pgx.Tx) error {
		var parentID *int64
		err := tx.QueryRow(ctx, `SELECT parent_id FROM comments WHERE id = $1 FOR UPDATE`, id).Scan(&parentID)
		if err != nil {
			return mapDBError(err, "hard_delete")
		}

		err = tx.QueryRow(ctx, `
			WITH RECURSIVE subtree AS (
				SELECT id FROM comments WHERE id = $1
				UNION ALL
				SELECT c.id FROM comments c JOIN subtree s ON c.parent_id = s.id
			)
			SELECT COUNT(*) FROM subtree
		`, id).Scan(&removed)
		if err != nil {
			return mapDBError(err, "hard_delete")
		}

		if _, err := tx.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id); err != nil {
			return mapDBError(err, "hard_delete")
		}

		if parentID != nil {
			_, err := tx.Exec(ctx, `
				UPDATE comments
				SET replies_count = GREATEST(replies_count - 1, 0)
				WHERE id = $1
			`, *parentID)
			if err != nil {
				return mapDBError(err, "hard_delete")
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// ListForModeration lists comments newest-first with raw bodies
func (r *commentRepository) ListForModeration(ctx context.Context, filter models.AdminCommentsFilter) ([]*models.Comment, int, error) {
	var (
		conds []string
		args  []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.TargetType != "" {
		add("target_type = $%d", filter.TargetType)
	}
	if filter.TargetID != "" {
		add("target_id = $%d", filter.TargetID)
	}
	if filter.AuthorID != "" {
		add("author_id = $%d", filter.AuthorID)
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}

	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM comments `+where, args...).Scan(&total); err != nil {
		return nil, 0, mapDBError(err, "count_moderation")
	}

	page := models.Pagination{Page: filter.Page, Limit: filter.Limit}
	args = append(args, page.Limit, page.Offset())
	query := fmt.Sprintf(`SELECT %s FROM comments %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		commentColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, mapDBError(err, "list_moderation")
	}
	comments, err := collectComments(rows, "list_moderation")
	if err != nil {
		return nil, 0, err
	}
	return comments, total, nil
}
