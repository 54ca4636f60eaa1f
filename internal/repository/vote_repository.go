package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"novelhub/pkg/models"
)

// maxVoteAttempts bounds retries when a vote row vanishes between statements
const maxVoteAttempts = 3

type voteRepository struct {
	pgStore
}

// NewVoteRepository creates a new PostgreSQL vote repository
func NewVoteRepository(pool *pgxpool.Pool) VoteRepository {
	return &voteRepository{pgStore{pool: pool}}
}

// counterDelta converts a vote transition into counter increments
func counterDelta(previous, next int) (likes, dislikes int) {
	switch previous {
	case 1:
		likes--
	case -1:
		dislikes--
	}
	switch next {
	case 1:
		likes++
	case -1:
		dislikes++
	}
	return likes, dislikes
}

// applyDelta moves both counters in one statement so readers never see a partial flip
func applyDelta(ctx context.Context, tx pgx.Tx, commentID int64, likes, dislikes int) (*models.Comment, error) {
	if likes == 0 && dislikes == 0 {
		row := tx.QueryRow(ctx, `SELECT `+commentColumns+` FROM comments WHERE id = $1`, commentID)
		c, err := scanComment(row)
		return c, mapDBError(err, "reload_comment")
	}

	row := tx.QueryRow(ctx, `
		UPDATE comments
		SET likes_count = likes_count + $2,
			dislikes_count = dislikes_count + $3
		WHERE id = $1
		RETURNING `+commentColumns,
		commentID, likes, dislikes,
	)
	c, err := scanComment(row)
	return c, mapDBError(err, "reload_comment")
}

// Cast records value for (commentID, userID). Repeating the same value is a no-op.
func (r *voteRepository) Cast(ctx context.Context, commentID int64, userID string, value int) (*models.Comment, error) {
	var result *models.Comment

	for attempt := 0; attempt < maxVoteAttempts; attempt++ {
		err := r.WithTransaction(ctx, func(tx pgx.Tx) error {
			var status models.CommentStatus
			err := tx.QueryRow(ctx, `SELECT status FROM comments WHERE id = $1`, commentID).Scan(&status)
			if err != nil {
				return mapDBError(err, "cast_vote")
			}
			if status != models.StatusActive {
				return models.NewAlreadyDeletedError(commentID)
			}

			previous := 0
			var inserted int
			err = tx.QueryRow(ctx, `
				INSERT INTO comment_votes (comment_id, user_id, value)
				VALUES ($1, $2, $3)
				ON CONFLICT (comment_id, user_id) DO NOTHING
				RETURNING value
			`, commentID, userID, value).Scan(&inserted)

			switch {
			case err == nil:
			case errors.Is(err, pgx.ErrNoRows):
				// Existing vote: lock it so concurrent casts by the same user serialize
				err = tx.QueryRow(ctx, `
					SELECT value FROM comment_votes
					WHERE comment_id = $1 AND user_id = $2
					FOR UPDATE
				`, commentID, userID).Scan(&previous)
				if errors.Is(err, pgx.ErrNoRows) {
					return ErrConditionFailed
				}
				if err != nil {
					return mapDBError(err, "cast_vote")
				}
				if previous != value {
					_, err = tx.Exec(ctx, `
						UPDATE comment_votes SET value = $3, updated_at = NOW()
						WHERE comment_id = $1 AND user_id = $2
					`, commentID, userID, value)
					if err != nil {
						return mapDBError(err, "cast_vote")
					}
				}
			default:
				return mapDBError(err, "cast_vote")
			}

			likes, dislikes := counterDelta(previous, value)
			c, err := applyDelta(ctx, tx, commentID, likes, dislikes)
			if err != nil {
				return err
			}
			v := value
			c.UserVote = &v
			result = c
			return nil
		})

		if errors.Is(err, ErrConditionFailed) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return result, nil
	}

	return nil, models.NewInternalError(errors.New("vote kept changing concurrently"))
}

// Clear removes the caller's vote, if any
func (r *voteRepository) Clear(ctx context.Context, commentID int64, userID string) (*models.Comment, error) {
	var result *models.Comment

	err := r.WithTransaction(ctx, func(tx pgx.Tx) error {
		var exists bool
		err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM comments WHERE id = $1)`, commentID).Scan(&exists)
		if err != nil {
			return mapDBError(err, "clear_vote")
		}
		if !exists {
			return models.NewNotFoundError("comment")
		}

		previous := 0
		err = tx.QueryRow(ctx, `
			DELETE FROM comment_votes
			WHERE comment_id = $1 AND user_id = $2
			RETURNING value
		`, commentID, userID).Scan(&previous)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return mapDBError(err, "clear_vote")
		}

		likes, dislikes := counterDelta(previous, 0)
		result, err = applyDelta(ctx, tx, commentID, likes, dislikes)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetUserVotes returns the user's votes among commentIDs
func (r *voteRepository) GetUserVotes(ctx context.Context, userID string, commentIDs []int64) (map[int64]int, error) {
	votes := make(map[int64]int, len(commentIDs))
	if userID == "" || len(commentIDs) == 0 {
		return votes, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT comment_id, value FROM comment_votes
		WHERE user_id = $1 AND comment_id = ANY($2)
	`, userID, commentIDs)
	if err != nil {
		return nil, mapDBError(err, "get_user_votes")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id    int64
			value int
		)
		if err := rows.Scan(&id, &value); err != nil {
			return nil, mapDBError(err, "get_user_votes")
		}
		votes[id] = value
	}
	return votes, mapDBError(rows.Err(), "get_user_votes")
}
