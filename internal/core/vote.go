package core

import (
	"context"

	"novelhub/internal/repository"
	"novelhub/pkg/models"
	"novelhub/pkg/utils"
)

// VoteService keeps like/dislike counters in step with per-user votes
type VoteService interface {
	CastVote(ctx context.Context, commentID int64, userID string, value int) (*models.Comment, error)
	ClearVote(ctx context.Context, commentID int64, userID string) (*models.Comment, error)
}

type voteService struct {
	commentRepo repository.CommentRepository
	voteRepo    repository.VoteRepository
	policy      Policy
}

// NewVoteService creates a new vote service
func NewVoteService(commentRepo repository.CommentRepository, voteRepo repository.VoteRepository, policy Policy) VoteService {
	return &voteService{
		commentRepo: commentRepo,
		voteRepo:    voteRepo,
		policy:      policy,
	}
}

// CastVote records value (+1 or -1) as userID's vote. Repeating the same
// vote is a no-op; the opposite vote moves one unit between counters.
func (s *voteService) CastVote(ctx context.Context, commentID int64, userID string, value int) (*models.Comment, error) {
	if value != 1 && value != -1 {
		return nil, models.NewValidationError("value", "value must be -1 or 1")
	}

	ctx, cancel := utils.WithTimeout(ctx)
	defer cancel()

	c, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return nil, internal(err)
	}
	if c.Status != models.StatusActive {
		return nil, models.NewAlreadyDeletedError(commentID)
	}
	if !s.policy.AllowSelfVote && c.AuthorID == userID {
		return nil, models.NewPermissionError("you cannot vote on your own comment")
	}

	voted, err := s.voteRepo.Cast(ctx, commentID, userID, value)
	if err != nil {
		return nil, internal(err)
	}

	kind := "like"
	if value < 0 {
		kind = "dislike"
	}
	votesCast.WithLabelValues(kind).Inc()
	return voted.Masked(), nil
}

// ClearVote removes userID's vote, if any. Allowed on tombstoned comments.
func (s *voteService) ClearVote(ctx context.Context, commentID int64, userID string) (*models.Comment, error) {
	ctx, cancel := utils.WithTimeout(ctx)
	defer cancel()

	c, err := s.voteRepo.Clear(ctx, commentID, userID)
	if err != nil {
		return nil, internal(err)
	}
	votesCast.WithLabelValues("clear").Inc()
	return c.Masked(), nil
}
