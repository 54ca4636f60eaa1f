package core

import (
	"context"
	"errors"

	"novelhub/internal/content"
	"novelhub/internal/events"
	"novelhub/internal/repository"
	"novelhub/pkg/logger"
	"novelhub/pkg/models"
	"novelhub/pkg/utils"
)

// CommentService defines comment operations
type CommentService interface {
	Create(ctx context.Context, authorID string, req models.CreateCommentRequest) (*models.Comment, error)
	Get(ctx context.Context, id int64, viewerID string) (*models.Comment, error)
	Edit(ctx context.Context, id int64, authorID string, req models.UpdateCommentRequest) (*models.Comment, error)
	Delete(ctx context.Context, id int64, authorID string) error
	ListTopLevel(ctx context.Context, filter models.ListCommentsFilter, viewerID string) (*models.CommentsPage, error)
	FetchReplies(ctx context.Context, parentID int64, limit int, cursor, viewerID string) (*models.RepliesPage, error)
}

type commentService struct {
	commentRepo repository.CommentRepository
	voteRepo    repository.VoteRepository
	targets     content.Resolver
	sink        events.Sink
	policy      Policy
}

// NewCommentService creates a new comment service
func NewCommentService(
	commentRepo repository.CommentRepository,
	voteRepo repository.VoteRepository,
	targets content.Resolver,
	sink events.Sink,
	policy Policy,
) CommentService {
	if targets == nil {
		targets = content.AllowAll{}
	}
	return &commentService{
		commentRepo: commentRepo,
		voteRepo:    voteRepo,
		targets:     targets,
		sink:        sink,
		policy:      policy,
	}
}

// Create validates and stores a new comment or reply
func (s *commentService) Create(ctx context.Context, authorID string, req models.CreateCommentRequest) (*models.Comment, error) {
	body, err := s.policy.normalizeBody(req.Body)
	if err != nil {
		return nil, err
	}
	if err := validateTarget(req.TargetType, req.TargetID); err != nil {
		return nil, err
	}

	ctx, cancel := utils.WithTimeout(ctx)
	defer cancel()

	exists, err := s.targets.Exists(ctx, req.TargetType, req.TargetID)
	if err != nil {
		return nil, internal(err)
	}
	if !exists {
		return nil, models.NewNotFoundError(string(req.TargetType))
	}

	comment := &models.Comment{
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
		AuthorID:   authorID,
		Body:       body,
		IsSpoiler:  req.IsSpoiler,
	}

	if req.ParentID != nil {
		parent, err := s.commentRepo.GetByID(ctx, *req.ParentID)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return nil, models.NewNotFoundError("parent comment")
			}
			return nil, internal(err)
		}
		if err := s.checkParent(parent, req); err != nil {
			return nil, err
		}
		parentID := parent.ID
		comment.ParentID = &parentID
		comment.Depth = parent.Depth + 1
	}

	created, err := s.commentRepo.Create(ctx, comment)
	if errors.Is(err, repository.ErrConditionFailed) {
		// parent changed between the check and the insert
		return nil, s.classifyParent(ctx, *req.ParentID)
	}
	if err != nil {
		return nil, internal(err)
	}

	level := "top"
	if !created.IsTopLevel() {
		level = "reply"
	}
	commentsCreated.WithLabelValues(string(created.TargetType), level).Inc()

	logger.WithRequestID(ctx).WithFields(map[string]interface{}{
		"comment_id": created.ID,
		"depth":      created.Depth,
		"author_id":  authorID,
	}).Info("comment created")

	publish(ctx, s.sink, events.ForComment(events.CommentCreated, created, authorID))
	return created, nil
}

func (s *commentService) checkParent(parent *models.Comment, req models.CreateCommentRequest) error {
	if parent.TargetType != req.TargetType || parent.TargetID != req.TargetID {
		return models.NewValidationError("parentId", "parent comment belongs to a different target")
	}
	if parent.Status != models.StatusActive {
		return models.NewAlreadyDeletedError(parent.ID)
	}
	if parent.Depth+1 > s.policy.MaxDepth {
		return models.NewDepthExceededError(s.policy.MaxDepth)
	}
	return nil
}

func (s *commentService) classifyParent(ctx context.Context, parentID int64) error {
	parent, err := s.commentRepo.GetByID(ctx, parentID)
	if errors.Is(err, models.ErrNotFound) {
		return models.NewNotFoundError("parent comment")
	}
	if err != nil {
		return internal(err)
	}
	return models.NewAlreadyDeletedError(parent.ID)
}

// Get returns one comment as the public sees it
func (s *commentService) Get(ctx context.Context, id int64, viewerID string) (*models.Comment, error) {
	ctx, cancel := utils.WithTimeout(ctx)
	defer cancel()

	c, err := s.commentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, internal(err)
	}
	out, err := s.present(ctx, viewerID, []*models.Comment{c})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// Edit replaces the body of the caller's own active comment
func (s *commentService) Edit(ctx context.Context, id int64, authorID string, req models.UpdateCommentRequest) (*models.Comment, error) {
	body, err := s.policy.normalizeBody(req.Body)
	if err != nil {
		return nil, err
	}

	ctx, cancel := utils.WithTimeout(ctx)
	defer cancel()

	if _, err := s.ownedActive(ctx, id, authorID, "edit"); err != nil {
		return nil, err
	}

	updated, err := s.commentRepo.UpdateBody(ctx, id, authorID, body, req.IsSpoiler)
	if errors.Is(err, repository.ErrConditionFailed) {
		_, err = s.ownedActive(ctx, id, authorID, "edit")
		if err == nil {
			err = models.NewAlreadyDeletedError(id)
		}
		return nil, err
	}
	if err != nil {
		return nil, internal(err)
	}
	return updated, nil
}

// Delete tombstones the caller's own comment; replies stay in place
func (s *commentService) Delete(ctx context.Context, id int64, authorID string) error {
	ctx, cancel := utils.WithTimeout(ctx)
	defer cancel()

	if _, err := s.ownedActive(ctx, id, authorID, "delete"); err != nil {
		return err
	}

	_, err := s.commentRepo.SetStatus(ctx, id, models.StatusActive, models.StatusDeleted)
	if errors.Is(err, repository.ErrConditionFailed) {
		if _, err := s.ownedActive(ctx, id, authorID, "delete"); err != nil {
			return err
		}
		return models.NewAlreadyDeletedError(id)
	}
	if err != nil {
		return internal(err)
	}

	statusTransitions.WithLabelValues(string(models.StatusDeleted)).Inc()
	logger.WithRequestID(ctx).WithFields(map[string]interface{}{
		"comment_id": id,
		"author_id":  authorID,
	}).Info("comment deleted")
	return nil
}

// ownedActive loads id and checks the owner may still change it
func (s *commentService) ownedActive(ctx context.Context, id int64, authorID, action string) (*models.Comment, error) {
	c, err := s.commentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, internal(err)
	}
	if c.AuthorID != authorID {
		return nil, models.NewPermissionError("you can only " + action + " your own comments")
	}
	if c.Status != models.StatusActive {
		return nil, models.NewAlreadyDeletedError(id)
	}
	return c, nil
}

// ListTopLevel returns one page of a target's top-level comments
func (s *commentService) ListTopLevel(ctx context.Context, filter models.ListCommentsFilter, viewerID string) (*models.CommentsPage, error) {
	if err := validateTarget(filter.TargetType, filter.TargetID); err != nil {
		return nil, err
	}
	if filter.Sort == "" {
		filter.Sort = models.SortNewest
	}
	if !filter.Sort.Valid() {
		return nil, models.NewValidationError("sort", "sort must be newest, oldest or top")
	}
	p := models.ClampPagination(filter.Page, filter.Limit, s.policy.DefaultPageSize, s.policy.MaxPageSize)
	filter.Page, filter.Limit = p.Page, p.Limit

	ctx, cancel := utils.WithTimeout(ctx)
	defer cancel()

	list, total, err := s.commentRepo.ListTopLevel(ctx, filter)
	if err != nil {
		return nil, internal(err)
	}
	list, err = s.present(ctx, viewerID, list)
	if err != nil {
		return nil, err
	}

	return &models.CommentsPage{
		Comments:   list,
		TotalCount: total,
		Page:       p.Page,
		Limit:      p.Limit,
	}, nil
}

// FetchReplies returns direct replies of parentID, oldest first
func (s *commentService) FetchReplies(ctx context.Context, parentID int64, limit int, cursor, viewerID string) (*models.RepliesPage, error) {
	var after *models.ReplyCursor
	if cursor != "" {
		rc, err := models.DecodeReplyCursor(cursor)
		if err != nil {
			return nil, models.NewValidationError("cursor", "cursor is malformed")
		}
		after = &rc
	}
	limit = models.ClampLimit(limit, s.policy.DefaultRepliesSize, s.policy.MaxRepliesSize)

	ctx, cancel := utils.WithTimeout(ctx)
	defer cancel()

	if _, err := s.commentRepo.GetByID(ctx, parentID); err != nil {
		return nil, internal(err)
	}

	// one extra row tells whether another page exists
	list, err := s.commentRepo.ListReplies(ctx, parentID, after, limit+1)
	if err != nil {
		return nil, internal(err)
	}

	result := &models.RepliesPage{}
	if len(list) > limit {
		list = list[:limit]
		result.NextCursor = models.CursorAt(list[len(list)-1]).Encode()
	}

	result.Replies, err = s.present(ctx, viewerID, list)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// present masks tombstones and attaches the viewer's votes
func (s *commentService) present(ctx context.Context, viewerID string, list []*models.Comment) ([]*models.Comment, error) {
	out := make([]*models.Comment, len(list))
	ids := make([]int64, len(list))
	for i, c := range list {
		out[i] = c.Masked()
		ids[i] = c.ID
	}
	if viewerID == "" || len(list) == 0 {
		return out, nil
	}

	votes, err := s.voteRepo.GetUserVotes(ctx, viewerID, ids)
	if err != nil {
		return nil, internal(err)
	}
	for _, c := range out {
		if v, ok := votes[c.ID]; ok {
			v := v
			c.UserVote = &v
		}
	}
	return out, nil
}
