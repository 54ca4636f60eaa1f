package memory

import (
	"context"

	"novelhub/internal/repository"
	"novelhub/pkg/models"
)

// CommentRepository implements repository.CommentRepository
type CommentRepository struct {
	s *Store
}

var _ repository.CommentRepository = (*CommentRepository)(nil)

func (r *CommentRepository) Create(ctx context.Context, c *models.Comment) (*models.Comment, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ParentID != nil {
		parent, ok := s.comments[*c.ParentID]
		if !ok || parent.Status != models.StatusActive {
			return nil, repository.ErrConditionFailed
		}
		parent.RepliesCount++
	}

	s.lastCommentID++
	now := s.timestamp()
	stored := copyComment(c)
	stored.ID = s.lastCommentID
	stored.Status = models.StatusActive
	stored.LikesCount, stored.DislikesCount, stored.RepliesCount = 0, 0, 0
	stored.CreatedAt, stored.UpdatedAt = now, now

	s.comments[stored.ID] = stored
	if stored.ParentID != nil {
		s.children[*stored.ParentID] = append(s.children[*stored.ParentID], stored.ID)
	}
	return copyComment(stored), nil
}

func (r *CommentRepository) GetByID(ctx context.Context, id int64) (*models.Comment, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[id]
	if !ok {
		return nil, models.NewNotFoundError("comment")
	}
	return copyComment(c), nil
}

func (r *CommentRepository) ListTopLevel(ctx context.Context, filter models.ListCommentsFilter) ([]*models.Comment, int, error) {
	if !filter.Sort.Valid() {
		return nil, 0, models.NewValidationError("sort", "sort must be newest, oldest or top")
	}

	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var roots []*models.Comment
	for _, c := range s.comments {
		if c.ParentID == nil && c.TargetType == filter.TargetType && c.TargetID == filter.TargetID {
			roots = append(roots, copyComment(c))
		}
	}
	sortComments(roots, filter.Sort)

	return page(roots, models.Pagination{Page: filter.Page, Limit: filter.Limit}), len(roots), nil
}

func (r *CommentRepository) ListReplies(ctx context.Context, parentID int64, after *models.ReplyCursor, limit int) ([]*models.Comment, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var replies []*models.Comment
	for _, id := range s.children[parentID] {
		replies = append(replies, copyComment(s.comments[id]))
	}
	sortComments(replies, models.SortOldest)

	out := make([]*models.Comment, 0, limit)
	for _, c := range replies {
		if after != nil && !after.After(c) {
			continue
		}
		out = append(out, c)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *CommentRepository) UpdateBody(ctx context.Context, id int64, authorID, body string, isSpoiler *bool) (*models.Comment, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[id]
	if !ok || c.AuthorID != authorID || c.Status != models.StatusActive {
		return nil, repository.ErrConditionFailed
	}
	c.Body = body
	if isSpoiler != nil {
		c.IsSpoiler = *isSpoiler
	}
	c.UpdatedAt = s.timestamp()
	return copyComment(c), nil
}

func (r *CommentRepository) SetStatus(ctx context.Context, id int64, from, to models.CommentStatus) (*models.Comment, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[id]
	if !ok || c.Status != from {
		return nil, repository.ErrConditionFailed
	}
	c.Status = to
	c.UpdatedAt = s.timestamp()
	return copyComment(c), nil
}

func (r *CommentRepository) HardDelete(ctx context.Context, id int64) (int, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	root, ok := s.comments[id]
	if !ok {
		return 0, models.NewNotFoundError("comment")
	}

	// Collect the subtree breadth-first
	subtree := []int64{id}
	for i := 0; i < len(subtree); i++ {
		subtree = append(subtree, s.children[subtree[i]]...)
	}

	removed := make(map[int64]bool, len(subtree))
	for _, cid := range subtree {
		removed[cid] = true
		delete(s.comments, cid)
		delete(s.children, cid)
	}
	for key := range s.votes {
		if removed[key.commentID] {
			delete(s.votes, key)
		}
	}
	for rid, report := range s.reports {
		if removed[report.CommentID] {
			delete(s.reports, rid)
		}
	}

	if root.ParentID != nil {
		pid := *root.ParentID
		if parent, ok := s.comments[pid]; ok && parent.RepliesCount > 0 {
			parent.RepliesCount--
		}
		siblings := s.children[pid]
		for i, cid := range siblings {
			if cid == id {
				s.children[pid] = append(siblings[:i:i], siblings[i+1:]...)
				break
			}
		}
	}

	return len(subtree), nil
}

func (r *CommentRepository) ListForModeration(ctx context.Context, filter models.AdminCommentsFilter) ([]*models.Comment, int, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*models.Comment
	for _, c := range s.comments {
		switch {
		case filter.TargetType != "" && c.TargetType != filter.TargetType:
		case filter.TargetID != "" && c.TargetID != filter.TargetID:
		case filter.AuthorID != "" && c.AuthorID != filter.AuthorID:
		case filter.Status != "" && c.Status != filter.Status:
		default:
			matched = append(matched, copyComment(c))
		}
	}
	sortComments(matched, models.SortNewest)

	return page(matched, models.Pagination{Page: filter.Page, Limit: filter.Limit}), len(matched), nil
}
