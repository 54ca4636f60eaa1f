package memory

import (
	"context"

	"novelhub/internal/repository"
	"novelhub/pkg/models"
)

// VoteRepository implements repository.VoteRepository
type VoteRepository struct {
	s *Store
}

var _ repository.VoteRepository = (*VoteRepository)(nil)

// bump applies a vote transition to the counters
func bump(c *models.Comment, previous, next int) {
	switch previous {
	case 1:
		c.LikesCount--
	case -1:
		c.DislikesCount--
	}
	switch next {
	case 1:
		c.LikesCount++
	case -1:
		c.DislikesCount++
	}
}

func (r *VoteRepository) Cast(ctx context.Context, commentID int64, userID string, value int) (*models.Comment, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[commentID]
	if !ok {
		return nil, models.NewNotFoundError("comment")
	}
	if c.Status != models.StatusActive {
		return nil, models.NewAlreadyDeletedError(commentID)
	}

	key := voteKey{commentID: commentID, userID: userID}
	previous := s.votes[key]
	if previous != value {
		s.votes[key] = value
		bump(c, previous, value)
	}

	out := copyComment(c)
	v := value
	out.UserVote = &v
	return out, nil
}

func (r *VoteRepository) Clear(ctx context.Context, commentID int64, userID string) (*models.Comment, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[commentID]
	if !ok {
		return nil, models.NewNotFoundError("comment")
	}

	key := voteKey{commentID: commentID, userID: userID}
	if previous, ok := s.votes[key]; ok {
		delete(s.votes, key)
		bump(c, previous, 0)
	}
	return copyComment(c), nil
}

func (r *VoteRepository) GetUserVotes(ctx context.Context, userID string, commentIDs []int64) (map[int64]int, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	votes := make(map[int64]int, len(commentIDs))
	for _, id := range commentIDs {
		if v, ok := s.votes[voteKey{commentID: id, userID: userID}]; ok {
			votes[id] = v
		}
	}
	return votes, nil
}

// VoteCount returns the number of vote rows on a comment; used by tests
func (s *Store) VoteCount(commentID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for key := range s.votes {
		if key.commentID == commentID {
			n++
		}
	}
	return n
}
