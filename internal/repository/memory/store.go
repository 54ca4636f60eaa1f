// Package memory is an in-process store for local runs and tests. One mutex
// guards every table, so each operation is a single critical section.
package memory

import (
	"sort"
	"sync"
	"time"

	"novelhub/pkg/models"
)

type voteKey struct {
	commentID int64
	userID    string
}

// Store holds comments, votes and reports
type Store struct {
	mu       sync.Mutex
	comments map[int64]*models.Comment
	children map[int64][]int64 // parent id -> child ids, insertion order
	votes    map[voteKey]int
	reports  map[int64]*models.Report

	lastCommentID int64
	lastReportID  int64
	now           func() time.Time
}

// Option configures a Store
type Option func(*Store)

// WithClock overrides time.Now, for deterministic ordering in tests
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates an empty store
func New(opts ...Option) *Store {
	s := &Store{
		comments: make(map[int64]*models.Comment),
		children: make(map[int64][]int64),
		votes:    make(map[voteKey]int),
		reports:  make(map[int64]*models.Report),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Comments returns the CommentRepository view of the store
func (s *Store) Comments() *CommentRepository {
	return &CommentRepository{s: s}
}

// Votes returns the VoteRepository view of the store
func (s *Store) Votes() *VoteRepository {
	return &VoteRepository{s: s}
}

// Reports returns the ReportRepository view of the store
func (s *Store) Reports() *ReportRepository {
	return &ReportRepository{s: s}
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC()
}

// copyComment hands out snapshots so callers never alias stored rows
func copyComment(c *models.Comment) *models.Comment {
	out := *c
	if c.ParentID != nil {
		p := *c.ParentID
		out.ParentID = &p
	}
	out.UserVote = nil
	return &out
}

func copyReport(r *models.Report) *models.Report {
	out := *r
	if r.Resolution != nil {
		a := *r.Resolution
		out.Resolution = &a
	}
	if r.ResolvedBy != nil {
		b := *r.ResolvedBy
		out.ResolvedBy = &b
	}
	if r.ResolvedAt != nil {
		t := *r.ResolvedAt
		out.ResolvedAt = &t
	}
	return &out
}

// page slices a sorted listing
func page[T any](items []T, p models.Pagination) []T {
	start := p.Offset()
	if start < 0 || start >= len(items) {
		return []T{}
	}
	end := start + p.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// sortComments orders in place according to the listing contract
func sortComments(list []*models.Comment, order models.SortOrder) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		switch order {
		case models.SortOldest:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.ID < b.ID
		case models.SortTop:
			if a.Score() != b.Score() {
				return a.Score() > b.Score()
			}
			fallthrough
		default:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.ID > b.ID
		}
	})
}
