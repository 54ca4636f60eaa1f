package models

import (
	"encoding/json"
	"time"
)

// TargetType identifies the kind of content a thread is attached to
type TargetType string

const (
	TargetNovel   TargetType = "novel"
	TargetChapter TargetType = "chapter"
	TargetNews    TargetType = "news"
)

// Valid reports whether t is a known target type
func (t TargetType) Valid() bool {
	switch t {
	case TargetNovel, TargetChapter, TargetNews:
		return true
	}
	return false
}

// CommentStatus is the moderation state of a comment
type CommentStatus string

const (
	StatusActive  CommentStatus = "active"
	StatusDeleted CommentStatus = "deleted"
	StatusHidden  CommentStatus = "hidden"
)

func (s CommentStatus) Valid() bool {
	switch s {
	case StatusActive, StatusDeleted, StatusHidden:
		return true
	}
	return false
}

// SortOrder for top-level listings
type SortOrder string

const (
	SortNewest SortOrder = "newest"
	SortOldest SortOrder = "oldest"
	SortTop    SortOrder = "top"
)

func (s SortOrder) Valid() bool {
	switch s {
	case SortNewest, SortOldest, SortTop:
		return true
	}
	return false
}

// Placeholders shown instead of the stored body of a tombstoned comment
const (
	DeletedPlaceholder = "[deleted]"
	HiddenPlaceholder  = "[hidden by moderator]"
)

const MaxTargetIDLength = 64

// Comment is a single node of a discussion thread
type Comment struct {
	ID            int64         `json:"id"`
	TargetType    TargetType    `json:"targetType"`
	TargetID      string        `json:"targetId"`
	ParentID      *int64        `json:"parentId"`
	Depth         int           `json:"depth"`
	AuthorID      string        `json:"authorId"`
	Body          string        `json:"body"`
	IsSpoiler     bool          `json:"isSpoiler"`
	Status        CommentStatus `json:"status"`
	LikesCount    int           `json:"likesCount"`
	DislikesCount int           `json:"dislikesCount"`
	RepliesCount  int           `json:"repliesCount"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
	UserVote      *int          `json:"userVote,omitempty"` // viewer's own vote, when known
}

// Score is always derived, never stored
func (c *Comment) Score() int {
	return c.LikesCount - c.DislikesCount
}

// IsTopLevel reports whether the comment has no parent
func (c *Comment) IsTopLevel() bool {
	return c.ParentID == nil
}

// MarshalJSON adds the derived score to the wire form
func (c Comment) MarshalJSON() ([]byte, error) {
	type plain Comment
	return json.Marshal(struct {
		plain
		Score int `json:"score"`
	}{plain(c), c.Score()})
}

// Masked returns a copy safe for public reads: tombstoned comments keep
// their position and counters but their body becomes a placeholder.
func (c *Comment) Masked() *Comment {
	out := *c
	switch c.Status {
	case StatusDeleted:
		out.Body = DeletedPlaceholder
	case StatusHidden:
		out.Body = HiddenPlaceholder
	}
	return &out
}

// CreateCommentRequest is the body of POST /comments
type CreateCommentRequest struct {
	TargetType TargetType `json:"targetType" binding:"required"`
	TargetID   string     `json:"targetId" binding:"required,max=64"`
	ParentID   *int64     `json:"parentId" binding:"omitempty,min=1"`
	Body       string     `json:"body" binding:"required"`
	IsSpoiler  bool       `json:"isSpoiler"`
}

// UpdateCommentRequest is the body of PUT /comments/:id
type UpdateCommentRequest struct {
	Body      string `json:"body" binding:"required"`
	IsSpoiler *bool  `json:"isSpoiler"`
}

// VoteRequest - value 0 clears the caller's vote
type VoteRequest struct {
	Value *int `json:"value" binding:"required,oneof=-1 0 1"`
}

// ListCommentsFilter selects one page of top-level comments of a target
type ListCommentsFilter struct {
	TargetType TargetType
	TargetID   string
	Page       int
	Limit      int
	Sort       SortOrder
}

// AdminCommentsFilter drives the moderator listing; empty fields match all
type AdminCommentsFilter struct {
	TargetType TargetType
	TargetID   string
	AuthorID   string
	Status     CommentStatus
	Page       int
	Limit      int
}

// CommentsPage is a window over a sorted listing
type CommentsPage struct {
	Comments   []*Comment `json:"comments"`
	TotalCount int        `json:"totalCount"`
	Page       int        `json:"page"`
	Limit      int        `json:"limit"`
}

// RepliesPage is a cursor window over the direct replies of one comment
type RepliesPage struct {
	Replies    []*Comment `json:"replies"`
	NextCursor string     `json:"nextCursor,omitempty"`
}
