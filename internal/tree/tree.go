// Package tree assembles a displayable comment thread on the client side.
//
// Nodes live in an arena keyed by id with a separate children index, so
// there are no pointer cycles. Counters shown to the user are always the
// values returned by the server at the last fetch: after a mutation the
// affected entries are marked stale and Refresh re-reads them.
package tree

import (
	"context"
	"errors"
	"sort"

	"novelhub/pkg/models"
)

// SpoilerPlaceholder replaces the body of an unrevealed spoiler
const SpoilerPlaceholder = "[spoiler]"

var ErrUnknownNode = errors.New("comment is not loaded in this tree")

// Fetcher reads thread data from the server
type Fetcher interface {
	FetchPage(ctx context.Context, filter models.ListCommentsFilter) (*models.CommentsPage, error)
	FetchReplies(ctx context.Context, parentID int64, limit int, cursor string) (*models.RepliesPage, error)
	FetchComment(ctx context.Context, id int64) (*models.Comment, error)
}

type node struct {
	comment  models.Comment
	expanded bool
	revealed bool
}

// Tree is one page of a target's thread plus the subtrees expanded so far.
// It is not safe for concurrent use.
type Tree struct {
	fetcher    Fetcher
	filter     models.ListCommentsFilter
	maxDepth   int
	replyLimit int

	nodes      map[int64]*node
	roots      []int64
	children   map[int64][]int64
	cursors    map[int64]string // next replies cursor; absent once exhausted
	totalCount int

	staleNodes   map[int64]bool
	staleReplies map[int64]bool
	stalePage    bool
}

// Option configures a Tree
type Option func(*Tree)

// WithMaxDepth sets the depth at which replying is disabled
func WithMaxDepth(depth int) Option {
	return func(t *Tree) { t.maxDepth = depth }
}

// WithReplyLimit sets how many replies each Expand fetches
func WithReplyLimit(limit int) Option {
	return func(t *Tree) { t.replyLimit = limit }
}

// New creates an empty tree for the listing described by filter
func New(fetcher Fetcher, filter models.ListCommentsFilter, opts ...Option) *Tree {
	t := &Tree{
		fetcher:      fetcher,
		filter:       filter,
		maxDepth:     5,
		replyLimit:   10,
		nodes:        make(map[int64]*node),
		children:     make(map[int64][]int64),
		cursors:      make(map[int64]string),
		staleNodes:   make(map[int64]bool),
		staleReplies: make(map[int64]bool),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// LoadPage fetches page of top-level comments and makes it the root set.
// Subtrees already expanded under roots whose repliesCount did not change
// are kept.
func (t *Tree) LoadPage(ctx context.Context, page int) error {
	filter := t.filter
	filter.Page = page

	result, err := t.fetcher.FetchPage(ctx, filter)
	if err != nil {
		return err
	}

	t.filter.Page = result.Page
	t.filter.Limit = result.Limit
	t.totalCount = result.TotalCount

	t.roots = t.roots[:0]
	for _, c := range result.Comments {
		t.upsert(c)
		t.roots = append(t.roots, c.ID)
	}
	t.stalePage = false
	t.prune()
	return nil
}

// upsert stores fresh server data for c. A changed repliesCount marks an
// expanded reply list stale and discards a collapsed one.
func (t *Tree) upsert(c *models.Comment) {
	n, ok := t.nodes[c.ID]
	if !ok {
		t.nodes[c.ID] = &node{comment: *c}
		return
	}
	if n.comment.RepliesCount != c.RepliesCount {
		if n.expanded {
			t.staleReplies[c.ID] = true
		} else {
			t.dropChildren(c.ID)
		}
	}
	n.comment = *c
	delete(t.staleNodes, c.ID)
}

// Expand fetches the first page of direct replies under parentID
func (t *Tree) Expand(ctx context.Context, parentID int64) error {
	n, ok := t.nodes[parentID]
	if !ok {
		return ErrUnknownNode
	}
	if n.expanded {
		return nil
	}

	if err := t.loadReplies(ctx, parentID, 0); err != nil {
		return err
	}
	n.expanded = true
	return nil
}

// ExpandMore appends the next page of replies under parentID
func (t *Tree) ExpandMore(ctx context.Context, parentID int64) error {
	n, ok := t.nodes[parentID]
	if !ok {
		return ErrUnknownNode
	}
	cursor, ok := t.cursors[parentID]
	if !ok || !n.expanded {
		return t.Expand(ctx, parentID)
	}

	result, err := t.fetcher.FetchReplies(ctx, parentID, t.replyLimit, cursor)
	if err != nil {
		return err
	}
	t.appendReplies(parentID, result)
	return nil
}

// Collapse hides the replies of id without forgetting them
func (t *Tree) Collapse(id int64) {
	if n, ok := t.nodes[id]; ok {
		n.expanded = false
	}
}

// loadReplies replaces the children of parentID, reading pages until at
// least want replies are loaded or the list ends
func (t *Tree) loadReplies(ctx context.Context, parentID int64, want int) error {
	result, err := t.fetcher.FetchReplies(ctx, parentID, t.replyLimit, "")
	if err != nil {
		return err
	}

	t.dropChildren(parentID)
	t.appendReplies(parentID, result)

	for len(t.children[parentID]) < want {
		cursor, ok := t.cursors[parentID]
		if !ok {
			break
		}
		result, err := t.fetcher.FetchReplies(ctx, parentID, t.replyLimit, cursor)
		if err != nil {
			return err
		}
		t.appendReplies(parentID, result)
	}
	delete(t.staleReplies, parentID)
	return nil
}

func (t *Tree) appendReplies(parentID int64, result *models.RepliesPage) {
	for _, c := range result.Replies {
		t.upsert(c)
		t.children[parentID] = append(t.children[parentID], c.ID)
	}
	if result.NextCursor != "" {
		t.cursors[parentID] = result.NextCursor
	} else {
		delete(t.cursors, parentID)
	}
}

// dropChildren forgets the loaded subtree below id
func (t *Tree) dropChildren(id int64) {
	for _, child := range t.children[id] {
		t.dropChildren(child)
		delete(t.nodes, child)
		delete(t.staleNodes, child)
		delete(t.staleReplies, child)
	}
	delete(t.children, id)
	delete(t.cursors, id)
}

// remove forgets id and its subtree, and unlinks it from its parent
func (t *Tree) remove(id int64) {
	n, ok := t.nodes[id]
	if !ok {
		return
	}
	t.dropChildren(id)
	delete(t.nodes, id)
	delete(t.staleNodes, id)

	if n.comment.ParentID != nil {
		pid := *n.comment.ParentID
		t.children[pid] = without(t.children[pid], id)
	} else {
		t.roots = without(t.roots, id)
	}
}

// prune drops nodes no longer reachable from the roots
func (t *Tree) prune() {
	reachable := make(map[int64]bool, len(t.nodes))
	var walk func(id int64)
	walk = func(id int64) {
		reachable[id] = true
		for _, child := range t.children[id] {
			walk(child)
		}
	}
	for _, id := range t.roots {
		walk(id)
	}
	for id := range t.nodes {
		if !reachable[id] {
			delete(t.nodes, id)
			delete(t.children, id)
			delete(t.cursors, id)
			delete(t.staleNodes, id)
			delete(t.staleReplies, id)
		}
	}
}

// Refresh re-fetches everything marked stale: the page, stale nodes and
// the replies of stale parents that are expanded
func (t *Tree) Refresh(ctx context.Context) error {
	if t.stalePage {
		if err := t.LoadPage(ctx, t.filter.Page); err != nil {
			return err
		}
	}

	for _, id := range sortedKeys(t.staleNodes) {
		if _, ok := t.nodes[id]; !ok {
			delete(t.staleNodes, id)
			continue
		}
		c, err := t.fetcher.FetchComment(ctx, id)
		if errors.Is(err, models.ErrNotFound) {
			t.remove(id)
			continue
		}
		if err != nil {
			return err
		}
		t.upsert(c)
		delete(t.staleNodes, id)
	}

	for _, id := range sortedKeys(t.staleReplies) {
		n, ok := t.nodes[id]
		if !ok || !n.expanded {
			delete(t.staleReplies, id)
			continue
		}
		loaded := len(t.children[id])
		if err := t.loadReplies(ctx, id, loaded); err != nil {
			return err
		}
	}
	return nil
}

// Reveal shows the body of a spoiler comment
func (t *Tree) Reveal(id int64) {
	if n, ok := t.nodes[id]; ok {
		n.revealed = true
	}
}

// Comment returns the last fetched server copy of id
func (t *Tree) Comment(id int64) (models.Comment, bool) {
	n, ok := t.nodes[id]
	if !ok {
		return models.Comment{}, false
	}
	return n.comment, true
}

// TotalCount is the number of top-level comments on the target
func (t *Tree) TotalCount() int {
	return t.totalCount
}

// Page returns the page currently loaded
func (t *Tree) Page() int {
	return t.filter.Page
}

func without(ids []int64, id int64) []int64 {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func sortedKeys(m map[int64]bool) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
