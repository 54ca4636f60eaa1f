package tree

// MutationKind is a write the user performed against the thread
type MutationKind int

const (
	Created MutationKind = iota
	Edited
	Deleted
	Voted
	Resolved // report resolved by a moderator
	Hidden
	Restored
	HardDeleted
)

// Mutation describes a completed write. ParentID is the parent of the
// affected comment, nil for top-level comments.
type Mutation struct {
	Kind      MutationKind
	CommentID int64
	ParentID  *int64
}

// staleness lists what a mutation invalidates
type staleness struct {
	node   bool // the comment itself
	parent bool // the parent's repliesCount and reply list
	page   bool // the top-level page (ordering, totals)
}

var invalidation = map[MutationKind]staleness{
	Created:     {parent: true, page: true},
	Edited:      {node: true},
	Deleted:     {node: true},
	Voted:       {node: true},
	Resolved:    {node: true},
	Hidden:      {node: true},
	Restored:    {node: true},
	HardDeleted: {node: true, parent: true, page: true},
}

// Invalidate marks whatever m makes stale. Nothing is re-fetched until
// Refresh; counters are never patched locally.
func (t *Tree) Invalidate(m Mutation) {
	rule := invalidation[m.Kind]

	if rule.node {
		t.staleNodes[m.CommentID] = true
	}
	if rule.parent && m.ParentID != nil {
		t.staleNodes[*m.ParentID] = true
		t.staleReplies[*m.ParentID] = true
	}
	if rule.page {
		t.stalePage = true
	}
}

// IsStale reports whether id waits for a re-fetch
func (t *Tree) IsStale(id int64) bool {
	return t.staleNodes[id] || t.staleReplies[id]
}

// PageStale reports whether the top-level page waits for a re-fetch
func (t *Tree) PageStale() bool {
	return t.stalePage
}
