package tree

import "novelhub/pkg/models"

// ViewNode is one displayable comment with its visible children
type ViewNode struct {
	Comment     models.Comment
	Children    []*ViewNode
	Collapsed   bool // has replies that are not shown
	MoreReplies bool // more replies can be fetched with ExpandMore
	Masked      bool // spoiler body withheld until Reveal
	CanReply    bool
}

// View renders the current page as a nested tree
func (t *Tree) View() []*ViewNode {
	out := make([]*ViewNode, 0, len(t.roots))
	for _, id := range t.roots {
		if v := t.view(id); v != nil {
			out = append(out, v)
		}
	}
	return out
}

func (t *Tree) view(id int64) *ViewNode {
	n, ok := t.nodes[id]
	if !ok {
		return nil
	}

	v := &ViewNode{
		Comment:  n.comment,
		CanReply: n.comment.Status == models.StatusActive && n.comment.Depth < t.maxDepth,
	}
	if n.comment.IsSpoiler && !n.revealed && n.comment.Status == models.StatusActive {
		v.Comment.Body = SpoilerPlaceholder
		v.Masked = true
	}

	if !n.expanded {
		v.Collapsed = n.comment.RepliesCount > 0
		return v
	}

	for _, child := range t.children[id] {
		if cv := t.view(child); cv != nil {
			v.Children = append(v.Children, cv)
		}
	}
	_, v.MoreReplies = t.cursors[id]
	return v
}
