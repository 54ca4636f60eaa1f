package thread

import (
	"fmt"
	"io"
	"strings"
	"time"

	"novelhub/internal/tree"
	"novelhub/pkg/models"
	"novelhub/pkg/utils"
)

// render prints nodes as an indented outline; ages are relative to now
func render(w io.Writer, nodes []*tree.ViewNode, level int, now time.Time) {
	indent := strings.Repeat("  ", level)
	for _, n := range nodes {
		c := n.Comment
		fmt.Fprintf(w, "%s#%d %s [%+d] %s", indent, c.ID, c.AuthorID, c.Score(), utils.Age(c.CreatedAt, now))
		if c.Status != models.StatusActive {
			fmt.Fprintf(w, " (%s)", c.Status)
		} else if c.UpdatedAt.After(c.CreatedAt) {
			fmt.Fprint(w, " (edited)")
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%s  %s\n", indent, c.Body)

		switch {
		case n.Collapsed:
			fmt.Fprintf(w, "%s  [+%d replies]\n", indent, c.RepliesCount)
		case len(n.Children) > 0:
			render(w, n.Children, level+1, now)
			if n.MoreReplies {
				fmt.Fprintf(w, "%s  [more replies...]\n", indent)
			}
		}
	}
}
