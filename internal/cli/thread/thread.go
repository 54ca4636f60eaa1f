package thread

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"novelhub/internal/client"
	"novelhub/internal/tree"
	"novelhub/pkg/models"
)

var ThreadCmd = &cobra.Command{
	Use:   "thread",
	Short: "Read and write comment threads",
	Long:  "Browse a discussion thread and post, vote or report through the HTTP API",
}

var showCmd = &cobra.Command{
	Use:   "show <novel|chapter|news>/<id>",
	Short: "Print a thread",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		targetType, targetID, err := parseTarget(args[0])
		if err != nil {
			return err
		}

		page, _ := cmd.Flags().GetInt("page")
		limit, _ := cmd.Flags().GetInt("limit")
		sort, _ := cmd.Flags().GetString("sort")
		depth, _ := cmd.Flags().GetInt("depth")
		spoilers, _ := cmd.Flags().GetBool("spoilers")

		tr := tree.New(newClient(cmd), models.ListCommentsFilter{
			TargetType: targetType,
			TargetID:   targetID,
			Limit:      limit,
			Sort:       models.SortOrder(sort),
		})

		ctx := cmd.Context()
		if err := tr.LoadPage(ctx, page); err != nil {
			return err
		}
		if err := expandTo(ctx, tr, rootIDs(tr.View()), depth); err != nil {
			return err
		}
		if spoilers {
			revealAll(tr, tr.View())
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s/%s: %d comments, page %d\n\n", targetType, targetID, tr.TotalCount(), tr.Page())
		render(out, tr.View(), 0, time.Now())
		return nil
	},
}

// expandTo opens every subtree down to depth levels below ids
func expandTo(ctx context.Context, tr *tree.Tree, ids []int64, depth int) error {
	if depth <= 0 || len(ids) == 0 {
		return nil
	}

	for _, id := range ids {
		c, ok := tr.Comment(id)
		if !ok || c.RepliesCount == 0 {
			continue
		}
		if err := tr.Expand(ctx, id); err != nil {
			return err
		}
	}

	var next []int64
	view := tr.View()
	for _, id := range ids {
		if n := find(view, id); n != nil {
			for _, child := range n.Children {
				next = append(next, child.Comment.ID)
			}
		}
	}
	return expandTo(ctx, tr, next, depth-1)
}

func find(nodes []*tree.ViewNode, id int64) *tree.ViewNode {
	for _, n := range nodes {
		if n.Comment.ID == id {
			return n
		}
		if found := find(n.Children, id); found != nil {
			return found
		}
	}
	return nil
}

func rootIDs(nodes []*tree.ViewNode) []int64 {
	ids := make([]int64, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.Comment.ID)
	}
	return ids
}

func revealAll(tr *tree.Tree, nodes []*tree.ViewNode) {
	for _, n := range nodes {
		tr.Reveal(n.Comment.ID)
		revealAll(tr, n.Children)
	}
}

var postCmd = &cobra.Command{
	Use:   "post <novel|chapter|news>/<id> <body>",
	Short: "Post a comment or, with --reply-to, a reply",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		targetType, targetID, err := parseTarget(args[0])
		if err != nil {
			return err
		}
		replyTo, _ := cmd.Flags().GetInt64("reply-to")
		spoiler, _ := cmd.Flags().GetBool("spoiler")

		req := models.CreateCommentRequest{
			TargetType: targetType,
			TargetID:   targetID,
			Body:       args[1],
			IsSpoiler:  spoiler,
		}
		if replyTo > 0 {
			req.ParentID = &replyTo
		}

		c, err := newClient(cmd).Create(cmd.Context(), req)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Posted comment #%d (depth %d)\n", c.ID, c.Depth)
		return nil
	},
}

var voteCmd = &cobra.Command{
	Use:   "vote <comment-id> <up|down|clear>",
	Short: "Vote on a comment",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		value, ok := map[string]int{"up": 1, "down": -1, "clear": 0}[args[1]]
		if !ok {
			return fmt.Errorf("vote must be up, down or clear, got %q", args[1])
		}

		c, err := newClient(cmd).Vote(cmd.Context(), id, value)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "#%d score %d (+%d/-%d)\n", c.ID, c.Score(), c.LikesCount, c.DislikesCount)
		return nil
	},
}

var reportCmd = &cobra.Command{
	Use:   "report <comment-id> <reason>",
	Short: "Report a comment to moderators",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		r, err := newClient(cmd).Report(cmd.Context(), id, args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Report #%d opened for comment #%d\n", r.ID, r.CommentID)
		return nil
	},
}

func newClient(cmd *cobra.Command) *client.Client {
	server, _ := cmd.Flags().GetString("server")
	token, _ := cmd.Flags().GetString("token")

	c := client.NewClient(strings.TrimRight(server, "/"))
	if token != "" {
		c.SetToken(token)
	}
	return c
}

func parseTarget(arg string) (models.TargetType, string, error) {
	kind, id, ok := strings.Cut(arg, "/")
	if !ok || id == "" {
		return "", "", fmt.Errorf("target must look like chapter/<id>, got %q", arg)
	}
	t := models.TargetType(kind)
	if !t.Valid() {
		return "", "", fmt.Errorf("unknown target type %q", kind)
	}
	return t, id, nil
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid comment id %q", arg)
	}
	return id, nil
}

func init() {
	ThreadCmd.PersistentFlags().String("server", "http://localhost:8080/api/v1", "API base URL")
	ThreadCmd.PersistentFlags().String("token", "", "Bearer token (see novelhub token)")

	showCmd.Flags().Int("page", 1, "Page of top-level comments")
	showCmd.Flags().Int("limit", 20, "Top-level comments per page")
	showCmd.Flags().String("sort", string(models.SortNewest), "newest, oldest or top")
	showCmd.Flags().Int("depth", 1, "Reply levels to expand")
	showCmd.Flags().Bool("spoilers", false, "Show spoiler bodies")

	postCmd.Flags().Int64("reply-to", 0, "Parent comment id")
	postCmd.Flags().Bool("spoiler", false, "Mark the comment as a spoiler")

	ThreadCmd.AddCommand(showCmd, postCmd, voteCmd, reportCmd)
}
