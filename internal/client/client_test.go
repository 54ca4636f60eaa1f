package client

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"novelhub/internal/auth"
	"novelhub/internal/content"
	"novelhub/internal/core"
	"novelhub/internal/events"
	httpapi "novelhub/internal/protocols/http"
	"novelhub/internal/repository/memory"
	"novelhub/internal/tree"
	"novelhub/pkg/config"
	"novelhub/pkg/models"
)

type harness struct {
	t      *testing.T
	srv    *httptest.Server
	tokens *auth.JWTAuthenticator
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := config.Default()
	cfg.Server.Mode = "test"
	cfg.Server.WriteRate = 0

	store := memory.New()
	policy := core.NewPolicy(cfg.Comments)
	sink := events.Discard{}
	tokens := auth.NewJWTAuthenticator("client-secret", "test")

	api := httpapi.NewServer(cfg, tokens,
		core.NewCommentService(store.Comments(), store.Votes(), content.AllowAll{}, sink, policy),
		core.NewVoteService(store.Comments(), store.Votes(), policy),
		core.NewModerationService(store.Comments(), store.Reports(), sink, policy),
	)
	srv := httptest.NewServer(api.Router())
	t.Cleanup(srv.Close)

	return &harness{t: t, srv: srv, tokens: tokens}
}

func (h *harness) client(userID string, role models.UserRole) *Client {
	c := NewClient(h.srv.URL + "/api/v1")
	if userID != "" {
		tok, err := h.tokens.IssueToken(models.Identity{UserID: userID, Role: role}, time.Hour)
		require.NoError(h.t, err)
		c.SetToken(tok)
	}
	return c
}

func createReq(parent *int64, body string) models.CreateCommentRequest {
	return models.CreateCommentRequest{
		TargetType: models.TargetChapter,
		TargetID:   "c1",
		ParentID:   parent,
		Body:       body,
	}
}

func TestClientCommentLifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice := h.client("alice", models.UserRoleUser)
	bob := h.client("bob", models.UserRoleUser)

	root, err := alice.Create(ctx, createReq(nil, "Hello"))
	require.NoError(t, err)
	assert.Equal(t, 0, root.Depth)

	reply, err := bob.Create(ctx, createReq(&root.ID, "Hi back"))
	require.NoError(t, err)
	assert.Equal(t, 1, reply.Depth)

	voted, err := bob.Vote(ctx, root.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, voted.LikesCount)

	voted, err = bob.Vote(ctx, root.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, voted.LikesCount)

	edited, err := alice.Edit(ctx, root.ID, models.UpdateCommentRequest{Body: "Hello again"})
	require.NoError(t, err)
	assert.Equal(t, "Hello again", edited.Body)

	require.NoError(t, alice.Delete(ctx, root.ID))

	got, err := bob.FetchComment(ctx, root.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDeleted, got.Status)
	assert.Equal(t, models.DeletedPlaceholder, got.Body)

	report, err := alice.Report(ctx, reply.ID, "this is off topic spam")
	require.NoError(t, err)
	assert.Equal(t, models.ReportOpen, report.Status)
}

func TestClientErrorsKeepSentinels(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice := h.client("alice", models.UserRoleUser)
	bob := h.client("bob", models.UserRoleUser)
	anon := h.client("", "")

	_, err := anon.Create(ctx, createReq(nil, "Hello"))
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	_, err = alice.FetchComment(ctx, 9999)
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = alice.Create(ctx, createReq(nil, "   "))
	require.ErrorIs(t, err, models.ErrValidation)
	appErr, ok := models.AsAppError(err)
	require.True(t, ok)
	assert.Contains(t, appErr.Details, "body")

	root, err := alice.Create(ctx, createReq(nil, "Hello"))
	require.NoError(t, err)

	_, err = bob.Edit(ctx, root.ID, models.UpdateCommentRequest{Body: "mine now"})
	assert.ErrorIs(t, err, models.ErrPermission)

	parent := root
	for depth := 1; depth <= 5; depth++ {
		parent, err = alice.Create(ctx, createReq(&parent.ID, "deeper"))
		require.NoError(t, err)
	}
	_, err = alice.Create(ctx, createReq(&parent.ID, "too deep"))
	assert.ErrorIs(t, err, models.ErrDepthExceeded)

	_, err = bob.ResolveReport(ctx, 1, models.ActionHide)
	assert.ErrorIs(t, err, models.ErrPermission)
}

func TestClientDrivesTree(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice := h.client("alice", models.UserRoleUser)
	reader := h.client("", "")

	root, err := alice.Create(ctx, createReq(nil, "Hello"))
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := alice.Create(ctx, createReq(&root.ID, "reply"))
		require.NoError(t, err)
	}

	tr := tree.New(reader, models.ListCommentsFilter{
		TargetType: models.TargetChapter,
		TargetID:   "c1",
		Limit:      10,
		Sort:       models.SortNewest,
	}, tree.WithReplyLimit(2))

	require.NoError(t, tr.LoadPage(ctx, 1))
	require.NoError(t, tr.Expand(ctx, root.ID))

	view := tr.View()
	require.Len(t, view, 1)
	assert.Equal(t, 3, view[0].Comment.RepliesCount)
	assert.Len(t, view[0].Children, 2)
	assert.True(t, view[0].MoreReplies)

	require.NoError(t, tr.ExpandMore(ctx, root.ID))
	view = tr.View()
	assert.Len(t, view[0].Children, 3)
	assert.False(t, view[0].MoreReplies)

	created, err := alice.Create(ctx, createReq(&root.ID, "late reply"))
	require.NoError(t, err)
	tr.Invalidate(tree.Mutation{Kind: tree.Created, CommentID: created.ID, ParentID: &root.ID})
	require.NoError(t, tr.Refresh(ctx))

	view = tr.View()
	assert.Equal(t, 4, view[0].Comment.RepliesCount)
	require.Len(t, view[0].Children, 4)
	assert.Equal(t, created.ID, view[0].Children[3].Comment.ID)
}
