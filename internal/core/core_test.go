package core

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"novelhub/internal/events"
	"novelhub/internal/repository/memory"
	"novelhub/pkg/models"
)

type recordingSink struct {
	mu  sync.Mutex
	got []events.Event
	err error
}

func (r *recordingSink) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, e)
	return r.err
}

func (r *recordingSink) names() []events.Name {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Name
	for _, e := range r.got {
		out = append(out, e.Name)
	}
	return out
}

type fixedResolver map[string]bool

func (f fixedResolver) Exists(_ context.Context, t models.TargetType, id string) (bool, error) {
	if f == nil {
		return true, nil
	}
	return f[string(t)+":"+id], nil
}

type env struct {
	store      *memory.Store
	sink       *recordingSink
	comments   CommentService
	votes      VoteService
	moderation ModerationService
}

func newEnv(t *testing.T, mutate ...func(*Policy)) *env {
	t.Helper()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var tick int64
	var mu sync.Mutex
	store := memory.New(memory.WithClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}))

	policy := DefaultPolicy()
	for _, m := range mutate {
		m(&policy)
	}
	sink := &recordingSink{}
	return &env{
		store:      store,
		sink:       sink,
		comments:   NewCommentService(store.Comments(), store.Votes(), fixedResolver(nil), sink, policy),
		votes:      NewVoteService(store.Comments(), store.Votes(), policy),
		moderation: NewModerationService(store.Comments(), store.Reports(), sink, policy),
	}
}

func (e *env) post(t *testing.T, author, body string, parent *models.Comment) *models.Comment {
	t.Helper()
	req := models.CreateCommentRequest{TargetType: models.TargetChapter, TargetID: "C1", Body: body}
	if parent != nil {
		id := parent.ID
		req.ParentID = &id
	}
	c, err := e.comments.Create(context.Background(), author, req)
	require.NoError(t, err)
	return c
}

func TestScenarioCreateAndReply(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	hello := e.post(t, "alice", "Hello", nil)
	assert.Equal(t, 0, hello.Depth)
	assert.Equal(t, 0, hello.RepliesCount)
	assert.Equal(t, 0, hello.Score())
	assert.Nil(t, hello.ParentID)

	reply := e.post(t, "bob", "Hi back", hello)
	assert.Equal(t, 1, reply.Depth)
	require.NotNil(t, reply.ParentID)
	assert.Equal(t, hello.ID, *reply.ParentID)

	got, err := e.comments.Get(ctx, hello.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 1, got.RepliesCount)

	assert.Equal(t, []events.Name{events.CommentCreated, events.CommentCreated}, e.sink.names())
}

func TestCreateValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	parent := e.post(t, "alice", "root", nil)
	otherTarget := int64(parent.ID)

	tests := []struct {
		name   string
		req    models.CreateCommentRequest
		target error
		field  string
	}{
		{"empty body", models.CreateCommentRequest{TargetType: models.TargetNovel, TargetID: "n1", Body: "   "}, models.ErrValidation, "body"},
		{"markup only", models.CreateCommentRequest{TargetType: models.TargetNovel, TargetID: "n1", Body: "<b></b>"}, models.ErrValidation, "body"},
		{"too long", models.CreateCommentRequest{TargetType: models.TargetNovel, TargetID: "n1", Body: strings.Repeat("é", 10001)}, models.ErrValidation, "body"},
		{"bad target type", models.CreateCommentRequest{TargetType: "manga", TargetID: "n1", Body: "hi"}, models.ErrValidation, "targetType"},
		{"long target id", models.CreateCommentRequest{TargetType: models.TargetNovel, TargetID: strings.Repeat("x", 65), Body: "hi"}, models.ErrValidation, "targetId"},
		{"parent on other target", models.CreateCommentRequest{TargetType: models.TargetNovel, TargetID: "n1", ParentID: &otherTarget, Body: "hi"}, models.ErrValidation, "parentId"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.comments.Create(ctx, "bob", tt.req)
			require.ErrorIs(t, err, tt.target)
			appErr, ok := models.AsAppError(err)
			require.True(t, ok)
			assert.Contains(t, appErr.Details, tt.field)
		})
	}

	missing := int64(9999)
	_, err := e.comments.Create(ctx, "bob", models.CreateCommentRequest{TargetType: models.TargetChapter, TargetID: "C1", ParentID: &missing, Body: "hi"})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCreateStripsMarkup(t *testing.T) {
	e := newEnv(t)
	c := e.post(t, "alice", "  <script>alert(1)</script><b>bold</b> &amp; plain  ", nil)
	assert.Equal(t, "bold & plain", c.Body)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"encoded tags", "&lt;b&gt;loud&lt;/b&gt; words", "loud words"},
		{"double encoded", "&amp;lt;i&amp;gt;tilt&amp;lt;/i&amp;gt;", "tilt"},
		{"comparison kept", "chapter 3 &lt; chapter 4", "chapter 3 < chapter 4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := e.post(t, "alice", tt.body, nil)
			assert.Equal(t, tt.want, c.Body)
		})
	}

	_, err := e.comments.Create(context.Background(), "alice", models.CreateCommentRequest{
		TargetType: models.TargetChapter, TargetID: "C1",
		Body: "&lt;script&gt;alert(1)&lt;/script&gt;",
	})
	assert.ErrorIs(t, err, models.ErrValidation, "an encoded script has no text left")
}

func TestCreateRejectsOversizedRawBody(t *testing.T) {
	e := newEnv(t, func(p *Policy) { p.MaxBodyLength = 10 })
	_, err := e.comments.Create(context.Background(), "alice", models.CreateCommentRequest{
		TargetType: models.TargetChapter, TargetID: "C1",
		Body: strings.Repeat("<b></b>", 20) + "short",
	})
	appErr, ok := models.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "body is too long", appErr.Message)
}

func TestCreateUnknownTarget(t *testing.T) {
	e := newEnv(t)
	store := e.store
	svc := NewCommentService(store.Comments(), store.Votes(), fixedResolver{"novel:known": true}, e.sink, DefaultPolicy())

	_, err := svc.Create(context.Background(), "alice", models.CreateCommentRequest{TargetType: models.TargetNovel, TargetID: "unknown", Body: "hi"})
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = svc.Create(context.Background(), "alice", models.CreateCommentRequest{TargetType: models.TargetNovel, TargetID: "known", Body: "hi"})
	assert.NoError(t, err)
}

func TestDepthLimit(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	chain := []*models.Comment{e.post(t, "alice", "level 0", nil)}
	for depth := 1; depth <= 5; depth++ {
		c := e.post(t, "alice", fmt.Sprintf("level %d", depth), chain[len(chain)-1])
		assert.Equal(t, depth, c.Depth)
		chain = append(chain, c)
	}

	deepest := chain[len(chain)-1]
	id := deepest.ID
	_, err := e.comments.Create(ctx, "bob", models.CreateCommentRequest{TargetType: models.TargetChapter, TargetID: "C1", ParentID: &id, Body: "too deep"})
	require.ErrorIs(t, err, models.ErrDepthExceeded)

	got, err := e.comments.Get(ctx, deepest.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 0, got.RepliesCount, "failed create leaves counters untouched")
}

func TestDepthLimitIsConfigurable(t *testing.T) {
	e := newEnv(t, func(p *Policy) { p.MaxDepth = 1 })
	root := e.post(t, "alice", "root", nil)
	reply := e.post(t, "alice", "reply", root)

	id := reply.ID
	_, err := e.comments.Create(context.Background(), "alice", models.CreateCommentRequest{TargetType: models.TargetChapter, TargetID: "C1", ParentID: &id, Body: "nested"})
	assert.ErrorIs(t, err, models.ErrDepthExceeded)
}

func TestReplyToTombstone(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	root := e.post(t, "alice", "root", nil)
	require.NoError(t, e.comments.Delete(ctx, root.ID, "alice"))

	id := root.ID
	_, err := e.comments.Create(ctx, "bob", models.CreateCommentRequest{TargetType: models.TargetChapter, TargetID: "C1", ParentID: &id, Body: "late"})
	assert.ErrorIs(t, err, models.ErrAlreadyDeleted)
}

func TestEditRules(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := e.post(t, "alice", "original", nil)

	spoiler := true
	edited, err := e.comments.Edit(ctx, c.ID, "alice", models.UpdateCommentRequest{Body: "edited", IsSpoiler: &spoiler})
	require.NoError(t, err)
	assert.Equal(t, "edited", edited.Body)
	assert.True(t, edited.IsSpoiler)
	assert.True(t, edited.UpdatedAt.After(c.UpdatedAt))
	assert.Equal(t, c.CreatedAt, edited.CreatedAt)

	_, err = e.comments.Edit(ctx, c.ID, "mallory", models.UpdateCommentRequest{Body: "hijack"})
	assert.ErrorIs(t, err, models.ErrPermission)

	_, err = e.comments.Edit(ctx, 404, "alice", models.UpdateCommentRequest{Body: "x"})
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = e.comments.Edit(ctx, c.ID, "alice", models.UpdateCommentRequest{Body: ""})
	assert.ErrorIs(t, err, models.ErrValidation)

	require.NoError(t, e.comments.Delete(ctx, c.ID, "alice"))
	_, err = e.comments.Edit(ctx, c.ID, "alice", models.UpdateCommentRequest{Body: "again"})
	assert.ErrorIs(t, err, models.ErrAlreadyDeleted)
	assert.ErrorIs(t, err, models.ErrPermission, "already deleted is a permission failure")
}

func TestScenarioDeletePreservesReplies(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	hello := e.post(t, "alice", "Hello", nil)
	e.post(t, "bob", "Hi back", hello)
	e.post(t, "carol", "me too", hello)

	assert.ErrorIs(t, e.comments.Delete(ctx, hello.ID, "bob"), models.ErrPermission)
	require.NoError(t, e.comments.Delete(ctx, hello.ID, "alice"))
	assert.ErrorIs(t, e.comments.Delete(ctx, hello.ID, "alice"), models.ErrAlreadyDeleted)

	got, err := e.comments.Get(ctx, hello.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusDeleted, got.Status)
	assert.Equal(t, models.DeletedPlaceholder, got.Body)
	assert.Equal(t, 2, got.RepliesCount)

	replies, err := e.comments.FetchReplies(ctx, hello.ID, 0, "", "")
	require.NoError(t, err)
	require.Len(t, replies.Replies, 2)
	assert.Equal(t, "Hi back", replies.Replies[0].Body)
}

func TestScenarioVoteFlip(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	hello := e.post(t, "alice", "Hello", nil)

	c, err := e.votes.CastVote(ctx, hello.ID, "userA", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, c.LikesCount)
	assert.Equal(t, 1, c.Score())
	require.NotNil(t, c.UserVote)
	assert.Equal(t, 1, *c.UserVote)

	c, err = e.votes.CastVote(ctx, hello.ID, "userA", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, c.LikesCount, "same vote twice is a no-op")
	assert.Equal(t, 0, c.DislikesCount)

	c, err = e.votes.CastVote(ctx, hello.ID, "userA", -1)
	require.NoError(t, err)
	assert.Equal(t, 0, c.LikesCount)
	assert.Equal(t, 1, c.DislikesCount)
	assert.Equal(t, -1, c.Score())

	c, err = e.votes.ClearVote(ctx, hello.ID, "userA")
	require.NoError(t, err)
	assert.Equal(t, 0, c.LikesCount+c.DislikesCount)

	c, err = e.votes.ClearVote(ctx, hello.ID, "userA")
	require.NoError(t, err, "clearing twice is a no-op")
	assert.Equal(t, 0, c.DislikesCount)
}

func TestVoteRules(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := e.post(t, "alice", "Hello", nil)

	_, err := e.votes.CastVote(ctx, c.ID, "bob", 2)
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = e.votes.CastVote(ctx, 404, "bob", 1)
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = e.votes.CastVote(ctx, c.ID, "alice", 1)
	assert.NoError(t, err, "self votes are allowed by default")

	strict := newEnv(t, func(p *Policy) { p.AllowSelfVote = false })
	own := strict.post(t, "alice", "mine", nil)
	_, err = strict.votes.CastVote(ctx, own.ID, "alice", 1)
	assert.ErrorIs(t, err, models.ErrPermission)

	_, err = e.votes.CastVote(ctx, c.ID, "bob", -1)
	require.NoError(t, err)
	require.NoError(t, e.comments.Delete(ctx, c.ID, "alice"))

	_, err = e.votes.CastVote(ctx, c.ID, "carol", 1)
	assert.ErrorIs(t, err, models.ErrAlreadyDeleted)

	cleared, err := e.votes.ClearVote(ctx, c.ID, "bob")
	require.NoError(t, err, "votes can be cleared on tombstones")
	assert.Equal(t, 0, cleared.DislikesCount)
	assert.Equal(t, models.DeletedPlaceholder, cleared.Body)
}

func TestConcurrentVotes(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := e.post(t, "alice", "popular", nil)

	const voters = 50
	var wg sync.WaitGroup
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := e.votes.CastVote(ctx, c.ID, fmt.Sprintf("user-%d", i), 1)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := e.comments.Get(ctx, c.ID, "")
	require.NoError(t, err)
	assert.Equal(t, voters, got.LikesCount)
	assert.Equal(t, voters, got.Score())
}

func TestViewerVoteOnReads(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.post(t, "alice", "a", nil)
	b := e.post(t, "alice", "b", nil)

	_, err := e.votes.CastVote(ctx, a.ID, "viewer", -1)
	require.NoError(t, err)

	page, err := e.comments.ListTopLevel(ctx, models.ListCommentsFilter{TargetType: models.TargetChapter, TargetID: "C1"}, "viewer")
	require.NoError(t, err)
	require.Len(t, page.Comments, 2)
	for _, c := range page.Comments {
		switch c.ID {
		case a.ID:
			require.NotNil(t, c.UserVote)
			assert.Equal(t, -1, *c.UserVote)
		case b.ID:
			assert.Nil(t, c.UserVote)
		}
	}

	anon, err := e.comments.Get(ctx, a.ID, "")
	require.NoError(t, err)
	assert.Nil(t, anon.UserVote)
}

func TestPaginationWindow(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 7; i++ {
		ids = append(ids, e.post(t, "alice", fmt.Sprintf("c%d", i), nil).ID)
	}
	// newest first
	newest := make([]int64, len(ids))
	for i, id := range ids {
		newest[len(ids)-1-i] = id
	}

	for _, tc := range []struct{ page, limit int }{{1, 3}, {2, 3}, {3, 3}, {4, 3}, {1, 7}, {2, 5}} {
		t.Run(fmt.Sprintf("page=%d,limit=%d", tc.page, tc.limit), func(t *testing.T) {
			got, err := e.comments.ListTopLevel(ctx, models.ListCommentsFilter{
				TargetType: models.TargetChapter, TargetID: "C1", Page: tc.page, Limit: tc.limit,
			}, "")
			require.NoError(t, err)
			assert.Equal(t, 7, got.TotalCount)

			start := (tc.page - 1) * tc.limit
			end := start + tc.limit
			if start > len(newest) {
				start = len(newest)
			}
			if end > len(newest) {
				end = len(newest)
			}
			var gotIDs []int64
			for _, c := range got.Comments {
				gotIDs = append(gotIDs, c.ID)
			}
			assert.Equal(t, newest[start:end], append([]int64{}, gotIDs...))
		})
	}
}

func TestListClampsAndRejects(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.post(t, "alice", "only", nil)

	got, err := e.comments.ListTopLevel(ctx, models.ListCommentsFilter{TargetType: models.TargetChapter, TargetID: "C1", Page: -3, Limit: 1000}, "")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Page)
	assert.Equal(t, 100, got.Limit)

	got, err = e.comments.ListTopLevel(ctx, models.ListCommentsFilter{TargetType: models.TargetChapter, TargetID: "C1"}, "")
	require.NoError(t, err)
	assert.Equal(t, 20, got.Limit)

	for _, page := range []int{1 << 62, math.MaxInt} {
		far, err := e.comments.ListTopLevel(ctx, models.ListCommentsFilter{TargetType: models.TargetChapter, TargetID: "C1", Page: page, Limit: 20}, "")
		require.NoError(t, err, page)
		assert.Empty(t, far.Comments)
		assert.Equal(t, 1, far.TotalCount)
	}

	_, err = e.comments.ListTopLevel(ctx, models.ListCommentsFilter{TargetType: models.TargetChapter, TargetID: "C1", Sort: "random"}, "")
	assert.ErrorIs(t, err, models.ErrValidation)

	empty, err := e.comments.ListTopLevel(ctx, models.ListCommentsFilter{TargetType: models.TargetNews, TargetID: "none"}, "")
	require.NoError(t, err)
	assert.NotNil(t, empty.Comments)
	assert.Empty(t, empty.Comments)
}

func TestTopOrdering(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	low := e.post(t, "alice", "low", nil)
	high := e.post(t, "alice", "high", nil)
	mid := e.post(t, "alice", "mid", nil)

	for i := 0; i < 3; i++ {
		_, err := e.votes.CastVote(ctx, low.ID, fmt.Sprintf("u%d", i), 1)
		require.NoError(t, err)
	}
	for i := 0; i < 2; i++ {
		_, err := e.votes.CastVote(ctx, high.ID, fmt.Sprintf("u%d", i), 1)
		require.NoError(t, err)
	}
	_, err := e.votes.CastVote(ctx, high.ID, "u9", -1)
	require.NoError(t, err)
	// low: 3, high: 1, mid: 0

	got, err := e.comments.ListTopLevel(ctx, models.ListCommentsFilter{TargetType: models.TargetChapter, TargetID: "C1", Sort: models.SortTop}, "")
	require.NoError(t, err)
	require.Len(t, got.Comments, 3)
	assert.Equal(t, []int64{low.ID, high.ID, mid.ID}, []int64{got.Comments[0].ID, got.Comments[1].ID, got.Comments[2].ID})
}

func TestFetchRepliesCursor(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	root := e.post(t, "alice", "root", nil)

	var want []int64
	for i := 0; i < 5; i++ {
		want = append(want, e.post(t, "bob", fmt.Sprintf("r%d", i), root).ID)
	}

	var got []int64
	cursor := ""
	for pages := 0; pages < 10; pages++ {
		page, err := e.comments.FetchReplies(ctx, root.ID, 2, cursor, "")
		require.NoError(t, err)
		for _, c := range page.Replies {
			got = append(got, c.ID)
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}
	assert.Equal(t, want, got)

	_, err := e.comments.FetchReplies(ctx, root.ID, 2, "%%%", "")
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = e.comments.FetchReplies(ctx, 404, 2, "", "")
	assert.ErrorIs(t, err, models.ErrNotFound)

	exact, err := e.comments.FetchReplies(ctx, root.ID, 5, "", "")
	require.NoError(t, err)
	assert.Len(t, exact.Replies, 5)
	assert.Empty(t, exact.NextCursor, "no cursor when the page ends the list")
}

func TestScenarioDuplicateReport(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	hello := e.post(t, "alice", "Hello", nil)
	reply := e.post(t, "bob", "Hi back", hello)

	first, err := e.moderation.Report(ctx, reply.ID, "carol", "this is offensive")
	require.NoError(t, err)
	assert.Equal(t, models.ReportOpen, first.Status)

	_, err = e.moderation.Report(ctx, reply.ID, "carol", "still offensive!!")
	assert.ErrorIs(t, err, models.ErrRateLimited)

	queue, err := e.moderation.ListReports(ctx, models.ReportsFilter{Status: models.ReportOpen, CommentID: reply.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, queue.TotalCount)

	_, err = e.moderation.Report(ctx, reply.ID, "dave", "short")
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = e.moderation.Report(ctx, 404, "dave", "long enough reason")
	assert.ErrorIs(t, err, models.ErrNotFound)

	assert.Contains(t, e.sink.names(), events.ReportOpened)
}

func TestResolveHideClosesOpenReports(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := e.post(t, "alice", "hot take", nil)

	r1, err := e.moderation.Report(ctx, c.ID, "bob", "this is spam")
	require.NoError(t, err)
	_, err = e.moderation.Report(ctx, c.ID, "carol", "this is also spam")
	require.NoError(t, err)

	result, err := e.moderation.Resolve(ctx, r1.ID, "mod", models.ActionHide)
	require.NoError(t, err)
	assert.True(t, result.Hidden)
	assert.Equal(t, 2, result.ResolvedReports)
	assert.Equal(t, models.StatusHidden, result.Comment.Status)

	open, err := e.moderation.ListReports(ctx, models.ReportsFilter{Status: models.ReportOpen})
	require.NoError(t, err)
	assert.Equal(t, 0, open.TotalCount)

	_, err = e.moderation.Resolve(ctx, r1.ID, "mod", models.ActionDismiss)
	assert.ErrorIs(t, err, models.ErrValidation)

	public, err := e.comments.Get(ctx, c.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.HiddenPlaceholder, public.Body)

	raw, err := e.moderation.ListComments(ctx, models.AdminCommentsFilter{Status: models.StatusHidden})
	require.NoError(t, err)
	require.Len(t, raw.Comments, 1)
	assert.Equal(t, "hot take", raw.Comments[0].Body)

	assert.Contains(t, e.sink.names(), events.CommentHidden)
}

func TestResolveDismiss(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := e.post(t, "alice", "fine comment", nil)

	r1, err := e.moderation.Report(ctx, c.ID, "bob", "i dislike this")
	require.NoError(t, err)
	_, err = e.moderation.Report(ctx, c.ID, "carol", "me neither okay")
	require.NoError(t, err)

	result, err := e.moderation.Resolve(ctx, r1.ID, "mod", models.ActionDismiss)
	require.NoError(t, err)
	assert.False(t, result.Hidden)
	assert.Equal(t, models.StatusActive, result.Comment.Status)
	require.NotNil(t, result.Report.Resolution)
	assert.Equal(t, models.ActionDismiss, *result.Report.Resolution)

	open, err := e.moderation.ListReports(ctx, models.ReportsFilter{Status: models.ReportOpen})
	require.NoError(t, err)
	assert.Equal(t, 1, open.TotalCount, "dismiss closes only the one report")

	_, err = e.moderation.Resolve(ctx, 404, "mod", models.ActionHide)
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = e.moderation.Resolve(ctx, r1.ID, "mod", "ban")
	assert.ErrorIs(t, err, models.ErrValidation)

	// bob may report again once their report is closed
	_, err = e.moderation.Report(ctx, c.ID, "bob", "changed my mind, spam")
	assert.NoError(t, err)
}

func TestHideAndUnhide(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	root := e.post(t, "alice", "root", nil)
	e.post(t, "bob", "child", root)

	result, err := e.moderation.Hide(ctx, root.ID, "mod")
	require.NoError(t, err)
	assert.Equal(t, models.StatusHidden, result.Comment.Status)
	assert.Equal(t, 1, result.Comment.RepliesCount, "hide keeps the subtree")

	_, err = e.moderation.Hide(ctx, root.ID, "mod")
	assert.ErrorIs(t, err, models.ErrAlreadyDeleted)

	restored, err := e.moderation.Unhide(ctx, root.ID, "mod")
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, restored.Status)

	_, err = e.moderation.Unhide(ctx, root.ID, "mod")
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = e.moderation.Unhide(ctx, 404, "mod")
	assert.ErrorIs(t, err, models.ErrNotFound)

	require.NoError(t, e.comments.Delete(ctx, root.ID, "alice"))
	_, err = e.moderation.Unhide(ctx, root.ID, "mod")
	assert.ErrorIs(t, err, models.ErrValidation, "deleted comments cannot be restored")
}

func TestHardDeleteCascade(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	root := e.post(t, "alice", "root", nil)
	mid := e.post(t, "bob", "mid", root)
	leaf := e.post(t, "carol", "leaf", mid)
	sibling := e.post(t, "dave", "sibling", root)

	_, err := e.votes.CastVote(ctx, leaf.ID, "eve", 1)
	require.NoError(t, err)
	_, err = e.moderation.Report(ctx, leaf.ID, "eve", "please remove this")
	require.NoError(t, err)

	removed, err := e.moderation.HardDelete(ctx, mid.ID, "admin")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	_, err = e.comments.Get(ctx, leaf.ID, "")
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Equal(t, 0, e.store.VoteCount(leaf.ID))

	parent, err := e.comments.Get(ctx, root.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 1, parent.RepliesCount)

	_, err = e.comments.Get(ctx, sibling.ID, "")
	assert.NoError(t, err)

	reports, err := e.moderation.ListReports(ctx, models.ReportsFilter{})
	require.NoError(t, err)
	assert.Equal(t, 0, reports.TotalCount)

	_, err = e.moderation.HardDelete(ctx, mid.ID, "admin")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestEventFailureDoesNotFailWrite(t *testing.T) {
	e := newEnv(t)
	e.sink.err = errors.New("notifier down")

	c, err := e.comments.Create(context.Background(), "alice", models.CreateCommentRequest{TargetType: models.TargetNews, TargetID: "N1", Body: "still saved"})
	require.NoError(t, err)

	got, err := e.comments.Get(context.Background(), c.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "still saved", got.Body)
}
