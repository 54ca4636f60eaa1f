package tcp

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"novelhub/internal/events"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, Ack{Status: "success", Message: "ok"}))

	length := binary.BigEndian.Uint32(buf.Bytes()[:4])
	assert.Equal(t, uint32(buf.Len()-4), length)

	var ack Ack
	require.NoError(t, ReadFrame(&buf, &ack))
	assert.Equal(t, "success", ack.Status)
}

func TestReadFrameRejectsBadLength(t *testing.T) {
	for _, n := range []uint32{0, MaxFrameSize + 1} {
		var buf bytes.Buffer
		require.NoError(t, binary.Write(&buf, binary.BigEndian, n))
		var ack Ack
		assert.ErrorIs(t, ReadFrame(&buf, &ack), ErrFrameSize)
	}
}

func startServer(t *testing.T, handler events.Handler) *Server {
	t.Helper()
	srv := NewServer("127.0.0.1:0", handler)
	require.NoError(t, srv.Start())
	t.Cleanup(srv.Stop)
	return srv
}

func TestNotifierDelivers(t *testing.T) {
	var mu sync.Mutex
	var got []events.Event
	srv := startServer(t, func(_ context.Context, e events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e)
		return nil
	})

	n := NewNotifier(srv.Addr(), 1000, 10)
	defer n.Close()

	ctx := context.Background()
	require.NoError(t, n.Publish(ctx, events.Event{Name: events.CommentCreated, CommentID: 1, ActorID: "alice"}))
	require.NoError(t, n.Publish(ctx, events.Event{Name: events.ReportOpened, CommentID: 1, ReportID: 9}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, events.CommentCreated, got[0].Name, "delivered in publish order")
	assert.Equal(t, events.ReportOpened, got[1].Name)
	assert.Equal(t, int64(9), got[1].ReportID)
}

func TestNotifierSurfacesRejection(t *testing.T) {
	srv := startServer(t, func(context.Context, events.Event) error {
		return errors.New("inbox full")
	})
	n := NewNotifier(srv.Addr(), 1000, 10)
	defer n.Close()

	err := n.Send(context.Background(), events.Event{Name: events.CommentHidden, CommentID: 5})
	var rejected *RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, "inbox full", rejected.Message)

	err = n.Send(context.Background(), events.Event{Name: "comment.liked", CommentID: 5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown event")
}

func TestNotifierReconnects(t *testing.T) {
	srv := startServer(t, nil)
	n := NewNotifier(srv.Addr(), 1000, 10)
	defer n.Close()

	ctx := context.Background()
	require.NoError(t, n.Send(ctx, events.Event{Name: events.CommentCreated, CommentID: 1}))

	// drop the connection under the notifier
	n.mu.Lock()
	n.conn.Close()
	n.mu.Unlock()

	assert.NoError(t, n.Send(ctx, events.Event{Name: events.CommentCreated, CommentID: 2}))
}

func TestNotifierRateLimitHonoursContext(t *testing.T) {
	srv := startServer(t, nil)
	n := NewNotifier(srv.Addr(), 0.001, 1)
	defer n.Close()

	require.NoError(t, n.Send(context.Background(), events.Event{Name: events.CommentCreated, CommentID: 1}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := n.Send(ctx, events.Event{Name: events.CommentCreated, CommentID: 2})
	assert.Error(t, err, "burst exhausted, the wait exceeds the deadline")
}

func TestNotifierUnreachable(t *testing.T) {
	n := NewNotifier("127.0.0.1:1", 1000, 10)
	defer n.Close()

	err := n.Send(context.Background(), events.Event{Name: events.CommentCreated, CommentID: 1})
	assert.Error(t, err)
}

// silentListener accepts connections and never answers
func silentListener(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var mu sync.Mutex
	var conns []net.Conn
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
		}
	}()

	t.Cleanup(func() {
		ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			c.Close()
		}
	})
	return ln.Addr().String()
}

func TestNotifierPublishDoesNotWaitForCollaborator(t *testing.T) {
	n := newNotifier(silentListener(t), 1000, 10, 1)

	start := time.Now()
	var full int
	for i := int64(1); i <= 3; i++ {
		err := n.Publish(context.Background(), events.Event{Name: events.CommentCreated, CommentID: i})
		if errors.Is(err, ErrQueueFull) {
			full++
			continue
		}
		require.NoError(t, err)
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
	assert.GreaterOrEqual(t, full, 1, "one in flight plus one queued leaves no room")

	closed := time.Now()
	require.NoError(t, n.Close())
	assert.Less(t, time.Since(closed), time.Second, "close interrupts the pending ack")

	err := n.Publish(context.Background(), events.Event{Name: events.CommentCreated, CommentID: 4})
	assert.ErrorIs(t, err, ErrNotifierClosed)
}
