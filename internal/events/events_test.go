package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"novelhub/pkg/models"
)

type recordingSink struct {
	got []Event
	err error
}

func (r *recordingSink) Publish(_ context.Context, e Event) error {
	r.got = append(r.got, e)
	return r.err
}

func TestBusFanOut(t *testing.T) {
	downstream := &recordingSink{}
	bus := NewBus(downstream)

	var created, hidden int
	bus.Subscribe(CommentCreated, func(context.Context, Event) error { created++; return nil })
	bus.Subscribe(CommentHidden, func(context.Context, Event) error { hidden++; return nil })

	parent := int64(3)
	e := ForComment(CommentCreated, &models.Comment{ID: 4, ParentID: &parent, TargetType: models.TargetNovel, TargetID: "n1"}, "alice")
	require.NoError(t, bus.Publish(context.Background(), e))

	assert.Equal(t, 1, created)
	assert.Equal(t, 0, hidden)
	require.Len(t, downstream.got, 1)
	assert.Equal(t, int64(4), downstream.got[0].CommentID)
	assert.Equal(t, "alice", downstream.got[0].ActorID)
}

func TestBusJoinsErrors(t *testing.T) {
	failing := &recordingSink{err: errors.New("sink down")}
	bus := NewBus(failing, LogSink{})
	bus.Subscribe(ReportOpened, func(context.Context, Event) error { return errors.New("handler failed") })

	err := bus.Publish(context.Background(), Event{Name: ReportOpened, CommentID: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sink down")
	assert.Contains(t, err.Error(), "handler failed")
	assert.Len(t, failing.got, 1, "sinks still run after a handler fails")
}

func TestRedisSink(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Skipping test: Redis not available: %v", err)
	}

	channel := fmt.Sprintf("novelhub:test:%d", time.Now().UnixNano())
	sub := client.Subscribe(ctx, channel)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	sink := NewRedisSink(client, channel)
	require.NoError(t, sink.Publish(ctx, Event{Name: CommentHidden, CommentID: 77}))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)

	var got Event
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
	assert.Equal(t, CommentHidden, got.Name)
	assert.Equal(t, int64(77), got.CommentID)
}
