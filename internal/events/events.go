// Package events carries domain events to the notification collaborator.
// Delivery is best-effort and happens after the originating transaction commits.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"novelhub/pkg/logger"
	"novelhub/pkg/models"
)

// Name identifies an event kind
type Name string

const (
	CommentCreated Name = "comment.created"
	ReportOpened   Name = "report.opened"
	CommentHidden  Name = "comment.hidden"
)

// Event is the wire form shared by every sink
type Event struct {
	Name       Name              `json:"name"`
	CommentID  int64             `json:"commentId"`
	TargetType models.TargetType `json:"targetType"`
	TargetID   string            `json:"targetId"`
	ParentID   *int64            `json:"parentId,omitempty"`
	ActorID    string            `json:"actorId"`
	ReportID   int64             `json:"reportId,omitempty"`
	OccurredAt time.Time         `json:"occurredAt"`
}

// ForComment builds an event about c
func ForComment(name Name, c *models.Comment, actorID string) Event {
	return Event{
		Name:       name,
		CommentID:  c.ID,
		TargetType: c.TargetType,
		TargetID:   c.TargetID,
		ParentID:   c.ParentID,
		ActorID:    actorID,
		OccurredAt: time.Now().UTC(),
	}
}

// Sink receives events
type Sink interface {
	Publish(ctx context.Context, e Event) error
}

// Handler reacts to one event
type Handler func(ctx context.Context, e Event) error

// Bus fans events out to in-process subscribers and downstream sinks
type Bus struct {
	mu       sync.RWMutex
	handlers map[Name][]Handler
	sinks    []Sink
}

// NewBus creates a bus forwarding to sinks
func NewBus(sinks ...Sink) *Bus {
	return &Bus{
		handlers: make(map[Name][]Handler),
		sinks:    sinks,
	}
}

// Subscribe registers h for events named name
func (b *Bus) Subscribe(name Name, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], h)
}

// Publish delivers e to every subscriber and sink; failures are joined
func (b *Bus) Publish(ctx context.Context, e Event) error {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[e.Name]...)
	sinks := append([]Sink(nil), b.sinks...)
	b.mu.RUnlock()

	var errs []error
	for _, h := range handlers {
		if err := h(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	for _, s := range sinks {
		if err := s.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogSink writes events to the structured log
type LogSink struct{}

func (LogSink) Publish(ctx context.Context, e Event) error {
	logger.WithRequestID(ctx).With(
		zap.String("event", string(e.Name)),
		zap.Int64("comment_id", e.CommentID),
		zap.String("target", string(e.TargetType)+":"+e.TargetID),
		zap.String("actor_id", e.ActorID),
	).Info("domain event")
	return nil
}

// RedisSink publishes events as JSON on a pub/sub channel
type RedisSink struct {
	client  redis.UniversalClient
	channel string
}

// NewRedisSink creates a sink publishing to channel
func NewRedisSink(client redis.UniversalClient, channel string) *RedisSink {
	return &RedisSink{client: client, channel: channel}
}

func (s *RedisSink) Publish(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return s.client.Publish(ctx, s.channel, data).Err()
}

// Discard drops every event
type Discard struct{}

func (Discard) Publish(context.Context, Event) error { return nil }
