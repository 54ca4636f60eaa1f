package core

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// commentsCreated counts new comments by target type and level
	commentsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "novelhub_comments_created_total",
		Help: "Comments created by target type and level",
	}, []string{"target_type", "level"})

	// statusTransitions counts moderation and owner status changes
	statusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "novelhub_comment_status_transitions_total",
		Help: "Comment status transitions by destination status",
	}, []string{"to"})

	votesCast = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "novelhub_votes_total",
		Help: "Vote operations by kind (like, dislike, clear)",
	}, []string{"kind"})

	reportsOpened = promauto.NewCounter(prometheus.CounterOpts{
		Name: "novelhub_reports_opened_total",
		Help: "Reports opened",
	})

	reportsResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "novelhub_reports_resolved_total",
		Help: "Reports resolved by action",
	}, []string{"action"})

	eventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "novelhub_events_published_total",
		Help: "Domain events delivered",
	}, []string{"event"})

	eventFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "novelhub_events_failed_total",
		Help: "Domain events that could not be delivered",
	}, []string{"event"})
)
