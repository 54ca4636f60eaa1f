// Package core - Discussion business logic
// Protocol-agnostic services over the repositories
package core

import (
	"context"
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"novelhub/internal/events"
	"novelhub/pkg/config"
	"novelhub/pkg/logger"
	"novelhub/pkg/models"
	"novelhub/pkg/utils"
)

// Policy holds the tunable limits of the discussion service
type Policy struct {
	MaxDepth           int
	MaxBodyLength      int
	MinReportReason    int
	MaxReportReason    int
	DefaultPageSize    int
	MaxPageSize        int
	DefaultRepliesSize int
	MaxRepliesSize     int
	AllowSelfVote      bool
}

// NewPolicy builds a policy from configuration
func NewPolicy(cfg config.CommentsConfig) Policy {
	return Policy{
		MaxDepth:           cfg.MaxDepth,
		MaxBodyLength:      cfg.MaxBodyLength,
		MinReportReason:    cfg.MinReportReason,
		MaxReportReason:    cfg.MaxReportReason,
		DefaultPageSize:    cfg.DefaultPageSize,
		MaxPageSize:        cfg.MaxPageSize,
		DefaultRepliesSize: cfg.DefaultRepliesSize,
		MaxRepliesSize:     cfg.MaxRepliesSize,
		AllowSelfVote:      cfg.AllowSelfVote,
	}
}

// DefaultPolicy mirrors config.Default
func DefaultPolicy() Policy {
	return NewPolicy(config.Default().Comments)
}

// Markup is stripped from bodies; comments are rendered as plain text
var stripPolicy = bluemonday.StrictPolicy()

const (
	// rawBodyFactor bounds the raw input at this many bytes per allowed rune
	rawBodyFactor = 8

	// stripPasses bounds how many layers of entity encoding are unwrapped
	stripPasses = 5
)

// MaxRawBody is the largest raw body, in bytes, worth sanitizing
func (p Policy) MaxRawBody() int {
	return p.MaxBodyLength * rawBodyFactor
}

// stripMarkup removes tags and decodes entities until the text is stable,
// so entity-encoded tags cannot survive as markup.
func stripMarkup(body string) (string, bool) {
	text := body
	for i := 0; i < stripPasses; i++ {
		next := html.UnescapeString(stripPolicy.Sanitize(text))
		if next == text {
			return text, true
		}
		text = next
	}
	return text, false
}

// normalizeBody strips markup and surrounding whitespace, then checks length
func (p Policy) normalizeBody(body string) (string, error) {
	if len(body) > p.MaxRawBody() {
		return "", models.NewValidationError("body", "body is too long")
	}
	clean, ok := stripMarkup(body)
	if !ok {
		return "", models.NewValidationError("body", "body contains nested markup")
	}
	clean = strings.TrimSpace(clean)
	n := utf8.RuneCountInString(clean)
	if n == 0 {
		return "", models.NewValidationError("body", "body must not be empty")
	}
	if n > p.MaxBodyLength {
		return "", models.NewValidationError("body", "body is too long")
	}
	return clean, nil
}

func (p Policy) normalizeReason(reason string) (string, error) {
	clean := strings.TrimSpace(reason)
	n := utf8.RuneCountInString(clean)
	if n < p.MinReportReason || n > p.MaxReportReason {
		return "", models.NewValidationError("reason",
			fmt.Sprintf("reason must be between %d and %d characters", p.MinReportReason, p.MaxReportReason))
	}
	return clean, nil
}

func validateTarget(targetType models.TargetType, targetID string) error {
	if !targetType.Valid() {
		return models.NewValidationError("targetType", "targetType must be novel, chapter or news")
	}
	if targetID == "" || len(targetID) > models.MaxTargetIDLength {
		return models.NewValidationError("targetId", "targetId must be 1 to 64 characters")
	}
	return nil
}

// internal wraps unexpected failures; application errors pass through
func internal(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := models.AsAppError(err); ok {
		return err
	}
	if utils.IsContextError(err) {
		return err
	}
	return models.NewInternalError(err)
}

// publish delivers e after the write committed; failures are logged only
func publish(ctx context.Context, sink events.Sink, e events.Event) {
	if sink == nil {
		return
	}
	if err := sink.Publish(ctx, e); err != nil {
		eventFailures.WithLabelValues(string(e.Name)).Inc()
		logger.WithRequestID(ctx).Warn("event delivery failed: " + err.Error())
		return
	}
	eventsPublished.WithLabelValues(string(e.Name)).Inc()
}
