// Package services orchestrates the record stores, plan limits and domain
// events behind the HTTP API and the operator CLI.
package services

import (
	"context"
	"errors"
	"html"
	"strings"
	"time"
	"unicode"

	"github.com/microcosm-cc/bluemonday"

	"fintrack/internal/events"
	"fintrack/internal/log"
	"fintrack/internal/subscription"
)

var (
	// ErrLimitReached is returned when a plan's record limit is exhausted.
	ErrLimitReached = errors.New("plan limit reached")
	// ErrFeatureUnavailable is returned when the current plan lacks a feature.
	ErrFeatureUnavailable = errors.New("feature not available on current plan")
)

// Entitlements resolves the plan features of a user.
type Entitlements interface {
	Features(ctx context.Context, userID string) (subscription.Features, error)
}

// FreeTier grants the free plan to everyone. It stands in for the
// subscription service in tools that have no signed-in user.
type FreeTier struct{}

func (FreeTier) Features(context.Context, string) (subscription.Features, error) {
	return subscription.FeaturesFor(""), nil
}

var textPolicy = bluemonday.StrictPolicy()

// cleanText strips markup and control characters from user input. The result
// is plain text, so HTML entities produced by the policy are decoded again.
func cleanText(s string) string {
	s = html.UnescapeString(textPolicy.Sanitize(s))
	s = strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || r == '\n' || r == '\t' {
			return r
		}
		return -1
	}, s)
	return strings.TrimSpace(s)
}

func cleanPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := cleanText(*s)
	return &v
}

// publisher sends events after a successful write. A failed publish is logged
// and never fails the request: the record is already saved.
type publisher struct {
	pub    events.Publisher
	logger *log.Logger
	now    func() time.Time
}

func newPublisher(pub events.Publisher, logger *log.Logger) publisher {
	if pub == nil {
		pub = events.Discard{}
	}
	return publisher{pub: pub, logger: logger, now: time.Now}
}

func (p publisher) publish(ctx context.Context, build func(at time.Time) (events.Event, error)) {
	e, err := build(p.now())
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to build event", log.FieldError, err)
		return
	}
	if err := p.pub.Publish(ctx, e); err != nil {
		p.logger.WarnContext(ctx, "Failed to publish event",
			log.FieldEventType, e.Type,
			log.FieldEventID, e.ID,
			log.FieldError, err)
	}
}

func componentLogger(logger *log.Logger, component string) *log.Logger {
	if logger == nil {
		logger = log.Discard()
	}
	return logger.WithComponent(component)
}
