package services

import (
	"context"
	"time"

	"github.com/yigit/thesisflow/internal/app/scheduling"
	"github.com/yigit/thesisflow/internal/app/workflow"
	"github.com/yigit/thesisflow/internal/pkg/notify"
)

// WorkflowOptions carries the switches and clock shared by the workflow services
type WorkflowOptions struct {
	Rules workflow.Rules
	// Location is the timezone calendar dates are interpreted in.
	Location *time.Location
	// DefaultDuration stands in for missing schedule end times.
	DefaultDuration time.Duration
	Now             func() time.Time
}

func (o WorkflowOptions) withDefaults() WorkflowOptions {
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.DefaultDuration <= 0 {
		o.DefaultDuration = scheduling.DefaultDuration
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// today returns midnight of the current calendar day in the configured zone.
func (o WorkflowOptions) today() time.Time {
	now := o.Now().In(o.Location)
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, o.Location)
}

func publisherOrDiscard(p notify.Publisher) notify.Publisher {
	if p == nil {
		return notify.Discard
	}
	return p
}

// afterCommit collects events raised inside a transaction so they are only
// published once it commits.
type afterCommit struct {
	events []notify.Event
}

func (a *afterCommit) add(ev ...notify.Event) { a.events = append(a.events, ev...) }

func (a *afterCommit) flush(ctx context.Context, p notify.Publisher) {
	if len(a.events) > 0 {
		p.Publish(ctx, a.events...)
	}
	a.events = nil
}
