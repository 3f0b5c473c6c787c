package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// LogNotifier writes every event to the structured log.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier creates a LogNotifier
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Name() string { return "log" }

func (n *LogNotifier) Notify(_ context.Context, ev Event) error {
	e := n.logger.Info().
		Str("eventID", ev.ID).
		Str("event", string(ev.Kind)).
		Int64("requestID", ev.RequestID).
		Time("occurredAt", ev.OccurredAt)
	if ev.Actor != "" {
		e = e.Str("actor", ev.Actor)
	}
	if len(ev.Data) > 0 {
		e = e.Interface("data", ev.Data)
	}
	e.Msg("Domain event")
	return nil
}
